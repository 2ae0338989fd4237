// Package email2name derives a probable human name from the local part of
// an email address using rule-based parsing.
package email2name

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
)

type Name struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	FullName  string `json:"full_name"`
}

type Converter struct{}

func New() *Converter {
	return &Converter{}
}

// Convert parses the local part of an email address into a name guess.
// "john.smith+news@example.com" yields "John Smith". Local parts with no
// recognizable name tokens produce an error rather than a garbage guess.
func (c *Converter) Convert(email string) (*Name, error) {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return nil, fmt.Errorf("invalid email address: %w", err)
	}

	local, _, _ := strings.Cut(addr.Address, "@")

	// Drop sub-address tags ("+news") before tokenizing.
	local, _, _ = strings.Cut(local, "+")

	tokens := tokenize(local)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("no name tokens in %q", local)
	}

	name := &Name{FirstName: title(tokens[0])}
	if len(tokens) > 1 {
		name.LastName = title(tokens[len(tokens)-1])
	}
	if name.LastName != "" {
		name.FullName = name.FirstName + " " + name.LastName
	} else {
		name.FullName = name.FirstName
	}
	return name, nil
}

// tokenize splits a local part on separators, strips digits, and drops
// tokens too short to be a name.
func tokenize(local string) []string {
	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})

	var tokens []string
	for _, part := range parts {
		var b strings.Builder
		for _, r := range part {
			if unicode.IsLetter(r) {
				b.WriteRune(r)
			}
		}
		token := b.String()
		if len(token) >= 2 {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func title(s string) string {
	s = strings.ToLower(s)
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
