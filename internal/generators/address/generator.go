// Package address produces plausible postal addresses from curated
// per-country street, city and region data.
package address

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
)

const (
	DefaultCountry = "US"
	MaxCount       = 50
)

type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type Generator struct{}

func New() *Generator {
	return &Generator{}
}

// SupportedCountries returns the ISO 3166-1 alpha-2 codes with data, sorted.
func (g *Generator) SupportedCountries() []string {
	codes := make([]string, 0, len(countries))
	for code := range countries {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Generate returns count random addresses for the given country code.
// An empty country falls back to DefaultCountry; count is clamped to MaxCount.
func (g *Generator) Generate(country string, count int) ([]Address, error) {
	if country == "" {
		country = DefaultCountry
	}
	data, ok := countries[strings.ToUpper(country)]
	if !ok {
		return nil, fmt.Errorf("unsupported country %q (supported: %s)", country, strings.Join(g.SupportedCountries(), ", "))
	}
	if count < 1 {
		count = 1
	}
	if count > MaxCount {
		count = MaxCount
	}

	addresses := make([]Address, 0, count)
	for i := 0; i < count; i++ {
		addresses = append(addresses, Address{
			Street:     randomStreet(data),
			City:       data.cities[rand.IntN(len(data.cities))],
			Region:     data.regions[rand.IntN(len(data.regions))],
			PostalCode: fillPattern(data.postalPattern),
			Country:    data.name,
		})
	}
	return addresses, nil
}

func randomStreet(data countryData) string {
	number := rand.IntN(9899) + 100
	name := data.streetNames[rand.IntN(len(data.streetNames))]
	suffix := data.streetSuffix[rand.IntN(len(data.streetSuffix))]

	// German street suffixes glue onto the name; French types lead.
	switch {
	case strings.HasPrefix(suffix, "straße") || suffix == "weg" || suffix == "allee" || suffix == "platz" || suffix == "gasse":
		return fmt.Sprintf("%s%s %d", name, suffix, number)
	case suffix == "Rue" || suffix == "Avenue" || suffix == "Boulevard" || suffix == "Place" || suffix == "Allée":
		return fmt.Sprintf("%d %s %s", number, suffix, name)
	default:
		return fmt.Sprintf("%d %s %s", number, name, suffix)
	}
}

func fillPattern(pattern string) string {
	var b strings.Builder
	for _, ch := range pattern {
		switch ch {
		case '#':
			b.WriteByte(byte('0' + rand.IntN(10)))
		case '?':
			b.WriteByte(byte('A' + rand.IntN(26)))
		default:
			b.WriteRune(ch)
		}
	}
	return b.String()
}
