// Package useragent assembles realistic browser user-agent strings from
// current browser and platform version ranges.
package useragent

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
)

const MaxCount = 50

type browserSpec struct {
	minMajor int
	maxMajor int
	oses     []string
}

var browsers = map[string]browserSpec{
	"chrome":  {minMajor: 120, maxMajor: 139, oses: []string{"windows", "macos", "linux", "android"}},
	"firefox": {minMajor: 118, maxMajor: 132, oses: []string{"windows", "macos", "linux", "android"}},
	"safari":  {minMajor: 16, maxMajor: 18, oses: []string{"macos", "ios"}},
	"edge":    {minMajor: 120, maxMajor: 139, oses: []string{"windows", "macos"}},
}

var platformTokens = map[string][]string{
	"windows": {"Windows NT 10.0; Win64; x64"},
	"macos":   {"Macintosh; Intel Mac OS X 10_15_7", "Macintosh; Intel Mac OS X 13_6", "Macintosh; Intel Mac OS X 14_5"},
	"linux":   {"X11; Linux x86_64", "X11; Ubuntu; Linux x86_64"},
	"android": {"Linux; Android 13; Pixel 7", "Linux; Android 14; SM-G991B", "Linux; Android 12; Moto G Power"},
	"ios":     {"iPhone; CPU iPhone OS 16_6 like Mac OS X", "iPhone; CPU iPhone OS 17_4 like Mac OS X"},
}

type Generator struct{}

func New() *Generator {
	return &Generator{}
}

// SupportedBrowsers returns the browser names with templates, sorted.
func (g *Generator) SupportedBrowsers() []string {
	names := make([]string, 0, len(browsers))
	for name := range browsers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Generate returns count user-agent strings. Empty browser or os means
// "any"; unknown values or impossible combinations are rejected.
func (g *Generator) Generate(browser, os string, count int) ([]string, error) {
	browser = strings.ToLower(browser)
	os = strings.ToLower(os)

	names := g.SupportedBrowsers()
	if browser != "" {
		if _, ok := browsers[browser]; !ok {
			return nil, fmt.Errorf("unsupported browser %q (supported: %s)", browser, strings.Join(names, ", "))
		}
		names = []string{browser}
	}
	if os != "" {
		if _, ok := platformTokens[os]; !ok {
			return nil, fmt.Errorf("unsupported os %q", os)
		}
		names = filterByOS(names, os)
		if len(names) == 0 {
			return nil, fmt.Errorf("no %s builds exist for %s", browser, os)
		}
	}
	if count < 1 {
		count = 1
	}
	if count > MaxCount {
		count = MaxCount
	}

	agents := make([]string, 0, count)
	for i := 0; i < count; i++ {
		name := names[rand.IntN(len(names))]
		spec := browsers[name]
		target := os
		if target == "" {
			target = spec.oses[rand.IntN(len(spec.oses))]
		}
		agents = append(agents, render(name, spec, target))
	}
	return agents, nil
}

func filterByOS(names []string, os string) []string {
	var filtered []string
	for _, name := range names {
		for _, supported := range browsers[name].oses {
			if supported == os {
				filtered = append(filtered, name)
				break
			}
		}
	}
	return filtered
}

func render(name string, spec browserSpec, os string) string {
	platforms := platformTokens[os]
	platform := platforms[rand.IntN(len(platforms))]
	major := spec.minMajor + rand.IntN(spec.maxMajor-spec.minMajor+1)

	switch name {
	case "chrome":
		return fmt.Sprintf("Mozilla/5.0 (%s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%d.0.%d.%d Safari/537.36",
			platform, major, rand.IntN(6000)+1000, rand.IntN(200))
	case "edge":
		return fmt.Sprintf("Mozilla/5.0 (%s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%d.0.0.0 Safari/537.36 Edg/%d.0.%d.%d",
			platform, major, major, rand.IntN(3000)+1000, rand.IntN(100))
	case "firefox":
		return fmt.Sprintf("Mozilla/5.0 (%s; rv:%d.0) Gecko/20100101 Firefox/%d.0", platform, major, major)
	case "safari":
		minor := rand.IntN(7)
		return fmt.Sprintf("Mozilla/5.0 (%s) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/%d.%d Safari/605.1.15",
			platform, major, minor)
	}
	return fmt.Sprintf("Mozilla/5.0 (%s)", platform)
}
