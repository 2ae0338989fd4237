package address

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_DefaultsAndClamping(t *testing.T) {
	g := New()

	addresses, err := g.Generate("", 0)
	require.NoError(t, err)
	assert.Len(t, addresses, 1, "count below 1 clamps to 1")
	assert.Equal(t, "United States", addresses[0].Country)

	addresses, err = g.Generate("us", MaxCount+10)
	require.NoError(t, err)
	assert.Len(t, addresses, MaxCount)
}

func TestGenerate_UnsupportedCountry(t *testing.T) {
	g := New()

	_, err := g.Generate("ZZ", 1)
	assert.ErrorContains(t, err, "unsupported country")
}

func TestGenerate_AllFieldsPopulated(t *testing.T) {
	g := New()

	for _, country := range g.SupportedCountries() {
		addresses, err := g.Generate(country, 5)
		require.NoError(t, err)
		for _, addr := range addresses {
			assert.NotEmpty(t, addr.Street)
			assert.NotEmpty(t, addr.City)
			assert.NotEmpty(t, addr.Region)
			assert.NotEmpty(t, addr.PostalCode)
			assert.NotEmpty(t, addr.Country)
		}
	}
}

func TestGenerate_PostalCodeFormats(t *testing.T) {
	g := New()

	patterns := map[string]*regexp.Regexp{
		"US": regexp.MustCompile(`^\d{5}$`),
		"DE": regexp.MustCompile(`^\d{5}$`),
		"FR": regexp.MustCompile(`^\d{5}$`),
		"GB": regexp.MustCompile(`^[A-Z]{2}\d \d[A-Z]{2}$`),
	}

	for country, re := range patterns {
		addresses, err := g.Generate(country, 10)
		require.NoError(t, err)
		for _, addr := range addresses {
			assert.Regexp(t, re, addr.PostalCode, "country %s", country)
		}
	}
}

func TestSupportedCountries_Sorted(t *testing.T) {
	g := New()

	codes := g.SupportedCountries()
	require.NotEmpty(t, codes)
	assert.IsIncreasing(t, codes)
	assert.Contains(t, codes, "US")
}
