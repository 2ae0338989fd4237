package useragent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_AnyBrowserAnyOS(t *testing.T) {
	g := New()

	agents, err := g.Generate("", "", 10)
	require.NoError(t, err)
	require.Len(t, agents, 10)
	for _, ua := range agents {
		assert.True(t, strings.HasPrefix(ua, "Mozilla/5.0 ("), "unexpected prefix: %s", ua)
	}
}

func TestGenerate_BrowserFilter(t *testing.T) {
	g := New()

	agents, err := g.Generate("firefox", "", 5)
	require.NoError(t, err)
	for _, ua := range agents {
		assert.Contains(t, ua, "Firefox/")
		assert.Contains(t, ua, "Gecko/20100101")
	}

	agents, err = g.Generate("edge", "", 5)
	require.NoError(t, err)
	for _, ua := range agents {
		assert.Contains(t, ua, "Edg/")
	}
}

func TestGenerate_OSFilter(t *testing.T) {
	g := New()

	agents, err := g.Generate("chrome", "linux", 5)
	require.NoError(t, err)
	for _, ua := range agents {
		assert.Contains(t, ua, "Linux")
		assert.Contains(t, ua, "Chrome/")
	}
}

func TestGenerate_CaseInsensitive(t *testing.T) {
	g := New()

	agents, err := g.Generate("Chrome", "Windows", 1)
	require.NoError(t, err)
	assert.Contains(t, agents[0], "Windows NT 10.0")
}

func TestGenerate_UnknownBrowser(t *testing.T) {
	g := New()

	_, err := g.Generate("netscape", "", 1)
	assert.ErrorContains(t, err, "unsupported browser")
}

func TestGenerate_UnknownOS(t *testing.T) {
	g := New()

	_, err := g.Generate("", "templeos", 1)
	assert.ErrorContains(t, err, "unsupported os")
}

func TestGenerate_ImpossibleCombination(t *testing.T) {
	g := New()

	// Safari never shipped for Windows in these version ranges
	_, err := g.Generate("safari", "windows", 1)
	assert.Error(t, err)
}

func TestGenerate_CountClamping(t *testing.T) {
	g := New()

	agents, err := g.Generate("", "", 0)
	require.NoError(t, err)
	assert.Len(t, agents, 1)

	agents, err = g.Generate("", "", MaxCount*2)
	require.NoError(t, err)
	assert.Len(t, agents, MaxCount)
}

func TestSupportedBrowsers_Sorted(t *testing.T) {
	g := New()

	names := g.SupportedBrowsers()
	assert.Equal(t, []string{"chrome", "edge", "firefox", "safari"}, names)
}
