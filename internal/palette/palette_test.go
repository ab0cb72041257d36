package palette

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_KnownAndUnknownKeys(t *testing.T) {
	p := Default()

	assert.Equal(t, "#1f77b4", p.Category("Camping & Hiking"))
	assert.Equal(t, "#8e44ad", p.Category("As Seen on  TV!"))
	assert.Equal(t, "#1abc9c", p.Category("Books"))
	assert.Equal(t, "#1abc9c", p.Category("Books "), "lookups ignore surrounding whitespace")
	assert.Equal(t, DefaultFallback, p.Category("As Seen on TV!"), "inner spacing is significant")
	assert.Equal(t, "#DC3912", p.Market("Europe"))
	assert.Equal(t, DefaultFallback, p.Category("Quantum Widgets"))
	assert.Equal(t, DefaultFallback, p.Market("Antarctica"))
	assert.Len(t, p.Categories, 50)
}

func TestDefault_ReturnsIndependentCopies(t *testing.T) {
	a := Default()
	a.Categories["Fishing"] = "#000000"

	assert.Equal(t, "#3498db", Default().Category("Fishing"))
}

func TestZeroPalette_UsesPackageFallback(t *testing.T) {
	var p Palette
	assert.Equal(t, DefaultFallback, p.Category("Fishing"))
}

func TestMerge(t *testing.T) {
	base := Default()
	merged := base.Merge(Palette{
		Categories: map[string]string{"Fishing": "#111111", "Kites": "#222222"},
		Fallback:   "#333333",
	})

	assert.Equal(t, "#111111", merged.Category("Fishing"))
	assert.Equal(t, "#222222", merged.Category("Kites"))
	assert.Equal(t, "#333333", merged.Category("unknown"))
	assert.Equal(t, "#3498db", base.Category("Fishing"), "merge must not mutate the receiver")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "palette.yaml")
	content := "markets:\n  Europe: \"#abcdef\"\ncategories:\n  Soccer: \"#010203\"\nfallback: \"#cccccc\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "#abcdef", p.Market("Europe"))
	assert.Equal(t, "#010203", p.Category("Soccer"))
	assert.Equal(t, "#109618", p.Market("USCA"))
	assert.Equal(t, "#cccccc", p.Category("nope"))
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("markets: [unclosed"), 0o644))
	_, err = LoadFile(bad)
	assert.Error(t, err)
}
