package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWorldFile(t *testing.T) {
	// 0.25 deg/px, upper-left pixel centered at (9.875N, 0.125E), 40x40.
	sec, err := parseWorldFile("0.25\n0\n0\n-0.25\n0.125\n9.875\n", 40, 40)
	require.NoError(t, err)
	assert.InDelta(t, 0, sec.MinLat().Degrees(), 1e-12)
	assert.InDelta(t, 10, sec.MaxLat().Degrees(), 1e-12)
	assert.InDelta(t, 0, sec.MinLon().Degrees(), 1e-12)
	assert.InDelta(t, 10, sec.MaxLon().Degrees(), 1e-12)
}

func TestParseWorldFileRejectsRotation(t *testing.T) {
	_, err := parseWorldFile("0.25\n0.001\n0\n-0.25\n0\n0\n", 10, 10)
	assert.Error(t, err)
}

func TestParseWorldFileRejectsShortFile(t *testing.T) {
	_, err := parseWorldFile("0.25\n0\n0\n", 10, 10)
	assert.Error(t, err)
}

func TestLookupWorldFileSectorPrefersFormatSidecar(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "scene.png")
	require.NoError(t, os.WriteFile(imgPath, []byte("png bytes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scene.pgw"), []byte("0.5\n0\n0\n-0.5\n0.25\n19.75\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scene.wld"), []byte("1\n0\n0\n-1\n0.5\n39.5\n"), 0o644))

	sec, ok, err := lookupWorldFileSector(Ref{Path: imgPath}, 20, 40)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 0, sec.MinLat().Degrees(), 1e-12)
	assert.InDelta(t, 20, sec.MaxLat().Degrees(), 1e-12)
	assert.InDelta(t, 10, sec.MaxLon().Degrees(), 1e-12)
}

func TestLookupWorldFileSectorAbsent(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "bare.png")
	require.NoError(t, os.WriteFile(imgPath, []byte("png bytes"), 0o644))

	_, ok, err := lookupWorldFileSector(Ref{Path: imgPath}, 10, 10)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLookupSkipsNonFileRefs(t *testing.T) {
	_, ok, err := lookupWorldFileSector(Ref{Path: "mem.png", Data: []byte{1}}, 10, 10)
	require.NoError(t, err)
	assert.False(t, ok)
}
