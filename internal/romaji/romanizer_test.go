package romaji

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKagome(t *testing.T) *Kagome {
	t.Helper()
	k, err := NewKagome()
	require.NoError(t, err)
	return k
}

func TestKagome_Romanize(t *testing.T) {
	k := newKagome(t)

	got, err := k.Romanize("横浜")
	require.NoError(t, err)
	assert.Equal(t, []string{"yokohama"}, got)

	got, err = k.Romanize("よこはま")
	require.NoError(t, err)
	assert.Equal(t, []string{"yokohama"}, got)
}

// Whitespace-separated input yields one token per field; callers only look
// at the first one.
func TestKagome_MultiTokenInput(t *testing.T) {
	k := newKagome(t)

	got, err := k.Romanize("横浜 渋谷")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "yokohama", got[0])
	assert.Equal(t, "shibuya", got[1])
}

func TestKagome_EmptyInput(t *testing.T) {
	k := newKagome(t)

	_, err := k.Romanize("   ")
	assert.Error(t, err)
}

func TestKagome_LatinPassesThrough(t *testing.T) {
	k := newKagome(t)

	got, err := k.Romanize("abc")
	require.NoError(t, err)
	assert.Equal(t, []string{"abc"}, got)
}
