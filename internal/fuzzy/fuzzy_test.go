package fuzzy

import (
	"errors"
	"strings"
	"testing"

	"stopover-food/internal/apperr"
	"stopover-food/internal/romaji"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRomanizer looks names up in a fixed table and splits on spaces the way
// the kagome romanizer does.
func fakeRomanizer(table map[string]string) romaji.Romanizer {
	return romaji.Func(func(text string) ([]string, error) {
		var out []string
		for _, f := range strings.Fields(text) {
			if r, ok := table[f]; ok {
				out = append(out, r)
			} else {
				out = append(out, f)
			}
		}
		return out, nil
	})
}

var lines = []Candidate{
	{"東急東横線", "toukyuutouyokosen"},
	{"東急目黒線", "toukyuumegurosen"},
	{"横浜市営地下鉄ブルーライン", "yokohamashieichikatetsuburuurain"},
	{"JR山手線", "jeiaruyamanotesen"},
	{"京急本線", "keikyuuhonsen"},
	{"東急田園都市線", "toukyuudenentoshisen"},
}

func TestSuggest_SubstringShortcut(t *testing.T) {
	m := NewMatcher(fakeRomanizer(nil))

	got, err := m.Suggest("ブルーライン", lines, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"横浜市営地下鉄ブルーライン"}, got)

	got, err = m.Suggest("東急", lines, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"東急東横線", "東急目黒線", "東急田園都市線"}, got)
}

func TestSuggest_SubstringShortcutSkipsRomanizer(t *testing.T) {
	called := false
	m := NewMatcher(romaji.Func(func(string) ([]string, error) {
		called = true
		return nil, errors.New("should not be called")
	}))

	got, err := m.Suggest("山手", lines, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"JR山手線"}, got)
	assert.False(t, called)
}

func TestSuggest_EditDistance(t *testing.T) {
	m := NewMatcher(fakeRomanizer(map[string]string{"東横線": "touyokosen", "とうよこせん": "touyokosen"}))

	got, err := m.Suggest("東横線", lines, 3)
	require.NoError(t, err)
	// 東横線 is a substring of 東急東横線, so the shortcut applies.
	assert.Equal(t, []string{"東急東横線"}, got)

	got, err = m.Suggest("とうよこせん", lines, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "東急東横線", got[0])
}

func TestSuggest_StableOnTies(t *testing.T) {
	cands := []Candidate{
		{"A線", "abc"},
		{"B線", "abd"},
		{"C線", "abe"},
		{"D線", "xyz"},
	}
	m := NewMatcher(fakeRomanizer(map[string]string{"q": "abz"}))

	for i := 0; i < 5; i++ {
		got, err := m.Suggest("q", cands, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{"A線", "B線", "C線"}, got)
	}
}

// Only the first romanized token takes part in the ranking.
func TestSuggest_FirstTokenOnly(t *testing.T) {
	cands := []Candidate{
		{"渋谷", "shibuya"},
		{"横浜", "yokohama"},
	}
	m := NewMatcher(fakeRomanizer(map[string]string{"よこはま": "yokohama", "しぶや": "shibuya"}))

	got, err := m.Suggest("よこはま しぶや", cands, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"横浜"}, got)

	got, err = m.Suggest("しぶや よこはま", cands, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"渋谷"}, got)
}

func TestSuggest_LimitLargerThanCandidates(t *testing.T) {
	m := NewMatcher(fakeRomanizer(nil))
	got, err := m.Suggest("zzz", lines[:2], 5)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSuggest_DefaultLimit(t *testing.T) {
	m := NewMatcher(fakeRomanizer(nil))
	got, err := m.Suggest("zzz", lines, 0)
	require.NoError(t, err)
	assert.Len(t, got, DefaultLimit)
}

func TestSuggest_EmptyCandidates(t *testing.T) {
	m := NewMatcher(fakeRomanizer(nil))
	_, err := m.Suggest("横浜", nil, 3)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestSuggest_RomanizerFailure(t *testing.T) {
	m := NewMatcher(romaji.Func(func(string) ([]string, error) {
		return nil, errors.New("tokenizer down")
	}))
	_, err := m.Suggest("zzz", lines, 3)
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)

	m = NewMatcher(romaji.Func(func(string) ([]string, error) { return nil, nil }))
	_, err = m.Suggest("zzz", lines, 3)
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
}
