package station

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() []Station {
	return []Station{
		{LineCode: 2, LineName: "東急目黒線", StationName: "目黒", SequenceIndex: 10},
		{LineCode: 1, LineName: "東急東横線", LineNameRomanized: "toukyuutouyokosen", StationName: "渋谷", SequenceIndex: 0},
		{LineCode: 1, LineName: "東急東横線", StationName: "代官山", SequenceIndex: 1},
		{LineCode: 1, LineName: "東急東横線", StationName: "中目黒", SequenceIndex: 2},
		{LineCode: 2, LineName: "東急目黒線", StationName: "不動前", SequenceIndex: 11},
		{LineCode: 1, LineName: "東急東横線", StationName: "代官山", SequenceIndex: 3},
	}
}

func TestNewTable_GroupsInSourceOrder(t *testing.T) {
	tbl := NewTable(sample())
	ctx := context.Background()

	lines, err := tbl.Lines(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "東急東横線", lines[0].Name)
	assert.Equal(t, "toukyuutouyokosen", lines[0].NameRomanized)
	assert.Equal(t, "東急目黒線", lines[1].Name)

	st, err := tbl.Stations(ctx, "東急東横線")
	require.NoError(t, err)
	names := make([]string, 0, len(st))
	for _, s := range st {
		names = append(names, s.StationName)
	}
	assert.Equal(t, []string{"渋谷", "代官山", "中目黒"}, names)

	assert.Equal(t, 5, tbl.StationCount())
	assert.Equal(t, 2, tbl.LineCount())
	require.Len(t, tbl.Skipped(), 1)
	assert.Equal(t, 3, tbl.Skipped()[0].SequenceIndex)
}

func TestTable_Lookups(t *testing.T) {
	tbl := NewTable(sample())

	st, err := tbl.Stations(context.Background(), "ブルーライン")
	assert.NoError(t, err)
	assert.Nil(t, st)
}

func TestTable_ReturnsCopies(t *testing.T) {
	tbl := NewTable(sample())
	ctx := context.Background()

	st, _ := tbl.Stations(ctx, "東急東横線")
	st[0].StationName = "changed"
	again, _ := tbl.Stations(ctx, "東急東横線")
	assert.Equal(t, "渋谷", again[0].StationName)
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)

	_, err := s.Lines(ctx)
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = s.Stations(ctx, "東急東横線")
	assert.ErrorIs(t, err, ErrNotLoaded)

	s.Swap(NewTable(sample()))
	lines, err := s.Lines(ctx)
	require.NoError(t, err)
	assert.Len(t, lines, 2)

	s.Swap(NewTable(sample()[:1]))
	lines, err = s.Lines(ctx)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
	assert.Equal(t, 1, s.Current().StationCount())
}
