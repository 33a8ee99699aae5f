package station

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reloadCounts struct {
	mu       sync.Mutex
	results  map[string]int
	lines    int
	stations int
}

func (c *reloadCounts) StationTableLoaded(lines, stations int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines, c.stations = lines, stations
}

func (c *reloadCounts) StationReloadInc(result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.results == nil {
		c.results = map[string]int{}
	}
	c.results[result]++
}

func (c *reloadCounts) get(result string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results[result]
}

func quietLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, nil))
}

func TestReloader_ReloadSwapsTable(t *testing.T) {
	store := NewStore(nil)
	m := &reloadCounts{}
	var buf bytes.Buffer
	r := NewReloader(store, func(context.Context) ([]Station, error) { return sample(), nil }, 0, m, quietLogger(&buf))

	tbl, err := r.Reload(context.Background())
	require.NoError(t, err)
	assert.Same(t, tbl, store.Current())
	assert.Equal(t, 1, m.get("ok"))
	assert.Equal(t, 2, m.lines)
	assert.Equal(t, 5, m.stations)
	assert.Contains(t, buf.String(), "duplicate station skipped")
}

func TestReloader_FailureKeepsPreviousTable(t *testing.T) {
	prev := NewTable(sample())
	store := NewStore(prev)
	m := &reloadCounts{}
	var buf bytes.Buffer

	r := NewReloader(store, func(context.Context) ([]Station, error) { return nil, errors.New("db down") }, 0, m, quietLogger(&buf))
	_, err := r.Reload(context.Background())
	require.Error(t, err)
	assert.Same(t, prev, store.Current())

	r = NewReloader(store, func(context.Context) ([]Station, error) { return nil, nil }, 0, m, quietLogger(&buf))
	_, err = r.Reload(context.Background())
	require.Error(t, err)
	assert.Same(t, prev, store.Current())
	assert.Equal(t, 2, m.get("error"))
}

func TestReloader_StartRunsOnInterval(t *testing.T) {
	store := NewStore(nil)
	var calls atomic.Int32
	var buf bytes.Buffer
	r := NewReloader(store, func(context.Context) ([]Station, error) {
		calls.Add(1)
		return sample(), nil
	}, 10*time.Millisecond, nil, quietLogger(&buf))

	r.Start(context.Background())
	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	r.Stop()
	assert.NotNil(t, store.Current())

	n := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, calls.Load())
}

func TestReloader_ZeroIntervalDoesNotStart(t *testing.T) {
	r := NewReloader(NewStore(nil), func(context.Context) ([]Station, error) {
		t.Fatal("load called")
		return nil, nil
	}, 0, nil, nil)
	r.Start(context.Background())
	r.Stop()
}
