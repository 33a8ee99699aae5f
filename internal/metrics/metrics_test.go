package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Observers(t *testing.T) {
	c := NewCollector(4, 30*time.Minute)

	c.SearchObserve("ok", 20*time.Millisecond)
	c.SearchObserve("ok", 10*time.Millisecond)
	c.SearchObserve("unknown_line", time.Millisecond)
	c.VenueQueryObserve("error", time.Second)
	c.StationTableLoaded(3, 120)
	c.StationReloadInc("ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Searches.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Searches.WithLabelValues("unknown_line")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.VenueQueries.WithLabelValues("error")))
	assert.Equal(t, 120.0, testutil.ToFloat64(c.StationsLoaded))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.LinesLoaded))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.StationReloads.WithLabelValues("ok")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.VenueConcurrency))
	assert.Equal(t, 1800.0, testutil.ToFloat64(c.ReloadInterval))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector(2, 0)
	c.SearchObserve("no_results", time.Millisecond)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `stopover_searches_total{outcome="no_results"} 1`))
}
