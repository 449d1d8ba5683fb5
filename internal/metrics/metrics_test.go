package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.PlayerConnected()
	m.PlayerConnected()
	m.LoginRejected("banned")
	m.SetPlayersOnline(7)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.playersConnected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loginsRejected.WithLabelValues("banned")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.loginsRejected.WithLabelValues("auth_error")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.playersOnline))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.PlayerConnected()
	m.ObserveTick(3 * time.Millisecond)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "worldgate_players_connected_total 1")
	assert.Contains(t, string(body), "worldgate_tick_duration_seconds_count 1")
}
