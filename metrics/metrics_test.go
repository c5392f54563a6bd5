package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goblimey/go-cssr/cssr"
)

func TestRecorder(t *testing.T) {
	r := New()

	r.ObserveFrame("l6")
	r.ObserveFrame("l6")
	r.ObserveMessage(3, 67, false)
	r.ObserveMessage(3, 67, true)
	r.ObserveMessage(1, 110, false)
	r.ObserveDropped("checksum")
	r.ObserveStatistics(cssr.Statistics{Satellites: 2, Signals: 2, SatelliteBits: 30, NullBits: 16})

	assert.Equal(t, 2.0, testutil.ToFloat64(r.frames.WithLabelValues("l6")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.messages.WithLabelValues("3")))
	assert.Equal(t, 134.0, testutil.ToFloat64(r.bits.WithLabelValues("3")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.messages.WithLabelValues("1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.stale))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.dropped.WithLabelValues("checksum")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.satellites))
	assert.Equal(t, 30.0, testutil.ToFloat64(r.maskBits.WithLabelValues("satellite")))
	assert.Equal(t, 16.0, testutil.ToFloat64(r.maskBits.WithLabelValues("null")))
}

func TestHandler(t *testing.T) {
	r := New()
	r.ObserveDropped("vendor")

	server := httptest.NewServer(r.Handler())
	defer server.Close()

	response, err := http.Get(server.URL)
	require.NoError(t, err)
	defer response.Body.Close()
	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.True(t, strings.Contains(string(body), `cssr_dropped_total{reason="vendor"} 1`), string(body))
}

// TestSeparateRegistries checks that two Recorders don't clash.
func TestSeparateRegistries(t *testing.T) {
	a := New()
	b := New()
	a.ObserveFrame("rtcm")
	assert.Equal(t, 1.0, testutil.ToFloat64(a.frames.WithLabelValues("rtcm")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.frames.WithLabelValues("rtcm")))
	assert.NotSame(t, a.Registry(), b.Registry())
}
