// The metrics package counts decoding events for prometheus.  A Recorder
// can be given to a session as its Recorder and its Handler served on
// "/metrics".
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goblimey/go-cssr/cssr"
	"github.com/goblimey/go-cssr/session"
)

const namespace = "cssr"

// Recorder holds the metrics.  Each Recorder has its own registry.
type Recorder struct {
	registry *prometheus.Registry

	frames     *prometheus.CounterVec
	messages   *prometheus.CounterVec
	bits       *prometheus.CounterVec
	stale      prometheus.Counter
	dropped    *prometheus.CounterVec
	satellites prometheus.Gauge
	signals    prometheus.Gauge
	maskBits   *prometheus.GaugeVec
}

var _ session.Recorder = (*Recorder)(nil)

// New creates a Recorder.
func New() *Recorder {
	r := Recorder{
		registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frames read from the input.",
		}, []string{"mode"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "CSSR messages decoded.",
		}, []string{"subtype"}),
		bits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "message_bits_total",
			Help:      "Bits in the CSSR messages decoded.",
		}, []string{"subtype"}),
		stale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_messages_total",
			Help:      "Messages whose IODSSR didn't match the mask.",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_total",
			Help:      "Frames or messages dropped.",
		}, []string{"reason"}),
		satellites: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mask_satellites",
			Help:      "Satellites in the last mask.",
		}),
		signals: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mask_signals",
			Help:      "Signals in the last mask.",
		}),
		maskBits: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mask_period_bits",
			Help:      "Bits received between the last two masks.",
		}, []string{"kind"}),
	}

	r.registry.MustRegister(r.frames, r.messages, r.bits, r.stale, r.dropped,
		r.satellites, r.signals, r.maskBits)
	return &r
}

// Registry returns the Recorder's registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler returns an HTTP handler that serves the metrics.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) ObserveFrame(mode string) {
	r.frames.WithLabelValues(mode).Inc()
}

func (r *Recorder) ObserveMessage(subtype int, bits uint, stale bool) {
	label := strconv.Itoa(subtype)
	r.messages.WithLabelValues(label).Inc()
	r.bits.WithLabelValues(label).Add(float64(bits))
	if stale {
		r.stale.Inc()
	}
}

func (r *Recorder) ObserveDropped(reason string) {
	r.dropped.WithLabelValues(reason).Inc()
}

// ObserveStatistics records the statistics reported when a mask arrives.
// They cover the period since the mask before.
func (r *Recorder) ObserveStatistics(stats cssr.Statistics) {
	r.satellites.Set(float64(stats.Satellites))
	r.signals.Set(float64(stats.Signals))
	r.maskBits.WithLabelValues("satellite").Set(float64(stats.SatelliteBits))
	r.maskBits.WithLabelValues("signal").Set(float64(stats.SignalBits))
	r.maskBits.WithLabelValues("other").Set(float64(stats.OtherBits))
	r.maskBits.WithLabelValues("null").Set(float64(stats.NullBits))
}
