// The influx package writes decoded CSSR corrections to InfluxDB, one
// point per satellite (or per signal, or per grid point) per message.
// Values that were sent as "no data" are left out of the point.
package influx

import (
	"log/slog"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/goblimey/go-cssr/cssr"
)

// PointWriter is the part of the InfluxDB write API that the Writer uses.
type PointWriter interface {
	WritePoint(point *write.Point)
	Flush()
}

// Writer sends points to InfluxDB.  The write API is non-blocking: points
// are batched and write errors are logged as they come back.
type Writer struct {
	client influxdb2.Client
	api    PointWriter
	logger *slog.Logger
}

// New connects to the server.  The connection is not checked until the
// first batch is written.
func New(url, token, org, bucket string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	client := influxdb2.NewClient(url, token)
	writeAPI := client.WriteAPI(org, bucket)

	w := Writer{client: client, api: writeAPI, logger: logger}
	go func() {
		for err := range writeAPI.Errors() {
			logger.Warn("influx write failed", "error", err)
		}
	}()
	return &w
}

// NewWithAPI creates a Writer that sends its points to api.
func NewWithAPI(api PointWriter, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{api: api, logger: logger}
}

// Write writes the corrections in the message, stamped with t.
func (w *Writer) Write(m *cssr.Message, t time.Time) {
	for _, p := range Points(m, t) {
		w.api.WritePoint(p)
	}
}

// Close flushes the outstanding points and closes the connection.
func (w *Writer) Close() {
	w.api.Flush()
	if w.client != nil {
		w.client.Close()
	}
}

// Points converts a message into points.  Mask and service information
// messages give none.
func Points(m *cssr.Message, t time.Time) []*write.Point {
	b := builder{time: t, stale: strconv.FormatBool(m.Stale), iodssr: int64(m.Header.IODSSR)}

	switch r := m.Record.(type) {
	case *cssr.OrbitRecord:
		for _, c := range r.Corrections {
			b.orbit("orbit", c, nil)
		}
	case *cssr.ClockRecord:
		for _, c := range r.Corrections {
			f := fields{}
			f.value("c0", c.C0)
			b.add("clock", tags{"satellite": c.Satellite}, f)
		}
	case *cssr.CodeBiasRecord:
		for _, c := range r.Biases {
			f := fields{}
			f.value("bias", c.Bias)
			b.add("code_bias", tags{"satellite": c.Satellite, "signal": c.Signal}, f)
		}
	case *cssr.PhaseBiasRecord:
		for _, c := range r.Biases {
			f := fields{"discontinuity": int64(c.Discontinuity)}
			f.value("bias", c.Bias)
			b.add("phase_bias", tags{"satellite": c.Satellite, "signal": c.Signal}, f)
		}
	case *cssr.NetworkBiasRecord:
		for _, c := range r.Biases {
			f := fields{}
			if r.CodeBiasPresent {
				f.value("code_bias", c.CodeBias)
			}
			if r.PhaseBiasPresent {
				f.value("phase_bias", c.PhaseBias)
				f["discontinuity"] = int64(c.Discontinuity)
			}
			t := tags{"satellite": c.Satellite, "signal": c.Signal}
			if r.NetworkBiasPresent {
				t["network"] = strconv.Itoa(int(r.NetworkID))
			}
			b.add("network_bias", t, f)
		}
	case *cssr.URARecord:
		for _, c := range r.Accuracies {
			f := fields{"class": int64(c.Class), "value": int64(c.ValueCode)}
			f.value("accuracy_mm", c.Accuracy)
			b.add("ura", tags{"satellite": c.Satellite}, f)
		}
	case *cssr.STECRecord:
		network := strconv.Itoa(int(r.NetworkID))
		for _, c := range r.Corrections {
			b.stec(network, c)
		}
	case *cssr.GriddedRecord:
		network := strconv.Itoa(int(r.NetworkID))
		for i, g := range r.GridPoints {
			point := strconv.Itoa(i)
			f := fields{}
			f.value("hydrostatic", g.Hydrostatic)
			f.value("wet", g.Wet)
			b.add("troposphere", tags{"network": network, "grid_point": point}, f)
			for _, s := range g.Residuals {
				rf := fields{}
				rf.value("residual", s.Residual)
				b.add("stec_residual",
					tags{"network": network, "grid_point": point, "satellite": s.Satellite}, rf)
			}
		}
	case *cssr.NetworkCorrectionRecord:
		network := strconv.Itoa(int(r.NetworkID))
		for _, c := range r.Corrections {
			t := tags{"satellite": c.Satellite, "network": network}
			if c.Orbit != nil {
				b.orbit("network_orbit", *c.Orbit, t)
			}
			if c.Clock != nil {
				f := fields{}
				f.value("c0", *c.Clock)
				b.add("network_clock", t, f)
			}
		}
	case *cssr.CombinedRecord:
		network := strconv.Itoa(int(r.NetworkID))
		if r.Tropo != nil {
			f := fields{"quality": int64(r.Tropo.Quality)}
			f.value("t00", r.Tropo.T00)
			f.value("t01", r.Tropo.T01)
			f.value("t10", r.Tropo.T10)
			f.value("t11", r.Tropo.T11)
			b.add("troposphere_polynomial", tags{"network": network}, f)
		}
		if r.TropoResidual != nil {
			for i, v := range r.TropoResidual.Residuals {
				f := fields{}
				if v.Valid {
					f["residual"] = v.V + r.TropoResidual.Offset
				}
				b.add("troposphere_residual", tags{"network": network, "grid_point": strconv.Itoa(i)}, f)
			}
		}
		for _, s := range r.STEC {
			b.stec(network, s.STECPolynomial)
			for i, v := range s.Residuals {
				f := fields{}
				f.value("residual", v)
				b.add("stec_residual",
					tags{"network": network, "grid_point": strconv.Itoa(i), "satellite": s.Satellite}, f)
			}
		}
	}

	return b.points
}

type tags map[string]string

type fields map[string]interface{}

// value adds v to the fields if it's valid.
func (f fields) value(name string, v cssr.Value) {
	if v.Valid {
		f[name] = v.V
	}
}

// builder collects the points from one message.
type builder struct {
	time   time.Time
	stale  string
	iodssr int64
	points []*write.Point
}

// add adds a point unless it has no values.
func (b *builder) add(measurement string, t tags, f fields) {
	if len(f) == 0 {
		return
	}
	t["stale"] = b.stale
	f["iodssr"] = b.iodssr
	b.points = append(b.points, influxdb2.NewPoint(measurement, t, f, b.time))
}

func (b *builder) orbit(measurement string, c cssr.OrbitCorrection, t tags) {
	if t == nil {
		t = tags{"satellite": c.Satellite}
	}
	f := fields{}
	f.value("radial", c.Radial)
	f.value("along", c.Along)
	f.value("cross", c.Cross)
	if len(f) > 0 {
		f["iode"] = int64(c.IODE)
	}
	b.add(measurement, t, f)
}

func (b *builder) stec(network string, c cssr.STECPolynomial) {
	f := fields{"quality": int64(c.Quality)}
	f.value("c00", c.C00)
	f.value("c01", c.C01)
	f.value("c10", c.C10)
	f.value("c11", c.C11)
	f.value("c02", c.C02)
	f.value("c20", c.C20)
	b.add("stec", tags{"network": network, "satellite": c.Satellite}, f)
}
