package notation

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/reoring/schemata/object"
)

// SerdeMetrics counts serializer and deserializer calls per notation.
type SerdeMetrics struct {
	Operations *prometheus.CounterVec
	Failures   *prometheus.CounterVec
	Bytes      *prometheus.HistogramVec
	Duration   *prometheus.HistogramVec
}

// NewSerdeMetrics creates the collectors and registers them with reg when
// reg is not nil.
func NewSerdeMetrics(reg prometheus.Registerer) (*SerdeMetrics, error) {
	m := &SerdeMetrics{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "schemata",
				Subsystem: "serde",
				Name:      "operations_total",
				Help:      "Total number of serialize/deserialize calls",
			},
			[]string{"notation", "direction"},
		),
		Failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "schemata",
				Subsystem: "serde",
				Name:      "failures_total",
				Help:      "Total number of failed serialize/deserialize calls",
			},
			[]string{"notation", "direction"},
		),
		Bytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "schemata",
				Subsystem: "serde",
				Name:      "payload_bytes",
				Help:      "Size of serialized payloads in bytes",
				Buckets:   prometheus.ExponentialBuckets(16, 4, 8),
			},
			[]string{"notation", "direction"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "schemata",
				Subsystem: "serde",
				Name:      "duration_seconds",
				Help:      "Serialize/deserialize duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"notation", "direction"},
		),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.Operations, m.Failures, m.Bytes, m.Duration} {
			if err := reg.Register(c); err != nil {
				return nil, fmt.Errorf("notation.NewSerdeMetrics: register collector failed: %w", err)
			}
		}
	}
	return m, nil
}

const (
	directionSerialize   = "serialize"
	directionDeserialize = "deserialize"
)

// Wrap returns a copy of s whose calls are counted.
func (m *SerdeMetrics) Wrap(s *Serde) *Serde {
	out := *s
	inner := *s
	out.Serializer = SerializerFunc(func(obj object.DataObject) ([]byte, error) {
		start := time.Now()
		b, err := inner.Serialize(obj)
		m.observe(s.Notation, directionSerialize, start, len(b), err)
		return b, err
	})
	out.Deserializer = DeserializerFunc(func(data []byte) (object.DataObject, error) {
		start := time.Now()
		obj, err := inner.Deserialize(data)
		m.observe(s.Notation, directionDeserialize, start, len(data), err)
		return obj, err
	})
	return &out
}

func (m *SerdeMetrics) observe(notation, direction string, start time.Time, size int, err error) {
	m.Operations.WithLabelValues(notation, direction).Inc()
	m.Duration.WithLabelValues(notation, direction).Observe(time.Since(start).Seconds())
	if err != nil {
		m.Failures.WithLabelValues(notation, direction).Inc()
		return
	}
	m.Bytes.WithLabelValues(notation, direction).Observe(float64(size))
}
