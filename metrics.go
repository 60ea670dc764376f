package ctcspeech

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline stages reported in ctcspeech_stage_duration_seconds.
const (
	stageFraming   = "framing"
	stageInference = "inference"
	stageDecode    = "decode"
)

type metrics struct {
	stageDuration  *prometheus.HistogramVec
	transcriptions *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ctcspeech_stage_duration_seconds",
			Help:    "Time spent in each transcription stage.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"stage"}),
		transcriptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ctcspeech_transcriptions_total",
			Help: "Transcription calls by result.",
		}, []string{"result"}),
	}
	if reg == nil {
		return m, nil
	}

	// Several models may share one registry; reuse what is already there.
	if err := reg.Register(m.stageDuration); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.HistogramVec)
		if !ok {
			return nil, err
		}
		m.stageDuration = existing
	}
	if err := reg.Register(m.transcriptions); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		m.transcriptions = existing
	}
	return m, nil
}

func (m *metrics) observe(stage string, start time.Time) time.Duration {
	d := time.Since(start)
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	return d
}

func (m *metrics) done(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.transcriptions.WithLabelValues(result).Inc()
}
