package ctcspeech

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ieee0824/ctcspeech/acoustic"
	"github.com/ieee0824/ctcspeech/feature"
)

// Option configures a Model.
type Option func(*Model)

// WithNCep sets the number of cepstral coefficients per frame.
func WithNCep(n int) Option {
	return func(m *Model) {
		m.ncep = n
	}
}

// WithNContext sets how many frames of context are stacked on each side.
func WithNContext(n int) Option {
	return func(m *Model) {
		m.ncontext = n
	}
}

// WithBeamWidth sets the decoder beam width.
func WithBeamWidth(w int) Option {
	return func(m *Model) {
		m.decCfg.BeamWidth = w
	}
}

// WithLMWeight sets the language model weight.
func WithLMWeight(w float64) Option {
	return func(m *Model) {
		m.scorerCfg.LMWeight = w
	}
}

// WithWordCountWeight sets the score added per completed word.
func WithWordCountWeight(w float64) Option {
	return func(m *Model) {
		m.scorerCfg.WordCountWeight = w
	}
}

// WithValidWordCountWeight sets the score added per completed in-vocabulary word.
func WithValidWordCountWeight(w float64) Option {
	return func(m *Model) {
		m.scorerCfg.ValidWordCountWeight = w
	}
}

// WithPrefixLookahead enables scoring partial words by their best completion.
func WithPrefixLookahead(enabled bool) Option {
	return func(m *Model) {
		m.scorerCfg.PrefixLookahead = enabled
	}
}

// WithFeatureConfig sets custom MFCC parameters. The sample rate and
// cepstrum count are still taken from each call and WithNCep.
func WithFeatureConfig(cfg feature.Config) Option {
	return func(m *Model) {
		m.featCfg = cfg
	}
}

// WithParallelism bounds how many beams are expanded concurrently.
func WithParallelism(n int) Option {
	return func(m *Model) {
		m.decCfg.Parallelism = n
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithRegisterer registers the model's Prometheus collectors on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(m *Model) {
		m.registerer = reg
	}
}

// WithAcousticModel uses am instead of opening modelPath. The Model takes
// ownership and closes it.
func WithAcousticModel(am acoustic.Model) Option {
	return func(m *Model) {
		m.am = am
	}
}

// WithONNXNames sets the graph node names used for .onnx models.
func WithONNXNames(cfg acoustic.ONNXConfig) Option {
	return func(m *Model) {
		m.onnxCfg = cfg
	}
}
