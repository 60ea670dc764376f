// Package ctcspeech transcribes 16-bit PCM speech with a CTC acoustic model,
// beam search and an n-gram language model.
package ctcspeech

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ieee0824/ctcspeech/acoustic"
	"github.com/ieee0824/ctcspeech/alphabet"
	"github.com/ieee0824/ctcspeech/decoder"
	"github.com/ieee0824/ctcspeech/feature"
	"github.com/ieee0824/ctcspeech/language"
	"github.com/ieee0824/ctcspeech/lexicon"
)

// Defaults of the reference English model.
const (
	DefaultNCep     = 26
	DefaultNContext = 9
)

// Transcript is one decoded hypothesis.
type Transcript struct {
	Text   string
	Labels []int
	Score  float64
}

// Model chains feature framing, the acoustic model and beam search.
// Calls are serialized; use one Model per concurrent caller for throughput.
type Model struct {
	mu sync.Mutex

	alpha  *alphabet.Alphabet
	scorer language.Scorer
	am     acoustic.Model // nil when not ready
	amErr  error

	ncep      int
	ncontext  int
	featCfg   feature.Config
	decCfg    decoder.Config
	scorerCfg language.ScorerConfig
	onnxCfg   acoustic.ONNXConfig

	logger     *slog.Logger
	registerer prometheus.Registerer
	metrics    *metrics
}

// New loads the alphabet and language model and opens the acoustic model.
//
// Alphabet, language model and trie failures are returned as ErrConfig.
// An empty lmPath decodes without a language model; an empty triePath
// takes valid words from the language model vocabulary.
//
// An acoustic model that fails to open does not fail New: the Model is
// returned not ready, Err reports the cause and inference returns
// ErrModelNotLoaded. An empty modelPath gives a Model that only computes
// features.
func New(modelPath, alphabetPath, lmPath, triePath string, opts ...Option) (*Model, error) {
	m := &Model{
		ncep:      DefaultNCep,
		ncontext:  DefaultNContext,
		featCfg:   feature.DefaultConfig(),
		decCfg:    decoder.DefaultConfig(),
		scorerCfg: language.DefaultScorerConfig(),
		onnxCfg:   acoustic.DefaultONNXConfig(),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := m.init(alphabetPath, lmPath, triePath); err != nil {
		if m.am != nil {
			m.am.Close()
		}
		return nil, err
	}

	switch {
	case m.am != nil:
	case modelPath == "":
		m.logger.Info("no acoustic model given, features only")
	default:
		am, err := acoustic.Open(modelPath, m.onnxCfg)
		if err != nil {
			m.amErr = fmt.Errorf("%w: %s: %w", ErrModelLoad, modelPath, err)
			m.logger.Warn("acoustic model not loaded", "path", modelPath, "error", err)
			break
		}
		m.am = am
		m.logger.Info("acoustic model loaded", "path", modelPath)
	}
	return m, nil
}

func (m *Model) init(alphabetPath, lmPath, triePath string) error {
	if m.ncep < 1 || m.ncontext < 0 {
		return fmt.Errorf("%w: ncep %d, ncontext %d", ErrConfig, m.ncep, m.ncontext)
	}
	featCfg := m.featCfg
	featCfg.NumCepstra = m.ncep
	if err := featCfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if m.decCfg.BeamWidth < 1 {
		return fmt.Errorf("%w: beam width %d", ErrConfig, m.decCfg.BeamWidth)
	}

	alpha, err := alphabet.LoadFile(alphabetPath)
	if err != nil {
		return fmt.Errorf("%w: alphabet: %w", ErrConfig, err)
	}
	m.alpha = alpha

	m.scorer = language.NoopScorer{}
	if lmPath != "" {
		lm, err := language.LoadARPAFile(lmPath)
		if err != nil {
			return fmt.Errorf("%w: language model: %w", ErrConfig, err)
		}
		var trie *lexicon.Trie
		if triePath != "" {
			trie, err = lexicon.LoadFile(triePath, alpha, lm.UnigramLogProb)
			if err != nil {
				return fmt.Errorf("%w: trie: %w", ErrConfig, err)
			}
			if trie.Skipped() > 0 {
				m.logger.Warn("trie words outside the alphabet skipped", "count", trie.Skipped())
			}
		}
		scorer, err := language.NewLMScorer(lm, trie, alpha, m.scorerCfg)
		if err != nil {
			return fmt.Errorf("%w: scorer: %w", ErrConfig, err)
		}
		m.scorer = scorer
		m.logger.Info("language model loaded", "path", lmPath, "order", lm.Order, "unigrams", lm.NumGrams(1))
	}

	m.metrics, err = newMetrics(m.registerer)
	if err != nil {
		return fmt.Errorf("%w: metrics: %w", ErrConfig, err)
	}
	return nil
}

// Ready reports whether the acoustic model is loaded.
func (m *Model) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.am != nil
}

// Err returns why the acoustic model failed to load, or nil.
func (m *Model) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.amErr
}

// Alphabet returns the model's alphabet.
func (m *Model) Alphabet() *alphabet.Alphabet {
	return m.alpha
}

// FrameWidth returns the width of one input frame.
func (m *Model) FrameWidth() int {
	return feature.FrameWidth(m.ncep, m.ncontext)
}

// InputVector computes the stacked feature frames for samples. It works on
// a Model without an acoustic model.
func (m *Model) InputVector(samples []int16, sampleRate int) (*feature.Frames, error) {
	frames, err := feature.AudioToInputVector(samples, sampleRate, m.ncep, m.ncontext, m.featCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInput, err)
	}
	return frames, nil
}

// Infer decodes caller-computed frames: nFrames rows of frameLen values.
// frameLen 0 means FrameWidth; wider rows have their trailing values ignored.
func (m *Model) Infer(frames []float32, nFrames, frameLen int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reqID := uuid.NewString()
	results, err := m.infer(reqID, frames, nFrames, frameLen, 1)
	m.metrics.done(err)
	if err != nil {
		return "", err
	}
	return results[0].Text, nil
}

// SpeechToText transcribes 16-bit mono PCM recorded at sampleRate.
func (m *Model) SpeechToText(samples []int16, sampleRate int) (string, error) {
	results, err := m.SpeechToTextTopK(samples, sampleRate, 1)
	if err != nil {
		return "", err
	}
	return results[0].Text, nil
}

// SpeechToTextTopK returns up to k transcripts, best first.
func (m *Model) SpeechToTextTopK(samples []int16, sampleRate, k int) ([]Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reqID := uuid.NewString()
	results, err := m.speechToText(reqID, samples, sampleRate, k)
	m.metrics.done(err)
	if err != nil {
		m.logger.Debug("transcription failed", "request_id", reqID, "error", err)
		return nil, err
	}
	return results, nil
}

func (m *Model) speechToText(reqID string, samples []int16, sampleRate, k int) ([]Transcript, error) {
	if m.am == nil {
		return nil, ErrModelNotLoaded
	}
	start := time.Now()
	frames, err := m.InputVector(samples, sampleRate)
	if err != nil {
		return nil, err
	}
	elapsed := m.metrics.observe(stageFraming, start)
	m.logger.Debug("features computed", "request_id", reqID,
		"samples", len(samples), "frames", frames.NFrames, "duration", elapsed)
	return m.infer(reqID, frames.Data, frames.NFrames, frames.Width, k)
}

func (m *Model) infer(reqID string, frames []float32, nFrames, frameLen, k int) ([]Transcript, error) {
	if m.am == nil {
		return nil, ErrModelNotLoaded
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: top %d transcripts", ErrInput, k)
	}
	width := m.FrameWidth()
	if frameLen == 0 {
		frameLen = width
	}
	switch {
	case frameLen < width:
		return nil, fmt.Errorf("%w: got %d values per frame, need %d", ErrFeatureTooShort, frameLen, width)
	case nFrames < 0:
		return nil, fmt.Errorf("%w: %d frames", ErrInput, nFrames)
	case nFrames*frameLen > len(frames):
		return nil, fmt.Errorf("%w: %d frames of %d values, buffer holds %d", ErrInput, nFrames, frameLen, len(frames))
	}
	input := frames[:nFrames*frameLen]
	if frameLen > width {
		input = make([]float32, nFrames*width)
		for t := 0; t < nFrames; t++ {
			copy(input[t*width:(t+1)*width], frames[t*frameLen:t*frameLen+width])
		}
	}

	start := time.Now()
	out, err := m.am.Run(input, nFrames, width)
	if err != nil {
		return nil, fmt.Errorf("%w: acoustic model: %w", ErrInference, err)
	}
	elapsed := m.metrics.observe(stageInference, start)
	m.logger.Debug("acoustic model run", "request_id", reqID,
		"frames", nFrames, "steps", out.Steps, "classes", out.Classes, "duration", elapsed)

	start = time.Now()
	cfg := m.decCfg
	cfg.TopPaths = k
	results, err := decoder.Decode(out, m.scorer, m.alpha.Blank(), cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrInference, err)
	}
	elapsed = m.metrics.observe(stageDecode, start)

	transcripts := make([]Transcript, len(results))
	for i, r := range results {
		text, err := m.alpha.Decode(r.Labels)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInference, err)
		}
		transcripts[i] = Transcript{Text: text, Labels: r.Labels, Score: r.Score}
	}
	m.logger.Debug("decoded", "request_id", reqID,
		"hypotheses", len(transcripts), "score", transcripts[0].Score, "duration", elapsed)
	return transcripts, nil
}

// Close releases the acoustic model. It is safe to call more than once;
// inference afterwards returns ErrModelNotLoaded.
func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.am == nil {
		return nil
	}
	err := m.am.Close()
	m.am = nil
	if err != nil {
		return fmt.Errorf("close acoustic model: %w", err)
	}
	return nil
}
