package language

import (
	"errors"
	"math"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ieee0824/ctcspeech/alphabet"
	"github.com/ieee0824/ctcspeech/internal/mathutil"
	"github.com/ieee0824/ctcspeech/lexicon"
)

// Scorer biases decoding with a language model. The decoder calls Expand once
// for every label it appends to a hypothesis, so word-level scores are applied
// as soon as a word boundary is spelled instead of once per finished
// hypothesis. Implementations must be deterministic and safe for concurrent use.
type Scorer interface {
	// InitialState returns the state of an empty hypothesis.
	InitialState() State
	// Expand returns the state after appending label and the log-domain score
	// to add for that step.
	Expand(s State, label int) (State, float64)
	// FinalScore returns the score added once when a hypothesis is finalized.
	FinalScore(s State) float64
}

// State is a scorer's per-hypothesis state. It is a value: Expand never
// modifies the State it is given, so hypotheses that share a parent can
// diverge freely.
type State struct {
	history   []string      // completed words, at most order-1, shared read-only
	word      string        // partial word spelled since the last boundary
	node      *lexicon.Node // trie position of word; nil once it leaves the trie
	lookahead float64       // in-word score already granted for word
}

// Word returns the partial word spelled since the last boundary.
func (s State) Word() string {
	return s.word
}

// History returns the completed words the language model conditions on.
func (s State) History() []string {
	out := make([]string, len(s.history))
	copy(out, s.history)
	return out
}

// NoopScorer scores nothing; decoding with it is purely acoustic.
type NoopScorer struct{}

func (NoopScorer) InitialState() State {
	return State{}
}

func (NoopScorer) Expand(s State, _ int) (State, float64) {
	return s, 0
}

func (NoopScorer) FinalScore(State) float64 {
	return 0
}

// ScorerConfig holds the language model weights.
type ScorerConfig struct {
	LMWeight             float64 // scale of log P(word | history)
	WordCountWeight      float64 // added for every completed word
	ValidWordCountWeight float64 // added for every completed word found in the lexicon
	// OOVLogProb replaces log P for words the model cannot score at all,
	// whatever their history.
	OOVLogProb float64
	// PrefixLookahead scores partial words by the best unigram reachable in
	// the lexicon trie, so dead-end spellings are penalized before their word
	// boundary. When false, in-word expansions score zero.
	PrefixLookahead bool
	// CacheSize bounds the word-score cache. Zero disables caching.
	CacheSize int
}

// DefaultScorerConfig returns the weights of the reference English model.
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		LMWeight:             1.75,
		WordCountWeight:      1.0,
		ValidWordCountWeight: 1.0,
		OOVLogProb:           -10 * math.Ln10,
		CacheSize:            4096,
	}
}

// LMScorer is the Scorer backed by an n-gram model and an optional lexicon trie.
type LMScorer struct {
	lm    *NGramModel
	trie  *lexicon.Trie
	alpha *alphabet.Alphabet
	cfg   ScorerConfig
	cache *lru.Cache[string, float64]
}

var _ Scorer = (*LMScorer)(nil)
var _ Scorer = NoopScorer{}

// NewLMScorer creates a scorer. trie may be nil, in which case the language
// model vocabulary decides which words are valid.
func NewLMScorer(lm *NGramModel, trie *lexicon.Trie, alpha *alphabet.Alphabet, cfg ScorerConfig) (*LMScorer, error) {
	if lm == nil {
		return nil, errors.New("language: nil n-gram model")
	}
	if alpha == nil {
		return nil, errors.New("language: nil alphabet")
	}
	if alpha.SpaceLabel() < 0 {
		return nil, errors.New("language: alphabet has no space symbol to delimit words")
	}
	s := &LMScorer{lm: lm, trie: trie, alpha: alpha, cfg: cfg}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, float64](cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		s.cache = cache
	}
	return s, nil
}

// InitialState returns the sentence-start state.
func (s *LMScorer) InitialState() State {
	st := State{history: []string{SentenceStart}}
	if s.trie != nil {
		st.node = s.trie.Root()
	}
	return st
}

// Expand appends label to the partial word, or completes the word on a space.
func (s *LMScorer) Expand(st State, label int) (State, float64) {
	if s.alpha.IsSpace(label) {
		if st.word == "" {
			return st, 0
		}
		score := s.wordScore(st) - st.lookahead
		return s.completeWord(st), score
	}

	sym, err := s.alpha.StringFromLabel(label)
	if err != nil {
		return st, 0
	}
	next := st
	next.word = st.word + sym
	if s.trie != nil {
		next.node = st.node.Child(label)
	}
	if !s.cfg.PrefixLookahead {
		return next, 0
	}
	next.lookahead = s.cfg.LMWeight * s.prefixLogProb(next.node)
	return next, next.lookahead - st.lookahead
}

// FinalScore completes a trailing partial word and scores the sentence end.
func (s *LMScorer) FinalScore(st State) float64 {
	score := 0.0
	if st.word != "" {
		score += s.wordScore(st) - st.lookahead
		st = s.completeWord(st)
	}
	return score + s.cfg.LMWeight*s.logProb(st.history, SentenceEnd)
}

// wordScore is lm_weight*log P(word|history) + word_count_weight
// + valid_word_count_weight*[word in lexicon].
func (s *LMScorer) wordScore(st State) float64 {
	score := s.cfg.LMWeight*s.logProb(st.history, st.word) + s.cfg.WordCountWeight
	if s.isValid(st) {
		score += s.cfg.ValidWordCountWeight
	}
	return score
}

func (s *LMScorer) isValid(st State) bool {
	if s.trie != nil {
		return st.node.IsWord()
	}
	return s.lm.HasWord(st.word)
}

func (s *LMScorer) completeWord(st State) State {
	keep := s.lm.Order - 1
	history := make([]string, 0, max(keep, 0))
	if keep > 0 {
		if n := len(st.history) + 1 - keep; n > 0 {
			history = append(history, st.history[n:]...)
		} else {
			history = append(history, st.history...)
		}
		history = append(history, st.word)
	}
	next := State{history: history}
	if s.trie != nil {
		next.node = s.trie.Root()
	}
	return next
}

func (s *LMScorer) logProb(history []string, word string) float64 {
	if s.cache == nil {
		return s.lookup(history, word)
	}
	key := strings.Join(history, " ") + "\x00" + word
	if lp, ok := s.cache.Get(key); ok {
		return lp
	}
	lp := s.lookup(history, word)
	s.cache.Add(key, lp)
	return lp
}

func (s *LMScorer) lookup(history []string, word string) float64 {
	lp := s.lm.LogProb(history, word)
	if mathutil.IsZero(lp) && s.cfg.OOVLogProb != 0 {
		return s.cfg.OOVLogProb
	}
	return lp
}

func (s *LMScorer) prefixLogProb(n *lexicon.Node) float64 {
	if s.trie == nil {
		return 0
	}
	lp := n.BestLogProb()
	if mathutil.IsZero(lp) {
		return s.cfg.OOVLogProb
	}
	return lp
}
