// Package language provides the word-level language model used to bias
// decoding: an ARPA back-off n-gram model, a Witten-Bell model builder and the
// Scorer that applies the model online while the decoder spells words out.
package language

import (
	"sort"
	"strings"

	"github.com/ieee0824/ctcspeech/internal/mathutil"
)

// Sentence boundary tokens.
const (
	SentenceStart = "<s>"
	SentenceEnd   = "</s>"
	Unknown       = "<unk>"
)

// NGramModel is a back-off n-gram language model of arbitrary order.
// Probabilities are stored as natural logarithms.
type NGramModel struct {
	Order int
	// OOVLogProb is returned for words missing from the unigram table.
	// Zero means: use the <unk> entry if present, otherwise LogZero.
	OOVLogProb float64

	grams  map[string]ngramEntry // space-joined n-gram -> entry
	counts []int                 // counts[n-1] = number of n-grams of order n
}

type ngramEntry struct {
	LogProb    float64
	LogBackoff float64
}

// NewNGramModel creates an empty n-gram model.
func NewNGramModel(order int) *NGramModel {
	return &NGramModel{
		Order:  order,
		grams:  make(map[string]ngramEntry),
		counts: make([]int, order),
	}
}

// Add stores an n-gram with its log probability and back-off weight (natural log).
func (m *NGramModel) Add(words []string, logProb, logBackoff float64) {
	n := len(words)
	if n == 0 {
		return
	}
	if n > m.Order {
		m.Order = n
	}
	for len(m.counts) < n {
		m.counts = append(m.counts, 0)
	}
	key := strings.Join(words, " ")
	if _, ok := m.grams[key]; !ok {
		m.counts[n-1]++
	}
	m.grams[key] = ngramEntry{LogProb: logProb, LogBackoff: logBackoff}
}

// NumGrams returns how many n-grams of the given order the model holds.
func (m *NGramModel) NumGrams(order int) int {
	if order < 1 || order > len(m.counts) {
		return 0
	}
	return m.counts[order-1]
}

// LogProb returns the log probability of a word given its history.
// Only the last Order-1 words of history are used; missing n-grams back off
// to shorter contexts.
func (m *NGramModel) LogProb(history []string, word string) float64 {
	if max := m.Order - 1; len(history) > max {
		history = history[len(history)-max:]
	}
	backoff := 0.0
	for len(history) > 0 {
		ctx := strings.Join(history, " ")
		if e, ok := m.grams[ctx+" "+word]; ok {
			return backoff + e.LogProb
		}
		if e, ok := m.grams[ctx]; ok {
			backoff += e.LogBackoff
		}
		history = history[1:]
	}
	return backoff + m.UnigramLogProb(word)
}

// UnigramLogProb returns the context-free log probability of word.
func (m *NGramModel) UnigramLogProb(word string) float64 {
	if e, ok := m.grams[word]; ok {
		return e.LogProb
	}
	if m.OOVLogProb != 0 {
		return m.OOVLogProb
	}
	if e, ok := m.grams[Unknown]; ok {
		return e.LogProb
	}
	return mathutil.LogZero
}

// HasWord reports whether word is in the unigram vocabulary.
func (m *NGramModel) HasWord(word string) bool {
	if strings.Contains(word, " ") {
		return false
	}
	_, ok := m.grams[word]
	return ok
}

// SentenceLogProb returns the total log probability of a sentence (word sequence).
// Automatically adds <s> at the beginning and </s> at the end.
func (m *NGramModel) SentenceLogProb(words []string) float64 {
	total := 0.0
	history := []string{SentenceStart}
	for _, w := range words {
		total += m.LogProb(history, w)
		history = append(history, w)
	}
	total += m.LogProb(history, SentenceEnd)
	return total
}

// Vocab returns all words in the unigram vocabulary, sorted.
func (m *NGramModel) Vocab() []string {
	words := make([]string, 0, m.NumGrams(1))
	for key := range m.grams {
		if !strings.Contains(key, " ") {
			words = append(words, key)
		}
	}
	sort.Strings(words)
	return words
}
