package language

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
)

// Builder accumulates sentences and builds a back-off N-gram language model
// with Witten-Bell discounting.
type Builder struct {
	order  int
	counts []map[string]int // counts[n-1]: space-joined n-gram -> count
}

// NewBuilder creates a new N-gram builder. order is clamped to [2, 5].
func NewBuilder(order int) *Builder {
	order = min(max(order, 2), 5)
	b := &Builder{order: order, counts: make([]map[string]int, order)}
	for i := range b.counts {
		b.counts[i] = make(map[string]int)
	}
	return b
}

// AddSentence adds a tokenized sentence. <s> and </s> are added automatically.
func (b *Builder) AddSentence(words []string) {
	if len(words) == 0 {
		return
	}
	seq := make([]string, 0, len(words)+2)
	seq = append(seq, SentenceStart)
	seq = append(seq, words...)
	seq = append(seq, SentenceEnd)

	for i := range seq {
		for n := 1; n <= b.order && n <= i+1; n++ {
			b.counts[n-1][strings.Join(seq[i+1-n:i+1], " ")]++
		}
	}
}

// Build computes the model. P(w|h) = C(h,w) / (N(h) + T(h)) for seen n-grams;
// the back-off weight of h spreads the remaining T(h)/(N(h)+T(h)) mass over
// the lower-order distribution of unseen continuations.
func (b *Builder) Build() *NGramModel {
	m := NewNGramModel(b.order)

	total := 0
	for _, c := range b.counts[0] {
		total += c
	}
	for w, c := range b.counts[0] {
		m.Add([]string{w}, math.Log(float64(c)/float64(total)), 0)
	}

	for n := 2; n <= b.order; n++ {
		type stats struct {
			total, types int
			grams        []string
		}
		contexts := make(map[string]*stats)
		for key, c := range b.counts[n-1] {
			h := key[:strings.LastIndexByte(key, ' ')]
			s := contexts[h]
			if s == nil {
				s = &stats{}
				contexts[h] = s
			}
			s.total += c
			s.types++
			s.grams = append(s.grams, key)
		}

		for h, s := range contexts {
			words := strings.Fields(h)
			lowerMass := 0.0
			for _, key := range s.grams {
				w := key[len(h)+1:]
				lowerMass += math.Exp(m.LogProb(words[1:], w))
				m.Add(strings.Fields(key), math.Log(float64(b.counts[n-1][key])/float64(s.total+s.types)), 0)
			}
			left := float64(s.types) / float64(s.total+s.types)
			if lowerMass < 1.0 {
				m.setBackoff(h, math.Log(left/(1.0-lowerMass)))
			}
		}
	}
	return m
}

// WriteARPA builds the model and writes it in ARPA format (log10 probabilities) to w.
func (b *Builder) WriteARPA(w io.Writer) error {
	return WriteARPA(w, b.Build())
}

// WriteVocab writes the sorted vocabulary, one word per line, without the
// sentence boundary tokens. The output is the word list lexicon.Load reads.
func (b *Builder) WriteVocab(w io.Writer) error {
	words := make([]string, 0, len(b.counts[0]))
	for word := range b.counts[0] {
		if word != SentenceStart && word != SentenceEnd {
			words = append(words, word)
		}
	}
	sort.Strings(words)
	for _, word := range words {
		if _, err := fmt.Fprintln(w, word); err != nil {
			return err
		}
	}
	return nil
}

// WriteARPA writes m in ARPA format with base-10 log probabilities.
func WriteARPA(w io.Writer, m *NGramModel) error {
	byOrder := make([][]string, m.Order)
	for key := range m.grams {
		n := strings.Count(key, " ") + 1
		byOrder[n-1] = append(byOrder[n-1], key)
	}

	ew := &errWriter{w: w}
	ew.printf("\\data\\\n")
	for n, keys := range byOrder {
		if len(keys) > 0 {
			ew.printf("ngram %d=%d\n", n+1, len(keys))
		}
	}
	for n, keys := range byOrder {
		if len(keys) == 0 {
			continue
		}
		sort.Strings(keys)
		ew.printf("\n\\%d-grams:\n", n+1)
		for _, key := range keys {
			e := m.grams[key]
			if e.LogBackoff != 0 && n+1 < m.Order {
				ew.printf("%.6f\t%s\t%.6f\n", e.LogProb/math.Ln10, key, e.LogBackoff/math.Ln10)
			} else {
				ew.printf("%.6f\t%s\n", e.LogProb/math.Ln10, key)
			}
		}
	}
	ew.printf("\n\\end\\\n")
	return ew.err
}

func (m *NGramModel) setBackoff(key string, logBackoff float64) {
	e, ok := m.grams[key]
	if !ok {
		return
	}
	e.LogBackoff = logBackoff
	m.grams[key] = e
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
