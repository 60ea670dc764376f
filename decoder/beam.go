// Package decoder implements CTC prefix beam search with online word-level
// language model scoring.
package decoder

import (
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/ieee0824/ctcspeech/acoustic"
	"github.com/ieee0824/ctcspeech/internal/mathutil"
	"github.com/ieee0824/ctcspeech/language"
)

var (
	// ErrInvalidConfig is returned for a beam width or path count below one.
	ErrInvalidConfig = errors.New("decoder: invalid config")
	// ErrShape is returned when the score rows do not have one column per class.
	ErrShape = errors.New("decoder: score shape mismatch")
	// ErrInvalidScore is returned when an acoustic or language model score is NaN.
	ErrInvalidScore = errors.New("decoder: invalid score")
)

// Config holds beam search parameters.
type Config struct {
	BeamWidth int // hypotheses kept after every step
	TopPaths  int // results returned
	// Parallelism bounds how many beams are expanded concurrently within a
	// step. Values <= 1 expand sequentially; results are identical either way.
	Parallelism int
}

// DefaultConfig returns the beam width the reference English models were tuned with.
func DefaultConfig() Config {
	return Config{
		BeamWidth:   500,
		TopPaths:    1,
		Parallelism: 1,
	}
}

// beam is one live prefix. pb and pnb are the log probabilities of all
// alignments of the prefix that end in blank and in its last label.
type beam struct {
	labels []int
	key    string
	pb     float64
	pnb    float64
	state  language.State
	// best is the highest single contribution merged into this beam; its
	// scorer state is the one kept.
	best float64
}

func (b *beam) score() float64 {
	return mathutil.LogAdd(b.pb, b.pnb)
}

func (b *beam) last() int {
	if len(b.labels) == 0 {
		return -1
	}
	return b.labels[len(b.labels)-1]
}

// contribution is probability mass flowing from a parent beam into a
// (possibly new) prefix during one step.
type contribution struct {
	labels []int
	key    string
	pb     float64
	pnb    float64
	state  language.State
}

// Decode runs CTC prefix beam search over out, whose rows hold per-class log
// probabilities with blank at index blank and blank+1 classes in total.
// Results are ordered by score, best first; equal scores rank the shorter
// label sequence first, then the lexicographically smaller one.
func Decode(out *acoustic.Output, scorer language.Scorer, blank int, cfg Config) ([]Result, error) {
	if cfg.BeamWidth < 1 || cfg.TopPaths < 1 {
		return nil, fmt.Errorf("%w: beam width %d, top paths %d", ErrInvalidConfig, cfg.BeamWidth, cfg.TopPaths)
	}
	if out == nil {
		return nil, fmt.Errorf("%w: nil output", ErrShape)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShape, err)
	}
	if scorer == nil {
		scorer = language.NoopScorer{}
	}
	numClasses := blank + 1
	if out.Steps == 0 || numClasses <= 1 {
		return []Result{{Labels: []int{}}}, nil
	}
	if out.Classes != numClasses {
		return nil, fmt.Errorf("%w: %d classes per step, want %d", ErrShape, out.Classes, numClasses)
	}

	beams := []*beam{{
		pb:    0,
		pnb:   mathutil.LogZero,
		state: scorer.InitialState(),
		best:  0,
	}}
	row := make([]float64, numClasses)
	expanded := make([][]contribution, cfg.BeamWidth)

	for t := 0; t < out.Steps; t++ {
		for c, v := range out.Row(t) {
			if math.IsNaN(float64(v)) {
				return nil, fmt.Errorf("%w: NaN at step %d class %d", ErrInvalidScore, t, c)
			}
			row[c] = mathutil.Floor(float64(v))
		}

		if err := expandAll(beams, expanded, row, blank, scorer, cfg.Parallelism); err != nil {
			return nil, fmt.Errorf("step %d: %w", t, err)
		}
		beams = mergeAndPrune(expanded[:len(beams)], cfg.BeamWidth)
	}

	results := make([]Result, len(beams))
	for i, b := range beams {
		results[i] = Result{Labels: b.labels, Score: b.score() + scorer.FinalScore(b.state)}
	}
	slices.SortStableFunc(results, func(a, b Result) int {
		return compareHyp(a.Score, b.Score, a.Labels, b.Labels, labelKey(a.Labels), labelKey(b.Labels))
	})
	results = results[:min(cfg.TopPaths, len(results))]
	for i := range results {
		results[i].Labels = slices.Clone(results[i].Labels)
		if results[i].Labels == nil {
			results[i].Labels = []int{}
		}
	}
	return results, nil
}

// expandAll fills expanded[i] with the contributions of beams[i]. Every beam
// writes only its own slot, so the slots can be filled concurrently.
func expandAll(beams []*beam, expanded [][]contribution, row []float64, blank int, scorer language.Scorer, parallelism int) error {
	if parallelism <= 1 || len(beams) == 1 {
		for i, b := range beams {
			var err error
			if expanded[i], err = expandBeam(b, expanded[i][:0], row, blank, scorer); err != nil {
				return err
			}
		}
		return nil
	}

	var g errgroup.Group
	g.SetLimit(parallelism)
	for i, b := range beams {
		g.Go(func() error {
			var err error
			expanded[i], err = expandBeam(b, expanded[i][:0], row, blank, scorer)
			return err
		})
	}
	return g.Wait()
}

// expandBeam appends every contribution b makes to the next step.
func expandBeam(b *beam, dst []contribution, row []float64, blank int, scorer language.Scorer) ([]contribution, error) {
	total := b.score()
	last := b.last()

	// Blank and the collapsed repeat keep the prefix.
	stay := contribution{
		labels: b.labels,
		key:    b.key,
		pb:     mathutil.Floor(total + row[blank]),
		pnb:    mathutil.LogZero,
		state:  b.state,
	}
	if last >= 0 {
		stay.pnb = mathutil.Floor(b.pnb + row[last])
	}
	dst = append(dst, stay)

	for c := 0; c < len(row); c++ {
		if c == blank {
			continue
		}
		// A repeated label only extends the prefix through a blank.
		from := total
		if c == last {
			from = b.pb
		}
		if mathutil.IsZero(from) {
			continue
		}
		state, lm := scorer.Expand(b.state, c)
		if math.IsNaN(lm) {
			return nil, fmt.Errorf("%w: language model score for label %d", ErrInvalidScore, c)
		}
		labels := make([]int, len(b.labels)+1)
		copy(labels, b.labels)
		labels[len(b.labels)] = c
		dst = append(dst, contribution{
			labels: labels,
			key:    appendLabel(b.key, c),
			pb:     mathutil.LogZero,
			pnb:    mathutil.Floor(from + row[c] + lm),
			state:  state,
		})
	}
	return dst, nil
}

// mergeAndPrune folds contributions into one beam per prefix, in parent
// order, and keeps the best width beams.
func mergeAndPrune(expanded [][]contribution, width int) []*beam {
	byKey := make(map[string]*beam)
	var next []*beam
	for _, contribs := range expanded {
		for _, c := range contribs {
			score := mathutil.LogAdd(c.pb, c.pnb)
			nb, ok := byKey[c.key]
			if !ok {
				nb = &beam{
					labels: c.labels,
					key:    c.key,
					pb:     c.pb,
					pnb:    c.pnb,
					state:  c.state,
					best:   score,
				}
				byKey[c.key] = nb
				next = append(next, nb)
				continue
			}
			nb.pb = mathutil.LogAdd(nb.pb, c.pb)
			nb.pnb = mathutil.LogAdd(nb.pnb, c.pnb)
			if score > nb.best {
				nb.best = score
				nb.state = c.state
			}
		}
	}

	slices.SortFunc(next, func(a, b *beam) int {
		return compareHyp(a.score(), b.score(), a.labels, b.labels, a.key, b.key)
	})
	if len(next) > width {
		next = next[:width]
	}
	return next
}

// compareHyp orders hypotheses best first: higher score, then shorter
// labels, then lexicographically smaller labels (keys compare the same way).
func compareHyp(scoreA, scoreB float64, labelsA, labelsB []int, keyA, keyB string) int {
	if c := cmp.Compare(scoreB, scoreA); c != 0 {
		return c
	}
	if c := cmp.Compare(len(labelsA), len(labelsB)); c != 0 {
		return c
	}
	return cmp.Compare(keyA, keyB)
}

// appendLabel extends a prefix key by one label. Keys are fixed-width
// big-endian, so they compare like the label sequences they encode.
func appendLabel(key string, label int) string {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(label))
	return key + string(buf[:])
}

func labelKey(labels []int) string {
	key := ""
	for _, l := range labels {
		key = appendLabel(key, l)
	}
	return key
}
