// Package alphabet maps acoustic-model output labels to the symbols they emit.
//
// An alphabet file holds one symbol per line; the 0-based index of the line
// among the non-skipped lines is the label. The label equal to Size() is
// reserved for the CTC blank and has no symbol.
package alphabet

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	// ErrUnknownSymbol is returned by LabelFromString for symbols outside the alphabet.
	ErrUnknownSymbol = errors.New("alphabet: unknown symbol")
	// ErrInvalidLabel is returned by StringFromLabel for labels outside [0, Size).
	ErrInvalidLabel = errors.New("alphabet: invalid label")
	// ErrMalformed is returned when an alphabet file cannot be parsed.
	ErrMalformed = errors.New("alphabet: malformed alphabet")
)

// DefaultCommentMarker starts a comment line in alphabet files.
const DefaultCommentMarker = "#"

// Alphabet is an immutable bidirectional label/symbol mapping.
type Alphabet struct {
	symbols    []string
	labels     map[string]int
	spaceLabel int
}

// New builds an alphabet from symbols; symbols[i] gets label i.
func New(symbols []string) (*Alphabet, error) {
	a := &Alphabet{
		symbols:    make([]string, len(symbols)),
		labels:     make(map[string]int, len(symbols)),
		spaceLabel: -1,
	}
	copy(a.symbols, symbols)
	for i, s := range symbols {
		if s == "" {
			return nil, fmt.Errorf("%w: empty symbol at label %d", ErrMalformed, i)
		}
		if prev, ok := a.labels[s]; ok {
			return nil, fmt.Errorf("%w: symbol %q defined at labels %d and %d", ErrMalformed, s, prev, i)
		}
		a.labels[s] = i
		if s == " " {
			a.spaceLabel = i
		}
	}
	return a, nil
}

type loadOptions struct {
	commentMarker string
}

// Option configures Load.
type Option func(*loadOptions)

// WithCommentMarker sets the prefix that marks comment lines.
// A line holding exactly a backslash and the marker defines the marker itself
// as a symbol; any other line is taken verbatim.
func WithCommentMarker(marker string) Option {
	return func(o *loadOptions) {
		o.commentMarker = marker
	}
}

// Load reads an alphabet, one symbol per line.
// Blank lines and comment lines are skipped; a line holding a single space
// defines the word separator.
func Load(r io.Reader, opts ...Option) (*Alphabet, error) {
	o := loadOptions{commentMarker: DefaultCommentMarker}
	for _, opt := range opts {
		opt(&o)
	}

	var symbols []string
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		if o.commentMarker != "" {
			if line == `\`+o.commentMarker {
				line = o.commentMarker
			} else if strings.HasPrefix(line, o.commentMarker) {
				continue
			}
		}
		symbols = append(symbols, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read alphabet: %w", err)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: no symbols", ErrMalformed)
	}
	return New(symbols)
}

// LoadFile is a convenience wrapper that opens a file path.
func LoadFile(path string, opts ...Option) (*Alphabet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f, opts...)
}

// Size returns the number of symbols, excluding blank.
func (a *Alphabet) Size() int {
	return len(a.symbols)
}

// Blank returns the reserved blank label.
func (a *Alphabet) Blank() int {
	return len(a.symbols)
}

// NumClasses returns the acoustic model class count (symbols plus blank).
func (a *Alphabet) NumClasses() int {
	return len(a.symbols) + 1
}

// LabelFromString returns the label of symbol s.
func (a *Alphabet) LabelFromString(s string) (int, error) {
	l, ok := a.labels[s]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSymbol, s)
	}
	return l, nil
}

// StringFromLabel returns the symbol of label l.
func (a *Alphabet) StringFromLabel(l int) (string, error) {
	if l < 0 || l >= len(a.symbols) {
		return "", fmt.Errorf("%w: %d (size %d)", ErrInvalidLabel, l, len(a.symbols))
	}
	return a.symbols[l], nil
}

// SpaceLabel returns the word separator label, or -1 if the alphabet has none.
func (a *Alphabet) SpaceLabel() int {
	return a.spaceLabel
}

// IsSpace reports whether l is the word separator.
func (a *Alphabet) IsSpace(l int) bool {
	return a.spaceLabel >= 0 && l == a.spaceLabel
}

// Symbols returns a copy of the symbol table in label order.
func (a *Alphabet) Symbols() []string {
	out := make([]string, len(a.symbols))
	copy(out, a.symbols)
	return out
}

// Encode splits word into runes and maps each to its label.
func (a *Alphabet) Encode(word string) ([]int, error) {
	labels := make([]int, 0, len(word))
	for _, r := range word {
		l, err := a.LabelFromString(string(r))
		if err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, nil
}

// Decode concatenates the symbols of labels.
func (a *Alphabet) Decode(labels []int) (string, error) {
	var sb strings.Builder
	for _, l := range labels {
		s, err := a.StringFromLabel(l)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}
