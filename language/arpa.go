package language

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// ErrMalformedARPA is returned when an ARPA file cannot be parsed.
var ErrMalformedARPA = errors.New("language: malformed ARPA model")

// LoadARPA reads a language model in ARPA format.
// Log probabilities in ARPA files are base-10; they are converted to natural log.
func LoadARPA(r io.Reader) (*NGramModel, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	// Skip until \data\ section
	found := false
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == `\data\` {
			found = true
			break
		}
	}
	if !found {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf(`%w: missing \data\ header`, ErrMalformedARPA)
	}

	// Parse ngram counts
	declared := map[int]int{}
	maxOrder := 0
	var line string
	for scanner.Scan() {
		line = strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "ngram ") {
			break
		}
		parts := strings.SplitN(line[len("ngram "):], "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: bad count line %q", ErrMalformedARPA, line)
		}
		order, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		count, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil || order < 1 {
			return nil, fmt.Errorf("%w: bad count line %q", ErrMalformedARPA, line)
		}
		declared[order] = count
		if order > maxOrder {
			maxOrder = order
		}
	}
	if maxOrder == 0 {
		return nil, fmt.Errorf("%w: no ngram counts", ErrMalformedARPA)
	}
	model := NewNGramModel(maxOrder)

	// Parse n-gram sections; line holds the first section header.
	order := 0
	ended := false
	for {
		switch {
		case line == "":
		case line == `\end\`:
			ended = true
		case strings.HasPrefix(line, `\`) && strings.HasSuffix(line, "-grams:"):
			n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(line, `\`), "-grams:"))
			if err != nil || n < 1 || n > maxOrder {
				return nil, fmt.Errorf("%w: bad section header %q", ErrMalformedARPA, line)
			}
			order = n
		default:
			if order == 0 {
				return nil, fmt.Errorf("%w: entry %q outside a section", ErrMalformedARPA, line)
			}
			if err := parseNGramLine(model, order, line); err != nil {
				return nil, fmt.Errorf("%w: line %q: %v", ErrMalformedARPA, line, err)
			}
		}
		if ended || !scanner.Scan() {
			break
		}
		line = strings.TrimSpace(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !ended {
		return nil, fmt.Errorf(`%w: missing \end\ marker`, ErrMalformedARPA)
	}
	for n, want := range declared {
		if got := model.NumGrams(n); got != want {
			return nil, fmt.Errorf("%w: %d-grams declared %d, found %d", ErrMalformedARPA, n, want, got)
		}
	}

	return model, nil
}

// LoadARPAFile is a convenience wrapper that opens a file path.
func LoadARPAFile(path string) (*NGramModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadARPA(f)
}

func parseNGramLine(model *NGramModel, order int, line string) error {
	fields := strings.Fields(line)
	if len(fields) < order+1 {
		return fmt.Errorf("too few fields for %d-gram: %q", order, line)
	}

	logProb, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return fmt.Errorf("parse log prob: %w", err)
	}

	var logBackoff float64
	if len(fields) > order+1 {
		logBackoff, err = strconv.ParseFloat(fields[order+1], 64)
		if err != nil {
			return fmt.Errorf("parse backoff: %w", err)
		}
	}

	// Convert base-10 to natural log
	model.Add(fields[1:order+1], logProb*math.Ln10, logBackoff*math.Ln10)
	return nil
}
