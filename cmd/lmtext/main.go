package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"

	"github.com/ieee0824/ctcspeech/alphabet"
)

// tagRe matches WikiExtractor <doc ...> and </doc> tags.
var tagRe = regexp.MustCompile(`^</?doc[^>]*>$`)

func main() {
	alphabetPath := flag.String("alphabet", "", "path to alphabet file (required)")
	minWords := flag.Int("min-words", 3, "minimum words per sentence")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: lmtext -alphabet ALPHABET < input.txt > output.txt")
		fmt.Fprintln(os.Stderr, "  Reads raw text from stdin, lowercases and tokenizes it,")
		fmt.Fprintln(os.Stderr, "  and outputs sentences whose words spell in the alphabet.")
		fmt.Fprintln(os.Stderr, "  Handles WikiExtractor output (strips <doc> tags, splits on . ! ?).")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *alphabetPath == "" {
		fmt.Fprintln(os.Stderr, "error: -alphabet is required")
		flag.Usage()
		os.Exit(1)
	}

	alpha, err := alphabet.LoadFile(*alphabetPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading alphabet: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Alphabet: %d symbols\n", alpha.Size())

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	writer := bufio.NewWriter(os.Stdout)
	defer writer.Flush()

	var totalIn, totalOut int
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || tagRe.MatchString(line) {
			continue
		}
		for _, sent := range splitSentences(line) {
			totalIn++
			words := tokenize(sent)
			if len(words) >= *minWords && allSpellable(words, alpha) {
				fmt.Fprintln(writer, strings.Join(words, " "))
				totalOut++
			}
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "read error: %v\n", err)
	}

	rate := 0.0
	if totalIn > 0 {
		rate = float64(totalOut) / float64(totalIn) * 100
	}
	fmt.Fprintf(os.Stderr, "Input: %d sentences, Output: %d sentences (%.1f%%)\n", totalIn, totalOut, rate)
}

// splitSentences splits a line on sentence-final punctuation and returns non-empty parts.
func splitSentences(line string) []string {
	parts := strings.FieldsFunc(line, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// tokenize lowercases s and splits it into words. Apostrophes inside words
// are kept; other punctuation separates words.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	words := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if f != "" {
			words = append(words, f)
		}
	}
	return words
}

// allSpellable reports whether every word encodes in the alphabet.
func allSpellable(words []string, alpha *alphabet.Alphabet) bool {
	for _, w := range words {
		if _, err := alpha.Encode(w); err != nil {
			return false
		}
	}
	return true
}
