// Command lmbuild builds an ARPA language model, and optionally the decoder's
// word list, from tokenized text.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ieee0824/ctcspeech/language"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("lmbuild", flag.ContinueOnError)
	fs.SetOutput(stderr)
	order := fs.Int("order", 2, "N-gram order (2=bigram, 3=trigram)")
	output := fs.String("output", "", "ARPA output file (default: stdout)")
	words := fs.String("words", "", "also write the vocabulary, one word per line, for the decoder trie")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: lmbuild [-order N] [-output lm.arpa] [-words words.txt] [input-files...]")
		fmt.Fprintln(stderr, "  Input: one sentence per line, words separated by spaces; stdin if no files.")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *order < 1 {
		return fmt.Errorf("-order must be >= 1, got %d", *order)
	}

	b := language.NewBuilder(*order)
	sentences, err := addCorpus(b, fs.Args(), stdin)
	if err != nil {
		return err
	}

	if err := writeTo(*output, stdout, b.WriteARPA); err != nil {
		return fmt.Errorf("write ARPA: %w", err)
	}
	if *words != "" {
		if err := writeTo(*words, nil, b.WriteVocab); err != nil {
			return fmt.Errorf("write vocabulary: %w", err)
		}
	}

	fmt.Fprintf(stderr, "Built %d-gram model from %d sentences\n", *order, sentences)
	return nil
}

// addCorpus feeds every input file, or stdin when there are none, into b.
func addCorpus(b *language.Builder, paths []string, stdin io.Reader) (int, error) {
	if len(paths) == 0 {
		return addSentences(b, stdin)
	}
	total := 0
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return total, err
		}
		n, err := addSentences(b, f)
		f.Close()
		if err != nil {
			return total, fmt.Errorf("read %s: %w", path, err)
		}
		total += n
	}
	return total, nil
}

func addSentences(b *language.Builder, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	count := 0
	for scanner.Scan() {
		if words := strings.Fields(scanner.Text()); len(words) > 0 {
			b.AddSentence(words)
			count++
		}
	}
	return count, scanner.Err()
}

// writeTo runs write against path, or against fallback when path is empty.
func writeTo(path string, fallback io.Writer, write func(io.Writer) error) error {
	if path == "" {
		return write(fallback)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
