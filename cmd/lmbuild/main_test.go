package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ieee0824/ctcspeech/language"
)

const corpus = "the cat sat\nthe cat ran\n\n  \nthe dog sat\n"

func TestRunStdin(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run([]string{"-order", "2"}, strings.NewReader(corpus), &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}

	lm, err := language.LoadARPA(&stdout)
	if err != nil {
		t.Fatalf("LoadARPA: %v", err)
	}
	for _, w := range []string{"the", "cat", "dog", "sat", "ran"} {
		if !lm.HasWord(w) {
			t.Errorf("vocabulary missing %q", w)
		}
	}
	if !strings.Contains(stderr.String(), "from 3 sentences") {
		t.Errorf("stderr = %q, want sentence count 3", stderr.String())
	}
}

func TestRunFilesAndWords(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "corpus.txt")
	if err := os.WriteFile(in, []byte(corpus), 0o644); err != nil {
		t.Fatal(err)
	}
	arpa := filepath.Join(dir, "lm.arpa")
	words := filepath.Join(dir, "words.txt")

	var stdout, stderr bytes.Buffer
	err := run([]string{"-output", arpa, "-words", words, in}, strings.NewReader(""), &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout should be empty when -output is set, got %d bytes", stdout.Len())
	}
	if _, err := language.LoadARPAFile(arpa); err != nil {
		t.Fatalf("LoadARPAFile: %v", err)
	}
	got, err := os.ReadFile(words)
	if err != nil {
		t.Fatal(err)
	}
	if want := "cat\ndog\nran\nsat\nthe\n"; string(got) != want {
		t.Errorf("words = %q, want %q", got, want)
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad order", []string{"-order", "0"}},
		{"missing input", []string{filepath.Join(t.TempDir(), "none.txt")}},
		{"unknown flag", []string{"-nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if err := run(tt.args, strings.NewReader(corpus), &stdout, &stderr); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
