// Package lexicon holds the word list the decoder treats as valid vocabulary,
// stored as a trie over alphabet labels so that partial words can be
// followed one label at a time.
package lexicon

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/ieee0824/ctcspeech/alphabet"
	"github.com/ieee0824/ctcspeech/internal/mathutil"
)

// Node is one trie position. Nodes are immutable once the trie is built and
// may be shared between goroutines.
type Node struct {
	children map[int]*Node
	word     bool
	best     float64 // best unigram log probability of any word below this node
}

func newNode() *Node {
	return &Node{best: mathutil.LogZero}
}

// Child returns the node reached by label, or nil.
func (n *Node) Child(label int) *Node {
	if n == nil {
		return nil
	}
	return n.children[label]
}

// IsWord reports whether the path to n spells a complete word.
func (n *Node) IsWord() bool {
	return n != nil && n.word
}

// BestLogProb returns the highest unigram log probability among the words
// that extend the prefix ending at n.
func (n *Node) BestLogProb() float64 {
	if n == nil {
		return mathutil.LogZero
	}
	return n.best
}

// Trie is a word trie keyed by alphabet labels.
type Trie struct {
	root    *Node
	words   []string
	skipped int
}

// New creates an empty trie.
func New() *Trie {
	return &Trie{root: newNode()}
}

// Root returns the empty-prefix node.
func (t *Trie) Root() *Node {
	return t.root
}

// Insert adds a word spelled by labels with its unigram log probability.
func (t *Trie) Insert(word string, labels []int, logProb float64) {
	n := t.root
	if logProb > n.best {
		n.best = logProb
	}
	for _, l := range labels {
		child := n.children[l]
		if child == nil {
			if n.children == nil {
				n.children = make(map[int]*Node)
			}
			child = newNode()
			n.children[l] = child
		}
		if logProb > child.best {
			child.best = logProb
		}
		n = child
	}
	if !n.word {
		n.word = true
		t.words = append(t.words, word)
	}
}

// Lookup walks labels from the root and returns the node reached, or nil.
func (t *Trie) Lookup(labels []int) *Node {
	n := t.root
	for _, l := range labels {
		n = n.Child(l)
		if n == nil {
			return nil
		}
	}
	return n
}

// Contains reports whether labels spell a word in the trie.
func (t *Trie) Contains(labels []int) bool {
	return t.Lookup(labels).IsWord()
}

// Len returns the number of distinct words.
func (t *Trie) Len() int {
	return len(t.words)
}

// Skipped returns how many words were dropped at load time because they
// used symbols outside the alphabet.
func (t *Trie) Skipped() int {
	return t.skipped
}

// Words returns all words in sorted order.
func (t *Trie) Words() []string {
	words := make([]string, len(t.words))
	copy(words, t.words)
	sort.Strings(words)
	return words
}

// Load reads a word list, one word per line, and builds a trie over alpha.
// Lines starting with '#' and blank lines are skipped. score, if non-nil,
// supplies each word's unigram log probability.
func Load(r io.Reader, alpha *alphabet.Alphabet, score func(word string) float64) (*Trie, error) {
	t := New()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// Only the first field is the word; trailing columns (counts) are ignored.
		word := strings.Fields(line)[0]
		labels, err := alpha.Encode(word)
		if err != nil {
			t.skipped++
			continue
		}
		lp := 0.0
		if score != nil {
			lp = score(word)
		}
		t.Insert(word, labels, lp)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read word list: %w", err)
	}
	return t, nil
}

// LoadFile is a convenience wrapper that opens a file path.
func LoadFile(path string, alpha *alphabet.Alphabet, score func(word string) float64) (*Trie, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f, alpha, score)
}
