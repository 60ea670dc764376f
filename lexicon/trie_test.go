package lexicon

import (
	"strings"
	"testing"

	"github.com/ieee0824/ctcspeech/alphabet"
	"github.com/ieee0824/ctcspeech/internal/mathutil"
)

const testWords = `# vocabulary
cab
cat	12
a
cab
dog
`

func testAlphabet(t *testing.T) *alphabet.Alphabet {
	t.Helper()
	a, err := alphabet.New([]string{" ", "a", "b", "c", "t"})
	if err != nil {
		t.Fatalf("alphabet.New: %v", err)
	}
	return a
}

func TestLoad(t *testing.T) {
	alpha := testAlphabet(t)
	scores := map[string]float64{"cab": -2.0, "cat": -1.0, "a": -0.5}
	trie, err := Load(strings.NewReader(testWords), alpha, func(w string) float64 { return scores[w] })
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if trie.Len() != 3 {
		t.Errorf("Len() = %d, want 3", trie.Len())
	}
	if trie.Skipped() != 1 {
		t.Errorf("Skipped() = %d, want 1 (dog)", trie.Skipped())
	}
	want := []string{"a", "cab", "cat"}
	got := trie.Words()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Words() = %v, want %v", got, want)
	}

	cab, _ := alpha.Encode("cab")
	if !trie.Contains(cab) {
		t.Error("trie should contain cab")
	}
	ca, _ := alpha.Encode("ca")
	if trie.Contains(ca) {
		t.Error("ca is a prefix, not a word")
	}
	if n := trie.Lookup(ca); n == nil {
		t.Fatal("Lookup(ca) = nil, want prefix node")
	} else if n.BestLogProb() != -1.0 {
		t.Errorf("BestLogProb(ca) = %f, want -1.0 (cat)", n.BestLogProb())
	}
}

func TestNodeWalk(t *testing.T) {
	alpha := testAlphabet(t)
	trie := New()
	labels, _ := alpha.Encode("at")
	trie.Insert("at", labels, -3.0)

	n := trie.Root().Child(labels[0])
	if n == nil || n.IsWord() {
		t.Fatalf("node for 'a' = %+v, want non-word prefix", n)
	}
	n = n.Child(labels[1])
	if !n.IsWord() {
		t.Error("'at' should be a word")
	}

	var missing *Node
	if missing.Child(0) != nil || missing.IsWord() || missing.BestLogProb() != mathutil.LogZero {
		t.Error("nil node should behave as an empty subtree")
	}
}
