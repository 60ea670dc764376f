package language

import (
	"errors"
	"math"
	"strings"
	"testing"
)

const testARPA = `\data\
ngram 1=5
ngram 2=4

\1-grams:
-1.0	</s>
-1.0	<s>	-0.5
-0.5	the	-0.2
-0.7	cat	-0.3
-0.9	sat

\2-grams:
-0.3	<s>	the
-0.4	the	cat
-0.2	cat	</s>
-0.1	cat	sat

\end\
`

func TestLoadARPA(t *testing.T) {
	model, err := LoadARPA(strings.NewReader(testARPA))
	if err != nil {
		t.Fatalf("LoadARPA error: %v", err)
	}

	if model.Order != 2 {
		t.Errorf("Order = %d, want 2", model.Order)
	}
	if got := model.NumGrams(1); got != 5 {
		t.Errorf("NumGrams(1) = %d, want 5", got)
	}
	if got := model.NumGrams(2); got != 4 {
		t.Errorf("NumGrams(2) = %d, want 4", got)
	}
	if got := model.NumGrams(3); got != 0 {
		t.Errorf("NumGrams(3) = %d, want 0", got)
	}

	// log10 prob = -0.5 -> ln prob = -0.5 * ln(10)
	want := -0.5 * math.Ln10
	if lp := model.UnigramLogProb("the"); math.Abs(lp-want) > 1e-10 {
		t.Errorf("the unigram LogProb = %f, want %f", lp, want)
	}
	if !model.HasWord("the") {
		t.Error("missing unigram for the")
	}
	if model.HasWord("the cat") {
		t.Error("HasWord should not match bigrams")
	}
}

func TestLoadARPA_Malformed(t *testing.T) {
	tests := []struct {
		name string
		arpa string
	}{
		{"no data header", "ngram 1=1\n\\1-grams:\n-1.0\ta\n\\end\\\n"},
		{"missing end", "\\data\\\nngram 1=1\n\n\\1-grams:\n-1.0\ta\n"},
		{"count mismatch", "\\data\\\nngram 1=2\n\n\\1-grams:\n-1.0\ta\n\n\\end\\\n"},
		{"bad probability", "\\data\\\nngram 1=1\n\n\\1-grams:\nx\ta\n\n\\end\\\n"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadARPA(strings.NewReader(tt.arpa))
			if !errors.Is(err, ErrMalformedARPA) {
				t.Errorf("err = %v, want ErrMalformedARPA", err)
			}
		})
	}
}

func TestLogProb_Bigram(t *testing.T) {
	model, err := LoadARPA(strings.NewReader(testARPA))
	if err != nil {
		t.Fatalf("LoadARPA error: %v", err)
	}

	lp := model.LogProb([]string{"<s>"}, "the")
	want := -0.3 * math.Ln10
	if math.Abs(lp-want) > 1e-10 {
		t.Errorf("LogProb(<s>, the) = %f, want %f", lp, want)
	}
}

func TestLogProb_Backoff(t *testing.T) {
	model, err := LoadARPA(strings.NewReader(testARPA))
	if err != nil {
		t.Fatalf("LoadARPA error: %v", err)
	}

	// no bigram "cat the": backoff(cat) + P(the)
	lp := model.LogProb([]string{"cat"}, "the")
	want := -0.3*math.Ln10 + -0.5*math.Ln10
	if math.Abs(lp-want) > 1e-10 {
		t.Errorf("LogProb(cat, the) = %f, want %f", lp, want)
	}
}

func TestLogProb_LongHistoryTruncated(t *testing.T) {
	model, err := LoadARPA(strings.NewReader(testARPA))
	if err != nil {
		t.Fatalf("LoadARPA error: %v", err)
	}

	short := model.LogProb([]string{"the"}, "cat")
	long := model.LogProb([]string{"<s>", "sat", "the"}, "cat")
	if short != long {
		t.Errorf("history beyond order-1 changed LogProb: %f != %f", long, short)
	}
}

func TestUnigramLogProb_OOV(t *testing.T) {
	model, err := LoadARPA(strings.NewReader(testARPA))
	if err != nil {
		t.Fatalf("LoadARPA error: %v", err)
	}

	if lp := model.UnigramLogProb("dog"); lp > -1e29 {
		t.Errorf("OOV without <unk> = %f, want LogZero", lp)
	}
	model.OOVLogProb = -7
	if lp := model.UnigramLogProb("dog"); lp != -7 {
		t.Errorf("OOV = %f, want -7", lp)
	}
}

func TestSentenceLogProb(t *testing.T) {
	model, err := LoadARPA(strings.NewReader(testARPA))
	if err != nil {
		t.Fatalf("LoadARPA error: %v", err)
	}

	lp := model.SentenceLogProb([]string{"the", "cat"})
	want := -0.3*math.Ln10 + -0.4*math.Ln10 + -0.2*math.Ln10
	if math.Abs(lp-want) > 1e-10 {
		t.Errorf("SentenceLogProb = %f, want %f", lp, want)
	}
}

func TestVocab(t *testing.T) {
	model, err := LoadARPA(strings.NewReader(testARPA))
	if err != nil {
		t.Fatalf("LoadARPA error: %v", err)
	}

	vocab := model.Vocab()
	want := []string{"</s>", "<s>", "cat", "sat", "the"}
	if len(vocab) != len(want) {
		t.Fatalf("len(Vocab) = %d, want %d", len(vocab), len(want))
	}
	for i := range want {
		if vocab[i] != want[i] {
			t.Errorf("Vocab[%d] = %q, want %q", i, vocab[i], want[i])
		}
	}
}
