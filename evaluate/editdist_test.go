package evaluate

import (
	"math"
	"testing"
)

func TestEditDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want int
	}{
		{"identical", []string{"the", "cat"}, []string{"the", "cat"}, 0},
		{"empty_both", nil, nil, 0},
		{"empty_a", nil, []string{"a", "b"}, 2},
		{"empty_b", []string{"a"}, nil, 1},
		{"substitution", []string{"the", "cat"}, []string{"the", "hat"}, 1},
		{"insertion", []string{"the", "cat"}, []string{"the", "cat", "sat"}, 1},
		{"deletion", []string{"the", "cat", "sat"}, []string{"the", "sat"}, 1},
		{"all_different", []string{"a", "b", "c"}, []string{"x", "y"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EditDistance(tt.a, tt.b)
			if got != tt.want {
				t.Errorf("EditDistance() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEditDistanceRunes(t *testing.T) {
	if got := EditDistance([]rune("kitten"), []rune("sitting")); got != 3 {
		t.Errorf("EditDistance(kitten, sitting) = %d, want 3", got)
	}
}

func TestWER(t *testing.T) {
	tests := []struct {
		ref, hyp string
		want     float64
	}{
		{"the cat sat", "the cat sat", 0},
		{"the cat sat", "the hat sat", 1.0 / 3},
		{"the cat sat", "", 1},
		{"the cat", "the cat sat down", 1},
		{"", "", 0},
		{"", "noise", 1},
		{"  the   cat ", "the cat", 0},
	}
	for _, tt := range tests {
		if got := WER(tt.ref, tt.hyp); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("WER(%q, %q) = %f, want %f", tt.ref, tt.hyp, got, tt.want)
		}
	}
}

func TestCER(t *testing.T) {
	tests := []struct {
		ref, hyp string
		want     float64
	}{
		{"ab", "ab", 0},
		{"ab", "a", 0.5},
		{"a  b", "a b", 0},
		{"cat", "cut", 1.0 / 3},
	}
	for _, tt := range tests {
		if got := CER(tt.ref, tt.hyp); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("CER(%q, %q) = %f, want %f", tt.ref, tt.hyp, got, tt.want)
		}
	}
}
