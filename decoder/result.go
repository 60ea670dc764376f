package decoder

// Result is one decoded hypothesis.
type Result struct {
	Labels []int   // collapsed label sequence, blanks removed
	Score  float64 // acoustic + language model log score, including the final score
}
