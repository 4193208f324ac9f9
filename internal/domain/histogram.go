package domain

// RejectionHistogram counts why candidate contracts fell out of the
// option chain selector, keyed by reason code. It rides along in the
// pipeline result purely for logging/observability and never feeds
// back into a stage's pass/fail decision.
type RejectionHistogram map[string]int

func (h RejectionHistogram) Add(reason string) {
	h[reason]++
}
