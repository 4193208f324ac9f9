package domain

import "time"

// CycleSummary is a small operational record kept alongside a cycle's
// scan artifact or execution result: what was considered, what got
// blocked at which stage, and what the executor actually did with it.
// It never feeds back into a pipeline decision; it exists purely for
// the history query behind cmd/wheelreport.
type CycleSummary struct {
	ScannedAt            time.Time
	Kind                 string // "scan" | "run" | "monitor"
	UnderlyingsConsidered int
	BlockedByStage       map[string]int
	OrdersPlaced         int
	OrdersSkipped        int
	BestScore            float64
}
