package domain

// WheelPhase is the derived state of a single underlying within the
// wheel strategy. It is never stored — internal/wheel recomputes it
// from live broker positions and orders on every call.
type WheelPhase string

const (
	PhaseIdle         WheelPhase = "IDLE"
	PhaseSellingPuts  WheelPhase = "SELLING_PUTS"
	PhaseHoldingStock WheelPhase = "HOLDING_STOCK"
	PhaseSellingCalls WheelPhase = "SELLING_CALLS"
)
