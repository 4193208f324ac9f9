package domain

// Underlying is the equity candidate for a wheel cycle, created from a
// broker quote+metrics snapshot at scan entry. It is immutable for the
// remainder of the scan.
type Underlying struct {
	Symbol              string
	Price               float64
	AvgVolume           float64
	HistoricalVolatility float64
}
