package domain

import "time"

// Bar is a single OHLCV daily bar, used by the gap-risk filter (gap
// frequency, historical volatility and the latest overnight gap, all
// Stage 2) and by the universe builder's average volume for Stage 1.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}
