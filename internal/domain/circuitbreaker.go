package domain

import "time"

// CircuitBreaker pauses order submission after a run of consecutive
// broker-rejected orders. Resource-exhaustion skips (insufficient
// buying power, cycle cap reached) are expected outcomes and never
// count as failures here. The breaker sits in front of the executor's
// per-cycle order cap; it never changes a pipeline verdict, only
// whether the executor will submit at all this cycle.
type CircuitBreaker struct {
	ConsecutiveFailures int
	MaxFailures          int
	CooldownUntil        time.Time
	CooldownDuration     time.Duration
	Triggered            bool
	TriggeredReason      string
}

// Open reports whether order submission is currently allowed. A tripped
// breaker allows submission again once its cooldown has elapsed; the
// next RecordSuccess then clears Triggered.
func (cb *CircuitBreaker) Open(now time.Time) bool {
	return !now.Before(cb.CooldownUntil)
}

// RecordFailure records a broker order-submission failure and trips the
// breaker once MaxFailures consecutive failures are seen.
func (cb *CircuitBreaker) RecordFailure(now time.Time) {
	cb.ConsecutiveFailures++
	if cb.MaxFailures > 0 && cb.ConsecutiveFailures >= cb.MaxFailures {
		cb.CooldownUntil = now.Add(cb.CooldownDuration)
		cb.ConsecutiveFailures = 0
		cb.Triggered = true
		cb.TriggeredReason = "consecutive order failures"
	}
}

// RecordSuccess resets the consecutive-failure counter and clears any
// cooldown that has already elapsed.
func (cb *CircuitBreaker) RecordSuccess(now time.Time) {
	cb.ConsecutiveFailures = 0
	if cb.Triggered && now.After(cb.CooldownUntil) {
		cb.Triggered = false
		cb.TriggeredReason = ""
	}
}
