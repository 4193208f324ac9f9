package domain

// Opportunity is an OptionContract augmented with ranking metadata
// produced by the option chain selector. Score and annual-return are
// derived once at scan time and persisted with the artifact, so the
// execute cycle never recomputes them.
type Opportunity struct {
	Contract OptionContract

	Score                float64 // annual_return_estimate * (1 - |delta|), descending rank key
	AnnualReturnEstimate float64 // (mid / strike) * (365 / dte)
	ExpectedPremium      float64 // mid * 100: premium for one contract, set by the option chain selector
}

// Mid is a passthrough convenience so callers don't reach into Contract
// for the one field nearly every stage inspects.
func (o Opportunity) Mid() float64 {
	f, _ := o.Contract.Mid().Float64()
	return f
}

// Underlying is the symbol this opportunity trades against.
func (o Opportunity) Underlying() string {
	return o.Contract.Underlying
}

// Valid checks that every field order sizing needs is populated, mid
// is positive, and DTE respects the configured ceiling. maxDTE <= 0
// means "no ceiling configured" and always passes that leg.
func (o Opportunity) Valid(maxDTE int) bool {
	if o.Contract.OCCSymbol == "" || o.Contract.Underlying == "" {
		return false
	}
	if o.Mid() <= 0 {
		return false
	}
	if maxDTE > 0 && o.Contract.DTE > maxDTE {
		return false
	}
	return true
}

// Less implements the strict ranking order: score desc, then mid desc,
// then dte asc. Used directly by sort.Slice so ranking stays
// deterministic across repeated runs against the same inputs.
func Less(a, b Opportunity) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Mid() != b.Mid() {
		return a.Mid() > b.Mid()
	}
	return a.Contract.DTE < b.Contract.DTE
}
