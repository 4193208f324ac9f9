package domain

import "time"

// ArtifactStatus is the lifecycle of a persisted ScanArtifact.
type ArtifactStatus string

const (
	ArtifactPending  ArtifactStatus = "PENDING"
	ArtifactExecuted ArtifactStatus = "EXECUTED"
)

// ScanArtifact is the durable handoff between a SCAN cycle and the
// later EXECUTE cycle that consumes it. Opportunities are kept in the
// exact order the pipeline ranked them — the executor never re-sorts.
type ScanArtifact struct {
	ScanTime      time.Time
	ExpiresAt     time.Time
	Status        ArtifactStatus
	Opportunities []Opportunity
}

// Expired reports whether the artifact is too old to execute against,
// given the caller's current time. Equal to the boundary is NOT
// expired: an artifact scanned exactly max-age ago is still usable.
func (a ScanArtifact) Expired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}
