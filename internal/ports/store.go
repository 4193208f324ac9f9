package ports

import (
	"context"
	"time"

	"github.com/mwagner-dev/wheelengine/internal/domain"
)

// OpportunityStore is the durable handoff between a scan cycle and the
// later execute cycle that consumes it. Implementations are free to
// choose any backing medium as long as persist/retrieve round-trip the
// artifact's fields exactly and markExecuted is idempotent.
type OpportunityStore interface {
	// Persist writes a new ScanArtifact with status PENDING and returns
	// the path/key it was written under.
	Persist(ctx context.Context, scanTime time.Time, opportunities []domain.Opportunity) (string, error)

	// RetrieveLatestValid returns the most recent PENDING artifact no
	// older than maxAge, or ok=false if none qualifies.
	RetrieveLatestValid(ctx context.Context, now time.Time, maxAge time.Duration) (artifact domain.ScanArtifact, blobPath string, ok bool, err error)

	// MarkExecuted transitions the artifact at blobPath to EXECUTED.
	// Calling it twice on the same path is a no-op, not an error.
	MarkExecuted(ctx context.Context, blobPath string) error
}
