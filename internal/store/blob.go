// Package store implements the Opportunity Store: a content-addressed,
// time-partitioned blob of JSON files on disk (the durable, authoritative
// record), indexed by a local SQLite table for fast "latest valid"
// lookups so a hot /run call never needs to list a directory tree.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/mwagner-dev/wheelengine/internal/apperr"
	"github.com/mwagner-dev/wheelengine/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS artifacts (
	blob_path  TEXT PRIMARY KEY,
	scan_date  TEXT NOT NULL,
	scan_time  DATETIME NOT NULL,
	expires_at DATETIME NOT NULL,
	status     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_artifacts_scan_time ON artifacts(scan_time DESC);
`

// blobArtifact is the on-disk JSON shape. Field names are the wire
// contract consumers of the blob rely on; they intentionally diverge
// from the Go field names in domain.ScanArtifact.
type blobArtifact struct {
	ScanTime      time.Time            `json:"scan_time"`
	ExpiresAt     time.Time            `json:"expires_at"`
	Status        domain.ArtifactStatus `json:"status"`
	Opportunities []blobOpportunity    `json:"opportunities"`
}

type blobOpportunity struct {
	OCCSymbol    string  `json:"symbol"`
	Underlying   string  `json:"underlying"`
	Right        string  `json:"right"`
	Strike       string  `json:"strike"`
	Mid          string  `json:"mid"`
	DTE          int     `json:"dte"`
	Delta        float64 `json:"delta"`
	Score        float64 `json:"score"`
	AnnualReturn float64 `json:"annual_return_estimate"`
	ExpectedPrem float64 `json:"expected_premium"`
}

// Store is the filesystem+sqlite-index OpportunityStore implementation.
type Store struct {
	root   string
	db     *sql.DB
	maxAge time.Duration
}

// Open creates (or reopens) a Store rooted at dir, applying the index
// schema if this is the first run. maxAge is stamped onto every
// artifact this Store persists, as expires_at = scan_time + maxAge.
func Open(dir string, indexPath string, maxAge time.Duration) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "store: create root dir", err)
	}

	db, err := sql.Open("sqlite", indexPath)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "store: open index", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperr.Wrap(apperr.KindStorage, "store: apply index schema", err)
	}

	return &Store{root: dir, db: db, maxAge: maxAge}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Persist writes a new ScanArtifact blob and records it in the index.
func (s *Store) Persist(ctx context.Context, scanTime time.Time, opportunities []domain.Opportunity) (string, error) {
	scanTime = scanTime.UTC()
	expiresAt := scanTime.Add(s.maxAge)

	artifact := blobArtifact{
		ScanTime:      scanTime,
		ExpiresAt:     expiresAt,
		Status:        domain.ArtifactPending,
		Opportunities: toBlobOpportunities(opportunities),
	}

	relPath := blobPathFor(scanTime)
	absPath := filepath.Join(s.root, relPath)

	if err := writeBlobAtomic(absPath, artifact); err != nil {
		return "", apperr.Wrap(apperr.KindStorage, "store: persist blob", err)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artifacts (blob_path, scan_date, scan_time, expires_at, status) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(blob_path) DO UPDATE SET scan_time=excluded.scan_time, expires_at=excluded.expires_at, status=excluded.status`,
		relPath, scanTime.Format("2006-01-02"), scanTime, expiresAt, string(domain.ArtifactPending),
	)
	if err != nil {
		// The blob landed durably; the index is read-acceleration only,
		// so a failure here does not fail the persist.
		return relPath, nil
	}

	return relPath, nil
}

// RetrieveLatestValid finds the most recent PENDING artifact within
// maxAge of now, preferring the index and falling back to a directory
// scan if the index lookup itself fails. maxAge here only narrows the
// SQL query window; the definitive validity check is each artifact's
// own persisted expires_at, via ScanArtifact.Expired.
func (s *Store) RetrieveLatestValid(ctx context.Context, now time.Time, maxAge time.Duration) (domain.ScanArtifact, string, bool, error) {
	now = now.UTC()
	cutoff := now.Add(-maxAge)

	rows, err := s.db.QueryContext(ctx,
		`SELECT blob_path FROM artifacts WHERE status = ? AND scan_time >= ? ORDER BY scan_time DESC LIMIT 1`,
		string(domain.ArtifactPending), cutoff,
	)
	if err == nil {
		defer rows.Close()
		if rows.Next() {
			var relPath string
			if err := rows.Scan(&relPath); err == nil {
				artifact, ok, rerr := s.readIfValid(relPath, now)
				if rerr == nil && ok {
					return artifact, relPath, true, nil
				}
			}
		}
	}

	return s.scanDirectoryFallback(now)
}

// MarkExecuted transitions the blob and index row at blobPath to
// EXECUTED. Calling it on an already-EXECUTED artifact is a no-op.
func (s *Store) MarkExecuted(ctx context.Context, blobPath string) error {
	absPath := filepath.Join(s.root, blobPath)

	artifact, err := readBlob(absPath)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, "store: mark executed read", err)
	}
	if artifact.Status == domain.ArtifactExecuted {
		return nil
	}
	artifact.Status = domain.ArtifactExecuted

	if err := writeBlobAtomic(absPath, artifact); err != nil {
		return apperr.Wrap(apperr.KindStorage, "store: mark executed write", err)
	}

	_, _ = s.db.ExecContext(ctx,
		`UPDATE artifacts SET status = ? WHERE blob_path = ?`,
		string(domain.ArtifactExecuted), blobPath,
	)
	return nil
}

// readIfValid loads the blob at relPath and reports whether it is a
// PENDING artifact not yet expired as of now. Expired is the single
// source of truth for the boundary check; no duplicate comparison here.
func (s *Store) readIfValid(relPath string, now time.Time) (domain.ScanArtifact, bool, error) {
	absPath := filepath.Join(s.root, relPath)
	blob, err := readBlob(absPath)
	if err != nil {
		return domain.ScanArtifact{}, false, err
	}
	if blob.Status != domain.ArtifactPending {
		return domain.ScanArtifact{}, false, nil
	}
	artifact := fromBlobArtifact(blob)
	if artifact.Expired(now) {
		return domain.ScanArtifact{}, false, nil
	}
	return artifact, true, nil
}

// scanDirectoryFallback walks today's and yesterday's partitions in
// reverse chronological order. It only runs when the index query
// itself failed or found nothing, so it never needs to be fast.
func (s *Store) scanDirectoryFallback(now time.Time) (domain.ScanArtifact, string, bool, error) {
	for _, day := range []time.Time{now, now.Add(-24 * time.Hour)} {
		dir := filepath.Join(s.root, "opportunities", day.Format("2006-01-02"))
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() > entries[j].Name() })
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			rel, _ := filepath.Rel(s.root, filepath.Join(dir, e.Name()))
			artifact, ok, err := s.readIfValid(rel, now)
			if err != nil || !ok {
				continue
			}
			return artifact, rel, true, nil
		}
	}
	return domain.ScanArtifact{}, "", false, nil
}

func blobPathFor(scanTime time.Time) string {
	return filepath.Join("opportunities", scanTime.Format("2006-01-02"), scanTime.Format("15-04")+".json")
}

func writeBlobAtomic(absPath string, artifact blobArtifact) error {
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return err
	}
	tmp := absPath + ".tmp"
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, absPath)
}

func readBlob(absPath string) (blobArtifact, error) {
	data, err := os.ReadFile(absPath)
	if err != nil {
		return blobArtifact{}, err
	}
	var artifact blobArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return blobArtifact{}, fmt.Errorf("store: decode blob %s: %w", absPath, err)
	}
	return artifact, nil
}

func toBlobOpportunities(opps []domain.Opportunity) []blobOpportunity {
	out := make([]blobOpportunity, 0, len(opps))
	for _, o := range opps {
		out = append(out, blobOpportunity{
			OCCSymbol:    o.Contract.OCCSymbol,
			Underlying:   o.Contract.Underlying,
			Right:        string(o.Contract.Right),
			Strike:       o.Contract.Strike.String(),
			Mid:          o.Contract.Mid().String(),
			DTE:          o.Contract.DTE,
			Delta:        o.Contract.Delta,
			Score:        o.Score,
			AnnualReturn: o.AnnualReturnEstimate,
			ExpectedPrem: o.ExpectedPremium,
		})
	}
	return out
}

func fromBlobArtifact(b blobArtifact) domain.ScanArtifact {
	opps := make([]domain.Opportunity, 0, len(b.Opportunities))
	for _, bo := range b.Opportunities {
		strike, _ := decimal.NewFromString(bo.Strike)
		mid, _ := decimal.NewFromString(bo.Mid)
		// Ask/bid straddling mid isn't recoverable from the blob, so
		// reconstruct a symmetric bid/ask around it; only Mid() is
		// relied on downstream of retrieval.
		opps = append(opps, domain.Opportunity{
			Contract: domain.OptionContract{
				OCCSymbol:  bo.OCCSymbol,
				Underlying: bo.Underlying,
				Right:      domain.Right(bo.Right),
				Strike:     strike,
				Bid:        mid,
				Ask:        mid,
				DTE:        bo.DTE,
				Delta:      bo.Delta,
			},
			Score:                bo.Score,
			AnnualReturnEstimate: bo.AnnualReturn,
			ExpectedPremium:      bo.ExpectedPrem,
		})
	}
	return domain.ScanArtifact{
		ScanTime:      b.ScanTime,
		ExpiresAt:     b.ExpiresAt,
		Status:        b.Status,
		Opportunities: opps,
	}
}
