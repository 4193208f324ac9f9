// Package httpapi exposes the three cycle endpoints and a health
// check over HTTP. A single process-wide mutex serializes scan/run/
// monitor so at most one cycle runs at a time; /health never waits on
// it.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mwagner-dev/wheelengine/internal/domain"
	"github.com/mwagner-dev/wheelengine/internal/executor"
	"github.com/mwagner-dev/wheelengine/internal/pipeline"
	"github.com/mwagner-dev/wheelengine/internal/ports"
)

// UniverseBuilder turns the configured symbol list into fresh
// Underlying snapshots at the start of a scan. It is its own
// collaborator (rather than inline broker calls) so tests can fake a
// universe without a full broker double.
type UniverseBuilder interface {
	Build(ctx context.Context, symbols []string) []domain.Underlying
}

// Server wires the pipeline, executor, store and notifier behind the
// HTTP surface. It holds no cycle state of its own between requests.
type Server struct {
	mu sync.Mutex

	engine   *pipeline.Engine
	executor *executor.Executor
	store    ports.OpportunityStore
	notifier ports.Notifier
	broker   ports.Broker
	clock    ports.Clock
	universe UniverseBuilder

	cfg pipeline.Config

	// onCycle, when set, receives a CycleSummary after every /scan,
	// /run and /monitor call for the reporting store. Persistence
	// failures here are logged, never surfaced to the caller — the
	// cycle itself already happened.
	onCycle func(context.Context, domain.CycleSummary)

	// onBreakerChange, when set, receives the executor's circuit
	// breaker snapshot after every /run call so a trip survives a
	// restart.
	onBreakerChange func(context.Context, domain.CircuitBreaker)
}

func New(engine *pipeline.Engine, x *executor.Executor, store ports.OpportunityStore, notifier ports.Notifier, broker ports.Broker, clock ports.Clock, universe UniverseBuilder, cfg pipeline.Config) *Server {
	return &Server{
		engine:   engine,
		executor: x,
		store:    store,
		notifier: notifier,
		broker:   broker,
		clock:    clock,
		universe: universe,
		cfg:      cfg,
	}
}

// OnCycle registers a sink for operational CycleSummary records.
func (s *Server) OnCycle(fn func(context.Context, domain.CycleSummary)) {
	s.onCycle = fn
}

// OnBreakerChange registers a sink for circuit breaker state persistence.
func (s *Server) OnBreakerChange(fn func(context.Context, domain.CircuitBreaker)) {
	s.onBreakerChange = fn
}

// Routes builds the mux with the 300s per-request timeout applied to
// the three cycle endpoints. The in-flight cycle itself is not
// cancelled on timeout — only the HTTP response is cut short to a 504
// — because http.TimeoutHandler runs the wrapped handler in its own
// goroutine and lets it finish, and each handler runs its cycle on a
// context detached from the request's cancellation, so neither the
// timeout nor a client disconnect cancels in-flight broker calls.
func (s *Server) Routes(timeout time.Duration) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("POST /scan", http.TimeoutHandler(http.HandlerFunc(s.handleScan), timeout, `{"error":"cycle exceeded request timeout, still running"}`))
	mux.Handle("POST /run", http.TimeoutHandler(http.HandlerFunc(s.handleRun), timeout, `{"error":"cycle exceeded request timeout, still running"}`))
	mux.Handle("POST /monitor", http.TimeoutHandler(http.HandlerFunc(s.handleMonitor), timeout, `{"error":"cycle exceeded request timeout, still running"}`))
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type scanResponse struct {
	ScanTime           string  `json:"scan_time"`
	PutOpportunities   int     `json:"put_opportunities"`
	CallOpportunities  int     `json:"call_opportunities"`
	TotalOpportunities int     `json:"total_opportunities"`
	DurationSeconds    float64 `json:"duration_seconds"`
	StoredForExecution bool    `json:"stored_for_execution"`
	BlobPath           string  `json:"blob_path"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.WithoutCancel(r.Context())
	start := s.clock.Now()

	underlyings := s.universe.Build(ctx, s.cfg.Universe)
	result := s.engine.Scan(ctx, underlyings, s.cfg)

	puts, calls := 0, 0
	for _, o := range result.Opportunities {
		if o.Contract.Right == domain.RightPut {
			puts++
		} else {
			calls++
		}
	}

	blobPath := ""
	stored := false
	if len(result.Opportunities) > 0 {
		path, err := s.store.Persist(ctx, start, result.Opportunities)
		if err != nil {
			slog.Error("scan: failed to persist opportunities", "err", err)
		} else {
			blobPath = path
			stored = true
		}
	}

	duration := s.clock.Now().Sub(start).Seconds()

	if err := s.notifier.NotifyScan(ctx, ports.ScanSummary{
		ScanTime:           start.UTC().Format(time.RFC3339),
		PutOpportunities:   puts,
		CallOpportunities:  calls,
		TotalOpportunities: len(result.Opportunities),
		DurationSeconds:    duration,
		StoredForExecution: stored,
		BlobPath:           blobPath,
		Opportunities:      result.Opportunities,
	}); err != nil {
		slog.Warn("scan: notifier error", "err", err)
	}

	s.reportCycle(ctx, "scan", start, len(underlyings), result.Candidates, len(result.Opportunities), 0)

	writeJSON(w, http.StatusOK, scanResponse{
		ScanTime:           start.UTC().Format(time.RFC3339),
		PutOpportunities:   puts,
		CallOpportunities:  calls,
		TotalOpportunities: len(result.Opportunities),
		DurationSeconds:    duration,
		StoredForExecution: stored,
		BlobPath:           blobPath,
	})
}

type runResponse struct {
	OpportunitiesEvaluated int     `json:"opportunities_evaluated"`
	TradesExecuted         int     `json:"trades_executed"`
	TradesFailed           int     `json:"trades_failed"`
	DurationSeconds        float64 `json:"duration_seconds"`
	BuyingPowerStart       float64 `json:"buying_power_start"`
	BuyingPowerEnd         float64 `json:"buying_power_end"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.WithoutCancel(r.Context())
	start := s.clock.Now()

	artifact, blobPath, ok, err := s.store.RetrieveLatestValid(ctx, start, s.cfg.OpportunityMaxAge)
	if err != nil {
		slog.Error("run: store retrieval failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "store retrieval failed"})
		return
	}
	if !ok {
		resp := runResponse{DurationSeconds: s.clock.Now().Sub(start).Seconds()}
		s.notifyRunAndReport(ctx, start, resp)
		writeJSON(w, http.StatusOK, resp)
		return
	}

	account, err := s.broker.GetAccount(ctx)
	if err != nil {
		slog.Error("run: account query failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "account query failed"})
		return
	}

	execResult := s.engine.Execute(ctx, artifact.Opportunities, account, s.cfg)
	runResult := s.executor.Submit(ctx, execResult.Admitted)

	if err := s.store.MarkExecuted(ctx, blobPath); err != nil {
		slog.Error("run: markExecuted failed, execution already happened", "blob_path", blobPath, "err", err)
	}

	if s.onBreakerChange != nil {
		s.onBreakerChange(ctx, s.executor.Breaker())
	}

	resp := runResponse{
		OpportunitiesEvaluated: len(artifact.Opportunities),
		TradesExecuted:         runResult.TradesExecuted,
		TradesFailed:           runResult.TradesFailed,
		DurationSeconds:        s.clock.Now().Sub(start).Seconds(),
		BuyingPowerStart:       runResult.BuyingPowerStart,
		BuyingPowerEnd:         runResult.BuyingPowerEnd,
	}
	s.notifyRunAndReport(ctx, start, resp)
	s.reportCycle(ctx, "run", start, len(artifact.Opportunities), execResult.Candidates, runResult.TradesExecuted, len(artifact.Opportunities)-runResult.TradesExecuted)

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) notifyRunAndReport(ctx context.Context, start time.Time, resp runResponse) {
	if err := s.notifier.NotifyRun(ctx, ports.RunSummary{
		OpportunitiesEvaluated: resp.OpportunitiesEvaluated,
		TradesExecuted:         resp.TradesExecuted,
		TradesFailed:           resp.TradesFailed,
		DurationSeconds:        resp.DurationSeconds,
		BuyingPowerStart:       resp.BuyingPowerStart,
		BuyingPowerEnd:         resp.BuyingPowerEnd,
	}); err != nil {
		slog.Warn("run: notifier error", "err", err)
	}
}

type monitorResponse struct {
	PositionsEvaluated int     `json:"positions_evaluated"`
	PositionsClosed    int     `json:"positions_closed"`
	Errors             int     `json:"errors"`
	DurationSeconds    float64 `json:"duration_seconds"`
}

func (s *Server) handleMonitor(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.WithoutCancel(r.Context())
	start := s.clock.Now()

	result := s.executor.Monitor(ctx)
	duration := s.clock.Now().Sub(start).Seconds()

	if err := s.notifier.NotifyMonitor(ctx, ports.MonitorSummary{
		PositionsEvaluated: result.PositionsEvaluated,
		PositionsClosed:    result.PositionsClosed,
		Errors:             result.Errors,
		DurationSeconds:    duration,
	}); err != nil {
		slog.Warn("monitor: notifier error", "err", err)
	}

	s.reportCycle(ctx, "monitor", start, result.PositionsEvaluated, nil, result.PositionsClosed, 0)

	writeJSON(w, http.StatusOK, monitorResponse{
		PositionsEvaluated: result.PositionsEvaluated,
		PositionsClosed:    result.PositionsClosed,
		Errors:             result.Errors,
		DurationSeconds:    duration,
	})
}

func (s *Server) reportCycle(ctx context.Context, kind string, scannedAt time.Time, considered int, candidates []*pipeline.CandidateResult, placed, skipped int) {
	if s.onCycle == nil {
		return
	}
	blocked := make(map[string]int)
	best := 0.0
	for _, c := range candidates {
		for stage, v := range c.Verdicts {
			if !v.Passed {
				blocked[stage]++
			}
		}
	}
	s.onCycle(ctx, domain.CycleSummary{
		ScannedAt:             scannedAt,
		Kind:                  kind,
		UnderlyingsConsidered: considered,
		BlockedByStage:        blocked,
		OrdersPlaced:          placed,
		OrdersSkipped:         skipped,
		BestScore:             best,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
