package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/BrandonDHaskell/rollcall/internal/rollcall/reconcile"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/store"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

var tracer = otel.Tracer("github.com/BrandonDHaskell/rollcall/internal/rollcall/service")

// ReconcileService runs reconciliations and keeps a history of them.
type ReconcileService struct {
	registry *RosterRegistry
	punches  store.PunchStore
	runs     store.RunStore
	logger   *log.Logger
	now      func() time.Time
}

// NewReconcileService wires the service.  registry and punches may be nil
// when only uploaded files are reconciled; runs may be nil to skip history.
func NewReconcileService(reg *RosterRegistry, ps store.PunchStore, rs store.RunStore, logger *log.Logger) *ReconcileService {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &ReconcileService{
		registry: reg,
		punches:  ps,
		runs:     rs,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run reconciles roster against events.  The returned run ID is empty when
// the run could not be recorded; the report is still valid.
func (s *ReconcileService) Run(ctx context.Context, roster types.RosterTable, events []types.EventRecord, opts types.Options) (types.Report, string, error) {
	ctx, span := tracer.Start(ctx, "reconcile",
		trace.WithAttributes(
			attribute.String("rollcall.match", string(opts.Match)),
			attribute.Bool("rollcall.case_fold", opts.CaseFold),
			attribute.Int("rollcall.roster_entries", len(roster.Entries)),
			attribute.Int("rollcall.events", len(events)),
		))
	defer span.End()

	rep, err := reconcile.Reconcile(roster, events, opts)
	if err != nil {
		reconcileFailures.Add(1)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return types.Report{}, "", err
	}
	reconcileRuns.Add(1)
	span.SetAttributes(
		attribute.Int("rollcall.known_active", rep.Stats.KnownActive),
		attribute.Int("rollcall.unknown", rep.Stats.Unknown),
		attribute.Int("rollcall.days", rep.Stats.Days),
	)

	return rep, s.recordRun(ctx, rep, opts), nil
}

// RunStored reconciles the stored roster against stored punches with
// from <= OccurredAt < to.  The roster and every punch in the window must
// have been imported with opts.Match.
func (s *ReconcileService) RunStored(ctx context.Context, opts types.Options, from, to time.Time) (types.Report, string, error) {
	if s.registry == nil || s.punches == nil {
		return types.Report{}, "", ErrNoStorage
	}

	match := opts.Match
	if match == "" {
		match = types.MatchByID
	}

	roster, err := s.registry.Current(ctx)
	if err != nil {
		return types.Report{}, "", fmt.Errorf("load roster: %w", err)
	}
	if roster.Match != "" && roster.Match != match {
		return types.Report{}, "", fmt.Errorf("%w: roster match=%s, requested match=%s", ErrMatchMismatch, roster.Match, match)
	}
	recs, err := s.punches.ListPunches(ctx, from, to)
	if err != nil {
		return types.Report{}, "", fmt.Errorf("list punches: %w", err)
	}
	for _, r := range recs {
		if r.Match != "" && r.Match != match {
			return types.Report{}, "", fmt.Errorf("%w: import %s match=%s, requested match=%s", ErrMatchMismatch, r.ImportID, r.Match, match)
		}
	}

	events := make([]types.EventRecord, 0, len(recs))
	for _, r := range recs {
		events = append(events, types.EventRecord{
			Key:       r.Identity,
			Timestamp: r.OccurredAt.Format(time.RFC3339Nano),
			Kind:      r.Kind,
			FirstName: r.FirstName,
			LastName:  r.LastName,
			Door:      r.Door,
		})
	}
	return s.Run(ctx, roster, events, opts)
}

func (s *ReconcileService) History(ctx context.Context, limit int) ([]types.RunSummary, error) {
	if s.runs == nil {
		return []types.RunSummary{}, nil
	}
	recs, err := s.runs.ListRuns(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]types.RunSummary, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Summary())
	}
	return out, nil
}

func (s *ReconcileService) Lookup(ctx context.Context, id string) (store.RunRecord, error) {
	if s.runs == nil {
		return store.RunRecord{}, store.ErrNotFound
	}
	return s.runs.GetRun(ctx, strings.TrimSpace(id))
}

// recordRun persists the run.  A failed write is logged and the caller
// still gets its report.
func (s *ReconcileService) recordRun(ctx context.Context, rep types.Report, opts types.Options) string {
	if s.runs == nil {
		return ""
	}

	tz := "UTC"
	if opts.Location != nil {
		tz = opts.Location.String()
	}
	rec := store.RunRecord{
		ID:             uuid.NewString(),
		CreatedAt:      s.now(),
		Match:          opts.Match,
		CaseFold:       opts.CaseFold,
		CountableKinds: opts.CountableKinds,
		Timezone:       tz,
		Report:         rep,
	}
	if rec.Match == "" {
		rec.Match = types.MatchByID
	}

	if err := s.runs.SaveRun(ctx, rec); err != nil {
		runSaveFailures.Add(1)
		s.logger.Printf("reconcile run save error: %v", err)
		return ""
	}
	return rec.ID
}
