package httpapi

import (
	"bytes"
	"context"
	"errors"
	"expvar"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/BrandonDHaskell/rollcall/internal/rollcall/export"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/reconcile"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/service"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/store"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

const defaultMaxUpload = 32 << 20

type Dependencies struct {
	Logger           *log.Logger
	Addr             string
	ReconcileService *service.ReconcileService
	PunchService     *service.PunchService
	RosterRegistry   *service.RosterRegistry
	Defaults         Defaults

	// MaxUploadBytes caps multipart bodies.  Defaults to 32 MiB.
	MaxUploadBytes int64

	// Probe backs /healthz.  Nil means always healthy.
	Probe func(ctx context.Context) error

	// Wrap decorates the final handler, e.g. with otelhttp.
	Wrap func(http.Handler) http.Handler
}

type Server struct {
	httpServer   *http.Server
	logger       *log.Logger
	mux          *http.ServeMux
	reconcileSvc *service.ReconcileService
	punchSvc     *service.PunchService
	registry     *service.RosterRegistry
	defaults     Defaults
	maxUpload    int64
	probe        func(ctx context.Context) error
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()
	if d.Logger == nil {
		d.Logger = log.New(io.Discard, "", 0)
	}

	maxUpload := d.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}

	s := &Server{
		logger:       d.Logger,
		mux:          mux,
		reconcileSvc: d.ReconcileService,
		punchSvc:     d.PunchService,
		registry:     d.RosterRegistry,
		defaults:     d.Defaults,
		maxUpload:    maxUpload,
		probe:        d.Probe,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", expvar.Handler())

	mux.HandleFunc("POST /v1/reconcile", s.handleReconcile)
	mux.HandleFunc("POST /v1/reconcile/stored", s.handleReconcileStored)
	mux.HandleFunc("PUT /v1/roster", s.handlePutRoster)
	mux.HandleFunc("GET /v1/roster", s.handleGetRoster)
	mux.HandleFunc("POST /v1/punches", s.handleImportPunches)
	mux.HandleFunc("GET /v1/runs", s.handleListRuns)
	mux.HandleFunc("GET /v1/runs/{id}", s.handleGetRun)

	var handler http.Handler = loggingMiddleware(d.Logger, mux)
	if d.Wrap != nil {
		handler = d.Wrap(handler)
	}

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.probe != nil {
		if err := s.probe(r.Context()); err != nil {
			s.logger.Printf("health probe error: %v", err)
			writeError(w, http.StatusServiceUnavailable, "unavailable", "storage unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "server_time": now()})
}

// ── Reconcile ────────────────────────────────────────────────────────────────

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	q, opts, ok := s.queryOptions(w, r)
	if !ok {
		return
	}
	if err := parseUpload(w, r, s.maxUpload); err != nil {
		if !writeUploadError(w, err) {
			writeError(w, http.StatusBadRequest, "bad_form", "expected multipart/form-data with roster and events files")
		}
		return
	}

	roster, _, err := readRosterPart(r, opts.Match)
	if err != nil {
		s.writeIngestError(w, "roster", err)
		return
	}
	events, _, err := readEventsPart(r, opts)
	if err != nil {
		s.writeIngestError(w, "events", err)
		return
	}

	rep, runID, err := s.reconcileSvc.Run(r.Context(), roster, events, opts)
	if err != nil {
		s.writeServiceError(w, "reconcile", err)
		return
	}
	s.writeReport(w, r, q, types.ReconcileResponse{OK: true, RunID: runID, Report: rep, ServerTime: now()})
}

func (s *Server) handleReconcileStored(w http.ResponseWriter, r *http.Request) {
	q, opts, ok := s.queryOptions(w, r)
	if !ok {
		return
	}
	from, to, err := q.window(opts.Location)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_query", err.Error())
		return
	}

	rep, runID, err := s.reconcileSvc.RunStored(r.Context(), opts, from, to)
	if err != nil {
		s.writeServiceError(w, "reconcile stored", err)
		return
	}
	s.writeReport(w, r, q, types.ReconcileResponse{OK: true, RunID: runID, Report: rep, ServerTime: now()})
}

// ── Roster ───────────────────────────────────────────────────────────────────

func (s *Server) handlePutRoster(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		writeError(w, http.StatusNotImplemented, "no_storage", service.ErrNoStorage.Error())
		return
	}
	_, opts, ok := s.queryOptions(w, r)
	if !ok {
		return
	}
	if err := parseUpload(w, r, s.maxUpload); err != nil {
		if !writeUploadError(w, err) {
			writeError(w, http.StatusBadRequest, "bad_form", "expected multipart/form-data with a roster file")
		}
		return
	}

	table, _, err := readRosterPart(r, opts.Match)
	if err != nil {
		s.writeIngestError(w, "roster", err)
		return
	}
	kept, err := s.registry.Replace(r.Context(), table)
	if err != nil {
		s.writeServiceError(w, "roster replace", err)
		return
	}

	writeJSON(w, http.StatusOK, types.RosterResponse{
		OK:         true,
		Match:      kept.Match,
		Entries:    len(kept.Entries),
		Columns:    kept.Columns,
		ServerTime: now(),
	})
}

func (s *Server) handleGetRoster(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		writeError(w, http.StatusNotImplemented, "no_storage", service.ErrNoStorage.Error())
		return
	}
	table, err := s.registry.Current(r.Context())
	if err != nil {
		s.writeServiceError(w, "roster load", err)
		return
	}
	if table.Columns == nil {
		table.Columns = []string{}
	}
	if table.Entries == nil {
		table.Entries = []types.RosterEntry{}
	}
	writeJSON(w, http.StatusOK, table)
}

// ── Punches ──────────────────────────────────────────────────────────────────

func (s *Server) handleImportPunches(w http.ResponseWriter, r *http.Request) {
	if s.punchSvc == nil {
		writeError(w, http.StatusNotImplemented, "no_storage", service.ErrNoStorage.Error())
		return
	}
	_, opts, ok := s.queryOptions(w, r)
	if !ok {
		return
	}
	if err := parseUpload(w, r, s.maxUpload); err != nil {
		if !writeUploadError(w, err) {
			writeError(w, http.StatusBadRequest, "bad_form", "expected multipart/form-data with an events file")
		}
		return
	}

	events, source, err := readEventsPart(r, opts)
	if err != nil {
		s.writeIngestError(w, "events", err)
		return
	}
	resp, err := s.punchSvc.Import(r.Context(), source, opts.Match, events)
	if err != nil {
		s.writeServiceError(w, "punch import", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ── Runs ─────────────────────────────────────────────────────────────────────

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		writeValidationError(w, err)
		return
	}
	runs, err := s.reconcileSvc.History(r.Context(), q.limit())
	if err != nil {
		s.writeServiceError(w, "list runs", err)
		return
	}

	if q.Format == "proto" || wantsProtobuf(r) {
		msg, err := runSummariesToProto(runs)
		if err != nil {
			s.writeServiceError(w, "list runs", err)
			return
		}
		writeProto(w, http.StatusOK, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "runs": runs, "server_time": now()})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		writeValidationError(w, err)
		return
	}
	rec, err := s.reconcileSvc.Lookup(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, "get run", err)
		return
	}
	s.writeReport(w, r, q, types.ReconcileResponse{OK: true, RunID: rec.ID, Report: rec.Report, ServerTime: now()})
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func (s *Server) queryOptions(w http.ResponseWriter, r *http.Request) (reconcileQuery, types.Options, bool) {
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		writeValidationError(w, err)
		return q, types.Options{}, false
	}
	opts, err := q.options(s.defaults)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_query", err.Error())
		return q, opts, false
	}
	return q, opts, true
}

func writeValidationError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: responseError{
		Code:    "bad_query",
		Message: "invalid query parameters",
		Fields:  validationFields(err),
	}})
}

func (s *Server) writeIngestError(w http.ResponseWriter, part string, err error) {
	if writeUploadError(w, err) {
		return
	}
	s.logger.Printf("%s ingest error: %v", part, err)
	writeError(w, http.StatusBadRequest, "bad_file", fmt.Sprintf("cannot read %s file", part))
}

func (s *Server) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, reconcile.ErrInvalidMatch):
		writeError(w, http.StatusBadRequest, "bad_query", err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "run not found")
	case errors.Is(err, service.ErrNoStorage):
		writeError(w, http.StatusNotImplemented, "no_storage", err.Error())
	case errors.Is(err, service.ErrMatchMismatch):
		writeError(w, http.StatusConflict, "match_mismatch", err.Error())
	case errors.Is(err, service.ErrEmptyImport), errors.Is(err, service.ErrEmptyRoster):
		writeError(w, http.StatusUnprocessableEntity, "nothing_to_store", err.Error())
	default:
		s.logger.Printf("%s error: %v", op, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}

// writeReport renders resp in the format chosen by ?format= or Accept.
func (s *Server) writeReport(w http.ResponseWriter, r *http.Request, q reconcileQuery, resp types.ReconcileResponse) {
	format := q.Format
	if format == "" && wantsProtobuf(r) {
		format = "proto"
	}

	var buf bytes.Buffer
	switch format {
	case "", "json":
		writeJSON(w, http.StatusOK, resp)
	case "proto":
		msg, err := reportToProto(resp)
		if err != nil {
			s.writeServiceError(w, "render proto", err)
			return
		}
		writeProto(w, http.StatusOK, msg)
	case "csv":
		table := q.Table
		if table == "" {
			table = export.TableRoster
		}
		if err := export.WriteCSV(&buf, resp.Report, table); err != nil {
			s.writeServiceError(w, "render csv", err)
			return
		}
		writeAttachment(w, "text/csv; charset=utf-8", "rollcall-"+table+".csv", &buf)
	case "xlsx":
		if err := export.WriteWorkbook(&buf, resp.Report); err != nil {
			s.writeServiceError(w, "render xlsx", err)
			return
		}
		writeAttachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "rollcall.xlsx", &buf)
	case "pdf":
		if err := export.WritePDF(&buf, resp.Report, "Attendance reconciliation"); err != nil {
			s.writeServiceError(w, "render pdf", err)
			return
		}
		writeAttachment(w, "application/pdf", "rollcall.pdf", &buf)
	}
}
