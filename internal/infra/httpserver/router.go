package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	appanalysis "github.com/bryanwahyu/synthscreen/internal/application/analysis"
	appsession "github.com/bryanwahyu/synthscreen/internal/application/session"
	"github.com/bryanwahyu/synthscreen/internal/domain/analysis"
	"github.com/bryanwahyu/synthscreen/internal/domain/credentials"
	"github.com/bryanwahyu/synthscreen/internal/domain/runs"
	"github.com/bryanwahyu/synthscreen/internal/domain/screening"
	domsession "github.com/bryanwahyu/synthscreen/internal/domain/session"
	"github.com/bryanwahyu/synthscreen/internal/middleware"
)

type Router struct {
	sessionSvc *appsession.Service
	aiSvc      *appanalysis.Service
}

func NewRouter(sessionSvc *appsession.Service, aiSvc *appanalysis.Service) http.Handler {
	r := &Router{sessionSvc: sessionSvc, aiSvc: aiSvc}
	mux := chi.NewRouter()

	mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.Route("/v1/{tenant}", func(rt chi.Router) {
		rt.Put("/credentials", r.wrap(r.handleCredentialsUpdate))
		rt.Get("/credentials", r.wrap(r.handleCredentialsStatus))
		rt.Post("/credentials/persist", r.wrap(r.handleCredentialsPersist))

		rt.Post("/screen", r.wrap(r.handleScreen))
		rt.Post("/sequence/stats", r.wrap(r.handleSequenceStats))

		rt.Get("/session", r.wrap(r.handleSessionState))
		rt.Post("/session/reset", r.wrap(r.handleSessionReset))
		rt.Post("/session/view", r.wrap(r.handleSessionView))
		rt.Post("/session/records/{index}/toggle", r.wrap(r.handleToggleRecord))
		rt.Post("/session/hazards/{record}/{hazard}/toggle", r.wrap(r.handleToggleHazard))
		rt.Get("/session/result", r.wrap(r.handleSessionResult))
		rt.Get("/session/result/export", r.wrap(r.handleSessionExport))

		rt.Get("/screenings/latest", r.wrap(r.handleLatest))
		rt.Get("/screenings/{id}", r.wrap(r.handleGet))
		rt.Get("/screenings/{id}/errors", r.wrap(r.handleRunErrors))
		rt.Get("/summary", r.wrap(r.handleSummary))

		rt.Post("/ai/analyze", r.wrap(r.handleAIAnalyze))
		rt.Get("/ai/analyze", r.wrap(r.handleAIAnalyzeList))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequest marks a handler error as a client fault.
type badRequest struct{ err error }

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			var vErr *appsession.ValidationError
			var bErr badRequest
			switch {
			case errors.As(err, &vErr):
				writeError(w, http.StatusBadRequest, vErr.Error())
			case errors.As(err, &bErr):
				writeError(w, http.StatusBadRequest, bErr.Error())
			case errors.Is(err, appsession.ErrScreenInFlight):
				writeError(w, http.StatusConflict, err.Error())
			case errors.Is(err, appsession.ErrNoResult):
				writeError(w, http.StatusNotFound, err.Error())
			case errors.Is(err, sql.ErrNoRows):
				writeError(w, http.StatusNotFound, "not found")
			case errors.Is(err, screening.ErrEngineUnavailable):
				writeError(w, http.StatusServiceUnavailable, err.Error())
			case errors.Is(err, analysis.ErrQuotaExceeded):
				writeError(w, http.StatusTooManyRequests, "ai quota exceeded")
			default:
				writeError(w, http.StatusInternalServerError, err.Error())
			}
		}
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

// PUT /v1/{tenant}/credentials
// Empty keyservers/hdb fall back to the SecureDNA production defaults.
func (r *Router) handleCredentialsUpdate(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	var body struct {
		Token      string `json:"token"`
		Keypair    string `json:"keypair"`
		Passphrase string `json:"passphrase"`
		Keyservers string `json:"keyservers"`
		HDB        string `json:"hdb"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return err
	}
	if err := middleware.ValidateDomainList(body.Keyservers); err != nil {
		return badRequest{err}
	}
	if err := middleware.ValidateDomainList(body.HDB); err != nil {
		return badRequest{err}
	}

	creds, err := r.sessionSvc.Credentials(tenant)
	if err != nil {
		fmt.Printf("credential restore warning tenant=%s: %v\n", tenant, err)
	}
	if err := creds.Update(credentials.Credentials{
		Token:      body.Token,
		Keypair:    body.Keypair,
		Passphrase: body.Passphrase,
		Keyservers: body.Keyservers,
		HDB:        body.HDB,
	}); err != nil {
		return err
	}
	return writeJSON(w, creds.Status())
}

// GET /v1/{tenant}/credentials
func (r *Router) handleCredentialsStatus(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	creds, err := r.sessionSvc.Credentials(tenant)
	if err != nil {
		fmt.Printf("credential restore warning tenant=%s: %v\n", tenant, err)
	}
	return writeJSON(w, creds.Status())
}

// POST /v1/{tenant}/credentials/persist
// Body: {"persist": true|false}. Turning persist off clears every stored key.
func (r *Router) handleCredentialsPersist(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	var body struct {
		Persist bool `json:"persist"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return err
	}
	creds, err := r.sessionSvc.Credentials(tenant)
	if err != nil {
		fmt.Printf("credential restore warning tenant=%s: %v\n", tenant, err)
	}
	if err := creds.SetPersist(body.Persist); err != nil {
		return err
	}
	return writeJSON(w, creds.Status())
}

// POST /v1/{tenant}/screen
// Body: {"sequence": "..."}
// Validation runs before anything is queued; the engine call itself runs in
// the background while the session endpoints report progress.
func (r *Router) handleScreen(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	var body struct {
		Sequence string `json:"sequence"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return err
	}

	if err := middleware.ValidateTenantID(tenant); err != nil {
		return badRequest{err}
	}
	if body.Sequence != "" {
		if err := middleware.ValidateSequence(body.Sequence); err != nil {
			return badRequest{err}
		}
	}

	ctrl, err := r.sessionSvc.Session(tenant)
	if err != nil {
		fmt.Printf("credential restore warning tenant=%s: %v\n", tenant, err)
	}
	id, run, err := ctrl.Start(body.Sequence)
	if err != nil {
		return err
	}

	// Jalankan di background, biar jalan sampai selesai
	go func() {
		middleware.IncrementScreens()
		middleware.IncrementScreensRunning()
		defer middleware.DecrementScreensRunning()

		if err := run(context.Background()); err != nil {
			middleware.IncrementScreensFailed()
			fmt.Printf("background screen error tenant=%s run=%s: %v\n", tenant, id, err)
			return
		}
		fmt.Printf("screen finished: tenant=%s run=%s\n", tenant, id)
	}()

	w.WriteHeader(http.StatusAccepted)
	return writeJSON(w, map[string]any{
		"status":   "queued",
		"tenant":   tenant,
		"run_id":   id,
		"message":  "screening started in background",
		"queuedAt": time.Now(),
	})
}

// POST /v1/{tenant}/sequence/stats
// Pre-flight record/symbol count for a pasted FASTA sequence.
func (r *Router) handleSequenceStats(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Sequence string `json:"sequence"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return err
	}
	return writeJSON(w, screening.CountSequence(body.Sequence))
}

// GET /v1/{tenant}/session
func (r *Router) handleSessionState(w http.ResponseWriter, req *http.Request) error {
	ctrl, err := r.session(req)
	if err != nil {
		return err
	}
	return writeJSON(w, ctrl.State())
}

// POST /v1/{tenant}/session/reset
func (r *Router) handleSessionReset(w http.ResponseWriter, req *http.Request) error {
	ctrl, err := r.session(req)
	if err != nil {
		return err
	}
	ctrl.Reset()
	return writeJSON(w, ctrl.State())
}

// POST /v1/{tenant}/session/view
// Body: {"mode": "summary"|"structured"}
func (r *Router) handleSessionView(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return err
	}
	mode, err := domsession.ParseViewMode(body.Mode)
	if err != nil {
		return badRequest{err}
	}
	ctrl, err := r.session(req)
	if err != nil {
		return err
	}
	ctrl.SetViewMode(mode)
	return writeJSON(w, ctrl.State())
}

// POST /v1/{tenant}/session/records/{index}/toggle
func (r *Router) handleToggleRecord(w http.ResponseWriter, req *http.Request) error {
	index, err := strconv.Atoi(chi.URLParam(req, "index"))
	if err != nil {
		return badRequest{fmt.Errorf("invalid record index: %w", err)}
	}
	ctrl, err := r.session(req)
	if err != nil {
		return err
	}
	ctrl.ToggleRecord(index)
	return writeJSON(w, ctrl.State())
}

// POST /v1/{tenant}/session/hazards/{record}/{hazard}/toggle
func (r *Router) handleToggleHazard(w http.ResponseWriter, req *http.Request) error {
	record, err := strconv.Atoi(chi.URLParam(req, "record"))
	if err != nil {
		return badRequest{fmt.Errorf("invalid record index: %w", err)}
	}
	hazard, err := strconv.Atoi(chi.URLParam(req, "hazard"))
	if err != nil {
		return badRequest{fmt.Errorf("invalid hazard index: %w", err)}
	}
	ctrl, err := r.session(req)
	if err != nil {
		return err
	}
	ctrl.ToggleHazard(domsession.HazardKey{Record: record, Hazard: hazard})
	return writeJSON(w, ctrl.State())
}

// GET /v1/{tenant}/session/result
func (r *Router) handleSessionResult(w http.ResponseWriter, req *http.Request) error {
	ctrl, err := r.session(req)
	if err != nil {
		return err
	}
	view, err := ctrl.Render()
	if err != nil {
		return err
	}
	return writeJSON(w, view)
}

// GET /v1/{tenant}/session/result/export
// Lossless re-serialization of the raw engine response, as a download.
func (r *Router) handleSessionExport(w http.ResponseWriter, req *http.Request) error {
	ctrl, err := r.session(req)
	if err != nil {
		return err
	}
	resp, name, err := ctrl.Export()
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	return json.NewEncoder(w).Encode(resp)
}

// GET /v1/{tenant}/screenings/latest?limit=20
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	limit = middleware.ValidateLimit(limit)

	list, err := r.sessionSvc.Latest(req.Context(), tenant, limit)
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// GET /v1/{tenant}/screenings/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")

	run, err := r.sessionSvc.Get(req.Context(), tenant, runs.RunID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, run)
}

// GET /v1/{tenant}/screenings/{id}/errors?limit=20
func (r *Router) handleRunErrors(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.sessionSvc.Errors(req.Context(), tenant, id, limit)
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// GET /v1/{tenant}/summary?days=7
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	days, _ := strconv.Atoi(req.URL.Query().Get("days"))
	days = middleware.ValidateDays(days)

	summary, err := r.sessionSvc.Summary(req.Context(), tenant, days)
	if err != nil {
		return err
	}
	return writeJSON(w, summary)
}

// POST /v1/{tenant}/ai/analyze
// Body: {"run_id": "<id>"}
// The server fetches the run's artifact_url and runs AI analysis on it.
func (r *Router) handleAIAnalyze(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	var body struct {
		RunID string `json:"run_id"`
	}
	if r.aiSvc == nil {
		return errors.New("ai analysis is not configured")
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return err
	}
	if err := middleware.ValidateRunID(body.RunID); err != nil {
		return badRequest{err}
	}

	run, err := r.sessionSvc.Get(req.Context(), tenant, runs.RunID(body.RunID))
	if err != nil {
		return err
	}
	if run == nil || run.ArtifactURL == "" {
		return fmt.Errorf("artifact_url not found for run_id: %s", body.RunID)
	}

	a, err := r.aiSvc.AnalyzeAndStore(req.Context(), tenant, body.RunID, run.ArtifactURL)
	if err != nil {
		return err
	}
	return writeJSON(w, a)
}

// GET /v1/{tenant}/ai/analyze?page=&page_size=
func (r *Router) handleAIAnalyzeList(w http.ResponseWriter, req *http.Request) error {
	if r.aiSvc == nil {
		return errors.New("ai analysis is not configured")
	}
	tenant := chi.URLParam(req, "tenant")
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.aiSvc.ListAnalyses(req.Context(), tenant, page, size)
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// session resolves the tenant controller for the current request.
func (r *Router) session(req *http.Request) (*appsession.Controller, error) {
	tenant := chi.URLParam(req, "tenant")
	ctrl, err := r.sessionSvc.Session(tenant)
	if err != nil {
		fmt.Printf("credential restore warning tenant=%s: %v\n", tenant, err)
	}
	return ctrl, nil
}
