package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/synthscreen/internal/application"
	appcreds "github.com/bryanwahyu/synthscreen/internal/application/credentials"
	"github.com/bryanwahyu/synthscreen/internal/domain/runs"
	"github.com/bryanwahyu/synthscreen/internal/domain/screenerrors"
	"github.com/bryanwahyu/synthscreen/internal/domain/screening"
	domsession "github.com/bryanwahyu/synthscreen/internal/domain/session"
)

// ErrScreenInFlight: only one screen call may be outstanding per session.
var ErrScreenInFlight = errors.New("a screening is already in flight")

// ValidationError is a local pre-flight failure enumerating every missing
// required field. The engine is never invoked when it occurs.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "please provide: " + strings.Join(e.Missing, ", ")
}

// Controller orchestrates one tenant's screen-and-render cycle: the exclusive
// phase machine, the per-call generation guard, and the presentation-only
// expansion and view-mode state.
type Controller struct {
	tenant    string
	engine    screening.Engine
	creds     *appcreds.Session
	repo      runs.Repository
	artifacts runs.ArtifactStore
	errs      screenerrors.Repository
	clock     application.Clock

	mu         sync.Mutex
	phase      domsession.Phase
	generation uint64
	runID      runs.RunID
	result     *screening.Response
	failure    string
	view       domsession.ViewMode
	expansion  domsession.Expansion
}

func newController(tenant string, engine screening.Engine, creds *appcreds.Session,
	repo runs.Repository, artifacts runs.ArtifactStore, errs screenerrors.Repository,
	clock application.Clock) *Controller {
	return &Controller{
		tenant:    tenant,
		engine:    engine,
		creds:     creds,
		repo:      repo,
		artifacts: artifacts,
		errs:      errs,
		clock:     clock,
		phase:     domsession.PhaseIdle,
		view:      domsession.ViewSummary,
		expansion: domsession.NewExpansion(),
	}
}

// Start validates the request and marks the session in flight. Validation
// happens before anything suspends; a missing-field failure never reaches the
// engine. On success it returns a completion function the caller may run on
// any goroutine; the completion only commits its outcome if the session has
// not been reset or superseded in the meantime.
func (c *Controller) Start(sequence string) (runs.RunID, func(ctx context.Context) error, error) {
	if c.engine == nil {
		return "", nil, screening.ErrEngineUnavailable
	}

	c.mu.Lock()
	if c.phase == domsession.PhaseInFlight {
		c.mu.Unlock()
		return "", nil, ErrScreenInFlight
	}
	if missing := c.creds.MissingFields(sequence); len(missing) > 0 {
		c.mu.Unlock()
		return "", nil, &ValidationError{Missing: missing}
	}

	c.generation++
	gen := c.generation
	c.phase = domsession.PhaseInFlight
	c.result = nil
	c.failure = ""

	requestID := "synthscreen_" + uuid.New().String()
	id := runs.RunID(fmt.Sprintf("%s-screen", uuid.New().String()))
	c.runID = id
	cfg := c.creds.BuildRequestConfig(requestID)
	c.mu.Unlock()

	run := func(ctx context.Context) error {
		started := c.clock.Now()

		// Create an initial run row so we always have an ID to reference
		if c.repo != nil {
			initial := &runs.Run{
				ID:          id,
				TenantID:    c.tenant,
				SubmittedAt: started,
				RequestID:   requestID,
				Status:      runs.StatusRunning,
			}
			if err := c.repo.Save(ctx, initial); err != nil {
				log.Printf("run save error tenant=%s run=%s: %v", c.tenant, id, err)
			}
		}

		resp, err := c.engine.Screen(ctx, sequence, cfg)
		if err != nil {
			c.settleFailure(ctx, gen, id, started, err)
			return err
		}
		c.settleSuccess(ctx, gen, id, started, resp)
		return nil
	}
	return id, run, nil
}

// Screen runs one full screen cycle synchronously: validate, call the
// engine, settle.
func (c *Controller) Screen(ctx context.Context, sequence string) (runs.RunID, error) {
	id, run, err := c.Start(sequence)
	if err != nil {
		return id, err
	}
	return id, run(ctx)
}

// settleSuccess commits a settled result unless the generation has been
// superseded; a stale call's outcome is discarded, never merged.
func (c *Controller) settleSuccess(ctx context.Context, gen uint64, id runs.RunID, started time.Time, resp *screening.Response) {
	c.mu.Lock()
	if gen != c.generation || c.phase != domsession.PhaseInFlight {
		c.mu.Unlock()
		log.Printf("discarding stale screen result tenant=%s run=%s", c.tenant, id)
		return
	}
	c.phase = domsession.PhaseSettled
	c.result = resp
	c.failure = ""
	// Stale indices are meaningless against new data
	c.expansion = domsession.ExpansionForResult()
	c.mu.Unlock()

	artifactURL := c.exportArtifact(ctx, id, resp)

	if c.repo != nil {
		stats := resp.Stats()
		run := &runs.Run{
			ID:                id,
			TenantID:          c.tenant,
			SubmittedAt:       started,
			Permission:        string(resp.SynthesisPermission),
			ProviderReference: resp.ProviderReference,
			Status:            runs.StatusSuccess,
			Counts: runs.HitCounts{
				Records:         stats.RecordsScreened,
				Hazards:         stats.TotalHazards,
				UniqueOrganisms: stats.UniqueOrganisms,
				BasePairs:       stats.TotalBasePairs,
			},
			ArtifactURL: artifactURL,
			DurationMS:  c.clock.Now().Sub(started).Milliseconds(),
		}
		if err := c.repo.Save(ctx, run); err != nil {
			log.Printf("run save error tenant=%s run=%s: %v", c.tenant, id, err)
		}
	}
}

func (c *Controller) settleFailure(ctx context.Context, gen uint64, id runs.RunID, started time.Time, callErr error) {
	c.mu.Lock()
	if gen != c.generation || c.phase != domsession.PhaseInFlight {
		c.mu.Unlock()
		log.Printf("discarding stale screen failure tenant=%s run=%s: %v", c.tenant, id, callErr)
		return
	}
	c.phase = domsession.PhaseFailed
	c.result = nil
	c.failure = callErr.Error()
	c.mu.Unlock()

	if c.repo != nil {
		run := &runs.Run{
			ID:          id,
			TenantID:    c.tenant,
			SubmittedAt: started,
			Status:      runs.StatusFailed,
			DurationMS:  c.clock.Now().Sub(started).Milliseconds(),
		}
		if err := c.repo.Save(ctx, run); err != nil {
			log.Printf("run save error tenant=%s run=%s: %v", c.tenant, id, err)
		}
	}
	if c.errs != nil {
		entry := &screenerrors.ScreenError{
			TenantID:  c.tenant,
			RunID:     string(id),
			Phase:     "screen",
			Message:   callErr.Error(),
			CreatedAt: c.clock.Now(),
		}
		if err := c.errs.Save(ctx, entry); err != nil {
			log.Printf("screen error save failed tenant=%s run=%s: %v", c.tenant, id, err)
		}
	}
}

// exportArtifact uploads the lossless JSON export. Best-effort: an upload
// failure is reported but does not fail the settled session.
func (c *Controller) exportArtifact(ctx context.Context, id runs.RunID, resp *screening.Response) string {
	if c.artifacts == nil {
		return ""
	}
	data, err := json.Marshal(resp)
	if err != nil {
		log.Printf("export marshal error tenant=%s run=%s: %v", c.tenant, id, err)
		return ""
	}
	key := fmt.Sprintf("%s/%s/securedna-results-%s.json", c.tenant, id, id)
	url, err := c.artifacts.UploadJSON(ctx, key, data)
	if err != nil {
		log.Printf("artifact upload error tenant=%s run=%s: %v", c.tenant, id, err)
		return ""
	}
	return url
}

// Reset returns the session to Idle and bumps the generation so any late
// in-flight result is discarded rather than overwriting the reset.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.phase = domsession.PhaseIdle
	c.result = nil
	c.failure = ""
	c.runID = ""
	c.expansion = domsession.NewExpansion()
}

// SetViewMode selects which projection renders expanded hazards.
func (c *Controller) SetViewMode(v domsession.ViewMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = v
}

// ToggleRecord flips a record's expansion state.
func (c *Controller) ToggleRecord(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expansion = c.expansion.ToggleRecord(i)
}

// ToggleHazard flips a hazard's expansion state.
func (c *Controller) ToggleHazard(k domsession.HazardKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expansion = c.expansion.ToggleHazard(k)
}

// Result returns the settled response, or nil when there is none.
func (c *Controller) Result() *screening.Response {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Snapshot is the externally visible session state.
type Snapshot struct {
	Phase           domsession.Phase       `json:"phase"`
	RunID           runs.RunID             `json:"run_id,omitempty"`
	Failure         string                 `json:"failure,omitempty"`
	ViewMode        domsession.ViewMode    `json:"view_mode"`
	ExpandedRecords []int                  `json:"expanded_records"`
	ExpandedHazards []domsession.HazardKey `json:"expanded_hazards"`
}

func (c *Controller) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Phase:           c.phase,
		RunID:           c.runID,
		Failure:         c.failure,
		ViewMode:        c.view,
		ExpandedRecords: c.expansion.ExpandedRecords(),
		ExpandedHazards: c.expansion.ExpandedHazards(),
	}
}

// Service hands out one result-session controller per tenant.
type Service struct {
	Engine    screening.Engine
	Creds     *appcreds.Manager
	Repo      runs.Repository
	Artifacts runs.ArtifactStore
	Errs      screenerrors.Repository
	Clock     application.Clock

	mu       sync.Mutex
	sessions map[string]*Controller
}

// Session returns the tenant's controller, creating it on first use. The
// credential restore error, if any, is surfaced as a non-fatal warning.
func (s *Service) Session(tenant string) (*Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sessions == nil {
		s.sessions = make(map[string]*Controller)
	}
	if c, ok := s.sessions[tenant]; ok {
		return c, nil
	}
	creds, err := s.Creds.Session(tenant)
	clock := s.Clock
	if clock == nil {
		clock = application.SystemClock{}
	}
	c := newController(tenant, s.Engine, creds, s.Repo, s.Artifacts, s.Errs, clock)
	s.sessions[tenant] = c
	return c, err
}

// Credentials returns the tenant's credential session.
func (s *Service) Credentials(tenant string) (*appcreds.Session, error) {
	return s.Creds.Session(tenant)
}

// Latest lists a tenant's most recent runs.
func (s *Service) Latest(ctx context.Context, tenant string, limit int) ([]*runs.Run, error) {
	if s.Repo == nil {
		return nil, errors.New("run history is not configured")
	}
	return s.Repo.Latest(ctx, tenant, limit)
}

// Get fetches one run by ID.
func (s *Service) Get(ctx context.Context, tenant string, id runs.RunID) (*runs.Run, error) {
	if s.Repo == nil {
		return nil, errors.New("run history is not configured")
	}
	return s.Repo.Get(ctx, tenant, id)
}

// Summary aggregates run outcomes over a trailing window.
func (s *Service) Summary(ctx context.Context, tenant string, days int) (map[string]any, error) {
	if s.Repo == nil {
		return nil, errors.New("run history is not configured")
	}
	total, denied, hazards, err := s.Repo.Summary(ctx, tenant, days)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"tenant":  tenant,
		"days":    days,
		"total":   total,
		"denied":  denied,
		"hazards": hazards,
	}, nil
}

// Errors lists the recorded failures for one run.
func (s *Service) Errors(ctx context.Context, tenant, runID string, limit int) ([]*screenerrors.ScreenError, error) {
	if s.Errs == nil {
		return nil, errors.New("error history is not configured")
	}
	return s.Errs.ListByRun(ctx, tenant, runID, limit)
}
