package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcreds "github.com/bryanwahyu/synthscreen/internal/application/credentials"
	domcreds "github.com/bryanwahyu/synthscreen/internal/domain/credentials"
	"github.com/bryanwahyu/synthscreen/internal/domain/runs"
	"github.com/bryanwahyu/synthscreen/internal/domain/screenerrors"
	"github.com/bryanwahyu/synthscreen/internal/domain/screening"
	domsession "github.com/bryanwahyu/synthscreen/internal/domain/session"
)

// fakeEngine lets a test hold a screen call open and release it on demand.
type fakeEngine struct {
	mu      sync.Mutex
	calls   int
	resp    *screening.Response
	err     error
	started chan struct{} // closed once per call when the engine is entered
	release chan struct{} // call blocks until this is closed, when set
}

func (f *fakeEngine) Screen(ctx context.Context, sequence string, cfg screening.RequestConfig) (*screening.Response, error) {
	f.mu.Lock()
	f.calls++
	started := f.started
	release := f.release
	resp, err := f.resp, f.err
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if release != nil {
		<-release
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// memRepo records saved runs.
type memRepo struct {
	mu   sync.Mutex
	runs map[runs.RunID]*runs.Run
}

func newMemRepo() *memRepo { return &memRepo{runs: map[runs.RunID]*runs.Run{}} }

func (m *memRepo) Save(ctx context.Context, r *runs.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.runs[r.ID] = &cp
	return nil
}

func (m *memRepo) Get(ctx context.Context, tenant string, id runs.RunID) (*runs.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return r, nil
}

func (m *memRepo) Latest(ctx context.Context, tenant string, limit int) ([]*runs.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*runs.Run, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r)
	}
	return out, nil
}

func (m *memRepo) Summary(ctx context.Context, tenant string, sinceDays int) (int, int, int, error) {
	return len(m.runs), 0, 0, nil
}

func (m *memRepo) get(id runs.RunID) *runs.Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs[id]
}

// memErrs records saved screen errors.
type memErrs struct {
	mu      sync.Mutex
	entries []*screenerrors.ScreenError
}

func (m *memErrs) Save(ctx context.Context, e *screenerrors.ScreenError) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memErrs) ListByRun(ctx context.Context, tenant, runID string, limit int) ([]*screenerrors.ScreenError, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries, nil
}

type memArtifacts struct {
	mu   sync.Mutex
	keys []string
}

func (m *memArtifacts) UploadJSON(ctx context.Context, key string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	return "https://artifacts.local/" + key, nil
}

type nullStore struct{}

func (nullStore) Get(key string) (string, bool, error) { return "", false, nil }
func (nullStore) Set(key, value string) error          { return nil }
func (nullStore) Remove(key string) error              { return nil }

func deniedResponse() *screening.Response {
	return &screening.Response{
		SynthesisPermission: screening.PermissionDenied,
		HitsByRecord: []screening.FastaRecordHits{
			{
				Header:         "gene X",
				LineRange:      screening.LineRange{1, 2},
				SequenceLength: 120,
				Hazards: []screening.HazardHits{
					{
						Type: screening.HitTypeNucleotide,
						MostLikelyOrganism: screening.HitOrganism{
							Name:         "Ebola virus",
							OrganismType: screening.OrganismVirus,
							Tags:         []screening.Tag{screening.TagHumanToHuman},
						},
						HitRegions: []screening.HitRegion{{Start: 0, End: 42}},
					},
				},
			},
		},
		Warnings: []screening.Warning{},
		Errors:   []screening.Error{},
	}
}

func testService(engine screening.Engine, repo runs.Repository, errs screenerrors.Repository, artifacts runs.ArtifactStore) *Service {
	return &Service{
		Engine:    engine,
		Creds:     appcreds.NewManager(nullStore{}),
		Repo:      repo,
		Artifacts: artifacts,
		Errs:      errs,
	}
}

func readyController(t *testing.T, svc *Service, tenant string) *Controller {
	t.Helper()
	ctrl, err := svc.Session(tenant)
	require.NoError(t, err)
	creds, err := svc.Credentials(tenant)
	require.NoError(t, err)
	require.NoError(t, creds.Update(domcreds.Credentials{
		Token: "tok", Keypair: "kp", Passphrase: "pw",
	}))
	return ctrl
}

func TestValidationRunsBeforeEngine(t *testing.T) {
	engine := &fakeEngine{resp: deniedResponse()}
	svc := testService(engine, nil, nil, nil)
	ctrl, err := svc.Session("t1")
	require.NoError(t, err)

	_, _, err = ctrl.Start("")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, []string{"DNA Sequence", "Token File", "Keypair File", "Passphrase"}, vErr.Missing)
	assert.Contains(t, vErr.Error(), "please provide: DNA Sequence")

	// the engine was never invoked
	assert.Equal(t, 0, engine.callCount())
	assert.Equal(t, domsession.PhaseIdle, ctrl.State().Phase)
}

func TestNilEngineIsUnavailable(t *testing.T) {
	svc := testService(nil, nil, nil, nil)
	ctrl := readyController(t, svc, "t1")

	_, _, err := ctrl.Start("ACGT")
	assert.ErrorIs(t, err, screening.ErrEngineUnavailable)
}

func TestScreenSuccessSettles(t *testing.T) {
	engine := &fakeEngine{resp: deniedResponse()}
	repo := newMemRepo()
	errs := &memErrs{}
	artifacts := &memArtifacts{}
	svc := testService(engine, repo, errs, artifacts)
	ctrl := readyController(t, svc, "t1")

	id, err := ctrl.Screen(context.Background(), "ACGT")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	snap := ctrl.State()
	assert.Equal(t, domsession.PhaseSettled, snap.Phase)
	assert.Equal(t, id, snap.RunID)
	// record 0 expands by default once results arrive
	assert.Equal(t, []int{0}, snap.ExpandedRecords)
	assert.Empty(t, snap.ExpandedHazards)

	run := repo.get(id)
	require.NotNil(t, run)
	assert.Equal(t, runs.StatusSuccess, run.Status)
	assert.Equal(t, "denied", run.Permission)
	assert.Equal(t, 1, run.Counts.Records)
	assert.Equal(t, 1, run.Counts.Hazards)
	assert.Equal(t, 120, run.Counts.BasePairs)
	assert.NotEmpty(t, run.ArtifactURL)

	require.Len(t, artifacts.keys, 1)
	assert.Contains(t, artifacts.keys[0], string(id))
	assert.Empty(t, errs.entries)
}

func TestScreenFailureRecordsError(t *testing.T) {
	engine := &fakeEngine{err: errors.New("keyserver unreachable")}
	repo := newMemRepo()
	errs := &memErrs{}
	svc := testService(engine, repo, errs, nil)
	ctrl := readyController(t, svc, "t1")

	id, err := ctrl.Screen(context.Background(), "ACGT")
	require.Error(t, err)

	snap := ctrl.State()
	assert.Equal(t, domsession.PhaseFailed, snap.Phase)
	assert.Contains(t, snap.Failure, "keyserver unreachable")

	run := repo.get(id)
	require.NotNil(t, run)
	assert.Equal(t, runs.StatusFailed, run.Status)

	require.Len(t, errs.entries, 1)
	assert.Equal(t, "screen", errs.entries[0].Phase)
	assert.Equal(t, string(id), errs.entries[0].RunID)
}

func TestSecondScreenRejectedWhileInFlight(t *testing.T) {
	engine := &fakeEngine{
		resp:    deniedResponse(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := testService(engine, newMemRepo(), nil, nil)
	ctrl := readyController(t, svc, "t1")

	_, run, err := ctrl.Start("ACGT")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- run(context.Background()) }()
	<-engine.started

	_, _, err = ctrl.Start("ACGT")
	assert.ErrorIs(t, err, ErrScreenInFlight)

	close(engine.release)
	require.NoError(t, <-done)
	assert.Equal(t, domsession.PhaseSettled, ctrl.State().Phase)
}

func TestResetDiscardsLateResult(t *testing.T) {
	engine := &fakeEngine{
		resp:    deniedResponse(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	repo := newMemRepo()
	svc := testService(engine, repo, nil, nil)
	ctrl := readyController(t, svc, "t1")

	_, run, err := ctrl.Start("ACGT")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- run(context.Background()) }()
	<-engine.started

	ctrl.Reset()
	close(engine.release)
	require.NoError(t, <-done)

	// the stale result never lands
	snap := ctrl.State()
	assert.Equal(t, domsession.PhaseIdle, snap.Phase)
	assert.Nil(t, ctrl.Result())
}

func TestSupersededCallDoesNotOverwrite(t *testing.T) {
	first := &fakeEngine{
		resp:    deniedResponse(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := testService(first, newMemRepo(), nil, nil)
	ctrl := readyController(t, svc, "t1")

	// call A blocks inside the engine
	_, runA, err := ctrl.Start("ACGT")
	require.NoError(t, err)
	doneA := make(chan error, 1)
	go func() { doneA <- runA(context.Background()) }()
	<-first.started

	// user resets and starts call B, which settles with a granted verdict
	ctrl.Reset()
	granted := &screening.Response{
		SynthesisPermission: screening.PermissionGranted,
		HitsByRecord:        []screening.FastaRecordHits{},
		Warnings:            []screening.Warning{},
		Errors:              []screening.Error{},
	}
	first.mu.Lock()
	releaseA := first.release
	first.resp = granted
	first.started = nil
	first.release = nil
	first.mu.Unlock()

	idB, err := ctrl.Screen(context.Background(), "ACGT")
	require.NoError(t, err)

	// call A finally returns its stale denied result
	close(releaseA)
	require.NoError(t, <-doneA)

	snap := ctrl.State()
	assert.Equal(t, domsession.PhaseSettled, snap.Phase)
	assert.Equal(t, idB, snap.RunID)
	require.NotNil(t, ctrl.Result())
	assert.Equal(t, screening.PermissionGranted, ctrl.Result().SynthesisPermission)
}

func TestRenderAndExport(t *testing.T) {
	engine := &fakeEngine{resp: deniedResponse()}
	svc := testService(engine, newMemRepo(), nil, nil)
	ctrl := readyController(t, svc, "t1")

	_, err := ctrl.Render()
	assert.ErrorIs(t, err, ErrNoResult)

	id, err := ctrl.Screen(context.Background(), "ACGT")
	require.NoError(t, err)

	view, err := ctrl.Render()
	require.NoError(t, err)
	assert.Equal(t, screening.PermissionDenied, view.Permission)
	assert.Equal(t, domsession.ViewSummary, view.ViewMode)
	require.Len(t, view.Records, 1)

	// record 0 is expanded by default, its hazards render collapsed
	rec := view.Records[0]
	assert.True(t, rec.Expanded)
	require.Len(t, rec.Hazards, 1)
	assert.False(t, rec.Hazards[0].Expanded)
	assert.Nil(t, rec.Hazards[0].Summary)
	assert.Equal(t, 42, rec.Hazards[0].RegionSpan)
	assert.Equal(t, "🦠", rec.Hazards[0].Icon)

	// expanding the hazard attaches the projection for the current mode
	ctrl.ToggleHazard(domsession.HazardKey{Record: 0, Hazard: 0})
	view, err = ctrl.Render()
	require.NoError(t, err)
	require.NotNil(t, view.Records[0].Hazards[0].Summary)
	assert.Nil(t, view.Records[0].Hazards[0].Structured)

	ctrl.SetViewMode(domsession.ViewStructured)
	view, err = ctrl.Render()
	require.NoError(t, err)
	assert.Nil(t, view.Records[0].Hazards[0].Summary)
	require.NotNil(t, view.Records[0].Hazards[0].Structured)

	resp, name, err := ctrl.Export()
	require.NoError(t, err)
	assert.Equal(t, screening.PermissionDenied, resp.SynthesisPermission)
	assert.Equal(t, "securedna-results-"+string(id)+".json", name)
}

func TestScreenTimesOutWithContext(t *testing.T) {
	engine := &fakeEngine{
		resp:    deniedResponse(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := testService(engine, newMemRepo(), nil, nil)
	ctrl := readyController(t, svc, "t1")

	_, run, err := ctrl.Start("ACGT")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- run(context.Background()) }()
	<-engine.started

	select {
	case <-done:
		t.Fatal("run returned before the engine released")
	case <-time.After(20 * time.Millisecond):
	}
	close(engine.release)
	require.NoError(t, <-done)
}
