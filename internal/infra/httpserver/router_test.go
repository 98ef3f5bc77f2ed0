package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcreds "github.com/bryanwahyu/synthscreen/internal/application/credentials"
	appsession "github.com/bryanwahyu/synthscreen/internal/application/session"
	"github.com/bryanwahyu/synthscreen/internal/domain/runs"
	"github.com/bryanwahyu/synthscreen/internal/domain/screening"
)

type stubEngine struct {
	mu    sync.Mutex
	calls int
	resp  *screening.Response
	err   error
}

func (s *stubEngine) Screen(ctx context.Context, sequence string, cfg screening.RequestConfig) (*screening.Response, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

type stubRepo struct {
	mu   sync.Mutex
	runs map[runs.RunID]*runs.Run
}

func newStubRepo() *stubRepo { return &stubRepo{runs: map[runs.RunID]*runs.Run{}} }

func (s *stubRepo) Save(ctx context.Context, r *runs.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.runs[r.ID] = &cp
	return nil
}

func (s *stubRepo) Get(ctx context.Context, tenant string, id runs.RunID) (*runs.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return r, nil
}

func (s *stubRepo) Latest(ctx context.Context, tenant string, limit int) ([]*runs.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*runs.Run, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r)
	}
	return out, nil
}

func (s *stubRepo) Summary(ctx context.Context, tenant string, sinceDays int) (int, int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs), 1, 2, nil
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
				SequenceLength: 120,
				Hazards: []screening.HazardHits{
					{
						Type: screening.HitTypeNucleotide,
						MostLikelyOrganism: screening.HitOrganism{
							Name:         "Ebola virus",
							OrganismType: screening.OrganismVirus,
							Tags:         []screening.Tag{screening.TagHumanToHuman},
						},
					},
				},
			},
		},
		Warnings: []screening.Warning{},
		Errors:   []screening.Error{},
	}
}

func testServer(t *testing.T, engine screening.Engine) (*httptest.Server, *stubRepo) {
	t.Helper()
	repo := newStubRepo()
	svc := &appsession.Service{
		Engine: engine,
		Creds:  appcreds.NewManager(nullStore{}),
		Repo:   repo,
	}
	srv := httptest.NewServer(NewRouter(svc, nil))
	t.Cleanup(srv.Close)
	return srv, repo
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	out := map[string]any{}
	_ = json.NewDecoder(res.Body).Decode(&out)
	return res, out
}

func putCredentials(t *testing.T, base string) {
	t.Helper()
	res, _ := doJSON(t, http.MethodPut, base+"/v1/acme/credentials", map[string]string{
		"token": "tok", "keypair": "kp", "passphrase": "pw",
	})
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func waitForPhase(t *testing.T, base, phase string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		res, out := doJSON(t, http.MethodGet, base+"/v1/acme/session", nil)
		require.Equal(t, http.StatusOK, res.StatusCode)
		if out["phase"] == phase {
			return out
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session never reached phase %q", phase)
	return nil
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t, &stubEngine{resp: deniedResponse()})
	res, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestCredentialsLifecycle(t *testing.T) {
	srv, _ := testServer(t, &stubEngine{resp: deniedResponse()})

	res, out := doJSON(t, http.MethodGet, srv.URL+"/v1/acme/credentials", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, false, out["token_loaded"])
	assert.NotEmpty(t, out["keyservers"])

	putCredentials(t, srv.URL)

	res, out = doJSON(t, http.MethodGet, srv.URL+"/v1/acme/credentials", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, true, out["token_loaded"])
	assert.Equal(t, true, out["passphrase_set"])
	// secrets are never echoed back
	_, leaked := out["token"]
	assert.False(t, leaked)

	res, out = doJSON(t, http.MethodPost, srv.URL+"/v1/acme/credentials/persist", map[string]bool{"persist": true})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, true, out["persist"])
}

func TestCredentialsRejectBadDomains(t *testing.T) {
	srv, _ := testServer(t, &stubEngine{resp: deniedResponse()})
	res, _ := doJSON(t, http.MethodPut, srv.URL+"/v1/acme/credentials", map[string]string{
		"token": "tok", "keypair": "kp", "passphrase": "pw",
		"keyservers": "not a domain!!",
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestScreenMissingFieldsIs400(t *testing.T) {
	engine := &stubEngine{resp: deniedResponse()}
	srv, _ := testServer(t, engine)

	res, out := doJSON(t, http.MethodPost, srv.URL+"/v1/acme/screen", map[string]string{"sequence": ""})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, out["error"], "please provide: DNA Sequence")
	assert.Equal(t, 0, engine.calls)
}

func TestScreenQueuedAndSettles(t *testing.T) {
	srv, repo := testServer(t, &stubEngine{resp: deniedResponse()})
	putCredentials(t, srv.URL)

	res, out := doJSON(t, http.MethodPost, srv.URL+"/v1/acme/screen", map[string]string{"sequence": "ACGTACGT"})
	require.Equal(t, http.StatusAccepted, res.StatusCode)
	assert.Equal(t, "queued", out["status"])
	runID, _ := out["run_id"].(string)
	require.NotEmpty(t, runID)

	waitForPhase(t, srv.URL, "settled")

	// the run row is persisted with the verdict
	repo.mu.Lock()
	run := repo.runs[runs.RunID(runID)]
	repo.mu.Unlock()
	require.NotNil(t, run)
	assert.Equal(t, runs.StatusSuccess, run.Status)

	// a second screen is allowed once settled
	res, _ = doJSON(t, http.MethodPost, srv.URL+"/v1/acme/screen", map[string]string{"sequence": "ACGT"})
	assert.Equal(t, http.StatusAccepted, res.StatusCode)
	waitForPhase(t, srv.URL, "settled")
}

func TestSessionResultFlow(t *testing.T) {
	srv, _ := testServer(t, &stubEngine{resp: deniedResponse()})
	putCredentials(t, srv.URL)

	// no result yet
	res, _ := doJSON(t, http.MethodGet, srv.URL+"/v1/acme/session/result", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, _ = doJSON(t, http.MethodPost, srv.URL+"/v1/acme/screen", map[string]string{"sequence": "ACGT"})
	require.Equal(t, http.StatusAccepted, res.StatusCode)
	waitForPhase(t, srv.URL, "settled")

	res, out := doJSON(t, http.MethodGet, srv.URL+"/v1/acme/session/result", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "denied", out["permission"])
	assert.Equal(t, "summary", out["view_mode"])

	// switch projection and toggle a hazard open
	res, _ = doJSON(t, http.MethodPost, srv.URL+"/v1/acme/session/view", map[string]string{"mode": "structured"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	res, _ = doJSON(t, http.MethodPost, srv.URL+"/v1/acme/session/hazards/0/0/toggle", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, out = doJSON(t, http.MethodGet, srv.URL+"/v1/acme/session/result", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "structured", out["view_mode"])

	// invalid view mode is a client error
	res, _ = doJSON(t, http.MethodPost, srv.URL+"/v1/acme/session/view", map[string]string{"mode": "detailed"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	// reset clears the result
	res, _ = doJSON(t, http.MethodPost, srv.URL+"/v1/acme/session/reset", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	res, _ = doJSON(t, http.MethodGet, srv.URL+"/v1/acme/session/result", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestSessionExportDownload(t *testing.T) {
	srv, _ := testServer(t, &stubEngine{resp: deniedResponse()})
	putCredentials(t, srv.URL)

	res, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/acme/screen", map[string]string{"sequence": "ACGT"})
	require.Equal(t, http.StatusAccepted, res.StatusCode)
	waitForPhase(t, srv.URL, "settled")

	resp, err := http.Get(srv.URL + "/v1/acme/session/result/export")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "securedna-results-")

	var exported screening.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&exported))
	assert.Equal(t, screening.PermissionDenied, exported.SynthesisPermission)
}

func TestScreenFailureShowsInSession(t *testing.T) {
	srv, _ := testServer(t, &stubEngine{err: errors.New("keyserver unreachable")})
	putCredentials(t, srv.URL)

	res, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/acme/screen", map[string]string{"sequence": "ACGT"})
	require.Equal(t, http.StatusAccepted, res.StatusCode)

	out := waitForPhase(t, srv.URL, "failed")
	assert.Contains(t, out["failure"], "keyserver unreachable")
}

func TestEngineUnavailableIs503(t *testing.T) {
	srv, _ := testServer(t, nil)
	putCredentials(t, srv.URL)

	res, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/acme/screen", map[string]string{"sequence": "ACGT"})
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
}

func TestSequenceStats(t *testing.T) {
	srv, _ := testServer(t, &stubEngine{resp: deniedResponse()})
	res, out := doJSON(t, http.MethodPost, srv.URL+"/v1/acme/sequence/stats", map[string]string{
		"sequence": ">a\nACGT\n>b\nGG",
	})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, float64(2), out["records"])
	assert.Equal(t, float64(6), out["symbols"])
}

func TestHistoryEndpoints(t *testing.T) {
	srv, _ := testServer(t, &stubEngine{resp: deniedResponse()})
	putCredentials(t, srv.URL)

	res, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/acme/screen", map[string]string{"sequence": "ACGT"})
	require.Equal(t, http.StatusAccepted, res.StatusCode)
	waitForPhase(t, srv.URL, "settled")

	resp, err := http.Get(srv.URL + "/v1/acme/screenings/latest?limit=5")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.NotEmpty(t, list)

	res, out := doJSON(t, http.MethodGet, srv.URL+"/v1/acme/summary?days=7", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "acme", out["tenant"])
	assert.Equal(t, float64(7), out["days"])
}

func TestAIAnalyzeUnconfigured(t *testing.T) {
	srv, _ := testServer(t, &stubEngine{resp: deniedResponse()})
	res, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/acme/ai/analyze", map[string]string{
		"run_id": "00000000-0000-0000-0000-000000000000-screen",
	})
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
}
