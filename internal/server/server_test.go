package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/chrono/internal/config"
	"github.com/agenthands/chrono/internal/core"
	"github.com/agenthands/chrono/internal/core/filter"
	"github.com/agenthands/chrono/internal/core/model"
	"github.com/agenthands/chrono/internal/core/tracker"
	"github.com/agenthands/chrono/internal/replay"
	"github.com/agenthands/chrono/internal/research"
	"github.com/agenthands/chrono/internal/sched"
	"github.com/agenthands/chrono/internal/stream"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testRecording() *replay.Recording {
	return &replay.Recording{Export: model.Export{
		Proposal: &model.ResearchProposal{Topic: "Apple", Language: "en"},
		Nodes: []model.TimelineNode{
			{ID: "ms_001", Date: "2007-01-09", Title: "iPhone announced", Description: "Touchscreen phone",
				Significance: model.SignificanceRevolutionary, PhaseName: "Launch",
				Details: &model.NodeDetail{Impact: "Redefined phones", Sources: []string{"https://a"}}},
			{ID: "ms_002", Date: "2008-07-10", Title: "App Store", Description: "Third-party software",
				Significance: model.SignificanceHigh, PhaseName: "Launch",
				Details: &model.NodeDetail{Sources: []string{"https://b"}}},
			{ID: "ms_003", Date: "2010-04-03", Title: "iPad", Description: "Tablet",
				Significance: model.SignificanceMedium, PhaseName: "Expansion"},
		},
		SynthesisData: &model.SynthesisData{
			Summary: "From phone to platform",
			Connections: []model.Connection{
				{FromID: "ms_001", ToID: "ms_002", Relationship: "opened the platform", Type: model.ConnectionEnabled},
			},
			DateCorrections: []model.DateCorrection{
				{NodeID: "ms_003", OriginalDate: "2010-01-27", CorrectedDate: "2010-04-03", Reason: "release date"},
			},
		},
	}}
}

type fixture struct {
	srv    *Server
	router *gin.Engine
	clock  *sched.Manual
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := httptest.NewServer(replay.NewServer(testRecording()).SetupRouter())
	t.Cleanup(backend.Close)

	clock := sched.NewManual()
	srv, err := NewServer(config.Default(),
		research.NewHTTPClient(backend.URL, time.Second, "", nil),
		stream.NewSSEDriver(backend.URL), clock, nil)
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	return &fixture{srv: srv, router: srv.SetupRouter(), clock: clock}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// start creates a session and waits for its stream to complete.
func (f *fixture) start(t *testing.T) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/sessions", gin.H{"topic": "Apple"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := decode[model.ResearchProposalResponse](t, w)

	w = f.do(t, http.MethodPost, "/sessions/"+created.SessionID+"/start", nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	require.Eventually(t, func() bool {
		return f.srv.State.Snapshot().State == core.StateComplete
	}, 5*time.Second, 5*time.Millisecond)
	return created.SessionID
}

func TestServer_SessionLifecycle(t *testing.T) {
	f := newFixture(t)
	id := f.start(t)

	snap := decode[core.Snapshot](t, f.do(t, http.MethodGet, "/timeline", nil))
	require.Len(t, snap.Nodes, 3)
	assert.Equal(t, model.StatusComplete, snap.Nodes[0].Status)
	assert.Equal(t, model.StatusLoading, snap.Nodes[2].Status)
	assert.Equal(t, &model.CompleteData{TotalNodes: 3, DetailCompleted: 2}, snap.Complete)

	// the same session cannot stream twice
	w := f.do(t, http.MethodPost, "/sessions/"+id+"/start", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/sessions/nope/start", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodDelete, "/sessions/current", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, http.MethodDelete, "/sessions/current", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_CreateSessionValidation(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/sessions", gin.H{"topic": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_TimelineView(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	var view struct {
		PhaseGroups []struct {
			Name       string `json:"name"`
			StartIndex int    `json:"start_index"`
			EndIndex   int    `json:"end_index"`
		} `json:"phase_groups"`
		Phases     []string         `json:"phases"`
		YearBounds *json.RawMessage `json:"year_bounds"`
		Span       string           `json:"span"`
		Threads    [][]string       `json:"threads"`
	}
	w := f.do(t, http.MethodGet, "/timeline/view", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))

	require.Len(t, view.PhaseGroups, 2)
	assert.Equal(t, "Launch", view.PhaseGroups[0].Name)
	assert.Equal(t, 1, view.PhaseGroups[0].EndIndex)
	assert.Equal(t, 2, view.PhaseGroups[1].StartIndex)
	assert.Equal(t, []string{"Launch", "Expansion"}, view.Phases)
	assert.NotNil(t, view.YearBounds)
	assert.Equal(t, "2007 – 2010", view.Span)
	assert.Equal(t, [][]string{{"ms_001", "ms_002"}}, view.Threads)
}

func TestServer_NodeConnections(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	var got struct {
		Outgoing    []map[string]string    `json:"outgoing"`
		Incoming    []map[string]string    `json:"incoming"`
		Corrections []model.DateCorrection `json:"date_corrections"`
	}
	w := f.do(t, http.MethodGet, "/timeline/nodes/ms_002/connections", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Empty(t, got.Outgoing)
	require.Len(t, got.Incoming, 1)
	assert.Equal(t, "iPhone announced", got.Incoming[0]["source_title"])

	w = f.do(t, http.MethodGet, "/timeline/nodes/ms_003/connections", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Empty(t, got.Incoming)
	require.Len(t, got.Corrections, 1)
	assert.Equal(t, "2010-01-27", got.Corrections[0].OriginalDate)
}

func TestServer_Export(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	w := f.do(t, http.MethodGet, "/timeline/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "timeline.json")

	export := decode[model.Export](t, w)
	require.NotNil(t, export.Proposal)
	assert.Equal(t, "Apple", export.Proposal.Topic)
	assert.Len(t, export.Nodes, 3)
	assert.Equal(t, "From phone to platform", export.SynthesisData.Summary)
}

func TestServer_Filter(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	r := decode[filter.Result](t, f.do(t, http.MethodPut, "/filter", gin.H{"significance": []string{"revolutionary"}}))
	assert.Equal(t, []string{"ms_001"}, r.Visible)

	r = decode[filter.Result](t, f.do(t, http.MethodPut, "/filter", gin.H{"phase": "Expansion"}))
	assert.Empty(t, r.Visible)

	r = decode[filter.Result](t, f.do(t, http.MethodPost, "/filter/reset", nil))
	assert.Equal(t, []string{"ms_001", "ms_002", "ms_003"}, r.Visible)
	require.NotNil(t, r.State.YearRange)
	assert.Equal(t, 2007, r.State.YearRange.Min)
	assert.Equal(t, 2010, r.State.YearRange.Max)

	r = decode[filter.Result](t, f.do(t, http.MethodPut, "/filter", gin.H{"year_range": gin.H{"min": 2008, "max": 2010}}))
	assert.Equal(t, []string{"ms_002", "ms_003"}, r.Visible)

	r = decode[filter.Result](t, f.do(t, http.MethodPost, "/filter/significance/medium/toggle", nil))
	assert.Equal(t, []string{"ms_002"}, r.Visible)

	w := f.do(t, http.MethodPost, "/filter/significance/low/toggle", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_DebouncedSearchAndCursor(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	w := f.do(t, http.MethodPost, "/filter/search", gin.H{"query": "i"})
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "i", decode[filter.Result](t, w).Pending)

	f.clock.Advance(100 * time.Millisecond)
	f.do(t, http.MethodPost, "/filter/search", gin.H{"query": "ip"})
	f.clock.Advance(299 * time.Millisecond)
	assert.Empty(t, f.srv.State.filter.Result().Matches)

	f.clock.Advance(time.Millisecond)
	var m struct {
		Matches []string `json:"matches"`
		Cursor  int      `json:"cursor"`
		Current string   `json:"current"`
	}
	w = f.do(t, http.MethodGet, "/filter/matches", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Equal(t, []string{"ms_001", "ms_003"}, m.Matches)
	assert.Equal(t, "ms_001", m.Current)

	w = f.do(t, http.MethodPost, "/filter/matches/next", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Equal(t, "ms_003", m.Current)
	assert.Equal(t, 1, m.Cursor)

	w = f.do(t, http.MethodPost, "/filter/matches/next", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Equal(t, "ms_001", m.Current)

	w = f.do(t, http.MethodPost, "/filter/matches/prev", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Equal(t, "ms_003", m.Current)

	// stepping through matches navigates
	assert.Equal(t, "ms_003", f.srv.State.Frame("", "").Selected)
}

func TestServer_ImmediateSearch(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	r := decode[filter.Result](t, f.do(t, http.MethodPost, "/filter/search", gin.H{"query": "APP", "immediate": true}))
	assert.Equal(t, []string{"ms_002"}, r.Matches)
	assert.Empty(t, r.Pending)
}

func TestServer_NavigateAndViewport(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	w := f.do(t, http.MethodPost, "/navigate/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/navigate/ms_002", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "ms_002", f.srv.State.Frame("", "").Selected)

	f.clock.Advance(16 * time.Millisecond)
	assert.Equal(t, "ms_002", f.srv.State.Frame("", "").Highlighted)
	f.clock.Advance(2 * time.Second)
	assert.Empty(t, f.srv.State.Frame("", "").Highlighted)

	amb := decode[tracker.AmbientInfo](t, f.do(t, http.MethodPost, "/viewport", gin.H{
		"height": 1000,
		"rects": gin.H{
			"ms_001": gin.H{"top": 100, "bottom": 300},
			"ms_002": gin.H{"top": 300, "bottom": 500},
			"ms_003": gin.H{"top": 520, "bottom": 720},
		},
	}))
	assert.Equal(t, "ms_002", amb.ActiveID)
	assert.Equal(t, "2008", amb.Year)
	assert.Equal(t, "Launch", amb.Phase)

	w = f.do(t, http.MethodPost, "/viewport", gin.H{"height": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
