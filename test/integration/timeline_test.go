//go:build integration

package integration

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/chrono/internal/core"
	"github.com/agenthands/chrono/internal/core/connections"
	"github.com/agenthands/chrono/internal/core/filter"
	"github.com/agenthands/chrono/internal/core/model"
	"github.com/agenthands/chrono/internal/core/views"
	"github.com/agenthands/chrono/internal/replay"
	"github.com/agenthands/chrono/internal/research"
	"github.com/agenthands/chrono/internal/sched"
	"github.com/agenthands/chrono/internal/stream"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func runSession(t *testing.T, baseURL, topic string, opts ...core.SessionOption) (*model.ResearchProposalResponse, core.Snapshot) {
	t.Helper()
	ctx := context.Background()

	created, err := research.NewHTTPClient(baseURL, time.Minute, "", nil).
		CreateSession(ctx, model.ResearchRequest{Topic: topic})
	require.NoError(t, err)

	sess := core.NewSession(stream.NewSSEDriver(baseURL), opts...)
	defer sess.Close()
	require.NoError(t, sess.Start(ctx, created.SessionID))

	select {
	case <-sess.Done():
	case <-time.After(10 * time.Minute):
		t.Fatal("stream did not finish")
	}
	return created, sess.Snapshot()
}

func TestReplayFlow(t *testing.T) {
	rec, err := replay.LoadRecording(filepath.Join("testdata", "iphone.json"))
	require.NoError(t, err)

	backend := httptest.NewServer(replay.NewServer(rec, replay.WithEventDelay(time.Millisecond)).SetupRouter())
	defer backend.Close()

	var revisions []uint64
	created, snap := runSession(t, backend.URL, "iPhone", core.WithOnChange(func(s core.Snapshot) {
		revisions = append(revisions, s.Revision)
	}))
	assert.Equal(t, "History of the iPhone", created.Proposal.UserFacing.Title)

	// engine
	assert.Equal(t, core.StateComplete, snap.State)
	require.Len(t, snap.Nodes, 8)
	assert.IsIncreasing(t, revisions)
	for i, n := range snap.Nodes {
		assert.Equal(t, rec.Nodes[i].ID, n.ID, "order is preserved")
		if n.ID == "ms_006" {
			assert.Equal(t, model.StatusLoading, n.Status)
			assert.Nil(t, n.Details)
			continue
		}
		assert.Equal(t, model.StatusComplete, n.Status)
		assert.Equal(t, rec.Nodes[i].Sources, n.Sources)
	}
	assert.Equal(t, &model.CompleteData{TotalNodes: 8, DetailCompleted: 7}, snap.Complete)

	// connections
	m := connections.Build(snap.Connections(), snap.Nodes)
	out := m.Lookup("ms_007").Outgoing
	require.Len(t, out, 1)
	assert.Equal(t, "ms_099", out[0].TargetTitle)
	assert.Equal(t, [][]string{{"ms_001", "ms_002", "ms_003"}}, connections.Threads(snap.Connections(), snap.Nodes))
	assert.Len(t, snap.DateCorrections("ms_004"), 1)

	// views
	groups := views.PhaseGroups(snap.Nodes)
	require.Len(t, groups, 3)
	assert.Equal(t, []string{"Launch", "Platform", "Modern"}, views.PhaseNames(groups))
	assert.Equal(t, 0, groups[0].StartIndex)
	assert.Equal(t, 7, groups[2].EndIndex)

	dense := views.DenseGroups(snap.Nodes)
	require.Len(t, dense, 1)
	assert.Equal(t, []string{"ms_004", "ms_005", "ms_006", "ms_007"}, dense[0].NodeIDs)

	bounds, ok := views.YearBounds(snap.Nodes)
	require.True(t, ok)
	assert.Equal(t, views.YearRange{Min: 2007, Max: 2017}, bounds)

	// filter and search
	clock := sched.NewManual()
	ctl := filter.NewController(clock)
	defer ctl.Close()
	ctl.SetNodes(snap.Nodes)

	ctl.Search("iphone")
	clock.Advance(filter.DefaultDebounce)
	r := ctl.Result()
	assert.Equal(t, []string{"ms_001", "ms_002", "ms_004", "ms_005", "ms_006", "ms_008"}, r.Matches)

	// only an explicit, different phase excludes a node
	r = ctl.SetPhase("Platform")
	assert.Equal(t, []string{"ms_002", "ms_004", "ms_005", "ms_006"}, r.Matches)
	assert.Equal(t, 0, r.Cursor)

	r = ctl.ToggleSignificance(model.SignificanceMedium)
	assert.Equal(t, []string{"ms_002", "ms_006"}, r.Matches)

	r = ctl.Reset(bounds, true)
	assert.Empty(t, r.Matches)
	assert.Len(t, r.Visible, 8)
}

func TestReplayFlow_Export(t *testing.T) {
	rec, err := replay.LoadRecording(filepath.Join("testdata", "iphone.json"))
	require.NoError(t, err)
	backend := httptest.NewServer(replay.NewServer(rec).SetupRouter())
	defer backend.Close()

	created, snap := runSession(t, backend.URL, "iPhone")

	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, replay.SaveRecording(path, snap.Export(&created.Proposal)))

	// an export replays to the same timeline
	again, err := replay.LoadRecording(path)
	require.NoError(t, err)
	backend2 := httptest.NewServer(replay.NewServer(again).SetupRouter())
	defer backend2.Close()

	_, snap2 := runSession(t, backend2.URL, "iPhone")
	require.Len(t, snap2.Nodes, len(snap.Nodes))
	for i := range snap.Nodes {
		assert.Equal(t, snap.Nodes[i].ID, snap2.Nodes[i].ID)
		assert.Equal(t, snap.Nodes[i].Details, snap2.Nodes[i].Details)
	}
}

func TestLiveBackend(t *testing.T) {
	_ = godotenv.Load("../../.env")

	baseURL := os.Getenv("CHRONO_BACKEND_URL")
	if baseURL == "" {
		t.Skip("Skipping live test: CHRONO_BACKEND_URL not set")
	}
	topic := os.Getenv("CHRONO_TEST_TOPIC")
	if topic == "" {
		topic = "History of the bicycle"
	}

	_, snap := runSession(t, baseURL, topic)
	require.Equal(t, core.StateComplete, snap.State, "failure: %+v", snap.Failure)
	assert.NotEmpty(t, snap.Nodes)

	groups := views.PhaseGroups(snap.Nodes)
	if len(groups) > 0 {
		assert.Equal(t, 0, groups[0].StartIndex)
		assert.Equal(t, len(snap.Nodes)-1, groups[len(groups)-1].EndIndex)
	}
	for _, g := range views.DenseGroups(snap.Nodes) {
		assert.GreaterOrEqual(t, len(g.NodeIDs), views.MinDenseRun)
	}
}
