package stream

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseServer(t *testing.T, frames []string, hold bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/research/missing/stream":
			http.NotFound(w, r)
			return
		case "/api/research/used/stream":
			w.WriteHeader(http.StatusConflict)
			return
		case "/api/research/broken/stream":
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, f := range frames {
			fmt.Fprint(w, f)
			flusher.Flush()
		}
		if hold {
			<-r.Context().Done()
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func frame(name, data string) string {
	return fmt.Sprintf("event: %s\ndata: %s\n\n", name, data)
}

func waitDone(t *testing.T, s Stream) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not finish")
	}
}

func TestSSEDriver_DeliversEventsInOrder(t *testing.T) {
	srv := sseServer(t, []string{
		frame(EventProgress, `{"phase":"skeleton","message":"Mapping milestones","percent":0}`),
		frame(EventSkeleton, `{"nodes":[{"id":"ms_001","date":"2007-01-09","title":"iPhone","significance":"revolutionary","description":"d"}]}`),
		frame(EventNodeDetail, `{"node_id":"ms_001","details":{"key_features":[],"impact":"i","key_people":[],"context":"c","sources":["s1"]}}`),
		frame(EventSynthesis, `{"summary":"s","key_insight":"k","timeline_span":"2007","source_count":1,"verification_notes":[]}`),
		frame(EventComplete, `{"total_nodes":1,"detail_completed":1}`),
		frame(EventProgress, `{"phase":"late","message":"ignored","percent":100}`),
	}, true)

	h := &recordingHandler{}
	s, err := NewSSEDriver(srv.URL).Open(context.Background(), "abc", h)
	require.NoError(t, err)
	waitDone(t, s)

	assert.Equal(t, []string{EventProgress, EventSkeleton, EventNodeDetail, EventSynthesis, EventComplete}, h.names())
	require.Len(t, h.skeleton, 1)
	assert.Equal(t, []string{}, h.skeleton[0].Nodes[0].Sources)
	assert.Equal(t, 1, h.complete.TotalNodes)
	assert.NoError(t, s.Close(), "close after completion is a no-op")
}

func TestSSEDriver_DropsMalformedEvents(t *testing.T) {
	srv := sseServer(t, []string{
		frame(EventSkeleton, `{"nodes": [`),
		frame(EventSkeleton, `{}`),
		frame(EventNodeDetail, `{"node_id":"x"}`),
		frame("mystery", `{}`),
		frame(EventProgress, `{"phase":"detail","message":"m","percent":12.6}`),
		frame(EventComplete, `{"total_nodes":0,"detail_completed":0}`),
	}, true)

	h := &recordingHandler{}
	s, err := NewSSEDriver(srv.URL).Open(context.Background(), "abc", h)
	require.NoError(t, err)
	waitDone(t, s)

	assert.Equal(t, []string{EventProgress, EventComplete}, h.names())
	assert.Equal(t, 13, h.progress[0].Percent)
}

func TestSSEDriver_ResearchErrorIsTerminal(t *testing.T) {
	srv := sseServer(t, []string{
		frame(EventResearchError, `{"error":"research_failed","message":"Research execution failed."}`),
		frame(EventProgress, `{"phase":"x","message":"m","percent":0}`),
	}, true)

	h := &recordingHandler{}
	s, err := NewSSEDriver(srv.URL).Open(context.Background(), "abc", h)
	require.NoError(t, err)
	waitDone(t, s)

	assert.Equal(t, []string{EventResearchError}, h.names())
	assert.Equal(t, "research_failed", h.resErr.Error)
}

func TestSSEDriver_EarlyEOFIsConnectionError(t *testing.T) {
	srv := sseServer(t, []string{frame(EventProgress, `{"phase":"skeleton","message":"m","percent":0}`)}, false)

	h := &recordingHandler{}
	s, err := NewSSEDriver(srv.URL).Open(context.Background(), "abc", h)
	require.NoError(t, err)
	waitDone(t, s)

	assert.Equal(t, []string{EventProgress, "connection_error"}, h.names())
	assert.ErrorIs(t, h.connErr, ErrStreamEnded)
}

func TestSSEDriver_OversizedEventIsConnectionError(t *testing.T) {
	srv := sseServer(t, []string{
		frame(EventProgress, `{"phase":"skeleton","message":"m","percent":0}`),
		frame(EventProgress, `{"phase":"skeleton","message":"`+strings.Repeat("x", 2048)+`","percent":0}`),
		frame(EventComplete, `{"total_nodes":0,"detail_completed":0}`),
	}, true)

	d := NewSSEDriver(srv.URL)
	d.MaxEventBytes = 1024
	h := &recordingHandler{}
	s, err := d.Open(context.Background(), "abc", h)
	require.NoError(t, err)
	waitDone(t, s)

	assert.Equal(t, []string{EventProgress, "connection_error"}, h.names())
	assert.ErrorIs(t, h.connErr, bufio.ErrTooLong)
}

func TestSSEDriver_CloseStopsDelivery(t *testing.T) {
	srv := sseServer(t, []string{frame(EventProgress, `{"phase":"skeleton","message":"m","percent":0}`)}, true)

	h := &recordingHandler{}
	s, err := NewSSEDriver(srv.URL).Open(context.Background(), "abc", h)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(h.names()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
	waitDone(t, s)

	assert.Equal(t, []string{EventProgress}, h.names(), "closing is not a connection error")
}

func TestSSEDriver_OpenErrors(t *testing.T) {
	srv := sseServer(t, nil, false)
	d := NewSSEDriver(srv.URL)
	h := &recordingHandler{}

	_, err := d.Open(context.Background(), "missing", h)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = d.Open(context.Background(), "used", h)
	assert.ErrorIs(t, err, ErrSessionStarted)

	_, err = d.Open(context.Background(), "broken", h)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")

	_, err = d.Open(context.Background(), "", h)
	assert.Error(t, err)

	_, err = NewSSEDriver("http://127.0.0.1:1").Open(context.Background(), "abc", h)
	assert.Error(t, err)
	assert.Empty(t, h.names())
}
