package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	ErrSessionNotFound = errors.New("research session not found")
	ErrSessionStarted  = errors.New("research session already started or completed")
	// ErrStreamEnded is reported when the server closes the stream before
	// sending a terminal event.
	ErrStreamEnded = errors.New("event stream ended before completion")
)

type SSEDriver struct {
	BaseURL       string
	HTTPClient    *http.Client
	MaxEventBytes int
	Logger        *slog.Logger
}

func NewSSEDriver(baseURL string) *SSEDriver {
	return &SSEDriver{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{},
		Logger:     slog.Default(),
	}
}

func (d *SSEDriver) Open(ctx context.Context, sessionID string, h Handler) (Stream, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("open stream: empty session id")
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := d.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	streamCtx, cancel := context.WithCancel(ctx)
	endpoint := strings.TrimRight(d.BaseURL, "/") + fmt.Sprintf(streamPathFormat, url.PathEscape(sessionID))
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		resp.Body.Close()
		cancel()
		return nil, ErrSessionNotFound
	case http.StatusConflict:
		resp.Body.Close()
		cancel()
		return nil, ErrSessionStarted
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("failed to open stream: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	s := &sseStream{
		body:    resp.Body,
		cancel:  cancel,
		done:    make(chan struct{}),
		handler: h,
		logger:  logger.With("session", sessionID),
	}
	go s.run(d.MaxEventBytes)
	return s, nil
}

type sseStream struct {
	body      io.ReadCloser
	cancel    context.CancelFunc
	done      chan struct{}
	handler   Handler
	logger    *slog.Logger
	closed    atomic.Bool
	closeOnce sync.Once
}

func (s *sseStream) Done() <-chan struct{} { return s.done }

func (s *sseStream) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.cancel()
	})
	return nil
}

func (s *sseStream) run(maxEventBytes int) {
	defer close(s.done)
	defer s.body.Close()

	for ev, err := range Events(s.body, maxEventBytes) {
		if s.closed.Load() {
			return
		}
		if err != nil {
			s.fail(err)
			return
		}
		if terminal := s.dispatch(ev); terminal {
			s.Close()
			return
		}
	}
	if !s.closed.Load() {
		s.fail(ErrStreamEnded)
	}
}

// fail reports a terminal transport failure. An oversized event cannot be
// skipped because the reader loses its place in the stream.
func (s *sseStream) fail(err error) {
	s.logger.Error("research stream failed", "err", err)
	s.handler.OnConnectionError(err)
	s.Close()
}

// dispatch decodes one event and hands it to the handler. Malformed
// payloads and unknown event names are dropped.
func (s *sseStream) dispatch(ev Event) (terminal bool) {
	switch ev.Name {
	case EventProgress:
		var d struct {
			Phase   string  `json:"phase"`
			Message string  `json:"message"`
			Percent float64 `json:"percent"`
		}
		if s.decode(ev, &d) {
			s.handler.OnProgress(progress(d.Phase, d.Message, d.Percent))
		}
	case EventSkeleton:
		var d skeletonPayload
		if s.decode(ev, &d) {
			s.handler.OnSkeleton(d.toModel())
		}
	case EventNodeDetail:
		var d nodeDetailPayload
		if s.decode(ev, &d) {
			s.handler.OnNodeDetail(d.toModel())
		}
	case EventSynthesis:
		var d synthesisPayload
		if s.decode(ev, &d) {
			s.handler.OnSynthesis(d.toModel())
		}
	case EventComplete:
		var d completePayload
		if s.decode(ev, &d) {
			s.handler.OnComplete(d.toModel())
			return true
		}
	case EventResearchError:
		var d researchErrorPayload
		if s.decode(ev, &d) {
			s.handler.OnResearchError(d.toModel())
			return true
		}
	default:
		s.logger.Debug("ignoring unknown event", "event", ev.Name)
	}
	return false
}

func (s *sseStream) decode(ev Event, v any) bool {
	if err := json.Unmarshal([]byte(ev.Data), v); err != nil {
		s.logger.Debug("dropping malformed event", "event", ev.Name, "err", err)
		return false
	}
	return true
}
