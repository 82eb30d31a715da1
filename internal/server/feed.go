package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const subscriberBuffer = 16

// Control is a command sent by a websocket client.
type Control struct {
	Action string `json:"action"`
	Query  string `json:"query,omitempty"`
	ID     string `json:"id,omitempty"`
}

// Feed fans frames out to SSE and websocket subscribers. A subscriber that
// falls behind loses frames rather than blocking the publisher; the latest
// frame is always sent on connect.
type Feed struct {
	mu       sync.Mutex
	subs     map[string]chan []byte
	latest   []byte
	closed   bool
	upgrader websocket.Upgrader
	control  func(Control)
	logger   *slog.Logger
}

func NewFeed(logger *slog.Logger) *Feed {
	return &Feed{
		subs: make(map[string]chan []byte),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// OnControl sets the handler for websocket control messages.
func (f *Feed) OnControl(fn func(Control)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.control = fn
}

func (f *Feed) Publish(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		f.logger.Error("failed to marshal frame", "err", err)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.latest = data
	for id, ch := range f.subs {
		select {
		case ch <- data:
		default:
			f.logger.Warn("dropping frame for slow subscriber", "client", id)
		}
	}
}

// Subscribe registers a subscriber primed with the latest frame.
func (f *Feed) Subscribe() (string, <-chan []byte, func()) {
	id := uuid.NewString()
	ch := make(chan []byte, subscriberBuffer)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(ch)
		return id, ch, func() {}
	}
	if f.latest != nil {
		ch <- f.latest
	}
	f.subs[id] = ch
	f.mu.Unlock()

	var once sync.Once
	return id, ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if _, ok := f.subs[id]; ok {
				delete(f.subs, id)
				close(ch)
			}
		})
	}
}

func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Close ends every subscription.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}

func (f *Feed) ServeSSE(c *gin.Context) {
	id, ch, cancel := f.Subscribe()
	defer cancel()
	f.logger.Debug("sse client connected", "client", id)

	c.Header("X-Accel-Buffering", "no")
	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case data, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("frame", string(data))
			return true
		}
	})
	f.logger.Debug("sse client disconnected", "client", id)
}

func (f *Feed) ServeWS(c *gin.Context) {
	conn, err := f.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		f.logger.Error("websocket upgrade failed", "err", err)
		return
	}
	id, ch, cancel := f.Subscribe()
	f.logger.Debug("websocket client connected", "client", id)

	go func() {
		defer conn.Close()
		for data := range ch {
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				f.logger.Warn("failed to send frame to websocket client", "client", id, "err", err)
				cancel()
				return
			}
		}
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}()

	defer cancel()
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				f.logger.Warn("websocket error", "client", id, "err", err)
			}
			return
		}
		var ctl Control
		if err := json.Unmarshal(message, &ctl); err != nil {
			f.logger.Debug("ignoring malformed control message", "client", id)
			continue
		}
		f.mu.Lock()
		handle := f.control
		f.mu.Unlock()
		if handle != nil {
			handle(ctl)
		}
	}
}
