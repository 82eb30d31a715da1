package stream

import (
	"io"
	"iter"

	sse "github.com/tmaxmax/go-sse"
)

// Event is one dispatched server-sent event.
type Event struct {
	ID   string
	Name string
	Data string
}

const defaultMaxEventBytes = 4 << 20

// Events yields the server-sent events of r in order. Events without data
// are skipped and unnamed events are named "message". Iteration ends
// without an error when r ends cleanly. An event longer than maxEventBytes,
// counted over all of its lines, ends iteration with bufio.ErrTooLong.
func Events(r io.Reader, maxEventBytes int) iter.Seq2[Event, error] {
	if maxEventBytes <= 0 {
		maxEventBytes = defaultMaxEventBytes
	}
	cfg := &sse.ReadConfig{MaxEventSize: maxEventBytes}
	return func(yield func(Event, error) bool) {
		for ev, err := range sse.Read(r, cfg) {
			if err != nil {
				yield(Event{}, err)
				return
			}
			if ev.Data == "" {
				continue
			}
			name := ev.Type
			if name == "" {
				name = "message"
			}
			if !yield(Event{ID: ev.LastEventID, Name: name, Data: ev.Data}, nil) {
				return
			}
		}
	}
}
