package stream

import (
	"context"

	"github.com/agenthands/chrono/internal/core/model"
)

// Handler receives decoded stream events. A Handler is passed to every
// Open call; the driver keeps no other callback state.
type Handler interface {
	OnProgress(data model.ProgressData)
	OnSkeleton(data model.SkeletonData)
	OnNodeDetail(data model.NodeDetailEvent)
	OnSynthesis(data model.SynthesisData)
	OnComplete(data model.CompleteData)
	OnResearchError(data model.ResearchError)
	// OnConnectionError reports a transport failure after the stream opened.
	OnConnectionError(err error)
}

type Driver interface {
	// Open connects to the event stream of one research session. Events are
	// delivered to h, in order, on a single goroutine.
	Open(ctx context.Context, sessionID string, h Handler) (Stream, error)
}

type Stream interface {
	// Close stops delivery. It is idempotent.
	Close() error
	// Done is closed once no further events will be delivered.
	Done() <-chan struct{}
}
