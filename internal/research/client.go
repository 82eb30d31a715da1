// Package research talks to the research backend outside the stream: it
// creates sessions and returns their proposals.
package research

import (
	"context"
	"errors"

	"github.com/agenthands/chrono/internal/core/model"
)

var (
	ErrServiceUnavailable = errors.New("research service unavailable")
	ErrEmptyTopic         = errors.New("topic is required")
)

type Client interface {
	CreateSession(ctx context.Context, req model.ResearchRequest) (*model.ResearchProposalResponse, error)
}
