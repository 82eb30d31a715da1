package stream

import (
	"sync"

	"github.com/agenthands/chrono/internal/core/model"
)

type recordingHandler struct {
	mu       sync.Mutex
	events   []string
	skeleton []model.SkeletonData
	details  []model.NodeDetailEvent
	progress []model.ProgressData
	complete *model.CompleteData
	resErr   *model.ResearchError
	connErr  error
}

func (h *recordingHandler) add(name string) {
	h.events = append(h.events, name)
}

func (h *recordingHandler) OnProgress(d model.ProgressData) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.add(EventProgress)
	h.progress = append(h.progress, d)
}

func (h *recordingHandler) OnSkeleton(d model.SkeletonData) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.add(EventSkeleton)
	h.skeleton = append(h.skeleton, d)
}

func (h *recordingHandler) OnNodeDetail(d model.NodeDetailEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.add(EventNodeDetail)
	h.details = append(h.details, d)
}

func (h *recordingHandler) OnSynthesis(model.SynthesisData) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.add(EventSynthesis)
}

func (h *recordingHandler) OnComplete(d model.CompleteData) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.add(EventComplete)
	h.complete = &d
}

func (h *recordingHandler) OnResearchError(d model.ResearchError) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.add(EventResearchError)
	h.resErr = &d
}

func (h *recordingHandler) OnConnectionError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.add("connection_error")
	h.connErr = err
}

func (h *recordingHandler) names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}
