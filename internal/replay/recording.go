// Package replay serves a recorded research session over the same HTTP and
// SSE surface the research backend exposes.
package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/agenthands/chrono/internal/core/model"
	"github.com/agenthands/chrono/internal/stream"
)

// Frame is one scripted stream event. Raw, when set, is sent verbatim as
// the data field so recordings can carry malformed payloads.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Raw   string          `json:"raw,omitempty"`
}

func (f Frame) payload() string {
	if f.Raw != "" {
		return f.Raw
	}
	return string(f.Data)
}

// Recording is an exported timeline, optionally with a scripted frame
// sequence that replaces the generated one.
type Recording struct {
	model.Export
	Frames []Frame `json:"frames,omitempty"`
}

func LoadRecording(path string) (*Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recording '%s': %w", path, err)
	}
	var rec Recording
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse recording '%s': %w", path, err)
	}
	if len(rec.Nodes) == 0 && len(rec.Frames) == 0 {
		return nil, fmt.Errorf("recording '%s' has no nodes and no frames", path)
	}
	return &rec, nil
}

func SaveRecording(path string, export model.Export) error {
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode recording: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write recording '%s': %w", path, err)
	}
	return nil
}

// Frames returns the event sequence for rec: progress, skeleton, detail
// progress, one node_detail per enriched node, synthesis, complete.
func Frames(rec *Recording, language string) ([]Frame, error) {
	if len(rec.Frames) > 0 {
		return rec.Frames, nil
	}

	var frames []Frame
	add := func(event string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode %s frame: %w", event, err)
		}
		frames = append(frames, Frame{Event: event, Data: data})
		return nil
	}

	skeleton := make([]model.TimelineNode, 0, len(rec.Nodes))
	details := make([]model.NodeDetailEvent, 0, len(rec.Nodes))
	for _, n := range rec.Nodes {
		s := n.Clone()
		s.Status = model.StatusSkeleton
		s.Details = nil
		if n.Details != nil {
			// detail sources are appended on delivery
			s.Sources = []string{}
			details = append(details, model.NodeDetailEvent{NodeID: n.ID, Details: *n.Details.Clone()})
		}
		skeleton = append(skeleton, s)
	}

	steps := []struct {
		event string
		v     any
	}{
		{stream.EventProgress, model.ProgressData{Phase: "skeleton", Message: progressMessage("skeleton", language)}},
		{stream.EventSkeleton, model.SkeletonData{Nodes: skeleton}},
		{stream.EventProgress, model.ProgressData{Phase: model.PhaseDetail, Message: progressMessage(model.PhaseDetail, language)}},
	}
	for _, st := range steps {
		if err := add(st.event, st.v); err != nil {
			return nil, err
		}
	}
	for _, d := range details {
		if err := add(stream.EventNodeDetail, d); err != nil {
			return nil, err
		}
	}
	if rec.SynthesisData != nil {
		if err := add(stream.EventSynthesis, rec.SynthesisData); err != nil {
			return nil, err
		}
	}
	if err := add(stream.EventComplete, model.CompleteData{TotalNodes: len(rec.Nodes), DetailCompleted: len(details)}); err != nil {
		return nil, err
	}
	return frames, nil
}

var progressMessages = map[string]map[string]string{
	"skeleton": {
		"en": "Building timeline skeleton...",
		"zh": "正在构建时间线骨架...",
		"ja": "タイムラインの骨格を構築中...",
	},
	model.PhaseDetail: {
		"en": "Enriching timeline details...",
		"zh": "正在深度补充节点详情...",
		"ja": "タイムラインの詳細を補充中...",
	},
}

func progressMessage(phase, language string) string {
	msgs, ok := progressMessages[phase]
	if !ok {
		return "Processing..."
	}
	if m, ok := msgs[language]; ok {
		return m
	}
	return msgs["en"]
}
