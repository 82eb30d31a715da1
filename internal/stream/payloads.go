package stream

import (
	"encoding/json"
	"errors"
	"math"

	"github.com/agenthands/chrono/internal/core/model"
)

var errMissingField = errors.New("missing required field")

func progress(phase, message string, percent float64) model.ProgressData {
	return model.ProgressData{Phase: phase, Message: message, Percent: int(math.Round(percent))}
}

type skeletonPayload struct {
	nodes []model.TimelineNode
}

func (p *skeletonPayload) UnmarshalJSON(b []byte) error {
	var raw struct {
		Nodes *[]model.TimelineNode `json:"nodes"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Nodes == nil {
		return errMissingField
	}
	p.nodes = *raw.Nodes
	return nil
}

func (p skeletonPayload) toModel() model.SkeletonData {
	nodes := make([]model.TimelineNode, 0, len(p.nodes))
	for _, n := range p.nodes {
		if n.Sources == nil {
			n.Sources = []string{}
		}
		nodes = append(nodes, n)
	}
	return model.SkeletonData{Nodes: nodes}
}

type nodeDetailPayload struct {
	ev model.NodeDetailEvent
}

func (p *nodeDetailPayload) UnmarshalJSON(b []byte) error {
	var raw struct {
		NodeID  string            `json:"node_id"`
		Details *model.NodeDetail `json:"details"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.NodeID == "" || raw.Details == nil {
		return errMissingField
	}
	p.ev = model.NodeDetailEvent{NodeID: raw.NodeID, Details: *raw.Details}
	return nil
}

func (p nodeDetailPayload) toModel() model.NodeDetailEvent { return p.ev }

type synthesisPayload struct {
	model.SynthesisData
}

func (p synthesisPayload) toModel() model.SynthesisData { return p.SynthesisData }

type completePayload struct {
	model.CompleteData
}

func (p completePayload) toModel() model.CompleteData { return p.CompleteData }

type researchErrorPayload struct {
	model.ResearchError
}

func (p researchErrorPayload) toModel() model.ResearchError { return p.ResearchError }
