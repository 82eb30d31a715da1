package core

import (
	"github.com/agenthands/chrono/internal/core/model"
)

// Snapshot is an immutable copy of the engine state handed to the derived
// view computations.
type Snapshot struct {
	Revision  uint64               `json:"revision"`
	State     State                `json:"state"`
	Nodes     []model.TimelineNode `json:"nodes"`
	Progress  model.ProgressData   `json:"progress"`
	Synthesis *model.SynthesisData `json:"synthesis,omitempty"`
	Complete  *model.CompleteData  `json:"complete,omitempty"`
	Failure   *Failure             `json:"failure,omitempty"`
}

func (s Snapshot) Connections() []model.Connection {
	if s.Synthesis == nil {
		return nil
	}
	return s.Synthesis.Connections
}

// DateCorrections returns the corrections recorded for one node.
func (s Snapshot) DateCorrections(nodeID string) []model.DateCorrection {
	if s.Synthesis == nil {
		return nil
	}
	var out []model.DateCorrection
	for _, c := range s.Synthesis.DateCorrections {
		if c.NodeID == nodeID {
			out = append(out, c)
		}
	}
	return out
}

// ProgressMessage is empty once the session completed.
func (s Snapshot) ProgressMessage() string {
	return s.Progress.Message
}

func (s Snapshot) IDs() []string {
	ids := make([]string, len(s.Nodes))
	for i, n := range s.Nodes {
		ids[i] = n.ID
	}
	return ids
}

func (s Snapshot) Export(proposal *model.ResearchProposal) model.Export {
	return model.Export{
		Proposal:      proposal,
		Nodes:         model.CloneNodes(s.Nodes),
		SynthesisData: s.Synthesis.Clone(),
		CompleteData:  s.Complete,
	}
}
