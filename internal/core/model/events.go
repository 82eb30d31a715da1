package model

// Payloads of the named events on the research stream.

type ProgressData struct {
	Phase   string `json:"phase"`
	Message string `json:"message"`
	Percent int    `json:"percent"`
}

// PhaseDetail is the progress phase that starts enrichment of all nodes.
const PhaseDetail = "detail"

type SkeletonData struct {
	Nodes []TimelineNode `json:"nodes"`
}

type NodeDetailEvent struct {
	NodeID  string     `json:"node_id"`
	Details NodeDetail `json:"details"`
}

type SynthesisData struct {
	Summary           string           `json:"summary"`
	KeyInsight        string           `json:"key_insight"`
	TimelineSpan      string           `json:"timeline_span"`
	SourceCount       int              `json:"source_count"`
	VerificationNotes []string         `json:"verification_notes"`
	Connections       []Connection     `json:"connections,omitempty"`
	DateCorrections   []DateCorrection `json:"date_corrections,omitempty"`
}

func (s *SynthesisData) Clone() *SynthesisData {
	if s == nil {
		return nil
	}
	c := *s
	c.VerificationNotes = append([]string(nil), s.VerificationNotes...)
	c.Connections = append([]Connection(nil), s.Connections...)
	c.DateCorrections = append([]DateCorrection(nil), s.DateCorrections...)
	return &c
}

type CompleteData struct {
	TotalNodes      int `json:"total_nodes"`
	DetailCompleted int `json:"detail_completed"`
}

type ResearchError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
