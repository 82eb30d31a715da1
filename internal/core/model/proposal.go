package model

type ResearchRequest struct {
	Topic    string `json:"topic"`
	Language string `json:"language"`
}

// DefaultLanguage lets the backend infer the output language from the topic.
const DefaultLanguage = "auto"

type ComplexityAssessment struct {
	Level               string `json:"level"`
	TimeSpan            string `json:"time_span"`
	ParallelThreads     int    `json:"parallel_threads"`
	EstimatedTotalNodes int    `json:"estimated_total_nodes"`
	Reasoning           string `json:"reasoning"`
}

type ResearchThread struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Priority       int    `json:"priority"`
	EstimatedNodes int    `json:"estimated_nodes"`
}

type DurationEstimate struct {
	MinSeconds int `json:"min_seconds"`
	MaxSeconds int `json:"max_seconds"`
}

type UserFacingProposal struct {
	Title        string   `json:"title"`
	Summary      string   `json:"summary"`
	DurationText string   `json:"duration_text"`
	CreditsText  string   `json:"credits_text"`
	ThreadNames  []string `json:"thread_names"`
}

type ResearchProposal struct {
	Topic             string               `json:"topic"`
	TopicType         string               `json:"topic_type"`
	Language          string               `json:"language"`
	Complexity        ComplexityAssessment `json:"complexity"`
	ResearchThreads   []ResearchThread     `json:"research_threads"`
	EstimatedDuration DurationEstimate     `json:"estimated_duration"`
	CreditsCost       int                  `json:"credits_cost"`
	UserFacing        UserFacingProposal   `json:"user_facing"`
}

type ResearchProposalResponse struct {
	SessionID string           `json:"session_id"`
	Proposal  ResearchProposal `json:"proposal"`
}

// Export is the JSON document written by the timeline export and read back
// by the replay server.
type Export struct {
	Proposal      *ResearchProposal `json:"proposal"`
	Nodes         []TimelineNode    `json:"nodes"`
	SynthesisData *SynthesisData    `json:"synthesisData"`
	CompleteData  *CompleteData     `json:"completeData"`
}
