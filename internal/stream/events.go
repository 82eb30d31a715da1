package stream

// Event names sent by the research backend.
const (
	EventProgress      = "progress"
	EventSkeleton      = "skeleton"
	EventNodeDetail    = "node_detail"
	EventSynthesis     = "synthesis"
	EventComplete      = "complete"
	EventResearchError = "research_error"
)

const streamPathFormat = "/api/research/%s/stream"
