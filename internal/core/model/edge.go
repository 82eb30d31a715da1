package model

type ConnectionType string

const (
	ConnectionCaused      ConnectionType = "caused"
	ConnectionEnabled     ConnectionType = "enabled"
	ConnectionInspired    ConnectionType = "inspired"
	ConnectionRespondedTo ConnectionType = "responded_to"
)

func (t ConnectionType) Valid() bool {
	switch t {
	case ConnectionCaused, ConnectionEnabled, ConnectionInspired, ConnectionRespondedTo:
		return true
	}
	return false
}

// Connection is a directed, typed edge between two node identifiers.
// Either endpoint may name a node that has not been rendered yet.
type Connection struct {
	FromID       string         `json:"from_id"`
	ToID         string         `json:"to_id"`
	Relationship string         `json:"relationship"`
	Type         ConnectionType `json:"type"`
}

// DateCorrection is informational; it never rewrites the node date.
type DateCorrection struct {
	NodeID        string `json:"node_id"`
	OriginalDate  string `json:"original_date"`
	CorrectedDate string `json:"corrected_date"`
	Reason        string `json:"reason"`
}
