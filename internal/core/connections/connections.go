// Package connections indexes synthesis connections by node identifier.
package connections

import (
	"github.com/agenthands/chrono/internal/core/model"
)

type Outgoing struct {
	TargetID     string               `json:"target_id"`
	TargetTitle  string               `json:"target_title"`
	Relationship string               `json:"relationship"`
	Type         model.ConnectionType `json:"type"`
}

type Incoming struct {
	SourceID     string               `json:"source_id"`
	SourceTitle  string               `json:"source_title"`
	Relationship string               `json:"relationship"`
	Type         model.ConnectionType `json:"type"`
}

type NodeConnections struct {
	Outgoing []Outgoing `json:"outgoing"`
	Incoming []Incoming `json:"incoming"`
}

func (c NodeConnections) Empty() bool {
	return len(c.Outgoing) == 0 && len(c.Incoming) == 0
}

// Map is rebuilt from scratch whenever connections or nodes change, since
// titles are resolved against the full node list.
type Map map[string]*NodeConnections

// Build resolves endpoint titles from nodes, falling back to the raw
// identifier for nodes not present.
func Build(conns []model.Connection, nodes []model.TimelineNode) Map {
	m := Map{}
	if len(conns) == 0 {
		return m
	}
	titles := make(map[string]string, len(nodes))
	for _, n := range nodes {
		titles[n.ID] = n.Title
	}
	title := func(id string) string {
		if t, ok := titles[id]; ok {
			return t
		}
		return id
	}

	for _, c := range conns {
		from, to := m.ensure(c.FromID), m.ensure(c.ToID)
		from.Outgoing = append(from.Outgoing, Outgoing{
			TargetID:     c.ToID,
			TargetTitle:  title(c.ToID),
			Relationship: c.Relationship,
			Type:         c.Type,
		})
		to.Incoming = append(to.Incoming, Incoming{
			SourceID:     c.FromID,
			SourceTitle:  title(c.FromID),
			Relationship: c.Relationship,
			Type:         c.Type,
		})
	}
	return m
}

func (m Map) ensure(id string) *NodeConnections {
	info, ok := m[id]
	if !ok {
		info = &NodeConnections{Outgoing: []Outgoing{}, Incoming: []Incoming{}}
		m[id] = info
	}
	return info
}

// Lookup returns the connections of id, empty when it has none.
func (m Map) Lookup(id string) NodeConnections {
	if info, ok := m[id]; ok {
		return *info
	}
	return NodeConnections{Outgoing: []Outgoing{}, Incoming: []Incoming{}}
}
