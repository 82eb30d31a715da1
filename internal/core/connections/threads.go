package connections

import (
	"github.com/agenthands/chrono/internal/core/model"
)

// Threads groups present nodes into connected components of the connection
// graph, ignoring direction. Components of a single node are dropped.
// Members keep timeline order; threads are ordered by their first member.
func Threads(conns []model.Connection, nodes []model.TimelineNode) [][]string {
	present := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		present[n.ID] = true
	}
	adj := make(map[string][]string)
	for _, c := range conns {
		// only edges where both endpoints are rendered
		if !present[c.FromID] || !present[c.ToID] || c.FromID == c.ToID {
			continue
		}
		adj[c.FromID] = append(adj[c.FromID], c.ToID)
		adj[c.ToID] = append(adj[c.ToID], c.FromID)
	}

	component := make(map[string]int)
	var threads [][]string
	for _, n := range nodes {
		if _, seen := component[n.ID]; seen {
			continue
		}
		members := map[string]bool{}
		dfs(n.ID, adj, members)
		for id := range members {
			component[id] = len(threads)
		}
		if len(members) < 2 {
			continue
		}
		ordered := make([]string, 0, len(members))
		for _, m := range nodes {
			if members[m.ID] {
				ordered = append(ordered, m.ID)
			}
		}
		threads = append(threads, ordered)
	}
	return threads
}

func dfs(u string, adj map[string][]string, visited map[string]bool) {
	visited[u] = true
	for _, v := range adj[u] {
		if !visited[v] {
			dfs(v, adj, visited)
		}
	}
}
