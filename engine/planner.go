package engine

import (
	"sort"

	"github.com/nodeflow-run/nodeflow/flowerr"
)

// Edge is a directed dependency from Source to Target, optionally gated by
// a condition-edge match.
type Edge struct {
	Source        string
	SourceHandle  string
	Target        string
	TargetHandle  string
}

// Graph is the planner's input: a flat node-id set plus the edges between
// them. It carries no node payload; the workflow executor looks node
// bodies up separately by id.
type Graph struct {
	NodeIDs []string
	Edges   []Edge
}

// Plan orders a graph's nodes into waves using Kahn's algorithm: a wave is
// every node whose remaining in-degree has reached zero at that point.
// Nodes within a wave carry no ordering guarantee against each other, only
// against every node in an earlier or later wave. Plan returns a
// *flowerr.CycleError naming the nodes it could not schedule when the
// graph is not a DAG.
func Plan(g Graph) ([][]string, error) {
	inDegree := make(map[string]int, len(g.NodeIDs))
	adjacency := make(map[string][]string, len(g.NodeIDs))
	for _, id := range g.NodeIDs {
		inDegree[id] = 0
	}
	for _, e := range g.Edges {
		if _, ok := inDegree[e.Target]; !ok {
			continue
		}
		if _, ok := inDegree[e.Source]; !ok {
			continue
		}
		inDegree[e.Target]++
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
	}

	remaining := make(map[string]int, len(inDegree))
	for id, deg := range inDegree {
		remaining[id] = deg
	}

	var waves [][]string
	emitted := 0

	for {
		var wave []string
		for id, deg := range remaining {
			if deg == 0 {
				wave = append(wave, id)
			}
		}
		if len(wave) == 0 {
			break
		}
		sort.Strings(wave)
		waves = append(waves, wave)
		emitted += len(wave)

		for _, id := range wave {
			delete(remaining, id)
		}
		for _, id := range wave {
			for _, next := range adjacency[id] {
				if _, ok := remaining[next]; ok {
					remaining[next]--
				}
			}
		}
	}

	if emitted != len(g.NodeIDs) {
		left := make([]string, 0, len(remaining))
		for id := range remaining {
			left = append(left, id)
		}
		sort.Strings(left)
		return nil, &flowerr.CycleError{Remaining: left}
	}

	return waves, nil
}

// Adjacency maps each source to its outgoing edges.
func Adjacency(g Graph) map[string][]Edge {
	adj := make(map[string][]Edge, len(g.NodeIDs))
	for _, e := range g.Edges {
		adj[e.Source] = append(adj[e.Source], e)
	}
	return adj
}
