package algorithms

import (
	"github.com/dd0wney/synthgraph/pkg/ugen"
)

// Cycle is a closed chain of nodes where each node feeds the next and the
// last feeds the first
type Cycle []*ugen.UGen

const (
	white = iota // Unvisited
	gray         // On the current DFS path
	black        // Finished
)

type dfsFrame struct {
	node      *ugen.UGen
	producers []*ugen.UGen
	next      int
}

// FindCycle returns one cycle among nodes, or nil when the graph is acyclic.
// Only edges between members of nodes are followed.
//
// Algorithm: depth-first search over antecedent edges with three-color
// marking. Reaching a gray node closes a cycle made of the path suffix that
// starts at that node.
func FindCycle(nodes []*ugen.UGen) Cycle {
	member := make(map[*ugen.UGen]struct{}, len(nodes))
	for _, u := range nodes {
		member[u] = struct{}{}
	}

	color := make(map[*ugen.UGen]int, len(nodes))
	depth := make(map[*ugen.UGen]int)

	for _, start := range nodes {
		if color[start] != white {
			continue
		}

		path := []dfsFrame{{node: start, producers: start.Antecedents()}}
		color[start] = gray
		depth[start] = 0

		for len(path) > 0 {
			top := &path[len(path)-1]
			if top.next == len(top.producers) {
				color[top.node] = black
				path = path[:len(path)-1]
				continue
			}

			p := top.producers[top.next]
			top.next++
			if _, ok := member[p]; !ok {
				continue
			}

			switch color[p] {
			case white:
				color[p] = gray
				depth[p] = len(path)
				path = append(path, dfsFrame{node: p, producers: p.Antecedents()})
			case gray:
				return closeCycle(path[depth[p]:])
			}
		}
	}

	return nil
}

// closeCycle turns a consumer-to-producer path into a data-flow cycle
func closeCycle(path []dfsFrame) Cycle {
	cycle := make(Cycle, len(path))
	for i, f := range path {
		cycle[len(path)-1-i] = f.node
	}
	return cycle
}

// HasCycle reports whether nodes contain a cycle
func HasCycle(nodes []*ugen.UGen) bool {
	return FindCycle(nodes) != nil
}
