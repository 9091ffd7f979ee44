package algorithms

import (
	"sort"
	"strings"

	"github.com/dd0wney/synthgraph/pkg/synthdef"
	"github.com/dd0wney/synthgraph/pkg/ugen"
)

// envelope is the sequencer's working record for one node
type envelope struct {
	node        *ugen.UGen
	antecedents map[int]struct{}
	descendants []int
}

// Sequence returns nodes in evaluation order using Kahn's algorithm with a
// LIFO ready stack. Every node appears after all of its antecedents.
//
// The order is fully determined by the input order: antecedent-free nodes
// are seeded so that the lowest index pops first, and each emitted node
// releases its descendants in ascending index order. Callers that feed the
// same collection order always get the same sequence.
//
// Antecedents that are not in nodes are ignored. A cycle yields a structural
// error wrapping synthdef.ErrCycle.
func Sequence(nodes []*ugen.UGen) ([]*ugen.UGen, error) {
	if len(nodes) == 0 {
		return []*ugen.UGen{}, nil
	}

	arena := buildArena(nodes)

	// Seed last to first so the lowest index is on top
	stack := make([]int, 0, len(nodes))
	for i := len(arena) - 1; i >= 0; i-- {
		if len(arena[i].antecedents) == 0 {
			stack = append(stack, i)
		}
	}

	sorted := make([]*ugen.UGen, 0, len(nodes))
	emitted := make([]bool, len(nodes))

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		sorted = append(sorted, arena[current].node)
		emitted[current] = true

		for _, d := range arena[current].descendants {
			ante := arena[d].antecedents
			delete(ante, current)
			if len(ante) == 0 {
				stack = append(stack, d)
			}
		}
	}

	if len(sorted) != len(nodes) {
		for i, ok := range emitted {
			if ok {
				continue
			}
			b := synthdef.Structural("sequence").Node(i, nodes[i].Op).Cause(synthdef.ErrCycle)
			if cycle := FindCycle(nodes); len(cycle) > 0 {
				b = b.Context("%s", cycle)
			}
			return nil, b.Err()
		}
	}

	return sorted, nil
}

// buildArena indexes nodes and links each one to the nodes it feeds
func buildArena(nodes []*ugen.UGen) []envelope {
	index := make(map[*ugen.UGen]int, len(nodes))
	for i, u := range nodes {
		index[u] = i
	}

	arena := make([]envelope, len(nodes))
	for i, u := range nodes {
		arena[i].node = u
		arena[i].antecedents = make(map[int]struct{})
	}

	for i, u := range nodes {
		for _, a := range u.Antecedents() {
			j, ok := index[a]
			if !ok {
				continue
			}
			arena[i].antecedents[j] = struct{}{}
			arena[j].descendants = append(arena[j].descendants, i)
		}
	}

	for i := range arena {
		sort.Ints(arena[i].descendants)
	}
	return arena
}

// IsSequenced reports whether every antecedent in nodes precedes its consumer
func IsSequenced(nodes []*ugen.UGen) bool {
	position := make(map[*ugen.UGen]int, len(nodes))
	for i, u := range nodes {
		position[u] = i
	}
	for i, u := range nodes {
		for _, a := range u.Antecedents() {
			if j, ok := position[a]; ok && j >= i {
				return false
			}
		}
	}
	return true
}

// String renders the cycle as a chain of operator names
func (c Cycle) String() string {
	parts := make([]string, 0, len(c)+1)
	for _, u := range c {
		parts = append(parts, u.Op)
	}
	if len(c) > 0 {
		parts = append(parts, c[0].Op)
	}
	return "cycle " + strings.Join(parts, " -> ")
}
