// Package controls maintains the flattened control-descriptor table of a
// synth definition: the bridge between named parameters and the control-node
// outputs that carry their values at run time.
package controls

import (
	"github.com/dd0wney/synthgraph/pkg/ugen"
)

var controlOps = map[string]struct{}{
	ugen.OpControl:      {},
	ugen.OpAudioControl: {},
	ugen.OpTrigControl:  {},
	ugen.OpLagControl:   {},
}

// IsControlOp reports whether op names a control operator. Control nodes own
// one descriptor per output and store their table offset in the special index.
func IsControlOp(op string) bool {
	_, ok := controlOps[op]
	return ok
}

// ControlOps returns the recognised control operator names
func ControlOps() []string {
	return []string{ugen.OpControl, ugen.OpAudioControl, ugen.OpTrigControl, ugen.OpLagControl}
}

// Registry is an ordered table of descriptors
type Registry struct {
	descs []ugen.Descriptor
	names map[string]int
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]int)}
}

// Append adds descs in order and returns the offset of the first one, which
// is the registry length before the call.
func (r *Registry) Append(descs ...ugen.Descriptor) int {
	offset := len(r.descs)
	for i, d := range descs {
		if d.Named() {
			// First registration of a name wins lookups; later duplicates
			// stay addressable by index only.
			if _, dup := r.names[d.Name]; !dup {
				r.names[d.Name] = offset + i
			}
		}
		r.descs = append(r.descs, d)
	}
	return offset
}

// Len returns the number of descriptors
func (r *Registry) Len() int {
	return len(r.descs)
}

// At returns the descriptor at index i
func (r *Registry) At(i int) ugen.Descriptor {
	return r.descs[i]
}

// Descriptors returns a copy of the table
func (r *Registry) Descriptors() []ugen.Descriptor {
	out := make([]ugen.Descriptor, len(r.descs))
	copy(out, r.descs)
	return out
}

// Lookup returns the index of the named descriptor
func (r *Registry) Lookup(name string) (int, bool) {
	i, ok := r.names[name]
	return i, ok
}

// NamedEntry pairs a descriptor name with its table index
type NamedEntry struct {
	Name  string
	Index int
}

// Named returns the named descriptors in table order, skipping unnamed ones
func (r *Registry) Named() []NamedEntry {
	entries := make([]NamedEntry, 0, len(r.descs))
	for i, d := range r.descs {
		if d.Named() {
			entries = append(entries, NamedEntry{Name: d.Name, Index: i})
		}
	}
	return entries
}

// Unnamed returns the indices of descriptors without a name
func (r *Registry) Unnamed() []int {
	var idx []int
	for i, d := range r.descs {
		if !d.Named() {
			idx = append(idx, i)
		}
	}
	return idx
}
