package synthdef

import (
	"errors"
	"fmt"
	"strings"
)

// Common sentinel errors
var (
	ErrCycle               = errors.New("graph contains a cycle")
	ErrNameTooLong         = errors.New("name exceeds 255 bytes")
	ErrTooMany             = errors.New("table exceeds 16-bit count")
	ErrDanglingRef         = errors.New("input refers to a node or constant outside the definition")
	ErrOrderViolation      = errors.New("input refers to a node that is not earlier in the sequence")
	ErrUnsupportedVariants = errors.New("definition variants are not supported")
	ErrBadMagic            = errors.New("bad magic")
	ErrBadVersion          = errors.New("unsupported version")
	ErrTruncated           = errors.New("truncated stream")
	ErrBadReference        = errors.New("invalid input reference")
	ErrBadRate             = errors.New("invalid rate")
	ErrTrailingData        = errors.New("trailing data after last definition")
	ErrOrphanControl       = errors.New("control entry not owned by any control node")
	ErrUnnamedControl      = errors.New("control descriptor has no name")
)

// Kind classifies errors by how the caller should react to them
type Kind int

const (
	// KindStructural means the graph itself is malformed (cycle, oversized
	// table, unsupported feature). Retrying is meaningless.
	KindStructural Kind = iota + 1
	// KindFormat means the byte stream is corrupt or of an unsupported format
	KindFormat
	// KindInconsistency is a tolerable mismatch that was escalated because
	// strict mode is on
	KindInconsistency
)

func (k Kind) String() string {
	switch k {
	case KindStructural:
		return "structural"
	case KindFormat:
		return "format"
	case KindInconsistency:
		return "inconsistency"
	default:
		return "unknown"
	}
}

// Error provides structured information about a failed compile, encode or decode.
type Error struct {
	Op         string // Operation that failed (e.g., "sequence", "encode", "decode")
	Kind       Kind
	Definition string // Definition name, when known
	NodeIndex  int    // Position in the node table, -1 if not applicable
	NodeOp     string // Operator name of the node involved
	Offset     int    // Byte offset in the stream, -1 if not applicable
	Index      int    // Table index (constant, control, input), -1 if not applicable
	Context    string // Additional context
	Cause      error  // Underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Op)
	if e.Definition != "" {
		fmt.Fprintf(&sb, " %q", e.Definition)
	}
	if e.NodeIndex >= 0 {
		fmt.Fprintf(&sb, " node %d", e.NodeIndex)
		if e.NodeOp != "" {
			fmt.Fprintf(&sb, " (%s)", e.NodeOp)
		}
	} else if e.NodeOp != "" {
		fmt.Fprintf(&sb, " node %s", e.NodeOp)
	}
	if e.Index >= 0 {
		fmt.Fprintf(&sb, " index %d", e.Index)
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&sb, " at offset %d", e.Offset)
	}
	if e.Context != "" {
		fmt.Fprintf(&sb, " (%s)", e.Context)
	}
	fmt.Fprintf(&sb, ": %v", e.Cause)
	return sb.String()
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ErrorBuilder provides a fluent interface for building Errors.
type ErrorBuilder struct {
	err Error
}

// NewError creates a new error builder with the given operation and kind.
func NewError(op string, kind Kind) *ErrorBuilder {
	return &ErrorBuilder{err: Error{Op: op, Kind: kind, NodeIndex: -1, Offset: -1, Index: -1}}
}

// Structural starts a structural error for op.
func Structural(op string) *ErrorBuilder {
	return NewError(op, KindStructural)
}

// Format starts a format error for op.
func Format(op string) *ErrorBuilder {
	return NewError(op, KindFormat)
}

// Definition sets the definition name.
func (b *ErrorBuilder) Definition(name string) *ErrorBuilder {
	b.err.Definition = name
	return b
}

// Node sets the node position and operator name.
func (b *ErrorBuilder) Node(index int, op string) *ErrorBuilder {
	b.err.NodeIndex = index
	b.err.NodeOp = op
	return b
}

// Offset sets the byte offset.
func (b *ErrorBuilder) Offset(off int) *ErrorBuilder {
	b.err.Offset = off
	return b
}

// Index sets the table index.
func (b *ErrorBuilder) Index(i int) *ErrorBuilder {
	b.err.Index = i
	return b
}

// Context sets additional context information.
func (b *ErrorBuilder) Context(format string, args ...any) *ErrorBuilder {
	b.err.Context = fmt.Sprintf(format, args...)
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Build returns the constructed Error.
func (b *ErrorBuilder) Build() *Error {
	return &b.err
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return &b.err
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsStructural returns true if the error is a structural error.
func IsStructural(err error) bool {
	return KindOf(err) == KindStructural
}

// IsFormat returns true if the error is a format (parse) error.
func IsFormat(err error) bool {
	return KindOf(err) == KindFormat
}

// IsInconsistency returns true if the error is an escalated inconsistency.
func IsInconsistency(err error) bool {
	return KindOf(err) == KindInconsistency
}
