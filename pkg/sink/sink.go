// Package sink defines the VM's effect boundary: the fixed draw-op tag
// enumeration and the Sink interface the embedder implements to receive
// them. This is component E of the VM design, grounded on
// original_source/src/ast.rs's CairoOp enum (SetSourceRgb/SetSourceRgba/
// Rect/Fill/Stroke/Paint) and on the teacher's pattern of a narrow
// interface the VM holds and calls into without knowing the concrete
// implementation (see the Sink field of pkg/vm's VM).
package sink

import "fmt"

// DrawOp identifies one of the fixed, exhaustive set of side-effecting
// operations the Disp opcode can emit. No other draw operation exists;
// extending the set is a SPEC_FULL.md change, not a runtime one.
type DrawOp byte

const (
	// SetSourceRgb pops b, g, r (in that order) and sets the opaque paint color.
	SetSourceRgb DrawOp = iota
	// SetSourceRgba pops a, b, g, r (in that order) and sets the paint color.
	SetSourceRgba
	// Rect pops height, width, y, x (in that order) and stages a rectangle path.
	Rect
	// Fill fills the current path with the current source, no operands.
	Fill
	// Stroke strokes the current path with the current source, no operands.
	Stroke
	// Paint paints the current source over the entire clip region, no operands.
	Paint
)

func (op DrawOp) String() string {
	switch op {
	case SetSourceRgb:
		return "set_source_rgb"
	case SetSourceRgba:
		return "set_source_rgba"
	case Rect:
		return "rect"
	case Fill:
		return "fill"
	case Stroke:
		return "stroke"
	case Paint:
		return "paint"
	default:
		return fmt.Sprintf("draw_op(%d)", byte(op))
	}
}

// Arity returns how many stack values the draw op pops, in push order (so
// the VM pops len-1 down to 0 to recover the documented argument order).
func (op DrawOp) Arity() int {
	switch op {
	case SetSourceRgb:
		return 3
	case SetSourceRgba:
		return 4
	case Rect:
		return 4
	case Fill, Stroke, Paint:
		return 0
	default:
		return 0
	}
}

// VMHandle is the narrow, read-only view of VM state a Sink receives along
// with a draw op: just the popped operand values, restored to push order
// (for SetSourceRgb, Args is r, g, b). The VM constructs one per Disp
// dispatch; sinks never get access to the stack, frames, or program beyond
// this.
type VMHandle struct {
	Op   DrawOp
	Args []any // len(Args) == Op.Arity(), in push order
}

// Sink receives draw-op effects emitted by the Disp opcode. Implementations
// must be side-effect-only and must not panic; a non-nil error aborts VM
// execution with a DispatchError.
type Sink interface {
	Output(op DrawOp, handle VMHandle) error
}

// DispatchError wraps a Sink's rejection of a dispatched draw op so the VM
// can surface it the same way it surfaces other runtime errors.
type DispatchError struct {
	Op  DrawOp
	Err error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("sink rejected %s: %v", e.Op, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// RecordingSink is a Sink that simply appends every dispatched op to an
// in-memory slice, the way the teacher's test fixtures capture side effects
// without a real embedder present. Useful for tests and for the CLI's
// `run --trace` mode.
type RecordingSink struct {
	Records []Record
}

// Record is one captured dispatch.
type Record struct {
	Op   DrawOp
	Args []any
}

func (s *RecordingSink) Output(op DrawOp, handle VMHandle) error {
	s.Records = append(s.Records, Record{Op: op, Args: handle.Args})
	return nil
}
