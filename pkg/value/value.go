// Package value implements the runtime value model for the dashvm stack
// machine: the tagged value representation (component A of the VM design),
// type tags, type sets, and the fallible arithmetic/comparison/coercion
// primitives that VM opcodes dispatch to.
//
// Following the teacher's dynamic-dispatch style (see pkg/vm's original
// add/subtract/divide family), a Value is simply a Go `any` holding one of
// a closed set of concrete representations:
//
//	Bool  -> bool
//	Int   -> int64
//	Float -> float64
//	Str   -> string
//	List  -> *List
//	Map   -> *Map
//	Addr  -> Addr
//
// No other Go type may appear on the VM stack, in the constant pool, or in
// the environment. TagOf is the single place that performs the type switch;
// every other dispatch site in this package and in pkg/vm goes through it
// (or a narrower type assertion against the same concrete set) so that the
// closed set stays exhaustively handled.
package value

import "fmt"

// TypeTag is the discriminant of a runtime Value.
type TypeTag byte

const (
	Bool TypeTag = iota
	Int
	Float
	Str
	List
	Map
	Addr
)

// String renders a TypeTag the way error messages and disassembly want it.
func (t TypeTag) String() string {
	switch t {
	case Bool:
		return "Bool"
	case Int:
		return "Int"
	case Float:
		return "Float"
	case Str:
		return "Str"
	case List:
		return "List"
	case Map:
		return "Map"
	case Addr:
		return "Addr"
	default:
		return fmt.Sprintf("TypeTag(%d)", byte(t))
	}
}

// TypeSet is a bitmask over TypeTags, used to describe the set of operand
// types an operation accepts when reporting a TypeError.
type TypeSet uint8

// NewTypeSet builds a TypeSet from the given tags.
func NewTypeSet(tags ...TypeTag) TypeSet {
	var s TypeSet
	for _, t := range tags {
		s |= 1 << uint(t)
	}
	return s
}

// Has reports whether t is a member of the set.
func (s TypeSet) Has(t TypeTag) bool {
	return s&(1<<uint(t)) != 0
}

// String lists the set's members, comma separated.
func (s TypeSet) String() string {
	out := ""
	for t := Bool; t <= Addr; t++ {
		if s.Has(t) {
			if out != "" {
				out += ","
			}
			out += t.String()
		}
	}
	if out == "" {
		return "{}"
	}
	return out
}

// ListValue type, named List to mirror TypeTag's List but kept distinct so
// callers write *value.List rather than shadowing the tag constant.
type List struct {
	Items []any // immutable after construction
}

// MapValue is the runtime representation of a Map value.
type Map struct {
	Items map[string]any // immutable after construction
}

// Addr is an instruction-stream index. It is not arithmetic: the only ways
// to produce one are loading it from the constant pool (where the assembler
// placed it after resolving a label) or fetching it via the Load opcode.
type Addr uint64

// TagOf returns the TypeTag of v and true, or (0, false) if v does not hold
// one of the seven legal concrete representations (including v == nil).
func TagOf(v any) (TypeTag, bool) {
	switch v.(type) {
	case bool:
		return Bool, true
	case int64:
		return Int, true
	case float64:
		return Float, true
	case string:
		return Str, true
	case *List:
		return List, true
	case *Map:
		return Map, true
	case Addr:
		return Addr, true
	default:
		return 0, false
	}
}

// TypeError is returned by a unary-style operation (including Coerce and
// Expect) when a value's tag does not belong to the operation's accepted
// TypeSet.
type TypeError struct {
	Expect TypeSet
	Got    TypeTag
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type error: expected one of %s, got %s", e.Expect, e.Got)
}

// TypeMismatch is returned by a binary operation when the two operand tags
// are not an accepted pair (e.g. Int + Str).
type TypeMismatch struct {
	A, B TypeTag
}

func (e *TypeMismatch) Error() string {
	return fmt.Sprintf("type mismatch: %s and %s", e.A, e.B)
}

// Equal implements the VM's structural `eq` comparison. Unlike every other
// binary operation, eq is total: mismatched tags yield Bool(false) rather
// than an error. This is an intentional departure from the strict typing
// rule followed by every other operator in this package, preserved from the
// observed source behavior (see DESIGN.md's Open Question decisions).
func Equal(a, b any) bool {
	ta, oka := TagOf(a)
	tb, okb := TagOf(b)
	if !oka || !okb || ta != tb {
		return false
	}
	switch av := a.(type) {
	case bool:
		return av == b.(bool)
	case int64:
		return av == b.(int64)
	case float64:
		return av == b.(float64)
	case string:
		return av == b.(string)
	case Addr:
		return av == b.(Addr)
	case *List:
		bv := b.(*List)
		if len(av.Items) != len(bv.Items) {
			return false
		}
		for i := range av.Items {
			if !Equal(av.Items[i], bv.Items[i]) {
				return false
			}
		}
		return true
	case *Map:
		bv := b.(*Map)
		if len(av.Items) != len(bv.Items) {
			return false
		}
		for k, v := range av.Items {
			bvv, ok := bv.Items[k]
			if !ok || !Equal(v, bvv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
