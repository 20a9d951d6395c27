package typecheck

import (
	"fmt"
	"sort"

	"github.com/kristofer/dashvm/pkg/ast"
)

// These errors mirror original_source/src/typechecker.rs's TypeError enum,
// extended with NotCallable and ArgError for the call/lambda checking this
// port adds (the original left eval_lambda and call-checking unimplemented).

type Mismatch struct{ Got, Want ast.TypeTag }

func (e *Mismatch) Error() string {
	return fmt.Sprintf("type mismatch: expected %s, got %s", describe(e.Want), describe(e.Got))
}

type NotAList struct{ Got ast.TypeTag }

func (e *NotAList) Error() string { return fmt.Sprintf("not a list: %s", describe(e.Got)) }

type NotAMap struct{ Got ast.TypeTag }

func (e *NotAMap) Error() string { return fmt.Sprintf("not a map: %s", describe(e.Got)) }

type Undefined struct{ Name string }

func (e *Undefined) Error() string { return fmt.Sprintf("undefined identifier: %s", e.Name) }

type ListIndexMustBeInt struct{ Got ast.TypeTag }

func (e *ListIndexMustBeInt) Error() string {
	return fmt.Sprintf("list index must be Int, got %s", describe(e.Got))
}

type KeyError struct {
	Fields map[string]ast.TypeTag
	Key    string
}

func (e *KeyError) Error() string { return fmt.Sprintf("no such field: %q", e.Key) }

type NotOneOf struct{ Alternatives []ast.TypeTag }

func (e *NotOneOf) Error() string { return "value does not match any alternative of its union type" }

type NotIterable struct{ Got ast.TypeTag }

func (e *NotIterable) Error() string { return fmt.Sprintf("not iterable: %s", describe(e.Got)) }

type NotCallable struct{ Got ast.TypeTag }

func (e *NotCallable) Error() string { return fmt.Sprintf("not callable: %s", describe(e.Got)) }

type ArgError struct {
	Want, Got int
}

func (e *ArgError) Error() string {
	return fmt.Sprintf("wrong argument count: expected %d, got %d", e.Want, e.Got)
}

// NotImplemented marks a surface construct the checker deliberately does
// not type (original_source's eval_op/eval_lambda stubs before this port
// filled them in); kept as a possible result for future surface extensions.
type NotImplemented struct{ What string }

func (e *NotImplemented) Error() string { return fmt.Sprintf("not implemented: %s", e.What) }

// describe renders a TypeTag for error messages. It lives here rather than
// in pkg/ast because it is purely a diagnostics concern.
func describe(t ast.TypeTag) string {
	switch tt := t.(type) {
	case ast.TUnit:
		return "Unit"
	case ast.TBool:
		return "Bool"
	case ast.TInt:
		return "Int"
	case ast.TFloat:
		return "Float"
	case ast.TStr:
		return "Str"
	case ast.TPoint:
		return "Point"
	case ast.TList:
		return fmt.Sprintf("List(%s)", describe(tt.Elem))
	case ast.TMap:
		keys := make([]string, 0, len(tt.Fields))
		for k := range tt.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		s := "Map("
		for i, k := range keys {
			if i > 0 {
				s += ","
			}
			s += k + ":" + describe(tt.Fields[k])
		}
		return s + ")"
	case ast.TLambda:
		return "Lambda"
	case ast.TUnion:
		s := "Union("
		for i, alt := range tt.Alts {
			if i > 0 {
				s += ","
			}
			s += describe(alt)
		}
		return s + ")"
	default:
		return fmt.Sprintf("%T", t)
	}
}
