package value

import (
	"fmt"
	"math"
)

// BinOp identifies a binary value operation. It is the operand of the VM's
// Binary opcode (program.OpBinary) and the assembler's binary-operator
// keywords.
type BinOp byte

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Mod
	Pow
	And
	Or
	Xor
	Shl
	Shr
	Lt
	Gt
	Lte
	Gte
	Eq
	Min
	Max
)

// UnOp identifies a unary value operation, the operand of the VM's Unary
// opcode.
type UnOp byte

const (
	Not UnOp = iota
	Neg
	Abs
)

func (op BinOp) String() string {
	switch op {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	case Mod:
		return "%"
	case Pow:
		return "**"
	case And:
		return "and"
	case Or:
		return "or"
	case Xor:
		return "xor"
	case Shl:
		return "<<"
	case Shr:
		return ">>"
	case Lt:
		return "<"
	case Gt:
		return ">"
	case Lte:
		return "<="
	case Gte:
		return ">="
	case Eq:
		return "=="
	case Min:
		return "min"
	case Max:
		return "max"
	default:
		return fmt.Sprintf("BinOp(%d)", byte(op))
	}
}

func (op UnOp) String() string {
	switch op {
	case Not:
		return "not"
	case Neg:
		return "neg"
	case Abs:
		return "abs"
	default:
		return fmt.Sprintf("UnOp(%d)", byte(op))
	}
}

// arithmeticSet is the accepted TypeSet for +, -, *, /, %, **, min, max.
var arithmeticSet = NewTypeSet(Int, Float)

// ApplyBinary dispatches a binary operation to its operand pair. Every
// combination not on the accepted list for op fails with TypeMismatch,
// except Eq which is total (see Equal).
func ApplyBinary(op BinOp, a, b any) (any, error) {
	if op == Eq {
		return Equal(a, b), nil
	}

	ta, oka := TagOf(a)
	tb, okb := TagOf(b)
	if !oka || !okb {
		return nil, &TypeMismatch{A: ta, B: tb}
	}

	switch op {
	case Add, Sub, Mul, Div, Mod, Pow, Min, Max:
		return numericBinary(op, a, b, ta, tb)
	case And, Or, Xor:
		return logicalBinary(op, a, b, ta, tb)
	case Shl, Shr:
		return shiftBinary(op, a, b, ta, tb)
	case Lt, Gt, Lte, Gte:
		return comparisonBinary(op, a, b, ta, tb)
	default:
		return nil, fmt.Errorf("unknown binary operator: %v", op)
	}
}

func numericBinary(op BinOp, a, b any, ta, tb TypeTag) (any, error) {
	if ta == Int && tb == Int {
		x, y := a.(int64), b.(int64)
		switch op {
		case Add:
			return addInt(x, y)
		case Sub:
			return subInt(x, y)
		case Mul:
			return mulInt(x, y)
		case Div:
			if y == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			if y == -1 && x == math.MinInt64 {
				return nil, fmt.Errorf("integer overflow: %d / %d", x, y)
			}
			return x / y, nil // truncates toward zero, per Go integer division
		case Mod:
			if y == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return x % y, nil
		case Pow:
			return powInt(x, y)
		case Min:
			if x < y {
				return x, nil
			}
			return y, nil
		case Max:
			if x > y {
				return x, nil
			}
			return y, nil
		}
	}
	if ta == Float && tb == Float {
		x, y := a.(float64), b.(float64)
		switch op {
		case Add:
			return x + y, nil
		case Sub:
			return x - y, nil
		case Mul:
			return x * y, nil
		case Div:
			return x / y, nil // Float NaN/Inf propagate via host semantics
		case Mod:
			return mathMod(x, y), nil
		case Pow:
			return mathPow(x, y), nil
		case Min:
			if x < y {
				return x, nil
			}
			return y, nil
		case Max:
			if x > y {
				return x, nil
			}
			return y, nil
		}
	}
	return nil, &TypeMismatch{A: ta, B: tb}
}

func logicalBinary(op BinOp, a, b any, ta, tb TypeTag) (any, error) {
	if ta == Bool && tb == Bool {
		x, y := a.(bool), b.(bool)
		switch op {
		case And:
			return x && y, nil
		case Or:
			return x || y, nil
		case Xor:
			return x != y, nil
		}
	}
	if ta == Int && tb == Int {
		x, y := a.(int64), b.(int64)
		switch op {
		case And:
			return x & y, nil
		case Or:
			return x | y, nil
		case Xor:
			return x ^ y, nil
		}
	}
	return nil, &TypeMismatch{A: ta, B: tb}
}

// shiftBinary implements <<, >>. Per SPEC_FULL.md, the shift amount is
// taken modulo the host word width (64 for int64); behavior for shift
// counts >= 64 is therefore well-defined here (it wraps), which is the
// implementation-defined choice this port makes explicit.
func shiftBinary(op BinOp, a, b any, ta, tb TypeTag) (any, error) {
	if ta != Int || tb != Int {
		return nil, &TypeMismatch{A: ta, B: tb}
	}
	x, y := a.(int64), b.(int64)
	shift := uint(y) % 64
	switch op {
	case Shl:
		return x << shift, nil
	case Shr:
		return x >> shift, nil
	default:
		return nil, fmt.Errorf("unknown shift operator: %v", op)
	}
}

func comparisonBinary(op BinOp, a, b any, ta, tb TypeTag) (any, error) {
	if ta == Int && tb == Int {
		x, y := a.(int64), b.(int64)
		switch op {
		case Lt:
			return x < y, nil
		case Gt:
			return x > y, nil
		case Lte:
			return x <= y, nil
		case Gte:
			return x >= y, nil
		}
	}
	if ta == Float && tb == Float {
		x, y := a.(float64), b.(float64)
		switch op {
		case Lt:
			return x < y, nil
		case Gt:
			return x > y, nil
		case Lte:
			return x <= y, nil
		case Gte:
			return x >= y, nil
		}
	}
	return nil, &TypeMismatch{A: ta, B: tb}
}

// ApplyUnary dispatches a unary operation.
func ApplyUnary(op UnOp, a any) (any, error) {
	ta, ok := TagOf(a)
	if !ok {
		return nil, &TypeError{Expect: unaryAcceptedSet(op), Got: 0}
	}
	switch op {
	case Not:
		switch v := a.(type) {
		case bool:
			return !v, nil
		case int64:
			return ^v, nil
		default:
			return nil, &TypeError{Expect: NewTypeSet(Bool, Int), Got: ta}
		}
	case Neg:
		switch v := a.(type) {
		case int64:
			return -v, nil
		case float64:
			return -v, nil
		default:
			return nil, &TypeError{Expect: arithmeticSet, Got: ta}
		}
	case Abs:
		switch v := a.(type) {
		case int64:
			if v < 0 {
				return -v, nil
			}
			return v, nil
		case float64:
			return mathAbs(v), nil
		default:
			return nil, &TypeError{Expect: arithmeticSet, Got: ta}
		}
	default:
		return nil, fmt.Errorf("unknown unary operator: %v", op)
	}
}

func unaryAcceptedSet(op UnOp) TypeSet {
	if op == Not {
		return NewTypeSet(Bool, Int)
	}
	return arithmeticSet
}

// coerceTargets is the per-source accepted target TypeSet from the table
// in SPEC_FULL.md §4.1: Bool->{Bool,Int}, Int->{Bool,Int,Float},
// Float->{Int,Float}, Str/List/Map->{Bool}.
func coerceTargets(ta TypeTag) TypeSet {
	switch ta {
	case Bool:
		return NewTypeSet(Bool, Int)
	case Int:
		return NewTypeSet(Bool, Int, Float)
	case Float:
		return NewTypeSet(Int, Float)
	case Str, List, Map:
		return NewTypeSet(Bool)
	default:
		return 0
	}
}

// Coerce implements the total coercion table from SPEC_FULL.md §4.1.
func Coerce(v any, tt TypeTag) (any, error) {
	ta, ok := TagOf(v)
	if !ok || !coerceTargets(ta).Has(tt) {
		return nil, &TypeError{Expect: coerceTargets(ta), Got: ta}
	}
	switch ta {
	case Bool:
		b := v.(bool)
		if tt == Bool {
			return b, nil
		}
		if b {
			return int64(1), nil
		}
		return int64(0), nil
	case Int:
		n := v.(int64)
		switch tt {
		case Bool:
			return n != 0, nil
		case Float:
			return float64(n), nil
		default:
			return n, nil
		}
	case Float:
		f := v.(float64)
		if tt == Int {
			return int64(f), nil // truncate toward zero
		}
		return f, nil
	case Str:
		return len(v.(string)) != 0, nil
	case List:
		return len(v.(*List).Items) != 0, nil
	case Map:
		return len(v.(*Map).Items) != 0, nil
	default:
		return nil, &TypeError{Expect: 0, Got: ta}
	}
}
