package typecheck

import "github.com/kristofer/dashvm/pkg/ast"

func isFloat(t ast.TypeTag) bool { _, ok := t.(ast.TFloat); return ok }
func isStr(t ast.TypeTag) bool   { _, ok := t.(ast.TStr); return ok }

// typeOfBinOp types a binary operator application. Eq is total, like
// pkg/value's runtime Equal: any pair of operand types yields Bool.
// Every other operator requires matching operand types from its accepted
// set, and a (Str, Str) pair on an arithmetic operator resolves to Float —
// an intentionally preserved quirk noted in DESIGN.md's Open Question
// decisions, not a typo.
func typeOfBinOp(op ast.BinOp, a, b ast.TypeTag) (ast.TypeTag, error) {
	if op == ast.Eq {
		return ast.TBool{}, nil
	}

	switch op {
	case ast.Add, ast.Sub, ast.Mul, ast.Div, ast.Mod, ast.Pow, ast.Min, ast.Max:
		switch {
		case isInt(a) && isInt(b):
			return ast.TInt{}, nil
		case isFloat(a) && isFloat(b):
			return ast.TFloat{}, nil
		case isStr(a) && isStr(b):
			return ast.TFloat{}, nil
		default:
			return nil, &Mismatch{Got: b, Want: a}
		}
	case ast.And, ast.Or, ast.Xor:
		switch {
		case isBool(a) && isBool(b):
			return ast.TBool{}, nil
		case isInt(a) && isInt(b):
			return ast.TInt{}, nil
		default:
			return nil, &Mismatch{Got: b, Want: a}
		}
	case ast.Shl, ast.Shr:
		if isInt(a) && isInt(b) {
			return ast.TInt{}, nil
		}
		return nil, &Mismatch{Got: b, Want: a}
	case ast.Lt, ast.Gt, ast.Lte, ast.Gte:
		switch {
		case isInt(a) && isInt(b):
			return ast.TBool{}, nil
		case isFloat(a) && isFloat(b):
			return ast.TBool{}, nil
		default:
			return nil, &Mismatch{Got: b, Want: a}
		}
	default:
		return nil, &NotImplemented{What: "unknown binary operator"}
	}
}

// typeOfUnOp types a unary operator application.
func typeOfUnOp(op ast.UnOp, a ast.TypeTag) (ast.TypeTag, error) {
	switch op {
	case ast.Not:
		switch {
		case isBool(a):
			return ast.TBool{}, nil
		case isInt(a):
			return ast.TInt{}, nil
		default:
			return nil, &Mismatch{Got: a, Want: ast.TBool{}}
		}
	case ast.Neg, ast.Abs:
		switch {
		case isInt(a):
			return ast.TInt{}, nil
		case isFloat(a):
			return ast.TFloat{}, nil
		default:
			return nil, &Mismatch{Got: a, Want: ast.TInt{}}
		}
	default:
		return nil, &NotImplemented{What: "unknown unary operator"}
	}
}
