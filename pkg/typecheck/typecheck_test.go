package typecheck

import (
	"testing"

	"github.com/kristofer/dashvm/pkg/ast"
)

func TestScalarLiterals(t *testing.T) {
	c := New()
	cases := []struct {
		expr ast.Expr
		want ast.TypeTag
	}{
		{ast.EInt{Value: 42}, ast.TInt{}},
		{ast.EFloat{Value: 1.5}, ast.TFloat{}},
		{ast.EStr{Value: "x"}, ast.TStr{}},
		{ast.EBool{Value: true}, ast.TBool{}},
		{ast.EPoint{X: 1, Y: 2}, ast.TPoint{}},
	}
	for _, cs := range cases {
		got, err := c.CheckExpr(cs.expr)
		if err != nil {
			t.Fatalf("CheckExpr(%#v): %v", cs.expr, err)
		}
		if typeKey(got) != typeKey(cs.want) {
			t.Errorf("CheckExpr(%#v) = %v, want %v", cs.expr, describe(got), describe(cs.want))
		}
	}
}

func TestListNarrowsHomogeneous(t *testing.T) {
	c := New()
	got, err := c.CheckExpr(ast.EList{Items: []ast.Expr{ast.EInt{Value: 1}, ast.EInt{Value: 2}}})
	if err != nil {
		t.Fatal(err)
	}
	lst := got.(ast.TList)
	if _, ok := lst.Elem.(ast.TInt); !ok {
		t.Fatalf("expected List(Int), got %s", describe(got))
	}
}

func TestListNarrowsToUnion(t *testing.T) {
	c := New()
	got, err := c.CheckExpr(ast.EList{Items: []ast.Expr{ast.EInt{Value: 1}, ast.EStr{Value: "x"}}})
	if err != nil {
		t.Fatal(err)
	}
	lst := got.(ast.TList)
	if _, ok := lst.Elem.(ast.TUnion); !ok {
		t.Fatalf("expected List(Union(...)), got %s", describe(got))
	}
}

func TestIdUndefined(t *testing.T) {
	c := New()
	_, err := c.CheckExpr(ast.EId{Name: "missing"})
	if _, ok := err.(*Undefined); !ok {
		t.Fatalf("expected Undefined, got %v", err)
	}
}

func TestDotOnNonMap(t *testing.T) {
	c := New()
	_, err := c.CheckExpr(ast.EDot{Target: ast.EInt{Value: 1}, Field: "x"})
	if _, ok := err.(*NotAMap); !ok {
		t.Fatalf("expected NotAMap, got %v", err)
	}
}

func TestIndexRequiresInt(t *testing.T) {
	c := New()
	lst := ast.EList{Items: []ast.Expr{ast.EInt{Value: 1}}}
	_, err := c.CheckExpr(ast.EIndex{Target: lst, Index: ast.EStr{Value: "nope"}})
	if _, ok := err.(*ListIndexMustBeInt); !ok {
		t.Fatalf("expected ListIndexMustBeInt, got %v", err)
	}
}

func TestCondRequiresBoolConditions(t *testing.T) {
	c := New()
	cond := ast.ECond{
		Cases:   []ast.CondCase{{Cond: ast.EInt{Value: 1}, Result: ast.EInt{Value: 1}}},
		Default: ast.EInt{Value: 0},
	}
	_, err := c.CheckExpr(cond)
	if _, ok := err.(*Mismatch); !ok {
		t.Fatalf("expected Mismatch, got %v", err)
	}
}

func TestStrStrBinOpYieldsFloatQuirk(t *testing.T) {
	c := New()
	got, err := c.CheckExpr(ast.EBinOp{Op: ast.Add, Left: ast.EStr{Value: "a"}, Right: ast.EStr{Value: "b"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got.(ast.TFloat); !ok {
		t.Fatalf("expected preserved Str+Str->Float quirk, got %s", describe(got))
	}
}

func TestEqIsTotal(t *testing.T) {
	c := New()
	got, err := c.CheckExpr(ast.EBinOp{Op: ast.Eq, Left: ast.EInt{Value: 1}, Right: ast.EStr{Value: "x"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got.(ast.TBool); !ok {
		t.Fatalf("expected Bool from mismatched-type Eq, got %s", describe(got))
	}
}

func TestLambdaCallRoundTrip(t *testing.T) {
	c := New()
	lam := ast.ELambda{
		Params: []ast.Param{{Name: "x", Type: ast.TInt{}}},
		Ret:    ast.TInt{},
		Body:   ast.EId{Name: "x"},
	}
	lamType, err := c.CheckExpr(lam)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := lamType.(ast.TLambda); !ok {
		t.Fatalf("expected TLambda, got %s", describe(lamType))
	}
	retType, err := c.CheckExpr(ast.ECall{Func: lam, Args: []ast.Expr{ast.EInt{Value: 4}}})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := retType.(ast.TInt); !ok {
		t.Fatalf("expected call to yield Int, got %s", describe(retType))
	}
}

func TestListIterBindsElementType(t *testing.T) {
	c := New()
	c.types.Define("xs", ast.TList{Elem: ast.TInt{}})
	stmt := ast.SListIter{
		Name: "x",
		List: ast.EId{Name: "xs"},
		Body: ast.SDef{Name: "y", Expr: ast.EBinOp{Op: ast.Add, Left: ast.EId{Name: "x"}, Right: ast.EInt{Value: 1}}},
	}
	if err := c.CheckStatement(stmt); err != nil {
		t.Fatal(err)
	}
}

func TestWhileRequiresBoolCond(t *testing.T) {
	c := New()
	stmt := ast.SWhile{Cond: ast.EInt{Value: 1}, Body: ast.SExprForEffect{Expr: ast.EUnit{}}}
	if err := c.CheckStatement(stmt); err == nil {
		t.Fatal("expected error for non-Bool while condition")
	}
}
