// Package typecheck implements the structural type checker that walks a
// pkg/ast surface program before assembly, grounded on
// original_source/src/typechecker.rs's eval_expr/eval_list/eval_map/
// eval_id/eval_dot/eval_index/eval_cond family. This is component H of
// the VM design.
package typecheck

import (
	"sort"

	"github.com/kristofer/dashvm/pkg/ast"
	"github.com/kristofer/dashvm/pkg/env"
)

// Checker holds the chained lexical scope of identifier types. Lambda
// bodies, blocks, and list/map iteration bodies run in a child scope
// pushed onto the checker's single Env and popped afterwards; everything
// else uses the current scope, the way original_source's TypeChecker wraps
// one Env<TypeTag> for the program's lifetime.
type Checker struct {
	types   *env.Env[ast.TypeTag]
	aliases map[string]ast.TypeTag
}

// New builds a Checker over a fresh root scope.
func New() *Checker {
	return &Checker{types: env.New[ast.TypeTag](), aliases: map[string]ast.TypeTag{}}
}

// NewWithEnv builds a Checker over an already-populated scope, used when
// the embedder's environment snapshot parameters are known ahead of time
// (SPEC_FULL.md's environment-snapshot component seeds this).
func NewWithEnv(e *env.Env[ast.TypeTag]) *Checker {
	return &Checker{types: e, aliases: map[string]ast.TypeTag{}}
}

// narrow returns the narrowest representation of a set of types: Unit for
// none, the type itself for exactly one, or a deduplicated Union. Unlike
// original_source's Vec::dedup (which only collapses adjacent runs), this
// dedups across the whole set — see DESIGN.md for why that divergence was
// chosen over a faithful port of the Rust quirk.
func narrow(types []ast.TypeTag) ast.TypeTag {
	seen := map[string]bool{}
	var deduped []ast.TypeTag
	for _, t := range types {
		k := typeKey(t)
		if seen[k] {
			continue
		}
		seen[k] = true
		deduped = append(deduped, t)
	}
	switch len(deduped) {
	case 0:
		return ast.TUnit{}
	case 1:
		return deduped[0]
	default:
		return ast.TUnion{Alts: deduped}
	}
}

// typeKey is a canonical string encoding of a TypeTag, used for
// deduplication and equality comparisons.
func typeKey(t ast.TypeTag) string {
	switch tt := t.(type) {
	case ast.TUnit:
		return "unit"
	case ast.TBool:
		return "bool"
	case ast.TInt:
		return "int"
	case ast.TFloat:
		return "float"
	case ast.TStr:
		return "str"
	case ast.TPoint:
		return "point"
	case ast.TList:
		return "list(" + typeKey(tt.Elem) + ")"
	case ast.TMap:
		keys := make([]string, 0, len(tt.Fields))
		for k := range tt.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		s := "map("
		for _, k := range keys {
			s += k + ":" + typeKey(tt.Fields[k]) + ","
		}
		return s + ")"
	case ast.TLambda:
		s := "lambda("
		for _, p := range tt.Params {
			s += typeKey(p) + ","
		}
		return s + ")->" + typeKey(tt.Ret)
	case ast.TUnion:
		s := "union("
		for _, a := range tt.Alts {
			s += typeKey(a) + ","
		}
		return s + ")"
	default:
		return "?"
	}
}

func equalType(a, b ast.TypeTag) bool { return typeKey(a) == typeKey(b) }

func isBool(t ast.TypeTag) bool { _, ok := t.(ast.TBool); return ok }
func isInt(t ast.TypeTag) bool  { _, ok := t.(ast.TInt); return ok }

// lookup returns the type of name in fields, or a KeyError.
func lookup(fields map[string]ast.TypeTag, name string) (ast.TypeTag, error) {
	if t, ok := fields[name]; ok {
		return t, nil
	}
	return nil, &KeyError{Fields: fields, Key: name}
}

// CheckExpr computes the type of a surface expression.
func (c *Checker) CheckExpr(e ast.Expr) (ast.TypeTag, error) {
	switch n := e.(type) {
	case ast.EUnit:
		return ast.TUnit{}, nil
	case ast.EBool:
		return ast.TBool{}, nil
	case ast.EInt:
		return ast.TInt{}, nil
	case ast.EFloat:
		return ast.TFloat{}, nil
	case ast.EStr:
		return ast.TStr{}, nil
	case ast.EPoint:
		return ast.TPoint{}, nil
	case ast.EList:
		return c.evalList(n.Items)
	case ast.EMap:
		return c.evalMap(n.Items)
	case ast.EId:
		return c.evalID(n.Name)
	case ast.EDot:
		return c.evalDot(n.Target, n.Field)
	case ast.EIndex:
		return c.evalIndex(n.Target, n.Index)
	case ast.ECond:
		return c.evalCond(n.Cases, n.Default)
	case ast.EBlock:
		return c.evalBlock(n)
	case ast.EBinOp:
		return c.evalBinOp(n)
	case ast.EUnOp:
		return c.evalUnOp(n)
	case ast.ECall:
		return c.evalCall(n)
	case ast.ELambda:
		return c.evalLambda(n)
	default:
		return nil, &NotImplemented{What: "unknown expression node"}
	}
}

func (c *Checker) evalBinOp(n ast.EBinOp) (ast.TypeTag, error) {
	lt, err := c.CheckExpr(n.Left)
	if err != nil {
		return nil, err
	}
	rt, err := c.CheckExpr(n.Right)
	if err != nil {
		return nil, err
	}
	return typeOfBinOp(n.Op, lt, rt)
}

func (c *Checker) evalUnOp(n ast.EUnOp) (ast.TypeTag, error) {
	t, err := c.CheckExpr(n.Operand)
	if err != nil {
		return nil, err
	}
	return typeOfUnOp(n.Op, t)
}

func (c *Checker) evalList(items []ast.Expr) (ast.TypeTag, error) {
	elemTypes := make([]ast.TypeTag, 0, len(items))
	for _, it := range items {
		t, err := c.CheckExpr(it)
		if err != nil {
			return nil, err
		}
		elemTypes = append(elemTypes, t)
	}
	return ast.TList{Elem: narrow(elemTypes)}, nil
}

func (c *Checker) evalMap(items map[string]ast.Expr) (ast.TypeTag, error) {
	fields := make(map[string]ast.TypeTag, len(items))
	for k, v := range items {
		t, err := c.CheckExpr(v)
		if err != nil {
			return nil, err
		}
		fields[k] = t
	}
	return ast.TMap{Fields: fields}, nil
}

func mapValues(m map[string]ast.TypeTag) []ast.TypeTag {
	out := make([]ast.TypeTag, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func (c *Checker) evalID(name string) (ast.TypeTag, error) {
	if t, ok := c.types.Get(name); ok {
		return t, nil
	}
	return nil, &Undefined{Name: name}
}

func (c *Checker) evalDot(target ast.Expr, field string) (ast.TypeTag, error) {
	t, err := c.CheckExpr(target)
	if err != nil {
		return nil, err
	}
	m, ok := t.(ast.TMap)
	if !ok {
		return nil, &NotAMap{Got: t}
	}
	return lookup(m.Fields, field)
}

func (c *Checker) evalIndex(target, index ast.Expr) (ast.TypeTag, error) {
	lt, err := c.CheckExpr(target)
	if err != nil {
		return nil, err
	}
	it, err := c.CheckExpr(index)
	if err != nil {
		return nil, err
	}
	if !isInt(it) {
		return nil, &ListIndexMustBeInt{Got: it}
	}
	lst, ok := lt.(ast.TList)
	if !ok {
		return nil, &NotAList{Got: lt}
	}
	return lst.Elem, nil
}

func (c *Checker) evalCond(cases []ast.CondCase, def ast.Expr) (ast.TypeTag, error) {
	var results []ast.TypeTag
	for _, cs := range cases {
		ct, err := c.CheckExpr(cs.Cond)
		if err != nil {
			return nil, err
		}
		if !isBool(ct) {
			return nil, &Mismatch{Got: ct, Want: ast.TBool{}}
		}
		rt, err := c.CheckExpr(cs.Result)
		if err != nil {
			return nil, err
		}
		results = append(results, rt)
	}
	dt, err := c.CheckExpr(def)
	if err != nil {
		return nil, err
	}
	results = append(results, dt)
	return narrow(results), nil
}

func (c *Checker) evalBlock(b ast.EBlock) (ast.TypeTag, error) {
	c.types.Begin()
	defer c.types.End()
	for _, s := range b.Statements {
		if err := c.CheckStatement(s); err != nil {
			return nil, err
		}
	}
	return c.CheckExpr(b.Result)
}

func (c *Checker) evalCall(call ast.ECall) (ast.TypeTag, error) {
	ft, err := c.CheckExpr(call.Func)
	if err != nil {
		return nil, err
	}
	lam, ok := ft.(ast.TLambda)
	if !ok {
		return nil, &NotCallable{Got: ft}
	}
	if len(call.Args) != len(lam.Params) {
		return nil, &ArgError{Want: len(lam.Params), Got: len(call.Args)}
	}
	for i, arg := range call.Args {
		at, err := c.CheckExpr(arg)
		if err != nil {
			return nil, err
		}
		if !equalType(at, lam.Params[i]) {
			return nil, &Mismatch{Got: at, Want: lam.Params[i]}
		}
	}
	return lam.Ret, nil
}

func (c *Checker) evalLambda(lam ast.ELambda) (ast.TypeTag, error) {
	c.types.Begin()
	defer c.types.End()
	params := make([]ast.TypeTag, len(lam.Params))
	for i, p := range lam.Params {
		c.types.Define(p.Name, p.Type)
		params[i] = p.Type
	}
	bodyType, err := c.CheckExpr(lam.Body)
	if err != nil {
		return nil, err
	}
	if !equalType(bodyType, lam.Ret) {
		return nil, &Mismatch{Got: bodyType, Want: lam.Ret}
	}
	return ast.TLambda{Params: params, Ret: lam.Ret}, nil
}

// CheckStatement type-checks a surface statement, updating the current
// scope for SDef/STypeDef and opening child scopes for the iteration
// forms. Guard clauses and while bodies are checked in the current scope.
func (c *Checker) CheckStatement(s ast.Statement) error {
	switch n := s.(type) {
	case ast.SExprForEffect:
		t, err := c.CheckExpr(n.Expr)
		if err != nil {
			return err
		}
		if _, ok := t.(ast.TUnit); !ok {
			return &Mismatch{Got: t, Want: ast.TUnit{}}
		}
		return nil
	case ast.SEmit:
		for _, a := range n.Args {
			if _, err := c.CheckExpr(a); err != nil {
				return err
			}
		}
		return nil
	case ast.SDef:
		t, err := c.CheckExpr(n.Expr)
		if err != nil {
			return err
		}
		c.types.Define(n.Name, t)
		return nil
	case ast.STypeDef:
		c.aliases[n.Name] = n.Type
		return nil
	case ast.SListIter:
		return c.checkListIter(n)
	case ast.SMapIter:
		return c.checkMapIter(n)
	case ast.SWhile:
		ct, err := c.CheckExpr(n.Cond)
		if err != nil {
			return err
		}
		if !isBool(ct) {
			return &Mismatch{Got: ct, Want: ast.TBool{}}
		}
		return c.CheckStatement(n.Body)
	case ast.SGuard:
		return c.checkGuard(n)
	default:
		return &NotImplemented{What: "unknown statement node"}
	}
}

func (c *Checker) checkListIter(n ast.SListIter) error {
	lt, err := c.CheckExpr(n.List)
	if err != nil {
		return err
	}
	lst, ok := lt.(ast.TList)
	if !ok {
		return &NotIterable{Got: lt}
	}
	c.types.Begin()
	defer c.types.End()
	c.types.Define(n.Name, lst.Elem)
	return c.CheckStatement(n.Body)
}

func (c *Checker) checkMapIter(n ast.SMapIter) error {
	mt, err := c.CheckExpr(n.Map)
	if err != nil {
		return err
	}
	m, ok := mt.(ast.TMap)
	if !ok {
		return &NotIterable{Got: mt}
	}
	c.types.Begin()
	defer c.types.End()
	c.types.Define(n.Key, ast.TStr{})
	c.types.Define(n.Value, narrow(mapValues(m.Fields)))
	return c.CheckStatement(n.Body)
}

func (c *Checker) checkGuard(n ast.SGuard) error {
	for _, clause := range n.Clauses {
		ct, err := c.CheckExpr(clause.Cond)
		if err != nil {
			return err
		}
		if !isBool(ct) {
			return &Mismatch{Got: ct, Want: ast.TBool{}}
		}
		if err := c.CheckStatement(clause.Body); err != nil {
			return err
		}
	}
	if n.Default != nil {
		return c.CheckStatement(n.Default)
	}
	return nil
}
