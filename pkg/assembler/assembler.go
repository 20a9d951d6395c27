package assembler

import (
	"fmt"
	"strconv"

	"github.com/kristofer/dashvm/pkg/program"
	"github.com/kristofer/dashvm/pkg/sink"
	"github.com/kristofer/dashvm/pkg/value"
)

// AssembleError reports a source-position-tagged assembly failure.
type AssembleError struct {
	Line, Column int
	Msg          string
}

func (e *AssembleError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Msg)
}

// keywordInstr is the fixed single-token keyword table from SPEC_FULL.md
// §4.3/§6.1: the bare keyword IS the instruction, with no following operand
// token. Opcodes whose operand is a stack value at runtime (OpLoad, OpGet,
// the branches, OpIndex, OpDot) carry a zero Operand here; it is unused.
//
// Expect has no entry: spec.md §4.3's literal keyword list has no textual
// form for it, so a program can only reach OpExpect via a hand-built
// program.Program (see pkg/vm's TestIndexErrorOutOfRange for the pattern).
var keywordInstr = map[string]program.Instruction{
	"load": {Op: program.OpLoad},
	"get":  {Op: program.OpGet},

	"bool":  {Op: program.OpCoerce, Operand: int32(value.Bool)},
	"int":   {Op: program.OpCoerce, Operand: int32(value.Int)},
	"float": {Op: program.OpCoerce, Operand: int32(value.Float)},

	"+":   {Op: program.OpBinary, Operand: int32(value.Add)},
	"-":   {Op: program.OpBinary, Operand: int32(value.Sub)},
	"*":   {Op: program.OpBinary, Operand: int32(value.Mul)},
	"/":   {Op: program.OpBinary, Operand: int32(value.Div)},
	"%":   {Op: program.OpBinary, Operand: int32(value.Mod)},
	"**":  {Op: program.OpBinary, Operand: int32(value.Pow)},
	"and": {Op: program.OpBinary, Operand: int32(value.And)},
	"or":  {Op: program.OpBinary, Operand: int32(value.Or)},
	"xor": {Op: program.OpBinary, Operand: int32(value.Xor)},
	"<":   {Op: program.OpBinary, Operand: int32(value.Lt)},
	">":   {Op: program.OpBinary, Operand: int32(value.Gt)},
	">=":  {Op: program.OpBinary, Operand: int32(value.Gte)},
	"<=":  {Op: program.OpBinary, Operand: int32(value.Lte)},
	"==":  {Op: program.OpBinary, Operand: int32(value.Eq)},
	"<<":  {Op: program.OpBinary, Operand: int32(value.Shl)},
	">>":  {Op: program.OpBinary, Operand: int32(value.Shr)},
	"min": {Op: program.OpBinary, Operand: int32(value.Min)},
	"max": {Op: program.OpBinary, Operand: int32(value.Max)},

	"not": {Op: program.OpUnary, Operand: int32(value.Not)},
	"neg": {Op: program.OpUnary, Operand: int32(value.Neg)},
	"abs": {Op: program.OpUnary, Operand: int32(value.Abs)},

	"bt": {Op: program.OpBranchTrue},
	"bf": {Op: program.OpBranchFalse},
	"ba": {Op: program.OpBranch},

	"index": {Op: program.OpIndex},
	".":     {Op: program.OpDot},

	"rgb":    {Op: program.OpDisp, Operand: int32(sink.SetSourceRgb)},
	"rgba":   {Op: program.OpDisp, Operand: int32(sink.SetSourceRgba)},
	"rect":   {Op: program.OpDisp, Operand: int32(sink.Rect)},
	"fill":   {Op: program.OpDisp, Operand: int32(sink.Fill)},
	"stroke": {Op: program.OpDisp, Operand: int32(sink.Stroke)},
	"paint":  {Op: program.OpDisp, Operand: int32(sink.Paint)},

	// swap is a supplement carried over from original_source/src/vm.rs's
	// Opcode::Swap (see SPEC_FULL.md §9); not in spec.md's literal §4.3
	// list, but given a keyword here for parity with the other opcodes.
	"swap": {Op: program.OpSwap},

	"break": {Op: program.OpBreak},
	"halt":  {Op: program.OpHalt},
}

// paramOpcodes is the colon-parameterized token family: name:<u8>, where
// the u8 is encoded directly in the token (drop:3, call:1, ...) rather than
// pool-interned, per spec.md §4.2 listing these operands as "u8", not a
// pool index.
var paramOpcodes = map[string]program.Opcode{
	"drop": program.OpDrop,
	"dup":  program.OpDup,
	"arg":  program.OpArg,
	"call": program.OpCall,
	"ret":  program.OpRet,
}

// Assemble runs the two-pass assembly described in SPEC_FULL.md §5: pass
// one strips label pseudo-instructions into an address table; pass two
// interns literals into a deduplicated constant pool and emits
// instructions, resolving label references against the address table.
func Assemble(source string) (*program.Program, error) {
	toks, err := tokenize(source)
	if err != nil {
		return nil, err
	}

	labels, lines, err := firstPass(toks)
	if err != nil {
		return nil, err
	}

	return secondPass(lines, labels)
}

func tokenize(source string) ([]Token, error) {
	lex := NewLexer(source)
	var toks []Token
	for {
		tok := lex.NextToken()
		if tok.Type == TokenIllegal {
			return nil, &AssembleError{Line: tok.Line, Column: tok.Column, Msg: fmt.Sprintf("illegal token %q", tok.Literal)}
		}
		toks = append(toks, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	return toks, nil
}

// lineKind distinguishes the two shapes an instrLine can take.
type lineKind int

const (
	// lineFixed is a keyword or parameterized-opcode token: its
	// instruction is fully built during firstPass.
	lineFixed lineKind = iota
	// lineLiteral is a bare literal or label reference: it becomes an
	// OpLoadI once its value is interned into the constant pool.
	lineLiteral
)

// instrLine is one token lowered to (at most) one instruction.
type instrLine struct {
	kind  lineKind
	tok   Token
	instr program.Instruction // valid when kind == lineFixed
}

// firstPass walks the token stream, records each label definition's
// resolved address (the index of the next real instruction), and returns
// the flattened instruction lines with labels stripped out. Each
// remaining token corresponds to exactly one instruction.
func firstPass(toks []Token) (map[string]int, []instrLine, error) {
	labels := map[string]int{}
	var lines []instrLine

	for _, tok := range toks {
		switch tok.Type {
		case TokenEOF:
			// nothing to emit
		case TokenLabelDef:
			if _, dup := labels[tok.Literal]; dup {
				return nil, nil, &AssembleError{Line: tok.Line, Column: tok.Column, Msg: fmt.Sprintf("duplicate label %q", tok.Literal)}
			}
			labels[tok.Literal] = len(lines)
		case TokenWord:
			instr, ok := keywordInstr[tok.Literal]
			if !ok {
				return nil, nil, &AssembleError{Line: tok.Line, Column: tok.Column, Msg: fmt.Sprintf("unknown keyword %q", tok.Literal)}
			}
			lines = append(lines, instrLine{kind: lineFixed, tok: tok, instr: instr})
		case TokenParamOp:
			op, ok := paramOpcodes[tok.Literal]
			if !ok {
				return nil, nil, &AssembleError{Line: tok.Line, Column: tok.Column, Msg: fmt.Sprintf("unknown parameterized opcode %q", tok.Literal)}
			}
			n, err := strconv.ParseUint(tok.Param, 10, 8)
			if err != nil {
				return nil, nil, &AssembleError{Line: tok.Line, Column: tok.Column, Msg: fmt.Sprintf("%s: bad u8 operand %q", tok.Literal, tok.Param)}
			}
			lines = append(lines, instrLine{kind: lineFixed, tok: tok, instr: program.Instruction{Op: op, Operand: int32(n)}})
		case TokenInt, TokenFloat, TokenString, TokenTrue, TokenFalse, TokenLabelRef:
			lines = append(lines, instrLine{kind: lineLiteral, tok: tok})
		default:
			return nil, nil, &AssembleError{Line: tok.Line, Column: tok.Column, Msg: fmt.Sprintf("unexpected token %s", tok.Type)}
		}
	}

	return labels, lines, nil
}

// constPool interns literal values, deduplicating by equality, and enforces
// the 16-bit pool size ceiling.
type constPool struct {
	values []any
	index  map[any]int
}

func newConstPool() *constPool {
	return &constPool{index: map[any]int{}}
}

func (p *constPool) intern(v any) (int, error) {
	if k, ok := p.index[v]; ok {
		return k, nil
	}
	if len(p.values) >= program.MaxPoolSize {
		return 0, fmt.Errorf("constant pool overflow: more than %d literals", program.MaxPoolSize)
	}
	k := len(p.values)
	p.values = append(p.values, v)
	p.index[v] = k
	return k, nil
}

func secondPass(lines []instrLine, labels map[string]int) (*program.Program, error) {
	pool := newConstPool()
	code := make([]program.Instruction, 0, len(lines))

	for _, ln := range lines {
		switch ln.kind {
		case lineFixed:
			code = append(code, ln.instr)
		case lineLiteral:
			k, err := internLiteral(pool, labels, ln.tok)
			if err != nil {
				return nil, err
			}
			code = append(code, program.Instruction{Op: program.OpLoadI, Operand: int32(k)})
		}
	}

	return &program.Program{Code: code, Constants: pool.values}, nil
}

func internLiteral(pool *constPool, labels map[string]int, tok Token) (int, error) {
	switch tok.Type {
	case TokenInt:
		n, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			return 0, &AssembleError{Line: tok.Line, Column: tok.Column, Msg: fmt.Sprintf("bad integer literal %q", tok.Literal)}
		}
		return pool.intern(n)
	case TokenFloat:
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return 0, &AssembleError{Line: tok.Line, Column: tok.Column, Msg: fmt.Sprintf("bad float literal %q", tok.Literal)}
		}
		return pool.intern(f)
	case TokenString:
		return pool.intern(tok.Literal)
	case TokenTrue:
		return pool.intern(true)
	case TokenFalse:
		return pool.intern(false)
	case TokenLabelRef:
		addr, ok := labels[tok.Literal]
		if !ok {
			return 0, &AssembleError{Line: tok.Line, Column: tok.Column, Msg: fmt.Sprintf("undefined label %q", tok.Literal)}
		}
		return pool.intern(value.Addr(addr))
	default:
		return 0, &AssembleError{Line: tok.Line, Column: tok.Column, Msg: fmt.Sprintf("%q is not a valid literal", tok.Literal)}
	}
}
