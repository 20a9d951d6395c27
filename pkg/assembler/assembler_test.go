package assembler

import (
	"testing"

	"github.com/kristofer/dashvm/pkg/program"
	"github.com/kristofer/dashvm/pkg/value"
)

func TestAssembleSimpleArithmetic(t *testing.T) {
	// spec.md §8 scenario (a): 1 2 + leaves Int(3) on the stack.
	src := `
		1
		2
		+
		halt
	`
	p, err := Assemble(src)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Code) != 4 {
		t.Fatalf("expected 4 instructions, got %d", len(p.Code))
	}
	if p.Code[2].Op != program.OpBinary || value.BinOp(p.Code[2].Operand) != value.Add {
		t.Fatalf("expected binary + at index 2, got %+v", p.Code[2])
	}
	if p.Constants[0] != int64(1) || p.Constants[1] != int64(2) {
		t.Fatalf("unexpected constants: %+v", p.Constants)
	}
}

func TestAssembleDedupesLiterals(t *testing.T) {
	src := `
		7
		7
		halt
	`
	p, err := Assemble(src)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Constants) != 1 {
		t.Fatalf("expected literal 7 to be interned once, got %d constants", len(p.Constants))
	}
	if p.Code[0].Operand != p.Code[1].Operand {
		t.Fatal("expected both push instructions to reference the same pool slot")
	}
}

func TestAssembleLabelResolution(t *testing.T) {
	src := `
		#done
		ba
	done:
		halt
	`
	p, err := Assemble(src)
	if err != nil {
		t.Fatal(err)
	}
	addr, ok := p.Constants[0].(value.Addr)
	if !ok {
		t.Fatalf("expected Addr constant, got %#v", p.Constants[0])
	}
	if int(addr) != 2 {
		t.Fatalf("expected label 'done' to resolve to address 2, got %d", addr)
	}
}

func TestAssembleUndefinedLabel(t *testing.T) {
	src := `
		#nowhere
		halt
	`
	if _, err := Assemble(src); err == nil {
		t.Fatal("expected undefined label error")
	}
}

func TestAssembleDuplicateLabel(t *testing.T) {
	src := `
	again:
		halt
	again:
		halt
	`
	if _, err := Assemble(src); err == nil {
		t.Fatal("expected duplicate label error")
	}
}

func TestAssembleUnknownKeyword(t *testing.T) {
	if _, err := Assemble("nope"); err == nil {
		t.Fatal("expected unknown keyword error")
	}
}

func TestAssembleParamOpcodes(t *testing.T) {
	// spec.md §8 scenario (c): entry `5 #fact call:1`, callee `arg:0 ... ret:1`.
	src := `
		5
		#fact
		call:1
		halt
	fact:
		arg:0
		ret:1
	`
	p, err := Assemble(src)
	if err != nil {
		t.Fatal(err)
	}
	call := p.Code[2]
	if call.Op != program.OpCall || call.Operand != 1 {
		t.Fatalf("expected call:1 to encode arity 1 in its operand, got %+v", call)
	}
	arg := p.Code[4]
	if arg.Op != program.OpArg || arg.Operand != 0 {
		t.Fatalf("expected arg:0, got %+v", arg)
	}
	ret := p.Code[5]
	if ret.Op != program.OpRet || ret.Operand != 1 {
		t.Fatalf("expected ret:1, got %+v", ret)
	}
}

func TestAssembleBadParamOperand(t *testing.T) {
	if _, err := Assemble("drop:256 halt"); err == nil {
		t.Fatal("expected drop:256 to be rejected as an out-of-range u8")
	}
}

func TestAssembleGetFromEnv(t *testing.T) {
	// spec.md §8 scenario (d): "foo" get.
	src := `
		"foo"
		get
		halt
	`
	p, err := Assemble(src)
	if err != nil {
		t.Fatal(err)
	}
	if p.Code[1].Op != program.OpGet {
		t.Fatalf("expected get at index 1, got %+v", p.Code[1])
	}
	if p.Constants[0] != "foo" {
		t.Fatalf("expected interned string literal %q, got %#v", "foo", p.Constants[0])
	}
}

func TestAssembleDispAndCoerce(t *testing.T) {
	src := `
		true
		int
		255
		0
		0
		rgb
		halt
	`
	p, err := Assemble(src)
	if err != nil {
		t.Fatal(err)
	}
	if p.Code[1].Op != program.OpCoerce || value.TypeTag(p.Code[1].Operand) != value.Int {
		t.Fatalf("expected coerce int, got %+v", p.Code[1])
	}
	if p.Code[5].Op != program.OpDisp {
		t.Fatalf("expected a disp instruction at index 5, got %+v", p.Code[5])
	}
}
