package vm

import (
	"testing"

	"github.com/kristofer/dashvm/pkg/assembler"
	"github.com/kristofer/dashvm/pkg/program"
	"github.com/kristofer/dashvm/pkg/sink"
	"github.com/kristofer/dashvm/pkg/value"
)

func mustAssemble(t *testing.T, src string) *program.Program {
	t.Helper()
	p, err := assembler.Assemble(src)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	return p
}

func TestArithmeticRoundTrip(t *testing.T) {
	p := mustAssemble(t, `
		40
		2
		+
		halt
	`)
	m := New(p, nil, nil, 0)
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if len(m.stack) != 1 || m.stack[0].(int64) != 42 {
		t.Fatalf("expected stack [42], got %v", m.stack)
	}
}

func TestCallReturnBalancesStack(t *testing.T) {
	// spec.md §4.4: caller pushes args left-to-right, then the callee's
	// Addr, then Call(arity); the callee reads args via arg:i and returns
	// via ret:n.
	src := `
		3
		4
		#double
		call:2
		halt
	double:
		arg:0
		arg:1
		+
		ret:1
	`
	p := mustAssemble(t, src)
	m := New(p, nil, nil, 0)
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if len(m.stack) != 1 || m.stack[0].(int64) != 7 {
		t.Fatalf("expected stack [7], got %v", m.stack)
	}
}

func TestStackUnderflowWrapsRuntimeError(t *testing.T) {
	p := mustAssemble(t, `+`+"\n"+`halt`)
	m := New(p, nil, nil, 0)
	err := m.Run()
	if err == nil {
		t.Fatal("expected underflow error")
	}
	rerr, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T: %v", err, err)
	}
	if _, ok := rerr.Kind.(*Underflow); !ok {
		t.Fatalf("expected Underflow, got %T", rerr.Kind)
	}
}

func TestDispatchesDrawOpsInDocumentedOrder(t *testing.T) {
	p := mustAssemble(t, `
		10
		20
		30
		rgb
		halt
	`)
	rec := &sink.RecordingSink{}
	m := New(p, rec, nil, 0)
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if len(rec.Records) != 1 {
		t.Fatalf("expected one dispatch record, got %d", len(rec.Records))
	}
	args := rec.Records[0].Args
	if len(args) != 3 || args[0].(int64) != 10 || args[1].(int64) != 20 || args[2].(int64) != 30 {
		t.Fatalf("expected [r=10,g=20,b=30] in push order, got %v", args)
	}
}

func TestIndexErrorOutOfRange(t *testing.T) {
	// The assembler has no list literal, so this program is hand-built
	// with a List in its constant pool rather than assembled.
	prog := &program.Program{
		Code: []program.Instruction{
			{Op: program.OpLoadI, Operand: 0}, // the list
			{Op: program.OpLoadI, Operand: 1}, // index
			{Op: program.OpIndex},
			{Op: program.OpHalt},
		},
		Constants: []any{&value.List{Items: []any{int64(1), int64(2)}}, value.Addr(5)},
	}
	m := New(prog, nil, nil, 0)
	err := m.Run()
	rerr, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T: %v", err, err)
	}
	if _, ok := rerr.Kind.(*IndexError); !ok {
		t.Fatalf("expected IndexError, got %T", rerr.Kind)
	}
}

func TestGetFromGlobalsAndKeyError(t *testing.T) {
	p := mustAssemble(t, `
		"width"
		get
		halt
	`)
	m := New(p, nil, map[string]any{"width": int64(800)}, 0)
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if m.stack[0].(int64) != 800 {
		t.Fatalf("expected 800, got %v", m.stack[0])
	}

	p2 := mustAssemble(t, `
		"missing"
		get
		halt
	`)
	m2 := New(p2, nil, map[string]any{}, 0)
	err := m2.Run()
	rerr, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T", err)
	}
	if _, ok := rerr.Kind.(*KeyError); !ok {
		t.Fatalf("expected KeyError, got %T", rerr.Kind)
	}
}

func TestEqIsTotalAcrossTags(t *testing.T) {
	p := mustAssemble(t, `
		1
		"1"
		==
		halt
	`)
	m := New(p, nil, nil, 0)
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if m.stack[0].(bool) != false {
		t.Fatalf("expected mismatched-tag eq to be false, got %v", m.stack[0])
	}
}

func TestBranchTrue(t *testing.T) {
	// spec.md §4.2: BranchTrue pops an Addr then a Bool, so the Addr must
	// be pushed last (on top).
	p := mustAssemble(t, `
		true
		#taken
		bt
		0
		halt
	taken:
		1
		halt
	`)
	m := New(p, nil, nil, 0)
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if m.stack[0].(int64) != 1 {
		t.Fatalf("expected branch taken, stack=%v", m.stack)
	}
}

func TestSwap(t *testing.T) {
	p := mustAssemble(t, `
		1
		2
		swap
		halt
	`)
	m := New(p, nil, nil, 0)
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if m.stack[0].(int64) != 2 || m.stack[1].(int64) != 1 {
		t.Fatalf("expected swapped stack [2,1], got %v", m.stack)
	}
}

func TestBreakpointPausesExecution(t *testing.T) {
	p := mustAssemble(t, `
		1
		2
		+
		halt
	`)
	m := New(p, nil, nil, 0)
	d := NewDebugger(m)
	d.Enable()
	d.AddBreakpoint(2)
	m.AttachDebugger(d)

	if err := m.Step(); err != nil {
		t.Fatalf("step 1: %v", err)
	}
	if err := m.Step(); err != nil {
		t.Fatalf("step 2: %v", err)
	}
	err := m.Step()
	if err == nil {
		t.Fatal("expected DebugBreak at pc=2")
	}
	rerr, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T", err)
	}
	if _, ok := rerr.Kind.(*DebugBreak); !ok {
		t.Fatalf("expected DebugBreak, got %T", rerr.Kind)
	}
}
