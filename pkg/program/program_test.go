package program

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/dashvm/pkg/value"
)

func TestFetchImplicitHalt(t *testing.T) {
	p := &Program{Code: []Instruction{{Op: OpLoadI, Operand: 0}}}
	ins, err := p.Fetch(1)
	if err != nil {
		t.Fatal(err)
	}
	if ins.Op != OpHalt {
		t.Fatalf("expected implicit Halt at len(Code), got %v", ins.Op)
	}
}

func TestFetchOutOfBounds(t *testing.T) {
	p := &Program{Code: []Instruction{{Op: OpHalt}}}
	if _, err := p.Fetch(5); err == nil {
		t.Fatal("expected illegal address error")
	}
	if _, err := p.Fetch(-1); err == nil {
		t.Fatal("expected illegal address error")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	orig := &Program{
		Code: []Instruction{
			{Op: OpLoadI, Operand: 0},
			{Op: OpLoadI, Operand: 1},
			{Op: OpBinary, Operand: int32(value.Add)},
			{Op: OpDisp, Operand: 2},
			{Op: OpHalt},
		},
		Constants: []any{int64(40), int64(2), true, 3.5, "rect", value.Addr(1)},
	}
	data, err := Encode(orig)
	require.NoError(t, err)
	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, orig.Code, got.Code)
	assert.Equal(t, orig.Constants, got.Constants)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	if _, err := Decode([]byte("nope")); err == nil {
		t.Fatal("expected bad magic error")
	}
}

func TestDisassemble(t *testing.T) {
	p := &Program{
		Code: []Instruction{
			{Op: OpLoadI, Operand: 0},
			{Op: OpUnary, Operand: int32(value.Neg)},
			{Op: OpHalt},
		},
		Constants: []any{int64(7)},
	}
	out := Disassemble(p)
	if !strings.Contains(out, "LOADI") || !strings.Contains(out, "UNARY") || !strings.Contains(out, "HALT") {
		t.Fatalf("disassembly missing expected mnemonics:\n%s", out)
	}
}

func TestEncodeRejectsOversizedPool(t *testing.T) {
	p := &Program{Constants: make([]any, MaxPoolSize+1)}
	for i := range p.Constants {
		p.Constants[i] = int64(0)
	}
	if _, err := Encode(p); err == nil {
		t.Fatal("expected pool overflow error")
	}
}
