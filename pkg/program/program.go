// Package program defines the bytecode program representation the VM
// executes: the opcode set, the instruction encoding, and the constant
// pool. This is component B of the VM design — the teacher's
// pkg/bytecode package generalized from a Smalltalk-style message-send
// machine to the spec's fixed stack-machine instruction set.
package program

import (
	"fmt"

	"github.com/kristofer/dashvm/pkg/value"
)

// Opcode is a single VM instruction operation. Opcodes are single bytes;
// this is the exact, closed set named in SPEC_FULL.md §4.2 — no others are
// legal, and the VM's dispatch switch must handle every one of them.
type Opcode byte

const (
	// OpLoadI pushes pool[operand] (a u16 constant-pool index) onto the stack.
	OpLoadI Opcode = iota
	// OpLoad pops an Addr k and pushes pool[k].
	OpLoad
	// OpGet pops a Str s and pushes env[s], or fails with KeyError.
	OpGet
	// OpCoerce pops a value and pushes it coerced to the TypeTag operand.
	OpCoerce
	// OpBinary applies the value.BinOp operand to the top two stack values.
	OpBinary
	// OpUnary applies the value.UnOp operand to the top stack value.
	OpUnary
	// OpCall pops an Addr target, pushes a call frame whose arity is the u8
	// operand, and branches.
	OpCall
	// OpRet unwinds the current frame's arity args and returns retvals values.
	OpRet
	// OpBranchTrue pops an Addr then a Bool; branches if the Bool was true.
	OpBranchTrue
	// OpBranchFalse pops an Addr then a Bool; branches if the Bool was false.
	OpBranchFalse
	// OpBranch pops an Addr and branches unconditionally.
	OpBranch
	// OpDrop discards the top n stack values (u8 operand).
	OpDrop
	// OpDup duplicates the top stack value n+1 times total (u8 operand).
	OpDup
	// OpArg pushes a copy of argument slot i of the current frame (u8 operand).
	OpArg
	// OpIndex pops an Addr index and a List, pushes the element or IndexError.
	OpIndex
	// OpDot pops a Str key and a Map, pushes the value or KeyError.
	OpDot
	// OpExpect verifies the top value's tag without consuming it.
	OpExpect
	// OpDisp emits a side-effect record for the DrawOp operand (see pkg/sink).
	OpDisp
	// OpSwap exchanges the top two stack values. Supplemental opcode carried
	// over from original_source/src/vm.rs's Opcode::Swap (see SPEC_FULL.md §9);
	// not present in the distilled opcode table but harmless to support.
	OpSwap
	// OpBreak is a deliberate debug trap; fails with DebugBreak.
	OpBreak
	// OpHalt terminates execution successfully. Also the implicit terminator
	// produced by fetching at pc == len(code).
	OpHalt
)

// String renders an opcode mnemonic, used by the disassembler and by error
// messages that need to name the instruction at a given pc.
func (op Opcode) String() string {
	switch op {
	case OpLoadI:
		return "LOADI"
	case OpLoad:
		return "LOAD"
	case OpGet:
		return "GET"
	case OpCoerce:
		return "COERCE"
	case OpBinary:
		return "BINARY"
	case OpUnary:
		return "UNARY"
	case OpCall:
		return "CALL"
	case OpRet:
		return "RET"
	case OpBranchTrue:
		return "BT"
	case OpBranchFalse:
		return "BF"
	case OpBranch:
		return "BA"
	case OpDrop:
		return "DROP"
	case OpDup:
		return "DUP"
	case OpArg:
		return "ARG"
	case OpIndex:
		return "INDEX"
	case OpDot:
		return "DOT"
	case OpExpect:
		return "EXPECT"
	case OpDisp:
		return "DISP"
	case OpSwap:
		return "SWAP"
	case OpBreak:
		return "BREAK"
	case OpHalt:
		return "HALT"
	default:
		return fmt.Sprintf("OP(%d)", byte(op))
	}
}

// Instruction is a single decoded bytecode instruction: an opcode plus a
// 32-bit operand whose meaning is opcode-dependent (pool index, TypeTag,
// BinOp/UnOp, arity, count, or unused).
type Instruction struct {
	Op      Opcode
	Operand int32
}

// Program is an assembled, loadable unit: an instruction vector plus its
// constant pool. It is produced by pkg/assembler and consumed by pkg/vm.
type Program struct {
	Code      []Instruction
	Constants []any // value.Value-shaped entries; see pkg/value
}

// Fetch returns the instruction at pc. Fetching exactly at len(Code)
// yields the implicit Halt terminator (SPEC_FULL.md §4.2); fetching past
// that is out of bounds.
func (p *Program) Fetch(pc int) (Instruction, error) {
	if pc == len(p.Code) {
		return Instruction{Op: OpHalt}, nil
	}
	if pc < 0 || pc > len(p.Code) {
		return Instruction{}, fmt.Errorf("illegal address: %d", pc)
	}
	return p.Code[pc], nil
}

// Constant returns pool[k], bounds-checked.
func (p *Program) Constant(k int) (any, error) {
	if k < 0 || k >= len(p.Constants) {
		return nil, fmt.Errorf("illegal address: %d", k)
	}
	return p.Constants[k], nil
}

// MaxPoolSize is the hard limit on constant-pool entries imposed by the
// 16-bit LoadI operand (SPEC_FULL.md §6.4).
const MaxPoolSize = 65535

// TagOf is a convenience re-export so callers building instructions don't
// need to import pkg/value directly just to type-switch a constant.
func TagOf(v any) (value.TypeTag, bool) { return value.TagOf(v) }
