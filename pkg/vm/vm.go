// Package vm implements the sandboxed stack-machine interpreter for
// dashvm: component D of the VM design. It executes a program.Program
// one instruction at a time (via Step) or to completion (via Run),
// against a read-only environment snapshot and an embedder-supplied
// effect sink, following the teacher's dispatch-loop-plus-explicit-stack
// architecture (see the original pkg/vm.VM) generalized from a
// Smalltalk message-send machine to the spec's fixed opcode table.
//
// Execution Model:
//
// The VM is single-threaded and non-reentrant: one goroutine drives Step
// or Run at a time. Step fetches the instruction at pc, dispatches it,
// and either advances pc by one or jumps pc directly (branches, calls,
// returns). Step returns a *Halted sentinel once the program reaches its
// halt point, and a *RuntimeError (wrapping one of this package's or
// pkg/value's error kinds) on any failure, both terminal: no further Step
// calls are valid after either.
//
// Call/Return:
//
// OpCall(arity) pops an Addr target off the stack (arity itself comes
// from the instruction's own operand, not the stack), pushes a Frame
// recording the return address, the frame pointer (the stack index of
// argument slot 0, i.e. len(stack)-arity), and the declared arity, then
// branches to target. OpArg(i) is bounds-checked against the current
// frame's arity. OpRet(n) pops n return values, unwinds the frame's
// arguments, restores the caller's pc, and pushes the return values back
// — the stack-balance invariant the teacher's RETURN opcode also
// enforces.
package vm

import (
	"github.com/kristofer/dashvm/pkg/program"
	"github.com/kristofer/dashvm/pkg/sink"
	"github.com/kristofer/dashvm/pkg/value"
)

// DefaultMaxStack bounds the value stack so a runaway or malicious
// program traps with Overflow instead of exhausting host memory.
const DefaultMaxStack = 1 << 16

// Frame is one call-stack entry, pushed by Call and popped by Ret.
type Frame struct {
	ReturnAddress int
	FramePointer  int // stack index of argument slot 0
	Arity         int
}

// VM holds all state needed to execute a Program: the value stack, the
// call-frame stack, the program counter, the read-only global
// environment (the embedder's snapshot, reachable via Get), and the
// effect sink Disp writes to.
type VM struct {
	Prog    *program.Program
	Sink    sink.Sink
	Globals map[string]any

	stack    []any
	frames   []Frame
	pc       int
	maxStack int

	debugger *Debugger
}

// New constructs a VM ready to execute prog against globals (the
// environment snapshot) and snk (the effect sink). maxStack <= 0 selects
// DefaultMaxStack.
func New(prog *program.Program, snk sink.Sink, globals map[string]any, maxStack int) *VM {
	if maxStack <= 0 {
		maxStack = DefaultMaxStack
	}
	return &VM{Prog: prog, Sink: snk, Globals: globals, maxStack: maxStack}
}

// PC returns the current program counter, mostly useful to debuggers.
func (vm *VM) PC() int { return vm.pc }

// Stack returns the live value stack. Callers must not retain or mutate
// the returned slice across further Step calls.
func (vm *VM) Stack() []any { return vm.stack }

// Frames returns the live call-frame stack.
func (vm *VM) Frames() []Frame { return vm.frames }

// AttachDebugger wires a Debugger so Step consults its breakpoint/step
// state before dispatching each instruction.
func (vm *VM) AttachDebugger(d *Debugger) { vm.debugger = d }

func (vm *VM) push(v any) error {
	if len(vm.stack) >= vm.maxStack {
		return &Overflow{Limit: vm.maxStack}
	}
	vm.stack = append(vm.stack, v)
	return nil
}

func (vm *VM) pop() (any, error) {
	if len(vm.stack) == 0 {
		return nil, &Underflow{Op: "pop"}
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

func (vm *VM) peek() (any, error) {
	if len(vm.stack) == 0 {
		return nil, &Underflow{Op: "peek"}
	}
	return vm.stack[len(vm.stack)-1], nil
}

func (vm *VM) popAddr() (value.Addr, error) {
	v, err := vm.pop()
	if err != nil {
		return 0, err
	}
	a, ok := v.(value.Addr)
	if !ok {
		ta, _ := value.TagOf(v)
		return 0, &value.TypeError{Expect: value.NewTypeSet(value.Addr), Got: ta}
	}
	return a, nil
}

func (vm *VM) popBool() (bool, error) {
	v, err := vm.pop()
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		ta, _ := value.TagOf(v)
		return false, &value.TypeError{Expect: value.NewTypeSet(value.Bool), Got: ta}
	}
	return b, nil
}

func (vm *VM) popStr() (string, error) {
	v, err := vm.pop()
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		ta, _ := value.TagOf(v)
		return "", &value.TypeError{Expect: value.NewTypeSet(value.Str), Got: ta}
	}
	return s, nil
}

func (vm *VM) popList() (*value.List, error) {
	v, err := vm.pop()
	if err != nil {
		return nil, err
	}
	l, ok := v.(*value.List)
	if !ok {
		ta, _ := value.TagOf(v)
		return nil, &value.TypeError{Expect: value.NewTypeSet(value.List), Got: ta}
	}
	return l, nil
}

func (vm *VM) popMap() (*value.Map, error) {
	v, err := vm.pop()
	if err != nil {
		return nil, err
	}
	m, ok := v.(*value.Map)
	if !ok {
		ta, _ := value.TagOf(v)
		return nil, &value.TypeError{Expect: value.NewTypeSet(value.Map), Got: ta}
	}
	return m, nil
}

// Trace snapshots the current call stack as a StackFrame list, innermost
// frame (the live pc) last, for attaching to a RuntimeError.
func (vm *VM) Trace() []StackFrame {
	trace := make([]StackFrame, 0, len(vm.frames)+1)
	for _, f := range vm.frames {
		trace = append(trace, StackFrame{Name: "call", PC: f.ReturnAddress, ArgBase: f.FramePointer})
	}
	trace = append(trace, StackFrame{Name: "entry", PC: vm.pc, ArgBase: 0})
	return trace
}

func (vm *VM) fail(err error) error {
	return wrap(err, vm.Trace())
}

// Step executes exactly one instruction. It returns *Halted once the
// program halts and a *RuntimeError on any failure; both are terminal.
func (vm *VM) Step() error {
	if vm.debugger != nil && vm.debugger.ShouldPause(vm.pc) {
		return vm.fail(&DebugBreak{PC: vm.pc})
	}

	ins, err := vm.Prog.Fetch(vm.pc)
	if err != nil {
		return vm.fail(&IllegalAddr{Addr: vm.pc})
	}

	switch ins.Op {
	case program.OpLoadI:
		c, err := vm.Prog.Constant(int(ins.Operand))
		if err != nil {
			return vm.fail(&IllegalAddr{Addr: int(ins.Operand)})
		}
		if err := vm.push(c); err != nil {
			return vm.fail(err)
		}
		vm.pc++

	case program.OpLoad:
		addr, err := vm.popAddr()
		if err != nil {
			return vm.fail(err)
		}
		c, err := vm.Prog.Constant(int(addr))
		if err != nil {
			return vm.fail(&IllegalAddr{Addr: int(addr)})
		}
		if err := vm.push(c); err != nil {
			return vm.fail(err)
		}
		vm.pc++

	case program.OpGet:
		key, err := vm.popStr()
		if err != nil {
			return vm.fail(err)
		}
		v, ok := vm.Globals[key]
		if !ok {
			return vm.fail(&KeyError{Key: key})
		}
		if err := vm.push(v); err != nil {
			return vm.fail(err)
		}
		vm.pc++

	case program.OpCoerce:
		v, err := vm.pop()
		if err != nil {
			return vm.fail(err)
		}
		coerced, err := value.Coerce(v, value.TypeTag(ins.Operand))
		if err != nil {
			return vm.fail(err)
		}
		if err := vm.push(coerced); err != nil {
			return vm.fail(err)
		}
		vm.pc++

	case program.OpBinary:
		b, err := vm.pop()
		if err != nil {
			return vm.fail(err)
		}
		a, err := vm.pop()
		if err != nil {
			return vm.fail(err)
		}
		result, err := value.ApplyBinary(value.BinOp(ins.Operand), a, b)
		if err != nil {
			return vm.fail(err)
		}
		if err := vm.push(result); err != nil {
			return vm.fail(err)
		}
		vm.pc++

	case program.OpUnary:
		a, err := vm.pop()
		if err != nil {
			return vm.fail(err)
		}
		result, err := value.ApplyUnary(value.UnOp(ins.Operand), a)
		if err != nil {
			return vm.fail(err)
		}
		if err := vm.push(result); err != nil {
			return vm.fail(err)
		}
		vm.pc++

	case program.OpCall:
		arity := int(ins.Operand)
		target, err := vm.popAddr()
		if err != nil {
			return vm.fail(err)
		}
		if arity < 0 || arity > len(vm.stack) {
			return vm.fail(&ArityError{Want: arity, Got: len(vm.stack)})
		}
		vm.frames = append(vm.frames, Frame{
			ReturnAddress: vm.pc + 1,
			FramePointer:  len(vm.stack) - arity,
			Arity:         arity,
		})
		vm.pc = int(target)

	case program.OpRet:
		if len(vm.frames) == 0 {
			return vm.fail(&Underflow{Op: "Ret: no active frame"})
		}
		frame := vm.frames[len(vm.frames)-1]
		n := int(ins.Operand)
		if n > len(vm.stack) {
			return vm.fail(&Underflow{Op: "Ret"})
		}
		retvals := append([]any(nil), vm.stack[len(vm.stack)-n:]...)
		vm.stack = vm.stack[:frame.FramePointer]
		vm.stack = append(vm.stack, retvals...)
		vm.frames = vm.frames[:len(vm.frames)-1]
		vm.pc = frame.ReturnAddress

	case program.OpBranchTrue:
		addr, err := vm.popAddr()
		if err != nil {
			return vm.fail(err)
		}
		cond, err := vm.popBool()
		if err != nil {
			return vm.fail(err)
		}
		if cond {
			vm.pc = int(addr)
		} else {
			vm.pc++
		}

	case program.OpBranchFalse:
		addr, err := vm.popAddr()
		if err != nil {
			return vm.fail(err)
		}
		cond, err := vm.popBool()
		if err != nil {
			return vm.fail(err)
		}
		if !cond {
			vm.pc = int(addr)
		} else {
			vm.pc++
		}

	case program.OpBranch:
		addr, err := vm.popAddr()
		if err != nil {
			return vm.fail(err)
		}
		vm.pc = int(addr)

	case program.OpDrop:
		n := int(ins.Operand)
		if n > len(vm.stack) {
			return vm.fail(&Underflow{Op: "Drop"})
		}
		vm.stack = vm.stack[:len(vm.stack)-n]
		vm.pc++

	case program.OpDup:
		top, err := vm.peek()
		if err != nil {
			return vm.fail(err)
		}
		for i := 0; i < int(ins.Operand); i++ {
			if err := vm.push(top); err != nil {
				return vm.fail(err)
			}
		}
		vm.pc++

	case program.OpArg:
		if len(vm.frames) == 0 {
			return vm.fail(&Underflow{Op: "Arg: no active frame"})
		}
		frame := vm.frames[len(vm.frames)-1]
		i := int(ins.Operand)
		if i < 0 || i >= frame.Arity {
			return vm.fail(&ArityError{Want: frame.Arity, Got: i + 1})
		}
		if err := vm.push(vm.stack[frame.FramePointer+i]); err != nil {
			return vm.fail(err)
		}
		vm.pc++

	case program.OpIndex:
		idx, err := vm.popAddr()
		if err != nil {
			return vm.fail(err)
		}
		lst, err := vm.popList()
		if err != nil {
			return vm.fail(err)
		}
		i := int(idx)
		if i < 0 || i >= len(lst.Items) {
			return vm.fail(&IndexError{Index: i, Len: len(lst.Items)})
		}
		if err := vm.push(lst.Items[i]); err != nil {
			return vm.fail(err)
		}
		vm.pc++

	case program.OpDot:
		key, err := vm.popStr()
		if err != nil {
			return vm.fail(err)
		}
		m, err := vm.popMap()
		if err != nil {
			return vm.fail(err)
		}
		v, ok := m.Items[key]
		if !ok {
			return vm.fail(&KeyError{Key: key})
		}
		if err := vm.push(v); err != nil {
			return vm.fail(err)
		}
		vm.pc++

	case program.OpExpect:
		v, err := vm.peek()
		if err != nil {
			return vm.fail(err)
		}
		want := value.TypeTag(ins.Operand)
		got, ok := value.TagOf(v)
		if !ok || got != want {
			return vm.fail(&value.TypeError{Expect: value.NewTypeSet(want), Got: got})
		}
		vm.pc++

	case program.OpDisp:
		drawOp := sink.DrawOp(ins.Operand)
		arity := drawOp.Arity()
		popped := make([]any, arity)
		for i := 0; i < arity; i++ {
			v, err := vm.pop()
			if err != nil {
				return vm.fail(err)
			}
			popped[i] = v
		}
		args := make([]any, arity)
		for i, v := range popped {
			args[arity-1-i] = v
		}
		if vm.Sink != nil {
			if err := vm.Sink.Output(drawOp, sink.VMHandle{Op: drawOp, Args: args}); err != nil {
				return vm.fail(&sink.DispatchError{Op: drawOp, Err: err})
			}
		}
		vm.pc++

	case program.OpSwap:
		b, err := vm.pop()
		if err != nil {
			return vm.fail(err)
		}
		a, err := vm.pop()
		if err != nil {
			return vm.fail(err)
		}
		if err := vm.push(b); err != nil {
			return vm.fail(err)
		}
		if err := vm.push(a); err != nil {
			return vm.fail(err)
		}
		vm.pc++

	case program.OpBreak:
		return vm.fail(&DebugBreak{PC: vm.pc})

	case program.OpHalt:
		return &Halted{}

	default:
		return vm.fail(&IllegalOpcode{Op: byte(ins.Op)})
	}

	return nil
}

// Run steps the VM to completion: a *Halted from Step is treated as
// success and Run returns nil, while any *RuntimeError propagates —
// including one wrapping a DebugBreak, letting the caller (typically
// cmd/dashvm's debug subcommand) unwrap it and decide whether to resume.
func (vm *VM) Run() error {
	for {
		err := vm.Step()
		if err == nil {
			continue
		}
		if _, halted := err.(*Halted); halted {
			return nil
		}
		return err
	}
}
