// Package vm - debugger support, adapted from the teacher's interactive
// Debugger (breakpoints, step mode, stack/frame inspection) to dashvm's
// stack-machine model. The REPL loop itself lives in cmd/dashvm, which
// drives this Debugger via liner for line editing; this file only holds
// the pause/breakpoint bookkeeping and the inspection views a front end
// needs to render.
package vm

import (
	"fmt"
	"strings"
)

// Debugger tracks breakpoints and single-step mode for a VM. A VM with no
// attached Debugger runs at full speed; attaching one lets an embedder
// pause execution without modifying the program itself.
type Debugger struct {
	vm          *VM
	breakpoints map[int]bool
	stepMode    bool
	enabled     bool
}

// NewDebugger creates a Debugger bound to vm. Call vm.AttachDebugger to
// wire it in.
func NewDebugger(vm *VM) *Debugger {
	return &Debugger{vm: vm, breakpoints: make(map[int]bool)}
}

// Enable activates breakpoint/step-mode checking in Step.
func (d *Debugger) Enable() { d.enabled = true }

// Disable deactivates it; Step runs unconditionally until Halt or error.
func (d *Debugger) Disable() { d.enabled = false }

// SetStepMode toggles pause-after-every-instruction behavior.
func (d *Debugger) SetStepMode(enabled bool) { d.stepMode = enabled }

// AddBreakpoint arms a pause at the given program counter.
func (d *Debugger) AddBreakpoint(pc int) { d.breakpoints[pc] = true }

// RemoveBreakpoint disarms a previously added breakpoint.
func (d *Debugger) RemoveBreakpoint(pc int) { delete(d.breakpoints, pc) }

// ClearBreakpoints disarms every breakpoint.
func (d *Debugger) ClearBreakpoints() { d.breakpoints = make(map[int]bool) }

// ShouldPause reports whether Step should stop before executing pc.
func (d *Debugger) ShouldPause(pc int) bool {
	if !d.enabled {
		return false
	}
	if d.stepMode {
		return true
	}
	return d.breakpoints[pc]
}

// CurrentInstruction renders the instruction about to execute.
func (d *Debugger) CurrentInstruction() string {
	ins, err := d.vm.Prog.Fetch(d.vm.pc)
	if err != nil {
		return fmt.Sprintf("<no instruction at pc=%d>", d.vm.pc)
	}
	return fmt.Sprintf("%04d  %s", d.vm.pc, ins.Op)
}

// StackView renders the value stack, top first.
func (d *Debugger) StackView() string {
	if len(d.vm.stack) == 0 {
		return "(empty)"
	}
	var b strings.Builder
	for i := len(d.vm.stack) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "  [%d] %v\n", i, d.vm.stack[i])
	}
	return b.String()
}

// CallStackView renders the frame stack, innermost first.
func (d *Debugger) CallStackView() string {
	if len(d.vm.frames) == 0 {
		return "(empty)"
	}
	var b strings.Builder
	for i := len(d.vm.frames) - 1; i >= 0; i-- {
		f := d.vm.frames[i]
		fmt.Fprintf(&b, "  frame %d: return=%d fp=%d arity=%d\n", i, f.ReturnAddress, f.FramePointer, f.Arity)
	}
	return b.String()
}

// GlobalsView renders the environment snapshot bindings.
func (d *Debugger) GlobalsView() string {
	if len(d.vm.Globals) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for name, v := range d.vm.Globals {
		fmt.Fprintf(&b, "  %s = %v\n", name, v)
	}
	return b.String()
}

// ListingView renders the full program disassembly with a marker at the
// current pc and at every armed breakpoint.
func (d *Debugger) ListingView() string {
	var b strings.Builder
	for pc, ins := range d.vm.Prog.Code {
		marker := "  "
		if pc == d.vm.pc {
			marker = "->"
		} else if d.breakpoints[pc] {
			marker = "* "
		}
		fmt.Fprintf(&b, "%s %04d %s\n", marker, pc, ins.Op)
	}
	return b.String()
}
