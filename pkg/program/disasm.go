package program

import (
	"fmt"
	"strings"

	"github.com/kristofer/dashvm/pkg/value"
)

// Disassemble renders a Program as a human-readable listing, one
// instruction per line, in the style of the teacher's bytecode.String()
// dumps: address, mnemonic, and a decoded operand where one applies.
func Disassemble(p *Program) string {
	var b strings.Builder
	for pc, ins := range p.Code {
		fmt.Fprintf(&b, "%04d  %s", pc, ins.Op)
		if operand := decodeOperand(p, ins); operand != "" {
			fmt.Fprintf(&b, " %s", operand)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func decodeOperand(p *Program, ins Instruction) string {
	switch ins.Op {
	case OpLoadI:
		if k := int(ins.Operand); k >= 0 && k < len(p.Constants) {
			return fmt.Sprintf("#%d (%s)", k, formatConstant(p.Constants[k]))
		}
		return fmt.Sprintf("#%d", ins.Operand)
	case OpCoerce, OpExpect:
		return value.TypeTag(ins.Operand).String()
	case OpBinary:
		return value.BinOp(ins.Operand).String()
	case OpUnary:
		return value.UnOp(ins.Operand).String()
	case OpDrop, OpDup, OpArg, OpCall, OpRet:
		return fmt.Sprintf("%d", ins.Operand)
	case OpDisp:
		return fmt.Sprintf("draw-op(%d)", ins.Operand)
	default:
		return ""
	}
}

func formatConstant(v any) string {
	switch cv := v.(type) {
	case string:
		return fmt.Sprintf("%q", cv)
	case *value.List:
		return fmt.Sprintf("list[%d]", len(cv.Items))
	case *value.Map:
		return fmt.Sprintf("map[%d]", len(cv.Items))
	default:
		return fmt.Sprintf("%v", cv)
	}
}
