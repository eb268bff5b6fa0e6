package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders a unit as human-readable text for debugging and
// development-time logging. It sits off the evaluation path entirely.
func Disassemble(u *Unit) string {
	var b strings.Builder

	fmt.Fprintf(&b, "; %d instructions, %d strings, %d ints, max stack %d\n",
		len(u.Code), len(u.Strings), len(u.Ints), u.MaxStack)
	if u.Source != "" {
		fmt.Fprintf(&b, "; source: %s\n", u.Source)
	}

	for i, ins := range u.Code {
		fmt.Fprintf(&b, "%04d  %s", i, ins.Op)
		writeOperands(&b, u, i, ins)
		b.WriteByte('\n')
	}

	return b.String()
}

func writeOperands(b *strings.Builder, u *Unit, pc int, ins Instruction) {
	mode := operandNone
	if int(ins.Op) < len(opcodeInfos) {
		mode = opcodeInfos[ins.Op].mode
	}

	switch mode {
	case operandInt:
		if ins.Flag&FlagPooled != 0 {
			if v, ok := u.IntAt(ins.Pool); ok {
				fmt.Fprintf(b, " ints[%d] (%d)", ins.Pool, v)
			} else {
				fmt.Fprintf(b, " ints[%d] (out of range)", ins.Pool)
			}
		} else {
			fmt.Fprintf(b, " %d", ins.Imm)
		}

	case operandStr:
		if s, ok := u.StringAt(ins.Pool); ok {
			fmt.Fprintf(b, " strings[%d] (%q)", ins.Pool, s)
		} else {
			fmt.Fprintf(b, " strings[%d] (out of range)", ins.Pool)
		}

	case operandName:
		if s, ok := u.StringAt(ins.Pool); ok {
			fmt.Fprintf(b, " strings[%d] (%q) args=%d", ins.Pool, s, ins.Imm)
		} else {
			fmt.Fprintf(b, " strings[%d] (out of range) args=%d", ins.Pool, ins.Imm)
		}

	case operandBool:
		fmt.Fprintf(b, " %t", ins.Imm != 0)

	case operandJump:
		fmt.Fprintf(b, " %+d -> %04d", ins.Imm, pc+int(ins.Imm))
	}
}
