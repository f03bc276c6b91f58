package tiny

import (
	"fmt"
	"strings"

	"github.com/clarete/tiny/ascii"
)

// Disassemble renders state's compiled program as one instruction per
// line: address, mnemonic, and decoded operands, colorized the same
// way SourceWindow colorizes a source snippet. Used by cmd/tiny's
// -disasm flag.
func Disassemble(state *State) string {
	var b strings.Builder
	theme := ascii.DefaultTheme
	pc := 0
	for pc < len(state.program) {
		op := Opcode(state.program[pc])
		size := instructionSize(op)

		fmt.Fprintf(&b, "%s  %s",
			ascii.Color(theme.Muted, "%04d", pc),
			ascii.Color(theme.Operator, "%-14s", op.String()))

		for i := 0; i < operandCount[op]; i++ {
			v := decodeI32(state.program, pc+1+4*i)
			fmt.Fprintf(&b, " %s", ascii.Color(theme.Operand, "%d", v))
		}
		if op == OpPushNumber {
			fmt.Fprintf(&b, "  %s", ascii.Color(theme.Comment, "; %g", state.numbers.get(int(decodeI32(state.program, pc+1)))))
		}
		if op == OpPushString {
			fmt.Fprintf(&b, "  %s", ascii.Color(theme.Comment, "; %q", state.strings.get(int(decodeI32(state.program, pc+1)))))
		}
		b.WriteByte('\n')
		pc += size
	}
	return b.String()
}
