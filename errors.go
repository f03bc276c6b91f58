package tiny

import "fmt"

// CompileError is returned by lexing, parsing, and code generation.
// It is always fatal to the compile call that produced it, but it is
// an ordinary Go error: the tiny package never calls os.Exit itself,
// so an embedding host decides how to surface it (cmd/tiny prints a
// source window and exits; a long-running host might log it and
// refuse to start the offending thread instead).
type CompileError struct {
	Loc     Location
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %s", e.Loc, e.Message)
}

func newCompileError(loc Location, format string, args ...any) *CompileError {
	return &CompileError{Loc: loc, Message: fmt.Sprintf(format, args...)}
}

// RuntimeFault reports a condition the bytecode VM treats as fatal:
// stack overflow/underflow, indirection-stack overflow, or a type
// error on an opcode that asserts its operand's kind (LOG_NOT,
// LOG_AND, LOG_OR, GOTOZ).
type RuntimeFault struct {
	Message string
	Opcode  Opcode
	PC      int
}

func (e *RuntimeFault) Error() string {
	return fmt.Sprintf("runtime fault at pc=%d (%s): %s", e.PC, e.Opcode, e.Message)
}

func newRuntimeFault(pc int, op Opcode, format string, args ...any) *RuntimeFault {
	return &RuntimeFault{Message: fmt.Sprintf(format, args...), Opcode: op, PC: pc}
}
