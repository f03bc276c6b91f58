package tiny

import "encoding/binary"

// Opcode is a single byte identifying a VM instruction. Operands, when
// present, are one or two signed 32-bit little-endian integers
// immediately following the opcode byte.
type Opcode byte

const (
	OpPushNull Opcode = iota
	OpPushTrue
	OpPushFalse
	OpPop
	OpPushNumber // operand: number pool index
	OpPushString // operand: string pool index
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpOr
	OpAnd
	OpLt
	OpLte
	OpGt
	OpGte
	OpEqu
	OpLogNot
	OpLogAnd
	OpLogOr
	OpPrint
	OpRead
	OpSet       // operand: global index
	OpGet       // operand: global index
	OpSetLocal  // operand: signed frame offset
	OpGetLocal  // operand: signed frame offset
	OpGoto      // operand: target pc
	OpGotoZ     // operand: target pc
	OpCall      // operands: nargs, function index
	OpCallF     // operands: nargs, foreign function index
	OpReturn
	OpReturnValue
	OpGetRetval
	OpHalt
)

var opcodeNames = [...]string{
	OpPushNull:    "push_null",
	OpPushTrue:    "push_true",
	OpPushFalse:   "push_false",
	OpPop:         "pop",
	OpPushNumber:  "push_number",
	OpPushString:  "push_string",
	OpAdd:         "add",
	OpSub:         "sub",
	OpMul:         "mul",
	OpDiv:         "div",
	OpMod:         "mod",
	OpOr:          "or",
	OpAnd:         "and",
	OpLt:          "lt",
	OpLte:         "lte",
	OpGt:          "gt",
	OpGte:         "gte",
	OpEqu:         "equ",
	OpLogNot:      "log_not",
	OpLogAnd:      "log_and",
	OpLogOr:       "log_or",
	OpPrint:       "print",
	OpRead:        "read",
	OpSet:         "set",
	OpGet:         "get",
	OpSetLocal:    "setlocal",
	OpGetLocal:    "getlocal",
	OpGoto:        "goto",
	OpGotoZ:       "gotoz",
	OpCall:        "call",
	OpCallF:       "callf",
	OpReturn:      "return",
	OpReturnValue: "return_value",
	OpGetRetval:   "get_retval",
	OpHalt:        "halt",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return "unknown"
}

// operandCount is the number of 32-bit operands following each
// opcode in the bytecode buffer.
var operandCount = [...]int{
	OpPushNull:    0,
	OpPushTrue:    0,
	OpPushFalse:   0,
	OpPop:         0,
	OpPushNumber:  1,
	OpPushString:  1,
	OpAdd:         0,
	OpSub:         0,
	OpMul:         0,
	OpDiv:         0,
	OpMod:         0,
	OpOr:          0,
	OpAnd:         0,
	OpLt:          0,
	OpLte:         0,
	OpGt:          0,
	OpGte:         0,
	OpEqu:         0,
	OpLogNot:      0,
	OpLogAnd:      0,
	OpLogOr:       0,
	OpPrint:       0,
	OpRead:        0,
	OpSet:         1,
	OpGet:         1,
	OpSetLocal:    1,
	OpGetLocal:    1,
	OpGoto:        1,
	OpGotoZ:       1,
	OpCall:        2,
	OpCallF:       2,
	OpReturn:      0,
	OpReturnValue: 0,
	OpGetRetval:   0,
	OpHalt:        0,
}

// instructionSize returns the total number of bytes op occupies in
// the bytecode buffer, including the opcode byte itself.
func instructionSize(op Opcode) int {
	return 1 + 4*operandCount[op]
}

func encodeI32(code []byte, v int32) []byte {
	return binary.LittleEndian.AppendUint32(code, uint32(v))
}

func decodeI32(code []byte, at int) int32 {
	return int32(binary.LittleEndian.Uint32(code[at : at+4]))
}
