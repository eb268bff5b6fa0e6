package bytecode

// Opcode identifies a VM instruction.
type Opcode uint8

const (
	// OpNop does nothing. Dead-code elimination rewrites unreachable
	// instructions to OpNop in place so jump offsets stay valid.
	OpNop Opcode = iota

	// ============================================================
	// Stack pushes
	// ============================================================

	// OpPushInt pushes an integer. With FlagPooled set the value lives
	// in the int pool at Pool; otherwise it is inline in Imm.
	OpPushInt
	// OpPushFloat pushes a float parsed from its decimal text in the
	// string pool at Pool.
	OpPushFloat
	// OpPushString pushes the string pool entry at Pool.
	OpPushString
	// OpPushBool pushes true when Imm is nonzero.
	OpPushBool
	// OpPushNull pushes null.
	OpPushNull

	// ============================================================
	// Stack manipulation
	// ============================================================

	OpDup
	OpPop
	OpSwap

	// ============================================================
	// Variables and member access
	// ============================================================

	// OpLoadVar resolves the name at Pool against the local scope and
	// then the external state accessor, pushing null when unbound.
	OpLoadVar
	// OpGetProp pops a receiver and pushes the property named by the
	// string pool entry at Pool.
	OpGetProp
	// OpGetPropComputed pops a key then a receiver and pushes the
	// addressed element.
	OpGetPropComputed
	// OpGetIndex pops an index then a receiver and pushes the
	// addressed element.
	OpGetIndex

	// ============================================================
	// Calls
	// ============================================================

	// OpCallMethod pops Imm arguments then a receiver and dispatches
	// the method named at Pool by the receiver's runtime type.
	OpCallMethod
	// OpCallBuiltin pops Imm arguments and dispatches the function
	// named at Pool through the injected builtin registry.
	OpCallBuiltin
	// OpCallFunction pops Imm arguments and pushes null. Generic calls
	// have no evaluation support yet.
	OpCallFunction

	// ============================================================
	// Operators
	// ============================================================

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpAnd
	OpOr
	OpNot
	OpNegate

	// ============================================================
	// Control flow
	// ============================================================

	// OpJump adds Imm to the program counter unconditionally.
	OpJump
	// OpJumpIfFalse pops the condition and adds Imm to the program
	// counter when it is falsy.
	OpJumpIfFalse
	// OpJumpIfTrue pops the condition and adds Imm to the program
	// counter when it is truthy.
	OpJumpIfTrue

	// OpHalt ends evaluation; the top of stack is the result.
	OpHalt
)

// Flag bits carried in an instruction's flag byte.
const (
	// FlagPooled marks an OpPushInt whose value lives in the int pool
	// rather than inline. Pool index 0 is a valid entry, so pooling
	// cannot be signalled by the index itself.
	FlagPooled uint8 = 1 << 0
)

// operand rendering modes, used by the disassembler.
type operandMode uint8

const (
	operandNone operandMode = iota
	operandInt              // inline or pooled integer
	operandStr              // string pool entry
	operandName             // string pool entry plus argument count
	operandBool
	operandJump // signed relative offset
)

type opcodeInfo struct {
	name string
	mode operandMode
}

var opcodeInfos = [...]opcodeInfo{
	OpNop:             {"NOP", operandNone},
	OpPushInt:         {"PUSH_INT", operandInt},
	OpPushFloat:       {"PUSH_FLOAT", operandStr},
	OpPushString:      {"PUSH_STRING", operandStr},
	OpPushBool:        {"PUSH_BOOL", operandBool},
	OpPushNull:        {"PUSH_NULL", operandNone},
	OpDup:             {"DUP", operandNone},
	OpPop:             {"POP", operandNone},
	OpSwap:            {"SWAP", operandNone},
	OpLoadVar:         {"LOAD_VAR", operandStr},
	OpGetProp:         {"GET_PROP", operandStr},
	OpGetPropComputed: {"GET_PROP_COMPUTED", operandNone},
	OpGetIndex:        {"GET_INDEX", operandNone},
	OpCallMethod:      {"CALL_METHOD", operandName},
	OpCallBuiltin:     {"CALL_BUILTIN", operandName},
	OpCallFunction:    {"CALL_FUNCTION", operandName},
	OpAdd:             {"ADD", operandNone},
	OpSub:             {"SUB", operandNone},
	OpMul:             {"MUL", operandNone},
	OpDiv:             {"DIV", operandNone},
	OpMod:             {"MOD", operandNone},
	OpEq:              {"EQ", operandNone},
	OpNeq:             {"NEQ", operandNone},
	OpLt:              {"LT", operandNone},
	OpLte:             {"LTE", operandNone},
	OpGt:              {"GT", operandNone},
	OpGte:             {"GTE", operandNone},
	OpAnd:             {"AND", operandNone},
	OpOr:              {"OR", operandNone},
	OpNot:             {"NOT", operandNone},
	OpNegate:          {"NEGATE", operandNone},
	OpJump:            {"JUMP", operandJump},
	OpJumpIfFalse:     {"JUMP_IF_FALSE", operandJump},
	OpJumpIfTrue:      {"JUMP_IF_TRUE", operandJump},
	OpHalt:            {"HALT", operandNone},
}

// String returns the mnemonic for op.
func (op Opcode) String() string {
	if int(op) < len(opcodeInfos) && opcodeInfos[op].name != "" {
		return opcodeInfos[op].name
	}
	return "UNKNOWN"
}
