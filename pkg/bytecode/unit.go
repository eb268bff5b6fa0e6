package bytecode

// Instruction is one fixed-width bytecode slot: an opcode, a flag
// byte, a 16-bit constant-pool index and a 32-bit immediate. The
// immediate doubles as an inline integer literal and as a signed,
// PC-relative jump offset measured from the jump instruction itself.
type Instruction struct {
	Op   Opcode
	Flag uint8
	Pool uint16
	Imm  int32
}

// Unit is the compiled form of one expression: instructions plus the
// constant pools they index and the evaluation metadata. A Unit is
// immutable once compilation finishes and may be shared read-only
// across goroutines; each evaluation brings its own Context.
type Unit struct {
	Code    []Instruction
	Strings []string
	Ints    []int64

	// MaxStack is the deepest operand stack the compiler observed.
	MaxStack int

	// Source optionally echoes the expression text for diagnostics.
	Source string
}

// StringAt returns the string pool entry at idx. Out-of-range indices
// report ok=false; the VM degrades those to null.
func (u *Unit) StringAt(idx uint16) (string, bool) {
	if int(idx) >= len(u.Strings) {
		return "", false
	}
	return u.Strings[idx], true
}

// IntAt returns the int pool entry at idx.
func (u *Unit) IntAt(idx uint16) (int64, bool) {
	if int(idx) >= len(u.Ints) {
		return 0, false
	}
	return u.Ints[idx], true
}
