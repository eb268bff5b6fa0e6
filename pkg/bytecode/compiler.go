package bytecode

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/reflexlang/reflex/pkg/ast"
)

// ErrCapacity is returned when a constant pool outgrows the 16-bit
// index space an instruction can address. The returned unit is still
// well-formed, just truncated.
var ErrCapacity = errors.New("constant pool capacity exhausted")

const maxPoolEntries = math.MaxUint16 + 1

// Function names under these prefixes dispatch through the builtin
// registry; everything else compiles to the generic call opcode.
var builtinPrefixes = []string{"string_", "array_", "math_", "type_"}

// Compiler translates one expression tree into a Unit. A Compiler is
// single-use and not safe for concurrent use; construct one per
// expression.
//
// Emission is sticky on failure: once a pool overflows, every further
// emit becomes a no-op so the output stays well-formed instead of
// growing corrupt, and Compile reports the error at the end.
type Compiler struct {
	unit     *Unit
	depth    int
	maxDepth int
	failed   bool
}

// NewCompiler returns a compiler with empty pools.
func NewCompiler() *Compiler {
	return &Compiler{unit: &Unit{}}
}

// SetSource attaches the expression's source text to the output unit
// for diagnostics. Optional.
func (c *Compiler) SetSource(src string) {
	c.unit.Source = src
}

// Compile emits bytecode for expr followed by a halt. The unit is
// returned even on error so callers can inspect the truncated output.
func (c *Compiler) Compile(expr ast.Expr) (*Unit, error) {
	c.compileExpr(expr)
	c.emit(OpHalt, 0, 0, 0)
	c.unit.MaxStack = c.maxDepth
	if c.failed {
		return c.unit, ErrCapacity
	}
	return c.unit, nil
}

func (c *Compiler) compileExpr(expr ast.Expr) {
	switch n := expr.(type) {
	case nil:
		c.emit(OpPushNull, 0, 0, 0)
		c.adjust(1)

	case *ast.IntLit:
		if n.Value >= math.MinInt32 && n.Value <= math.MaxInt32 {
			c.emit(OpPushInt, 0, 0, int32(n.Value))
		} else {
			c.emit(OpPushInt, FlagPooled, c.internInt(n.Value), 0)
		}
		c.adjust(1)

	case *ast.FloatLit:
		// Floats travel as decimal text in the string pool and are
		// parsed back at evaluation time.
		text := strconv.FormatFloat(n.Value, 'g', -1, 64)
		c.emit(OpPushFloat, 0, c.internString(text), 0)
		c.adjust(1)

	case *ast.StringLit:
		c.emit(OpPushString, 0, c.internString(n.Value), 0)
		c.adjust(1)

	case *ast.BoolLit:
		imm := int32(0)
		if n.Value {
			imm = 1
		}
		c.emit(OpPushBool, 0, 0, imm)
		c.adjust(1)

	case *ast.NullLit:
		c.emit(OpPushNull, 0, 0, 0)
		c.adjust(1)

	case *ast.VarRef:
		// Names are resolved at evaluation time only; the host may
		// define them dynamically. Scoped references keep the scope
		// in the pooled name.
		name := n.Name
		if n.Scope != "" {
			name = n.Scope + ":" + n.Name
		}
		c.emit(OpLoadVar, 0, c.internString(name), 0)
		c.adjust(1)

	case *ast.Property:
		c.emit(OpLoadVar, 0, c.internString(n.Object), 0)
		c.adjust(1)
		c.emit(OpGetProp, 0, c.internString(n.Field), 0)

	case *ast.Member:
		c.compileExpr(n.Object)
		c.emit(OpGetProp, 0, c.internString(n.Field), 0)

	case *ast.ComputedMember:
		c.compileExpr(n.Object)
		c.compileExpr(n.Key)
		c.emit(OpGetPropComputed, 0, 0, 0)
		c.adjust(-1)

	case *ast.Index:
		c.compileExpr(n.Target)
		c.compileExpr(n.At)
		c.emit(OpGetIndex, 0, 0, 0)
		c.adjust(-1)

	case *ast.Binary:
		c.compileExpr(n.Left)
		c.compileExpr(n.Right)
		c.emit(binaryOpcode(n.Op), 0, 0, 0)
		c.adjust(-1)

	case *ast.Unary:
		c.compileExpr(n.Operand)
		if n.Op == ast.OpNot {
			c.emit(OpNot, 0, 0, 0)
		} else {
			c.emit(OpNegate, 0, 0, 0)
		}

	case *ast.Ternary:
		c.compileExpr(n.Cond)
		skipThen := c.emit(OpJumpIfFalse, 0, 0, 0)
		c.adjust(-1)
		c.compileExpr(n.Then)
		skipElse := c.emit(OpJump, 0, 0, 0)
		c.patchJump(skipThen)
		// Only one arm executes, so the arms contribute one push
		// between them.
		c.adjust(-1)
		c.compileExpr(n.Else)
		c.patchJump(skipElse)

	case *ast.Call:
		// Arguments compile in reverse so the callee pops them in
		// declaration order.
		for i := len(n.Args) - 1; i >= 0; i-- {
			c.compileExpr(n.Args[i])
		}
		op := OpCallFunction
		if isBuiltinName(n.Func) {
			op = OpCallBuiltin
		}
		c.emit(op, 0, c.internString(n.Func), int32(len(n.Args)))
		c.adjust(1 - len(n.Args))

	case *ast.MethodCall:
		c.compileExpr(n.Receiver)
		for i := len(n.Args) - 1; i >= 0; i-- {
			c.compileExpr(n.Args[i])
		}
		c.emit(OpCallMethod, 0, c.internString(n.Method), int32(len(n.Args)))
		c.adjust(-len(n.Args))

	case *ast.Group:
		c.compileExpr(n.Inner)

	default:
		c.emit(OpPushNull, 0, 0, 0)
		c.adjust(1)
	}
}

// emit appends one instruction and returns its index. After a failure
// it appends nothing and returns the current end of code.
func (c *Compiler) emit(op Opcode, flag uint8, pool uint16, imm int32) int {
	if c.failed {
		return len(c.unit.Code)
	}
	c.unit.Code = append(c.unit.Code, Instruction{Op: op, Flag: flag, Pool: pool, Imm: imm})
	return len(c.unit.Code) - 1
}

// patchJump writes the relative offset from the jump at pos to the
// next instruction to be emitted. Offsets are measured from the jump
// instruction itself so compiled code can be relocated wholesale.
func (c *Compiler) patchJump(pos int) {
	if c.failed || pos >= len(c.unit.Code) {
		return
	}
	c.unit.Code[pos].Imm = int32(len(c.unit.Code) - pos)
}

func (c *Compiler) adjust(delta int) {
	if c.failed {
		return
	}
	c.depth += delta
	if c.depth > c.maxDepth {
		c.maxDepth = c.depth
	}
}

func (c *Compiler) internString(s string) uint16 {
	for i, existing := range c.unit.Strings {
		if existing == s {
			return uint16(i)
		}
	}
	if len(c.unit.Strings) >= maxPoolEntries {
		c.failed = true
		return 0
	}
	c.unit.Strings = append(c.unit.Strings, s)
	return uint16(len(c.unit.Strings) - 1)
}

func (c *Compiler) internInt(v int64) uint16 {
	for i, existing := range c.unit.Ints {
		if existing == v {
			return uint16(i)
		}
	}
	if len(c.unit.Ints) >= maxPoolEntries {
		c.failed = true
		return 0
	}
	c.unit.Ints = append(c.unit.Ints, v)
	return uint16(len(c.unit.Ints) - 1)
}

func isBuiltinName(name string) bool {
	for _, prefix := range builtinPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func binaryOpcode(op ast.BinaryOp) Opcode {
	switch op {
	case ast.OpAdd:
		return OpAdd
	case ast.OpSub:
		return OpSub
	case ast.OpMul:
		return OpMul
	case ast.OpDiv:
		return OpDiv
	case ast.OpMod:
		return OpMod
	case ast.OpEq:
		return OpEq
	case ast.OpNeq:
		return OpNeq
	case ast.OpLt:
		return OpLt
	case ast.OpLte:
		return OpLte
	case ast.OpGt:
		return OpGt
	case ast.OpGte:
		return OpGte
	case ast.OpAnd:
		return OpAnd
	case ast.OpOr:
		return OpOr
	case ast.OpConcat:
		// Concat shares the add opcode; add already concatenates when
		// either operand is a string.
		return OpAdd
	}
	return OpNop
}
