package bytecode

import (
	"strconv"
	"strings"

	"github.com/reflexlang/reflex/pkg/value"
)

// maxStackSize bounds the operand stack. Expressions have no loop
// construct, so hitting this means a malformed unit rather than a deep
// but legitimate computation.
const maxStackSize = 1024

// Resolver supplies external state for variable names not bound in the
// local scope. The second return reports whether the name resolved.
type Resolver interface {
	Resolve(name string) (value.Value, bool)
}

// Registry dispatches namespaced builtin calls. A false return means
// the name is not registered and the call degrades to null.
type Registry interface {
	Call(name string, args []value.Value) (value.Value, bool)
}

type localBinding struct {
	name string
	val  value.Value
}

// Context carries the transient state of one evaluation: the operand
// stack, local scope bindings, the injected resolver and builtin
// registry, and the sticky error flag. A Context is single-use;
// discard it after Eval returns.
type Context struct {
	resolver Resolver
	builtins Registry
	locals   []localBinding
	stack    []value.Value
	failed   bool
}

// NewContext returns a context wired to the given resolver and builtin
// registry. Either may be nil, in which case the corresponding lookups
// simply miss.
func NewContext(resolver Resolver, builtins Registry) *Context {
	return &Context{resolver: resolver, builtins: builtins}
}

// Bind adds a local scope binding. Locals are checked before the
// resolver and hold a deep copy of v.
func (c *Context) Bind(name string, v value.Value) {
	for i := range c.locals {
		if c.locals[i].name == name {
			c.locals[i].val = v.Copy()
			return
		}
	}
	c.locals = append(c.locals, localBinding{name: name, val: v.Copy()})
}

// Failed reports whether evaluation hit a stack underflow or overflow.
// The flag is sticky: once set it stays set for the rest of the run.
func (c *Context) Failed() bool { return c.failed }

func (c *Context) push(v value.Value) {
	if len(c.stack) >= maxStackSize {
		c.failed = true
		return
	}
	c.stack = append(c.stack, v)
}

func (c *Context) pop() value.Value {
	if len(c.stack) == 0 {
		c.failed = true
		return value.Null()
	}
	v := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	return v
}

// lookup resolves a variable name: local scope first, then the
// external resolver. Scoped names (containing ':') belong to external
// state and skip the locals entirely. Unbound names are null.
func (c *Context) lookup(name string) value.Value {
	if !strings.Contains(name, ":") {
		for i := range c.locals {
			if c.locals[i].name == name {
				return c.locals[i].val.Copy()
			}
		}
	}
	if c.resolver != nil {
		if v, ok := c.resolver.Resolve(name); ok {
			return v.Copy()
		}
	}
	return value.Null()
}

// popArgs pops n arguments into declaration order. The compiler emits
// arguments in reverse, so the first declared argument is on top. The
// count comes from the instruction stream, so it is clamped to the
// live stack before sizing the slice; a count past the stack is the
// same fault as an underflowing pop.
func (c *Context) popArgs(n int) []value.Value {
	if n > len(c.stack) {
		c.failed = true
		n = len(c.stack)
	}
	if n <= 0 {
		return nil
	}
	args := make([]value.Value, n)
	for i := 0; i < n; i++ {
		args[i] = c.pop()
	}
	return args
}

// Eval runs the unit's fetch-decode-execute loop against ctx and
// returns the result value. Evaluation never raises: malformed
// bytecode, unknown names and type mismatches all degrade to null, and
// stack faults set the context's sticky flag while the loop keeps
// going, so the rendering pipeline always receives a usable Value.
func Eval(u *Unit, ctx *Context) value.Value {
	pc := 0
	for pc >= 0 && pc < len(u.Code) {
		ins := u.Code[pc]

		switch ins.Op {
		case OpNop:

		// ============================================================
		// Stack pushes
		// ============================================================

		case OpPushInt:
			if ins.Flag&FlagPooled != 0 {
				if v, ok := u.IntAt(ins.Pool); ok {
					ctx.push(value.Int64(v))
				} else {
					ctx.push(value.Null())
				}
			} else {
				ctx.push(value.Int64(int64(ins.Imm)))
			}

		case OpPushFloat:
			text, ok := u.StringAt(ins.Pool)
			if !ok {
				ctx.push(value.Null())
				break
			}
			f, err := strconv.ParseFloat(text, 64)
			if err != nil {
				ctx.push(value.Null())
				break
			}
			ctx.push(value.Float64(f))

		case OpPushString:
			if s, ok := u.StringAt(ins.Pool); ok {
				ctx.push(value.Str(s))
			} else {
				ctx.push(value.Null())
			}

		case OpPushBool:
			ctx.push(value.Boolean(ins.Imm != 0))

		case OpPushNull:
			ctx.push(value.Null())

		// ============================================================
		// Stack manipulation
		// ============================================================

		case OpDup:
			v := ctx.pop()
			ctx.push(v.Copy())
			ctx.push(v)

		case OpPop:
			ctx.pop()

		case OpSwap:
			b := ctx.pop()
			a := ctx.pop()
			ctx.push(b)
			ctx.push(a)

		// ============================================================
		// Variables and member access
		// ============================================================

		case OpLoadVar:
			name, ok := u.StringAt(ins.Pool)
			if !ok {
				ctx.push(value.Null())
				break
			}
			ctx.push(ctx.lookup(name))

		case OpGetProp:
			name, ok := u.StringAt(ins.Pool)
			receiver := ctx.pop()
			if !ok {
				ctx.push(value.Null())
				break
			}
			ctx.push(getProperty(receiver, name))

		case OpGetPropComputed, OpGetIndex:
			key := ctx.pop()
			receiver := ctx.pop()
			ctx.push(getElement(receiver, key))

		// ============================================================
		// Calls
		// ============================================================

		case OpCallMethod:
			args := ctx.popArgs(int(ins.Imm))
			receiver := ctx.pop()
			name, ok := u.StringAt(ins.Pool)
			if !ok {
				ctx.push(value.Null())
				break
			}
			ctx.push(callMethod(receiver, name, args))

		case OpCallBuiltin:
			args := ctx.popArgs(int(ins.Imm))
			name, ok := u.StringAt(ins.Pool)
			if !ok || ctx.builtins == nil {
				ctx.push(value.Null())
				break
			}
			if result, ok := ctx.builtins.Call(name, args); ok {
				ctx.push(result)
			} else {
				ctx.push(value.Null())
			}

		case OpCallFunction:
			// Generic calls are not evaluated; discard the arguments
			// and degrade to null.
			ctx.popArgs(int(ins.Imm))
			ctx.push(value.Null())

		// ============================================================
		// Operators
		// ============================================================

		case OpAdd, OpSub, OpMul, OpDiv, OpMod,
			OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte, OpAnd, OpOr:
			right := ctx.pop()
			left := ctx.pop()
			ctx.push(evalBinary(ins.Op, left, right))

		case OpNot, OpNegate:
			ctx.push(evalUnary(ins.Op, ctx.pop()))

		// ============================================================
		// Control flow
		// ============================================================

		case OpJump:
			pc += int(ins.Imm)
			continue

		case OpJumpIfFalse:
			if !ctx.pop().Truthy() {
				pc += int(ins.Imm)
				continue
			}

		case OpJumpIfTrue:
			if ctx.pop().Truthy() {
				pc += int(ins.Imm)
				continue
			}

		case OpHalt:
			pc = len(u.Code)
			continue

		default:
			// Unknown opcodes behave like no-ops.
		}

		pc++
	}

	if len(ctx.stack) == 0 {
		return value.Null()
	}
	return ctx.pop()
}
