package bytecode

import (
	"github.com/reflexlang/reflex/pkg/ast"
	"github.com/reflexlang/reflex/pkg/value"
)

// Fold performs tree-level constant folding, rebuilding nodes bottom-up
// and never mutating the input, which is borrowed from the caller. A
// node counts as constant only when it is a literal; a binary, unary or
// ternary node whose operands are all constant is evaluated with the
// exact runtime operator semantics and replaced by one literal.
// Everything else is rebuilt with folded children.
func Fold(e ast.Expr) ast.Expr {
	switch n := e.(type) {
	case *ast.Binary:
		left, right := Fold(n.Left), Fold(n.Right)
		if ast.IsLiteral(left) && ast.IsLiteral(right) {
			return literalOf(evalBinary(binaryOpcode(n.Op), literalValue(left), literalValue(right)))
		}
		return &ast.Binary{Op: n.Op, Left: left, Right: right}

	case *ast.Unary:
		operand := Fold(n.Operand)
		if ast.IsLiteral(operand) {
			op := OpNegate
			if n.Op == ast.OpNot {
				op = OpNot
			}
			return literalOf(evalUnary(op, literalValue(operand)))
		}
		return &ast.Unary{Op: n.Op, Operand: operand}

	case *ast.Ternary:
		cond, then, els := Fold(n.Cond), Fold(n.Then), Fold(n.Else)
		if ast.IsLiteral(cond) && ast.IsLiteral(then) && ast.IsLiteral(els) {
			if literalValue(cond).Truthy() {
				return then
			}
			return els
		}
		return &ast.Ternary{Cond: cond, Then: then, Else: els}

	case *ast.Group:
		inner := Fold(n.Inner)
		if ast.IsLiteral(inner) {
			return inner
		}
		return &ast.Group{Inner: inner}

	case *ast.Member:
		return &ast.Member{Object: Fold(n.Object), Field: n.Field}

	case *ast.ComputedMember:
		return &ast.ComputedMember{Object: Fold(n.Object), Key: Fold(n.Key)}

	case *ast.Index:
		return &ast.Index{Target: Fold(n.Target), At: Fold(n.At)}

	case *ast.Call:
		return &ast.Call{Func: n.Func, Args: foldAll(n.Args)}

	case *ast.MethodCall:
		return &ast.MethodCall{Receiver: Fold(n.Receiver), Method: n.Method, Args: foldAll(n.Args)}
	}

	return e
}

func foldAll(args []ast.Expr) []ast.Expr {
	if len(args) == 0 {
		return nil
	}
	out := make([]ast.Expr, len(args))
	for i, a := range args {
		out[i] = Fold(a)
	}
	return out
}

func literalValue(e ast.Expr) value.Value {
	switch n := e.(type) {
	case *ast.IntLit:
		return value.Int64(n.Value)
	case *ast.FloatLit:
		return value.Float64(n.Value)
	case *ast.StringLit:
		return value.Str(n.Value)
	case *ast.BoolLit:
		return value.Boolean(n.Value)
	}
	return value.Null()
}

// literalOf converts a folded scalar result back into a literal node.
// Operator results are always scalar, so containers cannot occur here.
func literalOf(v value.Value) ast.Expr {
	switch v.Kind() {
	case value.KindInt:
		return &ast.IntLit{Value: v.AsInt()}
	case value.KindFloat:
		return &ast.FloatLit{Value: v.AsFloat()}
	case value.KindBool:
		return &ast.BoolLit{Value: v.AsBool()}
	case value.KindString:
		return &ast.StringLit{Value: v.AsString()}
	}
	return &ast.NullLit{}
}

// EliminateDeadCode rewrites unreachable instructions to no-ops in
// place. Slots are retained, never removed, so every surviving jump
// offset stays valid without re-patching.
//
// Reachability: instruction 0 starts the walk; an unconditional jump
// reaches only its target, a conditional jump reaches both its target
// and the fallthrough, a halt reaches nothing, and every other opcode
// reaches the next instruction.
func EliminateDeadCode(u *Unit) {
	if len(u.Code) == 0 {
		return
	}

	reachable := make([]bool, len(u.Code))
	work := []int{0}
	for len(work) > 0 {
		pc := work[len(work)-1]
		work = work[:len(work)-1]
		if pc < 0 || pc >= len(u.Code) || reachable[pc] {
			continue
		}
		reachable[pc] = true

		switch u.Code[pc].Op {
		case OpJump:
			work = append(work, pc+int(u.Code[pc].Imm))
		case OpJumpIfFalse, OpJumpIfTrue:
			work = append(work, pc+int(u.Code[pc].Imm), pc+1)
		case OpHalt:
		default:
			work = append(work, pc+1)
		}
	}

	for i := range u.Code {
		if !reachable[i] {
			u.Code[i] = Instruction{Op: OpNop}
		}
	}
}
