// Package ast defines the expression tree consumed by the bytecode
// compiler, along with a JSON interchange form and a structural hash
// used to key the compiled-expression cache.
//
// Trees arrive from outside the evaluation pipeline (a template parser,
// a designer tool, or the JSON form in this package) and are treated as
// read-only by everything downstream.
package ast

// BinaryOp enumerates the binary operators.
type BinaryOp uint8

const (
	OpAdd BinaryOp = iota
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
	OpConcat
)

var binaryOpNames = [...]string{
	OpAdd:    "add",
	OpSub:    "sub",
	OpMul:    "mul",
	OpDiv:    "div",
	OpMod:    "mod",
	OpEq:     "eq",
	OpNeq:    "neq",
	OpLt:     "lt",
	OpLte:    "lte",
	OpGt:     "gt",
	OpGte:    "gte",
	OpAnd:    "and",
	OpOr:     "or",
	OpConcat: "concat",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return "unknown"
}

// UnaryOp enumerates the unary operators.
type UnaryOp uint8

const (
	OpNeg UnaryOp = iota
	OpNot
)

func (op UnaryOp) String() string {
	switch op {
	case OpNeg:
		return "neg"
	case OpNot:
		return "not"
	}
	return "unknown"
}

// Expr is the interface implemented by every expression node.
type Expr interface {
	exprNode()
}

// IntLit is an integer literal.
type IntLit struct {
	Value int64
}

// FloatLit is a floating-point literal.
type FloatLit struct {
	Value float64
}

// StringLit is a string literal.
type StringLit struct {
	Value string
}

// BoolLit is a boolean literal.
type BoolLit struct {
	Value bool
}

// NullLit is the null literal.
type NullLit struct{}

// VarRef references a variable by name. Scope is optional: when set it
// names the component scope the variable belongs to, and resolution is
// pinned to external state instead of VM locals.
type VarRef struct {
	Name  string
	Scope string
}

// Property is static property access on a named variable, e.g.
// user.name where "user" is not itself an expression. Richer access
// chains use Member instead.
type Property struct {
	Object string
	Field  string
}

// Member is property access on an arbitrary receiver expression.
type Member struct {
	Object Expr
	Field  string
}

// ComputedMember is bracket access with a computed key, e.g. obj[key].
type ComputedMember struct {
	Object Expr
	Key    Expr
}

// Index is positional access into an array or string.
type Index struct {
	Target Expr
	At     Expr
}

// Binary applies a binary operator.
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// Unary applies a unary operator.
type Unary struct {
	Op      UnaryOp
	Operand Expr
}

// Ternary is the conditional expression cond ? then : else.
type Ternary struct {
	Cond Expr
	Then Expr
	Else Expr
}

// Call invokes a free function by name.
type Call struct {
	Func string
	Args []Expr
}

// MethodCall invokes a method on a receiver expression.
type MethodCall struct {
	Receiver Expr
	Method   string
	Args     []Expr
}

// Group is an explicit parenthesized subexpression. It changes nothing
// semantically but is preserved so trees round-trip.
type Group struct {
	Inner Expr
}

func (*IntLit) exprNode()         {}
func (*FloatLit) exprNode()       {}
func (*StringLit) exprNode()      {}
func (*BoolLit) exprNode()        {}
func (*NullLit) exprNode()        {}
func (*VarRef) exprNode()         {}
func (*Property) exprNode()       {}
func (*Member) exprNode()         {}
func (*ComputedMember) exprNode() {}
func (*Index) exprNode()          {}
func (*Binary) exprNode()         {}
func (*Unary) exprNode()          {}
func (*Ternary) exprNode()        {}
func (*Call) exprNode()           {}
func (*MethodCall) exprNode()     {}
func (*Group) exprNode()          {}

// IsLiteral reports whether e is a literal leaf. Only literals count as
// compile-time constants; variable references and every composite node
// depend on evaluation state.
func IsLiteral(e Expr) bool {
	switch e.(type) {
	case *IntLit, *FloatLit, *StringLit, *BoolLit, *NullLit:
		return true
	}
	return false
}

// ParseBinaryOp maps an operator name from the interchange form to its
// BinaryOp. Unknown names fall back to add, matching the tolerant
// decoding of the wire format.
func ParseBinaryOp(name string) BinaryOp {
	for op, n := range binaryOpNames {
		if n == name {
			return BinaryOp(op)
		}
	}
	return OpAdd
}

// ParseUnaryOp maps an operator name to its UnaryOp, defaulting to neg.
func ParseUnaryOp(name string) UnaryOp {
	if name == "not" {
		return OpNot
	}
	return OpNeg
}
