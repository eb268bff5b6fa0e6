package ast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// The interchange form keeps literals as bare JSON primitives and tags
// composite nodes either by a distinguishing key ("var", "prop",
// "index") or by an "op" field. Unrecognized shapes decode to the null
// literal rather than failing, so partially understood trees still
// evaluate and simply degrade to null where the producer and consumer
// disagree.

// FromJSON decodes an expression tree from its interchange form. An
// error is returned only for malformed JSON text.
func FromJSON(data []byte) (Expr, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding expression tree: %w", err)
	}
	return fromValue(raw), nil
}

// ToJSON encodes an expression tree into its interchange form.
func ToJSON(e Expr) ([]byte, error) {
	data, err := json.Marshal(toValue(e))
	if err != nil {
		return nil, fmt.Errorf("encoding expression tree: %w", err)
	}
	return data, nil
}

func fromValue(raw any) Expr {
	switch v := raw.(type) {
	case nil:
		return &NullLit{}
	case bool:
		return &BoolLit{Value: v}
	case string:
		return &StringLit{Value: v}
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return &IntLit{Value: i}
		}
		f, _ := v.Float64()
		return &FloatLit{Value: f}
	case map[string]any:
		return fromObject(v)
	}
	return &NullLit{}
}

func fromObject(obj map[string]any) Expr {
	// Variable reference: {"var": "name"} or {"var": "Scope:name"}.
	if name, ok := obj["var"].(string); ok {
		if scope, rest, found := strings.Cut(name, ":"); found {
			return &VarRef{Name: rest, Scope: scope}
		}
		return &VarRef{Name: name}
	}

	// Static property access: {"prop": "obj", "field": "name"}.
	if prop, ok := obj["prop"].(string); ok {
		if field, ok := obj["field"].(string); ok {
			return &Property{Object: prop, Field: field}
		}
	}

	// Index access: {"index": target, "at": expr}.
	if target, ok := obj["index"]; ok {
		if at, ok := obj["at"]; ok {
			return &Index{Target: fromValue(target), At: fromValue(at)}
		}
	}

	op, _ := obj["op"].(string)
	switch op {
	case "":
		return &NullLit{}
	case "call":
		name, _ := obj["function"].(string)
		return &Call{Func: name, Args: fromArgs(obj["args"])}
	case "ternary":
		return &Ternary{
			Cond: fromValue(obj["condition"]),
			Then: fromValue(obj["then"]),
			Else: fromValue(obj["else"]),
		}
	case "member":
		field, _ := obj["field"].(string)
		return &Member{Object: fromValue(obj["object"]), Field: field}
	case "computed":
		return &ComputedMember{Object: fromValue(obj["object"]), Key: fromValue(obj["key"])}
	case "method":
		name, _ := obj["method"].(string)
		return &MethodCall{
			Receiver: fromValue(obj["receiver"]),
			Method:   name,
			Args:     fromArgs(obj["args"]),
		}
	case "group":
		return &Group{Inner: fromValue(obj["inner"])}
	}

	// Unary operators use "operand", with "expr" accepted from older
	// producers. A "left" key means this is really a binary node.
	operand, hasOperand := obj["operand"]
	if !hasOperand {
		operand, hasOperand = obj["expr"]
	}
	_, hasLeft := obj["left"]
	if hasOperand && !hasLeft {
		return &Unary{Op: ParseUnaryOp(op), Operand: fromValue(operand)}
	}

	if left, ok := obj["left"]; ok {
		if right, ok := obj["right"]; ok {
			return &Binary{Op: ParseBinaryOp(op), Left: fromValue(left), Right: fromValue(right)}
		}
	}

	return &NullLit{}
}

func fromArgs(raw any) []Expr {
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return nil
	}
	args := make([]Expr, len(items))
	for i, item := range items {
		args[i] = fromValue(item)
	}
	return args
}

func toValue(e Expr) any {
	switch n := e.(type) {
	case nil, *NullLit:
		return nil
	case *IntLit:
		return n.Value
	case *FloatLit:
		return n.Value
	case *StringLit:
		return n.Value
	case *BoolLit:
		return n.Value
	case *VarRef:
		name := n.Name
		if n.Scope != "" {
			name = n.Scope + ":" + n.Name
		}
		return map[string]any{"var": name}
	case *Property:
		return map[string]any{"prop": n.Object, "field": n.Field}
	case *Index:
		return map[string]any{"index": toValue(n.Target), "at": toValue(n.At)}
	case *Binary:
		return map[string]any{
			"op":    n.Op.String(),
			"left":  toValue(n.Left),
			"right": toValue(n.Right),
		}
	case *Unary:
		return map[string]any{"op": n.Op.String(), "operand": toValue(n.Operand)}
	case *Ternary:
		return map[string]any{
			"op":        "ternary",
			"condition": toValue(n.Cond),
			"then":      toValue(n.Then),
			"else":      toValue(n.Else),
		}
	case *Call:
		return map[string]any{"op": "call", "function": n.Func, "args": toArgs(n.Args)}
	case *Member:
		return map[string]any{"op": "member", "object": toValue(n.Object), "field": n.Field}
	case *ComputedMember:
		return map[string]any{"op": "computed", "object": toValue(n.Object), "key": toValue(n.Key)}
	case *MethodCall:
		return map[string]any{
			"op":       "method",
			"receiver": toValue(n.Receiver),
			"method":   n.Method,
			"args":     toArgs(n.Args),
		}
	case *Group:
		return map[string]any{"op": "group", "inner": toValue(n.Inner)}
	}
	return nil
}

func toArgs(args []Expr) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = toValue(a)
	}
	return out
}
