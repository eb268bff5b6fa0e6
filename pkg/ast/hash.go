package ast

import (
	"encoding/binary"
	"hash/fnv"
	"io"
	"math"
)

// Hash returns a 64-bit FNV-1a structural hash of the tree. Two trees
// hash equal exactly when they have the same shape, operators, names
// and literal values, which makes the hash usable as a cache key for
// compiled expressions.
func Hash(e Expr) uint64 {
	h := fnv.New64a()
	hashExpr(h, e)
	return h.Sum64()
}

// Per-node tags keep structurally different trees from colliding when
// their flattened field bytes happen to match.
const (
	tagNull byte = iota + 1
	tagInt
	tagFloat
	tagString
	tagBool
	tagVar
	tagProperty
	tagMember
	tagComputed
	tagIndex
	tagBinary
	tagUnary
	tagTernary
	tagCall
	tagMethod
	tagGroup
)

func hashExpr(w io.Writer, e Expr) {
	switch n := e.(type) {
	case nil, *NullLit:
		writeByte(w, tagNull)
	case *IntLit:
		writeByte(w, tagInt)
		writeUint64(w, uint64(n.Value))
	case *FloatLit:
		writeByte(w, tagFloat)
		writeUint64(w, math.Float64bits(n.Value))
	case *StringLit:
		writeByte(w, tagString)
		writeString(w, n.Value)
	case *BoolLit:
		writeByte(w, tagBool)
		if n.Value {
			writeByte(w, 1)
		} else {
			writeByte(w, 0)
		}
	case *VarRef:
		writeByte(w, tagVar)
		writeString(w, n.Scope)
		writeString(w, n.Name)
	case *Property:
		writeByte(w, tagProperty)
		writeString(w, n.Object)
		writeString(w, n.Field)
	case *Member:
		writeByte(w, tagMember)
		hashExpr(w, n.Object)
		writeString(w, n.Field)
	case *ComputedMember:
		writeByte(w, tagComputed)
		hashExpr(w, n.Object)
		hashExpr(w, n.Key)
	case *Index:
		writeByte(w, tagIndex)
		hashExpr(w, n.Target)
		hashExpr(w, n.At)
	case *Binary:
		writeByte(w, tagBinary)
		writeByte(w, byte(n.Op))
		hashExpr(w, n.Left)
		hashExpr(w, n.Right)
	case *Unary:
		writeByte(w, tagUnary)
		writeByte(w, byte(n.Op))
		hashExpr(w, n.Operand)
	case *Ternary:
		writeByte(w, tagTernary)
		hashExpr(w, n.Cond)
		hashExpr(w, n.Then)
		hashExpr(w, n.Else)
	case *Call:
		writeByte(w, tagCall)
		writeString(w, n.Func)
		writeUint64(w, uint64(len(n.Args)))
		for _, a := range n.Args {
			hashExpr(w, a)
		}
	case *MethodCall:
		writeByte(w, tagMethod)
		hashExpr(w, n.Receiver)
		writeString(w, n.Method)
		writeUint64(w, uint64(len(n.Args)))
		for _, a := range n.Args {
			hashExpr(w, a)
		}
	case *Group:
		writeByte(w, tagGroup)
		hashExpr(w, n.Inner)
	}
}

func writeByte(w io.Writer, b byte) {
	w.Write([]byte{b})
}

func writeUint64(w io.Writer, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	w.Write(buf[:])
}

func writeString(w io.Writer, s string) {
	writeUint64(w, uint64(len(s)))
	io.WriteString(w, s)
}
