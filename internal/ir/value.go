package ir

import (
	"fmt"
	"slices"
	"unicode/utf16"
)

// IRValue is a sealed interface representing literal payloads.
// Only IRNull, IRString, IRInt, IRBool, IRArray, and IRObject implement this.
// There is no float type: literals must hash identically on every platform.
type IRValue interface {
	irValue() // Sealed - only these types implement it
}

// IRNull represents the null literal.
type IRNull struct{}

func (IRNull) irValue() {}

// IRString represents a string literal.
type IRString string

func (IRString) irValue() {}

// IRInt represents an integer literal. Always int64.
type IRInt int64

func (IRInt) irValue() {}

// IRBool represents a boolean literal.
type IRBool bool

func (IRBool) irValue() {}

// IRArray represents an array of IRValue elements.
type IRArray []IRValue

func (IRArray) irValue() {}

// IRObject represents a map of string keys to IRValue elements.
// Use SortedKeys() for deterministic iteration.
type IRObject map[string]IRValue

func (IRObject) irValue() {}

// SortedKeys returns keys in canonical order (UTF-16 code units).
// Go's slices.Sort on strings compares UTF-8 bytes, which orders
// supplementary-plane characters differently.
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysUTF16)
	return keys
}

func compareKeysUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}

// Primitive is an opaque primitive-operator tag. The IR never interprets
// primitives; they only need to compare equal to themselves.
type Primitive string

// Primitive operators known to the front end.
const (
	PrimAdd     Primitive = "add"
	PrimSub     Primitive = "sub"
	PrimMul     Primitive = "mul"
	PrimDiv     Primitive = "div"
	PrimMod     Primitive = "mod"
	PrimNeg     Primitive = "neg"
	PrimEq      Primitive = "eq"
	PrimLt      Primitive = "lt"
	PrimGt      Primitive = "gt"
	PrimNot     Primitive = "not"
	PrimIf      Primitive = "if"
	PrimTuple   Primitive = "tuple"
	PrimGetItem Primitive = "getitem"
)

var primitives = map[string]Primitive{
	string(PrimAdd):     PrimAdd,
	string(PrimSub):     PrimSub,
	string(PrimMul):     PrimMul,
	string(PrimDiv):     PrimDiv,
	string(PrimMod):     PrimMod,
	string(PrimNeg):     PrimNeg,
	string(PrimEq):      PrimEq,
	string(PrimLt):      PrimLt,
	string(PrimGt):      PrimGt,
	string(PrimNot):     PrimNot,
	string(PrimIf):      PrimIf,
	string(PrimTuple):   PrimTuple,
	string(PrimGetItem): PrimGetItem,
}

// LookupPrimitive returns the primitive registered under name.
func LookupPrimitive(name string) (Primitive, bool) {
	p, ok := primitives[name]
	return p, ok
}

// ValueKind tags the payload of a Value.
type ValueKind uint8

const (
	// ValueLiteral wraps an IRValue.
	ValueLiteral ValueKind = iota + 1
	// ValuePrimitive wraps a Primitive tag.
	ValuePrimitive
	// ValueGraph references another graph (closures, higher-order calls).
	ValueGraph
)

func (k ValueKind) String() string {
	switch k {
	case ValueLiteral:
		return "literal"
	case ValuePrimitive:
		return "primitive"
	case ValueGraph:
		return "graph"
	default:
		return fmt.Sprintf("ValueKind(%d)", uint8(k))
	}
}

// Value is the payload of a Constant node: exactly one of a literal, a
// primitive tag or a graph reference, selected by Kind.
type Value struct {
	kind    ValueKind
	literal IRValue
	prim    Primitive
	graph   GraphID
}

// LiteralValue wraps a literal. A nil literal is stored as IRNull.
func LiteralValue(v IRValue) Value {
	if v == nil {
		v = IRNull{}
	}
	return Value{kind: ValueLiteral, literal: v}
}

// PrimitiveValue wraps a primitive tag.
func PrimitiveValue(p Primitive) Value {
	return Value{kind: ValuePrimitive, prim: p}
}

// GraphValue wraps a graph reference.
func GraphValue(g GraphID) Value {
	return Value{kind: ValueGraph, graph: g}
}

// Kind returns the payload tag.
func (v Value) Kind() ValueKind { return v.kind }

// Literal returns the literal payload; ok is false for other kinds.
func (v Value) Literal() (IRValue, bool) {
	return v.literal, v.kind == ValueLiteral
}

// Primitive returns the primitive payload; ok is false for other kinds.
func (v Value) Primitive() (Primitive, bool) {
	return v.prim, v.kind == ValuePrimitive
}

// Graph returns the referenced graph; ok is false for other kinds.
func (v Value) Graph() (GraphID, bool) {
	return v.graph, v.kind == ValueGraph
}

// String renders the value for diagnostics.
func (v Value) String() string {
	switch v.kind {
	case ValueLiteral:
		b, err := MarshalCanonical(v.literal)
		if err != nil {
			return fmt.Sprintf("<%v>", err)
		}
		return string(b)
	case ValuePrimitive:
		return string(v.prim)
	case ValueGraph:
		return "@" + v.graph.String()
	default:
		return "<invalid>"
	}
}
