package vm

import (
	"fmt"
	"math"
	"strconv"
)

// ValueType is the tag of a Value.
type ValueType uint8

const (
	TypeUndefined ValueType = iota
	TypeNull
	TypeBoolean
	TypeNumber
	TypeShortString // bytes stored inline in the Value
	TypeLiteral     // borrowed from a Function's string table
	TypeMemString   // heap string tracked by the collector
	TypeObject
)

func (vt ValueType) String() string {
	switch vt {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBoolean:
		return "boolean"
	case TypeNumber:
		return "number"
	case TypeShortString:
		return "short string"
	case TypeLiteral:
		return "literal string"
	case TypeMemString:
		return "string"
	case TypeObject:
		return "object"
	default:
		return fmt.Sprintf("<unknown type: %d>", vt)
	}
}

// shortStringCap is the longest string kept inline in a Value.
const shortStringCap = 15

// memString is a string whose lifetime is managed by the collector.
type memString struct {
	s      string
	gcmark bool
	gcnext *memString
}

// Value is the tagged representation of every script value.
// The three string representations compare, coerce and concatenate
// identically; only their storage differs.
type Value struct {
	typ   ValueType
	slen  uint8
	short [shortStringCap]byte
	num   float64 // number payload, booleans use 0/1
	lit   string
	mem   *memString
	obj   *Object
}

var (
	Undefined = Value{typ: TypeUndefined}
	Null      = Value{typ: TypeNull}
	True      = Value{typ: TypeBoolean, num: 1}
	False     = Value{typ: TypeBoolean, num: 0}
	NaN       = Value{typ: TypeNumber, num: math.NaN()}
)

func BooleanValue(b bool) Value {
	if b {
		return True
	}
	return False
}

func NumberValue(f float64) Value {
	return Value{typ: TypeNumber, num: f}
}

// LiteralValue wraps a string with static lifetime, typically one owned by a
// Function's constant table. No copy is made.
func LiteralValue(s string) Value {
	return Value{typ: TypeLiteral, lit: s}
}

// shortString stores s inline. It reports false if s does not fit.
func shortString(s string) (Value, bool) {
	if len(s) > shortStringCap {
		return Value{}, false
	}
	v := Value{typ: TypeShortString, slen: uint8(len(s))}
	copy(v.short[:], s)
	return v, true
}

func ObjectValue(obj *Object) Value {
	if obj == nil {
		return Null
	}
	return Value{typ: TypeObject, obj: obj}
}

func (v Value) Type() ValueType { return v.typ }

func (v Value) IsUndefined() bool { return v.typ == TypeUndefined }
func (v Value) IsNull() bool      { return v.typ == TypeNull }
func (v Value) IsBoolean() bool   { return v.typ == TypeBoolean }
func (v Value) IsNumber() bool    { return v.typ == TypeNumber }
func (v Value) IsObject() bool    { return v.typ == TypeObject }

// IsString reports whether v holds a string in any representation.
func (v Value) IsString() bool {
	return v.typ == TypeShortString || v.typ == TypeLiteral || v.typ == TypeMemString
}

func (v Value) IsPrimitive() bool { return v.typ != TypeObject }

// IsCoercible reports whether v can be converted to an object.
func (v Value) IsCoercible() bool {
	return v.typ != TypeUndefined && v.typ != TypeNull
}

func (v Value) AsBoolean() bool {
	if v.typ != TypeBoolean {
		panic("value is not a boolean")
	}
	return v.num != 0
}

func (v Value) AsNumber() float64 {
	if v.typ != TypeNumber {
		panic("value is not a number")
	}
	return v.num
}

// AsString returns the string contents regardless of representation.
func (v Value) AsString() string {
	switch v.typ {
	case TypeShortString:
		return string(v.short[:v.slen])
	case TypeLiteral:
		return v.lit
	case TypeMemString:
		return v.mem.s
	}
	panic("value is not a string")
}

func (v Value) AsObject() *Object {
	if v.typ != TypeObject {
		panic("value is not an object")
	}
	return v.obj
}

// ToBoolean converts v per the language's truthiness rules. It never fails.
func (v Value) ToBoolean() bool {
	switch v.typ {
	case TypeBoolean:
		return v.num != 0
	case TypeNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case TypeShortString:
		return v.slen > 0
	case TypeLiteral:
		return v.lit != ""
	case TypeMemString:
		return v.mem.s != ""
	case TypeObject:
		return true
	}
	return false
}

// TypeOf returns the result of the typeof operator.
func (v Value) TypeOf() string {
	switch v.typ {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "object"
	case TypeBoolean:
		return "boolean"
	case TypeNumber:
		return "number"
	case TypeShortString, TypeLiteral, TypeMemString:
		return "string"
	case TypeObject:
		if v.obj.IsCallable() {
			return "function"
		}
		return "object"
	}
	return "unknown"
}

// StrictlyEquals implements ===. The type tags must match, with all string
// representations treated as one type.
func (v Value) StrictlyEquals(other Value) bool {
	if v.IsString() && other.IsString() {
		return v.AsString() == other.AsString()
	}
	if v.typ != other.typ {
		return false
	}
	switch v.typ {
	case TypeUndefined, TypeNull:
		return true
	case TypeBoolean, TypeNumber:
		return v.num == other.num
	case TypeObject:
		return v.obj == other.obj
	}
	return false
}

// Inspect returns a debugging representation of v. It never runs script code.
func (v Value) Inspect() string {
	switch v.typ {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBoolean:
		return strconv.FormatBool(v.num != 0)
	case TypeNumber:
		return NumberToString(v.num)
	case TypeShortString, TypeLiteral, TypeMemString:
		return strconv.Quote(v.AsString())
	case TypeObject:
		return v.obj.Inspect()
	}
	return "<invalid>"
}
