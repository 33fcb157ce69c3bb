package vm

import (
	"math"
	"strconv"
	"strings"
)

// Preferred type hints for toPrimitive.
const (
	HintNone = iota
	HintNumber
	HintString
)

// cleanExponentialFormat removes leading zeros from the exponent to match
// the language's format: "1e-07" -> "1e-7".
func cleanExponentialFormat(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] != 'e' && s[i] != 'E' {
			continue
		}
		if i+1 < len(s) && (s[i+1] == '+' || s[i+1] == '-') {
			j := i + 2
			for j < len(s) && s[j] == '0' {
				j++
			}
			if j >= len(s) {
				return s[:i+2] + "0"
			}
			return s[:i+2] + s[j:]
		}
		break
	}
	return s
}

// NumberToString formats f the way the language's ToString does.
func NumberToString(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	abs := math.Abs(f)
	if abs < 1e-6 || abs >= 1e21 {
		return cleanExponentialFormat(strconv.FormatFloat(f, 'e', -1, 64))
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func isWhiteSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ', 0xA0, 0x1680, 0x2028, 0x2029, 0x202F, 0x205F, 0x3000, 0xFEFF:
		return true
	}
	return r >= 0x2000 && r <= 0x200A
}

// StringToNumber parses s per the language's string-to-number grammar.
func StringToNumber(s string) float64 {
	s = strings.TrimFunc(s, isWhiteSpace)
	if s == "" {
		return 0
	}
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		n, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
				return parseHexBig(s[2:])
			}
			return math.NaN()
		}
		return float64(n)
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-') {
			return math.NaN()
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f
		}
		return math.NaN()
	}
	return f
}

func parseHexBig(digits string) float64 {
	f := 0.0
	for i := 0; i < len(digits); i++ {
		c := digits[i]
		var d byte
		switch {
		case c >= '0' && c <= '9':
			d = c - '0'
		case c >= 'a' && c <= 'f':
			d = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			d = c - 'A' + 10
		default:
			return math.NaN()
		}
		f = f*16 + float64(d)
	}
	return f
}

// toInt32 and toUint32 wrap f into 32 bits.
func toInt32(f float64) int32 {
	return int32(toUint32(f))
}

func toUint32(f float64) uint32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	m := math.Mod(math.Trunc(f), 4294967296)
	if m < 0 {
		m += 4294967296
	}
	return uint32(m)
}

func toInteger(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	return math.Trunc(f)
}

// toPrimitive converts objects by calling valueOf/toString in hint order.
func (vm *VM) toPrimitive(v Value, hint int) (Value, error) {
	if !v.IsObject() {
		return v, nil
	}
	obj := v.obj
	if hint == HintNone {
		hint = HintNumber
		if obj.Class == ClassDate {
			hint = HintString
		}
	}
	order := [2]string{"valueOf", "toString"}
	if hint == HintString {
		order = [2]string{"toString", "valueOf"}
	}
	for _, method := range order {
		if err := vm.getProperty(obj, method); err != nil {
			return Undefined, err
		}
		if !vm.IsCallable(-1) {
			vm.Pop(1)
			continue
		}
		vm.PushObject(obj)
		if err := vm.Call(0); err != nil {
			return Undefined, err
		}
		res := vm.Get(-1)
		vm.Pop(1)
		if res.IsPrimitive() {
			return res, nil
		}
	}
	return Undefined, vm.ThrowTypeError("cannot convert object to primitive")
}

func (vm *VM) toNumber(v Value) (float64, error) {
	switch v.typ {
	case TypeUndefined:
		return math.NaN(), nil
	case TypeNull:
		return 0, nil
	case TypeBoolean, TypeNumber:
		return v.num, nil
	case TypeShortString, TypeLiteral, TypeMemString:
		return StringToNumber(v.AsString()), nil
	}
	p, err := vm.toPrimitive(v, HintNumber)
	if err != nil {
		return 0, err
	}
	return vm.toNumber(p)
}

// toStringValue converts v to a string value, keeping the representation
// of values that already are strings.
func (vm *VM) toStringValue(v Value) (Value, error) {
	switch v.typ {
	case TypeShortString, TypeLiteral, TypeMemString:
		return v, nil
	case TypeUndefined:
		return LiteralValue("undefined"), nil
	case TypeNull:
		return LiteralValue("null"), nil
	case TypeBoolean:
		if v.num != 0 {
			return LiteralValue("true"), nil
		}
		return LiteralValue("false"), nil
	case TypeNumber:
		return vm.NewString(NumberToString(v.num)), nil
	}
	p, err := vm.toPrimitive(v, HintString)
	if err != nil {
		return Undefined, err
	}
	return vm.toStringValue(p)
}

func (vm *VM) toString(v Value) (string, error) {
	s, err := vm.toStringValue(v)
	if err != nil {
		return "", err
	}
	return s.AsString(), nil
}

// toObject boxes primitives; undefined and null raise a TypeError.
func (vm *VM) toObject(v Value) (*Object, error) {
	switch v.typ {
	case TypeObject:
		return v.obj, nil
	case TypeBoolean:
		return vm.NewBoolean(v.num != 0), nil
	case TypeNumber:
		return vm.NewNumber(v.num), nil
	case TypeShortString, TypeLiteral, TypeMemString:
		return vm.NewStringObject(v.AsString()), nil
	}
	return nil, vm.ThrowTypeError("cannot convert %s to object", v.TypeOf())
}

// ToNumber converts the slot at idx.
func (vm *VM) ToNumber(idx int) (float64, error) {
	return vm.toNumber(vm.Get(idx))
}

func (vm *VM) ToString(idx int) (string, error) {
	return vm.toString(vm.Get(idx))
}

func (vm *VM) ToBoolean(idx int) bool {
	return vm.Get(idx).ToBoolean()
}

func (vm *VM) ToInteger(idx int) (float64, error) {
	f, err := vm.ToNumber(idx)
	return toInteger(f), err
}

func (vm *VM) ToInt32(idx int) (int32, error) {
	f, err := vm.ToNumber(idx)
	return toInt32(f), err
}

func (vm *VM) ToUint32(idx int) (uint32, error) {
	f, err := vm.ToNumber(idx)
	return toUint32(f), err
}

// ToPrimitive converts the slot in place.
func (vm *VM) ToPrimitive(idx int, hint int) error {
	p, err := vm.toPrimitive(vm.Get(idx), hint)
	if err != nil {
		return err
	}
	vm.setSlot(idx, p)
	return nil
}

// ToObject converts the slot in place and returns the object.
func (vm *VM) ToObject(idx int) (*Object, error) {
	v := vm.Get(idx)
	if v.IsObject() {
		return v.obj, nil
	}
	obj, err := vm.toObject(v)
	if err != nil {
		return nil, err
	}
	vm.setSlot(idx, ObjectValue(obj))
	return obj, nil
}

func (vm *VM) setSlot(idx int, v Value) {
	if i := vm.index(idx); i >= 0 && i < vm.top {
		vm.stack[i] = v
	}
}
