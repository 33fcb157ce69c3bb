package builtins

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"jscore/pkg/vm"
)

type NumberInitializer struct{}

func (n *NumberInitializer) Name() string {
	return "Number"
}

func (n *NumberInitializer) Priority() int {
	return PriorityNumber
}

func (n *NumberInitializer) InitRuntime(ctx *RuntimeContext) error {
	v := ctx.VM
	proto := v.NumberPrototype

	if err := defineMethod(v, proto, "toString", numberToString, 1); err != nil {
		return err
	}
	if err := defineMethod(v, proto, "valueOf", numberValueOf, 0); err != nil {
		return err
	}

	ctor := v.NewConstructor("Number", numberCall, numberConstruct, 0, proto)
	constants := []struct {
		name  string
		value float64
	}{
		{"MAX_VALUE", math.MaxFloat64},
		{"MIN_VALUE", math.SmallestNonzeroFloat64},
		{"NaN", math.NaN()},
		{"NEGATIVE_INFINITY", math.Inf(-1)},
		{"POSITIVE_INFINITY", math.Inf(1)},
	}
	for _, c := range constants {
		if err := defineValue(v, ctor, c.name, vm.NumberValue(c.value), vm.ReadOnly|vm.DontEnum|vm.DontConf); err != nil {
			return err
		}
	}
	return ctx.DefineGlobal("Number", vm.ObjectValue(ctor))
}

func numberCall(v *vm.VM) error {
	if v.Top() == 0 {
		v.PushNumber(0)
		return nil
	}
	f, err := v.ToNumber(0)
	if err != nil {
		return err
	}
	v.PushNumber(f)
	return nil
}

func numberConstruct(v *vm.VM) error {
	f := 0.0
	if v.Top() > 0 {
		var err error
		if f, err = v.ToNumber(0); err != nil {
			return err
		}
	}
	v.PushObject(v.NewNumber(f))
	return nil
}

func thisNumber(v *vm.VM) (float64, error) {
	this := v.This()
	if this.IsNumber() {
		return this.AsNumber(), nil
	}
	if this.IsObject() && this.AsObject().Class == vm.ClassNumber {
		p, _ := this.AsObject().PrimitiveValue()
		return p.AsNumber(), nil
	}
	return 0, v.ThrowTypeError("not a number")
}

// toString(radix) formats in any radix from 2 to 36. Non-integers keep
// about 52 bits of digits.
func numberToString(v *vm.VM) error {
	f, err := thisNumber(v)
	if err != nil {
		return err
	}
	radix := 10.0
	if v.IsDefined(0) {
		if radix, err = v.ToInteger(0); err != nil {
			return err
		}
	}
	if radix < 2 || radix > 36 {
		return v.ThrowRangeError("invalid radix")
	}
	if radix == 10 || math.IsNaN(f) || math.IsInf(f, 0) {
		v.PushString(vm.NumberToString(f))
		return nil
	}
	if f == math.Trunc(f) && math.Abs(f) <= 1<<53 {
		v.PushString(strconv.FormatInt(int64(f), int(radix)))
		return nil
	}
	v.PushString(formatRadix(f, int(radix)))
	return nil
}

const radixDigits = "0123456789abcdefghijklmnopqrstuvwxyz"

// formatRadix scales f by a power of radix until it fills a 52-bit integer,
// prints that integer and places the point.
func formatRadix(f float64, radix int) string {
	neg := f < 0
	f = math.Abs(f)
	r := float64(radix)
	const limit = 1 << 52

	exp := 0
	for f*math.Pow(r, float64(exp)) > limit {
		exp--
	}
	for f*math.Pow(r, float64(exp+1)) < limit {
		exp++
	}
	u := uint64(f*math.Pow(r, float64(exp)) + 0.5)
	for u > 0 && u%uint64(radix) == 0 {
		u /= uint64(radix)
		exp--
	}

	var digits []byte
	for ; u > 0; u /= uint64(radix) {
		digits = append(digits, radixDigits[u%uint64(radix)])
	}
	slices.Reverse(digits)
	point := len(digits) - exp

	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	switch {
	case point <= 0:
		sb.WriteString("0.")
		sb.WriteString(strings.Repeat("0", -point))
		sb.Write(digits)
	case point >= len(digits):
		sb.Write(digits)
		sb.WriteString(strings.Repeat("0", point-len(digits)))
	default:
		sb.Write(digits[:point])
		sb.WriteByte('.')
		sb.Write(digits[point:])
	}
	return sb.String()
}

func numberValueOf(v *vm.VM) error {
	f, err := thisNumber(v)
	if err != nil {
		return err
	}
	v.PushNumber(f)
	return nil
}
