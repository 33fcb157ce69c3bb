package builtins

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"jscore/pkg/vm"
)

type StringInitializer struct{}

func (s *StringInitializer) Name() string {
	return "String"
}

func (s *StringInitializer) Priority() int {
	return PriorityString
}

func (s *StringInitializer) InitRuntime(ctx *RuntimeContext) error {
	v := ctx.VM
	proto := v.StringPrototype

	upper := cases.Upper(language.Und)
	lower := cases.Lower(language.Und)

	methods := []struct {
		name   string
		fn     vm.NativeFunc
		length int
	}{
		{"toString", stringValueOf, 0},
		{"valueOf", stringValueOf, 0},
		{"charAt", stringCharAt, 1},
		{"indexOf", stringIndexOf, 1},
		{"toUpperCase", stringMapper(upper), 0},
		{"toLowerCase", stringMapper(lower), 0},
	}
	for _, m := range methods {
		if err := defineMethod(v, proto, m.name, m.fn, m.length); err != nil {
			return err
		}
	}

	ctor := v.NewConstructor("String", stringCall, stringConstruct, 0, proto)
	return ctx.DefineGlobal("String", vm.ObjectValue(ctor))
}

func stringCall(v *vm.VM) error {
	if v.Top() == 0 {
		v.PushLiteral("")
		return nil
	}
	s, err := v.ToString(0)
	if err != nil {
		return err
	}
	v.PushString(s)
	return nil
}

func stringConstruct(v *vm.VM) error {
	s := ""
	if v.Top() > 0 {
		var err error
		if s, err = v.ToString(0); err != nil {
			return err
		}
	}
	v.PushObject(v.NewStringObject(s))
	return nil
}

// thisString coerces the receiver the way generic String methods do.
func thisString(v *vm.VM) (string, error) {
	this := v.This()
	if !this.IsCoercible() {
		return "", v.ThrowTypeError("string method called on %s", this.TypeOf())
	}
	v.PushValue(this)
	s, err := v.ToString(-1)
	if err != nil {
		return "", err
	}
	v.Pop(1)
	return s, nil
}

func stringValueOf(v *vm.VM) error {
	this := v.This()
	if this.IsString() {
		v.PushValue(this)
		return nil
	}
	if this.IsObject() && this.AsObject().Class == vm.ClassString {
		p, _ := this.AsObject().PrimitiveValue()
		v.PushValue(p)
		return nil
	}
	return v.ThrowTypeError("not a string")
}

func stringCharAt(v *vm.VM) error {
	s, err := thisString(v)
	if err != nil {
		return err
	}
	pos, err := v.ToInteger(0)
	if err != nil {
		return err
	}
	runes := []rune(s)
	if pos < 0 || pos >= float64(len(runes)) {
		v.PushLiteral("")
		return nil
	}
	v.PushString(string(runes[int(pos)]))
	return nil
}

// indexOf counts positions in characters, not bytes.
func stringIndexOf(v *vm.VM) error {
	s, err := thisString(v)
	if err != nil {
		return err
	}
	needle, err := v.ToString(0)
	if err != nil {
		return err
	}
	start, err := v.ToInteger(1)
	if err != nil {
		return err
	}
	hay := []rune(s)
	pat := []rune(needle)
	k := int(max(0, min(start, float64(len(hay)))))
	for ; k+len(pat) <= len(hay); k++ {
		if string(hay[k:k+len(pat)]) == needle {
			v.PushNumber(float64(k))
			return nil
		}
	}
	v.PushNumber(-1)
	return nil
}

func stringMapper(c cases.Caser) vm.NativeFunc {
	return func(v *vm.VM) error {
		s, err := thisString(v)
		if err != nil {
			return err
		}
		v.PushString(c.String(s))
		return nil
	}
}
