package builtins

import (
	"jscore/pkg/vm"
)

type RegExpInitializer struct{}

func (r *RegExpInitializer) Name() string {
	return "RegExp"
}

func (r *RegExpInitializer) Priority() int {
	return PriorityRegExp
}

func (r *RegExpInitializer) InitRuntime(ctx *RuntimeContext) error {
	v := ctx.VM
	proto := v.RegExpPrototype

	if err := defineMethod(v, proto, "toString", regexpToString, 0); err != nil {
		return err
	}
	if err := defineMethod(v, proto, "exec", regexpExec, 1); err != nil {
		return err
	}
	if err := defineMethod(v, proto, "test", regexpTest, 1); err != nil {
		return err
	}

	ctor := v.NewConstructor("RegExp", regexpCall, regexpConstruct, 2, proto)
	return ctx.DefineGlobal("RegExp", vm.ObjectValue(ctor))
}

// RegExp(re) without flags hands back re itself.
func regexpCall(v *vm.VM) error {
	if v.IsObject(0) && v.Get(0).AsObject().Class == vm.ClassRegExp && v.IsUndefined(1) {
		v.Copy(0)
		return nil
	}
	return regexpConstruct(v)
}

func regexpConstruct(v *vm.VM) error {
	source := "(?:)"
	var flags vm.RegExpFlags

	if v.IsObject(0) && v.Get(0).AsObject().Class == vm.ClassRegExp {
		old := v.Get(0).AsObject().RegExp()
		if v.IsDefined(1) {
			return v.ThrowTypeError("cannot supply flags when constructing one RegExp from another")
		}
		source, flags = old.Source, old.Flags
	} else {
		if v.IsDefined(0) {
			s, err := v.ToString(0)
			if err != nil {
				return err
			}
			if s != "" {
				source = s
			}
		}
		if v.IsDefined(1) {
			s, err := v.ToString(1)
			if err != nil {
				return err
			}
			var ok bool
			if flags, ok = vm.ParseRegExpFlags(s); !ok {
				return v.ThrowSyntaxError("invalid regular expression flags: %s", s)
			}
		}
	}
	return v.PushRegExp(source, flags)
}

func thisRegExp(v *vm.VM) (*vm.RegExp, error) {
	this := v.This()
	if this.IsObject() {
		if re := this.AsObject().RegExp(); re != nil {
			return re, nil
		}
	}
	return nil, v.ThrowTypeError("not a regexp")
}

func regexpToString(v *vm.VM) error {
	re, err := thisRegExp(v)
	if err != nil {
		return err
	}
	v.PushString("/" + re.Source + "/" + re.Flags.String())
	return nil
}

// match runs re against the first argument, honoring and updating
// lastIndex for global regexps.
func match(v *vm.VM, re *vm.RegExp) (*vm.RegExpMatch, string, error) {
	input, err := v.ToString(0)
	if err != nil {
		return nil, "", err
	}
	start := 0
	global := re.Flags&vm.RegExpGlobal != 0
	if global {
		start = re.LastIndex
	}
	m, err := re.Exec(input, start)
	if err != nil {
		return nil, "", err
	}
	if global {
		if m == nil {
			re.LastIndex = 0
		} else {
			re.LastIndex = m.End
		}
	}
	return m, input, nil
}

// exec returns the match array (captures, index, input) or null.
func regexpExec(v *vm.VM) error {
	re, err := thisRegExp(v)
	if err != nil {
		return err
	}
	m, input, err := match(v, re)
	if err != nil {
		return err
	}
	if m == nil {
		v.PushNull()
		return nil
	}

	v.PushNewArray()
	for i, c := range m.Captures {
		if m.Matched[i] {
			v.PushString(c)
		} else {
			v.PushUndefined()
		}
		if err := v.SetIndex(-2, i); err != nil {
			return err
		}
	}
	v.PushNumber(float64(m.Index))
	if err := v.SetProp(-2, "index"); err != nil {
		return err
	}
	v.PushString(input)
	return v.SetProp(-2, "input")
}

func regexpTest(v *vm.VM) error {
	re, err := thisRegExp(v)
	if err != nil {
		return err
	}
	m, _, err := match(v, re)
	if err != nil {
		return err
	}
	v.PushBoolean(m != nil)
	return nil
}
