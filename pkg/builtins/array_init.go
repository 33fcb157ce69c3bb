package builtins

import (
	"strings"

	"jscore/pkg/vm"
)

type ArrayInitializer struct{}

func (a *ArrayInitializer) Name() string {
	return "Array"
}

func (a *ArrayInitializer) Priority() int {
	return PriorityArray
}

func (a *ArrayInitializer) InitRuntime(ctx *RuntimeContext) error {
	v := ctx.VM
	proto := v.ArrayPrototype

	methods := []struct {
		name   string
		fn     vm.NativeFunc
		length int
	}{
		{"toString", arrayToString, 0},
		{"join", arrayJoin, 1},
		{"push", arrayPush, 0},
		{"pop", arrayPop, 0},
	}
	for _, m := range methods {
		if err := defineMethod(v, proto, m.name, m.fn, m.length); err != nil {
			return err
		}
	}

	ctor := v.NewConstructor("Array", arrayConstruct, arrayConstruct, 0, proto)
	if err := defineMethod(v, ctor, "isArray", arrayIsArray, 1); err != nil {
		return err
	}
	return ctx.DefineGlobal("Array", vm.ObjectValue(ctor))
}

// Array(len) sizes a new array; any other argument list becomes its
// elements.
func arrayConstruct(v *vm.VM) error {
	n := v.Top()
	v.PushNewArray()
	if n == 1 && v.IsNumber(0) {
		size, err := v.ToNumber(0)
		if err != nil {
			return err
		}
		v.PushNumber(size)
		return v.SetProp(-2, "length")
	}
	for i := 0; i < n; i++ {
		v.Copy(i)
		if err := v.SetIndex(-2, i); err != nil {
			return err
		}
	}
	return nil
}

func arrayIsArray(v *vm.VM) error {
	v.PushBoolean(v.IsArray(0))
	return nil
}

func arrayPush(v *vm.VM) error {
	n := v.Top()
	if _, err := pushThis(v); err != nil {
		return err
	}
	length, err := v.GetLength(-1)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		v.Copy(i)
		if err := v.SetIndex(-2, length+i); err != nil {
			return err
		}
	}
	if err := v.SetLength(-1, length+n); err != nil {
		return err
	}
	v.PushNumber(float64(length + n))
	return nil
}

func arrayPop(v *vm.VM) error {
	if _, err := pushThis(v); err != nil {
		return err
	}
	length, err := v.GetLength(-1)
	if err != nil {
		return err
	}
	if length <= 0 {
		if err := v.SetLength(-1, 0); err != nil {
			return err
		}
		v.PushUndefined()
		return nil
	}
	if err := v.GetIndex(-1, length-1); err != nil {
		return err
	}
	if _, err := v.DelIndex(-2, length-1); err != nil {
		return err
	}
	return v.SetLength(-2, length-1)
}

func arrayJoin(v *vm.VM) error {
	sep := ","
	if v.IsDefined(0) {
		s, err := v.ToString(0)
		if err != nil {
			return err
		}
		sep = s
	}
	if _, err := pushThis(v); err != nil {
		return err
	}
	length, err := v.GetLength(-1)
	if err != nil {
		return err
	}

	var sb strings.Builder
	for i := 0; i < length; i++ {
		if i > 0 {
			sb.WriteString(sep)
		}
		if err := v.GetIndex(-1, i); err != nil {
			return err
		}
		if !v.IsUndefined(-1) && !v.IsNull(-1) {
			s, err := v.ToString(-1)
			if err != nil {
				return err
			}
			sb.WriteString(s)
		}
		v.Pop(1)
	}
	v.PushString(sb.String())
	return nil
}

func arrayToString(v *vm.VM) error {
	return arrayJoin(v)
}
