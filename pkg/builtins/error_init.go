package builtins

import (
	"jscore/pkg/vm"
)

type ErrorInitializer struct{}

func (e *ErrorInitializer) Name() string {
	return "Error"
}

func (e *ErrorInitializer) Priority() int {
	return PriorityError
}

func (e *ErrorInitializer) InitRuntime(ctx *RuntimeContext) error {
	v := ctx.VM

	if err := defineMethod(v, v.ErrorPrototype, "toString", errorToString, 0); err != nil {
		return err
	}

	family := []struct {
		name  string
		proto *vm.Object
	}{
		{"Error", v.ErrorPrototype},
		{"EvalError", v.EvalErrorPrototype},
		{"RangeError", v.RangeErrorPrototype},
		{"ReferenceError", v.ReferenceErrorPrototype},
		{"SyntaxError", v.SyntaxErrorPrototype},
		{"TypeError", v.TypeErrorPrototype},
		{"URIError", v.URIErrorPrototype},
	}
	for _, kind := range family {
		ctor := newErrorConstructor(kind.proto)
		fn := v.NewConstructor(kind.name, ctor, ctor, 1, kind.proto)
		if err := ctx.DefineGlobal(kind.name, vm.ObjectValue(fn)); err != nil {
			return err
		}
	}
	return nil
}

// newErrorConstructor returns the body shared by the call and new forms:
// both create a fresh error object.
func newErrorConstructor(proto *vm.Object) vm.NativeFunc {
	return func(v *vm.VM) error {
		v.PushObject(v.NewErrorInCall(proto))
		if v.IsDefined(0) {
			msg, err := v.ToString(0)
			if err != nil {
				return err
			}
			v.PushString(msg)
			if err := v.DefProp(-2, "message", vm.DontEnum); err != nil {
				return err
			}
		}
		return nil
	}
}

// toString renders "name: message", dropping whichever part is empty.
func errorToString(v *vm.VM) error {
	if !v.This().IsObject() {
		return v.ThrowTypeError("not an object")
	}
	if _, err := pushThis(v); err != nil {
		return err
	}

	name, err := stringProp(v, "name", "Error")
	if err != nil {
		return err
	}
	message, err := stringProp(v, "message", "")
	if err != nil {
		return err
	}
	switch {
	case name == "":
		v.PushString(message)
	case message == "":
		v.PushString(name)
	default:
		v.PushString(name + ": " + message)
	}
	return nil
}

// stringProp reads a property of the object on top of the stack as a
// string, with def standing in for undefined.
func stringProp(v *vm.VM, name, def string) (string, error) {
	if err := v.GetProp(-1, name); err != nil {
		return "", err
	}
	s := def
	if !v.IsUndefined(-1) {
		var err error
		if s, err = v.ToString(-1); err != nil {
			return "", err
		}
	}
	v.Pop(1)
	return s, nil
}
