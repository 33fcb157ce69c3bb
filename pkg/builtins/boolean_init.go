package builtins

import (
	"jscore/pkg/vm"
)

type BooleanInitializer struct{}

func (b *BooleanInitializer) Name() string {
	return "Boolean"
}

func (b *BooleanInitializer) Priority() int {
	return PriorityBoolean
}

func (b *BooleanInitializer) InitRuntime(ctx *RuntimeContext) error {
	v := ctx.VM
	proto := v.BooleanPrototype

	if err := defineMethod(v, proto, "toString", booleanToString, 0); err != nil {
		return err
	}
	if err := defineMethod(v, proto, "valueOf", booleanValueOf, 0); err != nil {
		return err
	}

	ctor := v.NewConstructor("Boolean", booleanCall, booleanConstruct, 1, proto)
	return ctx.DefineGlobal("Boolean", vm.ObjectValue(ctor))
}

func booleanCall(v *vm.VM) error {
	v.PushBoolean(v.ToBoolean(0))
	return nil
}

func booleanConstruct(v *vm.VM) error {
	v.PushObject(v.NewBoolean(v.ToBoolean(0)))
	return nil
}

func thisBoolean(v *vm.VM) (bool, error) {
	this := v.This()
	if this.IsBoolean() {
		return this.AsBoolean(), nil
	}
	if this.IsObject() && this.AsObject().Class == vm.ClassBoolean {
		p, _ := this.AsObject().PrimitiveValue()
		return p.AsBoolean(), nil
	}
	return false, v.ThrowTypeError("not a boolean")
}

func booleanToString(v *vm.VM) error {
	b, err := thisBoolean(v)
	if err != nil {
		return err
	}
	if b {
		v.PushLiteral("true")
	} else {
		v.PushLiteral("false")
	}
	return nil
}

func booleanValueOf(v *vm.VM) error {
	b, err := thisBoolean(v)
	if err != nil {
		return err
	}
	v.PushBoolean(b)
	return nil
}
