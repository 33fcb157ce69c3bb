package builtins

import (
	"jscore/pkg/vm"
)

type ObjectInitializer struct{}

func (o *ObjectInitializer) Name() string {
	return "Object"
}

func (o *ObjectInitializer) Priority() int {
	return PriorityObject
}

func (o *ObjectInitializer) InitRuntime(ctx *RuntimeContext) error {
	v := ctx.VM
	proto := v.ObjectPrototype

	methods := []struct {
		name   string
		fn     vm.NativeFunc
		length int
	}{
		{"toString", objectToString, 0},
		{"valueOf", objectValueOf, 0},
		{"hasOwnProperty", objectHasOwnProperty, 1},
		{"isPrototypeOf", objectIsPrototypeOf, 1},
		{"propertyIsEnumerable", objectPropertyIsEnumerable, 1},
	}
	for _, m := range methods {
		if err := defineMethod(v, proto, m.name, m.fn, m.length); err != nil {
			return err
		}
	}

	ctor := v.NewConstructor("Object", objectCall, objectConstruct, 1, proto)
	statics := []struct {
		name   string
		fn     vm.NativeFunc
		length int
	}{
		{"getPrototypeOf", objectGetPrototypeOf, 1},
		{"getOwnPropertyDescriptor", objectGetOwnPropertyDescriptor, 2},
		{"getOwnPropertyNames", objectGetOwnPropertyNames, 1},
		{"create", objectCreate, 2},
		{"defineProperty", objectDefineProperty, 3},
		{"defineProperties", objectDefineProperties, 2},
		{"keys", objectKeys, 1},
		{"preventExtensions", objectPreventExtensions, 1},
		{"isExtensible", objectIsExtensible, 1},
		{"seal", objectSeal, 1},
		{"isSealed", objectIsSealed, 1},
		{"freeze", objectFreeze, 1},
		{"isFrozen", objectIsFrozen, 1},
	}
	for _, m := range statics {
		if err := defineMethod(v, ctor, m.name, m.fn, m.length); err != nil {
			return err
		}
	}
	return ctx.DefineGlobal("Object", vm.ObjectValue(ctor))
}

// Object(v) boxes v; undefined and null give a fresh object.
func objectCall(v *vm.VM) error {
	if v.IsUndefined(0) || v.IsNull(0) {
		v.PushNewObject()
		return nil
	}
	obj, err := v.ToObject(0)
	if err != nil {
		return err
	}
	v.PushObject(obj)
	return nil
}

func objectConstruct(v *vm.VM) error {
	return objectCall(v)
}

func objectToString(v *vm.VM) error {
	this := v.This()
	switch {
	case this.IsUndefined():
		v.PushLiteral("[object Undefined]")
	case this.IsNull():
		v.PushLiteral("[object Null]")
	default:
		obj, err := pushThis(v)
		if err != nil {
			return err
		}
		class := obj.Class
		if class == vm.ClassScript || class == vm.ClassNative {
			class = vm.ClassFunction
		}
		v.PushString("[object " + class.String() + "]")
	}
	return nil
}

func objectValueOf(v *vm.VM) error {
	_, err := pushThis(v)
	return err
}

func objectHasOwnProperty(v *vm.VM) error {
	name, err := v.ToString(0)
	if err != nil {
		return err
	}
	obj, err := pushThis(v)
	if err != nil {
		return err
	}
	_, ok := obj.OwnProperty(name)
	if !ok && name == "length" {
		// Virtual fields live outside the store.
		ok = obj.Class == vm.ClassArray || obj.Class == vm.ClassString
	}
	v.PushBoolean(ok)
	return nil
}

func objectIsPrototypeOf(v *vm.VM) error {
	target := v.Get(0)
	this := v.This()
	if !target.IsObject() || !this.IsObject() {
		v.PushBoolean(false)
		return nil
	}
	self := this.AsObject()
	for p := target.AsObject().Prototype; p != nil; p = p.Prototype {
		if p == self {
			v.PushBoolean(true)
			return nil
		}
	}
	v.PushBoolean(false)
	return nil
}

func objectPropertyIsEnumerable(v *vm.VM) error {
	name, err := v.ToString(0)
	if err != nil {
		return err
	}
	obj, err := pushThis(v)
	if err != nil {
		return err
	}
	p, ok := obj.OwnProperty(name)
	v.PushBoolean(ok && p.Attrs&vm.DontEnum == 0)
	return nil
}

// requireObject returns the object at idx, raising a TypeError for
// primitives.
func requireObject(v *vm.VM, idx int) (*vm.Object, error) {
	if !v.IsObject(idx) {
		return nil, v.ThrowTypeError("not an object")
	}
	return v.Get(idx).AsObject(), nil
}

func objectGetPrototypeOf(v *vm.VM) error {
	obj, err := requireObject(v, 0)
	if err != nil {
		return err
	}
	if p := obj.Prototype; p != nil {
		v.PushObject(p)
	} else {
		v.PushNull()
	}
	return nil
}

// Object.keys lists own enumerable names in enumeration order.
func objectKeys(v *vm.VM) error {
	if _, err := requireObject(v, 0); err != nil {
		return err
	}
	if err := v.PushIterator(0, true); err != nil {
		return err
	}
	v.PushNewArray()
	for i := 0; ; i++ {
		name, ok, err := v.NextIterator(-2)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		v.PushString(name)
		if err := v.SetIndex(-2, i); err != nil {
			return err
		}
	}
	return nil
}

type descriptorField struct {
	name  string
	value vm.Value
}

func accessorValue(fn *vm.Object) vm.Value {
	if fn == nil {
		return vm.Undefined
	}
	return vm.ObjectValue(fn)
}

func objectGetOwnPropertyDescriptor(v *vm.VM) error {
	if _, err := requireObject(v, 0); err != nil {
		return err
	}
	name, err := v.ToString(1)
	if err != nil {
		return err
	}
	p, ok, err := v.GetOwnProp(0, name)
	if err != nil {
		return err
	}
	if !ok {
		v.PushUndefined()
		return nil
	}

	var fields []descriptorField
	if p.Getter == nil && p.Setter == nil {
		fields = append(fields,
			descriptorField{"value", p.Value},
			descriptorField{"writable", vm.BooleanValue(p.Attrs&vm.ReadOnly == 0)})
	} else {
		fields = append(fields,
			descriptorField{"get", accessorValue(p.Getter)},
			descriptorField{"set", accessorValue(p.Setter)})
	}
	fields = append(fields,
		descriptorField{"enumerable", vm.BooleanValue(p.Attrs&vm.DontEnum == 0)},
		descriptorField{"configurable", vm.BooleanValue(p.Attrs&vm.DontConf == 0)})

	v.PushNewObject()
	for _, f := range fields {
		v.PushValue(f.value)
		if err := v.SetProp(-2, f.name); err != nil {
			return err
		}
	}
	return nil
}

// Object.getOwnPropertyNames includes non-enumerable and virtual names.
func objectGetOwnPropertyNames(v *vm.VM) error {
	if _, err := requireObject(v, 0); err != nil {
		return err
	}
	names, err := v.OwnPropertyNames(0)
	if err != nil {
		return err
	}
	v.PushNewArray()
	for i, name := range names {
		v.PushString(name)
		if err := v.SetIndex(-2, i); err != nil {
			return err
		}
	}
	return nil
}

var descriptorFlags = []struct {
	name string
	attr vm.Attr
}{
	{"writable", vm.ReadOnly},
	{"enumerable", vm.DontEnum},
	{"configurable", vm.DontConf},
}

// defineFromDescriptor defines obj[name] as described by desc. Absent
// flags default to false.
func defineFromDescriptor(v *vm.VM, obj *vm.Object, name string, desc *vm.Object) error {
	v.PushObject(obj)
	v.PushObject(desc)

	atts := vm.ReadOnly | vm.DontEnum | vm.DontConf
	hasWritable := false
	for _, f := range descriptorFlags {
		ok, err := v.HasProp(-1, f.name)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if v.ToBoolean(-1) {
			atts &^= f.attr
		}
		v.Pop(1)
		if f.attr == vm.ReadOnly {
			hasWritable = true
		}
	}

	// obj desc value get set
	var has [3]bool
	for i, field := range []string{"value", "get", "set"} {
		ok, err := v.HasProp(-1-i, field)
		if err != nil {
			return err
		}
		if !ok {
			v.PushUndefined()
		}
		has[i] = ok
	}
	hasValue, hasAccessor := has[0], has[1] || has[2]
	if hasAccessor && (hasValue || hasWritable) {
		return v.ThrowTypeError("value/writable and get/set attributes are exclusive")
	}

	if hasAccessor {
		if err := v.DefAccessor(-5, name, atts&^vm.ReadOnly); err != nil {
			return err
		}
		v.Pop(3)
		return nil
	}
	v.Pop(2)
	if hasValue {
		if err := v.DefProp(-3, name, atts); err != nil {
			return err
		}
	} else {
		v.Pop(1)
		v.PushUndefined()
		v.PushUndefined()
		if err := v.DefAccessor(-4, name, atts); err != nil {
			return err
		}
	}
	v.Pop(2)
	return nil
}

// defineAll applies every own enumerable descriptor of the object at idx
// to obj.
func defineAll(v *vm.VM, obj *vm.Object, idx int) error {
	if _, err := requireObject(v, idx); err != nil {
		return err
	}
	if err := v.PushIterator(idx, true); err != nil {
		return err
	}
	for {
		name, more, err := v.NextIterator(-1)
		if err != nil {
			return err
		}
		if !more {
			break
		}
		if err := v.GetProp(idx, name); err != nil {
			return err
		}
		desc, err := requireObject(v, -1)
		if err != nil {
			return err
		}
		if err := defineFromDescriptor(v, obj, name, desc); err != nil {
			return err
		}
		v.Pop(1)
	}
	v.Pop(1)
	return nil
}

func objectDefineProperty(v *vm.VM) error {
	obj, err := requireObject(v, 0)
	if err != nil {
		return err
	}
	name, err := v.ToString(1)
	if err != nil {
		return err
	}
	desc, err := requireObject(v, 2)
	if err != nil {
		return err
	}
	if err := defineFromDescriptor(v, obj, name, desc); err != nil {
		return err
	}
	v.Copy(0)
	return nil
}

func objectDefineProperties(v *vm.VM) error {
	obj, err := requireObject(v, 0)
	if err != nil {
		return err
	}
	if err := defineAll(v, obj, 1); err != nil {
		return err
	}
	v.Copy(0)
	return nil
}

// Object.create(proto, props) makes an object inheriting from proto,
// which may be null.
func objectCreate(v *vm.VM) error {
	var proto *vm.Object
	switch {
	case v.IsObject(0):
		proto = v.Get(0).AsObject()
	case v.IsNull(0):
	default:
		return v.ThrowTypeError("not an object or null")
	}
	obj := v.NewObject()
	obj.Prototype = proto
	v.PushObject(obj)
	if v.IsDefined(1) {
		return defineAll(v, obj, 1)
	}
	return nil
}

func objectPreventExtensions(v *vm.VM) error {
	obj, err := requireObject(v, 0)
	if err != nil {
		return err
	}
	obj.Extensible = false
	v.Copy(0)
	return nil
}

func objectIsExtensible(v *vm.VM) error {
	obj, err := requireObject(v, 0)
	if err != nil {
		return err
	}
	v.PushBoolean(obj.Extensible)
	return nil
}

func objectSeal(v *vm.VM) error {
	obj, err := requireObject(v, 0)
	if err != nil {
		return err
	}
	obj.Seal()
	v.Copy(0)
	return nil
}

func objectIsSealed(v *vm.VM) error {
	obj, err := requireObject(v, 0)
	if err != nil {
		return err
	}
	v.PushBoolean(obj.Sealed())
	return nil
}

func objectFreeze(v *vm.VM) error {
	obj, err := requireObject(v, 0)
	if err != nil {
		return err
	}
	obj.Freeze()
	v.Copy(0)
	return nil
}

func objectIsFrozen(v *vm.VM) error {
	obj, err := requireObject(v, 0)
	if err != nil {
		return err
	}
	v.PushBoolean(obj.Frozen())
	return nil
}
