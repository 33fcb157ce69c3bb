package vm

import (
	"math"
	"strconv"
)

// regexpFields are the virtual fields of a regexp object.
func isRegExpField(name string) bool {
	switch name {
	case "source", "global", "ignoreCase", "multiline", "lastIndex":
		return true
	}
	return false
}

// stringIndex reports whether name addresses a character of a string object.
func (obj *Object) stringIndex(name string) (int, bool) {
	k, ok := arrayIndex(name)
	return k, ok && k < obj.strlen
}

// hasProperty resolves name on obj and pushes its value when found.
// Virtual fields take precedence over the store; accessors run with obj as
// receiver.
func (vm *VM) hasProperty(obj *Object, name string) (bool, error) {
	switch obj.Class {
	case ClassArray:
		if name == "length" {
			vm.PushNumber(float64(obj.length))
			return true, nil
		}
	case ClassString:
		if name == "length" {
			vm.PushNumber(float64(obj.strlen))
			return true, nil
		}
		if k, ok := obj.stringIndex(name); ok {
			vm.PushString(runeAt(obj.str, k))
			return true, nil
		}
	case ClassRegExp:
		re := obj.regexp
		switch name {
		case "source":
			vm.PushString(re.Source)
			return true, nil
		case "global":
			vm.PushBoolean(re.Flags&RegExpGlobal != 0)
			return true, nil
		case "ignoreCase":
			vm.PushBoolean(re.Flags&RegExpIgnoreCase != 0)
			return true, nil
		case "multiline":
			vm.PushBoolean(re.Flags&RegExpMultiline != 0)
			return true, nil
		case "lastIndex":
			vm.PushNumber(float64(re.LastIndex))
			return true, nil
		}
	case ClassUserdata:
		if has := obj.user.hooks.Has; has != nil {
			ok, err := has(vm, obj.user.data, name)
			if err != nil || ok {
				return ok, vm.hostError(err)
			}
		}
	}

	ref := obj.lookup(name)
	if ref == nil {
		return false, nil
	}
	if ref.Getter != nil {
		vm.PushObject(ref.Getter)
		vm.PushObject(obj)
		if err := vm.Call(0); err != nil {
			return false, err
		}
	} else {
		vm.PushValue(ref.Value)
	}
	return true, nil
}

// getProperty pushes the value of name, or undefined when absent.
func (vm *VM) getProperty(obj *Object, name string) error {
	ok, err := vm.hasProperty(obj, name)
	if err != nil {
		return err
	}
	if !ok {
		vm.PushUndefined()
	}
	return nil
}

// setProperty assigns the value on top of the stack to obj[name]. The value
// stays on the stack.
func (vm *VM) setProperty(obj *Object, name string) error {
	value := vm.Get(-1)
	grow := 0

	switch obj.Class {
	case ClassArray:
		if name == "length" {
			if obj.frozen {
				return vm.readOnly(name)
			}
			rawlen, err := vm.toNumber(value)
			if err != nil {
				return err
			}
			if rawlen != math.Trunc(rawlen) || rawlen < 0 || rawlen > maxArrayLength {
				return vm.ThrowRangeError("array length")
			}
			obj.resizeArray(int(rawlen))
			return nil
		}
		if k, ok := arrayIndex(name); ok && k >= obj.length {
			grow = k + 1
		}
	case ClassString:
		if name == "length" {
			return vm.readOnly(name)
		}
		if _, ok := obj.stringIndex(name); ok {
			return vm.readOnly(name)
		}
	case ClassRegExp:
		if name == "lastIndex" {
			f, err := vm.toNumber(value)
			if err != nil {
				return err
			}
			obj.regexp.SetLastIndex(toInteger(f))
			return nil
		}
		if isRegExpField(name) {
			return vm.readOnly(name)
		}
	case ClassUserdata:
		if put := obj.user.hooks.Put; put != nil {
			ok, err := put(vm, obj.user.data, name)
			if err != nil || ok {
				return vm.hostError(err)
			}
		}
	}

	ref, own := obj.lookupx(name)
	if ref != nil {
		if ref.Setter != nil {
			vm.PushObject(ref.Setter)
			vm.PushObject(obj)
			vm.PushValue(value)
			if err := vm.Call(1); err != nil {
				return err
			}
			vm.Pop(1)
			return nil
		}
		if ref.Getter != nil && vm.strict {
			return vm.ThrowTypeError("setting property '%s' that only has a getter", name)
		}
		// An inherited read-only property cannot be shadowed by assignment.
		if ref.Attrs&ReadOnly != 0 {
			return vm.readOnly(name)
		}
	}

	if ref == nil || !own {
		ref = obj.setOwn(vm.Intern(name))
	}
	if ref == nil {
		if vm.strict {
			return vm.ThrowTypeError("object is non-extensible")
		}
		return nil
	}
	ref.Value = value
	if grow > obj.length {
		obj.length = grow
	}
	return nil
}

func (vm *VM) readOnly(name string) error {
	if vm.strict {
		return vm.ThrowTypeError("'%s' is read-only", name)
	}
	return nil
}

// defProperty creates or updates an own property with explicit attributes,
// bypassing the prototype chain. value, getter and setter are optional.
func (vm *VM) defProperty(obj *Object, name string, atts Attr, value *Value, getter, setter *Object) error {
	readonly := false
	switch obj.Class {
	case ClassArray:
		readonly = name == "length"
	case ClassString:
		_, isIndex := obj.stringIndex(name)
		readonly = name == "length" || isIndex
	case ClassRegExp:
		readonly = isRegExpField(name)
	case ClassUserdata:
		if put := obj.user.hooks.Put; put != nil {
			if value != nil {
				vm.PushValue(*value)
			} else {
				vm.PushUndefined()
			}
			ok, err := put(vm, obj.user.data, name)
			vm.Pop(1)
			if err != nil || ok {
				return vm.hostError(err)
			}
		}
	}
	if readonly {
		if vm.strict {
			return vm.ThrowTypeError("'%s' is read-only or non-configurable", name)
		}
		return nil
	}

	ref := obj.setOwn(vm.Intern(name))
	if ref == nil {
		if vm.strict {
			return vm.ThrowTypeError("object is non-extensible")
		}
		return nil
	}
	if k, ok := arrayIndex(name); ok && obj.Class == ClassArray && k >= obj.length {
		obj.length = k + 1
	}
	if value != nil {
		if ref.Attrs&ReadOnly == 0 {
			ref.Value = *value
		} else if vm.strict {
			return vm.ThrowTypeError("'%s' is read-only", name)
		}
	}
	if getter != nil {
		if ref.Attrs&DontConf == 0 {
			ref.Getter = getter
		} else if vm.strict {
			return vm.ThrowTypeError("'%s' is non-configurable", name)
		}
	}
	if setter != nil {
		if ref.Attrs&DontConf == 0 {
			ref.Setter = setter
		} else if vm.strict {
			return vm.ThrowTypeError("'%s' is non-configurable", name)
		}
	}
	ref.Attrs |= atts
	return nil
}

// delProperty removes an own property. It reports false for virtual fields
// and non-configurable properties; strict mode raises instead.
func (vm *VM) delProperty(obj *Object, name string) (bool, error) {
	dontconf := false
	switch obj.Class {
	case ClassArray:
		dontconf = name == "length"
	case ClassString:
		_, isIndex := obj.stringIndex(name)
		dontconf = name == "length" || isIndex
	case ClassRegExp:
		dontconf = isRegExpField(name)
	case ClassUserdata:
		if del := obj.user.hooks.Delete; del != nil {
			ok, err := del(vm, obj.user.data, name)
			if err != nil {
				return false, vm.hostError(err)
			}
			if ok {
				return true, nil
			}
		}
	}

	if !dontconf {
		ref := obj.getOwn(name)
		if ref == nil {
			return true, nil
		}
		if ref.Attrs&DontConf == 0 {
			obj.deleteOwn(name)
			return true, nil
		}
	}
	if vm.strict {
		return false, vm.ThrowTypeError("'%s' is non-configurable", name)
	}
	return false, nil
}

// toFunction returns the callable object at idx or raises a TypeError.
func (vm *VM) toFunction(idx int) (*Object, error) {
	v := vm.Get(idx)
	if v.IsObject() && v.obj.IsCallable() {
		return v.obj, nil
	}
	return nil, vm.ThrowTypeError("not a function")
}

// Registry, global and object property accessors. The receiver is any
// stack slot; primitives are boxed in place.

func (vm *VM) GetRegistry(name string) error {
	return vm.getProperty(vm.R, name)
}

func (vm *VM) SetRegistry(name string) error {
	if err := vm.setProperty(vm.R, name); err != nil {
		return err
	}
	vm.Pop(1)
	return nil
}

func (vm *VM) DelRegistry(name string) error {
	_, err := vm.delProperty(vm.R, name)
	return err
}

// Ref stores the value on top of the stack in the registry under a fresh
// key and returns the key.
func (vm *VM) Ref() (string, error) {
	var name string
	v := vm.Get(-1)
	switch v.typ {
	case TypeUndefined:
		name = "_Undefined"
	case TypeNull:
		name = "_Null"
	case TypeBoolean:
		name = "_False"
		if v.num != 0 {
			name = "_True"
		}
	default:
		vm.nextref++
		name = strconv.Itoa(vm.nextref)
	}
	return name, vm.SetRegistry(name)
}

func (vm *VM) GetGlobal(name string) error {
	return vm.getProperty(vm.G, name)
}

func (vm *VM) SetGlobal(name string) error {
	if err := vm.setProperty(vm.G, name); err != nil {
		return err
	}
	vm.Pop(1)
	return nil
}

func (vm *VM) DefGlobal(name string, atts Attr) error {
	v := vm.Get(-1)
	if err := vm.defProperty(vm.G, name, atts, &v, nil, nil); err != nil {
		return err
	}
	vm.Pop(1)
	return nil
}

// GetProp pushes obj[name] for the object at idx.
func (vm *VM) GetProp(idx int, name string) error {
	obj, err := vm.ToObject(idx)
	if err != nil {
		return err
	}
	return vm.getProperty(obj, name)
}

// SetProp pops a value and assigns it to obj[name] for the object at idx.
func (vm *VM) SetProp(idx int, name string) error {
	obj, err := vm.ToObject(idx)
	if err != nil {
		return err
	}
	if err := vm.setProperty(obj, name); err != nil {
		return err
	}
	vm.Pop(1)
	return nil
}

// DefProp pops a value and defines it as an own property with atts.
func (vm *VM) DefProp(idx int, name string, atts Attr) error {
	obj, err := vm.ToObject(idx)
	if err != nil {
		return err
	}
	v := vm.Get(-1)
	if err := vm.defProperty(obj, name, atts, &v, nil, nil); err != nil {
		return err
	}
	vm.Pop(1)
	return nil
}

// DefAccessor pops a getter and a setter (either may be undefined) and
// installs them as an accessor property.
func (vm *VM) DefAccessor(idx int, name string, atts Attr) error {
	obj, err := vm.ToObject(idx)
	if err != nil {
		return err
	}
	var getter, setter *Object
	if g := vm.Get(-2); g.IsObject() && g.obj.IsCallable() {
		getter = g.obj
	}
	if s := vm.Get(-1); s.IsObject() && s.obj.IsCallable() {
		setter = s.obj
	}
	if err := vm.defProperty(obj, name, atts, nil, getter, setter); err != nil {
		return err
	}
	vm.Pop(2)
	return nil
}

// DelProp removes obj[name] and reports success.
func (vm *VM) DelProp(idx int, name string) (bool, error) {
	obj, err := vm.ToObject(idx)
	if err != nil {
		return false, err
	}
	return vm.delProperty(obj, name)
}

// HasProp reports whether obj[name] resolves; when true the value is left
// on the stack.
func (vm *VM) HasProp(idx int, name string) (bool, error) {
	obj, err := vm.ToObject(idx)
	if err != nil {
		return false, err
	}
	return vm.hasProperty(obj, name)
}

// GetOwnProp returns the own property entry without running accessors.
func (vm *VM) GetOwnProp(idx int, name string) (Property, bool, error) {
	obj, err := vm.ToObject(idx)
	if err != nil {
		return Property{}, false, err
	}
	if p, ok := vm.virtualField(obj, name); ok {
		return p, true, nil
	}
	p, ok := obj.OwnProperty(name)
	return p, ok, nil
}

// virtualField describes a class-specific field as a property entry.
func (vm *VM) virtualField(obj *Object, name string) (Property, bool) {
	switch obj.Class {
	case ClassArray:
		if name == "length" {
			atts := DontEnum | DontConf
			if obj.frozen {
				atts |= ReadOnly
			}
			return Property{Name: name, Attrs: atts, Value: NumberValue(float64(obj.length))}, true
		}
	case ClassString:
		if name == "length" {
			return Property{Name: name, Attrs: ReadOnly | DontEnum | DontConf, Value: NumberValue(float64(obj.strlen))}, true
		}
		if k, ok := obj.stringIndex(name); ok {
			return Property{Name: name, Attrs: ReadOnly | DontConf, Value: vm.NewString(runeAt(obj.str, k))}, true
		}
	case ClassRegExp:
		re := obj.regexp
		atts := ReadOnly | DontEnum | DontConf
		switch name {
		case "source":
			return Property{Name: name, Attrs: atts, Value: vm.NewString(re.Source)}, true
		case "global":
			return Property{Name: name, Attrs: atts, Value: BooleanValue(re.Flags&RegExpGlobal != 0)}, true
		case "ignoreCase":
			return Property{Name: name, Attrs: atts, Value: BooleanValue(re.Flags&RegExpIgnoreCase != 0)}, true
		case "multiline":
			return Property{Name: name, Attrs: atts, Value: BooleanValue(re.Flags&RegExpMultiline != 0)}, true
		case "lastIndex":
			return Property{Name: name, Attrs: DontEnum | DontConf, Value: NumberValue(float64(re.LastIndex))}, true
		}
	}
	return Property{}, false
}

// OwnPropertyNames lists every own name of the object at idx, enumerable
// or not: virtual fields first, then the store in sorted order.
func (vm *VM) OwnPropertyNames(idx int) ([]string, error) {
	obj, err := vm.ToObject(idx)
	if err != nil {
		return nil, err
	}
	var names []string
	switch obj.Class {
	case ClassArray:
		names = append(names, "length")
	case ClassString:
		for k := 0; k < obj.strlen; k++ {
			names = append(names, strconv.Itoa(k))
		}
		names = append(names, "length")
	case ClassRegExp:
		names = append(names, "source", "global", "ignoreCase", "multiline", "lastIndex")
	}
	return append(names, obj.OwnKeys()...), nil
}

// Indexed variants.

func (vm *VM) GetIndex(idx, i int) error          { return vm.GetProp(idx, strconv.Itoa(i)) }
func (vm *VM) SetIndex(idx, i int) error          { return vm.SetProp(idx, strconv.Itoa(i)) }
func (vm *VM) HasIndex(idx, i int) (bool, error)  { return vm.HasProp(idx, strconv.Itoa(i)) }
func (vm *VM) DelIndex(idx, i int) (bool, error)  { return vm.DelProp(idx, strconv.Itoa(i)) }

// GetLength reads the length property of the object at idx as an integer.
func (vm *VM) GetLength(idx int) (int, error) {
	if err := vm.GetProp(idx, "length"); err != nil {
		return 0, err
	}
	f, err := vm.ToInteger(-1)
	vm.Pop(1)
	return int(f), err
}

// SetLength assigns length on the object at idx.
func (vm *VM) SetLength(idx, n int) error {
	if idx < 0 {
		idx--
	}
	vm.PushNumber(float64(n))
	return vm.SetProp(idx, "length")
}
