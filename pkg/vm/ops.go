package vm

import "strings"

// LooseEquals implements ==. Cases are tried in the order of the language's
// abstract equality algorithm; objects are converted with toPrimitive only
// when compared against a number or string.
func (vm *VM) LooseEquals(x, y Value) (bool, error) {
	for {
		switch {
		case x.IsString() && y.IsString():
			return x.AsString() == y.AsString(), nil
		case x.typ == y.typ:
			return x.StrictlyEquals(y), nil
		case !x.IsCoercible() && !y.IsCoercible():
			return true, nil
		case x.IsNumber() && y.IsString():
			return x.num == StringToNumber(y.AsString()), nil
		case x.IsString() && y.IsNumber():
			return StringToNumber(x.AsString()) == y.num, nil
		case x.IsBoolean():
			x = NumberValue(x.num)
		case y.IsBoolean():
			y = NumberValue(y.num)
		case (x.IsNumber() || x.IsString()) && y.IsObject():
			p, err := vm.toPrimitive(y, HintNone)
			if err != nil {
				return false, err
			}
			y = p
		case x.IsObject() && (y.IsNumber() || y.IsString()):
			p, err := vm.toPrimitive(x, HintNone)
			if err != nil {
				return false, err
			}
			x = p
		default:
			return false, nil
		}
	}
}

// Compare orders x and y after conversion to primitives. okay is false
// when either side converts to NaN, in which case every relational
// operator yields false.
func (vm *VM) Compare(x, y Value) (cmp int, okay bool, err error) {
	x, err = vm.toPrimitive(x, HintNumber)
	if err != nil {
		return 0, false, err
	}
	y, err = vm.toPrimitive(y, HintNumber)
	if err != nil {
		return 0, false, err
	}
	if x.IsString() && y.IsString() {
		return strings.Compare(x.AsString(), y.AsString()), true, nil
	}
	a, err := vm.toNumber(x)
	if err != nil {
		return 0, false, err
	}
	b, err := vm.toNumber(y)
	if err != nil {
		return 0, false, err
	}
	switch {
	case a < b:
		return -1, true, nil
	case a > b:
		return 1, true, nil
	case a == b:
		return 0, true, nil
	}
	return 0, false, nil
}

// concat implements the + operator on the top two values, replacing them
// with the result.
func (vm *VM) concat() error {
	x, err := vm.toPrimitive(vm.Get(-2), HintNone)
	if err != nil {
		return err
	}
	y, err := vm.toPrimitive(vm.Get(-1), HintNone)
	if err != nil {
		return err
	}
	if x.IsString() || y.IsString() {
		sx, err := vm.toString(x)
		if err != nil {
			return err
		}
		sy, err := vm.toString(y)
		if err != nil {
			return err
		}
		vm.Pop(2)
		vm.PushString(sx + sy)
		return nil
	}
	a, err := vm.toNumber(x)
	if err != nil {
		return err
	}
	b, err := vm.toNumber(y)
	if err != nil {
		return err
	}
	vm.Pop(2)
	vm.PushNumber(a + b)
	return nil
}

// InstanceOf reports whether the prototype of constructor fn appears on
// the prototype chain of x.
func (vm *VM) InstanceOf(x, fn Value) (bool, error) {
	if !fn.IsObject() || !fn.obj.IsCallable() {
		return false, vm.ThrowTypeError("instanceof: invalid operand")
	}
	if !x.IsObject() {
		return false, nil
	}
	if err := vm.getProperty(fn.obj, "prototype"); err != nil {
		return false, err
	}
	proto := vm.Get(-1)
	vm.Pop(1)
	if !proto.IsObject() {
		return false, vm.ThrowTypeError("instanceof: 'prototype' property is not an object")
	}
	for o := x.obj.Prototype; o != nil; o = o.Prototype {
		if o == proto.obj {
			return true, nil
		}
	}
	return false, nil
}
