package vm

import "strconv"

// Function objects.

// NewFunction wraps fn in a closure over scope. The closure gets a read-only
// "length" and a fresh "prototype" object linked back to it.
func (vm *VM) NewFunction(fn *Function, scope *Env) *Object {
	obj := vm.newObject(ClassFunction, vm.FunctionPrototype)
	obj.function = fn
	obj.scope = scope

	length := NumberValue(float64(len(fn.Params)))
	vm.defOwn(obj, "length", ReadOnly|DontEnum|DontConf, length)

	proto := vm.NewObject()
	vm.defOwn(proto, "constructor", DontEnum, ObjectValue(obj))
	vm.defOwn(obj, "prototype", DontEnum|DontConf, ObjectValue(proto))
	return obj
}

// NewScript wraps a top-level unit. A nil scope runs it in the caller's
// environment.
func (vm *VM) NewScript(fn *Function, scope *Env) *Object {
	obj := vm.newObject(ClassScript, vm.FunctionPrototype)
	obj.function = fn
	obj.scope = scope
	return obj
}

// NewNative registers host code callable from scripts. Calls with fewer
// than length arguments are padded with undefined.
func (vm *VM) NewNative(name string, fn NativeFunc, length int) *Object {
	obj := vm.newObject(ClassNative, vm.FunctionPrototype)
	obj.native = &nativeBox{name: name, fn: fn, length: length}
	vm.defOwn(obj, "length", ReadOnly|DontEnum|DontConf, NumberValue(float64(length)))
	return obj
}

// NewConstructor is NewNative with a separate entry point for new. The ctor
// receives a null this and must produce the result itself. prototype, when
// given, becomes the function's "prototype" and links back through
// "constructor".
func (vm *VM) NewConstructor(name string, fn, ctor NativeFunc, length int, prototype *Object) *Object {
	obj := vm.NewNative(name, fn, length)
	obj.native.constructor = ctor
	if prototype != nil {
		vm.defOwn(obj, "prototype", ReadOnly|DontEnum|DontConf, ObjectValue(prototype))
		vm.defOwn(prototype, "constructor", DontEnum, ObjectValue(obj))
	}
	return obj
}

// defOwn writes an own property directly, for objects the engine has just
// created.
func (vm *VM) defOwn(obj *Object, name string, atts Attr, v Value) {
	ref := obj.props.insert(vm.Intern(name))
	ref.Value = v
	ref.Attrs = atts
}

// Calling convention.

// leave replaces the finished frame, callee and this included, with the
// value on top of the stack.
func (vm *VM) leave() {
	v := Undefined
	if vm.top > vm.bot {
		v = vm.stack[vm.top-1]
	}
	vm.top = vm.bot - 2
	vm.PushValue(v)
}

// Call invokes the function at -n-2 with this at -n-1 and n arguments
// above it. On success the callee, this and arguments are replaced by the
// result. On a thrown exception the engine state already belongs to the
// handler and the error is returned unchanged.
func (vm *VM) Call(n int) error {
	if vm.overflow {
		return vm.stackOverflow()
	}
	fv := vm.Get(-n - 2)
	if !fv.IsObject() || !fv.obj.IsCallable() {
		return vm.ThrowTypeError("%s is not a function", fv.TypeOf())
	}
	obj := fv.obj
	savebot := vm.bot

	var err error
	switch obj.Class {
	case ClassFunction:
		fn := obj.function
		if err = vm.pushTrace(fn.Name, fn.File, fn.Line); err != nil {
			return err
		}
		vm.bot = vm.top - n
		if fn.Lightweight {
			err = vm.callLightweight(n, fn, obj.scope)
		} else {
			err = vm.callFunction(n, fn, obj.scope)
		}
	case ClassScript:
		fn := obj.function
		if err = vm.pushTrace(fn.Name, fn.File, fn.Line); err != nil {
			return err
		}
		vm.bot = vm.top - n
		err = vm.callScript(n, fn, obj.scope)
	case ClassNative:
		if err = vm.pushTrace(obj.native.name, "native", 0); err != nil {
			return err
		}
		vm.bot = vm.top - n
		err = vm.callNative(n, obj.native.length, obj.native.fn)
	}
	if err != nil {
		return err
	}

	vm.popTrace()
	vm.bot = savebot
	return nil
}

func (vm *VM) callLightweight(n int, fn *Function, scope *Env) error {
	vm.saveScope(scope)

	if n > len(fn.Params) {
		vm.Pop(n - len(fn.Params))
		n = len(fn.Params)
	}
	if err := vm.CheckStack(len(fn.Params) + len(fn.Locals) - n); err != nil {
		return err
	}
	for i := n; i < len(fn.Params)+len(fn.Locals); i++ {
		vm.PushUndefined()
	}

	if err := vm.run(fn); err != nil {
		return err
	}
	vm.leave()
	vm.restoreScope()
	return nil
}

func (vm *VM) callFunction(n int, fn *Function, scope *Env) error {
	scope = vm.newEnv(vm.newObject(ClassObject, nil), scope)
	vm.saveScope(scope)

	if fn.Arguments {
		args := vm.NewObject()
		if !fn.Strict {
			vm.defOwn(args, "callee", DontEnum, vm.stack[vm.bot-2])
		}
		vm.defOwn(args, "length", DontEnum, NumberValue(float64(n)))
		for i := 0; i < n; i++ {
			vm.PushValue(vm.Get(i))
			if err := vm.setProperty(args, strconv.Itoa(i)); err != nil {
				return err
			}
			vm.Pop(1)
		}
		vm.PushObject(args)
		if err := vm.initVar("arguments", -1); err != nil {
			return err
		}
		vm.Pop(1)
	}

	for i, name := range fn.Params {
		if i < n {
			if err := vm.initVar(name, i); err != nil {
				return err
			}
			continue
		}
		vm.PushUndefined()
		if err := vm.initVar(name, -1); err != nil {
			return err
		}
		vm.Pop(1)
	}
	vm.Pop(n)

	if err := vm.run(fn); err != nil {
		return err
	}
	vm.leave()
	vm.restoreScope()
	return nil
}

func (vm *VM) callScript(n int, fn *Function, scope *Env) error {
	if scope != nil {
		vm.saveScope(scope)
	}
	vm.Pop(n)
	if err := vm.run(fn); err != nil {
		return err
	}
	vm.leave()
	if scope != nil {
		vm.restoreScope()
	}
	return nil
}

func (vm *VM) callNative(n, length int, fn NativeFunc) error {
	if err := vm.CheckStack(length - n); err != nil {
		return err
	}
	for i := n; i < length; i++ {
		vm.PushUndefined()
	}
	if err := fn(vm); err != nil {
		return vm.hostError(err)
	}
	if vm.overflow {
		return vm.stackOverflow()
	}
	vm.leave()
	return nil
}

// Construct invokes the function at -n-1 as a constructor with n arguments
// above it, leaving the constructed object.
func (vm *VM) Construct(n int) error {
	fv := vm.Get(-n - 1)
	if !fv.IsObject() || !fv.obj.IsCallable() {
		return vm.ThrowTypeError("%s is not a constructor", fv.TypeOf())
	}
	obj := fv.obj

	// Built-in constructors create their own objects and get a null this.
	if obj.Class == ClassNative && obj.native.constructor != nil {
		savebot := vm.bot
		vm.PushNull()
		if n > 0 {
			vm.Rot(n + 1)
		}
		if err := vm.pushTrace(obj.native.name, "native", 0); err != nil {
			return err
		}
		vm.bot = vm.top - n
		if err := vm.callNative(n, obj.native.length, obj.native.constructor); err != nil {
			return err
		}
		vm.popTrace()
		vm.bot = savebot
		return nil
	}

	if err := vm.getProperty(obj, "prototype"); err != nil {
		return err
	}
	proto := vm.ObjectPrototype
	if p := vm.Get(-1); p.IsObject() {
		proto = p.obj
	}
	vm.Pop(1)

	newobj := vm.newObject(ClassObject, proto)
	vm.PushObject(newobj)
	if n > 0 {
		vm.Rot(n + 1)
	}

	if err := vm.Call(n); err != nil {
		return err
	}
	if !vm.Get(-1).IsObject() {
		vm.Pop(1)
		vm.PushObject(newobj)
	}
	return nil
}

// PCall is Call guarded by a try record. If the callee throws, the stack is
// cut back to where the callee was, the thrown value is left there alone,
// and the exception is returned.
func (vm *VM) PCall(n int) error {
	return vm.guarded(n, vm.Call, 2)
}

// PConstruct is the guarded form of Construct.
func (vm *VM) PConstruct(n int) error {
	return vm.guarded(n, vm.Construct, 1)
}

func (vm *VM) guarded(n int, call func(int) error, below int) error {
	savetop := vm.top - n - below
	owner := vm.newOwner()
	vm.pushTry(owner, -1)
	if err := call(n); err != nil {
		if ex, ok := caught(err, owner); ok {
			vm.stack[savetop] = vm.stack[vm.top-1]
			vm.top = savetop + 1
			return ex
		}
		return err
	}
	vm.endTry()
	return nil
}

// CallValue is a convenience for host code: it calls fn with this and args
// and returns the result, leaving the stack as it was.
func (vm *VM) CallValue(fn, this Value, args ...Value) (Value, error) {
	if err := vm.CheckStack(len(args) + 2); err != nil {
		return Undefined, err
	}
	vm.PushValue(fn)
	vm.PushValue(this)
	for _, a := range args {
		vm.PushValue(a)
	}
	if err := vm.Call(len(args)); err != nil {
		return Undefined, err
	}
	res := vm.Get(-1)
	vm.Pop(1)
	return res, nil
}
