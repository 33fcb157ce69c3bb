package builtins

import (
	"strings"

	"jscore/pkg/vm"
)

type FunctionInitializer struct{}

func (f *FunctionInitializer) Name() string {
	return "Function"
}

func (f *FunctionInitializer) Priority() int {
	return PriorityFunction
}

func (f *FunctionInitializer) InitRuntime(ctx *RuntimeContext) error {
	v := ctx.VM
	proto := v.FunctionPrototype

	if err := defineMethod(v, proto, "toString", functionToString, 0); err != nil {
		return err
	}
	if err := defineMethod(v, proto, "call", functionCall, 1); err != nil {
		return err
	}
	if err := defineMethod(v, proto, "apply", functionApply, 2); err != nil {
		return err
	}
	if err := defineMethod(v, proto, "bind", functionBind, 1); err != nil {
		return err
	}

	ctor := v.NewConstructor("Function", functionConstruct, functionConstruct, 1, proto)
	return ctx.DefineGlobal("Function", vm.ObjectValue(ctor))
}

// There is no compiler behind the core, so source text cannot become a
// function.
func functionConstruct(v *vm.VM) error {
	return v.ThrowEvalError("Function constructor is not supported")
}

func thisFunction(v *vm.VM) (*vm.Object, error) {
	this := v.This()
	if !this.IsObject() || !this.AsObject().IsCallable() {
		return nil, v.ThrowTypeError("not a function")
	}
	return this.AsObject(), nil
}

func functionToString(v *vm.VM) error {
	obj, err := thisFunction(v)
	if err != nil {
		return err
	}
	if fn := obj.Function(); fn != nil {
		v.PushString("function " + fn.Name + "(" + strings.Join(fn.Params, ", ") + ") { [byte code] }")
		return nil
	}
	v.PushString("function " + obj.NativeName() + "() { [native code] }")
	return nil
}

// call(thisArg, ...args)
func functionCall(v *vm.VM) error {
	if _, err := thisFunction(v); err != nil {
		return err
	}
	n := v.Top()
	if err := v.CheckStack(n + 1); err != nil {
		return err
	}
	v.PushValue(v.This())
	v.Copy(0)
	for i := 1; i < n; i++ {
		v.Copy(i)
	}
	return v.Call(n - 1)
}

// apply(thisArg, argArray)
func functionApply(v *vm.VM) error {
	if _, err := thisFunction(v); err != nil {
		return err
	}
	v.PushValue(v.This())
	v.Copy(0)
	if v.IsUndefined(1) || v.IsNull(1) {
		return v.Call(0)
	}
	if !v.IsObject(1) {
		return v.ThrowTypeError("apply: argument list is not an object")
	}
	n, err := v.GetLength(1)
	if err != nil {
		return err
	}
	if err := v.CheckStack(n); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := v.GetIndex(1, i); err != nil {
			return err
		}
	}
	return v.Call(n)
}

// Hidden slots of a bound function.
const (
	boundTarget = "__TargetFunction__"
	boundThis   = "__BoundThis__"
	boundArgs   = "__BoundArguments__"
)

// bind(thisArg, ...args)
func functionBind(v *vm.VM) error {
	if _, err := thisFunction(v); err != nil {
		return err
	}
	top := v.Top()
	v.PushValue(v.This())
	n, err := v.GetLength(-1)
	if err != nil {
		return err
	}
	v.Pop(1)
	n = max(0, n-(top-1))

	bound := v.NewConstructor("bound", callBound, constructBound, n, nil)
	hidden := vm.ReadOnly | vm.DontEnum | vm.DontConf

	// instanceof against the bound function consults the target's prototype.
	v.PushValue(v.This())
	if err := v.GetProp(-1, "prototype"); err != nil {
		return err
	}
	if err := defineValue(v, bound, "prototype", v.Get(-1), vm.DontEnum|vm.DontConf); err != nil {
		return err
	}
	v.Pop(1)
	if err := defineValue(v, bound, boundTarget, v.Get(-1), hidden); err != nil {
		return err
	}
	v.Pop(1)
	if err := defineValue(v, bound, boundThis, v.Get(0), hidden); err != nil {
		return err
	}

	args := v.NewArray()
	v.PushObject(args)
	for i := 1; i < top; i++ {
		v.Copy(i)
		if err := v.SetIndex(-2, i-1); err != nil {
			return err
		}
	}
	if err := defineValue(v, bound, boundArgs, vm.ObjectValue(args), hidden); err != nil {
		return err
	}
	v.Pop(1)

	v.PushObject(bound)
	return nil
}

// pushBound pushes the bound target, followed by the bound this when
// withThis is set, then the bound and actual arguments. It returns the
// argument count.
func pushBound(v *vm.VM, withThis bool) (int, error) {
	top := v.Top()
	fun := top
	v.CurrentFunction()
	if err := v.GetProp(fun, boundTarget); err != nil {
		return 0, err
	}
	if withThis {
		if err := v.GetProp(fun, boundThis); err != nil {
			return 0, err
		}
	}
	args := v.Top()
	if err := v.GetProp(fun, boundArgs); err != nil {
		return 0, err
	}
	n, err := v.GetLength(args)
	if err != nil {
		return 0, err
	}
	if err := v.CheckStack(n + top); err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		if err := v.GetIndex(args, i); err != nil {
			return 0, err
		}
	}
	v.Remove(args)
	for i := 0; i < top; i++ {
		v.Copy(i)
	}
	return n + top, nil
}

func callBound(v *vm.VM) error {
	n, err := pushBound(v, true)
	if err != nil {
		return err
	}
	return v.Call(n)
}

func constructBound(v *vm.VM) error {
	n, err := pushBound(v, false)
	if err != nil {
		return err
	}
	return v.Construct(n)
}
