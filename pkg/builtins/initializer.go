package builtins

import (
	"io"

	"jscore/pkg/vm"
)

// BuiltinInitializer is implemented by each builtin module
type BuiltinInitializer interface {
	// Name returns the module name (e.g., "Array", "String", "Math")
	Name() string

	// Priority returns initialization order (lower = earlier)
	Priority() int

	// InitRuntime creates runtime values for the VM
	InitRuntime(ctx *RuntimeContext) error
}

// RuntimeContext provides everything needed for runtime initialization
type RuntimeContext struct {
	// The VM instance
	VM *vm.VM

	// Define a global value
	DefineGlobal func(name string, value vm.Value) error

	// Where print writes
	Output io.Writer
}

// Priority constants for initialization order
const (
	PriorityObject   = 0  // Object must be first (base prototype)
	PriorityFunction = 1  // Function second (inherits from Object)
	PriorityArray    = 3  // Array third (inherits from Object)
	PriorityError    = 5  // Error family, used by everything that throws
	PriorityString   = 10 // String primitives
	PriorityNumber   = 11 // Number primitives
	PriorityBoolean  = 12 // Boolean primitives
	PriorityRegExp   = 13 // RegExp constructor
	PriorityMath     = 100
	PriorityJSON     = 101
	PriorityConsole  = 102
	PriorityGlobals  = 110 // print, NaN, Infinity and friends
)

// defineMethod installs a native function as a non-enumerable property of
// obj.
func defineMethod(v *vm.VM, obj *vm.Object, name string, fn vm.NativeFunc, length int) error {
	return defineValue(v, obj, name, vm.ObjectValue(v.NewNative(name, fn, length)), vm.DontEnum)
}

// defineValue installs value as an own property of obj.
func defineValue(v *vm.VM, obj *vm.Object, name string, value vm.Value, atts vm.Attr) error {
	v.PushObject(obj)
	v.PushValue(value)
	if err := v.DefProp(-2, name, atts); err != nil {
		return err
	}
	v.Pop(1)
	return nil
}

// pushThis pushes the receiver boxed as an object and returns it.
func pushThis(v *vm.VM) (*vm.Object, error) {
	v.PushValue(v.This())
	return v.ToObject(-1)
}
