package vm

// Realm holds the global object, the registry and the built-in prototypes of
// one engine instance. The core creates the prototype objects empty; the
// builtins package fills them in.
type Realm struct {
	G  *Object // global object
	GE *Env    // global environment
	R  *Object // registry, invisible to scripts

	ObjectPrototype   *Object
	FunctionPrototype *Object
	ArrayPrototype    *Object
	BooleanPrototype  *Object
	NumberPrototype   *Object
	StringPrototype   *Object
	RegExpPrototype   *Object
	DatePrototype     *Object

	ErrorPrototype          *Object
	EvalErrorPrototype      *Object
	RangeErrorPrototype     *Object
	ReferenceErrorPrototype *Object
	SyntaxErrorPrototype    *Object
	TypeErrorPrototype      *Object
	URIErrorPrototype       *Object
}

// initRealm allocates the prototype graph and the global environment.
func (vm *VM) initRealm() {
	vm.ObjectPrototype = vm.newObject(ClassObject, nil)

	// Function.prototype is itself callable and returns undefined.
	vm.FunctionPrototype = vm.newObject(ClassNative, vm.ObjectPrototype)
	vm.FunctionPrototype.native = &nativeBox{name: "", fn: func(vm *VM) error {
		vm.PushUndefined()
		return nil
	}}

	vm.ArrayPrototype = vm.newObject(ClassArray, vm.ObjectPrototype)
	vm.BooleanPrototype = vm.newObject(ClassBoolean, vm.ObjectPrototype)
	vm.NumberPrototype = vm.newObject(ClassNumber, vm.ObjectPrototype)
	vm.StringPrototype = vm.newObject(ClassString, vm.ObjectPrototype)
	vm.RegExpPrototype = vm.newObject(ClassObject, vm.ObjectPrototype)
	vm.DatePrototype = vm.newObject(ClassDate, vm.ObjectPrototype)

	vm.ErrorPrototype = vm.newErrorPrototype(vm.ObjectPrototype, "Error")
	vm.EvalErrorPrototype = vm.newErrorPrototype(vm.ErrorPrototype, "EvalError")
	vm.RangeErrorPrototype = vm.newErrorPrototype(vm.ErrorPrototype, "RangeError")
	vm.ReferenceErrorPrototype = vm.newErrorPrototype(vm.ErrorPrototype, "ReferenceError")
	vm.SyntaxErrorPrototype = vm.newErrorPrototype(vm.ErrorPrototype, "SyntaxError")
	vm.TypeErrorPrototype = vm.newErrorPrototype(vm.ErrorPrototype, "TypeError")
	vm.URIErrorPrototype = vm.newErrorPrototype(vm.ErrorPrototype, "URIError")

	vm.R = vm.newObject(ClassObject, nil)
	vm.G = vm.newObject(ClassObject, vm.ObjectPrototype)
	vm.GE = vm.newEnv(vm.G, nil)
	vm.E = vm.GE
}

func (vm *VM) newErrorPrototype(parent *Object, name string) *Object {
	proto := vm.newObject(ClassError, parent)
	ref := proto.setOwn(vm.Intern("name"))
	ref.Value = LiteralValue(name)
	ref.Attrs = DontEnum
	ref = proto.setOwn(vm.Intern("message"))
	ref.Value = LiteralValue("")
	ref.Attrs = DontEnum
	return proto
}

// prototypes lists the realm objects that are always reachable.
func (vm *VM) prototypes() []*Object {
	return []*Object{
		vm.ObjectPrototype, vm.FunctionPrototype, vm.ArrayPrototype,
		vm.BooleanPrototype, vm.NumberPrototype, vm.StringPrototype,
		vm.RegExpPrototype, vm.DatePrototype,
		vm.ErrorPrototype, vm.EvalErrorPrototype, vm.RangeErrorPrototype,
		vm.ReferenceErrorPrototype, vm.SyntaxErrorPrototype,
		vm.TypeErrorPrototype, vm.URIErrorPrototype,
	}
}

// GlobalEnv returns the outermost environment.
func (vm *VM) GlobalEnv() *Env { return vm.GE }

// Env returns the innermost environment.
func (vm *VM) Env() *Env { return vm.E }
