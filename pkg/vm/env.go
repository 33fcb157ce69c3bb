package vm

// Env is one lexical binding record. Its bindings live as properties of
// vars; outer links toward the global environment.
type Env struct {
	outer *Env
	vars  *Object

	gcmark bool
	gcnext *Env
}

// Outer returns the enclosing environment, nil for the global one.
func (e *Env) Outer() *Env { return e.outer }

// Variables returns the object holding the record's bindings.
func (e *Env) Variables() *Object { return e.vars }

func (vm *VM) newEnv(vars *Object, outer *Env) *Env {
	e := &Env{outer: outer, vars: vars}
	vm.gc.trackEnv(e)
	return e
}

// initVar binds name in the innermost record to the value at idx.
func (vm *VM) initVar(name string, idx int) error {
	v := vm.Get(idx)
	return vm.defProperty(vm.E.vars, name, DontEnum|DontConf, &v, nil, nil)
}

// defVar declares a hoisted binding without touching an existing value.
func (vm *VM) defVar(name string) error {
	return vm.defProperty(vm.E.vars, name, DontEnum|DontConf, nil, nil, nil)
}

// hasVar resolves name outward from the innermost record and pushes its
// value when found.
func (vm *VM) hasVar(name string) (bool, error) {
	for e := vm.E; e != nil; e = e.outer {
		ref := e.vars.lookup(name)
		if ref == nil {
			continue
		}
		if ref.Getter != nil {
			vm.PushObject(ref.Getter)
			vm.PushObject(e.vars)
			if err := vm.Call(0); err != nil {
				return false, err
			}
		} else {
			vm.PushValue(ref.Value)
		}
		return true, nil
	}
	return false, nil
}

// setVar assigns the value on top of the stack to name, leaving it there.
func (vm *VM) setVar(name string) error {
	for e := vm.E; e != nil; e = e.outer {
		ref := e.vars.lookup(name)
		if ref == nil {
			continue
		}
		if ref.Setter != nil {
			vm.PushObject(ref.Setter)
			vm.PushObject(e.vars)
			vm.Copy(-3)
			if err := vm.Call(1); err != nil {
				return err
			}
			vm.Pop(1)
			return nil
		}
		if ref.Attrs&ReadOnly == 0 {
			ref.Value = vm.Get(-1)
		} else if vm.strict {
			return vm.ThrowTypeError("'%s' is read-only", name)
		}
		return nil
	}
	if vm.strict {
		return vm.ThrowReferenceError("assignment to undeclared variable '%s'", name)
	}
	return vm.setProperty(vm.G, name)
}

// delVar removes a binding. Declared bindings are non-configurable and
// cannot be removed.
func (vm *VM) delVar(name string) (bool, error) {
	for e := vm.E; e != nil; e = e.outer {
		ref := e.vars.getOwn(name)
		if ref == nil {
			continue
		}
		if ref.Attrs&DontConf != 0 {
			if vm.strict {
				return false, vm.ThrowTypeError("'%s' is non-configurable", name)
			}
			return false, nil
		}
		e.vars.deleteOwn(name)
		return true, nil
	}
	return vm.delProperty(vm.G, name)
}

// saveScope makes e the innermost environment, remembering the current one.
func (vm *VM) saveScope(e *Env) {
	if len(vm.envstack) >= vm.cfg.EnvLimit {
		vm.fatal("environment stack overflow")
	}
	vm.envstack = append(vm.envstack, vm.E)
	vm.E = e
}

func (vm *VM) restoreScope() {
	n := len(vm.envstack) - 1
	vm.E = vm.envstack[n]
	vm.envstack[n] = nil
	vm.envstack = vm.envstack[:n]
}
