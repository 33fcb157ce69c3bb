package vm

// stackGuard is the number of slots kept past the configured capacity so a
// push that overflows still lands in bounds until the next safe point
// raises the overflow.
const stackGuard = 64

// checkStack flags an overflow if n more values do not fit.
func (vm *VM) checkStack(n int) {
	if vm.top+n >= vm.cfg.StackSize {
		vm.overflow = true
		if vm.top+n >= len(vm.stack) {
			vm.fatal("stack exhausted past guard zone")
		}
	}
}

// CheckStack makes room for n more values, raising a catchable
// RangeError when they would not fit. Natives that push a count chosen
// by the script call it before pushing.
func (vm *VM) CheckStack(n int) error {
	if n < 0 {
		n = 0
	}
	if vm.overflow || vm.top+n >= vm.cfg.StackSize {
		return vm.stackOverflow()
	}
	return nil
}

// index resolves a frame-relative index to an absolute slot.
func (vm *VM) index(idx int) int {
	if idx < 0 {
		return vm.top + idx
	}
	return vm.bot + idx
}

// Get returns the value at idx; out-of-range indices read as undefined.
func (vm *VM) Get(idx int) Value {
	i := vm.index(idx)
	if i < 0 || i >= vm.top {
		return Undefined
	}
	return vm.stack[i]
}

// Top returns the number of values in the current frame.
func (vm *VM) Top() int {
	return vm.top - vm.bot
}

// This returns the receiver of the current call.
func (vm *VM) This() Value {
	if vm.bot < 1 {
		return Undefined
	}
	return vm.stack[vm.bot-1]
}

func (vm *VM) PushValue(v Value) {
	vm.checkStack(1)
	vm.stack[vm.top] = v
	vm.top++
}

func (vm *VM) PushUndefined()      { vm.PushValue(Undefined) }
func (vm *VM) PushNull()           { vm.PushValue(Null) }
func (vm *VM) PushBoolean(b bool)  { vm.PushValue(BooleanValue(b)) }
func (vm *VM) PushNumber(f float64) { vm.PushValue(NumberValue(f)) }

// PushLiteral pushes a string with static lifetime without copying it.
func (vm *VM) PushLiteral(s string) { vm.PushValue(LiteralValue(s)) }

// PushString pushes s inline when short, else as a collected heap string.
func (vm *VM) PushString(s string) { vm.PushValue(vm.NewString(s)) }

func (vm *VM) PushObject(obj *Object) { vm.PushValue(ObjectValue(obj)) }

func (vm *VM) PushGlobal() { vm.PushObject(vm.G) }

// PushNewObject pushes a fresh plain object.
func (vm *VM) PushNewObject() { vm.PushObject(vm.NewObject()) }

// PushNewArray pushes a fresh empty array.
func (vm *VM) PushNewArray() { vm.PushObject(vm.NewArray()) }

// CurrentFunction pushes the callee of the current frame.
func (vm *VM) CurrentFunction() {
	vm.checkStack(1)
	if vm.bot < 2 {
		vm.stack[vm.top] = Undefined
	} else {
		vm.stack[vm.top] = vm.stack[vm.bot-2]
	}
	vm.top++
}

// Pop discards n values. Popping below the frame base is fatal.
func (vm *VM) Pop(n int) {
	if vm.top-n < vm.bot {
		vm.fatal("stack underflow")
	}
	vm.top -= n
}

// Copy pushes a copy of the value at idx.
func (vm *VM) Copy(idx int) {
	v := vm.Get(idx)
	vm.PushValue(v)
}

func (vm *VM) Dup() {
	vm.checkStack(1)
	vm.stack[vm.top] = vm.stack[vm.top-1]
	vm.top++
}

func (vm *VM) Dup2() {
	vm.checkStack(2)
	vm.stack[vm.top] = vm.stack[vm.top-2]
	vm.stack[vm.top+1] = vm.stack[vm.top-1]
	vm.top += 2
}

// Rot2: A B -> B A
func (vm *VM) Rot2() {
	s, t := vm.stack, vm.top
	s[t-1], s[t-2] = s[t-2], s[t-1]
}

// Rot3: A B C -> C A B
func (vm *VM) Rot3() {
	s, t := vm.stack, vm.top
	tmp := s[t-1]
	s[t-1] = s[t-2]
	s[t-2] = s[t-3]
	s[t-3] = tmp
}

// Rot4: A B C D -> D A B C
func (vm *VM) Rot4() {
	s, t := vm.stack, vm.top
	tmp := s[t-1]
	s[t-1] = s[t-2]
	s[t-2] = s[t-3]
	s[t-3] = s[t-4]
	s[t-4] = tmp
}

// Rot moves the top value down n-1 slots, shifting the others up.
func (vm *VM) Rot(n int) {
	s, t := vm.stack, vm.top
	tmp := s[t-1]
	i := 1
	for ; i < n; i++ {
		s[t-i] = s[t-i-1]
	}
	s[t-i] = tmp
}

// Rot2Pop1: A B -> B
func (vm *VM) Rot2Pop1() {
	vm.stack[vm.top-2] = vm.stack[vm.top-1]
	vm.top--
}

// Rot3Pop2: A B C -> C
func (vm *VM) Rot3Pop2() {
	vm.stack[vm.top-3] = vm.stack[vm.top-1]
	vm.top -= 2
}

// Replace pops the top value into slot idx.
func (vm *VM) Replace(idx int) {
	i := vm.index(idx)
	if i < vm.bot || i >= vm.top {
		vm.fatal("stack index out of bounds")
	}
	vm.stack[i] = vm.stack[vm.top-1]
	vm.Pop(1)
}

// Remove deletes slot idx, shifting the values above it down.
func (vm *VM) Remove(idx int) {
	i := vm.index(idx)
	if i < vm.bot || i >= vm.top {
		vm.fatal("stack index out of bounds")
	}
	copy(vm.stack[i:vm.top-1], vm.stack[i+1:vm.top])
	vm.top--
	vm.stack[vm.top] = Undefined
}

// Insert moves the top value into slot idx, shifting the values above up.
func (vm *VM) Insert(idx int) {
	i := vm.index(idx)
	if i < vm.bot || i >= vm.top {
		vm.fatal("stack index out of bounds")
	}
	tmp := vm.stack[vm.top-1]
	copy(vm.stack[i+1:vm.top], vm.stack[i:vm.top-1])
	vm.stack[i] = tmp
}

// SetTop truncates or pads the current frame to n values.
func (vm *VM) SetTop(n int) {
	if n < 0 {
		vm.fatal("stack underflow")
	}
	for vm.top-vm.bot < n {
		vm.PushUndefined()
	}
	vm.top = vm.bot + n
}

// Is* inspect a slot without converting it.
func (vm *VM) IsDefined(idx int) bool   { return !vm.Get(idx).IsUndefined() }
func (vm *VM) IsUndefined(idx int) bool { return vm.Get(idx).IsUndefined() }
func (vm *VM) IsNull(idx int) bool      { return vm.Get(idx).IsNull() }
func (vm *VM) IsBoolean(idx int) bool   { return vm.Get(idx).IsBoolean() }
func (vm *VM) IsNumber(idx int) bool    { return vm.Get(idx).IsNumber() }
func (vm *VM) IsString(idx int) bool    { return vm.Get(idx).IsString() }
func (vm *VM) IsObject(idx int) bool    { return vm.Get(idx).IsObject() }
func (vm *VM) IsPrimitive(idx int) bool { return vm.Get(idx).IsPrimitive() }

// IsCallable reports whether the slot holds a function.
func (vm *VM) IsCallable(idx int) bool {
	v := vm.Get(idx)
	return v.IsObject() && v.obj.IsCallable()
}

// IsArray reports whether the slot holds an array.
func (vm *VM) IsArray(idx int) bool {
	v := vm.Get(idx)
	return v.IsObject() && v.obj.Class == ClassArray
}

// IsUserdata reports whether the slot holds host data with the given tag.
func (vm *VM) IsUserdata(idx int, tag string) bool {
	v := vm.Get(idx)
	return v.IsObject() && v.obj.Class == ClassUserdata && v.obj.user.tag == tag
}

// ToUserdata returns the host data stored in the slot.
func (vm *VM) ToUserdata(idx int, tag string) (any, error) {
	if !vm.IsUserdata(idx, tag) {
		return nil, vm.ThrowTypeError("not a %s", tag)
	}
	return vm.Get(idx).obj.user.data, nil
}
