package vm

import (
	"fmt"
	"strings"

	"jscore/pkg/errors"
)

const debugExceptions = false

// Exception is a thrown script value travelling up the Go call stack. By the
// time it is returned, the engine state has already been restored to the
// try record that will handle it; every frame in between just returns it.
type Exception struct {
	Value Value
	owner int
	pc    int
}

func (e *Exception) Error() string {
	return "uncaught exception: " + describeThrown(e.Value)
}

// Message renders the thrown value, "name: message" for error objects.
func (e *Exception) Message() string {
	return describeThrown(e.Value)
}

// StackTrace returns the stackTrace captured when the thrown error object
// was created, or "" for other values.
func (e *Exception) StackTrace() string {
	if !e.Value.IsObject() {
		return ""
	}
	if ref := e.Value.obj.getOwn("stackTrace"); ref != nil && ref.Value.IsString() {
		return ref.Value.AsString()
	}
	return ""
}

// describeThrown renders a thrown value without running script code.
func describeThrown(v Value) string {
	if !v.IsObject() {
		if v.IsString() {
			return v.AsString()
		}
		return v.Inspect()
	}
	obj := v.obj
	if obj.Class != ClassError {
		return obj.Inspect()
	}
	name, message := "Error", ""
	if ref := obj.lookup("name"); ref != nil && ref.Value.IsString() {
		name = ref.Value.AsString()
	}
	if ref := obj.lookup("message"); ref != nil && ref.Value.IsString() {
		message = ref.Value.AsString()
	}
	switch {
	case name == "":
		return message
	case message == "":
		return name
	}
	return name + ": " + message
}

// TraceEntry is one frame of the script call trace.
type TraceEntry struct {
	Name string
	File string
	Line int
}

// tryRecord is the continuation restored when a throw reaches it.
type tryRecord struct {
	E        *Env
	envtop   int
	tracetop int
	top      int
	bot      int
	strict   bool
	pc       int
	owner    int
}

// newOwner hands out an id for a run loop or guarded call that installs
// try records.
func (vm *VM) newOwner() int {
	vm.owners++
	return vm.owners
}

func (vm *VM) pushTry(owner, pc int) {
	if len(vm.tries) >= vm.cfg.TryLimit {
		vm.fatal("try: exception stack overflow")
	}
	vm.tries = append(vm.tries, tryRecord{
		E:        vm.E,
		envtop:   len(vm.envstack),
		tracetop: len(vm.trace),
		top:      vm.top,
		bot:      vm.bot,
		strict:   vm.strict,
		pc:       pc,
		owner:    owner,
	})
}

func (vm *VM) endTry() {
	if len(vm.tries) == 0 {
		vm.fatal("endtry: exception stack underflow")
	}
	vm.tries = vm.tries[:len(vm.tries)-1]
}

// dropTries discards records a returning run loop left behind.
func (vm *VM) dropTries(owner int) {
	for len(vm.tries) > 0 && vm.tries[len(vm.tries)-1].owner == owner {
		vm.tries = vm.tries[:len(vm.tries)-1]
	}
}

// caught reports whether err is a script exception addressed to owner.
func caught(err error, owner int) (*Exception, bool) {
	ex, ok := err.(*Exception)
	if ok && ex.owner == owner {
		return ex, true
	}
	return nil, false
}

// Try runs fn under a try record. If fn throws, the engine state is rolled
// back to the moment Try was entered, the thrown value is pushed, and the
// exception is returned.
func (vm *VM) Try(fn func() error) error {
	owner := vm.newOwner()
	vm.pushTry(owner, -1)
	err := fn()
	if err == nil {
		vm.endTry()
		return nil
	}
	if ex, ok := caught(err, owner); ok {
		return ex
	}
	return err
}

// Throw throws the value on top of the stack.
func (vm *VM) Throw() error {
	v := vm.Get(-1)
	return vm.throw(v)
}

// throw unwinds to the innermost try record. Without one, the engine has no
// way to continue and takes the fatal path.
func (vm *VM) throw(v Value) error {
	if len(vm.tries) == 0 {
		vm.fatal("uncaught exception: %s", describeThrown(v))
	}
	n := len(vm.tries) - 1
	rec := vm.tries[n]
	vm.tries = vm.tries[:n]

	vm.E = rec.E
	for i := rec.envtop; i < len(vm.envstack); i++ {
		vm.envstack[i] = nil
	}
	vm.envstack = vm.envstack[:rec.envtop]
	vm.trace = vm.trace[:rec.tracetop]
	vm.top = rec.top
	vm.bot = rec.bot
	vm.strict = rec.strict
	vm.PushValue(v)

	if debugExceptions {
		fmt.Printf("[DEBUG exceptions.go] throw %s -> owner %d pc %d (top=%d bot=%d)\n",
			describeThrown(v), rec.owner, rec.pc, vm.top, vm.bot)
	}
	return &Exception{Value: v, owner: rec.owner, pc: rec.pc}
}

// hostError turns an error returned by host code into a script exception.
func (vm *VM) hostError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*Exception); ok {
		return err
	}
	return vm.ThrowError("%s", err.Error())
}

// pushTrace records a call. Exceeding the depth limit raises a catchable
// error before any frame state changes.
func (vm *VM) pushTrace(name, file string, line int) error {
	if len(vm.trace) >= vm.cfg.EnvLimit {
		return vm.ThrowError("call stack overflow")
	}
	vm.trace = append(vm.trace, TraceEntry{Name: name, File: file, Line: line})
	return nil
}

func (vm *VM) popTrace() {
	vm.trace = vm.trace[:len(vm.trace)-1]
}

// StackTrace formats the call trace, innermost first, skipping the top skip
// entries and the host root entry.
func (vm *VM) StackTrace(skip int) string {
	var sb strings.Builder
	for n := len(vm.trace) - 1 - skip; n > 0; n-- {
		e := vm.trace[n]
		switch {
		case e.Line > 0 && e.Name != "":
			fmt.Fprintf(&sb, "\n\tat %s (%s:%d)", e.Name, e.File, e.Line)
		case e.Line > 0:
			fmt.Fprintf(&sb, "\n\tat %s:%d", e.File, e.Line)
		default:
			fmt.Fprintf(&sb, "\n\tat %s (%s)", e.Name, e.File)
		}
	}
	return sb.String()
}

// Trace returns a copy of the current call trace, outermost first.
func (vm *VM) Trace() []TraceEntry {
	return append([]TraceEntry(nil), vm.trace...)
}

// newError builds an error object without touching the operand stack, so it
// is safe to use while the stack is overflowing.
func (vm *VM) newError(proto *Object, message string, hasMessage bool, skip int) *Object {
	obj := vm.newObject(ClassError, proto)
	if hasMessage {
		obj.setOwn("message").Value = vm.NewString(message)
	}
	if trace := vm.StackTrace(skip); trace != "" {
		obj.setOwn("stackTrace").Value = vm.NewString(trace)
	}
	return obj
}

// NewError creates an error object inheriting from proto.
func (vm *VM) NewError(proto *Object, message string) *Object {
	return vm.newError(proto, message, true, 0)
}

// NewErrorInCall creates an error object from inside a native constructor;
// the constructor's own trace entry is left out of the stack trace.
func (vm *VM) NewErrorInCall(proto *Object) *Object {
	return vm.newError(proto, "", false, 1)
}

func (vm *VM) throwNew(proto *Object, format string, args []any) error {
	return vm.throw(ObjectValue(vm.newError(proto, fmt.Sprintf(format, args...), true, 0)))
}

func (vm *VM) ThrowError(format string, args ...any) error {
	return vm.throwNew(vm.ErrorPrototype, format, args)
}

func (vm *VM) ThrowEvalError(format string, args ...any) error {
	return vm.throwNew(vm.EvalErrorPrototype, format, args)
}

func (vm *VM) ThrowRangeError(format string, args ...any) error {
	return vm.throwNew(vm.RangeErrorPrototype, format, args)
}

func (vm *VM) ThrowReferenceError(format string, args ...any) error {
	return vm.throwNew(vm.ReferenceErrorPrototype, format, args)
}

func (vm *VM) ThrowSyntaxError(format string, args ...any) error {
	return vm.throwNew(vm.SyntaxErrorPrototype, format, args)
}

func (vm *VM) ThrowTypeError(format string, args ...any) error {
	return vm.throwNew(vm.TypeErrorPrototype, format, args)
}

func (vm *VM) ThrowURIError(format string, args ...any) error {
	return vm.throwNew(vm.URIErrorPrototype, format, args)
}

// stackOverflow raises the pending overflow flagged by checkStack.
func (vm *VM) stackOverflow() error {
	vm.overflow = false
	return vm.ThrowRangeError("stack overflow")
}

func (vm *VM) outOfMemory() error {
	return vm.ThrowError("out of memory")
}

// fatal takes the non-recoverable path: the host hook sees the error, then
// the engine panics with it.
func (vm *VM) fatal(format string, args ...any) {
	ferr := errors.NewFatalError(fmt.Sprintf(format, args...), vm.StackTrace(0), 1)
	if len(vm.trace) > 0 {
		top := vm.trace[len(vm.trace)-1]
		ferr.Position = errors.Position{File: top.File, Line: top.Line}
	}
	vm.logger.Error("fatal engine error", "error", ferr.Msg, "caller", fmt.Sprintf("%+v", ferr.Caller))
	if vm.panicHook != nil {
		vm.panicHook(vm, ferr)
	}
	panic(ferr)
}
