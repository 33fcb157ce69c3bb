package vm

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// Class tags the payload an Object carries. The property protocol matches
// on it to find the class's virtual fields.
type Class uint8

const (
	ClassObject Class = iota
	ClassArray
	ClassFunction
	ClassScript
	ClassNative
	ClassError
	ClassBoolean
	ClassNumber
	ClassString
	ClassRegExp
	ClassDate
	ClassMath
	ClassJSON
	ClassIterator
	ClassUserdata
)

var classNames = [...]string{
	ClassObject:   "Object",
	ClassArray:    "Array",
	ClassFunction: "Function",
	ClassScript:   "Script",
	ClassNative:   "Function",
	ClassError:    "Error",
	ClassBoolean:  "Boolean",
	ClassNumber:   "Number",
	ClassString:   "String",
	ClassRegExp:   "RegExp",
	ClassDate:     "Date",
	ClassMath:     "Math",
	ClassJSON:     "JSON",
	ClassIterator: "Iterator",
	ClassUserdata: "Userdata",
}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("<unknown class: %d>", c)
}

// Attr holds property attribute bits.
type Attr uint8

const (
	ReadOnly Attr = 1 << iota
	DontEnum
	DontConf
)

// Property is one entry of an object's store: a stored value or an
// accessor pair.
type Property struct {
	Name   string
	Attrs  Attr
	Value  Value
	Getter *Object
	Setter *Object
}

// NativeFunc is host code callable from scripts. Arguments are addressed
// from stack index 0, `this` with vm.This(). The function leaves its result
// on top of the stack.
type NativeFunc func(vm *VM) error

// UserdataHooks let a host object intercept property access. Has must push
// the value when it reports true; Put reads the value from the top of the
// stack. Returning false falls through to the generic store.
type UserdataHooks struct {
	Has      func(vm *VM, data any, name string) (bool, error)
	Put      func(vm *VM, data any, name string) (bool, error)
	Delete   func(vm *VM, data any, name string) (bool, error)
	Finalize func(vm *VM, data any)
}

type nativeBox struct {
	name        string
	fn          NativeFunc
	constructor NativeFunc
	length      int
}

type userdataBox struct {
	tag   string
	data  any
	hooks UserdataHooks
}

// Object is a script object. Which payload fields are meaningful depends on
// Class.
type Object struct {
	Class      Class
	Extensible bool
	Prototype  *Object
	props      *propertyStore

	boolean  bool      // ClassBoolean
	number   float64   // ClassNumber, ClassDate
	str      string    // ClassString
	strlen   int       // ClassString, in runes
	length   int       // ClassArray
	frozen   bool      // ClassArray, length is read-only
	function *Function // ClassFunction, ClassScript
	scope    *Env      // ClassFunction, ClassScript
	native   *nativeBox
	regexp   *RegExp
	iter     *iteratorBox
	user     *userdataBox

	gcmark bool
	gcnext *Object
}

// newObject allocates an object and links it into the collector's list.
func (vm *VM) newObject(class Class, prototype *Object) *Object {
	obj := &Object{
		Class:      class,
		Extensible: true,
		Prototype:  prototype,
		props:      newPropertyStore(),
	}
	vm.gc.trackObject(obj)
	return obj
}

// NewObject returns a fresh plain object inheriting from Object.prototype.
func (vm *VM) NewObject() *Object {
	return vm.newObject(ClassObject, vm.ObjectPrototype)
}

// NewArray returns a fresh empty array.
func (vm *VM) NewArray() *Object {
	return vm.newObject(ClassArray, vm.ArrayPrototype)
}

// NewBoolean, NewNumber and NewStringObject create primitive wrappers.
func (vm *VM) NewBoolean(b bool) *Object {
	obj := vm.newObject(ClassBoolean, vm.BooleanPrototype)
	obj.boolean = b
	return obj
}

func (vm *VM) NewNumber(f float64) *Object {
	obj := vm.newObject(ClassNumber, vm.NumberPrototype)
	obj.number = f
	return obj
}

func (vm *VM) NewStringObject(s string) *Object {
	obj := vm.newObject(ClassString, vm.StringPrototype)
	obj.str = s
	obj.strlen = utf8.RuneCountInString(s)
	return obj
}

// NewUserdata wraps host data in an object with the given prototype.
func (vm *VM) NewUserdata(tag string, data any, prototype *Object, hooks UserdataHooks) *Object {
	if prototype == nil {
		prototype = vm.ObjectPrototype
	}
	obj := vm.newObject(ClassUserdata, prototype)
	obj.user = &userdataBox{tag: tag, data: data, hooks: hooks}
	return obj
}

// getOwn looks up an own property, ignoring virtual fields.
func (obj *Object) getOwn(name string) *Property {
	return obj.props.lookup(name)
}

// lookup walks the prototype chain for name.
func (obj *Object) lookup(name string) *Property {
	ref, _ := obj.lookupx(name)
	return ref
}

// lookupx is lookup that also reports whether the match is an own property.
func (obj *Object) lookupx(name string) (*Property, bool) {
	own := true
	for o := obj; o != nil; o = o.Prototype {
		if ref := o.props.lookup(name); ref != nil {
			return ref, own
		}
		own = false
	}
	return nil, false
}

// setOwn returns the own property for name, creating it when the object is
// extensible. It returns nil for a missing name on a sealed object.
func (obj *Object) setOwn(name string) *Property {
	if !obj.Extensible {
		return obj.props.lookup(name)
	}
	return obj.props.insert(name)
}

func (obj *Object) deleteOwn(name string) {
	obj.props.remove(name)
}

// IsCallable reports whether the object can be invoked.
func (obj *Object) IsCallable() bool {
	return obj.Class == ClassFunction || obj.Class == ClassScript || obj.Class == ClassNative
}

// Length returns the tracked element count of an array.
func (obj *Object) Length() int {
	return obj.length
}

// Function returns the code unit behind an interpreted function or script.
func (obj *Object) Function() *Function {
	return obj.function
}

// NativeName returns the registered name of a native function.
func (obj *Object) NativeName() string {
	if obj.native == nil {
		return ""
	}
	return obj.native.name
}

// PrimitiveValue returns the boxed value of a Boolean, Number, String or
// Date object.
func (obj *Object) PrimitiveValue() (Value, bool) {
	switch obj.Class {
	case ClassBoolean:
		return BooleanValue(obj.boolean), true
	case ClassNumber, ClassDate:
		return NumberValue(obj.number), true
	case ClassString:
		return LiteralValue(obj.str), true
	}
	return Undefined, false
}

// RegExp returns the regexp payload or nil.
func (obj *Object) RegExp() *RegExp {
	return obj.regexp
}

// OwnKeys returns own property names in store order.
func (obj *Object) OwnKeys() []string {
	return obj.props.names()
}

// Seal makes the object non-extensible and every own property
// non-configurable.
func (obj *Object) Seal() {
	obj.lock(DontConf)
}

// Freeze seals the object and makes every own data property read-only.
// A frozen array also refuses length changes.
func (obj *Object) Freeze() {
	obj.lock(DontConf | ReadOnly)
	if obj.Class == ClassArray {
		obj.frozen = true
	}
}

func (obj *Object) lock(atts Attr) {
	obj.Extensible = false
	obj.props.each(func(ref *Property) bool {
		if ref.Getter != nil || ref.Setter != nil {
			ref.Attrs |= atts &^ ReadOnly
		} else {
			ref.Attrs |= atts
		}
		return true
	})
}

// Sealed reports whether the object is non-extensible with no configurable
// own property.
func (obj *Object) Sealed() bool {
	return obj.isLocked(DontConf)
}

// Frozen reports whether the object is sealed and every own data property
// is read-only.
func (obj *Object) Frozen() bool {
	if obj.Class == ClassArray && !obj.frozen {
		return false
	}
	return obj.isLocked(DontConf | ReadOnly)
}

func (obj *Object) isLocked(atts Attr) bool {
	if obj.Extensible {
		return false
	}
	locked := true
	obj.props.each(func(ref *Property) bool {
		want := atts
		if ref.Getter != nil || ref.Setter != nil {
			want &^= ReadOnly
		}
		locked = ref.Attrs&want == want
		return locked
	})
	return locked
}

// OwnProperty returns a copy of an own property and whether it exists.
func (obj *Object) OwnProperty(name string) (Property, bool) {
	if ref := obj.getOwn(name); ref != nil {
		return *ref, true
	}
	return Property{}, false
}

func (obj *Object) Inspect() string {
	switch obj.Class {
	case ClassFunction, ClassScript:
		return fmt.Sprintf("[%s %s]", obj.Class, obj.function.Name)
	case ClassNative:
		return fmt.Sprintf("[native %s]", obj.native.name)
	case ClassArray:
		return fmt.Sprintf("[Array length=%d]", obj.length)
	case ClassString:
		return fmt.Sprintf("[String %s]", strconv.Quote(obj.str))
	case ClassRegExp:
		return fmt.Sprintf("[RegExp /%s/]", obj.regexp.Source)
	case ClassUserdata:
		return fmt.Sprintf("[Userdata %s]", obj.user.tag)
	}
	return fmt.Sprintf("[object %s]", obj.Class)
}

// arrayIndex parses a canonical non-negative decimal index.
func arrayIndex(name string) (int, bool) {
	if name == "" || len(name) > 10 {
		return 0, false
	}
	if len(name) > 1 && name[0] == '0' {
		return 0, false
	}
	n := 0
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	if n > maxArrayLength {
		return 0, false
	}
	return n, true
}

// maxArrayLength caps array lengths and indices to what fits an int32.
const maxArrayLength = 1<<31 - 1

// runeAt returns the k-th rune of s as a string.
func runeAt(s string, k int) string {
	for i, r := range s {
		if k == 0 {
			return s[i : i+utf8.RuneLen(r)]
		}
		k--
	}
	return ""
}

// resizeArray sets the tracked length, deleting indices at or past newlen.
// A non-configurable element stops the truncation just above itself.
func (obj *Object) resizeArray(newlen int) {
	if newlen < obj.length {
		var doomed []int
		visit := func(k int, ref *Property) {
			if ref.Attrs&DontConf != 0 {
				newlen = max(newlen, k+1)
			}
			doomed = append(doomed, k)
		}
		if obj.length > 2*obj.props.len() {
			obj.props.each(func(ref *Property) bool {
				if k, ok := arrayIndex(ref.Name); ok && k >= newlen {
					visit(k, ref)
				}
				return true
			})
		} else {
			for k := newlen; k < obj.length; k++ {
				if ref := obj.getOwn(strconv.Itoa(k)); ref != nil {
					visit(k, ref)
				}
			}
		}
		for _, k := range doomed {
			if k >= newlen {
				obj.deleteOwn(strconv.Itoa(k))
			}
		}
	}
	obj.length = newlen
}
