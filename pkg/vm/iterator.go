package vm

import (
	"slices"
	"strconv"
)

type iteratorBox struct {
	target *Object
	own    bool
	names  []string
	pos    int
}

func (vm *VM) newIterator(target *Object, own bool) *Object {
	obj := vm.newObject(ClassIterator, nil)
	obj.iter = &iteratorBox{target: target, own: own}
	obj.iter.reset()
	return obj
}

// reset snapshots the enumerable names of the target, level by level along
// the prototype chain. A name seen on a nearer object hides the same name
// further up, enumerable or not.
func (it *iteratorBox) reset() {
	seen := make(map[string]bool)
	it.names = it.names[:0]
	it.pos = 0
	for o := it.target; o != nil; o = o.Prototype {
		// Character indices come first, in numeric order.
		if o.Class == ClassString {
			for k := 0; k < o.strlen; k++ {
				name := strconv.Itoa(k)
				if !seen[name] {
					seen[name] = true
					it.names = append(it.names, name)
				}
			}
		}
		var level []string
		o.props.each(func(ref *Property) bool {
			if seen[ref.Name] {
				return true
			}
			seen[ref.Name] = true
			if ref.Attrs&DontEnum == 0 {
				level = append(level, ref.Name)
			}
			return true
		})
		slices.Sort(level)
		it.names = append(it.names, level...)
		if it.own {
			break
		}
	}
}

// next returns the next name that still resolves on the target.
func (it *iteratorBox) next() (string, bool) {
	for it.pos < len(it.names) {
		name := it.names[it.pos]
		it.pos++
		if it.target.Class == ClassString {
			if _, ok := it.target.stringIndex(name); ok {
				return name, true
			}
		}
		var ref *Property
		if it.own {
			ref = it.target.getOwn(name)
		} else {
			ref = it.target.lookup(name)
		}
		if ref != nil {
			return name, true
		}
	}
	return "", false
}

// PushIterator pushes an iterator over the enumerable names of the object
// at idx. With own set, inherited names are skipped.
func (vm *VM) PushIterator(idx int, own bool) error {
	obj, err := vm.ToObject(idx)
	if err != nil {
		return err
	}
	vm.PushObject(vm.newIterator(obj, own))
	return nil
}

// NextIterator advances the iterator at idx.
func (vm *VM) NextIterator(idx int) (string, bool, error) {
	obj, err := vm.ToObject(idx)
	if err != nil {
		return "", false, err
	}
	if obj.Class != ClassIterator {
		return "", false, vm.ThrowTypeError("not an iterator")
	}
	name, ok := obj.iter.next()
	return name, ok, nil
}

// ResetIterator restarts the iterator at idx from a fresh snapshot.
func (vm *VM) ResetIterator(idx int) error {
	obj, err := vm.ToObject(idx)
	if err != nil {
		return err
	}
	if obj.Class != ClassIterator {
		return vm.ThrowTypeError("not an iterator")
	}
	obj.iter.reset()
	return nil
}
