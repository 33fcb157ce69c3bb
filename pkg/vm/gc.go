package vm

import "time"

// Collector is the hook the dispatch loop invokes between instructions once
// the allocation counter passes the configured limit.
type Collector interface {
	Collect(vm *VM)
}

// CollectorFunc adapts a function to Collector.
type CollectorFunc func(vm *VM)

func (f CollectorFunc) Collect(vm *VM) { f(vm) }

// MarkSweep is the default collector. It marks from the engine roots and
// unlinks everything else from the heap lists, finalizing userdata.
type MarkSweep struct{}

func (MarkSweep) Collect(vm *VM) {
	start := time.Now()
	h := vm.gc
	before := h.numObjects

	m := &marker{}
	vm.markRoots(m)
	m.drain()
	vm.sweep()

	h.collections++
	vm.logger.Debug("gc cycle",
		"objects", h.numObjects,
		"freed", before-h.numObjects,
		"envs", h.numEnvs,
		"strings", h.numStrings,
		"elapsed", time.Since(start))
}

// marker keeps a worklist so deep object graphs do not recurse.
type marker struct {
	work []*Object
}

func (m *marker) value(v Value) {
	switch v.typ {
	case TypeMemString:
		v.mem.gcmark = true
	case TypeObject:
		m.object(v.obj)
	}
}

func (m *marker) object(obj *Object) {
	if obj == nil || obj.gcmark {
		return
	}
	obj.gcmark = true
	m.work = append(m.work, obj)
}

func (m *marker) env(e *Env) {
	for ; e != nil && !e.gcmark; e = e.outer {
		e.gcmark = true
		m.object(e.vars)
	}
}

func (m *marker) drain() {
	for len(m.work) > 0 {
		obj := m.work[len(m.work)-1]
		m.work = m.work[:len(m.work)-1]

		m.object(obj.Prototype)
		obj.props.each(func(ref *Property) bool {
			m.value(ref.Value)
			m.object(ref.Getter)
			m.object(ref.Setter)
			return true
		})
		m.env(obj.scope)
		if obj.iter != nil {
			m.object(obj.iter.target)
		}
	}
}

func (vm *VM) markRoots(m *marker) {
	for _, v := range vm.stack[:vm.top] {
		m.value(v)
	}
	m.env(vm.E)
	m.env(vm.GE)
	for _, e := range vm.envstack {
		m.env(e)
	}
	for _, rec := range vm.tries {
		m.env(rec.E)
	}
	m.object(vm.G)
	m.object(vm.R)
	for _, proto := range vm.prototypes() {
		m.object(proto)
	}
}

func (vm *VM) sweep() {
	h := vm.gc

	var prevObj *Object
	for obj := h.objects; obj != nil; {
		next := obj.gcnext
		if obj.gcmark {
			obj.gcmark = false
			prevObj = obj
		} else {
			if prevObj == nil {
				h.objects = next
			} else {
				prevObj.gcnext = next
			}
			obj.gcnext = nil
			h.numObjects--
			if obj.user != nil && obj.user.hooks.Finalize != nil {
				obj.user.hooks.Finalize(vm, obj.user.data)
			}
		}
		obj = next
	}

	var prevEnv *Env
	for e := h.envs; e != nil; {
		next := e.gcnext
		if e.gcmark {
			e.gcmark = false
			prevEnv = e
		} else {
			if prevEnv == nil {
				h.envs = next
			} else {
				prevEnv.gcnext = next
			}
			e.gcnext = nil
			h.numEnvs--
		}
		e = next
	}

	var prevStr *memString
	for s := h.strings; s != nil; {
		next := s.gcnext
		if s.gcmark {
			s.gcmark = false
			prevStr = s
		} else {
			if prevStr == nil {
				h.strings = next
			} else {
				prevStr.gcnext = next
			}
			s.gcnext = nil
			h.numStrings--
		}
		s = next
	}
}

// GC runs a collection now.
func (vm *VM) GC() {
	vm.gc.counter = 0
	vm.collector.Collect(vm)
}

// maybeCollect runs the collector when enough has been allocated. It raises
// out of memory when the live object count stays above the ceiling.
func (vm *VM) maybeCollect() error {
	if vm.gc.counter <= vm.cfg.GCLimit {
		return nil
	}
	vm.GC()
	if vm.cfg.MaxObjects > 0 && vm.gc.numObjects > vm.cfg.MaxObjects {
		return vm.outOfMemory()
	}
	return nil
}
