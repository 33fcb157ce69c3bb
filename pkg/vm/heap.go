package vm

// Heap is the bookkeeping side of the collector: every object, environment
// and heap string allocated by one engine is linked into one of its lists.
// Go owns the memory; the lists decide liveness, finalization and the
// engine's own allocation accounting.
type Heap struct {
	objects *Object
	envs    *Env
	strings *memString

	numObjects int
	numEnvs    int
	numStrings int

	counter     int // allocations since the last collection
	collections int
}

// HeapStats is a snapshot of the heap counters.
type HeapStats struct {
	Objects     int
	Envs        int
	Strings     int
	Collections int
}

func newHeap() *Heap {
	return &Heap{}
}

func (h *Heap) trackObject(obj *Object) {
	obj.gcnext = h.objects
	h.objects = obj
	h.numObjects++
	h.counter++
}

func (h *Heap) trackEnv(e *Env) {
	e.gcnext = h.envs
	h.envs = e
	h.numEnvs++
	h.counter++
}

func (h *Heap) trackString(s *memString) {
	s.gcnext = h.strings
	h.strings = s
	h.numStrings++
	h.counter++
}

// Stats returns the current counters.
func (h *Heap) Stats() HeapStats {
	return HeapStats{
		Objects:     h.numObjects,
		Envs:        h.numEnvs,
		Strings:     h.numStrings,
		Collections: h.collections,
	}
}

// NewString returns s as a value, inline when it fits and as a tracked heap
// string otherwise.
func (vm *VM) NewString(s string) Value {
	if v, ok := shortString(s); ok {
		return v
	}
	ms := &memString{s: s}
	vm.gc.trackString(ms)
	return Value{typ: TypeMemString, mem: ms}
}

// Intern returns the canonical copy of s. Property names are interned so
// that equal names share one backing string per engine.
func (vm *VM) Intern(s string) string {
	if canon, ok := vm.strings[s]; ok {
		return canon
	}
	vm.strings[s] = s
	return s
}
