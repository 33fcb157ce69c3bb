package vm

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"jscore/pkg/config"
	"jscore/pkg/errors"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
)

const debugVM = false

// EvalHook compiles source for the eval operator.
type EvalHook func(vm *VM, source string) (*Function, error)

// PanicHook is told about a fatal engine error before the engine panics.
type PanicHook func(vm *VM, err *errors.FatalError)

// VM is one engine instance: a single operand stack, environment chain and
// try-record stack, plus the realm and heap they operate on. A VM is not
// safe for concurrent use.
type VM struct {
	Realm

	id     uuid.UUID
	logger *slog.Logger
	cfg    config.Engine

	stack    []Value
	top      int
	bot      int
	overflow bool // a push passed StackSize; raised at the next safe point

	E        *Env
	envstack []*Env
	trace    []TraceEntry
	tries    []tryRecord
	owners   int
	strict   bool

	gc        *Heap
	collector Collector
	strings   map[string]string
	regexps   *lru.Cache
	nextref   int

	evalHook  EvalHook
	panicHook PanicHook
}

// Option configures a VM at construction.
type Option func(*VM)

func WithConfig(cfg config.Engine) Option {
	return func(vm *VM) { vm.cfg = cfg }
}

func WithLogger(logger *slog.Logger) Option {
	return func(vm *VM) { vm.logger = logger }
}

func WithCollector(c Collector) Option {
	return func(vm *VM) { vm.collector = c }
}

func WithEvalHook(hook EvalHook) Option {
	return func(vm *VM) { vm.evalHook = hook }
}

func WithPanicHook(hook PanicHook) Option {
	return func(vm *VM) { vm.panicHook = hook }
}

// NewVM creates an engine instance with an empty realm.
func NewVM(opts ...Option) *VM {
	vm := &VM{
		id:        uuid.New(),
		cfg:       config.Default().Engine,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		collector: MarkSweep{},
		gc:        newHeap(),
		strings:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.cfg = vm.cfg.WithDefaults()
	vm.logger = vm.logger.With("engine", vm.id.String())

	vm.stack = make([]Value, vm.cfg.StackSize+stackGuard)
	vm.envstack = make([]*Env, 0, 64)
	vm.trace = make([]TraceEntry, 1, 64)
	vm.trace[0] = TraceEntry{Name: "", File: "native"}
	vm.tries = make([]tryRecord, 0, vm.cfg.TryLimit)
	vm.strict = vm.cfg.Strict

	cache, err := lru.New(vm.cfg.RegExpCache)
	if err != nil {
		// only reachable with a non-positive size, which WithDefaults rules out
		panic(err)
	}
	vm.regexps = cache

	vm.initRealm()
	vm.logger.Info("engine created",
		"stack_size", vm.cfg.StackSize,
		"env_limit", vm.cfg.EnvLimit,
		"try_limit", vm.cfg.TryLimit,
		"gc_limit", vm.cfg.GCLimit)
	return vm
}

// ID returns the instance id used in log records.
func (vm *VM) ID() uuid.UUID { return vm.id }

func (vm *VM) Logger() *slog.Logger { return vm.logger }

func (vm *VM) Config() config.Engine { return vm.cfg }

// Strict reports whether the running code is in strict mode.
func (vm *VM) Strict() bool { return vm.strict }

// Heap exposes the collector bookkeeping.
func (vm *VM) Heap() *Heap { return vm.gc }

// Depths reports the current stack height and the depths of the
// environment, trace and try stacks.
func (vm *VM) Depths() (top, envs, trace, tries int) {
	return vm.top, len(vm.envstack), len(vm.trace), len(vm.tries)
}

// DumpStack renders the operand stack, marking the frame base.
func (vm *VM) DumpStack() string {
	var sb strings.Builder
	sb.WriteString("stack {\n")
	for i := 0; i < vm.top; i++ {
		mark := " "
		if i == vm.bot {
			mark = ">"
		}
		fmt.Fprintf(&sb, "%s%4d: %s\n", mark, i, vm.stack[i].Inspect())
	}
	sb.WriteString("}\n")
	return sb.String()
}

// DumpEnv renders the environment chain, innermost first.
func (vm *VM) DumpEnv() string {
	var sb strings.Builder
	d := 0
	for e := vm.E; e != nil; e = e.outer {
		fmt.Fprintf(&sb, "scope %d {", d)
		e.vars.props.each(func(ref *Property) bool {
			fmt.Fprintf(&sb, " %s: %s", ref.Name, ref.Value.Inspect())
			return true
		})
		sb.WriteString(" }\n")
		if e == vm.GE {
			break
		}
		d++
	}
	return sb.String()
}

// trap implements the debugger statement.
func (vm *VM) trap(fn *Function, pc int) {
	vm.logger.Debug("debugger trap",
		"function", fn.String(),
		"pc", pc,
		"stack", vm.DumpStack(),
		"env", vm.DumpEnv(),
		"trace", vm.StackTrace(0))
}
