// Package driver runs function units in a persistent engine session with
// the standard builtins installed.
package driver

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	pkgerrors "github.com/pkg/errors"

	"jscore/pkg/asm"
	"jscore/pkg/builtins"
	"jscore/pkg/config"
	"jscore/pkg/errors"
	"jscore/pkg/logs"
	"jscore/pkg/vm"
)

const debugDriver = false

func debugPrintf(format string, args ...interface{}) {
	if debugDriver {
		fmt.Printf(format, args...)
	}
}

// Options configure a Session. The zero value uses the default
// configuration, discards logs and prints to stdout.
type Options struct {
	Config    config.Config
	Logger    *slog.Logger
	Output    io.Writer
	PanicHook vm.PanicHook
}

// Session is a persistent engine. Globals defined by one unit are visible
// to the next.
type Session struct {
	vmInstance *vm.VM
	cfg        config.Config
	logger     *slog.Logger
	fatal      *errors.FatalError // set once the engine is unusable
}

// NewSession creates an engine and installs the builtins. Scripts may call
// eval with the YAML text of a unit.
func NewSession(opts Options) (*Session, error) {
	cfg := opts.Config
	cfg.Engine = cfg.Engine.WithDefaults()
	logger := opts.Logger
	if logger == nil {
		logger = logs.Discard()
	}

	vmOpts := []vm.Option{
		vm.WithConfig(cfg.Engine),
		vm.WithLogger(logger),
		vm.WithEvalHook(evalUnit),
	}
	if opts.PanicHook != nil {
		vmOpts = append(vmOpts, vm.WithPanicHook(opts.PanicHook))
	}
	vmInstance := vm.NewVM(vmOpts...)
	if err := builtins.Install(vmInstance, opts.Output); err != nil {
		return nil, pkgerrors.Wrap(err, "install builtins")
	}

	return &Session{
		vmInstance: vmInstance,
		cfg:        cfg,
		logger:     logger.With("component", "driver"),
	}, nil
}

// evalUnit is the engine's eval hook: the source is a unit in YAML form.
func evalUnit(_ *vm.VM, source string) (*vm.Function, error) {
	u, err := asm.Parse([]byte(source), "eval")
	if err != nil {
		return nil, err
	}
	if u.File == "" {
		u.File = "eval"
	}
	return asm.Assemble(u)
}

// VM exposes the session's engine.
func (s *Session) VM() *vm.VM {
	return s.vmInstance
}

// Run executes fn as a top-level script. An uncaught exception comes back
// as a RuntimeError; a broken engine invariant as a FatalError, after which
// the session refuses to run anything else.
func (s *Session) Run(fn *vm.Function) (value vm.Value, errs []errors.EngineError) {
	if s.fatal != nil {
		return vm.Undefined, []errors.EngineError{s.fatal}
	}
	if s.cfg.Strict && !fn.Strict {
		strict := *fn
		strict.Strict = true
		fn = &strict
	}

	defer func() {
		if r := recover(); r != nil {
			ferr, ok := r.(*errors.FatalError)
			if !ok {
				panic(r)
			}
			s.fatal = ferr
			value, errs = vm.Undefined, []errors.EngineError{ferr}
		}
	}()

	debugPrintf("// [driver] running %s\n", fn)
	machine := s.vmInstance
	if err := machine.PRun(fn); err != nil {
		ex, ok := err.(*vm.Exception)
		if !ok {
			return vm.Undefined, []errors.EngineError{&errors.RuntimeError{
				Position: errors.Position{File: fn.File},
				Msg:      err.Error(),
				Cause:    err,
			}}
		}
		machine.Pop(1)
		s.logger.Warn("uncaught exception", "error", ex.Message(), "file", fn.File)
		return vm.Undefined, []errors.EngineError{(&errors.RuntimeError{
			Position: errors.Position{File: fn.File},
			Msg:      ex.Message(),
			Trace:    ex.StackTrace(),
		}).CausedBy(ex)}
	}
	value = machine.Get(-1)
	machine.Pop(1)
	return value, nil
}

// RunFile loads the unit at path and runs it.
func (s *Session) RunFile(path string) (vm.Value, []errors.EngineError) {
	fn, err := asm.Load(path)
	if err != nil {
		return vm.Undefined, []errors.EngineError{loadError(path, err)}
	}
	return s.Run(fn)
}

// loadError keeps a LoadError from the assembler and wraps anything else.
func loadError(path string, err error) errors.EngineError {
	if le, ok := pkgerrors.Cause(err).(*errors.LoadError); ok {
		return le
	}
	return (&errors.LoadError{
		Position: errors.Position{File: path},
		Msg:      err.Error(),
	}).CausedBy(err)
}

// DisplayResult prints errors, or the result when it is not undefined.
// It reports whether there were no errors.
func (s *Session) DisplayResult(w io.Writer, value vm.Value, errs []errors.EngineError) bool {
	if len(errs) > 0 {
		errors.DisplayErrors(w, errs)
		return false
	}
	if !value.IsUndefined() {
		fmt.Fprintln(w, value.Inspect())
	}
	return true
}

// RunFile runs one unit in a fresh session and prints the outcome to
// stderr. It reports success.
func RunFile(path string, opts Options) bool {
	s, err := NewSession(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}
	value, errs := s.RunFile(path)
	return s.DisplayResult(os.Stderr, value, errs)
}
