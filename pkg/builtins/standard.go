package builtins

import (
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"

	"jscore/pkg/vm"
)

// GetStandardInitializers returns all built-in initializers sorted by priority
func GetStandardInitializers() []BuiltinInitializer {
	initializers := []BuiltinInitializer{
		&GlobalsInitializer{},
		&ObjectInitializer{},
		&FunctionInitializer{},
		&ArrayInitializer{},
		&ErrorInitializer{},
		&StringInitializer{},
		&NumberInitializer{},
		&BooleanInitializer{},
		&RegExpInitializer{},
		&MathInitializer{},
		&JSONInitializer{},
		&ConsoleInitializer{},
	}

	// Sort by priority (lower numbers first)
	sort.SliceStable(initializers, func(i, j int) bool {
		return initializers[i].Priority() < initializers[j].Priority()
	})

	return initializers
}

// Install runs every standard initializer against machine. print writes
// to out, or to stdout when out is nil.
func Install(machine *vm.VM, out io.Writer) error {
	if out == nil {
		out = os.Stdout
	}
	ctx := &RuntimeContext{
		VM:     machine,
		Output: out,
		DefineGlobal: func(name string, value vm.Value) error {
			machine.PushValue(value)
			return machine.DefGlobal(name, vm.DontEnum)
		},
	}
	for _, init := range GetStandardInitializers() {
		if err := init.InitRuntime(ctx); err != nil {
			return errors.Wrapf(err, "init %s", init.Name())
		}
	}
	machine.Logger().Debug("builtins installed")
	return nil
}
