package builtins

import (
	"fmt"
	"math"
	"strings"

	"jscore/pkg/vm"
)

type GlobalsInitializer struct{}

func (g *GlobalsInitializer) Name() string {
	return "Globals"
}

func (g *GlobalsInitializer) Priority() int {
	return PriorityGlobals
}

func (g *GlobalsInitializer) InitRuntime(ctx *RuntimeContext) error {
	v := ctx.VM

	constants := []struct {
		name  string
		value vm.Value
	}{
		{"NaN", vm.NaN},
		{"Infinity", vm.NumberValue(math.Inf(1))},
		{"undefined", vm.Undefined},
	}
	for _, c := range constants {
		v.PushValue(c.value)
		if err := v.DefGlobal(c.name, vm.ReadOnly|vm.DontEnum|vm.DontConf); err != nil {
			return err
		}
	}

	out := ctx.Output
	printFn := func(v *vm.VM) error {
		parts := make([]string, v.Top())
		for i := range parts {
			s, err := v.ToString(i)
			if err != nil {
				return err
			}
			parts[i] = s
		}
		fmt.Fprintln(out, strings.Join(parts, " "))
		v.PushUndefined()
		return nil
	}

	natives := []struct {
		name   string
		fn     vm.NativeFunc
		length int
	}{
		{"print", printFn, 0},
		{"gc", globalGC, 0},
		{"isNaN", globalIsNaN, 1},
		{"isFinite", globalIsFinite, 1},
	}
	for _, n := range natives {
		if err := ctx.DefineGlobal(n.name, vm.ObjectValue(v.NewNative(n.name, n.fn, n.length))); err != nil {
			return err
		}
	}
	return nil
}

// gc forces a collection cycle.
func globalGC(v *vm.VM) error {
	v.GC()
	v.PushUndefined()
	return nil
}

func globalIsNaN(v *vm.VM) error {
	x, err := v.ToNumber(0)
	if err != nil {
		return err
	}
	v.PushBoolean(math.IsNaN(x))
	return nil
}

func globalIsFinite(v *vm.VM) error {
	x, err := v.ToNumber(0)
	if err != nil {
		return err
	}
	v.PushBoolean(!math.IsNaN(x) && !math.IsInf(x, 0))
	return nil
}
