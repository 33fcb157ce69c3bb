package builtins

import (
	"math"
	"math/rand"

	"jscore/pkg/vm"
)

type MathInitializer struct{}

func (m *MathInitializer) Name() string {
	return "Math"
}

func (m *MathInitializer) Priority() int {
	return PriorityMath // 100 - After core types
}

func (m *MathInitializer) InitRuntime(ctx *RuntimeContext) error {
	v := ctx.VM
	mathObj := v.NewObject()

	// Add constants
	constants := []struct {
		name  string
		value float64
	}{
		{"E", math.E},
		{"LN10", math.Ln10},
		{"LN2", math.Ln2},
		{"LOG10E", math.Log10E},
		{"LOG2E", math.Log2E},
		{"PI", math.Pi},
		{"SQRT1_2", math.Sqrt2 / 2},
		{"SQRT2", math.Sqrt2},
	}
	for _, c := range constants {
		if err := defineValue(v, mathObj, c.name, vm.NumberValue(c.value), vm.ReadOnly|vm.DontEnum|vm.DontConf); err != nil {
			return err
		}
	}

	unary := []struct {
		name string
		fn   func(float64) float64
	}{
		{"abs", math.Abs},
		{"floor", math.Floor},
		{"ceil", math.Ceil},
		{"round", mathRound},
		{"sqrt", math.Sqrt},
		{"exp", math.Exp},
		{"log", math.Log},
		{"sin", math.Sin},
		{"cos", math.Cos},
		{"tan", math.Tan},
		{"atan", math.Atan},
	}
	for _, u := range unary {
		if err := defineMethod(v, mathObj, u.name, unaryMath(u.fn), 1); err != nil {
			return err
		}
	}

	if err := defineMethod(v, mathObj, "pow", mathPow, 2); err != nil {
		return err
	}
	if err := defineMethod(v, mathObj, "max", mathMax, 0); err != nil {
		return err
	}
	if err := defineMethod(v, mathObj, "min", mathMin, 0); err != nil {
		return err
	}
	if err := defineMethod(v, mathObj, "random", mathRandom, 0); err != nil {
		return err
	}

	return ctx.DefineGlobal("Math", vm.ObjectValue(mathObj))
}

func unaryMath(fn func(float64) float64) vm.NativeFunc {
	return func(v *vm.VM) error {
		x, err := v.ToNumber(0)
		if err != nil {
			return err
		}
		v.PushNumber(fn(x))
		return nil
	}
}

// mathRound rounds half up, keeping the sign of zero results.
func mathRound(x float64) float64 {
	switch {
	case math.IsNaN(x), math.IsInf(x, 0), x == 0:
		return x
	case x > 0 && x < 0.5:
		return 0
	case x < 0 && x >= -0.5:
		return math.Copysign(0, -1)
	}
	return math.Floor(x + 0.5)
}

// pow differs from math.Pow for |x| == 1 with an infinite or NaN exponent.
func mathPow(v *vm.VM) error {
	x, err := v.ToNumber(0)
	if err != nil {
		return err
	}
	y, err := v.ToNumber(1)
	if err != nil {
		return err
	}
	if math.IsNaN(y) || (math.IsInf(y, 0) && math.Abs(x) == 1) {
		v.PushNumber(math.NaN())
		return nil
	}
	v.PushNumber(math.Pow(x, y))
	return nil
}

func mathMax(v *vm.VM) error {
	return extremum(v, math.Inf(-1), func(x, n float64) bool {
		return x > n || (x == 0 && n == 0 && !math.Signbit(x))
	})
}

func mathMin(v *vm.VM) error {
	return extremum(v, math.Inf(1), func(x, n float64) bool {
		return x < n || (x == 0 && n == 0 && math.Signbit(x))
	})
}

// extremum folds the arguments with better; any NaN makes the result NaN.
func extremum(v *vm.VM, start float64, better func(x, n float64) bool) error {
	n := start
	for i := 0; i < v.Top(); i++ {
		x, err := v.ToNumber(i)
		if err != nil {
			return err
		}
		if math.IsNaN(x) {
			n = x
			break
		}
		if better(x, n) {
			n = x
		}
	}
	v.PushNumber(n)
	return nil
}

func mathRandom(v *vm.VM) error {
	v.PushNumber(rand.Float64())
	return nil
}
