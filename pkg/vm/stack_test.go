package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jscore/pkg/config"
)

func stackNumbers(v *VM) []float64 {
	out := make([]float64, v.Top())
	for i := range out {
		out[i] = v.Get(i).AsNumber()
	}
	return out
}

func TestStack_Shuffles(t *testing.T) {
	tests := []struct {
		name string
		op   func(v *VM)
		want []float64
	}{
		{"Dup2", (*VM).Dup2, []float64{1, 2, 3, 4, 3, 4}},
		{"Rot2", (*VM).Rot2, []float64{1, 2, 4, 3}},
		{"Rot3", (*VM).Rot3, []float64{1, 4, 2, 3}},
		{"Rot4", (*VM).Rot4, []float64{4, 1, 2, 3}},
		{"Rot1", func(v *VM) { v.Rot(1) }, []float64{1, 2, 3, 4}},
		{"Rot3ByCount", func(v *VM) { v.Rot(3) }, []float64{1, 4, 2, 3}},
		{"Rot4ByCount", func(v *VM) { v.Rot(4) }, []float64{4, 1, 2, 3}},
		{"Rot2Pop1", (*VM).Rot2Pop1, []float64{1, 2, 4}},
		{"Rot3Pop2", (*VM).Rot3Pop2, []float64{1, 4}},
		{"InsertBottom", func(v *VM) { v.Insert(0) }, []float64{4, 1, 2, 3}},
		{"InsertMiddle", func(v *VM) { v.Insert(1) }, []float64{1, 4, 2, 3}},
		{"InsertNegative", func(v *VM) { v.Insert(-2) }, []float64{1, 2, 4, 3}},
		{"RemoveBottom", func(v *VM) { v.Remove(0) }, []float64{2, 3, 4}},
		{"RemoveMiddle", func(v *VM) { v.Remove(-3) }, []float64{1, 3, 4}},
		{"RemoveTop", func(v *VM) { v.Remove(-1) }, []float64{1, 2, 3}},
		{"ReplaceBottom", func(v *VM) { v.Replace(0) }, []float64{4, 2, 3}},
		{"ReplaceNegative", func(v *VM) { v.Replace(-3) }, []float64{1, 4, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVM()
			for _, n := range []float64{1, 2, 3, 4} {
				v.PushNumber(n)
			}
			tt.op(v)
			assert.Equal(t, tt.want, stackNumbers(v))
		})
	}
}

func TestStack_IndexOutOfBoundsIsFatal(t *testing.T) {
	ops := map[string]func(v *VM){
		"Insert":  func(v *VM) { v.Insert(5) },
		"Remove":  func(v *VM) { v.Remove(-5) },
		"Replace": func(v *VM) { v.Replace(2) },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			v := NewVM()
			v.PushNumber(1)
			v.PushNumber(2)
			ferr := expectFatal(t, func() { op(v) })
			assert.Equal(t, "stack index out of bounds", ferr.Message())
		})
	}
}

// spill returns a native that pushes as many values as its argument asks,
// reserving room first when checked is set.
func spill(checked bool) NativeFunc {
	return func(v *VM) error {
		n, err := v.ToInteger(0)
		if err != nil {
			return err
		}
		if checked {
			if err := v.CheckStack(int(n)); err != nil {
				return err
			}
		}
		for i := 0; i < int(n); i++ {
			v.PushNumber(float64(i))
		}
		return nil
	}
}

func TestCheckStack_NativeOverflowIsCatchable(t *testing.T) {
	tests := []struct {
		name    string
		checked bool
		count   float64
	}{
		// Reserving up front stops far past the guard zone.
		{"CheckedHuge", true, 100000},
		{"CheckedJustOver", true, 60},
		// Unreserved pushes within the guard zone raise when the native returns.
		{"UncheckedWithinGuard", false, 80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := engine(t, func(c *config.Engine) { c.StackSize = 64 })
			native := v.NewNative("spill", spill(tt.checked), 1)

			v.PushObject(native)
			v.PushUndefined()
			v.PushNumber(tt.count)
			err := v.PCall(1)
			require.Error(t, err)
			ex, ok := err.(*Exception)
			require.True(t, ok, "got %T", err)
			assert.Equal(t, "RangeError: stack overflow", ex.Message())
			assertDepths(t, v, 1, 0, 1, 0)
			v.Pop(1)

			// The engine recovers and can call again.
			v.PushObject(native)
			v.PushUndefined()
			v.PushNumber(3)
			require.NoError(t, v.PCall(1))
			assert.Equal(t, 2.0, v.Get(-1).AsNumber())
			v.Pop(1)
		})
	}
}

func TestCheckStack_WithinCapacity(t *testing.T) {
	v := engine(t, func(c *config.Engine) { c.StackSize = 64 })
	v.PushNumber(1)
	require.NoError(t, v.CheckStack(10))
	require.NoError(t, v.CheckStack(-1))
	assert.Equal(t, 1, v.Top())
}

func TestCheckStack_ScriptCatchesNativeOverflow(t *testing.T) {
	v := engine(t, func(c *config.Engine) { c.StackSize = 64 })
	v.PushObject(v.NewNative("spill", spill(true), 1))
	require.NoError(t, v.SetGlobal("spill"))

	// try { spill(1e6) } catch (e) { return e.name }
	b := NewBuilder("main")
	start := b.NewLabel()
	b.Jump(OpTry, start).
		Named(OpCatch, "e").
		Named(OpGetVar, "e").
		Named(OpGetPropS, "name").
		Emit(OpEndCatch).
		Emit(OpReturn).
		Mark(start).
		Named(OpGetVar, "spill").
		Emit(OpUndef).
		Number(1e6).
		Emit(OpCall, 1).
		Emit(OpPop).
		Emit(OpEndTry).
		Emit(OpUndef).
		Emit(OpReturn)

	res, ex := runMain(t, v, b.MustBuild())
	require.Nil(t, ex)
	assert.Equal(t, "RangeError", res.AsString())
}
