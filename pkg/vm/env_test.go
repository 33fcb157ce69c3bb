package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWith_ResolvesThroughObject(t *testing.T) {
	v := NewVM()
	v.PushNumber(1)
	require.NoError(t, v.SetGlobal("x"))
	v.PushNewObject()
	v.PushNumber(2)
	require.NoError(t, v.SetProp(-2, "x"))
	require.NoError(t, v.SetGlobal("o"))

	// with (o) { t = x; x = 5 } return t + x
	main := NewBuilder("main").
		Named(OpGetVar, "o").
		Emit(OpWith).
		Named(OpGetVar, "x").
		Number(5).Named(OpSetVar, "x").Emit(OpPop).
		Emit(OpEndWith).
		Named(OpGetVar, "x").
		Emit(OpAdd).
		Emit(OpReturn).
		MustBuild()

	res, ex := runMain(t, v, main)
	require.Nil(t, ex)
	assert.Equal(t, 3.0, res.AsNumber())

	require.NoError(t, v.GetGlobal("o"))
	require.NoError(t, v.GetProp(-1, "x"))
	assert.Equal(t, 5.0, v.Get(-1).AsNumber(), "assignment inside with lands on the object")
	v.Pop(2)
	require.NoError(t, v.GetGlobal("x"))
	assert.Equal(t, 1.0, v.Get(-1).AsNumber())
	v.Pop(1)
}

func TestRegistry_RootsAndRefs(t *testing.T) {
	v := NewVM()
	v.PushNewObject()
	v.PushString("a string long enough to need the heap")
	require.NoError(t, v.SetProp(-2, "s"))
	ref, err := v.Ref()
	require.NoError(t, err)
	assert.Zero(t, v.Top(), "Ref pops the value")

	v.PushNewObject()
	other, err := v.Ref()
	require.NoError(t, err)
	assert.NotEqual(t, ref, other)

	v.PushBoolean(true)
	name, err := v.Ref()
	require.NoError(t, err)
	assert.Equal(t, "_True", name)

	v.GC()
	require.NoError(t, v.GetRegistry(ref))
	require.NoError(t, v.GetProp(-1, "s"))
	assert.Equal(t, "a string long enough to need the heap", v.Get(-1).AsString())
	v.Pop(2)

	live := v.Heap().Stats().Objects
	require.NoError(t, v.DelRegistry(ref))
	v.GC()
	assert.Equal(t, live-1, v.Heap().Stats().Objects)

	require.NoError(t, v.GetRegistry(ref))
	assert.True(t, v.IsUndefined(-1))
	v.Pop(1)
}
