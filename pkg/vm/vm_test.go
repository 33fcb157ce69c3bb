package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jscore/pkg/config"
	"jscore/pkg/errors"
)

// engine builds a VM with limits overridden by tune.
func engine(t *testing.T, tune func(*config.Engine)) *VM {
	t.Helper()
	cfg := config.Default().Engine
	if tune != nil {
		tune(&cfg)
	}
	return NewVM(WithConfig(cfg))
}

// runMain runs fn as a script and returns its result, or the exception.
func runMain(t *testing.T, v *VM, fn *Function) (Value, *Exception) {
	t.Helper()
	top, envs, trace, tries := v.Depths()
	err := v.PRun(fn)
	res := v.Get(-1)
	v.Pop(1)
	assertDepths(t, v, top, envs, trace, tries)
	if err != nil {
		ex, ok := err.(*Exception)
		require.True(t, ok, "unexpected error %v", err)
		return res, ex
	}
	return res, nil
}

func assertDepths(t *testing.T, v *VM, top, envs, trace, tries int) {
	t.Helper()
	gotTop, gotEnvs, gotTrace, gotTries := v.Depths()
	assert.Equal(t, []int{top, envs, trace, tries}, []int{gotTop, gotEnvs, gotTrace, gotTries},
		"top, envs, trace, tries")
}

// expectFatal runs fn and returns the fatal error it panicked with.
func expectFatal(t *testing.T, fn func()) (ferr *errors.FatalError) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a fatal engine error")
		var ok bool
		ferr, ok = r.(*errors.FatalError)
		require.True(t, ok, "panicked with %T: %v", r, r)
	}()
	fn()
	return nil
}

func TestNewVM_Defaults(t *testing.T) {
	v := NewVM()
	assert.Equal(t, config.Default().Engine, v.Config())
	assert.NotEqual(t, v.ID(), NewVM().ID())
	assertDepths(t, v, 0, 0, 1, 0)
	assert.Same(t, v.GE, v.Env())
	assert.Nil(t, v.GlobalEnv().Outer())
	assert.Same(t, v.G, v.GlobalEnv().Variables())
}

func TestStack_PushGetPop(t *testing.T) {
	v := NewVM()
	v.PushNumber(1)
	v.PushLiteral("a")
	v.PushUndefined()

	assert.Equal(t, 3, v.Top())
	assert.Equal(t, 1.0, v.Get(0).AsNumber())
	assert.Equal(t, "a", v.Get(1).AsString())
	assert.True(t, v.IsUndefined(-1))
	assert.True(t, v.Get(7).IsUndefined(), "past the top reads undefined")
	assert.True(t, v.Get(-9).IsUndefined(), "below the frame reads undefined")

	v.Rot3()
	assert.True(t, v.IsUndefined(0))
	assert.True(t, v.IsString(-1))

	v.Copy(0)
	assert.Equal(t, 4, v.Top())
	v.SetTop(1)
	assert.Equal(t, 1, v.Top())
	v.Pop(1)
	assert.Equal(t, 0, v.Top())
}

func TestStack_UnderflowIsFatal(t *testing.T) {
	var hooked *errors.FatalError
	v := NewVM(WithPanicHook(func(_ *VM, err *errors.FatalError) { hooked = err }))

	ferr := expectFatal(t, func() { v.Pop(1) })
	assert.Equal(t, "stack underflow", ferr.Message())
	assert.Equal(t, "Fatal", ferr.Kind())
	assert.Same(t, ferr, hooked)
	assert.Contains(t, ferr.Caller.Frame().Function, "vm.(*VM).Pop")
}

func TestStrings_ShortAndHeap(t *testing.T) {
	v := NewVM()
	short := v.NewString("tiny")
	long := v.NewString("a string longer than fifteen bytes")

	assert.Equal(t, TypeShortString, short.Type())
	assert.Equal(t, TypeMemString, long.Type())
	assert.True(t, short.StrictlyEquals(LiteralValue("tiny")))
	assert.Equal(t, "a string longer than fifteen bytes", long.AsString())

	before := v.Heap().Stats().Strings
	v.NewString("tiny again")
	assert.Equal(t, before, v.Heap().Stats().Strings, "short strings are not tracked")
}
