package vm

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCall_ReturnsAndRestoresFrame(t *testing.T) {
	v := NewVM()
	first := NewBuilder("first", "a", "b").
		Named(OpGetVar, "a").
		Emit(OpReturn).
		MustBuild()
	main := NewBuilder("main").
		Closure(first).
		Emit(OpUndef).
		Number(7).
		Number(8).
		Emit(OpCall, 2).
		Emit(OpReturn).
		MustBuild()

	res, ex := runMain(t, v, main)
	require.Nil(t, ex)
	assert.Equal(t, 7.0, res.AsNumber())
}

func TestCall_MissingParametersAreUndefined(t *testing.T) {
	v := NewVM()
	second := NewBuilder("second", "a", "b").
		Named(OpGetVar, "b").
		Emit(OpTypeof).
		Emit(OpReturn).
		MustBuild()
	main := NewBuilder("main").
		Closure(second).
		Emit(OpUndef).
		Number(1).
		Emit(OpCall, 1).
		Emit(OpReturn).
		MustBuild()

	res, ex := runMain(t, v, main)
	require.Nil(t, ex)
	assert.Equal(t, "undefined", res.AsString())
}

func TestCall_ArgumentsObject(t *testing.T) {
	v := NewVM()
	count := NewBuilder("count").
		SetArguments(true).
		Named(OpGetVar, "arguments").
		Named(OpGetPropS, "length").
		Emit(OpReturn).
		MustBuild()
	main := NewBuilder("main").
		Closure(count).
		Emit(OpUndef).
		Number(1).
		Number(2).
		Number(3).
		Emit(OpCall, 3).
		Emit(OpReturn).
		MustBuild()

	res, ex := runMain(t, v, main)
	require.Nil(t, ex)
	assert.Equal(t, 3.0, res.AsNumber())
}

func sumFunction() *Function {
	// slots: n=0 i=1 acc=2
	b := NewBuilder("sum", "n").SetLightweight("i", "acc")
	loop, done := b.NewLabel(), b.NewLabel()
	b.Emit(OpNumber0).Emit(OpInitLocal, 2).
		Emit(OpNumber1).Emit(OpInitLocal, 1).
		Mark(loop).
		Emit(OpGetLocal, 1).Emit(OpGetLocal, 0).Emit(OpLe).
		Jump(OpJFalse, done).
		Emit(OpGetLocal, 2).Emit(OpGetLocal, 1).Emit(OpAdd).Emit(OpInitLocal, 2).
		Emit(OpGetLocal, 1).Emit(OpInc).Emit(OpInitLocal, 1).
		Jump(OpJump, loop).
		Mark(done).
		Emit(OpGetLocal, 2).
		Emit(OpReturn)
	return b.MustBuild()
}

func TestCall_Lightweight(t *testing.T) {
	v := NewVM()
	main := NewBuilder("main").
		Closure(sumFunction()).
		Emit(OpUndef).
		Number(10).
		Number(99). // extra argument, dropped
		Emit(OpCall, 2).
		Emit(OpReturn).
		MustBuild()

	res, ex := runMain(t, v, main)
	require.Nil(t, ex)
	assert.Equal(t, 55.0, res.AsNumber())
}

func TestCall_ThisBinding(t *testing.T) {
	for _, strict := range []bool{false, true} {
		v := NewVM()
		self := NewBuilder("self").
			SetStrict(strict).
			Emit(OpThis).
			Emit(OpTypeof).
			Emit(OpReturn).
			MustBuild()
		main := NewBuilder("main").
			Closure(self).
			Emit(OpUndef).
			Emit(OpCall, 0).
			Emit(OpReturn).
			MustBuild()

		res, ex := runMain(t, v, main)
		require.Nil(t, ex)
		if strict {
			assert.Equal(t, "undefined", res.AsString())
		} else {
			assert.Equal(t, "object", res.AsString(), "sloppy undefined this is the global object")
		}
	}
}

func TestConstruct_ResultSelection(t *testing.T) {
	v := NewVM()
	// function F() { this.x = 1; return 7 }
	f := NewBuilder("F").
		Emit(OpThis).
		Number(1).
		Named(OpSetPropS, "x").
		Emit(OpPop).
		Number(7).
		Emit(OpReturn).
		MustBuild()
	// function G() { return {} }
	g := NewBuilder("G").
		Emit(OpNewObject).
		Emit(OpReturn).
		MustBuild()

	mainF := NewBuilder("main").Closure(f).Emit(OpNew, 0).Emit(OpReturn).MustBuild()
	res, ex := runMain(t, v, mainF)
	require.Nil(t, ex)
	require.True(t, res.IsObject(), "a primitive return yields the new object")
	p, ok := res.AsObject().OwnProperty("x")
	require.True(t, ok)
	assert.Equal(t, 1.0, p.Value.AsNumber())

	v.PushObject(v.NewFunction(f, v.GE))
	ok2, err := v.InstanceOf(res, v.Get(-1))
	v.Pop(1)
	require.NoError(t, err)
	assert.False(t, ok2, "a different closure has a different prototype")

	mainG := NewBuilder("main").Closure(g).Emit(OpNew, 0).Emit(OpReturn).MustBuild()
	res, ex = runMain(t, v, mainG)
	require.Nil(t, ex)
	require.True(t, res.IsObject())
	assert.Same(t, v.ObjectPrototype, res.AsObject().Prototype, "the returned object wins")
	_, ok = res.AsObject().OwnProperty("x")
	assert.False(t, ok)
}

func TestConstruct_NotAFunction(t *testing.T) {
	v := NewVM()
	main := NewBuilder("main").Number(3).Emit(OpNew, 0).Emit(OpReturn).MustBuild()
	_, ex := runMain(t, v, main)
	require.NotNil(t, ex)
	assert.Equal(t, "TypeError: number is not a constructor", ex.Message())
}

func TestNative_PaddingAndResult(t *testing.T) {
	v := NewVM()
	var seen int
	native := v.NewNative("arity", func(v *VM) error {
		seen = v.Top()
		v.PushBoolean(v.IsUndefined(2))
		return nil
	}, 3)

	res, err := v.CallValue(ObjectValue(native), Undefined, NumberValue(1))
	require.NoError(t, err)
	assert.Equal(t, 3, seen)
	assert.True(t, res.AsBoolean())
	assertDepths(t, v, 0, 0, 1, 0)

	p, ok := native.OwnProperty("length")
	require.True(t, ok)
	assert.Equal(t, 3.0, p.Value.AsNumber())
	assert.Equal(t, ReadOnly|DontEnum|DontConf, p.Attrs)
	assert.Equal(t, "arity", native.NativeName())
}

func TestNative_ConstructorGetsNullThis(t *testing.T) {
	v := NewVM()
	proto := v.NewObject()
	var this Value
	ctor := v.NewConstructor("Box",
		func(v *VM) error { v.PushUndefined(); return nil },
		func(v *VM) error {
			this = v.This()
			obj := v.newObject(ClassObject, proto)
			v.PushObject(obj)
			return nil
		}, 0, proto)

	v.PushObject(ctor)
	require.NoError(t, v.PConstruct(0))
	res := v.Get(-1)
	v.Pop(1)

	assert.True(t, this.IsNull())
	assert.Same(t, proto, res.AsObject().Prototype)
	p, ok := proto.OwnProperty("constructor")
	require.True(t, ok)
	assert.Same(t, ctor, p.Value.AsObject())
}

func TestNative_HostErrorBecomesError(t *testing.T) {
	v := NewVM()
	native := v.NewNative("fails", func(v *VM) error {
		return errors.New("disk on fire")
	}, 0)

	v.PushObject(native)
	v.PushUndefined()
	err := v.PCall(0)
	require.Error(t, err)
	ex, ok := err.(*Exception)
	require.True(t, ok)
	assert.Equal(t, "Error: disk on fire", ex.Message())
	assert.Equal(t, 1, v.Top(), "the thrown value replaces callee and this")
	v.Pop(1)
	assertDepths(t, v, 0, 0, 1, 0)
}

func TestCall_NotAFunction(t *testing.T) {
	v := NewVM()
	v.PushLiteral("nope")
	v.PushUndefined()
	err := v.PCall(0)
	require.Error(t, err)
	assert.Equal(t, "TypeError: string is not a function", err.(*Exception).Message())
	v.Pop(1)
}

func TestCall_StackTrace(t *testing.T) {
	v := NewVM()
	var trace string
	where := v.NewNative("where", func(v *VM) error {
		trace = v.StackTrace(0)
		v.PushUndefined()
		return nil
	}, 0)
	v.PushObject(where)
	require.NoError(t, v.SetGlobal("where"))

	inner := NewBuilder("inner").
		SetFile("t.js", 10).
		Emit(OpLine, 12).
		Named(OpGetVar, "where").
		Emit(OpUndef).
		Emit(OpCall, 0).
		Emit(OpReturn).
		MustBuild()
	main := NewBuilder("main").
		SetFile("t.js", 0).
		Closure(inner).
		Emit(OpUndef).
		Emit(OpCall, 0).
		Emit(OpReturn).
		MustBuild()

	_, ex := runMain(t, v, main)
	require.Nil(t, ex)
	assert.Equal(t, "\n\tat where (native)\n\tat inner (t.js:12)\n\tat main (t.js)", trace)
}
