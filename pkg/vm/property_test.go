package vm

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var propName = rapid.StringMatching(`[a-z_][a-z0-9_]{0,10}`)

func TestProps_DefineThenGet(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := NewVM()
		name := propName.Draw(t, "name")
		x := rapid.Float64Range(-1e12, 1e12).Draw(t, "x")

		v.PushNewObject()
		v.PushNumber(x)
		if err := v.SetProp(-2, name); err != nil {
			t.Fatalf("SetProp: %v", err)
		}
		if err := v.GetProp(-1, name); err != nil {
			t.Fatalf("GetProp: %v", err)
		}
		if got := v.Get(-1).AsNumber(); got != x {
			t.Fatalf("got %v, want %v", got, x)
		}
		v.Pop(2)
	})
}

func TestProps_DeleteThenHas(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := NewVM()
		names := rapid.SliceOfNDistinct(propName, 1, 8, rapid.ID[string]).Draw(t, "names")
		victim := rapid.SampledFrom(names).Draw(t, "victim")

		v.PushNewObject()
		for _, name := range names {
			v.PushBoolean(true)
			if err := v.SetProp(-2, name); err != nil {
				t.Fatalf("SetProp: %v", err)
			}
		}
		ok, err := v.DelProp(-1, victim)
		if err != nil || !ok {
			t.Fatalf("DelProp(%q) = %v, %v", victim, ok, err)
		}
		found, err := v.HasProp(-1, victim)
		if err != nil || found {
			t.Fatalf("HasProp(%q) after delete = %v, %v", victim, found, err)
		}
		if n := len(v.Get(-1).AsObject().OwnKeys()); n != len(names)-1 {
			t.Fatalf("%d own keys left, want %d", n, len(names)-1)
		}
		v.Pop(1)
	})
}

func TestProps_Attributes(t *testing.T) {
	v := NewVM()
	v.PushNewObject()

	v.PushNumber(1)
	require.NoError(t, v.DefProp(-2, "fixed", ReadOnly|DontConf))

	v.PushNumber(2)
	require.NoError(t, v.SetProp(-2, "fixed"), "sloppy writes to read-only are ignored")
	require.NoError(t, v.GetProp(-1, "fixed"))
	assert.Equal(t, 1.0, v.Get(-1).AsNumber())
	v.Pop(1)

	ok, err := v.DelProp(-1, "fixed")
	require.NoError(t, err)
	assert.False(t, ok)

	p, found, err := v.GetOwnProp(-1, "fixed")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, ReadOnly|DontConf, p.Attrs)

	ok, err = v.DelProp(-1, "absent")
	require.NoError(t, err)
	assert.True(t, ok, "deleting a missing property succeeds")
}

func TestProps_StrictReadOnlyThrows(t *testing.T) {
	v := NewVM()
	v.PushNewObject()
	v.PushNumber(1)
	require.NoError(t, v.DefProp(-2, "fixed", ReadOnly))
	require.NoError(t, v.SetGlobal("o"))

	main := NewBuilder("main").
		SetStrict(true).
		Named(OpGetVar, "o").
		Number(5).
		Named(OpSetPropS, "fixed").
		Emit(OpReturn).
		MustBuild()
	_, ex := runMain(t, v, main)
	require.NotNil(t, ex)
	assert.Equal(t, "TypeError: 'fixed' is read-only", ex.Message())
}

func TestProps_Accessors(t *testing.T) {
	v := NewVM()
	var stored Value
	getter := v.NewNative("get", func(v *VM) error {
		v.PushNumber(42)
		return nil
	}, 0)
	setter := v.NewNative("set", func(v *VM) error {
		stored = v.Get(0)
		v.PushUndefined()
		return nil
	}, 1)

	v.PushNewObject()
	v.PushObject(getter)
	v.PushObject(setter)
	require.NoError(t, v.DefAccessor(-3, "answer", 0))

	require.NoError(t, v.GetProp(-1, "answer"))
	assert.Equal(t, 42.0, v.Get(-1).AsNumber())
	v.Pop(1)

	v.PushLiteral("hi")
	require.NoError(t, v.SetProp(-2, "answer"))
	assert.Equal(t, "hi", stored.AsString())
	assert.Equal(t, 1, v.Top())
}

func TestProps_Inheritance(t *testing.T) {
	v := NewVM()
	proto := v.NewObject()
	v.defOwn(proto, "shared", 0, NumberValue(1))
	child := v.newObject(ClassObject, proto)

	v.PushObject(child)
	require.NoError(t, v.GetProp(-1, "shared"))
	assert.Equal(t, 1.0, v.Get(-1).AsNumber())
	v.Pop(1)

	v.PushNumber(2)
	require.NoError(t, v.SetProp(-2, "shared"))
	_, own := child.OwnProperty("shared")
	assert.True(t, own, "assignment shadows the inherited property")
	p, _ := proto.OwnProperty("shared")
	assert.Equal(t, 1.0, p.Value.AsNumber())
}

func TestProps_NonExtensible(t *testing.T) {
	v := NewVM()
	obj := v.NewObject()
	obj.Extensible = false
	v.PushObject(obj)
	v.PushNumber(1)
	require.NoError(t, v.SetProp(-2, "x"))
	found, err := v.HasProp(-1, "x")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestProps_PrimitiveReceiverIsBoxed(t *testing.T) {
	v := NewVM()
	v.PushLiteral("héllo")
	n, err := v.GetLength(-1)
	require.NoError(t, err)
	assert.Equal(t, 5, n, "length counts runes")
	assert.True(t, v.IsObject(-1), "the slot now holds the String object")

	require.NoError(t, v.GetIndex(-1, 1))
	assert.Equal(t, "é", v.Get(-1).AsString())
	v.Pop(2)

	v.PushUndefined()
	err = v.Try(func() error {
		_, err := v.ToObject(0)
		return err
	})
	require.Error(t, err)
	assert.Equal(t, "TypeError: cannot convert undefined to object", err.(*Exception).Message())
}

func TestArray_Length(t *testing.T) {
	v := NewVM()
	v.PushNewArray()
	for i := 0; i < 3; i++ {
		v.PushNumber(float64(i + 1))
		require.NoError(t, v.SetIndex(-2, i))
	}
	n, err := v.GetLength(-1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, v.SetLength(-1, 1))
	assert.Equal(t, 1, v.Get(-1).AsObject().Length())
	found, err := v.HasIndex(-1, 1)
	require.NoError(t, err)
	assert.False(t, found, "truncation deletes trailing elements")
	found, err = v.HasIndex(-1, 0)
	require.NoError(t, err)
	require.True(t, found)
	v.Pop(1)

	v.PushLiteral("x")
	require.NoError(t, v.SetIndex(-2, 9))
	assert.Equal(t, 10, v.Get(-1).AsObject().Length(), "writing past the end grows the array")

	ok, err := v.DelProp(-1, "length")
	require.NoError(t, err)
	assert.False(t, ok, "length cannot be deleted")
}

func TestArray_InvalidLength(t *testing.T) {
	v := NewVM()
	v.PushNewArray()
	for _, bad := range []float64{-1, 1.5, math.NaN(), math.Inf(1)} {
		err := v.Try(func() error {
			v.PushNumber(bad)
			return v.SetProp(-2, "length")
		})
		require.Error(t, err, "length %v", bad)
		assert.Equal(t, "RangeError: array length", err.(*Exception).Message())
		v.Pop(1)
	}
	assert.Equal(t, 1, v.Top())
}

func TestArray_LengthTracksIndices(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := NewVM()
		v.PushNewArray()
		arr := v.Get(-1).AsObject()
		want := 0
		ops := rapid.SliceOfN(rapid.IntRange(-50, 200), 1, 30).Draw(t, "ops")
		for _, op := range ops {
			if op >= 0 {
				v.PushNumber(float64(op))
				if err := v.SetIndex(-2, op); err != nil {
					t.Fatalf("SetIndex: %v", err)
				}
				if op >= want {
					want = op + 1
				}
			} else {
				newlen := -op
				if err := v.SetLength(-1, newlen); err != nil {
					t.Fatalf("SetLength: %v", err)
				}
				want = newlen
			}
			if arr.Length() != want {
				t.Fatalf("length %d, want %d", arr.Length(), want)
			}
			for _, name := range arr.OwnKeys() {
				if k, err := strconv.Atoi(name); err == nil && k >= arr.Length() {
					t.Fatalf("index %d survives length %d", k, arr.Length())
				}
			}
		}
		v.Pop(1)
	})
}

func primitiveValue(t *rapid.T, v *VM) Value {
	switch rapid.IntRange(0, 5).Draw(t, "kind") {
	case 0:
		return Undefined
	case 1:
		return Null
	case 2:
		return BooleanValue(rapid.Bool().Draw(t, "b"))
	case 3:
		return NumberValue(rapid.SampledFrom([]float64{0, 1, -1, 0.5, math.NaN(), math.Inf(1)}).Draw(t, "n"))
	case 4:
		return v.NewString(rapid.SampledFrom([]string{"", "0", "1", "abc", " 1 ", "NaN", "a long string well past inline"}).Draw(t, "s"))
	}
	return LiteralValue(rapid.SampledFrom([]string{"", "0", "1", "abc"}).Draw(t, "lit"))
}

func TestEquality_StrictImpliesLoose(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := NewVM()
		x := primitiveValue(t, v)
		y := primitiveValue(t, v)
		loose, err := v.LooseEquals(x, y)
		if err != nil {
			t.Fatalf("LooseEquals: %v", err)
		}
		if x.StrictlyEquals(y) && !loose {
			t.Fatalf("%s === %s but not ==", x.Inspect(), y.Inspect())
		}
		back, err := v.LooseEquals(y, x)
		if err != nil || back != loose {
			t.Fatalf("== is not symmetric for %s and %s", x.Inspect(), y.Inspect())
		}
	})
}

func TestEquality_Cases(t *testing.T) {
	v := NewVM()
	obj := ObjectValue(v.NewObject())
	tests := []struct {
		x, y          Value
		loose, strict bool
	}{
		{Undefined, Null, true, false},
		{NumberValue(1), LiteralValue("1"), true, false},
		{True, NumberValue(1), true, false},
		{NaN, NaN, false, false},
		{NumberValue(0), NumberValue(math.Copysign(0, -1)), true, true},
		{v.NewString("a string longer than fifteen"), LiteralValue("a string longer than fifteen"), true, true},
		{obj, obj, true, true},
		{obj, ObjectValue(v.NewObject()), false, false},
		{Null, NumberValue(0), false, false},
	}
	for _, tt := range tests {
		loose, err := v.LooseEquals(tt.x, tt.y)
		require.NoError(t, err)
		assert.Equal(t, tt.loose, loose, "%s == %s", tt.x.Inspect(), tt.y.Inspect())
		assert.Equal(t, tt.strict, tt.x.StrictlyEquals(tt.y), "%s === %s", tt.x.Inspect(), tt.y.Inspect())
	}
}

func TestCompare_NaN(t *testing.T) {
	v := NewVM()
	for _, y := range []Value{NumberValue(1), NaN, LiteralValue("x")} {
		_, okay, err := v.Compare(NaN, y)
		require.NoError(t, err)
		assert.False(t, okay, "NaN vs %s", y.Inspect())
	}
	cmp, okay, err := v.Compare(LiteralValue("a"), LiteralValue("b"))
	require.NoError(t, err)
	assert.True(t, okay)
	assert.Equal(t, -1, cmp)

	b := NewBuilder("main")
	b.Number(math.NaN()).Number(1).Emit(OpGe).Emit(OpReturn)
	res, ex := runMain(t, v, b.MustBuild())
	require.Nil(t, ex)
	assert.False(t, res.AsBoolean())
}

func TestIterator_OrderAndShadowing(t *testing.T) {
	v := NewVM()
	proto := v.NewObject()
	v.defOwn(proto, "d", 0, True)
	v.defOwn(proto, "hidden", 0, True)
	obj := v.newObject(ClassObject, proto)
	v.defOwn(obj, "b", 0, True)
	v.defOwn(obj, "a", 0, True)
	v.defOwn(obj, "hidden", DontEnum, True)

	collect := func(own bool) []string {
		v.PushObject(obj)
		require.NoError(t, v.PushIterator(-1, own))
		var names []string
		for {
			name, ok, err := v.NextIterator(-1)
			require.NoError(t, err)
			if !ok {
				break
			}
			names = append(names, name)
		}
		v.Pop(2)
		return names
	}

	assert.Equal(t, []string{"a", "b", "d"}, collect(false))
	assert.Equal(t, []string{"a", "b"}, collect(true))

	v.PushObject(obj)
	require.NoError(t, v.PushIterator(-1, true))
	obj.deleteOwn("a")
	name, ok, err := v.NextIterator(-1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", name, "deleted names are skipped")
	require.NoError(t, v.ResetIterator(-1))
	name, _, _ = v.NextIterator(-1)
	assert.Equal(t, "b", name)
	v.Pop(2)
}

func TestIterator_StringIndices(t *testing.T) {
	v := NewVM()
	main := NewBuilder("main").
		String("xy").
		Emit(OpIterator).
		Emit(OpNextIter).
		Emit(OpPop).
		Emit(OpReturn).
		MustBuild()
	res, ex := runMain(t, v, main)
	require.Nil(t, ex)
	assert.Equal(t, "0", res.AsString())
}

func TestProps_InheritedReadOnly(t *testing.T) {
	t.Run("Sloppy", func(t *testing.T) {
		v := NewVM()
		proto := v.NewObject()
		v.defOwn(proto, "fixed", ReadOnly, NumberValue(1))
		child := v.newObject(ClassObject, proto)

		v.PushObject(child)
		v.PushNumber(2)
		require.NoError(t, v.SetProp(-2, "fixed"))
		_, own := child.OwnProperty("fixed")
		assert.False(t, own, "an inherited read-only property is not shadowed")
		require.NoError(t, v.GetProp(-1, "fixed"))
		assert.Equal(t, 1.0, v.Get(-1).AsNumber())
		v.Pop(2)
	})

	t.Run("Strict", func(t *testing.T) {
		v := NewVM()
		proto := v.NewObject()
		v.defOwn(proto, "fixed", ReadOnly, NumberValue(1))
		child := v.newObject(ClassObject, proto)
		v.PushObject(child)
		require.NoError(t, v.SetGlobal("o"))

		main := NewBuilder("main").
			SetStrict(true).
			Named(OpGetVar, "o").
			Number(5).
			Named(OpSetPropS, "fixed").
			Emit(OpReturn).
			MustBuild()
		_, ex := runMain(t, v, main)
		require.NotNil(t, ex)
		assert.Equal(t, "TypeError: 'fixed' is read-only", ex.Message())
		_, own := child.OwnProperty("fixed")
		assert.False(t, own)
	})

	t.Run("DefPropStillShadows", func(t *testing.T) {
		v := NewVM()
		proto := v.NewObject()
		v.defOwn(proto, "fixed", ReadOnly, NumberValue(1))
		child := v.newObject(ClassObject, proto)
		v.PushObject(child)
		v.PushNumber(2)
		require.NoError(t, v.DefProp(-2, "fixed", 0))
		p, own := child.OwnProperty("fixed")
		require.True(t, own)
		assert.Equal(t, 2.0, p.Value.AsNumber())
		v.Pop(1)
	})
}

func TestArray_FailedWriteKeepsLength(t *testing.T) {
	v := NewVM()
	arr := v.NewArray()
	arr.Extensible = false
	v.PushObject(arr)
	v.PushNumber(1)
	require.NoError(t, v.SetIndex(-2, 4))
	n, err := v.GetLength(-1)
	require.NoError(t, err)
	assert.Zero(t, n, "a rejected index write does not grow the array")
	v.Pop(1)
}

func TestArray_DefPropGrowsLength(t *testing.T) {
	v := NewVM()
	v.PushNewArray()
	v.PushNumber(1)
	require.NoError(t, v.DefProp(-2, "3", 0))
	n, err := v.GetLength(-1)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	v.Pop(1)
}

func TestObject_SealAndFreeze(t *testing.T) {
	tests := []struct {
		name           string
		lock           func(*Object)
		sealed, frozen bool
		writable       bool
	}{
		{"Open", func(*Object) {}, false, false, true},
		{"NonExtensible", func(o *Object) { o.Extensible = false }, false, false, true},
		{"Sealed", (*Object).Seal, true, false, true},
		{"Frozen", (*Object).Freeze, true, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVM()
			obj := v.NewObject()
			v.defOwn(obj, "x", 0, NumberValue(1))
			tt.lock(obj)
			assert.Equal(t, tt.sealed, obj.Sealed())
			assert.Equal(t, tt.frozen, obj.Frozen())

			v.PushObject(obj)
			v.PushNumber(2)
			require.NoError(t, v.SetProp(-2, "x"))
			require.NoError(t, v.GetProp(-1, "x"))
			want := 1.0
			if tt.writable {
				want = 2
			}
			assert.Equal(t, want, v.Get(-1).AsNumber())
			v.Pop(1)

			ok, err := v.DelProp(-1, "x")
			require.NoError(t, err)
			assert.Equal(t, !tt.sealed, ok)
			v.Pop(1)
		})
	}
}

func TestObject_FreezeKeepsAccessors(t *testing.T) {
	v := NewVM()
	obj := v.NewObject()
	getter := v.NewNative("get", func(v *VM) error {
		v.PushNumber(7)
		return nil
	}, 0)
	v.PushObject(obj)
	v.PushObject(getter)
	v.PushUndefined()
	require.NoError(t, v.DefAccessor(-3, "x", 0))
	obj.Freeze()
	assert.True(t, obj.Frozen())
	p, ok := obj.OwnProperty("x")
	require.True(t, ok)
	assert.Equal(t, DontConf, p.Attrs, "accessors are never read-only")
	v.Pop(1)
}

func TestArray_FrozenLength(t *testing.T) {
	v := NewVM()
	arr := v.NewArray()
	v.PushObject(arr)
	v.PushNumber(1)
	require.NoError(t, v.SetIndex(-2, 0))
	arr.Freeze()
	assert.True(t, arr.Frozen())

	require.NoError(t, v.SetLength(-1, 0))
	n, err := v.GetLength(-1)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "a frozen array keeps its length")

	p, ok, err := v.GetOwnProp(-1, "length")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ReadOnly|DontEnum|DontConf, p.Attrs)
	v.Pop(1)
}

func TestProps_VirtualFieldsAreOwn(t *testing.T) {
	v := NewVM()
	str := v.NewStringObject("héllo")
	re, err := v.NewRegExp("a", RegExpGlobal)
	require.NoError(t, err)

	tests := []struct {
		name  string
		obj   *Object
		field string
		want  Value
		attrs Attr
	}{
		{"ArrayLength", v.NewArray(), "length", NumberValue(0), DontEnum | DontConf},
		{"StringLength", str, "length", NumberValue(5), ReadOnly | DontEnum | DontConf},
		{"StringIndex", str, "1", v.NewString("é"), ReadOnly | DontConf},
		{"RegExpSource", re, "source", v.NewString("a"), ReadOnly | DontEnum | DontConf},
		{"RegExpGlobal", re, "global", True, ReadOnly | DontEnum | DontConf},
		{"RegExpLastIndex", re, "lastIndex", NumberValue(0), DontEnum | DontConf},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v.PushObject(tt.obj)
			p, ok, err := v.GetOwnProp(-1, tt.field)
			require.NoError(t, err)
			require.True(t, ok)
			assert.True(t, tt.want.StrictlyEquals(p.Value), "got %s", p.Value.Inspect())
			assert.Equal(t, tt.attrs, p.Attrs)
			v.Pop(1)
		})
	}

	v.PushObject(str)
	names, err := v.OwnPropertyNames(-1)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1", "2", "3", "4", "length"}, names)
	v.Pop(1)
}

func TestIterator_StringIndicesNumericOrder(t *testing.T) {
	v := NewVM()
	str := v.NewStringObject("abcdefghijkl")
	v.defOwn(str, "extra", 0, True)
	v.defOwn(str, "10x", 0, True)

	v.PushObject(str)
	require.NoError(t, v.PushIterator(-1, true))
	var names []string
	for {
		name, ok, err := v.NextIterator(-1)
		require.NoError(t, err)
		if !ok {
			break
		}
		names = append(names, name)
	}
	v.Pop(2)

	want := make([]string, 0, 14)
	for k := 0; k < 12; k++ {
		want = append(want, strconv.Itoa(k))
	}
	want = append(want, "10x", "extra")
	assert.Equal(t, want, names)
}

func TestArray_TruncationStopsAtNonConfigurable(t *testing.T) {
	tests := []struct {
		name    string
		sparse  bool
		pinned  int
		wantLen int
		kept    []string
	}{
		{"Dense", false, 2, 3, []string{"0", "1", "2"}},
		{"Sparse", true, 2, 3, []string{"0", "2"}},
		{"PinnedBelowTarget", false, 0, 1, []string{"0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVM()
			arr := v.NewArray()
			v.PushObject(arr)
			for k := 0; k < 5; k++ {
				if tt.sparse && k%2 == 1 {
					continue
				}
				v.PushNumber(float64(k))
				atts := Attr(0)
				if k == tt.pinned {
					atts = DontConf
				}
				require.NoError(t, v.DefProp(-2, strconv.Itoa(k), atts))
			}
			if tt.sparse {
				require.NoError(t, v.SetLength(-1, 100))
			}
			require.NoError(t, v.SetLength(-1, 1))
			assert.Equal(t, tt.wantLen, arr.Length())
			assert.Equal(t, tt.kept, arr.OwnKeys())
			v.Pop(1)
		})
	}
}
