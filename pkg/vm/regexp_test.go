package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegExpFlags(t *testing.T) {
	f, ok := ParseRegExpFlags("mig")
	require.True(t, ok)
	assert.Equal(t, RegExpGlobal|RegExpIgnoreCase|RegExpMultiline, f)
	assert.Equal(t, "gim", f.String())

	for _, bad := range []string{"gg", "x", "gx"} {
		_, ok := ParseRegExpFlags(bad)
		assert.False(t, ok, bad)
	}
	f, ok = ParseRegExpFlags("")
	assert.True(t, ok)
	assert.Zero(t, f)
}

func TestRegExp_Exec(t *testing.T) {
	v := NewVM()
	obj, err := v.NewRegExp("a(b)?", RegExpGlobal)
	require.NoError(t, err)
	re := obj.RegExp()

	m, err := re.Exec("xab a", 0)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 1, m.Index)
	assert.Equal(t, 3, m.End)
	assert.Equal(t, []string{"ab", "b"}, m.Captures)
	assert.Equal(t, []bool{true, true}, m.Matched)

	m, err = re.Exec("xab a", m.End)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 4, m.Index)
	assert.Equal(t, []bool{true, false}, m.Matched)

	m, err = re.Exec("xab a", 5)
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = re.Exec("xab a", 99)
	require.NoError(t, err)
	assert.Nil(t, m, "start past the end never matches")
}

func TestRegExp_RuneOffsetsAndCase(t *testing.T) {
	v := NewVM()
	obj, err := v.NewRegExp("B", RegExpIgnoreCase)
	require.NoError(t, err)
	m, err := obj.RegExp().Exec("ééb", 0)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 2, m.Index)
}

func TestRegExp_Fields(t *testing.T) {
	v := NewVM()
	require.NoError(t, v.PushRegExp("x+", RegExpGlobal|RegExpMultiline))

	for name, want := range map[string]any{
		"source":     "x+",
		"global":     true,
		"ignoreCase": false,
		"multiline":  true,
		"lastIndex":  0.0,
	} {
		require.NoError(t, v.GetProp(-1, name))
		got := v.Get(-1)
		switch w := want.(type) {
		case string:
			assert.Equal(t, w, got.AsString(), name)
		case bool:
			assert.Equal(t, w, got.AsBoolean(), name)
		case float64:
			assert.Equal(t, w, got.AsNumber(), name)
		}
		v.Pop(1)
	}

	v.PushNumber(7.9)
	require.NoError(t, v.SetProp(-2, "lastIndex"))
	assert.Equal(t, 7, v.Get(-1).AsObject().RegExp().LastIndex)

	v.PushLiteral("y")
	require.NoError(t, v.SetProp(-2, "source"), "sloppy writes to fields are ignored")
	assert.Equal(t, "x+", v.Get(-1).AsObject().RegExp().Source)
}

func TestRegExp_CompileCache(t *testing.T) {
	v := NewVM()
	_, err := v.NewRegExp("c+", 0)
	require.NoError(t, err)
	_, err = v.NewRegExp("c+", 0)
	require.NoError(t, err)
	_, err = v.NewRegExp("c+", RegExpIgnoreCase)
	require.NoError(t, err)
	assert.Equal(t, 2, v.regexps.Len())
}

func TestRegExp_SyntaxError(t *testing.T) {
	v := NewVM()
	err := v.Try(func() error {
		_, err := v.NewRegExp("(", 0)
		return err
	})
	require.Error(t, err)
	assert.Contains(t, err.(*Exception).Message(), "SyntaxError: invalid regular expression")
}

func TestRegExp_Literal(t *testing.T) {
	v := NewVM()
	main := NewBuilder("main").
		RegExp("a+", RegExpGlobal|RegExpIgnoreCase).
		Named(OpGetPropS, "ignoreCase").
		Emit(OpReturn).
		MustBuild()
	res, ex := runMain(t, v, main)
	require.Nil(t, ex)
	assert.True(t, res.AsBoolean())
}

func TestRegExp_FlagOptions(t *testing.T) {
	tests := []struct {
		name   string
		source string
		flags  RegExpFlags
		input  string
		index  int
	}{
		{"Plain", "b", 0, "aBb", 2},
		{"IgnoreCase", "b", RegExpIgnoreCase, "aBb", 1},
		{"AnchorWithoutMultiline", "^b", 0, "a\nb", -1},
		{"Multiline", "^b", RegExpMultiline, "a\nb", 2},
		{"IgnoreCaseMultiline", "^B$", RegExpIgnoreCase | RegExpMultiline, "a\nb\nc", 2},
		{"GlobalOnlyAffectsLastIndex", "b", RegExpGlobal, "ab", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVM()
			obj, err := v.NewRegExp(tt.source, tt.flags)
			require.NoError(t, err)
			m, err := obj.RegExp().Exec(tt.input, 0)
			require.NoError(t, err)
			if tt.index < 0 {
				assert.Nil(t, m)
				return
			}
			require.NotNil(t, m)
			assert.Equal(t, tt.index, m.Index)
		})
	}
}
