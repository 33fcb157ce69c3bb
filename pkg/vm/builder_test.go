package vm

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_NumberEncoding(t *testing.T) {
	tests := []struct {
		in   float64
		want []Instruction
	}{
		{0, []Instruction{Instruction(OpNumber0)}},
		{1, []Instruction{Instruction(OpNumber1)}},
		{5, []Instruction{Instruction(OpNumberPos), 5}},
		{-3, []Instruction{Instruction(OpNumberNeg), 3}},
		{0.5, []Instruction{Instruction(OpNumber), 0}},
		{math.Copysign(0, -1), []Instruction{Instruction(OpNumber), 0}},
	}
	for _, tt := range tests {
		fn := NewBuilder("n").Number(tt.in).MustBuild()
		assert.Equal(t, tt.want, fn.Code, "%v", tt.in)
	}

	fn := NewBuilder("n").Number(0.5).Number(0.5).Number(math.Copysign(0, -1)).MustBuild()
	assert.Len(t, fn.Numbers, 2, "constants are deduplicated, -0 kept apart")
}

func TestBuilder_Labels(t *testing.T) {
	b := NewBuilder("main")
	end := b.NewLabel()
	b.Emit(OpTrue).Jump(OpJTrue, end).Emit(OpUndef).Mark(end).Emit(OpNull)
	fn := b.MustBuild()
	assert.Equal(t, []Instruction{
		Instruction(OpTrue),
		Instruction(OpJTrue), 4,
		Instruction(OpUndef),
		Instruction(OpNull),
	}, fn.Code)

	b = NewBuilder("broken")
	b.Jump(OpJump, b.NewLabel())
	_, err := b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "never placed")
	assert.Panics(t, func() { b.MustBuild() })

	assert.Panics(t, func() { NewBuilder("x").Jump(OpCall, 0) })
	assert.Panics(t, func() { NewBuilder("x").Named(OpAdd, "y") })
}

func TestBuilder_Strings(t *testing.T) {
	fn := NewBuilder("s").String("a").Named(OpGetVar, "a").String("b").MustBuild()
	assert.Equal(t, []string{"a", "b"}, fn.Strings)
}

func TestLookupOpCode(t *testing.T) {
	for _, name := range []string{"getvar", "OpGetVar", "GETVAR"} {
		op, ok := LookupOpCode(name)
		require.True(t, ok, name)
		assert.Equal(t, OpGetVar, op)
	}
	_, ok := LookupOpCode("frobnicate")
	assert.False(t, ok)
	assert.Equal(t, "OpLine", OpLine.String())
	assert.True(t, strings.HasPrefix(OpCode(250).String(), "UnknownOpcode"))
}

func TestOpCode_Operands(t *testing.T) {
	tests := []struct {
		op    OpCode
		kind  OperandKind
		width int
	}{
		{OpPop, OperandNone, 1},
		{OpNumberPos, OperandImm, 2},
		{OpNumber, OperandNumber, 2},
		{OpCatch, OperandString, 2},
		{OpClosure, OperandFunc, 2},
		{OpGetLocal, OperandSlot, 2},
		{OpNew, OperandCount, 2},
		{OpTry, OperandTarget, 2},
		{OpLine, OperandLine, 2},
		{OpNewRegExp, OperandRegExp, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.kind, tt.op.Operand(), tt.op.String())
		assert.Equal(t, tt.width, tt.op.Width(), tt.op.String())
	}
}

func TestFunction_Disassemble(t *testing.T) {
	inner := NewBuilder("inner", "x").SetLightweight("y").
		Emit(OpGetLocal, 1).
		Emit(OpReturn).
		MustBuild()
	b := NewBuilder("main").SetStrict(true)
	end := b.NewLabel()
	b.Closure(inner).
		Number(2.5).
		String("hi").
		RegExp("a", RegExpGlobal).
		Jump(OpJump, end).
		Mark(end).
		Emit(OpCall, 0).
		Emit(OpReturn)
	text := b.MustBuild().Disassemble()

	for _, want := range []string{
		"== main () == strict\n",
		"0000      OpClosure        0 <inner>\n",
		"OpNumber         0 '2.5'\n",
		`OpString         0 "hi"` + "\n",
		"OpNewRegExp      /a/g\n",
		"OpJump           (to 0011)\n",
		"OpCall           0 args\n",
		"== inner (x) == lightweight\n",
		"OpGetLocal       L1 y\n",
	} {
		assert.Contains(t, text, want)
	}
}
