package vm

import (
	"fmt"
	"math"
)

// Label marks a code offset that jumps can target before it is known.
type Label int

// Builder assembles a Function. Constants are deduplicated and jumps to
// labels are patched when the function is built.
type Builder struct {
	fn     *Function
	labels []int // offset per label, -1 while unplaced
	fixups []fixup
}

type fixup struct {
	at    int
	label Label
}

// NewBuilder starts a function with the given name and parameters.
func NewBuilder(name string, params ...string) *Builder {
	return &Builder{fn: &Function{Name: name, Params: params}}
}

func (b *Builder) SetFile(file string, line int) *Builder {
	b.fn.File, b.fn.Line = file, line
	return b
}

func (b *Builder) SetStrict(strict bool) *Builder {
	b.fn.Strict = strict
	return b
}

// SetLightweight marks the function as keeping its locals on the stack.
// locals names the slots after the parameters.
func (b *Builder) SetLightweight(locals ...string) *Builder {
	b.fn.Lightweight = true
	b.fn.Locals = locals
	return b
}

func (b *Builder) SetArguments(uses bool) *Builder {
	b.fn.Arguments = uses
	return b
}

// Offset returns the offset of the next emitted instruction.
func (b *Builder) Offset() int {
	return len(b.fn.Code)
}

// Emit appends an opcode and its raw operands.
func (b *Builder) Emit(op OpCode, operands ...int) *Builder {
	b.fn.Code = append(b.fn.Code, Instruction(op))
	for _, arg := range operands {
		b.fn.Code = append(b.fn.Code, Instruction(arg))
	}
	return b
}

// AddNumber adds a number constant and returns its index.
func (b *Builder) AddNumber(f float64) int {
	for i, existing := range b.fn.Numbers {
		if existing == f && math.Signbit(existing) == math.Signbit(f) {
			return i
		}
	}
	b.fn.Numbers = append(b.fn.Numbers, f)
	return len(b.fn.Numbers) - 1
}

// AddString adds a string constant and returns its index.
func (b *Builder) AddString(s string) int {
	for i, existing := range b.fn.Strings {
		if existing == s {
			return i
		}
	}
	b.fn.Strings = append(b.fn.Strings, s)
	return len(b.fn.Strings) - 1
}

// AddFunction adds a nested function template and returns its index.
func (b *Builder) AddFunction(fn *Function) int {
	b.fn.Funcs = append(b.fn.Funcs, fn)
	return len(b.fn.Funcs) - 1
}

// Number emits the shortest instruction that pushes f.
func (b *Builder) Number(f float64) *Builder {
	switch {
	case f == 0 && !math.Signbit(f):
		return b.Emit(OpNumber0)
	case f == 1:
		return b.Emit(OpNumber1)
	case f == math.Trunc(f) && f > 0 && f <= math.MaxInt32:
		return b.Emit(OpNumberPos, int(f))
	case f == math.Trunc(f) && f < 0 && f >= -math.MaxInt32:
		return b.Emit(OpNumberNeg, int(-f))
	}
	return b.Emit(OpNumber, b.AddNumber(f))
}

// String emits a push of the literal s.
func (b *Builder) String(s string) *Builder {
	return b.Emit(OpString, b.AddString(s))
}

// Named emits op with s as its string-table operand.
func (b *Builder) Named(op OpCode, s string) *Builder {
	if op.Operand() != OperandString {
		panic(fmt.Sprintf("builder: %s does not take a name", op))
	}
	return b.Emit(op, b.AddString(s))
}

// Closure emits creation of a closure over fn.
func (b *Builder) Closure(fn *Function) *Builder {
	return b.Emit(OpClosure, b.AddFunction(fn))
}

// RegExp emits creation of a regexp literal.
func (b *Builder) RegExp(source string, flags RegExpFlags) *Builder {
	return b.Emit(OpNewRegExp, b.AddString(source), int(flags))
}

// NewLabel reserves a label to be placed later with Mark.
func (b *Builder) NewLabel() Label {
	b.labels = append(b.labels, -1)
	return Label(len(b.labels) - 1)
}

// Mark places l at the current offset.
func (b *Builder) Mark(l Label) *Builder {
	b.labels[l] = len(b.fn.Code)
	return b
}

// Jump emits a jump-like op (JUMP, JTRUE, JFALSE, JCASE, TRY) to l.
func (b *Builder) Jump(op OpCode, l Label) *Builder {
	if op.Operand() != OperandTarget {
		panic(fmt.Sprintf("builder: %s is not a jump", op))
	}
	b.Emit(op, 0)
	b.fixups = append(b.fixups, fixup{at: len(b.fn.Code) - 1, label: l})
	return b
}

// Build patches jumps and returns the finished function.
func (b *Builder) Build() (*Function, error) {
	for _, fx := range b.fixups {
		target := b.labels[fx.label]
		if target < 0 {
			return nil, fmt.Errorf("function %s: label %d never placed", b.fn, fx.label)
		}
		b.fn.Code[fx.at] = Instruction(target)
	}
	b.fixups = nil
	return b.fn, nil
}

// MustBuild is Build for functions assembled by trusted code.
func (b *Builder) MustBuild() *Function {
	fn, err := b.Build()
	if err != nil {
		panic(err)
	}
	return fn
}
