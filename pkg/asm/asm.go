package asm

import (
	"fmt"
	"math"
	"os"
	"strconv"

	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"jscore/pkg/errors"
	"jscore/pkg/vm"
)

// Parse decodes a unit from YAML. file is used in error positions.
func Parse(data []byte, file string) (*Unit, error) {
	var u Unit
	if err := yaml.Unmarshal(data, &u); err != nil {
		return nil, (&errors.LoadError{
			Position: errors.Position{File: file},
			Msg:      "invalid unit: " + err.Error(),
		}).CausedBy(err)
	}
	return &u, nil
}

// Load reads, parses and assembles the unit at path.
func Load(path string) (*vm.Function, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "cannot read %s", path)
	}
	u, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	if u.File == "" {
		u.File = path
	}
	return Assemble(u)
}

// Assemble builds a function from a unit. Nested functions inherit the
// file name of their parent when they do not set one.
func Assemble(u *Unit) (*vm.Function, error) {
	a := &assembler{unit: u, b: vm.NewBuilder(u.Name, u.Params...)}
	return a.assemble()
}

type assembler struct {
	unit   *Unit
	b      *vm.Builder
	labels map[string]vm.Label
	placed map[string]bool
	funcs  map[string]*vm.Function
	slots  []string
}

func (a *assembler) errorf(line int, format string, args ...any) error {
	return &errors.LoadError{
		Position: errors.Position{File: a.unit.File, Line: line},
		Msg:      fmt.Sprintf("%s: %s", a.unit.describe(), fmt.Sprintf(format, args...)),
	}
}

func (u *Unit) describe() string {
	if u.Name == "" {
		return "<anonymous>"
	}
	return u.Name
}

func (a *assembler) assemble() (*vm.Function, error) {
	u := a.unit
	a.b.SetFile(u.File, u.Line).SetStrict(u.Strict).SetArguments(u.Arguments)
	if u.Lightweight {
		a.b.SetLightweight(u.Locals...)
	} else if len(u.Locals) > 0 {
		return nil, a.errorf(0, "locals need lightweight: true")
	}
	a.slots = append(append([]string(nil), u.Params...), u.Locals...)

	a.funcs = make(map[string]*vm.Function)
	for _, nested := range u.Functions {
		if nested.File == "" {
			nested.File = u.File
		}
		fn, err := Assemble(nested)
		if err != nil {
			return nil, err
		}
		if nested.Name != "" {
			if _, dup := a.funcs[nested.Name]; dup {
				return nil, a.errorf(0, "duplicate function %q", nested.Name)
			}
			a.funcs[nested.Name] = fn
		}
	}

	a.labels = make(map[string]vm.Label)
	a.placed = make(map[string]bool)
	for _, in := range u.Code {
		if err := a.instr(in); err != nil {
			return nil, err
		}
	}
	for name := range a.labels {
		if !a.placed[name] {
			return nil, a.errorf(0, "label %q is never placed", name)
		}
	}

	fn, err := a.b.Build()
	if err != nil {
		return nil, a.errorf(0, "%v", err)
	}
	return fn, nil
}

func (a *assembler) label(name string) vm.Label {
	l, ok := a.labels[name]
	if !ok {
		l = a.b.NewLabel()
		a.labels[name] = l
	}
	return l
}

func (a *assembler) instr(in Instr) error {
	name := in.op()
	if name == "" {
		return a.errorf(in.Line, "empty instruction")
	}
	args := in.Args[1:]

	if name == "label" {
		if len(args) != 1 {
			return a.errorf(in.Line, "label takes one name")
		}
		if a.placed[args[0]] {
			return a.errorf(in.Line, "label %q placed twice", args[0])
		}
		a.placed[args[0]] = true
		a.b.Mark(a.label(args[0]))
		return nil
	}

	op, ok := vm.LookupOpCode(name)
	if !ok {
		return a.errorf(in.Line, "unknown opcode %q", name)
	}
	want := 1
	switch op.Operand() {
	case vm.OperandNone:
		want = 0
	case vm.OperandRegExp:
		want = 2
	}
	if op.Operand() == vm.OperandRegExp && len(args) == 1 {
		args = append(args, "")
	}
	if len(args) != want {
		return a.errorf(in.Line, "%s takes %d operand(s), got %d", op, want, len(args))
	}

	switch op.Operand() {
	case vm.OperandNone:
		a.b.Emit(op)
	case vm.OperandNumber:
		f, err := parseNumber(args[0])
		if err != nil {
			return a.errorf(in.Line, "bad number %q", args[0])
		}
		a.b.Number(f)
	case vm.OperandString:
		if op == vm.OpString {
			a.b.String(args[0])
		} else {
			a.b.Named(op, args[0])
		}
	case vm.OperandFunc:
		fn, ok := a.funcs[args[0]]
		if !ok {
			return a.errorf(in.Line, "no function named %q", args[0])
		}
		a.b.Closure(fn)
	case vm.OperandSlot:
		slot, err := a.slot(args[0])
		if err != nil {
			return a.errorf(in.Line, "%v", err)
		}
		a.b.Emit(op, slot)
	case vm.OperandTarget:
		a.b.Jump(op, a.label(args[0]))
	case vm.OperandRegExp:
		flags, ok := vm.ParseRegExpFlags(args[1])
		if !ok {
			return a.errorf(in.Line, "bad regexp flags %q", args[1])
		}
		a.b.RegExp(args[0], flags)
	default: // immediate, count, line
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 || n > math.MaxInt32 {
			return a.errorf(in.Line, "%s needs a non-negative integer, got %q", op, args[0])
		}
		a.b.Emit(op, n)
	}
	return nil
}

// slot resolves a local slot given as a number or a parameter/local name.
func (a *assembler) slot(arg string) (int, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 0 || n >= len(a.slots) {
			return 0, fmt.Errorf("slot %d out of range", n)
		}
		return n, nil
	}
	for i, name := range a.slots {
		if name == arg {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no local named %q", arg)
}

// parseNumber accepts decimal and hex literals, NaN and Infinity.
func parseNumber(s string) (float64, error) {
	switch s {
	case "NaN":
		return math.NaN(), nil
	case "Infinity", "+Infinity":
		return math.Inf(1), nil
	case "-Infinity":
		return math.Inf(-1), nil
	}
	return strconv.ParseFloat(s, 64)
}
