package asm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"jscore/pkg/vm"
)

// Disassemble converts a function back to its unit form. Jump targets
// become labels named after their offsets. Nested functions without a
// unique name are named fn0, fn1 and so on after their index.
func Disassemble(fn *vm.Function) *Unit {
	u := &Unit{
		Name:        fn.Name,
		File:        fn.File,
		Line:        fn.Line,
		Params:      fn.Params,
		Locals:      fn.Locals,
		Strict:      fn.Strict,
		Lightweight: fn.Lightweight,
		Arguments:   fn.Arguments,
	}

	names := nestedNames(fn.Funcs)
	for i, nested := range fn.Funcs {
		sub := Disassemble(nested)
		sub.Name = names[i]
		if sub.File == fn.File {
			sub.File = ""
		}
		u.Functions = append(u.Functions, sub)
	}

	targets := map[int]bool{}
	for pc := 0; pc < len(fn.Code); {
		op := vm.OpCode(fn.Code[pc])
		if op.Operand() == vm.OperandTarget && pc+1 < len(fn.Code) {
			targets[int(fn.Code[pc+1])] = true
		}
		pc += op.Width()
	}

	slots := append(append([]string(nil), fn.Params...), fn.Locals...)
	for pc := 0; pc < len(fn.Code); {
		if targets[pc] {
			u.Code = append(u.Code, Instr{Args: []string{"label", labelName(pc)}})
			delete(targets, pc)
		}
		op := vm.OpCode(fn.Code[pc])
		if pc+op.Width() > len(fn.Code) {
			break
		}
		args := []string{strings.ToLower(strings.TrimPrefix(op.String(), "Op"))}
		arg := 0
		if op.Width() > 1 {
			arg = int(fn.Code[pc+1])
		}
		switch op.Operand() {
		case vm.OperandNone:
		case vm.OperandNumber:
			args = append(args, formatNumber(fn.Numbers[arg]))
		case vm.OperandString:
			args = append(args, fn.Strings[arg])
		case vm.OperandFunc:
			args = append(args, names[arg])
		case vm.OperandSlot:
			if arg < len(slots) {
				args = append(args, slots[arg])
			} else {
				args = append(args, strconv.Itoa(arg))
			}
		case vm.OperandTarget:
			args = append(args, labelName(arg))
		case vm.OperandRegExp:
			args = append(args, fn.Strings[arg], vm.RegExpFlags(fn.Code[pc+2]).String())
		default:
			args = append(args, strconv.Itoa(arg))
		}
		u.Code = append(u.Code, Instr{Args: args})
		pc += op.Width()
	}

	// Targets at or past the end of the code.
	rest := make([]int, 0, len(targets))
	for pc := range targets {
		rest = append(rest, pc)
	}
	sort.Ints(rest)
	for _, pc := range rest {
		u.Code = append(u.Code, Instr{Args: []string{"label", labelName(pc)}})
	}
	return u
}

// Format renders fn as YAML.
func Format(fn *vm.Function) ([]byte, error) {
	data, err := yaml.Marshal(Disassemble(fn))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "format %s", fn)
	}
	return data, nil
}

func labelName(pc int) string {
	return fmt.Sprintf("L%04d", pc)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func nestedNames(funcs []*vm.Function) []string {
	count := map[string]int{}
	for _, fn := range funcs {
		count[fn.Name]++
	}
	names := make([]string, len(funcs))
	for i, fn := range funcs {
		if fn.Name != "" && count[fn.Name] == 1 {
			names[i] = fn.Name
		} else {
			names[i] = fmt.Sprintf("fn%d", i)
		}
	}
	return names
}
