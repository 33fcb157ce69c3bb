package vm

import (
	"fmt"
	"strings"
)

// OpCode defines the type for bytecode instructions.
type OpCode uint8

// Instruction is one slot of a code stream: an opcode or one of its
// operands.
type Instruction uint32

// Enum for Opcodes (stack machine). Operands follow the opcode in the code
// stream; jump targets are absolute offsets into the same function.
const (
	OpPop  OpCode = iota // A ->
	OpDup                // A -> A A
	OpDup2               // A B -> A B A B
	OpRot2               // A B -> B A
	OpRot3               // A B C -> C A B
	OpRot4               // A B C D -> D A B C

	OpNumber0   // -> 0
	OpNumber1   // -> 1
	OpNumberPos // Imm: -> Imm
	OpNumberNeg // Imm: -> -Imm
	OpNumber    // NumIdx: -> Numbers[NumIdx]
	OpString    // StrIdx: -> Strings[StrIdx]

	OpClosure   // FunIdx: -> closure of Funcs[FunIdx] over the current env
	OpNewObject // -> {}
	OpNewArray  // -> []
	OpNewRegExp // StrIdx Flags: -> regexp

	OpUndef // -> undefined
	OpNull  // -> null
	OpTrue  // -> true
	OpFalse // -> false

	OpThis    // -> this
	OpCurrent // -> the running function

	OpInitLocal // Slot: A ->
	OpGetLocal  // Slot: -> A
	OpSetLocal  // Slot: A -> A
	OpDelLocal  // Slot: -> false

	OpInitVar // StrIdx: A ->
	OpDefVar  // StrIdx:
	OpGetVar  // StrIdx: -> A, ReferenceError when unbound
	OpHasVar  // StrIdx: -> A or undefined
	OpSetVar  // StrIdx: A -> A
	OpDelVar  // StrIdx: -> bool

	OpIn         // name obj -> bool
	OpInitProp   // obj name value -> obj
	OpInitGetter // obj name fn -> obj
	OpInitSetter // obj name fn -> obj
	OpGetProp    // obj name -> value
	OpGetPropS   // StrIdx: obj -> value
	OpSetProp    // obj name value -> value
	OpSetPropS   // StrIdx: obj value -> value
	OpDelProp    // obj name -> bool
	OpDelPropS   // StrIdx: obj -> bool

	OpIterator // obj -> iterator
	OpNextIter // iter -> iter name true | false

	OpEval // src -> result of running src in the current scope
	OpCall // N: fn this args... -> result
	OpNew  // N: fn args... -> result

	OpTypeof  // A -> typeof A
	OpPos     // A -> +A
	OpNeg     // A -> -A
	OpBitNot  // A -> ~A
	OpLogNot  // A -> !A
	OpInc     // A -> A+1
	OpDec     // A -> A-1
	OpPostInc // A -> A+1 A
	OpPostDec // A -> A-1 A

	OpMul // A B -> A*B
	OpDiv
	OpMod
	OpAdd
	OpSub
	OpShl
	OpShr
	OpUShr

	OpLt
	OpGt
	OpLe
	OpGe

	OpInstanceof

	OpEq
	OpNe
	OpStrictEq
	OpStrictNe
	OpJCase // Target: A B -> A, or jump with -> when A === B

	OpBitAnd
	OpBitXor
	OpBitOr

	OpThrow    // A -> (unwinds)
	OpTry      // Target: push a handler at the next offset, run the body at Target
	OpEndTry   //
	OpCatch    // StrIdx: exc -> (new catch scope binding exc)
	OpEndCatch //

	OpWith    // obj -> (new scope over obj)
	OpEndWith //

	OpDebugger // dump engine state
	OpJump     // Target
	OpJTrue    // Target: A ->
	OpJFalse   // Target: A ->
	OpReturn   // A -> (return A)

	OpLine // Line: set the current trace line
)

var opNames = [...]string{
	OpPop: "OpPop", OpDup: "OpDup", OpDup2: "OpDup2",
	OpRot2: "OpRot2", OpRot3: "OpRot3", OpRot4: "OpRot4",
	OpNumber0: "OpNumber0", OpNumber1: "OpNumber1",
	OpNumberPos: "OpNumberPos", OpNumberNeg: "OpNumberNeg",
	OpNumber: "OpNumber", OpString: "OpString",
	OpClosure: "OpClosure", OpNewObject: "OpNewObject",
	OpNewArray: "OpNewArray", OpNewRegExp: "OpNewRegExp",
	OpUndef: "OpUndef", OpNull: "OpNull", OpTrue: "OpTrue", OpFalse: "OpFalse",
	OpThis: "OpThis", OpCurrent: "OpCurrent",
	OpInitLocal: "OpInitLocal", OpGetLocal: "OpGetLocal",
	OpSetLocal: "OpSetLocal", OpDelLocal: "OpDelLocal",
	OpInitVar: "OpInitVar", OpDefVar: "OpDefVar", OpGetVar: "OpGetVar",
	OpHasVar: "OpHasVar", OpSetVar: "OpSetVar", OpDelVar: "OpDelVar",
	OpIn: "OpIn", OpInitProp: "OpInitProp",
	OpInitGetter: "OpInitGetter", OpInitSetter: "OpInitSetter",
	OpGetProp: "OpGetProp", OpGetPropS: "OpGetPropS",
	OpSetProp: "OpSetProp", OpSetPropS: "OpSetPropS",
	OpDelProp: "OpDelProp", OpDelPropS: "OpDelPropS",
	OpIterator: "OpIterator", OpNextIter: "OpNextIter",
	OpEval: "OpEval", OpCall: "OpCall", OpNew: "OpNew",
	OpTypeof: "OpTypeof", OpPos: "OpPos", OpNeg: "OpNeg",
	OpBitNot: "OpBitNot", OpLogNot: "OpLogNot",
	OpInc: "OpInc", OpDec: "OpDec", OpPostInc: "OpPostInc", OpPostDec: "OpPostDec",
	OpMul: "OpMul", OpDiv: "OpDiv", OpMod: "OpMod", OpAdd: "OpAdd", OpSub: "OpSub",
	OpShl: "OpShl", OpShr: "OpShr", OpUShr: "OpUShr",
	OpLt: "OpLt", OpGt: "OpGt", OpLe: "OpLe", OpGe: "OpGe",
	OpInstanceof: "OpInstanceof",
	OpEq: "OpEq", OpNe: "OpNe", OpStrictEq: "OpStrictEq", OpStrictNe: "OpStrictNe",
	OpJCase: "OpJCase",
	OpBitAnd: "OpBitAnd", OpBitXor: "OpBitXor", OpBitOr: "OpBitOr",
	OpThrow: "OpThrow", OpTry: "OpTry", OpEndTry: "OpEndTry",
	OpCatch: "OpCatch", OpEndCatch: "OpEndCatch",
	OpWith: "OpWith", OpEndWith: "OpEndWith",
	OpDebugger: "OpDebugger", OpJump: "OpJump",
	OpJTrue: "OpJTrue", OpJFalse: "OpJFalse", OpReturn: "OpReturn",
	OpLine: "OpLine",
}

func (op OpCode) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("UnknownOpcode(%d)", op)
}

// LookupOpCode finds an opcode by name. Both "OpGetVar" and "getvar" forms
// are accepted.
func LookupOpCode(name string) (OpCode, bool) {
	for op, n := range opNames {
		if n == "" {
			continue
		}
		if n == name || strings.EqualFold(n[2:], name) {
			return OpCode(op), true
		}
	}
	return 0, false
}

// OperandKind describes what follows an opcode in the code stream.
type OperandKind uint8

const (
	OperandNone OperandKind = iota
	OperandImm
	OperandNumber
	OperandString
	OperandFunc
	OperandSlot
	OperandCount
	OperandTarget
	OperandLine
	OperandRegExp // string index, then flags
)

// Operand reports what follows op in the code stream.
func (op OpCode) Operand() OperandKind {
	switch op {
	case OpNumberPos, OpNumberNeg:
		return OperandImm
	case OpNumber:
		return OperandNumber
	case OpString, OpInitVar, OpDefVar, OpGetVar, OpHasVar, OpSetVar, OpDelVar,
		OpGetPropS, OpSetPropS, OpDelPropS, OpCatch:
		return OperandString
	case OpClosure:
		return OperandFunc
	case OpInitLocal, OpGetLocal, OpSetLocal, OpDelLocal:
		return OperandSlot
	case OpCall, OpNew:
		return OperandCount
	case OpJCase, OpTry, OpJump, OpJTrue, OpJFalse:
		return OperandTarget
	case OpLine:
		return OperandLine
	case OpNewRegExp:
		return OperandRegExp
	}
	return OperandNone
}

// Width returns the number of code slots the instruction occupies.
func (op OpCode) Width() int {
	switch op.Operand() {
	case OperandNone:
		return 1
	case OperandRegExp:
		return 3
	}
	return 2
}

// Function is a compiled code unit: the template a closure wraps.
type Function struct {
	Name   string
	File   string
	Line   int
	Params []string
	Locals []string // extra stack slots of a lightweight function

	Code    []Instruction
	Numbers []float64
	Strings []string
	Funcs   []*Function

	Strict      bool
	Lightweight bool // no activation object, locals live on the stack
	Arguments   bool // materialize an arguments object
}

func (f *Function) String() string {
	if f.Name == "" {
		return "<anonymous>"
	}
	return f.Name
}

// --- Disassembly ---

// Disassemble returns a human-readable listing of f and its nested
// functions.
func (f *Function) Disassemble() string {
	var builder strings.Builder
	f.disassemble(&builder)
	return builder.String()
}

func (f *Function) disassemble(builder *strings.Builder) {
	flags := ""
	if f.Strict {
		flags += " strict"
	}
	if f.Lightweight {
		flags += " lightweight"
	}
	if f.Arguments {
		flags += " arguments"
	}
	builder.WriteString(fmt.Sprintf("== %s (%s) ==%s\n", f, strings.Join(f.Params, ", "), flags))
	offset := 0
	for offset < len(f.Code) {
		offset = f.disassembleInstruction(builder, offset)
	}
	for _, fn := range f.Funcs {
		builder.WriteString("\n")
		fn.disassemble(builder)
	}
}

// disassembleInstruction appends one instruction to the builder and returns
// the offset of the next one.
func (f *Function) disassembleInstruction(builder *strings.Builder, offset int) int {
	builder.WriteString(fmt.Sprintf("%04d      ", offset))

	op := OpCode(f.Code[offset])
	width := op.Width()
	if offset+width > len(f.Code) {
		builder.WriteString(fmt.Sprintf("%s (missing operand)\n", op))
		return len(f.Code)
	}
	arg := 0
	if width > 1 {
		arg = int(f.Code[offset+1])
	}

	switch op.Operand() {
	case OperandNone:
		builder.WriteString(fmt.Sprintf("%s\n", op))
	case OperandImm:
		builder.WriteString(fmt.Sprintf("%-16s %d\n", op, arg))
	case OperandNumber:
		if arg < len(f.Numbers) {
			builder.WriteString(fmt.Sprintf("%-16s %d '%s'\n", op, arg, NumberToString(f.Numbers[arg])))
		} else {
			builder.WriteString(fmt.Sprintf("%-16s %d (invalid number index)\n", op, arg))
		}
	case OperandString:
		if arg < len(f.Strings) {
			builder.WriteString(fmt.Sprintf("%-16s %d %q\n", op, arg, f.Strings[arg]))
		} else {
			builder.WriteString(fmt.Sprintf("%-16s %d (invalid string index)\n", op, arg))
		}
	case OperandFunc:
		if arg < len(f.Funcs) {
			builder.WriteString(fmt.Sprintf("%-16s %d <%s>\n", op, arg, f.Funcs[arg]))
		} else {
			builder.WriteString(fmt.Sprintf("%-16s %d (invalid function index)\n", op, arg))
		}
	case OperandSlot:
		name := ""
		if slots := append(f.Params[:len(f.Params):len(f.Params)], f.Locals...); arg < len(slots) {
			name = " " + slots[arg]
		}
		builder.WriteString(fmt.Sprintf("%-16s L%d%s\n", op, arg, name))
	case OperandCount:
		builder.WriteString(fmt.Sprintf("%-16s %d args\n", op, arg))
	case OperandTarget:
		builder.WriteString(fmt.Sprintf("%-16s (to %04d)\n", op, arg))
	case OperandLine:
		builder.WriteString(fmt.Sprintf("%-16s %d\n", op, arg))
	case OperandRegExp:
		src := "?"
		if arg < len(f.Strings) {
			src = f.Strings[arg]
		}
		builder.WriteString(fmt.Sprintf("%-16s /%s/%s\n", op, src, RegExpFlags(f.Code[offset+2])))
	}
	return offset + width
}
