package vm

import (
	"fmt"
	"math"
)

// run executes F in the current frame until OpReturn. Exceptions addressed
// to a try record this loop pushed resume at the record's handler; all
// others are returned to the caller.
func (vm *VM) run(F *Function) error {
	owner := vm.newOwner()
	code := F.Code
	NT := F.Numbers
	ST := F.Strings
	FT := F.Funcs

	savestrict := vm.strict
	vm.strict = F.Strict

	pc := 0
	for {
		err := vm.maybeCollect()
		if err == nil {
			if pc >= len(code) {
				vm.fatal("pc %d out of range in %s", pc, F)
			}
			op := OpCode(code[pc])
			pc++

			if debugVM {
				fmt.Printf("[DEBUG run.go] %s %04d %-16s top=%d bot=%d\n", F, pc-1, op, vm.top, vm.bot)
			}

			switch op {
			case OpPop:
				vm.Pop(1)
			case OpDup:
				vm.Dup()
			case OpDup2:
				vm.Dup2()
			case OpRot2:
				vm.Rot2()
			case OpRot3:
				vm.Rot3()
			case OpRot4:
				vm.Rot4()

			case OpNumber0:
				vm.PushNumber(0)
			case OpNumber1:
				vm.PushNumber(1)
			case OpNumberPos:
				vm.PushNumber(float64(code[pc]))
				pc++
			case OpNumberNeg:
				vm.PushNumber(-float64(code[pc]))
				pc++
			case OpNumber:
				vm.PushNumber(NT[code[pc]])
				pc++
			case OpString:
				vm.PushLiteral(ST[code[pc]])
				pc++

			case OpClosure:
				vm.PushObject(vm.NewFunction(FT[code[pc]], vm.E))
				pc++
			case OpNewObject:
				vm.PushNewObject()
			case OpNewArray:
				vm.PushNewArray()
			case OpNewRegExp:
				err = vm.PushRegExp(ST[code[pc]], RegExpFlags(code[pc+1]))
				pc += 2

			case OpUndef:
				vm.PushUndefined()
			case OpNull:
				vm.PushNull()
			case OpTrue:
				vm.PushBoolean(true)
			case OpFalse:
				vm.PushBoolean(false)

			case OpThis:
				this := vm.This()
				if vm.strict || this.IsCoercible() {
					vm.PushValue(this)
				} else {
					vm.PushGlobal()
				}
			case OpCurrent:
				vm.CurrentFunction()

			case OpInitLocal:
				v := vm.Get(-1)
				vm.Pop(1)
				vm.stack[vm.bot+int(code[pc])] = v
				pc++
			case OpGetLocal:
				vm.PushValue(vm.stack[vm.bot+int(code[pc])])
				pc++
			case OpSetLocal:
				vm.stack[vm.bot+int(code[pc])] = vm.stack[vm.top-1]
				pc++
			case OpDelLocal:
				pc++
				vm.PushBoolean(false)

			case OpInitVar:
				if err = vm.initVar(ST[code[pc]], -1); err == nil {
					vm.Pop(1)
				}
				pc++
			case OpDefVar:
				err = vm.defVar(ST[code[pc]])
				pc++
			case OpGetVar:
				name := ST[code[pc]]
				pc++
				var found bool
				if found, err = vm.hasVar(name); err == nil && !found {
					err = vm.ThrowReferenceError("'%s' is not defined", name)
				}
			case OpHasVar:
				var found bool
				if found, err = vm.hasVar(ST[code[pc]]); err == nil && !found {
					vm.PushUndefined()
				}
				pc++
			case OpSetVar:
				err = vm.setVar(ST[code[pc]])
				pc++
			case OpDelVar:
				var b bool
				if b, err = vm.delVar(ST[code[pc]]); err == nil {
					vm.PushBoolean(b)
				}
				pc++

			case OpIn:
				err = vm.opIn()
			case OpInitProp:
				err = vm.opInitProp()
			case OpInitGetter:
				err = vm.opInitAccessor(true)
			case OpInitSetter:
				err = vm.opInitAccessor(false)
			case OpGetProp:
				err = vm.opGetProp()
			case OpGetPropS:
				err = vm.opGetPropS(ST[code[pc]])
				pc++
			case OpSetProp:
				err = vm.opSetProp()
			case OpSetPropS:
				err = vm.opSetPropS(ST[code[pc]])
				pc++
			case OpDelProp:
				err = vm.opDelProp()
			case OpDelPropS:
				err = vm.opDelPropS(ST[code[pc]])
				pc++

			case OpIterator:
				if !vm.IsUndefined(-1) && !vm.IsNull(-1) {
					var obj *Object
					if obj, err = vm.ToObject(-1); err == nil {
						it := vm.newIterator(obj, false)
						vm.Pop(1)
						vm.PushObject(it)
					}
				}
			case OpNextIter:
				v := vm.Get(-1)
				if v.IsObject() && v.obj.Class == ClassIterator {
					if name, ok := v.obj.iter.next(); ok {
						vm.PushLiteral(name)
						vm.PushBoolean(true)
						break
					}
				}
				vm.Pop(1)
				vm.PushBoolean(false)

			case OpEval:
				err = vm.eval()
			case OpCall:
				err = vm.Call(int(code[pc]))
				pc++
			case OpNew:
				err = vm.Construct(int(code[pc]))
				pc++

			case OpTypeof:
				s := vm.Get(-1).TypeOf()
				vm.Pop(1)
				vm.PushLiteral(s)
			case OpPos, OpNeg, OpInc, OpDec, OpPostInc, OpPostDec:
				var x float64
				if x, err = vm.ToNumber(-1); err == nil {
					vm.Pop(1)
					switch op {
					case OpPos:
						vm.PushNumber(x)
					case OpNeg:
						vm.PushNumber(-x)
					case OpInc:
						vm.PushNumber(x + 1)
					case OpDec:
						vm.PushNumber(x - 1)
					case OpPostInc:
						vm.PushNumber(x + 1)
						vm.PushNumber(x)
					case OpPostDec:
						vm.PushNumber(x - 1)
						vm.PushNumber(x)
					}
				}
			case OpBitNot:
				var ix int32
				if ix, err = vm.ToInt32(-1); err == nil {
					vm.Pop(1)
					vm.PushNumber(float64(^ix))
				}
			case OpLogNot:
				b := vm.ToBoolean(-1)
				vm.Pop(1)
				vm.PushBoolean(!b)

			case OpMul, OpDiv, OpMod, OpSub:
				var x, y float64
				if x, y, err = vm.popNumbers(); err == nil {
					switch op {
					case OpMul:
						vm.PushNumber(x * y)
					case OpDiv:
						vm.PushNumber(x / y)
					case OpMod:
						vm.PushNumber(math.Mod(x, y))
					case OpSub:
						vm.PushNumber(x - y)
					}
				}
			case OpAdd:
				err = vm.concat()

			case OpShl, OpShr, OpUShr, OpBitAnd, OpBitXor, OpBitOr:
				err = vm.opBitwise(op)

			case OpLt, OpGt, OpLe, OpGe:
				var cmp int
				var okay bool
				if cmp, okay, err = vm.Compare(vm.Get(-2), vm.Get(-1)); err == nil {
					vm.Pop(2)
					switch op {
					case OpLt:
						vm.PushBoolean(okay && cmp < 0)
					case OpGt:
						vm.PushBoolean(okay && cmp > 0)
					case OpLe:
						vm.PushBoolean(okay && cmp <= 0)
					case OpGe:
						vm.PushBoolean(okay && cmp >= 0)
					}
				}

			case OpInstanceof:
				var b bool
				if b, err = vm.InstanceOf(vm.Get(-2), vm.Get(-1)); err == nil {
					vm.Pop(2)
					vm.PushBoolean(b)
				}

			case OpEq, OpNe:
				var b bool
				if b, err = vm.LooseEquals(vm.Get(-2), vm.Get(-1)); err == nil {
					vm.Pop(2)
					vm.PushBoolean(b == (op == OpEq))
				}
			case OpStrictEq, OpStrictNe:
				b := vm.Get(-2).StrictlyEquals(vm.Get(-1))
				vm.Pop(2)
				vm.PushBoolean(b == (op == OpStrictEq))
			case OpJCase:
				target := int(code[pc])
				pc++
				if vm.Get(-2).StrictlyEquals(vm.Get(-1)) {
					vm.Pop(2)
					pc = target
				} else {
					vm.Pop(1)
				}

			case OpThrow:
				err = vm.Throw()
			case OpTry:
				target := int(code[pc])
				pc++
				vm.pushTry(owner, pc)
				pc = target
			case OpEndTry:
				vm.endTry()
			case OpCatch:
				name := ST[code[pc]]
				pc++
				scope := vm.newObject(ClassObject, nil)
				vm.defOwn(scope, name, DontEnum|DontConf, vm.Get(-1))
				vm.E = vm.newEnv(scope, vm.E)
				vm.Pop(1)
			case OpEndCatch:
				vm.E = vm.E.outer

			case OpWith:
				var obj *Object
				if obj, err = vm.ToObject(-1); err == nil {
					vm.E = vm.newEnv(obj, vm.E)
					vm.Pop(1)
				}
			case OpEndWith:
				vm.E = vm.E.outer

			case OpDebugger:
				vm.trap(F, pc-1)
			case OpJump:
				pc = int(code[pc])
			case OpJTrue, OpJFalse:
				target := int(code[pc])
				pc++
				b := vm.ToBoolean(-1)
				vm.Pop(1)
				if b == (op == OpJTrue) {
					pc = target
				}

			case OpReturn:
				vm.dropTries(owner)
				vm.strict = savestrict
				return nil

			case OpLine:
				vm.trace[len(vm.trace)-1].Line = int(code[pc])
				pc++

			default:
				vm.fatal("unknown opcode %s at %04d in %s", op, pc-1, F)
			}
		}

		if err == nil && vm.overflow {
			err = vm.stackOverflow()
		}
		if err != nil {
			ex, ok := caught(err, owner)
			if !ok {
				return err
			}
			pc = ex.pc
		}
	}
}

// popNumbers converts the top two values to numbers and pops them.
func (vm *VM) popNumbers() (float64, float64, error) {
	x, err := vm.ToNumber(-2)
	if err != nil {
		return 0, 0, err
	}
	y, err := vm.ToNumber(-1)
	if err != nil {
		return 0, 0, err
	}
	vm.Pop(2)
	return x, y, nil
}

func (vm *VM) opBitwise(op OpCode) error {
	var res float64
	switch op {
	case OpUShr:
		ux, err := vm.ToUint32(-2)
		if err != nil {
			return err
		}
		uy, err := vm.ToUint32(-1)
		if err != nil {
			return err
		}
		res = float64(ux >> (uy & 0x1F))
	case OpShl, OpShr:
		ix, err := vm.ToInt32(-2)
		if err != nil {
			return err
		}
		uy, err := vm.ToUint32(-1)
		if err != nil {
			return err
		}
		if op == OpShl {
			res = float64(ix << (uy & 0x1F))
		} else {
			res = float64(ix >> (uy & 0x1F))
		}
	default:
		ix, err := vm.ToInt32(-2)
		if err != nil {
			return err
		}
		iy, err := vm.ToInt32(-1)
		if err != nil {
			return err
		}
		switch op {
		case OpBitAnd:
			res = float64(ix & iy)
		case OpBitXor:
			res = float64(ix ^ iy)
		case OpBitOr:
			res = float64(ix | iy)
		}
	}
	vm.Pop(2)
	vm.PushNumber(res)
	return nil
}

func (vm *VM) opIn() error {
	name, err := vm.ToString(-2)
	if err != nil {
		return err
	}
	if !vm.IsObject(-1) {
		return vm.ThrowTypeError("operand to 'in' is not an object")
	}
	found, err := vm.hasProperty(vm.Get(-1).obj, name)
	if err != nil {
		return err
	}
	if found {
		vm.Pop(3)
	} else {
		vm.Pop(2)
	}
	vm.PushBoolean(found)
	return nil
}

func (vm *VM) opInitProp() error {
	obj, err := vm.ToObject(-3)
	if err != nil {
		return err
	}
	name, err := vm.ToString(-2)
	if err != nil {
		return err
	}
	if err := vm.setProperty(obj, name); err != nil {
		return err
	}
	vm.Pop(2)
	return nil
}

func (vm *VM) opInitAccessor(getter bool) error {
	obj, err := vm.ToObject(-3)
	if err != nil {
		return err
	}
	name, err := vm.ToString(-2)
	if err != nil {
		return err
	}
	fn, err := vm.toFunction(-1)
	if err != nil {
		return err
	}
	if getter {
		err = vm.defProperty(obj, name, 0, nil, fn, nil)
	} else {
		err = vm.defProperty(obj, name, 0, nil, nil, fn)
	}
	if err != nil {
		return err
	}
	vm.Pop(2)
	return nil
}

func (vm *VM) opGetProp() error {
	name, err := vm.ToString(-1)
	if err != nil {
		return err
	}
	obj, err := vm.ToObject(-2)
	if err != nil {
		return err
	}
	if err := vm.getProperty(obj, name); err != nil {
		return err
	}
	vm.Rot3Pop2()
	return nil
}

func (vm *VM) opGetPropS(name string) error {
	obj, err := vm.ToObject(-1)
	if err != nil {
		return err
	}
	if err := vm.getProperty(obj, name); err != nil {
		return err
	}
	vm.Rot2Pop1()
	return nil
}

func (vm *VM) opSetProp() error {
	name, err := vm.ToString(-2)
	if err != nil {
		return err
	}
	obj, err := vm.ToObject(-3)
	if err != nil {
		return err
	}
	if err := vm.setProperty(obj, name); err != nil {
		return err
	}
	vm.Rot3Pop2()
	return nil
}

func (vm *VM) opSetPropS(name string) error {
	obj, err := vm.ToObject(-2)
	if err != nil {
		return err
	}
	if err := vm.setProperty(obj, name); err != nil {
		return err
	}
	vm.Rot2Pop1()
	return nil
}

func (vm *VM) opDelProp() error {
	name, err := vm.ToString(-1)
	if err != nil {
		return err
	}
	obj, err := vm.ToObject(-2)
	if err != nil {
		return err
	}
	b, err := vm.delProperty(obj, name)
	if err != nil {
		return err
	}
	vm.Pop(2)
	vm.PushBoolean(b)
	return nil
}

func (vm *VM) opDelPropS(name string) error {
	obj, err := vm.ToObject(-1)
	if err != nil {
		return err
	}
	b, err := vm.delProperty(obj, name)
	if err != nil {
		return err
	}
	vm.Pop(1)
	vm.PushBoolean(b)
	return nil
}

// eval runs the string on top of the stack as a script in the current
// scope. Non-string operands are the result unchanged.
func (vm *VM) eval() error {
	if !vm.IsString(-1) {
		return nil
	}
	if vm.evalHook == nil {
		return vm.ThrowEvalError("eval is not supported")
	}
	fn, err := vm.evalHook(vm, vm.Get(-1).AsString())
	if err != nil {
		if _, ok := err.(*Exception); ok {
			return err
		}
		return vm.ThrowSyntaxError("%s", err.Error())
	}
	scope := vm.E
	if vm.strict {
		scope = vm.newEnv(vm.newObject(ClassObject, nil), vm.E)
	}
	vm.Pop(1)
	vm.PushObject(vm.NewScript(fn, scope))
	vm.PushValue(vm.This())
	return vm.Call(0)
}

// Run executes fn as a top-level script in the global environment and
// pushes its completion value.
func (vm *VM) Run(fn *Function) error {
	vm.PushObject(vm.NewScript(fn, vm.GE))
	vm.PushUndefined()
	return vm.Call(0)
}

// PRun is Run guarded like PCall: on a throw the thrown value is left on
// the stack and the exception is returned.
func (vm *VM) PRun(fn *Function) error {
	vm.PushObject(vm.NewScript(fn, vm.GE))
	vm.PushUndefined()
	return vm.PCall(0)
}
