package vm

import (
	"fmt"
	"math"

	"grotsky/internal/bytecode"
	"grotsky/internal/errors"
	"grotsky/internal/value"
)

const maxFrames = 2048

// tryRegion is one active try/catch region: the frame depth it guards and
// the PC to resume at, within that same frame, on a caught throw.
type tryRegion struct {
	frameDepth int
	catchPC    int
}

// VM is grotsky's single-threaded bytecode interpreter. One VM owns one
// running program; spec.md §9 deliberately rules out concurrent execution
// within a single VM instance.
type VM struct {
	program *bytecode.Program
	frames  []*Frame
	globals map[string]value.Value
	builtin map[string]value.Value
	tryRegs []tryRegion
	currExc value.Value

	// SkipBacktrace (GROTSKY_SKIP_BACKTRACE) leaves the frame backtrace and
	// the Go-level stack out of an uncaught exception's report, matching
	// spec.md's supplemented CLI behavior.
	SkipBacktrace bool
}

// New builds a VM ready to run program, with builtin holding one Native
// module Value per name in spec.md's builtin namespace (io, strings,
// type, env, import, net, re, process, lists, plus the additive db,
// crypto, time modules).
func New(program *bytecode.Program, builtin map[string]value.Value) *VM {
	return &VM{
		program: program,
		globals: map[string]value.Value{},
		builtin: builtin,
		currExc: value.Nil(),
	}
}

// Run executes the program's top-level chunk to completion and returns its
// top-level Return value (spec.md's process exit code is derived from
// this by the CLI).
func (vm *VM) Run() (value.Value, error) {
	top := newFrame(vm.program.TopLevel, nil, 0)
	vm.frames = append(vm.frames, top)
	return vm.loop()
}

// RunLine executes program as the VM's new top-level chunk while keeping
// the existing globals map intact, so a name bound by one REPL line stays
// visible to the next. internal/repl compiles each line against the same
// Compiler instance (so its compile-time globals set survives too) and
// feeds the resulting program through this method rather than Run, which
// would otherwise discard prior bindings by starting from vm.globals as
// constructed in New.
func (vm *VM) RunLine(program *bytecode.Program) (value.Value, error) {
	vm.program = program
	// Start from a fresh frame stack: an uncaught exception on an earlier
	// line releases its frames but leaves them on vm.frames.
	vm.frames = []*Frame{newFrame(program.TopLevel, nil, 0)}
	return vm.loop()
}

func (vm *VM) frame() *Frame { return vm.frames[len(vm.frames)-1] }

func (vm *VM) constant(idx uint16) value.Value { return vm.program.Constants[idx] }

// loop is the dispatch loop: fetch-decode-execute until the outermost
// frame returns or an uncaught exception propagates out of the program.
func (vm *VM) loop() (value.Value, error) {
	for {
		f := vm.frame()
		if f.pc >= len(f.proto.Code) {
			// Fell off the end without an explicit Return.
			if done, result, err := vm.doReturn(value.Nil()); done {
				return result, err
			}
			continue
		}
		instr := f.proto.Code[f.pc]
		f.pc++

		switch instr.OpCode() {
		case bytecode.OpMove:
			v := f.Get(instr.B())
			value.Retain(v)
			f.Set(instr.A(), v)
		case bytecode.OpLoadK:
			v := vm.constant(instr.Bx())
			value.Retain(v)
			f.Set(instr.A(), v)
		case bytecode.OpLoadNil:
			f.Set(instr.A(), value.Nil())

		case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod, bytecode.OpPow:
			a, b := f.Get(instr.B()), f.Get(instr.C())
			if a.Kind == value.KindObject {
				if name, ok := operatorMethodName(instr.OpCode()); ok {
					if method, found := value.AsObject(a).Class.FindMethod(name); found {
						if done, result, err := vm.callOperatorMethod(method, a, b, instr.A()); done {
							return result, err
						}
						continue
					}
				}
			}
			res, err := vm.arith(instr.OpCode(), a, b)
			if err != nil {
				if done, result, rerr := vm.throwGo(err); done {
					return result, rerr
				}
				continue
			}
			f.Set(instr.A(), res)
		case bytecode.OpAddI:
			f.Set(instr.A(), value.Number(value.AsNumber(f.Get(instr.B()))+float64(int8(instr.C()))))
		case bytecode.OpSubI:
			f.Set(instr.A(), value.Number(value.AsNumber(f.Get(instr.B()))-float64(int8(instr.C()))))
		case bytecode.OpNeg:
			f.Set(instr.A(), value.Number(-value.AsNumber(f.Get(instr.B()))))
		case bytecode.OpNot:
			f.Set(instr.A(), value.Bool(!value.IsTruthy(f.Get(instr.B()))))

		case bytecode.OpLt, bytecode.OpLte, bytecode.OpGt, bytecode.OpGte:
			res, err := vm.compare(instr.OpCode(), f.Get(instr.B()), f.Get(instr.C()))
			if err != nil {
				if done, result, rerr := vm.throwGo(err); done {
					return result, rerr
				}
				continue
			}
			f.Set(instr.A(), value.Bool(res))
		case bytecode.OpEq:
			f.Set(instr.A(), value.Bool(value.Equals(f.Get(instr.B()), f.Get(instr.C()))))
		case bytecode.OpNeq:
			f.Set(instr.A(), value.Bool(!value.Equals(f.Get(instr.B()), f.Get(instr.C()))))

		case bytecode.OpTest:
			want := instr.C() != 0
			if value.IsTruthy(f.Get(instr.A())) == want {
				f.pc++
			}
		case bytecode.OpJmp:
			f.pc += int(instr.SBx())

		case bytecode.OpGetUpval:
			v := f.closure.Upvalues[instr.B()].V
			value.Retain(v)
			f.Set(instr.A(), v)
		case bytecode.OpSetUpval:
			cell := f.closure.Upvalues[instr.B()]
			v := f.Get(instr.A())
			value.Retain(v)
			value.Release(cell.V)
			cell.V = v
		case bytecode.OpGetGlobal:
			name := value.AsString(vm.constant(instr.Bx()))
			v, ok := vm.globals[name]
			if !ok {
				if done, result, rerr := vm.throwGo(errors.NewRuntimeError(errors.KindUndefinedVariable, "undefined global '%s'", name)); done {
					return result, rerr
				}
				continue
			}
			value.Retain(v)
			f.Set(instr.A(), v)
		case bytecode.OpSetGlobal:
			name := value.AsString(vm.constant(instr.Bx()))
			v := f.Get(instr.A())
			value.Retain(v)
			if old, ok := vm.globals[name]; ok {
				value.Release(old)
			}
			vm.globals[name] = v
		case bytecode.OpGetBuiltin:
			name := value.AsString(vm.constant(instr.Bx()))
			v := vm.builtin[name]
			value.Retain(v)
			f.Set(instr.A(), v)
		case bytecode.OpGetCurrentFunc:
			v := value.WrapFn(f.closure)
			value.Retain(v)
			f.Set(instr.A(), v)

		case bytecode.OpClosure:
			vm.execClosure(f, instr)

		case bytecode.OpCall:
			if done, result, err := vm.execCall(instr); done {
				return result, err
			}
		case bytecode.OpReturn:
			var rv value.Value
			if instr.B() == 1 {
				rv = f.Get(instr.A())
			} else {
				rv = value.Nil()
			}
			if done, result, err := vm.doReturn(rv); done {
				return result, err
			}

		case bytecode.OpList:
			f.Set(instr.A(), value.NewList(make([]value.Value, 0, instr.B())))
		case bytecode.OpPushList:
			l := value.AsList(f.Get(instr.A()))
			v := f.Get(instr.B())
			value.Retain(v)
			l.Elements = append(l.Elements, v)
		case bytecode.OpDict:
			f.Set(instr.A(), value.NewDict())
		case bytecode.OpPushDict:
			d := value.AsDict(f.Get(instr.A()))
			key := f.Get(instr.B())
			hk, ok := value.HashKey(key)
			if !ok {
				if done, result, rerr := vm.throwGo(errors.NewRuntimeError(errors.KindExpectedKey, "unhashable dict key of kind %s", key.Kind)); done {
					return result, rerr
				}
				continue
			}
			val := f.Get(instr.C())
			value.Retain(key)
			value.Retain(val)
			d.SetHashed(hk, key, val)
		case bytecode.OpSlice:
			base := instr.B()
			first, second, third := f.Get(base+1), f.Get(base+2), f.Get(base+3)
			value.Retain(first)
			value.Retain(second)
			value.Retain(third)
			f.Set(instr.A(), value.NewSlice(first, second, third))
		case bytecode.OpAccess:
			res, err := vm.access(f.Get(instr.B()), f.Get(instr.C()))
			if err != nil {
				if done, result, rerr := vm.throwGo(err); done {
					return result, rerr
				}
				continue
			}
			f.Set(instr.A(), res)
		case bytecode.OpSet:
			if err := vm.setIndex(f.Get(instr.A()), f.Get(instr.B()), f.Get(instr.C())); err != nil {
				if done, result, rerr := vm.throwGo(err); done {
					return result, rerr
				}
				continue
			}
		case bytecode.OpLength:
			n, err := vm.length(f.Get(instr.B()))
			if err != nil {
				if done, result, rerr := vm.throwGo(err); done {
					return result, rerr
				}
				continue
			}
			f.Set(instr.A(), value.Number(n))

		case bytecode.OpGetIter:
			f.Set(instr.A(), vm.makeIterator(f.Get(instr.B())))
		case bytecode.OpGetIterK:
			cursor := value.AsNative(f.Get(instr.B())).Baggage.(*iterCursor)
			key, ok := cursor.advance()
			f.Set(instr.A(), value.Bool(ok))
			if ok {
				value.Retain(key)
				f.Set(instr.C(), key)
			}
		case bytecode.OpGetIterI:
			cursor := value.AsNative(f.Get(instr.B())).Baggage.(*iterCursor)
			cur := cursor.current()
			value.Retain(cur)
			f.Set(instr.C(), cur)

		case bytecode.OpClass:
			name := value.AsString(f.Get(instr.B()))
			var super *value.ClassObj
			supV := f.Get(instr.C())
			if supV.Kind == value.KindClass {
				super = value.AsClass(supV)
				value.Retain(supV)
			} else if supV.Kind != value.KindNil {
				if done, result, rerr := vm.throwGo(errors.NewRuntimeError(errors.KindExpectedSuperclass, "superclass must be a class")); done {
					return result, rerr
				}
				continue
			}
			f.Set(instr.A(), value.NewClass(&value.ClassObj{
				Name: name, Superclass: super,
				Methods: map[string]value.Value{}, StaticMeth: map[string]value.Value{},
			}))
		case bytecode.OpClassMeth:
			cls := value.AsClass(f.Get(instr.A()))
			methodVal := f.Get(instr.B())
			fn := value.AsFn(methodVal)
			value.Retain(methodVal)
			cls.Methods[fn.Name] = methodVal
		case bytecode.OpClassStMeth:
			cls := value.AsClass(f.Get(instr.A()))
			methodVal := f.Get(instr.B())
			fn := value.AsFn(methodVal)
			value.Retain(methodVal)
			cls.StaticMeth[fn.Name] = methodVal
		case bytecode.OpGetObj:
			res, err := vm.getObjProperty(f.Get(instr.B()), value.AsString(f.Get(instr.C())))
			if err != nil {
				if done, result, rerr := vm.throwGo(err); done {
					return result, rerr
				}
				continue
			}
			f.Set(instr.A(), res)
		case bytecode.OpSetObj:
			obj := value.AsObject(f.Get(instr.A()))
			name := value.AsString(f.Get(instr.B()))
			v := f.Get(instr.C())
			value.Retain(v)
			if old, ok := obj.Fields[name]; ok {
				value.Release(old)
			}
			obj.Fields[name] = v
		case bytecode.OpThis:
			v := f.Get(0)
			value.Retain(v)
			f.Set(instr.A(), v)
		case bytecode.OpSuper:
			this := f.Get(0)
			name := value.AsString(f.Get(instr.B()))
			superCls := value.AsClass(f.Get(instr.C()))
			method, ok := superCls.FindMethod(name)
			if !ok {
				if done, result, rerr := vm.throwGo(errors.NewRuntimeError(errors.KindMethodNotFound, "undefined method '%s'", name)); done {
					return result, rerr
				}
				continue
			}
			f.Set(instr.A(), bindMethod(method, this))

		case bytecode.OpRegisterTryCatch:
			vm.tryRegs = append(vm.tryRegs, tryRegion{
				frameDepth: len(vm.frames) - 1,
				catchPC:    f.pc + int(instr.SBx()),
			})
		case bytecode.OpDeregisterTryCatch:
			if len(vm.tryRegs) > 0 {
				vm.tryRegs = vm.tryRegs[:len(vm.tryRegs)-1]
			}
		case bytecode.OpGetExcept:
			if instr.B() == 1 {
				rethrown := f.Get(instr.A())
				value.Retain(rethrown)
				if done, result, err := vm.throwValue(rethrown); done {
					return result, err
				}
				continue
			}
			value.Retain(vm.currExc)
			f.Set(instr.A(), vm.currExc)

		default:
			if done, result, err := vm.throwGo(errors.NewRuntimeError(errors.KindUndefinedOperation, "unimplemented opcode %s", instr.OpCode())); done {
				return result, err
			}
		}
	}
}

// execClosure handles OP_CLOSURE plus its trailing upvalue-descriptor
// pseudo-instructions (one MOVE or GETUPVAL per captured variable,
// matching the encoding compileFunction emits).
func (vm *VM) execClosure(f *Frame, instr bytecode.Instruction) {
	protoIdx := int(instr.Bx())
	proto := vm.program.Prototypes[protoIdx]
	upvals := make([]*value.UpvalueCell, len(proto.Upvalues))
	for i, uv := range proto.Upvalues {
		pseudo := f.proto.Code[f.pc]
		f.pc++
		if uv.IsLocal {
			upvals[i] = f.cellFor(pseudo.B())
		} else {
			upvals[i] = f.closure.Upvalues[pseudo.B()]
		}
		upvals[i].Retain()
	}
	f.Set(instr.A(), value.NewFn(&value.FnObj{
		ProtoIndex: protoIdx, Upvalues: upvals, Name: proto.Name,
	}))
}

// bindMethod returns a fresh FnObj sharing the looked-up method's
// prototype/upvalues but carrying its own Bound receiver, so that binding
// one instance's method never perturbs another's (spec.md §8).
func bindMethod(method value.Value, this value.Value) value.Value {
	fn := value.AsFn(method)
	bound := this
	return value.NewFn(&value.FnObj{
		ProtoIndex: fn.ProtoIndex, Upvalues: fn.Upvalues, Name: fn.Name, Native: fn.Native, Bound: &bound,
	})
}

// execCall implements the Call protocol (spec.md §4.3): evaluate the
// callee and its argument block, prepend a bound receiver if the callee
// carries one, then either run a native function inline or push a new
// frame for a grotsky closure. Returns (true, result, err) only when this
// call unwound the entire program (the outermost frame returned or an
// uncaught exception escaped it).
func (vm *VM) execCall(instr bytecode.Instruction) (bool, value.Value, error) {
	f := vm.frame()
	calleeReg := instr.A()
	nargs := int(instr.B())
	callee := f.Get(calleeReg)

	args := make([]value.Value, 0, nargs+1)
	switch callee.Kind {
	case value.KindFn:
		fn := value.AsFn(callee)
		if fn.Bound != nil {
			args = append(args, *fn.Bound)
		}
		for i := 0; i < nargs; i++ {
			args = append(args, f.Get(calleeReg+1+uint8(i)))
		}
		if fn.Native != nil {
			result, err := fn.Native.Fn(args)
			if err != nil {
				return vm.throwGo(err)
			}
			f.Set(calleeReg, result)
			return false, value.Value{}, nil
		}
		return vm.callClosure(fn, args, calleeReg)
	case value.KindClass:
		for i := 0; i < nargs; i++ {
			args = append(args, f.Get(calleeReg+1+uint8(i)))
		}
		return vm.instantiate(value.AsClass(callee), args, calleeReg)
	default:
		return vm.throwGo(errors.NewRuntimeError(errors.KindOnlyFunctionsCall, "value of kind %s is not callable", callee.Kind))
	}
}

func (vm *VM) callClosure(fn *value.FnObj, args []value.Value, retReg uint8) (bool, value.Value, error) {
	if len(vm.frames) >= maxFrames {
		return vm.throwGo(errors.NewRuntimeError(errors.KindMaxRecursion, "maximum recursion depth exceeded"))
	}
	proto := vm.program.Prototypes[fn.ProtoIndex]
	nf := newFrame(proto, fn, retReg)
	for i := 0; i < proto.Arity && i < len(args); i++ {
		value.Retain(args[i])
		nf.registers[i] = args[i]
	}
	vm.frames = append(vm.frames, nf)
	return false, value.Value{}, nil
}

// instantiate runs the Class-call protocol: allocate a fresh object,
// invoke its class's `init` constructor if one is defined (a bug the
// teacher's OP_INSTANCE never gets around to), and leave the object
// itself as the call's result.
func (vm *VM) instantiate(cls *value.ClassObj, args []value.Value, retReg uint8) (bool, value.Value, error) {
	obj := &value.ObjectObj{Class: cls, Fields: map[string]value.Value{}}
	objVal := value.NewObject(obj)

	init, ok := cls.FindMethod("init")
	if !ok {
		vm.frame().Set(retReg, objVal)
		return false, value.Value{}, nil
	}
	bound := bindMethod(init, objVal)
	fn := value.AsFn(bound)
	fullArgs := append([]value.Value{objVal}, args...)
	if len(vm.frames) >= maxFrames {
		return vm.throwGo(errors.NewRuntimeError(errors.KindMaxRecursion, "maximum recursion depth exceeded"))
	}
	proto := vm.program.Prototypes[fn.ProtoIndex]
	nf := newFrame(proto, fn, retReg)
	for i := 0; i < proto.Arity && i < len(fullArgs); i++ {
		value.Retain(fullArgs[i])
		nf.registers[i] = fullArgs[i]
	}
	// A constructor's own `return` is discarded; the instance itself is
	// always the result of a class call. Stash it so doReturn can swap it
	// in once this frame unwinds.
	nf.ctorResult = &objVal
	vm.frames = append(vm.frames, nf)
	return false, value.Value{}, nil
}

// doReturn pops the current frame, delivering its return value into the
// caller, or finishes the program if the outermost frame just returned.
func (vm *VM) doReturn(rv value.Value) (bool, value.Value, error) {
	finished := vm.frames[len(vm.frames)-1]
	if finished.ctorResult != nil {
		// The constructor's own return value is discarded in favor of the
		// instance; *ctorResult is a reference finished.release() never owns
		// a share of directly (any share it holds comes from the `this`
		// register, released below on its own), so it needs no protecting.
		rv = *finished.ctorResult
	} else {
		// rv may be one of finished's own registers (the common `return x`
		// case) or a value living in a cell finished is about to drop its
		// own share of: protect it across the frame's teardown so it
		// survives with exactly the share that belongs to the caller.
		value.Retain(rv)
	}
	vm.frames = vm.frames[:len(vm.frames)-1]
	if len(vm.frames) == 0 {
		// Nothing is left to hand rv off to: either the program itself is
		// finishing (Run/RunLine, whose caller only ever wants rv) or this
		// is a module's top-level frame (RunModule, whose caller still
		// needs to read the rest of finished's registers back out before
		// it's safe to drop their shares).
		if !finished.keepAlive {
			finished.release()
		}
		return true, rv, nil
	}
	finished.release()
	caller := vm.frame()
	caller.Set(finished.retReg, rv)
	return false, value.Value{}, nil
}

// throwGo wraps a Go error (kind + message) as a language exception Value
// (its display string) and dispatches it through the catch-region stack.
// The Go-level stack is appended only when no try region is active (the
// exception is about to be reported as uncaught) and SkipBacktrace is off;
// a caught exception sees just the error's own message.
func (vm *VM) throwGo(err error) (bool, value.Value, error) {
	msg := err.Error()
	if !vm.SkipBacktrace && len(vm.tryRegs) == 0 {
		if st := errors.StackTrace(err); st != "" {
			msg += "\n" + st
		}
	}
	return vm.throwValue(value.String(msg))
}

// throwValue unwinds frames looking for the innermost enclosing try
// region. If none remains, the program terminates with this value's
// display string as the error. Takes ownership of exc (steal semantics,
// like Frame.Set) — callers passing a value that's also still live
// elsewhere (e.g. a register's own content on re-throw) must Retain it
// first.
func (vm *VM) throwValue(exc value.Value) (bool, value.Value, error) {
	value.Release(vm.currExc)
	vm.currExc = exc
	if len(vm.tryRegs) == 0 {
		msg := "uncaught exception: " + value.ToDisplayString(exc)
		if !vm.SkipBacktrace {
			// One line per active frame, innermost first: <file>::<fn> for a
			// function's frame, <file> alone for the top-level chunk.
			for i := len(vm.frames) - 1; i >= 0; i-- {
				p := vm.frames[i].proto
				if i == 0 {
					msg += "\n  " + p.File
				} else {
					msg += "\n  " + p.File + "::" + p.Name
				}
			}
		}
		for _, discarded := range vm.frames {
			discarded.release()
		}
		return true, value.Nil(), fmt.Errorf("%s", msg)
	}
	n := len(vm.tryRegs) - 1
	region := vm.tryRegs[n]
	vm.tryRegs = vm.tryRegs[:n]
	for _, discarded := range vm.frames[region.frameDepth+1:] {
		discarded.release()
	}
	vm.frames = vm.frames[:region.frameDepth+1]
	vm.frame().pc = region.catchPC
	return false, value.Value{}, nil
}

func (vm *VM) arith(op bytecode.OpCode, a, b value.Value) (value.Value, error) {
	if a.Kind != value.KindNumber || b.Kind != value.KindNumber {
		return value.Value{}, errors.NewRuntimeError(errors.KindExpectedNumber, "arithmetic on non-number operands (%s, %s)", a.Kind, b.Kind)
	}
	x, y := value.AsNumber(a), value.AsNumber(b)
	switch op {
	case bytecode.OpAdd:
		return value.Number(x + y), nil
	case bytecode.OpSub:
		return value.Number(x - y), nil
	case bytecode.OpMul:
		return value.Number(x * y), nil
	case bytecode.OpDiv:
		if y == 0 {
			return value.Value{}, errors.NewRuntimeError(errors.KindUndefinedOperation, "division by zero")
		}
		return value.Number(x / y), nil
	case bytecode.OpMod:
		return value.Number(math.Mod(x, y)), nil
	case bytecode.OpPow:
		return value.Number(math.Pow(x, y)), nil
	}
	return value.Value{}, errors.NewRuntimeError(errors.KindUndefinedOperator, "unknown arithmetic opcode")
}

// operatorMethodName maps an arithmetic opcode to the class method name
// spec.md §4.3's operator dispatch looks up on the left operand (only the
// left operand is ever checked, matching the original's Value::add — there
// is no reflected/symmetric dispatch on the right operand).
func operatorMethodName(op bytecode.OpCode) (string, bool) {
	switch op {
	case bytecode.OpAdd:
		return "add", true
	case bytecode.OpSub:
		return "sub", true
	case bytecode.OpMul:
		return "mul", true
	case bytecode.OpDiv:
		return "div", true
	case bytecode.OpMod:
		return "mod", true
	case bytecode.OpPow:
		return "pow", true
	}
	return "", false
}

// callOperatorMethod dispatches an overloaded operator to a class method,
// mirroring execCall's bound-method-call protocol: the other operand is
// passed as the method's sole argument.
func (vm *VM) callOperatorMethod(method, recv, operand value.Value, retReg uint8) (bool, value.Value, error) {
	bound := bindMethod(method, recv)
	fn := value.AsFn(bound)
	args := []value.Value{*fn.Bound, operand}
	if fn.Native != nil {
		result, err := fn.Native.Fn(args)
		if err != nil {
			return vm.throwGo(err)
		}
		vm.frame().Set(retReg, result)
		return false, value.Value{}, nil
	}
	return vm.callClosure(fn, args, retReg)
}

func (vm *VM) compare(op bytecode.OpCode, a, b value.Value) (bool, error) {
	if a.Kind == value.KindNumber && b.Kind == value.KindNumber {
		x, y := value.AsNumber(a), value.AsNumber(b)
		switch op {
		case bytecode.OpLt:
			return x < y, nil
		case bytecode.OpLte:
			return x <= y, nil
		case bytecode.OpGt:
			return x > y, nil
		case bytecode.OpGte:
			return x >= y, nil
		}
	}
	if a.Kind == value.KindString && b.Kind == value.KindString {
		x, y := value.AsString(a), value.AsString(b)
		switch op {
		case bytecode.OpLt:
			return x < y, nil
		case bytecode.OpLte:
			return x <= y, nil
		case bytecode.OpGt:
			return x > y, nil
		case bytecode.OpGte:
			return x >= y, nil
		}
	}
	return false, errors.NewRuntimeError(errors.KindExpectedNumber, "comparison requires two numbers or two strings, got %s and %s", a.Kind, b.Kind)
}

func (vm *VM) access(obj, key value.Value) (value.Value, error) {
	switch obj.Kind {
	case value.KindList:
		l := value.AsList(obj)
		idx, err := indexOf(key, len(l.Elements))
		if err != nil {
			return value.Value{}, err
		}
		v := l.Elements[idx]
		value.Retain(v)
		return v, nil
	case value.KindDict:
		d := value.AsDict(obj)
		hk, ok := value.HashKey(key)
		if !ok {
			return value.Value{}, errors.NewRuntimeError(errors.KindExpectedKey, "unhashable dict key")
		}
		e, ok := d.Items[hk]
		if !ok {
			return value.Value{}, errors.NewRuntimeError(errors.KindExpectedKey, "key not found")
		}
		value.Retain(e.Value)
		return e.Value, nil
	case value.KindString:
		s := value.AsString(obj)
		idx, err := indexOf(key, len(s))
		if err != nil {
			return value.Value{}, err
		}
		return value.String(string(s[idx])), nil
	default:
		return value.Value{}, errors.NewRuntimeError(errors.KindExpectedCollection, "cannot index into value of kind %s", obj.Kind)
	}
}

func (vm *VM) setIndex(obj, key, val value.Value) error {
	switch obj.Kind {
	case value.KindList:
		l := value.AsList(obj)
		idx, err := indexOf(key, len(l.Elements))
		if err != nil {
			return err
		}
		value.Retain(val)
		value.Release(l.Elements[idx])
		l.Elements[idx] = val
		return nil
	case value.KindDict:
		d := value.AsDict(obj)
		hk, ok := value.HashKey(key)
		if !ok {
			return errors.NewRuntimeError(errors.KindExpectedKey, "unhashable dict key")
		}
		value.Retain(key)
		value.Retain(val)
		d.SetHashed(hk, key, val)
		return nil
	default:
		return errors.NewRuntimeError(errors.KindExpectedCollection, "cannot assign into value of kind %s", obj.Kind)
	}
}

func indexOf(key value.Value, length int) (int, error) {
	if key.Kind != value.KindNumber {
		return 0, errors.NewRuntimeError(errors.KindExpectedIndex, "index must be a number")
	}
	idx := int(value.AsNumber(key))
	if idx < 0 {
		idx += length
	}
	if idx < 0 || idx >= length {
		return 0, errors.NewRuntimeError(errors.KindExpectedIndex, "index %d out of range (length %d)", idx, length)
	}
	return idx, nil
}

func (vm *VM) length(v value.Value) (float64, error) {
	switch v.Kind {
	case value.KindList:
		return float64(len(value.AsList(v).Elements)), nil
	case value.KindDict:
		return float64(len(value.AsDict(v).Items)), nil
	case value.KindString:
		return float64(len(value.AsString(v))), nil
	case value.KindBytes:
		return float64(len(value.AsBytes(v))), nil
	default:
		return 0, errors.NewRuntimeError(errors.KindExpectedCollection, "value of kind %s has no length", v.Kind)
	}
}

func (vm *VM) makeIterator(coll value.Value) value.Value {
	var cursor *iterCursor
	switch coll.Kind {
	case value.KindList:
		cursor = newListCursor(value.AsList(coll))
	case value.KindDict:
		cursor = newDictCursor(value.AsDict(coll))
	default:
		cursor = &iterCursor{}
	}
	return value.NewNative(&value.NativeObj{Baggage: cursor})
}

// getObjProperty resolves `obj.name`: first as a stored instance field,
// then as a class (or, for a class Value, static) method, bound to the
// receiver on lookup.
func (vm *VM) getObjProperty(recv value.Value, name string) (value.Value, error) {
	switch recv.Kind {
	case value.KindObject:
		obj := value.AsObject(recv)
		if v, ok := obj.Fields[name]; ok {
			value.Retain(v)
			return v, nil
		}
		if m, ok := obj.Class.FindMethod(name); ok {
			return bindMethod(m, recv), nil
		}
		return value.Value{}, errors.NewRuntimeError(errors.KindUndefinedProperty, "undefined property '%s'", name)
	case value.KindClass:
		cls := value.AsClass(recv)
		if m, ok := cls.StaticMeth[name]; ok {
			value.Retain(m)
			return m, nil
		}
		return value.Value{}, errors.NewRuntimeError(errors.KindUndefinedProperty, "undefined static method '%s'", name)
	case value.KindNative:
		n := value.AsNative(recv)
		if v, ok := n.Properties[name]; ok {
			if v.Kind == value.KindFn && value.AsFn(v).Native != nil && value.AsFn(v).Native.Bind {
				return bindMethod(v, recv), nil
			}
			value.Retain(v)
			return v, nil
		}
		return value.Value{}, errors.NewRuntimeError(errors.KindUndefinedProperty, "undefined property '%s'", name)
	default:
		return value.Value{}, errors.NewRuntimeError(errors.KindExpectedObject, "cannot read property '%s' of kind %s", name, recv.Kind)
	}
}
