package compiler

import (
	"grotsky/internal/bytecode"
	"grotsky/internal/errors"
	"grotsky/internal/parser"
	"grotsky/internal/value"
)

// compileExprInto compiles e and returns the (freshly allocated) register
// holding its result. The dstHint parameter is accepted for call-site
// symmetry with a hinted allocator but is currently always -1 ("no
// preference"); every expression allocates its own destination.
func (c *Compiler) compileExprInto(e parser.Expr, dstHint int) int {
	return e.Accept(c).(int)
}

func (c *Compiler) compileExpr(e parser.Expr) int { return c.compileExprInto(e, -1) }

// compileVariableInto loads the named variable's value into dst, following
// spec.md §4.2's resolution precedence: local -> upvalue -> builtin ->
// global.
func (c *Compiler) compileVariableInto(name string, dst int, line int) {
	// A function referencing its own name before the enclosing scope has
	// finished binding it (the direct-recursion case) resolves through the
	// running closure itself rather than a local/upvalue/global lookup.
	if c.fn.name == name && name != "" && name != "<main>" {
		c.fn.emit(bytecode.CreateABC(bytecode.OpGetCurrentFunc, uint8(dst), 0, 0), line)
		return
	}
	if reg, ok := c.fn.resolveLocal(name); ok {
		c.fn.emit(bytecode.CreateABC(bytecode.OpMove, uint8(dst), uint8(reg), 0), line)
		return
	}
	if idx, ok := resolveUpvalue(c.fn, name); ok {
		c.fn.emit(bytecode.CreateABC(bytecode.OpGetUpval, uint8(dst), uint8(idx), 0), line)
		return
	}
	if builtinNames[name] {
		c.fn.emit(bytecode.CreateABx(bytecode.OpGetBuiltin, uint8(dst), c.addStringConstant(name)), line)
		return
	}
	if !c.globals[name] {
		c.error(line, errors.KindUndefinedVariable, "undefined name '"+name+"'")
	}
	c.fn.emit(bytecode.CreateABx(bytecode.OpGetGlobal, uint8(dst), c.addStringConstant(name)), line)
}

func (c *Compiler) VisitLiteral(l *parser.Literal) interface{} {
	dst := c.fn.alloc.Alloc()
	switch v := l.Value.(type) {
	case nil:
		c.fn.emit(bytecode.CreateABC(bytecode.OpLoadNil, uint8(dst), 0, 0), l.Line())
	case float64:
		c.fn.emit(bytecode.CreateABx(bytecode.OpLoadK, uint8(dst), c.addNumberConstant(v)), l.Line())
	case string:
		c.fn.emit(bytecode.CreateABx(bytecode.OpLoadK, uint8(dst), c.addStringConstant(v)), l.Line())
	case bool:
		c.fn.emit(bytecode.CreateABx(bytecode.OpLoadK, uint8(dst), c.addConstant(value.Bool(v))), l.Line())
	}
	return dst
}

func (c *Compiler) VisitVariable(n *parser.Variable) interface{} {
	dst := c.fn.alloc.Alloc()
	c.compileVariableInto(n.Name, dst, n.Line())
	return dst
}

func (c *Compiler) VisitThis(t *parser.This) interface{} {
	dst := c.fn.alloc.Alloc()
	c.compileVariableInto("this", dst, t.Line())
	return dst
}

// VisitSuper looks up Method on the enclosing class's declared superclass
// and returns it already bound to the current frame's `this` (register 0).
func (c *Compiler) VisitSuper(s *parser.Super) interface{} {
	if c.classCtx == nil || c.classCtx.superclass == "" {
		c.error(s.Line(), errors.KindCompile, "'super' used outside a subclass method")
	}
	nameReg := c.fn.alloc.Alloc()
	c.fn.emit(bytecode.CreateABx(bytecode.OpLoadK, uint8(nameReg), c.addStringConstant(s.Method)), s.Line())
	superReg := c.fn.alloc.Alloc()
	superName := ""
	if c.classCtx != nil {
		superName = c.classCtx.superclass
	}
	c.compileVariableInto(superName, superReg, s.Line())
	dst := c.fn.alloc.Alloc()
	c.fn.emit(bytecode.CreateABC(bytecode.OpSuper, uint8(dst), uint8(nameReg), uint8(superReg)), s.Line())
	c.fn.alloc.Free(superReg)
	c.fn.alloc.Free(nameReg)
	return dst
}

var binaryOps = map[string]bytecode.OpCode{
	"+": bytecode.OpAdd, "-": bytecode.OpSub, "*": bytecode.OpMul,
	"/": bytecode.OpDiv, "%": bytecode.OpMod, "^": bytecode.OpPow,
	"<": bytecode.OpLt, "<=": bytecode.OpLte, ">": bytecode.OpGt, ">=": bytecode.OpGte,
	"==": bytecode.OpEq, "!=": bytecode.OpNeq,
}

func (c *Compiler) VisitBinary(b *parser.Binary) interface{} {
	left := c.compileExpr(b.Left)
	right := c.compileExpr(b.Right)
	op, ok := binaryOps[b.Operator]
	if !ok {
		c.error(b.Line(), errors.KindCompile, "unknown binary operator '"+b.Operator+"'")
		op = bytecode.OpAdd
	}
	dst := c.fn.alloc.Alloc()
	c.fn.emit(bytecode.CreateABC(op, uint8(dst), uint8(left), uint8(right)), b.Line())
	c.fn.alloc.Free(right)
	c.fn.alloc.Free(left)
	return dst
}

// VisitLogical short-circuits: `a && b` skips evaluating b (and jumps past
// it straight to the result) when a is falsy; `a || b` mirrors this for
// truthy a. Both leave their result in the same register a was loaded
// into, matching the teacher's compileLogicalExpr reuse-the-register style.
func (c *Compiler) VisitLogical(l *parser.Logical) interface{} {
	dst := c.compileExpr(l.Left)
	// Test's C operand is the truthiness that makes the VM skip the
	// following Jmp (i.e. fall through into evaluating Right) instead of
	// short-circuiting past it. `&&` only evaluates Right when Left is
	// truthy; `||` only evaluates Right when Left is falsy.
	continueWhenTruthy := uint8(1)
	if l.Operator == "||" {
		continueWhenTruthy = 0
	}
	c.fn.emit(bytecode.CreateABC(bytecode.OpTest, uint8(dst), 0, continueWhenTruthy), l.Line())
	jmpShort := c.fn.emit(bytecode.CreateAsBx(bytecode.OpJmp, bytecode.JmpPlain, 0), l.Line())

	right := c.compileExpr(l.Right)
	c.fn.emit(bytecode.CreateABC(bytecode.OpMove, uint8(dst), uint8(right), 0), l.Line())
	c.fn.alloc.Free(right)

	c.patchJumpToHere(jmpShort)
	return dst
}

func (c *Compiler) VisitUnary(u *parser.Unary) interface{} {
	operand := c.compileExpr(u.Operand)
	dst := c.fn.alloc.Alloc()
	switch u.Operator {
	case "-":
		c.fn.emit(bytecode.CreateABC(bytecode.OpNeg, uint8(dst), uint8(operand), 0), u.Line())
	case "!":
		c.fn.emit(bytecode.CreateABC(bytecode.OpNot, uint8(dst), uint8(operand), 0), u.Line())
	default:
		c.error(u.Line(), errors.KindCompile, "unknown unary operator '"+u.Operator+"'")
	}
	c.fn.alloc.Free(operand)
	return dst
}

// VisitCall lowers callee-then-arguments, in that order (spec.md §4.2 —
// notably the reverse of the teacher's args-first compileCallExpr). The
// callee and each argument land in consecutive registers so OpCall can
// address them as one contiguous block, mirroring the teacher's
// findConsecutiveRegisters convention.
func (c *Compiler) VisitCall(call *parser.Call) interface{} {
	mark := c.fn.alloc.Mark()
	calleeReg := c.fn.alloc.Alloc()
	c.compileFixedInto(call.Callee, calleeReg)
	for _, a := range call.Args {
		argReg := c.fn.alloc.Alloc()
		c.compileFixedInto(a, argReg)
	}
	c.fn.emit(bytecode.CreateABC(bytecode.OpCall, uint8(calleeReg), uint8(len(call.Args)), 1), call.Line())
	c.fn.alloc.ResetTo(mark + 1)
	return calleeReg
}

// compileFixedInto compiles e and moves its result into the specific
// register dst (used when an expression must land in a pre-reserved slot
// of a consecutive block, e.g. call arguments).
func (c *Compiler) compileFixedInto(e parser.Expr, dst int) {
	mark := c.fn.alloc.Mark()
	reg := c.compileExpr(e)
	if reg != dst {
		c.fn.emit(bytecode.CreateABC(bytecode.OpMove, uint8(dst), uint8(reg), 0), e.Line())
	}
	c.fn.alloc.ResetTo(mark)
}

func (c *Compiler) VisitList(a *parser.ListExpr) interface{} {
	dst := c.fn.alloc.Alloc()
	c.fn.emit(bytecode.CreateABC(bytecode.OpList, uint8(dst), uint8(len(a.Elements)), 0), a.Line())
	for _, el := range a.Elements {
		mark := c.fn.alloc.Mark()
		elReg := c.compileExpr(el)
		c.fn.emit(bytecode.CreateABC(bytecode.OpPushList, uint8(dst), uint8(elReg), 0), el.Line())
		c.fn.alloc.ResetTo(mark)
	}
	return dst
}

func (c *Compiler) VisitDict(m *parser.DictExpr) interface{} {
	dst := c.fn.alloc.Alloc()
	c.fn.emit(bytecode.CreateABC(bytecode.OpDict, uint8(dst), 0, 0), m.Line())
	for i := range m.Keys {
		mark := c.fn.alloc.Mark()
		kReg := c.compileExpr(m.Keys[i])
		vReg := c.compileExpr(m.Values[i])
		c.fn.emit(bytecode.CreateABC(bytecode.OpPushDict, uint8(dst), uint8(kReg), uint8(vReg)), m.Line())
		c.fn.alloc.ResetTo(mark)
	}
	return dst
}

func (c *Compiler) VisitIndex(idx *parser.Index) interface{} {
	objReg := c.compileExpr(idx.Object)
	keyReg := c.compileExpr(idx.Key)
	dst := c.fn.alloc.Alloc()
	c.fn.emit(bytecode.CreateABC(bytecode.OpAccess, uint8(dst), uint8(objReg), uint8(keyReg)), idx.Line())
	c.fn.alloc.Free(keyReg)
	c.fn.alloc.Free(objReg)
	return dst
}

// VisitSlice evaluates object, then the three (possibly absent) bounds,
// into one block of four consecutive registers — obj, first, second,
// third — so OpSlice can address them all from a single base register,
// the same findConsecutiveRegisters convention OpCall uses for arguments.
// A Nil placeholder stands in for an omitted bound (spec.md §3's native
// slice semantics resolve an absent bound at runtime).
func (c *Compiler) VisitSlice(s *parser.Slice) interface{} {
	dst := c.fn.alloc.Alloc()
	mark := c.fn.alloc.Mark()
	base := c.fn.alloc.Alloc()
	c.compileFixedInto(s.Object, base)
	firstReg := c.fn.alloc.Alloc()
	c.compileOptionalInto(s.First, firstReg, s.Line())
	secondReg := c.fn.alloc.Alloc()
	c.compileOptionalInto(s.Second, secondReg, s.Line())
	thirdReg := c.fn.alloc.Alloc()
	c.compileOptionalInto(s.Third, thirdReg, s.Line())

	c.fn.emit(bytecode.CreateABC(bytecode.OpSlice, uint8(dst), uint8(base), 0), s.Line())
	c.fn.alloc.ResetTo(mark)
	return dst
}

func (c *Compiler) compileOptionalInto(e parser.Expr, dst int, line int) {
	if e == nil {
		c.fn.emit(bytecode.CreateABC(bytecode.OpLoadNil, uint8(dst), 0, 0), line)
		return
	}
	c.compileFixedInto(e, dst)
}

func (c *Compiler) VisitProperty(p *parser.Property) interface{} {
	objReg := c.compileExpr(p.Object)
	nameReg := c.fn.alloc.Alloc()
	c.fn.emit(bytecode.CreateABx(bytecode.OpLoadK, uint8(nameReg), c.addStringConstant(p.Name)), p.Line())
	dst := c.fn.alloc.Alloc()
	c.fn.emit(bytecode.CreateABC(bytecode.OpGetObj, uint8(dst), uint8(objReg), uint8(nameReg)), p.Line())
	c.fn.alloc.Free(nameReg)
	c.fn.alloc.Free(objReg)
	return dst
}
