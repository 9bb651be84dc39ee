package compiler

import (
	"grotsky/internal/bytecode"
	"grotsky/internal/errors"
	"grotsky/internal/parser"
)

// compileStmt lowers one statement, discarding any register it produces
// (statements have no value).
func (c *Compiler) compileStmt(s parser.Stmt) { s.Accept(c) }

// compileBlock compiles a list of statements within a fresh child scope.
func (c *Compiler) compileBlock(stmts []parser.Stmt) {
	c.fn.pushScope()
	for _, s := range stmts {
		c.compileStmt(s)
	}
	c.fn.popScope()
}

func (c *Compiler) VisitLetStmt(s *parser.LetStmt) interface{} {
	var reg int
	if s.Expr != nil {
		reg = c.compileExprInto(s.Expr, -1)
	} else {
		reg = c.fn.alloc.Alloc()
		c.fn.emit(bytecode.CreateABC(bytecode.OpLoadNil, uint8(reg), 0, 0), s.Line())
	}
	// Bind the already-computed register as this name's local slot.
	c.fn.alloc.Lock(reg)
	c.fn.scope.locals = append(c.fn.scope.locals, localVar{s.Name, reg})
	if c.fn.parent == nil && c.fn.scope.depth == 0 {
		c.declareGlobal(s.Name, reg, s.Line())
	}
	return nil
}

// declareGlobal records a top-level binding of name, whose value is in reg,
// as a global. A second top-level binding of the same name is a compile
// error. SetGlobal copies the value into the VM's globals map, so a later
// program compiled against this same Compiler (the next REPL line) can read
// it back with GetGlobal.
func (c *Compiler) declareGlobal(name string, reg int, line int) {
	if c.globals[name] {
		c.error(line, errors.KindGlobalAlreadyDefined, "global '"+name+"' already defined")
	}
	c.globals[name] = true
	c.fn.emit(bytecode.CreateABx(bytecode.OpSetGlobal, uint8(reg), c.addStringConstant(name)), line)
}

func (c *Compiler) VisitAssignStmt(s *parser.AssignStmt) interface{} {
	valReg := c.compileExprInto(s.Value, -1)
	if reg, ok := c.fn.resolveLocal(s.Name); ok {
		c.fn.emit(bytecode.CreateABC(bytecode.OpMove, uint8(reg), uint8(valReg), 0), s.Line())
		c.fn.alloc.Free(valReg)
		return nil
	}
	if idx, ok := resolveUpvalue(c.fn, s.Name); ok {
		c.fn.emit(bytecode.CreateABC(bytecode.OpSetUpval, uint8(valReg), uint8(idx), 0), s.Line())
		c.fn.alloc.Free(valReg)
		return nil
	}
	if !c.globals[s.Name] {
		c.error(s.Line(), errors.KindUndefinedVariable, "assignment to undeclared global '"+s.Name+"'")
	}
	nameIdx := c.addStringConstant(s.Name)
	c.fn.emit(bytecode.CreateABx(bytecode.OpSetGlobal, uint8(valReg), nameIdx), s.Line())
	c.fn.alloc.Free(valReg)
	return nil
}

func (c *Compiler) VisitIndexAssignStmt(s *parser.IndexAssignStmt) interface{} {
	objReg := c.compileExprInto(s.Object, -1)
	keyReg := c.compileExprInto(s.Key, -1)
	valReg := c.compileExprInto(s.Value, -1)
	c.fn.emit(bytecode.CreateABC(bytecode.OpSet, uint8(objReg), uint8(keyReg), uint8(valReg)), s.Line())
	c.fn.alloc.Free(valReg)
	c.fn.alloc.Free(keyReg)
	c.fn.alloc.Free(objReg)
	return nil
}

func (c *Compiler) VisitPropertyAssignStmt(s *parser.PropertyAssignStmt) interface{} {
	objReg := c.compileExprInto(s.Object, -1)
	nameReg := c.fn.alloc.Alloc()
	c.fn.emit(bytecode.CreateABx(bytecode.OpLoadK, uint8(nameReg), c.addStringConstant(s.Name)), s.Line())
	valReg := c.compileExprInto(s.Value, -1)
	c.fn.emit(bytecode.CreateABC(bytecode.OpSetObj, uint8(objReg), uint8(nameReg), uint8(valReg)), s.Line())
	c.fn.alloc.Free(valReg)
	c.fn.alloc.Free(nameReg)
	c.fn.alloc.Free(objReg)
	return nil
}

func (c *Compiler) VisitExpressionStmt(s *parser.ExpressionStmt) interface{} {
	reg := c.compileExprInto(s.Expr, -1)
	c.fn.alloc.Free(reg)
	return nil
}

// VisitFunctionStmt compiles a named function declaration: the closure it
// produces is bound as a local (or global, at top level) under its own
// name, exactly like a `let name = fn...` per spec.md §4.2.
func (c *Compiler) VisitFunctionStmt(s *parser.FunctionStmt) interface{} {
	reg := c.compileFunction(s.Name, s.Params, s.Body, s.Line())
	c.fn.alloc.Lock(reg)
	c.fn.scope.locals = append(c.fn.scope.locals, localVar{s.Name, reg})
	if c.fn.parent == nil && c.fn.scope.depth == 0 {
		c.declareGlobal(s.Name, reg, s.Line())
	}
	return nil
}

// compileFunction compiles a nested function body into its own prototype,
// emits OpClosure (+ one upvalue-descriptor pseudo-instruction per captured
// variable, mirroring Lua's OP_CLOSURE convention) in the enclosing
// function, and returns the register holding the new closure.
func (c *Compiler) compileFunction(name string, params []string, body []parser.Stmt, line int) int {
	parent := c.fn
	c.fn = newFnContext(parent, name, c.file, params)
	c.fn.pushScope()
	for _, p := range params {
		c.fn.defineLocal(p)
	}
	for _, st := range body {
		c.compileStmt(st)
	}
	// Implicit `return nil` if the body falls off the end.
	c.fn.emit(bytecode.CreateABC(bytecode.OpReturn, 0, 0, 0), line)

	proto := &bytecode.FnPrototype{
		Name: name, File: c.file, Arity: len(params),
		Registers: max(c.fn.alloc.HighWater(), 1),
		Code:      c.fn.code, Lines: c.fn.lines,
		Upvalues: c.fn.upvalues,
	}
	c.prototypes = append(c.prototypes, proto)
	protoIdx := len(c.prototypes) - 1
	upvals := c.fn.upvalues

	c.fn = parent
	dst := c.fn.alloc.Alloc()
	c.fn.emit(bytecode.CreateABx(bytecode.OpClosure, uint8(dst), uint16(protoIdx)), line)
	for _, uv := range upvals {
		if uv.IsLocal {
			c.fn.emit(bytecode.CreateABC(bytecode.OpMove, 0, uv.Index, 0), line)
		} else {
			c.fn.emit(bytecode.CreateABC(bytecode.OpGetUpval, 0, uv.Index, 0), line)
		}
	}
	return dst
}

// compileMethod compiles an instance method, prepending an implicit `this`
// parameter. `this` always lands in local register 0 of the method's own
// frame — OpSuper relies on that fixed slot to find the current receiver.
func (c *Compiler) compileMethod(name string, params []string, body []parser.Stmt, line int) int {
	withThis := make([]string, 0, len(params)+1)
	withThis = append(withThis, "this")
	withThis = append(withThis, params...)
	return c.compileFunction(name, withThis, body, line)
}

func (c *Compiler) VisitReturnStmt(s *parser.ReturnStmt) interface{} {
	if s.Value == nil {
		c.fn.emit(bytecode.CreateABC(bytecode.OpReturn, 0, 0, 0), s.Line())
		return nil
	}
	reg := c.compileExprInto(s.Value, -1)
	c.fn.emit(bytecode.CreateABC(bytecode.OpReturn, uint8(reg), 1, 0), s.Line())
	c.fn.alloc.Free(reg)
	return nil
}

func (c *Compiler) VisitIfStmt(s *parser.IfStmt) interface{} {
	condReg := c.compileExprInto(s.Condition, -1)
	c.fn.emit(bytecode.CreateABC(bytecode.OpTest, uint8(condReg), 0, 1), s.Line())
	c.fn.alloc.Free(condReg)
	jmpToElse := c.fn.emit(bytecode.CreateAsBx(bytecode.OpJmp, bytecode.JmpPlain, 0), s.Line())

	c.compileBlock(s.Then)

	if len(s.Else) > 0 {
		jmpToEnd := c.fn.emit(bytecode.CreateAsBx(bytecode.OpJmp, bytecode.JmpPlain, 0), s.Line())
		c.patchJumpToHere(jmpToElse)
		c.compileBlock(s.Else)
		c.patchJumpToHere(jmpToEnd)
	} else {
		c.patchJumpToHere(jmpToElse)
	}
	return nil
}

func (c *Compiler) pushLoop() *loopInfo {
	li := &loopInfo{}
	c.fn.loopStack = append(c.fn.loopStack, li)
	return li
}

func (c *Compiler) popLoop() *loopInfo {
	n := len(c.fn.loopStack)
	li := c.fn.loopStack[n-1]
	c.fn.loopStack = c.fn.loopStack[:n-1]
	return li
}

func (c *Compiler) currentLoop() *loopInfo {
	n := len(c.fn.loopStack)
	if n == 0 {
		return nil
	}
	return c.fn.loopStack[n-1]
}

// VisitWhileStmt: the back-edge jump lands on the first instruction of the
// condition re-evaluation, not the top of the body — confirmed against the
// teacher's compileWhileStmt, where loopStart is captured immediately
// before the condition is compiled.
func (c *Compiler) VisitWhileStmt(s *parser.WhileStmt) interface{} {
	loopStart := len(c.fn.code)
	condReg := c.compileExprInto(s.Condition, -1)
	c.fn.emit(bytecode.CreateABC(bytecode.OpTest, uint8(condReg), 0, 1), s.Line())
	c.fn.alloc.Free(condReg)
	jmpExit := c.fn.emit(bytecode.CreateAsBx(bytecode.OpJmp, bytecode.JmpPlain, 0), s.Line())

	li := c.pushLoop()
	c.compileBlock(s.Body)
	c.popLoop()

	c.emitJumpTo(loopStart, bytecode.JmpPlain, s.Line())
	c.patchJumpToHere(jmpExit)
	for _, pos := range li.breakJumps {
		c.patchJumpToHere(pos)
	}
	for _, pos := range li.pendingContinue {
		c.patchJumpAt(pos, loopStart)
	}
	return nil
}

func (c *Compiler) emitJumpTo(target int, tag uint8, line int) int {
	pos := c.fn.emit(bytecode.CreateAsBx(bytecode.OpJmp, tag, 0), line)
	c.patchJumpAt(pos, target)
	return pos
}

func (c *Compiler) VisitForStmt(s *parser.ForStmt) interface{} {
	c.fn.pushScope()
	if s.Init != nil {
		c.compileStmt(s.Init)
	}
	condStart := len(c.fn.code)
	var jmpExit int
	hasExit := false
	if s.Condition != nil {
		condReg := c.compileExprInto(s.Condition, -1)
		c.fn.emit(bytecode.CreateABC(bytecode.OpTest, uint8(condReg), 0, 1), s.Line())
		c.fn.alloc.Free(condReg)
		jmpExit = c.fn.emit(bytecode.CreateAsBx(bytecode.OpJmp, bytecode.JmpPlain, 0), s.Line())
		hasExit = true
	}

	li := c.pushLoop()
	c.compileBlock(s.Body)
	c.popLoop()

	updateStart := len(c.fn.code)
	if s.Update != nil {
		c.compileStmt(s.Update)
	}
	c.emitJumpTo(condStart, bytecode.JmpPlain, s.Line())

	if hasExit {
		c.patchJumpToHere(jmpExit)
	}
	for _, pos := range li.breakJumps {
		c.patchJumpToHere(pos)
	}
	for _, pos := range li.pendingContinue {
		c.patchJumpAt(pos, updateStart)
	}
	c.fn.popScope()
	return nil
}

// VisitForInStmt drives list/dict iteration through a hidden cursor value
// (spec.md's "enhanced for"). The cursor is produced once by GetIter and
// advanced once per pass by GetIterK (which also yields the primary key or
// list index); GetIterI reads the value at the cursor's current position
// without advancing. A single bound identifier gets the value; two bound
// identifiers get (key-or-index, value).
func (c *Compiler) VisitForInStmt(s *parser.ForInStmt) interface{} {
	collReg := c.compileExprInto(s.Collection, -1)
	iterReg := c.fn.alloc.Alloc()
	c.fn.emit(bytecode.CreateABC(bytecode.OpGetIter, uint8(iterReg), uint8(collReg), 0), s.Line())
	c.fn.alloc.Free(collReg)

	loopStart := len(c.fn.code)
	hasMoreReg := c.fn.alloc.Alloc()
	primaryReg := c.fn.alloc.Alloc()
	c.fn.emit(bytecode.CreateABC(bytecode.OpGetIterK, uint8(hasMoreReg), uint8(iterReg), uint8(primaryReg)), s.Line())
	c.fn.emit(bytecode.CreateABC(bytecode.OpTest, uint8(hasMoreReg), 0, 1), s.Line())
	jmpExit := c.fn.emit(bytecode.CreateAsBx(bytecode.OpJmp, bytecode.JmpPlain, 0), s.Line())

	c.fn.pushScope()
	switch len(s.Identifiers) {
	case 1:
		valueReg := c.fn.alloc.Alloc()
		c.fn.emit(bytecode.CreateABC(bytecode.OpGetIterI, uint8(hasMoreReg), uint8(iterReg), uint8(valueReg)), s.Line())
		c.fn.alloc.Lock(valueReg)
		c.fn.scope.locals = append(c.fn.scope.locals, localVar{s.Identifiers[0], valueReg})
		c.fn.alloc.Lock(primaryReg)
	case 2:
		valueReg := c.fn.alloc.Alloc()
		c.fn.emit(bytecode.CreateABC(bytecode.OpGetIterI, uint8(hasMoreReg), uint8(iterReg), uint8(valueReg)), s.Line())
		c.fn.alloc.Lock(primaryReg)
		c.fn.scope.locals = append(c.fn.scope.locals, localVar{s.Identifiers[0], primaryReg})
		c.fn.alloc.Lock(valueReg)
		c.fn.scope.locals = append(c.fn.scope.locals, localVar{s.Identifiers[1], valueReg})
	}

	li := c.pushLoop()
	for _, st := range s.Body {
		c.compileStmt(st)
	}
	c.popLoop()
	c.fn.popScope()

	c.fn.alloc.Free(hasMoreReg)
	c.emitJumpTo(loopStart, bytecode.JmpPlain, s.Line())
	c.patchJumpToHere(jmpExit)
	for _, pos := range li.breakJumps {
		c.patchJumpToHere(pos)
	}
	for _, pos := range li.pendingContinue {
		c.patchJumpAt(pos, loopStart)
	}
	c.fn.alloc.Free(iterReg)
	return nil
}

func (c *Compiler) VisitBreakStmt(s *parser.BreakStmt) interface{} {
	li := c.currentLoop()
	if li == nil {
		c.error(s.Line(), errors.KindCompile, "break outside loop")
		return nil
	}
	pos := c.fn.emit(bytecode.CreateAsBx(bytecode.OpJmp, bytecode.JmpBreak, 0), s.Line())
	li.breakJumps = append(li.breakJumps, pos)
	return nil
}

func (c *Compiler) VisitContinueStmt(s *parser.ContinueStmt) interface{} {
	li := c.currentLoop()
	if li == nil {
		c.error(s.Line(), errors.KindCompile, "continue outside loop")
		return nil
	}
	pos := c.fn.emit(bytecode.CreateAsBx(bytecode.OpJmp, bytecode.JmpContinue, 0), s.Line())
	li.pendingContinue = append(li.pendingContinue, pos)
	return nil
}

func (c *Compiler) VisitImportStmt(s *parser.ImportStmt) interface{} {
	name := s.Alias
	if name == "" {
		name = s.Path
	}
	modReg := c.fn.alloc.Alloc()
	nameIdx := c.addStringConstant("import")
	c.fn.emit(bytecode.CreateABx(bytecode.OpGetBuiltin, uint8(modReg), nameIdx), s.Line())
	nameReg := c.fn.alloc.Alloc()
	c.fn.emit(bytecode.CreateABx(bytecode.OpLoadK, uint8(nameReg), c.addStringConstant("module")), s.Line())
	c.fn.emit(bytecode.CreateABC(bytecode.OpGetObj, uint8(modReg), uint8(modReg), uint8(nameReg)), s.Line())
	c.fn.alloc.Free(nameReg)

	// OpCall reads its nargs starting at calleeReg+1, so the arguments
	// must land in the registers immediately after modReg. The importing
	// file travels alongside the path so a module can itself `import` a
	// path relative to its own directory, not the entry script's.
	pathReg := c.fn.alloc.Alloc()
	c.fn.emit(bytecode.CreateABx(bytecode.OpLoadK, uint8(pathReg), c.addStringConstant(s.Path)), s.Line())
	fileReg := c.fn.alloc.Alloc()
	c.fn.emit(bytecode.CreateABx(bytecode.OpLoadK, uint8(fileReg), c.addStringConstant(c.file)), s.Line())
	c.fn.emit(bytecode.CreateABC(bytecode.OpCall, uint8(modReg), 2, 1), s.Line())
	c.fn.alloc.Free(fileReg)
	c.fn.alloc.Free(pathReg)

	c.fn.alloc.Lock(modReg)
	c.fn.scope.locals = append(c.fn.scope.locals, localVar{name, modReg})
	if c.fn.parent == nil && c.fn.scope.depth == 0 {
		c.declareGlobal(name, modReg, s.Line())
	}
	return nil
}

func (c *Compiler) VisitExportStmt(s *parser.ExportStmt) interface{} {
	// Export has no register-level effect, and nothing reads it later:
	// internal/module exposes every top-level binding of a module, whether
	// or not it is exported.
	return nil
}

func (c *Compiler) VisitClassStmt(s *parser.ClassStmt) interface{} {
	nameReg := c.fn.alloc.Alloc()
	c.fn.emit(bytecode.CreateABx(bytecode.OpLoadK, uint8(nameReg), c.addStringConstant(s.Name)), s.Line())

	superReg := c.fn.alloc.Alloc()
	if s.Superclass != "" {
		c.compileVariableInto(s.Superclass, superReg, s.Line())
	} else {
		c.fn.emit(bytecode.CreateABC(bytecode.OpLoadNil, uint8(superReg), 0, 0), s.Line())
	}

	classReg := c.fn.alloc.Alloc()
	c.fn.emit(bytecode.CreateABC(bytecode.OpClass, uint8(classReg), uint8(nameReg), uint8(superReg)), s.Line())
	c.fn.alloc.Free(superReg)
	c.fn.alloc.Free(nameReg)

	// Bind the class name before compiling its methods, so a method body
	// can refer to its own class (e.g. to construct a new instance).
	c.fn.alloc.Lock(classReg)
	c.fn.scope.locals = append(c.fn.scope.locals, localVar{s.Name, classReg})
	if c.fn.parent == nil && c.fn.scope.depth == 0 {
		c.declareGlobal(s.Name, classReg, s.Line())
	}

	prevClass := c.classCtx
	c.classCtx = &classCompileCtx{parent: prevClass, superclass: s.Superclass}

	for _, m := range s.Methods {
		fnReg := c.compileMethod(m.Name, m.Params, m.Body, m.Line())
		c.fn.emit(bytecode.CreateABC(bytecode.OpClassMeth, uint8(classReg), uint8(fnReg), 0), m.Line())
		c.fn.alloc.Free(fnReg)
	}
	for _, m := range s.StaticMeths {
		fnReg := c.compileFunction(m.Name, m.Params, m.Body, m.Line())
		c.fn.emit(bytecode.CreateABC(bytecode.OpClassStMeth, uint8(classReg), uint8(fnReg), 0), m.Line())
		c.fn.alloc.Free(fnReg)
	}

	c.classCtx = prevClass
	return nil
}

func (c *Compiler) VisitTryStmt(s *parser.TryStmt) interface{} {
	regTry := c.fn.emit(bytecode.CreateAsBx(bytecode.OpRegisterTryCatch, 0, 0), s.Line())
	c.compileBlock(s.TryBlock)
	c.fn.emit(bytecode.CreateABC(bytecode.OpDeregisterTryCatch, 0, 0, 0), s.Line())
	jmpOverCatch := c.fn.emit(bytecode.CreateAsBx(bytecode.OpJmp, bytecode.JmpPlain, 0), s.Line())

	catchStart := len(c.fn.code)
	c.patchJumpAt(regTry, catchStart)

	c.fn.pushScope()
	excReg := c.fn.alloc.Alloc()
	c.fn.emit(bytecode.CreateABC(bytecode.OpGetExcept, uint8(excReg), 0, 0), s.Line())
	if s.CatchVar != "" {
		c.fn.alloc.Lock(excReg)
		c.fn.scope.locals = append(c.fn.scope.locals, localVar{s.CatchVar, excReg})
	} else {
		c.fn.alloc.Free(excReg)
	}
	for _, st := range s.CatchBlock {
		c.compileStmt(st)
	}
	c.fn.popScope()

	c.patchJumpToHere(jmpOverCatch)
	return nil
}

func (c *Compiler) VisitThrowStmt(s *parser.ThrowStmt) interface{} {
	reg := c.compileExprInto(s.Value, -1)
	c.fn.emit(bytecode.CreateABC(bytecode.OpGetExcept, uint8(reg), 1, 0), s.Line())
	c.fn.alloc.Free(reg)
	return nil
}
