package vm

import (
	"grotsky/internal/bytecode"
	"grotsky/internal/value"
)

// RunModule executes program as a nested module body inside this same VM
// (spec.md §4.5: "run the module function in a freshly-initialized VM
// state"), saving and restoring everything the spec calls out — the
// current instruction stream (program), activation-record vector
// (frames), globals map, and try-region stack — around the nested run.
// topLevelLocals names the registers (from compiler.Compiler.
// TopLevelLocals) to read back out of the finished module's top-level
// frame once it returns; internal/module turns the result into the
// Native value `import` hands back to the caller.
func (vm *VM) RunModule(program *bytecode.Program, topLevelLocals map[string]int) (map[string]value.Value, error) {
	savedProgram := vm.program
	savedFrames := vm.frames
	savedGlobals := vm.globals
	savedTry := vm.tryRegs
	savedExc := vm.currExc

	vm.program = program
	vm.globals = map[string]value.Value{}
	vm.tryRegs = nil
	vm.currExc = value.Nil()

	top := newFrame(program.TopLevel, nil, 0)
	top.keepAlive = true
	vm.frames = []*Frame{top}

	_, err := vm.loop()

	// On a normal finish, doReturn left top's registers un-released (it's
	// keepAlive) so they're still valid to read here: retain each exported
	// value for the share the module's Native property map is about to
	// hold, then release the frame's own share of everything (exported
	// or not) now that it's truly done. On an uncaught exception, throwValue
	// already released every remaining frame — including top — as part of
	// unwinding the whole program, so there's nothing left to read or
	// release here.
	exports := make(map[string]value.Value, len(topLevelLocals))
	if err == nil {
		for name, reg := range topLevelLocals {
			v := top.Get(uint8(reg))
			value.Retain(v)
			exports[name] = v
		}
		top.release()
	}

	vm.program = savedProgram
	vm.frames = savedFrames
	vm.globals = savedGlobals
	vm.tryRegs = savedTry
	vm.currExc = savedExc

	return exports, err
}
