// Package vm implements grotsky's register-based bytecode interpreter
// (spec.md §4.3). Grounded on the teacher's vmregister/vm.go for the
// overall frame-stack/dispatch-loop shape, but the Call/Return/exception
// protocols and closure-capture mechanics are rebuilt: the teacher boxes
// OP_CLASS with Parent always nil, never invokes a constructor from
// OP_INSTANCE, and lets an enclosing frame's own register writes bypass
// any upvalue a nested closure already captured from that slot. None of
// that survives here.
package vm

import (
	"grotsky/internal/bytecode"
	"grotsky/internal/value"
)

// Frame is one activation record: the prototype being executed, the
// register file, the owning closure (for upvalue access), the return
// address, and the set of registers that have been promoted to shared
// UpvalueCells because a nested closure captured them.
//
// Promotion is what fixes the defining-frame/closure divergence bug: once
// a register is promoted, Get/Set always go through the cell, so the
// frame that owns the local and every closure that captured it see
// exactly the same mutable storage.
type Frame struct {
	proto     *bytecode.FnPrototype
	closure   *value.FnObj
	registers []value.Value
	cells     map[uint8]*value.UpvalueCell
	pc        int

	retReg     uint8 // caller's register to receive this frame's return value
	ctorResult *value.Value // set when this frame is a class constructor call

	// keepAlive marks a top-level frame whose caller still needs to read
	// registers back out after it finishes (RunModule's exports) — doReturn
	// skips release() for it instead of tearing it down like an ordinary
	// returning frame.
	keepAlive bool
}

func newFrame(proto *bytecode.FnPrototype, closure *value.FnObj, retReg uint8) *Frame {
	regs := make([]value.Value, proto.Registers)
	for i := range regs {
		regs[i] = value.Nil()
	}
	return &Frame{proto: proto, closure: closure, registers: regs, retReg: retReg}
}

func (f *Frame) Get(r uint8) value.Value {
	if f.cells != nil {
		if cell, ok := f.cells[r]; ok {
			return cell.V
		}
	}
	return f.registers[r]
}

// Set overwrites register r, releasing whatever it previously held. It does
// not retain v: v must already carry the ownership share it's handing off
// (freshly constructed with rc=1, or explicitly Retained by the caller when
// it's a duplicate of an existing binding) — the same "steal on store"
// convention cellFor's own V field follows.
func (f *Frame) Set(r uint8, v value.Value) {
	if f.cells != nil {
		if cell, ok := f.cells[r]; ok {
			value.Release(cell.V)
			cell.V = v
			return
		}
	}
	value.Release(f.registers[r])
	f.registers[r] = v
}

// release drops this frame's own ownership share of every register it
// holds, called when the frame is popped off the stack (return, or
// exception unwind). A promoted register's cell survives frame teardown
// exactly as long as some closure still holds its own retain on the cell;
// only once the cell's own refcount reaches zero is its contained value
// released too.
func (f *Frame) release() {
	for r := range f.registers {
		if f.cells != nil {
			if _, ok := f.cells[uint8(r)]; ok {
				continue
			}
		}
		value.Release(f.registers[r])
	}
	for _, cell := range f.cells {
		if cell.Release() == 0 {
			value.Release(cell.V)
		}
	}
}

// cellFor promotes register r to a shared UpvalueCell on first capture
// (or returns the existing one on re-capture).
func (f *Frame) cellFor(r uint8) *value.UpvalueCell {
	if f.cells == nil {
		f.cells = map[uint8]*value.UpvalueCell{}
	}
	if cell, ok := f.cells[r]; ok {
		return cell
	}
	cell := &value.UpvalueCell{V: f.registers[r]}
	cell.Retain()
	f.cells[r] = cell
	return cell
}

// iterCursor is the hidden state driving a for-in loop (spec.md §4.2's
// "enhanced for"): a deterministic, once-snapshotted walk over a list's
// elements or a dict's insertion-ordered keys.
type iterCursor struct {
	vals    []value.Value
	keys    []value.Value // nil for list iteration (index used as key)
	idx     int
	lastIdx int
}

func newListCursor(l *value.ListObj) *iterCursor {
	return &iterCursor{vals: l.Elements}
}

func newDictCursor(d *value.DictObj) *iterCursor {
	order := d.OrderedKeys()
	keys := make([]value.Value, len(order))
	vals := make([]value.Value, len(order))
	for i, k := range order {
		e := d.Items[k]
		value.Retain(e.Key)
		value.Retain(e.Value)
		keys[i] = e.Key
		vals[i] = e.Value
	}
	return &iterCursor{vals: vals, keys: keys}
}

// advance reports whether another element is available and, if so,
// records it as the cursor's current position and moves past it.
func (it *iterCursor) advance() (key value.Value, ok bool) {
	if it.idx >= len(it.vals) {
		return value.Nil(), false
	}
	it.lastIdx = it.idx
	if it.keys != nil {
		key = it.keys[it.idx]
	} else {
		key = value.Number(float64(it.idx))
	}
	it.idx++
	return key, true
}

func (it *iterCursor) current() value.Value {
	if it.lastIdx < 0 || it.lastIdx >= len(it.vals) {
		return value.Nil()
	}
	return it.vals[it.lastIdx]
}
