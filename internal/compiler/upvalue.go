package compiler

import "grotsky/internal/bytecode"

// resolveUpvalue finds name as a captured variable of f, interning a new
// upvalue descriptor on f (and, transitively, on every enclosing function
// between f and the frame that actually owns the local) if this is the
// first reference. Resolution precedence is local -> upvalue -> (caller
// falls back to builtin -> global) exactly per spec.md §4.2.
func resolveUpvalue(f *fnContext, name string) (int, bool) {
	if f.parent == nil {
		return 0, false
	}
	if reg, ok := f.parent.resolveLocal(name); ok {
		return internUpvalue(f, name, bytecode.UpvalueRef{IsLocal: true, Index: uint8(reg)}), true
	}
	if idx, ok := resolveUpvalue(f.parent, name); ok {
		return internUpvalue(f, name, bytecode.UpvalueRef{IsLocal: false, Index: uint8(idx)}), true
	}
	return 0, false
}

// internUpvalue dedups by (name), matching the teacher's upvalue-table
// style: re-referencing an already-captured variable returns the existing
// slot rather than growing the table.
func internUpvalue(f *fnContext, name string, ref bytecode.UpvalueRef) int {
	for i, n := range f.upvalNames {
		if n == name {
			return i
		}
	}
	f.upvalues = append(f.upvalues, ref)
	f.upvalNames = append(f.upvalNames, name)
	return len(f.upvalues) - 1
}
