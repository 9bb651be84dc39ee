// Package bytecode defines grotsky's three-address instruction encoding:
// one opcode byte plus three 8-bit operands, with B/C foldable into a wide
// Bx (unsigned 16-bit) or sBx (signed 16-bit) operand. The bit layout is
// kept close to the teacher's vmregister/bytecode.go (CreateABC/CreateABx/
// CreateAsBx, same field widths); the opcode *set* is pruned hard to
// exactly spec.md §4.1 — no JIT-tier, fused-compare-jump, or string/array
// "fast opcode" entries survive the prune.
package bytecode

import (
	"fmt"

	"grotsky/internal/value"
)

type OpCode uint8

const (
	// Data movement.
	OpMove OpCode = iota
	OpLoadK
	OpLoadNil

	// Arithmetic / logic.
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpAddI // Addi Ra,Rb,imm (imm = signed C)
	OpSubI
	OpNeg
	OpNot
	OpLt
	OpLte
	OpGt
	OpGte
	OpEq
	OpNeq

	// Branching.
	OpTest
	OpJmp

	// Upvalues / globals / builtins.
	OpGetUpval
	OpSetUpval
	OpGetGlobal
	OpSetGlobal
	OpGetBuiltin
	OpGetCurrentFunc

	// Closures & calls.
	OpClosure
	OpCall
	OpReturn

	// Collections.
	OpList
	OpPushList
	OpDict
	OpPushDict
	OpSlice
	OpAccess
	OpSet
	OpLength

	// Iteration.
	OpGetIter
	OpGetIterK
	OpGetIterI

	// Objects / classes.
	OpClass
	OpClassMeth
	OpClassStMeth
	OpGetObj
	OpSetObj
	OpThis
	OpSuper

	// Exceptions.
	OpRegisterTryCatch
	OpDeregisterTryCatch
	OpGetExcept

	opCodeCount
)

var opNames = [...]string{
	OpMove: "MOVE", OpLoadK: "LOADK", OpLoadNil: "LOADNIL",
	OpAdd: "ADD", OpSub: "SUB", OpMul: "MUL", OpDiv: "DIV", OpMod: "MOD", OpPow: "POW",
	OpAddI: "ADDI", OpSubI: "SUBI", OpNeg: "NEG", OpNot: "NOT",
	OpLt: "LT", OpLte: "LTE", OpGt: "GT", OpGte: "GTE", OpEq: "EQ", OpNeq: "NEQ",
	OpTest: "TEST", OpJmp: "JMP",
	OpGetUpval: "GETUPVAL", OpSetUpval: "SETUPVAL",
	OpGetGlobal: "GETGLOBAL", OpSetGlobal: "SETGLOBAL",
	OpGetBuiltin: "GETBUILTIN", OpGetCurrentFunc: "GETCURRENTFUNC",
	OpClosure: "CLOSURE", OpCall: "CALL", OpReturn: "RETURN",
	OpList: "LIST", OpPushList: "PUSHLIST", OpDict: "DICT", OpPushDict: "PUSHDICT",
	OpSlice: "SLICE", OpAccess: "ACCESS", OpSet: "SET", OpLength: "LENGTH",
	OpGetIter: "GETITER", OpGetIterK: "GETITERK", OpGetIterI: "GETITERI",
	OpClass: "CLASS", OpClassMeth: "CLASSMETH", OpClassStMeth: "CLASSSTMETH",
	OpGetObj: "GETOBJ", OpSetObj: "SETOBJ", OpThis: "THIS", OpSuper: "SUPER",
	OpRegisterTryCatch: "REGISTERTRYCATCH", OpDeregisterTryCatch: "DEREGISTERTRYCATCH",
	OpGetExcept: "GETEXCEPT",
}

// Valid reports whether op is a tag this build of grotsky knows how to
// execute. serialize.Read calls this on every decoded instruction so a
// chunk compiled by a newer/older opcode set fails immediately instead of
// being silently misinterpreted.
func (op OpCode) Valid() bool { return op < opCodeCount }

func (op OpCode) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("OP(%d)", op)
}

// Jmp's A field tags what kind of jump this is, so the enclosing loop
// lowering can find and patch break/continue placeholders after the whole
// loop body has been emitted.
const (
	JmpPlain    = 0
	JmpContinue = 1
	JmpBreak    = 2
)

// Instruction packs an opcode and three 8-bit operands into a uint32:
// bits [0:8)=op [8:16)=A [16:24)=B [24:32)=C. Bx = (B<<8)|C (unsigned);
// sBx reinterprets Bx as two's-complement signed.
type Instruction uint32

const (
	posOp = 0
	posA  = 8
	posB  = 16
	posC  = 24

	maxArgBx  = 1<<16 - 1
	maxArgSBx = maxArgBx >> 1
)

func CreateABC(op OpCode, a, b, c uint8) Instruction {
	return Instruction(uint32(op)<<posOp | uint32(a)<<posA | uint32(b)<<posB | uint32(c)<<posC)
}

func CreateABx(op OpCode, a uint8, bx uint16) Instruction {
	b := uint8(bx >> 8)
	c := uint8(bx & 0xFF)
	return CreateABC(op, a, b, c)
}

func CreateAsBx(op OpCode, a uint8, sbx int32) Instruction {
	return CreateABx(op, a, uint16(int16(sbx)))
}

func (i Instruction) OpCode() OpCode { return OpCode(i >> posOp) }
func (i Instruction) A() uint8       { return uint8(i >> posA) }
func (i Instruction) B() uint8       { return uint8(i >> posB) }
func (i Instruction) C() uint8       { return uint8(i >> posC) }
func (i Instruction) Bx() uint16     { return uint16(i.B())<<8 | uint16(i.C()) }
func (i Instruction) SBx() int32     { return int32(int16(i.Bx())) }

func (i Instruction) String() string {
	return fmt.Sprintf("%-10s A=%d B=%d C=%d (Bx=%d sBx=%d)", i.OpCode(), i.A(), i.B(), i.C(), i.Bx(), i.SBx())
}

// UpvalueRef: {is_local, index}. When IsLocal, Index names a register in
// the enclosing function's own frame; otherwise it names a slot in the
// enclosing function's own upvalue vector.
type UpvalueRef struct {
	IsLocal bool
	Index   uint8
}

// FnPrototype is the immutable blueprint for a compiled function: its flat
// instruction vector, an optional parallel source-line sidecar (for error
// messages), the register count it needs, its upvalue descriptor list,
// parameter arity, display name and originating file. Constants are not
// owned per-prototype: LoadK's Kx indexes into the single constant pool of
// the enclosing Program, and a Value's Fn variant holds a *prototype index*
// rather than a pointer, so the value package never needs to import this one.
type FnPrototype struct {
	Name       string
	File       string
	Arity      int
	IsVariadic bool
	Registers  int
	Code       []Instruction
	Lines      []int // parallel to Code; 0 if unknown
	Upvalues   []UpvalueRef
}

// Program is the compiler's complete output: the constant pool, every
// function prototype (referenced by index from LoadK/Closure operands and
// from a Value's Fn variant), the top-level instruction sequence (the
// "main" chunk), and the set of names bound as globals (used to diagnose
// "global already defined" at compile time and to reject an unresolved
// global read, as required by spec.md §4.2).
type Program struct {
	Constants  []value.Value
	Prototypes []*FnPrototype
	TopLevel   *FnPrototype
	Globals    map[string]bool
}
