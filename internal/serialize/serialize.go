// Package serialize implements grotsky's stable on-disk encoding for a
// compiled bytecode.Program (spec.md §4.4). Grounded on
// original_source/src/compiler.rs and interpreter.rs, which persist a
// compiled chunk with bincode over serde-derived structs; Go's ecosystem
// has no bincode analogue the rest of the pack reaches for, so this is
// hand-rolled directly on top of encoding/binary, which is the only
// idiomatic choice available without inventing a dependency nothing else
// in the pack uses (recorded in DESIGN.md's teacher survey, in the entry
// on the serialization choice).
//
// The format is intentionally dumb: a fixed magic + version header,
// length-prefixed strings, little-endian fixed-width integers everywhere,
// and every opcode written out as a single byte so a version mismatch or
// a truncated file fails fast on read instead of silently misinterpreting
// bytes as a different instruction.
package serialize

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"grotsky/internal/bytecode"
	"grotsky/internal/value"
)

// Magic identifies a grotsky compiled-chunk file; Version guards the wire
// format itself, independent of the language version.
const (
	Magic   uint32 = 0x674b5359 // "gKSY"
	Version uint16 = 1
)

// constant tags. Only the kinds that can legally appear in a constant
// pool are representable; anything else is a compiler bug, not a format
// concern.
const (
	tagNil byte = iota
	tagNumber
	tagBool
	tagString
)

// Write encodes program to w in grotsky's stable chunk format.
func Write(w io.Writer, program *bytecode.Program) error {
	bw := bufio.NewWriter(w)

	if err := binary.Write(bw, binary.LittleEndian, Magic); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, Version); err != nil {
		return err
	}

	if err := writeConstants(bw, program.Constants); err != nil {
		return err
	}

	if err := writeUint32(bw, uint32(len(program.Prototypes))); err != nil {
		return err
	}
	for _, p := range program.Prototypes {
		if err := writePrototype(bw, p); err != nil {
			return err
		}
	}

	if err := writePrototype(bw, program.TopLevel); err != nil {
		return err
	}

	if err := writeUint32(bw, uint32(len(program.Globals))); err != nil {
		return err
	}
	for name := range program.Globals {
		if err := writeString(bw, name); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Read decodes a program previously written by Write.
func Read(r io.Reader) (*bytecode.Program, error) {
	br := bufio.NewReader(r)

	var magic uint32
	if err := binary.Read(br, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("serialize: reading magic: %w", err)
	}
	if magic != Magic {
		return nil, fmt.Errorf("serialize: not a grotsky chunk (bad magic %#x)", magic)
	}

	var version uint16
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("serialize: reading version: %w", err)
	}
	if version != Version {
		return nil, fmt.Errorf("serialize: unsupported chunk version %d (want %d)", version, Version)
	}

	constants, err := readConstants(br)
	if err != nil {
		return nil, fmt.Errorf("serialize: reading constants: %w", err)
	}

	nProtos, err := readUint32(br)
	if err != nil {
		return nil, fmt.Errorf("serialize: reading prototype count: %w", err)
	}
	prototypes := make([]*bytecode.FnPrototype, nProtos)
	for i := range prototypes {
		p, err := readPrototype(br)
		if err != nil {
			return nil, fmt.Errorf("serialize: reading prototype %d: %w", i, err)
		}
		prototypes[i] = p
	}

	topLevel, err := readPrototype(br)
	if err != nil {
		return nil, fmt.Errorf("serialize: reading top-level prototype: %w", err)
	}

	nGlobals, err := readUint32(br)
	if err != nil {
		return nil, fmt.Errorf("serialize: reading global count: %w", err)
	}
	globals := make(map[string]bool, nGlobals)
	for i := uint32(0); i < nGlobals; i++ {
		name, err := readString(br)
		if err != nil {
			return nil, fmt.Errorf("serialize: reading global name %d: %w", i, err)
		}
		globals[name] = true
	}

	return &bytecode.Program{
		Constants:  constants,
		Prototypes: prototypes,
		TopLevel:   topLevel,
		Globals:    globals,
	}, nil
}

func writeConstants(w io.Writer, consts []value.Value) error {
	if err := writeUint32(w, uint32(len(consts))); err != nil {
		return err
	}
	for _, c := range consts {
		if err := writeConstant(w, c); err != nil {
			return err
		}
	}
	return nil
}

func writeConstant(w io.Writer, v value.Value) error {
	switch v.Kind {
	case value.KindNil:
		return writeByte(w, tagNil)
	case value.KindNumber:
		if err := writeByte(w, tagNumber); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, math.Float64bits(value.AsNumber(v)))
	case value.KindBool:
		if err := writeByte(w, tagBool); err != nil {
			return err
		}
		b := byte(0)
		if value.AsBool(v) {
			b = 1
		}
		return writeByte(w, b)
	case value.KindString:
		if err := writeByte(w, tagString); err != nil {
			return err
		}
		return writeString(w, value.AsString(v))
	default:
		return fmt.Errorf("serialize: %s is not a legal constant-pool entry", v.Kind)
	}
}

func readConstants(r io.Reader) ([]value.Value, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	out := make([]value.Value, n)
	for i := range out {
		v, err := readConstant(r)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func readConstant(r io.Reader) (value.Value, error) {
	tag, err := readByte(r)
	if err != nil {
		return value.Value{}, err
	}
	switch tag {
	case tagNil:
		return value.Nil(), nil
	case tagNumber:
		var bits uint64
		if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
			return value.Value{}, err
		}
		return value.Number(math.Float64frombits(bits)), nil
	case tagBool:
		b, err := readByte(r)
		if err != nil {
			return value.Value{}, err
		}
		return value.Bool(b != 0), nil
	case tagString:
		s, err := readString(r)
		if err != nil {
			return value.Value{}, err
		}
		return value.String(s), nil
	default:
		return value.Value{}, fmt.Errorf("unknown constant tag %d", tag)
	}
}

func writePrototype(w io.Writer, p *bytecode.FnPrototype) error {
	if err := writeString(w, p.Name); err != nil {
		return err
	}
	if err := writeString(w, p.File); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(p.Arity)); err != nil {
		return err
	}
	variadic := byte(0)
	if p.IsVariadic {
		variadic = 1
	}
	if err := writeByte(w, variadic); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(p.Registers)); err != nil {
		return err
	}

	if err := writeUint32(w, uint32(len(p.Code))); err != nil {
		return err
	}
	for _, instr := range p.Code {
		if err := binary.Write(w, binary.LittleEndian, uint32(instr)); err != nil {
			return err
		}
	}

	if err := writeUint32(w, uint32(len(p.Lines))); err != nil {
		return err
	}
	for _, line := range p.Lines {
		if err := writeUint32(w, uint32(line)); err != nil {
			return err
		}
	}

	if err := writeUint32(w, uint32(len(p.Upvalues))); err != nil {
		return err
	}
	for _, uv := range p.Upvalues {
		isLocal := byte(0)
		if uv.IsLocal {
			isLocal = 1
		}
		if err := writeByte(w, isLocal); err != nil {
			return err
		}
		if err := writeByte(w, uv.Index); err != nil {
			return err
		}
	}

	return nil
}

func readPrototype(r io.Reader) (*bytecode.FnPrototype, error) {
	name, err := readString(r)
	if err != nil {
		return nil, err
	}
	file, err := readString(r)
	if err != nil {
		return nil, err
	}
	arity, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	variadic, err := readByte(r)
	if err != nil {
		return nil, err
	}
	registers, err := readUint32(r)
	if err != nil {
		return nil, err
	}

	nCode, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	code := make([]bytecode.Instruction, nCode)
	for i := range code {
		var raw uint32
		if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
			return nil, err
		}
		op := bytecode.OpCode(raw & 0xFF)
		if !op.Valid() {
			return nil, fmt.Errorf("instruction %d: unknown opcode tag %d", i, byte(raw&0xFF))
		}
		code[i] = bytecode.Instruction(raw)
	}

	nLines, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	lines := make([]int, nLines)
	for i := range lines {
		v, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		lines[i] = int(v)
	}

	nUpvals, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	upvalues := make([]bytecode.UpvalueRef, nUpvals)
	for i := range upvalues {
		isLocal, err := readByte(r)
		if err != nil {
			return nil, err
		}
		index, err := readByte(r)
		if err != nil {
			return nil, err
		}
		upvalues[i] = bytecode.UpvalueRef{IsLocal: isLocal != 0, Index: index}
	}

	return &bytecode.FnPrototype{
		Name:       name,
		File:       file,
		Arity:      int(arity),
		IsVariadic: variadic != 0,
		Registers:  int(registers),
		Code:       code,
		Lines:      lines,
		Upvalues:   upvalues,
	}, nil
}

func writeString(w io.Writer, s string) error {
	if err := writeUint32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeUint32(w io.Writer, v uint32) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func readUint32(r io.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func readByte(r io.Reader) (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}
