package program

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/kristofer/dashvm/pkg/value"
)

// Binary encoding, adapted from the teacher's bytecode.Bytecode wire format:
// a magic/version header, a constant pool section, then a flat instruction
// section. All multi-byte integers are little-endian.

const (
	magic        = "DVM1"
	constTagBool = byte(iota)
	constTagInt
	constTagFloat
	constTagStr
	constTagAddr
)

// Encode serializes a Program to its on-disk binary form.
func Encode(p *Program) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(magic)

	if len(p.Constants) > MaxPoolSize {
		return nil, fmt.Errorf("constant pool too large: %d > %d", len(p.Constants), MaxPoolSize)
	}
	binary.Write(&buf, binary.LittleEndian, uint16(len(p.Constants)))
	for _, c := range p.Constants {
		if err := encodeConstant(&buf, c); err != nil {
			return nil, err
		}
	}

	binary.Write(&buf, binary.LittleEndian, uint32(len(p.Code)))
	for _, ins := range p.Code {
		buf.WriteByte(byte(ins.Op))
		binary.Write(&buf, binary.LittleEndian, ins.Operand)
	}

	return buf.Bytes(), nil
}

func encodeConstant(buf *bytes.Buffer, c any) error {
	switch cv := c.(type) {
	case bool:
		buf.WriteByte(constTagBool)
		if cv {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case int64:
		buf.WriteByte(constTagInt)
		binary.Write(buf, binary.LittleEndian, cv)
	case float64:
		buf.WriteByte(constTagFloat)
		binary.Write(buf, binary.LittleEndian, cv)
	case string:
		buf.WriteByte(constTagStr)
		binary.Write(buf, binary.LittleEndian, uint32(len(cv)))
		buf.WriteString(cv)
	case value.Addr:
		buf.WriteByte(constTagAddr)
		binary.Write(buf, binary.LittleEndian, uint64(cv))
	default:
		return fmt.Errorf("constant pool entries must be scalar literals or addresses, got %T", c)
	}
	return nil
}

// Decode parses a Program from its binary form, as produced by Encode.
func Decode(data []byte) (*Program, error) {
	if len(data) < len(magic) || string(data[:len(magic)]) != magic {
		return nil, fmt.Errorf("bad magic: not a dashvm program")
	}
	r := bytes.NewReader(data[len(magic):])

	var poolSize uint16
	if err := binary.Read(r, binary.LittleEndian, &poolSize); err != nil {
		return nil, fmt.Errorf("reading constant pool size: %w", err)
	}
	consts := make([]any, poolSize)
	for i := range consts {
		c, err := decodeConstant(r)
		if err != nil {
			return nil, fmt.Errorf("constant %d: %w", i, err)
		}
		consts[i] = c
	}

	var codeSize uint32
	if err := binary.Read(r, binary.LittleEndian, &codeSize); err != nil {
		return nil, fmt.Errorf("reading code size: %w", err)
	}
	code := make([]Instruction, codeSize)
	for i := range code {
		var op byte
		if err := binary.Read(r, binary.LittleEndian, &op); err != nil {
			return nil, fmt.Errorf("instruction %d opcode: %w", i, err)
		}
		var operand int32
		if err := binary.Read(r, binary.LittleEndian, &operand); err != nil {
			return nil, fmt.Errorf("instruction %d operand: %w", i, err)
		}
		code[i] = Instruction{Op: Opcode(op), Operand: operand}
	}

	return &Program{Code: code, Constants: consts}, nil
}

func decodeConstant(r *bytes.Reader) (any, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case constTagBool:
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return b != 0, nil
	case constTagInt:
		var v int64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, err
		}
		return v, nil
	case constTagFloat:
		var v float64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, err
		}
		return v, nil
	case constTagStr:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, err
		}
		buf := make([]byte, n)
		if _, err := r.Read(buf); err != nil {
			return nil, err
		}
		return string(buf), nil
	case constTagAddr:
		var v uint64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, err
		}
		return value.Addr(v), nil
	default:
		return nil, fmt.Errorf("unknown constant tag: %d", tag)
	}
}
