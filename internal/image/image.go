// Package image reads and writes assembled programs as CBOR images.
package image

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"calx/internal/code"
	"calx/internal/object"

	"github.com/fxamacker/cbor/v2"
)

// Version is the image format revision written by Encode.
const Version uint16 = 1

var magic = []byte("CALX")

const headerSize = 6

var (
	ErrNotImage           = errors.New("image: missing CALX header")
	ErrUnsupportedVersion = errors.New("image: unsupported version")
	ErrLinkValue          = errors.New("image: link values cannot be stored")
)

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

const (
	tagNil uint8 = iota
	tagBool
	tagInt
	tagFloat
	tagString
	tagList
)

type wireValue struct {
	T uint8       `cbor:"1,keyasint"`
	B bool        `cbor:"2,keyasint,omitempty"`
	I int64       `cbor:"3,keyasint,omitempty"`
	F uint64      `cbor:"4,keyasint,omitempty"` // IEEE-754 bits, keeps -0 and NaN payloads
	S string      `cbor:"5,keyasint,omitempty"`
	L []wireValue `cbor:"6,keyasint,omitempty"`
}

type wireInstruction struct {
	_     struct{} `cbor:",toarray"`
	Op    uint8
	A     int64
	B     int64
	Loop  bool
	Name  string
	Const *wireValue
}

type wireFunction struct {
	Name   string            `cbor:"1,keyasint"`
	Params []string          `cbor:"2,keyasint,omitempty"`
	Code   []wireInstruction `cbor:"3,keyasint,omitempty"`
}

type wireProgram struct {
	Version   uint16         `cbor:"1,keyasint"`
	Functions []wireFunction `cbor:"2,keyasint,omitempty"`
	Globals   []wireValue    `cbor:"3,keyasint,omitempty"`
}

// IsImage reports whether data starts with the image header.
func IsImage(data []byte) bool {
	return len(data) >= headerSize && bytes.Equal(data[:len(magic)], magic)
}

// Encode serializes p. The output is deterministic for equal programs.
func Encode(p *code.Program) ([]byte, error) {
	w := wireProgram{Version: Version}
	for _, fn := range p.Functions {
		wf := wireFunction{Name: fn.Name}
		for _, t := range fn.Params {
			wf.Params = append(wf.Params, t.String())
		}
		for i, ins := range fn.Instructions {
			wi, err := encodeInstruction(ins)
			if err != nil {
				return nil, fmt.Errorf("image: %s pc=%d: %w", fn.Name, i, err)
			}
			wf.Code = append(wf.Code, wi)
		}
		w.Functions = append(w.Functions, wf)
	}
	for i, g := range p.Globals {
		v, err := encodeValue(g)
		if err != nil {
			return nil, fmt.Errorf("image: global %d: %w", i, err)
		}
		w.Globals = append(w.Globals, v)
	}

	payload, err := encMode.Marshal(&w)
	if err != nil {
		return nil, fmt.Errorf("image: marshal: %w", err)
	}
	out := make([]byte, headerSize, headerSize+len(payload))
	copy(out, magic)
	binary.BigEndian.PutUint16(out[len(magic):], Version)
	return append(out, payload...), nil
}

// Decode parses an image produced by Encode.
func Decode(data []byte) (*code.Program, error) {
	if !IsImage(data) {
		return nil, ErrNotImage
	}
	if v := binary.BigEndian.Uint16(data[len(magic):headerSize]); v != Version {
		return nil, fmt.Errorf("%w %d", ErrUnsupportedVersion, v)
	}
	var w wireProgram
	if err := cbor.Unmarshal(data[headerSize:], &w); err != nil {
		return nil, fmt.Errorf("image: unmarshal: %w", err)
	}
	if w.Version != Version {
		return nil, fmt.Errorf("%w %d", ErrUnsupportedVersion, w.Version)
	}

	p := &code.Program{}
	for _, wf := range w.Functions {
		fn := &code.Function{Name: wf.Name}
		for _, s := range wf.Params {
			t, ok := object.ParseType(s)
			if !ok {
				return nil, fmt.Errorf("image: %s: unknown parameter type %q", wf.Name, s)
			}
			fn.Params = append(fn.Params, t)
		}
		for i, wi := range wf.Code {
			ins, err := decodeInstruction(wi)
			if err != nil {
				return nil, fmt.Errorf("image: %s pc=%d: %w", wf.Name, i, err)
			}
			fn.Instructions = append(fn.Instructions, ins)
		}
		p.Functions = append(p.Functions, fn)
	}
	for i, wv := range w.Globals {
		v, err := decodeValue(wv)
		if err != nil {
			return nil, fmt.Errorf("image: global %d: %w", i, err)
		}
		p.Globals = append(p.Globals, v)
	}
	return p, nil
}

func WriteFile(path string, p *code.Program) error {
	data, err := Encode(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func ReadFile(path string) (*code.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

func encodeInstruction(ins code.Instruction) (wireInstruction, error) {
	wi := wireInstruction{
		Op:   uint8(ins.Op),
		A:    int64(ins.A),
		B:    int64(ins.B),
		Loop: ins.Loop,
		Name: ins.Name,
	}
	if ins.Const != nil {
		v, err := encodeValue(ins.Const)
		if err != nil {
			return wireInstruction{}, err
		}
		wi.Const = &v
	}
	return wi, nil
}

func decodeInstruction(wi wireInstruction) (code.Instruction, error) {
	op := code.Opcode(wi.Op)
	if _, ok := code.Lookup(op); !ok {
		return code.Instruction{}, fmt.Errorf("unknown opcode %d", wi.Op)
	}
	ins := code.Instruction{
		Op:   op,
		A:    int(wi.A),
		B:    int(wi.B),
		Loop: wi.Loop,
		Name: wi.Name,
	}
	if wi.Const != nil {
		v, err := decodeValue(*wi.Const)
		if err != nil {
			return code.Instruction{}, err
		}
		ins.Const = v
	}
	return ins, nil
}

func encodeValue(v object.Object) (wireValue, error) {
	switch x := v.(type) {
	case nil, *object.Nil:
		return wireValue{T: tagNil}, nil
	case *object.Boolean:
		return wireValue{T: tagBool, B: x.Value}, nil
	case *object.Integer:
		return wireValue{T: tagInt, I: x.Value}, nil
	case *object.Float:
		return wireValue{T: tagFloat, F: math.Float64bits(x.Value)}, nil
	case *object.String:
		return wireValue{T: tagString, S: x.Value}, nil
	case *object.List:
		w := wireValue{T: tagList}
		for _, el := range x.Elements {
			ev, err := encodeValue(el)
			if err != nil {
				return wireValue{}, err
			}
			w.L = append(w.L, ev)
		}
		return w, nil
	case *object.Link:
		return wireValue{}, ErrLinkValue
	}
	return wireValue{}, fmt.Errorf("image: unsupported value %T", v)
}

func decodeValue(w wireValue) (object.Object, error) {
	switch w.T {
	case tagNil:
		return object.NilValue, nil
	case tagBool:
		return object.NativeBool(w.B), nil
	case tagInt:
		return &object.Integer{Value: w.I}, nil
	case tagFloat:
		return &object.Float{Value: math.Float64frombits(w.F)}, nil
	case tagString:
		return &object.String{Value: w.S}, nil
	case tagList:
		l := &object.List{Elements: make([]object.Object, 0, len(w.L))}
		for _, ew := range w.L {
			el, err := decodeValue(ew)
			if err != nil {
				return nil, err
			}
			l.Elements = append(l.Elements, el)
		}
		return l, nil
	}
	return nil, fmt.Errorf("unknown value tag %d", w.T)
}
