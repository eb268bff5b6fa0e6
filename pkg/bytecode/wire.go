package bytecode

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Units serialize to CBOR so ahead-of-time compiled expressions can be
// stored alongside the owning component bundle and reloaded without
// recompiling. Canonical encoding keeps the bytes deterministic for a
// given unit, which the compiled-expression cache relies on.

const wireVersion = 1

// ErrWireVersion is returned when decoding a unit written by an
// incompatible serializer.
var ErrWireVersion = errors.New("unsupported compiled-unit version")

var encMode = func() cbor.EncMode {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

type wireInstruction struct {
	Op   uint8  `cbor:"o"`
	Flag uint8  `cbor:"f"`
	Pool uint16 `cbor:"p"`
	Imm  int32  `cbor:"i"`
}

type wireUnit struct {
	Version  int               `cbor:"v"`
	Code     []wireInstruction `cbor:"code"`
	Strings  []string          `cbor:"strings"`
	Ints     []int64           `cbor:"ints"`
	MaxStack int               `cbor:"maxStack"`
	Source   string            `cbor:"source,omitempty"`
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (u *Unit) MarshalBinary() ([]byte, error) {
	w := wireUnit{
		Version:  wireVersion,
		Code:     make([]wireInstruction, len(u.Code)),
		Strings:  u.Strings,
		Ints:     u.Ints,
		MaxStack: u.MaxStack,
		Source:   u.Source,
	}
	for i, ins := range u.Code {
		w.Code[i] = wireInstruction{Op: uint8(ins.Op), Flag: ins.Flag, Pool: ins.Pool, Imm: ins.Imm}
	}

	data, err := encMode.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("encoding compiled unit: %w", err)
	}
	return data, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (u *Unit) UnmarshalBinary(data []byte) error {
	var w wireUnit
	if err := cbor.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decoding compiled unit: %w", err)
	}
	if w.Version != wireVersion {
		return fmt.Errorf("%w: %d", ErrWireVersion, w.Version)
	}

	u.Code = make([]Instruction, len(w.Code))
	for i, ins := range w.Code {
		u.Code[i] = Instruction{Op: Opcode(ins.Op), Flag: ins.Flag, Pool: ins.Pool, Imm: ins.Imm}
	}
	u.Strings = w.Strings
	u.Ints = w.Ints
	u.MaxStack = w.MaxStack
	u.Source = w.Source
	return nil
}
