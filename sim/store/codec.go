package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"math"
)

// Artifact is an ordered set of named numeric fields, the unit of caching.
type Artifact struct {
	Fields []Field
}

// Field holds one dense real or complex vector. Exactly one of Real and
// Complex is non-nil.
type Field struct {
	Name    string
	Real    []float64
	Complex []complex128
}

// Field returns the named field, or nil if absent.
func (a *Artifact) Field(name string) *Field {
	for i := range a.Fields {
		if a.Fields[i].Name == name {
			return &a.Fields[i]
		}
	}
	return nil
}

// Binary layout (little endian):
//
//	magic "LIF1" | u16 field count
//	per field: u16 name length | name bytes | u8 dtype (0 real, 1 complex) |
//	           u64 element count | elements as f64 (complex: re, im pairs)
//	trailer: u64 FNV-1a checksum of everything before it
const magic = "LIF1"

const (
	dtypeReal    = 0
	dtypeComplex = 1
)

func encode(a *Artifact) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(magic)
	if len(a.Fields) > math.MaxUint16 {
		return nil, fmt.Errorf("too many fields: %d", len(a.Fields))
	}
	le := binary.LittleEndian
	var scratch [8]byte
	le.PutUint16(scratch[:2], uint16(len(a.Fields)))
	buf.Write(scratch[:2])
	for _, f := range a.Fields {
		if (f.Real == nil) == (f.Complex == nil) {
			return nil, fmt.Errorf("field %q: exactly one of Real/Complex must be set", f.Name)
		}
		if len(f.Name) > math.MaxUint16 {
			return nil, fmt.Errorf("field name too long: %d bytes", len(f.Name))
		}
		le.PutUint16(scratch[:2], uint16(len(f.Name)))
		buf.Write(scratch[:2])
		buf.WriteString(f.Name)
		if f.Real != nil {
			buf.WriteByte(dtypeReal)
			le.PutUint64(scratch[:], uint64(len(f.Real)))
			buf.Write(scratch[:])
			for _, v := range f.Real {
				le.PutUint64(scratch[:], math.Float64bits(v))
				buf.Write(scratch[:])
			}
		} else {
			buf.WriteByte(dtypeComplex)
			le.PutUint64(scratch[:], uint64(len(f.Complex)))
			buf.Write(scratch[:])
			for _, v := range f.Complex {
				le.PutUint64(scratch[:], math.Float64bits(real(v)))
				buf.Write(scratch[:])
				le.PutUint64(scratch[:], math.Float64bits(imag(v)))
				buf.Write(scratch[:])
			}
		}
	}
	h := fnv.New64a()
	h.Write(buf.Bytes())
	le.PutUint64(scratch[:], h.Sum64())
	buf.Write(scratch[:])
	return buf.Bytes(), nil
}

func decode(raw []byte) (*Artifact, error) {
	le := binary.LittleEndian
	if len(raw) < len(magic)+2+8 {
		return nil, errors.New("truncated header")
	}
	body, trailer := raw[:len(raw)-8], raw[len(raw)-8:]
	h := fnv.New64a()
	h.Write(body)
	if h.Sum64() != le.Uint64(trailer) {
		return nil, errors.New("checksum mismatch")
	}
	if string(body[:len(magic)]) != magic {
		return nil, errors.New("bad magic")
	}
	r := bytes.NewReader(body[len(magic):])
	readU16 := func() (uint16, error) {
		var b [2]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}
		return le.Uint16(b[:]), nil
	}
	readU64 := func() (uint64, error) {
		var b [8]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}
		return le.Uint64(b[:]), nil
	}
	nf, err := readU16()
	if err != nil {
		return nil, errors.New("truncated field count")
	}
	a := &Artifact{Fields: make([]Field, 0, nf)}
	for fi := 0; fi < int(nf); fi++ {
		nameLen, err := readU16()
		if err != nil {
			return nil, fmt.Errorf("field %d: truncated name length", fi)
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, fmt.Errorf("field %d: truncated name", fi)
		}
		dtype, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("field %q: truncated dtype", name)
		}
		count, err := readU64()
		if err != nil {
			return nil, fmt.Errorf("field %q: truncated element count", name)
		}
		f := Field{Name: string(name)}
		switch dtype {
		case dtypeReal:
			f.Real = make([]float64, count)
			for i := range f.Real {
				u, err := readU64()
				if err != nil {
					return nil, fmt.Errorf("field %q: truncated data", name)
				}
				f.Real[i] = math.Float64frombits(u)
			}
		case dtypeComplex:
			f.Complex = make([]complex128, count)
			for i := range f.Complex {
				re, err := readU64()
				if err != nil {
					return nil, fmt.Errorf("field %q: truncated data", name)
				}
				im, err := readU64()
				if err != nil {
					return nil, fmt.Errorf("field %q: truncated data", name)
				}
				f.Complex[i] = complex(math.Float64frombits(re), math.Float64frombits(im))
			}
		default:
			return nil, fmt.Errorf("field %q: unknown dtype %d", name, dtype)
		}
		a.Fields = append(a.Fields, f)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes", r.Len())
	}
	return a, nil
}
