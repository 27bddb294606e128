package itypes

import (
	"math"
	"strconv"
	"strings"

	"github.com/wippyai/wasm-interface-types/errors"
)

// IValue is a concrete interface value. The zero value is Boolean(false).
//
// Integers are stored sign- or zero-extended in bits, floats as their IEEE
// bit pattern, so equality is exact and NaN payloads survive a round trip.
type IValue struct {
	elems []IValue
	bytes []byte
	str   string
	bits  uint64
	kind  Kind
}

func Bool(v bool) IValue {
	if v {
		return IValue{kind: KindBoolean, bits: 1}
	}
	return IValue{kind: KindBoolean}
}

func S8(v int8) IValue { return IValue{kind: KindS8, bits: uint64(int64(v))} }
func S16(v int16) IValue { return IValue{kind: KindS16, bits: uint64(int64(v))} }
func S32(v int32) IValue { return IValue{kind: KindS32, bits: uint64(int64(v))} }
func S64(v int64) IValue { return IValue{kind: KindS64, bits: uint64(v)} }
func U8(v uint8) IValue { return IValue{kind: KindU8, bits: uint64(v)} }
func U16(v uint16) IValue { return IValue{kind: KindU16, bits: uint64(v)} }
func U32(v uint32) IValue { return IValue{kind: KindU32, bits: uint64(v)} }
func U64(v uint64) IValue { return IValue{kind: KindU64, bits: v} }
func F32(v float32) IValue { return IValue{kind: KindF32, bits: uint64(math.Float32bits(v))} }
func F64(v float64) IValue { return IValue{kind: KindF64, bits: math.Float64bits(v)} }
func I32(v int32) IValue { return IValue{kind: KindI32, bits: uint64(int64(v))} }
func I64(v int64) IValue { return IValue{kind: KindI64, bits: uint64(v)} }

func String(s string) IValue { return IValue{kind: KindString, str: s} }

// ByteArray wraps data without copying it.
func ByteArray(data []byte) IValue { return IValue{kind: KindByteArray, bytes: data} }

// Array builds an array value. Elements are expected to share one type;
// the first element decides the memory layout when lowered.
func Array(elems ...IValue) IValue { return IValue{kind: KindArray, elems: elems} }

// NewRecord builds a record value from its fields in declaration order.
func NewRecord(fields ...IValue) (IValue, error) {
	if len(fields) == 0 {
		return IValue{}, errors.EmptyRecord(errors.PhaseLift, nil)
	}
	return IValue{kind: KindRecord, elems: fields}, nil
}

// MustRecord is NewRecord for literals; it panics on an empty field list.
func MustRecord(fields ...IValue) IValue {
	v, err := NewRecord(fields...)
	if err != nil {
		panic(err)
	}
	return v
}

func (v IValue) Kind() Kind { return v.kind }

func (v IValue) AsBool() bool { return v.bits != 0 }
func (v IValue) AsS8() int8 { return int8(v.bits) }
func (v IValue) AsS16() int16 { return int16(v.bits) }
func (v IValue) AsS32() int32 { return int32(v.bits) }
func (v IValue) AsS64() int64 { return int64(v.bits) }
func (v IValue) AsU8() uint8 { return uint8(v.bits) }
func (v IValue) AsU16() uint16 { return uint16(v.bits) }
func (v IValue) AsU32() uint32 { return uint32(v.bits) }
func (v IValue) AsU64() uint64 { return v.bits }
func (v IValue) AsI32() int32 { return int32(v.bits) }
func (v IValue) AsI64() int64 { return int64(v.bits) }
func (v IValue) AsF32() float32 { return math.Float32frombits(uint32(v.bits)) }
func (v IValue) AsF64() float64 { return math.Float64frombits(v.bits) }
func (v IValue) AsString() string { return v.str }
func (v IValue) AsBytes() []byte { return v.bytes }
func (v IValue) Elements() []IValue { return v.elems }

// Fields returns the record fields in declaration order.
func (v IValue) Fields() []IValue { return v.elems }

// Bits returns the raw little-endian payload of a scalar value.
func (v IValue) Bits() uint64 { return v.bits }

// TypeOf reports the type of v. Arrays take their element type from the
// first element and report Array(U8) when empty; records report id 0
// because record values do not carry their type id.
func (v IValue) TypeOf() IType {
	switch v.kind {
	case KindArray:
		if len(v.elems) == 0 {
			return ArrayOf(TypeU8)
		}
		return ArrayOf(v.elems[0].TypeOf())
	case KindRecord:
		return RecordOf(0)
	}
	return IType{Kind: v.kind}
}

// Equal compares values structurally.
func Equal(a, b IValue) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindString:
		return a.str == b.str
	case KindByteArray:
		return string(a.bytes) == string(b.bytes)
	case KindArray, KindRecord:
		if len(a.elems) != len(b.elems) {
			return false
		}
		for i := range a.elems {
			if !Equal(a.elems[i], b.elems[i]) {
				return false
			}
		}
		return true
	}
	return a.bits == b.bits
}

// String renders the value in debug form, e.g. I32(128) or String("hi").
func (v IValue) String() string {
	var b strings.Builder
	v.format(&b)
	return b.String()
}

func (v IValue) format(b *strings.Builder) {
	b.WriteString(v.kind.String())
	b.WriteByte('(')
	switch v.kind {
	case KindBoolean:
		b.WriteString(strconv.FormatBool(v.AsBool()))
	case KindS8, KindS16, KindS32, KindS64, KindI32, KindI64:
		b.WriteString(strconv.FormatInt(int64(v.bits), 10))
	case KindU8, KindU16, KindU32, KindU64:
		b.WriteString(strconv.FormatUint(v.bits, 10))
	case KindF32:
		b.WriteString(strconv.FormatFloat(float64(v.AsF32()), 'g', -1, 32))
	case KindF64:
		b.WriteString(strconv.FormatFloat(v.AsF64(), 'g', -1, 64))
	case KindString:
		b.WriteString(strconv.Quote(v.str))
	case KindByteArray:
		b.WriteByte('[')
		for i, c := range v.bytes {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(strconv.Itoa(int(c)))
		}
		b.WriteByte(']')
	case KindArray, KindRecord:
		b.WriteByte('[')
		for i, e := range v.elems {
			if i > 0 {
				b.WriteString(", ")
			}
			e.format(b)
		}
		b.WriteByte(']')
	}
	b.WriteByte(')')
}
