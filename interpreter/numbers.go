package interpreter

import (
	"context"
	"math"

	"github.com/wippyai/wasm-interface-types/itypes"
)

// cast is a numeric conversion between two scalar types.
type cast struct {
	from itypes.IType
	to   itypes.IType
}

var casts = map[Opcode]cast{
	OpBoolFromI32: {itypes.TypeI32, itypes.TypeBoolean},

	OpS8FromI32:  {itypes.TypeI32, itypes.TypeS8},
	OpS8FromI64:  {itypes.TypeI64, itypes.TypeS8},
	OpS16FromI32: {itypes.TypeI32, itypes.TypeS16},
	OpS16FromI64: {itypes.TypeI64, itypes.TypeS16},
	OpS32FromI32: {itypes.TypeI32, itypes.TypeS32},
	OpS32FromI64: {itypes.TypeI64, itypes.TypeS32},
	OpS64FromI32: {itypes.TypeI32, itypes.TypeS64},
	OpS64FromI64: {itypes.TypeI64, itypes.TypeS64},

	OpI32FromBool: {itypes.TypeBoolean, itypes.TypeI32},
	OpI32FromS8:   {itypes.TypeS8, itypes.TypeI32},
	OpI32FromS16:  {itypes.TypeS16, itypes.TypeI32},
	OpI32FromS32:  {itypes.TypeS32, itypes.TypeI32},
	OpI32FromS64:  {itypes.TypeS64, itypes.TypeI32},
	OpI64FromS8:   {itypes.TypeS8, itypes.TypeI64},
	OpI64FromS16:  {itypes.TypeS16, itypes.TypeI64},
	OpI64FromS32:  {itypes.TypeS32, itypes.TypeI64},
	OpI64FromS64:  {itypes.TypeS64, itypes.TypeI64},

	OpU8FromI32:  {itypes.TypeI32, itypes.TypeU8},
	OpU8FromI64:  {itypes.TypeI64, itypes.TypeU8},
	OpU16FromI32: {itypes.TypeI32, itypes.TypeU16},
	OpU16FromI64: {itypes.TypeI64, itypes.TypeU16},
	OpU32FromI32: {itypes.TypeI32, itypes.TypeU32},
	OpU32FromI64: {itypes.TypeI64, itypes.TypeU32},
	OpU64FromI32: {itypes.TypeI32, itypes.TypeU64},
	OpU64FromI64: {itypes.TypeI64, itypes.TypeU64},

	OpI32FromU8:  {itypes.TypeU8, itypes.TypeI32},
	OpI32FromU16: {itypes.TypeU16, itypes.TypeI32},
	OpI32FromU32: {itypes.TypeU32, itypes.TypeI32},
	OpI32FromU64: {itypes.TypeU64, itypes.TypeI32},
	OpI64FromU8:  {itypes.TypeU8, itypes.TypeI64},
	OpI64FromU16: {itypes.TypeU16, itypes.TypeI64},
	OpI64FromU32: {itypes.TypeU32, itypes.TypeI64},
	OpI64FromU64: {itypes.TypeU64, itypes.TypeI64},
}

func (c cast) executable() executable {
	return func(_ context.Context, rt *Runtime) error {
		v, ok := rt.Stack.Pop1()
		if !ok {
			return StackIsTooSmall{Needed: 1}
		}
		if v.Kind() != c.from.Kind {
			return InvalidValueOnTheStack{Received: v, Expected: c.from}
		}
		out, ok := convert(v, c.to.Kind)
		if !ok {
			return LoweringLifting{From: c.from, To: c.to}
		}
		rt.Stack.Push(out)
		return nil
	}
}

// intRange is the inclusive range of an integer kind.
type intRange struct {
	min int64
	max uint64
}

var intRanges = map[itypes.Kind]intRange{
	itypes.KindS8:  {math.MinInt8, math.MaxInt8},
	itypes.KindS16: {math.MinInt16, math.MaxInt16},
	itypes.KindS32: {math.MinInt32, math.MaxInt32},
	itypes.KindS64: {math.MinInt64, math.MaxInt64},
	itypes.KindI32: {math.MinInt32, math.MaxInt32},
	itypes.KindI64: {math.MinInt64, math.MaxInt64},
	itypes.KindU8:  {0, math.MaxUint8},
	itypes.KindU16: {0, math.MaxUint16},
	itypes.KindU32: {0, math.MaxUint32},
	itypes.KindU64: {0, math.MaxUint64},
}

func isSigned(k itypes.Kind) bool {
	switch k {
	case itypes.KindS8, itypes.KindS16, itypes.KindS32, itypes.KindS64, itypes.KindI32, itypes.KindI64:
		return true
	}
	return false
}

// convert performs a range-checked integer conversion of v to kind to.
// Booleans convert to and from integers as zero and non-zero.
func convert(v itypes.IValue, to itypes.Kind) (itypes.IValue, bool) {
	if to == itypes.KindBoolean {
		return itypes.Bool(v.Bits() != 0), true
	}

	r, ok := intRanges[to]
	if !ok {
		return itypes.IValue{}, false
	}
	raw := v.Bits()
	if v.Kind() == itypes.KindBoolean {
		raw = 0
		if v.AsBool() {
			raw = 1
		}
	}

	if isSigned(v.Kind()) {
		x := int64(raw)
		if x < r.min || (x > 0 && uint64(x) > r.max) {
			return itypes.IValue{}, false
		}
	} else if raw > r.max {
		return itypes.IValue{}, false
	}

	switch to {
	case itypes.KindS8:
		return itypes.S8(int8(raw)), true
	case itypes.KindS16:
		return itypes.S16(int16(raw)), true
	case itypes.KindS32:
		return itypes.S32(int32(raw)), true
	case itypes.KindS64:
		return itypes.S64(int64(raw)), true
	case itypes.KindI32:
		return itypes.I32(int32(raw)), true
	case itypes.KindI64:
		return itypes.I64(int64(raw)), true
	case itypes.KindU8:
		return itypes.U8(uint8(raw)), true
	case itypes.KindU16:
		return itypes.U16(uint16(raw)), true
	case itypes.KindU32:
		return itypes.U32(uint32(raw)), true
	}
	return itypes.U64(raw), true
}
