package transcoder

import (
	"context"
	"encoding/binary"
	"math"
	"strconv"

	wasmit "github.com/wippyai/wasm-interface-types"
	"github.com/wippyai/wasm-interface-types/errors"
	"github.com/wippyai/wasm-interface-types/itypes"
	"github.com/wippyai/wasm-interface-types/memory"
)

// MaxDepth bounds array and record nesting on both lift and lower.
const MaxDepth = 64

// Lowerer writes interface values into guest memory through an allocator.
// Every allocation hands back a fresh view; no view outlives the
// allocation that produced it.
type Lowerer struct {
	alloc wasmit.Allocatable
}

func NewLowerer(alloc wasmit.Allocatable) *Lowerer {
	return &Lowerer{alloc: alloc}
}

// LowerBytes copies data into a fresh U8-tagged allocation.
// Empty input returns (0, 0) without allocating.
func (l *Lowerer) LowerBytes(ctx context.Context, data []byte) (offset, size uint32, err error) {
	if len(data) == 0 {
		return 0, 0, nil
	}
	if uint64(len(data)) > math.MaxUint32 {
		return 0, 0, errors.Overflow(errors.PhaseLower, nil, len(data), "u32 length")
	}
	offset, err = l.write(ctx, data, itypes.TagU8)
	if err != nil {
		return 0, 0, err
	}
	return offset, uint32(len(data)), nil
}

// LowerString lowers the UTF-8 bytes of s.
func (l *Lowerer) LowerString(ctx context.Context, s string) (offset, size uint32, err error) {
	return l.LowerBytes(ctx, []byte(s))
}

// LowerArray writes elems contiguously and returns the array offset and
// element count. Pointer-like elements are lowered first and stored inline
// as (offset, length) pairs, records as a u32 offset. Empty input returns
// (0, 0) without allocating.
func (l *Lowerer) LowerArray(ctx context.Context, elems []itypes.IValue) (offset, count uint32, err error) {
	return l.lowerArray(ctx, elems, 0, nil)
}

// LowerRecord writes the packed image of fields in declaration order and
// returns its offset.
func (l *Lowerer) LowerRecord(ctx context.Context, fields []itypes.IValue) (uint32, error) {
	return l.lowerRecord(ctx, fields, 0, nil)
}

// Lower dispatches on the value kind and returns (offset, size). For
// arrays size is the element count, for records it is zero.
func (l *Lowerer) Lower(ctx context.Context, v itypes.IValue) (offset, size uint32, err error) {
	switch v.Kind() {
	case itypes.KindString:
		return l.LowerString(ctx, v.AsString())
	case itypes.KindByteArray:
		return l.LowerBytes(ctx, v.AsBytes())
	case itypes.KindArray:
		return l.LowerArray(ctx, v.Elements())
	case itypes.KindRecord:
		offset, err = l.LowerRecord(ctx, v.Fields())
		return offset, 0, err
	}
	return 0, 0, errors.Unsupported(errors.PhaseLower, "scalar "+v.Kind().String()+" is not written to memory on its own")
}

func (l *Lowerer) lowerArray(ctx context.Context, elems []itypes.IValue, depth int, path []string) (uint32, uint32, error) {
	if len(elems) == 0 {
		return 0, 0, nil
	}
	if depth > MaxDepth {
		return 0, 0, errors.InvalidData(errors.PhaseLower, path, "nesting exceeds maximum depth")
	}
	if uint64(len(elems)) > math.MaxUint32 {
		return 0, 0, errors.Overflow(errors.PhaseLower, path, len(elems), "u32 length")
	}

	first := elems[0].Kind()
	buf := getScratch()
	defer putScratch(buf)

	for i, e := range elems {
		elemPath := appendPath(path, "["+strconv.Itoa(i)+"]")
		if e.Kind() != first {
			return 0, 0, errors.TypeMismatch(errors.PhaseLower, elemPath, first.String(), e.Kind().String())
		}
		var err error
		*buf, err = l.appendInline(ctx, *buf, e, depth, elemPath)
		if err != nil {
			return 0, 0, err
		}
	}

	offset, err := l.write(ctx, *buf, itypes.ValueTypeTag(elems[0]))
	if err != nil {
		return 0, 0, err
	}
	return offset, uint32(len(elems)), nil
}

func (l *Lowerer) lowerRecord(ctx context.Context, fields []itypes.IValue, depth int, path []string) (uint32, error) {
	if len(fields) == 0 {
		return 0, errors.EmptyRecord(errors.PhaseLower, path)
	}
	if depth > MaxDepth {
		return 0, errors.InvalidData(errors.PhaseLower, path, "nesting exceeds maximum depth")
	}

	buf := getScratch()
	defer putScratch(buf)

	for i, f := range fields {
		var err error
		*buf, err = l.appendInline(ctx, *buf, f, depth, appendPath(path, "field"+strconv.Itoa(i)))
		if err != nil {
			return 0, err
		}
	}

	return l.write(ctx, *buf, itypes.TagU8)
}

// appendInline appends the inline image of v, lowering any data it points to.
func (l *Lowerer) appendInline(ctx context.Context, buf []byte, v itypes.IValue, depth int, path []string) ([]byte, error) {
	switch v.Kind() {
	case itypes.KindBoolean, itypes.KindS8, itypes.KindU8:
		return append(buf, byte(v.Bits())), nil
	case itypes.KindS16, itypes.KindU16:
		return binary.LittleEndian.AppendUint16(buf, uint16(v.Bits())), nil
	case itypes.KindS32, itypes.KindU32, itypes.KindI32, itypes.KindF32:
		return binary.LittleEndian.AppendUint32(buf, uint32(v.Bits())), nil
	case itypes.KindS64, itypes.KindU64, itypes.KindI64, itypes.KindF64:
		return binary.LittleEndian.AppendUint64(buf, v.Bits()), nil
	case itypes.KindString:
		offset, size, err := l.LowerString(ctx, v.AsString())
		if err != nil {
			return buf, err
		}
		return appendPair(buf, offset, size), nil
	case itypes.KindByteArray:
		offset, size, err := l.LowerBytes(ctx, v.AsBytes())
		if err != nil {
			return buf, err
		}
		return appendPair(buf, offset, size), nil
	case itypes.KindArray:
		offset, count, err := l.lowerArray(ctx, v.Elements(), depth+1, path)
		if err != nil {
			return buf, err
		}
		return appendPair(buf, offset, count), nil
	case itypes.KindRecord:
		offset, err := l.lowerRecord(ctx, v.Fields(), depth+1, path)
		if err != nil {
			return buf, err
		}
		return binary.LittleEndian.AppendUint32(buf, offset), nil
	}
	return buf, errors.Unsupported(errors.PhaseLower, "unknown value kind "+v.Kind().String())
}

// write allocates len(data) bytes with tag and copies data using the view
// returned by that allocation.
func (l *Lowerer) write(ctx context.Context, data []byte, tag uint32) (uint32, error) {
	size := uint32(len(data))
	offset, view, err := l.alloc.Allocate(ctx, size, tag)
	if err != nil {
		return 0, err
	}
	w, err := memory.NewSequentialWriter(view, offset, uint64(size))
	if err != nil {
		return 0, err
	}
	w.WriteBytes(data)
	return offset, nil
}

func appendPair(buf []byte, offset, size uint32) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, offset)
	return binary.LittleEndian.AppendUint32(buf, size)
}

func appendPath(path []string, elem string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, elem)
}
