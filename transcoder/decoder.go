package transcoder

import (
	"strconv"
	"unicode/utf8"

	wasmit "github.com/wippyai/wasm-interface-types"
	"github.com/wippyai/wasm-interface-types/errors"
	"github.com/wippyai/wasm-interface-types/itypes"
	"github.com/wippyai/wasm-interface-types/memory"
)

// Lifter reads interface values out of guest memory.
type Lifter struct {
	view     wasmit.MemoryView
	resolver wasmit.RecordResolver
}

func NewLifter(view wasmit.MemoryView, resolver wasmit.RecordResolver) *Lifter {
	return &Lifter{view: view, resolver: resolver}
}

// LiftBytes copies size bytes at offset. Size zero returns an empty slice
// without touching memory.
func (l *Lifter) LiftBytes(offset, size uint32) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	if err := l.view.CheckBounds(offset, size); err != nil {
		return nil, err
	}
	return l.view.ReadVec(offset, size), nil
}

// LiftString reads size bytes at offset as UTF-8.
func (l *Lifter) LiftString(offset, size uint32) (string, error) {
	return l.liftString(offset, size, nil)
}

func (l *Lifter) liftString(offset, size uint32, path []string) (string, error) {
	data, err := l.LiftBytes(offset, size)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", errors.InvalidUTF8(errors.PhaseLift, path, data)
	}
	return string(data), nil
}

// LiftArray reads count elements of elem starting at offset. A zero count
// returns an empty array without any memory access.
func (l *Lifter) LiftArray(elem itypes.IType, offset, count uint32) (itypes.IValue, error) {
	elems, err := l.liftArray(elem, offset, count, 0, nil)
	if err != nil {
		return itypes.IValue{}, err
	}
	return itypes.Array(elems...), nil
}

// LiftRecord reads a record of type rt stored at offset.
func (l *Lifter) LiftRecord(rt *itypes.RecordType, offset uint32) (itypes.IValue, error) {
	return l.liftRecord(rt, offset, 0, nil)
}

// LiftRecordByID resolves id and reads the record stored at offset.
func (l *Lifter) LiftRecordByID(id itypes.RecordID, offset uint32) (itypes.IValue, error) {
	rt, err := l.resolver.ResolveRecord(id)
	if err != nil {
		return itypes.IValue{}, err
	}
	return l.liftRecord(rt, offset, 0, nil)
}

// Lift reads a value of type t. For strings and byte arrays size is the
// byte length, for arrays the element count; it is ignored otherwise.
// Scalars are read at offset.
func (l *Lifter) Lift(t itypes.IType, offset, size uint32) (itypes.IValue, error) {
	switch t.Kind {
	case itypes.KindString:
		s, err := l.LiftString(offset, size)
		if err != nil {
			return itypes.IValue{}, err
		}
		return itypes.String(s), nil
	case itypes.KindByteArray:
		b, err := l.LiftBytes(offset, size)
		if err != nil {
			return itypes.IValue{}, err
		}
		return itypes.ByteArray(b), nil
	case itypes.KindArray:
		return l.LiftArray(t.Element(), offset, size)
	case itypes.KindRecord:
		return l.LiftRecordByID(t.RecordID, offset)
	}
	r, err := memory.NewSequentialReader(l.view, offset, uint64(itypes.SerTypeSize(t)))
	if err != nil {
		return itypes.IValue{}, err
	}
	return l.readInline(r, t, 0, nil)
}

func (l *Lifter) liftArray(elem itypes.IType, offset, count uint32, depth int, path []string) ([]itypes.IValue, error) {
	if count == 0 {
		return []itypes.IValue{}, nil
	}
	if depth > MaxDepth {
		return nil, errors.InvalidData(errors.PhaseLift, path, "nesting exceeds maximum depth")
	}

	size := uint64(itypes.SerTypeSize(elem)) * uint64(count)
	r, err := memory.NewSequentialReader(l.view, offset, size)
	if err != nil {
		return nil, err
	}

	out := make([]itypes.IValue, 0, count)
	for i := uint32(0); i < count; i++ {
		v, err := l.readInline(r, elem, depth, appendPath(path, "["+strconv.FormatUint(uint64(i), 10)+"]"))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (l *Lifter) liftRecord(rt *itypes.RecordType, offset uint32, depth int, path []string) (itypes.IValue, error) {
	if len(rt.Fields) == 0 {
		return itypes.IValue{}, errors.EmptyRecord(errors.PhaseLift, appendPath(path, rt.Name))
	}
	if depth > MaxDepth {
		return itypes.IValue{}, errors.InvalidData(errors.PhaseLift, path, "nesting exceeds maximum depth")
	}

	r, err := memory.NewSequentialReader(l.view, offset, uint64(itypes.RecordSize(rt)))
	if err != nil {
		return itypes.IValue{}, err
	}

	fields := make([]itypes.IValue, 0, len(rt.Fields))
	for _, f := range rt.Fields {
		v, err := l.readInline(r, f.Type, depth, appendPath(path, f.Name))
		if err != nil {
			return itypes.IValue{}, err
		}
		fields = append(fields, v)
	}
	return itypes.NewRecord(fields...)
}

// readInline decodes one inline value of type t, following pointers for
// pointer-like types.
func (l *Lifter) readInline(r *memory.SequentialReader, t itypes.IType, depth int, path []string) (itypes.IValue, error) {
	switch t.Kind {
	case itypes.KindBoolean:
		return itypes.Bool(r.ReadBool()), nil
	case itypes.KindS8:
		return itypes.S8(r.ReadI8()), nil
	case itypes.KindS16:
		return itypes.S16(r.ReadI16()), nil
	case itypes.KindS32:
		return itypes.S32(r.ReadI32()), nil
	case itypes.KindS64:
		return itypes.S64(r.ReadI64()), nil
	case itypes.KindU8:
		return itypes.U8(r.ReadU8()), nil
	case itypes.KindU16:
		return itypes.U16(r.ReadU16()), nil
	case itypes.KindU32:
		return itypes.U32(r.ReadU32()), nil
	case itypes.KindU64:
		return itypes.U64(r.ReadU64()), nil
	case itypes.KindI32:
		return itypes.I32(r.ReadI32()), nil
	case itypes.KindI64:
		return itypes.I64(r.ReadI64()), nil
	case itypes.KindF32:
		return itypes.F32(r.ReadF32()), nil
	case itypes.KindF64:
		return itypes.F64(r.ReadF64()), nil
	case itypes.KindString:
		offset, size := r.ReadU32(), r.ReadU32()
		s, err := l.liftString(offset, size, path)
		if err != nil {
			return itypes.IValue{}, err
		}
		return itypes.String(s), nil
	case itypes.KindByteArray:
		offset, size := r.ReadU32(), r.ReadU32()
		b, err := l.LiftBytes(offset, size)
		if err != nil {
			return itypes.IValue{}, err
		}
		return itypes.ByteArray(b), nil
	case itypes.KindArray:
		offset, count := r.ReadU32(), r.ReadU32()
		elems, err := l.liftArray(t.Element(), offset, count, depth+1, path)
		if err != nil {
			return itypes.IValue{}, err
		}
		return itypes.Array(elems...), nil
	case itypes.KindRecord:
		offset := r.ReadU32()
		rt, err := l.resolver.ResolveRecord(t.RecordID)
		if err != nil {
			return itypes.IValue{}, err
		}
		return l.liftRecord(rt, offset, depth+1, path)
	}
	return itypes.IValue{}, errors.Unsupported(errors.PhaseLift, "unknown type "+t.String())
}
