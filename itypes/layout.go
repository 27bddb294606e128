package itypes

// Serialized widths in linear memory. Pointer-like values inside arrays
// and records take a (offset, length) pair of u32, records a single u32
// offset.
const (
	pairSize   = 8
	offsetSize = 4
)

// Type tags passed to the guest allocator.
const (
	TagBoolean uint32 = 0
	TagU8      uint32 = 1
	TagU16     uint32 = 2
	TagU32     uint32 = 3
	TagU64     uint32 = 4
	TagS8      uint32 = 5
	TagS16     uint32 = 6
	TagS32     uint32 = 7
	TagS64     uint32 = 8
	TagF32     uint32 = 9
	TagF64     uint32 = 10
)

func kindSize(k Kind) uint32 {
	switch k {
	case KindBoolean, KindS8, KindU8:
		return 1
	case KindS16, KindU16:
		return 2
	case KindS32, KindU32, KindI32, KindF32:
		return 4
	case KindRecord:
		return offsetSize
	case KindString, KindByteArray, KindArray:
		return pairSize
	case KindS64, KindU64, KindI64, KindF64:
		return 8
	}
	return 0
}

// SerTypeSize returns the number of bytes a value of t occupies inline
// inside an array or record.
func SerTypeSize(t IType) uint32 { return kindSize(t.Kind) }

// SerValueSize returns the inline size of v.
func SerValueSize(v IValue) uint32 { return kindSize(v.kind) }

// RecordSize returns the packed size of a record: the sum of its field sizes.
func RecordSize(rt *RecordType) uint32 {
	var size uint32
	for _, f := range rt.Fields {
		size += SerTypeSize(f.Type)
	}
	return size
}

func kindTag(k Kind) uint32 {
	switch k {
	case KindBoolean:
		return TagBoolean
	case KindU8:
		return TagU8
	case KindU16:
		return TagU16
	case KindU32:
		return TagU32
	case KindU64:
		return TagU64
	case KindS8:
		return TagS8
	case KindS16:
		return TagS16
	case KindS32, KindI32:
		return TagS32
	case KindS64, KindI64:
		return TagS64
	case KindF32:
		return TagF32
	case KindF64:
		return TagF64
	}
	// pointer-like values are addressed as u32
	return TagU32
}

// TypeTag returns the allocator type tag for t.
func TypeTag(t IType) uint32 { return kindTag(t.Kind) }

// ValueTypeTag returns the allocator type tag for v.
func ValueTypeTag(v IValue) uint32 { return kindTag(v.kind) }
