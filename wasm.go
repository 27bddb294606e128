package wasmit

import (
	"context"

	"github.com/wippyai/wasm-interface-types/itypes"
)

// AllocateFuncIndex is the local-or-import index of the guest allocator.
// The allocator has the signature (i32 size, i32 type_tag) -> i32 offset.
const AllocateFuncIndex uint32 = 0

// MemoryView is a bounds-checked view over WASM linear memory.
//
// Read and write methods assume the range was validated with CheckBounds
// and panic otherwise. A view may be invalidated by any call that can grow
// memory, so callers re-acquire it after allocations.
type MemoryView interface {
	// Size returns the current memory size in bytes.
	Size() uint32
	// CheckBounds fails when offset+size overflows or reaches the memory size.
	CheckBounds(offset, size uint32) error
	ReadU8(offset uint32) uint8
	// ReadInto fills dst from offset.
	ReadInto(offset uint32, dst []byte)
	// ReadVec returns a copy of size bytes from offset.
	ReadVec(offset, size uint32) []byte
	WriteU8(offset uint32, v uint8)
	WriteBytes(offset uint32, data []byte)
}

// Allocatable reserves guest memory for lowered values.
// The returned view reflects memory after the allocation and must be used
// for the writes that follow.
type Allocatable interface {
	Allocate(ctx context.Context, size, typeTag uint32) (uint32, MemoryView, error)
}

// RecordResolver maps record type ids to their definitions.
type RecordResolver interface {
	ResolveRecord(id uint64) (*itypes.RecordType, error)
}

// Function is a core function reachable by index from an adapter.
type Function interface {
	Name() string
	InputsCardinality() int
	OutputsCardinality() int
	Arguments() []itypes.FunctionArg
	Outputs() []itypes.IType
	Call(ctx context.Context, args []itypes.IValue) ([]itypes.IValue, error)
}

// Instance exposes the functions, memories and record types an adapter runs against.
type Instance interface {
	LocalOrImport(index uint32) (Function, bool)
	MemoryView(index uint32) (MemoryView, bool)
	RecordResolver
}
