package memory

import (
	"math"

	"github.com/wippyai/wasm-interface-types/errors"
)

// CheckBounds validates an access of size bytes at offset against a memory
// of memSize bytes. The access is rejected when offset+size overflows 32
// bits or offset+size >= memSize.
func CheckBounds(offset, size, memSize uint32) error {
	return CheckRange(offset, uint64(size), memSize)
}

// CheckRange is CheckBounds for sizes computed in 64 bits, such as
// element size times element count.
func CheckRange(offset uint32, size uint64, memSize uint32) error {
	end := uint64(offset) + size
	if size > math.MaxUint32 || end > math.MaxUint32 || end >= uint64(memSize) {
		return errors.OutOfBounds(uint64(offset), size, memSize)
	}
	return nil
}

// View is a MemoryView over a byte slice. When the slice aliases guest
// linear memory, writes are visible to the guest; the view goes stale when
// the guest memory grows.
type View struct {
	data []byte
}

// NewView wraps data without copying.
func NewView(data []byte) *View {
	return &View{data: data}
}

// Size returns the view length in bytes, saturated at math.MaxUint32.
func (v *View) Size() uint32 {
	if uint64(len(v.data)) > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(len(v.data))
}

func (v *View) CheckBounds(offset, size uint32) error {
	return CheckBounds(offset, size, v.Size())
}

func (v *View) ReadU8(offset uint32) uint8 {
	return v.data[offset]
}

func (v *View) ReadInto(offset uint32, dst []byte) {
	copy(dst, v.data[offset:int(offset)+len(dst)])
}

func (v *View) ReadVec(offset, size uint32) []byte {
	out := make([]byte, size)
	copy(out, v.data[offset:offset+size])
	return out
}

func (v *View) WriteU8(offset uint32, b uint8) {
	v.data[offset] = b
}

func (v *View) WriteBytes(offset uint32, data []byte) {
	copy(v.data[offset:int(offset)+len(data)], data)
}

// Bytes returns the underlying slice.
func (v *View) Bytes() []byte {
	return v.data
}
