package memory

import (
	"encoding/binary"
	"math"

	wasmit "github.com/wippyai/wasm-interface-types"
	"github.com/wippyai/wasm-interface-types/errors"
)

func checkView(view wasmit.MemoryView, offset uint32, size uint64) error {
	if size > math.MaxUint32 {
		return errors.OutOfBounds(uint64(offset), size, view.Size())
	}
	return view.CheckBounds(offset, uint32(size))
}

// SequentialReader decodes little-endian values from a range that was
// bounds-checked once at construction. Reads past the range panic.
type SequentialReader struct {
	view   wasmit.MemoryView
	start  uint32
	offset uint32
	end    uint32
	buf    [8]byte
}

// NewSequentialReader validates [offset, offset+size) and returns a reader
// positioned at offset.
func NewSequentialReader(view wasmit.MemoryView, offset uint32, size uint64) (*SequentialReader, error) {
	if err := checkView(view, offset, size); err != nil {
		return nil, err
	}
	return &SequentialReader{
		view:   view,
		start:  offset,
		offset: offset,
		end:    offset + uint32(size),
	}, nil
}

func (r *SequentialReader) take(n uint32) []byte {
	if r.offset+n > r.end {
		panic("memory: sequential read past checked range")
	}
	b := r.buf[:n]
	r.view.ReadInto(r.offset, b)
	r.offset += n
	return b
}

func (r *SequentialReader) ReadBool() bool  { return r.take(1)[0] != 0 }
func (r *SequentialReader) ReadU8() uint8   { return r.take(1)[0] }
func (r *SequentialReader) ReadI8() int8    { return int8(r.take(1)[0]) }
func (r *SequentialReader) ReadU16() uint16 { return binary.LittleEndian.Uint16(r.take(2)) }
func (r *SequentialReader) ReadI16() int16  { return int16(r.ReadU16()) }
func (r *SequentialReader) ReadU32() uint32 { return binary.LittleEndian.Uint32(r.take(4)) }
func (r *SequentialReader) ReadI32() int32  { return int32(r.ReadU32()) }
func (r *SequentialReader) ReadU64() uint64 { return binary.LittleEndian.Uint64(r.take(8)) }
func (r *SequentialReader) ReadI64() int64  { return int64(r.ReadU64()) }

func (r *SequentialReader) ReadF32() float32 { return math.Float32frombits(r.ReadU32()) }
func (r *SequentialReader) ReadF64() float64 { return math.Float64frombits(r.ReadU64()) }

// Offset returns the current absolute position.
func (r *SequentialReader) Offset() uint32 { return r.offset }

// StartOffset returns the absolute position the reader was created at.
func (r *SequentialReader) StartOffset() uint32 { return r.start }

// Remaining returns the unread bytes in the checked range.
func (r *SequentialReader) Remaining() uint32 { return r.end - r.offset }

// SequentialWriter encodes little-endian values into a range that was
// bounds-checked once at construction. Writes past the range panic.
type SequentialWriter struct {
	view   wasmit.MemoryView
	start  uint32
	offset uint32
	end    uint32
	buf    [8]byte
}

// NewSequentialWriter validates [offset, offset+size) and returns a writer
// positioned at offset.
func NewSequentialWriter(view wasmit.MemoryView, offset uint32, size uint64) (*SequentialWriter, error) {
	if err := checkView(view, offset, size); err != nil {
		return nil, err
	}
	return &SequentialWriter{
		view:   view,
		start:  offset,
		offset: offset,
		end:    offset + uint32(size),
	}, nil
}

func (w *SequentialWriter) put(b []byte) {
	n := uint32(len(b))
	if w.offset+n > w.end {
		panic("memory: sequential write past checked range")
	}
	w.view.WriteBytes(w.offset, b)
	w.offset += n
}

func (w *SequentialWriter) WriteBool(v bool) {
	if v {
		w.WriteU8(1)
		return
	}
	w.WriteU8(0)
}

func (w *SequentialWriter) WriteU8(v uint8) {
	w.buf[0] = v
	w.put(w.buf[:1])
}

func (w *SequentialWriter) WriteI8(v int8) { w.WriteU8(uint8(v)) }

func (w *SequentialWriter) WriteU16(v uint16) {
	binary.LittleEndian.PutUint16(w.buf[:2], v)
	w.put(w.buf[:2])
}

func (w *SequentialWriter) WriteI16(v int16) { w.WriteU16(uint16(v)) }

func (w *SequentialWriter) WriteU32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[:4], v)
	w.put(w.buf[:4])
}

func (w *SequentialWriter) WriteI32(v int32) { w.WriteU32(uint32(v)) }

func (w *SequentialWriter) WriteU64(v uint64) {
	binary.LittleEndian.PutUint64(w.buf[:8], v)
	w.put(w.buf[:8])
}

func (w *SequentialWriter) WriteI64(v int64)   { w.WriteU64(uint64(v)) }
func (w *SequentialWriter) WriteF32(v float32) { w.WriteU32(math.Float32bits(v)) }
func (w *SequentialWriter) WriteF64(v float64) { w.WriteU64(math.Float64bits(v)) }

// WriteBytes copies data at the current position.
func (w *SequentialWriter) WriteBytes(data []byte) { w.put(data) }

// Offset returns the current absolute position.
func (w *SequentialWriter) Offset() uint32 { return w.offset }

// StartOffset returns the absolute position the writer was created at.
func (w *SequentialWriter) StartOffset() uint32 { return w.start }
