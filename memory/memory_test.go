package memory

import (
	"math"
	"strings"
	"testing"

	"github.com/wippyai/wasm-interface-types/errors"
)

func TestCheckBounds(t *testing.T) {
	tests := []struct {
		name    string
		offset  uint32
		size    uint32
		memSize uint32
		wantErr bool
	}{
		{"inside", 0, 4, 16, false},
		{"ends just before last byte", 10, 5, 16, false},
		{"ends at memory size", 12, 4, 16, true},
		{"past end", 15, 4, 16, true},
		{"zero size at end", 16, 0, 16, true},
		{"overflow", math.MaxUint32, 2, math.MaxUint32, true},
		{"empty memory", 0, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckBounds(tt.offset, tt.size, tt.memSize)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckBounds(%d, %d, %d) = %v, wantErr %v", tt.offset, tt.size, tt.memSize, err, tt.wantErr)
			}
			if err != nil && !errors.IsKind(err, errors.KindOutOfBounds) {
				t.Errorf("error kind = %v, want out_of_bounds", err)
			}
		})
	}
}

func TestCheckBoundsMessage(t *testing.T) {
	err := CheckBounds(8, 8, 16)
	want := "Out-of-bound Wasm memory access: offset 8, size 8, while memory_size 16"
	if err == nil || !strings.Contains(err.Error(), want) {
		t.Errorf("error = %v, want containing %q", err, want)
	}
}

func TestCheckRangeLargeSize(t *testing.T) {
	if err := CheckRange(0, uint64(math.MaxUint32)+1, math.MaxUint32); err == nil {
		t.Error("size above 32 bits should fail")
	}
}

func TestViewReadWrite(t *testing.T) {
	v := NewView(make([]byte, 16))
	if v.Size() != 16 {
		t.Fatalf("Size = %d, want 16", v.Size())
	}

	v.WriteBytes(2, []byte("abc"))
	v.WriteU8(5, 'd')

	if got := string(v.ReadVec(2, 4)); got != "abcd" {
		t.Errorf("ReadVec = %q, want abcd", got)
	}
	if v.ReadU8(3) != 'b' {
		t.Errorf("ReadU8(3) = %q", v.ReadU8(3))
	}

	dst := make([]byte, 2)
	v.ReadInto(4, dst)
	if string(dst) != "cd" {
		t.Errorf("ReadInto = %q, want cd", dst)
	}

	vec := v.ReadVec(2, 1)
	vec[0] = 'z'
	if v.ReadU8(2) != 'a' {
		t.Error("ReadVec must return a copy")
	}
}

func TestSequentialRoundTrip(t *testing.T) {
	v := NewView(make([]byte, 64))

	w, err := NewSequentialWriter(v, 4, 1+1+2+4+8+4+8+2)
	if err != nil {
		t.Fatalf("NewSequentialWriter: %v", err)
	}
	w.WriteBool(true)
	w.WriteI8(-3)
	w.WriteI16(-300)
	w.WriteU32(0xdeadbeef)
	w.WriteI64(math.MinInt64)
	w.WriteF32(1.5)
	w.WriteF64(math.Inf(-1))
	w.WriteBytes([]byte{7, 9})

	if w.StartOffset() != 4 || w.Offset() != 4+30 {
		t.Errorf("writer offsets = %d..%d", w.StartOffset(), w.Offset())
	}

	r, err := NewSequentialReader(v, 4, 30)
	if err != nil {
		t.Fatalf("NewSequentialReader: %v", err)
	}
	if !r.ReadBool() {
		t.Error("ReadBool")
	}
	if r.ReadI8() != -3 {
		t.Error("ReadI8")
	}
	if r.ReadI16() != -300 {
		t.Error("ReadI16")
	}
	if r.ReadU32() != 0xdeadbeef {
		t.Error("ReadU32")
	}
	if r.ReadI64() != math.MinInt64 {
		t.Error("ReadI64")
	}
	if r.ReadF32() != 1.5 {
		t.Error("ReadF32")
	}
	if !math.IsInf(r.ReadF64(), -1) {
		t.Error("ReadF64")
	}
	if r.ReadU8() != 7 || r.ReadU8() != 9 {
		t.Error("trailing bytes")
	}
	if r.Remaining() != 0 {
		t.Errorf("Remaining = %d, want 0", r.Remaining())
	}
}

func TestSequentialLittleEndian(t *testing.T) {
	v := NewView(make([]byte, 8))
	w, err := NewSequentialWriter(v, 0, 4)
	if err != nil {
		t.Fatal(err)
	}
	w.WriteU32(0x01020304)
	if got := v.Bytes()[:4]; got[0] != 4 || got[3] != 1 {
		t.Errorf("bytes = %v, want little endian", got)
	}
}

func TestSequentialConstructorsCheckBounds(t *testing.T) {
	v := NewView(make([]byte, 8))

	if _, err := NewSequentialReader(v, 4, 4); !errors.IsKind(err, errors.KindOutOfBounds) {
		t.Errorf("reader error = %v, want out_of_bounds", err)
	}
	if _, err := NewSequentialWriter(v, 0, 1<<40); !errors.IsKind(err, errors.KindOutOfBounds) {
		t.Errorf("writer error = %v, want out_of_bounds", err)
	}
}

func TestSequentialReadPastRangePanics(t *testing.T) {
	v := NewView(make([]byte, 8))
	r, err := NewSequentialReader(v, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Error("reading past the checked range should panic")
		}
	}()
	r.ReadU32()
}
