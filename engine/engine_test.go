package engine

import (
	"context"
	"testing"

	wasmit "github.com/wippyai/wasm-interface-types"
	"github.com/wippyai/wasm-interface-types/errors"
	"github.com/wippyai/wasm-interface-types/interpreter"
	"github.com/wippyai/wasm-interface-types/itypes"
)

// testWASM imports env.double, exports one page of memory, a bump
// allocator starting at 1024, add(i32, i32) and quad(x) = double(double(x)).
var testWASM = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic
	0x01, 0x00, 0x00, 0x00, // version

	// type section: (i32, i32) -> i32, (i32) -> i32
	0x01, 0x0c, 0x02,
	0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f,
	0x60, 0x01, 0x7f, 0x01, 0x7f,

	// import section: env.double type 1
	0x02, 0x0e, 0x01,
	0x03, 'e', 'n', 'v',
	0x06, 'd', 'o', 'u', 'b', 'l', 'e',
	0x00, 0x01,

	// function section: allocate, add, quad
	0x03, 0x04, 0x03, 0x00, 0x00, 0x01,

	// memory section: 1 page, no max
	0x05, 0x03, 0x01, 0x00, 0x01,

	// global section: mut i32 = 1024
	0x06, 0x07, 0x01, 0x7f, 0x01, 0x41, 0x80, 0x08, 0x0b,

	// export section
	0x07, 0x22, 0x04,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x08, 'a', 'l', 'l', 'o', 'c', 'a', 't', 'e', 0x00, 0x01,
	0x03, 'a', 'd', 'd', 0x00, 0x02,
	0x04, 'q', 'u', 'a', 'd', 0x00, 0x03,

	// code section
	0x0a, 0x1e, 0x03,
	// allocate: old := heap; heap += size; return old
	0x0b, 0x00,
	0x23, 0x00, 0x23, 0x00, 0x20, 0x00, 0x6a, 0x24, 0x00,
	0x0b,
	// add
	0x07, 0x00,
	0x20, 0x00, 0x20, 0x01, 0x6a,
	0x0b,
	// quad
	0x08, 0x00,
	0x20, 0x00, 0x10, 0x00, 0x10, 0x00,
	0x0b,
}

func doubleHost() *HostFunc {
	return NewHostFunc("double",
		[]itypes.FunctionArg{{Name: "x", Type: itypes.TypeI32}},
		[]itypes.IType{itypes.TypeI32},
		func(_ context.Context, args []itypes.IValue) ([]itypes.IValue, error) {
			return []itypes.IValue{itypes.I32(args[0].AsI32() * 2)}, nil
		})
}

func newTestInstance(t *testing.T, records wasmit.RecordResolver, functions ...string) *Instance {
	t.Helper()
	ctx := context.Background()
	inst, err := Instantiate(ctx, testWASM, records, &Config{
		Functions: functions,
		Hosts:     []*HostFunc{doubleHost()},
	})
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	t.Cleanup(func() {
		if err := inst.Close(ctx); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return inst
}

func runAdapter(t *testing.T, inst wasmit.Instance, inputs []itypes.IValue, instrs ...interpreter.Instruction) []itypes.IValue {
	t.Helper()
	interp, err := interpreter.New(instrs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	stack, err := interp.Run(context.Background(), inputs, inst)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return stack.Values()
}

func TestInstantiateBindsFunctions(t *testing.T) {
	inst := newTestInstance(t, nil, "add", "quad", "double")

	tests := []struct {
		name  string
		index uint32
		args  int
	}{
		{"allocate", 0, 2},
		{"add", 1, 2},
		{"quad", 2, 1},
		{"double", 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, ok := inst.FunctionIndex(tt.name)
			if !ok || idx != tt.index {
				t.Errorf("FunctionIndex(%q) = %d, %v, want %d", tt.name, idx, ok, tt.index)
			}
			fn, ok := inst.LocalOrImport(tt.index)
			if !ok {
				t.Fatalf("LocalOrImport(%d) missing", tt.index)
			}
			if fn.Name() != tt.name {
				t.Errorf("Name() = %q, want %q", fn.Name(), tt.name)
			}
			if fn.InputsCardinality() != tt.args {
				t.Errorf("InputsCardinality() = %d, want %d", fn.InputsCardinality(), tt.args)
			}
			if fn.OutputsCardinality() != 1 {
				t.Errorf("OutputsCardinality() = %d, want 1", fn.OutputsCardinality())
			}
		})
	}

	if _, ok := inst.LocalOrImport(4); ok {
		t.Error("LocalOrImport(4) found a function")
	}
	idx, err := inst.Bind("add")
	if err != nil || idx != 1 {
		t.Errorf("Bind(add) = %d, %v, want 1", idx, err)
	}
}

func TestExports(t *testing.T) {
	inst := newTestInstance(t, nil)
	got := inst.Exports()
	want := []string{"add", "allocate", "quad"}
	if len(got) != len(want) {
		t.Fatalf("Exports() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Exports()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCallCore(t *testing.T) {
	inst := newTestInstance(t, nil, "add", "quad", "double")

	got := runAdapter(t, inst, []itypes.IValue{itypes.I32(3), itypes.I32(4)},
		interpreter.ArgumentGet(0), interpreter.ArgumentGet(1), interpreter.CallCore(1))
	if len(got) != 1 || got[0].AsI32() != 7 {
		t.Errorf("add = %v, want [I32(7)]", got)
	}

	got = runAdapter(t, inst, []itypes.IValue{itypes.I32(3)},
		interpreter.ArgumentGet(0), interpreter.CallCore(2))
	if len(got) != 1 || got[0].AsI32() != 12 {
		t.Errorf("quad = %v, want [I32(12)]", got)
	}

	got = runAdapter(t, inst, []itypes.IValue{itypes.I32(-5)},
		interpreter.ArgumentGet(0), interpreter.CallCore(3))
	if len(got) != 1 || got[0].AsI32() != -10 {
		t.Errorf("double = %v, want [I32(-10)]", got)
	}
}

func TestStringThroughGuestAllocator(t *testing.T) {
	inst := newTestInstance(t, nil)
	const greeting = "Hello, World!"

	got := runAdapter(t, inst, []itypes.IValue{itypes.String(greeting)},
		interpreter.ArgumentGet(0),
		interpreter.Simple(interpreter.OpStringSize),
		interpreter.PushI32(int32(itypes.TagU8)),
		interpreter.CallCore(wasmit.AllocateFuncIndex),
		interpreter.ArgumentGet(0),
		interpreter.Simple(interpreter.OpStringLowerMemory),
	)
	want := []itypes.IValue{itypes.I32(1024), itypes.I32(int32(len(greeting)))}
	if len(got) != 2 || !itypes.Equal(got[0], want[0]) || !itypes.Equal(got[1], want[1]) {
		t.Fatalf("lowered = %v, want %v", got, want)
	}

	got = runAdapter(t, inst, nil,
		interpreter.PushI32(1024),
		interpreter.PushI32(int32(len(greeting))),
		interpreter.Simple(interpreter.OpStringLiftMemory),
	)
	if len(got) != 1 || got[0].AsString() != greeting {
		t.Errorf("lifted = %v, want String(%q)", got, greeting)
	}
}

func TestRecordThroughGuestAllocator(t *testing.T) {
	registry := itypes.NewRegistry()
	rt, err := itypes.NewRecordType("entry",
		itypes.RecordField{Name: "name", Type: itypes.TypeString},
		itypes.RecordField{Name: "tags", Type: itypes.ArrayOf(itypes.TypeU32)},
		itypes.RecordField{Name: "flag", Type: itypes.TypeBoolean},
	)
	if err != nil {
		t.Fatalf("NewRecordType: %v", err)
	}
	id := registry.Add(rt)
	inst := newTestInstance(t, registry)

	record := itypes.MustRecord(
		itypes.String("a"),
		itypes.Array(itypes.U32(1), itypes.U32(2)),
		itypes.Bool(true),
	)
	got := runAdapter(t, inst, []itypes.IValue{record},
		interpreter.ArgumentGet(0),
		interpreter.RecordLowerMemory(id),
		interpreter.RecordLiftMemory(id),
	)
	if len(got) != 1 || !itypes.Equal(got[0], record) {
		t.Errorf("round trip = %v, want %v", got, record)
	}
}

func TestInstantiateErrors(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		wasm []byte
		cfg  *Config
		kind errors.Kind
	}{
		{
			name: "invalid module",
			wasm: []byte{0x00, 0x61, 0x73},
			cfg:  &Config{Hosts: []*HostFunc{doubleHost()}},
			kind: errors.KindInstantiation,
		},
		{
			name: "missing host import",
			wasm: testWASM,
			kind: errors.KindInstantiation,
		},
		{
			name: "unknown function",
			wasm: testWASM,
			cfg:  &Config{Hosts: []*HostFunc{doubleHost()}, Functions: []string{"nope"}},
			kind: errors.KindNotFound,
		},
		{
			name: "unknown memory",
			wasm: testWASM,
			cfg:  &Config{Hosts: []*HostFunc{doubleHost()}, MemoryExport: "heap"},
			kind: errors.KindNotFound,
		},
		{
			name: "non-scalar host",
			wasm: testWASM,
			cfg: &Config{Hosts: []*HostFunc{NewHostFunc("double",
				[]itypes.FunctionArg{{Name: "s", Type: itypes.TypeString}}, nil, nil)}},
			kind: errors.KindUnsupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, err := Instantiate(ctx, tt.wasm, nil, tt.cfg)
			if err == nil {
				_ = inst.Close(ctx)
				t.Fatal("expected error")
			}
			if !errors.IsKind(err, tt.kind) {
				t.Errorf("error = %v, want kind %s", err, tt.kind)
			}
		})
	}
}

func TestMissingAllocator(t *testing.T) {
	ctx := context.Background()
	inst, err := Instantiate(ctx, testWASM, nil, &Config{
		AllocateExport: "malloc",
		Hosts:          []*HostFunc{doubleHost()},
	})
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	defer inst.Close(ctx)

	if _, ok := inst.LocalOrImport(wasmit.AllocateFuncIndex); ok {
		t.Error("LocalOrImport(0) found an allocator")
	}

	interp, err := interpreter.New([]interpreter.Instruction{
		interpreter.ArgumentGet(0),
		interpreter.ArrayLowerMemory(itypes.TypeI32),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = interp.Run(ctx, []itypes.IValue{itypes.Array(itypes.I32(1))}, inst)
	if !errors.IsKind(err, errors.KindAllocateMissing) {
		t.Errorf("error = %v, want allocate_missing kind", err)
	}
}

func TestMemoryView(t *testing.T) {
	inst := newTestInstance(t, nil)

	view, ok := inst.MemoryView(0)
	if !ok {
		t.Fatal("MemoryView(0) missing")
	}
	if view.Size() != 65536 {
		t.Errorf("Size() = %d, want 65536", view.Size())
	}
	if err := view.CheckBounds(65535, 1); err == nil {
		t.Error("CheckBounds(65535, 1) succeeded")
	}
	if _, ok := inst.MemoryView(1); ok {
		t.Error("MemoryView(1) found a memory")
	}
}

func TestCoreValueConversion(t *testing.T) {
	tests := []struct {
		value itypes.IValue
		want  uint64
	}{
		{itypes.I32(-1), 0xffffffff},
		{itypes.S8(-1), 0xffffffff},
		{itypes.U16(65535), 0xffff},
		{itypes.Bool(true), 1},
		{itypes.I64(-1), 0xffffffffffffffff},
		{itypes.U64(7), 7},
	}
	for _, tt := range tests {
		raw := encodeValue(tt.value)
		if raw != tt.want {
			t.Errorf("encodeValue(%v) = %#x, want %#x", tt.value, raw, tt.want)
		}
		if back := decodeValue(raw, tt.value.TypeOf()); !itypes.Equal(back, tt.value) {
			t.Errorf("decodeValue(%#x) = %v, want %v", raw, back, tt.value)
		}
	}

	f := encodeValue(itypes.F64(1.5))
	if back := decodeValue(f, itypes.TypeF64); back.AsF64() != 1.5 {
		t.Errorf("F64 round trip = %v", back)
	}
}
