package adapter

import (
	"context"
	"strings"
	"testing"

	wasmit "github.com/wippyai/wasm-interface-types"
	"github.com/wippyai/wasm-interface-types/errors"
	"github.com/wippyai/wasm-interface-types/itypes"
	"github.com/wippyai/wasm-interface-types/memory"
)

const testManifest = `
engine:
  allocate_export: allocate
  functions: [add, greet]
  memory_limit_pages: 4
records:
  - name: entry
    fields:
      - {name: name, type: string}
      - {name: tags, type: "array(u32)"}
      - {name: owner, type: person}
  - name: person
    fields:
      - {name: id, type: u64}
adapters:
  - name: sum
    inputs:
      - {name: a, type: i32}
      - {name: b, type: i32}
    outputs: [i32]
    instructions:
      - arg.get 0
      - arg.get 1
      - {op: call-core, function: add}
  - name: echo
    inputs:
      - {name: s, type: string}
    outputs: [string]
    instructions:
      - arg.get 0
      - string.size
      - i32.push 1
      - call-core allocate
      - arg.get 0
      - string.lower_memory
      - string.lift_memory
  - name: store
    inputs:
      - {name: e, type: entry}
    outputs: [entry]
    instructions:
      - {op: arg.get, index: 0}
      - record.lower_memory entry
      - {op: record.lift_memory, record: entry}
  - name: numbers
    inputs:
      - {name: xs, type: "Array(S16)"}
    outputs: ["array(s16)"]
    instructions:
      - arg.get 0
      - {op: array.lower_memory, type: s16}
      - array.lift_memory S16
`

func loadTestManifest(t *testing.T) *Manifest {
	t.Helper()
	m, err := Load([]byte(testManifest))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m
}

func TestLoad(t *testing.T) {
	m := loadTestManifest(t)

	if got := m.Registry().Len(); got != 2 {
		t.Errorf("Registry().Len() = %d, want 2", got)
	}
	entryID, ok := m.RecordID("entry")
	if !ok || entryID != 0 {
		t.Fatalf("RecordID(entry) = %d, %v, want 0", entryID, ok)
	}
	entry, err := m.Registry().ResolveRecord(entryID)
	if err != nil {
		t.Fatalf("ResolveRecord: %v", err)
	}
	wantFields := []string{"String", "Array(U32)", "Record(1)"}
	for i, want := range wantFields {
		if got := entry.Fields[i].Type.String(); got != want {
			t.Errorf("entry field %d type = %s, want %s", i, got, want)
		}
	}

	names := m.Adapters()
	if strings.Join(names, ",") != "sum,echo,store,numbers" {
		t.Errorf("Adapters() = %v", names)
	}

	tests := []struct {
		adapter string
		want    []string
	}{
		{"sum", []string{"arg.get 0", "arg.get 1", "call-core 1"}},
		{"echo", []string{"arg.get 0", "string.size", "i32.push 1", "call-core 0", "arg.get 0", "string.lower_memory", "string.lift_memory"}},
		{"store", []string{"arg.get 0", "record.lower_memory 0", "record.lift_memory 0"}},
		{"numbers", []string{"arg.get 0", "array.lower_memory S16", "array.lift_memory S16"}},
	}
	for _, tt := range tests {
		t.Run(tt.adapter, func(t *testing.T) {
			a, ok := m.Adapter(tt.adapter)
			if !ok {
				t.Fatalf("Adapter(%q) missing", tt.adapter)
			}
			if len(a.Instructions) != len(tt.want) {
				t.Fatalf("instructions = %v, want %v", a.Instructions, tt.want)
			}
			for i, want := range tt.want {
				if got := a.Instructions[i].String(); got != want {
					t.Errorf("instruction %d = %q, want %q", i, got, want)
				}
			}
		})
	}
}

func TestConfig(t *testing.T) {
	cfg := loadTestManifest(t).Config()
	if cfg.AllocateExport != "allocate" {
		t.Errorf("AllocateExport = %q, want allocate", cfg.AllocateExport)
	}
	if cfg.MemoryLimitPages != 4 {
		t.Errorf("MemoryLimitPages = %d, want 4", cfg.MemoryLimitPages)
	}
	if strings.Join(cfg.Functions, ",") != "add,greet" {
		t.Errorf("Functions = %v, want [add greet]", cfg.Functions)
	}
}

func TestInstructionTextRoundTrip(t *testing.T) {
	m := loadTestManifest(t)
	for _, name := range m.Adapters() {
		a, _ := m.Adapter(name)
		for _, instr := range a.Instructions {
			parsed, err := m.ParseInstruction(instr.String())
			if err != nil {
				t.Errorf("ParseInstruction(%q): %v", instr.String(), err)
				continue
			}
			if parsed.String() != instr.String() {
				t.Errorf("ParseInstruction(%q) = %q", instr.String(), parsed.String())
			}
		}
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		want     string
	}{
		{"bad yaml", "adapters: [", "decode manifest"},
		{"unknown op", "adapters:\n  - name: a\n    instructions: [frobnicate]", `unknown instruction "frobnicate"`},
		{"missing operand", "adapters:\n  - name: a\n    instructions: [arg.get]", "arg.get requires an operand"},
		{"extra operand", "adapters:\n  - name: a\n    instructions: [dup 1]", "dup takes no operand"},
		{"push overflow", "adapters:\n  - name: a\n    instructions: [i32.push 99999999999]", "invalid value"},
		{"mapping push overflow", "adapters:\n  - name: a\n    instructions: [{op: i32.push, value: 99999999999}]", "does not fit i32"},
		{"unknown function", "adapters:\n  - name: a\n    instructions: [call-core nope]", `function "nope" is not listed`},
		{"unknown record", "adapters:\n  - name: a\n    instructions: [record.lift_memory nope]", `unknown record "nope"`},
		{"unknown type", "adapters:\n  - name: a\n    inputs: [{name: x, type: quux}]", `unknown type "quux"`},
		{"duplicate adapter", "adapters:\n  - name: a\n  - name: a", "empty or duplicated"},
		{"empty record", "records:\n  - name: r\n    fields: []", "empty_record"},
		{"duplicate record", "records:\n  - {name: r, fields: [{name: x, type: i32}]}\n  - {name: r, fields: [{name: x, type: i32}]}", "empty or duplicated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.manifest))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestParseValue(t *testing.T) {
	m := loadTestManifest(t)
	entryID, _ := m.RecordID("entry")

	entry := itypes.MustRecord(
		itypes.String("x"),
		itypes.Array(itypes.U32(1), itypes.U32(2)),
		itypes.MustRecord(itypes.U64(9)),
	)

	tests := []struct {
		name string
		typ  itypes.IType
		text string
		want itypes.IValue
	}{
		{"string verbatim", itypes.TypeString, "a: b", itypes.String("a: b")},
		{"bool", itypes.TypeBoolean, "true", itypes.Bool(true)},
		{"s8", itypes.TypeS8, "-128", itypes.S8(-128)},
		{"u64", itypes.TypeU64, "18446744073709551615", itypes.U64(18446744073709551615)},
		{"hex", itypes.TypeI32, "0x10", itypes.I32(16)},
		{"f64", itypes.TypeF64, "1.5", itypes.F64(1.5)},
		{"bytes from text", itypes.TypeByteArray, "abc", itypes.ByteArray([]byte("abc"))},
		{"bytes from sequence", itypes.TypeByteArray, "[1, 255]", itypes.ByteArray([]byte{1, 255})},
		{"array", itypes.ArrayOf(itypes.TypeS16), "[-1, 2]", itypes.Array(itypes.S16(-1), itypes.S16(2))},
		{"array of strings", itypes.ArrayOf(itypes.TypeString), `["a", "b c"]`, itypes.Array(itypes.String("a"), itypes.String("b c"))},
		{"record mapping", itypes.RecordOf(entryID), "{name: x, tags: [1, 2], owner: {id: 9}}", entry},
		{"record sequence", itypes.RecordOf(entryID), "[x, [1, 2], [9]]", entry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.ParseValue(tt.typ, tt.text)
			if err != nil {
				t.Fatalf("ParseValue: %v", err)
			}
			if !itypes.Equal(got, tt.want) {
				t.Errorf("ParseValue(%s, %q) = %v, want %v", tt.typ, tt.text, got, tt.want)
			}
		})
	}
}

func TestParseValueErrors(t *testing.T) {
	m := loadTestManifest(t)
	entryID, _ := m.RecordID("entry")

	tests := []struct {
		name string
		typ  itypes.IType
		text string
		kind errors.Kind
	}{
		{"s8 overflow", itypes.TypeS8, "200", errors.KindOverflow},
		{"u8 negative", itypes.TypeU8, "-1", errors.KindOverflow},
		{"bad bool", itypes.TypeBoolean, "maybe", errors.KindInvalidInput},
		{"array from scalar", itypes.ArrayOf(itypes.TypeU8), "1", errors.KindTypeMismatch},
		{"missing field", itypes.RecordOf(entryID), "{name: x, tags: []}", errors.KindInvalidInput},
		{"extra field", itypes.RecordOf(entryID), "{name: x, tags: [], owner: [1], more: 2}", errors.KindInvalidInput},
		{"short sequence", itypes.RecordOf(entryID), "[x]", errors.KindInvalidInput},
		{"empty", itypes.TypeI32, "", errors.KindInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.ParseValue(tt.typ, tt.text)
			if !errors.IsKind(err, tt.kind) {
				t.Errorf("error = %v, want kind %s", err, tt.kind)
			}
		})
	}
}

func TestParseValueErrorPath(t *testing.T) {
	m := loadTestManifest(t)
	entryID, _ := m.RecordID("entry")

	tests := []struct {
		name string
		typ  itypes.IType
		text string
		want string
	}{
		{"nested array", itypes.ArrayOf(itypes.ArrayOf(itypes.TypeS8)), "[[1, 2], [3, 4, 300]]", "1.2"},
		{"deep nested array", itypes.ArrayOf(itypes.ArrayOf(itypes.ArrayOf(itypes.TypeU8))), "[[[1]], [[2], [3, -1]]]", "1.1.1"},
		{"record array field", itypes.RecordOf(entryID), "{name: x, tags: [1, 2, -1], owner: {id: 1}}", "tags.2"},
		{"record in record", itypes.RecordOf(entryID), "{name: x, tags: [], owner: {id: -5}}", "owner.id"},
		{"array of records", itypes.ArrayOf(itypes.RecordOf(entryID)),
			"[{name: a, tags: [1], owner: {id: 1}}, {name: b, tags: [2, 3, 4, x], owner: {id: 2}}]", "1.tags.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.ParseValue(tt.typ, tt.text)
			e, ok := err.(*errors.Error)
			if !ok {
				t.Fatalf("error = %v, want *errors.Error", err)
			}
			if got := strings.Join(e.Path, "."); got != tt.want {
				t.Errorf("path = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseArgs(t *testing.T) {
	m := loadTestManifest(t)
	sum, _ := m.Adapter("sum")

	args, err := m.ParseArgs(sum, []string{"3", "4"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if len(args) != 2 || args[0].AsI32() != 3 || args[1].AsI32() != 4 {
		t.Errorf("ParseArgs = %v, want [I32(3) I32(4)]", args)
	}

	if _, err := m.ParseArgs(sum, []string{"3"}); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Errorf("error = %v, want invalid_input kind", err)
	}
}

type fakeFunction struct {
	call func(args []itypes.IValue) []itypes.IValue
	name string
	args []itypes.FunctionArg
}

func (f *fakeFunction) Name() string                    { return f.name }
func (f *fakeFunction) InputsCardinality() int          { return len(f.args) }
func (f *fakeFunction) OutputsCardinality() int         { return 1 }
func (f *fakeFunction) Arguments() []itypes.FunctionArg { return f.args }
func (f *fakeFunction) Outputs() []itypes.IType         { return []itypes.IType{itypes.TypeI32} }

func (f *fakeFunction) Call(_ context.Context, args []itypes.IValue) ([]itypes.IValue, error) {
	return f.call(args), nil
}

type fakeInstance struct {
	records *itypes.Registry
	view    *memory.View
	funcs   []wasmit.Function
}

func newFakeInstance(records *itypes.Registry) *fakeInstance {
	inst := &fakeInstance{records: records, view: memory.NewView(make([]byte, 512))}
	next := int32(16)
	i32 := itypes.TypeI32
	inst.funcs = []wasmit.Function{
		&fakeFunction{
			name: "allocate",
			args: []itypes.FunctionArg{{Name: "size", Type: i32}, {Name: "tag", Type: i32}},
			call: func(args []itypes.IValue) []itypes.IValue {
				offset := next
				next += args[0].AsI32()
				return []itypes.IValue{itypes.I32(offset)}
			},
		},
		&fakeFunction{
			name: "add",
			args: []itypes.FunctionArg{{Name: "a", Type: i32}, {Name: "b", Type: i32}},
			call: func(args []itypes.IValue) []itypes.IValue {
				return []itypes.IValue{itypes.I32(args[0].AsI32() + args[1].AsI32())}
			},
		},
	}
	return inst
}

func (i *fakeInstance) LocalOrImport(index uint32) (wasmit.Function, bool) {
	if int(index) >= len(i.funcs) {
		return nil, false
	}
	return i.funcs[index], true
}

func (i *fakeInstance) MemoryView(index uint32) (wasmit.MemoryView, bool) {
	return i.view, index == 0
}

func (i *fakeInstance) ResolveRecord(id uint64) (*itypes.RecordType, error) {
	return i.records.ResolveRecord(id)
}

func TestRunAdapters(t *testing.T) {
	m := loadTestManifest(t)
	ctx := context.Background()

	tests := []struct {
		adapter string
		args    []string
	}{
		{"echo", []string{"Hello, World!"}},
		{"store", []string{"{name: x, tags: [1, 2], owner: {id: 9}}"}},
		{"numbers", []string{"[-3, 0, 7]"}},
	}
	for _, tt := range tests {
		t.Run(tt.adapter, func(t *testing.T) {
			a, _ := m.Adapter(tt.adapter)
			inputs, err := m.ParseArgs(a, tt.args)
			if err != nil {
				t.Fatalf("ParseArgs: %v", err)
			}
			stack, err := a.Interpreter().Run(ctx, inputs, newFakeInstance(m.Registry()))
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			got := stack.Values()
			if len(got) != 1 || !itypes.Equal(got[0], inputs[0]) {
				t.Errorf("result = %v, want [%v]", got, inputs[0])
			}
		})
	}

	interp, err := m.Interpreter("sum")
	if err != nil {
		t.Fatalf("Interpreter: %v", err)
	}
	stack, err := interp.Run(ctx, []itypes.IValue{itypes.I32(2), itypes.I32(5)}, newFakeInstance(m.Registry()))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v, _ := stack.Peek1(); v.AsI32() != 7 {
		t.Errorf("sum = %v, want I32(7)", v)
	}

	if _, err := m.Interpreter("missing"); !errors.IsKind(err, errors.KindNotFound) {
		t.Errorf("error = %v, want not_found kind", err)
	}
}
