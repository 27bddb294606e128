package adapter

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/wasm-interface-types/engine"
	"github.com/wippyai/wasm-interface-types/errors"
	"github.com/wippyai/wasm-interface-types/interpreter"
	"github.com/wippyai/wasm-interface-types/itypes"
)

type manifestFile struct {
	Engine   engine.Config `yaml:"engine"`
	Records  []recordSpec  `yaml:"records"`
	Adapters []adapterSpec `yaml:"adapters"`
}

type recordSpec struct {
	Name   string      `yaml:"name"`
	Fields []fieldSpec `yaml:"fields"`
}

type fieldSpec struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type adapterSpec struct {
	Name         string            `yaml:"name"`
	Inputs       []fieldSpec       `yaml:"inputs"`
	Outputs      []string          `yaml:"outputs"`
	Instructions []instructionSpec `yaml:"instructions"`
}

// instructionSpec is either the text form "op operand" or a mapping with
// an op key and one operand key.
type instructionSpec struct {
	Index    *uint32 `yaml:"index"`
	Value    *int64  `yaml:"value"`
	Op       string  `yaml:"op"`
	Type     string  `yaml:"type"`
	Record   string  `yaml:"record"`
	Function string  `yaml:"function"`
	text     string
	line     int
}

func (s *instructionSpec) UnmarshalYAML(node *yaml.Node) error {
	s.line = node.Line
	if node.Kind == yaml.ScalarNode {
		s.text = node.Value
		return nil
	}
	type plain instructionSpec
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*s = instructionSpec(p)
	s.line = node.Line
	return nil
}

// Adapter is one compiled adapter of a manifest.
type Adapter struct {
	interp       *interpreter.Interpreter
	Name         string
	Inputs       []itypes.FunctionArg
	Outputs      []itypes.IType
	Instructions []interpreter.Instruction
}

// Interpreter returns the compiled interpreter for the adapter.
func (a *Adapter) Interpreter() *interpreter.Interpreter { return a.interp }

// Manifest is a loaded adapter manifest: engine settings, record types and
// named adapters.
type Manifest struct {
	engine   engine.Config
	registry *itypes.Registry
	records  map[string]itypes.RecordID
	adapters map[string]*Adapter
	order    []string
}

// LoadFile reads and loads the manifest at path.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindNotFound, err, "read manifest "+path)
	}
	return Load(data)
}

// Load parses a YAML manifest, registers its record types and compiles
// every adapter.
func Load(data []byte) (*Manifest, error) {
	var file manifestFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, "decode manifest")
	}

	m := &Manifest{
		engine:   file.Engine,
		registry: itypes.NewRegistry(),
		records:  make(map[string]itypes.RecordID, len(file.Records)),
		adapters: make(map[string]*Adapter, len(file.Adapters)),
	}

	// Ids are assigned up front so fields may refer to records declared later.
	for i, r := range file.Records {
		if _, dup := m.records[r.Name]; dup || r.Name == "" {
			return nil, errors.InvalidInput(errors.PhaseParse, []string{"records", strconv.Itoa(i)},
				fmt.Sprintf("record name %q is empty or duplicated", r.Name))
		}
		m.records[r.Name] = itypes.RecordID(i)
	}
	for i, r := range file.Records {
		if err := m.registerRecord(itypes.RecordID(i), r); err != nil {
			return nil, err
		}
	}

	for _, spec := range file.Adapters {
		if _, dup := m.adapters[spec.Name]; dup || spec.Name == "" {
			return nil, errors.InvalidInput(errors.PhaseParse, []string{"adapters"},
				fmt.Sprintf("adapter name %q is empty or duplicated", spec.Name))
		}
		a, err := m.compileAdapter(spec)
		if err != nil {
			return nil, err
		}
		m.adapters[a.Name] = a
		m.order = append(m.order, a.Name)
	}
	return m, nil
}

func (m *Manifest) registerRecord(id itypes.RecordID, r recordSpec) error {
	path := []string{"records", r.Name}
	fields := make([]itypes.RecordField, len(r.Fields))
	for i, f := range r.Fields {
		t, err := m.ParseType(f.Type)
		if err != nil {
			return errors.New(errors.PhaseParse, errors.KindInvalidInput).
				Path(appendPath(path, f.Name)...).
				Cause(err).
				Build()
		}
		fields[i] = itypes.RecordField{Name: f.Name, Type: t}
	}
	rt, err := itypes.NewRecordType(r.Name, fields...)
	if err != nil {
		return err
	}
	m.registry.Register(id, rt)
	return nil
}

func (m *Manifest) compileAdapter(spec adapterSpec) (*Adapter, error) {
	a := &Adapter{Name: spec.Name}
	path := []string{"adapters", spec.Name}

	for _, in := range spec.Inputs {
		t, err := m.ParseType(in.Type)
		if err != nil {
			return nil, errors.New(errors.PhaseParse, errors.KindInvalidInput).
				Path(appendPath(path, "inputs", in.Name)...).Cause(err).Build()
		}
		a.Inputs = append(a.Inputs, itypes.FunctionArg{Name: in.Name, Type: t})
	}
	for i, out := range spec.Outputs {
		t, err := m.ParseType(out)
		if err != nil {
			return nil, errors.New(errors.PhaseParse, errors.KindInvalidInput).
				Path(appendPath(path, "outputs", strconv.Itoa(i))...).Cause(err).Build()
		}
		a.Outputs = append(a.Outputs, t)
	}

	for i, s := range spec.Instructions {
		instr, err := m.parseInstruction(s)
		if err != nil {
			return nil, errors.New(errors.PhaseParse, errors.KindInvalidInput).
				Path(appendPath(path, "instructions", strconv.Itoa(i))...).
				Detail("line %d", s.line).
				Cause(err).
				Build()
		}
		a.Instructions = append(a.Instructions, instr)
	}

	interp, err := interpreter.New(a.Instructions)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidInput, err, "compile adapter "+spec.Name)
	}
	a.interp = interp
	return a, nil
}

func (m *Manifest) parseInstruction(s instructionSpec) (interpreter.Instruction, error) {
	if s.text != "" {
		return m.ParseInstruction(s.text)
	}

	op, ok := interpreter.ParseOpcode(s.Op)
	if !ok {
		return interpreter.Instruction{}, fmt.Errorf("unknown instruction %q", s.Op)
	}
	instr := interpreter.Instruction{Op: op}
	switch op.Operand() {
	case interpreter.OperandIndex:
		switch {
		case s.Function != "" && op == interpreter.OpCallCore:
			idx, ok := m.FunctionIndex(s.Function)
			if !ok {
				return instr, fmt.Errorf("function %q is not listed in engine.functions", s.Function)
			}
			instr.Index = idx
		case s.Index != nil:
			instr.Index = *s.Index
		default:
			return instr, fmt.Errorf("%s requires an index", s.Op)
		}
	case interpreter.OperandValue:
		if s.Value == nil {
			return instr, fmt.Errorf("%s requires a value", s.Op)
		}
		instr.Value = *s.Value
		if op == interpreter.OpPushI32 && int64(int32(instr.Value)) != instr.Value {
			return instr, fmt.Errorf("value %d does not fit i32", instr.Value)
		}
	case interpreter.OperandType:
		t, err := m.ParseType(s.Type)
		if err != nil {
			return instr, err
		}
		instr.Type = t
	case interpreter.OperandRecord:
		id, err := m.recordOperand(s.Record)
		if err != nil {
			return instr, err
		}
		instr.RecordID = id
	}
	return instr, nil
}

// ParseInstruction parses the text form of an instruction, e.g. "arg.get 0",
// "array.lift_memory Array(U8)" or "record.lower_memory point". It accepts
// everything Instruction.String produces.
func (m *Manifest) ParseInstruction(text string) (interpreter.Instruction, error) {
	name, operand, _ := strings.Cut(strings.TrimSpace(text), " ")
	operand = strings.TrimSpace(operand)

	op, ok := interpreter.ParseOpcode(name)
	if !ok {
		return interpreter.Instruction{}, fmt.Errorf("unknown instruction %q", name)
	}
	instr := interpreter.Instruction{Op: op}
	if op.Operand() != interpreter.OperandNone && operand == "" {
		return instr, fmt.Errorf("%s requires an operand", name)
	}
	if op.Operand() == interpreter.OperandNone && operand != "" {
		return instr, fmt.Errorf("%s takes no operand, got %q", name, operand)
	}

	switch op.Operand() {
	case interpreter.OperandIndex:
		idx, err := strconv.ParseUint(operand, 10, 32)
		if err != nil {
			if op != interpreter.OpCallCore {
				return instr, fmt.Errorf("invalid index %q", operand)
			}
			fidx, ok := m.FunctionIndex(operand)
			if !ok {
				return instr, fmt.Errorf("function %q is not listed in engine.functions", operand)
			}
			idx = uint64(fidx)
		}
		instr.Index = uint32(idx)
	case interpreter.OperandValue:
		bits := 64
		if op == interpreter.OpPushI32 {
			bits = 32
		}
		v, err := strconv.ParseInt(operand, 10, bits)
		if err != nil {
			return instr, fmt.Errorf("invalid value %q: %w", operand, err)
		}
		instr.Value = v
	case interpreter.OperandType:
		t, err := m.ParseType(operand)
		if err != nil {
			return instr, err
		}
		instr.Type = t
	case interpreter.OperandRecord:
		id, err := m.recordOperand(operand)
		if err != nil {
			return instr, err
		}
		instr.RecordID = id
	}
	return instr, nil
}

func (m *Manifest) recordOperand(s string) (itypes.RecordID, error) {
	if id, ok := m.records[s]; ok {
		return id, nil
	}
	if id, err := strconv.ParseUint(s, 10, 64); err == nil {
		return id, nil
	}
	return 0, fmt.Errorf("unknown record %q", s)
}

// ParseType parses a type name: the forms itypes.ParseType accepts, record
// names declared in the manifest, and Array(...) of any of them.
func (m *Manifest) ParseType(s string) (itypes.IType, error) {
	s = strings.TrimSpace(s)
	if id, ok := m.records[s]; ok {
		return itypes.RecordOf(id), nil
	}
	if len(s) > len("array()") && strings.EqualFold(s[:len("array(")], "array(") && strings.HasSuffix(s, ")") {
		elem, err := m.ParseType(s[len("array(") : len(s)-1])
		if err != nil {
			return itypes.IType{}, err
		}
		return itypes.ArrayOf(elem), nil
	}
	if t, ok := itypes.ParseType(s); ok {
		return t, nil
	}
	return itypes.IType{}, fmt.Errorf("unknown type %q", s)
}

// FunctionIndex returns the call-core index of a function named in
// engine.functions, or 0 for the allocate export.
func (m *Manifest) FunctionIndex(name string) (uint32, bool) {
	allocate := m.engine.AllocateExport
	if allocate == "" {
		allocate = engine.DefaultAllocateExport
	}
	if name == allocate {
		return 0, true
	}
	for i, fn := range m.engine.Functions {
		if fn == name {
			return uint32(i + 1), true
		}
	}
	return 0, false
}

// Registry returns the manifest's record types.
func (m *Manifest) Registry() *itypes.Registry { return m.registry }

// RecordID returns the id of the record type called name.
func (m *Manifest) RecordID(name string) (itypes.RecordID, bool) {
	id, ok := m.records[name]
	return id, ok
}

// Config returns a copy of the engine settings.
func (m *Manifest) Config() *engine.Config {
	c := m.engine
	c.Functions = append([]string(nil), m.engine.Functions...)
	return &c
}

// Adapter returns the adapter called name.
func (m *Manifest) Adapter(name string) (*Adapter, bool) {
	a, ok := m.adapters[name]
	return a, ok
}

// Adapters returns adapter names in declaration order.
func (m *Manifest) Adapters() []string {
	return append([]string(nil), m.order...)
}

// Interpreter returns the compiled interpreter of the adapter called name.
func (m *Manifest) Interpreter(name string) (*interpreter.Interpreter, error) {
	a, ok := m.adapters[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseLoad, "adapter", name)
	}
	return a.interp, nil
}
