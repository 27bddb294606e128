package adapter

import (
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/wasm-interface-types/errors"
	"github.com/wippyai/wasm-interface-types/itypes"
)

// ParseValue converts text to a value of type t. Strings are taken
// verbatim; every other type is read as YAML, so arrays are written as
// sequences and records as mappings keyed by field name or as sequences in
// field order:
//
//	ParseValue(TypeString, "hello")                 String("hello")
//	ParseValue(ArrayOf(TypeU8), "[1, 2]")            Array([U8(1), U8(2)])
//	ParseValue(RecordOf(point), "{x: 1, y: 2}")      Record([I32(1), I32(2)])
func (m *Manifest) ParseValue(t itypes.IType, text string) (itypes.IValue, error) {
	if t.Kind == itypes.KindString {
		return itypes.String(text), nil
	}
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return itypes.IValue{}, errors.Wrap(errors.PhaseParse, errors.KindInvalidInput, err, "decode value")
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return itypes.IValue{}, errors.InvalidInput(errors.PhaseParse, nil, "empty value")
	}
	return m.nodeValue(doc.Content[0], t, nil, 0)
}

// ParseArgs converts one text argument per adapter input.
func (m *Manifest) ParseArgs(a *Adapter, args []string) ([]itypes.IValue, error) {
	if len(args) != len(a.Inputs) {
		return nil, errors.InvalidInput(errors.PhaseParse, []string{a.Name},
			fmt.Sprintf("adapter takes %d argument(s), got %d", len(a.Inputs), len(args)))
	}
	values := make([]itypes.IValue, len(args))
	for i, in := range a.Inputs {
		v, err := m.ParseValue(in.Type, args[i])
		if err != nil {
			return nil, errors.New(errors.PhaseParse, errors.KindInvalidInput).
				Path(a.Name, in.Name).Cause(err).Build()
		}
		values[i] = v
	}
	return values, nil
}

const maxValueDepth = 64

func (m *Manifest) nodeValue(n *yaml.Node, t itypes.IType, path []string, depth int) (itypes.IValue, error) {
	if depth > maxValueDepth {
		return itypes.IValue{}, errors.InvalidInput(errors.PhaseParse, path, "value nested too deeply")
	}
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}

	switch t.Kind {
	case itypes.KindString:
		if n.Kind != yaml.ScalarNode {
			return itypes.IValue{}, mismatch(path, t, n)
		}
		return itypes.String(n.Value), nil

	case itypes.KindByteArray:
		if n.Kind == yaml.ScalarNode {
			return itypes.ByteArray([]byte(n.Value)), nil
		}
		elems, err := m.sequence(n, itypes.TypeU8, path, depth)
		if err != nil {
			return itypes.IValue{}, err
		}
		data := make([]byte, len(elems))
		for i, e := range elems {
			data[i] = e.AsU8()
		}
		return itypes.ByteArray(data), nil

	case itypes.KindArray:
		elems, err := m.sequence(n, t.Element(), path, depth)
		if err != nil {
			return itypes.IValue{}, err
		}
		return itypes.Array(elems...), nil

	case itypes.KindRecord:
		return m.recordValue(n, t.RecordID, path, depth)
	}

	if n.Kind != yaml.ScalarNode {
		return itypes.IValue{}, mismatch(path, t, n)
	}
	return scalarValue(n.Value, t, path)
}

func (m *Manifest) sequence(n *yaml.Node, elem itypes.IType, path []string, depth int) ([]itypes.IValue, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, mismatch(path, itypes.ArrayOf(elem), n)
	}
	elems := make([]itypes.IValue, len(n.Content))
	for i, c := range n.Content {
		v, err := m.nodeValue(c, elem, appendPath(path, strconv.Itoa(i)), depth+1)
		if err != nil {
			return nil, err
		}
		elems[i] = v
	}
	return elems, nil
}

func (m *Manifest) recordValue(n *yaml.Node, id itypes.RecordID, path []string, depth int) (itypes.IValue, error) {
	rt, err := m.registry.ResolveRecord(id)
	if err != nil {
		return itypes.IValue{}, err
	}
	fields := make([]itypes.IValue, len(rt.Fields))

	switch n.Kind {
	case yaml.SequenceNode:
		if len(n.Content) != len(rt.Fields) {
			return itypes.IValue{}, errors.InvalidInput(errors.PhaseParse, path,
				fmt.Sprintf("record %s has %d fields, got %d values", rt.Name, len(rt.Fields), len(n.Content)))
		}
		for i, f := range rt.Fields {
			v, err := m.nodeValue(n.Content[i], f.Type, appendPath(path, f.Name), depth+1)
			if err != nil {
				return itypes.IValue{}, err
			}
			fields[i] = v
		}
	case yaml.MappingNode:
		byName := make(map[string]*yaml.Node, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			byName[n.Content[i].Value] = n.Content[i+1]
		}
		for i, f := range rt.Fields {
			c, ok := byName[f.Name]
			if !ok {
				return itypes.IValue{}, errors.InvalidInput(errors.PhaseParse, appendPath(path, f.Name), "missing record field")
			}
			v, err := m.nodeValue(c, f.Type, appendPath(path, f.Name), depth+1)
			if err != nil {
				return itypes.IValue{}, err
			}
			fields[i] = v
		}
		if len(byName) != len(rt.Fields) {
			return itypes.IValue{}, errors.InvalidInput(errors.PhaseParse, path,
				fmt.Sprintf("record %s has %d fields, got %d", rt.Name, len(rt.Fields), len(byName)))
		}
	default:
		return itypes.IValue{}, mismatch(path, itypes.RecordOf(id), n)
	}
	return itypes.NewRecord(fields...)
}

func scalarValue(s string, t itypes.IType, path []string) (itypes.IValue, error) {
	switch t.Kind {
	case itypes.KindBoolean:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return itypes.IValue{}, errors.InvalidInput(errors.PhaseParse, path, fmt.Sprintf("invalid boolean %q", s))
		}
		return itypes.Bool(b), nil
	case itypes.KindF32, itypes.KindF64:
		bits := 64
		if t.Kind == itypes.KindF32 {
			bits = 32
		}
		f, err := strconv.ParseFloat(s, bits)
		if err != nil {
			return itypes.IValue{}, errors.InvalidInput(errors.PhaseParse, path, fmt.Sprintf("invalid float %q", s))
		}
		if t.Kind == itypes.KindF32 {
			return itypes.F32(float32(f)), nil
		}
		return itypes.F64(f), nil
	}

	r, ok := intBounds[t.Kind]
	if !ok {
		return itypes.IValue{}, errors.Unsupported(errors.PhaseParse, "value of type "+t.String())
	}
	if r.signed {
		v, err := strconv.ParseInt(s, 0, 64)
		if err != nil || v < r.min || v > int64(r.max) {
			return itypes.IValue{}, errors.Overflow(errors.PhaseParse, path, s, t.String())
		}
		return intValue(t.Kind, uint64(v)), nil
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil || v > r.max {
		return itypes.IValue{}, errors.Overflow(errors.PhaseParse, path, s, t.String())
	}
	return intValue(t.Kind, v), nil
}

type bounds struct {
	min    int64
	max    uint64
	signed bool
}

var intBounds = map[itypes.Kind]bounds{
	itypes.KindS8:  {math.MinInt8, math.MaxInt8, true},
	itypes.KindS16: {math.MinInt16, math.MaxInt16, true},
	itypes.KindS32: {math.MinInt32, math.MaxInt32, true},
	itypes.KindS64: {math.MinInt64, math.MaxInt64, true},
	itypes.KindI32: {math.MinInt32, math.MaxInt32, true},
	itypes.KindI64: {math.MinInt64, math.MaxInt64, true},
	itypes.KindU8:  {0, math.MaxUint8, false},
	itypes.KindU16: {0, math.MaxUint16, false},
	itypes.KindU32: {0, math.MaxUint32, false},
	itypes.KindU64: {0, math.MaxUint64, false},
}

func intValue(k itypes.Kind, raw uint64) itypes.IValue {
	switch k {
	case itypes.KindS8:
		return itypes.S8(int8(raw))
	case itypes.KindS16:
		return itypes.S16(int16(raw))
	case itypes.KindS32:
		return itypes.S32(int32(raw))
	case itypes.KindS64:
		return itypes.S64(int64(raw))
	case itypes.KindI32:
		return itypes.I32(int32(raw))
	case itypes.KindI64:
		return itypes.I64(int64(raw))
	case itypes.KindU8:
		return itypes.U8(uint8(raw))
	case itypes.KindU16:
		return itypes.U16(uint16(raw))
	case itypes.KindU32:
		return itypes.U32(uint32(raw))
	}
	return itypes.U64(raw)
}

func mismatch(path []string, t itypes.IType, n *yaml.Node) error {
	return errors.TypeMismatch(errors.PhaseParse, path, t.String(), nodeKind(n))
}

func nodeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	}
	return "node"
}

// appendPath returns path plus elems in a fresh slice, so sibling elements
// never share a backing array.
func appendPath(path []string, elems ...string) []string {
	out := make([]string, 0, len(path)+len(elems))
	out = append(out, path...)
	return append(out, elems...)
}
