package itypes

import (
	"fmt"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-interface-types/errors"
)

// WITConverter maps WIT types onto interface types, registering record
// definitions in a Registry. Each distinct record TypeDef is registered once.
type WITConverter struct {
	reg   *Registry
	cache map[*wit.TypeDef]IType
}

// NewWITConverter creates a converter that registers records in reg.
func NewWITConverter(reg *Registry) *WITConverter {
	return &WITConverter{
		reg:   reg,
		cache: make(map[*wit.TypeDef]IType),
	}
}

// FromWIT converts a single WIT type, registering any records it names.
func FromWIT(t wit.Type, reg *Registry) (IType, error) {
	return NewWITConverter(reg).Convert(t)
}

// Convert maps t to an IType. list<u8> becomes ByteArray.
func (c *WITConverter) Convert(t wit.Type) (IType, error) {
	switch typ := t.(type) {
	case wit.Bool:
		return TypeBoolean, nil
	case wit.S8:
		return TypeS8, nil
	case wit.S16:
		return TypeS16, nil
	case wit.S32:
		return TypeS32, nil
	case wit.S64:
		return TypeS64, nil
	case wit.U8:
		return TypeU8, nil
	case wit.U16:
		return TypeU16, nil
	case wit.U32:
		return TypeU32, nil
	case wit.U64:
		return TypeU64, nil
	case wit.F32:
		return TypeF32, nil
	case wit.F64:
		return TypeF64, nil
	case wit.String:
		return TypeString, nil
	case *wit.TypeDef:
		return c.convertTypeDef(typ)
	}
	return IType{}, errors.Unsupported(errors.PhaseParse, fmt.Sprintf("WIT type %s has no interface type", WITName(t)))
}

func (c *WITConverter) convertTypeDef(td *wit.TypeDef) (IType, error) {
	if cached, ok := c.cache[td]; ok {
		return cached, nil
	}

	var (
		it  IType
		err error
	)
	switch kind := td.Kind.(type) {
	case *wit.Record:
		it, err = c.convertRecord(td, kind)
	case *wit.List:
		it, err = c.convertList(kind)
	case wit.Type:
		it, err = c.Convert(kind)
	default:
		err = errors.Unsupported(errors.PhaseParse, fmt.Sprintf("WIT type %s has no interface type", WITName(td)))
	}
	if err != nil {
		return IType{}, err
	}

	c.cache[td] = it
	return it, nil
}

func (c *WITConverter) convertList(l *wit.List) (IType, error) {
	if _, ok := l.Type.(wit.U8); ok {
		return TypeByteArray, nil
	}
	elem, err := c.Convert(l.Type)
	if err != nil {
		return IType{}, err
	}
	return ArrayOf(elem), nil
}

func (c *WITConverter) convertRecord(td *wit.TypeDef, r *wit.Record) (IType, error) {
	name := ""
	if td.Name != nil {
		name = *td.Name
	}
	fields := make([]RecordField, 0, len(r.Fields))
	for _, f := range r.Fields {
		ft, err := c.Convert(f.Type)
		if err != nil {
			return IType{}, errors.Wrap(errors.PhaseParse, errors.KindUnsupported, err, "record "+name+" field "+f.Name)
		}
		fields = append(fields, RecordField{Name: f.Name, Type: ft})
	}
	rt, err := NewRecordType(name, fields...)
	if err != nil {
		return IType{}, err
	}
	return RecordOf(c.reg.Add(rt)), nil
}

// ToWIT maps an interface type back to WIT for display. I32 and I64 map
// to s32 and s64. Records are resolved through r; unknown ids yield an
// error.
func ToWIT(t IType, r *Registry) (wit.Type, error) {
	switch t.Kind {
	case KindBoolean:
		return wit.Bool{}, nil
	case KindS8:
		return wit.S8{}, nil
	case KindS16:
		return wit.S16{}, nil
	case KindS32, KindI32:
		return wit.S32{}, nil
	case KindS64, KindI64:
		return wit.S64{}, nil
	case KindU8:
		return wit.U8{}, nil
	case KindU16:
		return wit.U16{}, nil
	case KindU32:
		return wit.U32{}, nil
	case KindU64:
		return wit.U64{}, nil
	case KindF32:
		return wit.F32{}, nil
	case KindF64:
		return wit.F64{}, nil
	case KindString:
		return wit.String{}, nil
	case KindByteArray:
		return &wit.TypeDef{Kind: &wit.List{Type: wit.U8{}}}, nil
	case KindArray:
		elem, err := ToWIT(t.Element(), r)
		if err != nil {
			return nil, err
		}
		return &wit.TypeDef{Kind: &wit.List{Type: elem}}, nil
	case KindRecord:
		rt, err := r.ResolveRecord(t.RecordID)
		if err != nil {
			return nil, err
		}
		rec := &wit.Record{Fields: make([]wit.Field, 0, len(rt.Fields))}
		for _, f := range rt.Fields {
			ft, err := ToWIT(f.Type, r)
			if err != nil {
				return nil, err
			}
			rec.Fields = append(rec.Fields, wit.Field{Name: f.Name, Type: ft})
		}
		name := rt.Name
		return &wit.TypeDef{Name: &name, Kind: rec}, nil
	}
	return nil, errors.Unsupported(errors.PhaseParse, "unknown interface type "+t.String())
}

// WITName renders a WIT type in WIT syntax for display.
func WITName(t wit.Type) string {
	switch v := t.(type) {
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.Char:
		return "char"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		if v.Name != nil {
			return *v.Name
		}
		switch kind := v.Kind.(type) {
		case *wit.List:
			return "list<" + WITName(kind.Type) + ">"
		case *wit.Record:
			return "record"
		case wit.Type:
			return WITName(kind)
		}
		return "typedef"
	default:
		return fmt.Sprintf("%T", t)
	}
}
