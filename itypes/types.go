package itypes

import (
	"strconv"
	"strings"
)

// Kind identifies an interface type or value variant.
type Kind uint8

const (
	KindBoolean Kind = iota
	KindS8
	KindS16
	KindS32
	KindS64
	KindU8
	KindU16
	KindU32
	KindU64
	KindF32
	KindF64
	KindI32
	KindI64
	KindString
	KindByteArray
	KindArray
	KindRecord
)

var kindNames = [...]string{
	KindBoolean:   "Boolean",
	KindS8:        "S8",
	KindS16:       "S16",
	KindS32:       "S32",
	KindS64:       "S64",
	KindU8:        "U8",
	KindU16:       "U16",
	KindU32:       "U32",
	KindU64:       "U64",
	KindF32:       "F32",
	KindF64:       "F64",
	KindI32:       "I32",
	KindI64:       "I64",
	KindString:    "String",
	KindByteArray: "ByteArray",
	KindArray:     "Array",
	KindRecord:    "Record",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// IsPointerLike reports whether values of this kind live in linear memory
// and are referenced by offset.
func (k Kind) IsPointerLike() bool {
	switch k {
	case KindString, KindByteArray, KindArray, KindRecord:
		return true
	}
	return false
}

// RecordID identifies a record type within an instance.
type RecordID = uint64

// IType describes an interface type. Elem is set for arrays, RecordID for records.
type IType struct {
	Elem     *IType
	RecordID RecordID
	Kind     Kind
}

var (
	TypeBoolean   = IType{Kind: KindBoolean}
	TypeS8        = IType{Kind: KindS8}
	TypeS16       = IType{Kind: KindS16}
	TypeS32       = IType{Kind: KindS32}
	TypeS64       = IType{Kind: KindS64}
	TypeU8        = IType{Kind: KindU8}
	TypeU16       = IType{Kind: KindU16}
	TypeU32       = IType{Kind: KindU32}
	TypeU64       = IType{Kind: KindU64}
	TypeF32       = IType{Kind: KindF32}
	TypeF64       = IType{Kind: KindF64}
	TypeI32       = IType{Kind: KindI32}
	TypeI64       = IType{Kind: KindI64}
	TypeString    = IType{Kind: KindString}
	TypeByteArray = IType{Kind: KindByteArray}
)

// ArrayOf returns the array type with the given element type.
func ArrayOf(elem IType) IType {
	e := elem
	return IType{Kind: KindArray, Elem: &e}
}

// RecordOf returns the record type reference for id.
func RecordOf(id RecordID) IType {
	return IType{Kind: KindRecord, RecordID: id}
}

// Element returns the element type of an array. Non-array types and
// malformed arrays report U8.
func (t IType) Element() IType {
	if t.Kind == KindArray && t.Elem != nil {
		return *t.Elem
	}
	return TypeU8
}

// Equal compares types structurally.
func (t IType) Equal(o IType) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KindArray:
		return t.Element().Equal(o.Element())
	case KindRecord:
		return t.RecordID == o.RecordID
	}
	return true
}

// String renders the type the way error messages show it: I32, Array(U8), Record(3).
func (t IType) String() string {
	switch t.Kind {
	case KindArray:
		return "Array(" + t.Element().String() + ")"
	case KindRecord:
		return "Record(" + strconv.FormatUint(t.RecordID, 10) + ")"
	}
	return t.Kind.String()
}

// ParseType parses the textual form produced by String, case-insensitively
// for scalar names: "i32", "String", "Array(U8)", "Record(3)".
func ParseType(s string) (IType, bool) {
	if inner, ok := cutWrapped(s, "Array("); ok {
		elem, ok := ParseType(inner)
		if !ok {
			return IType{}, false
		}
		return ArrayOf(elem), true
	}
	if inner, ok := cutWrapped(s, "Record("); ok {
		id, err := strconv.ParseUint(inner, 10, 64)
		if err != nil {
			return IType{}, false
		}
		return RecordOf(id), true
	}
	for k, name := range kindNames {
		if Kind(k) == KindArray || Kind(k) == KindRecord {
			continue
		}
		if strings.EqualFold(s, name) {
			return IType{Kind: Kind(k)}, true
		}
	}
	if k, ok := typeAliases[strings.ToLower(s)]; ok {
		return IType{Kind: k}, true
	}
	return IType{}, false
}

var typeAliases = map[string]Kind{
	"bool":       KindBoolean,
	"byte_array": KindByteArray,
	"bytes":      KindByteArray,
}

func cutWrapped(s, prefix string) (string, bool) {
	if len(s) <= len(prefix) || s[len(s)-1] != ')' || !strings.EqualFold(s[:len(prefix)], prefix) {
		return "", false
	}
	return s[len(prefix) : len(s)-1], true
}

// FunctionArg is a named, typed parameter of a core function.
type FunctionArg struct {
	Name string
	Type IType
}
