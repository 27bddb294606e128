package interpreter

import (
	"context"

	"go.uber.org/zap"

	wasmit "github.com/wippyai/wasm-interface-types"
	"github.com/wippyai/wasm-interface-types/errors"
	"github.com/wippyai/wasm-interface-types/itypes"
)

// defaultMemoryIndex is the memory all memory instructions operate on.
const defaultMemoryIndex uint32 = 0

// instanceAllocator allocates through the instance's allocate function.
type instanceAllocator struct {
	inst wasmit.Instance
}

func (a instanceAllocator) Allocate(ctx context.Context, size, typeTag uint32) (uint32, wasmit.MemoryView, error) {
	fn, ok := a.inst.LocalOrImport(wasmit.AllocateFuncIndex)
	if !ok {
		return 0, nil, errors.New(errors.PhaseAllocate, errors.KindAllocateMissing).
			Detail("the allocate function with index `%d` doesn't exist in Wasm module", wasmit.AllocateFuncIndex).
			Build()
	}

	args := []itypes.IValue{itypes.I32(int32(size)), itypes.I32(int32(typeTag))}
	if err := checkFunctionSignature(a.inst, wasmit.AllocateFuncIndex, fn, args); err != nil {
		return 0, nil, errors.New(errors.PhaseAllocate, errors.KindAllocateSignature).
			Detail("allocate func doesn't receive two i32 values").
			Cause(err).
			Build()
	}

	outs, err := fn.Call(ctx, args)
	if err != nil {
		return 0, nil, errors.New(errors.PhaseAllocate, errors.KindAllocateCall).
			Detail("call to allocate(%d, %d) failed", size, typeTag).
			Cause(err).
			Build()
	}
	if len(outs) != 1 || outs[0].Kind() != itypes.KindI32 {
		return 0, nil, errors.New(errors.PhaseAllocate, errors.KindAllocateOutput).
			Detail("allocate func doesn't return a one value of I32 type").
			Value(outs).
			Build()
	}

	view, ok := a.inst.MemoryView(defaultMemoryIndex)
	if !ok {
		return 0, nil, errors.New(errors.PhaseAllocate, errors.KindMemoryMissing).
			Detail("memory `%d` does not exist", defaultMemoryIndex).
			Build()
	}

	Logger().Debug("allocated guest memory",
		zap.Uint32("size", size),
		zap.Uint32("type_tag", typeTag),
		zap.Int32("offset", outs[0].AsI32()),
	)
	return uint32(outs[0].AsI32()), view, nil
}

// checkFunctionSignature verifies args against fn's declared arguments.
func checkFunctionSignature(r wasmit.RecordResolver, index uint32, fn wasmit.Function, args []itypes.IValue) error {
	declared := fn.Arguments()
	ok := len(declared) == len(args)
	for i := 0; ok && i < len(args); i++ {
		ok = isValueCompatible(r, declared[i].Type, args[i], 0)
	}
	if ok {
		return nil
	}

	expected := Signature{Params: make([]itypes.IType, len(declared)), Results: fn.Outputs()}
	for i, a := range declared {
		expected.Params[i] = a.Type
	}
	received := Signature{Params: make([]itypes.IType, len(args))}
	for i, v := range args {
		received.Params[i] = v.TypeOf()
	}
	return LocalOrImportSignatureMismatch{FunctionIndex: index, Expected: expected, Received: received}
}

// isValueCompatible reports whether v can be used where t is expected.
// Byte arrays and arrays of U8 are interchangeable. Record values are
// checked field by field against the resolved record type.
func isValueCompatible(r wasmit.RecordResolver, t itypes.IType, v itypes.IValue, depth int) bool {
	if depth > maxCompatDepth {
		return false
	}
	switch t.Kind {
	case itypes.KindByteArray:
		switch v.Kind() {
		case itypes.KindByteArray:
			return true
		case itypes.KindArray:
			return allOfKind(v.Elements(), itypes.KindU8)
		}
		return false
	case itypes.KindArray:
		if v.Kind() == itypes.KindByteArray {
			return t.Element().Kind == itypes.KindU8
		}
		if v.Kind() != itypes.KindArray {
			return false
		}
		for _, e := range v.Elements() {
			if !isValueCompatible(r, t.Element(), e, depth+1) {
				return false
			}
		}
		return true
	case itypes.KindRecord:
		if v.Kind() != itypes.KindRecord {
			return false
		}
		rt, err := r.ResolveRecord(t.RecordID)
		if err != nil {
			return false
		}
		return isRecordCompatible(r, rt, v.Fields(), depth+1)
	}
	return v.Kind() == t.Kind
}

const maxCompatDepth = 64

func isRecordCompatible(r wasmit.RecordResolver, rt *itypes.RecordType, fields []itypes.IValue, depth int) bool {
	if len(rt.Fields) != len(fields) {
		return false
	}
	for i, f := range rt.Fields {
		if !isValueCompatible(r, f.Type, fields[i], depth) {
			return false
		}
	}
	return true
}

func allOfKind(values []itypes.IValue, k itypes.Kind) bool {
	for _, v := range values {
		if v.Kind() != k {
			return false
		}
	}
	return true
}

// conform rewrites v into the encoding t names, turning Array(U8) into
// ByteArray and back, so a value that passed isValueCompatible has one
// element kind per array. v must already be compatible with t.
func conform(r wasmit.RecordResolver, t itypes.IType, v itypes.IValue) itypes.IValue {
	switch t.Kind {
	case itypes.KindByteArray:
		if v.Kind() == itypes.KindArray {
			data, _ := bytesOf(v)
			return itypes.ByteArray(data)
		}
	case itypes.KindArray:
		elem := t.Element()
		if v.Kind() == itypes.KindByteArray {
			data := v.AsBytes()
			elems := make([]itypes.IValue, len(data))
			for i, b := range data {
				elems[i] = itypes.U8(b)
			}
			return itypes.Array(elems...)
		}
		return itypes.Array(conformAll(r, elem, v.Elements())...)
	case itypes.KindRecord:
		rt, err := r.ResolveRecord(t.RecordID)
		if err != nil || len(rt.Fields) != len(v.Fields()) {
			return v
		}
		fields := make([]itypes.IValue, len(rt.Fields))
		for i, f := range rt.Fields {
			fields[i] = conform(r, f.Type, v.Fields()[i])
		}
		return itypes.MustRecord(fields...)
	}
	return v
}

func conformAll(r wasmit.RecordResolver, elem itypes.IType, values []itypes.IValue) []itypes.IValue {
	out := make([]itypes.IValue, len(values))
	for i, v := range values {
		out[i] = conform(r, elem, v)
	}
	return out
}
