package interpreter

import (
	"context"

	wasmit "github.com/wippyai/wasm-interface-types"
	"github.com/wippyai/wasm-interface-types/itypes"
	"github.com/wippyai/wasm-interface-types/transcoder"
)

// popPair pops two I32 values and returns them as non-negative offsets.
// subjects name the values in NegativeValue errors.
func popPair(rt *Runtime, first, second string) (uint32, uint32, error) {
	vals, ok := rt.Stack.Pop(2)
	if !ok {
		return 0, 0, StackIsTooSmall{Needed: 2}
	}
	a, err := toOffset(vals[0], first)
	if err != nil {
		return 0, 0, err
	}
	b, err := toOffset(vals[1], second)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func toOffset(v itypes.IValue, subject string) (uint32, error) {
	if v.Kind() != itypes.KindI32 {
		return 0, InvalidValueOnTheStack{Received: v, Expected: itypes.TypeI32}
	}
	if v.AsI32() < 0 {
		return 0, NegativeValue{Subject: subject}
	}
	return uint32(v.AsI32()), nil
}

func memoryView(rt *Runtime) (wasmit.MemoryView, error) {
	view, ok := rt.Instance.MemoryView(defaultMemoryIndex)
	if !ok {
		return nil, MemoryIsMissing{MemoryIndex: defaultMemoryIndex}
	}
	return view, nil
}

// bytesOf extracts the payload of a ByteArray or of an Array holding only U8.
func bytesOf(v itypes.IValue) ([]byte, bool) {
	switch v.Kind() {
	case itypes.KindByteArray:
		return v.AsBytes(), true
	case itypes.KindArray:
		elems := v.Elements()
		if !allOfKind(elems, itypes.KindU8) {
			return nil, false
		}
		data := make([]byte, len(elems))
		for i, e := range elems {
			data[i] = e.AsU8()
		}
		return data, true
	}
	return nil, false
}

// writeAt bounds-checks pointer for len(data) bytes, empty data included,
// and then stores data.
func writeAt(rt *Runtime, pointer uint32, data []byte) error {
	view, err := memoryView(rt)
	if err != nil {
		return err
	}
	if err := view.CheckBounds(pointer, uint32(len(data))); err != nil {
		return LiLo{Err: err}
	}
	if len(data) > 0 {
		view.WriteBytes(pointer, data)
	}
	return nil
}

func stringLiftMemory(_ context.Context, rt *Runtime) error {
	pointer, length, err := popPair(rt, "pointer", "length")
	if err != nil {
		return err
	}
	view, err := memoryView(rt)
	if err != nil {
		return err
	}
	if length == 0 {
		rt.Stack.Push(itypes.String(""))
		return nil
	}
	s, err := transcoder.NewLifter(view, rt.Instance).LiftString(pointer, length)
	if err != nil {
		return LiLo{Err: err}
	}
	rt.Stack.Push(itypes.String(s))
	return nil
}

func stringLowerMemory(_ context.Context, rt *Runtime) error {
	vals, ok := rt.Stack.Pop(2)
	if !ok {
		return StackIsTooSmall{Needed: 2}
	}
	pointer, err := toOffset(vals[0], "pointer")
	if err != nil {
		return err
	}
	if vals[1].Kind() != itypes.KindString {
		return InvalidValueOnTheStack{Received: vals[1], Expected: itypes.TypeString}
	}
	data := []byte(vals[1].AsString())
	if err := writeAt(rt, pointer, data); err != nil {
		return err
	}
	rt.Stack.Push(itypes.I32(int32(pointer)))
	rt.Stack.Push(itypes.I32(int32(len(data))))
	return nil
}

func stringSize(_ context.Context, rt *Runtime) error {
	v, ok := rt.Stack.Pop1()
	if !ok {
		return StackIsTooSmall{Needed: 1}
	}
	if v.Kind() != itypes.KindString {
		return InvalidValueOnTheStack{Received: v, Expected: itypes.TypeString}
	}
	rt.Stack.Push(itypes.I32(int32(len(v.AsString()))))
	return nil
}

func byteArrayLiftMemory(_ context.Context, rt *Runtime) error {
	pointer, length, err := popPair(rt, "pointer", "length")
	if err != nil {
		return err
	}
	view, err := memoryView(rt)
	if err != nil {
		return err
	}
	data, err := transcoder.NewLifter(view, rt.Instance).LiftBytes(pointer, length)
	if err != nil {
		return LiLo{Err: err}
	}
	rt.Stack.Push(itypes.ByteArray(data))
	return nil
}

func byteArrayLowerMemory(_ context.Context, rt *Runtime) error {
	vals, ok := rt.Stack.Pop(2)
	if !ok {
		return StackIsTooSmall{Needed: 2}
	}
	pointer, err := toOffset(vals[0], "pointer")
	if err != nil {
		return err
	}
	data, ok := bytesOf(vals[1])
	if !ok {
		return InvalidValueOnTheStack{Received: vals[1], Expected: itypes.TypeByteArray}
	}
	if err := writeAt(rt, pointer, data); err != nil {
		return err
	}
	rt.Stack.Push(itypes.I32(int32(pointer)))
	rt.Stack.Push(itypes.I32(int32(len(data))))
	return nil
}

func byteArraySize(_ context.Context, rt *Runtime) error {
	v, ok := rt.Stack.Pop1()
	if !ok {
		return StackIsTooSmall{Needed: 1}
	}
	data, ok := bytesOf(v)
	if !ok {
		return InvalidValueOnTheStack{Received: v, Expected: itypes.TypeByteArray}
	}
	rt.Stack.Push(itypes.I32(int32(len(data))))
	return nil
}

func arrayLiftMemory(elem itypes.IType) executable {
	return func(_ context.Context, rt *Runtime) error {
		offset, size, err := popPair(rt, "offset", "size")
		if err != nil {
			return err
		}
		view, err := memoryView(rt)
		if err != nil {
			return err
		}
		v, err := transcoder.NewLifter(view, rt.Instance).LiftArray(elem, offset, size)
		if err != nil {
			return LiLo{Err: err}
		}
		rt.Stack.Push(v)
		return nil
	}
}

func arrayLowerMemory(elem itypes.IType) executable {
	return func(ctx context.Context, rt *Runtime) error {
		v, ok := rt.Stack.Pop1()
		if !ok {
			return StackIsTooSmall{Needed: 1}
		}
		if v.Kind() != itypes.KindArray {
			return InvalidValueOnTheStack{Received: v, Expected: itypes.ArrayOf(elem)}
		}
		for _, e := range v.Elements() {
			if !isValueCompatible(rt.Instance, elem, e, 0) {
				return InvalidValueOnTheStack{Received: e, Expected: elem}
			}
		}
		if _, err := memoryView(rt); err != nil {
			return err
		}
		elems := conformAll(rt.Instance, elem, v.Elements())
		offset, count, err := transcoder.NewLowerer(instanceAllocator{rt.Instance}).LowerArray(ctx, elems)
		if err != nil {
			return LiLo{Err: err}
		}
		rt.Stack.Push(itypes.I32(int32(offset)))
		rt.Stack.Push(itypes.I32(int32(count)))
		return nil
	}
}

func recordLiftMemory(id itypes.RecordID) executable {
	return func(_ context.Context, rt *Runtime) error {
		v, ok := rt.Stack.Pop1()
		if !ok {
			return StackIsTooSmall{Needed: 1}
		}
		offset, err := toOffset(v, "offset")
		if err != nil {
			return err
		}
		recordType, err := rt.Instance.ResolveRecord(id)
		if err != nil {
			return RecordTypeByNameIsMissing{RecordTypeID: id}
		}
		view, err := memoryView(rt)
		if err != nil {
			return err
		}
		record, err := transcoder.NewLifter(view, rt.Instance).LiftRecord(recordType, offset)
		if err != nil {
			return LiLo{Err: err}
		}
		rt.Stack.Push(record)
		return nil
	}
}

func recordLowerMemory(id itypes.RecordID) executable {
	return func(ctx context.Context, rt *Runtime) error {
		v, ok := rt.Stack.Pop1()
		if !ok {
			return StackIsTooSmall{Needed: 1}
		}
		if v.Kind() != itypes.KindRecord {
			return InvalidValueOnTheStack{Received: v, Expected: itypes.RecordOf(id)}
		}
		recordType, err := rt.Instance.ResolveRecord(id)
		if err != nil {
			return RecordTypeByNameIsMissing{RecordTypeID: id}
		}
		if !isRecordCompatible(rt.Instance, recordType, v.Fields(), 0) {
			return InvalidValueOnTheStack{Received: v, Expected: itypes.RecordOf(id)}
		}
		if _, err := memoryView(rt); err != nil {
			return err
		}
		record := conform(rt.Instance, itypes.RecordOf(id), v)
		offset, err := transcoder.NewLowerer(instanceAllocator{rt.Instance}).LowerRecord(ctx, record.Fields())
		if err != nil {
			return LiLo{Err: err}
		}
		rt.Stack.Push(itypes.I32(int32(offset)))
		return nil
	}
}
