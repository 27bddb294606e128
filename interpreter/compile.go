package interpreter

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-interface-types/itypes"
)

// compile turns an instruction into its executable form.
func compile(instr Instruction) (executable, error) {
	if cast, ok := casts[instr.Op]; ok {
		return cast.executable(), nil
	}

	switch instr.Op {
	case OpArgumentGet:
		return argumentGet(instr.Index), nil
	case OpCallCore:
		return callCore(instr.Index), nil
	case OpPushI32:
		return push(itypes.I32(int32(instr.Value))), nil
	case OpPushI64:
		return push(itypes.I64(instr.Value)), nil
	case OpStringLiftMemory:
		return stringLiftMemory, nil
	case OpStringLowerMemory:
		return stringLowerMemory, nil
	case OpStringSize:
		return stringSize, nil
	case OpByteArrayLiftMemory:
		return byteArrayLiftMemory, nil
	case OpByteArrayLowerMemory:
		return byteArrayLowerMemory, nil
	case OpByteArraySize:
		return byteArraySize, nil
	case OpArrayLiftMemory:
		return arrayLiftMemory(instr.Type), nil
	case OpArrayLowerMemory:
		return arrayLowerMemory(instr.Type), nil
	case OpRecordLiftMemory:
		return recordLiftMemory(instr.RecordID), nil
	case OpRecordLowerMemory:
		return recordLowerMemory(instr.RecordID), nil
	case OpDup:
		return dup, nil
	case OpSwap2:
		return swap2, nil
	}
	return nil, fmt.Errorf("unknown opcode %s", instr.Op)
}

func argumentGet(index uint32) executable {
	return func(_ context.Context, rt *Runtime) error {
		if int(index) >= len(rt.Inputs) {
			return InvocationInputIsMissing{Index: index}
		}
		rt.Stack.Push(rt.Inputs[index])
		return nil
	}
}

func push(v itypes.IValue) executable {
	return func(_ context.Context, rt *Runtime) error {
		rt.Stack.Push(v)
		return nil
	}
}

func callCore(index uint32) executable {
	return func(ctx context.Context, rt *Runtime) error {
		fn, ok := rt.Instance.LocalOrImport(index)
		if !ok {
			return LocalOrImportIsMissing{FunctionIndex: index}
		}

		n := fn.InputsCardinality()
		args, ok := rt.Stack.Pop(n)
		if !ok {
			return StackIsTooSmall{Needed: n}
		}
		if err := checkFunctionSignature(rt.Instance, index, fn, args); err != nil {
			return err
		}

		outs, err := fn.Call(ctx, args)
		if err != nil {
			return LocalOrImportCall{FunctionName: fn.Name(), Cause: err}
		}
		Logger().Debug("call-core returned",
			zap.Uint32("index", index),
			zap.String("function", fn.Name()),
			zap.Int("outputs", len(outs)),
		)
		for _, v := range outs {
			rt.Stack.Push(v)
		}
		return nil
	}
}

func dup(_ context.Context, rt *Runtime) error {
	v, ok := rt.Stack.Peek1()
	if !ok {
		return StackIsTooSmall{Needed: 1}
	}
	rt.Stack.Push(v)
	return nil
}

func swap2(_ context.Context, rt *Runtime) error {
	vals, ok := rt.Stack.Pop(2)
	if !ok {
		return StackIsTooSmall{Needed: 2}
	}
	rt.Stack.Push(vals[1])
	rt.Stack.Push(vals[0])
	return nil
}
