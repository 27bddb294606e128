package interpreter

import (
	"strconv"

	"github.com/wippyai/wasm-interface-types/itypes"
)

// Opcode identifies an adapter instruction.
type Opcode uint8

const (
	OpArgumentGet Opcode = iota
	OpCallCore

	OpBoolFromI32

	OpS8FromI32
	OpS8FromI64
	OpS16FromI32
	OpS16FromI64
	OpS32FromI32
	OpS32FromI64
	OpS64FromI32
	OpS64FromI64

	OpI32FromBool
	OpI32FromS8
	OpI32FromS16
	OpI32FromS32
	OpI32FromS64
	OpI64FromS8
	OpI64FromS16
	OpI64FromS32
	OpI64FromS64

	OpU8FromI32
	OpU8FromI64
	OpU16FromI32
	OpU16FromI64
	OpU32FromI32
	OpU32FromI64
	OpU64FromI32
	OpU64FromI64

	OpI32FromU8
	OpI32FromU16
	OpI32FromU32
	OpI32FromU64
	OpI64FromU8
	OpI64FromU16
	OpI64FromU32
	OpI64FromU64

	OpPushI32
	OpPushI64

	OpStringLiftMemory
	OpStringLowerMemory
	OpStringSize

	OpByteArrayLiftMemory
	OpByteArrayLowerMemory
	OpByteArraySize

	OpArrayLiftMemory
	OpArrayLowerMemory

	OpRecordLiftMemory
	OpRecordLowerMemory

	OpDup
	OpSwap2

	opCount
)

var opcodeNames = [opCount]string{
	OpArgumentGet: "arg.get",
	OpCallCore:    "call-core",

	OpBoolFromI32: "bool.from_i32",

	OpS8FromI32:  "s8.from_i32",
	OpS8FromI64:  "s8.from_i64",
	OpS16FromI32: "s16.from_i32",
	OpS16FromI64: "s16.from_i64",
	OpS32FromI32: "s32.from_i32",
	OpS32FromI64: "s32.from_i64",
	OpS64FromI32: "s64.from_i32",
	OpS64FromI64: "s64.from_i64",

	OpI32FromBool: "i32.from_bool",
	OpI32FromS8:   "i32.from_s8",
	OpI32FromS16:  "i32.from_s16",
	OpI32FromS32:  "i32.from_s32",
	OpI32FromS64:  "i32.from_s64",
	OpI64FromS8:   "i64.from_s8",
	OpI64FromS16:  "i64.from_s16",
	OpI64FromS32:  "i64.from_s32",
	OpI64FromS64:  "i64.from_s64",

	OpU8FromI32:  "u8.from_i32",
	OpU8FromI64:  "u8.from_i64",
	OpU16FromI32: "u16.from_i32",
	OpU16FromI64: "u16.from_i64",
	OpU32FromI32: "u32.from_i32",
	OpU32FromI64: "u32.from_i64",
	OpU64FromI32: "u64.from_i32",
	OpU64FromI64: "u64.from_i64",

	OpI32FromU8:  "i32.from_u8",
	OpI32FromU16: "i32.from_u16",
	OpI32FromU32: "i32.from_u32",
	OpI32FromU64: "i32.from_u64",
	OpI64FromU8:  "i64.from_u8",
	OpI64FromU16: "i64.from_u16",
	OpI64FromU32: "i64.from_u32",
	OpI64FromU64: "i64.from_u64",

	OpPushI32: "i32.push",
	OpPushI64: "i64.push",

	OpStringLiftMemory:  "string.lift_memory",
	OpStringLowerMemory: "string.lower_memory",
	OpStringSize:        "string.size",

	OpByteArrayLiftMemory:  "byte_array.lift_memory",
	OpByteArrayLowerMemory: "byte_array.lower_memory",
	OpByteArraySize:        "byte_array.size",

	OpArrayLiftMemory:  "array.lift_memory",
	OpArrayLowerMemory: "array.lower_memory",

	OpRecordLiftMemory:  "record.lift_memory",
	OpRecordLowerMemory: "record.lower_memory",

	OpDup:   "dup",
	OpSwap2: "swap2",
}

var opcodesByName = func() map[string]Opcode {
	m := make(map[string]Opcode, opCount)
	for op, name := range opcodeNames {
		m[name] = Opcode(op)
	}
	return m
}()

func (op Opcode) String() string {
	if op < opCount {
		return opcodeNames[op]
	}
	return "opcode(" + strconv.Itoa(int(op)) + ")"
}

// ParseOpcode maps a mnemonic such as "string.lift_memory" to its opcode.
func ParseOpcode(name string) (Opcode, bool) {
	op, ok := opcodesByName[name]
	return op, ok
}

// Operand describes which Instruction field an opcode reads.
type Operand uint8

const (
	OperandNone Operand = iota
	OperandIndex
	OperandValue
	OperandType
	OperandRecord
)

// Operand reports the immediate operand the opcode takes.
func (op Opcode) Operand() Operand {
	switch op {
	case OpArgumentGet, OpCallCore:
		return OperandIndex
	case OpPushI32, OpPushI64:
		return OperandValue
	case OpArrayLiftMemory, OpArrayLowerMemory:
		return OperandType
	case OpRecordLiftMemory, OpRecordLowerMemory:
		return OperandRecord
	}
	return OperandNone
}

// Instruction is one adapter instruction with its immediate operand.
type Instruction struct {
	Type     itypes.IType
	Value    int64
	RecordID itypes.RecordID
	Index    uint32
	Op       Opcode
}

func Simple(op Opcode) Instruction { return Instruction{Op: op} }

func ArgumentGet(index uint32) Instruction { return Instruction{Op: OpArgumentGet, Index: index} }

func CallCore(functionIndex uint32) Instruction {
	return Instruction{Op: OpCallCore, Index: functionIndex}
}

func PushI32(v int32) Instruction { return Instruction{Op: OpPushI32, Value: int64(v)} }
func PushI64(v int64) Instruction { return Instruction{Op: OpPushI64, Value: v} }

func ArrayLiftMemory(elem itypes.IType) Instruction {
	return Instruction{Op: OpArrayLiftMemory, Type: elem}
}

func ArrayLowerMemory(elem itypes.IType) Instruction {
	return Instruction{Op: OpArrayLowerMemory, Type: elem}
}

func RecordLiftMemory(id itypes.RecordID) Instruction {
	return Instruction{Op: OpRecordLiftMemory, RecordID: id}
}

func RecordLowerMemory(id itypes.RecordID) Instruction {
	return Instruction{Op: OpRecordLowerMemory, RecordID: id}
}

// String renders the textual form used in error messages, e.g. "arg.get 0"
// or "array.lift_memory I32".
func (i Instruction) String() string {
	switch i.Op.Operand() {
	case OperandIndex:
		return i.Op.String() + " " + strconv.FormatUint(uint64(i.Index), 10)
	case OperandValue:
		return i.Op.String() + " " + strconv.FormatInt(i.Value, 10)
	case OperandType:
		return i.Op.String() + " " + i.Type.String()
	case OperandRecord:
		return i.Op.String() + " " + strconv.FormatUint(i.RecordID, 10)
	}
	return i.Op.String()
}
