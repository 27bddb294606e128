package interpreter

import (
	"fmt"
	"strings"

	"github.com/wippyai/wasm-interface-types/itypes"
)

// InstructionError reports the instruction that failed and why.
// Its message has the form "`<instruction>` <reason>".
type InstructionError struct {
	Kind        error
	Instruction Instruction
}

func (e *InstructionError) Error() string {
	return "`" + e.Instruction.String() + "` " + e.Kind.Error()
}

// Unwrap exposes the kind so callers can match it with errors.As.
func (e *InstructionError) Unwrap() error {
	return e.Kind
}

func instrError(instr Instruction, kind error) error {
	return &InstructionError{Instruction: instr, Kind: kind}
}

// InvocationInputIsMissing reports an arg.get past the end of the inputs.
type InvocationInputIsMissing struct {
	Index uint32
}

func (k InvocationInputIsMissing) Error() string {
	return fmt.Sprintf("cannot access invocation inputs #%d because it doesn't exist", k.Index)
}

// LoweringLifting reports a numeric cast whose value does not fit the target.
type LoweringLifting struct {
	From itypes.IType
	To   itypes.IType
}

func (k LoweringLifting) Error() string {
	return fmt.Sprintf("failed to cast `%s` to `%s`", k.From, k.To)
}

// InvalidValueOnTheStack reports a popped value of the wrong type.
type InvalidValueOnTheStack struct {
	Received itypes.IValue
	Expected itypes.IType
}

func (k InvalidValueOnTheStack) Error() string {
	return fmt.Sprintf("read a value `%s` from the stack, that can't be converted to `%s`", k.Received, k.Expected)
}

// StackIsTooSmall reports a pop of more values than the stack holds.
type StackIsTooSmall struct {
	Needed int
}

func (k StackIsTooSmall) Error() string {
	return fmt.Sprintf("needed to read `%d` value(s) from the stack, but it doesn't contain enough data", k.Needed)
}

// LocalOrImportIsMissing reports a call-core to an unknown function index.
type LocalOrImportIsMissing struct {
	FunctionIndex uint32
}

func (k LocalOrImportIsMissing) Error() string {
	return fmt.Sprintf("the local or import function `%d` doesn't exist", k.FunctionIndex)
}

// Signature is a function's parameter and result types.
type Signature struct {
	Params  []itypes.IType
	Results []itypes.IType
}

func (s Signature) String() string {
	return formatTypes(s.Params) + " -> " + formatTypes(s.Results)
}

func formatTypes(types []itypes.IType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// LocalOrImportSignatureMismatch reports call arguments incompatible with
// the callee's declared parameters.
type LocalOrImportSignatureMismatch struct {
	Expected      Signature
	Received      Signature
	FunctionIndex uint32
}

func (k LocalOrImportSignatureMismatch) Error() string {
	return fmt.Sprintf("the local or import function `%d` has the signature `%s` but it received values of kind `%s`",
		k.FunctionIndex, k.Expected, k.Received)
}

// LocalOrImportCall reports a failure raised by the callee.
type LocalOrImportCall struct {
	Cause        error
	FunctionName string
}

func (k LocalOrImportCall) Error() string {
	return fmt.Sprintf("failed while calling the local or import function `%s`", k.FunctionName)
}

func (k LocalOrImportCall) Unwrap() error { return k.Cause }

// MemoryIsMissing reports an instance without the requested memory.
type MemoryIsMissing struct {
	MemoryIndex uint32
}

func (k MemoryIsMissing) Error() string {
	return fmt.Sprintf("memory `%d` does not exist", k.MemoryIndex)
}

// NegativeValue reports a negative pointer, length, offset or size.
type NegativeValue struct {
	Subject string
}

func (k NegativeValue) Error() string {
	return fmt.Sprintf("attempted to convert `%s` but it appears to be a negative value", k.Subject)
}

// RecordTypeByNameIsMissing reports a record instruction naming an unknown type id.
type RecordTypeByNameIsMissing struct {
	RecordTypeID itypes.RecordID
}

func (k RecordTypeByNameIsMissing) Error() string {
	return fmt.Sprintf("type with `%d` is missing in a Wasm binary", k.RecordTypeID)
}

// LiLo wraps a failure from the lifting or lowering layer.
type LiLo struct {
	Err error
}

func (k LiLo) Error() string { return k.Err.Error() }

func (k LiLo) Unwrap() error { return k.Err }

// Canceled reports that the run's context ended before the instruction ran.
type Canceled struct {
	Cause error
}

func (k Canceled) Error() string { return "execution interrupted: " + k.Cause.Error() }

func (k Canceled) Unwrap() error { return k.Cause }
