// Package interpreter executes adapter instruction sequences.
//
// An adapter is a flat list of stack instructions that moves interface
// values between the host and a WASM instance: arg.get pushes invocation
// inputs, call-core invokes core functions by index, numeric casts convert
// between interface and core integer types, and the *.lift_memory and
// *.lower_memory instructions marshal strings, byte arrays, arrays and
// records through linear memory using the transcoder package.
//
// Instructions are compiled once by New and executed in order by Run. The
// first failing instruction aborts the run with an *InstructionError whose
// message names the instruction:
//
//	`s8.from_i32` failed to cast `I32` to `S8`
//
// The Kind field carries the failure as one of the kind types in this
// package and can be matched with errors.As. Start returns an Execution
// that runs one instruction per Step, for debuggers and tracing.
//
// Memory instructions always use memory 0. Lowering allocates through the
// instance's function at index 0, which must have the signature
// (i32 size, i32 type_tag) -> i32.
package interpreter
