// Package wasmit runs WebAssembly Interface Types adapters in Go.
//
// An adapter is a straight-line list of stack instructions that converts
// between interface values (strings, byte arrays, arrays, records and
// scalars) and core WASM values, moving compound data through guest linear
// memory with a guest-provided allocator.
//
// # Architecture Overview
//
//	wasmit/              Root package with the MemoryView, Allocatable and Instance contracts
//	├── itypes/          Interface types, values, record types and layout sizes
//	├── memory/          Byte-slice memory view and bounds-checked sequential cursors
//	├── transcoder/      Lowering of values into memory and lifting them back
//	├── interpreter/     Instruction set, value stack and adapter execution
//	├── engine/          wazero-backed Instance for real WASM modules
//	├── adapter/         YAML adapter manifests
//	├── errors/          Structured error types for debugging
//	└── cmd/itrun/       Command line runner and interactive stepper
//
// # Quick Start
//
// Load a manifest and run an adapter against a module:
//
//	m, err := adapter.Load(manifestBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	inst, err := engine.Instantiate(ctx, wasmBytes, m.Registry(), m.Config())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	interp, err := m.Interpreter("greet")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	stack, err := interp.Run(ctx, []itypes.IValue{itypes.String("World")}, inst)
//
// # Memory Model
//
// Every access to linear memory is bounds-checked before it happens. An
// access of size bytes at offset is rejected when offset+size overflows 32
// bits or is not strictly below the memory size. Allocations may grow
// memory, so views are never cached across them.
//
// # Thread Safety
//
// An Interpreter is immutable after construction and may be shared. Each
// Run creates its own stack. Instances are not safe for concurrent use.
package wasmit
