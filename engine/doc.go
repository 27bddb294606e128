// Package engine runs adapters against real WebAssembly modules using wazero.
//
// Instantiate compiles a core module in its own wazero runtime and returns an
// Instance that satisfies wasmit.Instance:
//
//	inst, err := engine.Instantiate(ctx, wasmBytes, registry, &engine.Config{
//		Functions: []string{"greet"},
//	})
//	if err != nil {
//		return err
//	}
//	defer inst.Close(ctx)
//
// # Function Indices
//
// Adapters call core functions by local-or-import index:
//
//	0      the allocate export (Config.AllocateExport, default "allocate")
//	1..n   Config.Functions in order
//	n+1..  later Bind calls
//
// A name resolves to a host function from Config.Hosts first, then to a
// module export. Exports expose their core signature: i32, i64, f32 and f64
// parameters map to I32, I64, F32 and F64.
//
// # Host Functions
//
// Host functions are plain Go functions over interface values. They are
// registered under Config.HostModule (default "env") so the module can
// import them, and they can be bound for call-core like any export. Only
// scalar types cross the import boundary:
//
//	Interface Type               Core Type
//	──────────────────────────────────────
//	Boolean, S8-S32, U8-U32, I32 i32
//	S64, U64, I64                i64
//	F32                          f32
//	F64                          f64
//
// A host function error traps the guest call that reached it.
//
// # Memory
//
// MemoryView(0) returns a view over the module's memory (or
// Config.MemoryExport). The view aliases linear memory and must be
// re-acquired after any call that may grow it.
package engine
