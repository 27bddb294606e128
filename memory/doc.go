// Package memory provides bounds-checked access to WASM linear memory.
//
// View adapts a byte slice to the wasmit.MemoryView contract. The
// sequential reader and writer validate their whole range once at
// construction and then move a private cursor through it, so element
// loops in the transcoder never re-check bounds per value.
package memory
