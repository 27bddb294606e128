// Package transcoder moves interface values between Go and WASM linear memory.
//
// Lowerer writes values into memory obtained from a guest allocator; Lifter
// reads them back. Compound values use a packed layout with no alignment
// padding:
//
//	Type            Inline size   Inline form
//	──────────────────────────────────────────────
//	bool, s8, u8    1             value
//	s16, u16        2             little endian
//	s32, u32, i32   4             little endian
//	f32             4             IEEE bits
//	s64, u64, i64   8             little endian
//	f64             8             IEEE bits
//	string          8             (offset u32, byte length u32)
//	byte array      8             (offset u32, byte length u32)
//	array<T>        8             (offset u32, element count u32)
//	record          4             offset u32
//
// A record image is its fields' inline forms concatenated in declaration
// order. An array image is its elements' inline forms back to back.
//
// # Allocation
//
// Each string, byte array, array image and record image is written to its
// own allocation. The allocator receives the byte size and a type tag: U8
// for strings, byte arrays and records, the first element's tag for arrays.
// Empty strings, byte arrays and arrays are never allocated and lower to
// (0, 0).
//
// Nested data is lowered before the image that points to it, so an array
// of strings produces one allocation per non-empty string followed by the
// array image.
//
// # Safety
//
// Every read and write range is bounds-checked before memory is touched.
// Nesting deeper than MaxDepth is rejected in both directions.
package transcoder
