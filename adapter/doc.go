// Package adapter loads adapter manifests.
//
// A manifest is a YAML document describing the record types, the engine
// settings and the named adapters of one module:
//
//	engine:
//	  allocate_export: allocate
//	  functions: [greet]
//	records:
//	  - name: person
//	    fields:
//	      - {name: name, type: string}
//	      - {name: age, type: u8}
//	adapters:
//	  - name: greet
//	    inputs:
//	      - {name: who, type: person}
//	    outputs: [string]
//	    instructions:
//	      - arg.get 0
//	      - record.lower_memory person
//	      - call-core greet
//	      - string.lift_memory
//
// Instructions use the text form Instruction.String produces, or a mapping
// with an op key and one of index, value, type, record or function.
// call-core accepts a function name from engine.functions (index 1..n) or
// the allocate export (index 0). Types accept every itypes.ParseType form,
// record names and Array(...) of either. Record ids follow declaration
// order, and fields may refer to records declared later.
//
// Load compiles every adapter up front, so a manifest that loads runs
// without parse errors.
package adapter
