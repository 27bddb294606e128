// Package errors provides structured error types for the lift/lower layers.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries a field path, the interface type name, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLift, errors.KindInvalidData).
//		Path("point", "x").
//		Type("S32").
//		Detail("unexpected tag %d", tag).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.OutOfBounds(offset, size, view.Size())
//	err := errors.RecordNotFound(errors.PhaseLift, id)
//
// All errors implement the standard error interface and support errors.Is/As.
// IsKind matches on Kind alone, which is what most callers want when the
// same failure can surface from more than one phase.
package errors
