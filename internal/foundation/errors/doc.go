// Package errors provides classified error primitives used across cvbuilder.
//
// A ClassifiedError carries a broad category (config, record, template,
// filesystem, ...), a severity and structured context. The CLI adapter maps
// categories to process exit codes and decides how much detail to print.
//
// Example usage:
//
//	err := errors.RecordError("record skipped").
//		WithContext("content_type", "education").
//		WithContext("record_id", id).
//		WithCause(missing).
//		Build()
package errors
