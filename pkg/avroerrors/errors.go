// Package avroerrors provides structured error handling for the Avro explorer
// with error categorization, rich context, and stack traces. It enables the
// decoder core and the caller-facing surface to share one consistent error
// taxonomy.
//
// # Overview
//
// The avroerrors package extends Go's standard error handling with:
//   - Error categorization through ErrorType
//   - Structured context with key-value details
//   - Automatic stack trace capture
//   - Error wrapping with cause preservation
//
// # Basic Usage
//
//	// Create a new error
//	err := avroerrors.New(avroerrors.ErrorTypeInvalidSchema, "record missing fields")
//
//	// Add context
//	err = err.WithDetail("name", "com.example.User")
//
//	// Wrap existing errors
//	if err := inflate(payload); err != nil {
//	    return avroerrors.Wrap(err, avroerrors.ErrorTypeCorruptBlock, "block decompression failed").
//	        WithDetail("codec", codec)
//	}
//
// # Error Types
//
// Every failure the decoder can produce maps to exactly one ErrorType, so a
// caller can distinguish "bad input" (corrupt block, invalid schema) from
// "bad file" (not found, permission denied) with IsType or errors.As.
package avroerrors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error. The set is closed: every failure
// mode of the container reader, schema parser, and binary decoder maps to one
// of these values.
type ErrorType string

const (
	// ErrorTypeNotAContainer indicates the input does not start with the
	// Avro object container file magic.
	ErrorTypeNotAContainer ErrorType = "not_a_container"
	// ErrorTypeInvalidSchema indicates the embedded schema text could not be
	// parsed into a valid type tree.
	ErrorTypeInvalidSchema ErrorType = "invalid_schema"
	// ErrorTypeUnsupportedCodec indicates the header names a compression
	// codec this build does not support.
	ErrorTypeUnsupportedCodec ErrorType = "unsupported_codec"
	// ErrorTypeCorruptBlock indicates a block failed decompression, left
	// undecoded trailing bytes, or its sync marker did not match.
	ErrorTypeCorruptBlock ErrorType = "corrupt_block"
	// ErrorTypeTruncatedInput indicates the input ended mid-value.
	ErrorTypeTruncatedInput ErrorType = "truncated_input"
	// ErrorTypeOverflow indicates a varint ran past 10 groups.
	ErrorTypeOverflow ErrorType = "overflow"
	// ErrorTypeInvalidEncoding indicates a string value was not valid UTF-8.
	ErrorTypeInvalidEncoding ErrorType = "invalid_encoding"
	// ErrorTypeValueOutOfRange indicates a decoded int exceeded the 32-bit
	// signed range.
	ErrorTypeValueOutOfRange ErrorType = "value_out_of_range"
	// ErrorTypeEnumIndexOutOfRange indicates an enum index >= symbol count.
	ErrorTypeEnumIndexOutOfRange ErrorType = "enum_index_out_of_range"
	// ErrorTypeUnionIndexOutOfRange indicates a union branch index >= the
	// union's alternative count.
	ErrorTypeUnionIndexOutOfRange ErrorType = "union_index_out_of_range"
	// ErrorTypeFileNotFound indicates the input path does not exist.
	ErrorTypeFileNotFound ErrorType = "file_not_found"
	// ErrorTypePermissionDenied indicates the input path is not readable.
	ErrorTypePermissionDenied ErrorType = "permission_denied"
)

// Error represents a structured error with context.
//
// Fields:
//   - Type: Categorizes the error for handling strategies
//   - Message: Human-readable error description
//   - Cause: The underlying error that caused this error
//   - Details: Key-value pairs providing additional context
//   - Stack: Call stack at the point of error creation
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack, capturing
// the function name, file path, and line number for debugging.
type StackFrame struct {
	Function string // Fully qualified function name
	File     string // Source file path
	Line     int    // Line number in source file
}

// Error implements the error interface, returning a formatted error message
// that includes the error type, message, and cause (if present).
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error, enabling compatibility with errors.Is
// and errors.As for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error, providing additional context
// for debugging. This method can be chained for adding multiple details.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message, automatically
// capturing the call stack at the point of creation.
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message.
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context, preserving the original
// error as the cause. If the error is already a structured Error, its stack
// trace is preserved. Returns nil if the input error is nil.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsType checks if the error is of the given type, useful for deciding whether
// a failure was structural (bad file) or data-level (bad input).
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// TypeOf returns the ErrorType of err, or the empty string if err is not a
// structured Error.
func TypeOf(err error) ErrorType {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Type
}

// IsStructural reports whether the error concerns the file itself rather than
// its contents. file-not-found and permission errors are surfaced distinctly
// so a caller can tell "bad file" from "bad input".
func IsStructural(err error) bool {
	switch TypeOf(err) {
	case ErrorTypeFileNotFound, ErrorTypePermissionDenied:
		return true
	default:
		return false
	}
}

// captureStack captures the current call stack up to maxFrames deep,
// skipping the specified number of frames from the top.
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
