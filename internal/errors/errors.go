// Package errors provides unified error handling for the detection engine.
// Codes cover the failure taxonomy of the classification pipeline and map to
// gRPC status codes for transport classification.
package errors

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Code identifies a failure class.
type Code int

const (
	CodeUnknown Code = iota
	CodeInternal
	CodeInvalidFrame     // nil or zero-area frame rejected at the scanner boundary
	CodeModelUnavailable // classifier not loaded or unreachable
	CodeInferenceTimeout // model call exceeded the per-tier deadline
	CodeInferenceFailed  // model returned an error
	CodeConfigInvalid
)

func (c Code) String() string {
	switch c {
	case CodeInternal:
		return "INTERNAL"
	case CodeInvalidFrame:
		return "INVALID_FRAME"
	case CodeModelUnavailable:
		return "MODEL_UNAVAILABLE"
	case CodeInferenceTimeout:
		return "INFERENCE_TIMEOUT"
	case CodeInferenceFailed:
		return "INFERENCE_FAILED"
	case CodeConfigInvalid:
		return "CONFIG_INVALID"
	default:
		return "UNKNOWN"
	}
}

// grpcCodeMap maps engine codes to gRPC status codes.
var grpcCodeMap = map[Code]codes.Code{
	CodeUnknown:          codes.Unknown,
	CodeInternal:         codes.Internal,
	CodeInvalidFrame:     codes.InvalidArgument,
	CodeModelUnavailable: codes.Unavailable,
	CodeInferenceTimeout: codes.DeadlineExceeded,
	CodeInferenceFailed:  codes.Internal,
	CodeConfigInvalid:    codes.InvalidArgument,
}

// AppError is the base error type with structured code and metadata.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// GRPCCode returns the corresponding gRPC status code.
func (e *AppError) GRPCCode() codes.Code {
	if c, ok := grpcCodeMap[e.Code]; ok {
		return c
	}
	return codes.Unknown
}

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// IsCode checks if an error (or any error in its chain) has a specific code.
func IsCode(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// FromGRPCError converts a gRPC transport error into an AppError.
func FromGRPCError(err error) *AppError {
	st, ok := status.FromError(err)
	if !ok {
		return &AppError{Code: CodeUnknown, Message: err.Error(), Cause: err}
	}
	return &AppError{Code: grpcToCode(st.Code()), Message: st.Message(), Cause: err}
}

func grpcToCode(c codes.Code) Code {
	switch c {
	case codes.InvalidArgument:
		return CodeInvalidFrame
	case codes.Unavailable:
		return CodeModelUnavailable
	case codes.DeadlineExceeded, codes.Canceled:
		return CodeInferenceTimeout
	case codes.Internal:
		return CodeInferenceFailed
	default:
		return CodeUnknown
	}
}

// IsRetryable returns true if the error is potentially retryable.
func IsRetryable(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	switch appErr.Code {
	case CodeModelUnavailable, CodeInferenceTimeout:
		return true
	default:
		return false
	}
}
