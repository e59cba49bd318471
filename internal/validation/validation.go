package validation

import (
	"errors"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Sentinels for errors.Is. Every *Error matches exactly one of them.
var (
	ErrMissingField      = errors.New("missing or empty field")
	ErrInvalidSyntax     = errors.New("invalid syntax")
	ErrUnknownAggregator = errors.New("unknown aggregator")
	ErrInvalidValue      = errors.New("invalid value")
)

// Error is a local validation failure on a single field of a query value.
type Error struct {
	kind  error
	Field string
	Msg   string
	Err   error // underlying collaborator error, if any
}

// MissingField reports an absent or empty required field.
func MissingField(field string) *Error {
	return &Error{kind: ErrMissingField, Field: field, Msg: "missing or empty " + field}
}

// InvalidSyntax reports a field whose text failed a grammar check.
func InvalidSyntax(field string, cause error, format string, args ...any) *Error {
	return &Error{kind: ErrInvalidSyntax, Field: field, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// UnknownAggregator reports an aggregator name the registry does not know.
func UnknownAggregator(field, name string, cause error) *Error {
	return &Error{kind: ErrUnknownAggregator, Field: field, Msg: fmt.Sprintf("invalid aggregator %q", name), Err: cause}
}

// InvalidValue reports a well-formed field holding a disallowed value.
func InvalidValue(field string, format string, args ...any) *Error {
	return &Error{kind: ErrInvalidValue, Field: field, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Field, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == e.kind }

// GRPCStatus lets status.Code and grpc-gateway map the failure to
// InvalidArgument with a BadRequest field violation attached.
func (e *Error) GRPCStatus() *status.Status {
	st := status.New(codes.InvalidArgument, e.Error())
	withDetails, err := st.WithDetails(&errdetails.BadRequest{
		FieldViolations: []*errdetails.BadRequest_FieldViolation{
			{Field: e.Field, Description: e.Msg},
		},
	})
	if err != nil {
		return st
	}
	return withDetails
}
