// Package errors is the PitchCheck error taxonomy. Every error the API can
// return carries a Code; the code alone decides the HTTP status and whether
// the failure is the caller's, ours, or worth trying again later.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code. It is part of the API contract.
type Code string

const (
	// Request validation
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeMissingField  Code = "MISSING_FIELD"
	CodeInvalidFormat Code = "INVALID_FORMAT"

	// Unknown company, customer or transcript
	CodeNotFound Code = "NOT_FOUND"
	CodeConflict Code = "CONFLICT"

	// Text generation
	CodeGenerationFailed Code = "GENERATION_FAILED"
	CodeParse            Code = "PARSE_ERROR"
	CodeCircuitOpen      Code = "CIRCUIT_OPEN"
	CodeRateLimited      Code = "RATE_LIMITED"
	CodeTimeout          Code = "TIMEOUT"

	CodeInternal Code = "INTERNAL_ERROR"
	CodeDatabase Code = "DATABASE_ERROR"
)

// Kind classifies who is at fault.
type Kind int

const (
	KindUnknown Kind = iota
	// KindUser is a bad request or an unknown id.
	KindUser
	// KindSystem is a fault on our side that a retry will not fix.
	KindSystem
	// KindTransient may succeed if the whole operation is tried again.
	KindTransient
)

type codeInfo struct {
	status int
	kind   Kind
}

var codes = map[Code]codeInfo{
	CodeValidation:       {http.StatusBadRequest, KindUser},
	CodeMissingField:     {http.StatusBadRequest, KindUser},
	CodeInvalidFormat:    {http.StatusBadRequest, KindUser},
	CodeNotFound:         {http.StatusNotFound, KindUser},
	CodeConflict:         {http.StatusConflict, KindUser},
	CodeGenerationFailed: {http.StatusBadGateway, KindTransient},
	CodeParse:            {http.StatusBadGateway, KindSystem},
	CodeCircuitOpen:      {http.StatusBadGateway, KindTransient},
	CodeRateLimited:      {http.StatusTooManyRequests, KindTransient},
	CodeTimeout:          {http.StatusGatewayTimeout, KindTransient},
	CodeInternal:         {http.StatusInternalServerError, KindSystem},
	CodeDatabase:         {http.StatusInternalServerError, KindSystem},
}

func infoFor(code Code) codeInfo {
	if info, ok := codes[code]; ok {
		return info
	}
	return codeInfo{http.StatusInternalServerError, KindSystem}
}

// Error is the application error type.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Kind    Kind   `json:"-"`
	// Op names the failing operation, e.g. "session.SendMessage".
	Op  string `json:"-"`
	Err error  `json:"-"`
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

// HTTPStatus returns the response status for e.
func (e *Error) HTTPStatus() int {
	return infoFor(e.Code).status
}

// IsRetriable reports whether the operation may succeed if repeated.
func (e *Error) IsRetriable() bool {
	return e.Kind == KindTransient
}

// IsUserError reports whether the caller caused e.
func (e *Error) IsUserError() bool {
	return e.Kind == KindUser
}

// ErrorResponse is the JSON body of every failed API call.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is the payload of ErrorResponse.
type ErrorDetail struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// ToResponse builds the API body for e.
func (e *Error) ToResponse() ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: e.Code, Message: e.Message}}
}

// New creates an Error whose kind follows from code.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Kind: infoFor(code).kind}
}

// Wrap attaches code and message to err.
func Wrap(err error, op string, code Code, message string) *Error {
	e := New(code, message)
	e.Op = op
	e.Err = err
	return e
}

// WrapWithOp renames the operation of an *Error, keeping its code and
// cause. Any other error becomes INTERNAL_ERROR.
func WrapWithOp(err error, op string) *Error {
	if e, ok := as(err); ok {
		return &Error{Code: e.Code, Message: e.Message, Kind: e.Kind, Op: op, Err: e.Err}
	}
	return Wrap(err, op, CodeInternal, err.Error())
}

// Sentinels, compared with errors.Is by code.
var (
	ErrNotFound    = New(CodeNotFound, "resource not found")
	ErrRateLimited = New(CodeRateLimited, "rate limit exceeded")
	ErrCircuitOpen = New(CodeCircuitOpen, "generation service temporarily unavailable")
)

// NotFound reports an unknown resource, e.g. NotFound("customer").
func NotFound(resource string) *Error {
	return New(CodeNotFound, resource+" not found")
}

// ValidationFailed reports invalid input that is not about a single field.
func ValidationFailed(message string) *Error {
	return New(CodeValidation, message)
}

// MissingField reports an absent or blank required field.
func MissingField(field string) *Error {
	return New(CodeMissingField, "missing required field: "+field)
}

// InvalidFormat reports a field that does not look like expected.
func InvalidFormat(field, expected string) *Error {
	return New(CodeInvalidFormat, fmt.Sprintf("invalid format for %s: expected %s", field, expected))
}

// DatabaseError reports a failed storage operation.
func DatabaseError(op string, err error) *Error {
	return Wrap(err, op, CodeDatabase, "database operation failed")
}

// GenerationError reports that a generation call failed or produced nothing
// usable. who names the provider or the component that asked.
func GenerationError(who string, err error) *Error {
	return Wrap(err, "", CodeGenerationFailed, who+" generation failed")
}

// ParseError reports generation output that is not the expected shape.
func ParseError(what string, err error) *Error {
	return Wrap(err, "", CodeParse, "could not parse "+what)
}

// InternalError reports a fault whose details must not reach the client.
func InternalError(message string, err error) *Error {
	return Wrap(err, "", CodeInternal, message)
}

func as(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// GetCode returns the code of err, CodeInternal for foreign errors.
func GetCode(err error) Code {
	if e, ok := as(err); ok {
		return e.Code
	}
	return CodeInternal
}

// GetHTTPStatus returns the response status for err.
func GetHTTPStatus(err error) int {
	if e, ok := as(err); ok {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// IsRetriable reports whether err may succeed if the operation is repeated.
func IsRetriable(err error) bool {
	e, ok := as(err)
	return ok && e.IsRetriable()
}

// IsNotFound reports whether err is NOT_FOUND.
func IsNotFound(err error) bool {
	return GetCode(err) == CodeNotFound
}

// IsUserError reports whether the caller caused err.
func IsUserError(err error) bool {
	e, ok := as(err)
	return ok && e.IsUserError()
}

// IsGenerationError reports whether err came out of the generation path,
// including an open circuit and an exhausted budget. The engines pass such
// errors through unchanged.
func IsGenerationError(err error) bool {
	switch GetCode(err) {
	case CodeGenerationFailed, CodeCircuitOpen, CodeTimeout, CodeRateLimited:
		return true
	}
	return false
}

// IsValidation reports whether err is one of the validation codes.
func IsValidation(err error) bool {
	switch GetCode(err) {
	case CodeValidation, CodeMissingField, CodeInvalidFormat:
		return true
	}
	return false
}
