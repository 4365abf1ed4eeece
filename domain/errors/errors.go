// Package errors provides the ledger host's error taxonomy.
// All error types support error unwrapping via errors.As() and errors.Is().
package errors

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/reglet-dev/ledgerhost/domain/entities"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// Code is a machine-readable taxonomy code.
type Code string

const (
	CodeMalformedAddress  Code = "MALFORMED_ADDRESS"
	CodeUnknownContract   Code = "UNKNOWN_CONTRACT"
	CodeDecodeError       Code = "DECODE_ERROR"
	CodeOutOfGas          Code = "OUT_OF_GAS"
	CodeStaticViolation   Code = "STATIC_VIOLATION"
	CodeCallDepthExceeded Code = "CALL_DEPTH_EXCEEDED"
	CodeGuestFault        Code = "GUEST_FAULT"
	CodeCallDenied        Code = "CALL_DENIED"
	CodeContractExists    Code = "CONTRACT_EXISTS"
	CodeTimeout           Code = "TIMEOUT"
	CodeConfig            Code = "CONFIG"
	CodeInternal          Code = "INTERNAL"
)

// DetailedError is implemented by error types that can convert themselves
// to a structured ErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// Coder is implemented by every taxonomy error.
type Coder interface {
	Code() Code
}

// ToErrorDetail converts a Go error to a structured ErrorDetail.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	if stdErrors.Is(err, context.Canceled) || stdErrors.Is(err, context.DeadlineExceeded) {
		return (&TimeoutError{Operation: "call", Err: err}).ToErrorDetail()
	}

	// Anything else raised inside a guest is a guest fault.
	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    "guest",
		Code:    string(CodeGuestFault),
	}
}

// CodeOf classifies err. Unclassified errors are guest faults.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var c Coder
	if stdErrors.As(err, &c) {
		return c.Code()
	}
	if stdErrors.Is(err, context.Canceled) || stdErrors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	var d *entities.ErrorDetail
	if stdErrors.As(err, &d) && d.Code != "" {
		return Code(d.Code)
	}
	return CodeGuestFault
}

// IsSticky reports whether err, once raised inside a frame, fails that frame
// regardless of what the guest does afterwards.
func IsSticky(err error) bool {
	switch CodeOf(err) {
	case CodeOutOfGas, CodeStaticViolation, CodeTimeout:
		return true
	}
	return false
}

// MalformedAddressError is returned when address text fails to decode.
type MalformedAddressError struct {
	Err  error
	Text string
}

func (e *MalformedAddressError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed address %q: %v", e.Text, e.Err)
	}
	return fmt.Sprintf("malformed address %q", e.Text)
}

func (e *MalformedAddressError) Unwrap() error {
	return e.Err
}

func (e *MalformedAddressError) Code() Code { return CodeMalformedAddress }

// ToErrorDetail implements DetailedError.
func (e *MalformedAddressError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "address", Code: string(e.Code())}
}

// UnknownContractError is returned when a callee has no contract record.
type UnknownContractError struct {
	Address string
}

func (e *UnknownContractError) Error() string {
	return fmt.Sprintf("no contract at %s", e.Address)
}

func (e *UnknownContractError) Code() Code { return CodeUnknownContract }

// ToErrorDetail implements DetailedError.
func (e *UnknownContractError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "contract", Code: string(e.Code()), IsNotFound: true}
}

// DecodeError is returned when calldata does not match the callee's dialect.
type DecodeError struct {
	Err     error
	Dialect string
	Reason  string
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("%s calldata: %s", e.Dialect, e.Reason)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Code() Code { return CodeDecodeError }

// ToErrorDetail implements DetailedError.
func (e *DecodeError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "decode", Code: string(e.Code())}
}

// OutOfGasError is returned when a charge exceeds the frame's remaining budget.
type OutOfGasError struct {
	Operation string
	Required  uint64
	Available uint64
}

func (e *OutOfGasError) Error() string {
	return fmt.Sprintf("out of gas: %s requires %d, %d available", e.Operation, e.Required, e.Available)
}

func (e *OutOfGasError) Code() Code { return CodeOutOfGas }

// ToErrorDetail implements DetailedError.
func (e *OutOfGasError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{
		Message: e.Error(),
		Type:    "gas",
		Code:    string(e.Code()),
		Details: map[string]any{"required": e.Required, "available": e.Available},
	}
}

// StaticViolationError is returned when a static frame attempts a mutation.
type StaticViolationError struct {
	Operation string
}

func (e *StaticViolationError) Error() string {
	return fmt.Sprintf("%s not permitted in static call", e.Operation)
}

func (e *StaticViolationError) Code() Code { return CodeStaticViolation }

// ToErrorDetail implements DetailedError.
func (e *StaticViolationError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "static", Code: string(e.Code())}
}

// CallDepthExceededError is returned when a call would exceed the depth bound.
type CallDepthExceededError struct {
	Depth int
	Limit int
}

func (e *CallDepthExceededError) Error() string {
	return fmt.Sprintf("call depth %d exceeds limit %d", e.Depth, e.Limit)
}

func (e *CallDepthExceededError) Code() Code { return CodeCallDepthExceeded }

// ToErrorDetail implements DetailedError.
func (e *CallDepthExceededError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "depth", Code: string(e.Code())}
}

// GuestFaultError is an explicit revert or runtime error raised by a guest.
// Data carries optional revert data returned to the caller.
type GuestFaultError struct {
	Err    error
	Reason string
	Data   []byte
}

func (e *GuestFaultError) Error() string {
	switch {
	case e.Reason != "" && e.Err != nil:
		return fmt.Sprintf("guest fault: %s: %v", e.Reason, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("guest fault: %v", e.Err)
	case e.Reason != "":
		return "guest fault: " + e.Reason
	}
	return "guest fault"
}

func (e *GuestFaultError) Unwrap() error {
	return e.Err
}

func (e *GuestFaultError) Code() Code { return CodeGuestFault }

// ToErrorDetail implements DetailedError.
func (e *GuestFaultError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "guest", Code: string(e.Code())}
}

// Revert builds a GuestFaultError carrying revert data.
func Revert(reason string, data []byte) *GuestFaultError {
	return &GuestFaultError{Reason: reason, Data: data}
}

// CallDeniedError is returned when a call policy rejects a caller/callee pair.
type CallDeniedError struct {
	CallerRole string
	CalleeRole string
}

func (e *CallDeniedError) Error() string {
	caller := e.CallerRole
	if caller == "" {
		caller = "<none>"
	}
	return fmt.Sprintf("role %s may not call role %s", caller, e.CalleeRole)
}

func (e *CallDeniedError) Code() Code { return CodeCallDenied }

// ToErrorDetail implements DetailedError.
func (e *CallDeniedError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "policy", Code: string(e.Code())}
}

// ContractExistsError is returned when deploying onto an occupied address,
// or with a role another contract already holds.
type ContractExistsError struct {
	Address string
	Role    string
}

func (e *ContractExistsError) Error() string {
	if e.Role != "" {
		return fmt.Sprintf("role %s already held by %s", e.Role, e.Address)
	}
	return fmt.Sprintf("contract already deployed at %s", e.Address)
}

func (e *ContractExistsError) Code() Code { return CodeContractExists }

// ToErrorDetail implements DetailedError.
func (e *ContractExistsError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "contract", Code: string(e.Code())}
}

// TimeoutError is raised when the transaction context is cancelled or its
// deadline passes while a frame is running.
type TimeoutError struct {
	Err       error
	Operation string
}

func (e *TimeoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s aborted: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("%s aborted", e.Operation)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

func (e *TimeoutError) Timeout() bool {
	return true
}

func (e *TimeoutError) Code() Code { return CodeTimeout }

// ToErrorDetail implements DetailedError.
func (e *TimeoutError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "timeout", Code: string(e.Code()), IsTimeout: true}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation failed for field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func (e *ConfigError) Code() Code { return CodeConfig }

// ToErrorDetail implements DetailedError.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "config", Code: e.Field}
}

// SchemaError represents a schema generation or validation error.
type SchemaError struct {
	Err  error
	Type string
}

func (e *SchemaError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("schema error for type %s: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("schema error: %v", e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *SchemaError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "validation", Code: "schema"}
}

// MemoryError represents a guest memory access failure.
type MemoryError struct {
	Offset uint32
	Length uint32
	Size   uint32
}

func (e *MemoryError) Error() string {
	return fmt.Sprintf("guest memory access out of range: offset %d length %d, memory size %d",
		e.Offset, e.Length, e.Size)
}

func (e *MemoryError) Code() Code { return CodeGuestFault }

// ToErrorDetail implements DetailedError.
func (e *MemoryError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "guest", Code: string(e.Code())}
}

// WireFormatError represents a host-function wire encoding/decoding error.
type WireFormatError struct {
	Err       error
	Operation string
	Type      string
}

func (e *WireFormatError) Error() string {
	return fmt.Sprintf("wire format %s failed for %s: %v", e.Operation, e.Type, e.Err)
}

func (e *WireFormatError) Unwrap() error {
	return e.Err
}

func (e *WireFormatError) Code() Code { return CodeGuestFault }

// ToErrorDetail implements DetailedError.
func (e *WireFormatError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "internal", Code: "wire_format"}
}

// FromDetail rebuilds a typed error from a wire ErrorDetail so that CodeOf
// classifies it the same way on both sides of a host-function boundary.
func FromDetail(d *entities.ErrorDetail) error {
	if d == nil {
		return nil
	}
	switch Code(d.Code) {
	case CodeOutOfGas:
		e := &OutOfGasError{Operation: "host call"}
		if v, ok := d.Details["required"].(float64); ok {
			e.Required = uint64(v)
		}
		if v, ok := d.Details["available"].(float64); ok {
			e.Available = uint64(v)
		}
		return e
	case CodeStaticViolation:
		return &StaticViolationError{Operation: "host call"}
	case CodeTimeout:
		return &TimeoutError{Operation: "host call"}
	}
	return d
}
