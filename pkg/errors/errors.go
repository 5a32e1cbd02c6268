// Unified error handling for the knitout interpreter
//
// Copyright (C) 2026  Knitout Visualizer Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package errors

import (
	"fmt"
	"runtime"
)

// ErrorCode represents the category of error
type ErrorCode string

const (
	// Syntax errors
	ErrMalformedHeader      ErrorCode = "MALFORMED_HEADER"
	ErrMalformedInstruction ErrorCode = "MALFORMED_INSTRUCTION"
	ErrMalformedNeedle      ErrorCode = "MALFORMED_NEEDLE"
	ErrBadRacking           ErrorCode = "BAD_RACKING"

	// Carrier state errors
	ErrDuplicateCarrier ErrorCode = "DUPLICATE_CARRIER"
	ErrUnknownCarrier   ErrorCode = "UNKNOWN_CARRIER"
	ErrNeverStitched    ErrorCode = "NEVER_STITCHED"
	ErrNoCarriers       ErrorCode = "NO_CARRIERS"
	ErrInInfoMismatch   ErrorCode = "IN_INFO_MISMATCH"
	ErrHookBusy         ErrorCode = "HOOK_BUSY"
	ErrHookEmpty        ErrorCode = "HOOK_EMPTY"
	ErrHookMismatch     ErrorCode = "HOOK_MISMATCH"

	// Needle operation errors
	ErrMisalignedTransfer ErrorCode = "MISALIGNED_TRANSFER"
	ErrSliderTransfer     ErrorCode = "SLIDER_TRANSFER"
	ErrSliderStitch       ErrorCode = "SLIDER_STITCH"

	// Runtime errors
	ErrRuntime ErrorCode = "RUNTIME"
)

// KnitError is the error type returned by every fatal condition
type KnitError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Line is the 1-based line number in the knitout source (0 if unknown)
	Line int

	// Instruction is the raw source line (if available)
	Instruction string

	// Err wraps the underlying error
	Err error

	// Context provides additional context
	Context map[string]interface{}
}

// Error implements the error interface
func (e *KnitError) Error() string {
	msg := "ERROR: " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *KnitError) Unwrap() error {
	return e.Err
}

// SetLine sets the line number
func (e *KnitError) SetLine(line int) *KnitError {
	e.Line = line
	return e
}

// SetInstruction sets the offending source line
func (e *KnitError) SetInstruction(text string) *KnitError {
	e.Instruction = text
	return e
}

// SetContext adds additional context
func (e *KnitError) SetContext(key string, value interface{}) *KnitError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *KnitError {
	return &KnitError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// New creates a new KnitError
func New(code ErrorCode, message string) *KnitError {
	return &KnitError{
		Code:    code,
		Message: message,
	}
}

// Syntax errors

// MalformedHeaderError creates an error for a missing or bad ";!knitout-N" line
func MalformedHeaderError(line string) *KnitError {
	return New(ErrMalformedHeader, "file does not start with knitout magic string").
		SetInstruction(line)
}

// MalformedInstructionError creates an error for an instruction with bad arguments
func MalformedInstructionError(op string, reason string) *KnitError {
	return New(ErrMalformedInstruction, fmt.Sprintf("%s: %s", op, reason)).
		SetContext("op", op)
}

// MalformedNeedleError creates an error for a bad bed-needle token
func MalformedNeedleError(token string) *KnitError {
	return New(ErrMalformedNeedle, fmt.Sprintf("invalid needle specification '%s'", token)).
		SetContext("needle", token)
}

// BadRackingError creates an error for an invalid racking value
func BadRackingError(reason string) *KnitError {
	return New(ErrBadRacking, reason)
}

// Carrier errors

// DuplicateCarrierError creates an error for bringing in an active carrier
func DuplicateCarrierError(name string) *KnitError {
	return New(ErrDuplicateCarrier, fmt.Sprintf("can't bring in an already active carrier, %s", name)).
		SetContext("carrier", name)
}

// UnknownCarrierError creates an error for using an inactive carrier
func UnknownCarrierError(name string) *KnitError {
	return New(ErrUnknownCarrier, fmt.Sprintf("carrier '%s' isn't active", name)).
		SetContext("carrier", name)
}

// NeverStitchedError creates an error for bringing out an unused carrier
func NeverStitchedError(name string) *KnitError {
	return New(ErrNeverStitched, fmt.Sprintf("can't bring out carrier '%s', it hasn't yet stitched", name)).
		SetContext("carrier", name)
}

// NoCarriersError creates an error for carrier instructions with no carriers
func NoCarriersError(op string) *KnitError {
	return New(ErrNoCarriers, fmt.Sprintf("can't %s no carriers", op)).
		SetContext("op", op)
}

// InInfoMismatchError creates an error for a first use that differs from its "in"
func InInfoMismatchError(used, declared []string) *KnitError {
	return New(ErrInInfoMismatch, fmt.Sprintf("first use of carriers %v doesn't match in info %v", used, declared)).
		SetContext("used", used).
		SetContext("declared", declared)
}

// HookBusyError creates an error for a hook operation while the hook is holding yarn
func HookBusyError(op string, want, held []string) *KnitError {
	return New(ErrHookBusy, fmt.Sprintf("can't %s %v, hook is holding %v", op, want, held)).
		SetContext("held", held)
}

// HookEmptyError creates an error for releasing an empty hook
func HookEmptyError(want []string) *KnitError {
	return New(ErrHookEmpty, fmt.Sprintf("can't releasehook on %v, it's empty", want))
}

// HookMismatchError creates an error for releasing the wrong carrier set
func HookMismatchError(want, held []string) *KnitError {
	return New(ErrHookMismatch, fmt.Sprintf("can't releasehook on %v, hook currently holds %v", want, held)).
		SetContext("held", held)
}

// Needle operation errors

// MisalignedTransferError creates an error for transfer endpoints that don't align
func MisalignedTransferError(from, to string, racking float64) *KnitError {
	return New(ErrMisalignedTransfer, fmt.Sprintf("needles '%s' and '%s' are not aligned at racking %v", from, to, racking)).
		SetContext("racking", racking)
}

// SliderTransferError creates an error for unsupported slider moves
func SliderTransferError(reason string) *KnitError {
	return New(ErrSliderTransfer, reason)
}

// SliderStitchError creates an error for knitting or tucking on a slider
func SliderStitchError(op, needle string) *KnitError {
	return New(ErrSliderStitch, fmt.Sprintf("can't %s on slider needle '%s'", op, needle))
}

// RuntimeError creates a general runtime error
func RuntimeError(message string) *KnitError {
	return New(ErrRuntime, message)
}

// FromPanic converts a recovered panic value to an error
func FromPanic(r interface{}) *KnitError {
	switch x := r.(type) {
	case nil:
		return nil
	case string:
		return RuntimeError(fmt.Sprintf("panic: %s", x))
	case runtime.Error:
		return RuntimeError(x.Error())
	case error:
		return RuntimeError(x.Error())
	default:
		return RuntimeError(fmt.Sprintf("panic: %v", x))
	}
}

// As returns err as a *KnitError if it is one
func As(err error) (*KnitError, bool) {
	for err != nil {
		if ke, ok := err.(*KnitError); ok {
			return ke, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

// Is checks if error matches given error code
func Is(err error, code ErrorCode) bool {
	if ke, ok := As(err); ok {
		return ke.Code == code
	}
	return false
}
