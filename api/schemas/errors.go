package schemas

import (
	"errors"
	"fmt"
	"strings"
)

// Typed errors let callers classify failures with errors.Is and errors.As
// instead of matching on message text.

var (
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrUnknownSymbol          = errors.New("unknown selector symbol")
	ErrIncompatibleStrategies = errors.New("incompatible selector strategies")
	ErrNotFound               = errors.New("not found")
	ErrRetryExhausted         = errors.New("retry exhausted")
	ErrCallbackFailure        = errors.New("callback failure")
	ErrAssertion              = errors.New("assertion failed")
)

// InvalidArgumentError reports a value of the wrong type or shape.
type InvalidArgumentError struct {
	Argument string
	Reason   string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Argument, e.Reason)
}

func (e *InvalidArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

// NewInvalidArgumentError creates a new InvalidArgumentError.
func NewInvalidArgumentError(argument, reason string) *InvalidArgumentError {
	return &InvalidArgumentError{Argument: argument, Reason: reason}
}

// UnknownSymbolError is returned when a symbolic reference has no entry in
// the page map.
type UnknownSymbolError struct {
	Symbol    string
	Page      string
	Available []string
}

func (e *UnknownSymbolError) Error() string {
	if e.Page == "" {
		return fmt.Sprintf("cannot resolve %s: no page element map supplied", e.Symbol)
	}
	return fmt.Sprintf("cannot find %s in page %q (available: %s)", e.Symbol, e.Page, strings.Join(e.Available, ", "))
}

func (e *UnknownSymbolError) Is(target error) bool { return target == ErrUnknownSymbol }

// IncompatibleStrategiesError is returned when merging selectors whose
// declared strategies differ.
type IncompatibleStrategiesError struct {
	First, Second Selector
}

func (e *IncompatibleStrategiesError) Error() string {
	return fmt.Sprintf("cannot merge two selectors with different locate strategies\n\tselector 1: %s: %s\n\tselector 2: %s: %s",
		e.First.Selector, e.First.LocateStrategy, e.Second.Selector, e.Second.LocateStrategy)
}

func (e *IncompatibleStrategiesError) Is(target error) bool {
	return target == ErrIncompatibleStrategies
}

// NotFoundError is returned when a wait for an element is never satisfied.
type NotFoundError struct {
	Selector Selector
	Visible  bool
	Err      error
}

func (e *NotFoundError) Error() string {
	state := "present"
	if e.Visible {
		state = "visible"
	}
	msg := fmt.Sprintf("element %s was not %s", e.Selector.String(), state)
	if e.Selector.Timeout > 0 {
		msg += fmt.Sprintf(" after %v", e.Selector.Timeout)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func (e *NotFoundError) Unwrap() error { return e.Err }

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(sel Selector, visible bool, err error) *NotFoundError {
	return &NotFoundError{Selector: sel, Visible: visible, Err: err}
}

// RetryExhaustedError carries the attempt count and the last failure.
type RetryExhaustedError struct {
	Description string
	Attempts    int
	TimedOut    bool
	Err         error
}

func (e *RetryExhaustedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: operation timed out after %d attempts", e.Description, e.Attempts)
	}
	if e.TimedOut {
		return fmt.Sprintf("%s: operation failed after %d attempts due to timeout. Last error: %v", e.Description, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s: attempt #%d failed. %v", e.Description, e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Is(target error) bool { return target == ErrRetryExhausted }

func (e *RetryExhaustedError) Unwrap() error { return e.Err }

// CallbackFailureError wraps a callback error raised for one element of an
// iteration.
type CallbackFailureError struct {
	Description string
	Index       int
	Err         error
}

func (e *CallbackFailureError) Error() string {
	return fmt.Sprintf("%s: callback failed for element #%d: %v", e.Description, e.Index+1, e.Err)
}

func (e *CallbackFailureError) Is(target error) bool { return target == ErrCallbackFailure }

func (e *CallbackFailureError) Unwrap() error { return e.Err }

// AssertionError is a failed check. Detail holds the multi-line report
// (raw and normalized strings, options) when one is available.
type AssertionError struct {
	Assertion string
	Message   string
	Detail    string
}

func (e *AssertionError) Error() string {
	msg := e.Assertion
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Detail != "" {
		msg += "\n" + e.Detail
	}
	return msg
}

func (e *AssertionError) Is(target error) bool { return target == ErrAssertion }

// NewAssertionError creates a new AssertionError.
func NewAssertionError(assertion, message string) *AssertionError {
	return &AssertionError{Assertion: assertion, Message: message}
}
