package appcore

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// HaltError signals that the application detected an irrecoverable
// condition and requests an immediate chain halt.
//
// When the engine receives a HaltError it must stop consensus, log the
// error, and not proceed. A failed commit write is the canonical case:
// continuing could publish an app hash no other node reproduces.
type HaltError struct {
	Reason string
	Height uint64
	Err    error
}

func (e *HaltError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HALT at height %d: %s: %v", e.Height, e.Reason, e.Err)
	}
	return fmt.Sprintf("HALT at height %d: %s", e.Height, e.Reason)
}

// Unwrap returns the underlying cause, if any.
func (e *HaltError) Unwrap() error { return e.Err }

// NewHaltError creates a new HaltError.
func NewHaltError(height uint64, reason string) *HaltError {
	return &HaltError{Height: height, Reason: reason}
}

// WrapHalt creates a HaltError carrying the cause.
func WrapHalt(err error, height uint64, reason string) *HaltError {
	return &HaltError{Height: height, Reason: reason, Err: err}
}

// IsHalt checks whether an error is a HaltError and returns it.
func IsHalt(err error) (*HaltError, bool) {
	var h *HaltError
	if errors.As(err, &h) {
		return h, true
	}
	return nil, false
}

// RootCodespace is the codespace of the errors defined by the core.
const RootCodespace = "app"

// Error is a registered, coded error. The (codespace, code) pair is what
// the engine sees in CheckTx and DeliverTx results, so it must never
// change for a given failure.
type Error struct {
	codespace string
	code      uint32
	desc      string
}

func (e *Error) Error() string { return e.desc }

// Codespace returns the codespace the error was registered under.
func (e *Error) Codespace() string { return e.codespace }

// Code returns the error code, unique within the codespace.
func (e *Error) Code() uint32 { return e.code }

// Is matches registered errors by codespace and code so wrapped copies
// compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.codespace == e.codespace && t.code == e.code
}

// Wrap annotates the registered error with a message, keeping its code.
func (e *Error) Wrap(msg string) error { return errors.Wrap(e, msg) }

// Wrapf annotates the registered error with a formatted message.
func (e *Error) Wrapf(format string, args ...interface{}) error {
	return errors.Wrapf(e, format, args...)
}

var (
	_registryMu sync.Mutex
	_registry   = map[string]*Error{}
)

// Register defines a new coded error. Registering the same codespace and
// code twice is a programming error and panics.
func Register(codespace string, code uint32, desc string) *Error {
	if code == 0 {
		panic("appcore: error code 0 is reserved for success")
	}
	key := fmt.Sprintf("%s:%d", codespace, code)
	_registryMu.Lock()
	defer _registryMu.Unlock()
	if _, ok := _registry[key]; ok {
		panic(fmt.Sprintf("appcore: error with code %d is already registered in codespace %q", code, codespace))
	}
	e := &Error{codespace: codespace, code: code, desc: desc}
	_registry[key] = e
	return e
}

// Errors returned by the core. Modules register their own codespaces.
var (
	ErrTxDecode           = Register(RootCodespace, 2, "tx parse error")
	ErrInvalidSequence    = Register(RootCodespace, 3, "invalid sequence")
	ErrUnauthorized       = Register(RootCodespace, 4, "unauthorized")
	ErrInsufficientFunds  = Register(RootCodespace, 5, "insufficient funds")
	ErrUnknownRequest     = Register(RootCodespace, 6, "unknown request")
	ErrInvalidAddress     = Register(RootCodespace, 7, "invalid address")
	ErrInvalidPubKey      = Register(RootCodespace, 8, "invalid pubkey")
	ErrUnknownAddress     = Register(RootCodespace, 9, "unknown address")
	ErrInvalidCoins       = Register(RootCodespace, 10, "invalid coins")
	ErrOutOfGas           = Register(RootCodespace, 11, "out of gas")
	ErrInvalidRequest     = Register(RootCodespace, 12, "invalid request")
	ErrInsufficientFee    = Register(RootCodespace, 13, "insufficient fee")
	ErrInvalidGasLimit    = Register(RootCodespace, 14, "invalid gas limit")
	ErrWrongState         = Register(RootCodespace, 15, "call not allowed in current state")
	ErrInvalidHeight      = Register(RootCodespace, 16, "invalid height")
	ErrNotFound           = Register(RootCodespace, 17, "not found")
	ErrMemoTooLarge       = Register(RootCodespace, 18, "memo too large")
	ErrNoSignatures       = Register(RootCodespace, 19, "no signatures supplied")
	ErrPanic              = Register(RootCodespace, 111222, "panic")
)

// ResultInfo maps any error to the (codespace, code, log) triple reported
// to the engine. Unregistered errors map to ErrPanic's codespace with
// code 1 so an internal failure is never mistaken for success.
func ResultInfo(err error) (codespace string, code uint32, log string) {
	if err == nil {
		return "", 0, ""
	}
	var coded *Error
	if errors.As(err, &coded) {
		return coded.codespace, coded.code, err.Error()
	}
	return RootCodespace, 1, err.Error()
}
