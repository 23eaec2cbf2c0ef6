package daemon

import (
	"errors"
	"fmt"
)

// Process exit codes.
const (
	ExitOK                = 0
	ExitGPIOEnable        = 1
	ExitGPIOConfigure     = 2
	ExitLogFile           = 3
	ExitDisable           = 4
	ExitDisableAfterFault = 5
	ExitSensorFault       = 6
	ExitConfig            = 7
	ExitFailure           = 8
)

// ExitError carries the process exit code for a failure.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit %d: %v", e.Code, e.Err)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Exit wraps err with an exit code.
func Exit(code int, err error) error {
	return &ExitError{Code: code, Err: err}
}

// Code returns the exit code for err: 0 for nil, the ExitError code when err
// wraps one, and ExitFailure otherwise.
func Code(err error) int {
	if err == nil {
		return ExitOK
	}
	var e *ExitError
	if errors.As(err, &e) {
		return e.Code
	}
	return ExitFailure
}
