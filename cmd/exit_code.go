package cmd

import "errors"

type exitCode uint8

const (
	exitScenariosFailed exitCode = 1
	exitNoBrowser       exitCode = 3
	exitInvalidConfig   exitCode = 104
	exitExternalAbort   exitCode = 105
)

type withExitCode struct {
	error
	code exitCode
}

func (e withExitCode) Unwrap() error {
	return e.error
}

// withExitCodeIfNone attaches code to err, unless err is nil or already
// carries one.
func withExitCodeIfNone(err error, code exitCode) error {
	if err == nil {
		return nil
	}
	var ec withExitCode
	if errors.As(err, &ec) {
		return err
	}
	return withExitCode{err, code}
}

// errorExitCode returns the exit code attached to err, or -1.
func errorExitCode(err error) int {
	var ec withExitCode
	if errors.As(err, &ec) {
		return int(ec.code)
	}
	return -1
}
