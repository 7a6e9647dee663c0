package main

import (
	"context"
	"errors"
)

const (
	exitCodeFailure  = 1
	exitCodeNotReady = 2
	exitCodeCanceled = 130
)

// errNotReady means at least one applicable prerequisite is unmet. The
// command has already printed which one.
var errNotReady = errors.New("copy job prerequisites not met")

// exitOutcome is how a command error ends the process.
type exitOutcome struct {
	code    int
	message string
	// quiet outcomes print nothing to stderr.
	quiet bool
}

func outcomeForError(err error) exitOutcome {
	switch {
	case err == nil:
		return exitOutcome{quiet: true}
	case errors.Is(err, errNotReady):
		return exitOutcome{code: exitCodeNotReady, quiet: true}
	case errors.Is(err, context.Canceled):
		return exitOutcome{code: exitCodeCanceled, message: "command canceled"}
	default:
		return exitOutcome{code: exitCodeFailure, message: "command failed"}
	}
}
