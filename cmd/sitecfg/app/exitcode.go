package app

import (
	"context"
	stderrors "errors"

	"github.com/agentstation/sitecfg/pkg/errors"
)

// Exit codes follow the BSD sysexits conventions where one applies.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUsage       = 64  // invalid flag or configuration value
	ExitDataErr     = 65  // unreadable platform or feature description
	ExitUnavailable = 69  // platform snapshot could not be discovered
	ExitSoftware    = 70  // internal failure such as digest encoding
	ExitIOErr       = 74  // store or filesystem failure
	ExitTempFail    = 75  // another reconciliation holds the lock
	ExitConfig      = 78  // configuration file error
	ExitInterrupted = 130 // canceled by SIGINT or SIGTERM
)

// ExitCode maps an error returned by a command to a process exit code.
// The most specific cause wins: a parse failure inside a snapshot error
// reports ExitDataErr, not ExitUnavailable.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var (
		parseErr    *errors.ParseError
		ioErr       *errors.IOError
		storeErr    *errors.StoreError
		snapshotErr *errors.SnapshotError
		configErr   *errors.ConfigError
		validErr    *errors.ValidationError
		resourceErr *errors.ResourceError
	)
	switch {
	case errors.IsCanceled(err), stderrors.Is(err, context.Canceled):
		return ExitInterrupted
	case stderrors.Is(err, errors.ErrLocked):
		return ExitTempFail
	case stderrors.As(err, &parseErr):
		return ExitDataErr
	case stderrors.As(err, &storeErr), stderrors.As(err, &ioErr):
		return ExitIOErr
	case stderrors.As(err, &snapshotErr):
		return ExitUnavailable
	case stderrors.As(err, &configErr):
		return ExitConfig
	case stderrors.As(err, &validErr):
		return ExitUsage
	case stderrors.As(err, &resourceErr):
		return ExitSoftware
	default:
		return ExitFailure
	}
}
