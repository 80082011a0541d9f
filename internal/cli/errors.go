// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/crewchat/internal/api"
	"github.com/jeranaias/crewchat/internal/config"
	"github.com/jeranaias/crewchat/internal/ui/styles"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitNetworkError  = 5
	ExitNotFoundError = 7
	ExitTimeoutError  = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command failure with context.
type CommandError struct {
	Command string
	Action  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Action == "" {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s: failed to %s: %v", e.Command, e.Action, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// UsageError reports invalid arguments.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// NewCommandError wraps err with the failing command and action.
func NewCommandError(command, action string, err error) error {
	if err == nil {
		return nil
	}
	return &CommandError{Command: command, Action: action, Err: err}
}

func usageErrorf(format string, args ...interface{}) error {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

// =============================================================================
// DISPLAY AND EXIT CODES
// =============================================================================

// DisplayError writes err to w, as JSON when jsonMode is set.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		NewJSONErrorResponse("error", err).Fprint(w)
		return
	}
	fmt.Fprintln(w, styles.RenderError(err.Error()))
	if hint := errorHint(err); hint != "" {
		fmt.Fprintln(w, DimStyle.Render("  "+hint))
	}
}

// GetExitCode maps an error onto an exit code category.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *UsageError
	var verr config.ValidateErrors
	var cerr *api.ClientError
	switch {
	case errors.As(err, &usage):
		return ExitUsageError
	case errors.As(err, &verr):
		return ExitConfigError
	case api.IsNotFound(err):
		return ExitNotFoundError
	case api.IsTimeout(err):
		return ExitTimeoutError
	case errors.As(err, &cerr) && cerr.Type == api.ErrTypeConnection:
		return ExitNetworkError
	}

	// cobra reports its own argument errors as plain strings
	msg := err.Error()
	if strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "unknown flag") ||
		strings.Contains(msg, "arg(s)") {
		return ExitUsageError
	}
	return ExitGeneralError
}

func errorHint(err error) string {
	var cerr *api.ClientError
	if errors.As(err, &cerr) && cerr.Type == api.ErrTypeConnection {
		return "Check base_url in your config or set CREWCHAT_BASE_URL."
	}
	var verr config.ValidateErrors
	if errors.As(err, &verr) {
		return "Run 'crewchat config path' to locate the file."
	}
	return ""
}
