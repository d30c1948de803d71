// Package errors provides structured error types for avsbatch operations.
package errors

import (
	"errors"
	"fmt"
	"os/exec"
)

// ErrorKind represents the category of an error.
type ErrorKind int

const (
	// KindIO represents I/O errors.
	KindIO ErrorKind = iota
	// KindParse represents an unparseable or dimensionless input script.
	KindParse
	// KindSegmentBuild represents failures while planning or writing segment scripts.
	KindSegmentBuild
	// KindEncode represents a failed or interrupted encoder subprocess.
	KindEncode
	// KindMerge represents a failed concatenation step.
	KindMerge
	// KindCommand represents external command execution errors.
	KindCommand
	// KindConfig represents configuration validation errors.
	KindConfig
	// KindNoFilesFound represents no suitable script files found.
	KindNoFilesFound
	// KindCancelled represents user-cancelled operations.
	KindCancelled
)

// String returns a string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "I/O error"
	case KindParse:
		return "Parse error"
	case KindSegmentBuild:
		return "Segment build error"
	case KindEncode:
		return "Encode error"
	case KindMerge:
		return "Merge error"
	case KindCommand:
		return "Command error"
	case KindConfig:
		return "Configuration error"
	case KindNoFilesFound:
		return "No files found"
	case KindCancelled:
		return "Operation cancelled"
	default:
		return "Unknown error"
	}
}

// CommandErrorKind represents the type of command error.
type CommandErrorKind int

const (
	// CommandStart means the command failed to start.
	CommandStart CommandErrorKind = iota
	// CommandWait means waiting for the command failed.
	CommandWait
	// CommandFailed means the command returned non-zero exit status.
	CommandFailed
	// CommandInterrupted means the command was killed before it exited.
	CommandInterrupted
)

// CommandError represents an error from executing an external command.
type CommandError struct {
	Command    string
	Kind       CommandErrorKind
	ExitCode   int
	Output     string
	Underlying error
}

func (e *CommandError) Error() string {
	switch e.Kind {
	case CommandStart:
		return fmt.Sprintf("failed to execute %s: %v", e.Command, e.Underlying)
	case CommandWait:
		return fmt.Sprintf("failed to wait for %s: %v", e.Command, e.Underlying)
	case CommandFailed:
		if e.Output != "" {
			return fmt.Sprintf("command %s failed with exit code %d: %s", e.Command, e.ExitCode, e.Output)
		}
		return fmt.Sprintf("command %s failed with exit code %d", e.Command, e.ExitCode)
	case CommandInterrupted:
		return fmt.Sprintf("command %s was interrupted", e.Command)
	default:
		return fmt.Sprintf("command %s error: %v", e.Command, e.Underlying)
	}
}

func (e *CommandError) Unwrap() error {
	return e.Underlying
}

// CoreError is the main error type for avsbatch operations.
type CoreError struct {
	Kind       ErrorKind
	Message    string
	Underlying error
}

func (e *CoreError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error {
	return e.Underlying
}

// Is reports whether target matches this error's kind.
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewIOError creates a new I/O error.
func NewIOError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindIO, Message: message, Underlying: underlying}
}

// NewParseError creates an error for a script that cannot be turned into a clip.
func NewParseError(message string) *CoreError {
	return &CoreError{Kind: KindParse, Message: message}
}

// WrapParseError creates a parse error with an underlying cause.
func WrapParseError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindParse, Message: message, Underlying: underlying}
}

// NewSegmentBuildError creates an error for segment planning or script writing failures.
func NewSegmentBuildError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindSegmentBuild, Message: message, Underlying: underlying}
}

// NewEncodeError creates an error for an encoder that exited with a non-zero code.
func NewEncodeError(cmd string, exitCode int, output string) *CoreError {
	cmdErr := &CommandError{
		Command:  cmd,
		Kind:     CommandFailed,
		ExitCode: exitCode,
		Output:   output,
	}
	return &CoreError{
		Kind:       KindEncode,
		Message:    fmt.Sprintf("encoder completed with an error = %d", exitCode),
		Underlying: cmdErr,
	}
}

// NewEncodeInterruptedError creates an error for an encoder killed before exit.
func NewEncodeInterruptedError(cmd string) *CoreError {
	cmdErr := &CommandError{Command: cmd, Kind: CommandInterrupted}
	return &CoreError{Kind: KindEncode, Message: "segment encoder was interrupted", Underlying: cmdErr}
}

// NewMergeError creates an error for a failed concatenation step.
func NewMergeError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindMerge, Message: message, Underlying: underlying}
}

// NewCommandError creates a new command execution error.
func NewCommandError(cmd string, kind CommandErrorKind, underlying error) *CoreError {
	cmdErr := &CommandError{
		Command:    cmd,
		Kind:       kind,
		Underlying: underlying,
	}
	return &CoreError{Kind: KindCommand, Message: cmdErr.Error(), Underlying: cmdErr}
}

// NewCommandStartError creates an error for when a command fails to start.
func NewCommandStartError(cmd string, err error) *CoreError {
	return NewCommandError(cmd, CommandStart, err)
}

// NewCommandWaitError creates an error for when waiting for a command fails.
func NewCommandWaitError(cmd string, err error) *CoreError {
	return NewCommandError(cmd, CommandWait, err)
}

// NewCommandFailedError creates an error for when a command returns non-zero exit status.
func NewCommandFailedError(cmd string, exitCode int, output string) *CoreError {
	cmdErr := &CommandError{
		Command:  cmd,
		Kind:     CommandFailed,
		ExitCode: exitCode,
		Output:   output,
	}
	return &CoreError{Kind: KindCommand, Message: cmdErr.Error(), Underlying: cmdErr}
}

// NewConfigError creates a new configuration error.
func NewConfigError(message string) *CoreError {
	return &CoreError{Kind: KindConfig, Message: message}
}

// NewNoFilesFoundError creates an error for when no scripts are found.
func NewNoFilesFoundError(dir string) *CoreError {
	return &CoreError{Kind: KindNoFilesFound, Message: fmt.Sprintf("no script files found in %s", dir)}
}

// NewCancelledError creates an error for user-cancelled operations.
func NewCancelledError() *CoreError {
	return &CoreError{Kind: KindCancelled, Message: "operation was cancelled by the user"}
}

// IsKind checks if the error has the specified kind.
func IsKind(err error, kind ErrorKind) bool {
	var coreErr *CoreError
	if errors.As(err, &coreErr) {
		return coreErr.Kind == kind
	}
	return false
}

// IsCancelled checks if the error is a cancellation error.
func IsCancelled(err error) bool {
	return IsKind(err, KindCancelled)
}

// IsInterrupted reports whether err is a command that was killed before it exited.
func IsInterrupted(err error) bool {
	var cmdErr *CommandError
	return errors.As(err, &cmdErr) && cmdErr.Kind == CommandInterrupted
}

// ExitCode extracts the exit code carried by a command failure, or -1.
func ExitCode(err error) int {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.Kind == CommandFailed {
		return cmdErr.ExitCode
	}
	return -1
}

// WrapExecError wraps an exec.ExitError into a CoreError.
func WrapExecError(cmd string, err error, output string) *CoreError {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return NewCommandFailedError(cmd, exitErr.ExitCode(), output)
	}
	return NewCommandStartError(cmd, err)
}
