package errors

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"testing"
)

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind     ErrorKind
		expected string
	}{
		{KindIO, "I/O error"},
		{KindParse, "Parse error"},
		{KindSegmentBuild, "Segment build error"},
		{KindEncode, "Encode error"},
		{KindMerge, "Merge error"},
		{KindCommand, "Command error"},
		{KindConfig, "Configuration error"},
		{KindNoFilesFound, "No files found"},
		{KindCancelled, "Operation cancelled"},
		{ErrorKind(99), "Unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.expected {
				t.Errorf("ErrorKind.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCoreErrorError(t *testing.T) {
	underlying := errors.New("underlying error")
	err := &CoreError{
		Kind:       KindIO,
		Message:    "test message",
		Underlying: underlying,
	}

	got := err.Error()
	expected := "I/O error: test message: underlying error"
	if got != expected {
		t.Errorf("CoreError.Error() = %v, want %v", got, expected)
	}

	err2 := &CoreError{
		Kind:    KindParse,
		Message: "cannot determine clip dimensions",
	}

	got2 := err2.Error()
	expected2 := "Parse error: cannot determine clip dimensions"
	if got2 != expected2 {
		t.Errorf("CoreError.Error() = %v, want %v", got2, expected2)
	}
}

func TestCoreErrorIs(t *testing.T) {
	err1 := &CoreError{Kind: KindMerge, Message: "test1"}
	err2 := &CoreError{Kind: KindMerge, Message: "test2"}
	err3 := &CoreError{Kind: KindConfig, Message: "test3"}

	if !errors.Is(err1, err2) {
		t.Error("Same kind errors should match")
	}
	if errors.Is(err1, err3) {
		t.Error("Different kind errors should not match")
	}

	wrapped := fmt.Errorf("job failed: %w", err1)
	if !errors.Is(wrapped, &CoreError{Kind: KindMerge}) {
		t.Error("Wrapped error should match by kind")
	}
}

func TestCommandError(t *testing.T) {
	startErr := &CommandError{
		Command:    "x264",
		Kind:       CommandStart,
		Underlying: errors.New("not found"),
	}
	if got := startErr.Error(); got != "failed to execute x264: not found" {
		t.Errorf("CommandStart error = %v", got)
	}

	failedErr := &CommandError{
		Command:  "mkvmerge",
		Kind:     CommandFailed,
		ExitCode: 2,
		Output:   "file not found",
	}
	expected := "command mkvmerge failed with exit code 2: file not found"
	if got := failedErr.Error(); got != expected {
		t.Errorf("CommandFailed error = %v, want %v", got, expected)
	}

	interrupted := &CommandError{Command: "x264", Kind: CommandInterrupted}
	if got := interrupted.Error(); got != "command x264 was interrupted" {
		t.Errorf("CommandInterrupted error = %v", got)
	}
}

func TestNewEncodeError(t *testing.T) {
	err := NewEncodeError("x264 --output seg.264 seg.avs", 2, "")

	if err.Kind != KindEncode {
		t.Errorf("Expected KindEncode, got %v", err.Kind)
	}
	if !strings.Contains(err.Error(), "2") {
		t.Errorf("Encode error %q should carry the exit code", err.Error())
	}
	if code := ExitCode(err); code != 2 {
		t.Errorf("ExitCode() = %d, want 2", code)
	}
}

func TestNewEncodeInterruptedError(t *testing.T) {
	err := NewEncodeInterruptedError("x264 seg.avs")

	if !IsKind(err, KindEncode) {
		t.Error("interrupted error should be an encode error")
	}
	if !strings.Contains(err.Error(), "interrupted") {
		t.Errorf("error %q should mention interruption", err.Error())
	}
	if code := ExitCode(err); code != -1 {
		t.Errorf("ExitCode() = %d, want -1", code)
	}
	if !IsInterrupted(err) {
		t.Error("IsInterrupted() = false")
	}
	if IsInterrupted(NewEncodeError("x264", 2, "")) {
		t.Error("a failed encoder was not interrupted")
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *CoreError
		want ErrorKind
	}{
		{"NewIOError", NewIOError("disk full", errors.New("no space")), KindIO},
		{"NewParseError", NewParseError("bad script"), KindParse},
		{"WrapParseError", WrapParseError("bad index", errors.New("eof")), KindParse},
		{"NewSegmentBuildError", NewSegmentBuildError("write failed", errors.New("eacces")), KindSegmentBuild},
		{"NewMergeError", NewMergeError("merge failed", nil), KindMerge},
		{"NewConfigError", NewConfigError("invalid preset"), KindConfig},
		{"NewNoFilesFoundError", NewNoFilesFoundError("/test/dir"), KindNoFilesFound},
		{"NewCancelledError", NewCancelledError(), KindCancelled},
		{"NewCommandStartError", NewCommandStartError("x264", errors.New("enoent")), KindCommand},
		{"NewCommandWaitError", NewCommandWaitError("x264", errors.New("signal")), KindCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, tt.err.Kind)
			}
		})
	}
}

func TestIsKind(t *testing.T) {
	err := NewConfigError("test")

	if !IsKind(err, KindConfig) {
		t.Error("IsKind should return true for matching kind")
	}
	if IsKind(err, KindIO) {
		t.Error("IsKind should return false for non-matching kind")
	}
	if IsKind(errors.New("plain error"), KindConfig) {
		t.Error("IsKind should return false for non-CoreError")
	}
}

func TestIsCancelled(t *testing.T) {
	if !IsCancelled(NewCancelledError()) {
		t.Error("IsCancelled should return true for cancelled error")
	}
	if IsCancelled(NewConfigError("test")) {
		t.Error("IsCancelled should return false for non-cancelled error")
	}
}

func TestWrapExecError(t *testing.T) {
	err := WrapExecError("missing", exec.ErrNotFound, "")
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatal("expected a CommandError in the chain")
	}
	if cmdErr.Kind != CommandStart {
		t.Errorf("Kind = %v, want CommandStart", cmdErr.Kind)
	}
}
