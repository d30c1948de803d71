package x264

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"

	coreerrors "github.com/five82/avsbatch/internal/errors"
	"github.com/five82/avsbatch/internal/logging"
	"github.com/five82/avsbatch/internal/util"
)

// LineCallback receives every status line the encoder prints.
type LineCallback func(line string)

// Result is the outcome of one encoder run.
type Result struct {
	Success  bool
	ExitCode int
	LastLine string // Most recent non-empty output line
	Error    error
}

// Run executes argv with stdout and stderr merged, forwarding each status
// line to onLine until the process exits. Cancelling ctx kills the encoder
// and yields an interrupted result.
func Run(ctx context.Context, argv []string, onLine LineCallback) Result {
	if len(argv) == 0 {
		return Result{ExitCode: -1, Error: coreerrors.NewCommandStartError("", errors.New("empty command"))}
	}
	cmdline := util.CommandString(argv)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	util.ConfigureProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{ExitCode: -1, Error: coreerrors.NewCommandStartError(argv[0], err)}
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1, Error: coreerrors.NewCommandStartError(argv[0], err)}
	}
	logging.Debug("encoder started", "pid", cmd.Process.Pid, "command", cmdline)

	last := readStatusLines(stdout, onLine)
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return Result{
			ExitCode: -1,
			LastLine: last,
			Error:    coreerrors.NewEncodeInterruptedError(cmdline),
		}
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code := exitErr.ExitCode()
			return Result{
				ExitCode: code,
				LastLine: last,
				Error:    coreerrors.NewEncodeError(cmdline, code, last),
			}
		}
		return Result{ExitCode: -1, LastLine: last, Error: coreerrors.NewCommandWaitError(argv[0], waitErr)}
	}

	return Result{Success: true, LastLine: last}
}

// readStatusLines splits output on carriage returns as well as newlines,
// since x264 redraws its status line in place.
func readStatusLines(r io.Reader, onLine LineCallback) string {
	reader := bufio.NewReader(r)
	var (
		lineBuf strings.Builder
		last    string
	)

	flush := func() {
		line := strings.TrimSpace(lineBuf.String())
		lineBuf.Reset()
		if line == "" {
			return
		}
		last = line
		if onLine != nil {
			onLine(line)
		}
	}

	for {
		b, err := reader.ReadByte()
		if err != nil {
			if err != io.EOF {
				logging.Debug("encoder output read failed", "error", err)
			}
			break
		}
		if b == '\r' || b == '\n' {
			flush()
		} else {
			lineBuf.WriteByte(b)
		}
	}
	flush()
	return last
}
