// Package merge joins encoded segments into the job's container with mkvmerge.
package merge

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/five82/avsbatch/internal/errors"
	"github.com/five82/avsbatch/internal/logging"
	"github.com/five82/avsbatch/internal/segment"
	"github.com/five82/avsbatch/internal/util"
)

// maxTailLines bounds the merger output kept for error messages.
const maxTailLines = 5

// Request describes one merge invocation.
type Request struct {
	Executable   string            // Merger executable, e.g. mkvmerge
	OutputDir    string            // Directory receiving the container
	JobName      string            // Container base name
	ContainerExt string            // Container extension without dot
	Segments     []segment.Segment // In segment order
	Cleanup      bool              // Delete segment scripts and encodes afterwards
}

// OutputPath returns the container path <OutputDir>/<JobName>.<ContainerExt>.
func (r Request) OutputPath() string {
	return filepath.Join(r.OutputDir, r.JobName+"."+r.ContainerExt)
}

// Args returns the merger argument vector: the segment outputs in order,
// joined with "+" so the merger appends them.
func (r Request) Args() []string {
	args := []string{r.Executable, "-o", r.OutputPath()}
	for i, seg := range r.Segments {
		if i > 0 {
			args = append(args, "+")
		}
		args = append(args, seg.OutputPath)
	}
	return args
}

// Run invokes the merger and waits for it, draining its combined output.
// The merger is not interruptible once started. Intermediates are deleted
// afterwards when requested, whether or not the merge succeeded.
func Run(req Request) (string, error) {
	if len(req.Segments) == 0 {
		return "", errors.NewMergeError("no segments to merge", nil)
	}
	argv := req.Args()
	cmdline := util.CommandString(argv)
	logging.Debug("merging segments", "command", cmdline)

	err := run(argv)
	if req.Cleanup {
		if cerr := Cleanup(req.Segments); cerr != nil {
			logging.Warn("failed to delete intermediate files", "error", cerr)
		}
	}
	if err != nil {
		return "", err
	}
	return req.OutputPath(), nil
}

func run(argv []string) error {
	cmd := exec.Command(argv[0], argv[1:]...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.NewMergeError("failed to attach to merger output", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return errors.NewMergeError("failed to start merger", errors.NewCommandStartError(argv[0], err))
	}

	tail := drain(stdout)

	if err := cmd.Wait(); err != nil {
		return errors.NewMergeError("failed to merge segments", errors.WrapExecError(argv[0], err, strings.Join(tail, "\n")))
	}
	return nil
}

// drain reads the merger output to EOF so it never blocks on a full pipe,
// keeping only the last few lines.
func drain(r io.Reader) []string {
	var tail []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tail = append(tail, line)
		if len(tail) > maxTailLines {
			tail = tail[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		// Keep draining so the merger can exit.
		_, _ = io.Copy(io.Discard, r)
	}
	return tail
}

// Cleanup deletes every segment's script and encoded output. Missing files
// are ignored.
func Cleanup(segments []segment.Segment) error {
	var errs []error
	for _, seg := range segments {
		for _, path := range []string{seg.ScriptPath, seg.OutputPath} {
			if path == "" {
				continue
			}
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				errs = append(errs, fmt.Errorf("remove %s: %w", path, err))
			}
		}
	}
	return stderrors.Join(errs...)
}
