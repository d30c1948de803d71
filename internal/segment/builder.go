package segment

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/five82/avsbatch/internal/errors"
	"github.com/five82/avsbatch/internal/script"
)

// Builder plans a job's segments and writes their scripts.
type Builder struct {
	OutputDir   string
	JobName     string
	ScriptExt   string // Extension of segment scripts, without dot
	EncodedExt  string // Extension of encoded segments, without dot
	Parallelism int
}

// Name returns the base file name of a segment without extension.
func (b Builder) Name(ordinal int) string {
	return fmt.Sprintf("%s_seg_%d", b.JobName, ordinal)
}

// Plan computes the segments for clips without touching the filesystem.
func (b Builder) Plan(clips []*script.Clip, target script.Dimension) ([]Segment, error) {
	planned, err := Plan(clips, b.Parallelism)
	if err != nil {
		return nil, errors.NewSegmentBuildError("failed to plan segments", err)
	}

	segments := make([]Segment, len(planned))
	for i, slices := range planned {
		seg := Merge(i, slices, target)
		seg.ScriptPath = filepath.Join(b.OutputDir, b.Name(i)+"."+b.ScriptExt)
		seg.OutputPath = filepath.Join(b.OutputDir, b.Name(i)+"."+b.EncodedExt)
		segments[i] = seg
	}
	return segments, nil
}

// Build plans the segments and writes each segment script to disk.
func (b Builder) Build(clips []*script.Clip, target script.Dimension) ([]Segment, error) {
	segments, err := b.Plan(clips, target)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(b.OutputDir, 0o755); err != nil {
		return nil, errors.NewSegmentBuildError("failed to create output directory", err)
	}
	for _, seg := range segments {
		if err := WriteScript(seg); err != nil {
			return nil, errors.NewSegmentBuildError(fmt.Sprintf("failed to write %s", seg.ScriptPath), err)
		}
	}
	return segments, nil
}

// WriteScript atomically replaces the segment's script file.
func WriteScript(seg Segment) error {
	pending, err := renameio.NewPendingFile(seg.ScriptPath, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending script: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := pending.WriteString(seg.Script()); err != nil {
		return fmt.Errorf("write script: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace script: %w", err)
	}
	return nil
}
