package script

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Dimension is a frame size in pixels.
type Dimension struct {
	Width  int
	Height int
}

func (d Dimension) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// IsZero reports whether the dimension is unset.
func (d Dimension) IsZero() bool {
	return d.Width == 0 && d.Height == 0
}

// ParseDimension parses a "WxH" string.
func ParseDimension(s string) (Dimension, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return Dimension{}, fmt.Errorf("invalid dimension %q: expected WxH", s)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil || width <= 0 {
		return Dimension{}, fmt.Errorf("invalid dimension width in %q", s)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil || height <= 0 {
		return Dimension{}, fmt.Errorf("invalid dimension height in %q", s)
	}
	return Dimension{Width: width, Height: height}, nil
}

// Clip is one parsed input script. A Clip is never modified after parsing;
// derived values are produced by the segment package from copies of its
// commands.
type Clip struct {
	Path            string
	Start           int64 // First frame, inclusive
	End             int64 // Last frame, inclusive
	Dimension       Dimension
	UsesDeinterlace bool

	commands []Command
}

// NewClip builds a clip from a classified command list. The trim interval
// is read from the first Trim command.
func NewClip(path string, commands []Command, dim Dimension) (*Clip, error) {
	i := indexOfKind(commands, KindTrim)
	if i < 0 {
		return nil, fmt.Errorf("no trim command")
	}
	start, end, err := trimBounds(commands[i])
	if err != nil {
		return nil, err
	}
	cmds := make([]Command, len(commands))
	copy(cmds, commands)
	return &Clip{
		Path:            path,
		Start:           start,
		End:             end,
		Dimension:       dim,
		UsesDeinterlace: indexOfKind(cmds, KindDeinterlace) >= 0 && indexOfKind(cmds, KindSelectEven) < 0,
		commands:        cmds,
	}, nil
}

// Commands returns a copy of the clip's ordered command list.
func (c *Clip) Commands() []Command {
	out := make([]Command, len(c.commands))
	copy(out, c.commands)
	return out
}

// FrameCount returns the number of source frames selected by the trim interval.
func (c *Clip) FrameCount() int64 {
	return c.End - c.Start + 1
}

// OutputFrames returns the frames the clip produces after filtering.
// Deinterlacing without SelectEven doubles the frame rate.
func (c *Clip) OutputFrames() int64 {
	if c.UsesDeinterlace {
		return c.FrameCount() * 2
	}
	return c.FrameCount()
}

// Name returns the script file name without directory or extension.
func (c *Clip) Name() string {
	base := filepath.Base(c.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Has reports whether the clip contains a command of the given kind.
func (c *Clip) Has(kind Kind) bool {
	return indexOfKind(c.commands, kind) >= 0
}

func indexOfKind(cmds []Command, kind Kind) int {
	for i, cmd := range cmds {
		if cmd.Kind == kind {
			return i
		}
	}
	return -1
}

func lastIndexOfKind(cmds []Command, kind Kind) int {
	for i := len(cmds) - 1; i >= 0; i-- {
		if cmds[i].Kind == kind {
			return i
		}
	}
	return -1
}

// SelectTargetDimension picks the output dimension for a job. An explicit
// target wins; otherwise the dimension shared by the most clips is used,
// ties going to the one seen first.
func SelectTargetDimension(clips []*Clip, explicit Dimension) Dimension {
	if !explicit.IsZero() {
		return explicit
	}
	counts := make(map[Dimension]int)
	var best Dimension
	bestCount := 0
	for _, c := range clips {
		counts[c.Dimension]++
	}
	for _, c := range clips {
		if n := counts[c.Dimension]; n > bestCount {
			best, bestCount = c.Dimension, n
		}
	}
	return best
}
