package segment

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/five82/avsbatch/internal/script"
)

// Segment is one independently encodable part of a job.
type Segment struct {
	Ordinal    int
	Commands   []script.Command
	FrameCount int64 // Output frames, counting deinterlace doubling
	ScriptPath string
	OutputPath string
}

// Script renders the segment's commands as script text.
func (s Segment) Script() string {
	var b strings.Builder
	for _, cmd := range s.Commands {
		b.WriteString(cmd.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// dimensionRef matches bare width/height properties that are not already
// qualified with a clip variable.
var dimensionRef = regexp.MustCompile(`(^|[^.\w])(width|height)\b`)

// ClipName returns the script variable bound to the i-th slice of a segment.
func ClipName(i int) string {
	return fmt.Sprintf("clip_%d", i)
}

// Merge builds the segment script for the given slices. Each slice gets its
// own clip variable; plugin loads are hoisted and de-duplicated, and the
// clips are joined in slice order.
func Merge(ordinal int, slices []Slice, target script.Dimension) Segment {
	var (
		plugins []script.Command
		body    []script.Command
		names   []string
		frames  int64
	)
	seen := make(map[string]bool)

	for i, s := range slices {
		name := ClipName(i)
		names = append(names, name)
		frames += s.OutputFrames()

		for _, cmd := range sliceCommands(s, name, target) {
			if cmd.Kind == script.KindLoadPlugin {
				if !seen[cmd.Text] {
					seen[cmd.Text] = true
					plugins = append(plugins, cmd)
				}
				continue
			}
			body = append(body, cmd)
		}
	}

	cmds := make([]script.Command, 0, len(plugins)+len(body)+1)
	cmds = append(cmds, plugins...)
	cmds = append(cmds, body...)
	cmds = append(cmds, script.Command{
		Kind: script.KindGeneric,
		Text: "return " + strings.Join(names, " ++ "),
	})

	return Segment{Ordinal: ordinal, Commands: cmds, FrameCount: frames}
}

// sliceCommands returns the clip's commands retrimmed to the slice, resized
// to target and bound to name.
func sliceCommands(s Slice, name string, target script.Dimension) []script.Command {
	cmds := s.Clip.Commands()

	for i, cmd := range cmds {
		if cmd.Kind == script.KindTrim {
			cmds[i] = script.NewTrim(s.Start, s.End)
			break
		}
	}

	hasResize := false
	for i, cmd := range cmds {
		if cmd.Kind == script.KindResize {
			cmds[i] = qualifyResize(cmd, name)
			hasResize = true
		}
	}
	if !hasResize && s.Clip.Dimension != target {
		cmds = insertResize(cmds, s.Clip.UsesDeinterlace, name, target)
	}

	for i, cmd := range cmds {
		cmds[i] = rename(cmd, name)
	}
	return cmds
}

// insertResize adds resize passes for a clip whose size differs from target.
// Deinterlaced clips are narrowed before the deinterlacer and shortened after
// it so the expensive filter sees as few pixels as possible.
func insertResize(cmds []script.Command, deinterlaced bool, name string, target script.Dimension) []script.Command {
	di := -1
	if deinterlaced {
		for i, cmd := range cmds {
			if cmd.Kind == script.KindDeinterlace {
				di = i
				break
			}
		}
	}

	if di < 0 {
		return append(cmds, script.Command{
			Kind: script.KindResize,
			Text: fmt.Sprintf("%s=%s.%s%d,%d)", name, name, script.ResizeCall, target.Width, target.Height),
		})
	}

	before := script.Command{
		Kind: script.KindResize,
		Text: fmt.Sprintf("%s=%s.%s%d,%s.height)", name, name, script.ResizeCall, target.Width, name),
	}
	after := script.Command{
		Kind: script.KindResize,
		Text: fmt.Sprintf("%s=%s.%s%s.width,%d)", name, name, script.ResizeCall, name, target.Height),
	}

	out := make([]script.Command, 0, len(cmds)+2)
	out = append(out, cmds[:di]...)
	out = append(out, before, cmds[di], after)
	return append(out, cmds[di+1:]...)
}

// qualifyResize binds an existing resize and its width/height references to name.
func qualifyResize(cmd script.Command, name string) script.Command {
	text := dimensionRef.ReplaceAllString(cmd.Text, "${1}"+name+".${2}")
	return script.Command{Kind: cmd.Kind, Text: name + "=" + name + "." + text}
}

// rename binds a command to the clip variable.
func rename(cmd script.Command, name string) script.Command {
	switch cmd.Kind {
	case script.KindComment, script.KindGeneric, script.KindLoadPlugin, script.KindResize:
		return cmd
	case script.KindIndexedSource:
		return script.Command{Kind: cmd.Kind, Text: name + "=" + cmd.Text}
	case script.KindDeinterlace:
		open := strings.Index(cmd.Text, "(")
		if open < 0 {
			return script.Command{Kind: cmd.Kind, Text: name + "=" + cmd.Text}
		}
		arg := name
		if !strings.HasPrefix(strings.TrimSpace(cmd.Text[open+1:]), ")") {
			arg += ","
		}
		return script.Command{Kind: cmd.Kind, Text: name + "=" + cmd.Text[:open+1] + arg + cmd.Text[open+1:]}
	default:
		return script.Command{Kind: cmd.Kind, Text: name + "=" + name + "." + cmd.Text}
	}
}
