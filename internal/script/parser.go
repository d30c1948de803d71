package script

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/five82/avsbatch/internal/errors"
	"github.com/five82/avsbatch/internal/index"
)

// directiveMarker identifies editor directives that are not part of the filter chain.
const directiveMarker = "MeGUI"

var indexedSources = []struct {
	call string
	ext  string
}{
	{DGIndexSourceCall, index.DGIExtension},
	{D2VIndexSourceCall, index.D2VExtension},
}

// Parser turns script lines into clips, consulting an index reader for the
// geometry of indexed sources.
type Parser struct {
	index index.Reader
}

// NewParser creates a parser. A nil reader uses index files on disk.
func NewParser(r index.Reader) *Parser {
	if r == nil {
		r = index.FileReader{}
	}
	return &Parser{index: r}
}

// ParseFile reads and parses the script at path.
func (p *Parser) ParseFile(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIOError(fmt.Sprintf("failed to open script %s", path), err)
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewIOError(fmt.Sprintf("failed to read script %s", path), err)
	}
	return p.Parse(path, lines)
}

// Parse classifies the given script lines and builds the clip they describe.
func (p *Parser) Parse(path string, lines []string) (*Clip, error) {
	var (
		commands []Command
		info     *index.Info
	)

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.Contains(line, directiveMarker) {
			continue
		}

		kind := classify(line)
		if kind == KindGeneric {
			if indexPath, ok := indexedSourcePath(line); ok {
				ii, err := p.index.ReadIndexInfo(indexPath)
				if err != nil {
					return nil, errors.WrapParseError(fmt.Sprintf("%s: failed to read index file %s", path, indexPath), err)
				}
				info = &ii
				kind = KindIndexedSource
			}
		}
		commands = append(commands, Command{Kind: kind, Text: line})
	}

	if info == nil {
		return nil, errors.NewParseError(fmt.Sprintf("%s: no indexed source found", path))
	}

	if indexOfKind(commands, KindTrim) < 0 {
		if info.FrameCount < 0 {
			return nil, errors.NewParseError("cannot determine clip dimensions")
		}
		commands = insertCommand(commands, trimInsertPosition(commands), NewTrim(0, info.FrameCount))
	}

	dim, err := croppedDimension(commands, *info)
	if err != nil {
		return nil, errors.WrapParseError(path, err)
	}

	clip, err := NewClip(path, commands, dim)
	if err != nil {
		return nil, errors.WrapParseError(path, err)
	}
	return clip, nil
}

// indexedSourcePath extracts the quoted index path from a supported source call.
func indexedSourcePath(line string) (string, bool) {
	for _, src := range indexedSources {
		i := strings.Index(line, src.call)
		if i < 0 || !strings.Contains(strings.ToLower(line), src.ext) {
			continue
		}
		rest := line[i+len(src.call):]
		end := strings.LastIndex(rest, `"`)
		if end <= 0 {
			continue
		}
		return rest[:end], true
	}
	return "", false
}

// trimInsertPosition places a synthesized Trim directly after the source and
// color setup, but never after the first deinterlace or trim.
func trimInsertPosition(cmds []Command) int {
	lower := max(lastIndexOfKind(cmds, KindIndexedSource), lastIndexOfKind(cmds, KindColorMatrix)) + 1

	upper := -1
	for _, kind := range []Kind{KindDeinterlace, KindTrim} {
		if i := indexOfKind(cmds, kind); i >= 0 && (upper < 0 || i < upper) {
			upper = i
		}
	}
	if upper < 0 {
		return lower
	}
	return max(lower, upper)
}

func insertCommand(cmds []Command, pos int, cmd Command) []Command {
	out := make([]Command, 0, len(cmds)+1)
	out = append(out, cmds[:pos]...)
	out = append(out, cmd)
	return append(out, cmds[pos:]...)
}

func trimBounds(trim Command) (int64, int64, error) {
	args := trim.Args()
	if len(args) < 2 {
		return 0, 0, fmt.Errorf("invalid trim command %q", trim.Text)
	}
	start, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid trim start in %q: %w", trim.Text, err)
	}
	end, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid trim end in %q: %w", trim.Text, err)
	}
	if end < start {
		return 0, 0, fmt.Errorf("trim %q ends before it starts", trim.Text)
	}
	return start, end, nil
}

func croppedDimension(cmds []Command, info index.Info) (Dimension, error) {
	i := indexOfKind(cmds, KindCrop)
	if i < 0 {
		return Dimension{}, fmt.Errorf("cannot determine clip dimensions: no crop command")
	}
	args := cmds[i].Args()
	if len(args) < 4 {
		return Dimension{}, fmt.Errorf("crop command %q needs four arguments", cmds[i].Text)
	}
	var margins [4]int
	for j := range margins {
		n, err := strconv.Atoi(args[j])
		if err != nil {
			return Dimension{}, fmt.Errorf("invalid crop argument %q: %w", args[j], err)
		}
		margins[j] = abs(n)
	}
	dim := Dimension{
		Width:  info.Width - (margins[0] + margins[2]),
		Height: info.Height - (margins[1] + margins[3]),
	}
	if dim.Width <= 0 || dim.Height <= 0 {
		return Dimension{}, fmt.Errorf("crop %q leaves no picture of %dx%d", cmds[i].Text, info.Width, info.Height)
	}
	return dim, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
