package index

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const dgiResolutionKey = "SIZ"

func readDGI(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to open index file: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := parseDGI(f)
	if err != nil {
		return Info{}, fmt.Errorf("%s: %w", path, err)
	}
	return info, nil
}

// parseDGI reads the coded size line. DGI files carry no usable frame
// count, so scripts built on them need an explicit Trim.
func parseDGI(r io.Reader) (Info, error) {
	width, height := -1, -1

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, dgiResolutionKey) || !strings.Contains(line, "x") {
			continue
		}
		var nums []int
		for _, tok := range strings.FieldsFunc(line, func(r rune) bool { return r == ' ' || r == 'x' }) {
			if n, err := strconv.Atoi(tok); err == nil {
				nums = append(nums, n)
			}
		}
		if len(nums) < 2 {
			return Info{}, fmt.Errorf("invalid size line %q", line)
		}
		width, height = nums[0], nums[1]
	}
	if err := scanner.Err(); err != nil {
		return Info{}, fmt.Errorf("failed to read index file: %w", err)
	}
	if width < 0 || height < 0 {
		return Info{}, fmt.Errorf("missing %s entry", dgiResolutionKey)
	}
	return Info{Width: width, Height: height, FrameCount: UnknownFrameCount}, nil
}
