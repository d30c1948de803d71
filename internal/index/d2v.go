package index

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

const (
	d2vResolutionKey     = "Picture_Size="
	d2vFieldOperationKey = "Field_Operation="
)

func readD2V(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to open index file: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := parseD2V(f)
	if err != nil {
		return Info{}, fmt.Errorf("%s: %w", path, err)
	}
	return info, nil
}

// parseD2V estimates the frame count by summing the fields described by
// each frame flag in the data block.
func parseD2V(r io.Reader) (Info, error) {
	width, height := -1, -1
	fieldOperation := -1
	var fields int64
	processing := false

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, d2vResolutionKey):
			w, h, err := parseSize(strings.TrimPrefix(line, d2vResolutionKey))
			if err != nil {
				return Info{}, err
			}
			width, height = w, h
		case strings.HasPrefix(line, d2vFieldOperationKey):
			op, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, d2vFieldOperationKey)))
			if err != nil {
				return Info{}, fmt.Errorf("invalid field operation %q: %w", line, err)
			}
			fieldOperation = op
		case strings.TrimSpace(line) == "":
			// The data block starts at the first blank line after the header.
			if fieldOperation != -1 {
				processing = true
			}
		case processing:
			tokens := strings.Split(line, " ")
			if len(tokens) > 4 {
				fields += countFields(tokens[4:])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return Info{}, fmt.Errorf("failed to read index file: %w", err)
	}
	if width < 0 || height < 0 {
		return Info{}, fmt.Errorf("missing %s entry", strings.TrimSuffix(d2vResolutionKey, "="))
	}

	frames := int64(math.Ceil(float64(fields) / 2))
	if fieldOperation == 1 {
		frames = int64(float64(frames) * 0.8)
	}
	return Info{Width: width, Height: height, FrameCount: frames - 2}, nil
}

func countFields(flags []string) int64 {
	var fields int64
	for _, flag := range flags {
		if len(flag) < 2 {
			continue
		}
		if strings.ContainsAny(flag, "02") {
			fields += 2
		} else if strings.ContainsAny(flag, "13") {
			fields += 3
		}
	}
	return fields
}

func parseSize(s string) (int, int, error) {
	w, h, ok := strings.Cut(strings.TrimSpace(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid picture size %q", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid picture width %q: %w", w, err)
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid picture height %q: %w", h, err)
	}
	return width, height, nil
}
