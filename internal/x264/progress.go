// Package x264 builds and runs x264 segment encodes and parses their status output.
package x264

import (
	"strconv"
	"strings"
)

// Progress is the encoder status parsed from one output line.
type Progress struct {
	FramesDone int64
	FPS        float64
}

// ParseProgressLine parses the two status line shapes x264 prints:
//
//	[12.5%] 120/960 frames, 23.45 fps, 1800.12 kb/s, eta 0:00:35
//	encoded 960 frames, 24.01 fps, 1799.80 kb/s
//
// The final summary line contributes no fps since the encoder has exited.
func ParseProgressLine(line string) (Progress, bool) {
	line = strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(line, "["):
		head, rest, ok := strings.Cut(line, ",")
		if !ok {
			return Progress{}, false
		}
		var done int64 = -1
		for _, field := range strings.Fields(strings.Trim(head, "[]")) {
			before, _, found := strings.Cut(field, "/")
			if !found {
				continue
			}
			n, err := strconv.ParseInt(before, 10, 64)
			if err != nil {
				return Progress{}, false
			}
			done = n
			break
		}
		if done < 0 {
			return Progress{}, false
		}
		fpsField, _, _ := strings.Cut(rest, ",")
		fpsText, _, found := strings.Cut(strings.TrimSpace(fpsField), " fps")
		if !found {
			return Progress{}, false
		}
		fps, err := strconv.ParseFloat(strings.TrimSpace(fpsText), 64)
		if err != nil {
			return Progress{}, false
		}
		return Progress{FramesDone: done, FPS: fps}, true

	case strings.HasPrefix(line, "encoded "):
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return Progress{}, false
		}
		n, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return Progress{}, false
		}
		return Progress{FramesDone: n}, true
	}
	return Progress{}, false
}
