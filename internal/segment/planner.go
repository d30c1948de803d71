// Package segment divides a job's clips into frame-accurate segments and
// assembles one executable script per segment.
package segment

import (
	"fmt"

	"github.com/five82/avsbatch/internal/script"
)

// Slice is the inclusive frame range [Start, End] of one clip inside a segment.
type Slice struct {
	Clip  *script.Clip
	Start int64
	End   int64
}

// FrameCount returns the number of source frames in the slice.
func (s Slice) FrameCount() int64 {
	return s.End - s.Start + 1
}

// OutputFrames returns the frames the slice yields once filtered.
func (s Slice) OutputFrames() int64 {
	if s.Clip.UsesDeinterlace {
		return s.FrameCount() * 2
	}
	return s.FrameCount()
}

// TotalFrames sums the source frame counts of clips.
func TotalFrames(clips []*script.Clip) int64 {
	var total int64
	for _, c := range clips {
		total += c.FrameCount()
	}
	return total
}

// Plan walks the clips in order and cuts their combined frame range into at
// most parallelism segments of ceil(total/parallelism) frames. A segment may
// span several clips and a clip may be split across segments. The last
// segment absorbs any rounding shortfall.
func Plan(clips []*script.Clip, parallelism int) ([][]Slice, error) {
	if parallelism < 1 {
		return nil, fmt.Errorf("parallelism must be at least 1, got %d", parallelism)
	}
	total := TotalFrames(clips)
	if total <= 0 {
		return nil, fmt.Errorf("no frames to plan")
	}

	p := int64(parallelism)
	segmentLength := (total + p - 1) / p

	var (
		segments   [][]Slice
		current    []Slice
		clipOffset int64 // frames consumed within the current clip
		segOffset  int64 // frames consumed within the current segment
		frame      int64 // frames emitted overall
	)

	for ci := 0; ci < len(clips); {
		clip := clips[ci]
		clipPos := clip.Start + clipOffset
		clipRemaining := clip.End - clipPos + 1
		segRemaining := segmentLength - segOffset

		switch {
		case segRemaining >= clipRemaining && frame+clipRemaining >= total:
			n := total - frame
			current = append(current, Slice{Clip: clip, Start: clipPos, End: clipPos + n - 1})
			return append(segments, current), nil

		case clipRemaining >= segRemaining:
			current = append(current, Slice{Clip: clip, Start: clipPos, End: clipPos + segRemaining - 1})
			segments = append(segments, current)
			current = nil
			frame += segRemaining
			if segRemaining == clipRemaining {
				ci++
				clipOffset = 0
			} else {
				clipOffset += segRemaining
			}
			segOffset = 0

		default:
			current = append(current, Slice{Clip: clip, Start: clipPos, End: clip.End})
			segOffset += clipRemaining
			frame += clipRemaining
			ci++
			clipOffset = 0
		}
	}

	if len(current) > 0 {
		segments = append(segments, current)
	}
	return segments, nil
}
