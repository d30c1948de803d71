// Package index reads clip geometry and frame counts from DGIndex (.d2v)
// and DGIndexNV (.dgi) sidecar files.
package index

import (
	"fmt"
	"path/filepath"
	"strings"
)

// UnknownFrameCount is reported when an index does not carry a frame count.
const UnknownFrameCount int64 = -1

// Extensions of the supported index formats.
const (
	D2VExtension = ".d2v"
	DGIExtension = ".dgi"
)

// Info is the clip information recovered from an index file.
type Info struct {
	Width      int
	Height     int
	FrameCount int64 // UnknownFrameCount when the format does not record it
}

// Reader resolves index file paths to clip information.
type Reader interface {
	ReadIndexInfo(path string) (Info, error)
}

// FileReader reads index files from the local filesystem.
type FileReader struct{}

// ReadIndexInfo implements Reader.
func (FileReader) ReadIndexInfo(path string) (Info, error) {
	return ReadIndexInfo(path)
}

// ReadIndexInfo parses the index file at path, selecting the format by extension.
func ReadIndexInfo(path string) (Info, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case D2VExtension:
		return readD2V(path)
	case DGIExtension:
		return readDGI(path)
	default:
		return Info{}, fmt.Errorf("unsupported index file %s", path)
	}
}
