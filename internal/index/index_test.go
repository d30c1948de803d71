package index

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const d2vHeader = `DGIndexProjectFile16
1
C:\capture\title.vob

Stream_Type=1
MPEG_Type=2
Picture_Size=720x480
Field_Operation=%OP%
Frame_Rate=29970 (30000/1001)
Location=0,0,0,3f2

`

func d2vFixture(op string, data ...string) string {
	return strings.Replace(d2vHeader, "%OP%", op, 1) + strings.Join(data, "\n") + "\n\nFINISHED  100.00% VIDEO\n"
}

func TestParseD2V(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantFrames int64
	}{
		{
			name: "progressive and pulldown flags",
			input: d2vFixture("0",
				"7 1 0 2048 0 1 1 20 20 20 20",
				"7 1 0 4096 0 1 1 31 31"),
			// 8 + 6 fields = 7 frames, minus 2
			wantFrames: 5,
		},
		{
			name: "forced film scales by 0.8",
			input: d2vFixture("1",
				"7 1 0 2048 0 1 1 20 20 20 20",
				"7 1 0 4096 0 1 1 31 31"),
			wantFrames: 3,
		},
		{
			name:       "odd field count rounds up",
			input:      d2vFixture("0", "7 1 0 0 0 1 1 31"),
			wantFrames: 0,
		},
		{
			name:       "single character flags are ignored",
			input:      d2vFixture("0", "7 1 0 0 0 1 1 2 2 20 20"),
			wantFrames: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := parseD2V(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("parseD2V() error = %v", err)
			}
			if info.Width != 720 || info.Height != 480 {
				t.Errorf("size = %dx%d, want 720x480", info.Width, info.Height)
			}
			if info.FrameCount != tt.wantFrames {
				t.Errorf("FrameCount = %d, want %d", info.FrameCount, tt.wantFrames)
			}
		})
	}
}

func TestParseD2VMissingSize(t *testing.T) {
	_, err := parseD2V(strings.NewReader("Field_Operation=0\n\n7 1 0 0 0 1 1 20 20\n"))
	if err == nil {
		t.Fatal("expected error for missing picture size")
	}
}

func TestParseDGI(t *testing.T) {
	tests := []struct {
		name  string
		input string
		w, h  int
	}{
		{"spaced", "DGAVCIndexFileNV16\n\nSIZ 1920 x 1080\nCROP 0 0 0 0\n", 1920, 1080},
		{"compact", "SIZ 1280x720\n", 1280, 720},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := parseDGI(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("parseDGI() error = %v", err)
			}
			if info.Width != tt.w || info.Height != tt.h {
				t.Errorf("size = %dx%d, want %dx%d", info.Width, info.Height, tt.w, tt.h)
			}
			if info.FrameCount != UnknownFrameCount {
				t.Errorf("FrameCount = %d, want %d", info.FrameCount, UnknownFrameCount)
			}
		})
	}
}

func TestReadIndexInfoDispatch(t *testing.T) {
	dir := t.TempDir()

	d2v := filepath.Join(dir, "movie.D2V")
	if err := os.WriteFile(d2v, []byte(d2vFixture("0", "7 1 0 2048 0 1 1 20 20 20 20 20 20")), 0o644); err != nil {
		t.Fatal(err)
	}
	dgi := filepath.Join(dir, "movie.dgi")
	if err := os.WriteFile(dgi, []byte("SIZ 1920 x 1080\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := FileReader{}.ReadIndexInfo(d2v)
	if err != nil {
		t.Fatalf("ReadIndexInfo(d2v) error = %v", err)
	}
	if info.FrameCount != 4 {
		t.Errorf("d2v FrameCount = %d, want 4", info.FrameCount)
	}

	info, err = ReadIndexInfo(dgi)
	if err != nil {
		t.Fatalf("ReadIndexInfo(dgi) error = %v", err)
	}
	if info.Width != 1920 {
		t.Errorf("dgi Width = %d, want 1920", info.Width)
	}

	if _, err := ReadIndexInfo(filepath.Join(dir, "movie.ffindex")); err == nil {
		t.Error("expected error for unsupported extension")
	}
	if _, err := ReadIndexInfo(filepath.Join(dir, "absent.d2v")); err == nil {
		t.Error("expected error for missing file")
	}
}
