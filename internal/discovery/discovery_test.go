package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/five82/avsbatch/internal/errors"
)

type recordingLogger struct {
	infos, debugs []string
}

func (l *recordingLogger) Info(format string, args ...any) {
	l.infos = append(l.infos, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Debug(format string, args ...any) {
	l.debugs = append(l.debugs, fmt.Sprintf(format, args...))
}

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestFindScripts(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "b.avs", "A.avs", ".hidden.avs", "movie.d2v", "jobs.yaml")
	if err := os.Mkdir(filepath.Join(dir, "sub.avs"), 0755); err != nil {
		t.Fatal(err)
	}

	log := &recordingLogger{}
	result, err := FindScriptsWithLogging(dir, log)
	if err != nil {
		t.Fatalf("FindScriptsWithLogging() error = %v", err)
	}

	want := []string{filepath.Join(dir, "A.avs"), filepath.Join(dir, "b.avs")}
	if diff := cmp.Diff(want, result.Files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
	if result.SkippedCount != 2 {
		t.Errorf("SkippedCount = %d, want 2", result.SkippedCount)
	}
	if len(log.infos) != 1 || log.infos[0] != "Found 2 script(s)" {
		t.Errorf("info log = %v", log.infos)
	}
}

func TestFindScriptsEmpty(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "notes.txt")

	_, err := FindScripts(dir)
	if !errors.IsKind(err, errors.KindNoFilesFound) {
		t.Errorf("FindScripts() error = %v, want no files found", err)
	}
	if _, err := FindScripts(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestFindJobFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "b.yml", "a.yaml", ".tmp.yaml", "a.avs")

	files, err := FindJobFiles(dir)
	if err != nil {
		t.Fatalf("FindJobFiles() error = %v", err)
	}
	want := []string{filepath.Join(dir, "a.yaml"), filepath.Join(dir, "b.yml")}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}

	empty, err := FindJobFiles(t.TempDir())
	if err != nil || len(empty) != 0 {
		t.Errorf("empty dir = %v, %v", empty, err)
	}
}
