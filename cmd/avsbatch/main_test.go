package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// writeTitle writes a six frame D2V index and a script loading it.
func writeTitle(t *testing.T, dir, name string) string {
	t.Helper()
	d2v := filepath.Join(dir, name+".d2v")
	index := "Picture_Size=720x480\nField_Operation=0\n\n7 1 0 0 0 1 1 20 20 20 20 20 20\n"
	if err := os.WriteFile(d2v, []byte(index), 0o644); err != nil {
		t.Fatal(err)
	}
	avs := filepath.Join(dir, name+".avs")
	body := fmt.Sprintf("DGDecode_mpeg2source(\"%s\")\ncrop(0,0,0,0)\n", d2v)
	if err := os.WriteFile(avs, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return avs
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "avsbatch.yaml")
	body := "active_preset: film\npresets:\n  - name: film\n    args: --crf 18 --tune film\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "avsbatch version "+appVersion+"\n" {
		t.Errorf("output = %q", out)
	}
}

func TestPresetsCommand(t *testing.T) {
	cfgPath := writeConfig(t, t.TempDir())
	out, err := execute(t, "presets", "--config", cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.HasPrefix(lines[0], "  Default: --level 4.1") {
		t.Errorf("default line = %q", lines[0])
	}
	if lines[1] != "* film: --crf 18 --tune film" {
		t.Errorf("film line = %q", lines[1])
	}
}

func TestPlanCommand(t *testing.T) {
	dir := t.TempDir()
	first, second := writeTitle(t, dir, "a"), writeTitle(t, dir, "b")

	out, err := execute(t, "plan", "--config", writeConfig(t, dir),
		"-i", first, "-i", second, "--name", "movie", "--workers", "2", "--scripts")
	if err != nil {
		t.Fatalf("plan error = %v\n%s", err, out)
	}

	for _, want := range []string{
		"JOB movie",
		"Frames: 10, target 720x480, preset film, SAR 16:15",
		"Segment 0: 5 frames -> " + filepath.Join(dir, "movie_seg_0.264"),
		"Segment 1: 5 frames -> " + filepath.Join(dir, "movie_seg_1.264"),
		"return clip_0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "movie_seg_0.avs")); !os.IsNotExist(err) {
		t.Error("plan must not write segment scripts")
	}
}

func TestRunNeedsWork(t *testing.T) {
	_, err := execute(t, "run", "--config", writeConfig(t, t.TempDir()), "--no-log")
	if err == nil || !strings.Contains(err.Error(), "nothing to encode") {
		t.Errorf("error = %v", err)
	}
}

func TestCollectSpecs(t *testing.T) {
	dir := t.TempDir()
	first := writeTitle(t, dir, "first")
	writeTitle(t, filepath.Join(dir), "second")

	jobFile := filepath.Join(dir, "jobs.yaml")
	if err := os.WriteFile(jobFile, []byte("jobs:\n  - inputs: [second.avs]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := &jobFlags{inputs: []string{first}}
	specs, err := collectSpecs([]string{jobFile}, f, nil)
	if err != nil {
		t.Fatalf("collectSpecs() error = %v", err)
	}

	var got []string
	for _, s := range specs {
		got = append(got, s.Name+"@"+s.OutputDir)
	}
	want := []string{"second@" + dir, "first@" + dir}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("specs mismatch (-want +got):\n%s", diff)
	}
}

func TestCollectSpecsExpandsDirectories(t *testing.T) {
	dir := t.TempDir()
	writeTitle(t, dir, "b")
	writeTitle(t, dir, "a")

	specs, err := collectSpecs(nil, &jobFlags{inputs: []string{dir}, name: "disc"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "a.avs"), filepath.Join(dir, "b.avs")}
	if diff := cmp.Diff(want, specs[0].Inputs); diff != "" {
		t.Errorf("inputs mismatch (-want +got):\n%s", diff)
	}

	if _, err := collectSpecs(nil, &jobFlags{name: "orphan"}, nil); err == nil {
		t.Error("expected error for --name without inputs")
	}
}
