package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// JobSpec describes one job in a job file.
type JobSpec struct {
	Name      string   `yaml:"name"`
	Inputs    []string `yaml:"inputs"`
	OutputDir string   `yaml:"output_dir"`
	SAR       string   `yaml:"sar"`
	Preset    string   `yaml:"preset"`
	Cleanup   *bool    `yaml:"cleanup"`
	Target    string   `yaml:"target"` // Optional WxH output size
}

// JobFile is the top level of a job file.
type JobFile struct {
	Jobs []JobSpec `yaml:"jobs"`
}

// LoadJobFile reads the jobs defined in a YAML job file. Relative input and
// output paths are resolved against the job file's directory; a missing
// output directory defaults to it and a missing name to the first input's
// file name.
func LoadJobFile(path string) ([]JobSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}

	var file JobFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse job file %s: %w", path, err)
	}
	if len(file.Jobs) == 0 {
		return nil, fmt.Errorf("%w: %s defines no jobs", ErrInvalidJob, path)
	}

	base := filepath.Dir(path)
	for i := range file.Jobs {
		job := &file.Jobs[i]
		for j, in := range job.Inputs {
			job.Inputs[j] = resolve(base, in)
		}
		if job.OutputDir == "" {
			job.OutputDir = base
		} else {
			job.OutputDir = resolve(base, job.OutputDir)
		}
		if job.Name == "" && len(job.Inputs) > 0 {
			stem := filepath.Base(job.Inputs[0])
			job.Name = strings.TrimSuffix(stem, filepath.Ext(stem))
		}
		if err := job.Validate(); err != nil {
			return nil, fmt.Errorf("%s: job %d: %w", path, i+1, err)
		}
	}
	return file.Jobs, nil
}

// Validate checks that the job can be queued.
func (j JobSpec) Validate() error {
	if j.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidJob)
	}
	if strings.ContainsAny(j.Name, `/\`) {
		return fmt.Errorf("%w: name %q must not contain path separators", ErrInvalidJob, j.Name)
	}
	if len(j.Inputs) == 0 {
		return fmt.Errorf("%w: %s has no inputs", ErrInvalidJob, j.Name)
	}
	if j.SAR != "" {
		if err := ValidateSAR(j.SAR); err != nil {
			return err
		}
	}
	return nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
