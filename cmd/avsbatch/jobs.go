package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/five82/avsbatch/internal/config"
	"github.com/five82/avsbatch/internal/discovery"
	"github.com/five82/avsbatch/internal/util"
)

// jobFlags describes an ad hoc job given on the command line.
type jobFlags struct {
	inputs    []string
	name      string
	outputDir string
	target    string
	sar       string
	preset    string
}

func (f *jobFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringArrayVarP(&f.inputs, "input", "i", nil, "Input script or directory of scripts (repeatable, joined in order)")
	fs.StringVar(&f.name, "name", "", "Job name (default: first input's file name)")
	fs.StringVarP(&f.outputDir, "output", "o", "", "Output directory (default: first input's directory)")
	fs.StringVar(&f.target, "target", "", "Output size as WxH (default: most common input size)")
	fs.StringVar(&f.sar, "sar", "", "Sample aspect ratio, such as 16:15")
	fs.StringVar(&f.preset, "preset", "", "Encoder preset")
}

// apply sets the configured defaults the flags override.
func (f *jobFlags) apply(cfg *config.Config) {
	if f.sar != "" {
		cfg.SAR = f.sar
	}
	if f.preset != "" {
		cfg.ActivePreset = f.preset
	}
}

// collectSpecs loads the jobs of every job file in args, followed by the ad
// hoc job described by the flags. Directories given with -i expand to the
// scripts they contain.
func collectSpecs(args []string, f *jobFlags, logger discovery.DiscoveryLogger) ([]config.JobSpec, error) {
	var specs []config.JobSpec
	for _, path := range args {
		loaded, err := config.LoadJobFile(path)
		if err != nil {
			return nil, err
		}
		specs = append(specs, loaded...)
	}

	if len(f.inputs) == 0 {
		if f.name != "" || f.target != "" {
			return nil, fmt.Errorf("--name and --target need at least one -i input")
		}
		return specs, nil
	}

	var inputs []string
	for _, in := range f.inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return nil, fmt.Errorf("invalid input path: %w", err)
		}
		if !util.DirectoryExists(abs) {
			inputs = append(inputs, abs)
			continue
		}
		found, err := discovery.FindScriptsWithLogging(abs, logger)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, found.Files...)
	}

	spec := config.JobSpec{
		Name:      f.name,
		Inputs:    inputs,
		OutputDir: f.outputDir,
		Target:    f.target,
	}
	if spec.Name == "" {
		spec.Name = util.GetFileStem(inputs[0])
	}
	if spec.OutputDir == "" {
		spec.OutputDir = filepath.Dir(inputs[0])
	} else if abs, err := filepath.Abs(spec.OutputDir); err == nil {
		spec.OutputDir = abs
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return append(specs, spec), nil
}

// baseDir picks the directory run logs default to.
func baseDir(args []string, f *jobFlags, watchDir string) string {
	switch {
	case f.outputDir != "":
		return f.outputDir
	case len(f.inputs) > 0:
		if util.DirectoryExists(f.inputs[0]) {
			return f.inputs[0]
		}
		return filepath.Dir(f.inputs[0])
	case len(args) > 0:
		return filepath.Dir(args[0])
	case watchDir != "":
		return watchDir
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}
