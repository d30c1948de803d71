package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/five82/avsbatch/internal/config"
	"github.com/five82/avsbatch/internal/processing"
	"github.com/five82/avsbatch/internal/script"
	"github.com/five82/avsbatch/internal/util"
)

func newPlanCmd(global *globalOptions) *cobra.Command {
	var (
		job     jobFlags
		workers int
		scripts bool
	)

	cmd := &cobra.Command{
		Use:   "plan [job.yaml ...]",
		Short: "Show how jobs would be split into segments without encoding",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				cfg.Parallelism = workers
			}
			job.apply(cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if len(args) == 0 && len(job.inputs) == 0 {
				return fmt.Errorf("nothing to plan: pass job files or -i inputs")
			}

			specs, err := collectSpecs(args, &job, nil)
			if err != nil {
				return err
			}
			parser := script.NewParser(nil)
			for _, spec := range specs {
				if err := printPlan(cmd.OutOrStdout(), spec, cfg, parser, scripts); err != nil {
					return fmt.Errorf("job %s: %w", spec.Name, err)
				}
			}
			return nil
		},
	}

	job.register(cmd)
	cmd.Flags().IntVar(&workers, "workers", 0, "Parallel encoders per job (0: one per logical CPU)")
	cmd.Flags().BoolVar(&scripts, "scripts", false, "Print each segment's script")
	return cmd
}

// printPlan parses the job's inputs and prints its segments. Nothing is
// written to disk.
func printPlan(w io.Writer, spec config.JobSpec, cfg *config.Config, parser *script.Parser, scripts bool) error {
	job, err := processing.NewJob(spec, cfg, parser)
	if err != nil {
		return err
	}
	target := script.SelectTargetDimension(job.Clips, job.Target)
	segments, err := job.Builder(cfg).Plan(job.Clips, target)
	if err != nil {
		return err
	}

	heading := color.New(color.FgCyan, color.Bold)
	_, _ = heading.Fprintf(w, "JOB %s\n", job.Name)
	_, _ = fmt.Fprintf(w, "  Frames: %s, target %s, preset %s, SAR %s\n",
		util.FormatFrames(job.Frames()), target, job.Preset.Name, job.SAR)
	for _, clip := range job.Clips {
		_, _ = fmt.Fprintf(w, "  Input: %s (%s, frames %d-%d)\n", clip.Path, clip.Dimension, clip.Start, clip.End)
	}
	for _, seg := range segments {
		_, _ = fmt.Fprintf(w, "  Segment %d: %s frames -> %s\n", seg.Ordinal, util.FormatFrames(seg.FrameCount), seg.OutputPath)
		if scripts {
			for _, line := range strings.Split(strings.TrimRight(seg.Script(), "\n"), "\n") {
				_, _ = fmt.Fprintf(w, "    %s\n", line)
			}
		}
	}
	return nil
}
