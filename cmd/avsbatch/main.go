// Package main provides the CLI entry point for avsbatch.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/five82/avsbatch/internal/config"
	"github.com/five82/avsbatch/internal/logging"
)

const (
	appName    = "avsbatch"
	appVersion = "0.1.0"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalOptions holds the flags shared by every command.
type globalOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           appName,
		Short:         "Batch encode AviSynth scripts with parallel x264 segments",
		Long:          "avsbatch joins AviSynth scripts into jobs, encodes each job as parallel x264 segments and merges them with mkvmerge.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				logging.Init(logging.LevelDebug, os.Stderr)
			}
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default: search standard locations)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output")

	root.AddCommand(
		newRunCmd(opts),
		newPlanCmd(opts),
		newPresetsCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, appVersion)
		},
	}
}

// loadConfig reads the config file and validates the result.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, path, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if path != "" {
		logging.Debug("loaded config file", "path", path)
	}
	return cfg, nil
}
