package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPresetsCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List encoder presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			active, err := cfg.Preset("")
			if err != nil {
				return err
			}
			for _, p := range cfg.AllPresets() {
				marker := " "
				if p.Name == active.Name {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", marker, p.Name, p.Args)
			}
			return nil
		},
	}
}
