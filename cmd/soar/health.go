package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soarpm/soar/internal/maintenance"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Sweep for dangling owned symlinks and clear orphaned staging directories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		report, err := maintenance.Run(globalCtx, a.cfg, a.ledger)
		if err != nil {
			return err
		}

		for _, s := range report.DanglingSymlinks {
			fmt.Println(a.colorW.Success("removed dangling symlink " + s))
		}
		for _, s := range report.StagingCleared {
			fmt.Println(a.colorW.Success("cleared orphaned staging directory " + s))
		}
		if report.StagedDropped > 0 {
			fmt.Printf("dropped %d orphaned staged ledger row(s)\n", report.StagedDropped)
		}
		if len(report.DanglingSymlinks) == 0 && len(report.StagingCleared) == 0 && report.StagedDropped == 0 {
			fmt.Println(a.colorW.Success("everything is clean"))
		}
		return nil
	},
}
