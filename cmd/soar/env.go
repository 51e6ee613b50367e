package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Print the resolved directory layout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		fmt.Printf("SOAR_ROOT=%s\n", a.cfg.Root)
		fmt.Printf("SOAR_BIN=%s\n", a.cfg.BinDir)
		fmt.Printf("SOAR_DB=%s\n", a.cfg.DBDir)
		fmt.Printf("SOAR_CACHE=%s\n", a.cfg.CacheDir)
		fmt.Printf("SOAR_PACKAGE=%s\n", a.cfg.PackagesDir)
		fmt.Printf("SOAR_REPOSITORIES=%s\n", a.cfg.RepositoriesDir)
		fmt.Printf("DATA_DIR=%s\n", a.cfg.DataDir)
		fmt.Printf("CONFIG_FILE=%s\n", a.cfg.ConfigFile)
		return nil
	},
}
