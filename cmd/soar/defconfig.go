package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soarpm/soar/internal/userconfig"
)

var defConfigCmd = &cobra.Command{
	Use:   "def-config",
	Short: "Write a default config.json if one does not already exist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if _, err := os.Stat(a.cfg.ConfigFile); err == nil {
			fmt.Fprintln(os.Stderr, a.colorW.Error(a.cfg.ConfigFile+" already exists"))
			exitWithCode(ExitFailure)
		}

		if err := userconfig.DefaultConfig().Save(a.cfg); err != nil {
			return err
		}
		fmt.Println(a.colorW.Success("wrote " + a.cfg.ConfigFile))
		return nil
	},
}
