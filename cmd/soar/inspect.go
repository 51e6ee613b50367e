package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soarpm/soar/internal/ledger"
)

var inspectCmd = &cobra.Command{
	Use:     "inspect package",
	Aliases: []string{"log"},
	Short:   "Print the ledger record for one installed package",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		resp, err := a.ledger.Query().WhereAnd("pkg_name", ledger.Eq(args[0])).Load(globalCtx)
		if err != nil {
			return err
		}
		if len(resp.Items) == 0 {
			fmt.Fprintln(os.Stderr, a.colorW.Error(fmt.Sprintf("%s is not installed", args[0])))
			exitWithCode(ExitFailure)
		}
		for _, row := range resp.Items {
			printInstalledRecord(a.colorW, row)
			fmt.Printf("  bin_path=%s icon_path=%s desktop_path=%s checksum=%s\n",
				row.BinPath, row.IconPath, row.DesktopPath, row.Checksum)
		}
		return nil
	},
}
