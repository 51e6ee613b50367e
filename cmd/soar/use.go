package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soarpm/soar/internal/errs"
	"github.com/soarpm/soar/internal/ledger"
)

var useCmd = &cobra.Command{
	Use:   "use package",
	Short: "Re-point the launcher symlink at a specific installed package",
	Args:  cobra.ExactArgs(1),
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
			return errs.New(errs.NotFound, args[0], "package is not installed")
		}

		id := resp.Items[0].Identity
		if err := a.driver.Use(globalCtx, id); err != nil {
			return err
		}
		fmt.Println(a.colorW.Success(fmt.Sprintf("%s now points at this install", args[0])))
		return nil
	},
}
