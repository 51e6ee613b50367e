package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soarpm/soar/internal/errs"
	"github.com/soarpm/soar/internal/ledger"
	"github.com/soarpm/soar/internal/model"
)

var removeExact bool

var removeCmd = &cobra.Command{
	Use:     "remove packages...",
	Aliases: []string{"uninstall"},
	Short:   "Remove one or more installed packages",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		failed := false
		for _, raw := range args {
			id, err := identityFromArg(a, raw)
			if err != nil {
				fmt.Fprintf(os.Stderr, "soar: %s: %v\n", raw, err)
				failed = true
				continue
			}
			if err := a.driver.Remove(globalCtx, id); err != nil {
				fmt.Fprintln(os.Stderr, a.colorW.Error(fmt.Sprintf("%s: %v", raw, err)))
				failed = true
				continue
			}
			fmt.Println(a.colorW.Success(fmt.Sprintf("%s removed", raw)))
		}

		if failed {
			exitWithCode(ExitFailure)
		}
		return nil
	},
}

func init() {
	removeCmd.Flags().BoolVar(&removeExact, "exact", false, "when several installed packages share the pkg_name, remove the first match")
}

// identityFromArg resolves a package argument against the ledger directly:
// remove operates on what is already installed, never the remote catalog,
// so it only needs a pkg_name match against the active rows.
func identityFromArg(a *app, raw string) (model.Identity, error) {
	resp, err := a.ledger.Query().WhereAnd("pkg_name", ledger.Eq(raw)).Load(globalCtx)
	if err != nil {
		return model.Identity{}, err
	}
	switch len(resp.Items) {
	case 0:
		return model.Identity{}, errs.New(errs.NotFound, raw, "package is not installed")
	case 1:
		return resp.Items[0].Identity, nil
	default:
		if removeExact {
			return resp.Items[0].Identity, nil
		}
		return model.Identity{}, errs.New(errs.Ambiguous, raw, "multiple installed packages share this name; pass --exact or a more specific name")
	}
}
