package main

import (
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"

	"github.com/soarpm/soar/internal/lifecycle"
)

var updateForce bool

var updateCmd = &cobra.Command{
	Use:   "update [packages...]",
	Short: "Update installed packages to their latest catalog version",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		resolver, closeCatalogs, err := a.openCatalogs(globalCtx)
		if err != nil {
			return err
		}
		defer closeCatalogs()

		installed, err := a.ledger.Query().Load(globalCtx)
		if err != nil {
			return err
		}
		installedVersion := make(map[string]string, len(installed.Items))
		for _, row := range installed.Items {
			installedVersion[row.PkgName] = row.Version
		}

		names := args
		if len(names) == 0 {
			for _, row := range installed.Items {
				names = append(names, row.PkgName)
			}
		}

		failed := false
		for _, raw := range names {
			pkg, err := resolver.Resolve(globalCtx, raw, true, nil)
			if err != nil {
				fmt.Fprintf(os.Stderr, "soar: %s: %v\n", raw, err)
				failed = true
				continue
			}

			if cur, ok := installedVersion[pkg.PkgName]; ok && !updateForce {
				if newer, err := versionIsNewer(pkg.Version, cur); err == nil && !newer {
					fmt.Println(a.colorW.Success(fmt.Sprintf("%s is already up to date (%s)", pkg.PkgName, cur)))
					continue
				}
			}

			result, err := a.driver.Update(globalCtx, lifecycle.Target{Pkg: pkg}, nil)
			if err != nil {
				fmt.Fprintln(os.Stderr, a.colorW.Error(fmt.Sprintf("%s: %v", raw, err)))
				failed = true
				continue
			}
			fmt.Println(a.colorW.Success(fmt.Sprintf("%s is at %s", pkg.PkgName, result.Version)))
		}

		if failed {
			exitWithCode(ExitFailure)
		}
		return nil
	},
}

func init() {
	updateCmd.Flags().BoolVar(&updateForce, "force", false, "update even if the catalog version is not newer")
}

// versionIsNewer reports whether candidate is a greater semver than current.
// Catalog and ledger versions aren't guaranteed to be valid semver (AppImage
// authors tag releases all kinds of ways), so a parse failure on either side
// is treated as "can't tell" and the caller falls back to updating anyway.
func versionIsNewer(candidate, current string) (bool, error) {
	c, err := semver.NewVersion(candidate)
	if err != nil {
		return false, err
	}
	cur, err := semver.NewVersion(current)
	if err != nil {
		return false, err
	}
	return c.GreaterThan(cur), nil
}
