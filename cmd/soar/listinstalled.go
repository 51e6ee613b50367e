package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soarpm/soar/internal/ledger"
)

var listInstalledRepo string

var listInstalledCmd = &cobra.Command{
	Use:   "list-installed",
	Short: "List locally installed packages with an installed/broken/total accounting",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		resp, err := a.ledger.Query().SortBy("pkg_name", ledger.Asc).Load(globalCtx)
		if err != nil {
			return err
		}

		var (
			installedCount, brokenCount     int
			installedSize, brokenSize int64
		)
		for _, row := range resp.Items {
			if listInstalledRepo != "" && listInstalledRepo != row.RepoName {
				continue
			}
			printInstalledRecord(a.colorW, row)

			// A row the ledger still calls active but whose install
			// directory is gone on disk is broken: something removed the
			// files out from under soar's bookkeeping.
			if _, err := os.Stat(row.InstalledPath); err != nil {
				brokenCount++
				brokenSize += row.Size
				continue
			}
			installedCount++
			installedSize += row.Size
		}

		fmt.Printf("Installed: %d (%s)\n", installedCount, formatSize(installedSize))
		fmt.Printf("Broken: %d (%s)\n", brokenCount, formatSize(brokenSize))
		fmt.Printf("Total: %d (%s)\n", installedCount+brokenCount, formatSize(installedSize+brokenSize))
		return nil
	},
}

func init() {
	listInstalledCmd.Flags().StringVar(&listInstalledRepo, "repo", "", "restrict the listing to one repository")
}
