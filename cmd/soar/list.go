package main

import (
	"github.com/spf13/cobra"

	"github.com/soarpm/soar/internal/catalogdb"
)

var listRepo string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every package available in a repository's catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		for _, r := range a.user.Repositories {
			if listRepo != "" && listRepo != r.Name {
				continue
			}
			db, err := catalogdb.Open(globalCtx, r.Name, a.cfg.CatalogDBPath(r.Name))
			if err != nil {
				continue
			}
			resp, err := db.Query().SortBy("pkg_name", catalogdb.Asc).Load(globalCtx)
			db.Close()
			if err != nil {
				continue
			}
			for _, pkg := range resp.Items {
				printRemoteRecord(a.colorW, pkg)
			}
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listRepo, "repo", "", "restrict the listing to one repository")
}
