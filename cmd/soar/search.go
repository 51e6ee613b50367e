package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soarpm/soar/internal/catalogdb"
)

var (
	searchCaseSensitive bool
	searchLimit         int
)

var searchCmd = &cobra.Command{
	Use:   "search query",
	Short: "Search every configured repository's catalog by name substring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		limit := searchLimit
		if limit <= 0 {
			limit = a.user.EffectiveSearchLimit()
		}

		for _, r := range a.user.Repositories {
			db, err := catalogdb.Open(globalCtx, r.Name, a.cfg.CatalogDBPath(r.Name))
			if err != nil {
				continue
			}
			pattern := "%" + args[0] + "%"
			qb := db.Query()
			if searchCaseSensitive {
				qb = qb.WhereOr("pkg_name", catalogdb.Like(pattern))
			} else {
				qb = qb.WhereOr("pkg_name", catalogdb.ILike(pattern))
			}
			resp, err := qb.SortBy("pkg_name", catalogdb.Asc).Limit(limit).Load(globalCtx)
			db.Close()
			if err != nil {
				continue
			}
			for _, pkg := range resp.Items {
				fmt.Printf("%s/%s\t%s\t%s\n", pkg.RepoName, pkg.PkgName, pkg.Version, pkg.Description)
			}
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().BoolVar(&searchCaseSensitive, "case-sensitive", false, "match case-sensitively")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum rows per repository (defaults to config's search_limit)")
}
