package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soarpm/soar/internal/catalogdb"
	"github.com/soarpm/soar/internal/pkgquery"
)

var queryCmd = &cobra.Command{
	Use:   "query string",
	Short: "Print every catalog row matching a query string, one record each",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		q, err := pkgquery.Parse(args[0])
		if err != nil {
			// query never fails the process; an unparsable string just
			// yields zero records (spec.md §6: "0 even if empty").
			return nil
		}

		for _, r := range a.user.Repositories {
			if q.RepoName != "" && q.RepoName != r.Name {
				continue
			}
			db, err := catalogdb.Open(globalCtx, r.Name, a.cfg.CatalogDBPath(r.Name))
			if err != nil {
				continue
			}
			qb := db.Query().WhereAnd("pkg_name", catalogdb.Eq(q.Name))
			if q.Family != "" {
				qb = qb.WhereAnd("pkg", catalogdb.Eq(q.Family))
			}
			if q.PkgID != "" {
				qb = qb.WhereAnd("pkg_id", catalogdb.Eq(q.PkgID))
			}
			resp, err := qb.SortBy("pkg_id", catalogdb.Asc).Load(globalCtx)
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
