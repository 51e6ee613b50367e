package catalogdb

import (
	"database/sql"

	"github.com/soarpm/soar/internal/model"
	"github.com/soarpm/soar/internal/sqlquery"
)

// QueryBuilder composes a single relational query over a catalog's
// packages table (spec.md §4.1). The generic machinery lives in
// internal/sqlquery, shared with the install ledger (C4).
type QueryBuilder = sqlquery.Builder[model.RemotePackage]

// PaginatedResponse is the result of QueryBuilder.Load.
type PaginatedResponse = sqlquery.PaginatedResponse[model.RemotePackage]

// Re-exported condition constructors and sort directions, so callers only
// need to import catalogdb for a catalog query.
var (
	Eq      = sqlquery.Eq
	Like    = sqlquery.Like
	ILike   = sqlquery.ILike
	Gt      = sqlquery.Gt
	Lt      = sqlquery.Lt
	Between = sqlquery.Between
)

const (
	Asc  = sqlquery.Asc
	Desc = sqlquery.Desc
)

func newQueryBuilder(conn *sql.DB, table string) *QueryBuilder {
	return sqlquery.New(conn, table, selectColumns, scanRow)
}
