// Package pkgquery implements C5, the query resolver: parsing a user's
// free-form package query string and, when it matches more than one
// catalog row, running an interactive disambiguation hook the way the
// teacher's own CLI defers ambiguous choices back to the terminal.
package pkgquery

import (
	"context"
	"fmt"
	"strings"

	"github.com/soarpm/soar/internal/catalogdb"
	"github.com/soarpm/soar/internal/errs"
	"github.com/soarpm/soar/internal/model"
)

// ParsedQuery is the result of Parse. The common shape is
// model.PackageQuery's three fields; PkgID and RepoName are only
// populated for the disambiguating "pkg_name#pkg_id:repo_name" shape
// spec.md §4.2 also accepts.
type ParsedQuery struct {
	model.PackageQuery
	PkgID    string
	RepoName string
}

// Parse reads a query string of the form "[<family>/]<name>[#<collection>]"
// or, when the source syntax also allows it, "pkg_name#pkg_id:repo_name"
// (spec.md §4.2). The second shape is distinguished by the presence of a
// ':' separating a repository qualifier from a "name#pkg_id" pair.
func Parse(raw string) (ParsedQuery, error) {
	if raw == "" {
		return ParsedQuery{}, fmt.Errorf("pkgquery: empty query")
	}

	if idx := strings.LastIndex(raw, ":"); idx != -1 {
		left, repoName := raw[:idx], raw[idx+1:]
		if repoName == "" {
			return ParsedQuery{}, fmt.Errorf("pkgquery: %q has an empty repository qualifier", raw)
		}
		hashIdx := strings.Index(left, "#")
		if hashIdx == -1 {
			return ParsedQuery{}, fmt.Errorf("pkgquery: %q must be pkg_name#pkg_id before a repository qualifier", raw)
		}
		name, pkgID := left[:hashIdx], left[hashIdx+1:]
		if name == "" || pkgID == "" {
			return ParsedQuery{}, fmt.Errorf("pkgquery: %q is missing a name or pkg_id", raw)
		}
		return ParsedQuery{
			PackageQuery: model.PackageQuery{Name: name},
			PkgID:        pkgID,
			RepoName:     repoName,
		}, nil
	}

	rest := raw
	var family, collection string
	if slash := strings.Index(rest, "/"); slash != -1 {
		family, rest = rest[:slash], rest[slash+1:]
	}
	if hash := strings.Index(rest, "#"); hash != -1 {
		rest, collection = rest[:hash], rest[hash+1:]
	}
	if rest == "" {
		return ParsedQuery{}, fmt.Errorf("pkgquery: %q is missing a package name", raw)
	}

	return ParsedQuery{PackageQuery: model.PackageQuery{Name: rest, Family: family, Collection: collection}}, nil
}

// Repository pairs a configured repository's name with its opened catalog,
// in the order the repository is declared in config.json — the order
// spec.md §4.2's tie-break rule uses ("repository order as declared in
// config, then pkg_id ascending").
type Repository struct {
	Name string
	DB   *catalogdb.DB
}

// SelectFunc is the interactive-selection callback invoked when a query
// matches more than one row; it returns the chosen candidate's index.
type SelectFunc func(ctx context.Context, candidates []model.RemotePackage) (int, error)

// Resolver resolves parsed queries against an ordered set of catalogs.
type Resolver struct {
	repos []Repository
}

// NewResolver constructs a Resolver over repos, in config declaration
// order.
func NewResolver(repos []Repository) *Resolver {
	return &Resolver{repos: repos}
}

// Resolve runs the resolution algorithm in spec.md §4.2: query every
// matching repository (or only the one RepoName names, if the parsed
// query is repo-qualified), ordered by repository declaration order, then
// pkg_id.
// Zero rows fail with NotFound. Exactly one row is returned directly.
// Multiple rows invoke selectFn unless yes is set, in which case the
// first (repo-declaration-order, then pkg_id ascending) row is picked.
func (r *Resolver) Resolve(ctx context.Context, raw string, yes bool, selectFn SelectFunc) (model.RemotePackage, error) {
	q, err := Parse(raw)
	if err != nil {
		return model.RemotePackage{}, errs.Wrap(errs.Config, "", "parse package query", err)
	}

	var candidates []model.RemotePackage
	for _, repo := range r.repos {
		if q.RepoName != "" && q.RepoName != repo.Name {
			continue
		}

		qb := repo.DB.Query().WhereAnd("pkg_name", catalogdb.Eq(q.Name))
		if q.Family != "" {
			qb = qb.WhereAnd("pkg", catalogdb.Eq(q.Family))
		}
		if q.PkgID != "" {
			qb = qb.WhereAnd("pkg_id", catalogdb.Eq(q.PkgID))
		}
		qb = qb.SortBy("pkg_id", catalogdb.Asc)

		resp, err := qb.Load(ctx)
		if err != nil {
			return model.RemotePackage{}, errs.Wrap(errs.IOFailed, q.Name, fmt.Sprintf("query repository %s", repo.Name), err)
		}
		candidates = append(candidates, resp.Items...)
	}

	switch len(candidates) {
	case 0:
		return model.RemotePackage{}, errs.New(errs.NotFound, q.Name, "no package matched the query")
	case 1:
		return candidates[0], nil
	default:
		if yes {
			return candidates[0], nil
		}
		if selectFn == nil {
			return model.RemotePackage{}, errs.New(errs.Ambiguous, q.Name, "multiple packages matched; interactive selection required")
		}
		idx, err := selectFn(ctx, candidates)
		if err != nil {
			return model.RemotePackage{}, err
		}
		if idx < 0 || idx >= len(candidates) {
			return model.RemotePackage{}, errs.New(errs.Ambiguous, q.Name, "selection index out of range")
		}
		return candidates[idx], nil
	}
}
