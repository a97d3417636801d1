package projections

import (
	"context"
	"fmt"

	"ctbadmin/internal/application/listutil"
	"ctbadmin/internal/domain/catalog"
)

// CatalogReader defines the fetch needed by the catalog projections.
type CatalogReader interface {
	GetCatalog(ctx context.Context, domain catalog.Domain) (catalog.Catalog, error)
}

// GetCatalogListQuery carries query parameters.
type GetCatalogListQuery struct {
	Domain  catalog.Domain
	Search  string
	Page    int
	PerPage int
}

// CatalogRow is one activity line of the catalog list.
type CatalogRow struct {
	ID        catalog.ID `json:"id"`
	Name      string     `json:"name"`
	Slug      string     `json:"slug"`
	Order     int        `json:"order"`
	Types     []string   `json:"types"`
	Locations int        `json:"locations"`
	Sessions  int        `json:"sessions"`
}

// GetCatalogListResult carries the query result.
type GetCatalogListResult struct {
	Rows     []CatalogRow      `json:"rows"`
	PageInfo listutil.PageInfo `json:"pageInfo"`
}

// GetCatalogListDeps holds dependencies for GetCatalogList.
type GetCatalogListDeps struct {
	Catalog CatalogReader
}

// QueryGetCatalogList lists the activities of a domain.
// PRE: Domain is valid
// POST: Rows are sorted by display order and filtered by Search over name,
// slug, type keys and location names
func QueryGetCatalogList(ctx context.Context, query GetCatalogListQuery, deps GetCatalogListDeps) (GetCatalogListResult, error) {
	if _, err := catalog.ParseDomain(string(query.Domain)); err != nil {
		return GetCatalogListResult{}, err
	}
	c, err := deps.Catalog.GetCatalog(ctx, query.Domain)
	if err != nil {
		return GetCatalogListResult{}, fmt.Errorf("load catalog: %w", err)
	}

	var rows []CatalogRow
	for _, a := range c.Sorted() {
		if !matchesActivity(a, query.Search) {
			continue
		}
		row := CatalogRow{ID: a.ID, Name: a.Name, Slug: a.Slug, Order: a.Order}
		for _, t := range a.Types {
			row.Types = append(row.Types, t.Key)
			row.Locations += len(t.Locations)
			for _, l := range t.Locations {
				row.Sessions += len(l.Sessions)
			}
		}
		rows = append(rows, row)
	}

	params := listutil.NewPageParams(query.Page, query.PerPage)
	info := listutil.NewPageInfo(params.Page, params.PerPage, len(rows))
	return GetCatalogListResult{Rows: listutil.Paginate(rows, info), PageInfo: info}, nil
}

func matchesActivity(a catalog.Activity, search string) bool {
	if listutil.Matches(search, a.Name, a.Slug) {
		return true
	}
	for _, t := range a.Types {
		if listutil.Matches(search, t.Key) {
			return true
		}
		for _, l := range t.Locations {
			if listutil.Matches(search, l.Name) {
				return true
			}
		}
	}
	return false
}
