// Package index is the search layer over the company records. Queries are
// folded and synonym-expanded before they reach the backend, so a search for
// "software" also finds companies that registered as "informática".
package index

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/registralia/borme-cli/internal/model"
	"github.com/registralia/borme-cli/internal/sector"
	"github.com/registralia/borme-cli/internal/store"
)

const defaultLimit = 50

// Searcher answers free-text company queries.
type Searcher struct {
	store store.Store
}

// New creates a Searcher over the given store.
func New(s store.Store) *Searcher {
	return &Searcher{store: s}
}

// Search expands the query into synonym groups and runs it against the
// backend full-text index. An empty or all-stopword query returns no results
// rather than everything.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]model.Company, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	groups := sector.ExpandQuery(query)
	if len(groups) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > 500 {
		limit = defaultLimit
	}

	results, err := s.store.SearchCompanies(ctx, groups, limit)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("company search",
		zap.String("query", query),
		zap.Int("groups", len(groups)),
		zap.Int("results", len(results)))
	return results, nil
}

// rebuilder is implemented by backends whose full-text index can drift from
// the source rows (SQLite). Postgres derives its index in the schema and has
// nothing to rebuild.
type rebuilder interface {
	RebuildSearchIndex(ctx context.Context) error
}

// Rebuild re-derives the full-text index where the backend supports it.
func (s *Searcher) Rebuild(ctx context.Context) error {
	r, ok := s.store.(rebuilder)
	if !ok {
		return nil
	}
	return r.RebuildSearchIndex(ctx)
}
