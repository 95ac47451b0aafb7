// Package resolve maintains the company golden records. Every extracted act
// is attributed to a company keyed by normalized name + province; merging is
// monotonic — a later act can fill empty fields or advance lifecycle state,
// but never blanks data an earlier act established.
package resolve

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/agext/levenshtein"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/registralia/borme-cli/internal/metrics"
	"github.com/registralia/borme-cli/internal/model"
	"github.com/registralia/borme-cli/internal/normalize"
	"github.com/registralia/borme-cli/internal/store"
)

const (
	lockShards = 256

	// Officer names in resignation notices are retyped by the registry and
	// drift by a character or two from the appointment spelling.
	maxNameDistance = 2
)

// Resolver attributes acts to companies and keeps their records coherent
// under concurrent document processing.
type Resolver struct {
	store   store.Store
	locks   [lockShards]sync.Mutex
	cache   *lru.Cache[string, int64]
	metrics *metrics.Metrics
}

// New creates a Resolver. cacheSize bounds the identity cache; gazette days
// repeat companies heavily (an appointment and a resignation in one issue),
// so even a small cache avoids most key lookups.
func New(s store.Store, cacheSize int) (*Resolver, error) {
	if cacheSize <= 0 {
		cacheSize = 4096
	}
	cache, err := lru.New[string, int64](cacheSize)
	if err != nil {
		return nil, eris.Wrap(err, "resolve: create identity cache")
	}
	return &Resolver{store: s, cache: cache}, nil
}

// WithMetrics attaches pipeline counters. Without it the resolver works but
// reports nothing.
func (r *Resolver) WithMetrics(m *metrics.Metrics) *Resolver {
	r.metrics = m
	return r
}

func (r *Resolver) recordAnomaly(ctx context.Context, a *model.MergeAnomaly) error {
	if err := r.store.InsertAnomaly(ctx, a); err != nil {
		return err
	}
	if r.metrics != nil {
		r.metrics.AnomaliesRecorded.WithLabelValues(string(a.Kind)).Inc()
	}
	return nil
}

// Apply processes one extracted act end to end: company find-or-create, act
// insert (deduplicated), field merge, lifecycle and officer updates.
// It reports whether the act was new; replayed acts are a no-op.
func (r *Resolver) Apply(ctx context.Context, runID string, doc *model.SourceDocument, act *model.MercantileAct) (bool, error) {
	name := strings.TrimSpace(act.Fields.CompanyName)
	if name == "" {
		return false, eris.Errorf("resolve: act from %s has no company name", act.GazetteID)
	}
	province := act.Fields.Province
	if province == "" {
		province = doc.Province
	}
	key := normalize.Name(name) + "\x00" + province

	mu := &r.locks[shard(key)]
	mu.Lock()
	defer mu.Unlock()

	company, err := r.findOrCreate(ctx, key, name, province, act)
	if err != nil {
		return false, err
	}

	act.CompanyID = company.ID
	act.DocumentID = doc.ID
	actID, inserted, err := r.store.InsertAct(ctx, act)
	if err != nil {
		return false, err
	}
	if !inserted {
		zap.L().Debug("act replayed, skipping merge",
			zap.String("gazette_id", act.GazetteID),
			zap.Int64("company_id", company.ID),
			zap.String("label", act.Label))
		return false, nil
	}

	if err := r.merge(ctx, runID, company, act, actID); err != nil {
		return false, err
	}
	if err := r.applyOfficers(ctx, runID, company, act, actID); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Resolver) findOrCreate(ctx context.Context, key, name, province string, act *model.MercantileAct) (*model.Company, error) {
	if id, ok := r.cache.Get(key); ok {
		c, err := r.store.GetCompany(ctx, id)
		if err == nil {
			return c, nil
		}
		// Stale cache entry; fall through to the key lookup.
		r.cache.Remove(key)
	}

	normalized := normalize.Name(name)
	c, err := r.store.GetCompanyByKey(ctx, normalized, province)
	if err != nil {
		return nil, err
	}
	if c == nil {
		c = &model.Company{
			Name:           name,
			NormalizedName: normalized,
			LegalForm:      act.Fields.LegalForm,
			Province:       province,
			Status:         model.CompanyActive,
			FirstPublished: act.Published,
			LastPublished:  act.Published,
		}
		if _, err := r.store.CreateCompany(ctx, c); err != nil {
			return nil, err
		}
		if r.metrics != nil {
			r.metrics.CompaniesCreated.Inc()
		}
		zap.L().Debug("company created",
			zap.Int64("company_id", c.ID),
			zap.String("name", name),
			zap.String("province", province))
	}
	r.cache.Add(key, c.ID)
	return c, nil
}

// merge folds the act's fields into the company record. Populated fields are
// never regressed to empty; capital only moves on an explicit capital act.
func (r *Resolver) merge(ctx context.Context, runID string, c *model.Company, act *model.MercantileAct, actID int64) error {
	f := act.Fields

	if c.LegalForm == "" && f.LegalForm != "" {
		c.LegalForm = f.LegalForm
	}
	if c.Address == "" && f.Address != "" {
		c.Address = f.Address
	}
	if c.Locality == "" && f.Locality != "" {
		c.Locality = f.Locality
	}
	if c.CorporatePurpose == "" && f.CorporatePurpose != "" {
		c.CorporatePurpose = f.CorporatePurpose
	}
	if c.SectorEstimate == "" && f.SectorEstimate != "" {
		c.SectorEstimate = f.SectorEstimate
	}
	if c.IncorporatedOn == nil && f.OperationsStart != nil {
		c.IncorporatedOn = f.OperationsStart
	}

	if f.Capital != nil {
		switch {
		case c.Capital == nil:
			c.Capital = f.Capital
		case act.Type == model.ActCapitalChange:
			c.Capital = f.Capital
		case *f.Capital < *c.Capital:
			// A non-capital act reporting less capital than we hold is
			// suspect; keep the record and flag it.
			if err := r.recordAnomaly(ctx, &model.MergeAnomaly{
				RunID:     runID,
				CompanyID: c.ID,
				ActID:     actID,
				Kind:      model.AnomalyCapitalRegression,
				Detail:    fmt.Sprintf("act reports capital %.2f, record holds %.2f", *f.Capital, *c.Capital),
			}); err != nil {
				return err
			}
		}
	}

	if status, ok := lifecycleStatus(act.Label); ok {
		c.Status = status
	}
	if act.Published.Before(c.FirstPublished) {
		c.FirstPublished = act.Published
	}
	if act.Published.After(c.LastPublished) {
		c.LastPublished = act.Published
	}

	return r.store.UpdateCompany(ctx, c)
}

// lifecycleStatus maps dissolution-family headings to the company state.
func lifecycleStatus(label string) (model.CompanyStatus, bool) {
	switch label {
	case "Disolución":
		return model.CompanyDissolved, true
	case "Liquidación":
		return model.CompanyInLiquidation, true
	case "Extinción":
		return model.CompanyExtinct, true
	default:
		return "", false
	}
}

func (r *Resolver) applyOfficers(ctx context.Context, runID string, c *model.Company, act *model.MercantileAct, actID int64) error {
	if len(act.Fields.Officers) == 0 {
		return nil
	}

	switch act.Type {
	case model.ActResignation:
		return r.resignOfficers(ctx, runID, c, act, actID)
	default:
		// Appointments, and officers named on any other act (a
		// liquidator on a dissolution), join the roster as active.
		for _, o := range act.Fields.Officers {
			if err := r.store.UpsertOfficer(ctx, &model.Officer{
				CompanyID:      c.ID,
				Name:           o.Name,
				Role:           o.Role,
				Active:         true,
				EffectiveActID: actID,
				Published:      act.Published,
			}); err != nil {
				return err
			}
		}
		return nil
	}
}

func (r *Resolver) resignOfficers(ctx context.Context, runID string, c *model.Company, act *model.MercantileAct, actID int64) error {
	roster, err := r.store.ListOfficers(ctx, c.ID)
	if err != nil {
		return err
	}

	for _, o := range act.Fields.Officers {
		match := matchOfficer(roster, o.Name, o.Role)
		if match == nil {
			zap.L().Warn("resignation without matching appointment",
				zap.Int64("company_id", c.ID),
				zap.String("officer", o.Name),
				zap.String("gazette_id", act.GazetteID))
			if err := r.recordAnomaly(ctx, &model.MergeAnomaly{
				RunID:     runID,
				CompanyID: c.ID,
				ActID:     actID,
				Kind:      model.AnomalyUnmatchedResignation,
				Detail:    fmt.Sprintf("cese for %q (%s) matches no active officer", o.Name, o.Role),
			}); err != nil {
				return err
			}
			continue
		}
		if err := r.store.DeactivateOfficer(ctx, match.ID, actID, act.Published); err != nil {
			return err
		}
	}
	return nil
}

// matchOfficer finds the active roster entry for a resignation, tolerating
// small spelling drift between notices. A candidate holding the ceased role
// always wins over a name-only match: one person can sit on the roster twice
// (Apoderado and Consejero), and the cese names which seat is vacated.
func matchOfficer(roster []model.Officer, name, role string) *model.Officer {
	folded := normalize.Fold(name)

	var best *model.Officer
	bestDist := maxNameDistance + 1
	bestRole := false
	for i := range roster {
		o := &roster[i]
		if !o.Active {
			continue
		}
		d := levenshtein.Distance(folded, normalize.Fold(o.Name), nil)
		if d > maxNameDistance {
			continue
		}
		sameRole := role != "" && o.Role == role
		if (sameRole && !bestRole) || (sameRole == bestRole && d < bestDist) {
			best, bestDist, bestRole = o, d, sameRole
		}
	}
	return best
}

func shard(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % lockShards
}
