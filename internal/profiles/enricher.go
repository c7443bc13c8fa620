package profiles

import (
	"context"
	"fmt"
	"time"

	"github.com/OrelsProjects/articles-generator-sub002/internal/logging"
	"github.com/OrelsProjects/articles-generator-sub002/internal/metrics"
	"github.com/OrelsProjects/articles-generator-sub002/internal/model"
)

// ProfileClient fetches a user's public profile, addressed by id plus slug.
type ProfileClient interface {
	PublicProfile(ctx context.Context, userID int64, slug string) (model.Byline, error)
}

// BylineStore is the byline cache the enricher reads and writes.
type BylineStore interface {
	BylinesByIDs(ctx context.Context, ids []int64) ([]model.Byline, error)
	UpsertByline(ctx context.Context, b model.Byline) error
}

// Enricher keeps the byline cache fresh. A profile older than the staleness
// window, or absent entirely, is refreshed from the upstream; everything else
// is left alone for the run.
type Enricher struct {
	client ProfileClient
	store  BylineStore
	log    logging.Logger
	now    func() time.Time
}

func NewEnricher(client ProfileClient, store BylineStore) *Enricher {
	return &Enricher{client: client, store: store, log: logging.For("profiles"), now: time.Now}
}

// RefreshProfiles refreshes the stale-or-missing subset of the candidates.
// One profile failing to fetch, validate, or upsert does not abort the batch;
// it is logged and skipped. The returned error covers only the initial cache
// load.
func (e *Enricher) RefreshProfiles(ctx context.Context, candidates []model.Reactor) error {
	if len(candidates) == 0 {
		return nil
	}
	byID := make(map[int64]model.Reactor, len(candidates))
	ids := make([]int64, 0, len(candidates))
	for _, cand := range candidates {
		if _, ok := byID[cand.UserID]; ok {
			continue
		}
		byID[cand.UserID] = cand
		ids = append(ids, cand.UserID)
	}

	existing, err := e.store.BylinesByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load bylines: %w", err)
	}
	cached := make(map[int64]model.Byline, len(existing))
	for _, b := range existing {
		cached[b.UserID] = b
	}

	now := e.now()
	refreshed := 0
	for _, id := range ids {
		b, ok := cached[id]
		if ok && !b.Stale(now) {
			continue
		}
		slug := byID[id].Handle
		if slug == "" {
			slug = b.Slug
		}
		fresh, err := e.client.PublicProfile(ctx, id, slug)
		if err != nil {
			metrics.ProfileRefreshErrors.Inc()
			e.log.Error("profile fetch failed", map[string]any{"user_id": id, "error": err.Error()})
			continue
		}
		if err := e.store.UpsertByline(ctx, fresh); err != nil {
			metrics.ProfileRefreshErrors.Inc()
			e.log.Error("byline upsert failed", map[string]any{"user_id": id, "error": err.Error()})
			continue
		}
		metrics.ProfileRefreshes.Inc()
		refreshed++
	}
	e.log.Info("profiles refreshed", map[string]any{"candidates": len(ids), "refreshed": refreshed})
	return nil
}
