package reactors

import (
	"context"
	"sync"
	"time"

	"github.com/OrelsProjects/articles-generator-sub002/internal/logging"
	"github.com/OrelsProjects/articles-generator-sub002/internal/model"
	"github.com/OrelsProjects/articles-generator-sub002/internal/substack"
	"github.com/google/uuid"
)

const (
	// Fixed batch width for the multi-item fan-out. Batches run their
	// requests in parallel but execute sequentially relative to each other,
	// as a self-imposed cap against the upstream's abuse detection.
	batchSize = 3

	reactorMaxAttempts = 3
	reactorBackoff     = 500 * time.Millisecond

	detachedSaveTimeout = 2 * time.Minute
)

// ReactorClient fetches the users who reacted to one content item.
type ReactorClient interface {
	Reactors(ctx context.Context, contentID string, contentType substack.ContentType, maxAttempts int, backoff time.Duration) ([]model.Reactor, error)
}

// ProfileSaver refreshes cached profiles for reactor candidates.
type ProfileSaver interface {
	RefreshProfiles(ctx context.Context, candidates []model.Reactor) error
}

// BylineFinder loads cached bylines for a set of user ids.
type BylineFinder interface {
	BylinesByIDs(ctx context.Context, ids []int64) ([]model.Byline, error)
}

// Options control the optional side work of a reactor fetch.
type Options struct {
	// Trigger a detached profile refresh over the returned reactors. The
	// caller does not wait for it; a failure is only a log line.
	SaveNewProfiles bool
	// Join cached byline subscriber counts onto the returned reactors.
	IncludeScoreData bool
}

// Aggregator collects reactors across content items. Duplicate user ids in
// its combined output are intentional: repetition across items is the
// scoring signal.
type Aggregator struct {
	client   ReactorClient
	profiles ProfileSaver
	bylines  BylineFinder
	log      logging.Logger

	wg sync.WaitGroup
}

func NewAggregator(client ReactorClient, profiles ProfileSaver, bylines BylineFinder) *Aggregator {
	return &Aggregator{
		client:   client,
		profiles: profiles,
		bylines:  bylines,
		log:      logging.For("reactors"),
	}
}

// FetchReactors returns the reactors for one post or comment. Fetch or
// validation failures degrade to an empty list, never an error.
func (a *Aggregator) FetchReactors(ctx context.Context, contentID string, contentType substack.ContentType, opts Options) []model.Reactor {
	out, err := a.client.Reactors(ctx, contentID, contentType, reactorMaxAttempts, reactorBackoff)
	if err != nil {
		a.log.Error("reactor fetch failed", map[string]any{"content_id": contentID, "type": string(contentType), "error": err.Error()})
		return nil
	}
	if opts.SaveNewProfiles {
		a.saveProfilesDetached(out)
	}
	if opts.IncludeScoreData {
		out = a.joinSubscriberCounts(ctx, out)
	}
	return out
}

// FetchReactorsForMany fans out over many posts and comments in fixed-size
// batches and concatenates every returned reactor into one multiset. The
// optional side work from opts runs once over the combined set, not per item.
func (a *Aggregator) FetchReactorsForMany(ctx context.Context, postIDs, commentIDs []string, opts Options) []model.Reactor {
	var combined []model.Reactor
	combined = append(combined, a.fetchBatched(ctx, postIDs, substack.ContentPost)...)
	combined = append(combined, a.fetchBatched(ctx, commentIDs, substack.ContentComment)...)
	if opts.SaveNewProfiles {
		a.saveProfilesDetached(combined)
	}
	if opts.IncludeScoreData {
		combined = a.joinSubscriberCounts(ctx, combined)
	}
	return combined
}

func (a *Aggregator) fetchBatched(ctx context.Context, ids []string, contentType substack.ContentType) []model.Reactor {
	var all []model.Reactor
	for i := 0; i < len(ids); i += batchSize {
		end := i + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[i:end]

		results := make([][]model.Reactor, len(batch))
		var wg sync.WaitGroup
		for j, id := range batch {
			wg.Add(1)
			go func(j int, id string) {
				defer wg.Done()
				results[j] = a.FetchReactors(ctx, id, contentType, Options{})
			}(j, id)
		}
		wg.Wait()
		for _, r := range results {
			all = append(all, r...)
		}
	}
	return all
}

// saveProfilesDetached refreshes profiles in the background without holding
// up the caller. The task gets its own deadline and run id; if it fails, the
// only effect is a log line.
func (a *Aggregator) saveProfilesDetached(candidates []model.Reactor) {
	if a.profiles == nil || len(candidates) == 0 {
		return
	}
	runID := uuid.NewString()
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), detachedSaveTimeout)
		defer cancel()
		if err := a.profiles.RefreshProfiles(ctx, candidates); err != nil {
			a.log.Error("detached profile save failed", map[string]any{"run_id": runID, "candidates": len(candidates), "error": err.Error()})
			return
		}
		a.log.Info("detached profile save done", map[string]any{"run_id": runID, "candidates": len(candidates)})
	}()
}

// Wait blocks until all detached profile saves spawned so far have finished.
func (a *Aggregator) Wait() { a.wg.Wait() }

func (a *Aggregator) joinSubscriberCounts(ctx context.Context, rs []model.Reactor) []model.Reactor {
	if a.bylines == nil || len(rs) == 0 {
		return rs
	}
	ids := make([]int64, 0, len(rs))
	seen := make(map[int64]struct{}, len(rs))
	for _, r := range rs {
		if _, ok := seen[r.UserID]; ok {
			continue
		}
		seen[r.UserID] = struct{}{}
		ids = append(ids, r.UserID)
	}
	bylines, err := a.bylines.BylinesByIDs(ctx, ids)
	if err != nil {
		a.log.Error("byline join failed", map[string]any{"error": err.Error()})
		return rs
	}
	counts := make(map[int64]int, len(bylines))
	for _, b := range bylines {
		counts[b.UserID] = b.SubscriberCount
	}
	for i := range rs {
		if n, ok := counts[rs[i].UserID]; ok {
			rs[i].SubscriberCount = n
		}
	}
	return rs
}
