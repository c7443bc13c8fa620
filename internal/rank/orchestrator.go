package rank

import (
	"context"
	"fmt"
	"sort"

	"github.com/OrelsProjects/articles-generator-sub002/internal/logging"
	"github.com/OrelsProjects/articles-generator-sub002/internal/metrics"
	"github.com/OrelsProjects/articles-generator-sub002/internal/model"
	"github.com/OrelsProjects/articles-generator-sub002/internal/reactors"
)

// Sampling sizes for one orchestration run. Top posts are taken by reaction
// count, comments by recency.
const (
	topPostsPageSize = 25
	topPostsPages    = 2
	commentsPageSize = 50
	commentsPages    = 1

	upsertBatchSize = 10
)

// ContentSampler pages a publication's top posts and recent comments.
type ContentSampler interface {
	TopPosts(ctx context.Context, publicationID string, limit, offset int) ([]string, error)
	RecentComments(ctx context.Context, publicationID string, limit, offset int) ([]string, error)
}

// ReactorSource is the aggregator's fan-out entry point.
type ReactorSource interface {
	FetchReactorsForMany(ctx context.Context, postIDs, commentIDs []string, opts reactors.Options) []model.Reactor
}

// AssociationStore upserts ranked rows keyed by (publication, engager).
type AssociationStore interface {
	UpsertAssociation(ctx context.Context, a model.PublicationAssociation) error
}

// Orchestrator samples a publication's content, scores the people who
// engaged with it by appearance count, and persists the ranked associations.
type Orchestrator struct {
	sampler ContentSampler
	source  ReactorSource
	store   AssociationStore
	log     logging.Logger
}

func NewOrchestrator(sampler ContentSampler, source ReactorSource, store AssociationStore) *Orchestrator {
	return &Orchestrator{sampler: sampler, source: source, store: store, log: logging.For("rank")}
}

// Run executes one scoring pass for the publication and returns the persisted
// candidates. excludeAuthorID, when nonzero, drops the publication's own
// author from the ranking.
func (o *Orchestrator) Run(ctx context.Context, publicationID string, excludeAuthorID int64) ([]model.PotentialUser, error) {
	postIDs := o.samplePages(ctx, publicationID, topPostsPageSize, topPostsPages, o.sampler.TopPosts)
	commentIDs := o.samplePages(ctx, publicationID, commentsPageSize, commentsPages, o.sampler.RecentComments)
	if len(postIDs) == 0 && len(commentIDs) == 0 {
		return nil, fmt.Errorf("publication %s: no content sampled", publicationID)
	}

	combined := o.source.FetchReactorsForMany(ctx, postIDs, commentIDs, reactors.Options{
		SaveNewProfiles:  true,
		IncludeScoreData: true,
	})

	candidates := BuildCandidates(combined)
	SortCandidatesByScore(candidates)
	if excludeAuthorID != 0 {
		candidates = excludeUser(candidates, excludeAuthorID)
	}

	o.persist(ctx, publicationID, candidates, combined)
	o.log.Info("rank run done", map[string]any{
		"publication": publicationID,
		"posts":       len(postIDs),
		"comments":    len(commentIDs),
		"candidates":  len(candidates),
	})
	return candidates, nil
}

type pageFunc func(ctx context.Context, publicationID string, limit, offset int) ([]string, error)

// samplePages collects up to pages*pageSize ids, stopping early on a failed
// or short page. A sampling failure degrades to whatever was gathered.
func (o *Orchestrator) samplePages(ctx context.Context, publicationID string, pageSize, pages int, fetch pageFunc) []string {
	var out []string
	for p := 0; p < pages; p++ {
		ids, err := fetch(ctx, publicationID, pageSize, p*pageSize)
		if err != nil {
			o.log.Error("content sample page failed", map[string]any{"publication": publicationID, "page": p, "error": err.Error()})
			break
		}
		out = append(out, ids...)
		if len(ids) < pageSize {
			break
		}
	}
	return out
}

// BuildCandidates reduces the reactor multiset to one scored candidate per
// user: score(id) is the number of times id appears across the sampled
// reactor lists.
func BuildCandidates(combined []model.Reactor) []model.PotentialUser {
	ids := make([]int64, len(combined))
	for i, r := range combined {
		ids[i] = r.UserID
	}
	scores := model.AppearanceScores(ids)

	seen := make(map[int64]struct{}, len(scores))
	out := make([]model.PotentialUser, 0, len(scores))
	for _, r := range combined {
		if _, ok := seen[r.UserID]; ok {
			continue
		}
		seen[r.UserID] = struct{}{}
		out = append(out, model.PotentialUser{
			UserID:         r.UserID,
			Name:           r.Name,
			IsFollowing:    r.IsFollowing,
			IsSubscribed:   r.IsSubscribed,
			BestsellerTier: r.BestsellerTier,
			Score:          scores[r.UserID],
		})
	}
	return out
}

// SortCandidatesByScore orders candidates ascending by score, ties broken by
// user id for determinism. Ascending matches the observed product behavior;
// see DESIGN.md before flipping it.
func SortCandidatesByScore(cs []model.PotentialUser) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Score != cs[j].Score {
			return cs[i].Score < cs[j].Score
		}
		return cs[i].UserID < cs[j].UserID
	})
}

func excludeUser(cs []model.PotentialUser, userID int64) []model.PotentialUser {
	out := cs[:0]
	for _, c := range cs {
		if c.UserID != userID {
			out = append(out, c)
		}
	}
	return out
}

// persist upserts one association per candidate in fixed-size batches. One
// row failing does not block the rest of its batch.
func (o *Orchestrator) persist(ctx context.Context, publicationID string, candidates []model.PotentialUser, combined []model.Reactor) {
	counts := make(map[int64]int, len(combined))
	for _, r := range combined {
		if r.SubscriberCount > 0 {
			counts[r.UserID] = r.SubscriberCount
		}
	}
	for i := 0; i < len(candidates); i += upsertBatchSize {
		end := i + upsertBatchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		for _, c := range candidates[i:end] {
			assoc := model.PublicationAssociation{
				PublicationID:   publicationID,
				UserID:          c.UserID,
				Score:           c.Score,
				IsFollowing:     c.IsFollowing,
				IsSubscribed:    c.IsSubscribed,
				SubscriberCount: counts[c.UserID],
				BestsellerTier:  c.BestsellerTier,
			}
			if err := o.store.UpsertAssociation(ctx, assoc); err != nil {
				metrics.AssociationUpsertErrors.Inc()
				o.log.Error("association upsert failed", map[string]any{"publication": publicationID, "user_id": c.UserID, "error": err.Error()})
				continue
			}
			metrics.AssociationUpserts.Inc()
		}
	}
}
