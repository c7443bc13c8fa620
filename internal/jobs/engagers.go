package jobs

import (
	"context"

	"github.com/OrelsProjects/articles-generator-sub002/internal/logging"
	"github.com/OrelsProjects/articles-generator-sub002/internal/model"
)

// EngagerRanker runs one score-and-rank pass for a publication.
type EngagerRanker interface {
	Run(ctx context.Context, publicationID string, excludeAuthorID int64) ([]model.PotentialUser, error)
}

// RefreshEngagers executes one engager scoring run. excludeAuthorID of zero
// keeps the publication's own author in the ranking.
func RefreshEngagers(ctx context.Context, ranker EngagerRanker, publicationID string, excludeAuthorID int64) ([]model.PotentialUser, error) {
	log := logging.For("jobs")
	candidates, err := ranker.Run(ctx, publicationID, excludeAuthorID)
	if err != nil {
		log.Error("engager refresh failed", map[string]any{"publication": publicationID, "error": err.Error()})
		return nil, err
	}
	log.Info("engager refresh done", map[string]any{"publication": publicationID, "candidates": len(candidates)})
	return candidates, nil
}
