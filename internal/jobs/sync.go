package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/OrelsProjects/articles-generator-sub002/internal/crawl"
	"github.com/OrelsProjects/articles-generator-sub002/internal/logging"
	"github.com/OrelsProjects/articles-generator-sub002/internal/model"
	"github.com/google/uuid"
)

// NoteCrawler runs one incremental crawl for an author.
type NoteCrawler interface {
	Crawl(ctx context.Context, authorID int64, opts crawl.Options) (crawl.Result, error)
}

// SyncStore persists the crawl output and the job bookmark.
type SyncStore interface {
	UpsertNote(ctx context.Context, n model.NoteComment) error
	SaveCursor(ctx context.Context, key, value string) error
}

// SyncAuthorNotes runs the crawler and writes its confirmed-new notes back to
// the store. The crawler itself is pure; this job owns persistence. A single
// note failing to upsert is logged and skipped.
func SyncAuthorNotes(ctx context.Context, crawler NoteCrawler, store SyncStore, authorID int64, opts crawl.Options) (crawl.Result, error) {
	log := logging.For("jobs")
	runID := uuid.NewString()
	res, err := crawler.Crawl(ctx, authorID, opts)
	if err != nil {
		return res, err
	}
	persisted := 0
	for _, n := range res.NewNotes {
		if err := store.UpsertNote(ctx, n); err != nil {
			log.Error("note upsert failed", map[string]any{"run_id": runID, "entity_key": n.EntityKey, "error": err.Error()})
			continue
		}
		persisted++
	}
	_ = store.SaveCursor(ctx, syncCursorKey(authorID), time.Now().UTC().Format(time.RFC3339Nano))
	log.Info("author sync done", map[string]any{
		"run_id":    runID,
		"author_id": authorID,
		"new":       len(res.NewNotes),
		"persisted": persisted,
		"reason":    res.StopReason,
	})
	return res, nil
}

// RunSyncLoop runs SyncAuthorNotes on a ticker until ctx is cancelled. The
// first run happens immediately.
func RunSyncLoop(ctx context.Context, crawler NoteCrawler, store SyncStore, authorID int64, opts crawl.Options, interval time.Duration) error {
	log := logging.For("jobs")
	t := time.NewTicker(interval)
	defer t.Stop()
	if _, err := SyncAuthorNotes(ctx, crawler, store, authorID, opts); err != nil {
		log.Error("author sync failed", map[string]any{"author_id": authorID, "error": err.Error()})
	}
	for {
		select {
		case <-ctx.Done():
			log.Info("sync loop stop", nil)
			return ctx.Err()
		case <-t.C:
			if _, err := SyncAuthorNotes(ctx, crawler, store, authorID, opts); err != nil {
				log.Error("author sync failed", map[string]any{"author_id": authorID, "error": err.Error()})
			}
		}
	}
}

func syncCursorKey(authorID int64) string {
	return fmt.Sprintf("sync:last_run:%d", authorID)
}
