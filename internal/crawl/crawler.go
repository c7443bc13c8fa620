package crawl

import (
	"context"
	"time"

	"github.com/OrelsProjects/articles-generator-sub002/internal/logging"
	"github.com/OrelsProjects/articles-generator-sub002/internal/metrics"
	"github.com/OrelsProjects/articles-generator-sub002/internal/model"
	"github.com/OrelsProjects/articles-generator-sub002/internal/substack"
	"github.com/OrelsProjects/articles-generator-sub002/internal/util"
)

const (
	defaultMaxNotes       = 99999
	defaultMarginOfSafety = 999
	maxEmptyPages         = 10
	bodyPrefixLen         = 100
	recencyHorizon        = 180 * 24 * time.Hour
)

// Stop reasons reported by a crawl. All are normal termination paths, not
// errors.
const (
	StopBaselineFull   = "baseline_full"
	StopFetchFailed    = "fetch_failed"
	StopEmptyPages     = "empty_pages"
	StopNoCursor       = "no_cursor"
	StopNoNewItems     = "no_new_items"
	StopMarginOfSafety = "margin_of_safety"
	StopMaxNotes       = "max_notes"
	StopCursorRepeat   = "cursor_repeat"
	StopHorizon        = "horizon_reached"
)

// FeedClient pages the upstream profile feed.
type FeedClient interface {
	ProfileFeedPage(ctx context.Context, authorID int64, cursor string) (substack.FeedPage, error)
}

// NoteFinder loads the locally stored notes for an author.
type NoteFinder interface {
	NotesByAuthor(ctx context.Context, authorID int64) ([]model.NoteComment, error)
}

// Options tune one crawl invocation.
type Options struct {
	MaxNotes       int
	MarginOfSafety int
}

func (o Options) withDefaults() Options {
	if o.MaxNotes <= 0 {
		o.MaxNotes = defaultMaxNotes
	}
	if o.MarginOfSafety <= 0 {
		o.MarginOfSafety = defaultMarginOfSafety
	}
	return o
}

// Result is what a crawl returns. AllNotes is baseline plus everything
// collected, deduped by (EntityKey, Date); NewNotes are the confirmed-new
// items only. The crawler never persists either set itself.
type Result struct {
	AllNotes   []model.NoteComment
	NewNotes   []model.NoteComment
	StopReason string
}

// Crawler incrementally syncs one author's comment history. It walks the
// profile feed cursor by cursor and stops on whichever bound it hits first:
// exhaustion, previously-synced history, safety margins, or the recency
// horizon once the activity streak has ended.
type Crawler struct {
	feed   FeedClient
	notes  NoteFinder
	streak StreakAnalyzer
	log    logging.Logger
	now    func() time.Time
}

func New(feed FeedClient, notes NoteFinder, streak StreakAnalyzer) *Crawler {
	if streak == nil {
		streak = CalendarStreak{}
	}
	return &Crawler{
		feed:   feed,
		notes:  notes,
		streak: streak,
		log:    logging.For("crawl"),
		now:    time.Now,
	}
}

// crawlState is the loop state of a single invocation. Nothing here is
// shared across calls.
type crawlState struct {
	collected    []model.NoteComment
	confirmedNew []model.NoteComment
	newKeys      map[model.NoteKey]struct{}
	seenPrefixes map[string]struct{}
	emptyPages   int
	noNewPages   int
	prevStreak   int
	streakEnded  bool
}

// Crawl runs one incremental sync for authorID. A failed page fetch degrades
// to "stop here": the error is reported through StopReason and whatever was
// gathered so far is returned.
func (c *Crawler) Crawl(ctx context.Context, authorID int64, opts Options) (Result, error) {
	opts = opts.withDefaults()
	start := c.now()
	metrics.CrawlRuns.Inc()
	defer metrics.ObserveCrawlDuration(start)

	baseline, err := c.notes.NotesByAuthor(ctx, authorID)
	if err != nil {
		return Result{}, err
	}
	if len(baseline) >= opts.MaxNotes {
		metrics.CrawlStops.WithLabelValues(StopBaselineFull).Inc()
		return Result{AllNotes: baseline, StopReason: StopBaselineFull}, nil
	}
	baselineKeys := make(map[string]struct{}, len(baseline))
	for _, n := range baseline {
		baselineKeys[n.EntityKey] = struct{}{}
	}

	st := &crawlState{
		newKeys:      make(map[model.NoteKey]struct{}),
		seenPrefixes: make(map[string]struct{}),
	}
	reason := c.page(ctx, authorID, opts, baselineKeys, st)
	metrics.CrawlStops.WithLabelValues(reason).Inc()
	c.log.Info("crawl done", map[string]any{
		"author_id": authorID,
		"reason":    reason,
		"collected": len(st.collected),
		"new":       len(st.confirmedNew),
	})
	return Result{
		AllNotes:   mergeNotes(baseline, st.collected, st.confirmedNew),
		NewNotes:   st.confirmedNew,
		StopReason: reason,
	}, nil
}

// page drives the cursor loop and returns the stop reason.
func (c *Crawler) page(ctx context.Context, authorID int64, opts Options, baselineKeys map[string]struct{}, st *crawlState) string {
	cursor := ""
	for {
		pageData, err := c.feed.ProfileFeedPage(ctx, authorID, cursor)
		if err != nil {
			c.log.Error("page fetch failed", map[string]any{"author_id": authorID, "cursor": cursor, "error": err.Error()})
			return StopFetchFailed
		}
		metrics.CrawlPages.Inc()

		comments := commentItems(pageData.Items)
		if len(comments) == 0 {
			st.emptyPages++
			st.noNewPages++
			if st.emptyPages >= maxEmptyPages {
				return StopEmptyPages
			}
			if st.noNewPages >= opts.MarginOfSafety {
				return StopMarginOfSafety
			}
		} else {
			st.collected = append(st.collected, comments...)

			var fresh []model.NoteComment
			for _, n := range comments {
				if _, ok := baselineKeys[n.EntityKey]; !ok {
					fresh = append(fresh, n)
				}
			}
			// An all-known page means the crawl reached previously-synced
			// history.
			if len(fresh) == 0 {
				return StopNoNewItems
			}

			kept := 0
			for _, n := range fresh {
				prefix := util.BodyPrefix(n.Body, bodyPrefixLen)
				if _, dup := st.seenPrefixes[prefix]; dup {
					continue
				}
				if _, dup := st.newKeys[n.Key()]; dup {
					continue
				}
				st.seenPrefixes[prefix] = struct{}{}
				st.newKeys[n.Key()] = struct{}{}
				st.confirmedNew = append(st.confirmedNew, n)
				kept++
			}
			if kept > 0 {
				st.noNewPages = 0
			} else {
				st.noNewPages++
				if st.noNewPages >= opts.MarginOfSafety {
					return StopMarginOfSafety
				}
			}

			if len(st.collected) >= opts.MaxNotes {
				return StopMaxNotes
			}

			snap := c.streak.Streak(st.collected, c.now())
			st.streakEnded = snap <= st.prevStreak
			st.prevStreak = snap

			if st.streakEnded && c.oldestBeyondHorizon(st.collected) {
				return StopHorizon
			}
		}

		next := pageData.NextCursor
		if next == "" {
			return StopNoCursor
		}
		if next == cursor {
			return StopCursorRepeat
		}
		cursor = next
	}
}

func (c *Crawler) oldestBeyondHorizon(notes []model.NoteComment) bool {
	var oldest time.Time
	for _, n := range notes {
		if oldest.IsZero() || n.Date.Before(oldest) {
			oldest = n.Date
		}
	}
	return !oldest.IsZero() && c.now().Sub(oldest) > recencyHorizon
}

func commentItems(items []model.NoteComment) []model.NoteComment {
	out := make([]model.NoteComment, 0, len(items))
	for _, it := range items {
		if it.Type == "comment" {
			out = append(out, it)
		}
	}
	return out
}

// mergeNotes unions the sets, deduped by (EntityKey, Date). First sighting
// wins, so baseline records are never replaced by re-crawled copies.
func mergeNotes(sets ...[]model.NoteComment) []model.NoteComment {
	seen := make(map[model.NoteKey]struct{})
	var out []model.NoteComment
	for _, set := range sets {
		for _, n := range set {
			k := n.Key()
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, n)
		}
	}
	return out
}
