package substack

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/OrelsProjects/articles-generator-sub002/internal/model"
)

// FeedPage is one page of an author's profile feed, filtered to comment
// items. NextCursor is opaque and passed back verbatim on the next request;
// empty means the upstream has no further pages.
type FeedPage struct {
	Items      []model.NoteComment
	NextCursor string
}

type rawFeedItem struct {
	EntityKey string `json:"entity_key"`
	Type      string `json:"type"`
	Context   struct {
		Type      string `json:"type"`
		Timestamp string `json:"timestamp"`
	} `json:"context"`
	Comment struct {
		UserID        int64  `json:"user_id"`
		Body          string `json:"body"`
		Date          string `json:"date"`
		Handle        string `json:"handle"`
		Name          string `json:"name"`
		PhotoURL      string `json:"photo_url"`
		ReactionCount int    `json:"reaction_count"`
		ChildrenCount int    `json:"children_count"`
		Restacks      int    `json:"restacks"`
		Restacked     bool   `json:"restacked"`
	} `json:"comment"`
}

type rawFeedPage struct {
	Items      []rawFeedItem `json:"items"`
	NextCursor string        `json:"nextCursor"`
}

// ProfileFeedPage fetches one page of the author's activity feed. cursor is
// empty for the first page. Malformed items are logged and skipped
// individually; a malformed page as a whole returns an error.
func (c *Client) ProfileFeedPage(ctx context.Context, authorID int64, cursor string) (FeedPage, error) {
	u := fmt.Sprintf("%s/reader/feed/profile/%d?types=comment", c.baseURL, authorID)
	if cursor != "" {
		u += "&cursor=" + url.QueryEscape(cursor)
	}
	var raw rawFeedPage
	if err := c.fetchJSON(ctx, "profile_feed", u, c.maxAttempts, c.backoff, &raw); err != nil {
		return FeedPage{}, err
	}
	page := FeedPage{NextCursor: raw.NextCursor}
	for _, it := range raw.Items {
		note, err := normalizeFeedItem(it)
		if err != nil {
			c.log.Error("skip malformed feed item", map[string]any{"entity_key": it.EntityKey, "error": err.Error()})
			continue
		}
		page.Items = append(page.Items, note)
	}
	return page, nil
}

func normalizeFeedItem(it rawFeedItem) (model.NoteComment, error) {
	if it.EntityKey == "" {
		return model.NoteComment{}, fmt.Errorf("missing entity_key")
	}
	if it.Comment.UserID == 0 {
		return model.NoteComment{}, fmt.Errorf("missing comment user_id")
	}
	date, err := parseDate(it.Comment.Date, it.Context.Timestamp)
	if err != nil {
		return model.NoteComment{}, err
	}
	return model.NoteComment{
		EntityKey:     it.EntityKey,
		Type:          it.Type,
		AuthorID:      it.Comment.UserID,
		Body:          it.Comment.Body,
		Date:          date,
		Handle:        it.Comment.Handle,
		Name:          it.Comment.Name,
		PhotoURL:      it.Comment.PhotoURL,
		ReactionCount: it.Comment.ReactionCount,
		ChildCount:    it.Comment.ChildrenCount,
		RestackCount:  it.Comment.Restacks,
		Restacked:     it.Comment.Restacked,
		ContextType:   it.Context.Type,
	}, nil
}

func parseDate(candidates ...string) (time.Time, error) {
	for _, s := range candidates {
		if s == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("no parsable date")
}
