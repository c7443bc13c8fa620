package substack

import (
	"context"
	"fmt"
	"time"

	"github.com/OrelsProjects/articles-generator-sub002/internal/model"
)

// ContentType selects which reactors endpoint a content id addresses.
type ContentType string

const (
	ContentPost    ContentType = "post"
	ContentComment ContentType = "comment"
)

type rawReactor struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Handle         string `json:"handle"`
	PhotoURL       string `json:"photo_url"`
	IsFollowing    bool   `json:"is_following"`
	IsSubscribed   bool   `json:"is_subscribed"`
	BestsellerTier int    `json:"bestseller_tier"`
}

// Reactors returns the users who reacted to one post or comment. The
// response must be a list; reactors without an id are dropped.
func (c *Client) Reactors(ctx context.Context, contentID string, contentType ContentType, maxAttempts int, backoff time.Duration) ([]model.Reactor, error) {
	u := fmt.Sprintf("%s/%s/%s/reactors", c.baseURL, contentType, contentID)
	var raw []rawReactor
	if err := c.fetchJSON(ctx, "reactors", u, maxAttempts, backoff, &raw); err != nil {
		return nil, err
	}
	out := make([]model.Reactor, 0, len(raw))
	for _, r := range raw {
		if r.ID == 0 {
			c.log.Error("skip reactor without id", map[string]any{"content_id": contentID})
			continue
		}
		out = append(out, model.Reactor{
			UserID:         r.ID,
			Name:           r.Name,
			Handle:         r.Handle,
			PhotoURL:       r.PhotoURL,
			IsFollowing:    r.IsFollowing,
			IsSubscribed:   r.IsSubscribed,
			BestsellerTier: r.BestsellerTier,
		})
	}
	return out, nil
}
