package substack

import (
	"context"
	"fmt"
)

type rawPost struct {
	ID            int64 `json:"id"`
	ReactionCount int   `json:"reaction_count"`
}

type rawPostList struct {
	Posts []rawPost `json:"posts"`
}

type rawCommentList struct {
	Comments []rawPost `json:"comments"`
}

// TopPosts returns ids of the publication's posts sorted by reaction count,
// one page at a time.
func (c *Client) TopPosts(ctx context.Context, publicationID string, limit, offset int) ([]string, error) {
	u := fmt.Sprintf("%s/publication/%s/posts?sort=top&limit=%d&offset=%d", c.baseURL, publicationID, limit, offset)
	var raw rawPostList
	if err := c.fetchJSON(ctx, "top_posts", u, c.maxAttempts, c.backoff, &raw); err != nil {
		return nil, err
	}
	return postIDs(raw.Posts), nil
}

// RecentComments returns ids of the publication's most recent notes/comments,
// one page at a time.
func (c *Client) RecentComments(ctx context.Context, publicationID string, limit, offset int) ([]string, error) {
	u := fmt.Sprintf("%s/publication/%s/comments?sort=recent&limit=%d&offset=%d", c.baseURL, publicationID, limit, offset)
	var raw rawCommentList
	if err := c.fetchJSON(ctx, "recent_comments", u, c.maxAttempts, c.backoff, &raw); err != nil {
		return nil, err
	}
	return postIDs(raw.Comments), nil
}

func postIDs(posts []rawPost) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		if p.ID == 0 {
			continue
		}
		out = append(out, fmt.Sprintf("%d", p.ID))
	}
	return out
}
