package substack

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/OrelsProjects/articles-generator-sub002/internal/model"
)

type rawProfile struct {
	ID                    int64  `json:"id"`
	Slug                  string `json:"slug"`
	Name                  string `json:"name"`
	PhotoURL              string `json:"photo_url"`
	SubscriberCount       int    `json:"subscriberCount"`
	SubscriberCountString string `json:"subscriberCountString"`
	FreeSubscriberCount   string `json:"freeSubscriberCount"`
	BestsellerTier        int    `json:"bestseller_tier"`
	ProfileSetUpAt        string `json:"profile_set_up_at"`
}

// PublicProfile fetches subscriber/bestseller metadata for one user,
// addressed by id plus slug. The returned byline carries UpdatedAt=now so
// the staleness window starts at fetch time.
func (c *Client) PublicProfile(ctx context.Context, userID int64, slug string) (model.Byline, error) {
	u := fmt.Sprintf("%s/user/%d-%s/public_profile", c.baseURL, userID, url.PathEscape(slug))
	var raw rawProfile
	if err := c.fetchJSON(ctx, "public_profile", u, c.maxAttempts, c.backoff, &raw); err != nil {
		return model.Byline{}, err
	}
	if raw.ID == 0 {
		return model.Byline{}, fmt.Errorf("profile %d: missing id in payload", userID)
	}
	setUpAt, _ := parseDate(raw.ProfileSetUpAt)
	return model.Byline{
		UserID:                raw.ID,
		Slug:                  raw.Slug,
		Name:                  raw.Name,
		PhotoURL:              raw.PhotoURL,
		SubscriberCount:       raw.SubscriberCount,
		SubscriberCountString: raw.SubscriberCountString,
		FreeSubscriberCount:   raw.FreeSubscriberCount,
		BestsellerTier:        raw.BestsellerTier,
		ProfileSetUpAt:        setUpAt,
		UpdatedAt:             time.Now().UTC(),
	}, nil
}
