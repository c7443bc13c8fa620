package substack

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/OrelsProjects/articles-generator-sub002/internal/config"
)

func newTestClient(baseURL string) *Client {
	c := NewClient(config.UpstreamConfig{BaseURL: baseURL, RPS: 1000, Burst: 1000})
	c.backoff = time.Millisecond
	return c
}

func TestFetchJSONRetriesTransientFailures(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.fetchJSON(context.Background(), "test", ts.URL, 3, time.Millisecond, &out); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if !out.OK || attempts != 3 {
		t.Fatalf("ok=%t attempts=%d", out.OK, attempts)
	}
}

func TestFetchJSONExhaustionIsNonFatalError(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	var out map[string]any
	err := c.fetchJSON(context.Background(), "test", ts.URL, 3, time.Millisecond, &out)
	if err == nil {
		t.Fatal("expected error after exhaustion")
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestFetchJSONDoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	var out map[string]any
	if err := c.fetchJSON(context.Background(), "test", ts.URL, 3, time.Millisecond, &out); err == nil {
		t.Fatal("expected error on 404")
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want no retry on 404", attempts)
	}
}

func TestProfileFeedPageSkipsMalformedItems(t *testing.T) {
	body := `{
		"items": [
			{"entity_key": "c-1", "type": "comment",
			 "comment": {"user_id": 9, "body": "hello", "date": "2025-08-01T10:00:00Z"}},
			{"entity_key": "", "type": "comment",
			 "comment": {"user_id": 9, "body": "no key", "date": "2025-08-01T10:00:00Z"}},
			{"entity_key": "c-3", "type": "comment",
			 "comment": {"user_id": 9, "body": "bad date", "date": "yesterday-ish"}}
		],
		"nextCursor": "abc"
	}`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	page, err := c.ProfileFeedPage(context.Background(), 9, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("items = %d, want malformed items skipped", len(page.Items))
	}
	if page.Items[0].EntityKey != "c-1" || page.Items[0].AuthorID != 9 {
		t.Fatalf("unexpected item %+v", page.Items[0])
	}
	if page.NextCursor != "abc" {
		t.Fatalf("nextCursor = %q", page.NextCursor)
	}
}

func TestReactorsDropsRowsWithoutID(t *testing.T) {
	body := `[
		{"id": 1, "name": "A", "handle": "a", "is_following": true},
		{"name": "ghost"},
		{"id": 2, "name": "B", "handle": "b", "is_subscribed": true, "bestseller_tier": 1}
	]`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	out, err := c.Reactors(context.Background(), "42", ContentPost, 3, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("reactors = %d, want 2", len(out))
	}
	if !out[0].IsFollowing || !out[1].IsSubscribed || out[1].BestsellerTier != 1 {
		t.Fatalf("flags not mapped: %+v", out)
	}
}
