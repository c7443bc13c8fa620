package rank

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/OrelsProjects/articles-generator-sub002/internal/model"
	"github.com/OrelsProjects/articles-generator-sub002/internal/reactors"
)

type fakeSampler struct {
	posts    [][]string
	comments [][]string
}

func (f *fakeSampler) TopPosts(ctx context.Context, publicationID string, limit, offset int) ([]string, error) {
	page := offset / limit
	if page >= len(f.posts) {
		return nil, nil
	}
	return f.posts[page], nil
}

func (f *fakeSampler) RecentComments(ctx context.Context, publicationID string, limit, offset int) ([]string, error) {
	page := offset / limit
	if page >= len(f.comments) {
		return nil, nil
	}
	return f.comments[page], nil
}

type fakeSource struct {
	combined []model.Reactor
	posts    []string
	comments []string
	opts     reactors.Options
}

func (f *fakeSource) FetchReactorsForMany(ctx context.Context, postIDs, commentIDs []string, opts reactors.Options) []model.Reactor {
	f.posts = postIDs
	f.comments = commentIDs
	f.opts = opts
	return f.combined
}

type fakeAssocStore struct {
	rows    []model.PublicationAssociation
	failIdx map[int]bool // fail the nth upsert call (0-based)
	calls   int
}

func (f *fakeAssocStore) UpsertAssociation(ctx context.Context, a model.PublicationAssociation) error {
	idx := f.calls
	f.calls++
	if f.failIdx[idx] {
		return errors.New("row failed")
	}
	f.rows = append(f.rows, a)
	return nil
}

func engager(id int64) model.Reactor {
	return model.Reactor{UserID: id, Name: fmt.Sprintf("user-%d", id)}
}

func TestScoreEqualsAppearanceCount(t *testing.T) {
	// User 1 appears in three reactor lists, user 2 in one.
	combined := []model.Reactor{engager(1), engager(2), engager(1), engager(1)}
	got := BuildCandidates(combined)
	byID := make(map[int64]model.PotentialUser)
	for _, c := range got {
		byID[c.UserID] = c
	}
	if byID[1].Score != 3 || byID[2].Score != 1 {
		t.Fatalf("scores = %+v", byID)
	}
}

func TestSortCandidatesAscending(t *testing.T) {
	cs := []model.PotentialUser{
		{UserID: 1, Score: 5},
		{UserID: 2, Score: 1},
		{UserID: 3, Score: 3},
	}
	SortCandidatesByScore(cs)
	if !sort.SliceIsSorted(cs, func(i, j int) bool { return cs[i].Score < cs[j].Score }) {
		t.Fatalf("not ascending: %+v", cs)
	}
	if cs[0].UserID != 2 {
		t.Fatalf("lowest score not first: %+v", cs)
	}
}

func TestRunScoresRanksAndPersists(t *testing.T) {
	sampler := &fakeSampler{posts: [][]string{{"p1", "p2"}}, comments: [][]string{{"c1"}}}
	source := &fakeSource{combined: []model.Reactor{
		engager(1), engager(1), engager(2), engager(3), engager(1),
	}}
	store := &fakeAssocStore{}
	o := NewOrchestrator(sampler, source, store)

	got, err := o.Run(context.Background(), "pub-1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("candidates = %d, want 3", len(got))
	}
	if !source.opts.SaveNewProfiles || !source.opts.IncludeScoreData {
		t.Fatalf("fan-out opts = %+v", source.opts)
	}
	if len(store.rows) != 3 {
		t.Fatalf("persisted = %d, want 3", len(store.rows))
	}
	// ascending: user 1 (score 3) must be last
	if got[len(got)-1].UserID != 1 || got[len(got)-1].Score != 3 {
		t.Fatalf("ranking wrong: %+v", got)
	}
	for _, r := range store.rows {
		if r.PublicationID != "pub-1" {
			t.Fatalf("bad publication key: %+v", r)
		}
	}
}

func TestRunExcludesOwnAuthor(t *testing.T) {
	sampler := &fakeSampler{posts: [][]string{{"p1"}}}
	source := &fakeSource{combined: []model.Reactor{engager(1), engager(99), engager(99)}}
	store := &fakeAssocStore{}
	o := NewOrchestrator(sampler, source, store)

	got, err := o.Run(context.Background(), "pub-1", 99)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range got {
		if c.UserID == 99 {
			t.Fatal("own author not excluded")
		}
	}
	if len(store.rows) != 1 {
		t.Fatalf("persisted = %d, want 1", len(store.rows))
	}
}

func TestPersistBatchToleratesSingleRowFailure(t *testing.T) {
	var combined []model.Reactor
	for i := int64(1); i <= 10; i++ {
		combined = append(combined, engager(i))
	}
	sampler := &fakeSampler{posts: [][]string{{"p1"}}}
	source := &fakeSource{combined: combined}
	store := &fakeAssocStore{failIdx: map[int]bool{4: true}} // row 5 of the batch
	o := NewOrchestrator(sampler, source, store)

	if _, err := o.Run(context.Background(), "pub-1", 0); err != nil {
		t.Fatal(err)
	}
	if len(store.rows) != 9 {
		t.Fatalf("persisted = %d, want the other 9 rows", len(store.rows))
	}
}

func TestRunErrorsWhenNothingSampled(t *testing.T) {
	sampler := &fakeSampler{}
	source := &fakeSource{}
	store := &fakeAssocStore{}
	o := NewOrchestrator(sampler, source, store)
	if _, err := o.Run(context.Background(), "pub-1", 0); err == nil {
		t.Fatal("expected error with no sampled content")
	}
}

func TestRunPersistsJoinedSubscriberCounts(t *testing.T) {
	r := engager(1)
	r.SubscriberCount = 500
	sampler := &fakeSampler{posts: [][]string{{"p1"}}}
	source := &fakeSource{combined: []model.Reactor{r}}
	store := &fakeAssocStore{}
	o := NewOrchestrator(sampler, source, store)
	if _, err := o.Run(context.Background(), "pub-1", 0); err != nil {
		t.Fatal(err)
	}
	if store.rows[0].SubscriberCount != 500 {
		t.Fatalf("subscriber count not persisted: %+v", store.rows[0])
	}
}
