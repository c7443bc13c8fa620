package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/OrelsProjects/articles-generator-sub002/internal/crawl"
	"github.com/OrelsProjects/articles-generator-sub002/internal/model"
)

type fakeCrawler struct{ res crawl.Result }

func (f *fakeCrawler) Crawl(ctx context.Context, authorID int64, opts crawl.Options) (crawl.Result, error) {
	return f.res, nil
}

type fakeSyncStore struct {
	notes    []model.NoteComment
	cursors  map[string]string
	failKeys map[string]bool
}

func (f *fakeSyncStore) UpsertNote(ctx context.Context, n model.NoteComment) error {
	if f.failKeys[n.EntityKey] {
		return errors.New("disk full")
	}
	f.notes = append(f.notes, n)
	return nil
}

func (f *fakeSyncStore) SaveCursor(ctx context.Context, key, value string) error {
	if f.cursors == nil {
		f.cursors = make(map[string]string)
	}
	f.cursors[key] = value
	return nil
}

func TestSyncPersistsNewNotesOnly(t *testing.T) {
	now := time.Now().UTC()
	all := []model.NoteComment{
		{EntityKey: "old", Date: now.Add(-time.Hour)},
		{EntityKey: "new", Date: now},
	}
	cr := &fakeCrawler{res: crawl.Result{AllNotes: all, NewNotes: all[1:], StopReason: crawl.StopNoCursor}}
	store := &fakeSyncStore{}

	res, err := SyncAuthorNotes(context.Background(), cr, store, 7, crawl.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(store.notes) != 1 || store.notes[0].EntityKey != "new" {
		t.Fatalf("persisted %+v, want only the new note", store.notes)
	}
	if len(res.AllNotes) != 2 {
		t.Fatalf("allNotes = %d", len(res.AllNotes))
	}
	if _, ok := store.cursors["sync:last_run:7"]; !ok {
		t.Fatal("last-run cursor not saved")
	}
}

func TestSyncContinuesPastUpsertFailure(t *testing.T) {
	now := time.Now().UTC()
	newNotes := []model.NoteComment{
		{EntityKey: "a", Date: now},
		{EntityKey: "b", Date: now.Add(-time.Minute)},
		{EntityKey: "c", Date: now.Add(-2 * time.Minute)},
	}
	cr := &fakeCrawler{res: crawl.Result{AllNotes: newNotes, NewNotes: newNotes, StopReason: crawl.StopNoCursor}}
	store := &fakeSyncStore{failKeys: map[string]bool{"b": true}}

	if _, err := SyncAuthorNotes(context.Background(), cr, store, 7, crawl.Options{}); err != nil {
		t.Fatal(err)
	}
	if len(store.notes) != 2 {
		t.Fatalf("persisted = %d, want failure skipped", len(store.notes))
	}
}
