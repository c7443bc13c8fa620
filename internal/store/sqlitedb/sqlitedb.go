// Package sqlitedb is the concrete persistence behind the pipeline's store
// interfaces: author note history, the byline cache, ranked publication
// associations, and job cursors. Consumers depend on the narrow find/upsert
// interfaces they declare, never on this package's full surface.
package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/OrelsProjects/articles-generator-sub002/internal/model"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS note_comments (
	  entity_key TEXT NOT NULL,
	  date INTEGER NOT NULL,
	  author_id INTEGER NOT NULL,
	  type TEXT NOT NULL,
	  body TEXT,
	  handle TEXT,
	  name TEXT,
	  photo_url TEXT,
	  reaction_count INTEGER NOT NULL DEFAULT 0,
	  child_count INTEGER NOT NULL DEFAULT 0,
	  restack_count INTEGER NOT NULL DEFAULT 0,
	  restacked INTEGER NOT NULL DEFAULT 0,
	  context_type TEXT,
	  PRIMARY KEY (entity_key, date)
	);
	CREATE INDEX IF NOT EXISTS idx_notes_author ON note_comments(author_id);
	CREATE TABLE IF NOT EXISTS bylines (
	  user_id INTEGER PRIMARY KEY,
	  slug TEXT,
	  name TEXT,
	  photo_url TEXT,
	  subscriber_count INTEGER NOT NULL DEFAULT 0,
	  subscriber_count_string TEXT,
	  free_subscriber_count TEXT,
	  bestseller_tier INTEGER NOT NULL DEFAULT 0,
	  profile_set_up_at INTEGER,
	  updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS publication_associations (
	  publication_id TEXT NOT NULL,
	  user_id INTEGER NOT NULL,
	  score INTEGER NOT NULL DEFAULT 0,
	  is_following INTEGER NOT NULL DEFAULT 0,
	  is_subscribed INTEGER NOT NULL DEFAULT 0,
	  subscriber_count INTEGER NOT NULL DEFAULT 0,
	  bestseller_tier INTEGER NOT NULL DEFAULT 0,
	  updated_at INTEGER NOT NULL,
	  PRIMARY KEY (publication_id, user_id)
	);
	CREATE TABLE IF NOT EXISTS cursors (
	  key TEXT PRIMARY KEY,
	  value TEXT NOT NULL
	);
	`)
	return err
}

// NotesByAuthor returns every stored note for the author, newest first.
func (d *DB) NotesByAuthor(ctx context.Context, authorID int64) ([]model.NoteComment, error) {
	rows, err := d.sql.QueryContext(ctx, `
		SELECT entity_key, date, author_id, type, body, handle, name, photo_url,
		       reaction_count, child_count, restack_count, restacked, context_type
		FROM note_comments WHERE author_id=? ORDER BY date DESC`, authorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.NoteComment
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// UpsertNote inserts or updates one note keyed by (entity_key, date).
func (d *DB) UpsertNote(ctx context.Context, n model.NoteComment) error {
	_, err := d.sql.ExecContext(ctx, `
		INSERT INTO note_comments
		  (entity_key, date, author_id, type, body, handle, name, photo_url,
		   reaction_count, child_count, restack_count, restacked, context_type)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(entity_key, date) DO UPDATE SET
		  body=excluded.body,
		  handle=excluded.handle,
		  name=excluded.name,
		  photo_url=excluded.photo_url,
		  reaction_count=excluded.reaction_count,
		  child_count=excluded.child_count,
		  restack_count=excluded.restack_count,
		  restacked=excluded.restacked,
		  context_type=excluded.context_type`,
		n.EntityKey, n.Date.Unix(), n.AuthorID, n.Type, n.Body, n.Handle, n.Name, n.PhotoURL,
		n.ReactionCount, n.ChildCount, n.RestackCount, boolInt(n.Restacked), n.ContextType)
	return err
}

// BylinesByIDs loads cached bylines for the given user ids. Missing ids are
// simply absent from the result.
func (d *DB) BylinesByIDs(ctx context.Context, ids []int64) ([]model.Byline, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ph := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		ph[i] = "?"
		args[i] = id
	}
	q := fmt.Sprintf(`
		SELECT user_id, slug, name, photo_url, subscriber_count, subscriber_count_string,
		       free_subscriber_count, bestseller_tier, profile_set_up_at, updated_at
		FROM bylines WHERE user_id IN (%s)`, strings.Join(ph, ","))
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Byline
	for rows.Next() {
		var b model.Byline
		var slug, name, photo, countStr, freeCount sql.NullString
		var setUpAt sql.NullInt64
		var updatedAt int64
		if err := rows.Scan(&b.UserID, &slug, &name, &photo, &b.SubscriberCount, &countStr,
			&freeCount, &b.BestsellerTier, &setUpAt, &updatedAt); err != nil {
			return nil, err
		}
		b.Slug = slug.String
		b.Name = name.String
		b.PhotoURL = photo.String
		b.SubscriberCountString = countStr.String
		b.FreeSubscriberCount = freeCount.String
		if setUpAt.Valid {
			b.ProfileSetUpAt = time.Unix(setUpAt.Int64, 0).UTC()
		}
		b.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpsertByline inserts or updates one byline keyed by user id.
func (d *DB) UpsertByline(ctx context.Context, b model.Byline) error {
	var setUpAt any
	if !b.ProfileSetUpAt.IsZero() {
		setUpAt = b.ProfileSetUpAt.Unix()
	}
	updated := b.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	_, err := d.sql.ExecContext(ctx, `
		INSERT INTO bylines
		  (user_id, slug, name, photo_url, subscriber_count, subscriber_count_string,
		   free_subscriber_count, bestseller_tier, profile_set_up_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(user_id) DO UPDATE SET
		  slug=excluded.slug,
		  name=excluded.name,
		  photo_url=excluded.photo_url,
		  subscriber_count=excluded.subscriber_count,
		  subscriber_count_string=excluded.subscriber_count_string,
		  free_subscriber_count=excluded.free_subscriber_count,
		  bestseller_tier=excluded.bestseller_tier,
		  profile_set_up_at=excluded.profile_set_up_at,
		  updated_at=excluded.updated_at`,
		b.UserID, b.Slug, b.Name, b.PhotoURL, b.SubscriberCount, b.SubscriberCountString,
		b.FreeSubscriberCount, b.BestsellerTier, setUpAt, updated.Unix())
	return err
}

// Association loads one ranked row by its composite key.
func (d *DB) Association(ctx context.Context, publicationID string, userID int64) (model.PublicationAssociation, error) {
	row := d.sql.QueryRowContext(ctx, `
		SELECT publication_id, user_id, score, is_following, is_subscribed, subscriber_count, bestseller_tier
		FROM publication_associations WHERE publication_id=? AND user_id=?`, publicationID, userID)
	var a model.PublicationAssociation
	var following, subscribed int
	if err := row.Scan(&a.PublicationID, &a.UserID, &a.Score, &following, &subscribed, &a.SubscriberCount, &a.BestsellerTier); err != nil {
		return a, err
	}
	a.IsFollowing = following != 0
	a.IsSubscribed = subscribed != 0
	return a, nil
}

// UpsertAssociation inserts or updates one ranked row keyed by
// (publication_id, user_id). Rows are never deleted by the pipeline.
func (d *DB) UpsertAssociation(ctx context.Context, a model.PublicationAssociation) error {
	_, err := d.sql.ExecContext(ctx, `
		INSERT INTO publication_associations
		  (publication_id, user_id, score, is_following, is_subscribed, subscriber_count, bestseller_tier, updated_at)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT(publication_id, user_id) DO UPDATE SET
		  score=excluded.score,
		  is_following=excluded.is_following,
		  is_subscribed=excluded.is_subscribed,
		  subscriber_count=excluded.subscriber_count,
		  bestseller_tier=excluded.bestseller_tier,
		  updated_at=excluded.updated_at`,
		a.PublicationID, a.UserID, a.Score, boolInt(a.IsFollowing), boolInt(a.IsSubscribed),
		a.SubscriberCount, a.BestsellerTier, time.Now().UTC().Unix())
	return err
}

// SaveCursor stores an opaque job bookmark.
func (d *DB) SaveCursor(ctx context.Context, key, value string) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO cursors(key, value) VALUES(?,?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		key, value)
	return err
}

// LoadCursor returns the stored bookmark, or empty if absent.
func (d *DB) LoadCursor(ctx context.Context, key string) (string, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT value FROM cursors WHERE key=?`, key)
	var v string
	if err := row.Scan(&v); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return v, nil
}

func scanNote(rows *sql.Rows) (model.NoteComment, error) {
	var n model.NoteComment
	var date int64
	var restacked int
	var body, handle, name, photo, contextType sql.NullString
	if err := rows.Scan(&n.EntityKey, &date, &n.AuthorID, &n.Type, &body, &handle, &name, &photo,
		&n.ReactionCount, &n.ChildCount, &n.RestackCount, &restacked, &contextType); err != nil {
		return n, err
	}
	n.Date = time.Unix(date, 0).UTC()
	n.Body = body.String
	n.Handle = handle.String
	n.Name = name.String
	n.PhotoURL = photo.String
	n.Restacked = restacked != 0
	n.ContextType = contextType.String
	return n, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
