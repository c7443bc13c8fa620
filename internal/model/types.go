package model

import "time"

// NoteComment is one activity item from an author's note/comment history,
// normalized from the upstream profile feed.
type NoteComment struct {
	EntityKey     string
	Type          string // comment, note
	AuthorID      int64
	Body          string
	Date          time.Time
	Handle        string
	Name          string
	PhotoURL      string
	ReactionCount int
	ChildCount    int
	RestackCount  int
	Restacked     bool
	ContextType   string
}

// NoteKey is the identity of a NoteComment. Two records with equal keys are
// the same record.
type NoteKey struct {
	EntityKey string
	Date      int64 // unix seconds
}

// Key returns the identity key for the note.
func (n NoteComment) Key() NoteKey {
	return NoteKey{EntityKey: n.EntityKey, Date: n.Date.Unix()}
}

// Reactor is a platform user who reacted to a post or comment, as returned
// by the reactors endpoint. Flags are relative to the publication owner.
type Reactor struct {
	UserID          int64
	Name            string
	Handle          string
	PhotoURL        string
	IsFollowing     bool
	IsSubscribed    bool
	BestsellerTier  int
	SubscriberCount int
}

// Byline is the cached profile of an external user. UpdatedAt governs the
// staleness window.
type Byline struct {
	UserID                int64
	Slug                  string
	Name                  string
	PhotoURL              string
	SubscriberCount       int
	SubscriberCountString string
	FreeSubscriberCount   string
	BestsellerTier        int
	ProfileSetUpAt        time.Time
	UpdatedAt             time.Time
}

// ProfileStaleness is how old a cached Byline may get before a run refreshes it.
const ProfileStaleness = 24 * time.Hour

// Stale reports whether the byline is eligible for refresh at time now.
func (b Byline) Stale(now time.Time) bool {
	return now.Sub(b.UpdatedAt) >= ProfileStaleness
}

// PotentialUser is a scored engager candidate for a publication. It is a
// derived view over reactor appearances and cached bylines, never persisted
// directly.
type PotentialUser struct {
	UserID         int64
	Name           string
	IsFollowing    bool
	IsSubscribed   bool
	BestsellerTier int
	Score          int
}

// PublicationAssociation is the persisted ranked row linking a publication to
// an engager. Keyed by (PublicationID, UserID); upsert-only, the score always
// reflects the most recent orchestration run.
type PublicationAssociation struct {
	PublicationID   string
	UserID          int64
	Score           int
	IsFollowing     bool
	IsSubscribed    bool
	SubscriberCount int
	BestsellerTier  int
}
