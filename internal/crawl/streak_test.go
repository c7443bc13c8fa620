package crawl

import (
	"testing"
	"time"

	"github.com/OrelsProjects/articles-generator-sub002/internal/model"
)

func dayNote(key string, daysAgo int) model.NoteComment {
	return model.NoteComment{
		EntityKey: key,
		Type:      "comment",
		Date:      time.Now().UTC().AddDate(0, 0, -daysAgo),
	}
}

func TestCalendarStreakCountsConsecutiveDays(t *testing.T) {
	now := time.Now().UTC()
	notes := []model.NoteComment{
		dayNote("a", 0),
		dayNote("b", 1),
		dayNote("c", 2),
		dayNote("d", 5), // gap at day 3 ends the streak
	}
	if got := (CalendarStreak{}).Streak(notes, now); got != 3 {
		t.Fatalf("streak = %d, want 3", got)
	}
}

func TestCalendarStreakToleratesMissingToday(t *testing.T) {
	now := time.Now().UTC()
	notes := []model.NoteComment{dayNote("a", 1), dayNote("b", 2)}
	if got := (CalendarStreak{}).Streak(notes, now); got != 2 {
		t.Fatalf("streak = %d, want 2", got)
	}
}

func TestCalendarStreakEmpty(t *testing.T) {
	if got := (CalendarStreak{}).Streak(nil, time.Now().UTC()); got != 0 {
		t.Fatalf("streak = %d, want 0", got)
	}
}
