package crawl

import (
	"time"

	"github.com/OrelsProjects/articles-generator-sub002/internal/model"
)

// StreakAnalyzer computes the consecutive-activity-day count over a note set
// at a point in time during a crawl. The crawler only compares successive
// snapshots, so any monotone notion of "streak" works.
type StreakAnalyzer interface {
	Streak(notes []model.NoteComment, now time.Time) int
}

// CalendarStreak is the default analyzer: the number of consecutive calendar
// days (UTC), counting back from today, with at least one note. A gap of one
// day at the head is tolerated so a streak survives until end of the current
// day.
type CalendarStreak struct{}

func (CalendarStreak) Streak(notes []model.NoteComment, now time.Time) int {
	days := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		days[n.Date.UTC().Format("2006-01-02")] = struct{}{}
	}
	day := now.UTC().Truncate(24 * time.Hour)
	if _, ok := days[day.Format("2006-01-02")]; !ok {
		day = day.AddDate(0, 0, -1)
	}
	streak := 0
	for {
		if _, ok := days[day.Format("2006-01-02")]; !ok {
			return streak
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
}
