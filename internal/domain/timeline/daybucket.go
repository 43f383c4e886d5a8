// Package timeline reconstructs, day by day, which care level every
// positive case occupied between a fixed kickoff date and now.
package timeline

import (
	"sort"
	"time"

	"github.com/clinsight/wardwatch/internal/domain/carelevel"
)

// EpochDay identifies one UTC calendar day as days since the Unix epoch.
type EpochDay int64

const secondsPerDay = 24 * 60 * 60

// ToEpochDay truncates t to its UTC calendar day.
func ToEpochDay(t time.Time) EpochDay {
	u := t.UTC()
	midnight := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return EpochDay(midnight.Unix() / secondsPerDay)
}

// Time returns midnight UTC of the day.
func (d EpochDay) Time() time.Time {
	return time.Unix(int64(d)*secondsPerDay, 0).UTC()
}

// DayBucket is the result of a timeline run: for every day on the axis
// and every care level, the set of case ids attributed to that level on
// that day. Days are appended in strictly ascending order during the
// walk; after the run the bucket is read-only.
type DayBucket struct {
	days   []EpochDay
	byLevel map[carelevel.Level]map[EpochDay]map[string]struct{}
}

func newDayBucket() *DayBucket {
	b := &DayBucket{byLevel: make(map[carelevel.Level]map[EpochDay]map[string]struct{})}
	for _, lvl := range carelevel.Ranked() {
		b.byLevel[lvl] = make(map[EpochDay]map[string]struct{})
	}
	return b
}

func (b *DayBucket) appendDay(d EpochDay) {
	b.days = append(b.days, d)
	for _, lvl := range carelevel.Ranked() {
		b.byLevel[lvl][d] = make(map[string]struct{})
	}
}

func (b *DayBucket) add(lvl carelevel.Level, d EpochDay, caseID string) {
	b.byLevel[lvl][d][caseID] = struct{}{}
}

// Days returns the date axis as epoch days, ascending.
func (b *DayBucket) Days() []EpochDay {
	return b.days
}

// Dates returns the date axis as UTC midnights, ascending.
func (b *DayBucket) Dates() []time.Time {
	out := make([]time.Time, len(b.days))
	for i, d := range b.days {
		out[i] = d.Time()
	}
	return out
}

// CaseIDs returns the case ids attributed to the level on the day,
// sorted for stable output.
func (b *DayBucket) CaseIDs(lvl carelevel.Level, d EpochDay) []string {
	set := b.byLevel[lvl][d]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Count returns the number of cases at the level on the day.
func (b *DayBucket) Count(lvl carelevel.Level, d EpochDay) int {
	return len(b.byLevel[lvl][d])
}

// Counts returns the per-day counts for the level, aligned with Days.
func (b *DayBucket) Counts(lvl carelevel.Level) []int {
	out := make([]int, len(b.days))
	for i, d := range b.days {
		out[i] = len(b.byLevel[lvl][d])
	}
	return out
}
