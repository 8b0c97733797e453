// Package analytics computes session, heatmap and dashboard projections
// over stored events. Every projection is computed fresh from the events
// passed in; nothing is cached.
package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/PratikDhanave/web-analytics-service/internal/models"
)

// InactivityThreshold is how long after its last event a session stays
// Active. Shared by the session list, session detail and dashboard.
const InactivityThreshold = 30 * time.Minute

// CountMode selects how a session's views/clicks are attributed in the
// session list.
type CountMode string

const (
	// CountFirstEvent attributes the whole event count to views or clicks
	// depending on the type of the session's first event.
	CountFirstEvent CountMode = "first_event"

	// CountPerType tallies page views and clicks independently.
	CountPerType CountMode = "per_type"
)

// ParseCountMode validates a configured count mode. Empty means first_event.
func ParseCountMode(s string) (CountMode, error) {
	switch CountMode(s) {
	case "", CountFirstEvent:
		return CountFirstEvent, nil
	case CountPerType:
		return CountPerType, nil
	default:
		return "", fmt.Errorf("unknown session count mode %q (want %s or %s)", s, CountFirstEvent, CountPerType)
	}
}

// Status reports Active iff now-lastEvent is strictly below InactivityThreshold.
func Status(lastEvent, now time.Time) models.SessionStatus {
	if now.Sub(lastEvent) < InactivityThreshold {
		return models.SessionActive
	}
	return models.SessionEnded
}

// SortChronological orders events by timestamp, breaking ties by
// creation time and then ID so the order is stable across stores.
func SortChronological(events []models.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func durationSeconds(start, end time.Time) float64 {
	return float64(end.Sub(start).Milliseconds()) / 1000
}

type sessionAcc struct {
	id        string
	count     int
	pageViews int
	clicks    int
	first     models.Event
	start     time.Time
	end       time.Time
}

func (a *sessionAcc) add(ev models.Event) {
	if a.count == 0 {
		a.first = ev
		a.start = ev.Timestamp
		a.end = ev.Timestamp
	}
	a.count++
	if ev.Timestamp.Before(a.start) {
		a.start = ev.Timestamp
	}
	if ev.Timestamp.After(a.end) {
		a.end = ev.Timestamp
	}
	switch ev.EventType {
	case models.EventTypePageView:
		a.pageViews++
	case models.EventTypeClick:
		a.clicks++
	}
}

// groupSessions buckets events by session ID. The input is sorted in
// place so each accumulator sees its events chronologically.
func groupSessions(events []models.Event) []*sessionAcc {
	SortChronological(events)

	byID := make(map[string]*sessionAcc)
	order := make([]*sessionAcc, 0)
	for _, ev := range events {
		acc, ok := byID[ev.SessionID]
		if !ok {
			acc = &sessionAcc{id: ev.SessionID}
			byID[ev.SessionID] = acc
			order = append(order, acc)
		}
		acc.add(ev)
	}
	return order
}

// SummarizeSessions builds the session list, most recently active first.
func SummarizeSessions(events []models.Event, now time.Time, mode CountMode) []models.Session {
	groups := groupSessions(events)

	out := make([]models.Session, 0, len(groups))
	for _, g := range groups {
		s := models.Session{
			SessionID:  g.id,
			EventCount: g.count,
			StartTime:  g.start,
			EndTime:    g.end,
			Duration:   durationSeconds(g.start, g.end),
			Status:     Status(g.end, now),
		}
		if mode == CountPerType {
			s.Views = g.pageViews
			s.Clicks = g.clicks
		} else {
			switch g.first.EventType {
			case models.EventTypePageView:
				s.Views = g.count
			case models.EventTypeClick:
				s.Clicks = g.count
			}
		}
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].EndTime.Equal(out[j].EndTime) {
			return out[i].EndTime.After(out[j].EndTime)
		}
		return out[i].SessionID < out[j].SessionID
	})
	return out
}

// BuildSessionDetail summarizes one session. ok is false when events is empty.
func BuildSessionDetail(sessionID string, events []models.Event, now time.Time) (models.SessionDetail, bool) {
	if len(events) == 0 {
		return models.SessionDetail{}, false
	}
	SortChronological(events)

	start := events[0].Timestamp
	end := events[len(events)-1].Timestamp

	d := models.SessionDetail{
		SessionID:   sessionID,
		StartTime:   start,
		EndTime:     end,
		Duration:    durationSeconds(start, end),
		Status:      Status(end, now),
		TotalEvents: len(events),
		Events:      events,
	}
	for _, ev := range events {
		switch ev.EventType {
		case models.EventTypePageView:
			d.PageViews++
		case models.EventTypeClick:
			d.Clicks++
		}
	}
	return d, true
}

type bucketKey struct{ x, y float64 }

// floorPixel floors c without leaving the float64 range. Negative zero is
// folded into zero so both land in one bucket.
func floorPixel(c float64) float64 {
	f := math.Floor(c)
	if f == 0 {
		return 0
	}
	return f
}

// BucketClicks counts clicks on pageURL per floored pixel. Events of
// other pages or types are ignored.
func BucketClicks(events []models.Event, pageURL string) []models.HeatmapBucket {
	counts := make(map[bucketKey]int)
	for _, ev := range events {
		if ev.EventType != models.EventTypeClick || ev.PageURL != pageURL || ev.ClickCoordinates == nil {
			continue
		}
		k := bucketKey{
			x: floorPixel(ev.ClickCoordinates.X),
			y: floorPixel(ev.ClickCoordinates.Y),
		}
		counts[k]++
	}

	out := make([]models.HeatmapBucket, 0, len(counts))
	for k, n := range counts {
		out = append(out, models.HeatmapBucket{X: k.x, Y: k.y, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})
	return out
}

// ComputeDashboard derives the dashboard counters in a single pass.
func ComputeDashboard(events []models.Event, now time.Time) models.DashboardStats {
	last := make(map[string]time.Time)
	for _, ev := range events {
		if t, ok := last[ev.SessionID]; !ok || ev.Timestamp.After(t) {
			last[ev.SessionID] = ev.Timestamp
		}
	}

	stats := models.DashboardStats{
		TotalEvents:   len(events),
		TotalSessions: len(last),
	}
	for _, t := range last {
		if Status(t, now) == models.SessionActive {
			stats.ActiveSessions++
		}
	}
	if stats.TotalSessions > 0 {
		avg := float64(stats.TotalEvents) / float64(stats.TotalSessions)
		stats.AvgEventsPerSession = int(math.Floor(avg + 0.5))
	}
	return stats
}
