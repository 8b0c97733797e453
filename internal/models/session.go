package models

import "time"

// SessionStatus is derived from the time since a session's last event.
type SessionStatus string

const (
	SessionActive SessionStatus = "Active"
	SessionEnded  SessionStatus = "Ended"
)

// Session is one row of GET /api/events/sessions.
// Duration is in seconds.
type Session struct {
	SessionID  string        `json:"session_id"`
	EventCount int           `json:"eventCount"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
	Duration   float64       `json:"duration"`
	Status     SessionStatus `json:"status"`
	Views      int           `json:"views"`
	Clicks     int           `json:"clicks"`
}

// SessionDetail is returned by GET /api/events/session/:sessionId.
type SessionDetail struct {
	SessionID   string        `json:"session_id"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     time.Time     `json:"end_time"`
	Duration    float64       `json:"duration"`
	Status      SessionStatus `json:"status"`
	TotalEvents int           `json:"total_events"`
	PageViews   int           `json:"page_views"`
	Clicks      int           `json:"clicks"`
	Events      []Event       `json:"events"`
}

// HeatmapBucket counts clicks that landed on one floored pixel.
type HeatmapBucket struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Count int     `json:"count"`
}

// DashboardStats summarizes every stored event.
type DashboardStats struct {
	TotalSessions       int `json:"total_sessions"`
	TotalEvents         int `json:"total_events"`
	ActiveSessions      int `json:"active_sessions"`
	AvgEventsPerSession int `json:"avg_events_per_session"`
}
