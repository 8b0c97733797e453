package models

import "time"

// EventType enumerates the interactions the collector accepts.
type EventType string

const (
	EventTypePageView EventType = "page_view"
	EventTypeClick    EventType = "click"
)

// Valid reports whether t is one of the accepted event types.
func (t EventType) Valid() bool {
	return t == EventTypePageView || t == EventTypeClick
}

// ClickCoordinates are pixel offsets of a click relative to the page.
type ClickCoordinates struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Event is a stored, immutable interaction record.
// ClickCoordinates is set iff EventType is click.
type Event struct {
	ID               string            `json:"id"`
	SessionID        string            `json:"session_id"`
	EventType        EventType         `json:"event_type"`
	PageURL          string            `json:"page_url"`
	ClickCoordinates *ClickCoordinates `json:"click_coordinates,omitempty"`
	Timestamp        time.Time         `json:"timestamp"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// EventInput is a validated POST /api/events payload.
// Timestamp is nil when the client omitted it.
type EventInput struct {
	SessionID        string
	EventType        EventType
	PageURL          string
	ClickCoordinates *ClickCoordinates
	Timestamp        *time.Time
}

// ToEvent stamps the record metadata. A missing timestamp defaults to now.
func (in EventInput) ToEvent(id string, now time.Time) Event {
	now = now.UTC().Truncate(time.Millisecond)
	ts := now
	if in.Timestamp != nil {
		ts = in.Timestamp.UTC().Truncate(time.Millisecond)
	}

	var coords *ClickCoordinates
	if in.ClickCoordinates != nil {
		c := *in.ClickCoordinates
		coords = &c
	}

	return Event{
		ID:               id,
		SessionID:        in.SessionID,
		EventType:        in.EventType,
		PageURL:          in.PageURL,
		ClickCoordinates: coords,
		Timestamp:        ts,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
