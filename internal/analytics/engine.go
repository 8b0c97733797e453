package analytics

import (
	"context"
	"time"

	"github.com/PratikDhanave/web-analytics-service/internal/apperrors"
	"github.com/PratikDhanave/web-analytics-service/internal/models"
)

// EventReader is the read side of the event store used by the engine.
type EventReader interface {
	All(ctx context.Context) ([]models.Event, error)
	BySession(ctx context.Context, sessionID string) ([]models.Event, error)
	ClicksByPage(ctx context.Context, pageURL string) ([]models.Event, error)
}

// Engine serves the read-side projections.
type Engine struct {
	events EventReader
	now    func() time.Time
	mode   CountMode
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for session status.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithCountMode selects the session-list views/clicks attribution.
func WithCountMode(mode CountMode) Option {
	return func(e *Engine) { e.mode = mode }
}

// NewEngine builds an engine over r.
func NewEngine(r EventReader, opts ...Option) *Engine {
	e := &Engine{
		events: r,
		now:    time.Now,
		mode:   CountFirstEvent,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Sessions returns one summary per session, most recently active first.
func (e *Engine) Sessions(ctx context.Context) ([]models.Session, error) {
	events, err := e.events.All(ctx)
	if err != nil {
		return nil, apperrors.Store("list events", err)
	}
	return SummarizeSessions(events, e.now(), e.mode), nil
}

// SessionDetail returns the ordered events and counters of one session.
func (e *Engine) SessionDetail(ctx context.Context, sessionID string) (models.SessionDetail, error) {
	events, err := e.events.BySession(ctx, sessionID)
	if err != nil {
		return models.SessionDetail{}, apperrors.Store("list session events", err)
	}
	detail, ok := BuildSessionDetail(sessionID, events, e.now())
	if !ok {
		return models.SessionDetail{}, apperrors.NotFound("Session not found")
	}
	return detail, nil
}

// SessionEvents returns the events of one session in chronological order.
// An unknown session yields an empty list.
func (e *Engine) SessionEvents(ctx context.Context, sessionID string) ([]models.Event, error) {
	events, err := e.events.BySession(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Store("list session events", err)
	}
	if events == nil {
		events = []models.Event{}
	}
	SortChronological(events)
	return events, nil
}

// Heatmap buckets the clicks recorded on pageURL.
func (e *Engine) Heatmap(ctx context.Context, pageURL string) ([]models.HeatmapBucket, error) {
	if pageURL == "" {
		return nil, apperrors.BadRequest("page_url query param is required")
	}
	events, err := e.events.ClicksByPage(ctx, pageURL)
	if err != nil {
		return nil, apperrors.Store("list page clicks", err)
	}
	return BucketClicks(events, pageURL), nil
}

// Dashboard returns totals over every stored event.
func (e *Engine) Dashboard(ctx context.Context) (models.DashboardStats, error) {
	events, err := e.events.All(ctx)
	if err != nil {
		return models.DashboardStats{}, apperrors.Store("list events", err)
	}
	return ComputeDashboard(events, e.now()), nil
}
