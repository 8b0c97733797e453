package store

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/PratikDhanave/web-analytics-service/internal/models"
)

// runStoreContract exercises the behaviour every backend must share. It
// only looks at events it wrote itself so it can run against shared
// databases.
func runStoreContract(t *testing.T, st Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := st.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := st.EnsureSchema(ctx); err != nil {
		t.Fatalf("second EnsureSchema() error = %v", err)
	}
	if err := st.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	session := "contract-" + ulid.Make().String()
	page := "/contract/" + session
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	later := models.Event{
		ID:               ulid.Make().String(),
		SessionID:        session,
		EventType:        models.EventTypeClick,
		PageURL:          page,
		ClickCoordinates: &models.ClickCoordinates{X: 10.7, Y: 3.2},
		Timestamp:        base.Add(90 * time.Second),
		CreatedAt:        base,
		UpdatedAt:        base,
	}
	earlier := models.Event{
		ID:        ulid.Make().String(),
		SessionID: session,
		EventType: models.EventTypePageView,
		PageURL:   page,
		Timestamp: base.Add(123456789 * time.Nanosecond),
		CreatedAt: base,
		UpdatedAt: base,
	}

	for _, ev := range []models.Event{later, earlier} {
		stored, err := st.Append(ctx, ev)
		if err != nil {
			t.Fatalf("Append(%s) error = %v", ev.ID, err)
		}
		if stored.ID != ev.ID {
			t.Fatalf("Append returned ID %q, want %q", stored.ID, ev.ID)
		}
	}

	got, err := st.BySession(ctx, session)
	if err != nil {
		t.Fatalf("BySession() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("BySession() returned %d events, want 2", len(got))
	}
	byID := map[string]models.Event{}
	for _, ev := range got {
		byID[ev.ID] = ev
	}

	click, ok := byID[later.ID]
	if !ok {
		t.Fatalf("click event missing from BySession()")
	}
	if click.ClickCoordinates == nil || *click.ClickCoordinates != *later.ClickCoordinates {
		t.Fatalf("click coordinates = %+v, want %+v", click.ClickCoordinates, later.ClickCoordinates)
	}
	if !click.Timestamp.Equal(later.Timestamp) {
		t.Fatalf("click timestamp = %v, want %v", click.Timestamp, later.Timestamp)
	}

	view, ok := byID[earlier.ID]
	if !ok {
		t.Fatalf("page view missing from BySession()")
	}
	if view.ClickCoordinates != nil {
		t.Fatalf("page view must not carry coordinates, got %+v", view.ClickCoordinates)
	}
	if want := base.Add(123 * time.Millisecond); !view.Timestamp.Equal(want) {
		t.Fatalf("page view timestamp = %v, want millisecond precision %v", view.Timestamp, want)
	}
	if view.Timestamp.Location() != time.UTC {
		t.Fatalf("timestamps must be returned in UTC, got %v", view.Timestamp.Location())
	}

	clicks, err := st.ClicksByPage(ctx, page)
	if err != nil {
		t.Fatalf("ClicksByPage() error = %v", err)
	}
	if len(clicks) != 1 || clicks[0].ID != later.ID {
		t.Fatalf("ClicksByPage() = %+v, want only %s", clicks, later.ID)
	}

	all, err := st.All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	seen := 0
	for _, ev := range all {
		if ev.SessionID == session {
			seen++
		}
	}
	if seen != 2 {
		t.Fatalf("All() contained %d events of the session, want 2", seen)
	}

	empty, err := st.BySession(ctx, session+"-missing")
	if err != nil {
		t.Fatalf("BySession(missing) error = %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("BySession(missing) returned %d events", len(empty))
	}

	if _, err := st.Append(ctx, later); err == nil {
		t.Fatalf("expected duplicate ID to be rejected")
	}
}
