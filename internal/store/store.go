package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PratikDhanave/web-analytics-service/internal/models"
)

// Store is the append-only event store. Implementations persist events
// verbatim and leave every grouping/ordering decision to the caller.
type Store interface {
	// Append persists one event and returns it as stored.
	Append(ctx context.Context, ev models.Event) (models.Event, error)

	// All returns every stored event.
	All(ctx context.Context) ([]models.Event, error)

	// BySession returns the events of one session.
	BySession(ctx context.Context, sessionID string) ([]models.Event, error)

	// ClicksByPage returns the click events recorded on pageURL.
	ClicksByPage(ctx context.Context, pageURL string) ([]models.Event, error)

	// EnsureSchema creates tables/indexes. Safe to run multiple times.
	EnsureSchema(ctx context.Context) error

	// Ping checks connectivity for the readiness endpoint.
	Ping(ctx context.Context) error

	Close() error
}

// Backend names the storage engine behind a connection string.
type Backend string

const (
	BackendPostgres Backend = "postgres"
	BackendMongo    Backend = "mongodb"
	BackendSQLite   Backend = "sqlite"
)

// BackendFor picks the backend from the connection string scheme.
func BackendFor(dbURL string) (Backend, error) {
	lower := strings.ToLower(strings.TrimSpace(dbURL))
	switch {
	case lower == "":
		return "", fmt.Errorf("database URL is required")
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return BackendPostgres, nil
	case strings.HasPrefix(lower, "mongodb://"), strings.HasPrefix(lower, "mongodb+srv://"):
		return BackendMongo, nil
	case strings.HasPrefix(lower, "sqlite://"), strings.HasPrefix(lower, "file:"):
		return BackendSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database URL scheme in %q (want postgres://, mongodb:// or sqlite://)", Redact(dbURL))
	}
}

// Open connects to the store named by dbURL and fails fast if it is
// unreachable.
func Open(ctx context.Context, dbURL string) (Store, error) {
	backend, err := BackendFor(dbURL)
	if err != nil {
		return nil, err
	}
	switch backend {
	case BackendPostgres:
		return NewPostgresStore(ctx, dbURL)
	case BackendMongo:
		return NewMongoStore(ctx, dbURL)
	default:
		return OpenSQLite(DefaultSQLiteOptions(sqlitePath(dbURL)))
	}
}

// sqlitePath strips the sqlite:// or file: prefix.
func sqlitePath(dbURL string) string {
	dbURL = strings.TrimSpace(dbURL)
	for _, prefix := range []string{"sqlite://", "file:"} {
		if len(dbURL) >= len(prefix) && strings.EqualFold(dbURL[:len(prefix)], prefix) {
			return dbURL[len(prefix):]
		}
	}
	return dbURL
}

// Redact hides credentials before a URL ends up in an error or a log line.
func Redact(dbURL string) string {
	at := strings.LastIndex(dbURL, "@")
	scheme := strings.Index(dbURL, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dbURL
	}
	return dbURL[:scheme+3] + "***" + dbURL[at:]
}

func coordsArgs(c *models.ClickCoordinates) (x, y *float64) {
	if c == nil {
		return nil, nil
	}
	cx, cy := c.X, c.Y
	return &cx, &cy
}

func coordsFrom(x, y *float64) *models.ClickCoordinates {
	if x == nil || y == nil {
		return nil
	}
	return &models.ClickCoordinates{X: *x, Y: *y}
}

func utcMillis(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
