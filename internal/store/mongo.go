package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/PratikDhanave/web-analytics-service/internal/models"
)

const (
	defaultMongoDatabase = "analytics"
	mongoEventsColl      = "events"
)

// eventDocument is the bson shape of a stored event.
type eventDocument struct {
	ID               string               `bson:"_id"`
	SessionID        string               `bson:"session_id"`
	EventType        string               `bson:"event_type"`
	PageURL          string               `bson:"page_url"`
	ClickCoordinates *coordinatesDocument `bson:"click_coordinates,omitempty"`
	Timestamp        time.Time            `bson:"timestamp"`
	CreatedAt        time.Time            `bson:"createdAt"`
	UpdatedAt        time.Time            `bson:"updatedAt"`
}

type coordinatesDocument struct {
	X float64 `bson:"x"`
	Y float64 `bson:"y"`
}

func toDocument(ev models.Event) eventDocument {
	doc := eventDocument{
		ID:        ev.ID,
		SessionID: ev.SessionID,
		EventType: string(ev.EventType),
		PageURL:   ev.PageURL,
		Timestamp: utcMillis(ev.Timestamp),
		CreatedAt: utcMillis(ev.CreatedAt),
		UpdatedAt: utcMillis(ev.UpdatedAt),
	}
	if ev.ClickCoordinates != nil {
		doc.ClickCoordinates = &coordinatesDocument{X: ev.ClickCoordinates.X, Y: ev.ClickCoordinates.Y}
	}
	return doc
}

func (d eventDocument) toEvent() models.Event {
	ev := models.Event{
		ID:        d.ID,
		SessionID: d.SessionID,
		EventType: models.EventType(d.EventType),
		PageURL:   d.PageURL,
		Timestamp: d.Timestamp.UTC(),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
	if d.ClickCoordinates != nil {
		ev.ClickCoordinates = &models.ClickCoordinates{X: d.ClickCoordinates.X, Y: d.ClickCoordinates.Y}
	}
	return ev
}

// MongoStore keeps events in a MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to uri and fails fast if the primary is unreachable.
// The database is taken from the URI path, defaulting to "analytics".
func NewMongoStore(ctx context.Context, uri string) (*MongoStore, error) {
	dbName, err := mongoDatabaseName(uri)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return &MongoStore{
		client: client,
		coll:   client.Database(dbName).Collection(mongoEventsColl),
	}, nil
}

func mongoDatabaseName(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse mongodb uri: %w", err)
	}
	name := strings.Trim(u.Path, "/")
	if name == "" {
		return defaultMongoDatabase, nil
	}
	return name, nil
}

// EnsureSchema creates the query indexes. Creating an existing index is a no-op.
func (m *MongoStore) EnsureSchema(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "timestamp", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "page_url", Value: 1}, {Key: "event_type", Value: 1}},
		},
	}
	if _, err := m.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create event indexes: %w", err)
	}
	return nil
}

func (m *MongoStore) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// Append inserts one event document.
func (m *MongoStore) Append(ctx context.Context, ev models.Event) (models.Event, error) {
	if ev.ID == "" || ev.SessionID == "" || ev.PageURL == "" {
		return models.Event{}, errors.New("id/session_id/page_url required")
	}
	// MongoDB has no CHECK constraints; mirror the SQL schema here.
	if !ev.EventType.Valid() || (ev.EventType == models.EventTypeClick) != (ev.ClickCoordinates != nil) {
		return models.Event{}, fmt.Errorf("event %s: click_coordinates must be set iff event_type is click", ev.ID)
	}
	doc := toDocument(ev)
	if _, err := m.coll.InsertOne(ctx, doc); err != nil {
		return models.Event{}, fmt.Errorf("insert event %s: %w", ev.ID, err)
	}
	return doc.toEvent(), nil
}

// All returns every event in chronological order.
func (m *MongoStore) All(ctx context.Context) ([]models.Event, error) {
	return m.find(ctx, "list events", bson.M{})
}

// BySession returns the events of sessionID in chronological order.
func (m *MongoStore) BySession(ctx context.Context, sessionID string) ([]models.Event, error) {
	return m.find(ctx, "list session events", bson.M{"session_id": sessionID})
}

// ClicksByPage returns the click events recorded on pageURL.
func (m *MongoStore) ClicksByPage(ctx context.Context, pageURL string) ([]models.Event, error) {
	return m.find(ctx, "list page clicks", bson.M{
		"event_type": string(models.EventTypeClick),
		"page_url":   pageURL,
	})
}

func (m *MongoStore) find(ctx context.Context, op string, filter bson.M) ([]models.Event, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "timestamp", Value: 1},
		{Key: "createdAt", Value: 1},
		{Key: "_id", Value: 1},
	})

	cursor, err := m.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cursor.Close(ctx)

	var docs []eventDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}

	out := make([]models.Event, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toEvent())
	}
	return out, nil
}
