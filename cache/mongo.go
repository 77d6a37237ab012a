package cache

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

// MongoStore is a Store backend on top of a MongoDB collection, offering a
// second pluggable cache backend alongside Redis for deployments that
// already run Mongo for other durable state. Entries additionally carry a
// TTL index so Mongo itself reaps expired documents in the background;
// Get still checks expiry client-side so a lagging index sweep never
// serves a stale hit.
type MongoStore struct {
	collection *mongo.Collection
	logger     *zap.Logger
	timeout    time.Duration
}

type mongoEntry struct {
	ID        string    `bson:"_id"`
	Value     any       `bson:"value"`
	ExpiresAt time.Time `bson:"expiresAt"`
}

// NewMongoStore wraps an existing collection. Call EnsureTTLIndex once at
// startup to have Mongo reap expired documents server-side.
func NewMongoStore(collection *mongo.Collection, logger *zap.Logger) *MongoStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MongoStore{
		collection: collection,
		logger:     logger.With(zap.String("component", "cache_mongo")),
		timeout:    5 * time.Second,
	}
}

// EnsureTTLIndex creates a TTL index on expiresAt so Mongo automatically
// deletes documents once they expire. expireAfter is set to 0 so the
// index honors each document's own ExpiresAt value.
func (m *MongoStore) EnsureTTLIndex(ctx context.Context) error {
	_, err := m.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return err
}

// Get fetches the document stored under key, treating one whose
// ExpiresAt has already elapsed as a miss even if the TTL index has not
// swept it yet.
func (m *MongoStore) Get(key string) (any, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	var doc mongoEntry
	err := m.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if err != mongo.ErrNoDocuments {
			m.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if !doc.ExpiresAt.IsZero() && time.Now().After(doc.ExpiresAt) {
		return nil, false
	}
	return normalizeBSON(doc.Value), true
}

// Set upserts value under key with the given TTL. A zero ttl means the
// document is never considered expired (ExpiresAt is left zero).
func (m *MongoStore) Set(key string, value any, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}
	_, err := m.collection.ReplaceOne(ctx,
		bson.M{"_id": key},
		mongoEntry{ID: key, Value: value, ExpiresAt: expires},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		m.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes the document stored under key.
func (m *MongoStore) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	if _, err := m.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		m.logger.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
	}
}

// normalizeBSON converts bson's own map/slice types back into the plain
// map[string]any / []any shape the rest of the engine deals in, so a
// value round-tripped through Mongo compares equal to one that never left
// the process.
func normalizeBSON(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeBSON(val)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, elem := range t {
			out[elem.Key] = normalizeBSON(elem.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeBSON(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeBSON(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeBSON(item)
		}
		return out
	default:
		return v
	}
}
