package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shakilmiahcse/social-org-finance/internal/domain/audit"
	"github.com/shakilmiahcse/social-org-finance/internal/logger"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoAuditStore keeps an append-only audit trail, one document per event.
type MongoAuditStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

var _ audit.Recorder = (*MongoAuditStore)(nil)

type auditDocument struct {
	Entity         string                 `bson:"entity"`
	EntityId       string                 `bson:"entity_id"`
	OrganizationId string                 `bson:"organization_id"`
	ActorId        string                 `bson:"actor_id,omitempty"`
	Action         string                 `bson:"action"`
	Before         map[string]interface{} `bson:"before,omitempty"`
	After          map[string]interface{} `bson:"after,omitempty"`
	OccurredAt     time.Time              `bson:"occurred_at"`
}

func NewMongoAuditStore(ctx context.Context, uri, database, collection string) (*MongoAuditStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "entity_id", Value: 1}, {Key: "occurred_at", Value: -1}},
	})
	if err != nil {
		logger.Warn().Err(err).Msg("audit index creation failed")
	}
	return &MongoAuditStore{client: client, collection: coll}, nil
}

func (s *MongoAuditStore) Record(ctx context.Context, event audit.Event) {
	doc := auditDocument{
		Entity:         event.Entity,
		EntityId:       event.EntityId.String(),
		OrganizationId: event.OrganizationId.String(),
		Action:         string(event.Action),
		Before:         snapshotOf(event.Before),
		After:          snapshotOf(event.After),
		OccurredAt:     event.OccurredAt,
	}
	if !pkg.IsEmptyULID(event.ActorId) {
		doc.ActorId = event.ActorId.String()
	}

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		logger.Error().
			Err(err).
			Str("entity", event.Entity).
			Str("entity_id", doc.EntityId).
			Msg("audit event store failed")
	}
}

func (s *MongoAuditStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// snapshotOf flattens an entity through its JSON form so ids and amounts are
// stored as strings.
func snapshotOf(v interface{}) map[string]interface{} {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
