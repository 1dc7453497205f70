package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/coursereg/registration-system/internal/core/domain"
	"github.com/coursereg/registration-system/internal/core/ports"
)

const auditCollection = "registration_events"

// AuditRepository implements ports.AuditRepository using MongoDB. Each ledger
// transition is one document in the registration_events collection.
type AuditRepository struct {
	coll *mongo.Collection
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{coll: db.Collection(auditCollection)}
}

var _ ports.AuditRepository = (*AuditRepository)(nil)

// EnsureIndexes creates the index backing ListByRegistration.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "registration_id", Value: 1}, {Key: "occurred_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create audit index: %w", err)
	}
	return nil
}

// Insert persists one transition.
func (r *AuditRepository) Insert(ctx context.Context, event *domain.RegistrationEvent) error {
	doc := *event
	doc.OccurredAt = doc.OccurredAt.UTC()
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByRegistration returns the trail of one registration, oldest first.
func (r *AuditRepository) ListByRegistration(ctx context.Context, registrationID int64) ([]*domain.RegistrationEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "occurred_at", Value: 1}, {Key: "_id", Value: 1}})

	cur, err := r.coll.Find(ctx, bson.M{"registration_id": registrationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find audit events: %w", err)
	}
	defer cur.Close(ctx)

	events := []*domain.RegistrationEvent{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode audit events: %w", err)
	}
	return events, nil
}
