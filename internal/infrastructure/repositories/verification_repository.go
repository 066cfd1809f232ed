package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/campusgate/verifybot/internal/core/domain/verification"
	"github.com/campusgate/verifybot/internal/core/ports"
	"github.com/campusgate/verifybot/internal/infrastructure/db"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// VerificationRepository stores verification records in MongoDB. Record
// expiry is owned by the collection's TTL index, not by this code.
type VerificationRepository struct {
	store  *db.Mongo
	logger *logrus.Logger
}

func NewVerificationRepository(store *db.Mongo, logger *logrus.Logger) *VerificationRepository {
	return &VerificationRepository{store: store, logger: logger}
}

var _ ports.VerificationRepository = (*VerificationRepository)(nil)

// Find returns the first record matching the filter, or nil when none does.
func (r *VerificationRepository) Find(ctx context.Context, filter ports.RecordFilter) (*verification.Record, error) {
	var record verification.Record
	err := r.store.Verifications().FindOne(ctx, recordQuery(filter)).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find verification record: %w", err)
	}
	return &record, nil
}

func (r *VerificationRepository) Insert(ctx context.Context, record *verification.Record) error {
	if _, err := r.store.Verifications().InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to insert verification record: %w", err)
	}
	return nil
}

// MarkVerified flips the record to verified. The record keeps its original
// created_at, so the TTL index still expires it 600 seconds after creation;
// the log line below is the only durable trace once that happens.
func (r *VerificationRepository) MarkVerified(ctx context.Context, record *verification.Record) error {
	res, err := r.store.Verifications().UpdateOne(ctx,
		bson.M{"_id": record.ID},
		bson.M{"$set": bson.M{"verified": true}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark record verified: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("verification record %s no longer exists", record.ID)
	}
	record.Verified = true
	r.logger.WithFields(logrus.Fields{
		"user_id":  record.UserID,
		"guild_id": record.GuildID,
		"email":    record.Email,
	}).Debug("Verification record marked verified")
	return nil
}

func (r *VerificationRepository) DeleteUnverified(ctx context.Context, userID, guildID string) error {
	_, err := r.store.Verifications().DeleteMany(ctx, bson.M{
		"user_id":  userID,
		"guild_id": guildID,
		"verified": false,
	})
	if err != nil {
		return fmt.Errorf("failed to delete unverified records: %w", err)
	}
	return nil
}

func recordQuery(filter ports.RecordFilter) bson.M {
	query := bson.M{"verified": filter.Verified}
	if filter.UserID != "" {
		query["user_id"] = filter.UserID
	}
	if filter.GuildID != "" {
		query["guild_id"] = filter.GuildID
	}
	if filter.Code != "" {
		query["code"] = filter.Code
	}
	return query
}
