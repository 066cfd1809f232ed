package db

import (
	"context"
	"fmt"

	config "github.com/campusgate/verifybot/configs"
	"github.com/campusgate/verifybot/internal/core/domain/verification"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	verificationsCollection = "verifications"
	guildsCollection        = "guilds"
)

// Mongo wraps the document store holding verification records and guild
// configs.
type Mongo struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// NewMongo connects to the store and verifies the connection.
func NewMongo(cfg *config.MongoConfig) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &Mongo{
		Client:   client,
		Database: client.Database(cfg.Database),
	}, nil
}

// EnsureIndexes creates the indexes the repositories rely on. The TTL index
// makes the store delete every verification record 600 seconds after
// creation, verified or not; the application never deletes by age itself.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	ttlSeconds := int32(verification.RecordTTL.Seconds())
	_, err := m.Verifications().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(ttlSeconds),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "guild_id", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create verification indexes: %w", err)
	}

	_, err = m.Guilds().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "guild_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create guild index: %w", err)
	}
	return nil
}

func (m *Mongo) Verifications() *mongo.Collection {
	return m.Database.Collection(verificationsCollection)
}

func (m *Mongo) Guilds() *mongo.Collection {
	return m.Database.Collection(guildsCollection)
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
