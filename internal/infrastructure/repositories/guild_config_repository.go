package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/campusgate/verifybot/internal/core/domain/guild"
	"github.com/campusgate/verifybot/internal/core/ports"
	"github.com/campusgate/verifybot/internal/infrastructure/db"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GuildConfigRepository stores per-guild configuration in MongoDB. Every
// mutator upserts, so a guild's config springs into existence on its first
// admin command.
type GuildConfigRepository struct {
	store  *db.Mongo
	logger *logrus.Logger
}

func NewGuildConfigRepository(store *db.Mongo, logger *logrus.Logger) *GuildConfigRepository {
	return &GuildConfigRepository{store: store, logger: logger}
}

var _ ports.GuildConfigRepository = (*GuildConfigRepository)(nil)

// Find returns the guild's config, or nil when it has none yet.
func (r *GuildConfigRepository) Find(ctx context.Context, guildID string) (*guild.Config, error) {
	var cfg guild.Config
	err := r.store.Guilds().FindOne(ctx, bson.M{"guild_id": guildID}).Decode(&cfg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find guild config: %w", err)
	}
	return &cfg, nil
}

func (r *GuildConfigRepository) SetOnJoin(ctx context.Context, guildID string, enabled bool) error {
	return r.upsert(ctx, guildID, bson.M{"$set": bson.M{"onjoin": enabled}})
}

func (r *GuildConfigRepository) AddDomain(ctx context.Context, guildID, domain string) error {
	return r.upsert(ctx, guildID, bson.M{"$addToSet": bson.M{"domains": domain}})
}

// RemoveDomain is the one mutator that does not upsert: pulling a domain
// from a guild with no config should not create one.
func (r *GuildConfigRepository) RemoveDomain(ctx context.Context, guildID, domain string) error {
	_, err := r.store.Guilds().UpdateOne(ctx,
		bson.M{"guild_id": guildID},
		bson.M{"$pull": bson.M{"domains": domain}},
	)
	if err != nil {
		return fmt.Errorf("failed to update guild config: %w", err)
	}
	return nil
}

func (r *GuildConfigRepository) SetRoleName(ctx context.Context, guildID, roleName string) error {
	return r.upsert(ctx, guildID, bson.M{"$set": bson.M{"role": roleName}})
}

func (r *GuildConfigRepository) upsert(ctx context.Context, guildID string, update bson.M) error {
	_, err := r.store.Guilds().UpdateOne(ctx,
		bson.M{"guild_id": guildID},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to update guild config: %w", err)
	}
	return nil
}
