package ports

import (
	"context"

	"github.com/campusgate/verifybot/internal/core/domain/guild"
	"github.com/campusgate/verifybot/internal/core/domain/verification"
)

// RecordFilter narrows verification record lookups. Zero-valued fields are
// not part of the filter; Verified is always matched explicitly.
type RecordFilter struct {
	UserID   string
	GuildID  string
	Code     string
	Verified bool
}

// VerificationRepository persists verification records. The backing store
// owns record expiry: every record is deleted 600 seconds after creation
// regardless of outcome.
type VerificationRepository interface {
	Find(ctx context.Context, filter RecordFilter) (*verification.Record, error)
	Insert(ctx context.Context, record *verification.Record) error
	MarkVerified(ctx context.Context, record *verification.Record) error
	DeleteUnverified(ctx context.Context, userID, guildID string) error
}

// GuildConfigRepository persists per-guild configuration. All mutators are
// upserts: the first write for a guild creates its config document.
type GuildConfigRepository interface {
	Find(ctx context.Context, guildID string) (*guild.Config, error)
	SetOnJoin(ctx context.Context, guildID string, enabled bool) error
	AddDomain(ctx context.Context, guildID, domain string) error
	RemoveDomain(ctx context.Context, guildID, domain string) error
	SetRoleName(ctx context.Context, guildID, roleName string) error
}
