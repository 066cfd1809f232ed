package ports

import (
	"context"
	"time"

	"github.com/campusgate/verifybot/internal/core/domain/guild"
)

// ChatGateway wraps the chat platform's outbound operations. Inbound events
// (commands, direct messages, member joins) are delivered by the platform
// adapter to the services consuming this interface.
type ChatGateway interface {
	// SendDirectMessage DMs a user. Failure usually means the user's privacy
	// settings block DMs from the bot.
	SendDirectMessage(ctx context.Context, userID, content string) error

	// SendChannelMessage posts to a guild channel; used for command replies.
	SendChannelMessage(ctx context.Context, channelID, content string) error

	// BotCapabilities returns the bot's permission vector in a guild. An
	// error means the guild is not visible to the bot at all.
	BotCapabilities(ctx context.Context, guildID string) (guild.Capabilities, error)

	// ListRoles returns every role in the guild.
	ListRoles(ctx context.Context, guildID string) ([]guild.Role, error)

	// BotHighestRole returns the bot's highest-ranked role in the guild.
	BotHighestRole(ctx context.Context, guildID string) (*guild.Role, error)

	// CreateRole creates a role with the given name, a fixed default color
	// and no permissions.
	CreateRole(ctx context.Context, guildID, name string) (*guild.Role, error)

	// MemberRoleIDs returns the role IDs the member currently holds.
	MemberRoleIDs(ctx context.Context, guildID, userID string) ([]string, error)

	// AddMemberRole grants a role to a member.
	AddMemberRole(ctx context.Context, guildID, userID, roleID string) error

	// Latency is the gateway heartbeat round-trip, surfaced in status output.
	Latency() time.Duration
}
