package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	config "github.com/campusgate/verifybot/configs"
	"github.com/campusgate/verifybot/internal/core/domain/guild"
	"github.com/campusgate/verifybot/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// verifiedRoleColor is the fixed color given to auto-created verified roles.
const verifiedRoleColor = 0x00FF00

// Gateway wraps a discordgo session behind the chat gateway port.
type Gateway struct {
	session *discordgo.Session
	logger  *logrus.Logger
}

func NewGateway(cfg *config.DiscordConfig, logger *logrus.Logger) (*Gateway, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	return &Gateway{session: session, logger: logger}, nil
}

var _ ports.ChatGateway = (*Gateway)(nil)

// Open connects to the Discord gateway and starts receiving events.
func (g *Gateway) Open() error {
	if err := g.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord gateway: %w", err)
	}
	g.logger.WithFields(logrus.Fields{
		"bot": g.session.State.User.String(),
	}).Info("Connected to Discord gateway")
	return nil
}

func (g *Gateway) Close() error {
	return g.session.Close()
}

func (g *Gateway) SendDirectMessage(ctx context.Context, userID, content string) error {
	channel, err := g.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to open DM channel with user %s: %w", userID, err)
	}
	if _, err := g.session.ChannelMessageSend(channel.ID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to DM user %s: %w", userID, err)
	}
	return nil
}

func (g *Gateway) SendChannelMessage(ctx context.Context, channelID, content string) error {
	if _, err := g.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send message to channel %s: %w", channelID, err)
	}
	return nil
}

func (g *Gateway) BotCapabilities(ctx context.Context, guildID string) (guild.Capabilities, error) {
	perms, err := g.memberPermissions(ctx, guildID, g.session.State.User.ID)
	if err != nil {
		return guild.Capabilities{}, err
	}
	admin := perms&discordgo.PermissionAdministrator != 0
	return guild.Capabilities{
		ManageRoles: admin || perms&discordgo.PermissionManageRoles != 0,
		ViewChannel: admin || perms&discordgo.PermissionViewChannel != 0,
	}, nil
}

func (g *Gateway) ListRoles(ctx context.Context, guildID string) ([]guild.Role, error) {
	discordRoles, err := g.guildRoles(ctx, guildID)
	if err != nil {
		return nil, err
	}
	roles := make([]guild.Role, 0, len(discordRoles))
	for _, r := range discordRoles {
		roles = append(roles, guild.Role{ID: r.ID, Name: r.Name, Position: r.Position})
	}
	return roles, nil
}

// BotHighestRole returns the bot's highest-ranked role, falling back to the
// guild's @everyone role when the bot holds no others.
func (g *Gateway) BotHighestRole(ctx context.Context, guildID string) (*guild.Role, error) {
	member, err := g.member(ctx, guildID, g.session.State.User.ID)
	if err != nil {
		return nil, err
	}
	roles, err := g.guildRoles(ctx, guildID)
	if err != nil {
		return nil, err
	}

	held := make(map[string]bool, len(member.Roles))
	for _, id := range member.Roles {
		held[id] = true
	}
	var highest *discordgo.Role
	for _, r := range roles {
		if !held[r.ID] && r.ID != guildID { // the @everyone role shares the guild ID
			continue
		}
		if highest == nil || r.Position > highest.Position {
			highest = r
		}
	}
	if highest == nil {
		return nil, fmt.Errorf("bot has no roles in guild %s", guildID)
	}
	return &guild.Role{ID: highest.ID, Name: highest.Name, Position: highest.Position}, nil
}

func (g *Gateway) CreateRole(ctx context.Context, guildID, name string) (*guild.Role, error) {
	color := verifiedRoleColor
	var perms int64
	role, err := g.session.GuildRoleCreate(guildID, &discordgo.RoleParams{
		Name:        name,
		Color:       &color,
		Permissions: &perms,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to create role %q in guild %s: %w", name, guildID, err)
	}
	return &guild.Role{ID: role.ID, Name: role.Name, Position: role.Position}, nil
}

func (g *Gateway) MemberRoleIDs(ctx context.Context, guildID, userID string) ([]string, error) {
	member, err := g.member(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}
	return member.Roles, nil
}

func (g *Gateway) AddMemberRole(ctx context.Context, guildID, userID, roleID string) error {
	if err := g.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to add role %s to user %s: %w", roleID, userID, err)
	}
	return nil
}

func (g *Gateway) Latency() time.Duration {
	return g.session.HeartbeatLatency()
}

// Healthy reports whether the gateway connection is established; used by
// the health endpoint.
func (g *Gateway) Healthy(_ context.Context) error {
	if g.session.State == nil || g.session.State.User == nil {
		return fmt.Errorf("discord gateway not connected")
	}
	return nil
}

// memberPermissions folds the guild-level permissions of every role the
// member holds, including @everyone.
func (g *Gateway) memberPermissions(ctx context.Context, guildID, userID string) (int64, error) {
	member, err := g.member(ctx, guildID, userID)
	if err != nil {
		return 0, err
	}
	roles, err := g.guildRoles(ctx, guildID)
	if err != nil {
		return 0, err
	}

	held := make(map[string]bool, len(member.Roles))
	for _, id := range member.Roles {
		held[id] = true
	}
	var perms int64
	for _, r := range roles {
		if r.ID == guildID || held[r.ID] {
			perms |= r.Permissions
		}
	}
	return perms, nil
}

// guildRoles prefers the session state cache and falls back to the REST API.
func (g *Gateway) guildRoles(ctx context.Context, guildID string) ([]*discordgo.Role, error) {
	if cached, err := g.session.State.Guild(guildID); err == nil && len(cached.Roles) > 0 {
		return cached.Roles, nil
	}
	roles, err := g.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list roles for guild %s: %w", guildID, err)
	}
	return roles, nil
}

func (g *Gateway) member(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	if cached, err := g.session.State.Member(guildID, userID); err == nil {
		return cached, nil
	}
	member, err := g.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch member %s in guild %s: %w", userID, guildID, err)
	}
	return member, nil
}
