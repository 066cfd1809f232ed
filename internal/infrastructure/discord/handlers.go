package discord

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/campusgate/verifybot/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// RegisterHandlers wires gateway events into the command router and the
// verification service. Must be called before Open.
func (g *Gateway) RegisterHandlers(router ports.CommandRouter, verifier ports.VerificationService) {
	g.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		g.onMessageCreate(router, verifier, m)
	})
	g.session.AddHandler(func(_ *discordgo.Session, e *discordgo.GuildMemberAdd) {
		g.onGuildMemberAdd(verifier, e)
	})
}

func (g *Gateway) onMessageCreate(router ports.CommandRouter, verifier ports.VerificationService, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	ctx := context.Background()

	// Messages without a guild ID arrive over a DM channel; they carry the
	// user's email address or OTP reply.
	if m.GuildID == "" {
		if err := verifier.HandleDirectMessage(ctx, m.Author.ID, m.Content); err != nil {
			g.logger.WithFields(logrus.Fields{
				"user_id": m.Author.ID,
			}).WithError(err).Debug("DM ended verification session")
		}
		return
	}

	fields := strings.Fields(m.Content)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], ".") {
		return
	}
	router.HandleCommand(ctx, ports.Command{
		Name:      fields[0],
		Args:      fields[1:],
		UserID:    m.Author.ID,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		IsAdmin:   g.isAdmin(ctx, m.GuildID, m.Author.ID),
	})
}

func (g *Gateway) onGuildMemberAdd(verifier ports.VerificationService, e *discordgo.GuildMemberAdd) {
	if e.User == nil || e.User.Bot {
		return
	}
	if err := verifier.HandleMemberJoin(context.Background(), e.GuildID, e.User.ID); err != nil {
		g.logger.WithFields(logrus.Fields{
			"user_id":  e.User.ID,
			"guild_id": e.GuildID,
		}).WithError(err).Warn("Failed to handle member join")
	}
}

func (g *Gateway) isAdmin(ctx context.Context, guildID, userID string) bool {
	perms, err := g.memberPermissions(ctx, guildID, userID)
	if err != nil {
		g.logger.WithFields(logrus.Fields{
			"user_id":  userID,
			"guild_id": guildID,
		}).WithError(err).Warn("Failed to resolve member permissions")
		return false
	}
	return perms&discordgo.PermissionAdministrator != 0
}
