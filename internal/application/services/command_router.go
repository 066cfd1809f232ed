package services

import (
	"context"
	"fmt"
	"time"

	"github.com/campusgate/verifybot/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// Command names accepted from guild channels.
const (
	CmdVerify        = ".verify"
	CmdStatus        = ".vstatus"
	CmdEnableOnJoin  = ".enableonjoin"
	CmdDisableOnJoin = ".disableonjoin"
	CmdDomainAdd     = ".domainadd"
	CmdDomainRemove  = ".domainremove"
	CmdRoleChange    = ".rolechange"
)

// CommandRouter dispatches guild channel commands to the session manager or
// the config service. Admin commands reply in the invoking channel; unknown
// commands are ignored.
type CommandRouter struct {
	verifier ports.VerificationService
	guildCfg ports.GuildConfigService
	chat     ports.ChatGateway
	logger   *logrus.Logger
}

func NewCommandRouter(verifier ports.VerificationService, guildCfg ports.GuildConfigService, chat ports.ChatGateway, logger *logrus.Logger) *CommandRouter {
	return &CommandRouter{verifier: verifier, guildCfg: guildCfg, chat: chat, logger: logger}
}

var _ ports.CommandRouter = (*CommandRouter)(nil)

func (r *CommandRouter) HandleCommand(ctx context.Context, cmd ports.Command) {
	switch cmd.Name {
	case CmdVerify:
		if err := r.verifier.BeginVerification(ctx, cmd.UserID, cmd.GuildID); err != nil {
			// The user was already notified over DM; log for operators.
			r.logger.WithFields(logrus.Fields{
				"user_id":  cmd.UserID,
				"guild_id": cmd.GuildID,
			}).WithError(err).Info("Verification could not start")
		}
	case CmdStatus:
		r.handleStatus(ctx, cmd)
	case CmdEnableOnJoin:
		r.handleAdmin(ctx, cmd, "Verification on join has been enabled.", func() error {
			return r.guildCfg.EnableOnJoin(ctx, cmd.GuildID)
		})
	case CmdDisableOnJoin:
		r.handleAdmin(ctx, cmd, "Verification on join has been disabled.", func() error {
			return r.guildCfg.DisableOnJoin(ctx, cmd.GuildID)
		})
	case CmdDomainAdd:
		if len(cmd.Args) == 0 {
			r.reply(ctx, cmd, "Please provide a domain to add.")
			return
		}
		r.handleAdmin(ctx, cmd, fmt.Sprintf("Domain %s has been added.", cmd.Args[0]), func() error {
			return r.guildCfg.AddDomain(ctx, cmd.GuildID, cmd.Args[0])
		})
	case CmdDomainRemove:
		if len(cmd.Args) == 0 {
			r.reply(ctx, cmd, "Please provide a domain to remove.")
			return
		}
		r.handleAdmin(ctx, cmd, fmt.Sprintf("Domain %s has been removed.", cmd.Args[0]), func() error {
			return r.guildCfg.RemoveDomain(ctx, cmd.GuildID, cmd.Args[0])
		})
	case CmdRoleChange:
		if len(cmd.Args) == 0 {
			r.reply(ctx, cmd, "Please provide the name of the new verified role.")
			return
		}
		r.handleAdmin(ctx, cmd, fmt.Sprintf("Verified role has been changed to %s.", cmd.Args[0]), func() error {
			return r.guildCfg.SetRoleName(ctx, cmd.GuildID, cmd.Args[0])
		})
	}
}

func (r *CommandRouter) handleAdmin(ctx context.Context, cmd ports.Command, confirmation string, op func() error) {
	if !cmd.IsAdmin {
		r.reply(ctx, cmd, msgAdminOnly)
		return
	}
	if err := op(); err != nil {
		r.logger.WithFields(logrus.Fields{
			"guild_id": cmd.GuildID,
			"command":  cmd.Name,
		}).WithError(err).Error("Config command failed")
		r.reply(ctx, cmd, msgInternalError)
		return
	}
	r.reply(ctx, cmd, confirmation)
}

func (r *CommandRouter) handleStatus(ctx context.Context, cmd ports.Command) {
	status, err := r.guildCfg.Status(ctx, cmd.GuildID)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"guild_id": cmd.GuildID,
		}).WithError(err).Error("Status command failed")
		r.reply(ctx, cmd, msgInternalError)
		return
	}
	ping := r.chat.Latency().Round(time.Millisecond)
	r.reply(ctx, cmd, "```"+
		fmt.Sprintf("Ping: %s\n", ping)+
		"User commands:\n"+
		"   .verify -> Sends a DM to the user to verify their email\n"+
		"   .vstatus -> This help message\n\n"+
		"Admin commands:\n"+
		" - A domain must be added before users can be verified.\n"+
		" - Use .rolechange instead of server settings to change the name of the verified role.\n"+
		"   .enableonjoin -> Enables verifying users on join\n"+
		"   .disableonjoin -> Disables verifying users on join\n"+
		"   .domainadd domain -> Adds an email domain\n"+
		"   .domainremove domain -> Removes an email domain\n"+
		"   .rolechange role -> Changes the name of the verified role\n\n"+
		fmt.Sprintf("Domains: %s\n", status.Domains)+
		fmt.Sprintf("Verify when a user joins? (default=False): %t\n", status.OnJoin)+
		fmt.Sprintf("Verified role (default=Verified): %s", status.RoleName)+
		"```")
}

func (r *CommandRouter) reply(ctx context.Context, cmd ports.Command, content string) {
	if err := r.chat.SendChannelMessage(ctx, cmd.ChannelID, content); err != nil {
		r.logger.WithFields(logrus.Fields{
			"channel_id": cmd.ChannelID,
		}).WithError(err).Warn("Failed to send channel reply")
	}
}
