package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/campusgate/verifybot/internal/core/domain/guild"
	"github.com/campusgate/verifybot/internal/core/domain/verification"
	"github.com/sirupsen/logrus"
)

func (s *VerificationService) botCapabilities(ctx context.Context, guildID string) (guild.Capabilities, error) {
	bctx, cancel := s.bounded(ctx)
	defer cancel()
	return s.chat.BotCapabilities(bctx, guildID)
}

// assignVerifiedRole grants roleName to the member, creating the role if it
// does not exist. Lookup is case-insensitive; granting a role the member
// already holds is a no-op success. The bot's highest role must strictly
// outrank the target role.
func (s *VerificationService) assignVerifiedRole(ctx context.Context, guildID, userID, roleName string) error {
	caps, err := s.botCapabilities(ctx, guildID)
	if err != nil {
		return fmt.Errorf("capability check for guild %s: %w", guildID, verification.ErrRoleAssignmentFailed)
	}
	if !caps.ManageRoles {
		return fmt.Errorf("bot lacks manage-roles in guild %s: %w", guildID, verification.ErrRoleAssignmentFailed)
	}

	bctx, cancel := s.bounded(ctx)
	roles, err := s.chat.ListRoles(bctx, guildID)
	cancel()
	if err != nil {
		return fmt.Errorf("role list for guild %s: %w", guildID, verification.ErrRoleAssignmentFailed)
	}

	var target *guild.Role
	for i := range roles {
		if strings.EqualFold(roles[i].Name, roleName) {
			target = &roles[i]
			break
		}
	}
	if target == nil {
		s.logger.WithFields(logrus.Fields{
			"guild_id": guildID,
			"role":     roleName,
		}).Info("Creating missing verified role")
		bctx, cancel := s.bounded(ctx)
		target, err = s.chat.CreateRole(bctx, guildID, roleName)
		cancel()
		if err != nil {
			return fmt.Errorf("create role %q in guild %s: %w", roleName, guildID, verification.ErrRoleCreationFailed)
		}
	}

	bctx, cancel = s.bounded(ctx)
	memberRoles, err := s.chat.MemberRoleIDs(bctx, guildID, userID)
	cancel()
	if err != nil {
		return fmt.Errorf("member lookup for user %s: %w", userID, verification.ErrRoleAssignmentFailed)
	}
	for _, id := range memberRoles {
		if id == target.ID {
			return nil
		}
	}

	bctx, cancel = s.bounded(ctx)
	highest, err := s.chat.BotHighestRole(bctx, guildID)
	cancel()
	if err != nil {
		return fmt.Errorf("bot role lookup for guild %s: %w", guildID, verification.ErrRoleAssignmentFailed)
	}
	if target.Position >= highest.Position {
		s.logger.WithFields(logrus.Fields{
			"guild_id":        guildID,
			"target_role":     target.Name,
			"target_position": target.Position,
			"bot_role":        highest.Name,
			"bot_position":    highest.Position,
		}).Error("Bot's highest role does not outrank the target role")
		return fmt.Errorf("role %q outranks bot in guild %s: %w", target.Name, guildID, verification.ErrRoleAssignmentFailed)
	}

	bctx, cancel = s.bounded(ctx)
	err = s.chat.AddMemberRole(bctx, guildID, userID, target.ID)
	cancel()
	if err != nil {
		return fmt.Errorf("add role %q to user %s: %w", target.Name, userID, verification.ErrRoleAssignmentFailed)
	}
	return nil
}

// logHierarchyReport logs the guild's full role hierarchy relative to the
// bot for operator troubleshooting. The report is never sent to end users.
func (s *VerificationService) logHierarchyReport(ctx context.Context, guildID, reason string) {
	report, err := s.roleHierarchyReport(ctx, guildID)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"guild_id": guildID,
		}).WithError(err).Warn("Could not build role hierarchy report")
		return
	}
	entries := make([]string, 0, len(report.Roles))
	for _, r := range report.Roles {
		entries = append(entries, fmt.Sprintf("%s(pos=%d,manageable=%t)", r.Name, r.Position, r.Manageable))
	}
	s.logger.WithFields(logrus.Fields{
		"guild_id":     guildID,
		"reason":       reason,
		"bot_role":     report.BotRole,
		"bot_position": report.BotRolePosition,
		"roles":        strings.Join(entries, ", "),
	}).Error("Role hierarchy report")
}

func (s *VerificationService) roleHierarchyReport(ctx context.Context, guildID string) (*guild.HierarchyReport, error) {
	bctx, cancel := s.bounded(ctx)
	defer cancel()

	highest, err := s.chat.BotHighestRole(bctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("bot role lookup: %w", err)
	}
	roles, err := s.chat.ListRoles(bctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("role list: %w", err)
	}

	sort.Slice(roles, func(i, j int) bool { return roles[i].Position > roles[j].Position })
	report := &guild.HierarchyReport{
		BotRole:         highest.Name,
		BotRolePosition: highest.Position,
	}
	for _, r := range roles {
		report.Roles = append(report.Roles, guild.HierarchyEntry{
			Name:       r.Name,
			Position:   r.Position,
			IsBotRole:  r.ID == highest.ID,
			Manageable: r.Position < highest.Position,
		})
	}
	return report, nil
}
