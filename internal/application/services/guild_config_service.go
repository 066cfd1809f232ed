package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/campusgate/verifybot/internal/core/domain/guild"
	"github.com/campusgate/verifybot/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// GuildConfigService applies admin configuration commands. Every mutation is
// an upsert; the first command for a guild creates its config.
type GuildConfigService struct {
	repo   ports.GuildConfigRepository
	logger *logrus.Logger
}

func NewGuildConfigService(repo ports.GuildConfigRepository, logger *logrus.Logger) *GuildConfigService {
	return &GuildConfigService{repo: repo, logger: logger}
}

var _ ports.GuildConfigService = (*GuildConfigService)(nil)

func (s *GuildConfigService) EnableOnJoin(ctx context.Context, guildID string) error {
	if err := s.repo.SetOnJoin(ctx, guildID, true); err != nil {
		return fmt.Errorf("failed to enable on-join prompting: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"guild_id": guildID}).Info("On-join verification enabled")
	return nil
}

func (s *GuildConfigService) DisableOnJoin(ctx context.Context, guildID string) error {
	if err := s.repo.SetOnJoin(ctx, guildID, false); err != nil {
		return fmt.Errorf("failed to disable on-join prompting: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"guild_id": guildID}).Info("On-join verification disabled")
	return nil
}

func (s *GuildConfigService) AddDomain(ctx context.Context, guildID, domain string) error {
	if err := s.repo.AddDomain(ctx, guildID, domain); err != nil {
		return fmt.Errorf("failed to add domain %q: %w", domain, err)
	}
	s.logger.WithFields(logrus.Fields{"guild_id": guildID, "domain": domain}).Info("Allowed domain added")
	return nil
}

func (s *GuildConfigService) RemoveDomain(ctx context.Context, guildID, domain string) error {
	if err := s.repo.RemoveDomain(ctx, guildID, domain); err != nil {
		return fmt.Errorf("failed to remove domain %q: %w", domain, err)
	}
	s.logger.WithFields(logrus.Fields{"guild_id": guildID, "domain": domain}).Info("Allowed domain removed")
	return nil
}

func (s *GuildConfigService) SetRoleName(ctx context.Context, guildID, roleName string) error {
	if err := s.repo.SetRoleName(ctx, guildID, roleName); err != nil {
		return fmt.Errorf("failed to set role name %q: %w", roleName, err)
	}
	s.logger.WithFields(logrus.Fields{"guild_id": guildID, "role": roleName}).Info("Verified role name changed")
	return nil
}

// Status returns the guild's configuration summary, with defaults when the
// guild has no config yet.
func (s *GuildConfigService) Status(ctx context.Context, guildID string) (*ports.GuildStatus, error) {
	cfg, err := s.repo.Find(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to load guild config: %w", err)
	}
	status := &ports.GuildStatus{
		Domains:  "None",
		OnJoin:   false,
		RoleName: guild.DefaultRoleName,
	}
	if cfg != nil {
		if len(cfg.Domains) > 0 {
			status.Domains = strings.Join(cfg.Domains, ", ")
		}
		status.OnJoin = cfg.OnJoin
		status.RoleName = cfg.Role()
	}
	return status, nil
}
