package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/campusgate/verifybot/internal/core/domain/guild"
	"github.com/campusgate/verifybot/internal/core/domain/verification"
	"github.com/campusgate/verifybot/internal/core/ports"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// HandleDirectMessage feeds the user's DM into their session. While awaiting
// the email address the content is an email; while awaiting the OTP it is
// the code. DMs from users with no session get a pointer at the verify
// command.
func (s *VerificationService) HandleDirectMessage(ctx context.Context, userID, content string) error {
	content = strings.TrimSpace(content)

	if !s.hasSession(userID) {
		s.notify(ctx, userID, msgNoActiveSession)
		return nil
	}
	sess := s.claimSession(userID)
	if sess == nil {
		// Another event for this user is mid-flight; drop this one.
		s.logger.WithFields(logrus.Fields{
			"user_id": userID,
		}).Debug("Ignoring DM for busy verification session")
		return nil
	}

	switch sess.phase {
	case verification.PhaseAwaitingEmail:
		return s.handleEmailReply(ctx, sess, content)
	case verification.PhaseAwaitingOTP:
		return s.handleCodeReply(ctx, sess, content)
	default:
		s.removeSession(userID)
		return fmt.Errorf("session for user %s in unknown phase %q", userID, sess.phase)
	}
}

func (s *VerificationService) handleEmailReply(ctx context.Context, sess *session, email string) error {
	domain, ok := emailDomain(email)
	cfg, err := s.findGuildConfig(ctx, sess.guildID)
	if err != nil {
		return s.failSession(ctx, sess, "external_error", msgInternalError,
			fmt.Errorf("guild config lookup: %w", verification.ErrExternalService))
	}
	if !ok || cfg == nil || !cfg.AllowsDomain(domain) {
		allowed := "None configured"
		if cfg != nil && len(cfg.Domains) > 0 {
			allowed = strings.Join(cfg.Domains, ", ")
		}
		msg := fmt.Sprintf("❌ The email domain is not allowed. Allowed domains: %s", allowed)
		return s.failSession(ctx, sess, "domain_not_allowed", msg, verification.ErrDomainNotAllowed)
	}

	bctx, cancel := s.bounded(ctx)
	err = s.records.DeleteUnverified(bctx, sess.userID, sess.guildID)
	cancel()
	if err != nil {
		return s.failSession(ctx, sess, "external_error", msgInternalError,
			fmt.Errorf("stale record cleanup: %w", verification.ErrExternalService))
	}

	code, err := verification.GenerateCode()
	if err != nil {
		return s.failSession(ctx, sess, "external_error", msgInternalError, err)
	}

	record := &verification.Record{
		ID:        uuid.NewString(),
		UserID:    sess.userID,
		GuildID:   sess.guildID,
		Email:     email,
		Code:      code,
		Verified:  false,
		CreatedAt: time.Now(),
	}
	bctx, cancel = s.bounded(ctx)
	err = s.records.Insert(bctx, record)
	cancel()
	if err != nil {
		return s.failSession(ctx, sess, "external_error", msgInternalError,
			fmt.Errorf("record insert: %w", verification.ErrExternalService))
	}

	bctx, cancel = s.bounded(ctx)
	err = s.email.SendVerificationCode(bctx, email, code)
	cancel()
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"user_id":  sess.userID,
			"guild_id": sess.guildID,
		}).WithError(err).Error("Verification email delivery failed")
		return s.failSession(ctx, sess, "email_delivery_failed", msgEmailDeliveryFailed, verification.ErrEmailDeliveryFailed)
	}

	s.mu.Lock()
	sess.phase = verification.PhaseAwaitingOTP
	sess.expiresAt = time.Now().Add(s.config.CodeReplyTimeout)
	s.mu.Unlock()
	s.armTimer(sess, s.config.CodeReplyTimeout)

	s.logger.WithFields(logrus.Fields{
		"user_id":  sess.userID,
		"guild_id": sess.guildID,
	}).Info("Verification code issued")
	s.notify(ctx, sess.userID, msgCodeSent)
	return nil
}

func (s *VerificationService) handleCodeReply(ctx context.Context, sess *session, code string) error {
	record, err := s.findRecord(ctx, ports.RecordFilter{UserID: sess.userID, Code: code, Verified: false})
	if err != nil {
		return s.failSession(ctx, sess, "external_error", msgInternalError,
			fmt.Errorf("record lookup: %w", verification.ErrExternalService))
	}
	if record == nil {
		// Wrong code, or the record already expired via the store TTL. The
		// message deliberately does not say which.
		return s.failSession(ctx, sess, "invalid_code", msgVerificationFailed, verification.ErrInvalidCode)
	}

	bctx, cancel := s.bounded(ctx)
	err = s.records.MarkVerified(bctx, record)
	cancel()
	if err != nil {
		return s.failSession(ctx, sess, "external_error", msgInternalError,
			fmt.Errorf("record update: %w", verification.ErrExternalService))
	}

	roleName := guild.DefaultRoleName
	if cfg, err := s.findGuildConfig(ctx, record.GuildID); err == nil {
		roleName = cfg.Role()
	} else {
		s.logger.WithFields(logrus.Fields{
			"guild_id": record.GuildID,
		}).WithError(err).Warn("Guild config lookup failed, using default role name")
	}

	if err := s.assignVerifiedRole(ctx, record.GuildID, sess.userID, roleName); err != nil {
		s.logHierarchyReport(ctx, record.GuildID, "role assignment failed")
		// Same generic message as an invalid code; the detail is for
		// operators only.
		return s.failSession(ctx, sess, "role_assignment_failed", msgVerificationFailed, err)
	}

	s.removeSession(sess.userID)
	observeOutcome("verified")
	s.logger.WithFields(logrus.Fields{
		"user_id":  sess.userID,
		"guild_id": record.GuildID,
		"role":     roleName,
	}).Info("User verified and role granted")
	s.notify(ctx, sess.userID, msgVerified)
	return nil
}

// failSession ends the session with its single terminal notification.
func (s *VerificationService) failSession(ctx context.Context, sess *session, outcome, userMsg string, err error) error {
	s.removeSession(sess.userID)
	observeOutcome(outcome)
	s.logger.WithFields(logrus.Fields{
		"user_id":  sess.userID,
		"guild_id": sess.guildID,
		"phase":    sess.phase.String(),
		"outcome":  outcome,
	}).WithError(err).Info("Verification session failed")
	s.notify(ctx, sess.userID, userMsg)
	return err
}

func (s *VerificationService) findRecord(ctx context.Context, filter ports.RecordFilter) (*verification.Record, error) {
	bctx, cancel := s.bounded(ctx)
	defer cancel()
	return s.records.Find(bctx, filter)
}

func (s *VerificationService) findGuildConfig(ctx context.Context, guildID string) (*guild.Config, error) {
	bctx, cancel := s.bounded(ctx)
	defer cancel()
	return s.guilds.Find(bctx, guildID)
}

// emailDomain extracts the domain suffix after the last '@'. Addresses with
// no '@' or an empty suffix are rejected.
func emailDomain(email string) (string, bool) {
	idx := strings.LastIndex(email, "@")
	if idx < 0 || idx == len(email)-1 {
		return "", false
	}
	return email[idx+1:], true
}
