package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/campusgate/verifybot/internal/core/domain/verification"
	"github.com/campusgate/verifybot/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// VerificationConfig bounds the session manager's waits. Zero values fall
// back to the defaults below.
type VerificationConfig struct {
	// EmailReplyTimeout bounds the wait for the user's email address DM.
	EmailReplyTimeout time.Duration
	// CodeReplyTimeout bounds the wait for the OTP DM after the email is sent.
	CodeReplyTimeout time.Duration
	// SweepInterval is how often leaked sessions are reaped.
	SweepInterval time.Duration
	// CallTimeout is the hard deadline applied to every store, mail and
	// gateway call.
	CallTimeout time.Duration
}

func (c *VerificationConfig) applyDefaults() {
	if c.EmailReplyTimeout <= 0 {
		c.EmailReplyTimeout = 60 * time.Second
	}
	if c.CodeReplyTimeout <= 0 {
		c.CodeReplyTimeout = verification.RecordTTL
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 60 * time.Second
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 5 * time.Second
	}
}

// VerificationService owns the in-memory verification sessions. Sessions
// live only in this process and are lost on restart, by design.
type VerificationService struct {
	records ports.VerificationRepository
	guilds  ports.GuildConfigRepository
	email   ports.EmailService
	chat    ports.ChatGateway
	config  VerificationConfig
	logger  *logrus.Logger

	mu       sync.Mutex
	sessions map[string]*session
	done     chan struct{}
	stopOnce sync.Once
}

func NewVerificationService(records ports.VerificationRepository, guilds ports.GuildConfigRepository, email ports.EmailService, chat ports.ChatGateway, config VerificationConfig, logger *logrus.Logger) *VerificationService {
	config.applyDefaults()
	return &VerificationService{
		records:  records,
		guilds:   guilds,
		email:    email,
		chat:     chat,
		config:   config,
		logger:   logger,
		sessions: make(map[string]*session),
		done:     make(chan struct{}),
	}
}

var _ ports.VerificationService = (*VerificationService)(nil)

// BeginVerification starts a session for the user. The session entry is
// inserted before the external prechecks run so a second command racing the
// first is rejected rather than merged.
func (s *VerificationService) BeginVerification(ctx context.Context, userID, guildID string) error {
	s.mu.Lock()
	if _, ok := s.sessions[userID]; ok {
		s.mu.Unlock()
		s.notify(ctx, userID, msgSessionAlreadyActive)
		return verification.ErrSessionAlreadyActive
	}
	sess := &session{
		userID:    userID,
		guildID:   guildID,
		phase:     verification.PhaseAwaitingEmail,
		startedAt: time.Now(),
		busy:      true,
	}
	s.sessions[userID] = sess
	s.mu.Unlock()

	caps, err := s.botCapabilities(ctx, guildID)
	if err != nil {
		// The query itself failed; the bot's permissions are unknown, not
		// known-insufficient.
		s.removeSession(userID)
		observeOutcome("external_error")
		s.notify(ctx, userID, msgInternalError)
		return fmt.Errorf("capability preflight for guild %s: %w", guildID, verification.ErrExternalService)
	}
	if !caps.Sufficient() {
		s.removeSession(userID)
		s.logHierarchyReport(ctx, guildID, "permission preflight failed")
		observeOutcome("insufficient_permissions")
		s.notify(ctx, userID, msgInsufficientPerms)
		return verification.ErrInsufficientPermissions
	}

	rec, err := s.findRecord(ctx, ports.RecordFilter{UserID: userID, GuildID: guildID, Verified: true})
	if err != nil {
		s.removeSession(userID)
		observeOutcome("external_error")
		s.notify(ctx, userID, msgInternalError)
		return fmt.Errorf("verified record lookup: %w", verification.ErrExternalService)
	}
	if rec != nil {
		s.removeSession(userID)
		observeOutcome("already_verified")
		s.notify(ctx, userID, msgAlreadyVerified)
		return verification.ErrAlreadyVerified
	}

	s.armTimer(sess, s.config.EmailReplyTimeout)
	s.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"guild_id": guildID,
	}).Info("Verification session started")
	s.notify(ctx, userID, msgEmailPrompt)
	return nil
}

// HandleMemberJoin DMs a verification prompt to new members of guilds that
// enabled on-join prompting.
func (s *VerificationService) HandleMemberJoin(ctx context.Context, guildID, userID string) error {
	cfg, err := s.findGuildConfig(ctx, guildID)
	if err != nil {
		return fmt.Errorf("guild config lookup: %w", err)
	}
	if cfg == nil || !cfg.OnJoin {
		return nil
	}
	s.notify(ctx, userID, msgWelcomePrompt)
	return nil
}

// ActiveSessions reports the number of live sessions.
func (s *VerificationService) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Start launches the periodic sweeper that reaps sessions whose expiry
// timer was missed.
func (s *VerificationService) Start() {
	go s.sweepLoop()
}

// Stop halts the sweeper and drops every live session without notifying.
func (s *VerificationService) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, sess := range s.sessions {
		if sess.timer != nil {
			sess.timer.Stop()
		}
		delete(s.sessions, userID)
	}
}

// notify DMs the user; delivery failure is logged but never fails the
// calling path.
func (s *VerificationService) notify(ctx context.Context, userID, content string) {
	bctx, cancel := s.bounded(ctx)
	defer cancel()
	if err := s.chat.SendDirectMessage(bctx, userID, content); err != nil {
		s.logger.WithFields(logrus.Fields{
			"user_id": userID,
		}).WithError(err).Warn("Failed to send DM")
	}
}

// bounded applies the hard external-call deadline to ctx.
func (s *VerificationService) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.config.CallTimeout)
}
