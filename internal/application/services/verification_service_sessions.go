package services

import (
	"context"
	"time"

	"github.com/campusgate/verifybot/internal/core/domain/verification"
	"github.com/sirupsen/logrus"
)

// session is one user's in-progress verification attempt. At most one
// session exists per user at any time, across all guilds.
//
// gen and busy arbitrate the race between an inbound DM and the expiry
// timer for the same session: an event claims the session by setting busy
// and bumping gen under the lock, which invalidates any pending timer
// callback. Removal from the session map is the single linearization point;
// whichever path deletes the entry first sends the terminal notification.
type session struct {
	userID    string
	guildID   string
	phase     verification.Phase
	startedAt time.Time
	expiresAt time.Time
	timer     *time.Timer
	gen       int
	busy      bool
}

// armTimer releases the session to wait for the user's next DM and
// schedules its expiry. Exactly one live timer exists per session. The
// callback captures the session pointer, not just the user ID, so a timer
// surviving its Stop can never be mistaken for one belonging to a later
// session of the same user.
func (s *VerificationService) armTimer(sess *session, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.busy = false
	sess.gen++
	gen := sess.gen
	sess.timer = time.AfterFunc(d, func() { s.expireSession(sess, gen) })
}

// claimSession takes ownership of the user's session for the duration of
// one inbound event, stopping the pending expiry timer. Returns nil when no
// session exists or another event already owns it.
func (s *VerificationService) claimSession(userID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok || sess.busy {
		return nil
	}
	sess.busy = true
	sess.gen++
	if sess.timer != nil {
		sess.timer.Stop()
	}
	return sess
}

func (s *VerificationService) hasSession(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[userID]
	return ok
}

func (s *VerificationService) removeSession(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		if sess.timer != nil {
			sess.timer.Stop()
		}
		delete(s.sessions, userID)
	}
}

// expireSession is the timer callback for a session that got no reply in
// time. A stale generation means an inbound DM claimed the session first.
// The identity check guards against a timer whose Stop raced its firing:
// per-session generations restart at zero, so a dead session's callback
// could otherwise match a fresh session of the same user.
func (s *VerificationService) expireSession(sess *session, gen int) {
	s.mu.Lock()
	cur, ok := s.sessions[sess.userID]
	if !ok || cur != sess || cur.busy || cur.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.sessions, sess.userID)
	s.mu.Unlock()

	observeOutcome("timeout")
	s.logger.WithFields(logrus.Fields{
		"user_id":  sess.userID,
		"guild_id": sess.guildID,
		"phase":    sess.phase.String(),
	}).Info("Verification session timed out")
	s.notify(context.Background(), sess.userID, msgResponseTimeout)
}

func (s *VerificationService) sweepLoop() {
	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweepExpired(time.Now())
		}
	}
}

// sweepExpired reaps sessions whose expiry passed but whose timer never
// fired. The primary timer already notified the user (or will not, if it
// leaked), so the sweep stays silent to avoid duplicate DMs.
func (s *VerificationService) sweepExpired(now time.Time) {
	s.mu.Lock()
	var swept []string
	for userID, sess := range s.sessions {
		if sess.busy || sess.expiresAt.IsZero() || now.Before(sess.expiresAt) {
			continue
		}
		if sess.timer != nil {
			sess.timer.Stop()
		}
		delete(s.sessions, userID)
		swept = append(swept, userID)
	}
	s.mu.Unlock()

	if len(swept) > 0 {
		s.logger.WithFields(logrus.Fields{
			"count": len(swept),
		}).Warn("Swept expired verification sessions with no timer")
	}
}
