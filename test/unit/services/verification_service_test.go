package services_test

import (
	"context"
	"errors"
	"io"
	"regexp"
	"sync"
	"testing"
	"time"

	impl "github.com/campusgate/verifybot/internal/application/services"
	"github.com/campusgate/verifybot/internal/core/domain/guild"
	"github.com/campusgate/verifybot/internal/core/domain/verification"
	"github.com/campusgate/verifybot/internal/core/ports"
	tmocks "github.com/campusgate/verifybot/test/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func fastConfig() impl.VerificationConfig {
	return impl.VerificationConfig{
		EmailReplyTimeout: 5 * time.Second,
		CodeReplyTimeout:  5 * time.Second,
		SweepInterval:     time.Hour,
		CallTimeout:       time.Second,
	}
}

func campusGuildRepo() *tmocks.GuildConfigRepositoryMock {
	return &tmocks.GuildConfigRepositoryMock{
		FindFn: func(ctx context.Context, guildID string) (*guild.Config, error) {
			return &guild.Config{GuildID: guildID, Domains: []string{"csi.edu"}}, nil
		},
	}
}

// recordStore backs the repository mock with real insert/find semantics so
// the OTP round-trips through storage exactly as submitted.
type recordStore struct {
	mu      sync.Mutex
	records []*verification.Record
}

func (s *recordStore) repo() *tmocks.VerificationRepositoryMock {
	return &tmocks.VerificationRepositoryMock{
		FindFn: func(ctx context.Context, filter ports.RecordFilter) (*verification.Record, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			for _, r := range s.records {
				if r.Verified != filter.Verified {
					continue
				}
				if filter.UserID != "" && r.UserID != filter.UserID {
					continue
				}
				if filter.GuildID != "" && r.GuildID != filter.GuildID {
					continue
				}
				if filter.Code != "" && r.Code != filter.Code {
					continue
				}
				return r, nil
			}
			return nil, nil
		},
		InsertFn: func(ctx context.Context, record *verification.Record) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.records = append(s.records, record)
			return nil
		},
		MarkVerifiedFn: func(ctx context.Context, record *verification.Record) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			record.Verified = true
			return nil
		},
		DeleteUnverifiedFn: func(ctx context.Context, userID, guildID string) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			kept := s.records[:0]
			for _, r := range s.records {
				if r.UserID == userID && r.GuildID == guildID && !r.Verified {
					continue
				}
				kept = append(kept, r)
			}
			s.records = kept
			return nil
		},
	}
}

func TestBeginVerification_SecondSessionRejected(t *testing.T) {
	chat := &tmocks.ChatGatewayMock{}
	svc := impl.NewVerificationService(&tmocks.VerificationRepositoryMock{}, campusGuildRepo(), &tmocks.EmailServiceMock{}, chat, fastConfig(), testLogger())
	defer svc.Stop()

	require.NoError(t, svc.BeginVerification(context.Background(), "user-1", "guild-1"))
	require.Equal(t, 1, svc.ActiveSessions())

	err := svc.BeginVerification(context.Background(), "user-1", "guild-2")
	require.ErrorIs(t, err, verification.ErrSessionAlreadyActive)
	assert.Equal(t, 1, svc.ActiveSessions())
}

func TestBeginVerification_InsufficientPermissions(t *testing.T) {
	chat := &tmocks.ChatGatewayMock{
		BotCapabilitiesFn: func(ctx context.Context, guildID string) (guild.Capabilities, error) {
			return guild.Capabilities{ManageRoles: false, ViewChannel: true}, nil
		},
	}
	records := &tmocks.VerificationRepositoryMock{
		InsertFn: func(ctx context.Context, record *verification.Record) error {
			t.Error("no record should be created")
			return nil
		},
	}
	svc := impl.NewVerificationService(records, campusGuildRepo(), &tmocks.EmailServiceMock{}, chat, fastConfig(), testLogger())
	defer svc.Stop()

	err := svc.BeginVerification(context.Background(), "user-1", "guild-1")
	require.ErrorIs(t, err, verification.ErrInsufficientPermissions)
	assert.Equal(t, 0, svc.ActiveSessions())
	assert.Len(t, chat.DirectMessages(), 1)
}

func TestBeginVerification_CapabilityLookupError(t *testing.T) {
	chat := &tmocks.ChatGatewayMock{
		BotCapabilitiesFn: func(ctx context.Context, guildID string) (guild.Capabilities, error) {
			return guild.Capabilities{}, errors.New("guild unreachable")
		},
	}
	svc := impl.NewVerificationService(&tmocks.VerificationRepositoryMock{}, campusGuildRepo(), &tmocks.EmailServiceMock{}, chat, fastConfig(), testLogger())
	defer svc.Stop()

	err := svc.BeginVerification(context.Background(), "user-1", "guild-1")
	require.ErrorIs(t, err, verification.ErrExternalService)
	assert.Equal(t, 0, svc.ActiveSessions())

	// Unknown permissions are reported as an internal error, not as a
	// known-insufficient permission set.
	dms := chat.DirectMessages()
	require.Len(t, dms, 1)
	assert.Contains(t, dms[0], "An error occurred")
}

func TestBeginVerification_AlreadyVerified(t *testing.T) {
	chat := &tmocks.ChatGatewayMock{}
	records := &tmocks.VerificationRepositoryMock{
		FindFn: func(ctx context.Context, filter ports.RecordFilter) (*verification.Record, error) {
			return &verification.Record{UserID: filter.UserID, GuildID: filter.GuildID, Verified: true}, nil
		},
	}
	svc := impl.NewVerificationService(records, campusGuildRepo(), &tmocks.EmailServiceMock{}, chat, fastConfig(), testLogger())
	defer svc.Stop()

	err := svc.BeginVerification(context.Background(), "user-1", "guild-1")
	require.ErrorIs(t, err, verification.ErrAlreadyVerified)
	assert.Equal(t, 0, svc.ActiveSessions())
}

func TestVerificationFlow_Success(t *testing.T) {
	store := &recordStore{}
	chat := &tmocks.ChatGatewayMock{}
	var sentCode string
	mail := &tmocks.EmailServiceMock{
		SendVerificationCodeFn: func(ctx context.Context, email, code string) error {
			sentCode = code
			return nil
		},
	}
	var grantedRole string
	chat.AddMemberRoleFn = func(ctx context.Context, guildID, userID, roleID string) error {
		grantedRole = roleID
		return nil
	}

	svc := impl.NewVerificationService(store.repo(), campusGuildRepo(), mail, chat, fastConfig(), testLogger())
	defer svc.Stop()

	require.NoError(t, svc.BeginVerification(context.Background(), "user-1", "guild-1"))
	require.NoError(t, svc.HandleDirectMessage(context.Background(), "user-1", "a@csi.edu"))

	require.Regexp(t, regexp.MustCompile(`^\d{6}$`), sentCode)
	require.Len(t, store.records, 1)
	assert.False(t, store.records[0].Verified)
	assert.Equal(t, "a@csi.edu", store.records[0].Email)

	require.NoError(t, svc.HandleDirectMessage(context.Background(), "user-1", sentCode))

	assert.True(t, store.records[0].Verified)
	assert.Equal(t, "role-verified", grantedRole)
	assert.Equal(t, 0, svc.ActiveSessions())

	dms := chat.DirectMessages()
	require.NotEmpty(t, dms)
	assert.Contains(t, dms[len(dms)-1], "successfully verified")
}

func TestVerificationFlow_DomainNotAllowed(t *testing.T) {
	store := &recordStore{}
	chat := &tmocks.ChatGatewayMock{}
	svc := impl.NewVerificationService(store.repo(), campusGuildRepo(), &tmocks.EmailServiceMock{}, chat, fastConfig(), testLogger())
	defer svc.Stop()

	require.NoError(t, svc.BeginVerification(context.Background(), "user-1", "guild-1"))
	err := svc.HandleDirectMessage(context.Background(), "user-1", "a@other.com")
	require.ErrorIs(t, err, verification.ErrDomainNotAllowed)

	assert.Empty(t, store.records)
	assert.Equal(t, 0, svc.ActiveSessions())

	dms := chat.DirectMessages()
	require.NotEmpty(t, dms)
	assert.Contains(t, dms[len(dms)-1], "csi.edu")
}

func TestVerificationFlow_MalformedEmails(t *testing.T) {
	for _, email := range []string{"user@", "user"} {
		t.Run(email, func(t *testing.T) {
			chat := &tmocks.ChatGatewayMock{}
			svc := impl.NewVerificationService(&tmocks.VerificationRepositoryMock{}, campusGuildRepo(), &tmocks.EmailServiceMock{}, chat, fastConfig(), testLogger())
			defer svc.Stop()

			require.NoError(t, svc.BeginVerification(context.Background(), "user-1", "guild-1"))
			err := svc.HandleDirectMessage(context.Background(), "user-1", email)
			require.ErrorIs(t, err, verification.ErrDomainNotAllowed)
			assert.Equal(t, 0, svc.ActiveSessions())
		})
	}
}

func TestVerificationFlow_NoGuildConfig(t *testing.T) {
	chat := &tmocks.ChatGatewayMock{}
	guilds := &tmocks.GuildConfigRepositoryMock{} // Find returns nil, nil
	svc := impl.NewVerificationService(&tmocks.VerificationRepositoryMock{}, guilds, &tmocks.EmailServiceMock{}, chat, fastConfig(), testLogger())
	defer svc.Stop()

	require.NoError(t, svc.BeginVerification(context.Background(), "user-1", "guild-1"))
	err := svc.HandleDirectMessage(context.Background(), "user-1", "a@csi.edu")
	require.ErrorIs(t, err, verification.ErrDomainNotAllowed)

	dms := chat.DirectMessages()
	require.NotEmpty(t, dms)
	assert.Contains(t, dms[len(dms)-1], "None configured")
}

func TestVerificationFlow_EmailDeliveryFailed(t *testing.T) {
	store := &recordStore{}
	chat := &tmocks.ChatGatewayMock{}
	mail := &tmocks.EmailServiceMock{
		SendVerificationCodeFn: func(ctx context.Context, email, code string) error {
			return errors.New("provider unavailable")
		},
	}
	svc := impl.NewVerificationService(store.repo(), campusGuildRepo(), mail, chat, fastConfig(), testLogger())
	defer svc.Stop()

	require.NoError(t, svc.BeginVerification(context.Background(), "user-1", "guild-1"))
	err := svc.HandleDirectMessage(context.Background(), "user-1", "a@csi.edu")
	require.ErrorIs(t, err, verification.ErrEmailDeliveryFailed)
	assert.Equal(t, 0, svc.ActiveSessions())
}

func TestVerificationFlow_InvalidCode(t *testing.T) {
	store := &recordStore{}
	chat := &tmocks.ChatGatewayMock{}
	var sentCode string
	mail := &tmocks.EmailServiceMock{
		SendVerificationCodeFn: func(ctx context.Context, email, code string) error {
			sentCode = code
			return nil
		},
	}
	svc := impl.NewVerificationService(store.repo(), campusGuildRepo(), mail, chat, fastConfig(), testLogger())
	defer svc.Stop()

	require.NoError(t, svc.BeginVerification(context.Background(), "user-1", "guild-1"))
	require.NoError(t, svc.HandleDirectMessage(context.Background(), "user-1", "a@csi.edu"))

	wrong := "000000"
	if sentCode == wrong {
		wrong = "000001"
	}
	err := svc.HandleDirectMessage(context.Background(), "user-1", wrong)
	require.ErrorIs(t, err, verification.ErrInvalidCode)
	assert.Equal(t, 0, svc.ActiveSessions())

	// The stored record stays until the store's TTL removes it.
	assert.Len(t, store.records, 1)
	assert.False(t, store.records[0].Verified)
}

func TestVerificationFlow_RoleAssignmentFailureIsGeneric(t *testing.T) {
	store := &recordStore{}
	chat := &tmocks.ChatGatewayMock{
		// The verified role outranks the bot's highest role.
		ListRolesFn: func(ctx context.Context, guildID string) ([]guild.Role, error) {
			return []guild.Role{
				{ID: "role-verified", Name: "Verified", Position: 9},
				{ID: "role-bot", Name: "Bot", Position: 5},
			}, nil
		},
	}
	var sentCode string
	mail := &tmocks.EmailServiceMock{
		SendVerificationCodeFn: func(ctx context.Context, email, code string) error {
			sentCode = code
			return nil
		},
	}
	svc := impl.NewVerificationService(store.repo(), campusGuildRepo(), mail, chat, fastConfig(), testLogger())
	defer svc.Stop()

	require.NoError(t, svc.BeginVerification(context.Background(), "user-1", "guild-1"))
	require.NoError(t, svc.HandleDirectMessage(context.Background(), "user-1", "a@csi.edu"))

	dmsBefore := len(chat.DirectMessages())
	err := svc.HandleDirectMessage(context.Background(), "user-1", sentCode)
	require.ErrorIs(t, err, verification.ErrRoleAssignmentFailed)
	assert.Equal(t, 0, svc.ActiveSessions())

	// Exactly one terminal DM, same wording as the invalid-code path.
	dms := chat.DirectMessages()
	require.Len(t, dms, dmsBefore+1)
	assert.Contains(t, dms[len(dms)-1], "Verification failed")
}

func TestVerificationFlow_IdempotentRoleGrant(t *testing.T) {
	store := &recordStore{}
	chat := &tmocks.ChatGatewayMock{
		MemberRoleIDsFn: func(ctx context.Context, guildID, userID string) ([]string, error) {
			return []string{"role-verified"}, nil
		},
		AddMemberRoleFn: func(ctx context.Context, guildID, userID, roleID string) error {
			return errors.New("must not be called for a member who already holds the role")
		},
	}
	var sentCode string
	mail := &tmocks.EmailServiceMock{
		SendVerificationCodeFn: func(ctx context.Context, email, code string) error {
			sentCode = code
			return nil
		},
	}
	svc := impl.NewVerificationService(store.repo(), campusGuildRepo(), mail, chat, fastConfig(), testLogger())
	defer svc.Stop()

	require.NoError(t, svc.BeginVerification(context.Background(), "user-1", "guild-1"))
	require.NoError(t, svc.HandleDirectMessage(context.Background(), "user-1", "a@csi.edu"))
	require.NoError(t, svc.HandleDirectMessage(context.Background(), "user-1", sentCode))
	assert.Equal(t, 0, svc.ActiveSessions())
}

func TestVerificationFlow_CreatesMissingRole(t *testing.T) {
	store := &recordStore{}
	created := false
	chat := &tmocks.ChatGatewayMock{
		ListRolesFn: func(ctx context.Context, guildID string) ([]guild.Role, error) {
			return []guild.Role{{ID: "role-bot", Name: "Bot", Position: 5}}, nil
		},
		CreateRoleFn: func(ctx context.Context, guildID, name string) (*guild.Role, error) {
			created = true
			return &guild.Role{ID: "role-new", Name: name, Position: 1}, nil
		},
	}
	var sentCode string
	mail := &tmocks.EmailServiceMock{
		SendVerificationCodeFn: func(ctx context.Context, email, code string) error {
			sentCode = code
			return nil
		},
	}
	svc := impl.NewVerificationService(store.repo(), campusGuildRepo(), mail, chat, fastConfig(), testLogger())
	defer svc.Stop()

	require.NoError(t, svc.BeginVerification(context.Background(), "user-1", "guild-1"))
	require.NoError(t, svc.HandleDirectMessage(context.Background(), "user-1", "a@csi.edu"))
	require.NoError(t, svc.HandleDirectMessage(context.Background(), "user-1", sentCode))
	assert.True(t, created)
}

func TestVerificationFlow_RoleCreationFailed(t *testing.T) {
	store := &recordStore{}
	chat := &tmocks.ChatGatewayMock{
		ListRolesFn: func(ctx context.Context, guildID string) ([]guild.Role, error) {
			return []guild.Role{{ID: "role-bot", Name: "Bot", Position: 5}}, nil
		},
		CreateRoleFn: func(ctx context.Context, guildID, name string) (*guild.Role, error) {
			return nil, errors.New("missing permission")
		},
	}
	var sentCode string
	mail := &tmocks.EmailServiceMock{
		SendVerificationCodeFn: func(ctx context.Context, email, code string) error {
			sentCode = code
			return nil
		},
	}
	svc := impl.NewVerificationService(store.repo(), campusGuildRepo(), mail, chat, fastConfig(), testLogger())
	defer svc.Stop()

	require.NoError(t, svc.BeginVerification(context.Background(), "user-1", "guild-1"))
	require.NoError(t, svc.HandleDirectMessage(context.Background(), "user-1", "a@csi.edu"))

	dmsBefore := len(chat.DirectMessages())
	err := svc.HandleDirectMessage(context.Background(), "user-1", sentCode)
	require.ErrorIs(t, err, verification.ErrRoleCreationFailed)
	assert.Equal(t, 0, svc.ActiveSessions())

	// Same single generic terminal DM as the other role failures.
	dms := chat.DirectMessages()
	require.Len(t, dms, dmsBefore+1)
	assert.Contains(t, dms[len(dms)-1], "Verification failed")
}

func TestSessionTimeout_AwaitingEmail(t *testing.T) {
	cfg := fastConfig()
	cfg.EmailReplyTimeout = 25 * time.Millisecond
	chat := &tmocks.ChatGatewayMock{}
	svc := impl.NewVerificationService(&tmocks.VerificationRepositoryMock{}, campusGuildRepo(), &tmocks.EmailServiceMock{}, chat, cfg, testLogger())
	defer svc.Stop()

	require.NoError(t, svc.BeginVerification(context.Background(), "user-1", "guild-1"))
	require.Equal(t, 1, svc.ActiveSessions())

	require.Eventually(t, func() bool { return svc.ActiveSessions() == 0 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		dms := chat.DirectMessages()
		return len(dms) > 0 && dms[len(dms)-1] == "⏰ Verification timed out. Please use `.verify` again."
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSessionTimeout_AwaitingCode(t *testing.T) {
	cfg := fastConfig()
	cfg.CodeReplyTimeout = 25 * time.Millisecond
	store := &recordStore{}
	chat := &tmocks.ChatGatewayMock{}
	svc := impl.NewVerificationService(store.repo(), campusGuildRepo(), &tmocks.EmailServiceMock{}, chat, cfg, testLogger())
	defer svc.Stop()

	require.NoError(t, svc.BeginVerification(context.Background(), "user-1", "guild-1"))
	require.NoError(t, svc.HandleDirectMessage(context.Background(), "user-1", "a@csi.edu"))

	require.Eventually(t, func() bool { return svc.ActiveSessions() == 0 }, 2*time.Second, 10*time.Millisecond)
	// The record outlives the session; only the store's TTL removes it.
	assert.Len(t, store.records, 1)
}

func TestHandleDirectMessage_NoSession(t *testing.T) {
	chat := &tmocks.ChatGatewayMock{}
	svc := impl.NewVerificationService(&tmocks.VerificationRepositoryMock{}, campusGuildRepo(), &tmocks.EmailServiceMock{}, chat, fastConfig(), testLogger())
	defer svc.Stop()

	require.NoError(t, svc.HandleDirectMessage(context.Background(), "user-1", "hello"))
	dms := chat.DirectMessages()
	require.Len(t, dms, 1)
	assert.Contains(t, dms[0], "No active verification")
}

func TestHandleMemberJoin(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *guild.Config
		wantDMs int
	}{
		{"on-join enabled", &guild.Config{GuildID: "guild-1", OnJoin: true}, 1},
		{"on-join disabled", &guild.Config{GuildID: "guild-1", OnJoin: false}, 0},
		{"no config", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &tmocks.ChatGatewayMock{}
			guilds := &tmocks.GuildConfigRepositoryMock{
				FindFn: func(ctx context.Context, guildID string) (*guild.Config, error) {
					return tt.cfg, nil
				},
			}
			svc := impl.NewVerificationService(&tmocks.VerificationRepositoryMock{}, guilds, &tmocks.EmailServiceMock{}, chat, fastConfig(), testLogger())
			defer svc.Stop()

			require.NoError(t, svc.HandleMemberJoin(context.Background(), "guild-1", "user-1"))
			assert.Len(t, chat.DirectMessages(), tt.wantDMs)
		})
	}
}
