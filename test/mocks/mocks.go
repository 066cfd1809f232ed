package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/campusgate/verifybot/internal/core/domain/guild"
	"github.com/campusgate/verifybot/internal/core/domain/verification"
	"github.com/campusgate/verifybot/internal/core/ports"
)

// VerificationRepositoryMock is a lightweight mock for VerificationRepository
type VerificationRepositoryMock struct {
	FindFn             func(ctx context.Context, filter ports.RecordFilter) (*verification.Record, error)
	InsertFn           func(ctx context.Context, record *verification.Record) error
	MarkVerifiedFn     func(ctx context.Context, record *verification.Record) error
	DeleteUnverifiedFn func(ctx context.Context, userID, guildID string) error
}

func (m *VerificationRepositoryMock) Find(ctx context.Context, filter ports.RecordFilter) (*verification.Record, error) {
	if m.FindFn != nil {
		return m.FindFn(ctx, filter)
	}
	return nil, nil
}
func (m *VerificationRepositoryMock) Insert(ctx context.Context, record *verification.Record) error {
	if m.InsertFn != nil {
		return m.InsertFn(ctx, record)
	}
	return nil
}
func (m *VerificationRepositoryMock) MarkVerified(ctx context.Context, record *verification.Record) error {
	if m.MarkVerifiedFn != nil {
		return m.MarkVerifiedFn(ctx, record)
	}
	record.Verified = true
	return nil
}
func (m *VerificationRepositoryMock) DeleteUnverified(ctx context.Context, userID, guildID string) error {
	if m.DeleteUnverifiedFn != nil {
		return m.DeleteUnverifiedFn(ctx, userID, guildID)
	}
	return nil
}

// GuildConfigRepositoryMock is a lightweight mock for GuildConfigRepository
type GuildConfigRepositoryMock struct {
	FindFn         func(ctx context.Context, guildID string) (*guild.Config, error)
	SetOnJoinFn    func(ctx context.Context, guildID string, enabled bool) error
	AddDomainFn    func(ctx context.Context, guildID, domain string) error
	RemoveDomainFn func(ctx context.Context, guildID, domain string) error
	SetRoleNameFn  func(ctx context.Context, guildID, roleName string) error
}

func (m *GuildConfigRepositoryMock) Find(ctx context.Context, guildID string) (*guild.Config, error) {
	if m.FindFn != nil {
		return m.FindFn(ctx, guildID)
	}
	return nil, nil
}
func (m *GuildConfigRepositoryMock) SetOnJoin(ctx context.Context, guildID string, enabled bool) error {
	if m.SetOnJoinFn != nil {
		return m.SetOnJoinFn(ctx, guildID, enabled)
	}
	return nil
}
func (m *GuildConfigRepositoryMock) AddDomain(ctx context.Context, guildID, domain string) error {
	if m.AddDomainFn != nil {
		return m.AddDomainFn(ctx, guildID, domain)
	}
	return nil
}
func (m *GuildConfigRepositoryMock) RemoveDomain(ctx context.Context, guildID, domain string) error {
	if m.RemoveDomainFn != nil {
		return m.RemoveDomainFn(ctx, guildID, domain)
	}
	return nil
}
func (m *GuildConfigRepositoryMock) SetRoleName(ctx context.Context, guildID, roleName string) error {
	if m.SetRoleNameFn != nil {
		return m.SetRoleNameFn(ctx, guildID, roleName)
	}
	return nil
}

// EmailServiceMock is a lightweight mock for EmailService
type EmailServiceMock struct {
	SendVerificationCodeFn func(ctx context.Context, email, code string) error
}

func (m *EmailServiceMock) SendVerificationCode(ctx context.Context, email, code string) error {
	if m.SendVerificationCodeFn != nil {
		return m.SendVerificationCodeFn(ctx, email, code)
	}
	return nil
}

// ChatGatewayMock mocks the chat gateway. DirectMessages and ChannelMessages
// record outbound sends for assertions; the accessors are safe to call while
// session timers may still be firing.
type ChatGatewayMock struct {
	mu              sync.Mutex
	directMessages  []string
	channelMessages []string

	SendDirectMessageFn  func(ctx context.Context, userID, content string) error
	SendChannelMessageFn func(ctx context.Context, channelID, content string) error
	BotCapabilitiesFn    func(ctx context.Context, guildID string) (guild.Capabilities, error)
	ListRolesFn          func(ctx context.Context, guildID string) ([]guild.Role, error)
	BotHighestRoleFn     func(ctx context.Context, guildID string) (*guild.Role, error)
	CreateRoleFn         func(ctx context.Context, guildID, name string) (*guild.Role, error)
	MemberRoleIDsFn      func(ctx context.Context, guildID, userID string) ([]string, error)
	AddMemberRoleFn      func(ctx context.Context, guildID, userID, roleID string) error
	LatencyFn            func() time.Duration
}

func (m *ChatGatewayMock) SendDirectMessage(ctx context.Context, userID, content string) error {
	m.mu.Lock()
	m.directMessages = append(m.directMessages, content)
	m.mu.Unlock()
	if m.SendDirectMessageFn != nil {
		return m.SendDirectMessageFn(ctx, userID, content)
	}
	return nil
}
func (m *ChatGatewayMock) SendChannelMessage(ctx context.Context, channelID, content string) error {
	m.mu.Lock()
	m.channelMessages = append(m.channelMessages, content)
	m.mu.Unlock()
	if m.SendChannelMessageFn != nil {
		return m.SendChannelMessageFn(ctx, channelID, content)
	}
	return nil
}
func (m *ChatGatewayMock) BotCapabilities(ctx context.Context, guildID string) (guild.Capabilities, error) {
	if m.BotCapabilitiesFn != nil {
		return m.BotCapabilitiesFn(ctx, guildID)
	}
	return guild.Capabilities{ManageRoles: true, ViewChannel: true}, nil
}
func (m *ChatGatewayMock) ListRoles(ctx context.Context, guildID string) ([]guild.Role, error) {
	if m.ListRolesFn != nil {
		return m.ListRolesFn(ctx, guildID)
	}
	return []guild.Role{
		{ID: "role-bot", Name: "Bot", Position: 5},
		{ID: "role-verified", Name: "Verified", Position: 1},
	}, nil
}
func (m *ChatGatewayMock) BotHighestRole(ctx context.Context, guildID string) (*guild.Role, error) {
	if m.BotHighestRoleFn != nil {
		return m.BotHighestRoleFn(ctx, guildID)
	}
	return &guild.Role{ID: "role-bot", Name: "Bot", Position: 5}, nil
}
func (m *ChatGatewayMock) CreateRole(ctx context.Context, guildID, name string) (*guild.Role, error) {
	if m.CreateRoleFn != nil {
		return m.CreateRoleFn(ctx, guildID, name)
	}
	return &guild.Role{ID: "role-created", Name: name, Position: 1}, nil
}
func (m *ChatGatewayMock) MemberRoleIDs(ctx context.Context, guildID, userID string) ([]string, error) {
	if m.MemberRoleIDsFn != nil {
		return m.MemberRoleIDsFn(ctx, guildID, userID)
	}
	return nil, nil
}
func (m *ChatGatewayMock) AddMemberRole(ctx context.Context, guildID, userID, roleID string) error {
	if m.AddMemberRoleFn != nil {
		return m.AddMemberRoleFn(ctx, guildID, userID, roleID)
	}
	return nil
}
func (m *ChatGatewayMock) Latency() time.Duration {
	if m.LatencyFn != nil {
		return m.LatencyFn()
	}
	return 42 * time.Millisecond
}

// DirectMessages returns a copy of the DMs sent so far.
func (m *ChatGatewayMock) DirectMessages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.directMessages...)
}

// ChannelMessages returns a copy of the channel messages sent so far.
func (m *ChatGatewayMock) ChannelMessages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.channelMessages...)
}
