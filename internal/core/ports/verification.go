package ports

import "context"

// VerificationService is the in-memory session manager coordinating the
// DM-driven verification flow for a single process.
type VerificationService interface {
	// BeginVerification starts a session for the user, or reports why one
	// cannot start. The user is always notified via DM, including on failure.
	BeginVerification(ctx context.Context, userID, guildID string) error

	// HandleDirectMessage feeds the user's next DM into their session:
	// an email address while awaiting email, a code while awaiting the OTP.
	HandleDirectMessage(ctx context.Context, userID, content string) error

	// HandleMemberJoin prompts newly joined members to verify when the
	// guild has on-join prompting enabled.
	HandleMemberJoin(ctx context.Context, guildID, userID string) error

	// ActiveSessions reports the number of live sessions.
	ActiveSessions() int

	// Start launches the periodic session sweeper; Stop halts it and drops
	// all live sessions.
	Start()
	Stop()
}

// GuildConfigService mutates and reads per-guild verification settings.
type GuildConfigService interface {
	EnableOnJoin(ctx context.Context, guildID string) error
	DisableOnJoin(ctx context.Context, guildID string) error
	AddDomain(ctx context.Context, guildID, domain string) error
	RemoveDomain(ctx context.Context, guildID, domain string) error
	SetRoleName(ctx context.Context, guildID, roleName string) error
	Status(ctx context.Context, guildID string) (*GuildStatus, error)
}

// GuildStatus is the summary shown by the status command.
type GuildStatus struct {
	Domains  string
	OnJoin   bool
	RoleName string
}

// CommandRouter dispatches inbound chat commands.
type CommandRouter interface {
	HandleCommand(ctx context.Context, cmd Command)
}

// Command is an inbound chat command from a guild channel.
type Command struct {
	Name      string
	Args      []string
	UserID    string
	GuildID   string
	ChannelID string
	IsAdmin   bool
}
