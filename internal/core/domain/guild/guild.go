package guild

// DefaultRoleName is granted to verified members when a guild has not
// configured its own role name.
const DefaultRoleName = "Verified"

// Config is the persisted per-guild verification configuration. It is
// created implicitly by the first admin configuration command and never
// explicitly deleted.
type Config struct {
	GuildID  string   `bson:"guild_id"`
	Domains  []string `bson:"domains"`
	OnJoin   bool     `bson:"onjoin"`
	RoleName string   `bson:"role"`
}

// Role returns the configured verified role name, falling back to the
// default when unset.
func (c *Config) Role() string {
	if c == nil || c.RoleName == "" {
		return DefaultRoleName
	}
	return c.RoleName
}

// AllowsDomain reports whether the given email domain is in the guild's
// allow list. Membership is an exact string match.
func (c *Config) AllowsDomain(domain string) bool {
	if c == nil {
		return false
	}
	for _, d := range c.Domains {
		if d == domain {
			return true
		}
	}
	return false
}

// Capabilities is the bot's permission vector in a guild, queried once at
// preflight.
type Capabilities struct {
	ManageRoles bool
	ViewChannel bool
}

// Sufficient reports whether the bot holds everything verification needs.
func (c Capabilities) Sufficient() bool {
	return c.ManageRoles && c.ViewChannel
}

// Role is a guild role as seen through the chat gateway. Position orders the
// role hierarchy; a role is only assignable by an actor whose highest role
// has a strictly greater position.
type Role struct {
	ID       string
	Name     string
	Position int
}

// HierarchyEntry describes one role in an operator-facing hierarchy report.
type HierarchyEntry struct {
	Name       string
	Position   int
	IsBotRole  bool
	Manageable bool
}

// HierarchyReport is an operator diagnostic logged when role assignment or
// the permission preflight fails. It is never shown to end users.
type HierarchyReport struct {
	BotRole         string
	BotRolePosition int
	Roles           []HierarchyEntry
}
