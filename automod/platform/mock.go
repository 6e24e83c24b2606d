package platform

import (
	"context"
	"fmt"
	"sync"
)

// MockClient is an in-memory Client for tests: lookups are served from maps
// populated by the test, side-effecting calls are recorded, and individual
// calls can be forced to fail.
type MockClient struct {
	mu sync.Mutex

	Members     map[string]*Member // keyed "community/user"
	Bots        map[string]*Member // keyed by community
	Roles       map[string]*Role   // keyed "community/role"
	Perms       map[string]Permissions
	ChanPerms   map[string]Permissions // keyed "community/channel/user"
	Invites     map[string]*Invite     // keyed by code
	DefaultSend bool                   // channel perms fall back to this for SendMessages

	Kicked       []string // "community/user"
	Banned       []string
	Unbanned     []string
	RolesAdded   []string // "community/user/role"
	RolesRemoved []string
	Overwrites   []string // "community/channel/user"
	Deleted      []string // "community/channel/message"
	Messages     []string // channel notices, "community/channel: text"
	Embeds       []Embed
	EmbedDests   []string // "community/channel"
	DMs          []string // "user: text"

	FailKick      bool
	FailBan       bool
	FailAddRole   bool
	FailOverwrite bool
	FailDelete    bool
	FailEmbed     bool
	FailDM        bool
}

var _ Client = (*MockClient)(nil)

func NewMockClient() *MockClient {
	return &MockClient{
		Members:     make(map[string]*Member),
		Bots:        make(map[string]*Member),
		Roles:       make(map[string]*Role),
		Perms:       make(map[string]Permissions),
		ChanPerms:   make(map[string]Permissions),
		Invites:     make(map[string]*Invite),
		DefaultSend: true,
	}
}

func (m *MockClient) AddMember(communityID string, member *Member, perms Permissions) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Members[communityID+"/"+member.ID] = member
	m.Perms[communityID+"/"+member.ID] = perms
}

func (m *MockClient) Member(ctx context.Context, communityID, userID string) (*Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Members[communityID+"/"+userID], nil
}

func (m *MockClient) BotMember(ctx context.Context, communityID string) (*Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bot, ok := m.Bots[communityID]
	if !ok {
		return nil, fmt.Errorf("bot is not a member of community %s", communityID)
	}
	return bot, nil
}

func (m *MockClient) Role(ctx context.Context, communityID, roleID string) (*Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Roles[communityID+"/"+roleID], nil
}

func (m *MockClient) Permissions(ctx context.Context, communityID, userID string) (Permissions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Perms[communityID+"/"+userID], nil
}

func (m *MockClient) ChannelPermissions(ctx context.Context, communityID, channelID, userID string) (Permissions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.ChanPerms[communityID+"/"+channelID+"/"+userID]; ok {
		return p, nil
	}
	if p, ok := m.Perms[communityID+"/"+userID]; ok {
		p.SendMessages = m.DefaultSend
		return p, nil
	}
	return Permissions{SendMessages: m.DefaultSend}, nil
}

func (m *MockClient) DeleteMessage(ctx context.Context, communityID, channelID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDelete {
		return fmt.Errorf("mock: delete failed")
	}
	m.Deleted = append(m.Deleted, communityID+"/"+channelID+"/"+messageID)
	return nil
}

func (m *MockClient) AddRole(ctx context.Context, communityID, userID, roleID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAddRole {
		return fmt.Errorf("mock: add role failed")
	}
	m.RolesAdded = append(m.RolesAdded, communityID+"/"+userID+"/"+roleID)
	return nil
}

func (m *MockClient) RemoveRole(ctx context.Context, communityID, userID, roleID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RolesRemoved = append(m.RolesRemoved, communityID+"/"+userID+"/"+roleID)
	return nil
}

func (m *MockClient) DenySendOverwrite(ctx context.Context, communityID, channelID, userID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailOverwrite {
		return fmt.Errorf("mock: overwrite failed")
	}
	m.Overwrites = append(m.Overwrites, communityID+"/"+channelID+"/"+userID)
	return nil
}

func (m *MockClient) Kick(ctx context.Context, communityID, userID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailKick {
		return fmt.Errorf("mock: kick failed")
	}
	m.Kicked = append(m.Kicked, communityID+"/"+userID)
	return nil
}

func (m *MockClient) Ban(ctx context.Context, communityID, userID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailBan {
		return fmt.Errorf("mock: ban failed")
	}
	m.Banned = append(m.Banned, communityID+"/"+userID)
	return nil
}

func (m *MockClient) Unban(ctx context.Context, communityID, userID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Unbanned = append(m.Unbanned, communityID+"/"+userID)
	return nil
}

func (m *MockClient) ResolveInvite(ctx context.Context, code string) (*Invite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.Invites[code]
	if !ok {
		return nil, fmt.Errorf("invite not found: %s", code)
	}
	return inv, nil
}

func (m *MockClient) SendMessage(ctx context.Context, communityID, channelID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, communityID+"/"+channelID+": "+text)
	return nil
}

func (m *MockClient) SendEmbed(ctx context.Context, communityID, channelID string, embed Embed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailEmbed {
		return fmt.Errorf("mock: embed failed")
	}
	m.Embeds = append(m.Embeds, embed)
	m.EmbedDests = append(m.EmbedDests, communityID+"/"+channelID)
	return nil
}

// Recorded returns a copy of one of the call-record slices, safe to read
// while background goroutines (eg scheduler timers) are still firing.
func (m *MockClient) Recorded(kind string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var src []string
	switch kind {
	case "kicked":
		src = m.Kicked
	case "banned":
		src = m.Banned
	case "unbanned":
		src = m.Unbanned
	case "roles_added":
		src = m.RolesAdded
	case "roles_removed":
		src = m.RolesRemoved
	case "overwrites":
		src = m.Overwrites
	case "deleted":
		src = m.Deleted
	case "messages":
		src = m.Messages
	case "dms":
		src = m.DMs
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

func (m *MockClient) SendDM(ctx context.Context, userID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDM {
		return fmt.Errorf("mock: dm failed")
	}
	m.DMs = append(m.DMs, userID+": "+text)
	return nil
}
