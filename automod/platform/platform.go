// Chat-platform client boundary. Everything the engine needs from the
// platform goes through the Client interface: member/role/permission lookup,
// message deletion, role changes, channel overwrites, kicks, bans, invite
// resolution, and delivery of notices. Every call is individually failable
// and the engine treats all of them as best-effort.
package platform

import (
	"context"
	"time"
)

type Member struct {
	ID        string    `json:"id"`
	Handle    string    `json:"handle"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	RoleIDs   []string  `json:"role_ids,omitempty"`
	// position of the member's highest role in the community hierarchy
	TopRolePosition int       `json:"top_role_position"`
	CreatedAt       time.Time `json:"created_at"`
}

type Role struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

type Permissions struct {
	Administrator  bool `json:"administrator"`
	ManageRoles    bool `json:"manage_roles"`
	ManageMessages bool `json:"manage_messages"`
	KickMembers    bool `json:"kick_members"`
	BanMembers     bool `json:"ban_members"`
	SendMessages   bool `json:"send_messages"`
}

type Invite struct {
	Code        string `json:"code"`
	CommunityID string `json:"community_id"`
}

type Embed struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Color       int       `json:"color"`
	AuthorName  string    `json:"author_name,omitempty"`
	AuthorIcon  string    `json:"author_icon,omitempty"`
	AuthorURL   string    `json:"author_url,omitempty"`
	Footer      string    `json:"footer,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type Client interface {
	// Member returns nil (no error) when the user is not a member.
	Member(ctx context.Context, communityID, userID string) (*Member, error)
	BotMember(ctx context.Context, communityID string) (*Member, error)
	Role(ctx context.Context, communityID, roleID string) (*Role, error)
	// community-level permissions for a member
	Permissions(ctx context.Context, communityID, userID string) (Permissions, error)
	// effective permissions for a member within one channel
	ChannelPermissions(ctx context.Context, communityID, channelID, userID string) (Permissions, error)

	DeleteMessage(ctx context.Context, communityID, channelID, messageID string) error
	AddRole(ctx context.Context, communityID, userID, roleID, reason string) error
	RemoveRole(ctx context.Context, communityID, userID, roleID, reason string) error
	// channel-level overwrite denying the member's send permission
	DenySendOverwrite(ctx context.Context, communityID, channelID, userID, reason string) error
	Kick(ctx context.Context, communityID, userID, reason string) error
	Ban(ctx context.Context, communityID, userID, reason string) error
	Unban(ctx context.Context, communityID, userID, reason string) error

	ResolveInvite(ctx context.Context, code string) (*Invite, error)
	SendMessage(ctx context.Context, communityID, channelID, text string) error
	SendEmbed(ctx context.Context, communityID, channelID string, embed Embed) error
	SendDM(ctx context.Context, userID, text string) error
}
