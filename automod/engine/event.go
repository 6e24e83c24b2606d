package engine

import (
	"time"
)

// Normalized message event, covering both creates and edits. The consumer (or
// any other host) is responsible for producing these from raw platform
// payloads; the engine never sees wire format.
type MessageEvent struct {
	CommunityID string `json:"community_id"`
	ChannelID   string `json:"channel_id"`
	MessageID   string `json:"message_id"`
	AuthorID    string `json:"author_id"`
	AuthorIsBot bool   `json:"author_is_bot,omitempty"`
	Content     string `json:"content"`
	// distinct user IDs mentioned in the message
	Mentions  []string  `json:"mentions,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// edit-only fields
	Edited       bool `json:"edited,omitempty"`
	EmbedsBefore int  `json:"embeds_before,omitempty"`
	EmbedsAfter  int  `json:"embeds_after,omitempty"`
}

// Normalized member-join event.
type JoinEvent struct {
	CommunityID string `json:"community_id"`
	// join-batch identifier, used to correlate raid triggers
	EventID          string    `json:"event_id"`
	MemberID         string    `json:"member_id"`
	Handle           string    `json:"handle,omitempty"`
	AvatarURL        string    `json:"avatar_url,omitempty"`
	AccountCreatedAt time.Time `json:"account_created_at"`
	JoinedAt         time.Time `json:"joined_at"`
}

// Account age threshold below which a member counts as "new" for the
// age-sensitive raid actions.
const NewAccountAge = 30 * 24 * time.Hour

func (evt *JoinEvent) NewAccount() bool {
	return time.Since(evt.AccountCreatedAt) < NewAccountAge
}
