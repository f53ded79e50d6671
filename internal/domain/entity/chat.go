package entity

import (
	"reflect"
	"sort"
	"strings"
	"time"
)

type ChatType string

const (
	ChatTypeDirect ChatType = "direct"
	ChatTypeGroup  ChatType = "group"
)

type ParticipantRole string

const (
	RoleAdmin  ParticipantRole = "admin"
	RoleMember ParticipantRole = "member"
)

type Participant struct {
	UserID            string          `json:"userId"`
	Role              ParticipantRole `json:"role"`
	JoinedAt          time.Time       `json:"joinedAt"`
	LastReadTimestamp *time.Time      `json:"lastReadTimestamp,omitempty"`
	UnreadMessages    []string        `json:"unreadMessages"`
}

type Chat struct {
	ID           string          `json:"id"`
	Type         ChatType        `json:"type"`
	Name         string          `json:"name,omitempty"`
	Participants []Participant   `json:"participants"`
	Typing       map[string]bool `json:"typing,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	LastActivity time.Time       `json:"lastActivity"`
}

func (c *Chat) Participant(userID string) (*Participant, bool) {
	for i := range c.Participants {
		if c.Participants[i].UserID == userID {
			return &c.Participants[i], true
		}
	}
	return nil, false
}

func (c *Chat) IsParticipant(userID string) bool {
	_, ok := c.Participant(userID)
	return ok
}

func (c *Chat) ParticipantIDs() []string {
	ids := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

// OtherParticipantIDs returns every participant except userID.
func (c *Chat) OtherParticipantIDs(userID string) []string {
	ids := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		if p.UserID != userID {
			ids = append(ids, p.UserID)
		}
	}
	return ids
}

// UnreadCount is the size of userID's unread set, 0 for non-participants.
func (c *Chat) UnreadCount(userID string) int {
	p, ok := c.Participant(userID)
	if !ok {
		return 0
	}
	return len(p.UnreadMessages)
}

// DirectKey identifies the unordered user pair of a direct chat.
func DirectKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, "_")
}

// DirectChatID is the deterministic document id for the direct chat of a pair.
func DirectChatID(a, b string) string {
	return "dm_" + DirectKey(a, b)
}

// OnlyTypingDiffers reports whether c and other differ in nothing but typing
// state. Chat summaries do not carry typing, so such a change needs no rebuild.
func (c *Chat) OnlyTypingDiffers(other *Chat) bool {
	if c == nil || other == nil {
		return false
	}
	a, b := *c, *other
	a.Typing, b.Typing = nil, nil
	return reflect.DeepEqual(a, b)
}
