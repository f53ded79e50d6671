package entity

import (
	"sort"
	"time"
)

// ChatSummary is the derived list entry for one chat. It is never persisted.
type ChatSummary struct {
	ChatID            string     `json:"chatId"`
	Type              ChatType   `json:"type"`
	Name              string     `json:"name,omitempty"`
	OtherParticipants []BaseUser `json:"otherParticipants"`
	LastMessage       *Message   `json:"lastMessage,omitempty"`
	UnreadCount       int        `json:"unreadCount"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// SummaryUpdatedAt is the latest message time if any, else the chat creation time.
func SummaryUpdatedAt(chat *Chat, last *Message) time.Time {
	if last != nil {
		return last.Timestamp
	}
	return chat.CreatedAt
}

// SortSummaries orders newest first; ties fall back to chat id for a stable order.
func SortSummaries(list []ChatSummary) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].UpdatedAt.Equal(list[j].UpdatedAt) {
			return list[i].ChatID < list[j].ChatID
		}
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})
}
