package entity

import (
	"strings"
	"time"
)

type UserStatus string

const (
	StatusOnline  UserStatus = "online"
	StatusOffline UserStatus = "offline"
	StatusAway    UserStatus = "away"
)

func (s UserStatus) Valid() bool {
	switch s {
	case StatusOnline, StatusOffline, StatusAway:
		return true
	}
	return false
}

type Friends struct {
	List    []string `json:"list" firestore:"list"`
	Pending []string `json:"pending" firestore:"pending"`
}

type PrivacySettings struct {
	ShowStatus       bool `json:"showStatus" firestore:"showStatus"`
	ShowLastSeen     bool `json:"showLastSeen" firestore:"showLastSeen"`
	AllowFriendAdds  bool `json:"allowFriendAdds" firestore:"allowFriendAdds"`
	ReadReceiptsSent bool `json:"readReceiptsSent" firestore:"readReceiptsSent"`
}

type NotificationSettings struct {
	Messages       bool `json:"messages" firestore:"messages"`
	FriendRequests bool `json:"friendRequests" firestore:"friendRequests"`
	Sound          bool `json:"sound" firestore:"sound"`
}

type User struct {
	ID            string               `json:"id" firestore:"id"`
	DisplayName   string               `json:"displayName" firestore:"displayName"`
	Username      string               `json:"username" firestore:"username"`
	Email         string               `json:"email" firestore:"email"`
	Status        UserStatus           `json:"status" firestore:"status"`
	Chats         []string             `json:"chats" firestore:"chats"`
	Friends       Friends              `json:"friends" firestore:"friends"`
	Blocked       []string             `json:"blocked" firestore:"blocked"`
	Privacy       PrivacySettings      `json:"privacy" firestore:"privacy"`
	Notifications NotificationSettings `json:"notifications" firestore:"notifications"`
	CreatedAt     time.Time            `json:"createdAt" firestore:"createdAt"`
}

// BaseUser is the display subset embedded in chat summaries and search results.
type BaseUser struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"displayName"`
	Username    string     `json:"username"`
	Status      UserStatus `json:"status"`
}

func (u *User) Base() BaseUser {
	return BaseUser{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Username:    u.Username,
		Status:      u.Status,
	}
}

func (u *User) HasBlocked(userID string) bool {
	return containsString(u.Blocked, userID)
}

func (u *User) HasChat(chatID string) bool {
	return containsString(u.Chats, chatID)
}

func (u *User) IsFriend(userID string) bool {
	return containsString(u.Friends.List, userID)
}

// NewUser builds the document created at sign-up and on lazy backfill.
func NewUser(id, email, displayName string, now time.Time) *User {
	if displayName == "" {
		displayName = strings.Split(email, "@")[0]
	}
	return &User{
		ID:          id,
		DisplayName: displayName,
		Username:    NormalizeUsername(displayName),
		Email:       email,
		Status:      StatusOffline,
		Chats:       []string{},
		Friends:     Friends{List: []string{}, Pending: []string{}},
		Blocked:     []string{},
		Privacy: PrivacySettings{
			ShowStatus:       true,
			ShowLastSeen:     true,
			AllowFriendAdds:  true,
			ReadReceiptsSent: true,
		},
		Notifications: NotificationSettings{
			Messages:       true,
			FriendRequests: true,
			Sound:          true,
		},
		CreatedAt: now,
	}
}

func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
