package entity

import "time"

type Message struct {
	ID          string    `json:"id" firestore:"id"`
	ChatID      string    `json:"chatId" firestore:"chatId"`
	SenderID    string    `json:"senderId" firestore:"senderId"`
	Content     string    `json:"content" firestore:"content"`
	Timestamp   time.Time `json:"timestamp" firestore:"timestamp"`
	Edited      bool      `json:"edited" firestore:"edited"`
	ReplyTo     string    `json:"replyTo,omitempty" firestore:"replyTo,omitempty"`
	Attachments []string  `json:"attachments,omitempty" firestore:"attachments,omitempty"`
	ReadBy      []string  `json:"readBy" firestore:"readBy"`
}

// IsRedeliveryOf reports whether m repeats an already stored message: same id,
// sender and content.
func (m *Message) IsRedeliveryOf(stored *Message) bool {
	return stored != nil &&
		m.ID == stored.ID &&
		m.SenderID == stored.SenderID &&
		m.Content == stored.Content
}
