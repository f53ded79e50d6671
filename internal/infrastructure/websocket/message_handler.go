package websocket

import (
	"encoding/json"
	stderrors "errors"
	"time"

	"chatterbox/internal/domain/entity"
	"chatterbox/pkg/errors"
)

// Client events
const (
	MessageTypePing                  = "ping"
	MessageTypeSendMessage           = "send_message"
	MessageTypeRetryMessage          = "retry_message"
	MessageTypeCompose               = "compose"
	MessageTypeMessageSentStopTyping = "message_sent_stop_typing"
	MessageTypeMarkRead              = "mark_read"
	MessageTypeSearchUsers           = "search_users"
)

// Server events
const (
	MessageTypePong             = "pong"
	MessageTypeChatList         = "chat_list"
	MessageTypeMessagePending   = "message_pending"
	MessageTypeMessageConfirmed = "message_confirmed"
	MessageTypeMessageFailed    = "message_failed"
	MessageTypeSearchResults    = "search_results"
	MessageTypeError            = "error"
)

// WSMessage is the envelope of every frame in both directions.
type WSMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

type outboundMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type SendMessageData struct {
	TempID      string   `json:"temp_id"`
	ChatID      string   `json:"chat_id"`
	Content     string   `json:"content"`
	ReplyTo     string   `json:"reply_to,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
}

type RetryMessageData struct {
	TempID string `json:"temp_id"`
}

type ComposeData struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type ChatRefData struct {
	ChatID string `json:"chat_id"`
}

type SearchUsersData struct {
	Query string `json:"query"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MessageStateData reports an optimistic send. Content is always present so a
// failed send can be retried or restored into the compose field.
type MessageStateData struct {
	TempID    string          `json:"temp_id"`
	ChatID    string          `json:"chat_id"`
	Content   string          `json:"content"`
	Message   *entity.Message `json:"message,omitempty"`
	Error     *ErrorData      `json:"error,omitempty"`
	Retryable bool            `json:"retryable,omitempty"`
}

type SearchResultsData struct {
	Query string            `json:"query"`
	Users []entity.BaseUser `json:"users"`
}

func encode(messageType string, data interface{}) ([]byte, error) {
	return json.Marshal(outboundMessage{
		Type:      messageType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func errorData(err error) *ErrorData {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return &ErrorData{Code: appErr.Code, Message: appErr.Message}
	}
	return &ErrorData{Code: errors.CodeInternal, Message: "An unexpected error occurred"}
}
