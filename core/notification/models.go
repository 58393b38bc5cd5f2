package notification

import (
	"fmt"
	"time"
)

// Types
const (
	TypeChatMessage      = "chat_message"
	TypeTaskAssigned     = "task_assigned"
	TypeTaskSubmitted    = "task_submitted"
	TypeFeedbackReceived = "feedback_received"
	TypeDeadlineReminder = "deadline_reminder"
	TypePlannerComment   = "planner_comment"
	TypeDailyReply       = "daily_reply"
	TypeMeeting          = "meeting"
)

type (
	// Meta carries type specific data; chat notifications use every field.
	Meta struct {
		MentorMenteeID string     `json:"mentorMenteeId,omitempty"`
		SenderID       string     `json:"senderId,omitempty"`
		SenderName     string     `json:"senderName,omitempty"`
		BatchedCount   int        `json:"batchedCount,omitempty"`
		LastMessageAt  *time.Time `json:"lastMessageAt,omitempty"`
	}

	Notification struct {
		ID          string     `json:"id"`
		RecipientID string     `json:"recipientId"`
		Type        string     `json:"type"`
		RefID       *string    `json:"refId"`
		Title       string     `json:"title"`
		Message     string     `json:"message"`
		Meta        Meta       `json:"meta"`
		ReadAt      *time.Time `json:"readAt"`
		CreatedAt   time.Time  `json:"createdAt"`
	}

	// ChatInput describes one incoming chat message to fold into the recipient's notifications.
	ChatInput struct {
		RecipientID    string
		MentorMenteeID string
		SenderID       string
		SenderName     string
		Preview        string
	}

	QueryFilter struct {
		RecipientID string
		UnreadOnly  bool `query:"unread"`
		Limit       int  `query:"limit"`
	}
)

func (n Notification) IsRead() bool { return n.ReadAt != nil }

// chatTitle renders the title of a chat group of `count` messages.
func chatTitle(sender string, count int) string {
	if count > 1 {
		return fmt.Sprintf("%s 새 메시지 %d개", sender, count)
	}
	return fmt.Sprintf("%s 새 메시지", sender)
}

const previewMaxRunes = 80

func preview(msg string) string {
	runes := []rune(msg)
	if len(runes) <= previewMaxRunes {
		return msg
	}
	return string(runes[:previewMaxRunes]) + "…"
}
