package chat

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session groups an ordered message sequence. UpdatedAt is the last-activity
// timestamp the inactivity expiry works from.
type Session struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`
}

func (Session) TableName() string { return "chat_sessions" }

type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string    `gorm:"type:varchar(36);index;not null" json:"-"`
	Role      string    `gorm:"type:varchar(16);not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"timestamp"`
}

func (Message) TableName() string { return "chat_messages" }
