package models

import "time"

const (
	TableChatMessages = "chat_messages"
	TableCheckIns     = "check_ins"
	TableWellnessLogs = "wellness_logs"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:128;index" json:"userId"`
	Role      string    `gorm:"size:16" json:"role"` // user / assistant
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

func (ChatMessage) TableName() string { return TableChatMessages }

type CheckIn struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:128;index" json:"userId"`
	Mood      string    `gorm:"size:16" json:"mood"` // low / ok / good
	Emotion   string    `gorm:"size:16" json:"emotion"`
	Input     string    `gorm:"type:text" json:"input"`
	Response  string    `gorm:"type:text" json:"response"`
	CreatedAt time.Time `json:"createdAt"`
}

func (CheckIn) TableName() string { return TableCheckIns }

type WellnessLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:128;index" json:"userId"`
	Type      string    `gorm:"size:32" json:"type"` // hydration / medication / activity ...
	Value     string    `gorm:"size:255" json:"value"`
	CreatedAt time.Time `json:"createdAt"`
}

func (WellnessLog) TableName() string { return TableWellnessLogs }

// All returns every model for AutoMigrate.
func All() []any {
	return []any{
		&ChatMessage{}, &CheckIn{}, &WellnessLog{}, &SafetyEvent{},
		&Memory{}, &BuddyMessage{}, &Medication{},
	}
}
