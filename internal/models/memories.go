package models

import "time"

const (
	TableMemories      = "memories"
	TableBuddyMessages = "buddy_messages"
	TableMedications   = "wellness_medications"
)

// Memory 回忆录里的一段故事
type Memory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:128;index" json:"userId"`
	Title     string    `gorm:"size:128" json:"title"`
	Era       string    `gorm:"size:64" json:"era"`
	Story     string    `gorm:"type:text" json:"story"` // 前三句
	StoryFull string    `gorm:"type:text" json:"storyFull"`
	Tags      string    `gorm:"size:255" json:"-"` // 逗号分隔
	CreatedAt time.Time `gorm:"index" json:"timestamp"`
}

func (Memory) TableName() string { return TableMemories }

type BuddyMessage struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      string    `gorm:"size:128;index" json:"userId"`
	MessageFrom string    `gorm:"size:128" json:"messageFrom"`
	Summary     string    `gorm:"type:text" json:"summary"`
	Tone        string    `gorm:"size:16" json:"tone"`
	Suggestion  string    `gorm:"size:255" json:"suggestion"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (BuddyMessage) TableName() string { return TableBuddyMessages }

// Medication 用药计划，Times 形如 "08:00,20:00"
type Medication struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:128;index" json:"userId"`
	Name      string    `gorm:"size:128" json:"name"`
	Dosage    string    `gorm:"size:64" json:"dosage"`
	Times     string    `gorm:"size:255" json:"times"`
	WithFood  bool      `json:"withFood"`
	Notes     string    `gorm:"size:255" json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Medication) TableName() string { return TableMedications }
