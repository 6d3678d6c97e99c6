package models

import "time"

const TableSafetyEvents = "safety_events"

// SafetyEvent 安全事件（每次非 normal 升级都会记录一条）
type SafetyEvent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AlertID     string    `gorm:"size:64;uniqueIndex" json:"alertId"`
	UserID      string    `gorm:"size:128;index" json:"userId"`
	Level       string    `gorm:"size:16;index" json:"level"` // concern / urgent / emergency
	Source      string    `gorm:"size:32" json:"source"`      // chatbox / vitals / manual ...
	Detected    string    `gorm:"type:text" json:"detected"`  // JSON array
	Actions     string    `gorm:"type:text" json:"actions"`   // JSON array
	Context     string    `gorm:"type:text" json:"context"`   // 最近的对话
	Vitals      string    `gorm:"type:text" json:"vitals"`    // JSON，可能为空
	Notified    bool      `json:"notified"`                   // 即时通知是否成功
	EmailQueued bool      `json:"emailQueued"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (SafetyEvent) TableName() string { return TableSafetyEvents }
