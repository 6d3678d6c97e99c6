package store

import (
	"context"
	"fmt"
	"slices"
	"time"

	"CareCompanion/internal/models"

	"gorm.io/gorm"
)

// GormStore persists interaction records. Writes are best-effort from the
// caller's point of view; errors are returned for logging only.
type GormStore struct {
	db *gorm.DB
}

func New(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates every table.
func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(models.All()...)
}

// Append inserts record into table.
func (s *GormStore) Append(ctx context.Context, table string, record any) error {
	if err := s.db.WithContext(ctx).Table(table).Create(record).Error; err != nil {
		return fmt.Errorf("append %s: %w", table, err)
	}
	return nil
}

// RecentMessages returns up to limit of the subject's latest messages, oldest
// first.
func (s *GormStore) RecentMessages(ctx context.Context, userID string, limit int) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("recent messages %s: %w", userID, err)
	}
	slices.Reverse(msgs)
	return msgs, nil
}

// SafetyEvents lists a subject's escalations, newest first.
func (s *GormStore) SafetyEvents(ctx context.Context, userID string, limit int) ([]models.SafetyEvent, error) {
	var events []models.SafetyEvent
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("safety events %s: %w", userID, err)
	}
	return events, nil
}

// RecentMemories lists saved stories, newest first.
func (s *GormStore) RecentMemories(ctx context.Context, userID string, limit int) ([]models.Memory, error) {
	var out []models.Memory
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("memories %s: %w", userID, err)
	}
	return out, nil
}

func (s *GormStore) Medications(ctx context.Context, userID string) ([]models.Medication, error) {
	var out []models.Medication
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("medications %s: %w", userID, err)
	}
	return out, nil
}

// CountWellnessLogs counts entries of one type logged at or after since.
func (s *GormStore) CountWellnessLogs(ctx context.Context, userID, kind string, since time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.WellnessLog{}).
		Where("user_id = ? AND type = ? AND created_at >= ?", userID, kind, since).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count wellness %s: %w", userID, err)
	}
	return n, nil
}

// ActiveUsers returns subjects who chatted at or after since.
func (s *GormStore) ActiveUsers(ctx context.Context, since time.Time) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.ChatMessage{}).
		Where("created_at >= ?", since).
		Distinct().Order("user_id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("active users: %w", err)
	}
	return ids, nil
}
