package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/IamSiddharthChoudhary/Assessly/internal/models"
)

type ChatRepository struct {
	DB *gorm.DB

	mu   sync.Mutex
	last time.Time
}

// Insert stores a message with a server-assigned identifier and timestamp.
// Timestamps are monotonically non-decreasing so that ordering by created_at
// matches insertion order even when the wall clock repeats a reading.
func (r *ChatRepository) Insert(ctx context.Context, interviewID, senderID, text string) (*models.ChatMessage, error) {
	r.mu.Lock()
	now := time.Now()
	if !now.After(r.last) {
		now = r.last.Add(time.Microsecond)
	}
	r.last = now
	r.mu.Unlock()

	msg := &models.ChatMessage{
		ID:          uuid.New().String(),
		InterviewID: interviewID,
		SenderID:    senderID,
		Message:     text,
		CreatedAt:   now,
	}
	if err := r.DB.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

// ListByInterview returns the full history ordered oldest first.
func (r *ChatRepository) ListByInterview(ctx context.Context, interviewID string) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	err := r.DB.WithContext(ctx).
		Where("interview_id = ?", interviewID).
		Order("created_at asc").
		Find(&msgs).Error
	return msgs, err
}

// AutoMigrate creates the persisted tables owned by the engine's collaborator.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Interview{}, &models.Session{}, &models.ChatMessage{})
}
