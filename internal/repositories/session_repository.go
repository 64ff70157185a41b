package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/IamSiddharthChoudhary/Assessly/internal/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrUnknownField    = errors.New("unknown session field")
)

type SessionRepository struct {
	DB *gorm.DB
}

// GetOrCreate returns the single live session for an interview, creating it
// with the given defaults if absent. Concurrent callers converge on one row:
// the insert ignores conflicts on the unique interview_id index and re-reads.
func (r *SessionRepository) GetOrCreate(ctx context.Context, interviewID string, defaults models.Session) (*models.Session, error) {
	defaults.InterviewID = interviewID
	err := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "interview_id"}},
			DoNothing: true,
		}).
		Create(&defaults).Error
	if err != nil {
		return nil, err
	}

	var session models.Session
	if err := r.DB.WithContext(ctx).First(&session, "interview_id = ?", interviewID).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) Get(ctx context.Context, interviewID string) (*models.Session, error) {
	var session models.Session
	err := r.DB.WithContext(ctx).First(&session, "interview_id = ?", interviewID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	return &session, err
}

// columnFor maps a synchronized field to its persisted column.
func columnFor(field models.SessionField) (string, bool) {
	switch field {
	case models.FieldCode:
		return "code_content", true
	case models.FieldLanguage:
		return "language", true
	case models.FieldNotes:
		return "notes", true
	}
	return "", false
}

// UpdateField upserts exactly one field of the session record. The write is
// idempotent; last writer wins at field granularity, serialized by the
// database's single-writer-per-row ordering.
func (r *SessionRepository) UpdateField(ctx context.Context, interviewID string, field models.SessionField, value string) error {
	column, ok := columnFor(field)
	if !ok {
		return ErrUnknownField
	}
	result := r.DB.WithContext(ctx).
		Model(&models.Session{}).
		Where("interview_id = ?", interviewID).
		Update(column, value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}
