package repositories

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/IamSiddharthChoudhary/Assessly/internal/models"
)

var (
	ErrInterviewNotFound = errors.New("interview not found")
	ErrBadTransition     = errors.New("illegal interview status transition")
)

type InterviewRepository struct {
	DB *gorm.DB
}

// CreateInterview assigns the immutable identifier and room token and stores
// the record with status scheduled.
func (r *InterviewRepository) CreateInterview(iv *models.Interview) error {
	if iv.ID == "" {
		iv.ID = uuid.New().String()
	}
	if iv.RoomToken == "" {
		iv.RoomToken = uuid.New().String()
	}
	iv.Status = models.StatusScheduled
	iv.CreatedAt = time.Now()
	return r.DB.Create(iv).Error
}

func (r *InterviewRepository) GetByID(id string) (*models.Interview, error) {
	var iv models.Interview
	err := r.DB.First(&iv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInterviewNotFound
	}
	return &iv, err
}

func (r *InterviewRepository) GetByRoomToken(token string) (*models.Interview, error) {
	var iv models.Interview
	err := r.DB.First(&iv, "room_token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInterviewNotFound
	}
	return &iv, err
}

// legal status transitions; identifiers and room tokens never change.
var transitions = map[models.InterviewStatus][]models.InterviewStatus{
	models.StatusScheduled:  {models.StatusInProgress, models.StatusCancelled},
	models.StatusInProgress: {models.StatusInProgress, models.StatusCompleted, models.StatusCancelled},
}

func (r *InterviewRepository) UpdateStatus(id string, next models.InterviewStatus) (*models.Interview, error) {
	iv, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}
	allowed := false
	for _, s := range transitions[iv.Status] {
		if s == next {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, ErrBadTransition
	}
	if iv.Status == next {
		return iv, nil
	}
	if err := r.DB.Model(iv).Update("status", next).Error; err != nil {
		return nil, err
	}
	iv.Status = next
	return iv, nil
}

// Authorized reports whether a user may enter the room: the interviewer, the
// assigned candidate, or anyone when no candidate is assigned (open room).
func Authorized(iv *models.Interview, userID string) bool {
	if iv.InterviewerID == userID {
		return true
	}
	if iv.CandidateID == nil {
		return true
	}
	return *iv.CandidateID == userID
}
