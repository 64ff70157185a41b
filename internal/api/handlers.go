package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/IamSiddharthChoudhary/Assessly/internal/chat"
	"github.com/IamSiddharthChoudhary/Assessly/internal/config"
	"github.com/IamSiddharthChoudhary/Assessly/internal/exec"
	"github.com/IamSiddharthChoudhary/Assessly/internal/models"
	"github.com/IamSiddharthChoudhary/Assessly/internal/pubsub"
	"github.com/IamSiddharthChoudhary/Assessly/internal/repositories"
	"github.com/IamSiddharthChoudhary/Assessly/internal/session"
	"github.com/IamSiddharthChoudhary/Assessly/internal/signaling"
	"github.com/IamSiddharthChoudhary/Assessly/internal/utils"
)

type Handlers struct {
	log        *zap.Logger
	cfg        *config.Config
	interviews *repositories.InterviewRepository
	sessions   *repositories.SessionRepository
	broker     *pubsub.Broker
	hub        *session.Hub
	chat       *chat.Stream
	relay      *signaling.Relay
	dispatcher *exec.Dispatcher
	upgrader   websocket.Upgrader
}

func NewHandlers(
	log *zap.Logger,
	cfg *config.Config,
	interviews *repositories.InterviewRepository,
	sessions *repositories.SessionRepository,
	broker *pubsub.Broker,
	chatStream *chat.Stream,
	relay *signaling.Relay,
	dispatcher *exec.Dispatcher,
) *Handlers {
	return &Handlers{
		log:        log,
		cfg:        cfg,
		interviews: interviews,
		sessions:   sessions,
		broker:     broker,
		hub:        session.NewHub(),
		chat:       chatStream,
		relay:      relay,
		dispatcher: dispatcher,
		upgrader:   websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

// claims extracts and validates the room token from the Authorization header
// or, for websocket upgrades, the token query parameter.
func (h *Handlers) claims(r *http.Request) (*utils.RoomTokenClaims, error) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		var err error
		tokenStr, err = utils.ExtractTokenFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			return nil, err
		}
	}
	return utils.ValidateRoomToken(tokenStr)
}

// authorizeRoom checks that the token's holder may enter the interview's
// room. Failures deny generically, leaking nothing about the room.
func (h *Handlers) authorizeRoom(r *http.Request, interviewID string) (*utils.RoomTokenClaims, *models.Interview, error) {
	claims, err := h.claims(r)
	if err != nil {
		return nil, nil, err
	}
	if claims.InterviewID != interviewID {
		return nil, nil, errors.New("token not valid for this room")
	}
	iv, err := h.interviews.GetByID(interviewID)
	if err != nil {
		return nil, nil, errors.New("access denied")
	}
	if !repositories.Authorized(iv, claims.UserID) {
		return nil, nil, errors.New("access denied")
	}
	return claims, iv, nil
}

/*** Execution ***/

func (h *Handlers) Execute(w http.ResponseWriter, r *http.Request) {
	if _, err := h.claims(r); err != nil {
		utils.JSONError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.ExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Code == "" || req.Language == "" {
		utils.JSONError(w, http.StatusBadRequest, "Code and language are required")
		return
	}

	result := h.dispatcher.Execute(r.Context(), req)
	utils.JSON(w, http.StatusOK, result)
}

type languageInfo struct {
	Language models.Language `json:"language"`
	Name     string          `json:"name"`
	Template string          `json:"template"`
}

func (h *Handlers) ListLanguages(w http.ResponseWriter, _ *http.Request) {
	langs := h.dispatcher.Languages()
	resp := make([]languageInfo, 0, len(langs))
	for _, lang := range langs {
		resp = append(resp, languageInfo{
			Language: lang,
			Name:     exec.DisplayName(lang),
			Template: exec.StarterTemplate(lang),
		})
	}
	utils.JSON(w, http.StatusOK, resp)
}

func (h *Handlers) GetWebRTCConfig(w http.ResponseWriter, _ *http.Request) {
	cfg := utils.WebRTCConfig(h.cfg)
	utils.JSON(w, http.StatusOK, map[string]any{"iceServers": cfg.ICEServers})
}

/*** Interview lifecycle ***/

type createInterviewRequest struct {
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	CandidateID     *string `json:"candidateId"`
	ScheduledAt     string  `json:"scheduledAt"`
	DurationMinutes int     `json:"durationMinutes"`
}

func (h *Handlers) CreateInterview(w http.ResponseWriter, r *http.Request) {
	claims, err := h.claims(r)
	if err != nil {
		utils.JSONError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req createInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Title == "" {
		utils.JSONError(w, http.StatusBadRequest, "title is required")
		return
	}
	scheduledAt := time.Now()
	if req.ScheduledAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			utils.JSONError(w, http.StatusBadRequest, "scheduledAt must be RFC3339")
			return
		}
		scheduledAt = parsed
	}

	iv := &models.Interview{
		Title:           req.Title,
		Description:     req.Description,
		InterviewerID:   claims.UserID,
		CandidateID:     req.CandidateID,
		ScheduledAt:     scheduledAt,
		DurationMinutes: req.DurationMinutes,
	}
	if err := h.interviews.CreateInterview(iv); err != nil {
		h.log.Error("create interview failed", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "could not create interview")
		return
	}
	utils.JSON(w, http.StatusCreated, iv)
}

func (h *Handlers) GetInterviewByRoomToken(w http.ResponseWriter, r *http.Request) {
	claims, err := h.claims(r)
	if err != nil {
		utils.JSONError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	iv, err := h.interviews.GetByRoomToken(chi.URLParam(r, "roomToken"))
	if err != nil || !repositories.Authorized(iv, claims.UserID) {
		utils.JSONError(w, http.StatusForbidden, "access denied")
		return
	}
	utils.JSON(w, http.StatusOK, iv)
}

// JoinRoom authorizes the participant, moves the interview to in_progress and
// lazily creates the shared session with the default starter template.
// Concurrent joins converge on a single session row.
func (h *Handlers) JoinRoom(w http.ResponseWriter, r *http.Request) {
	claims, err := h.claims(r)
	if err != nil {
		utils.JSONError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	iv, err := h.interviews.GetByRoomToken(chi.URLParam(r, "roomToken"))
	if err != nil || !repositories.Authorized(iv, claims.UserID) {
		utils.JSONError(w, http.StatusForbidden, "access denied")
		return
	}

	if iv.Status == models.StatusScheduled {
		if iv, err = h.interviews.UpdateStatus(iv.ID, models.StatusInProgress); err != nil {
			h.log.Error("status transition failed", zap.String("interviewId", iv.ID), zap.Error(err))
			utils.JSONError(w, http.StatusInternalServerError, "could not join room")
			return
		}
	}

	sess, err := h.sessions.GetOrCreate(r.Context(), iv.ID, models.Session{
		CodeContent: exec.StarterTemplate(models.DefaultLanguage()),
		Language:    models.DefaultLanguage(),
	})
	if err != nil {
		h.log.Error("session create failed", zap.String("interviewId", iv.ID), zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "could not join room")
		return
	}

	utils.JSON(w, http.StatusOK, map[string]any{
		"interview": iv,
		"session":   sess,
	})
}

func (h *Handlers) EndInterview(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.StatusCompleted, true)
}

func (h *Handlers) CancelInterview(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.StatusCancelled, true)
}

func (h *Handlers) transition(w http.ResponseWriter, r *http.Request, next models.InterviewStatus, interviewerOnly bool) {
	interviewID := chi.URLParam(r, "id")
	claims, iv, err := h.authorizeRoom(r, interviewID)
	if err != nil {
		utils.JSONError(w, http.StatusForbidden, "access denied")
		return
	}
	if interviewerOnly && iv.InterviewerID != claims.UserID {
		utils.JSONError(w, http.StatusForbidden, "access denied")
		return
	}

	iv, err = h.interviews.UpdateStatus(interviewID, next)
	if err != nil {
		if errors.Is(err, repositories.ErrBadTransition) {
			utils.JSONError(w, http.StatusConflict, err.Error())
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, "could not update interview")
		return
	}
	utils.JSON(w, http.StatusOK, iv)
}
