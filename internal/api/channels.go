package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/IamSiddharthChoudhary/Assessly/internal/exec"
	"github.com/IamSiddharthChoudhary/Assessly/internal/metrics"
	"github.com/IamSiddharthChoudhary/Assessly/internal/models"
	"github.com/IamSiddharthChoudhary/Assessly/internal/pubsub"
	"github.com/IamSiddharthChoudhary/Assessly/internal/session"
)

// ChatWS attaches a participant to the room's chat channel: the full history
// first, then live messages. Inbound frames append to the log.
func (h *Handlers) ChatWS(w http.ResponseWriter, r *http.Request) {
	interviewID := chi.URLParam(r, "id")
	claims, _, err := h.authorizeRoom(r, interviewID)
	if err != nil {
		http.Error(w, "access denied", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	feed, err := h.chat.Subscribe(r.Context(), interviewID)
	if err != nil {
		h.log.Error("chat subscribe failed", zap.String("interviewId", interviewID), zap.Error(err))
		return
	}
	defer feed.Close()

	go func() {
		for msg := range feed.C {
			if err := conn.WriteJSON(models.WSFrame{Type: "chat", Data: msg}); err != nil {
				return
			}
		}
	}()

	for {
		var frame models.WSFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		if frame.Type != "chat" {
			continue
		}
		var payload struct {
			Message string `json:"message"`
		}
		remarshal(frame.Data, &payload)
		if _, err := h.chat.Send(r.Context(), interviewID, claims.UserID, payload.Message); err != nil {
			h.log.Warn("chat send failed", zap.String("interviewId", interviewID), zap.Error(err))
		}
	}
}

// SessionWS attaches a participant to the shared document. The participant
// gets a snapshot, then a stream of remote field updates; inbound edit frames
// go through the debounced-write path.
func (h *Handlers) SessionWS(w http.ResponseWriter, r *http.Request) {
	interviewID := chi.URLParam(r, "id")
	claims, _, err := h.authorizeRoom(r, interviewID)
	if err != nil {
		http.Error(w, "access denied", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sess, err := h.sessions.GetOrCreate(r.Context(), interviewID, models.Session{
		CodeContent: exec.StarterTemplate(models.DefaultLanguage()),
		Language:    models.DefaultLanguage(),
	})
	if err != nil {
		h.log.Error("session load failed", zap.String("interviewId", interviewID), zap.Error(err))
		return
	}

	docSync := session.NewSynchronizer(interviewID, claims.UserID, *sess, h.sessions, h.broker, h.log)
	defer docSync.Close()
	h.hub.Join(interviewID, docSync)
	metrics.SessionParticipants(interviewID, h.hub.Participants(interviewID))
	defer func() {
		metrics.SessionParticipants(interviewID, h.hub.Leave(interviewID, docSync))
	}()

	sub := h.broker.Subscribe(r.Context(), interviewID, pubsub.PurposeSession)
	defer sub.Close()

	if err := conn.WriteJSON(models.WSFrame{Type: "init", Data: docSync.Snapshot()}); err != nil {
		return
	}

	go func() {
		for raw := range sub.Messages() {
			var update models.SessionUpdate
			if err := json.Unmarshal([]byte(raw.Payload), &update); err != nil {
				h.log.Warn("bad session payload", zap.String("interviewId", interviewID), zap.Error(err))
				continue
			}
			// Apply only values that actually change the working copy; the
			// participant's own writes come back here and are dropped.
			if !docSync.OnRemoteUpdate(update) {
				continue
			}
			if err := conn.WriteJSON(models.WSFrame{Type: "update", Data: update}); err != nil {
				return
			}
		}
	}()

	for {
		var frame models.WSFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		if frame.Type != "edit" {
			continue
		}
		var edit models.SessionEdit
		remarshal(frame.Data, &edit)
		if edit.Field == models.FieldLanguage && !models.Language(edit.Value).Valid() {
			continue
		}
		docSync.ApplyLocalEdit(edit.Field, edit.Value)
	}
}

// SignalingWS relays negotiation traffic. Everything published on the room's
// signaling channel is forwarded to every subscriber, the sender included;
// clients drop messages carrying their own sender identity.
func (h *Handlers) SignalingWS(w http.ResponseWriter, r *http.Request) {
	interviewID := chi.URLParam(r, "id")
	claims, _, err := h.authorizeRoom(r, interviewID)
	if err != nil {
		http.Error(w, "access denied", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	feed := h.relay.Subscribe(r.Context(), interviewID)
	defer feed.Close()

	go func() {
		for msg := range feed.C {
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}()

	for {
		var msg models.SignalingMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		msg.Sender = claims.UserID
		if err := h.relay.Publish(r.Context(), interviewID, msg); err != nil {
			h.log.Warn("signaling publish dropped",
				zap.String("interviewId", interviewID),
				zap.String("kind", string(msg.Kind)),
				zap.Error(err))
		}
	}
}

func remarshal(in any, out any) { b, _ := json.Marshal(in); _ = json.Unmarshal(b, out) }
