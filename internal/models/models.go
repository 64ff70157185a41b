package models

import (
	"encoding/json"
	"time"
)

type Language string

const (
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangPython     Language = "python"
	LangJava       Language = "java"
	LangCPP        Language = "cpp"
	LangC          Language = "c"
	LangGo         Language = "go"
	LangRust       Language = "rust"
)

// SupportedLanguages returns the language set in canonical order; the first
// entry is the default for new sessions.
func SupportedLanguages() []Language {
	return []Language{
		LangJavaScript, LangTypeScript, LangPython, LangJava,
		LangCPP, LangC, LangGo, LangRust,
	}
}

func DefaultLanguage() Language { return LangJavaScript }

func (l Language) Valid() bool {
	for _, s := range SupportedLanguages() {
		if l == s {
			return true
		}
	}
	return false
}

type InterviewStatus string

const (
	StatusScheduled  InterviewStatus = "scheduled"
	StatusInProgress InterviewStatus = "in_progress"
	StatusCompleted  InterviewStatus = "completed"
	StatusCancelled  InterviewStatus = "cancelled"
)

// Interview is the scheduling record a room hangs off. ID and RoomToken are
// immutable once created; a nil CandidateID marks an open room that any
// authorized link holder may join.
type Interview struct {
	ID              string          `gorm:"primaryKey;column:id" json:"id"`
	Title           string          `gorm:"column:title" json:"title"`
	Description     string          `gorm:"column:description" json:"description"`
	InterviewerID   string          `gorm:"column:interviewer_id;index" json:"interviewerId"`
	CandidateID     *string         `gorm:"column:candidate_id" json:"candidateId,omitempty"`
	RoomToken       string          `gorm:"column:room_token;uniqueIndex" json:"roomToken"`
	Status          InterviewStatus `gorm:"column:status" json:"status"`
	ScheduledAt     time.Time       `gorm:"column:scheduled_at" json:"scheduledAt"`
	DurationMinutes int             `gorm:"column:duration_minutes" json:"durationMinutes"`
	CreatedAt       time.Time       `gorm:"column:created_at" json:"createdAt"`
}

func (Interview) TableName() string { return "interviews" }

// Session is the shared mutable document for one interview: exactly one row
// per interview, created lazily on first join.
type Session struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	InterviewID string    `gorm:"column:interview_id;uniqueIndex" json:"interviewId"`
	CodeContent string    `gorm:"column:code_content" json:"codeContent"`
	Language    Language  `gorm:"column:language" json:"language"`
	Notes       string    `gorm:"column:notes" json:"notes"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (Session) TableName() string { return "interview_sessions" }

// SessionField names one independently synchronized field of a Session.
type SessionField string

const (
	FieldCode     SessionField = "code"
	FieldLanguage SessionField = "language"
	FieldNotes    SessionField = "notes"
)

// SessionUpdate is the event fanned out on a room's session channel after a
// field write lands. SenderID lets receivers drop their own echoes.
type SessionUpdate struct {
	InterviewID string       `json:"interviewId"`
	Field       SessionField `json:"field"`
	Value       string       `json:"value"`
	SenderID    string       `json:"senderId"`
}

type ChatMessage struct {
	ID          string    `gorm:"primaryKey;column:id" json:"id"`
	InterviewID string    `gorm:"column:interview_id;index" json:"interviewId"`
	SenderID    string    `gorm:"column:sender_id" json:"senderId"`
	Message     string    `gorm:"column:message" json:"message"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (ChatMessage) TableName() string { return "chat_messages" }

type SignalKind string

const (
	SignalOffer        SignalKind = "offer"
	SignalAnswer       SignalKind = "answer"
	SignalICECandidate SignalKind = "ice-candidate"
)

func (k SignalKind) Valid() bool {
	return k == SignalOffer || k == SignalAnswer || k == SignalICECandidate
}

// SignalingMessage is ephemeral negotiation traffic. The payload is an opaque
// SDP blob or ICE candidate descriptor; the relay never inspects it.
type SignalingMessage struct {
	Kind    SignalKind      `json:"type"`
	Sender  string          `json:"sender"`
	Payload json.RawMessage `json:"payload"`
}

type ExecutionStatus string

const (
	ExecSuccess ExecutionStatus = "success"
	ExecError   ExecutionStatus = "error"
	ExecTimeout ExecutionStatus = "timeout"
)

type ExecutionRequest struct {
	Code        string   `json:"code"`
	Language    Language `json:"language"`
	Input       string   `json:"input,omitempty"`
	TimeLimitMs int      `json:"timeLimit,omitempty"`
}

type ExecutionResult struct {
	Output          string          `json:"output"`
	Error           string          `json:"error,omitempty"`
	ExecutionTimeMs int64           `json:"executionTime"`
	MemoryUsageKb   int64           `json:"memoryUsage,omitempty"`
	Status          ExecutionStatus `json:"status"`
}

// WSFrame is the envelope for every websocket channel (chat, session,
// signaling). Data is decoded per frame type by the receiving handler.
type WSFrame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// SessionEdit is the inbound frame payload for a local field edit.
type SessionEdit struct {
	Field SessionField `json:"field"`
	Value string       `json:"value"`
}

// SessionSnapshot is sent once when a participant attaches to the session
// channel.
type SessionSnapshot struct {
	InterviewID string   `json:"interviewId"`
	CodeContent string   `json:"codeContent"`
	Language    Language `json:"language"`
	Notes       string   `json:"notes"`
}
