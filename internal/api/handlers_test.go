package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/IamSiddharthChoudhary/Assessly/internal/api"
	"github.com/IamSiddharthChoudhary/Assessly/internal/chat"
	"github.com/IamSiddharthChoudhary/Assessly/internal/config"
	"github.com/IamSiddharthChoudhary/Assessly/internal/exec"
	"github.com/IamSiddharthChoudhary/Assessly/internal/models"
	"github.com/IamSiddharthChoudhary/Assessly/internal/pubsub"
	"github.com/IamSiddharthChoudhary/Assessly/internal/repositories"
	"github.com/IamSiddharthChoudhary/Assessly/internal/routers"
	"github.com/IamSiddharthChoudhary/Assessly/internal/signaling"
	"github.com/IamSiddharthChoudhary/Assessly/internal/testhelpers"
	"github.com/IamSiddharthChoudhary/Assessly/internal/utils"
)

type testEnv struct {
	srv        *httptest.Server
	interviews *repositories.InterviewRepository
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()

	log := zap.NewNop()
	db := testhelpers.SetupTestDB(t)
	_, rdb := testhelpers.SetupTestRedis(t)

	cfg := &config.Config{
		ExecDefaultTimeLimit: 5 * time.Second,
		ExecMaxTimeLimit:     10 * time.Second,
		STUNServers:          []string{"stun:stun.l.google.com:19302"},
	}

	broker := pubsub.NewBroker(rdb, log)
	interviews := &repositories.InterviewRepository{DB: db}
	sessions := &repositories.SessionRepository{DB: db}
	chatRepo := &repositories.ChatRepository{DB: db}

	registry := exec.NewRegistry()
	for _, lang := range models.SupportedLanguages() {
		registry.Register(lang, exec.NewUnsupportedStrategy(lang))
	}
	dispatcher := exec.NewDispatcher(registry, cfg.ExecDefaultTimeLimit, cfg.ExecMaxTimeLimit, log)

	h := api.NewHandlers(
		log, cfg, interviews, sessions, broker,
		chat.NewStream(chatRepo, broker, log),
		signaling.NewRelay(broker, log),
		dispatcher,
	)

	srv := httptest.NewServer(routers.New(h))
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, interviews: interviews}
}

// createRoom stores a scheduled interview and returns it with a room token
// for the given participant.
func (e *testEnv) createRoom(t *testing.T, userID string, candidateID *string) (*models.Interview, string) {
	t.Helper()
	iv := &models.Interview{
		Title:         "Systems design round",
		InterviewerID: "interviewer-1",
		CandidateID:   candidateID,
	}
	if err := e.interviews.CreateInterview(iv); err != nil {
		t.Fatalf("CreateInterview: %v", err)
	}
	token, err := utils.SignRoomToken(iv.ID, userID, time.Hour)
	if err != nil {
		t.Fatalf("SignRoomToken: %v", err)
	}
	return iv, token
}

func (e *testEnv) request(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestExecuteRequiresAuth(t *testing.T) {
	env := setupServer(t)

	resp := env.request(t, http.MethodPost, "/api/v1/execute", "", models.ExecutionRequest{
		Code: "print(1)", Language: models.LangPython,
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestExecuteRejectsIncompleteRequest(t *testing.T) {
	env := setupServer(t)
	_, token := env.createRoom(t, "user-a", nil)

	resp := env.request(t, http.MethodPost, "/api/v1/execute", token, models.ExecutionRequest{
		Language: models.LangPython,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestExecutePlaceholderLanguage(t *testing.T) {
	env := setupServer(t)
	_, token := env.createRoom(t, "user-a", nil)

	resp := env.request(t, http.MethodPost, "/api/v1/execute", token, models.ExecutionRequest{
		Code: "print('interview')", Language: models.LangPython,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	result := decode[models.ExecutionResult](t, resp)
	if result.Status != models.ExecSuccess {
		t.Fatalf("status = %q, error = %q", result.Status, result.Error)
	}
	if !strings.Contains(result.Output, "simulated") {
		t.Fatalf("placeholder output not labeled: %q", result.Output)
	}
	if result.ExecutionTimeMs != 0 {
		t.Fatalf("placeholder reported execution time %d", result.ExecutionTimeMs)
	}
}

func TestListLanguages(t *testing.T) {
	env := setupServer(t)

	resp := env.request(t, http.MethodGet, "/api/v1/languages", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	langs := decode[[]struct {
		Language models.Language `json:"language"`
		Name     string          `json:"name"`
		Template string          `json:"template"`
	}](t, resp)
	if len(langs) != len(models.SupportedLanguages()) {
		t.Fatalf("listed %d languages, want %d", len(langs), len(models.SupportedLanguages()))
	}
	if langs[0].Language != models.LangJavaScript || langs[0].Template == "" {
		t.Fatalf("unexpected first language: %#v", langs[0])
	}
}

func TestWebRTCConfigAdvertisesICEServers(t *testing.T) {
	env := setupServer(t)

	resp := env.request(t, http.MethodGet, "/api/v1/webrtc/config", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode[map[string]json.RawMessage](t, resp)
	if _, ok := body["iceServers"]; !ok {
		t.Fatalf("no iceServers in response: %v", body)
	}
}

func TestJoinRoomFlow(t *testing.T) {
	env := setupServer(t)
	iv, token := env.createRoom(t, "user-a", nil)

	resp := env.request(t, http.MethodPost, "/api/v1/rooms/"+iv.RoomToken+"/join", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join status = %d", resp.StatusCode)
	}
	body := decode[struct {
		Interview models.Interview `json:"interview"`
		Session   models.Session   `json:"session"`
	}](t, resp)

	if body.Interview.Status != models.StatusInProgress {
		t.Fatalf("interview status = %q, want in_progress", body.Interview.Status)
	}
	if body.Session.Language != models.DefaultLanguage() {
		t.Fatalf("session language = %q", body.Session.Language)
	}
	if body.Session.CodeContent != exec.StarterTemplate(models.DefaultLanguage()) {
		t.Fatalf("session not seeded with the starter template")
	}

	// A second join must reuse the live session, not reseed it.
	again := env.request(t, http.MethodPost, "/api/v1/rooms/"+iv.RoomToken+"/join", token, nil)
	if again.StatusCode != http.StatusOK {
		t.Fatalf("rejoin status = %d", again.StatusCode)
	}
	second := decode[struct {
		Session models.Session `json:"session"`
	}](t, again)
	if second.Session.ID != body.Session.ID {
		t.Fatalf("rejoin created a new session row")
	}
}

func TestJoinRoomDeniesStranger(t *testing.T) {
	env := setupServer(t)
	candidate := "candidate-1"
	iv, _ := env.createRoom(t, "candidate-1", &candidate)

	strangerToken, err := utils.SignRoomToken(iv.ID, "stranger", time.Hour)
	if err != nil {
		t.Fatalf("SignRoomToken: %v", err)
	}
	resp := env.request(t, http.MethodPost, "/api/v1/rooms/"+iv.RoomToken+"/join", strangerToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestEndInterviewIsInterviewerOnly(t *testing.T) {
	env := setupServer(t)
	iv, candidateToken := env.createRoom(t, "user-a", nil)

	// Join first so the interview is in progress.
	if resp := env.request(t, http.MethodPost, "/api/v1/rooms/"+iv.RoomToken+"/join", candidateToken, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("join status = %d", resp.StatusCode)
	}

	if resp := env.request(t, http.MethodPost, "/api/v1/interviews/"+iv.ID+"/end", candidateToken, nil); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("candidate end status = %d, want 403", resp.StatusCode)
	}

	interviewerToken, err := utils.SignRoomToken(iv.ID, "interviewer-1", time.Hour)
	if err != nil {
		t.Fatalf("SignRoomToken: %v", err)
	}
	resp := env.request(t, http.MethodPost, "/api/v1/interviews/"+iv.ID+"/end", interviewerToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("interviewer end status = %d", resp.StatusCode)
	}
	ended := decode[models.Interview](t, resp)
	if ended.Status != models.StatusCompleted {
		t.Fatalf("status = %q, want completed", ended.Status)
	}

	// Ending twice is an illegal transition.
	if resp := env.request(t, http.MethodPost, "/api/v1/interviews/"+iv.ID+"/end", interviewerToken, nil); resp.StatusCode != http.StatusConflict {
		t.Fatalf("double end status = %d, want 409", resp.StatusCode)
	}
}

func TestCreateInterviewValidation(t *testing.T) {
	env := setupServer(t)
	token, err := utils.SignRoomToken("bootstrap", "interviewer-1", time.Hour)
	if err != nil {
		t.Fatalf("SignRoomToken: %v", err)
	}

	resp := env.request(t, http.MethodPost, "/api/v1/interviews", token, map[string]string{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing title status = %d, want 400", resp.StatusCode)
	}

	resp = env.request(t, http.MethodPost, "/api/v1/interviews", token, map[string]string{
		"title": "Graph problems", "scheduledAt": "tomorrow-ish",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad scheduledAt status = %d, want 400", resp.StatusCode)
	}

	resp = env.request(t, http.MethodPost, "/api/v1/interviews", token, map[string]string{
		"title": "Graph problems",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	created := decode[models.Interview](t, resp)
	if created.RoomToken == "" || created.Status != models.StatusScheduled {
		t.Fatalf("unexpected interview: %#v", created)
	}
	if created.InterviewerID != "interviewer-1" {
		t.Fatalf("interviewer not taken from the token: %q", created.InterviewerID)
	}
}

/*** Websocket channels ***/

func (e *testEnv) dialWS(t *testing.T, path, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + path + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) models.WSFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var frame models.WSFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

func frameData[T any](t *testing.T, frame models.WSFrame) T {
	t.Helper()
	raw, err := json.Marshal(frame.Data)
	if err != nil {
		t.Fatalf("remarshal frame data: %v", err)
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode frame data: %v", err)
	}
	return v
}

func TestChatWSDeliversHistoryThenLive(t *testing.T) {
	env := setupServer(t)
	iv, tokenA := env.createRoom(t, "user-a", nil)
	tokenB, err := utils.SignRoomToken(iv.ID, "user-b", time.Hour)
	if err != nil {
		t.Fatalf("SignRoomToken: %v", err)
	}

	connA := env.dialWS(t, "/api/v1/interviews/"+iv.ID+"/chat", tokenA)
	time.Sleep(100 * time.Millisecond)

	if err := connA.WriteJSON(models.WSFrame{Type: "chat", Data: map[string]string{"message": "hello"}}); err != nil {
		t.Fatalf("write: %v", err)
	}

	// The sender sees its own message via live delivery.
	got := frameData[models.ChatMessage](t, readFrame(t, connA))
	if got.Message != "hello" || got.SenderID != "user-a" {
		t.Fatalf("unexpected live message: %#v", got)
	}

	// A late joiner gets the same message from the history replay.
	connB := env.dialWS(t, "/api/v1/interviews/"+iv.ID+"/chat", tokenB)
	replay := frameData[models.ChatMessage](t, readFrame(t, connB))
	if replay.ID != got.ID || replay.Message != "hello" {
		t.Fatalf("history replay mismatch: %#v", replay)
	}
}

func TestChatWSRejectsWrongRoomToken(t *testing.T) {
	env := setupServer(t)
	iv, _ := env.createRoom(t, "user-a", nil)

	otherToken, err := utils.SignRoomToken("some-other-interview", "user-a", time.Hour)
	if err != nil {
		t.Fatalf("SignRoomToken: %v", err)
	}
	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") +
		"/api/v1/interviews/" + iv.ID + "/chat?token=" + otherToken
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("dial with a foreign room token succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 handshake rejection, got %+v", resp)
	}
}

func TestSessionWSInitAndRemoteUpdate(t *testing.T) {
	env := setupServer(t)
	iv, tokenA := env.createRoom(t, "user-a", nil)
	tokenB, err := utils.SignRoomToken(iv.ID, "user-b", time.Hour)
	if err != nil {
		t.Fatalf("SignRoomToken: %v", err)
	}

	connA := env.dialWS(t, "/api/v1/interviews/"+iv.ID+"/session", tokenA)
	connB := env.dialWS(t, "/api/v1/interviews/"+iv.ID+"/session", tokenB)

	for i, conn := range []*websocket.Conn{connA, connB} {
		frame := readFrame(t, conn)
		if frame.Type != "init" {
			t.Fatalf("conn %d first frame type = %q, want init", i, frame.Type)
		}
		snap := frameData[models.SessionSnapshot](t, frame)
		if snap.Language != models.DefaultLanguage() || snap.CodeContent == "" {
			t.Fatalf("conn %d snapshot not seeded: %#v", i, snap)
		}
	}
	time.Sleep(100 * time.Millisecond)

	// Language edits skip the debounce, so the peer sees the update promptly.
	err = connA.WriteJSON(models.WSFrame{Type: "edit", Data: models.SessionEdit{
		Field: models.FieldLanguage, Value: "python",
	}})
	if err != nil {
		t.Fatalf("write edit: %v", err)
	}

	frame := readFrame(t, connB)
	if frame.Type != "update" {
		t.Fatalf("frame type = %q, want update", frame.Type)
	}
	update := frameData[models.SessionUpdate](t, frame)
	if update.Field != models.FieldLanguage || update.Value != "python" || update.SenderID != "user-a" {
		t.Fatalf("unexpected update: %#v", update)
	}

	// The editor's own echo is filtered: nothing arrives back on connA.
	_ = connA.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var echo models.WSFrame
	if err := connA.ReadJSON(&echo); err == nil {
		t.Fatalf("editor received its own update: %#v", echo)
	}
}

func TestSignalingWSFanOut(t *testing.T) {
	env := setupServer(t)
	iv, tokenA := env.createRoom(t, "user-a", nil)
	tokenB, err := utils.SignRoomToken(iv.ID, "user-b", time.Hour)
	if err != nil {
		t.Fatalf("SignRoomToken: %v", err)
	}

	connA := env.dialWS(t, "/api/v1/interviews/"+iv.ID+"/signaling", tokenA)
	connB := env.dialWS(t, "/api/v1/interviews/"+iv.ID+"/signaling", tokenB)
	time.Sleep(100 * time.Millisecond)

	offer := models.SignalingMessage{
		Kind:    models.SignalOffer,
		Payload: json.RawMessage(`{"sdp":"v=0"}`),
	}
	if err := connA.WriteJSON(offer); err != nil {
		t.Fatalf("write offer: %v", err)
	}

	// Fan-out reaches every subscriber, sender included; the relay stamps
	// the authenticated sender identity.
	for name, conn := range map[string]*websocket.Conn{"a": connA, "b": connB} {
		_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		var got models.SignalingMessage
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatalf("conn %s read: %v", name, err)
		}
		if got.Kind != models.SignalOffer || got.Sender != "user-a" {
			t.Fatalf("conn %s got %#v", name, got)
		}
		if string(got.Payload) != `{"sdp":"v=0"}` {
			t.Fatalf("conn %s payload altered: %s", name, got.Payload)
		}
	}
}

func TestHealthz(t *testing.T) {
	env := setupServer(t)
	resp := env.request(t, http.MethodGet, "/healthz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}
}
