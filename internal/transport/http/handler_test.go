package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quizdrill/quizdrill/internal/app"
	"github.com/quizdrill/quizdrill/internal/auth"
	"github.com/quizdrill/quizdrill/internal/domain"
	"github.com/quizdrill/quizdrill/internal/infra/memory"
	"github.com/quizdrill/quizdrill/internal/quizgen"
)

type testEnv struct {
	server   *httptest.Server
	sessions *memory.SessionStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	studentHash, err := auth.HashPassword("student-pw")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	parentHash, err := auth.HashPassword("parent-pw")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	authSvc := auth.NewService("test-secret", []auth.User{
		{Username: "alice", PasswordHash: studentHash, Role: auth.RoleStudent},
		{Username: "mum", PasswordHash: parentHash, Role: auth.RoleParent},
	})

	sessions := memory.NewSessionStore(30 * time.Minute)
	results := memory.NewResultStore()
	words := memory.NewWordRepository(memory.NewStaticWordLoader(quizgen.DefaultWordList()), time.Minute)
	live := NewLiveHandler(nil)
	service := app.NewSessionService(app.ServiceConfig{
		Sessions:    sessions,
		Results:     results,
		Multipliers: results,
		Credits:     results,
		Words:       words,
		Sink:        live,
	})

	handler := NewHandler(service, authSvc, live, nil)
	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)
	return &testEnv{server: server, sessions: sessions}
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(e.server.URL+"/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status %d", resp.StatusCode)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return out.Token
}

func (e *testEnv) request(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

// answerKey reads the stored session behind the API's back so the test can
// submit a perfect round.
func answerKey(t *testing.T, sessions *memory.SessionStore, id string) []any {
	t.Helper()
	session, ok := sessions.GetQuiz(context.Background(), id)
	if !ok {
		t.Fatalf("session %s not stored", id)
	}
	answers := make([]any, len(session.Questions))
	for i, q := range session.Questions {
		switch {
		case q.Answer.Number != nil:
			answers[i] = float64(*q.Answer.Number)
		case q.Answer.Symbol != "":
			answers[i] = q.Answer.Symbol
		default:
			answers[i] = q.Answer.Word
		}
	}
	return answers
}

func TestQuizRoundOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "alice", "student-pw")

	var started struct {
		SessionID string `json:"sessionId"`
		Questions []struct {
			Question  string               `json:"question"`
			Fractions *domain.FractionPair `json:"fractions"`
			Answer    *float64             `json:"answer"`
		} `json:"questions"`
	}
	if status := env.request(t, http.MethodGet, "/session/simple-math", token, nil, &started); status != http.StatusOK {
		t.Fatalf("start status %d", status)
	}
	if len(started.Questions) != 10 {
		t.Fatalf("expected 10 questions, got %d", len(started.Questions))
	}
	for i, q := range started.Questions {
		if q.Answer != nil {
			t.Fatalf("question %d leaked its answer", i)
		}
	}

	answers := answerKey(t, env.sessions, started.SessionID)
	var result domain.Result
	submitBody := map[string]any{"sessionId": started.SessionID, "answers": answers}
	if status := env.request(t, http.MethodPost, "/session/simple-math", token, submitBody, &result); status != http.StatusOK {
		t.Fatalf("submit status %d", status)
	}
	if result.Score != 10 || result.Total != 10 {
		t.Fatalf("expected 10/10, got %d/%d", result.Score, result.Total)
	}

	// Second submit hits a consumed session.
	if status := env.request(t, http.MethodPost, "/session/simple-math", token, submitBody, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 on resubmit, got %d", status)
	}

	var stats domain.UserStats
	if status := env.request(t, http.MethodGet, "/stats", token, nil, &stats); status != http.StatusOK {
		t.Fatalf("stats status %d", status)
	}
	if stats.TotalScore != 10 || stats.SessionsCount != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	var history struct {
		Sessions []domain.CompletedSession `json:"sessions"`
	}
	if status := env.request(t, http.MethodGet, "/session/all", token, nil, &history); status != http.StatusOK {
		t.Fatalf("history status %d", status)
	}
	if len(history.Sessions) != 1 || history.Sessions[0].QuizType != domain.TypeSimpleMath {
		t.Fatalf("unexpected history %+v", history.Sessions)
	}
}

func TestWordRoundHidesSpelling(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "alice", "student-pw")

	var started struct {
		SessionID string `json:"sessionId"`
		Words     []struct {
			Hint   string  `json:"hint"`
			Length int     `json:"length"`
			Word   *string `json:"word"`
		} `json:"words"`
	}
	if status := env.request(t, http.MethodGet, "/session/simple-words", token, nil, &started); status != http.StatusOK {
		t.Fatalf("start status %d", status)
	}
	if len(started.Words) != 10 {
		t.Fatalf("expected 10 words, got %d", len(started.Words))
	}
	for i, w := range started.Words {
		if w.Word != nil {
			t.Fatalf("word %d leaked its spelling", i)
		}
		if w.Length == 0 {
			t.Fatalf("word %d has no length", i)
		}
	}

	session, ok := env.sessions.GetWords(context.Background(), started.SessionID)
	if !ok {
		t.Fatalf("word session not stored")
	}
	answers := make([]any, len(session.Words))
	for i, entry := range session.Words {
		answers[i] = entry.Word
	}
	var result domain.Result
	body := map[string]any{"sessionId": started.SessionID, "answers": answers}
	if status := env.request(t, http.MethodPost, "/session/simple-words", token, body, &result); status != http.StatusOK {
		t.Fatalf("submit status %d", status)
	}
	if result.Score != result.Total {
		t.Fatalf("expected perfect round, got %d/%d", result.Score, result.Total)
	}
}

func TestAuthAndRoleGuards(t *testing.T) {
	env := newTestEnv(t)

	if status := env.request(t, http.MethodGet, "/stats", "", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}

	student := env.login(t, "alice", "student-pw")
	if status := env.request(t, http.MethodGet, "/parent/users", student, nil, nil); status != http.StatusForbidden {
		t.Fatalf("expected 403 for student on parent route, got %d", status)
	}

	if status := env.request(t, http.MethodGet, "/session/no-such-type", student, nil, nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown quiz type, got %d", status)
	}
}

func TestParentAdjustsMultiplierAndCredits(t *testing.T) {
	env := newTestEnv(t)
	student := env.login(t, "alice", "student-pw")
	parent := env.login(t, "mum", "parent-pw")

	body := map[string]any{"quizType": "simple-math", "multiplier": 3.0}
	if status := env.request(t, http.MethodPatch, "/parent/users/alice/multiplier", parent, body, nil); status != http.StatusOK {
		t.Fatalf("set multiplier status %d", status)
	}

	var started struct {
		SessionID string `json:"sessionId"`
	}
	env.request(t, http.MethodGet, "/session/simple-math", student, nil, &started)
	answers := answerKey(t, env.sessions, started.SessionID)
	env.request(t, http.MethodPost, "/session/simple-math", student, map[string]any{
		"sessionId": started.SessionID,
		"answers":   answers,
	}, nil)

	var summary domain.UserSummary
	if status := env.request(t, http.MethodGet, "/parent/users/alice", parent, nil, &summary); status != http.StatusOK {
		t.Fatalf("get user status %d", status)
	}
	if summary.TotalScore != 30 {
		t.Fatalf("expected weighted total 30, got %v", summary.TotalScore)
	}
	if summary.Multipliers[domain.TypeSimpleMath] != 3 {
		t.Fatalf("unexpected multipliers %+v", summary.Multipliers)
	}

	earned := 5
	var credits domain.Credits
	if status := env.request(t, http.MethodPatch, "/parent/users/alice/credits", parent, app.CreditPatch{Earned: &earned}, &credits); status != http.StatusOK {
		t.Fatalf("update credits status %d", status)
	}
	if credits.Earned != 5 {
		t.Fatalf("unexpected credits %+v", credits)
	}

	// 30 points plus 5 granted, nothing claimed yet.
	if status := env.request(t, http.MethodPost, "/stats/claim", student, map[string]int{"claimedAmount": 35}, &credits); status != http.StatusOK {
		t.Fatalf("claim status %d", status)
	}
	if credits.Claimed != 35 {
		t.Fatalf("expected 35 claimed, got %+v", credits)
	}
	if status := env.request(t, http.MethodPost, "/stats/claim", student, map[string]int{"claimedAmount": 1}, nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 on overdraw, got %d", status)
	}

	if status := env.request(t, http.MethodGet, "/parent/users/nobody", parent, nil, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", status)
	}
}

func TestLiveFeedBroadcastsCompletions(t *testing.T) {
	env := newTestEnv(t)
	student := env.login(t, "alice", "student-pw")
	parent := env.login(t, "mum", "parent-pw")

	wsURL := "ws" + env.server.URL[len("http"):] + "/parent/live"
	header := http.Header{"Authorization": []string{"Bearer " + parent}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial live feed: %v", err)
	}
	defer conn.Close()

	var started struct {
		SessionID string `json:"sessionId"`
	}
	env.request(t, http.MethodGet, "/session/simple-math", student, nil, &started)
	answers := answerKey(t, env.sessions, started.SessionID)
	env.request(t, http.MethodPost, "/session/simple-math", student, map[string]any{
		"sessionId": started.SessionID,
		"answers":   answers,
	}, nil)

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var event struct {
		Type    string                  `json:"type"`
		Payload domain.CompletedSession `json:"payload"`
	}
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read live event: %v", err)
	}
	if event.Type != "sessionCompleted" {
		t.Fatalf("unexpected event type %s", event.Type)
	}
	if event.Payload.UserID != "alice" || event.Payload.Score != 10 {
		t.Fatalf("unexpected live payload %+v", event.Payload)
	}
}
