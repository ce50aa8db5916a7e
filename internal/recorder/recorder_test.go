package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/parlolabs/parlo-core/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(baseURL string, token string) *Client {
	cfg := config.APIConfig{BaseURL: baseURL, TimeoutMS: 2000, MaxTextLen: 1000}
	return New(cfg, StaticToken(token), testLogger())
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		t.Fatalf("decoding request body: %v", err)
	}
	return body
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("x", 1500)
	got := Truncate(long, 1000)
	if len(got) != 1000 {
		t.Fatalf("truncated length = %d, want 1000", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatal("truncated text missing ellipsis")
	}
	if short := Truncate("hello", 1000); short != "hello" {
		t.Fatalf("short text modified: %q", short)
	}
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	long := strings.Repeat("é", 1500)
	got := Truncate(long, 1000)
	if !utf8.ValidString(got) {
		t.Fatal("truncated text is not valid UTF-8")
	}
	if n := utf8.RuneCountInString(got); n != 1000 {
		t.Fatalf("truncated rune count = %d, want 1000", n)
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatal("truncated text missing ellipsis")
	}
}

func TestCreateTask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/tasks" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		body := decodeBody(t, r)
		if body["TopicName"] != "economy" || body["TaskType"] != "conversation" {
			t.Errorf("unexpected body %v", body)
		}
		json.NewEncoder(w).Encode(map[string]string{"TaskId": "task-7"})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, "tok")
	taskID, err := client.CreateTask(context.Background(), "economy", 2)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if taskID != "task-7" {
		t.Fatalf("taskID = %q, want task-7", taskID)
	}
}

func TestCreateSessionAdoptsCanonicalID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		if body["taskId"] != "task-1" || body["sessionType"] != "conversation" {
			t.Errorf("unexpected body %v", body)
		}
		json.NewEncoder(w).Encode(map[string]string{"SessionId": "canonical-9"})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, "tok")
	sessionID, err := client.CreateSession(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if sessionID != "canonical-9" {
		t.Fatalf("sessionID = %q, want canonical-9", sessionID)
	}
}

func TestCreateSessionKeepsLocalIDOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, "tok")
	client.newID = func() string { return "local-1" }
	sessionID, err := client.CreateSession(context.Background(), "task-1")
	if err == nil {
		t.Fatal("expected an error from the failing API")
	}
	if sessionID != "local-1" {
		t.Fatalf("sessionID = %q, want the local id", sessionID)
	}
}

func TestRecordQuestionTruncatesText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		if body["QuestionId"] != "q-1" || body["SessionId"] != "s-1" {
			t.Errorf("unexpected ids in body %v", body)
		}
		text, _ := body["QuestionText"].(string)
		if len(text) != 1000 || !strings.HasSuffix(text, "...") {
			t.Errorf("question text not truncated: len=%d", len(text))
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, "tok")
	err := client.RecordQuestion(context.Background(), "q-1", "s-1", strings.Repeat("q", 1500))
	if err != nil {
		t.Fatalf("RecordQuestion: %v", err)
	}
}

func TestRecordQuestionReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, "tok")
	if err := client.RecordQuestion(context.Background(), "q-keep", "s-1", "What do you think?"); err == nil {
		t.Fatal("expected error from failing API")
	}
}

func TestRecordAnswerSerializesFeedback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/api/question/q-3" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		body := decodeBody(t, r)
		serialized, _ := body["Feedback"].(string)
		var feedback map[string]any
		if err := json.Unmarshal([]byte(serialized), &feedback); err != nil {
			t.Errorf("Feedback is not a JSON string: %v", err)
		}
		if feedback["score"] != float64(85) {
			t.Errorf("feedback = %v", feedback)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, "tok")
	err := client.RecordAnswer(context.Background(), "q-3", "my answer",
		map[string]any{"score": 85})
	if err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
}

func TestUpdateLevelPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/user-level/update" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body := decodeBody(t, r)
		if body["topicName"] != "Global Economy" || body["currentLevel"] != float64(2) {
			t.Errorf("unexpected body %v", body)
		}
		if body["isCompleted"] != true {
			t.Error("isCompleted not set")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, "tok")
	if err := client.UpdateLevel(context.Background(), "Global Economy", 2, 75, "task-1"); err != nil {
		t.Fatalf("UpdateLevel: %v", err)
	}
}

func TestLearnedWords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("topic"); got != "economy" {
			t.Errorf("topic query = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"Word": "inflation"}, {"Word": "market"}, {"Word": ""}},
		})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, "tok")
	words, err := client.LearnedWords(context.Background(), "economy")
	if err != nil {
		t.Fatalf("LearnedWords: %v", err)
	}
	if len(words) != 2 || words[0] != "inflation" || words[1] != "market" {
		t.Fatalf("words = %v", words)
	}
}

func TestMissingTokenSkipsNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, "")

	err := client.RecordQuestion(context.Background(), "q-local", "s-1", "anyone home?")
	if !errors.Is(err, ErrAuthMissing) {
		t.Fatalf("err = %v, want ErrAuthMissing", err)
	}
	if called {
		t.Fatal("unauthenticated call reached the network")
	}
}
