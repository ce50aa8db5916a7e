// Package recorder persists tasks, sessions, questions and answers against
// the collaborator API. Persistence is best effort: every call degrades to a
// locally generated identifier or a skip, because a lost write must never
// stall the conversation.
package recorder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/parlolabs/parlo-core/internal/config"
)

// Sentinel errors callers may inspect. None of them should ever halt a turn.
var (
	ErrAuthMissing       = errors.New("auth token missing")
	ErrMalformedResponse = errors.New("malformed response")
)

// TokenSource supplies the bearer credential for API calls. An empty token
// means unauthenticated, which downgrades calls rather than failing them.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed-credential TokenSource for wiring and tests.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// TaskCompletion is the payload reported when a task finishes.
type TaskCompletion struct {
	TaskID            string
	Score             int
	Duration          time.Duration
	SessionID         string
	QuestionsCount    int
	MessagesExchanged int
}

// Client talks to the collaborator API.
type Client struct {
	baseURL    string
	maxTextLen int
	client     *http.Client
	tokens     TokenSource
	logger     *slog.Logger
	clock      func() time.Time
	newID      func() string
}

func New(cfg config.APIConfig, tokens TokenSource, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		maxTextLen: cfg.MaxTextLen,
		client:     &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond},
		tokens:     tokens,
		logger:     logger.With(slog.String("component", "recorder")),
		clock:      time.Now,
		newID:      uuid.NewString,
	}
}

// Truncate bounds text to max characters, replacing the tail with an
// ellipsis when it would overflow. The cut falls on a rune boundary so the
// payload stays valid UTF-8.
func Truncate(text string, max int) string {
	if max <= 3 || len(text) <= max {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max-3]) + "..."
}

// CreateTask registers a new conversation task and returns its id. An empty
// id with a non-nil error means the session runs without task tracking.
func (c *Client) CreateTask(ctx context.Context, topic string, level int) (string, error) {
	body := map[string]any{
		"TopicName": topic,
		"Level":     level,
		"TaskType":  "conversation",
	}
	var resp struct {
		TaskID string `json:"TaskId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/tasks", body, &resp); err != nil {
		c.logger.Warn("task creation failed", slogError(err))
		return "", err
	}
	if resp.TaskID == "" {
		return "", ErrMalformedResponse
	}
	return resp.TaskID, nil
}

// CompleteTask marks the task finished with its final score and counters.
func (c *Client) CompleteTask(ctx context.Context, done TaskCompletion) error {
	body := map[string]any{
		"taskId":            done.TaskID,
		"TaskScore":         done.Score,
		"DurationTask":      int(done.Duration.Seconds()),
		"CompletionDate":    c.clock().UTC().Format(time.RFC3339),
		"SessionId":         done.SessionID,
		"QuestionsCount":    done.QuestionsCount,
		"MessagesExchanged": done.MessagesExchanged,
	}
	if err := c.do(ctx, http.MethodPut, "/api/tasks", body, nil); err != nil {
		c.logger.Warn("task completion failed", slog.String("task", done.TaskID), slogError(err))
		return err
	}
	return nil
}

// CreateSession registers an interactive session for the task. The id is
// generated locally first so the turn loop can proceed even when the remote
// call fails; when the API returns a different canonical id, that id is
// adopted and returned.
func (c *Client) CreateSession(ctx context.Context, taskID string) (string, error) {
	sessionID := c.newID()
	body := map[string]any{
		"SessionId":   sessionID,
		"taskId":      taskID,
		"sessionType": "conversation",
	}
	var resp struct {
		SessionID string `json:"SessionId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/interactive-session", body, &resp); err != nil {
		c.logger.Warn("session creation failed, continuing with local id",
			slog.String("session", sessionID), slogError(err))
		return sessionID, err
	}
	if resp.SessionID != "" && resp.SessionID != sessionID {
		c.logger.Debug("adopting canonical session id",
			slog.String("local", sessionID), slog.String("canonical", resp.SessionID))
		return resp.SessionID, nil
	}
	return sessionID, nil
}

// RecordQuestion persists an agent question under the caller-assigned id.
// The caller keeps using that id whether or not the write lands, so answers
// always have a question to reference.
func (c *Client) RecordQuestion(ctx context.Context, questionID, sessionID, text string) error {
	body := map[string]any{
		"QuestionId":   questionID,
		"SessionId":    sessionID,
		"QuestionText": Truncate(text, c.maxTextLen),
	}
	if err := c.do(ctx, http.MethodPost, "/api/question", body, nil); err != nil {
		c.logger.Warn("question recording failed, continuing with local id",
			slog.String("question", questionID), slogError(err))
		return err
	}
	return nil
}

// RecordAnswer attaches the user's answer and its feedback to a question.
// Feedback is serialized to a JSON string field per the API contract.
func (c *Client) RecordAnswer(ctx context.Context, questionID, text string, feedback any) error {
	serialized := ""
	if feedback != nil {
		raw, err := json.Marshal(feedback)
		if err != nil {
			c.logger.Warn("could not serialize feedback, recording answer without it", slogError(err))
		} else {
			serialized = string(raw)
		}
	}
	body := map[string]any{
		"AnswerText": Truncate(text, c.maxTextLen),
		"Feedback":   serialized,
	}
	path := "/api/question/" + url.PathEscape(questionID)
	if err := c.do(ctx, http.MethodPatch, path, body, nil); err != nil {
		c.logger.Warn("answer recording failed", slog.String("question", questionID), slogError(err))
		return err
	}
	return nil
}

// UpdateLevel reports topic completion at the given level with the earned
// score. The service advances the user to level+1, creating the next level
// record if absent and leaving any existing earned score untouched. The
// topic must already be display-formatted.
func (c *Client) UpdateLevel(ctx context.Context, topic string, level, score int, taskID string) error {
	body := map[string]any{
		"topicName":    topic,
		"currentLevel": level,
		"earnedScore":  score,
		"taskId":       taskID,
		"isCompleted":  true,
	}
	if err := c.do(ctx, http.MethodPost, "/api/user-level/update", body, nil); err != nil {
		c.logger.Warn("level update failed", slog.String("topic", topic), slogError(err))
		return err
	}
	return nil
}

// LearnedWords fetches the user's prior learned words for a topic, used to
// seed the required-word set. Failure returns an empty slice.
func (c *Client) LearnedWords(ctx context.Context, topic string) ([]string, error) {
	path := "/api/words/learned?topic=" + url.QueryEscape(topic)
	var resp struct {
		Data []struct {
			Word string `json:"Word"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		c.logger.Warn("learned-words fetch failed", slog.String("topic", topic), slogError(err))
		return nil, err
	}
	words := make([]string, 0, len(resp.Data))
	for _, entry := range resp.Data {
		if entry.Word != "" {
			words = append(words, entry.Word)
		}
	}
	return words, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	token := c.tokens.Token()
	if token == "" {
		return ErrAuthMissing
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}
	return nil
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
