package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/parlolabs/parlo-core/internal/config"
)

// Analysis fault taxonomy. All of these route to the local fallback; they
// exist so callers and logs can tell the paths apart.
var (
	ErrAuthMissing       = errors.New("analyzer: no credential available")
	ErrRateLimited       = errors.New("analyzer: rate limited")
	ErrMalformedResponse = errors.New("analyzer: malformed response")
)

// TokenSource supplies the bearer credential for collaborator calls.
// An empty token means calls degrade to best-effort local behavior.
type TokenSource interface {
	Token() string
}

// Remote calls the hosted analysis service and falls back to the local
// generator whenever the service is unavailable, rate limited, or returns
// a response missing required fields.
type Remote struct {
	cfg      config.AnalyzerConfig
	client   *http.Client
	tokens   TokenSource
	fallback *Generator
	logger   *slog.Logger
}

func NewRemote(cfg config.AnalyzerConfig, tokens TokenSource, fallback *Generator, logger *slog.Logger) *Remote {
	return &Remote{
		cfg:      cfg,
		client:   &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond},
		tokens:   tokens,
		fallback: fallback,
		logger:   logger.With(slog.String("component", "analyzer")),
	}
}

type analyzeRequest struct {
	Text           string   `json:"text"`
	Topic          string   `json:"topic"`
	FormattedTopic string   `json:"formattedTopic"`
	Level          string   `json:"level"`
	LearnedWords   []string `json:"learnedWords"`
	RequiredWords  []string `json:"requiredWords"`
	PriorTurns     []Turn   `json:"previousMessages"`
}

// Analyze implements Analyzer. The returned error is always nil: analysis
// faults are absorbed by the fallback so the turn loop never stalls.
func (r *Remote) Analyze(ctx context.Context, req Request) (Result, error) {
	result, err := r.tryRemote(ctx, req)
	if err != nil {
		r.logger.Warn("remote analysis unavailable, using fallback", slogError(err))
		return r.fallback.Generate(req.Text, req.Topic, req.RequiredWords), nil
	}

	// The remote response wins, but when it carries no corrections field
	// the local speech scan fills the gap.
	if result.Corrections == nil {
		corrections := AnalyzeSpeech(req.Text)
		result.Corrections = &corrections
	}
	return result, nil
}

func (r *Remote) tryRemote(ctx context.Context, req Request) (Result, error) {
	if r.cfg.Endpoint == "" {
		return Result{}, errors.New("analyzer: no endpoint configured")
	}
	token := ""
	if r.tokens != nil {
		token = r.tokens.Token()
	}
	if token == "" {
		return Result{}, ErrAuthMissing
	}

	payload := analyzeRequest{
		Text:           req.Text,
		Topic:          req.Topic,
		FormattedTopic: FormatTopicName(req.Topic),
		Level:          req.Level,
		LearnedWords:   req.LearnedWords,
		RequiredWords:  req.RequiredWords,
		PriorTurns:     req.PriorTurns,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return Result{}, ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, errors.New("analyzer: service returned " + resp.Status)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, ErrMalformedResponse
	}
	if result.Text == "" || result.Feedback == "" || result.NextQuestion == "" {
		return Result{}, ErrMalformedResponse
	}
	return result, nil
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
