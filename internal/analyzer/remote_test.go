package analyzer

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/parlolabs/parlo-core/internal/config"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newRemote(endpoint string, token TokenSource) *Remote {
	cfg := config.AnalyzerConfig{Endpoint: endpoint, TimeoutMS: 2000}
	return NewRemote(cfg, token, NewGenerator(fixedSelector()), newTestLogger())
}

func TestRateLimitFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	r := newRemote(srv.URL, staticToken("tok"))
	res, err := r.Analyze(context.Background(), Request{Text: "hello world out there", Topic: "economy"})
	if err != nil {
		t.Fatalf("analysis must absorb rate limiting: %v", err)
	}

	want := r.fallback.Generate("hello world out there", "economy", nil)
	if res.Text != want.Text {
		t.Fatalf("expected fallback text %q, got %q", want.Text, res.Text)
	}
}

func TestMalformedResponseFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":"hi"}`)
	}))
	defer srv.Close()

	r := newRemote(srv.URL, staticToken("tok"))
	res, err := r.Analyze(context.Background(), Request{Text: "short", Topic: "innovation"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.NextQuestion == "" {
		t.Fatal("fallback must always supply a next question")
	}
}

func TestMissingTokenSkipsNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
	}))
	defer srv.Close()

	r := newRemote(srv.URL, staticToken(""))
	if _, err := r.Analyze(context.Background(), Request{Text: "anything", Topic: "economy"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Fatal("no credential: the remote service must not be called")
	}
}

func TestRemoteResultWithoutCorrectionsGetsLocalScan(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":"Nice answer!","feedback":"Keep going.","nextQuestion":"And then?","score":88,"usedWords":[]}`)
	}))
	defer srv.Close()

	r := newRemote(srv.URL, staticToken("tok"))
	res, err := r.Analyze(context.Background(), Request{Text: "i is happy", Topic: "economy"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "Nice answer!" || res.Score != 88 {
		t.Fatalf("remote result must win when well-formed, got %+v", res)
	}
	if res.Corrections == nil || len(res.Corrections.Grammar) == 0 {
		t.Fatal("expected local corrections to backfill missing field")
	}
}

func TestRemoteCorrectionsPreserved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":"ok","feedback":"fb","nextQuestion":"q","score":75,"usedWords":[],"corrections":{"grammar":["remote hint"]}}`)
	}))
	defer srv.Close()

	r := newRemote(srv.URL, staticToken("tok"))
	res, err := r.Analyze(context.Background(), Request{Text: "i is happy", Topic: "economy"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Corrections == nil || len(res.Corrections.Grammar) != 1 || res.Corrections.Grammar[0] != "remote hint" {
		t.Fatalf("remote corrections must not be overwritten, got %+v", res.Corrections)
	}
}
