package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Bus.Servers[0] != "nats://localhost:4222" {
		t.Fatalf("expected default server, got %v", cfg.Bus.Servers)
	}
	if cfg.Turn.MicTimeoutMS != 20000 {
		t.Fatalf("expected 20s mic timeout default, got %d", cfg.Turn.MicTimeoutMS)
	}
	if cfg.Turn.MinPassingScore != 60 {
		t.Fatalf("expected minimum passing score 60, got %d", cfg.Turn.MinPassingScore)
	}
	if cfg.API.MaxTextLen != 1000 {
		t.Fatalf("expected transport text limit 1000, got %d", cfg.API.MaxTextLen)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PARLO_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("PARLO_BUS_USERNAME", "alice")
	t.Setenv("PARLO_BUS_PASSWORD", "secret")
	t.Setenv("PARLO_API_BASE_URL", "https://api.example.test/api")
	t.Setenv("PARLO_API_TIMEOUT_MS", "4000")
	t.Setenv("PARLO_TURN_MIC_TIMEOUT_MS", "10000")
	t.Setenv("PARLO_TURN_INACTIVITY_TIMEOUT_MS", "25000")
	t.Setenv("PARLO_TURN_ECHO_THRESHOLD", "0.8")
	t.Setenv("PARLO_JOURNAL_RETENTION_MODE", "persistent")
	t.Setenv("PARLO_JOURNAL_MAX_SESSIONS", "123")
	t.Setenv("PARLO_SESSION_TOPIC", "travel")
	t.Setenv("PARLO_SESSION_LEVEL", "3")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
	if cfg.Bus.Username != "alice" || cfg.Bus.Password != "secret" {
		t.Fatalf("expected credentials override")
	}
	if cfg.API.BaseURL != "https://api.example.test/api" {
		t.Fatalf("expected api base url override, got %s", cfg.API.BaseURL)
	}
	if cfg.API.TimeoutMS != 4000 {
		t.Fatalf("expected timeout 4000, got %d", cfg.API.TimeoutMS)
	}
	if cfg.Turn.MicTimeoutMS != 10000 {
		t.Fatalf("expected mic timeout override, got %d", cfg.Turn.MicTimeoutMS)
	}
	if cfg.Turn.EchoThreshold != 0.8 {
		t.Fatalf("expected echo threshold override, got %v", cfg.Turn.EchoThreshold)
	}
	if cfg.Journal.RetentionMode != "persistent" {
		t.Fatalf("expected retention mode override, got %s", cfg.Journal.RetentionMode)
	}
	if cfg.Journal.MaxSessions != 123 {
		t.Fatalf("expected max sessions override, got %d", cfg.Journal.MaxSessions)
	}
	if cfg.Session.Topic != "travel" || cfg.Session.Level != 3 {
		t.Fatalf("expected session override, got %s level %d", cfg.Session.Topic, cfg.Session.Level)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Setenv("PARLO_TURN_ECHO_THRESHOLD", "1.5")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for echo threshold outside (0,1)")
	}
}

func TestValidateInactivityMustExceedMicTimeout(t *testing.T) {
	t.Setenv("PARLO_TURN_MIC_TIMEOUT_MS", "30000")
	t.Setenv("PARLO_TURN_INACTIVITY_TIMEOUT_MS", "20000")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error when inactivity timeout <= mic timeout")
	}
}
