package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type Config struct {
	RuntimeName string          `yaml:"runtime_name"`
	Environment string          `yaml:"environment"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Bus         BusConfig       `yaml:"bus"`
	Journal     JournalConfig   `yaml:"journal"`
	API         APIConfig       `yaml:"api"`
	Analyzer    AnalyzerConfig  `yaml:"analyzer"`
	Speech      SpeechConfig    `yaml:"speech"`
	Turn        TurnConfig      `yaml:"turn"`
	Session     SessionConfig   `yaml:"session"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type JournalConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxSessions   int    `yaml:"max_sessions"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

// APIConfig describes the remote recorder collaborator that persists
// tasks, sessions, questions, answers and level updates.
type APIConfig struct {
	BaseURL    string `yaml:"base_url"`
	Token      string `yaml:"token"`
	TimeoutMS  int    `yaml:"timeout_ms"`
	MaxTextLen int    `yaml:"max_text_len"`
}

// SessionConfig fixes what the daemon practices when a session begins.
type SessionConfig struct {
	Topic         string   `yaml:"topic"`
	Level         int      `yaml:"level"`
	RequiredWords []string `yaml:"required_words"`
}

type AnalyzerConfig struct {
	Endpoint  string `yaml:"endpoint"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

type SpeechConfig struct {
	Voice                string `yaml:"voice"`
	WatchdogMS           int    `yaml:"watchdog_ms"`
	RestartDelayMS       int    `yaml:"restart_delay_ms"`
	NoSpeechRetryDelayMS int    `yaml:"no_speech_retry_delay_ms"`
}

// TurnConfig carries the turn loop policy constants. The defaults mirror
// observed production behavior; they are tunable, not structural.
type TurnConfig struct {
	MicTimeoutMS           int     `yaml:"mic_timeout_ms"`
	InactivityTimeoutMS    int     `yaml:"inactivity_timeout_ms"`
	FeedbackDisplayMS      int     `yaml:"feedback_display_ms"`
	CompletionOfferDelayMS int     `yaml:"completion_offer_delay_ms"`
	CompletionThreshold    int     `yaml:"completion_threshold"`
	MinPassingScore        int     `yaml:"min_passing_score"`
	EchoThreshold          float64 `yaml:"echo_threshold"`
	RequiredWordLimit      int     `yaml:"required_word_limit"`
}

func Default() Config {
	return Config{
		RuntimeName: "parlo-runtime",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: ":9091",
		},
		Bus: BusConfig{
			Enabled:        true,
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Journal: JournalConfig{
			Path:          "./data/parlo-sessions.db",
			RetentionMode: "session",
			RetentionDays: 30,
			MaxSessions:   10000,
		},
		API: APIConfig{
			BaseURL:    "http://localhost:3001",
			TimeoutMS:  8000,
			MaxTextLen: 1000,
		},
		Analyzer: AnalyzerConfig{
			Endpoint:  "",
			TimeoutMS: 15000,
		},
		Speech: SpeechConfig{
			Voice:                "en-US",
			WatchdogMS:           30000,
			RestartDelayMS:       500,
			NoSpeechRetryDelayMS: 300,
		},
		Turn: TurnConfig{
			MicTimeoutMS:           20000,
			InactivityTimeoutMS:    30000,
			FeedbackDisplayMS:      5000,
			CompletionOfferDelayMS: 7000,
			CompletionThreshold:    3,
			MinPassingScore:        60,
			EchoThreshold:          0.7,
			RequiredWordLimit:      5,
		},
		Session: SessionConfig{
			Topic: "economy",
			Level: 1,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "PARLO_RUNTIME_NAME")
	overrideString(&cfg.Environment, "PARLO_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "PARLO_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "PARLO_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "PARLO_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "PARLO_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "PARLO_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "PARLO_TELEMETRY_PROMETHEUS_BIND")
	overrideBool(&cfg.Bus.Enabled, "PARLO_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "PARLO_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "PARLO_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "PARLO_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "PARLO_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "PARLO_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "PARLO_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "PARLO_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "PARLO_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Journal.Path, "PARLO_JOURNAL_PATH")
	overrideString(&cfg.Journal.RetentionMode, "PARLO_JOURNAL_RETENTION_MODE")
	overrideInt(&cfg.Journal.RetentionDays, "PARLO_JOURNAL_RETENTION_DAYS")
	overrideInt(&cfg.Journal.MaxSessions, "PARLO_JOURNAL_MAX_SESSIONS")
	overrideBool(&cfg.Journal.VacuumOnStart, "PARLO_JOURNAL_VACUUM_ON_START")
	overrideString(&cfg.API.BaseURL, "PARLO_API_BASE_URL")
	overrideString(&cfg.API.Token, "PARLO_API_TOKEN")
	overrideInt(&cfg.API.TimeoutMS, "PARLO_API_TIMEOUT_MS")
	overrideInt(&cfg.API.MaxTextLen, "PARLO_API_MAX_TEXT_LEN")
	overrideString(&cfg.Analyzer.Endpoint, "PARLO_ANALYZER_ENDPOINT")
	overrideInt(&cfg.Analyzer.TimeoutMS, "PARLO_ANALYZER_TIMEOUT_MS")
	overrideString(&cfg.Speech.Voice, "PARLO_SPEECH_VOICE")
	overrideInt(&cfg.Speech.WatchdogMS, "PARLO_SPEECH_WATCHDOG_MS")
	overrideInt(&cfg.Speech.RestartDelayMS, "PARLO_SPEECH_RESTART_DELAY_MS")
	overrideInt(&cfg.Speech.NoSpeechRetryDelayMS, "PARLO_SPEECH_NO_SPEECH_RETRY_DELAY_MS")
	overrideInt(&cfg.Turn.MicTimeoutMS, "PARLO_TURN_MIC_TIMEOUT_MS")
	overrideInt(&cfg.Turn.InactivityTimeoutMS, "PARLO_TURN_INACTIVITY_TIMEOUT_MS")
	overrideInt(&cfg.Turn.FeedbackDisplayMS, "PARLO_TURN_FEEDBACK_DISPLAY_MS")
	overrideInt(&cfg.Turn.CompletionOfferDelayMS, "PARLO_TURN_COMPLETION_OFFER_DELAY_MS")
	overrideInt(&cfg.Turn.CompletionThreshold, "PARLO_TURN_COMPLETION_THRESHOLD")
	overrideInt(&cfg.Turn.MinPassingScore, "PARLO_TURN_MIN_PASSING_SCORE")
	overrideFloat(&cfg.Turn.EchoThreshold, "PARLO_TURN_ECHO_THRESHOLD")
	overrideInt(&cfg.Turn.RequiredWordLimit, "PARLO_TURN_REQUIRED_WORD_LIMIT")
	overrideString(&cfg.Session.Topic, "PARLO_SESSION_TOPIC")
	overrideInt(&cfg.Session.Level, "PARLO_SESSION_LEVEL")
	overrideStringSlice(&cfg.Session.RequiredWords, "PARLO_SESSION_REQUIRED_WORDS")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.Journal.Path == "" {
		return errors.New("journal.path must not be empty")
	}
	switch cfg.Journal.RetentionMode {
	case "ephemeral", "session", "persistent":
		// ok
	default:
		return errors.New("journal.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.Journal.RetentionDays < 0 {
		return errors.New("journal.retention_days must be >= 0")
	}
	if cfg.Telemetry.PrometheusBind == "" {
		return errors.New("telemetry.prometheus_bind must not be empty")
	}
	if cfg.API.BaseURL == "" {
		return errors.New("api.base_url must not be empty")
	}
	if cfg.API.TimeoutMS <= 0 {
		return errors.New("api.timeout_ms must be positive")
	}
	if cfg.API.MaxTextLen <= 3 {
		return errors.New("api.max_text_len must be greater than 3")
	}
	if cfg.Analyzer.TimeoutMS <= 0 {
		return errors.New("analyzer.timeout_ms must be positive")
	}
	if cfg.Speech.WatchdogMS <= 0 {
		return errors.New("speech.watchdog_ms must be positive")
	}
	if cfg.Turn.MicTimeoutMS <= 0 {
		return errors.New("turn.mic_timeout_ms must be positive")
	}
	if cfg.Turn.InactivityTimeoutMS <= cfg.Turn.MicTimeoutMS {
		return errors.New("turn.inactivity_timeout_ms must be greater than mic timeout")
	}
	if cfg.Turn.CompletionThreshold <= 0 {
		return errors.New("turn.completion_threshold must be >= 1")
	}
	if cfg.Turn.MinPassingScore < 0 || cfg.Turn.MinPassingScore > 100 {
		return errors.New("turn.min_passing_score must be in [0,100]")
	}
	if cfg.Turn.EchoThreshold <= 0 || cfg.Turn.EchoThreshold >= 1 {
		return errors.New("turn.echo_threshold must be in (0,1)")
	}
	if cfg.Turn.RequiredWordLimit <= 0 {
		return errors.New("turn.required_word_limit must be >= 1")
	}
	if cfg.Session.Topic == "" {
		return errors.New("session.topic must not be empty")
	}
	if cfg.Session.Level < 1 {
		return errors.New("session.level must be >= 1")
	}
	return nil
}
