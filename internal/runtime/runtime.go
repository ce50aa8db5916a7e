// Package runtime assembles the daemon: telemetry, the bus, the local
// journal, the analyzer and recorder clients, the speech drivers and the
// turn controller, plus the HTTP control surface.
package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/parlolabs/parlo-core/internal/analyzer"
	"github.com/parlolabs/parlo-core/internal/bus"
	"github.com/parlolabs/parlo-core/internal/config"
	"github.com/parlolabs/parlo-core/internal/journal"
	"github.com/parlolabs/parlo-core/internal/natsserver"
	"github.com/parlolabs/parlo-core/internal/recorder"
	"github.com/parlolabs/parlo-core/internal/speech"
	"github.com/parlolabs/parlo-core/internal/turn"
)

type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	tracerClose func(context.Context) error
	ready       atomic.Bool
	wg          sync.WaitGroup

	natsServer *natsserver.EmbeddedServer
	busClient  *bus.Client
	journal    *journal.Journal
	controller *turn.Controller
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

// Start brings every component up, serves the control surface, and blocks
// until ctx is canceled, then tears everything down in reverse order.
func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	if !r.cfg.Bus.Enabled {
		return errors.New("the speech transport runs over the bus; bus.enabled must be true")
	}
	if r.cfg.Bus.Embedded {
		ns, err := natsserver.Start(r.cfg.Bus, r.logger)
		if err != nil {
			return fmt.Errorf("start embedded bus: %w", err)
		}
		r.natsServer = ns
	}
	busClient, err := bus.Connect(ctx, r.cfg.Bus, r.logger)
	if err != nil {
		r.natsServer.Shutdown()
		return fmt.Errorf("connect bus: %w", err)
	}
	r.busClient = busClient

	j, err := journal.Open(ctx, r.cfg.Journal, r.logger)
	if err != nil {
		r.busClient.Close()
		r.natsServer.Shutdown()
		return fmt.Errorf("open journal: %w", err)
	}
	r.journal = j

	tokens := recorder.StaticToken(r.cfg.API.Token)
	rec := recorder.New(r.cfg.API, tokens, r.logger)

	fallback := analyzer.NewGenerator(analyzer.RandomSelector())
	var an analyzer.Analyzer = fallback
	if r.cfg.Analyzer.Endpoint != "" {
		an = analyzer.NewRemote(r.cfg.Analyzer, tokens, fallback, r.logger)
	}

	synth := speech.NewBusSynthesis(busClient, r.logger)
	output := speech.NewOutputDriver(synth, r.cfg.Speech.Voice,
		time.Duration(r.cfg.Speech.WatchdogMS)*time.Millisecond, r.logger)

	ctrl := turn.New(r.cfg.Turn, turn.Params{
		Topic:         r.cfg.Session.Topic,
		Level:         r.cfg.Session.Level,
		RequiredWords: r.cfg.Session.RequiredWords,
	}, turn.Deps{
		Analyzer: an,
		Recorder: rec,
		Output:   output,
		Pub:      busClient,
		Journal:  j,
	}, r.logger)
	r.controller = ctrl

	// The recognition engine and the input driver reference each other;
	// the relay breaks the construction cycle.
	relay := &sinkRelay{}
	recog := speech.NewBusRecognition(busClient, relay, r.logger)
	input := speech.NewInputDriver(recog,
		time.Duration(r.cfg.Speech.RestartDelayMS)*time.Millisecond,
		time.Duration(r.cfg.Speech.NoSpeechRetryDelayMS)*time.Millisecond,
		ctrl.SubmitTranscript, ctrl.NotifySpeechStart, ctrl.SubmitNotice, r.logger)
	relay.bind(input)
	ctrl.AttachInput(input)

	if err := ctrl.Start(ctx); err != nil {
		r.journal.Close()
		r.busClient.Close()
		r.natsServer.Shutdown()
		return fmt.Errorf("start turn controller: %w", err)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case out := <-ctrl.Outcomes():
				r.logger.Info("session finished",
					slog.String("session", out.SessionID),
					slog.Int("final_score", out.FinalScore),
					slog.Int("messages", out.MessagesExchanged),
					slog.Bool("completed", out.Completed),
					slog.Duration("duration", out.Duration))
			}
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}
	mux.HandleFunc("/session/start", r.handleSessionStart)
	mux.HandleFunc("/session/stop", r.handleSessionStop)
	mux.HandleFunc("/session/complete", r.handleSessionComplete)
	mux.HandleFunc("/session", r.handleSessionGet)

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	r.ready.Store(true)
	r.logger.Info("runtime started", slog.String("addr", addr))

	<-ctx.Done()
	r.logger.Info("runtime stopping")
	r.ready.Store(false)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}

	if err := ctrl.Close(); err != nil {
		r.logger.Error("controller shutdown error", slog.String("error", err.Error()))
	}
	if err := r.journal.Close(); err != nil {
		r.logger.Error("journal close error", slog.String("error", err.Error()))
	}
	r.busClient.Close()
	r.natsServer.Shutdown()
	r.wg.Wait()

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() && r.busClient.Healthy() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

func (r *Runtime) handleSessionStart(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.controller.Begin()
	w.WriteHeader(http.StatusAccepted)
}

func (r *Runtime) handleSessionStop(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.controller.Stop()
	w.WriteHeader(http.StatusAccepted)
}

func (r *Runtime) handleSessionComplete(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.controller.Complete()
	w.WriteHeader(http.StatusAccepted)
}

func (r *Runtime) handleSessionGet(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	type messageView struct {
		Kind     string `json:"kind"`
		Content  string `json:"content"`
		Feedback string `json:"feedback,omitempty"`
		Score    int    `json:"score,omitempty"`
	}
	var transcript []messageView
	for _, m := range r.controller.Transcript() {
		transcript = append(transcript, messageView{
			Kind: m.Kind, Content: m.Content, Feedback: m.Feedback, Score: m.Score,
		})
	}
	view := struct {
		State      turn.State    `json:"state"`
		Progress   turn.Progress `json:"progress"`
		Transcript []messageView `json:"transcript"`
	}{
		State:      r.controller.State(),
		Progress:   r.controller.Progress(),
		Transcript: transcript,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(view); err != nil {
		r.logger.Warn("failed to encode session view", slog.String("error", err.Error()))
	}
}

// sinkRelay defers binding the recognition event sink until the input
// driver exists.
type sinkRelay struct {
	mu   sync.Mutex
	sink speech.EventSink
}

func (s *sinkRelay) bind(sink speech.EventSink) {
	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()
}

func (s *sinkRelay) target() speech.EventSink {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink
}

func (s *sinkRelay) OnResult(text string, final bool) {
	if t := s.target(); t != nil {
		t.OnResult(text, final)
	}
}

func (s *sinkRelay) OnSpeechStart() {
	if t := s.target(); t != nil {
		t.OnSpeechStart()
	}
}

func (s *sinkRelay) OnEnd() {
	if t := s.target(); t != nil {
		t.OnEnd()
	}
}

func (s *sinkRelay) OnError(code string) {
	if t := s.target(); t != nil {
		t.OnError(code)
	}
}
