package speech

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/parlolabs/parlo-core/internal/bus"
	"github.com/parlolabs/parlo-core/internal/protocol"
)

// BusSynthesis is a SynthesisEngine backed by a synthesis peer on the bus.
// Each chunk becomes a SpeechSay request; the peer answers on the per-request
// done subject. A peer that never answers is bounded by the output driver's
// watchdog, not here.
type BusSynthesis struct {
	bus    *bus.Client
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]*nats.Subscription
}

func NewBusSynthesis(busClient *bus.Client, logger *slog.Logger) *BusSynthesis {
	return &BusSynthesis{
		bus:     busClient,
		logger:  logger.With(slog.String("component", "speech-synthesis-bus")),
		pending: map[string]*nats.Subscription{},
	}
}

func (s *BusSynthesis) SpeakChunk(text, voice string, onDone func(), onError func(error)) {
	id := uuid.NewString()
	doneSubject := protocol.SubjectSpeechSayDone + "." + id

	sub, err := s.bus.Conn().Subscribe(doneSubject, func(msg *nats.Msg) {
		s.forget(id)
		var status protocol.SpeechSayStatus
		if err := json.Unmarshal(msg.Data, &status); err != nil {
			s.logger.Warn("failed to decode synthesis status", slogError(err))
			onDone()
			return
		}
		if status.Error != "" {
			onError(synthesisError(status.Error))
			return
		}
		onDone()
	})
	if err != nil {
		onError(err)
		return
	}
	_ = sub.AutoUnsubscribe(1)

	s.mu.Lock()
	s.pending[id] = sub
	s.mu.Unlock()

	data, err := json.Marshal(protocol.SpeechSay{ID: id, Text: text, Voice: voice})
	if err != nil {
		s.forget(id)
		onError(err)
		return
	}
	if err := s.bus.Conn().Publish(protocol.SubjectSpeechSayRequest, data); err != nil {
		s.forget(id)
		onError(err)
	}
}

// Cancel drops all pending completions and broadcasts a cancel to the peer.
func (s *BusSynthesis) Cancel() {
	s.mu.Lock()
	for id, sub := range s.pending {
		_ = sub.Unsubscribe()
		delete(s.pending, id)
	}
	s.mu.Unlock()
	if err := s.bus.Conn().Publish(protocol.SubjectSpeechSayCancel, nil); err != nil {
		s.logger.Warn("failed to publish synthesis cancel", slogError(err))
	}
}

func (s *BusSynthesis) forget(id string) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

type synthesisError string

func (e synthesisError) Error() string { return string(e) }

// BusRecognition is a RecognitionEngine fed by a recognition peer publishing
// RecognitionEvents on the bus. Start subscribes, Stop drains; the wired
// EventSink receives the decoded events.
type BusRecognition struct {
	bus    *bus.Client
	sink   EventSink
	logger *slog.Logger

	mu  sync.Mutex
	sub *nats.Subscription
}

func NewBusRecognition(busClient *bus.Client, sink EventSink, logger *slog.Logger) *BusRecognition {
	return &BusRecognition{
		bus:    busClient,
		sink:   sink,
		logger: logger.With(slog.String("component", "speech-recognition-bus")),
	}
}

func (r *BusRecognition) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub != nil {
		return nil
	}
	sub, err := r.bus.Conn().Subscribe(protocol.SubjectSpeechEvents, r.handleEvent)
	if err != nil {
		return err
	}
	r.sub = sub
	return nil
}

func (r *BusRecognition) Stop() {
	r.mu.Lock()
	sub := r.sub
	r.sub = nil
	r.mu.Unlock()
	if sub != nil {
		_ = sub.Drain()
	}
}

func (r *BusRecognition) handleEvent(msg *nats.Msg) {
	var ev protocol.RecognitionEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		r.logger.Warn("failed to decode recognition event", slogError(err))
		return
	}
	switch ev.Kind {
	case protocol.RecognitionResult:
		r.sink.OnResult(ev.Text, ev.Final)
	case protocol.RecognitionSpeechStart:
		r.sink.OnSpeechStart()
	case protocol.RecognitionEnd:
		r.sink.OnEnd()
	case protocol.RecognitionError:
		r.sink.OnError(ev.Code)
	default:
		r.logger.Debug("ignoring unknown recognition event", slog.String("kind", ev.Kind))
	}
}
