package speech

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Input captures user speech while the user holds the turn. Finalized
// transcripts are delivered through the callback given at construction.
type Input interface {
	Begin()
	Stop()
}

// RecognitionEngine is the platform boundary for continuous recognition.
// The engine reports events by calling the EventSink it was wired with.
type RecognitionEngine interface {
	Start() error
	Stop()
}

// EventSink receives recognition engine events. InputDriver implements it.
type EventSink interface {
	OnResult(text string, final bool)
	OnSpeechStart()
	OnEnd()
	OnError(code string)
}

// Engine error codes surfaced by platform recognizers.
const (
	ErrCodeNoSpeech = "no-speech"
)

// Pre-written user-visible notices. Raw engine errors never reach the
// transcript.
const (
	NoticeWaiting    = "I'm waiting for your response. Please speak clearly when the microphone is active."
	NoticeMicTrouble = "I'm having trouble with the microphone. Please try refreshing the page."
)

// InputDriver wraps a RecognitionEngine with the restart policy the turn
// loop relies on: spurious engine end events restart recognition while the
// user still holds the turn, interim noise is filtered, and engine faults
// degrade to a single notice instead of an error.
type InputDriver struct {
	engine        RecognitionEngine
	restartDelay  time.Duration
	noSpeechDelay time.Duration
	onTranscript  func(text string)
	onSpeechStart func()
	onNotice      func(text string)
	logger        *slog.Logger

	mu        sync.Mutex
	listening bool
	reminded  bool
}

func NewInputDriver(engine RecognitionEngine, restartDelay, noSpeechDelay time.Duration,
	onTranscript func(string), onSpeechStart func(), onNotice func(string), logger *slog.Logger) *InputDriver {
	return &InputDriver{
		engine:        engine,
		restartDelay:  restartDelay,
		noSpeechDelay: noSpeechDelay,
		onTranscript:  onTranscript,
		onSpeechStart: onSpeechStart,
		onNotice:      onNotice,
		logger:        logger.With(slog.String("component", "speech-input")),
	}
}

// Begin activates recognition. A start failure surfaces one microphone
// notice and retries once after the restart delay.
func (d *InputDriver) Begin() {
	d.mu.Lock()
	d.listening = true
	d.reminded = false
	d.mu.Unlock()

	if err := d.engine.Start(); err != nil {
		d.logger.Warn("could not start recognition", slogError(err))
		d.notify(NoticeMicTrouble)
		time.AfterFunc(d.restartDelay, func() {
			if !d.Listening() {
				return
			}
			if err := d.engine.Start(); err != nil {
				d.logger.Warn("recognition retry failed", slogError(err))
			}
		})
	}
}

// Stop deactivates recognition. Idempotent.
func (d *InputDriver) Stop() {
	d.mu.Lock()
	wasListening := d.listening
	d.listening = false
	d.mu.Unlock()
	if wasListening {
		d.engine.Stop()
	}
}

// Listening reports whether the user currently holds the turn.
func (d *InputDriver) Listening() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.listening
}

// OnResult implements EventSink. Interim results and near-empty finals are
// dropped; accepted transcripts go to the controller, which owns echo
// gating and state transitions.
func (d *InputDriver) OnResult(text string, final bool) {
	if !final {
		return
	}
	transcript := strings.TrimSpace(text)
	if len(transcript) <= 1 {
		return
	}
	if !d.Listening() {
		return
	}
	if d.onTranscript != nil {
		d.onTranscript(transcript)
	}
}

// OnSpeechStart implements EventSink.
func (d *InputDriver) OnSpeechStart() {
	if d.onSpeechStart != nil {
		d.onSpeechStart()
	}
}

// OnEnd implements EventSink. Recognition engines end spontaneously; while
// the user still holds the turn the driver restarts them, retrying once
// after a short delay.
func (d *InputDriver) OnEnd() {
	if !d.Listening() {
		return
	}
	d.logger.Debug("recognition ended while user turn active, restarting")
	if err := d.engine.Start(); err != nil {
		time.AfterFunc(d.restartDelay, func() {
			if !d.Listening() {
				return
			}
			if err := d.engine.Start(); err != nil {
				d.logger.Warn("failed to restart recognition", slogError(err))
			}
		})
	}
}

// OnError implements EventSink. A no-speech fault restarts recognition
// after a short delay and reminds the user at most once per Begin cycle.
func (d *InputDriver) OnError(code string) {
	if code != ErrCodeNoSpeech || !d.Listening() {
		return
	}
	d.engine.Stop()
	time.AfterFunc(d.noSpeechDelay, func() {
		if !d.Listening() {
			return
		}
		if err := d.engine.Start(); err != nil {
			d.logger.Warn("failed to restart after no-speech", slogError(err))
			return
		}
		d.mu.Lock()
		remind := !d.reminded
		d.reminded = true
		d.mu.Unlock()
		if remind {
			d.notify(NoticeWaiting)
		}
	})
}

func (d *InputDriver) notify(text string) {
	if d.onNotice != nil {
		d.onNotice(text)
	}
}
