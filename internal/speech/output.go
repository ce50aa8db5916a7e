// Package speech holds the narrow driver interfaces between the turn loop
// and the platform speech engines, plus the drivers themselves. The
// controller depends only on Input and Output, so tests run against
// deterministic fakes with no real audio.
package speech

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Output speaks agent text. Speak reports completion through the callback;
// Cancel drops any in-flight utterance. Both are safe to call repeatedly.
type Output interface {
	Speak(text string, onComplete func())
	Cancel()
}

// SynthesisEngine is the platform boundary for one sentence of synthesis.
// Exactly one of onDone or onError fires per chunk, on the engine's own
// callback goroutine.
type SynthesisEngine interface {
	SpeakChunk(text, voice string, onDone func(), onError func(error))
	Cancel()
}

// OutputDriver splits text into sentences, drops repeated sentences, and
// speaks the remainder sequentially. The next chunk starts only from the
// engine's completion or error callback, so at most one utterance is ever
// active. A watchdog bounds any single Speak call.
type OutputDriver struct {
	engine   SynthesisEngine
	voice    string
	watchdog time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	speaking bool
	gen      int
	watch    *time.Timer
}

func NewOutputDriver(engine SynthesisEngine, voice string, watchdog time.Duration, logger *slog.Logger) *OutputDriver {
	return &OutputDriver{
		engine:   engine,
		voice:    voice,
		watchdog: watchdog,
		logger:   logger.With(slog.String("component", "speech-output")),
	}
}

// SplitSentences slices text into sentence chunks, retaining the terminal
// punctuation. Trailing text without punctuation forms a final chunk.
func SplitSentences(text string) []string {
	var chunks []string
	var b strings.Builder
	flush := func() {
		if chunk := strings.TrimSpace(b.String()); chunk != "" {
			chunks = append(chunks, chunk)
		}
		b.Reset()
	}
	for _, r := range text {
		switch r {
		case '.', '!', '?':
			b.WriteRune(r)
			flush()
		case '\n', '\r':
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return chunks
}

// DedupeSentences removes sentences that repeat earlier ones under
// whitespace and case normalization, preserving first-seen order.
func DedupeSentences(chunks []string) []string {
	seen := make(map[string]struct{}, len(chunks))
	var unique []string
	for _, chunk := range chunks {
		normalized := strings.ToLower(strings.Join(strings.Fields(chunk), " "))
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		unique = append(unique, chunk)
	}
	return unique
}

func (d *OutputDriver) Speak(text string, onComplete func()) {
	d.mu.Lock()
	if d.speaking {
		d.mu.Unlock()
		d.logger.Debug("already speaking, completing new request without a second utterance")
		if onComplete != nil {
			go onComplete()
		}
		return
	}

	chunks := DedupeSentences(SplitSentences(text))
	if len(chunks) == 0 {
		d.mu.Unlock()
		if onComplete != nil {
			go onComplete()
		}
		return
	}

	d.speaking = true
	d.gen++
	gen := d.gen

	finish := func() {
		d.mu.Lock()
		if gen != d.gen || !d.speaking {
			d.mu.Unlock()
			return
		}
		d.speaking = false
		if d.watch != nil {
			d.watch.Stop()
			d.watch = nil
		}
		d.mu.Unlock()
		if onComplete != nil {
			onComplete()
		}
	}

	d.watch = time.AfterFunc(d.watchdog, func() {
		d.logger.Warn("synthesis watchdog tripped, forcing completion")
		d.engine.Cancel()
		finish()
	})
	d.mu.Unlock()

	var speakFrom func(i int)
	speakFrom = func(i int) {
		d.mu.Lock()
		stale := gen != d.gen || !d.speaking
		d.mu.Unlock()
		if stale {
			return
		}
		if i >= len(chunks) {
			finish()
			return
		}
		d.engine.SpeakChunk(chunks[i], d.voice,
			func() { speakFrom(i + 1) },
			func(err error) {
				// A failed chunk counts as spoken; the utterance goes on.
				d.logger.Warn("synthesis chunk failed, skipping", slog.Int("chunk", i), slogError(err))
				speakFrom(i + 1)
			})
	}
	speakFrom(0)
}

// Cancel drops the in-flight utterance without firing its completion
// callback. Idempotent.
func (d *OutputDriver) Cancel() {
	d.mu.Lock()
	if !d.speaking {
		d.mu.Unlock()
		return
	}
	d.speaking = false
	d.gen++
	if d.watch != nil {
		d.watch.Stop()
		d.watch = nil
	}
	d.mu.Unlock()
	d.engine.Cancel()
}

// Speaking reports whether an utterance is in flight.
func (d *OutputDriver) Speaking() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.speaking
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
