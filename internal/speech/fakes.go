package speech

import "sync"

// FakeSynthesisEngine records spoken chunks and completes each one
// synchronously unless Manual is set, in which case the test fires the
// pending callbacks itself.
type FakeSynthesisEngine struct {
	Manual   bool
	FailText string // chunks equal to this report an error instead of done

	mu       sync.Mutex
	chunks   []string
	canceled int
	pending  []func()
}

func (f *FakeSynthesisEngine) SpeakChunk(text, voice string, onDone func(), onError func(error)) {
	f.mu.Lock()
	f.chunks = append(f.chunks, text)
	fail := f.FailText != "" && text == f.FailText
	if f.Manual {
		done := onDone
		if fail {
			done = func() { onError(errChunkFailed) }
		}
		f.pending = append(f.pending, done)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	if fail {
		onError(errChunkFailed)
		return
	}
	onDone()
}

func (f *FakeSynthesisEngine) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canceled++
	f.pending = nil
}

// ReleaseNext fires the oldest pending callback. Only meaningful when
// Manual is set.
func (f *FakeSynthesisEngine) ReleaseNext() bool {
	f.mu.Lock()
	if len(f.pending) == 0 {
		f.mu.Unlock()
		return false
	}
	next := f.pending[0]
	f.pending = f.pending[1:]
	f.mu.Unlock()
	next()
	return true
}

func (f *FakeSynthesisEngine) Chunks() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.chunks...)
}

func (f *FakeSynthesisEngine) Canceled() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canceled
}

// FakeRecognitionEngine counts lifecycle calls and lets tests inject
// engine events through the sink it is wired to.
type FakeRecognitionEngine struct {
	StartErr     error
	StartErrOnce bool // report StartErr only on the first Start

	mu     sync.Mutex
	starts int
	stops  int
}

func (f *FakeRecognitionEngine) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.StartErr != nil {
		if f.StartErrOnce && f.starts > 1 {
			return nil
		}
		return f.StartErr
	}
	return nil
}

func (f *FakeRecognitionEngine) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *FakeRecognitionEngine) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func (f *FakeRecognitionEngine) Stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

type chunkError string

func (e chunkError) Error() string { return string(e) }

var errChunkFailed = chunkError("chunk failed")
