package speech

import (
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("Great answer! Try again. Why\nso?")
	want := []string{"Great answer!", "Try again.", "Why", "so?"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitSentences = %v, want %v", got, want)
	}
}

func TestSplitSentencesTrailingFragment(t *testing.T) {
	got := SplitSentences("One. trailing fragment")
	if len(got) != 2 || got[1] != "trailing fragment" {
		t.Fatalf("expected trailing fragment chunk, got %v", got)
	}
}

func TestDedupeSentences(t *testing.T) {
	got := DedupeSentences([]string{"Well done!", "  well   DONE! ", "Next question."})
	want := []string{"Well done!", "Next question."}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DedupeSentences = %v, want %v", got, want)
	}
}

func TestSpeakSequentialChunks(t *testing.T) {
	engine := &FakeSynthesisEngine{}
	driver := NewOutputDriver(engine, "en-US", time.Minute, testLogger())

	done := make(chan struct{})
	driver.Speak("First. Second. Third.", func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("completion callback never fired")
	}
	want := []string{"First.", "Second.", "Third."}
	if got := engine.Chunks(); !reflect.DeepEqual(got, want) {
		t.Fatalf("spoken chunks = %v, want %v", got, want)
	}
	if driver.Speaking() {
		t.Fatal("driver still speaking after completion")
	}
}

func TestSpeakEmptyTextCompletesImmediately(t *testing.T) {
	engine := &FakeSynthesisEngine{}
	driver := NewOutputDriver(engine, "en-US", time.Minute, testLogger())

	done := make(chan struct{})
	driver.Speak("   \n ", func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("empty text did not complete")
	}
	if len(engine.Chunks()) != 0 {
		t.Fatalf("empty text reached the engine: %v", engine.Chunks())
	}
}

func TestSpeakFailedChunkIsSkipped(t *testing.T) {
	engine := &FakeSynthesisEngine{FailText: "Bad."}
	driver := NewOutputDriver(engine, "en-US", time.Minute, testLogger())

	done := make(chan struct{})
	driver.Speak("Good. Bad. Also good.", func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("utterance with a failed chunk never completed")
	}
	if got := engine.Chunks(); len(got) != 3 {
		t.Fatalf("expected all chunks attempted, got %v", got)
	}
}

func TestSpeakWhileSpeakingCompletesWithoutSecondUtterance(t *testing.T) {
	engine := &FakeSynthesisEngine{Manual: true}
	driver := NewOutputDriver(engine, "en-US", time.Minute, testLogger())

	firstDone := make(chan struct{})
	driver.Speak("Hold the floor.", func() { close(firstDone) })

	secondDone := make(chan struct{})
	driver.Speak("Interrupting.", func() { close(secondDone) })

	select {
	case <-secondDone:
	case <-time.After(time.Second):
		t.Fatal("re-entrant Speak did not complete")
	}
	if got := engine.Chunks(); len(got) != 1 {
		t.Fatalf("re-entrant Speak reached the engine: %v", got)
	}

	if !engine.ReleaseNext() {
		t.Fatal("no pending chunk to release")
	}
	select {
	case <-firstDone:
	case <-time.After(time.Second):
		t.Fatal("original utterance never completed")
	}
}

func TestCancelSuppressesCompletion(t *testing.T) {
	engine := &FakeSynthesisEngine{Manual: true}
	driver := NewOutputDriver(engine, "en-US", time.Minute, testLogger())

	completed := make(chan struct{}, 1)
	driver.Speak("To be canceled.", func() { completed <- struct{}{} })
	driver.Cancel()
	driver.Cancel()

	if engine.Canceled() == 0 {
		t.Fatal("engine was not canceled")
	}
	if driver.Speaking() {
		t.Fatal("driver reports speaking after cancel")
	}
	select {
	case <-completed:
		t.Fatal("completion fired after cancel")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWatchdogForcesCompletion(t *testing.T) {
	engine := &FakeSynthesisEngine{Manual: true}
	driver := NewOutputDriver(engine, "en-US", 20*time.Millisecond, testLogger())

	done := make(chan struct{})
	driver.Speak("Engine never calls back.", func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watchdog did not force completion")
	}
	if engine.Canceled() == 0 {
		t.Fatal("watchdog did not cancel the engine")
	}
}
