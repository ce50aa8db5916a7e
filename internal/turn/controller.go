// Package turn owns the conversation: a single event loop that moves a
// practice session through greeting, listening, analysis and response,
// keeps the transcript and progress counters, and reports the outcome when
// the user stops or completes the exercise.
package turn

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parlolabs/parlo-core/internal/analyzer"
	"github.com/parlolabs/parlo-core/internal/config"
	"github.com/parlolabs/parlo-core/internal/echo"
	"github.com/parlolabs/parlo-core/internal/journal"
	"github.com/parlolabs/parlo-core/internal/protocol"
	"github.com/parlolabs/parlo-core/internal/recorder"
	"github.com/parlolabs/parlo-core/internal/speech"
)

// State of the controller's session machine.
type State string

const (
	StateIdle       State = "idle"
	StateGreeting   State = "greeting"
	StateListening  State = "listening"
	StateAnalyzing  State = "analyzing"
	StateResponding State = "responding"
	StateCompleting State = "completing"
	StateEnded      State = "ended"
)

// Canned agent lines. Raw errors never reach the transcript; these do.
const (
	msgTimeout        = "I didn't hear your response. Let's move on to the next question."
	msgReminder       = "Are you still there? I'm waiting for your response."
	msgOffer          = "You're doing great! Would you like to continue practicing or complete this exercise?"
	msgOfferHint      = `You can say "complete" to finish or continue responding to practice more.`
	msgCompletion     = "Great job! You've completed the conversation practice."
	greetingTemplate  = "Welcome to our conversation about %s! I'll help you practice English while giving you supportive feedback to improve your speaking skills. Let's begin!"
	summaryTemplate   = "Your average score: %d/100. You showed great improvement in your speaking skills!"
	feedbackTipHeader = "Quick learning tip"
)

// Recorder is the persistence surface the controller needs. Satisfied by
// *recorder.Client; tests substitute a call-recording double.
type Recorder interface {
	CreateTask(ctx context.Context, topic string, level int) (string, error)
	CompleteTask(ctx context.Context, done recorder.TaskCompletion) error
	CreateSession(ctx context.Context, taskID string) (string, error)
	RecordQuestion(ctx context.Context, questionID, sessionID, text string) error
	RecordAnswer(ctx context.Context, questionID, text string, feedback any) error
	UpdateLevel(ctx context.Context, topic string, level, score int, taskID string) error
	LearnedWords(ctx context.Context, topic string) ([]string, error)
}

// Publisher fans committed turn events out on the bus, best effort.
type Publisher interface {
	PublishJSON(subject string, v any)
}

// SessionJournal records the local timeline. Satisfied by *journal.Journal.
type SessionJournal interface {
	BeginSession(ctx context.Context, sessionID, topic string, level int) error
	Append(ctx context.Context, e journal.Entry) error
}

// Params fixes the session's topic, level and prompt-provided vocabulary.
type Params struct {
	Topic         string
	Level         int
	RequiredWords []string
}

// Deps are the controller's collaborators. Publisher and Journal may be nil.
type Deps struct {
	Analyzer analyzer.Analyzer
	Recorder Recorder
	Output   speech.Output
	Pub      Publisher
	Journal  SessionJournal
}

type eventKind int

const (
	evBegin eventKind = iota
	evStop
	evComplete
	evTranscript
	evSpeechStart
	evNotice
	evSpeakDone
	evAnalysis
	evMicTimeout
	evInactivity
	evFeedbackExpire
	evCompletionOffer
)

type event struct {
	kind   eventKind
	text   string
	result analyzer.Result
	err    error
	seq    int
}

// Controller runs the session state machine. All external input arrives as
// events on one channel; the loop goroutine is the only writer of the
// transcript and progress.
type Controller struct {
	cfg    config.TurnConfig
	params Params

	analyzer analyzer.Analyzer
	recorder Recorder
	output   speech.Output
	input    speech.Input
	pub      Publisher
	journal  SessionJournal
	logger   *slog.Logger
	clock    func() time.Time
	shuffle  func(n int, swap func(i, j int))

	events   chan event
	persist  chan func()
	outcomes chan Outcome
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu         sync.Mutex
	state      State
	transcript []Message
	progress   Progress

	// loop-owned session bookkeeping
	sessionID      string
	taskID         string
	questionID     string
	questionsCount int
	learnedWords   []string
	requiredWords  []string
	firstQuestion  string
	lastAgentText  string
	started        time.Time
	queue          []string
	speaking       bool
	offerQueued    bool

	micSeq, inactSeq, feedbackSeq, offerSeq, speakSeq, analysisSeq int
}

func New(cfg config.TurnConfig, params Params, deps Deps, logger *slog.Logger) *Controller {
	return &Controller{
		cfg:      cfg,
		params:   params,
		analyzer: deps.Analyzer,
		recorder: deps.Recorder,
		output:   deps.Output,
		pub:      deps.Pub,
		journal:  deps.Journal,
		logger:   logger.With(slog.String("component", "turn")),
		clock:    time.Now,
		shuffle:  rand.Shuffle,
		events:   make(chan event, 64),
		persist:  make(chan func(), 64),
		outcomes: make(chan Outcome, 1),
		state:    StateIdle,
	}
}

// AttachInput wires the speech input driver. Must happen before Start; the
// driver's callbacks should point at SubmitTranscript, NotifySpeechStart
// and SubmitNotice.
func (c *Controller) AttachInput(in speech.Input) {
	c.input = in
}

// Start launches the event loop. Sessions are begun with Begin.
func (c *Controller) Start(ctx context.Context) error {
	if c.input == nil {
		return fmt.Errorf("turn controller started without a speech input")
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(2)
	go c.loop()
	go c.persistLoop()
	return nil
}

// Close stops the event loop. Any active session is abandoned without a
// completion report; callers wanting one should Stop first.
func (c *Controller) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	return nil
}

// Begin starts a new session. If one is already active it is torn down
// first, exactly as an explicit stop would.
func (c *Controller) Begin() { c.post(event{kind: evBegin}) }

// Stop ends the session from any state. Idempotent.
func (c *Controller) Stop() { c.post(event{kind: evStop}) }

// Complete finishes the exercise with a spoken summary. Ignored until the
// completion threshold is reached, and while already completing.
func (c *Controller) Complete() { c.post(event{kind: evComplete}) }

// SubmitTranscript feeds a finalized recognition transcript into the loop.
func (c *Controller) SubmitTranscript(text string) {
	c.post(event{kind: evTranscript, text: text})
}

// NotifySpeechStart reports that the user began speaking.
func (c *Controller) NotifySpeechStart() { c.post(event{kind: evSpeechStart}) }

// SubmitNotice appends a driver notice to the transcript.
func (c *Controller) SubmitNotice(text string) {
	c.post(event{kind: evNotice, text: text})
}

// Outcomes delivers the final report of each ended session.
func (c *Controller) Outcomes() <-chan Outcome { return c.outcomes }

// State returns the current machine state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transcript returns a copy of the transcript.
func (c *Controller) Transcript() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.transcript...)
}

// Progress returns the current session counters.
func (c *Controller) Progress() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

func (c *Controller) post(ev event) {
	if c.ctx == nil {
		return
	}
	select {
	case c.events <- ev:
	case <-c.ctx.Done():
	}
}

func (c *Controller) loop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.events:
			c.handle(ev)
		}
	}
}

func (c *Controller) handle(ev event) {
	switch ev.kind {
	case evBegin:
		c.handleBegin()
	case evStop:
		c.handleStop()
	case evComplete:
		c.handleComplete()
	case evTranscript:
		c.handleTranscript(ev.text)
	case evSpeechStart:
		c.handleSpeechStart()
	case evNotice:
		c.append(Message{Kind: KindAgent, Content: ev.text})
	case evSpeakDone:
		c.handleSpeakDone(ev.seq)
	case evAnalysis:
		c.handleAnalysis(ev)
	case evMicTimeout:
		c.handleMicTimeout(ev.seq)
	case evInactivity:
		c.handleInactivity(ev.seq)
	case evFeedbackExpire:
		c.handleFeedbackExpire(ev.seq)
	case evCompletionOffer:
		c.handleCompletionOffer(ev.seq)
	}
}

func (c *Controller) handleBegin() {
	if s := c.State(); s != StateIdle && s != StateEnded {
		c.logger.Info("session already active, tearing it down before restart")
		c.teardown(false)
	}

	c.mu.Lock()
	c.transcript = nil
	c.progress.reset()
	c.state = StateGreeting
	c.mu.Unlock()

	c.queue = nil
	c.speaking = false
	c.offerQueued = false
	c.questionsCount = 0
	c.invalidateTimers()
	c.started = c.clock()

	taskID, err := c.recorder.CreateTask(c.ctx, c.params.Topic, c.params.Level)
	if err != nil {
		c.logger.Warn("session runs without task tracking", slogError(err))
	}
	c.taskID = taskID

	c.requiredWords = c.pickRequiredWords()
	c.sessionID, _ = c.recorder.CreateSession(c.ctx, c.taskID)

	if c.journal != nil {
		if err := c.journal.BeginSession(c.ctx, c.sessionID, c.params.Topic, c.params.Level); err != nil {
			c.logger.Warn("journal session begin failed", slogError(err))
		}
	}
	c.publishSession(protocol.SubjectSessionStarted, "started")

	greeting := fmt.Sprintf(greetingTemplate, analyzer.FormatTopicName(c.params.Topic))
	c.firstQuestion = analyzer.FirstQuestion(c.params.Topic)
	c.lastAgentText = c.firstQuestion

	c.append(Message{Kind: KindAgent, Content: greeting})
	c.recordQuestion(c.firstQuestion)

	c.logger.Info("session started",
		slog.String("session", c.sessionID),
		slog.String("topic", c.params.Topic),
		slog.Int("level", c.params.Level))

	c.enqueueSpeech(greeting, c.firstQuestion)
}

// pickRequiredWords prefers the user's learned-word history for the topic,
// shuffled and capped; otherwise the prompt-provided list stands.
func (c *Controller) pickRequiredWords() []string {
	words, err := c.recorder.LearnedWords(c.ctx, c.params.Topic)
	if err != nil || len(words) == 0 {
		c.learnedWords = nil
		return append([]string(nil), c.params.RequiredWords...)
	}
	c.learnedWords = words
	picked := append([]string(nil), words...)
	c.shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	if limit := c.cfg.RequiredWordLimit; limit > 0 && len(picked) > limit {
		picked = picked[:limit]
	}
	return picked
}

func (c *Controller) handleTranscript(text string) {
	if c.State() != StateListening {
		return
	}
	if echo.IsEcho(text, c.lastAgentText, c.cfg.EchoThreshold) {
		c.logger.Debug("discarding echoed transcript", slog.String("text", text))
		return
	}

	c.input.Stop()
	c.micSeq++
	c.inactSeq++
	c.armTimer(c.inactivityTimeout(), evInactivity, c.inactSeq)

	c.append(Message{Kind: KindUser, Content: text})
	c.publishTurn(protocol.SubjectTurnUser, KindUser, text, 0)
	c.journalAppend(journal.KindUserMessage, text, 0)

	c.setState(StateAnalyzing)

	req := analyzer.Request{
		Text:          text,
		Topic:         c.params.Topic,
		Level:         strconv.Itoa(c.params.Level),
		LearnedWords:  c.learnedWords,
		RequiredWords: c.requiredWords,
		PriorTurns:    c.priorTurns(),
	}
	c.analysisSeq++
	seq := c.analysisSeq
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		res, err := c.analyzer.Analyze(c.ctx, req)
		c.post(event{kind: evAnalysis, text: text, result: res, err: err, seq: seq})
	}()
}

func (c *Controller) handleAnalysis(ev event) {
	if c.State() != StateAnalyzing || ev.seq != c.analysisSeq {
		return
	}
	if ev.err != nil {
		c.logger.Warn("analysis failed, returning to listening", slogError(ev.err))
		c.enterListening()
		return
	}
	res := ev.result

	if res.Corrections != nil && !res.Corrections.Empty() {
		c.append(Message{
			Kind:      KindFeedback,
			Content:   formatCorrections(*res.Corrections),
			Feedback:  feedbackTipHeader,
			Ephemeral: true,
		})
		c.feedbackSeq++
		c.armTimer(c.feedbackDisplay(), evFeedbackExpire, c.feedbackSeq)
	}

	combined := res.Text + "\n\n" + res.NextQuestion
	c.append(Message{Kind: KindAgent, Content: combined, Feedback: res.Feedback, Score: res.Score})
	c.lastAgentText = combined

	// The answer write must never delay the spoken response; it references
	// the already-assigned question id, so ordering survives the handoff.
	answerQID := c.questionID
	fb := answerFeedback{
		Feedback:    res.Feedback,
		Score:       res.Score,
		UsedWords:   res.UsedWords,
		Corrections: res.Corrections,
	}
	c.enqueuePersist(func() {
		if err := c.recorder.RecordAnswer(c.ctx, answerQID, ev.text, fb); err != nil {
			c.logger.Warn("answer not persisted", slogError(err))
		}
	})
	c.recordQuestion(res.NextQuestion)

	used := 0
	for _, w := range res.UsedWords {
		if w.Used {
			used++
		}
	}
	c.mu.Lock()
	c.progress.addTurn(res.Score, used)
	progress := c.progress
	c.mu.Unlock()

	c.publishTurn(protocol.SubjectTurnAgent, KindAgent, combined, res.Score)
	c.journalAppend(journal.KindAgentMessage, combined, res.Score)
	if c.pub != nil {
		usedWords := make([]string, 0, used)
		for _, w := range res.UsedWords {
			if w.Used {
				usedWords = append(usedWords, w.Word)
			}
		}
		c.pub.PublishJSON(protocol.SubjectTurnScore, protocol.TurnScore{
			SessionID:         c.sessionID,
			QuestionID:        c.questionID,
			Score:             res.Score,
			UsedWords:         usedWords,
			MessagesExchanged: progress.MessagesExchanged,
			AverageScore:      progress.AverageScore,
			Timestamp:         c.clock().UTC(),
		})
	}
	c.journalAppend(journal.KindTurnScore, "", res.Score)

	if progress.MessagesExchanged >= c.cfg.CompletionThreshold && !c.offerQueued {
		c.offerQueued = true
		c.offerSeq++
		c.armTimer(c.completionOfferDelay(), evCompletionOffer, c.offerSeq)
	}

	c.setState(StateResponding)
	c.enqueueSpeech(combined)
}

func (c *Controller) handleSpeakDone(seq int) {
	if seq != c.speakSeq {
		// Completion of an utterance canceled by a stop or restart.
		return
	}
	c.speaking = false
	if len(c.queue) > 0 {
		c.queue = c.queue[1:]
	}
	if len(c.queue) > 0 {
		c.pumpSpeech()
		return
	}
	switch c.State() {
	case StateGreeting, StateResponding:
		c.enterListening()
	case StateCompleting:
		c.finishSession(true, c.completionScore())
	}
}

func (c *Controller) enterListening() {
	c.setState(StateListening)
	c.input.Begin()
	c.micSeq++
	c.armTimer(c.micTimeout(), evMicTimeout, c.micSeq)
	c.inactSeq++
	c.armTimer(c.inactivityTimeout(), evInactivity, c.inactSeq)
}

func (c *Controller) handleSpeechStart() {
	if c.State() != StateListening {
		return
	}
	// Speech arrived inside the window; the mic timeout no longer applies.
	c.micSeq++
}

func (c *Controller) handleMicTimeout(seq int) {
	if c.State() != StateListening || seq != c.micSeq {
		return
	}
	c.input.Stop()
	c.append(Message{Kind: KindAgent, Content: msgTimeout})
	c.setState(StateResponding)

	c.lastAgentText = c.firstQuestion
	c.recordQuestion(c.firstQuestion)
	c.enqueueSpeech(msgTimeout, "Let's try again. "+c.firstQuestion)
}

func (c *Controller) handleInactivity(seq int) {
	if c.State() != StateListening || seq != c.inactSeq {
		return
	}
	c.append(Message{Kind: KindAgent, Content: msgReminder})
	c.enqueueSpeech(msgReminder)
}

func (c *Controller) handleFeedbackExpire(seq int) {
	if seq != c.feedbackSeq {
		return
	}
	c.mu.Lock()
	kept := c.transcript[:0]
	for _, m := range c.transcript {
		if !m.Ephemeral {
			kept = append(kept, m)
		}
	}
	c.transcript = kept
	c.mu.Unlock()
}

func (c *Controller) handleCompletionOffer(seq int) {
	if seq != c.offerSeq {
		return
	}
	switch c.State() {
	case StateIdle, StateCompleting, StateEnded:
		return
	}
	c.append(Message{Kind: KindAgent, Content: msgOffer, Feedback: msgOfferHint})
	c.recordQuestion(msgOffer)
	c.enqueueSpeech(msgOffer)
}

func (c *Controller) handleComplete() {
	switch c.State() {
	case StateIdle, StateCompleting, StateEnded:
		return
	}
	if c.Progress().MessagesExchanged < c.cfg.CompletionThreshold {
		c.logger.Debug("completion requested before threshold, ignoring")
		return
	}

	c.setState(StateCompleting)
	c.input.Stop()
	c.invalidateTimers()
	c.output.Cancel()
	c.queue = nil
	c.speaking = false

	summary := fmt.Sprintf(summaryTemplate, c.Progress().AverageScore)
	c.append(Message{Kind: KindAgent, Content: msgCompletion, Feedback: summary})
	c.recordQuestion(msgCompletion)
	c.enqueueSpeech(msgCompletion + " " + summary)
}

func (c *Controller) handleStop() {
	switch c.State() {
	case StateIdle, StateEnded:
		return
	}
	c.teardown(false)
}

// teardown is the idempotent hard stop: timers, speech and recognition all
// cancel, then the session finalizes with the stop-path score.
func (c *Controller) teardown(completed bool) {
	c.input.Stop()
	c.output.Cancel()
	c.invalidateTimers()
	c.queue = nil
	c.speaking = false
	c.finishSession(completed, c.stopScore())
}

// stopScore is the explicit-stop final score: cumulative score, or the
// correct-word ratio when no score accumulated, floored at the minimum
// passing value.
func (c *Controller) stopScore() int {
	p := c.Progress()
	score := p.TotalScore
	if score <= 0 && p.MessagesExchanged > 0 {
		score = int(float64(p.CorrectWords)/float64(p.MessagesExchanged)*100 + 0.5)
	}
	if score < c.cfg.MinPassingScore {
		score = c.cfg.MinPassingScore
	}
	return score
}

// completionScore is the summary-path final score: the rolling average,
// floored at the minimum passing value.
func (c *Controller) completionScore() int {
	score := c.Progress().AverageScore
	if score < c.cfg.MinPassingScore {
		score = c.cfg.MinPassingScore
	}
	return score
}

func (c *Controller) finishSession(completed bool, score int) {
	p := c.Progress()
	duration := c.clock().Sub(c.started)

	if c.taskID != "" {
		if err := c.recorder.UpdateLevel(c.ctx, analyzer.FormatTopicName(c.params.Topic),
			c.params.Level, score, c.taskID); err != nil {
			c.logger.Warn("level progression not recorded", slogError(err))
		}
		if err := c.recorder.CompleteTask(c.ctx, recorder.TaskCompletion{
			TaskID:            c.taskID,
			Score:             score,
			Duration:          duration,
			SessionID:         c.sessionID,
			QuestionsCount:    c.questionsCount,
			MessagesExchanged: p.MessagesExchanged,
		}); err != nil {
			c.logger.Warn("task completion not recorded", slogError(err))
		}
	}

	phase := "ended"
	subject := protocol.SubjectSessionEnded
	if completed {
		phase = "completed"
		subject = protocol.SubjectSessionCompleted
	}
	c.publishSession(subject, phase)
	c.journalAppend(journal.KindOutcome, phase, score)

	c.setState(StateEnded)
	c.logger.Info("session ended",
		slog.String("session", c.sessionID),
		slog.Int("final_score", score),
		slog.Int("messages", p.MessagesExchanged),
		slog.Bool("completed", completed))

	outcome := Outcome{
		SessionID:         c.sessionID,
		TaskID:            c.taskID,
		FinalScore:        score,
		MessagesExchanged: p.MessagesExchanged,
		QuestionsCount:    c.questionsCount,
		Duration:          duration,
		Completed:         completed,
	}
	select {
	case c.outcomes <- outcome:
	default:
	}
}

// recordQuestion assigns the question id on the loop and hands the write to
// the persistence worker. Answers reference the id, not the write's outcome.
func (c *Controller) recordQuestion(text string) {
	id := uuid.NewString()
	c.questionID = id
	c.questionsCount++
	sessionID := c.sessionID
	c.enqueuePersist(func() {
		if err := c.recorder.RecordQuestion(c.ctx, id, sessionID, text); err != nil {
			c.logger.Warn("question persisted locally only", slogError(err))
		}
	})
}

func (c *Controller) enqueueSpeech(texts ...string) {
	c.queue = append(c.queue, texts...)
	c.pumpSpeech()
}

func (c *Controller) pumpSpeech() {
	if c.speaking || len(c.queue) == 0 {
		return
	}
	c.speaking = true
	c.speakSeq++
	seq := c.speakSeq
	c.output.Speak(c.queue[0], func() {
		c.post(event{kind: evSpeakDone, seq: seq})
	})
}

// persistLoop runs recorder writes one at a time off the event loop. FIFO
// order keeps every question write ahead of the answer that references it.
func (c *Controller) persistLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case fn := <-c.persist:
			fn()
		}
	}
}

func (c *Controller) enqueuePersist(fn func()) {
	select {
	case c.persist <- fn:
	default:
		c.logger.Warn("persistence backlog full, dropping write")
	}
}

func (c *Controller) priorTurns() []analyzer.Turn {
	msgs := c.Transcript()
	var turns []analyzer.Turn
	for _, m := range msgs {
		switch m.Kind {
		case KindUser, KindAgent:
			turns = append(turns, analyzer.Turn{Role: m.Kind, Content: m.Content})
		}
	}
	if len(turns) > 10 {
		turns = turns[len(turns)-10:]
	}
	return turns
}

func (c *Controller) append(m Message) {
	m.At = c.clock()
	c.mu.Lock()
	c.transcript = append(c.transcript, m)
	c.mu.Unlock()
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) invalidateTimers() {
	c.micSeq++
	c.inactSeq++
	c.feedbackSeq++
	c.offerSeq++
	c.analysisSeq++
}

func (c *Controller) armTimer(d time.Duration, kind eventKind, seq int) {
	time.AfterFunc(d, func() {
		c.post(event{kind: kind, seq: seq})
	})
}

func (c *Controller) publishSession(subject, phase string) {
	if c.pub == nil {
		return
	}
	c.pub.PublishJSON(subject, protocol.SessionEvent{
		SessionID: c.sessionID,
		TaskID:    c.taskID,
		Topic:     c.params.Topic,
		Level:     c.params.Level,
		Phase:     phase,
		Timestamp: c.clock().UTC(),
	})
}

func (c *Controller) publishTurn(subject, role, text string, score int) {
	if c.pub == nil {
		return
	}
	c.pub.PublishJSON(subject, protocol.TurnMessage{
		SessionID: c.sessionID,
		Role:      role,
		Text:      text,
		Score:     score,
		Timestamp: c.clock().UTC(),
	})
}

func (c *Controller) journalAppend(kind, text string, score int) {
	if c.journal == nil {
		return
	}
	if err := c.journal.Append(c.ctx, journal.Entry{
		SessionID: c.sessionID,
		Kind:      kind,
		Text:      text,
		Score:     score,
	}); err != nil {
		c.logger.Warn("journal append failed", slogError(err))
	}
}

func (c *Controller) micTimeout() time.Duration {
	return time.Duration(c.cfg.MicTimeoutMS) * time.Millisecond
}

func (c *Controller) inactivityTimeout() time.Duration {
	return time.Duration(c.cfg.InactivityTimeoutMS) * time.Millisecond
}

func (c *Controller) feedbackDisplay() time.Duration {
	return time.Duration(c.cfg.FeedbackDisplayMS) * time.Millisecond
}

func (c *Controller) completionOfferDelay() time.Duration {
	return time.Duration(c.cfg.CompletionOfferDelayMS) * time.Millisecond
}

// answerFeedback is the shape serialized into the recorded answer.
type answerFeedback struct {
	Feedback    string                `json:"feedback"`
	Score       int                   `json:"score"`
	UsedWords   []analyzer.WordUsage  `json:"usedWords"`
	Corrections *analyzer.Corrections `json:"corrections,omitempty"`
}

func formatCorrections(c analyzer.Corrections) string {
	var out string
	if len(c.Pronunciation) > 0 {
		out += "💡 Pronunciation: " + c.Pronunciation[0] + "\n"
	}
	if len(c.Grammar) > 0 {
		out += "✍️ Grammar: " + c.Grammar[0] + "\n"
	}
	if len(c.Suggestions) > 0 {
		out += "💭 Suggestion: " + c.Suggestions[0]
	}
	return out
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
