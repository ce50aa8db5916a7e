package turn

import "time"

// Message kinds in the session transcript.
const (
	KindUser     = "user"
	KindAgent    = "agent"
	KindFeedback = "feedback"
)

// Message is one transcript entry. Ephemeral entries are learning tips that
// auto-expire after the feedback display interval.
type Message struct {
	Kind      string
	Content   string
	Feedback  string
	Score     int
	Ephemeral bool
	At        time.Time
}

// Progress holds the session-scoped counters, recomputed after every
// completed turn and reset at session start.
type Progress struct {
	MessagesExchanged int
	CorrectWords      int
	TotalScore        int
	AverageScore      int
}

func (p *Progress) reset() {
	*p = Progress{}
}

func (p *Progress) addTurn(score, usedWords int) {
	p.TotalScore += score
	p.MessagesExchanged++
	p.CorrectWords += usedWords
	p.AverageScore = int(float64(p.TotalScore)/float64(p.MessagesExchanged) + 0.5)
}

// Outcome summarizes a finished session for the caller.
type Outcome struct {
	SessionID         string
	TaskID            string
	FinalScore        int
	MessagesExchanged int
	QuestionsCount    int
	Duration          time.Duration
	Completed         bool
}
