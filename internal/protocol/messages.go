package protocol

import "time"

// SessionEvent announces session lifecycle changes on the bus.
type SessionEvent struct {
	SessionID string    `json:"session_id"`
	TaskID    string    `json:"task_id"`
	Topic     string    `json:"topic"`
	Level     int       `json:"level"`
	Phase     string    `json:"phase"` // started | completed | ended
	Timestamp time.Time `json:"timestamp"`
}

// TurnMessage is a committed transcript entry broadcast on the bus.
type TurnMessage struct {
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"` // user | agent | feedback
	Text      string    `json:"text"`
	Score     int       `json:"score,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TurnScore carries the per-turn scoring outcome.
type TurnScore struct {
	SessionID         string    `json:"session_id"`
	QuestionID        string    `json:"question_id"`
	Score             int       `json:"score"`
	UsedWords         []string  `json:"used_words,omitempty"`
	MessagesExchanged int       `json:"messages_exchanged"`
	AverageScore      int       `json:"average_score"`
	Timestamp         time.Time `json:"timestamp"`
}

// SpeechSay asks a synthesis peer on the bus to utter one chunk.
type SpeechSay struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// SpeechSayStatus reports the outcome of a SpeechSay request. Delivered on
// SubjectSpeechSayDone suffixed with the request id.
type SpeechSayStatus struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

// Recognition event kinds carried in RecognitionEvent.Kind.
const (
	RecognitionResult      = "result"
	RecognitionSpeechStart = "speech-start"
	RecognitionEnd         = "end"
	RecognitionError       = "error"
)

// RecognitionEvent is one event from a recognition peer on the bus.
type RecognitionEvent struct {
	Kind      string    `json:"kind"`
	Text      string    `json:"text,omitempty"`
	Final     bool      `json:"final,omitempty"`
	Code      string    `json:"code,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	SubjectSessionStarted   = "session.started"
	SubjectSessionCompleted = "session.completed"
	SubjectSessionEnded     = "session.ended"
	SubjectTurnUser         = "turn.message.user"
	SubjectTurnAgent        = "turn.message.agent"
	SubjectTurnScore        = "turn.score"

	SubjectSpeechSayRequest = "speech.say.request"
	SubjectSpeechSayCancel  = "speech.say.cancel"
	SubjectSpeechSayDone    = "speech.say.done" // + "." + request id
	SubjectSpeechEvents     = "speech.recognition.events"
)
