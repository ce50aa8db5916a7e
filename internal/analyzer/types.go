package analyzer

import "context"

// Corrections groups textual hints about an utterance, partitioned by kind.
// They are embedded into answer feedback and never persisted on their own.
type Corrections struct {
	Pronunciation []string `json:"pronunciation,omitempty"`
	Grammar       []string `json:"grammar,omitempty"`
	Suggestions   []string `json:"suggestions,omitempty"`
}

// Empty reports whether no hints of any kind were produced.
func (c Corrections) Empty() bool {
	return len(c.Pronunciation) == 0 && len(c.Grammar) == 0 && len(c.Suggestions) == 0
}

// ErrorCount counts mistakes that affect scoring; suggestions are advisory
// and do not reduce the correctness bonus.
func (c Corrections) ErrorCount() int {
	return len(c.Pronunciation) + len(c.Grammar)
}

// WordUsage records whether a required word appeared in the utterance.
type WordUsage struct {
	Word    string `json:"word"`
	Used    bool   `json:"used"`
	Context string `json:"context,omitempty"`
}

// Result is the outcome of analyzing one user utterance.
type Result struct {
	Text         string       `json:"text"`
	Feedback     string       `json:"feedback"`
	NextQuestion string       `json:"nextQuestion"`
	Score        int          `json:"score"`
	UsedWords    []WordUsage  `json:"usedWords"`
	Corrections  *Corrections `json:"corrections,omitempty"`
}

// Turn is one prior exchange supplied to the remote analyzer for context.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request carries everything the analyzer needs about the utterance.
type Request struct {
	Text          string
	Topic         string
	Level         string
	LearnedWords  []string
	RequiredWords []string
	PriorTurns    []Turn
}

// Analyzer scores an utterance and produces the agent's next move.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (Result, error)
}
