package analyzer

import (
	"context"
	"math/rand"
	"regexp"
	"strings"
)

// Selector picks an index in [0,n). Injecting it keeps the fallback
// generator reproducible under test; production wiring uses a random one.
type Selector func(n int) int

// RandomSelector returns a Selector backed by math/rand.
func RandomSelector() Selector {
	return func(n int) int {
		if n <= 0 {
			return 0
		}
		return rand.Intn(n)
	}
}

type hintPattern struct {
	pattern *regexp.Regexp
	hint    string
}

var pronunciationPatterns = []hintPattern{
	{regexp.MustCompile(`(?i)\bfink\b`), `fink → think (use "th" sound)`},
	{regexp.MustCompile(`(?i)\bdat\b`), `dat → that (use "th" sound)`},
	{regexp.MustCompile(`(?i)\bdey\b`), `dey → they (use "th" sound)`},
	{regexp.MustCompile(`(?i)\bdere\b`), `dere → there (use "th" sound)`},
	{regexp.MustCompile(`(?i)\bcant\b`), `cant → can't (don't forget the apostrophe)`},
	{regexp.MustCompile(`(?i)\bdont\b`), `dont → don't (don't forget the apostrophe)`},
}

var grammarPatterns = []hintPattern{
	{regexp.MustCompile(`(?i)\bi is\b`), `Consider "I am" instead of "I is"`},
	{regexp.MustCompile(`(?i)\bhe are\b|\bshe are\b|\bit are\b`), `Use "is" with he/she/it`},
	{regexp.MustCompile(`(?i)\bthey is\b|\bwe is\b|\byou is\b`), `Use "are" with they/we/you`},
	{regexp.MustCompile(`(?i)\bdid went\b|\bwas went\b`), `Use "went" without did/was`},
	{regexp.MustCompile(`(?i)\bmore better\b|\bmore good\b`), `Use "better" instead of "more good"`},
	{regexp.MustCompile(`(?i)\bvery much\b.*(like|love)\b`), `Consider "really like" or "love a lot"`},
}

var connectivePattern = regexp.MustCompile(`(?i)because|since|due to|therefore|however|although`)

const expandAnswerHint = "Try expanding your answer with more details"
const connectiveHint = `Consider using connecting words like "because" or "however"`
const engagementHint = "You could add a question or exclamation to make it more engaging"

// AnalyzeSpeech scans an utterance against the fixed hint tables.
// It is pure and total: any input, including the empty string, yields a
// well-formed result.
func AnalyzeSpeech(utterance string) Corrections {
	var c Corrections

	for _, p := range pronunciationPatterns {
		if p.pattern.MatchString(utterance) {
			c.Pronunciation = append(c.Pronunciation, p.hint)
		}
	}
	for _, p := range grammarPatterns {
		if p.pattern.MatchString(utterance) {
			c.Grammar = append(c.Grammar, p.hint)
		}
	}

	if len(strings.Fields(strings.ToLower(utterance))) < 5 {
		c.Suggestions = append(c.Suggestions, expandAnswerHint)
	}
	if !connectivePattern.MatchString(utterance) {
		c.Suggestions = append(c.Suggestions, connectiveHint)
	}
	if !strings.ContainsAny(utterance, "?!") {
		c.Suggestions = append(c.Suggestions, engagementHint)
	}

	return c
}

// Generator is the local fallback feedback generator: a deterministic,
// pattern-based stand-in for the remote analysis service.
type Generator struct {
	pick Selector
}

func NewGenerator(sel Selector) *Generator {
	if sel == nil {
		sel = RandomSelector()
	}
	return &Generator{pick: sel}
}

// Analyze implements Analyzer. It never fails.
func (g *Generator) Analyze(_ context.Context, req Request) (Result, error) {
	return g.Generate(req.Text, req.Topic, req.RequiredWords), nil
}

// Generate produces feedback, the next question and a score for an
// utterance, as a pure function of its inputs and the injected selector.
func (g *Generator) Generate(utterance, topic string, requiredWords []string) Result {
	templates := templatesFor(topic)

	phrase := templates.phrases[g.pick(len(templates.phrases))]
	question := templates.questions[g.pick(len(templates.questions))]
	feedback := templates.feedback[g.pick(len(templates.feedback))]

	corrections := AnalyzeSpeech(utterance)
	lower := strings.ToLower(utterance)

	response := phrase
	switch {
	case containsAny(lower, "future", "next", "coming"):
		response = "Your thoughts about future developments are interesting! " + phrase
	case containsAny(lower, "problem", "challenge", "difficult"):
		response = "You've highlighted some important challenges. " + phrase
	case containsAny(lower, "benefit", "advantage", "positive"):
		response = "You've noted some significant benefits. " + phrase
	}

	var correctionsFeedback strings.Builder
	if len(corrections.Pronunciation) > 0 {
		correctionsFeedback.WriteString("Quick tip: " + corrections.Pronunciation[0] + " ")
	}
	if len(corrections.Grammar) > 0 {
		correctionsFeedback.WriteString(`You might also try: "` + corrections.Grammar[0] + `" `)
	}
	if len(corrections.Suggestions) > 0 {
		correctionsFeedback.WriteString("Consider using: " + corrections.Suggestions[0] + ". ")
	}

	usedWords := make([]WordUsage, 0, len(requiredWords))
	var usedNotes []string
	usedCount := 0
	for _, word := range requiredWords {
		used := word != "" && strings.Contains(lower, strings.ToLower(word))
		usage := WordUsage{Word: word, Used: used}
		if used {
			usage.Context = `Found "` + word + `" in your response`
			usedNotes = append(usedNotes, `Great use of "`+word+`"!`)
			usedCount++
		}
		usedWords = append(usedWords, usage)
	}

	var parts []string
	if s := strings.TrimSpace(correctionsFeedback.String()); s != "" {
		parts = append(parts, s)
	}
	if len(usedNotes) > 0 {
		parts = append(parts, strings.Join(usedNotes, " "))
	}
	parts = append(parts, feedback)

	return Result{
		Text:         response,
		Feedback:     strings.Join(parts, " "),
		NextQuestion: question,
		Score:        scoreUtterance(utterance, corrections, usedCount),
		UsedWords:    usedWords,
		Corrections:  &corrections,
	}
}

func scoreUtterance(utterance string, corrections Corrections, usedCount int) int {
	score := 70

	if len(utterance) > 100 {
		score += 10
	}
	if len(utterance) > 200 {
		score += 5
	}

	switch errs := corrections.ErrorCount(); {
	case errs == 0:
		score += 15
	case errs <= 2:
		score += 10
	case errs <= 4:
		score += 5
	}

	if usedCount > 0 {
		bonus := usedCount * 5
		if bonus > 15 {
			bonus = 15
		}
		score += bonus
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
