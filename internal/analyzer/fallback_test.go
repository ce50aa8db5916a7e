package analyzer

import (
	"strings"
	"testing"
)

func fixedSelector() Selector {
	return func(n int) int { return 0 }
}

func TestShortUtteranceGetsExpandHint(t *testing.T) {
	for _, utterance := range []string{"", "yes", "I like it", "good idea very much"} {
		c := AnalyzeSpeech(utterance)
		found := false
		for _, s := range c.Suggestions {
			if s == expandAnswerHint {
				found = true
			}
		}
		if !found {
			t.Fatalf("utterance %q: expected expand-your-answer suggestion, got %v", utterance, c.Suggestions)
		}
	}
}

func TestScoreAlwaysInRange(t *testing.T) {
	g := NewGenerator(fixedSelector())
	inputs := []string{
		"",
		"fink dat dey dere cant dont i is he are they is did went more better",
		strings.Repeat("because innovation startup growth is positive and strong ", 10),
		"?!",
	}
	for _, in := range inputs {
		res := g.Generate(in, "economy", []string{"startup", "innovation", "growth", "market"})
		if res.Score < 0 || res.Score > 100 {
			t.Fatalf("score out of range for %q: %d", in, res.Score)
		}
	}
}

func TestRequiredWordCreditMonotone(t *testing.T) {
	g := NewGenerator(fixedSelector())
	words := []string{"startup", "innovation", "growth", "market"}
	base := "I believe the economy works well because people trade"

	prev := -1
	utterance := base
	for _, w := range words {
		utterance += " " + w
		res := g.Generate(utterance, "economy", words)
		if res.Score < prev {
			t.Fatalf("score decreased from %d to %d after adding %q", prev, res.Score, w)
		}
		prev = res.Score
	}
}

func TestRequiredWordBonusCapped(t *testing.T) {
	three := scoreUtterance("a response without mistakes because it connects!", Corrections{}, 3)
	five := scoreUtterance("a response without mistakes because it connects!", Corrections{}, 5)
	if three != five {
		t.Fatalf("expected capped bonus, got %d vs %d", three, five)
	}
}

func TestEconomyScenario(t *testing.T) {
	g := NewGenerator(fixedSelector())
	utterance := "I think the economy is growing because of startups and innovation, I is very happy"
	res := g.Generate(utterance, "economy", []string{"startup", "innovation"})

	if res.Corrections == nil || len(res.Corrections.Grammar) == 0 {
		t.Fatal("expected a grammar correction for \"I is\"")
	}
	if !strings.Contains(res.Corrections.Grammar[0], `"I am"`) {
		t.Fatalf("unexpected grammar hint: %s", res.Corrections.Grammar[0])
	}
	for _, usage := range res.UsedWords {
		if !usage.Used {
			t.Fatalf("expected %q to be marked used", usage.Word)
		}
	}
	if res.Score < 85 {
		t.Fatalf("expected score >= 85, got %d", res.Score)
	}
}

func TestLeadInPriorityOrder(t *testing.T) {
	g := NewGenerator(fixedSelector())

	res := g.Generate("in the future this will be a difficult problem", "innovation", nil)
	if !strings.HasPrefix(res.Text, "Your thoughts about future developments") {
		t.Fatalf("future family must win over challenge family, got %q", res.Text)
	}

	res = g.Generate("that is a difficult challenge with a clear benefit", "innovation", nil)
	if !strings.HasPrefix(res.Text, "You've highlighted some important challenges.") {
		t.Fatalf("challenge family must win over benefit family, got %q", res.Text)
	}
}

func TestDeterministicWithFixedSelector(t *testing.T) {
	g := NewGenerator(fixedSelector())
	a := g.Generate("hello there friend", "diplomacy", []string{"peace"})
	b := g.Generate("hello there friend", "diplomacy", []string{"peace"})
	if a.Text != b.Text || a.NextQuestion != b.NextQuestion || a.Score != b.Score {
		t.Fatal("generator must be deterministic under a fixed selector")
	}
}

func TestTopicFallsBackToDefaultTemplates(t *testing.T) {
	g := NewGenerator(fixedSelector())
	res := g.Generate("something thoughtful about gardening because it relaxes me!", "gardening", nil)
	if res.NextQuestion != defaultTemplates.questions[0] {
		t.Fatalf("expected default question pool, got %q", res.NextQuestion)
	}
}

func TestFirstQuestionLookup(t *testing.T) {
	if q := FirstQuestion("startup-economy"); !strings.Contains(q, "economy") {
		t.Fatalf("unexpected opener: %q", q)
	}
	if q := FirstQuestion("basket-weaving"); !strings.Contains(q, "Basket Weaving") {
		t.Fatalf("expected formatted topic in default opener, got %q", q)
	}
}

func TestFormatTopicName(t *testing.T) {
	if got := FormatTopicName("iron-sword-history"); got != "Iron Sword History" {
		t.Fatalf("got %q", got)
	}
}
