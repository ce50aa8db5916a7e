package analyzer

import "strings"

// templateSet holds the phrase, question and feedback pools for one topic.
type templateSet struct {
	phrases   []string
	questions []string
	feedback  []string
}

var topicTemplates = map[string]templateSet{
	"innovation": {
		phrases: []string{
			"That's an interesting perspective on technology innovation!",
			"I appreciate your thoughts on tech development.",
			"Your ideas about innovation are quite thought-provoking.",
			"That's a fascinating take on technological advancement!",
		},
		questions: []string{
			"What specific technologies do you think will have the biggest impact in the next decade?",
			"How do you think Israeli innovations have changed everyday life?",
			"Can you think of any technological challenges we still need to solve?",
			"Do you believe AI will fundamentally change how we approach innovation?",
		},
		feedback: []string{
			"Good use of technical vocabulary! Try expanding your answer with more details.",
			"You're expressing your ideas well. Try using more complex sentence structures.",
			"Nice job! Try incorporating more specific examples in your responses.",
			"Well articulated! Consider using more transition words to connect your ideas.",
		},
	},
	"economy": {
		phrases: []string{
			"That's an insightful analysis of economic factors!",
			"Your thoughts on business development are valuable.",
			"I appreciate your perspective on economic growth.",
			"That's a nuanced view of entrepreneurship!",
		},
		questions: []string{
			"What do you think makes Israel's economy unique compared to other countries?",
			"How important do you think startups are to a country's economic growth?",
			"What economic challenges do you think Israel will face in the coming years?",
			"Do you believe digital currency will transform how we think about money?",
		},
		feedback: []string{
			"Good use of economic terminology! Try expanding your ideas with examples.",
			"You're expressing complex ideas well. Consider using more comparative language.",
			"Nice explanation! Try incorporating more financial vocabulary in your responses.",
			"Well structured! Try using more cause-and-effect language in your analysis.",
		},
	},
	"diplomacy": {
		phrases: []string{
			"That's a thoughtful analysis of international relations!",
			"Your perspective on diplomacy is quite interesting.",
			"I appreciate your nuanced view on foreign policy.",
			"That's a compelling point about diplomatic strategies!",
		},
		questions: []string{
			"How do you think Israel's diplomatic relationships have evolved over time?",
			"What role do you think technology plays in modern diplomacy?",
			"Which countries do you think Israel has the strongest relationships with?",
			"How important is cultural exchange in building international relationships?",
		},
		feedback: []string{
			"Good use of diplomatic terminology! Try developing your ideas with specific examples.",
			"You're expressing complex ideas clearly. Consider exploring multiple perspectives.",
			"Nice analysis! Try using more formal language when discussing international relations.",
			"Well articulated! Consider the historical context in your diplomatic analysis.",
		},
	},
}

var defaultTemplates = templateSet{
	phrases: []string{
		"That's an interesting perspective!",
		"I appreciate your thoughtful response.",
		"You've made some good points there.",
		"That's a fascinating take on the topic!",
	},
	questions: []string{
		"Could you elaborate more on your thoughts about this topic?",
		"What aspects of this subject interest you the most?",
		"How do you think this topic relates to everyday life?",
		"Do you have any personal experiences related to this topic?",
	},
	feedback: []string{
		"Good effort! Try expanding your vocabulary with more topic-specific terms.",
		"You're expressing your ideas well. Try using more complex sentence structures.",
		"Nice job! Try incorporating more specific examples in your responses.",
		"Well done! Consider organizing your thoughts with transition words.",
	},
}

// topicKeyOrder keeps key matching deterministic; map iteration order is not.
var topicKeyOrder = []string{"innovation", "economy", "diplomacy"}

func templatesFor(topic string) templateSet {
	lower := strings.ToLower(topic)
	for _, key := range topicKeyOrder {
		if strings.Contains(lower, key) {
			return topicTemplates[key]
		}
	}
	return defaultTemplates
}

// firstQuestions maps topic-name fragments to the session opener.
var firstQuestions = []struct {
	key      string
	question string
}{
	{"diplomacy", "What do you think about Israel's diplomatic relations with other countries?"},
	{"economy", "What interests you about Israel's economy or startup ecosystem?"},
	{"innovation", "What Israeli technological innovations are you familiar with?"},
	{"history", "What aspects of Israeli history do you find most interesting?"},
	{"holocaust", "Why do you think it's important to remember historical events like the Holocaust?"},
	{"iron", "What are your thoughts on how countries should protect their citizens?"},
	{"sword", "What are your thoughts on how countries should protect their citizens?"},
	{"environment", "What do you think about Israel's focus on renewable energy to protect the environment?"},
	{"society", "What do you think is the most important action individuals can take to help protect the environment?"},
}

// FirstQuestion returns the conversation opener for a topic.
func FirstQuestion(topic string) string {
	lower := strings.ToLower(topic)
	for _, entry := range firstQuestions {
		if strings.Contains(lower, entry.key) {
			return entry.question
		}
	}
	return "What aspects of " + FormatTopicName(topic) + " interest you the most?"
}

// FormatTopicName turns a slug like "startup-economy" into "Startup Economy".
func FormatTopicName(topic string) string {
	parts := strings.Split(topic, "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
