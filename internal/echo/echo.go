// Package echo decides whether a recognized transcript is actually the
// microphone picking up the agent's own synthesized speech.
package echo

import (
	"strings"
	"unicode"
)

// DefaultThreshold is the similarity above which a transcript is discarded
// as an echo of the agent's most recent utterance.
const DefaultThreshold = 0.7

// phraseStartSimilarity is returned when the opening words of both strings
// line up, which is the strongest echo signal available without audio access.
const phraseStartSimilarity = 0.9

// Similarity scores how closely candidate matches priorAgentText in [0,1].
// Both strings are lowercased and stripped of punctuation; tokens of length
// <= 2 are ignored as too common to be evidence.
func Similarity(candidate, priorAgentText string) float64 {
	words1 := substantialTokens(candidate)
	words2 := substantialTokens(priorAgentText)

	if len(words1) == 0 || len(words2) == 0 {
		return 0
	}

	shortest := len(words1)
	if len(words2) < shortest {
		shortest = len(words2)
	}
	checkLength := shortest
	if checkLength > 6 {
		checkLength = 6
	}

	startingMatches := 0
	for i := 0; i < checkLength; i++ {
		if words1[i] == words2[i] {
			startingMatches++
		}
	}
	if startingMatches >= 3 || (checkLength > 0 && float64(startingMatches)/float64(checkLength) >= 0.5) {
		return phraseStartSimilarity
	}

	matchCount := 0
	for _, w := range words1 {
		if len(w) > 3 && contains(words2, w) {
			matchCount++
		}
	}
	return float64(matchCount) / float64(len(words1))
}

// IsEcho reports whether candidate should be discarded as an echo of
// priorAgentText at the given threshold.
func IsEcho(candidate, priorAgentText string, threshold float64) bool {
	return Similarity(candidate, priorAgentText) > threshold
}

func substantialTokens(s string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '_' {
			return unicode.ToLower(r)
		}
		return -1
	}, s)

	var tokens []string
	for _, w := range strings.Fields(cleaned) {
		if len(w) > 2 {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

func contains(words []string, w string) bool {
	for _, c := range words {
		if c == w {
			return true
		}
	}
	return false
}
