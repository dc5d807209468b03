// Package interview implements the turn engine that decides what the
// interviewer says next in a customer conversation.
package interview

import (
	"strings"

	"github.com/jkindrix/pitchcheck/internal/domain"
)

// DefaultPrefixLength is the number of runes of a question that must appear
// in the transcript for it to count as asked.
const DefaultPrefixLength = 20

// Progress describes how far a conversation has moved through the question set.
type Progress struct {
	// LastAsked is the index of the latest question found in the transcript, or -1.
	LastAsked int
	// Next is LastAsked+1. When Next is past the end there is no target question.
	Next int
	// Total is the size of the question set.
	Total int
	// Target is the text of the question to ask next, empty in follow-up mode.
	Target string
}

// FollowUp reports whether all questions have been asked.
func (p Progress) FollowUp() bool {
	return p.Next >= p.Total
}

// TargetPosition returns the 1-based position of the target question, or 0.
func (p Progress) TargetPosition() int {
	if p.FollowUp() {
		return 0
	}
	return p.Next + 1
}

// Prefix returns the first n runes of text, lower-cased.
func Prefix(text string, n int) string {
	lower := []rune(strings.ToLower(text))
	if len(lower) > n {
		lower = lower[:n]
	}
	return string(lower)
}

// LastAsked scans questions from last to first and returns the index of the
// first one whose prefix occurs in the lower-cased transcript, or -1.
func LastAsked(transcript string, questions []string, prefixLen int) int {
	if prefixLen <= 0 {
		prefixLen = DefaultPrefixLength
	}
	haystack := strings.ToLower(transcript)
	for i := len(questions) - 1; i >= 0; i-- {
		if strings.Contains(haystack, Prefix(questions[i], prefixLen)) {
			return i
		}
	}
	return -1
}

// DetectProgress derives the conversation's progress from its messages.
func DetectProgress(messages []*domain.Message, questions []string, prefixLen int) Progress {
	last := LastAsked(domain.Conversation(messages), questions, prefixLen)
	p := Progress{LastAsked: last, Next: last + 1, Total: len(questions)}
	if p.Next < len(questions) {
		p.Target = questions[p.Next]
	}
	return p
}
