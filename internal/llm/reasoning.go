package llm

import "strings"

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// separates a leading <think> block emitted by reasoning models from the answer
func SplitReasoning(text string) (reasoning, answer string) {
	start := strings.Index(text, thinkOpen)
	if start < 0 {
		return "", strings.TrimSpace(text)
	}

	rest := text[start+len(thinkOpen):]

	end := strings.Index(rest, thinkClose)
	if end < 0 {
		// unterminated block: everything after the tag is reasoning
		return strings.TrimSpace(rest), strings.TrimSpace(text[:start])
	}

	reasoning = strings.TrimSpace(rest[:end])
	answer = strings.TrimSpace(text[:start] + rest[end+len(thinkClose):])

	return reasoning, answer
}
