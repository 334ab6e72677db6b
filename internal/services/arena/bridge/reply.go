package bridge

import (
	"encoding/json"
	"regexp"
	"strings"
)

// AgentSubmission is an action extracted from an agent reply.
type AgentSubmission struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params"`
}

var (
	fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	inlineJSONPattern = regexp.MustCompile(`\{[^{}]*"action"[^{}]*\}`)
)

// ParseReply extracts an action submission from free-form agent output.
// Three strategies run in order: a fenced JSON code block, the whole reply
// as a JSON object, then a scan for an inline object containing an
// "action" key. A reply with no parsable action is conversational and
// yields no submission.
func ParseReply(reply string) (AgentSubmission, bool) {
	if match := fencedJSONPattern.FindStringSubmatch(reply); match != nil {
		if submission, ok := decodeSubmission(match[1]); ok {
			return submission, true
		}
	}

	trimmed := strings.TrimSpace(reply)
	if strings.HasPrefix(trimmed, "{") {
		if submission, ok := decodeSubmission(trimmed); ok {
			return submission, true
		}
	}

	for _, candidate := range inlineJSONPattern.FindAllString(reply, -1) {
		if submission, ok := decodeSubmission(candidate); ok {
			return submission, true
		}
	}

	return AgentSubmission{}, false
}

func decodeSubmission(raw string) (AgentSubmission, bool) {
	var submission AgentSubmission
	if err := json.Unmarshal([]byte(raw), &submission); err != nil {
		return AgentSubmission{}, false
	}
	if strings.TrimSpace(submission.Action) == "" {
		return AgentSubmission{}, false
	}
	return submission, true
}
