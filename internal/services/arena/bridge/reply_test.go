package bridge

import (
	"reflect"
	"testing"
)

func TestParseReplyFencedBlock(t *testing.T) {
	reply := "I think the villager in seat 3 is suspicious.\n\n" +
		"```json\n{\"action\": \"vote\", \"params\": {\"target\": \"p3\"}}\n```\n"

	submission, ok := ParseReply(reply)
	if !ok {
		t.Fatal("expected a submission")
	}
	if submission.Action != "vote" {
		t.Fatalf("action = %q, want %q", submission.Action, "vote")
	}
	if !reflect.DeepEqual(submission.Params, map[string]any{"target": "p3"}) {
		t.Fatalf("params = %v", submission.Params)
	}
}

func TestParseReplyBareFence(t *testing.T) {
	reply := "```\n{\"action\": \"kill\"}\n```"
	submission, ok := ParseReply(reply)
	if !ok || submission.Action != "kill" {
		t.Fatalf("submission = %+v, ok = %v", submission, ok)
	}
}

func TestParseReplyWholeBody(t *testing.T) {
	submission, ok := ParseReply(`  {"action": "pass"}  `)
	if !ok || submission.Action != "pass" {
		t.Fatalf("submission = %+v, ok = %v", submission, ok)
	}
}

func TestParseReplyInlineObject(t *testing.T) {
	reply := `After thinking it over I choose {"action": "vote", "params": {"target": "p1"}} as my move.`
	submission, ok := ParseReply(reply)
	if !ok || submission.Action != "vote" {
		t.Fatalf("submission = %+v, ok = %v", submission, ok)
	}
}

func TestParseReplyConversational(t *testing.T) {
	cases := []string{
		"I need more information before acting.",
		"",
		"```json\n{\"params\": {\"target\": \"p1\"}}\n```", // no action key
		`{"action": "  "}`,
		"{not json at all}",
	}
	for _, reply := range cases {
		if _, ok := ParseReply(reply); ok {
			t.Fatalf("ParseReply(%q) unexpectedly produced a submission", reply)
		}
	}
}

func TestParseReplyPrefersFencedBlock(t *testing.T) {
	reply := `{"action": "wrong"}` + "\n```json\n{\"action\": \"right\"}\n```"
	submission, ok := ParseReply(reply)
	if !ok || submission.Action != "right" {
		t.Fatalf("submission = %+v, ok = %v", submission, ok)
	}
}
