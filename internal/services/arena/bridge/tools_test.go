package bridge

import (
	"testing"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/louisbranch/arena/internal/services/arena/domain/definition"
)

func TestToolsDeriveSchemas(t *testing.T) {
	actions := []definition.Action{
		{
			Name:        "vote",
			Description: "Vote to eliminate a player",
			Params: map[string]any{
				"target": map[string]any{"type": "string", "description": "participant id"},
			},
		},
		{Name: "pass"},
	}

	tools, err := Tools(actions)
	if err != nil {
		t.Fatalf("derive tools: %v", err)
	}
	if len(tools) != 2 {
		t.Fatalf("tools = %d, want 2", len(tools))
	}

	vote := tools[0]
	if vote.Name != "vote" || vote.Description != "Vote to eliminate a player" {
		t.Fatalf("tool = %+v", vote)
	}
	voteSchema, ok := vote.InputSchema.(*jsonschema.Schema)
	if !ok {
		t.Fatalf("schema = %T, want *jsonschema.Schema", vote.InputSchema)
	}
	if voteSchema.Type != "object" {
		t.Fatalf("schema type = %q", voteSchema.Type)
	}
	target, ok := voteSchema.Properties["target"]
	if !ok {
		t.Fatal("expected target property")
	}
	if target.Type != "string" || target.Description != "participant id" {
		t.Fatalf("target schema = %+v", target)
	}

	passSchema, ok := tools[1].InputSchema.(*jsonschema.Schema)
	if !ok {
		t.Fatalf("schema = %T, want *jsonschema.Schema", tools[1].InputSchema)
	}
	if passSchema.Type != "object" || len(passSchema.Properties) != 0 {
		t.Fatalf("paramless schema = %+v", passSchema)
	}
}

func TestToolsRejectBadParamFragment(t *testing.T) {
	actions := []definition.Action{
		{Name: "vote", Params: map[string]any{"target": "not-a-schema"}},
	}
	if _, err := Tools(actions); err == nil {
		t.Fatal("expected error for non-object param fragment")
	}
}
