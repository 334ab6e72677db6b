package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/louisbranch/arena/internal/services/arena/domain/definition"
)

// Tools derives MCP tool declarations from action definitions so agents
// connected over a tool-calling transport see the same capability surface
// as prompt-driven ones. Actions without params get an empty object schema.
func Tools(actions []definition.Action) ([]*mcp.Tool, error) {
	tools := make([]*mcp.Tool, 0, len(actions))
	for _, action := range actions {
		schema, err := paramsSchema(action.Params)
		if err != nil {
			return nil, fmt.Errorf("derive schema for action %s: %w", action.Name, err)
		}
		tools = append(tools, &mcp.Tool{
			Name:        action.Name,
			Description: action.Description,
			InputSchema: schema,
		})
	}
	return tools, nil
}

func paramsSchema(params map[string]any) (*jsonschema.Schema, error) {
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: map[string]*jsonschema.Schema{},
	}
	for name, raw := range params {
		encoded, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("marshal param %s: %w", name, err)
		}
		property := &jsonschema.Schema{}
		if err := json.Unmarshal(encoded, property); err != nil {
			return nil, fmt.Errorf("param %s is not a schema fragment: %w", name, err)
		}
		schema.Properties[name] = property
	}
	return schema, nil
}
