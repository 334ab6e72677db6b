package condition

import (
	"fmt"

	"github.com/Shopify/go-lua"
)

// LuaEvaluator treats the condition name as a Lua expression evaluated with
// the session state exposed as the global `state` table. Definitions keep
// their document format; publishers opt in by writing expressions such as
// `state.round > 3 and state.alive == 0` in the condition field.
//
// Evaluation is fail-closed: a script error resolves to false alongside the
// returned error so callers can record it without granting the condition.
type LuaEvaluator struct{}

// Evaluate runs the condition expression in a fresh Lua state.
func (LuaEvaluator) Evaluate(expr string, state map[string]any) (bool, error) {
	if expr == "" {
		return false, nil
	}

	l := lua.NewState()
	lua.OpenLibraries(l)

	pushTable(l, state)
	l.SetGlobal("state")

	if err := lua.DoString(l, "return ("+expr+")"); err != nil {
		return false, fmt.Errorf("evaluate condition %q: %w", expr, err)
	}
	if l.Top() < 1 {
		return false, fmt.Errorf("condition %q returned no value", expr)
	}
	result := l.ToBoolean(-1)
	l.Pop(1)
	return result, nil
}

// pushTable pushes a Go map onto the Lua stack as a table.
func pushTable(l *lua.State, value map[string]any) {
	l.NewTable()
	for key, item := range value {
		pushValue(l, item)
		l.SetField(-2, key)
	}
}

func pushValue(l *lua.State, value any) {
	switch v := value.(type) {
	case nil:
		l.PushNil()
	case bool:
		l.PushBoolean(v)
	case string:
		l.PushString(v)
	case float64:
		l.PushNumber(v)
	case int:
		l.PushNumber(float64(v))
	case int64:
		l.PushNumber(float64(v))
	case map[string]any:
		pushTable(l, v)
	case []any:
		l.NewTable()
		for i, item := range v {
			pushValue(l, item)
			l.RawSetInt(-2, i+1)
		}
	default:
		// Unrepresentable values become nil rather than failing the script.
		l.PushNil()
	}
}
