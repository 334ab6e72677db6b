// Package condition resolves named transition and win conditions against the
// session state blob. The evaluator is a strategy so richer condition
// languages can be plugged in without changing the definition document.
package condition

// Evaluator resolves a condition name to a boolean against game state.
type Evaluator interface {
	Evaluate(condition string, state map[string]any) (bool, error)
}

// LookupEvaluator is the default condition language: two flat lookups, no
// expressions. A condition holds when state[name] is literally true, or when
// state.conditionResults[name] is literally true.
type LookupEvaluator struct{}

// Evaluate resolves condition via the two-step flat lookup rule.
func (LookupEvaluator) Evaluate(name string, state map[string]any) (bool, error) {
	if state == nil || name == "" {
		return false, nil
	}
	if value, ok := state[name].(bool); ok && value {
		return true, nil
	}
	if results, ok := state["conditionResults"].(map[string]any); ok {
		if value, ok := results[name].(bool); ok && value {
			return true, nil
		}
	}
	return false, nil
}
