// Package wincon evaluates a definition's win conditions against session
// state. Conditions run in declared order and the first satisfied one ends
// the game, so authors control precedence by ordering the list.
package wincon

import (
	"github.com/louisbranch/arena/internal/services/arena/domain/condition"
	"github.com/louisbranch/arena/internal/services/arena/domain/definition"
	"github.com/louisbranch/arena/internal/services/arena/domain/gamestate"
)

// Result names the winning role and the condition that triggered the win.
type Result struct {
	Role      string
	Condition string
}

// Evaluate checks each win condition in order and returns the first match.
// Evaluator failures count as unsatisfied so that a broken condition can
// never finish a game by accident.
func Evaluate(def definition.Definition, state gamestate.State, evaluator condition.Evaluator) (Result, bool) {
	for _, wc := range def.WinConditions {
		satisfied, err := evaluator.Evaluate(wc.Condition, state)
		if err != nil || !satisfied {
			continue
		}
		return Result{Role: wc.Role, Condition: wc.Condition}, true
	}
	return Result{}, false
}
