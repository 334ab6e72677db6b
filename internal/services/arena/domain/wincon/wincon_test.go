package wincon

import (
	"errors"
	"testing"

	"github.com/louisbranch/arena/internal/services/arena/domain/condition"
	"github.com/louisbranch/arena/internal/services/arena/domain/definition"
	"github.com/louisbranch/arena/internal/services/arena/domain/gamestate"
)

func testDefinition() definition.Definition {
	return definition.Definition{
		WinConditions: []definition.WinCondition{
			{Role: "villager", Condition: "allWerewolvesDead"},
			{Role: "werewolf", Condition: "werewolvesOutnumber"},
		},
	}
}

func TestEvaluateFirstMatchWins(t *testing.T) {
	state := gamestate.State{
		"allWerewolvesDead":   true,
		"werewolvesOutnumber": true,
	}

	result, ok := Evaluate(testDefinition(), state, condition.LookupEvaluator{})
	if !ok {
		t.Fatal("expected a winner")
	}
	if result.Role != "villager" {
		t.Fatalf("winner = %q, want %q", result.Role, "villager")
	}
	if result.Condition != "allWerewolvesDead" {
		t.Fatalf("condition = %q", result.Condition)
	}
}

func TestEvaluateSkipsUnsatisfied(t *testing.T) {
	state := gamestate.State{
		"allWerewolvesDead": false,
		"conditionResults":  map[string]any{"werewolvesOutnumber": true},
	}

	result, ok := Evaluate(testDefinition(), state, condition.LookupEvaluator{})
	if !ok {
		t.Fatal("expected a winner")
	}
	if result.Role != "werewolf" {
		t.Fatalf("winner = %q, want %q", result.Role, "werewolf")
	}
}

func TestEvaluateNoWinner(t *testing.T) {
	if _, ok := Evaluate(testDefinition(), gamestate.State{}, condition.LookupEvaluator{}); ok {
		t.Fatal("expected no winner for empty state")
	}
}

type failingEvaluator struct{}

func (failingEvaluator) Evaluate(string, map[string]any) (bool, error) {
	return true, errors.New("evaluator broke")
}

func TestEvaluateTreatsErrorsAsFalse(t *testing.T) {
	if _, ok := Evaluate(testDefinition(), gamestate.State{}, failingEvaluator{}); ok {
		t.Fatal("evaluator errors must not produce a winner")
	}
}
