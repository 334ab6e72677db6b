// Package arena parses arena command flags and starts the session runtime.
package arena

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	entrypoint "github.com/louisbranch/arena/internal/platform/cmd"
	"github.com/louisbranch/arena/internal/services/arena/app"
	"github.com/louisbranch/arena/internal/services/arena/bridge"
	"github.com/louisbranch/arena/internal/services/arena/domain/condition"
	"github.com/louisbranch/arena/internal/services/arena/invite"
	"github.com/louisbranch/arena/internal/services/arena/runtime"
	"github.com/louisbranch/arena/internal/services/arena/storage/sqlite"
)

// Config holds arena command configuration.
type Config struct {
	DBPath             string `env:"ARENA_DB_PATH" envDefault:"arena.db"`
	ConditionEvaluator string `env:"ARENA_CONDITION_EVALUATOR" envDefault:"lookup"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the sqlite database file")
	fs.StringVar(&cfg.ConditionEvaluator, "condition-evaluator", cfg.ConditionEvaluator, "Condition evaluation strategy: lookup or lua")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// conditionEvaluator maps a strategy name to its implementation.
func conditionEvaluator(name string) (condition.Evaluator, error) {
	switch name {
	case "", "lookup":
		return condition.LookupEvaluator{}, nil
	case "lua":
		return condition.LuaEvaluator{}, nil
	default:
		return nil, fmt.Errorf("unknown condition evaluator %q", name)
	}
}

// Run starts the arena session runtime and blocks until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceArena, func(ctx context.Context) error {
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Printf("close store: %v", err)
			}
		}()

		evaluator, err := conditionEvaluator(cfg.ConditionEvaluator)
		if err != nil {
			return err
		}

		stores := store.Stores()
		engine := runtime.New(stores, runtime.NopBroadcaster{}, runtime.WithEvaluator(evaluator))

		var opts []app.Option
		if os.Getenv(invite.EnvJoinGrantPublicKey) != "" {
			grants, err := invite.LoadJoinGrantConfigFromEnv(nil)
			if err != nil {
				return err
			}
			opts = append(opts, app.WithJoinGrants(grants))
		}

		service := app.New(stores, engine, nil, opts...)
		agentBridge := bridge.New(stores, bridge.NopTransport{}, service)
		service.SetBridge(agentBridge)
		engine.SetScheduler(agentBridge)

		if err := engine.RestoreActiveSessions(ctx); err != nil {
			return err
		}

		<-ctx.Done()
		return nil
	})
}
