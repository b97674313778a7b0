// Command rosterctl runs one-shot maintenance tasks against the roster database.
//
//	rosterctl [-timeout 2m] init-schema|seed|migrate-legacy|report-dangling|repair-team-refs
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Dosada05/roster-system/config"
	"github.com/Dosada05/roster-system/db"
	"github.com/Dosada05/roster-system/repositories"
	"github.com/Dosada05/roster-system/services"
)

type command func(ctx context.Context, env *environment) (interface{}, error)

type environment struct {
	pool        *db.Pool
	maintenance services.MaintenanceService
}

var commands = map[string]command{
	"init-schema": func(ctx context.Context, env *environment) (interface{}, error) {
		conn, err := env.pool.Get(ctx)
		if err != nil {
			return nil, err
		}
		if err := db.CreateSchema(ctx, conn); err != nil {
			return nil, err
		}
		return map[string]string{"schema": "ok"}, nil
	},
	"seed": func(ctx context.Context, env *environment) (interface{}, error) {
		return env.maintenance.Seed(ctx)
	},
	"migrate-legacy": func(ctx context.Context, env *environment) (interface{}, error) {
		return env.maintenance.MigrateLegacy(ctx)
	},
	"report-dangling": func(ctx context.Context, env *environment) (interface{}, error) {
		return env.maintenance.ReportDangling(ctx)
	},
	"repair-team-refs": func(ctx context.Context, env *environment) (interface{}, error) {
		n, err := env.maintenance.RepairTeamRefs(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]int64{"repaired": n}, nil
	},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("rosterctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	timeout := fs.Duration("timeout", 2*time.Minute, "overall deadline for the command")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: rosterctl [-timeout d] init-schema|seed|migrate-legacy|report-dangling|repair-team-refs")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", fs.Arg(0))
		fs.Usage()
		return 2
	}

	cfg, err := config.LoadDatabase()
	if err != nil {
		fmt.Fprintf(stderr, "failed to load configuration: %v\n", err)
		return 1
	}
	logger := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	// Одна попытка подключения, без ожидания backoff
	pool := db.NewPool(db.Opener(cfg.DatabaseURL, cfg.DBConnectTimeout), db.WithLogger(logger))
	defer func() {
		if err := pool.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()

	env := &environment{
		pool: pool,
		maintenance: services.NewMaintenanceService(
			pool,
			repositories.NewPostgresMaintenanceRepository(pool),
			repositories.NewPostgresTeamRepository(pool),
			repositories.NewPostgresCategoryRepository(pool),
			repositories.NewPostgresPlayerRepository(pool),
			logger,
		),
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := cmd(ctx, env)
	if err != nil {
		logger.Error("command failed", slog.String("command", fs.Arg(0)), slog.Any("error", err))
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		logger.Error("failed to write result", slog.Any("error", err))
		return 1
	}
	return 0
}
