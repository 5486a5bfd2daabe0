package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:  "strata",
		Usage: "Solana token holder snapshot and analytics CLI",
		Description: `A command-line tool for running and debugging the strata engine.

Use this CLI to run token audits and comparisons, inspect database state,
manage Temporal audit schedules, and stream snapshot events from NATS.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			auditCommand(),
			compareCommand(),
			workerCommand(),
			// Database inspection commands
			{
				Name:  "db",
				Usage: "Database inspection commands",
				Subcommands: []*cli.Command{
					migrateCommand(),
					latestSnapshotCommand(),
					topHoldersCommand(),
					whalesCommand(),
					trendingCommand(),
					setLabelCommand(),
				},
			},
			// Temporal schedule management commands
			{
				Name:  "schedule",
				Usage: "Temporal audit schedule management",
				Subcommands: []*cli.Command{
					createScheduleCommand(),
					upsertScheduleCommand(),
					deleteScheduleCommand(),
				},
			},
			// NATS snapshot event streaming commands
			{
				Name:  "nats",
				Usage: "NATS snapshot event streaming commands",
				Subcommands: []*cli.Command{
					subscribeCommand(),
					inspectStreamCommand(),
				},
			},
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "solana-rpc-url",
				Usage:   "Solana RPC endpoint",
				EnvVars: []string{"SOLANA_RPC_URL"},
				Value:   "https://api.mainnet-beta.solana.com",
			},
			&cli.StringFlag{
				Name:    "temporal-host",
				Usage:   "Temporal server address",
				EnvVars: []string{"TEMPORAL_HOST"},
				Value:   "localhost:7233",
			},
			&cli.StringFlag{
				Name:    "temporal-namespace",
				Usage:   "Temporal namespace",
				EnvVars: []string{"TEMPORAL_NAMESPACE"},
				Value:   "default",
			},
			&cli.StringFlag{
				Name:    "task-queue",
				Usage:   "Temporal task queue for audit workflows",
				EnvVars: []string{"TEMPORAL_TASK_QUEUE"},
				Value:   "strata-token-audits",
			},
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "NATS server URL",
				EnvVars: []string{"NATS_URL"},
				Value:   "nats://localhost:4222",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
