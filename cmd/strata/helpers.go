package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/itchyny/gojq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/okdsgnr/Strata/service/audit"
	"github.com/okdsgnr/Strata/service/db"
	"github.com/okdsgnr/Strata/service/price"
	"github.com/okdsgnr/Strata/service/solana"
	"github.com/okdsgnr/Strata/service/temporal"
)

// getStore connects to the database using the global --database-url flag
// (or DATABASE_URL) and returns a store plus a closer.
func getStore(c *cli.Context) (*db.Store, func(), error) {
	dbURL := c.String("database-url")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		return nil, nil, fmt.Errorf("database-url is required (set DATABASE_URL env var or use --database-url)")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := db.NewStore(pool, nil)
	closer := func() { pool.Close() }

	return store, closer, nil
}

// getTemporalClient connects to Temporal using the global flags.
func getTemporalClient(c *cli.Context) (*temporal.Client, error) {
	return temporal.NewClient(
		c.String("temporal-host"),
		c.String("temporal-namespace"),
		c.String("task-queue"),
		cliLogger(),
	)
}

// buildAuditService wires a full audit engine for one-off CLI runs: RPC
// holder source, price oracle, and database-backed snapshots, labels, whale
// tracking, and search logging. No NATS publisher and no metrics; one-off
// runs should not need a broker and scrape endpoint.
func buildAuditService(c *cli.Context) (*audit.Service, func(), error) {
	store, closer, err := getStore(c)
	if err != nil {
		return nil, nil, err
	}

	if err := store.EnsureSchema(context.Background()); err != nil {
		closer()
		return nil, nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	logger := cliLogger()
	rpcURL := c.String("solana-rpc-url")
	chain := solana.NewClient(rpc.New(rpcURL), rpcURL, nil, logger)
	oracle := price.NewOracle(price.OracleConfig{
		BirdeyeAPIKey: os.Getenv("BIRDEYE_API_KEY"),
		Logger:        logger,
	})

	svc := audit.NewService(audit.ServiceConfig{
		Balances:  chain,
		Supply:    chain,
		Prices:    oracle,
		Metadata:  oracle,
		Labels:    store,
		Snapshots: store,
		Whales:    audit.NewWhaleTracker(store, nil, logger),
		Searches:  store,
		Logger:    logger,
	})
	return svc, closer, nil
}

// cliLogger returns a text logger at warn level so command output stays
// parseable while real failures still surface.
func cliLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// outputJSON writes v as indented JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputFiltered writes v as JSON, optionally piped through a jq expression.
func outputFiltered(v interface{}, jqExpr string) error {
	if jqExpr == "" {
		return outputJSON(v)
	}

	query, err := gojq.Parse(jqExpr)
	if err != nil {
		return fmt.Errorf("failed to parse jq filter %q: %w", jqExpr, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return fmt.Errorf("failed to compile jq filter %q: %w", jqExpr, err)
	}

	// gojq operates on generic JSON values, so round-trip v through
	// encoding/json first.
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to unmarshal output: %w", err)
	}

	iter := code.Run(doc)
	for {
		result, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := result.(error); isErr {
			return fmt.Errorf("jq filter error: %w", err)
		}
		if err := outputJSON(result); err != nil {
			return err
		}
	}
	return nil
}
