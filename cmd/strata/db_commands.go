package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply the database schema",
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			if err := store.EnsureSchema(context.Background()); err != nil {
				return fmt.Errorf("failed to apply schema: %w", err)
			}
			fmt.Println("schema up to date")
			return nil
		},
	}
}

func latestSnapshotCommand() *cli.Command {
	return &cli.Command{
		Name:      "latest-snapshot",
		Usage:     "Show the most recent snapshot for a token",
		Aliases:   []string{"latest"},
		ArgsUsage: "<mint>",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "window",
				Usage: "Only consider snapshots newer than this",
				Value: 30 * 24 * time.Hour,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: token mint")
			}
			mint := c.Args().Get(0)

			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			snap, err := store.FindRecent(context.Background(), mint, c.Duration("window"))
			if err != nil {
				return fmt.Errorf("failed to query snapshot: %w", err)
			}
			if snap == nil {
				return fmt.Errorf("no snapshot found for %s", mint)
			}

			if c.Bool("json") {
				return outputJSON(snap)
			}

			fmt.Printf("Snapshot #%d\n", snap.ID)
			fmt.Printf("  Token:    %s\n", snap.TokenAddress)
			fmt.Printf("  Captured: %s (bucket %d)\n", snap.CapturedAt.Format(time.RFC3339), snap.BucketKey)
			if snap.PriceUsd != nil {
				fmt.Printf("  Price:    $%s\n", snap.PriceUsd.String())
			}
			fmt.Printf("  Holders:  %d total, %d eligible\n", snap.TotalHolders, snap.EligibleHolders)
			fmt.Printf("  Tiers:    whale=%d shark=%d dolphin=%d fish=%d shrimp=%d\n",
				snap.TierCounts.Whale, snap.TierCounts.Shark, snap.TierCounts.Dolphin,
				snap.TierCounts.Fish, snap.TierCounts.Shrimp)
			return nil
		},
	}
}

func topHoldersCommand() *cli.Command {
	return &cli.Command{
		Name:      "top-holders",
		Usage:     "List persisted top holders for a snapshot",
		ArgsUsage: "<snapshot-id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: snapshot id")
			}
			var snapshotID int64
			if _, err := fmt.Sscanf(c.Args().Get(0), "%d", &snapshotID); err != nil {
				return fmt.Errorf("invalid snapshot id %q", c.Args().Get(0))
			}

			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			rows, err := store.TopHoldersBySnapshot(context.Background(), snapshotID)
			if err != nil {
				return fmt.Errorf("failed to query top holders: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(rows)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tADDRESS\tBALANCE\tUSD\tTIER")
			for _, r := range rows {
				usd := "-"
				if r.UsdValue != nil {
					usd = "$" + r.UsdValue.StringFixed(2)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", r.Rank, r.Address, r.Balance.String(), usd, r.Tier)
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d holders\n", len(rows))
			return nil
		},
	}
}

func whalesCommand() *cli.Command {
	return &cli.Command{
		Name:      "whales",
		Usage:     "List tracked whales for a token",
		ArgsUsage: "<mint>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: token mint")
			}
			mint := c.Args().Get(0)

			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			whales, err := store.ListByToken(context.Background(), mint)
			if err != nil {
				return fmt.Errorf("failed to query whales: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(whales)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ADDRESS\tUSD\tSTREAK\tFIRST SEEN\tLAST SEEN")
			for _, rec := range whales {
				fmt.Fprintf(w, "%s\t$%s\t%dd\t%s\t%s\n",
					rec.Address,
					rec.UsdValue.StringFixed(0),
					rec.ConsecutiveDays,
					rec.FirstSeen.Format("2006-01-02"),
					rec.LastSeen.Format("2006-01-02"),
				)
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d whales\n", len(whales))
			return nil
		},
	}
}

func trendingCommand() *cli.Command {
	return &cli.Command{
		Name:  "trending",
		Usage: "List the most-searched tokens",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "window",
				Usage: "Search window to aggregate over",
				Value: 24 * time.Hour,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of tokens",
				Value: 10,
			},
		},
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			tokens, err := store.TrendingTokens(context.Background(), c.Duration("window"), c.Int("limit"))
			if err != nil {
				return fmt.Errorf("failed to query trending tokens: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(tokens)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TOKEN\tSEARCHES")
			for _, t := range tokens {
				fmt.Fprintf(w, "%s\t%d\n", t.TokenAddress, t.Searches)
			}
			w.Flush()
			return nil
		},
	}
}

func setLabelCommand() *cli.Command {
	return &cli.Command{
		Name:      "set-label",
		Usage:     "Attach a label to a wallet address",
		ArgsUsage: "<address> <type> <label>",
		Description: `Labels annotate known wallets in audit reports. Type CEX or LP also
excludes the wallet from tier analytics.

Example:
  strata db set-label 5Q544f... CEX "Binance Hot Wallet" --ttl 720h`,
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "Expire the label after this duration (0 = never)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 3 {
				return fmt.Errorf("requires three arguments: address, type, label")
			}
			address := c.Args().Get(0)
			labelType := c.Args().Get(1)
			label := c.Args().Get(2)

			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			var expiresAt *time.Time
			if ttl := c.Duration("ttl"); ttl > 0 {
				t := time.Now().UTC().Add(ttl)
				expiresAt = &t
			}

			if err := store.UpsertLabel(context.Background(), address, labelType, label, expiresAt); err != nil {
				return fmt.Errorf("failed to upsert label: %w", err)
			}
			fmt.Printf("labeled %s as %s (%s)\n", address, label, labelType)
			return nil
		},
	}
}
