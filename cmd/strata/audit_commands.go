package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/okdsgnr/Strata/service/audit"
)

func auditCommand() *cli.Command {
	return &cli.Command{
		Name:      "audit",
		Usage:     "Run a full holder audit for one token",
		ArgsUsage: "<mint>",
		Description: `Fetch all holders of a token, classify them into USD tiers, and persist
a snapshot with aggregates, deltas against the previous snapshot, and whale
duration stats.

Re-running within the same 10-minute bucket returns the existing snapshot
instead of re-auditing.

Example:
  strata audit EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v --jq '.tier_counts'`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "jq",
				Usage: "jq expression applied to the JSON report",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: token mint")
			}
			mint := c.Args().Get(0)

			svc, closer, err := buildAuditService(c)
			if err != nil {
				return err
			}
			defer closer()

			report, err := svc.Audit(context.Background(), mint)
			if err != nil {
				return fmt.Errorf("audit failed: %w", err)
			}

			if c.Bool("json") || c.String("jq") != "" {
				return outputFiltered(report, c.String("jq"))
			}
			printAuditReport(report)
			return nil
		},
	}
}

func compareCommand() *cli.Command {
	return &cli.Command{
		Name:      "compare",
		Usage:     "Analyze holder overlap across 2-3 tokens",
		ArgsUsage: "<mint> <mint> [mint]",
		Description: `Fetch holders for each token in parallel and report the wallets holding
meaningful positions in every pairwise (and triple) combination, with
combined-value tiers and concentration signals.

Example:
  strata compare <mintA> <mintB> --jq '.overlaps.ab.wallet_count'`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "jq",
				Usage: "jq expression applied to the JSON report",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 || c.NArg() > 3 {
				return fmt.Errorf("requires two or three token mints, got %d", c.NArg())
			}
			mints := make([]string, c.NArg())
			for i := range mints {
				mints[i] = c.Args().Get(i)
			}

			svc, closer, err := buildAuditService(c)
			if err != nil {
				return err
			}
			defer closer()

			report, err := svc.Compare(context.Background(), mints)
			if err != nil {
				return fmt.Errorf("comparison failed: %w", err)
			}

			if c.Bool("json") || c.String("jq") != "" {
				return outputFiltered(report, c.String("jq"))
			}
			printCompareReport(report)
			return nil
		},
	}
}

func printAuditReport(r *audit.AuditReport) {
	name := "(unknown)"
	if r.Token.Name != nil {
		name = *r.Token.Name
	}
	if r.Deduped {
		fmt.Printf("Snapshot #%d (deduped, captured %s)\n", r.SnapshotID, r.CapturedAt.Format(time.RFC3339))
		fmt.Printf("Token: %s %s\n", r.Token.Mint, name)
		if r.PriceUsd != nil {
			fmt.Printf("Price: $%s\n", r.PriceUsd.String())
		}
		return
	}

	fmt.Printf("Snapshot #%d (captured %s)\n", r.SnapshotID, r.CapturedAt.Format(time.RFC3339))
	fmt.Printf("Token: %s %s\n", r.Token.Mint, name)
	if r.PriceUsd == nil {
		fmt.Println("Price: unknown (no tier analytics)")
	} else {
		fmt.Printf("Price: $%s", r.PriceUsd.String())
		if r.MarketCapUsd != nil {
			fmt.Printf("  Market cap: $%s", r.MarketCapUsd.StringFixed(0))
		}
		if r.LiquidityUsd != nil {
			fmt.Printf("  Liquidity: $%s", r.LiquidityUsd.StringFixed(0))
		}
		fmt.Println()
	}
	fmt.Printf("Holders: %d total, %d eligible\n\n", r.TotalHolders, r.EligibleHolders)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIER\tHOLDERS\tSUPPLY SHARE")
	fmt.Fprintf(w, "Whale\t%d\t%s\n", r.TierCounts.Whale, pct(r.PercentSupplyByTier.Whale))
	fmt.Fprintf(w, "Shark\t%d\t%s\n", r.TierCounts.Shark, pct(r.PercentSupplyByTier.Shark))
	fmt.Fprintf(w, "Dolphin\t%d\t%s\n", r.TierCounts.Dolphin, pct(r.PercentSupplyByTier.Dolphin))
	fmt.Fprintf(w, "Fish\t%d\t%s\n", r.TierCounts.Fish, pct(r.PercentSupplyByTier.Fish))
	fmt.Fprintf(w, "Shrimp\t%d\t%s\n", r.TierCounts.Shrimp, pct(r.PercentSupplyByTier.Shrimp))
	w.Flush()

	fmt.Printf("\nConcentration: top1 %s  top10 %s  top50 %s  top100 %s\n",
		pct(r.SupplyConcentration.Top1),
		pct(r.SupplyConcentration.Top10),
		pct(r.SupplyConcentration.Top50),
		pct(r.SupplyConcentration.Top100),
	)

	if r.Deltas != nil {
		fmt.Printf("Since last snapshot: holders %+d, whales %+d, top10 drift %s\n",
			r.Deltas.Holders,
			r.Deltas.Whale,
			pct(r.Deltas.Top10Percent),
		)
	}
	if r.Whales != nil {
		fmt.Printf("Whale retention: 7d %d%%  30d %d%%  90d %d%%\n",
			r.Whales.Retention.Days7,
			r.Whales.Retention.Days30,
			r.Whales.Retention.Days90,
		)
	}
}

// pct renders a supply fraction as a percentage string.
func pct(fraction decimal.Decimal) string {
	return fraction.Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
}

func printCompareReport(r *audit.CompareReport) {
	fmt.Printf("Comparison: %v\n\n", r.Tokens)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GROUP\tWALLETS\tWHALES\tNOTABLE")
	for _, key := range []string{"ab", "ac", "bc", "abc"} {
		g, ok := r.Overlaps[key]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", key, g.WalletCount, g.TierCounts.Whale, len(g.NotableWallets))
	}
	w.Flush()
}
