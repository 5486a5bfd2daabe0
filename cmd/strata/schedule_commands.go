package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/okdsgnr/Strata/service/temporal"
)

func createScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Create a recurring audit schedule for a token",
		ArgsUsage: "<mint>",
		Description: `Registers a Temporal schedule that runs a full audit workflow for the
token at a fixed interval. Daily intervals keep the consecutive-day whale
streak window satisfied.

Example:
  strata schedule create EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v`,
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Audit interval",
				Value:   temporal.DefaultAuditInterval,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: token mint")
			}
			mint := c.Args().Get(0)

			tc, err := getTemporalClient(c)
			if err != nil {
				return fmt.Errorf("failed to connect to temporal: %w", err)
			}
			defer tc.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := tc.CreateTokenSchedule(ctx, mint, c.Duration("interval")); err != nil {
				return fmt.Errorf("failed to create schedule: %w", err)
			}
			fmt.Printf("created audit schedule for %s (every %s)\n", mint, c.Duration("interval"))
			return nil
		},
	}
}

func upsertScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:      "upsert",
		Usage:     "Create or update a token's audit schedule",
		ArgsUsage: "<mint>",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Audit interval",
				Value:   temporal.DefaultAuditInterval,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: token mint")
			}
			mint := c.Args().Get(0)

			tc, err := getTemporalClient(c)
			if err != nil {
				return fmt.Errorf("failed to connect to temporal: %w", err)
			}
			defer tc.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := tc.UpsertTokenSchedule(ctx, mint, c.Duration("interval")); err != nil {
				return fmt.Errorf("failed to upsert schedule: %w", err)
			}
			fmt.Printf("schedule for %s set to every %s\n", mint, c.Duration("interval"))
			return nil
		},
	}
}

func deleteScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a token's audit schedule",
		ArgsUsage: "<mint>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: token mint")
			}
			mint := c.Args().Get(0)

			tc, err := getTemporalClient(c)
			if err != nil {
				return fmt.Errorf("failed to connect to temporal: %w", err)
			}
			defer tc.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := tc.DeleteTokenSchedule(ctx, mint); err != nil {
				return fmt.Errorf("failed to delete schedule: %w", err)
			}
			fmt.Printf("deleted audit schedule for %s\n", mint)
			return nil
		},
	}
}
