// File path: cmd/lakectl/query.go
package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/contentlake/contentlake/internal/enhance"
	"github.com/contentlake/contentlake/internal/lake"
	"github.com/contentlake/contentlake/internal/loader"
)

func queryCmd() *cobra.Command {
	var platform, activityType, since, until string
	var limit int
	var enhanced bool

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Select activities, optionally joined with their enhancements",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			orch, err := newOrchestrator(ctx)
			if err != nil {
				return err
			}
			defer orch.Close()

			q := loader.Query{Platform: platform, Limit: limit}
			if activityType != "" {
				switch lake.ActivityType(activityType) {
				case lake.ActivityCreate, lake.ActivityConsume:
					q.ActivityType = lake.ActivityType(activityType)
				default:
					return fmt.Errorf("type must be %q or %q", lake.ActivityCreate, lake.ActivityConsume)
				}
			}
			if q.Since, err = parseDate(since); err != nil {
				return err
			}
			if q.Until, err = parseDate(until); err != nil {
				return err
			}

			activities, err := orch.Loader().Select(ctx, q)
			if err != nil {
				return err
			}
			if enhanced {
				joined, err := orch.Enhancements().EnhanceAll(activities, enhance.AllLayers())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), joined)
			}
			return printJSON(cmd.OutOrStdout(), activities)
		},
	}
	cmd.Flags().StringVar(&platform, "platform", "", "filter by platform")
	cmd.Flags().StringVar(&activityType, "type", "", "filter by activity type (create or consume)")
	cmd.Flags().StringVar(&since, "since", "", "earliest date, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringVar(&until, "until", "", "latest date, inclusive (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum activities to return (0 for all)")
	cmd.Flags().BoolVar(&enhanced, "enhanced", false, "join quality, game, and embedding tables")
	return cmd
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("dates must be YYYY-MM-DD: %w", err)
	}
	return parsed, nil
}

func timelineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timeline <type> <activity-id>",
		Short: "Show how an activity's enhancement evolved across versions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := newOrchestrator(cmd.Context())
			if err != nil {
				return err
			}
			defer orch.Close()

			entries, err := orch.Enhancements().Timeline(args[1], args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), entries)
		},
	}
	return cmd
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <type>",
		Short: "List archived snapshots for an enhancement type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := newOrchestrator(cmd.Context())
			if err != nil {
				return err
			}
			defer orch.Close()

			snapshots, err := orch.Enhancements().ListHistory(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(snapshots) == 0 {
				fmt.Fprintln(out, "no snapshots")
				return nil
			}
			for _, snapshot := range snapshots {
				fmt.Fprintln(out, snapshot)
			}
			return nil
		},
	}
	return cmd
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the repository by platform, year, and type",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			orch, err := newOrchestrator(ctx)
			if err != nil {
				return err
			}
			defer orch.Close()

			stats, err := orch.Loader().Stats(ctx)
			if err != nil {
				return err
			}
			earliest, latest, err := orch.Loader().DateRange(ctx)
			if err != nil {
				return err
			}
			payload := struct {
				loader.Stats
				Earliest string `json:"earliest,omitempty"`
				Latest   string `json:"latest,omitempty"`
			}{Stats: stats}
			if !earliest.IsZero() {
				payload.Earliest = earliest.UTC().Format("2006-01-02")
				payload.Latest = latest.UTC().Format("2006-01-02")
			}
			return printJSON(cmd.OutOrStdout(), payload)
		},
	}
	return cmd
}
