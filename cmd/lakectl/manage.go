// File path: cmd/lakectl/manage.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/contentlake/contentlake/internal/manifest"
)

func buildCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Rebuild the manifest index from the activity logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			orch, err := newOrchestrator(ctx)
			if err != nil {
				return err
			}
			defer orch.Close()

			result, err := orch.Manifest().Build(ctx, force)
			orch.RecordRun(ctx, "manifest_build", map[string]bool{"force": force}, err)
			if err != nil {
				return err
			}
			mode := "incremental"
			if result.Full {
				mode = "full"
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s build: %d added, %d total (%d files, %d lines read)\n",
				mode, result.Added, result.Manifest.TotalActivities, result.FilesScanned, result.LinesRead)
			for _, warning := range result.Warnings {
				fmt.Fprintln(out, "warning:", warning)
			}
			for _, conflict := range result.Conflicts {
				fmt.Fprintln(out, "conflict:", conflict)
			}
			for _, skipped := range result.Skipped {
				fmt.Fprintf(out, "skipped %s:%d: %s\n", skipped.File, skipped.Line, skipped.Reason)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "rescan every log file instead of resuming from the last build")
	return cmd
}

func indexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Regenerate the by-date and by-platform index files",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			orch, err := newOrchestrator(ctx)
			if err != nil {
				return err
			}
			defer orch.Close()

			months, platforms, err := manifest.RefreshIndexes(orch.Layout())
			orch.RecordRun(ctx, "indexes_refresh", nil, err)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d month indexes and %d platform indexes\n", months, platforms)
			return nil
		},
	}
}

func enhanceCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "enhance [type]",
		Short: "Compute enhancement tables (all registered types when none is named)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			orch, err := newOrchestrator(ctx)
			if err != nil {
				return err
			}
			defer orch.Close()

			types := orch.Registry().Types()
			if len(args) == 1 {
				types = args[:1]
			}
			out := cmd.OutOrStdout()
			for _, enhancementType := range types {
				report, err := orch.Runner().Run(ctx, enhancementType, force)
				orch.RecordRun(ctx, "enhance_compute",
					map[string]any{"type": enhancementType, "force": force}, err)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s v%s: computed %d of %d", report.Type, report.Version, report.Computed, report.Total)
				if report.Recompute {
					fmt.Fprint(out, " (full recompute)")
				}
				if report.Snapshot != "" {
					fmt.Fprintf(out, ", archived %s", report.Snapshot)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "recompute every activity and archive the current table")
	return cmd
}

func clearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear [type]",
		Short: "Remove latest enhancement tables (history snapshots are kept)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			orch, err := newOrchestrator(ctx)
			if err != nil {
				return err
			}
			defer orch.Close()

			enhancementType := ""
			if len(args) == 1 {
				enhancementType = args[0]
			}
			err = orch.Enhancements().Clear(enhancementType)
			orch.RecordRun(ctx, "enhance_clear", map[string]string{"type": enhancementType}, err)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cleared")
			return nil
		},
	}
	return cmd
}

func auditCmd() *cobra.Command {
	var operation string
	var limit int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent operations from the run catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			orch, err := newOrchestrator(ctx)
			if err != nil {
				return err
			}
			defer orch.Close()

			cat := orch.Catalog()
			if cat == nil {
				return fmt.Errorf("run catalog is disabled")
			}
			runs, err := cat.Recent(ctx, operation, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), runs)
		},
	}
	cmd.Flags().StringVar(&operation, "operation", "", "filter by operation name")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum runs to show (0 uses the default)")
	return cmd
}
