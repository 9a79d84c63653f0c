// File path: cmd/lakectl/main.go
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/contentlake/contentlake/internal/common"
	"github.com/contentlake/contentlake/internal/data/orchestrator"
	"github.com/contentlake/contentlake/internal/lake"
)

var repoFlag string

func main() {
	logger := common.Logger()
	if err := godotenv.Load(); err == nil {
		logger.Debug("lakectl: environment loaded from .env")
	}

	rootCmd := &cobra.Command{
		Use:           "lakectl",
		Short:         "Manage a personal content data lake",
		Long:          "lakectl maintains append-only activity logs, the derived manifest and indexes, and versioned enhancement tables for a content data lake repository.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&repoFlag, "repo", "", "repository root (defaults to $CONTENTLAKE_ROOT or the current directory)")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(buildCmd())
	rootCmd.AddCommand(indexesCmd())
	rootCmd.AddCommand(enhanceCmd())
	rootCmd.AddCommand(clearCmd())
	rootCmd.AddCommand(queryCmd())
	rootCmd.AddCommand(timelineCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(auditCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(watchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func repoRoot() string {
	if repoFlag != "" {
		return repoFlag
	}
	if env := strings.TrimSpace(os.Getenv("CONTENTLAKE_ROOT")); env != "" {
		return env
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// newOrchestrator builds the shared component graph from the environment,
// letting --repo override the configured root.
func newOrchestrator(ctx context.Context) (*orchestrator.Orchestrator, error) {
	cfg, err := orchestrator.LoadConfig()
	if err != nil {
		return nil, err
	}
	if repoFlag != "" {
		cfg.RepoPath = repoFlag
		cfg.CatalogPath = ""
	}
	if cfg.RepoPath == "" {
		cfg.RepoPath = repoRoot()
	}
	return orchestrator.New(ctx, cfg)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func initCmd() *cobra.Command {
	var userID, name, handle string
	var platforms []string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new content data lake repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := lake.Init(repoRoot(), lake.Config{
				UserID:    userID,
				Name:      name,
				Handle:    handle,
				Platforms: platforms,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "initialized repository at %s\n", layout.Root())
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "owner user id (required)")
	cmd.Flags().StringVar(&name, "name", "", "owner display name (required)")
	cmd.Flags().StringVar(&handle, "handle", "", "owner handle (defaults to @user)")
	cmd.Flags().StringSliceVar(&platforms, "platforms", nil, "platform allow-list (defaults to the built-in set)")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("name")
	return cmd
}

func addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [file]",
		Short: "Append JSONL activities from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			orch, err := newOrchestrator(ctx)
			if err != nil {
				return err
			}
			defer orch.Close()

			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open input: %w", err)
				}
				defer f.Close()
				in = f
			}

			activities, err := readActivities(in)
			if err != nil {
				return err
			}
			n, err := orch.Activities().Append(ctx, activities...)
			orch.RecordRun(ctx, "append", map[string]int{"count": n}, err)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "appended %d activities\n", n)
			return nil
		},
	}
	return cmd
}

func readActivities(in io.Reader) ([]lake.Activity, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 8<<20)
	var activities []lake.Activity
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		activity, err := lake.ParseLine([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("input line %d: %w", line, err)
		}
		activities = append(activities, activity)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return activities, nil
}
