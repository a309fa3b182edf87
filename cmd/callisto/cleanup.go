package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupFlags struct {
	policyID string
	verify   bool
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Run a one-shot cleanup pass",
	Long: `Run a single cleanup pass against the configured storage backend and exit.

Expired sessions are swept first, then expired retention records are purged
according to their policies.

Examples:
  # Clean all auto-cleanup policies
  callisto cleanup

  # Clean a single policy
  callisto cleanup --policy analysis-results

  # Verify completeness after the run
  callisto cleanup --verify`,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)

	cleanupCmd.Flags().StringVar(&cleanupFlags.policyID, "policy", "", "restrict the run to a single policy")
	cleanupCmd.Flags().BoolVar(&cleanupFlags.verify, "verify", false, "verify completeness after the run")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := loadRuntimeConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	eng, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer eng.backend.Close()

	removed, err := eng.sessions.CleanupExpired(ctx)
	if err != nil {
		return fmt.Errorf("sweeping expired sessions: %w", err)
	}
	fmt.Printf("Expired sessions removed: %d\n", removed)

	task, err := eng.runner.Run(ctx, cleanupFlags.policyID)
	if err != nil {
		return fmt.Errorf("cleanup run failed: %w", err)
	}

	fmt.Printf("Task:             %s\n", task.TaskID)
	fmt.Printf("Status:           %s\n", task.Status)
	fmt.Printf("Records deleted:  %d\n", task.RecordsDeleted)
	fmt.Printf("Records archived: %d\n", task.RecordsArchived)
	fmt.Printf("Reclaimed bytes:  %d\n", task.ReclaimedBytes)
	fmt.Printf("Duration:         %dms\n", task.DurationMs)
	for _, e := range task.Errors {
		fmt.Printf("Error: %s\n", e)
	}
	for _, w := range task.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}

	if cleanupFlags.verify {
		report, err := eng.runner.Verify(ctx, task.TaskID)
		if err != nil {
			return fmt.Errorf("verifying cleanup: %w", err)
		}
		fmt.Printf("Complete:         %v\n", report.IsComplete)
		fmt.Printf("Remaining:        %d\n", report.RemainingCount)
	}

	if len(task.Errors) > 0 {
		return fmt.Errorf("cleanup finished with %d errors", len(task.Errors))
	}
	return nil
}
