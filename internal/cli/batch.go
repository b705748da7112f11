package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/casewright/casewright/internal/worker"
)

var (
	batchConcurrency int
	batchSession     string
	batchTimeout     time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <manifest>",
	Short: "Extract use cases from multiple documents in parallel",
	Long: `Batch processes multiple requirements documents concurrently:
- Read document paths from a manifest file (one per line, # for comments)
- Extract documents in parallel with a configurable worker count
- Store all extracted use cases under a single session

Example:
  casewright batch docs.txt
  casewright batch docs.txt --concurrency 4 --session 4f2c...
  casewright batch docs.txt --timeout 20m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "number of concurrent workers (0 = batch_workers from config)")
	batchCmd.Flags().StringVar(&batchSession, "session", "", "session id (new session when empty)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
}

func runBatch(cmd *cobra.Command, args []string) error {
	manifest := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger()

	orch, st, err := buildOrchestrator(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	// All documents land in one session, so mint the id before the
	// workers start instead of letting each extraction create its own.
	if batchSession == "" {
		batchSession = uuid.NewString()
	}

	workers := resolveWorkers(batchConcurrency, cfg.Concurrency.BatchWorkers)

	fmt.Fprintf(os.Stderr, "Manifest:  %s\n", manifest)
	fmt.Fprintf(os.Stderr, "Session:   %s\n", batchSession)
	fmt.Fprintf(os.Stderr, "Workers:   %d\n\n", workers)

	processor := worker.NewBatchProcessor(orch, workers)
	results, err := processor.ProcessManifest(ctx, batchSession, manifest)
	if err != nil {
		return fmt.Errorf("process manifest: %w", err)
	}

	stored := 0
	failures := 0
	for _, result := range results {
		if result.Error != nil {
			failures++
			fmt.Fprintf(os.Stderr, "  ! %s: %v\n", result.Path, result.Error)
			continue
		}
		stored += result.Report.StoredCount
		fmt.Fprintf(os.Stderr, "  + %s: %d stored, %d duplicates (%s)\n",
			result.Path, result.Report.StoredCount, result.Report.DuplicateCount, result.Report.Method)
	}

	fmt.Fprintf(os.Stderr, "\nDocuments: %d\n", len(results))
	fmt.Fprintf(os.Stderr, "Stored:    %d\n", stored)
	fmt.Fprintf(os.Stderr, "Failures:  %d\n", failures)

	if failures > 0 {
		return fmt.Errorf("%d of %d documents failed", failures, len(results))
	}
	return nil
}

// resolveWorkers picks the batch worker count. An explicit --concurrency wins;
// otherwise the configured batch_workers applies, floored at one.
func resolveWorkers(flagValue, configured int) int {
	if flagValue > 0 {
		return flagValue
	}
	if configured > 0 {
		return configured
	}
	return 1
}
