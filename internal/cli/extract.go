package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/casewright/casewright/internal/ingest"
	"github.com/casewright/casewright/internal/model"
	"github.com/casewright/casewright/internal/pipeline"
)

var (
	extractSession  string
	extractContext  string
	extractDomain   string
	extractMax      int
	extractStrategy string
	extractTimeout  time.Duration
	extractJSON     string
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract use cases from a requirements document",
	Long: `Extract reads a requirements document (.txt, .md, or .html), runs the
extraction pipeline, and stores the resulting use cases under a session.

Example:
  casewright extract requirements.txt
  casewright extract requirements.md --session 4f2c... --max 10
  casewright extract spec.html --context "Food delivery app" --domain logistics`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVar(&extractSession, "session", "", "session id (new session when empty)")
	extractCmd.Flags().StringVar(&extractContext, "context", "", "project context for the session")
	extractCmd.Flags().StringVar(&extractDomain, "domain", "", "project domain for the session")
	extractCmd.Flags().IntVar(&extractMax, "max", 0, "maximum use cases to extract (0 = estimate from text)")
	extractCmd.Flags().StringVar(&extractStrategy, "strategy", "auto", "chunking strategy (auto, section, paragraph, sentence)")
	extractCmd.Flags().DurationVar(&extractTimeout, "timeout", 5*time.Minute, "overall extraction timeout")
	extractCmd.Flags().StringVar(&extractJSON, "json", "", "write the full extraction report to this path")
}

func runExtract(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), extractTimeout)
	defer cancel()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	text, err := ingest.ExtractText(filepath.Base(path), data)
	if err != nil {
		return err
	}

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

	if verbose {
		stats := ingest.Stats(text)
		fmt.Fprintf(os.Stderr, "Document: %s (%d chars, ~%d tokens, %s)\n",
			path, stats.Characters, stats.EstimatedTokens, stats.SizeCategory)
	}

	report, err := orch.Extract(ctx, pipeline.ExtractRequest{
		SessionID:      extractSession,
		Text:           text,
		ProjectContext: extractContext,
		Domain:         extractDomain,
		MaxUseCases:    extractMax,
		Strategy:       extractStrategy,
	})
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	printReport(report)

	if extractJSON != "" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		if err := os.WriteFile(extractJSON, data, 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Wrote report: %s\n", extractJSON)
	}
	return nil
}

// printReport renders an extraction report to stderr.
func printReport(report *model.ExtractionReport) {
	fmt.Fprintf(os.Stderr, "\nSession:    %s\n", report.SessionID)
	fmt.Fprintf(os.Stderr, "Method:     %s\n", report.Method)
	fmt.Fprintf(os.Stderr, "Chunks:     %d\n", report.ChunksProcessed)
	fmt.Fprintf(os.Stderr, "Extracted:  %d\n", report.ExtractedCount)
	fmt.Fprintf(os.Stderr, "Stored:     %d\n", report.StoredCount)
	fmt.Fprintf(os.Stderr, "Duplicates: %d\n", report.DuplicateCount)
	fmt.Fprintf(os.Stderr, "Elapsed:    %.2fs\n\n", report.ElapsedSeconds)

	for _, c := range report.Candidates {
		switch c.Status {
		case model.CandidateStored:
			fmt.Fprintf(os.Stderr, "  + %s (score %.0f, id %d)\n", c.Title, c.QualityScore, c.StoredID)
		case model.CandidateDuplicate:
			fmt.Fprintf(os.Stderr, "  = %s (similarity %.2f, skipped)\n", c.Title, c.Similarity)
		case model.CandidateRejected:
			fmt.Fprintf(os.Stderr, "  - %s (rejected)\n", c.Title)
		}
	}
	for _, w := range report.Warnings {
		fmt.Fprintf(os.Stderr, "  ! %s\n", w)
	}
}

// estimateCmd reports how many use cases a document plausibly contains.
var estimateCmd = &cobra.Command{
	Use:   "estimate <file>",
	Short: "Estimate how many use cases a document contains",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		text, err := ingest.ExtractText(filepath.Base(args[0]), data)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		orch, st, err := buildOrchestrator(cfg, newLogger())
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		result := orch.Estimate(text)
		stats := ingest.Stats(text)

		fmt.Printf("Size:      %d chars, ~%d tokens (%s)\n", stats.Characters, stats.EstimatedTokens, stats.SizeCategory)
		fmt.Printf("Estimate:  %d-%d use cases\n", result.MinEstimate, result.MaxEstimate)
		if stats.DirectlyProcessable() {
			fmt.Printf("Calls:     fits one generation call\n")
		} else {
			fmt.Printf("Calls:     will be chunked\n")
		}
		if verbose {
			fmt.Printf("Signals:   %d sentences, %d unique actions, %d actors, %d list items\n",
				result.Details.SentenceCount, result.Details.UniqueActions,
				result.Details.ActorCount, result.Details.ListItems)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(estimateCmd)
}
