package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/casewright/casewright/internal/export"
)

var (
	exportFormat string
	exportOut    string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session's use cases",
	Long: `Export renders all use cases stored under a session as a Markdown
specification or a PlantUML use case diagram.

Example:
  casewright export 4f2c... --format markdown -o spec.md
  casewright export 4f2c... --format plantuml`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportFormat, "format", "markdown", "output format (markdown, plantuml)")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "write to file instead of stdout")
}

func runExport(cmd *cobra.Command, args []string) error {
	id := args[0]
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	_, st, err := buildOrchestrator(cfg, newLogger())
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	session, err := st.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("session %s not found", id)
	}
	useCases, err := st.ListSessionUseCases(ctx, id)
	if err != nil {
		return err
	}

	var doc string
	switch exportFormat {
	case "markdown", "md":
		doc = export.Markdown(useCases, session, time.Now().UTC())
	case "plantuml", "puml":
		doc = export.PlantUML(useCases)
	default:
		return fmt.Errorf("unknown format %q (expected markdown or plantuml)", exportFormat)
	}

	if exportOut == "" {
		fmt.Print(doc)
		return nil
	}
	if err := os.WriteFile(exportOut, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", exportOut, err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s\n", exportOut)
	return nil
}
