package cli

import (
	"fmt"
	"os"

	"mysoft-chat/llm"
	"mysoft-chat/llm/agent"
	"mysoft-chat/llm/ingest"
	"mysoft-chat/llm/parser"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var (
	inspectRow    int
	inspectExport string
)

// NewInspectCmd creates the inspect command
func NewInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Preview how the source spreadsheet is extracted",
		Long: `Run extraction without embedding anything and print a quality report:
records read, rows skipped as too short, chunk counts and lengths per category.

Examples:
  mysoft-chat inspect
  mysoft-chat inspect --row 12
  mysoft-chat inspect --export data/chunks.json`,
		Args: cobra.NoArgs,
		RunE: runInspect,
	}

	cmd.Flags().IntVar(&inspectRow, "row", 0, "render one source row as markdown with its chunks")
	cmd.Flags().StringVar(&inspectExport, "export", "", "write the processed chunks to a JSON file")
	return cmd
}

func runInspect(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := current.cfg
	out := cmd.OutOrStdout()

	if err := validateNonNegative(inspectRow, "row"); err != nil {
		return err
	}

	extractor := agent.NewExtractor(cfg, current.logger)

	records, err := extractor.LoadRecords(ctx, cfg.Source.Path)
	if err != nil {
		return err
	}

	if inspectRow > 0 {
		return inspectSingleRow(cmd, extractor, records, inspectRow)
	}

	chunks, report := extractor.ExtractWithReport(records)
	fmt.Fprintf(out, "source: %s\n", cfg.Source.Path)
	fmt.Fprint(out, report.String())

	if inspectExport != "" {
		if err := exportChunks(inspectExport, chunks); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nexported %d chunks to %s\n", len(chunks), inspectExport)
	}
	return nil
}

func inspectSingleRow(cmd *cobra.Command, extractor *ingest.Extractor, records []llm.Record, row int) error {
	var rec *llm.Record
	for i := range records {
		if records[i].Row == row {
			rec = &records[i]
			break
		}
	}
	if rec == nil {
		return fmt.Errorf("row %d not found (source has %d rows)", row, len(records))
	}

	markdown, err := parser.NewMarkdownConverter().Convert(rec.Content)
	if err != nil {
		return err
	}

	chunks := extractor.Extract([]llm.Record{*rec})

	doc := fmt.Sprintf("# Row %d\n\n**url:** %s  \n**path:** %s  \n**category:** %s\n\n## Content\n\n%s\n\n## Chunks (%d)\n",
		row, rec.URL, rec.Path, ingest.CategoryFromPath(rec.Path), markdown, len(chunks))
	for _, c := range chunks {
		doc += fmt.Sprintf("\n%d. %s\n", c.ChunkIndex+1, c.Text)
	}
	if len(chunks) == 0 {
		doc += "\n_Row is shorter than the minimum content length and is skipped._\n"
	}

	rendered, err := glamour.Render(doc, "auto")
	if err != nil {
		rendered = doc
	}
	fmt.Fprint(cmd.OutOrStdout(), rendered)
	return nil
}

func exportChunks(path string, chunks []llm.Chunk) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := ingest.ExportJSON(f, chunks); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
