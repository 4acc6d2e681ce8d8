package main

import (
	"bytes"
	"path/filepath"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/iromo/iromo/internal/outline"
	"github.com/iromo/iromo/internal/topic"
)

var (
	exportOutput string
	exportSince  string
	exportTitle  string
)

func init() {
	exportHTMLCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
	exportHTMLCmd.Flags().StringVar(&exportSince, "since", "", "Highlight topics created after this date (YYYY-MM-DD or age like 7d)")
	exportHTMLCmd.Flags().StringVar(&exportTitle, "title", "", "Page title (default: collection directory name)")
	exportCmd.AddCommand(exportHTMLCmd)
	exportJSONLCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
	exportCmd.AddCommand(exportJSONLCmd)
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the collection",
}

var exportHTMLCmd = &cobra.Command{
	Use:   "html [topic-id]",
	Short: "Export topics as a standalone HTML page",
	Long: `Export the hierarchy (or one subtree) as a single HTML page with
collapsible topics and extracted spans highlighted. Stale extractions are
listed under their topic instead of highlighted.

Examples:
  iromo export html -o reading.html
  iromo export html 0190f3c2-... --since 2026-01-01 > chapter.html`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExportHTML,
}

func runExportHTML(cmd *cobra.Command, args []string) error {
	since, err := outline.ParseSince(exportSince)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	c := mustOpenCollection()
	defer c.Close()

	var entries []topic.Entry
	if len(args) == 1 {
		entries, err = c.Engine.Subtree(args[0])
	} else {
		entries, err = c.Engine.Hierarchy()
	}
	if err != nil {
		exitWithErr(err, "reading hierarchy")
	}

	title := exportTitle
	if title == "" {
		title = filepath.Base(c.Root)
	}

	var buf bytes.Buffer
	if err := outline.WriteHTML(&buf, entries, c.Engine, outline.HTMLOptions{Title: title, Since: since}); err != nil {
		exitWithErr(err, "rendering HTML")
	}

	if exportOutput == "" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if err := atomic.WriteFile(exportOutput, &buf); err != nil {
		exitWithError(ExitIOError, "writing %s: %v", exportOutput, err)
	}

	if humanOutput {
		outputHuman("Exported %s to %s\n", pluralize(len(entries), "topic"), exportOutput)
	} else {
		outputJSON(StatusResponse{Status: "exported", Path: exportOutput})
	}
	return nil
}

var exportJSONLCmd = &cobra.Command{
	Use:   "jsonl",
	Short: "Export every topic, its text and extractions as JSONL",
	Long: `Export the whole collection as JSON lines: one record per topic (with its
text) in hierarchy order, then one per extraction. 'iromo restore' reads the
file back into a collection.

Examples:
  iromo export jsonl -o backup.jsonl`,
	Args: cobra.NoArgs,
	RunE: runExportJSONL,
}

func runExportJSONL(cmd *cobra.Command, args []string) error {
	c := mustOpenCollection()
	defer c.Close()

	var buf bytes.Buffer
	if err := c.Engine.Export(&buf); err != nil {
		exitWithErr(err, "exporting collection")
	}

	if exportOutput == "" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if err := atomic.WriteFile(exportOutput, &buf); err != nil {
		exitWithError(ExitIOError, "writing %s: %v", exportOutput, err)
	}

	if humanOutput {
		outputHuman("Exported collection to %s\n", exportOutput)
	} else {
		outputJSON(StatusResponse{Status: "exported", Path: exportOutput})
	}
	return nil
}
