package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iromo/iromo/internal/importer"
	"github.com/iromo/iromo/internal/topic"
)

var (
	importParent   string
	importMaxPages int
)

func init() {
	importCmd.Flags().StringVarP(&importParent, "parent", "p", "", "Parent topic ID (default: root level)")
	importCmd.Flags().IntVar(&importMaxPages, "max-pages", 0, "Read at most this many PDF pages (0 = all)")
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import text or PDF files as topics",
	Long: `Import each file as a new topic. PDF files are converted to plain text;
other files must be UTF-8 text.

Examples:
  iromo import notes.txt
  iromo import paper.pdf --max-pages 20 --parent 0190f3c2-...`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

// ImportResult describes one imported file.
type ImportResult struct {
	Path  string       `json:"path"`
	Kind  string       `json:"kind"`
	Topic *topic.Topic `json:"topic,omitempty"`
	Error string       `json:"error,omitempty"`
}

func runImport(cmd *cobra.Command, args []string) error {
	c := mustOpenCollection()
	defer c.Close()

	parentID := parseParent(importParent)
	results := make([]ImportResult, 0, len(args))
	failed := 0
	for _, path := range args {
		r := ImportResult{Path: path}
		src, err := importer.Load(path, importer.Options{MaxPages: importMaxPages})
		if err == nil {
			r.Kind = src.Kind
			r.Topic, err = createTopic(c, parentID, src.Title, src.Content)
		}
		if err != nil {
			logger.Warn("import failed", zap.String("path", path), zap.Error(err))
			r.Error = err.Error()
			failed++
		}
		results = append(results, r)
	}

	if humanOutput {
		for _, r := range results {
			if r.Error != "" {
				outputHuman("FAILED %s: %s\n", r.Path, r.Error)
				continue
			}
			outputHuman("Imported %s (%s) as %s\n  Title: %s\n", r.Path, r.Kind, r.Topic.ID,
				truncateString(r.Topic.Title, DetailTitleMaxLen))
		}
	} else {
		outputJSON(results)
	}

	if failed == len(args) {
		exitWithError(ExitError, "no files imported")
	}
	return nil
}
