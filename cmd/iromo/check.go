package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/iromo/iromo/internal/index"
	"github.com/iromo/iromo/internal/storage"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the index and the text files agree",
	Long: `Compare the index with the content blobs and report:
  - topics whose text file is missing
  - text files no topic refers to
  - extractions whose child no longer sits under their parent
  - stale extractions (informational)

Exits with code 3 when an inconsistency is found. Nothing is modified.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

// CheckResponse is the response for check.
type CheckResponse struct {
	Stats  *index.Stats    `json:"stats"`
	Report *storage.Report `json:"report"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	c := mustOpenCollection()
	defer c.Close()

	report, err := c.Engine.Check()
	if err != nil {
		exitWithErr(err, "checking collection")
	}
	stats, err := c.Engine.Index().Stats()
	if err != nil {
		exitWithErr(err, "counting topics")
	}

	if humanOutput {
		outputHuman("Checked %s (%s) and %s\n", pluralize(stats.Topics, "topic"),
			pluralize(stats.Roots, "root"), pluralize(stats.Extractions, "extraction"))
		printIDs("Missing text files", report.MissingBlobs)
		printIDs("Orphan text files", report.OrphanBlobs)
		printIDs("Misplaced extractions", report.MisplacedExtractions)
		printIDs("Stale extractions", report.StaleExtractions)
		if report.OK() {
			outputHuman("OK\n")
		}
	} else {
		outputJSON(CheckResponse{Stats: stats, Report: report})
	}

	if !report.OK() {
		c.Close()
		os.Exit(ExitDataError)
	}
	return nil
}

func printIDs(label string, ids []string) {
	if len(ids) == 0 {
		return
	}
	outputHuman("%s:\n", label)
	for _, id := range ids {
		outputHuman("  %s\n", id)
	}
}
