package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(extractionsCmd)
	rootCmd.AddCommand(unlinkCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract <topic-id> <start> <end>",
	Short: "Extract a span of a topic into a child topic",
	Long: `Extract characters [start, end) of a topic's text into a new child topic.

Offsets count characters (not bytes) from 0; end is exclusive.

Examples:
  iromo extract 0190f3c2-... 6 11`,
	Args: cobra.ExactArgs(3),
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	start, err := parseOffset("start", args[1])
	if err != nil {
		exitWithErr(err, "parsing offsets")
	}
	end, err := parseOffset("end", args[2])
	if err != nil {
		exitWithErr(err, "parsing offsets")
	}

	c := mustOpenCollection()
	defer c.Close()

	ext, child, err := extractSpan(c, args[0], start, end)
	if err != nil {
		exitWithErr(err, "extracting text")
	}

	if humanOutput {
		outputHuman("Extracted [%d:%d] into %s\n  Title: %s\n", ext.StartChar, ext.EndChar, child.ID, child.Title)
	} else {
		outputJSON(ExtractResponse{Extraction: *ext, Child: *child})
	}
	return nil
}

var extractionsCmd = &cobra.Command{
	Use:   "extractions <topic-id>",
	Short: "List extractions recorded against a topic",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtractions,
}

func runExtractions(cmd *cobra.Command, args []string) error {
	c := mustOpenCollection()
	defer c.Close()

	resp, err := showTopic(c, args[0])
	if err != nil {
		exitWithErr(err, "listing extractions")
	}

	if !humanOutput {
		return outputJSON(resp.Highlights)
	}
	if len(resp.Highlights) == 0 {
		outputHuman("No extractions\n")
		return nil
	}
	for _, h := range resp.Highlights {
		state := ""
		if h.Stale {
			state = " (stale)"
		}
		outputHuman("%s [%d:%d]%s -> %s\n", h.ID, h.StartChar, h.EndChar, state, h.ChildTopicID)
		if h.Text != "" {
			outputHuman("  %s\n", truncateString(strings.ReplaceAll(h.Text, "\n", " "), ListTitleMaxLen))
		}
	}
	return nil
}

var unlinkCmd = &cobra.Command{
	Use:   "unlink <extraction-id>",
	Short: "Remove an extraction record, keeping the child topic",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnlink,
}

func runUnlink(cmd *cobra.Command, args []string) error {
	c := mustOpenCollection()
	defer c.Close()

	if err := unlinkExtraction(c, args[0]); err != nil {
		exitWithErr(err, "unlinking extraction")
	}

	if humanOutput {
		outputHuman("Unlinked extraction %s\n", args[0])
	} else {
		outputJSON(StatusResponse{Status: "unlinked"})
	}
	return nil
}
