package main

import (
	"github.com/spf13/cobra"

	"github.com/iromo/iromo/internal/clipboard"
)

var copyExtraction bool

func init() {
	copyCmd.Flags().BoolVarP(&copyExtraction, "extraction", "x", false, "Copy the text an extraction covers instead of a topic")
	rootCmd.AddCommand(copyCmd)
}

var copyCmd = &cobra.Command{
	Use:   "copy <topic-id>",
	Short: "Copy a topic's text to the clipboard",
	Long: `Copy a topic's text to the system clipboard. With --extraction, the
argument is an extraction ID and the span it covers in its parent is copied.

Requires pbcopy (macOS), wl-copy (Wayland), xclip or xsel.`,
	Args: cobra.ExactArgs(1),
	RunE: runCopy,
}

func runCopy(cmd *cobra.Command, args []string) error {
	c := mustOpenCollection()
	defer c.Close()

	var text string
	if copyExtraction {
		ext, err := c.Engine.GetExtraction(args[0])
		if err != nil {
			exitWithErr(err, "reading extraction")
		}
		parent, err := c.Engine.GetContent(ext.ParentTopicID)
		if err != nil {
			exitWithErr(err, "reading parent text")
		}
		span, ok := ext.Span(parent)
		if !ok {
			exitWithError(ExitDataError, "extraction %s is stale: its span no longer fits the parent text", ext.ID)
		}
		text = span
	} else {
		var err error
		text, err = c.Engine.GetContent(args[0])
		if err != nil {
			exitWithErr(err, "reading topic text")
		}
	}

	if err := clipboard.Copy(text); err != nil {
		exitWithErr(err, "copying to clipboard")
	}

	if humanOutput {
		outputHuman("Copied %s\n", pluralize(len([]rune(text)), "character"))
	} else {
		outputJSON(StatusResponse{Status: "copied"})
	}
	return nil
}
