package main

import (
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show <topic-id>",
	Short: "Show a topic's text and extractions",
	Long: `Show a topic's text and the extractions recorded against it.

Extractions whose span no longer fits the text (because the text was edited
afterwards) are reported as stale and listed separately.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	c := mustOpenCollection()
	defer c.Close()

	resp, err := showTopic(c, args[0])
	if err != nil {
		exitWithErr(err, "showing topic")
	}

	if humanOutput {
		printShowHuman(os.Stdout, resp)
		return nil
	}
	return outputJSON(resp)
}
