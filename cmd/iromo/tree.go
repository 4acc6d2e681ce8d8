package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/iromo/iromo/internal/outline"
	"github.com/iromo/iromo/internal/topic"
)

var (
	treeShowIDs bool
	treeSince   string
)

func init() {
	treeCmd.Flags().BoolVar(&treeShowIDs, "ids", false, "Show topic IDs (human output)")
	treeCmd.Flags().StringVar(&treeSince, "since", "", "Mark topics created after this date (YYYY-MM-DD, RFC3339 or age like 7d)")
	rootCmd.AddCommand(treeCmd)
}

var treeCmd = &cobra.Command{
	Use:   "tree [topic-id]",
	Short: "Show the topic hierarchy",
	Long: `Show the topic hierarchy in sibling order, or only the subtree under
topic-id.

Examples:
  iromo tree --human
  iromo tree --human --ids --since 2026-01-01
  iromo tree 0190f3c2-...`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTree,
}

func runTree(cmd *cobra.Command, args []string) error {
	since, err := outline.ParseSince(treeSince)
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

	if humanOutput {
		if len(entries) == 0 {
			outputHuman("No topics\n")
			return nil
		}
		return outline.WriteText(os.Stdout, entries, outline.TextOptions{ShowIDs: treeShowIDs, Since: since})
	}
	if entries == nil {
		entries = []topic.Entry{}
	}
	return outputJSON(entries)
}
