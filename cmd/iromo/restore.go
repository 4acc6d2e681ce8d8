package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/iromo/iromo/internal/command"
	"github.com/iromo/iromo/internal/storage"
)

func init() {
	rootCmd.AddCommand(restoreCmd)
}

var restoreCmd = &cobra.Command{
	Use:   "restore <archive.jsonl>",
	Short: "Restore topics from a JSONL export",
	Long: `Recreate the topics, texts and extractions of a file written by
'iromo export jsonl', keeping their ids. Fails without changes if any of the
topics already exist in the collection.

Examples:
  iromo init ~/reading-copy
  iromo -C ~/reading-copy restore backup.jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

// RestoreResponse is the response for restore.
type RestoreResponse struct {
	Roots  int `json:"roots"`
	Topics int `json:"topics"`
}

func runRestore(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		exitWithError(ExitError, "opening archive: %v", err)
	}
	subtrees, err := storage.ReadArchive(f)
	f.Close()
	if err != nil {
		exitWithError(ExitDataError, "%s: %v", args[0], err)
	}

	c := mustOpenCollection()
	defer c.Close()

	restore := command.NewRestoreTopics(c.Engine, subtrees)
	if err := c.Run(restore); err != nil {
		exitWithErr(err, "restoring archive")
	}

	resp := RestoreResponse{Roots: len(subtrees)}
	for _, s := range subtrees {
		resp.Topics += len(s.Topics)
	}
	if humanOutput {
		outputHuman("%s under %s\n", restore.Description(), pluralize(resp.Roots, "root"))
	} else {
		outputJSON(resp)
	}
	return nil
}
