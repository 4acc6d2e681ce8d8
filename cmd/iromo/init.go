package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iromo/iromo/internal/collection"
	"github.com/iromo/iromo/internal/config"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a new collection",
	Long: `Create a new collection in dir (default: current directory).

Writes manifest.json, creates the index database and the blobs directory,
then remembers the collection as last_collection.

Examples:
  iromo init
  iromo init ~/reading`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = config.ExpandPath(args[0])
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		exitWithError(ExitError, "resolving %s: %v", dir, err)
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		exitWithError(ExitIOError, "creating %s: %v", root, err)
	}

	c, err := collection.Create(root, collectionOptions())
	if err != nil {
		exitWithErr(err, "creating collection")
	}
	defer c.Close()

	if err := config.RememberCollection(root); err != nil {
		logger.Warn("remembering collection", zap.String("root", root), zap.Error(err))
	}

	if humanOutput {
		outputHuman("Created collection at %s\n", root)
	} else {
		outputJSON(StatusResponse{Status: "created", Path: root})
	}
	return nil
}
