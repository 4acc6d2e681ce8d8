// Package main provides the iromo CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iromo/iromo/internal/collection"
	"github.com/iromo/iromo/internal/config"
	"github.com/iromo/iromo/internal/logging"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

// collectionFlag overrides collection discovery
var collectionFlag string

// logger is built once per process in the root pre-run hook.
var (
	logger   = zap.NewNop()
	closeLog = func() error { return nil }
)

func main() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	_ = closeLog()
	if err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "iromo",
	Short: "Incremental reading topic store",
	Long: `iromo keeps a tree of text topics. Selecting a span of a topic's text
extracts it into a child topic and records where it came from.

A collection is a directory holding manifest.json, an SQLite index and one
text file per topic. Every change can be undone inside 'iromo shell'.

All commands output JSON by default; pass --human for text.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVarP(&collectionFlag, "collection", "C", "", "Collection directory (default: discovered)")
	rootCmd.Version = Version
}

// setupLogging loads .env, then builds the process logger from the global
// config.
func setupLogging(cmd *cobra.Command, args []string) error {
	// Ignore error - .env file is optional
	_ = godotenv.Load()

	cfg, err := config.LoadGlobalConfig()
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	log, closeFn, err := logging.New(logging.Options{
		Level:   config.GetLogLevel(),
		File:    cfg.LogFile,
		Console: os.Stderr,
	})
	if err != nil {
		exitWithError(ExitConfigError, "setting up logging: %v", err)
	}
	logger, closeLog = log, closeFn
	logger.Debug("starting", zap.String("command", cmd.CommandPath()), zap.String("version", Version))
	return nil
}

// collectionOptions returns the options every command opens collections with.
func collectionOptions() collection.Options {
	return collection.Options{
		Logger:      logger,
		TitleLength: config.GetTitleLength(),
	}
}

// mustResolveCollection finds the collection root, exits on error.
func mustResolveCollection() string {
	cwd, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}

	root, err := config.ResolveCollection(collectionFlag, cwd)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return root
}

// mustOpenCollection resolves and opens the collection, exits on error.
// The caller is responsible for calling Close() on the returned collection.
func mustOpenCollection() *collection.Collection {
	root := mustResolveCollection()

	c, err := collection.Open(root, collectionOptions())
	if err != nil {
		exitWithErr(err, "opening collection %s", root)
	}

	if err := config.RememberCollection(root); err != nil {
		logger.Warn("remembering collection", zap.String("root", root), zap.Error(err))
	}
	return c
}
