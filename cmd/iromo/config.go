package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iromo/iromo/internal/config"
)

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Get or set global configuration values",
	Long: fmt.Sprintf(`Get or set values in the global config file
($XDG_CONFIG_HOME/iromo/config.yml).

Usage:
  iromo config get                     # Show all config
  iromo config get title_length        # Get specific value
  iromo config set title_length 50     # Set value
  iromo config set log_level ""        # Reset to default

Keys:
  last_collection  Collection opened when none is found from the current directory
  title_length     Maximum characters in derived titles (default: 70)
  log_level        One of %v (default: info)
  log_file         JSON log file, "-" to disable`, config.ValidLogLevels),
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Show configuration values",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigGet,
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadGlobalConfig()
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	keys := config.Keys()
	if len(args) == 1 {
		keys = []string{args[0]}
	}

	values := make(map[string]string, len(keys))
	for _, key := range keys {
		v, err := cfg.Get(key)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		values[key] = v
	}

	if !humanOutput {
		return outputJSON(values)
	}
	if len(args) == 1 {
		outputHuman("%s\n", values[args[0]])
		return nil
	}
	for _, key := range keys {
		outputHuman("%-16s %s\n", key+":", values[key])
	}
	return nil
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadGlobalConfig()
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	key, value := args[0], args[1]
	updated := *cfg
	if err := updated.Set(key, value); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if err := config.SaveGlobalConfig(&updated); err != nil {
		exitWithError(ExitError, "saving config: %v", err)
	}

	stored, _ := updated.Get(key)
	if humanOutput {
		outputHuman("Set %s = %s\n", key, stored)
	} else {
		outputJSON(UpdateResponse{Status: "updated", Key: key, Value: stored})
	}
	return nil
}
