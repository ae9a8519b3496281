package main

import (
	"fmt"
	"os"

	"github.com/aretw0/convo/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "convo",
	Short: "convo talks to a hosted conversational runtime from the terminal",
	Long: `convo is a client for a hosted conversational runtime.
It can chat interactively, replay recorded conversations offline and expose
conversations to AI agents over the Model Context Protocol.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	flags := rootCmd.PersistentFlags()
	flags.String("config", cli.DefaultConfigPath, "Path to the configuration file (YAML or JSON)")
	flags.String("version-id", "", "Version of the conversation to run (overrides "+cli.EnvVersionID+")")
	flags.String("api-key", "", "Runtime API key (overrides "+cli.EnvAPIKey+")")
	flags.String("endpoint", "", "Runtime base URL (overrides "+cli.EnvEndpoint+")")
	flags.Bool("debug", false, "Log turns and dispatches to stderr")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :2112)")
}

// loadConfig resolves the configuration: file, then environment, then flags.
func loadConfig(cmd *cobra.Command) (cli.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := cli.LoadConfig(path)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv()

	if v, _ := cmd.Flags().GetString("version-id"); v != "" {
		cfg.VersionID = v
	}
	if v, _ := cmd.Flags().GetString("api-key"); v != "" {
		cfg.APIKey = v
	}
	if v, _ := cmd.Flags().GetString("endpoint"); v != "" {
		cfg.Endpoint = v
	}
	if cmd.Flags().Changed("debug") {
		cfg.Debug, _ = cmd.Flags().GetBool("debug")
	}
	return cfg, nil
}
