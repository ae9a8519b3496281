package main

import (
	"encoding/json"
	"os"

	"github.com/aretw0/convo/internal/cli"
	"github.com/aretw0/convo/pkg/persistence/middleware"
	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the initial state of a conversation as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := cli.NewLogger(cfg.Debug)

		factory, err := cli.NewFactory(cfg, nil, logger)
		if err != nil {
			return err
		}

		state, err := factory.InitialState(cmd.Context())
		if err != nil {
			return err
		}
		if len(cfg.MaskVariables) > 0 {
			if state.Variables, err = middleware.MaskVariables(state.Variables, cfg.MaskVariables); err != nil {
				return err
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	},
}

func init() {
	rootCmd.AddCommand(stateCmd)
}
