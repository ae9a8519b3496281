package main

import (
	"fmt"

	"github.com/aretw0/convo/internal/cli"
	"github.com/aretw0/convo/pkg/adapters/loam"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay [dir]",
	Short: "Replay a recorded conversation offline",
	Long: `Runs the chat loop over a directory of turn documents instead of the runtime.
Each document holds one turn: front matter with "turn", optional "trace",
"variables" and "end"; the body is spoken as the first trace of the turn.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		transport, err := loam.Open(dir, loam.WithLogger(cli.NewLogger(cfg.Debug)))
		if err != nil {
			return fmt.Errorf("failed to open replay: %w", err)
		}

		return runChat(cmd, transport, "replay:"+dir)
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
	addChatFlags(replayCmd)
}
