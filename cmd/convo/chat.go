package main

import (
	"os"

	"github.com/aretw0/convo"
	"github.com/aretw0/convo/internal/cli"
	"github.com/aretw0/convo/internal/presentation/tui"
	"github.com/aretw0/convo/pkg/ports"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with a conversation interactively",
	Long: `Starts a conversation against the runtime and reads replies from stdin.
Type the number of a suggested reply to send it, /restart to start over, or q to quit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, nil, "")
	},
}

// runChat runs the REPL over transport, or over the HTTP runtime when transport is nil.
// label names the conversation when no version is configured.
func runChat(cmd *cobra.Command, transport ports.Transport, label string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.VersionID == "" {
		cfg.VersionID = label
	}
	logger := cli.NewLogger(cfg.Debug)

	ctx := cli.NewSignalContext(cmd.Context())
	defer ctx.Cancel()

	hooks := setupHooks(ctx, cmd, cfg, logger)
	factory, err := cli.NewFactory(cfg, transport, logger, hooks...)
	if err != nil {
		return err
	}

	s, err := factory.FetchSession(ctx)
	if err != nil {
		return err
	}

	plain, _ := cmd.Flags().GetBool("plain")
	renderer := tui.NewRenderer()
	if plain {
		renderer = tui.PlainRenderer
	} else {
		tui.PrintBanner(os.Stdout, convo.Version)
	}

	showDebug, _ := cmd.Flags().GetBool("show-debug")
	err = cli.Chat(ctx, s, cli.ChatOptions{
		In:        os.Stdin,
		Out:       os.Stdout,
		Renderer:  renderer,
		ShowDebug: showDebug,
	})
	if sig := ctx.Signal(); sig != nil {
		logger.Info("Chat interrupted", "signal", sig)
	}
	return err
}

func addChatFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("plain", false, "Disable the banner and markdown rendering")
	cmd.Flags().Bool("show-debug", false, "Print debug traces")
}

func init() {
	rootCmd.AddCommand(chatCmd)
	addChatFlags(chatCmd)
}
