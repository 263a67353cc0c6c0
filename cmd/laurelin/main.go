package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"LaurelinChat/internal/chatbot"
	"LaurelinChat/internal/config"
)

type globalFlags struct {
	configPath string
	env        string
	debug      bool
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "laurelin",
		Short:         "Terminal client for Laurelin Chat",
		Long:          "Chat with the Laurelin backend from the terminal. Run without a subcommand to open the chat UI.",
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			bot, err := newChatBot(flags)
			if err != nil {
				return err
			}
			defer bot.Close()
			return bot.Run()
		},
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", config.DefaultPath(), "path to config file")
	cmd.PersistentFlags().StringVar(&flags.env, "env", "", "backend environment (development|production); detected from the host when empty")
	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(
		loginCmd(flags),
		logoutCmd(flags),
		whoamiCmd(flags),
		sessionsCmd(flags),
		experimentsCmd(flags),
		modelsCmd(flags),
	)
	return cmd
}

// newChatBot loads configuration with the global flags applied and wires the application
func newChatBot(flags *globalFlags) (*chatbot.ChatBot, error) {
	if flags.env != "" {
		// Set before Load so endpoint overrides land on the chosen environment.
		os.Setenv("LAURELIN_ENV", flags.env)
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if flags.debug {
		cfg.Debug = true
	}

	bot, err := chatbot.NewChatBot(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chatbot: %w", err)
	}
	return bot, nil
}
