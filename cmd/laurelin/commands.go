package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"LaurelinChat/internal/auth"
	"LaurelinChat/internal/chat"
	"LaurelinChat/internal/chatbot"
)

var errNotLoggedIn = errors.New("not logged in, run: laurelin login")

// withSession runs fn with a restored credential
func withSession(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, bot *chatbot.ChatBot) error) error {
	bot, err := newChatBot(flags)
	if err != nil {
		return err
	}
	defer bot.Close()

	ctx := cmd.Context()
	if !bot.Gateway().Restore(ctx) {
		return errNotLoggedIn
	}
	return fn(ctx, bot)
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}

func loginCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in with Google",
		RunE: func(cmd *cobra.Command, args []string) error {
			bot, err := newChatBot(flags)
			if err != nil {
				return err
			}
			defer bot.Close()

			bot.SetDevicePrompt(func(dc auth.DeviceCode) {
				fmt.Fprintf(cmd.ErrOrStderr(), "Open %s and enter the code %s\n", dc.VerificationURL, dc.UserCode)
				fmt.Fprintf(cmd.ErrOrStderr(), "Waiting for approval (expires %s)...\n", dc.Expires.Format("15:04"))
			})

			user, err := bot.Gateway().LoginWithGoogle(cmd.Context())
			if err != nil {
				return errors.New(chat.ErrorText(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s <%s>\n", user.DisplayName(), user.Email)
			return nil
		},
	}
}

func logoutCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			bot, err := newChatBot(flags)
			if err != nil {
				return err
			}
			defer bot.Close()

			bot.Gateway().Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func whoamiCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, func(ctx context.Context, bot *chatbot.ChatBot) error {
				return printJSON(cmd.OutOrStdout(), bot.Client().Credential().User)
			})
		},
	}
}

func sessionsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage chat sessions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List your chat sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, func(ctx context.Context, bot *chatbot.ChatBot) error {
				list, err := bot.Client().ListSessions(ctx)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTITLE\tMESSAGES\tUPDATED")
				for _, s := range list {
					updated := s.UpdatedAt.Raw
					if !s.UpdatedAt.IsZero() {
						updated = s.UpdatedAt.Local().Format("2006-01-02 15:04")
					}
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.ID, s.Title, len(s.Messages), updated)
				}
				return w.Flush()
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a chat session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, func(ctx context.Context, bot *chatbot.ChatBot) error {
				if err := bot.Client().DeleteSession(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
				return nil
			})
		},
	})

	return cmd
}

func experimentsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "experiments",
		Short: "Work with A/B experiments",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List experiments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, func(ctx context.Context, bot *chatbot.ChatBot) error {
				exps, err := bot.Client().Experiments(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), exps)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "assign <experiment>",
		Short: "Get your variant for an experiment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, func(ctx context.Context, bot *chatbot.ChatBot) error {
				variant, err := bot.Client().AssignExperiment(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), variant)
				return nil
			})
		},
	})

	var data string
	track := &cobra.Command{
		Use:   "track <experiment> <event-type>",
		Short: "Record an experiment event",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var eventData map[string]any
			if data != "" {
				if err := json.Unmarshal([]byte(data), &eventData); err != nil {
					return fmt.Errorf("--data must be a JSON object: %w", err)
				}
			}
			return withSession(cmd, flags, func(ctx context.Context, bot *chatbot.ChatBot) error {
				if err := bot.Client().TrackEvent(ctx, args[0], args[1], eventData); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Event recorded.")
				return nil
			})
		},
	}
	track.Flags().StringVar(&data, "data", "", `event data as a JSON object, e.g. '{"score":5}'`)
	cmd.AddCommand(track)

	cmd.AddCommand(&cobra.Command{
		Use:   "results <experiment>",
		Short: "Show experiment results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, func(ctx context.Context, bot *chatbot.ChatBot) error {
				results, err := bot.Client().ExperimentResults(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), results)
			})
		},
	})

	return cmd
}

func modelsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect the backend's models",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available models",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, func(ctx context.Context, bot *chatbot.ChatBot) error {
				models, err := bot.Client().AvailableModels(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), models)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "health",
		Short: "Show model health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, func(ctx context.Context, bot *chatbot.ChatBot) error {
				health, err := bot.Client().ModelHealth(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), health)
			})
		},
	})

	var provider string
	test := &cobra.Command{
		Use:   "test <message>",
		Short: "Send a one-off prompt to a model provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, func(ctx context.Context, bot *chatbot.ChatBot) error {
				out, err := bot.Client().TestModel(ctx, args[0], provider)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	test.Flags().StringVar(&provider, "provider", "openai", "model provider")
	cmd.AddCommand(test)

	return cmd
}
