package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"gem-finder/internal/app"
	"gem-finder/internal/common/logger"
	"gem-finder/internal/pipeline"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive hidden-gem session",
	Long: `Describe the kind of place you want, answer the follow-up questions,
then pick one of the recommendations for visit advice. Type "exit" or
"quit" to leave.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := app.Build(ctx, cfg, logger.NewZapAdapter(zapLog), app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		return runChat(ctx, a.Pipeline.NewSession(), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

// runChat reads one message per line until exit, EOF or cancellation.
func runChat(ctx context.Context, session *pipeline.Session, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Where would you like to go? (type \"exit\" to quit)")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		msg := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(msg) {
		case "":
			continue
		case "exit", "quit":
			fmt.Fprintln(out, "Happy exploring!")
			return nil
		}

		reply, err := session.Send(ctx, msg)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "Something went wrong: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "\n%s\n\n", reply.Text)
	}
}
