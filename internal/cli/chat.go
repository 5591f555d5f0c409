package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ewilliams-labs/song-bot/internal/core/services"
	"github.com/ewilliams-labs/song-bot/internal/metrics"
)

const greeting = "Welcome to the music chatbot! Type 'quit' to exit."

func newChatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the bot on stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.cfg.Validate(true); err != nil {
				return err
			}
			ctx := cmd.Context()
			m := metrics.New()

			repo, err := opts.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			client, err := opts.newSpotify(ctx, m)
			if err != nil {
				return err
			}
			st, err := buildStack(ctx, opts.cfg, opts.logger, m, client, repo)
			if err != nil {
				return err
			}
			return runREPL(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), st.assistant)
		},
	}
}

// runREPL holds one conversation until the user quits, says goodbye or
// closes the input.
func runREPL(ctx context.Context, in io.Reader, out io.Writer, a *services.Assistant) error {
	fmt.Fprintln(out, greeting)

	var sessionID string
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := scanner.Text()
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "quit", "exit":
			return nil
		}

		res := a.HandleTurn(ctx, sessionID, line)
		sessionID = res.SessionID
		fmt.Fprintln(out, res.Reply)

		if res.Reply == services.ReplyGoodbye {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}
