package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/rhuss/servicedesk/pkg/api"
	"github.com/rhuss/servicedesk/pkg/session"
)

const (
	namePrompt  = "Please enter your name: "
	queryPrompt = "Enter your queries: "
	exitCommand = "exit"

	noReply          = "Unable to generate a response"
	unavailableReply = "The assistant is unavailable right now, please try again later."
	budgetReply      = "That request needed too many steps. Please try rephrasing it."
	unknownReply     = "The assistant asked for a tool it does not have. Please try again."
)

var markdown bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive console session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := build(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		render := plainRenderer
		if markdown {
			if render, err = markdownRenderer(); err != nil {
				return err
			}
		}

		err = runChat(ctx, os.Stdin, cmd.OutOrStdout(), a.engine, cfg.Sessions.MaxInputLength, render)
		if errors.Is(err, api.ErrOracleUnavailable) {
			return errReported
		}
		return err
	},
}

func init() {
	chatCmd.Flags().BoolVar(&markdown, "markdown", false, "render replies as markdown")
}

var aiPrefix = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Render("AI:")

// renderer turns reply text into terminal output.
type renderer func(text string) string

func plainRenderer(text string) string { return text }

func markdownRenderer() (renderer, error) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
	if err != nil {
		return nil, fmt.Errorf("creating markdown renderer: %w", err)
	}
	return func(text string) string {
		out, err := r.Render(text)
		if err != nil {
			return text
		}
		return strings.TrimSpace(out)
	}, nil
}

// runChat runs the console dialogue on in and out until the user types
// exit or input ends. An unavailable oracle ends the dialogue with
// api.ErrOracleUnavailable after telling the user.
func runChat(ctx context.Context, in io.Reader, out io.Writer, runner session.Runner, maxInput int, render renderer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	var name string
	for name == "" {
		fmt.Fprint(out, namePrompt)
		if !scanner.Scan() {
			return scanner.Err()
		}
		name = strings.TrimSpace(scanner.Text())
		if apiErr := api.ValidateName(name); apiErr != nil {
			fmt.Fprintln(out, apiErr.Message)
			name = ""
		}
	}

	s := session.New(name, runner, maxInput)
	defer s.Close()

	turn, err := s.Introduce(ctx)
	if done, err := reply(out, turn, err, render); done {
		return err
	}

	for {
		fmt.Fprint(out, queryPrompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := scanner.Text()
		if line == exitCommand {
			return nil
		}

		turn, err := s.Ask(ctx, line)
		if done, err := reply(out, turn, err, render); done {
			return err
		}
	}
}

// reply prints the outcome of one run. It reports done when the dialogue
// cannot continue.
func reply(out io.Writer, turn *api.Turn, err error, render renderer) (bool, error) {
	var unknown *api.UnknownCapabilityError
	var apiErr *api.APIError

	switch {
	case err == nil:
		text := noReply
		if turn != nil && strings.TrimSpace(turn.Content) != "" {
			text = render(turn.Content)
		}
		fmt.Fprintf(out, "%s %s\n", aiPrefix, text)
		return false, nil
	case errors.Is(err, api.ErrOracleUnavailable):
		fmt.Fprintln(out, unavailableReply)
		slog.Debug("oracle unavailable", "error", err)
		return true, err
	case errors.Is(err, api.ErrBudgetExceeded):
		fmt.Fprintln(out, budgetReply)
		return false, nil
	case errors.As(err, &unknown):
		fmt.Fprintln(out, unknownReply)
		return false, nil
	case errors.As(err, &apiErr) && apiErr.Type == api.ErrorTypeInvalidRequest:
		fmt.Fprintln(out, apiErr.Message)
		return false, nil
	case errors.Is(err, context.Canceled):
		return true, nil
	default:
		return true, err
	}
}
