package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Proton-105/rumor-bot/internal/backend"
	"github.com/Proton-105/rumor-bot/internal/bot/keyboard"
	"github.com/Proton-105/rumor-bot/internal/dialogue"
	apperrors "github.com/Proton-105/rumor-bot/internal/errors"
	"github.com/Proton-105/rumor-bot/internal/reply"
	"github.com/Proton-105/rumor-bot/internal/state"
	"github.com/Proton-105/rumor-bot/pkg/logger"
)

const chatUserID int64 = 1

var chatLang string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the dialogue from the terminal",
	Long: `chat runs the dialogue against the configured content service with
sessions kept in memory. Type a message to search for it, a number to press
the matching button of the last reply, or /reset to start over.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		log, closer := logger.New(cfg.Logger)
		defer closer.Close()

		content := backend.NewGraphQLClient(cfg.Backend, nil, log)
		store := state.NewMemoryStorage(cfg.Session.TTL, cfg.Session.CleanupInterval)
		stack, err := newDialogue(cfg, content, store, state.NewLocalLocker(), nil, apperrors.NewHandler(log, false), log)
		if err != nil {
			return err
		}

		return runChat(ctx, stack.service, chatLang, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatLang, "lang", "", "language of the replies")
}

// turnService is the part of dialogue.Service the REPL drives.
type turnService interface {
	HandleEvent(ctx context.Context, userID int64, event state.Event) ([]reply.Message, error)
}

func runChat(ctx context.Context, svc turnService, lang string, in io.Reader, out io.Writer) error {
	if lang != "" {
		ctx = dialogue.WithLanguage(ctx, lang)
	}

	var postbacks []string
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		event, ok := chatEvent(scanner.Text(), postbacks)
		if !ok {
			continue
		}

		messages, err := svc.HandleEvent(logger.EnsureCorrelationID(ctx), chatUserID, event)
		if err != nil {
			slog.Default().Warn("turn failed", slog.Any("error", err))
			fmt.Fprintf(out, "! %v\n", err)
			continue
		}

		postbacks, err = printMessages(out, messages)
		if err != nil {
			return err
		}
	}
}

// chatEvent turns a typed line into a dialogue event. A number picks the
// postback button with that position in the last reply.
func chatEvent(line string, postbacks []string) (state.Event, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return state.Event{}, false
	}
	if strings.EqualFold(line, "/reset") {
		return state.Event{Input: dialogue.ResetCommand, Type: state.EventText}, true
	}
	if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(postbacks) {
		return state.Event{Input: postbacks[n-1], Type: state.EventPostback}, true
	}
	return state.Event{Input: line, Type: state.EventText}, true
}

// printMessages writes the replies the way the bot renders them and returns
// the postback payloads in button order.
func printMessages(w io.Writer, messages []reply.Message) ([]string, error) {
	rendered, err := keyboard.Render(messages)
	if err != nil {
		return nil, err
	}

	var postbacks []string
	for _, msg := range rendered {
		fmt.Fprintln(w, msg.Text)
		if msg.Markup == nil {
			continue
		}
		for _, row := range msg.Markup.InlineKeyboard {
			for _, btn := range row {
				if btn.URL != "" {
					fmt.Fprintf(w, "  [%s] %s\n", btn.Text, btn.URL)
					continue
				}
				payload, err := keyboard.DecodePostback(btn.Data)
				if err != nil {
					continue
				}
				postbacks = append(postbacks, payload)
				fmt.Fprintf(w, "  %d) %s\n", len(postbacks), btn.Text)
			}
		}
	}
	return postbacks, nil
}
