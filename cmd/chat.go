package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/abhisek/edusarthi/internal/chat"
	"github.com/abhisek/edusarthi/internal/prompt"
	"github.com/spf13/cobra"
)

const chatHelp = `Commands:
  /image PATH   attach a JPEG image to your next message
  /lang CODE    switch language (en, hi, hn) and start over
  /level LEVEL  switch education level and start over
  /clear        start a fresh conversation
  /quit         leave
Press Ctrl+C to stop a reply.`

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk with the AI tutor",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		session := chat.NewSession(a.provider, a.cfg.Chat, a.log)
		defer session.Close()
		if err := session.Bind(ctx, a.lang, a.level); err != nil {
			return fmt.Errorf("start chat: %w", err)
		}

		r := &repl{
			ctx:     ctx,
			session: session,
			in:      bufio.NewScanner(cmd.InOrStdin()),
			out:     cmd.OutOrStdout(),
		}
		fmt.Fprintf(r.out, "EduSarthi AI (%s, %s). Type /help for commands.\n", a.lang.Label(), a.level)
		return r.run()
	},
}

type repl struct {
	ctx     context.Context
	session *chat.Session
	in      *bufio.Scanner
	out     io.Writer

	image []byte
}

func (r *repl) run() error {
	for {
		fmt.Fprint(r.out, "\n> ")
		if !r.in.Scan() {
			fmt.Fprintln(r.out)
			return r.in.Err()
		}
		line := strings.TrimSpace(r.in.Text())
		if strings.HasPrefix(line, "/") {
			quit, err := r.command(line)
			if err != nil {
				fmt.Fprintln(r.out, "error:", err)
			}
			if quit {
				return nil
			}
			continue
		}
		if err := prompt.CheckInput(line, r.image); err != nil {
			continue
		}
		r.turn(line)
	}
}

// command handles a slash command and reports whether to quit.
func (r *repl) command(line string) (bool, error) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	state := r.session.State()

	switch name {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Fprintln(r.out, chatHelp)
	case "/image":
		if arg == "" {
			return false, fmt.Errorf("usage: /image PATH")
		}
		data, err := os.ReadFile(arg)
		if err != nil {
			return false, err
		}
		r.image = data
		fmt.Fprintf(r.out, "Image attached (%d bytes). It will be sent with your next message.\n", len(data))
	case "/lang":
		if err := r.session.Bind(r.ctx, prompt.ParseLanguage(arg), state.Level); err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "Language: %s\n", prompt.ParseLanguage(arg).Label())
	case "/level":
		if err := r.session.Bind(r.ctx, state.Language, arg); err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "Level: %s\n", arg)
	case "/clear":
		r.session.Close()
		r.image = nil
		if err := r.session.Bind(r.ctx, state.Language, state.Level); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, "Started a new conversation.")
	default:
		return false, fmt.Errorf("unknown command %s, try /help", name)
	}
	return false, nil
}

// turn sends one message and prints the reply as it arrives.
func (r *repl) turn(text string) {
	ctx, stop := signal.NotifyContext(r.ctx, os.Interrupt)
	defer stop()

	// The image belongs to this turn whether or not it goes through.
	image := r.image
	r.image = nil

	stream, err := r.session.SendTurn(ctx, prompt.Parts(text, image))
	if err != nil {
		fmt.Fprintln(r.out, "error:", err)
		return
	}
	defer stream.Close()

	printed := 0
	final := chat.Aggregate(ctx, stream.Chunks(), func(s chat.Snapshot) {
		fmt.Fprint(r.out, s.Text[printed:])
		printed = len(s.Text)
	})
	fmt.Fprintln(r.out)

	switch {
	case final.Err == nil:
	case final.Text == "":
		fmt.Fprintln(r.out, chat.FallbackReply)
	case ctx.Err() != nil:
		fmt.Fprintln(r.out, "[stopped]")
	default:
		fmt.Fprintln(r.out, "[reply interrupted]")
	}
}
