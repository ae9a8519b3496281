package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aretw0/convo/internal/presentation/tui"
	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/filter"
	"github.com/aretw0/convo/pkg/session"
	"github.com/aretw0/convo/pkg/traceproc"
)

// ChatOptions configures the interactive loop.
type ChatOptions struct {
	In       io.Reader
	Out      io.Writer
	Renderer tui.Renderer
	// ShowDebug prints debug traces.
	ShowDebug bool
}

// Chat runs a read-eval-print loop over s until the conversation ends or input
// runs out. q, quit and exit leave early. Typing a choice number sends that
// choice; /restart starts over.
func Chat(ctx context.Context, s *session.Session, opts ChatOptions) error {
	if opts.Renderer == nil {
		opts.Renderer = tui.PlainRenderer
	}
	out := opts.Out

	sub, err := s.OnAny(chatHandlers(s, opts).Lenient().Handler())
	if err != nil {
		return err
	}
	defer func() { _ = s.Off(sub) }()

	turn, err := s.Start(ctx)
	if err != nil {
		return handleExecutionError(err)
	}

	scanner := bufio.NewScanner(opts.In)
	for {
		if turn.IsEnding() {
			return nil
		}

		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return handleExecutionError(scanner.Err())
		}
		if err := ctx.Err(); err != nil {
			return handleExecutionError(err)
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "q", "quit", "exit":
			return nil
		case "/restart":
			turn, err = s.Start(ctx)
		default:
			turn, err = s.SendText(ctx, resolveChoice(line, turn.Choices()))
		}
		if err != nil {
			if isInterrupted(err) {
				return nil
			}
			printSystemMessage(out, "Error: %v", err)
			if turn = s.Context(); turn == nil {
				return err
			}
		}
	}
}

// resolveChoice maps "2" to the name of the second choice.
func resolveChoice(line string, choices []domain.Choice) string {
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(choices) {
		return line
	}
	return choices[n-1].Name
}

func chatHandlers(s *session.Session, opts ChatOptions) traceproc.Processor {
	out := opts.Out
	strip := s.Config().StripMarkup

	say := func(text string) error {
		if strip {
			text = filter.StripMarkup(text)
		}
		rendered, err := opts.Renderer(text)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(out, rendered)
		return err
	}

	h := traceproc.Handlers{
		Speak: traceproc.SpeakHandlers{
			Speech: func(ctx context.Context, message, src string) error {
				return say(message)
			},
			Audio: func(ctx context.Context, message, src string) error {
				fmt.Fprintf(out, "[audio] %s\n", src)
				return nil
			},
		},
		Choice: func(ctx context.Context, choices []domain.Choice) error {
			names := make([]string, len(choices))
			for i, c := range choices {
				names[i] = c.Name
			}
			fmt.Fprintln(out, tui.FormatChoices(names))
			return nil
		},
		Audio: func(ctx context.Context, src string) error {
			fmt.Fprintf(out, "[audio] %s\n", src)
			return nil
		},
		Stream: func(ctx context.Context, src string, action domain.StreamAction, token string) error {
			fmt.Fprintf(out, "[stream %s] %s\n", action, src)
			return nil
		},
		Visual: traceproc.VisualHandlers{
			Image: func(ctx context.Context, image string, device domain.DeviceType, dims *domain.Dimensions, visibility domain.CanvasVisibility) error {
				fmt.Fprintf(out, "[image] %s\n", image)
				return nil
			},
			APL: func(ctx context.Context, apl domain.APLVisual) error {
				fmt.Fprintf(out, "[apl] %s\n", apl.Title)
				return nil
			},
		},
		End: func(ctx context.Context) error {
			printSystemMessage(out, "Conversation ended.")
			return nil
		},
	}
	if opts.ShowDebug {
		h.Debug = func(ctx context.Context, message string) error {
			fmt.Fprintf(out, "[debug] %s\n", message)
			return nil
		}
	}
	return traceproc.New(h)
}
