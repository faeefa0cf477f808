package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// Console is a Channel over a local text stream, stdin/stdout by default.
// Input blocks on the next line of the stream; there is no out-of-band
// delivery, so no bridge is involved.
type Console struct {
	reader   *bufio.Reader
	writer   io.Writer
	terminal bool
}

// NewConsole creates a console channel on stdin/stdout.
func NewConsole() *Console {
	return &Console{
		reader:   bufio.NewReader(os.Stdin),
		writer:   os.Stdout,
		terminal: term.IsTerminal(int(os.Stdin.Fd())),
	}
}

// NewConsoleWithIO creates a console channel with custom IO.
// Useful for testing.
func NewConsoleWithIO(reader io.Reader, writer io.Writer) *Console {
	return &Console{
		reader: bufio.NewReader(reader),
		writer: writer,
	}
}

// Input emits the prompt, then reads one line and returns it trimmed.
// When stdin is not a terminal the prompt gets its own line so piped
// transcripts stay line-oriented.
func (c *Console) Input(ctx context.Context, prompt string) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("input canceled: %w", ctx.Err())
	default:
	}

	if prompt != "" {
		if !c.terminal {
			prompt += "\n"
		}
		if _, err := fmt.Fprint(c.writer, prompt); err != nil {
			return "", fmt.Errorf("writing prompt: %w", err)
		}
	}

	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Print emits a message followed by a newline.
func (c *Console) Print(ctx context.Context, message string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("print canceled: %w", ctx.Err())
	default:
	}

	if _, err := fmt.Fprintln(c.writer, message); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	return nil
}

// Choose numbers the options and reads an index. Non-numeric or
// out-of-range input prints "Try again" and re-presents the menu; the
// loop only exits on a valid pick, a write failure, or cancellation.
func (c *Console) Choose(ctx context.Context, options ...string) (string, error) {
	if len(options) == 0 {
		return "", ErrNoOptions
	}

	menu := make([]string, len(options))
	for i, opt := range options {
		menu[i] = fmt.Sprintf("%d) %s", i, opt)
	}

	for {
		if err := c.Print(ctx, strings.Join(menu, "\n")); err != nil {
			return "", err
		}

		answer, err := c.Input(ctx, "Enter index: ")
		if err != nil {
			return "", err
		}

		index, err := strconv.Atoi(answer)
		if err != nil || index < 0 || index >= len(options) {
			if err := c.Print(ctx, "Try again"); err != nil {
				return "", err
			}
			continue
		}
		return options[index], nil
	}
}
