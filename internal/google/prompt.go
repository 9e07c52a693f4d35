package google

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrNotInteractive is returned when authorization needs a verification code
// but stdin is not a terminal, e.g. under cron.
var ErrNotInteractive = errors.New("authorization required but stdin is not a terminal; run the auth command interactively first")

// CodePrompter shows the authorization URL to the user and returns the
// verification code they enter.
type CodePrompter interface {
	PromptCode(ctx context.Context, authURL string) (string, error)
}

// TerminalPrompter prompts on Out and reads a single line from In.
type TerminalPrompter struct {
	In  io.Reader
	Out io.Writer

	// RequireTerminal rejects non-terminal stdin with ErrNotInteractive.
	RequireTerminal bool
}

// NewTerminalPrompter returns a prompter bound to stdin and stdout.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{In: os.Stdin, Out: os.Stdout, RequireTerminal: true}
}

// PromptCode prints authURL and reads the verification code.
func (p *TerminalPrompter) PromptCode(ctx context.Context, authURL string) (string, error) {
	if p.RequireTerminal {
		if f, ok := p.In.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
			return "", ErrNotInteractive
		}
	}

	fmt.Fprintf(p.Out, "Open the following link in your browser:\n%s\n", authURL)
	fmt.Fprint(p.Out, "Enter verification code: ")

	type result struct {
		line string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		line, err := bufio.NewReader(p.In).ReadString('\n')
		if errors.Is(err, io.EOF) && line != "" {
			err = nil
		}
		done <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("failed to read verification code: %w", r.err)
		}
		return strings.TrimSpace(r.line), nil
	}
}

// ParseCode extracts the authorization code from what the user pasted. The
// input is either the bare code or the full redirect URL the browser landed
// on. For a URL, a non-empty expectedState must match its state parameter.
func ParseCode(input, expectedState string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("empty verification code")
	}

	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		return input, nil
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("failed to parse redirect URL: %w", err)
	}

	q := u.Query()
	if e := q.Get("error"); e != "" {
		return "", fmt.Errorf("authorization denied: %s", e)
	}
	if expectedState != "" && q.Get("state") != "" && q.Get("state") != expectedState {
		return "", fmt.Errorf("state mismatch in redirect URL")
	}

	code := q.Get("code")
	if code == "" {
		return "", fmt.Errorf("no code in redirect URL")
	}
	return code, nil
}
