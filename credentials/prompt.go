package credentials

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/yllada/vpnonline/common"
)

// TerminalPrompter asks for the user name and password on a terminal.
// The password is read without echo when In is a terminal.
type TerminalPrompter struct {
	In  io.Reader
	Out io.Writer
}

// NewTerminalPrompter prompts on out and reads from in. Nil streams
// default to stdin and stderr.
func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}
	return &TerminalPrompter{In: in, Out: out}
}

// Prompt reads a user name line and a password. Cancelling ctx abandons
// the pending read and returns common.ErrInterrupted.
func (p *TerminalPrompter) Prompt(ctx context.Context) (Credentials, error) {
	reader := bufio.NewReader(p.In)

	fmt.Fprint(p.Out, "user-name: ")
	username, err := readWithContext(ctx, p.Out, func() (string, error) {
		return readLine(reader)
	})
	if err != nil {
		return Credentials{}, err
	}

	fmt.Fprint(p.Out, "user-pass: ")
	var password string
	if f, ok := p.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		// ReadPassword turns echo off; put the terminal back if we give up on it
		if state, err := term.GetState(fd); err == nil {
			defer term.Restore(fd, state)
		}
		password, err = readWithContext(ctx, p.Out, func() (string, error) {
			raw, err := term.ReadPassword(fd)
			fmt.Fprintln(p.Out)
			if err != nil {
				return "", common.KindError(common.ErrIO, err, "read password")
			}
			return string(raw), nil
		})
	} else {
		password, err = readWithContext(ctx, p.Out, func() (string, error) {
			return readLine(reader)
		})
	}
	if err != nil {
		return Credentials{}, err
	}

	return Credentials{Username: strings.TrimSpace(username), Password: password}, nil
}

type readResult struct {
	line string
	err  error
}

// readWithContext runs read in a goroutine so a blocked terminal read
// does not outlive cancellation. The goroutine is left to finish on its own.
func readWithContext(ctx context.Context, out io.Writer, read func() (string, error)) (string, error) {
	done := make(chan readResult, 1)
	go func() {
		line, err := read()
		done <- readResult{line, err}
	}()

	select {
	case r := <-done:
		return r.line, r.err
	case <-ctx.Done():
		fmt.Fprintln(out)
		return "", common.KindError(common.ErrInterrupted, ctx.Err(), "credential prompt")
	}
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		if errors.Is(err, io.EOF) {
			return "", common.KindError(common.ErrInterrupted, err, "credential prompt")
		}
		return "", common.KindError(common.ErrIO, err, "read input")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// StaticPrompter returns fixed credentials without any interaction.
type StaticPrompter struct {
	Credentials Credentials
}

// Prompt returns the fixed credentials.
func (p StaticPrompter) Prompt(ctx context.Context) (Credentials, error) {
	if err := ctx.Err(); err != nil {
		return Credentials{}, common.KindError(common.ErrInterrupted, err, "credential prompt")
	}
	return p.Credentials, nil
}
