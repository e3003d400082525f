// Package credentials stores the VPN account used by every definition.
// Two backends exist: a plain owner-only file that the VPN client reads
// directly, and the system keyring, which materializes a short-lived auth
// file only while a client needs it.
package credentials

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yllada/vpnonline/common"
)

// ErrNotFound is returned when no credentials are stored.
var ErrNotFound = common.ErrCredentialsNotFound

// Credentials is a username/password pair.
type Credentials struct {
	Username string
	Password string
}

// Validate checks that both fields are set and fit the two-line file format.
func (c Credentials) Validate() error {
	if c.Username == "" {
		return errors.New("empty username")
	}
	if c.Password == "" {
		return errors.New("empty password")
	}
	if strings.ContainsAny(c.Username, "\r\n") || strings.ContainsAny(c.Password, "\r\n") {
		return errors.New("credentials must not contain line breaks")
	}
	return nil
}

// Encode renders the credentials in the --auth-user-pass file format.
func (c Credentials) Encode() []byte {
	return []byte(c.Username + "\n" + c.Password + "\n")
}

// Parse reads the --auth-user-pass file format: exactly two non-empty lines.
func Parse(data []byte) (*Credentials, error) {
	lines := make([]string, 0, 2)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(lines) != 2 {
		return nil, fmt.Errorf("malformed credentials file: %d lines", len(lines))
	}

	c := &Credentials{Username: lines[0], Password: lines[1]}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("malformed credentials file: %w", err)
	}
	return c, nil
}

// Store defines the interface for credential storage.
type Store interface {
	// Load retrieves the stored credentials.
	// Returns ErrNotFound if no credentials are stored.
	Load() (*Credentials, error)

	// Save persists the credentials.
	Save(creds Credentials) error

	// Delete removes the stored credentials.
	// Returns nil if no credentials exist.
	Delete() error

	// AuthFile returns a file in the --auth-user-pass format and a cleanup
	// function to call once the client no longer needs it.
	AuthFile() (path string, cleanup func(), err error)
}

// Prompter asks the user for credentials.
type Prompter interface {
	// Prompt returns common.ErrInterrupted once ctx is cancelled.
	Prompt(ctx context.Context) (Credentials, error)
}

// PromptAndSave asks for credentials and persists them.
func PromptAndSave(ctx context.Context, store Store, prompter Prompter) (*Credentials, error) {
	creds, err := prompter.Prompt(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, common.KindError(common.ErrInterrupted, err, "credential prompt")
	}
	if err := creds.Validate(); err != nil {
		return nil, common.KindError(common.ErrIO, err, "invalid credentials")
	}
	if err := store.Save(creds); err != nil {
		return nil, err
	}
	common.LogInfo("Saved credentials for %s", creds.Username)
	return &creds, nil
}

// Ensure loads stored credentials, prompting for them when there are none.
func Ensure(ctx context.Context, store Store, prompter Prompter) (*Credentials, error) {
	creds, err := store.Load()
	if err == nil {
		return creds, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	common.LogDebug("No stored credentials, prompting")
	return PromptAndSave(ctx, store, prompter)
}
