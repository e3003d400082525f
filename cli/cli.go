// Package cli provides the command-line actions of vpnonline.
// Each exported method implements one action of the root command and
// writes listings to stdout; diagnostics go through the logger.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/yllada/vpnonline/common"
	"github.com/yllada/vpnonline/config"
	"github.com/yllada/vpnonline/credentials"
	"github.com/yllada/vpnonline/ui"
	"github.com/yllada/vpnonline/vpn"
)

// Options configure a CLI. Zero-value fields are derived from Config.
type Options struct {
	Config *config.Config

	// Fetcher replaces the HTTP definition fetcher.
	Fetcher vpn.Fetcher
	// Store replaces the credential backend selected by the configuration.
	Store credentials.Store
	// Prompter replaces the terminal prompter.
	Prompter credentials.Prompter

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// CLI represents the command-line interface.
type CLI struct {
	cfg         *config.Config
	cache       *vpn.Cache
	store       credentials.Store
	prompter    credentials.Prompter
	launcher    *vpn.Launcher
	state       *vpn.State
	in          io.Reader
	out         io.Writer
	highlighter vpn.Highlighter
}

// New creates a new CLI instance.
func New(opts Options) (*CLI, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, common.KindError(common.ErrInvalidConfig, nil, "no configuration")
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = vpn.NewHTTPFetcher(
			cfg.Definitions.URL,
			cfg.Definitions.UserAgent,
			cfg.Definitions.Timeout,
			cfg.Definitions.Extensions,
		)
	}

	store := opts.Store
	if store == nil {
		store = newStore(cfg)
	}

	prompter := opts.Prompter
	if prompter == nil {
		prompter = credentials.NewTerminalPrompter(opts.Stdin, opts.Stderr)
	}

	cache := vpn.NewCache(cfg.DefinitionsDir(), cfg.Definitions.Extensions, cfg.Definitions.BrokenOptions, fetcher)
	launcher := vpn.NewLauncher(vpn.LauncherConfig{
		Binary:      cfg.Client.Binary,
		Elevate:     cfg.Client.Elevate,
		ExtraArgs:   cfg.Client.ExtraArgs,
		StopTimeout: cfg.Client.StopTimeout,
		Stdin:       opts.Stdin,
		Stdout:      opts.Stdout,
		Stderr:      opts.Stderr,
	})

	return &CLI{
		cfg:         cfg,
		cache:       cache,
		store:       store,
		prompter:    prompter,
		launcher:    launcher,
		state:       vpn.NewState(cfg.StateDir, cache, store),
		in:          opts.Stdin,
		out:         opts.Stdout,
		highlighter: ui.NewHighlighter(cfg.Color, opts.Stdout),
	}, nil
}

// newStore returns the credential backend selected by the configuration.
// An unavailable keyring falls back to the credentials file.
func newStore(cfg *config.Config) credentials.Store {
	if cfg.Credentials.Backend == common.CredentialBackendKeyring {
		ks := credentials.NewKeyringStore(common.KeyringService, cfg.RunDir())
		if ks.Available() {
			return ks
		}
		common.LogWarn("System keyring is not available, storing credentials in %s", cfg.CredentialsFile())
	}
	return credentials.NewFileStore(cfg.CredentialsFile())
}

// entries returns the indexed definitions, fetching them if the cache is empty.
func (c *CLI) entries(ctx context.Context) ([]vpn.Entry, error) {
	defs, err := c.cache.EnsurePopulated(ctx)
	if err != nil {
		return nil, err
	}
	return vpn.Index(defs), nil
}

// List prints every definition with its index.
func (c *CLI) List(ctx context.Context) error {
	entries, err := c.entries(ctx)
	if err != nil {
		return err
	}
	return c.printEntries(vpn.ListAll(entries), nil)
}

// Search prints the definitions whose names contain every keyword, with
// the matches highlighted. No matches prints nothing.
func (c *CLI) Search(ctx context.Context, keywords []string) error {
	entries, err := c.entries(ctx)
	if err != nil {
		return err
	}

	found := vpn.Search(entries, keywords)
	if len(found) == 0 {
		common.LogInfo("No definitions match %q", keywords)
	}
	return c.printEntries(found, keywords)
}

// Connect starts the VPN client for the definition with the given index.
// Credentials are requested only once the index is known to be valid.
// The returned code is the client's exit status for attached connections.
func (c *CLI) Connect(ctx context.Context, index int, mode vpn.LaunchMode) (int, error) {
	entries, err := c.entries(ctx)
	if err != nil {
		return 1, err
	}
	if _, err := vpn.Resolve(entries, index); err != nil {
		return 1, err
	}
	return c.connect(ctx, entries, index, mode)
}

// Pick lets the user choose a definition interactively, optionally
// narrowed down by keywords, and connects to it.
func (c *CLI) Pick(ctx context.Context, keywords []string, mode vpn.LaunchMode) (int, error) {
	entries, err := c.entries(ctx)
	if err != nil {
		return 1, err
	}

	entry, err := ui.Pick(ctx, vpn.Search(entries, keywords), ui.PickerOptions{
		Keywords:  keywords,
		ColorMode: c.cfg.Color,
		In:        c.in,
		Out:       c.out,
	})
	if err != nil {
		return 1, err
	}
	return c.connect(ctx, entries, entry.Index, mode)
}

func (c *CLI) connect(ctx context.Context, entries []vpn.Entry, index int, mode vpn.LaunchMode) (int, error) {
	c.checkPrivileges()

	if _, err := credentials.Ensure(ctx, c.store, c.prompter); err != nil {
		return 1, err
	}

	result, err := c.launcher.Connect(ctx, entries, index, c.store, mode)
	if err != nil {
		return 1, err
	}
	if mode == vpn.Detached {
		fmt.Fprintf(c.out, "%s started with PID %d, run 'sudo kill %d' to disconnect\n",
			c.cfg.Client.Binary, result.PID, result.PID)
	}
	return result.ExitCode, nil
}

// checkPrivileges warns when the client is likely to lack the privileges
// it needs to configure the tunnel.
func (c *CLI) checkPrivileges() {
	if common.IsRoot() || len(c.cfg.Client.Elevate) > 0 {
		return
	}
	if common.HasSudo() {
		common.LogWarn("Started through sudo but not as root; %s may fail to create the tunnel", c.cfg.Client.Binary)
		return
	}
	common.LogWarn("Not running as root; %s may fail to create the tunnel. Use sudo or set client.elevate", c.cfg.Client.Binary)
}

// ResetDefinitions removes the cached definitions.
func (c *CLI) ResetDefinitions() error {
	return c.state.ResetDefinitions()
}

// ResetCredentials removes the stored credentials.
func (c *CLI) ResetCredentials() error {
	return c.state.ResetCredentials()
}

// ResetAll removes the credentials and the state directory.
func (c *CLI) ResetAll() error {
	return c.state.ResetAll()
}

// SaveConfig writes the effective configuration to the state directory.
func (c *CLI) SaveConfig() error {
	path := c.cfg.Path()
	if err := c.cfg.Save(path); err != nil {
		return common.KindError(common.ErrIO, err, "save configuration")
	}
	fmt.Fprintf(c.out, "Configuration saved to %s\n", path)
	return nil
}

// printEntries writes "<index> <name>" lines, highlighting keywords.
func (c *CLI) printEntries(entries []vpn.Entry, keywords []string) error {
	for _, e := range entries {
		line := common.FormatIndex(e.Index) + " " + vpn.Render(e.Name, keywords, c.highlighter)
		if _, err := fmt.Fprintln(c.out, line); err != nil {
			return common.KindError(common.ErrIO, err, "write listing")
		}
	}
	return nil
}
