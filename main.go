// Package main provides the entry point for vpnonline.
// vpnonline connects to VPNOnline servers through the OpenVPN client: it
// fetches the server definitions, keeps the account credentials and starts
// openvpn for the definition picked by index, search or interactively.
//
// Usage:
//
//	sudo vpnonline --list
//	sudo vpnonline --search <keyword>...
//	sudo vpnonline --connect <index> [--detach]
//
// Environment:
//
//	OpenVPN must be installed. VPNONLINE_* variables override the
//	configuration, e.g. VPNONLINE_CLIENT_BINARY=/usr/sbin/openvpn.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/yllada/vpnonline/cli"
	"github.com/yllada/vpnonline/common"
	"github.com/yllada/vpnonline/config"
	"github.com/yllada/vpnonline/vpn"
)

// Build-time variables injected via ldflags (-X main.appVersion=x.y.z)
// Default values are used for local development builds
var (
	appVersion = "dev"
	buildTime  = "unknown"
	commitSHA  = "unknown"
)

// rootOptions holds the parsed command line.
type rootOptions struct {
	connect          int
	detach           bool
	list             bool
	search           bool
	pick             bool
	resetDefinitions bool
	resetCredentials bool
	reset            bool
	saveConfig       bool
	version          bool
	verbose          bool
	stateDir         string
	configFile       string
}

// actionFlags are mutually exclusive.
var actionFlags = []string{
	"connect", "list", "search", "pick",
	"reset-definitions", "reset-credentials", "reset",
	"save-config", "version",
}

func main() {
	os.Exit(execute())
}

func execute() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals (SIGINT, SIGTERM)
	setupSignalHandler(cancel)

	exitCode := 0
	cmd := newRootCommand(&rootOptions{}, &exitCode)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, common.ErrUsage) {
			fmt.Fprintf(os.Stderr, "Run '%s --help' for usage.\n", common.AppName)
		}
		return common.ExitCode(err)
	}
	return exitCode
}

func newRootCommand(opts *rootOptions, exitCode *int) *cobra.Command {
	cmd := &cobra.Command{
		Use:   common.AppName + " [flags] [keywords...]",
		Short: "Connect to VPNOnline servers via OpenVPN",
		Long: `vpnonline downloads the VPNOnline OpenVPN definitions on first use, keeps
your account credentials and starts openvpn for the definition you choose.

Definitions are numbered from 1 in file name order; the numbers printed by
--list and --search are the ones --connect expects.`,
		Example: `  sudo vpnonline --list
  sudo vpnonline --search usa tcp
  sudo vpnonline --connect 12
  sudo vpnonline --connect 12 --detach
  sudo vpnonline --pick poland`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFlags(cmd.Flags(), opts, args); err != nil {
				return err
			}
			code, err := run(cmd, opts, args)
			*exitCode = code
			return err
		},
	}

	f := cmd.Flags()
	f.SortFlags = false
	f.IntVar(&opts.connect, "connect", 0, "establish the connection described by the n-th definition")
	f.BoolVar(&opts.detach, "detach", false, "don't capture output nor wait for the openvpn process to finish")
	f.BoolVar(&opts.list, "list", false, "print the numbered list of available definitions")
	f.BoolVar(&opts.search, "search", false, "print the numbered definitions containing all keywords")
	f.BoolVar(&opts.pick, "pick", false, "choose a definition interactively, optionally narrowed by keywords")
	f.BoolVar(&opts.resetDefinitions, "reset-definitions", false, "remove fetched definitions")
	f.BoolVar(&opts.resetCredentials, "reset-credentials", false, "remove saved credentials")
	f.BoolVar(&opts.reset, "reset", false, "remove definitions and credentials (the whole state directory)")
	f.BoolVar(&opts.saveConfig, "save-config", false, "write the effective configuration to the state directory")
	f.StringVar(&opts.stateDir, "state-dir", "", "state directory (default ~/.vpnonline of the invoking user)")
	f.StringVar(&opts.configFile, "config", "", "configuration file (default <state-dir>/config.yaml)")
	f.BoolVar(&opts.verbose, "verbose", false, "enable verbose logging")
	f.BoolVar(&opts.version, "version", false, "show version and exit")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return common.KindError(common.ErrUsage, err, "flags")
	})
	return cmd
}

// validateFlags rejects flag combinations that have no meaning.
func validateFlags(flags *pflag.FlagSet, opts *rootOptions, args []string) error {
	var actions []string
	for _, name := range actionFlags {
		if flags.Changed(name) {
			actions = append(actions, "--"+name)
		}
	}
	if len(actions) > 1 {
		return common.KindError(common.ErrUsage, nil, "%s are mutually exclusive", strings.Join(actions, ", "))
	}

	if opts.detach && !flags.Changed("connect") && !opts.pick {
		return common.KindError(common.ErrUsage, nil, "--detach requires --connect or --pick")
	}
	if len(args) > 0 && !opts.search && !opts.pick {
		return common.KindError(common.ErrUsage, nil, "unexpected arguments %q", args)
	}
	if opts.search && len(args) == 0 {
		return common.KindError(common.ErrUsage, nil, "--search requires at least one keyword")
	}
	return nil
}

// run performs the selected action and returns the process exit code.
func run(cmd *cobra.Command, opts *rootOptions, args []string) (int, error) {
	if opts.version {
		printVersion(cmd)
		return 0, nil
	}

	if !hasAction(cmd.Flags()) {
		return 0, cmd.Help()
	}

	cfg, err := config.Load(config.Options{File: opts.configFile, Flags: cmd.Flags()})
	if err != nil {
		return 1, err
	}

	initLogging(cfg)
	defer common.CloseLogger()
	common.LogDebug("Starting %s v%s, state directory %s", common.AppName, appVersion, cfg.StateDir)

	app, err := cli.New(cli.Options{
		Config: cfg,
		Stdin:  cmd.InOrStdin(),
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	})
	if err != nil {
		return 1, err
	}

	ctx := cmd.Context()
	mode := vpn.Attached
	if opts.detach {
		mode = vpn.Detached
	}

	switch {
	case opts.resetDefinitions:
		return 0, app.ResetDefinitions()
	case opts.resetCredentials:
		return 0, app.ResetCredentials()
	case opts.reset:
		return 0, app.ResetAll()
	case opts.saveConfig:
		return 0, app.SaveConfig()
	case opts.list:
		return 0, app.List(ctx)
	case opts.search:
		return 0, app.Search(ctx, args)
	case opts.pick:
		return app.Pick(ctx, args, mode)
	default:
		return app.Connect(ctx, opts.connect, mode)
	}
}

func hasAction(flags *pflag.FlagSet) bool {
	for _, name := range actionFlags {
		if flags.Changed(name) {
			return true
		}
	}
	return false
}

// initLogging applies the configured level and optional file output.
func initLogging(cfg *config.Config) {
	level, err := common.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		level = common.LevelWarn
	}

	logConfig := common.LogConfig{
		Level:       level,
		MaxFileSize: common.DefaultMaxLogFileSize,
		MaxBackups:  common.DefaultMaxLogBackups,
	}
	if cfg.LogToFile {
		logConfig.Dir = cfg.LogDir()
	}

	if err := common.InitLogger(logConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not initialize file logging: %v\n", err)
	}
}

func printVersion(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s v%s\n", common.AppName, appVersion)
	if buildTime != "unknown" {
		fmt.Fprintf(out, "  Build:  %s\n", buildTime)
		fmt.Fprintf(out, "  Commit: %s\n", commitSHA)
	}
}

// setupSignalHandler configures graceful shutdown on SIGINT/SIGTERM.
// When a signal is received, it cancels the context so an attached
// openvpn process is stopped instead of orphaned.
func setupSignalHandler(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		common.LogInfo("Received signal %v, shutting down", sig)
		cancel()
	}()
}
