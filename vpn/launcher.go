// Package vpn provides VPN connection management functionality.
// This file contains the Launcher, which starts the external OpenVPN
// client for a definition either attached to the terminal or detached.
package vpn

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/yllada/vpnonline/common"
)

// LaunchMode selects how the client process relates to this process.
type LaunchMode int

const (
	// Attached streams the client's output and waits for it to exit.
	Attached LaunchMode = iota
	// Detached starts the client in its own session and returns at once.
	Detached
)

// String returns a human-readable representation of the launch mode.
func (m LaunchMode) String() string {
	switch m {
	case Attached:
		return "attached"
	case Detached:
		return "detached"
	default:
		return "unknown"
	}
}

// Result describes a launched client.
type Result struct {
	// PID is the client's process id.
	PID int
	// ExitCode is the client's exit status. Always 0 for detached launches.
	ExitCode int
}

// AuthSource provides the --auth-user-pass file for a connection.
type AuthSource interface {
	AuthFile() (path string, cleanup func(), err error)
}

// LauncherConfig configures the client invocation.
type LauncherConfig struct {
	// Binary is the client executable.
	Binary string
	// Elevate is an optional command prefix, e.g. []string{"sudo"}.
	Elevate []string
	// ExtraArgs are appended to the generated arguments.
	ExtraArgs []string
	// StopTimeout is the grace period after SIGTERM on cancellation.
	StopTimeout time.Duration

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Launcher starts the external VPN client.
type Launcher struct {
	cfg LauncherConfig
}

// NewLauncher creates a launcher. Unset streams default to the process's
// own standard streams.
func NewLauncher(cfg LauncherConfig) *Launcher {
	if cfg.Stdin == nil {
		cfg.Stdin = os.Stdin
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = common.DefaultStopTimeout
	}
	return &Launcher{cfg: cfg}
}

// Command returns the program and arguments used to connect def.
func (l *Launcher) Command(def Definition, authFile string) (string, []string) {
	args := []string{
		"--config", def.Path,
		"--auth-user-pass", authFile,
	}
	args = append(args, l.cfg.ExtraArgs...)

	if len(l.cfg.Elevate) > 0 {
		prefixed := append([]string{}, l.cfg.Elevate[1:]...)
		prefixed = append(prefixed, l.cfg.Binary)
		return l.cfg.Elevate[0], append(prefixed, args...)
	}
	return l.cfg.Binary, args
}

// Connect resolves index against entries and launches the client with the
// auth file from auth. The auth file is cleaned up after an attached
// client exits; a detached client keeps it.
func (l *Launcher) Connect(ctx context.Context, entries []Entry, index int, auth AuthSource, mode LaunchMode) (Result, error) {
	entry, err := Resolve(entries, index)
	if err != nil {
		return Result{}, err
	}

	authFile, cleanup, err := auth.AuthFile()
	if err != nil {
		return Result{}, err
	}
	if mode == Attached {
		defer cleanup()
	}

	common.LogInfo("Connecting to %s (%s)", entry.Name, mode)
	return l.Launch(ctx, entry.Definition, authFile, mode)
}

// Launch starts the client for def.
func (l *Launcher) Launch(ctx context.Context, def Definition, authFile string, mode LaunchMode) (Result, error) {
	name, args := l.Command(def, authFile)

	path, err := exec.LookPath(name)
	if err != nil {
		return Result{}, common.KindError(common.ErrLaunch, err, "%s", name)
	}
	common.LogDebug("Command: %s %s", path, strings.Join(args, " "))

	if mode == Detached {
		return l.startDetached(path, args)
	}
	return l.runAttached(ctx, path, args)
}

// runAttached runs the client with inherited streams and waits for it.
// Cancelling ctx sends SIGTERM and, after StopTimeout, kills the client.
func (l *Launcher) runAttached(ctx context.Context, path string, args []string) (Result, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = l.cfg.Stdin
	cmd.Stdout = l.cfg.Stdout
	cmd.Stderr = l.cfg.Stderr
	cmd.Cancel = func() error {
		common.LogInfo("Stopping VPN client (PID %d)", cmd.Process.Pid)
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = l.cfg.StopTimeout

	if err := cmd.Start(); err != nil {
		return Result{}, common.KindError(common.ErrLaunch, err, "start %s", path)
	}
	result := Result{PID: cmd.Process.Pid}
	common.LogInfo("VPN client started with PID %d", result.PID)

	err := cmd.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		result.ExitCode = -1
		if cmd.ProcessState != nil {
			result.ExitCode = exitStatus(cmd.ProcessState)
		}
		return result, common.KindError(common.ErrInterrupted, ctxErr, "connection")
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitStatus(exitErr.ProcessState)
		common.LogWarn("VPN client exited with code %d", result.ExitCode)
		return result, nil
	}
	if err != nil {
		return result, common.KindError(common.ErrLaunch, err, "wait for %s", path)
	}

	common.LogInfo("VPN client terminated normally")
	return result, nil
}

// startDetached starts the client in a new session with its standard
// streams on /dev/null and does not wait for it.
func (l *Launcher) startDetached(path string, args []string) (Result, error) {
	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return Result{}, common.KindError(common.ErrIO, err, "open %s", os.DevNull)
	}
	defer devNull.Close()

	cmd := exec.Command(path, args...)
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull
	cmd.SysProcAttr = detachedSysProcAttr()

	if err := cmd.Start(); err != nil {
		return Result{}, common.KindError(common.ErrLaunch, err, "start %s", path)
	}

	result := Result{PID: cmd.Process.Pid}
	if err := cmd.Process.Release(); err != nil {
		common.LogWarn("Could not release VPN client process: %v", err)
	}
	common.LogInfo("VPN client detached with PID %d", result.PID)
	return result, nil
}
