//go:build unix

package vpn

import (
	"os"
	"syscall"
)

// detachedSysProcAttr puts the client in its own session so it survives
// the terminal and this process.
func detachedSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}

// exitStatus returns the exit code of a finished client, or 128+signo
// when a signal killed it, as shells report it.
func exitStatus(state *os.ProcessState) int {
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return state.ExitCode()
}
