//go:build !unix

package vpn

import (
	"os"
	"syscall"
)

func detachedSysProcAttr() *syscall.SysProcAttr {
	return nil
}

func exitStatus(state *os.ProcessState) int {
	return state.ExitCode()
}
