// Package common provides shared constants, types, and utilities
// used across the vpnonline application.
package common

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
)

// CurrentUser returns the name of the user the tool acts for.
// Under sudo this is the invoking user, not root.
func CurrentUser() string {
	if u := os.Getenv("SUDO_USER"); u != "" {
		return u
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}

// HasSudo reports whether the process was started through sudo.
func HasSudo() bool {
	_, ok := os.LookupEnv("SUDO_UID")
	return ok
}

// IsRoot reports whether the process runs with an effective uid of 0.
func IsRoot() bool {
	return os.Geteuid() == 0
}

// DefaultStateDir returns ~<user>/.vpnonline for the user returned by CurrentUser.
func DefaultStateDir() (string, error) {
	if name := CurrentUser(); name != "" {
		if u, err := user.Lookup(name); err == nil && u.HomeDir != "" {
			return filepath.Join(u.HomeDir, StateDirName), nil
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", WrapError(err, "failed to get home directory")
	}
	return filepath.Join(homeDir, StateDirName), nil
}

// EnsureDir ensures a private directory exists, creating it if necessary.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, StateDirPerm); err != nil {
		return KindError(ErrIO, err, "create directory %s", path)
	}
	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// RemoveIfExists removes a file, treating a missing file as success.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return KindError(ErrIO, err, "remove %s", path)
	}
	return nil
}

// RemoveTree removes a directory tree. os.RemoveAll already succeeds on
// missing paths.
func RemoveTree(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return KindError(ErrIO, err, "remove %s", path)
	}
	return nil
}

// WritePrivateFile writes data to path with owner-only permissions, also
// tightening the mode of an already existing file.
func WritePrivateFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, PrivateFilePerm); err != nil {
		return KindError(ErrIO, err, "write %s", path)
	}
	if err := os.Chmod(path, PrivateFilePerm); err != nil {
		return KindError(ErrIO, err, "chmod %s", path)
	}
	return nil
}

// FormatIndex renders a 1-based list index the way listings print it.
func FormatIndex(i int) string {
	return fmt.Sprintf("%-3d", i)
}
