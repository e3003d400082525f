// Package common provides shared constants, types, and utilities
// used throughout the vpnonline application.
//
// This package serves as the foundation for cross-cutting concerns:
//
//   - Constants: file names, permissions, definition source and client defaults
//   - Errors: sentinel error kinds (ErrIO, ErrFetch, ErrIndex, ErrLaunch,
//     ErrInterrupted) and their mapping to process exit codes
//   - Logger: logrus-backed logging to stderr with an optional rotating file
//   - Utils: state directory resolution and idempotent file removal
//
// # Usage
//
//	common.LogInfo("Fetching definitions from %s", url)
//
//	if errors.Is(err, common.ErrIndex) {
//	    // selection out of range
//	}
package common
