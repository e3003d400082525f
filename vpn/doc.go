// Package vpn provides the definition and connection functionality for vpnonline.
//
// This package implements:
//
//   - Definition cache: a directory of OpenVPN definition files, filled
//     from the remote archive on first use and replaced atomically
//   - Fetching: downloading and flattening the definition zip archive
//   - Search: 1-based indexing, AND keyword filtering and highlighting
//   - Launching: running the openvpn client attached or detached
//   - Teardown: idempotent removal of definitions, credentials or all state
//
// # Connection Flow
//
//  1. Cache.EnsurePopulated lists the definitions, fetching them if needed
//  2. Index numbers them; Search narrows them down by keyword
//  3. Launcher.Connect resolves the chosen index and starts openvpn with
//     the definition and the credentials' auth file
//
// # Ordering
//
// Definitions are ordered by file name. Index, Search and Resolve all use
// that order, so an index printed by a listing connects to the same
// definition as long as the cache is not reset.
package vpn
