// Package common provides shared constants, types, and utilities
// used across the vpnonline application.
package common

import "time"

// Application metadata.
const (
	// AppName is the display name of the application.
	AppName = "vpnonline"
	// StateDirName is the name of the local state directory under the user's home.
	StateDirName = ".vpnonline"
	// EnvPrefix is the prefix of environment variables read by the configuration loader.
	EnvPrefix = "VPNONLINE"
	// KeyringService is the service identifier used in the system keyring.
	KeyringService = "vpnonline"
)

// File and directory names inside the state directory.
const (
	DefinitionsDirName  = "definitions"
	CredentialsFileName = "credentials.txt"
	ConfigFileName      = "config.yaml"
	RunDirName          = "run"
	LogDirName          = "logs"
	LogFileName         = "vpnonline.log"
)

// Permissions for files and directories written to the state directory.
const (
	StateDirPerm    = 0700
	PrivateFilePerm = 0600
	DefinitionPerm  = 0600
)

// Definition source defaults.
const (
	// DefaultDefinitionsURL is the archive with the OpenVPN definitions for Linux.
	DefaultDefinitionsURL = "https://vpnonline.pl/download/OpenVPN_config_Linux.zip"
	// DefaultUserAgent is sent with the archive request; the server rejects bare clients.
	DefaultUserAgent = "Mozilla/5.0"
	// DefaultFetchTimeout bounds the single archive download attempt.
	DefaultFetchTimeout = 60 * time.Second
	// DefinitionExtension is the extension of OpenVPN definition files.
	DefinitionExtension = ".ovpn"
)

// BrokenDefinitionOptions are directives removed from fetched definitions.
// block-outside-dns is Windows only and makes the Linux client refuse the file.
var BrokenDefinitionOptions = []string{"block-outside-dns"}

// Client defaults.
const (
	// DefaultClientBinary is the external VPN client executable.
	DefaultClientBinary = "openvpn"
	// DefaultStopTimeout is how long an interrupted client gets to exit
	// after SIGTERM before it is killed.
	DefaultStopTimeout = 10 * time.Second
)

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Credential backends.
const (
	CredentialBackendFile    = "file"
	CredentialBackendKeyring = "keyring"
)

// Logging defaults.
const (
	DefaultMaxLogFileSize = 5 * 1024 * 1024 // 5MB
	DefaultMaxLogBackups  = 5
)
