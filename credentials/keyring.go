package credentials

import (
	"errors"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/zalando/go-keyring"

	"github.com/yllada/vpnonline/common"
)

// keyringUser is the account name under which the encoded pair is stored.
const keyringUser = "credentials"

// KeyringStore keeps credentials in the system keyring (Secret Service,
// macOS Keychain or Windows Credential Manager).
type KeyringStore struct {
	service string
	runDir  string
}

// NewKeyringStore creates a keyring store. Auth files for the VPN client
// are materialized under runDir.
func NewKeyringStore(service, runDir string) *KeyringStore {
	return &KeyringStore{service: service, runDir: runDir}
}

// Available probes the keyring by writing and deleting a test entry.
func (s *KeyringStore) Available() bool {
	testKey := s.service + "-test-init"
	if err := keyring.Set(s.service, testKey, "test"); err != nil {
		common.LogDebug("Keyring unavailable: %v", err)
		return false
	}
	keyring.Delete(s.service, testKey)
	return true
}

// Load reads the credentials from the keyring.
func (s *KeyringStore) Load() (*Credentials, error) {
	secret, err := keyring.Get(s.service, keyringUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, common.KindError(common.ErrIO, err, "read keyring")
	}

	creds, err := Parse([]byte(secret))
	if err != nil {
		return nil, common.KindError(common.ErrIO, err, "read keyring")
	}
	return creds, nil
}

// Save stores the credentials in the keyring.
func (s *KeyringStore) Save(creds Credentials) error {
	if err := creds.Validate(); err != nil {
		return common.KindError(common.ErrIO, err, "invalid credentials")
	}
	if err := keyring.Set(s.service, keyringUser, string(creds.Encode())); err != nil {
		return common.KindError(common.ErrIO, err, "write keyring")
	}
	return nil
}

// Delete removes the keyring entry and any auth files left behind by
// detached connections.
func (s *KeyringStore) Delete() error {
	if err := keyring.Delete(s.service, keyringUser); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return common.KindError(common.ErrIO, err, "delete keyring entry")
	}
	return common.RemoveTree(s.runDir)
}

// AuthFile writes the credentials to a private temporary file under the
// run directory. The cleanup function removes it.
func (s *KeyringStore) AuthFile() (string, func(), error) {
	creds, err := s.Load()
	if err != nil {
		return "", nil, err
	}

	if err := common.EnsureDir(s.runDir); err != nil {
		return "", nil, err
	}

	path := filepath.Join(s.runDir, uuid.NewString()+".auth")
	if err := common.WritePrivateFile(path, creds.Encode()); err != nil {
		return "", nil, err
	}
	common.LogDebug("Credentials file created: %s", path)

	cleanup := func() {
		if err := common.RemoveIfExists(path); err != nil {
			common.LogWarn("Could not remove credentials file: %v", err)
			return
		}
		common.LogDebug("Credentials file deleted")
	}
	return path, cleanup, nil
}
