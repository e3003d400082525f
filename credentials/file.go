package credentials

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/yllada/vpnonline/common"
)

// FileStore keeps credentials in a plain two-line file with owner-only
// permissions. The VPN client reads this file directly.
type FileStore struct {
	path string
}

// NewFileStore creates a file store for the given path, usually
// <state dir>/credentials.txt.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the credentials file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the credentials file.
func (s *FileStore) Load() (*Credentials, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, common.KindError(common.ErrIO, err, "read credentials")
	}

	creds, err := Parse(data)
	if err != nil {
		return nil, common.KindError(common.ErrIO, err, "read %s", s.path)
	}
	return creds, nil
}

// Save writes the credentials file, creating the state directory if needed.
func (s *FileStore) Save(creds Credentials) error {
	if err := creds.Validate(); err != nil {
		return common.KindError(common.ErrIO, err, "invalid credentials")
	}
	if err := common.EnsureDir(filepath.Dir(s.path)); err != nil {
		return err
	}
	return common.WritePrivateFile(s.path, creds.Encode())
}

// Delete removes the credentials file.
func (s *FileStore) Delete() error {
	return common.RemoveIfExists(s.path)
}

// AuthFile returns the credentials file itself; there is nothing to clean up.
func (s *FileStore) AuthFile() (string, func(), error) {
	if !common.FileExists(s.path) {
		return "", nil, ErrNotFound
	}
	return s.path, func() {}, nil
}
