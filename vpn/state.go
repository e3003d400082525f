package vpn

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/yllada/vpnonline/common"
)

// ownedEntries are the names ResetAll removes from the state directory.
// Anything else in it belongs to someone else and is left alone.
var ownedEntries = []string{
	common.DefinitionsDirName,
	common.CredentialsFileName,
	common.ConfigFileName,
	common.RunDirName,
	common.LogDirName,
}

// CredentialResetter removes stored credentials.
type CredentialResetter interface {
	Delete() error
}

// State groups the persisted pieces under the local state directory so
// they can be torn down individually or together.
type State struct {
	root        string
	cache       *Cache
	credentials CredentialResetter
}

// NewState creates a State rooted at root.
func NewState(root string, cache *Cache, credentials CredentialResetter) *State {
	return &State{root: root, cache: cache, credentials: credentials}
}

// Root returns the state directory.
func (s *State) Root() string {
	return s.root
}

// ResetDefinitions removes the definition cache.
func (s *State) ResetDefinitions() error {
	return s.cache.Reset()
}

// ResetCredentials removes the stored credentials.
func (s *State) ResetCredentials() error {
	if err := s.credentials.Delete(); err != nil {
		return err
	}
	common.LogInfo("Removed stored credentials")
	return nil
}

// ResetAll removes the credentials and every entry vpnonline keeps in the
// state directory, then the directory itself once it is empty.
func (s *State) ResetAll() error {
	// credentials may live outside the directory, e.g. in the keyring
	if err := s.credentials.Delete(); err != nil {
		return err
	}
	if err := s.cache.Reset(); err != nil {
		return err
	}

	for _, name := range ownedEntries {
		if err := common.RemoveTree(filepath.Join(s.root, name)); err != nil {
			return err
		}
	}
	// staging directories left behind by an interrupted fetch
	staging, _ := filepath.Glob(filepath.Join(s.root, "."+common.DefinitionsDirName+"-*"))
	for _, dir := range staging {
		if err := common.RemoveTree(dir); err != nil {
			return err
		}
	}

	remaining, err := os.ReadDir(s.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return common.KindError(common.ErrIO, err, "read %s", s.root)
	}
	if len(remaining) > 0 {
		common.LogWarn("Kept %s, it contains %d entries not created by %s", s.root, len(remaining), common.AppName)
		return nil
	}
	if err := common.RemoveIfExists(s.root); err != nil {
		return err
	}
	common.LogInfo("Removed %s", s.root)
	return nil
}
