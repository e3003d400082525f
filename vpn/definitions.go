// Package vpn provides VPN connection management functionality.
// This file contains the Definition type and the on-disk Cache that
// holds fetched definitions.
package vpn

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/yllada/vpnonline/common"
)

// Definition is one OpenVPN configuration file in the cache.
type Definition struct {
	// Name is the file name, used as the display name.
	Name string
	// Path is the absolute path handed to the VPN client.
	Path string
}

// File is a definition as produced by a Fetcher, before it is cached.
type File struct {
	Name string
	Data []byte
}

// Fetcher retrieves the complete set of definitions from a remote source.
type Fetcher interface {
	Fetch(ctx context.Context) ([]File, error)
}

// Cache is a directory of definition files populated from a Fetcher on
// first use.
type Cache struct {
	dir           string
	extensions    []string
	brokenOptions []string
	fetcher       Fetcher
}

// NewCache creates a cache rooted at dir. Only files with one of the given
// extensions count as definitions; lines containing any of brokenOptions
// are dropped from fetched definitions.
func NewCache(dir string, extensions, brokenOptions []string, fetcher Fetcher) *Cache {
	return &Cache{
		dir:           dir,
		extensions:    extensions,
		brokenOptions: brokenOptions,
		fetcher:       fetcher,
	}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// List returns the cached definitions ordered by file name. A missing or
// empty directory yields an empty list.
func (c *Cache) List() ([]Definition, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, common.KindError(common.ErrIO, err, "read definitions")
	}

	// os.ReadDir returns entries sorted by file name
	defs := make([]Definition, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || !hasExtension(e.Name(), c.extensions) {
			continue
		}
		defs = append(defs, Definition{
			Name: e.Name(),
			Path: filepath.Join(c.dir, e.Name()),
		})
	}
	return defs, nil
}

// EnsurePopulated lists the cache, fetching and installing the definitions
// first when it is empty. A failed fetch leaves the cache untouched.
func (c *Cache) EnsurePopulated(ctx context.Context) ([]Definition, error) {
	defs, err := c.List()
	if err != nil || len(defs) > 0 {
		return defs, err
	}

	common.LogInfo("Definition cache %s is empty, fetching definitions", c.dir)
	files, err := c.fetcher.Fetch(ctx)
	if err != nil {
		if errors.Is(err, common.ErrFetch) {
			return nil, err
		}
		return nil, common.KindError(common.ErrFetch, err, "fetch")
	}

	if err := c.install(files); err != nil {
		return nil, err
	}
	return c.List()
}

// install writes files into a staging directory next to the cache and
// renames it into place, so the cache is either complete or unchanged.
func (c *Cache) install(files []File) (err error) {
	parent := filepath.Dir(c.dir)
	if err := common.EnsureDir(parent); err != nil {
		return err
	}

	staging := filepath.Join(parent, fmt.Sprintf(".%s-%s", filepath.Base(c.dir), uuid.NewString()))
	if err := os.Mkdir(staging, common.StateDirPerm); err != nil {
		return common.KindError(common.ErrIO, err, "create staging directory")
	}
	defer func() {
		if err != nil {
			os.RemoveAll(staging)
		}
	}()

	written := 0
	for _, f := range files {
		name := filepath.Base(filepath.Clean("/" + f.Name))
		if name == "/" || name == "." || !hasExtension(name, c.extensions) {
			common.LogDebug("Skipping %q", f.Name)
			continue
		}
		data := FixDefinition(f.Data, c.brokenOptions)
		if err := os.WriteFile(filepath.Join(staging, name), data, common.DefinitionPerm); err != nil {
			return common.KindError(common.ErrIO, err, "write definition %s", name)
		}
		written++
	}

	if written == 0 {
		return common.KindError(common.ErrFetch, nil, "source returned no definitions")
	}

	// the directory may exist without any definitions in it
	if err := os.RemoveAll(c.dir); err != nil {
		return common.KindError(common.ErrIO, err, "clear %s", c.dir)
	}
	if err := os.Rename(staging, c.dir); err != nil {
		return common.KindError(common.ErrIO, err, "install definitions")
	}

	common.LogInfo("Installed %d definitions into %s", written, c.dir)
	return nil
}

// Reset removes the cache directory. Removing a missing cache succeeds.
func (c *Cache) Reset() error {
	if err := common.RemoveTree(c.dir); err != nil {
		return err
	}
	common.LogInfo("Removed definitions from %s", c.dir)
	return nil
}

// FixDefinition drops every line that mentions one of the broken options.
// The data is returned unchanged when nothing matches.
func FixDefinition(data []byte, brokenOptions []string) []byte {
	if len(brokenOptions) == 0 {
		return data
	}

	lines := bytes.SplitAfter(data, []byte("\n"))
	fixed := make([][]byte, 0, len(lines))
	for _, line := range lines {
		if containsAny(line, brokenOptions) {
			continue
		}
		fixed = append(fixed, line)
	}

	if len(fixed) == len(lines) {
		return data
	}
	return bytes.Join(fixed, nil)
}

func containsAny(line []byte, options []string) bool {
	for _, opt := range options {
		if opt != "" && bytes.Contains(line, []byte(opt)) {
			return true
		}
	}
	return false
}

func hasExtension(name string, extensions []string) bool {
	ext := filepath.Ext(name)
	for _, e := range extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}
