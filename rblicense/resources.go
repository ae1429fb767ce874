package rblicense

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
)

// ResourceLoader loads a named text resource bundled with the client. A
// missing resource is reported with an error matching fs.ErrNotExist.
type ResourceLoader interface {
	LoadText(name string) (string, error)
}

// FSResources resolves logical resource names inside an fs.FS. A name matches
// either a file with exactly that name or one with that name plus any
// extension, so "license_public_key" finds "license_public_key.xml".
type FSResources struct {
	fsys fs.FS
}

// NewFSResources wraps fsys as a ResourceLoader.
func NewFSResources(fsys fs.FS) *FSResources {
	return &FSResources{fsys: fsys}
}

func (r *FSResources) LoadText(name string) (string, error) {
	if r == nil || r.fsys == nil {
		return "", fmt.Errorf("load resource %q: %w", name, fs.ErrNotExist)
	}

	data, err := fs.ReadFile(r.fsys, name)
	if err == nil {
		return string(data), nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("load resource %q: %w", name, err)
	}

	matches, err := fs.Glob(r.fsys, path.Clean(name)+".*")
	if err != nil {
		return "", fmt.Errorf("load resource %q: %w", name, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("load resource %q: %w", name, fs.ErrNotExist)
	}
	sort.Strings(matches)

	data, err = fs.ReadFile(r.fsys, matches[0])
	if err != nil {
		return "", fmt.Errorf("load resource %q: %w", name, err)
	}
	return string(data), nil
}
