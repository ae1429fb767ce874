package rblicense

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
)

// FileStore persists the activation key next to the executable and writes
// the machine code file used for manual activation requests.
//
// Every method reports failures as errors; callers decide whether to surface
// or ignore them.
type FileStore struct {
	platform Platform
}

// NewFileStore creates a FileStore for platform.
func NewFileStore(platform Platform) *FileStore {
	return &FileStore{platform: platform}
}

// LicensePath returns the license file location, or "" when the executable
// directory is unknown.
func (s *FileStore) LicensePath() string {
	dir := s.platform.ExeDir()
	if blank(dir) {
		return ""
	}
	return filepath.Join(dir, LicenseFileName)
}

// Load returns the trimmed license file content and its path.
// ErrLicenseFileNotFound is returned when the file is absent or unreadable.
// ErrLicenseFileEmpty is returned, together with the path, when the file
// exists but holds only whitespace.
func (s *FileStore) Load() (string, string, error) {
	path := s.LicensePath()
	if path == "" {
		return "", "", fmt.Errorf("%w: %w", ErrLicenseFileNotFound, ErrNoDirectory)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrLicenseFileNotFound, err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", path, ErrLicenseFileEmpty
	}
	return text, path, nil
}

// Save writes the trimmed key to the license file. A blank key is ignored.
func (s *FileStore) Save(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	path := s.LicensePath()
	if path == "" {
		return fmt.Errorf("save license: %w", ErrNoDirectory)
	}
	if err := os.WriteFile(path, []byte(key), 0o600); err != nil {
		return fmt.Errorf("save license: %w", err)
	}
	return nil
}

// Clear deletes the license file. A missing file is not an error.
func (s *FileStore) Clear() error {
	path := s.LicensePath()
	if path == "" {
		return fmt.Errorf("clear license: %w", ErrNoDirectory)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear license: %w", err)
	}
	return nil
}

// MachineCodePaths returns the locations of the machine code file, skipping
// directories the platform cannot provide.
func (s *FileStore) MachineCodePaths() []string {
	var paths []string
	for _, dir := range []string{s.platform.ExeDir(), s.platform.PersistentDataDir()} {
		if blank(dir) {
			continue
		}
		paths = append(paths, filepath.Join(dir, MachineCodeFileName))
	}
	return paths
}

// WriteMachineCodeIfAbsent writes code to the machine code file in the
// executable directory and in the persistent data directory. An existing
// file is never overwritten. Errors from both locations are combined.
func (s *FileStore) WriteMachineCodeIfAbsent(code string) error {
	if blank(code) {
		return nil
	}

	var errs error
	for _, path := range s.MachineCodePaths() {
		errs = multierr.Append(errs, writeIfAbsent(path, code))
	}
	return errs
}

func writeIfAbsent(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil
		}
		return fmt.Errorf("write %s: %w", path, err)
	}
	_, werr := f.WriteString(content)
	return multierr.Combine(wrapPath(path, werr), wrapPath(path, f.Close()))
}

func wrapPath(path string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("write %s: %w", path, err)
}
