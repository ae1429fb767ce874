package rblicense

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InstallIDStore hands out the random identifier of this installation,
// creating and persisting it on first use.
type InstallIDStore struct {
	platform Platform
	logger   *zap.Logger
}

// NewInstallIDStore creates an InstallIDStore rooted in the platform's
// persistent data directory.
func NewInstallIDStore(platform Platform, logger *zap.Logger) *InstallIDStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstallIDStore{platform: platform, logger: logger}
}

// GetOrCreate returns the persisted install id, generating a new 128-bit
// hex id when none exists yet. Failures are logged and yield "" so machine
// code generation degrades instead of failing.
func (s *InstallIDStore) GetOrCreate() string {
	dir := s.platform.PersistentDataDir()
	if blank(dir) {
		s.logger.Debug("install id unavailable", zap.Error(ErrNoDirectory))
		return ""
	}

	path := filepath.Join(dir, InstallIDFileName)
	data, err := os.ReadFile(path)
	if err == nil {
		return strings.TrimSpace(string(data))
	}
	if !os.IsNotExist(err) {
		s.logger.Warn("read install id", zap.String("path", path), zap.Error(err))
		return ""
	}

	id := newInstallID()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		s.logger.Warn("create data dir", zap.String("path", dir), zap.Error(err))
		return ""
	}
	if err := os.WriteFile(path, []byte(id), 0o600); err != nil {
		s.logger.Warn("write install id", zap.String("path", path), zap.Error(err))
		return ""
	}
	s.logger.Info("created install id", zap.String("path", path))
	return id
}

func newInstallID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
