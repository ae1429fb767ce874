package rblicense

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/denisbrodbeck/machineid"
	"github.com/kelseyhightower/envconfig"
)

// DataDirName is the per-user directory under os.UserConfigDir holding the
// install id and a copy of the machine code.
const DataDirName = "RollABall"

// Platform supplies the host facts the engine depends on. Implementations
// return an empty string when a value is unavailable.
type Platform interface {
	DeviceID() string
	PersistentDataDir() string
	ExeDir() string
}

// PlatformEnv holds environment overrides for SystemPlatform.
type PlatformEnv struct {
	ExeDir   string `envconfig:"EXE_DIR"`
	DataDir  string `envconfig:"DATA_DIR"`
	DeviceID string `envconfig:"DEVICE_ID"`
}

// SystemPlatform reads the device id, executable directory and per-user data
// directory from the running operating system.
type SystemPlatform struct {
	env PlatformEnv
}

// NewSystemPlatform returns a SystemPlatform honouring ROLLABALL_EXE_DIR,
// ROLLABALL_DATA_DIR and ROLLABALL_DEVICE_ID when set.
func NewSystemPlatform() (*SystemPlatform, error) {
	var env PlatformEnv
	if err := envconfig.Process("rollaball", &env); err != nil {
		return nil, fmt.Errorf("read platform environment: %w", err)
	}
	return &SystemPlatform{env: env}, nil
}

// DeviceID returns the OS machine id hashed with the product id, so the raw
// machine id never leaves the host.
func (p *SystemPlatform) DeviceID() string {
	if p.env.DeviceID != "" {
		return p.env.DeviceID
	}
	id, err := machineid.ProtectedID(ProductID)
	if err != nil {
		return ""
	}
	return id
}

func (p *SystemPlatform) PersistentDataDir() string {
	if p.env.DataDir != "" {
		return p.env.DataDir
	}
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ""
	}
	return filepath.Join(dir, DataDirName)
}

// ExeDir returns the directory containing the running executable with
// symlinks resolved.
func (p *SystemPlatform) ExeDir() string {
	if p.env.ExeDir != "" {
		return p.env.ExeDir
	}
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

// StaticPlatform is a Platform with fixed values.
type StaticPlatform struct {
	Device  string
	DataDir string
	Exe     string
}

func (p StaticPlatform) DeviceID() string          { return p.Device }
func (p StaticPlatform) PersistentDataDir() string { return p.DataDir }
func (p StaticPlatform) ExeDir() string            { return p.Exe }

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
