package rblicense

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Service is the top-level orchestrator combining the license file, key
// parsing, signature verification and payload policy into the operations
// the game's activation menu needs.
//
// A Service holds no activation state: every call re-reads the file system,
// so replacing or deleting license.key takes effect on the next check.
type Service struct {
	platform   Platform
	resources  ResourceLoader
	store      *FileStore
	installIDs *InstallIDStore
	verifier   *Verifier
	policy     *Policy

	productID string
	keyPrefix string
	mode      BuildMode
	now       func() time.Time
	logger    *zap.Logger
}

// NewService creates a Service for the given platform and bundled resources.
func NewService(platform Platform, resources ResourceLoader, opts ...Option) *Service {
	s := &Service{
		platform:  platform,
		resources: resources,
		productID: ProductID,
		keyPrefix: KeyPrefix,
		mode:      Shipping,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.store = NewFileStore(platform)
	s.installIDs = NewInstallIDStore(platform, s.logger)
	s.verifier = NewVerifier(resources, PublicKeyResourceName)
	s.policy = NewPolicy(s.productID)
	return s
}

// Store exposes the underlying license file store.
func (s *Service) Store() *FileStore {
	return s.store
}

// GetMachineCode returns this installation's machine code, creating the
// install id on first use.
func (s *Service) GetMachineCode() string {
	return MachineCode(s.productID, s.installIDs.GetOrCreate(), s.platform.DeviceID())
}

// IsActivated runs the full activation check against the license file.
func (s *Service) IsActivated() (bool, string) {
	r := s.Status()
	return r.Activated, r.Reason
}

// Status runs the full activation check against the license file and
// returns the detailed result. On any failure the machine code file is
// written if it does not exist yet.
func (s *Service) Status() Result {
	if r, ok := developmentBypass(s.mode); ok {
		return r
	}

	key, path, err := s.store.Load()
	switch {
	case errors.Is(err, ErrLicenseFileEmpty):
		s.ensureMachineCodeFile()
		return Result{Reason: reasonEmptyFile + path, Err: err, Path: path}
	case err != nil:
		s.logger.Debug("license file not loaded", zap.Error(err))
		s.ensureMachineCodeFile()
		return Result{Reason: reasonNotFound, Err: err}
	}

	r := s.Validate(key)
	r.Path = path
	if r.Activated {
		return r
	}

	s.logger.Info("license file rejected",
		zap.String("path", path),
		zap.String("key", maskKey(key)),
		zap.Error(r.Err),
	)
	s.ensureMachineCodeFile()
	r.Reason = fmt.Sprintf("%s%s (%s)", reasonInvalidFile, path, r.Reason)
	return r
}

// TryValidateActivationKey validates a candidate key without touching the
// license file.
func (s *Service) TryValidateActivationKey(text string) (bool, string) {
	r := s.Validate(text)
	return r.Activated, r.Reason
}

// Validate parses, verifies and checks a candidate key.
func (s *Service) Validate(text string) Result {
	payload, err := s.validate(text)
	if err != nil {
		return Result{Reason: Reason(err), Err: err, Payload: payload}
	}
	return Result{Activated: true, Reason: Reason(nil), Payload: payload}
}

func (s *Service) validate(text string) (*ActivationPayload, error) {
	key, err := parseActivationKey(text, s.keyPrefix)
	if err != nil {
		return nil, err
	}

	ok, err := s.verifier.Verify(key.Payload, key.Signature)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSignatureInvalid
	}

	return s.policy.Check(key.Payload, s.GetMachineCode(), s.now())
}

// SaveActivationKey persists key as the license file. The key is not
// validated; callers are expected to run TryValidateActivationKey first.
func (s *Service) SaveActivationKey(key string) {
	if err := s.store.Save(key); err != nil {
		s.logger.Warn("save activation key", zap.Error(err))
	}
}

// ClearActivationKey deletes the license file if present.
func (s *Service) ClearActivationKey() {
	if err := s.store.Clear(); err != nil {
		s.logger.Warn("clear activation key", zap.Error(err))
	}
}

func (s *Service) ensureMachineCodeFile() {
	if err := s.store.WriteMachineCodeIfAbsent(s.GetMachineCode()); err != nil {
		s.logger.Warn("write machine code file", zap.Error(err))
	}
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
