package rblicense

import (
	"time"

	"go.uber.org/zap"
)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for swallowed I/O failures. Default: no-op.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithBuildMode sets the build mode. Development is ignored unless the binary
// was built with the rollaball_dev tag.
func WithBuildMode(m BuildMode) Option {
	return func(s *Service) {
		s.mode = m
	}
}

// WithProductID overrides the product the service accepts keys for.
func WithProductID(id string) Option {
	return func(s *Service) {
		s.productID = id
	}
}

// WithKeyPrefix overrides the activation key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *Service) {
		s.keyPrefix = prefix
	}
}
