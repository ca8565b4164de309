package settlement

import (
	"log/slog"
	"time"
)

type Option func(s *Service)

// WithLogger specifies the logger for the service
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithAdmins specifies the identities allowed to perform admin actions
func WithAdmins(ids ...string) Option {
	return func(s *Service) {
		for _, id := range ids {
			if id != "" {
				s.admins[id] = struct{}{}
			}
		}
	}
}

// withClock overrides the service clock
func withClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}
