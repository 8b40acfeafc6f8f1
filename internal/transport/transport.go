// Package transport moves container files between the local machine and a
// remote location.
//
// Two locations are understood. An http or https URL points at a directory
// served with a small upload protocol (see HTTP). A file URL or a plain path
// points at a directory, typically one kept in sync by a cloud storage
// client (see Dir).
package transport

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/illarion/upm/internal/syncer"
)

// Config carries what ForLocation needs besides the location
type Config struct {
	Username string
	Password string
	Timeout  time.Duration
	Logger   *zap.Logger
}

// ForLocation returns the transport serving location
func ForLocation(location string, cfg Config) (syncer.Transport, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, syncer.ErrNoRemote
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// plain path, a single letter scheme is a Windows drive
		return NewDir(location, logger), nil
	}

	switch u.Scheme {
	case "http", "https":
		opts := []HTTPOption{WithLogger(logger)}
		if cfg.Username != "" {
			opts = append(opts, WithCredentials(cfg.Username, cfg.Password))
		}
		if cfg.Timeout > 0 {
			opts = append(opts, WithTimeout(cfg.Timeout))
		}
		h, err := NewHTTP(location, opts...)
		if err != nil {
			return nil, err
		}
		return h, nil
	case "file":
		return NewDir(u.Path, logger), nil
	default:
		return nil, fmt.Errorf("unsupported remote location scheme %q", u.Scheme)
	}
}
