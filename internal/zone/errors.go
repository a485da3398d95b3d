package zone

import (
	"errors"
	"fmt"
)

// ErrInvalidZone is matched by every ConfigurationError.
var ErrInvalidZone = errors.New("invalid zone")

// ConfigurationError reports a zone definition rejected at registration time.
type ConfigurationError struct {
	Zone   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("zone %q: %s", e.Zone, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrInvalidZone
}
