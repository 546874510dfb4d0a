package transport

import (
	"fmt"
	"strings"

	uuid "github.com/satori/go.uuid"
)

// Fixed GATT identifiers of the EPD firmware.
const (
	ServiceUUID = "62750001-d828-918d-fb46-b6c11c675aec"
	ControlUUID = "62750002-d828-918d-fb46-b6c11c675aec"
	VersionUUID = "62750003-d828-918d-fb46-b6c11c675aec"
)

// Identifiers names the service and characteristics a binding must reach.
type Identifiers struct {
	// Service is the primary EPD service
	Service string

	// Control carries commands and telemetry notifications
	Control string

	// Version is read once after discovery to learn the firmware major version
	Version string
}

// DefaultIdentifiers returns the identifiers used by stock firmware.
func DefaultIdentifiers() Identifiers {
	return Identifiers{
		Service: ServiceUUID,
		Control: ControlUUID,
		Version: VersionUUID,
	}
}

// Validate checks that every identifier is a well formed UUID.
func (ids Identifiers) Validate() error {
	_, err := ids.Normalize()
	return err
}

// Normalize returns the identifiers in canonical lowercase form.
func (ids Identifiers) Normalize() (Identifiers, error) {
	var out Identifiers
	fields := []struct {
		name string
		in   string
		out  *string
	}{
		{"service", ids.Service, &out.Service},
		{"control", ids.Control, &out.Control},
		{"version", ids.Version, &out.Version},
	}

	for _, f := range fields {
		u, err := uuid.FromString(strings.TrimSpace(f.in))
		if err != nil {
			return Identifiers{}, fmt.Errorf("invalid %s UUID %q: %w", f.name, f.in, err)
		}
		*f.out = u.String()
	}
	return out, nil
}

// Equal reports whether two UUID strings name the same identifier.
func Equal(a, b string) bool {
	ua, err := uuid.FromString(a)
	if err != nil {
		return false
	}
	ub, err := uuid.FromString(b)
	if err != nil {
		return false
	}
	return uuid.Equal(ua, ub)
}
