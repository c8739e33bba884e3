package reflection

import (
	"errors"
	"fmt"
)

// ErrUnknownType is returned when a type name is not present in the registry.
var ErrUnknownType = errors.New("unknown type")

// ErrNoAccessor is returned when a relationship access is attempted through
// a name with no installed accessor.
var ErrNoAccessor = errors.New("no relationship accessor")

// ConfigurationError is raised at declaration time for an invalid
// relationship declaration: a malformed name, an unknown option key, or a
// duplicate definition. Declarations fail fast so configuration mistakes
// never surface at first use.
type ConfigurationError struct {
	Owner  string
	Name   string
	Detail string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid relationship declaration %s.%s: %s", e.Owner, e.Name, e.Detail)
}

// IsConfigurationError returns true if the error is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
