package cache

import "fmt"

// A ConfigurationError reports a cache configuration that cannot be built.
type ConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid cache configuration: %s=%v: %s",
		e.Field, e.Value, e.Reason)
}

// An InvalidAddressError reports an address that cannot be decoded. The
// access that carries it is rejected without touching the cache.
type InvalidAddressError struct {
	Input  string
	Reason string
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid address %q: %s", e.Input, e.Reason)
}
