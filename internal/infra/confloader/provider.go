package confloader

import (
	"errors"

	"github.com/knadh/koanf/maps"
)

// ErrReadBytesNotSupported is returned when ReadBytes is called on a map provider.
var ErrReadBytesNotSupported = errors.New("confloader: map provider does not support ReadBytes")

// mapProvider loads configuration from a map. Keys may be nested maps or
// dotted paths ("tls.ca_file").
type mapProvider map[string]any

// ReadBytes returns ErrReadBytesNotSupported.
func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, ErrReadBytesNotSupported
}

// Read returns the map with dotted keys expanded.
func (m mapProvider) Read() (map[string]any, error) {
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return maps.Unflatten(cp, "."), nil
}
