//go:build !linux

package dns

import (
	"fmt"
	"runtime"
)

// New returns the resolver backend for this operating system.
func New(Options) (ResolverSystem, error) {
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, runtime.GOOS)
}
