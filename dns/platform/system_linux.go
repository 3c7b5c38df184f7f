//go:build linux

package dns

// New returns the resolver backend for this operating system.
func New(opts Options) (ResolverSystem, error) {
	return NewLinuxSystem(opts), nil
}
