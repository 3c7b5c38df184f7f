package dns

import (
	"context"
	"errors"
)

var (
	// ErrUnsupportedPlatform is returned by New on operating systems without a backend.
	ErrUnsupportedPlatform = errors.New("no resolver backend for this platform")
	// ErrRestoreFailed is returned by Restore when the saved copy could not be put back.
	ErrRestoreFailed = errors.New("resolver configuration not restored")
)

// ResolverSystem is the per operating system resolver backend.
type ResolverSystem interface {
	// Name returns the name of this backend
	Name() string

	// BeginUpdateResolvers starts a session that rewrites the system resolver
	// list. The caller must End the returned session.
	BeginUpdateResolvers(ctx context.Context) (*Session, error)

	// GetSystemResolverList returns the resolver configuration as displayable text
	GetSystemResolverList() string

	// CurrentResolvers returns the nameservers currently configured
	CurrentResolvers() ([]string, error)

	// Startup preserves the resolver configuration before the service runs
	Startup()

	// Shutdown restores the configuration saved by Startup
	Shutdown()

	// Restore puts back the saved configuration and reports failure
	Restore() error

	// BootstrapT1Path locates the T1 server seed list
	BootstrapT1Path() string

	// BootstrapDomainsPath locates the domain seed list
	BootstrapDomainsPath() string
}

// Options configures a backend.
type Options struct {
	// Storage defaults to the real filesystem
	Storage Storage

	// BootstrapStorage is where the bootstrap files are looked up. It stays
	// on the real filesystem when Storage is replaced for a simulated run.
	BootstrapStorage Storage

	// ResolvConfPath is the resolver configuration file
	ResolvConfPath string

	// BackupPath receives the copy made at startup
	BackupPath string

	// BootstrapOverrides maps T1BootstrapVariable / DomainsBootstrapVariable to paths
	BootstrapOverrides map[string]string

	// Interfaces captures the interface snapshot at the start of each session
	Interfaces InterfaceLister

	// Bus checks which resolver managers are running
	Bus ManagerBus
}

func (o Options) withDefaults() Options {
	if o.Storage == nil {
		o.Storage = NewOSStorage()
	}
	if o.BootstrapStorage == nil {
		o.BootstrapStorage = NewOSStorage()
	}
	if o.ResolvConfPath == "" {
		o.ResolvConfPath = defaultResolvConfPath
	}
	if o.BackupPath == "" {
		o.BackupPath = defaultBackupPath
	}
	if o.Interfaces == nil {
		o.Interfaces = defaultInterfaceLister()
	}
	if o.Bus == nil {
		o.Bus = SystemManagerBus{}
	}
	return o
}
