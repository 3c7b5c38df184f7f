package dns

import (
	"context"
	"fmt"

	"github.com/ducbang/OpenNIC-Wizard/logger"
)

// LinuxSystem manages resolvers by rewriting the resolver configuration file
// directly. The file is copied aside at Startup and put back at Shutdown.
type LinuxSystem struct {
	storage    Storage
	store      *ResolverFileStore
	cache      *CacheGuard
	paths      *PathResolver
	interfaces InterfaceLister
	bus        ManagerBus
	gate       gate
}

// NewLinuxSystem creates the file based backend.
func NewLinuxSystem(opts Options) *LinuxSystem {
	opts = opts.withDefaults()

	return &LinuxSystem{
		storage:    opts.Storage,
		store:      NewResolverFileStore(opts.Storage, opts.ResolvConfPath),
		cache:      NewCacheGuard(opts.Storage, opts.ResolvConfPath, opts.BackupPath),
		paths:      NewPathResolver(opts.BootstrapStorage, opts.BootstrapOverrides),
		interfaces: opts.Interfaces,
		bus:        opts.Bus,
		gate:       newGate(),
	}
}

// Name returns the backend name
func (l *LinuxSystem) Name() string {
	return "linux-resolvconf"
}

// BeginUpdateResolvers blocks until no other session or cache operation is
// running, then returns an active session.
func (l *LinuxSystem) BeginUpdateResolvers(ctx context.Context) (*Session, error) {
	session := newSession(l.store, l.interfaces, l.gate)
	if err := session.Begin(ctx); err != nil {
		return nil, err
	}
	return session, nil
}

// GetSystemResolverList returns the resolver file text or a fixed message.
func (l *LinuxSystem) GetSystemResolverList() string {
	return l.store.ReadAll()
}

// CurrentResolvers returns the nameservers listed in the resolver file.
func (l *LinuxSystem) CurrentResolvers() ([]string, error) {
	return l.store.Servers()
}

// Startup copies the resolver file aside. Failure is logged and otherwise ignored.
func (l *LinuxSystem) Startup() {
	l.gate.lock()
	defer l.gate.release()

	manager := DetectResolverManager(l.storage, l.store.Path(), l.bus)
	logger.Info("Detected resolver manager: %s", manager)
	if manager != FileManager && manager != UnknownManager {
		logger.Warn("%s is managed by %s and may be rewritten behind our back", l.store.Path(), manager)
	}

	l.cache.Preserve()
}

// Shutdown puts back the copy made by Startup. Failure is logged and otherwise ignored.
func (l *LinuxSystem) Shutdown() {
	l.Restore()
}

// Restore is Shutdown for callers that need to know whether the copy succeeded.
func (l *LinuxSystem) Restore() error {
	l.gate.lock()
	defer l.gate.release()

	if !l.cache.Restore() {
		return fmt.Errorf("%w from %s", ErrRestoreFailed, l.cache.Backup())
	}
	return nil
}

// BootstrapT1Path locates the T1 server seed list.
func (l *LinuxSystem) BootstrapT1Path() string {
	return l.paths.T1Path()
}

// BootstrapDomainsPath locates the domain seed list.
func (l *LinuxSystem) BootstrapDomainsPath() string {
	return l.paths.DomainsPath()
}
