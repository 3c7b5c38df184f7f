package dns

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinuxSystemLifecycle(t *testing.T) {
	logs := captureLog(t)
	storage := NewMemoryStorage()
	original := "# Generated by hand\nnameserver 192.168.1.1\noptions timeout:2\n"
	storage.Put(testResolvConf, original)
	system := newTestSystem(storage, nil)

	system.Startup()
	backup, ok := storage.Contents(testBackup)
	require.True(t, ok)
	assert.Equal(t, original, backup)

	applied, err := ApplyResolvers(context.Background(), system, []string{"123.45.67.1", "89.10.11.2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"123.45.67.1", "89.10.11.2"}, applied)
	assert.Equal(t, "nameserver 123.45.67.1\nnameserver 89.10.11.2\n", system.GetSystemResolverList())

	current, err := system.CurrentResolvers()
	require.NoError(t, err)
	assert.Equal(t, []string{"123.45.67.1", "89.10.11.2"}, current)

	system.Shutdown()
	assert.Equal(t, original, system.GetSystemResolverList())

	assert.Contains(t, logs.String(), "resolver cache preserved")
	assert.Contains(t, logs.String(), "resolver cache restored")
}

func TestLinuxSystemShutdownWithoutBackup(t *testing.T) {
	logs := captureLog(t)
	storage := NewMemoryStorage()
	system := newTestSystem(storage, nil)

	system.Startup()
	_, err := ApplyResolvers(context.Background(), system, []string{"1.1.1.1"})
	require.NoError(t, err)
	system.Shutdown()

	assert.Equal(t, "nameserver 1.1.1.1\n", system.GetSystemResolverList())
	assert.Contains(t, logs.String(), "failed to preserve resolver cache")
	assert.Contains(t, logs.String(), "failed to restore resolver cache")
}

func TestLinuxSystemWarnsAboutManagedFile(t *testing.T) {
	logs := captureLog(t)
	storage := NewMemoryStorage()
	storage.Put(testResolvConf, "# Generated by NetworkManager\nnameserver 192.168.1.1\n")
	system := NewLinuxSystem(Options{
		Storage:        storage,
		ResolvConfPath: testResolvConf,
		BackupPath:     testBackup,
		Interfaces:     staticInterfaces(),
		Bus:            fakeBus{networkManager: true},
	})

	system.Startup()
	assert.Contains(t, logs.String(), "Detected resolver manager: NetworkManager")
	assert.Contains(t, logs.String(), "may be rewritten")
}

func TestLinuxSystemBootstrapPaths(t *testing.T) {
	storage := NewMemoryStorage()
	storage.Put("/srv/opennic/t1", "1.2.3.4\n")
	storage.Put("/etc/bootstrap.domains", ".geek\n")
	system := newTestSystem(storage, map[string]string{
		T1BootstrapVariable:      "/srv/opennic/t1",
		DomainsBootstrapVariable: "/srv/opennic/missing",
	})

	assert.Equal(t, "/srv/opennic/t1", system.BootstrapT1Path())
	assert.Equal(t, "/etc/bootstrap.domains", system.BootstrapDomainsPath())
}

func TestLinuxSystemSentinel(t *testing.T) {
	system := newTestSystem(NewMemoryStorage(), nil)
	assert.Equal(t, "Could not obtain system resolver list.", system.GetSystemResolverList())
	assert.Equal(t, "linux-resolvconf", system.Name())
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{}.withDefaults()
	assert.IsType(t, &OSStorage{}, opts.Storage)
	assert.IsType(t, &OSStorage{}, opts.BootstrapStorage)
	assert.Equal(t, "/etc/resolv.conf", opts.ResolvConfPath)
	assert.Equal(t, "/var/resolv.conf.bak", opts.BackupPath)
	assert.NotNil(t, opts.Interfaces)
	assert.NotNil(t, opts.Bus)
}

func TestLinuxSystemBootstrapIgnoresSimulatedStorage(t *testing.T) {
	t1 := filepath.Join(t.TempDir(), "custom.t1")
	require.NoError(t, os.WriteFile(t1, []byte("ns0.opennic.glue\n"), 0o644))

	storage := NewMemoryStorage()
	storage.Put(testResolvConf, "nameserver 192.168.1.1\n")
	system := NewLinuxSystem(Options{
		Storage:            storage,
		ResolvConfPath:     testResolvConf,
		BackupPath:         testBackup,
		BootstrapOverrides: map[string]string{T1BootstrapVariable: t1},
		Interfaces:         staticInterfaces(),
		Bus:                fakeBus{},
	})

	assert.Equal(t, t1, system.BootstrapT1Path())
}

func TestLinuxSystemRestore(t *testing.T) {
	captureLog(t)
	storage := NewMemoryStorage()
	storage.Put(testResolvConf, "nameserver 1.1.1.1\n")
	system := newTestSystem(storage, nil)

	err := system.Restore()
	assert.ErrorIs(t, err, ErrRestoreFailed)
	assert.Contains(t, err.Error(), testBackup)
	assert.Equal(t, "nameserver 1.1.1.1\n", system.GetSystemResolverList())

	storage.Put(testBackup, "nameserver 192.168.1.1\n")
	require.NoError(t, system.Restore())
	assert.Equal(t, "nameserver 192.168.1.1\n", system.GetSystemResolverList())
}
