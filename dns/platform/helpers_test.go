package dns

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/ducbang/OpenNIC-Wizard/logger"
)

const (
	testResolvConf = "/etc/resolv.conf"
	testBackup     = "/var/resolv.conf.bak"
)

// syncBuffer lets tests read log output written from other goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Lines() []string {
	text := strings.TrimSpace(b.String())
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func captureLog(t *testing.T) *syncBuffer {
	t.Helper()
	buf := &syncBuffer{}
	logger.Init(buf)
	logger.GetLogger().SetLevel(logger.INFO)
	t.Cleanup(func() { logger.Init(nil) })
	return buf
}

type fakeBus struct {
	resolved       bool
	networkManager bool
	resolvconf     bool
}

func (p fakeBus) SystemdResolvedRunning() bool { return p.resolved }
func (p fakeBus) NetworkManagerRunning() bool  { return p.networkManager }
func (p fakeBus) ResolvconfInstalled() bool    { return p.resolvconf }

func staticInterfaces(ifaces ...Interface) InterfaceLister {
	return InterfaceListerFunc(func() ([]Interface, error) {
		return ifaces, nil
	})
}

func newTestSystem(storage Storage, overrides map[string]string) *LinuxSystem {
	return NewLinuxSystem(Options{
		Storage:            storage,
		BootstrapStorage:   storage,
		ResolvConfPath:     testResolvConf,
		BackupPath:         testBackup,
		BootstrapOverrides: overrides,
		Interfaces:         staticInterfaces(Interface{Index: 1, Name: "lo", MTU: 65536, Up: true}),
		Bus:                fakeBus{},
	})
}
