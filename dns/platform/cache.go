package dns

import (
	"fmt"
	"io"

	"github.com/ducbang/OpenNIC-Wizard/logger"
)

const (
	defaultResolvConfPath = "/etc/resolv.conf"
	defaultBackupPath     = "/var/resolv.conf.bak"
)

// CacheGuard keeps a verbatim copy of the resolver configuration so it can be
// put back when the switcher stops.
type CacheGuard struct {
	storage Storage
	live    string
	backup  string
}

// NewCacheGuard creates a guard copying between live and backup.
func NewCacheGuard(storage Storage, live, backup string) *CacheGuard {
	return &CacheGuard{
		storage: storage,
		live:    live,
		backup:  backup,
	}
}

// Backup returns the path of the saved copy.
func (c *CacheGuard) Backup() string {
	return c.backup
}

// Preserve copies the live file over the backup.
func (c *CacheGuard) Preserve() bool {
	if err := c.copy(c.live, c.backup); err != nil {
		logger.Error("failed to preserve resolver cache: %v", err)
		return false
	}
	logger.Info("resolver cache preserved to %s", c.backup)
	return true
}

// Restore copies the backup over the live file.
func (c *CacheGuard) Restore() bool {
	if err := c.copy(c.backup, c.live); err != nil {
		logger.Error("failed to restore resolver cache: %v", err)
		return false
	}
	logger.Info("resolver cache restored from %s", c.backup)
	return true
}

// copy opens src before touching dst so a missing source leaves dst intact.
func (c *CacheGuard) copy(src, dst string) error {
	in, err := c.storage.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := c.storage.Create(dst)
	if err != nil {
		return fmt.Errorf("open destination: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}
	return nil
}
