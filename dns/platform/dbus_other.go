//go:build !linux

package dns

// SystemManagerBus reports no D-Bus managers outside Linux.
type SystemManagerBus struct{}

func (SystemManagerBus) SystemdResolvedRunning() bool { return false }
func (SystemManagerBus) NetworkManagerRunning() bool  { return false }
