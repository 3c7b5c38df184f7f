//go:build linux

package dns

import (
	"context"
	"time"

	dbus "github.com/godbus/dbus/v5"
)

const (
	systemdResolvedDest          = "org.freedesktop.resolve1"
	systemdDbusObjectNode        = "/org/freedesktop/resolve1"
	networkManagerDest           = "org.freedesktop.NetworkManager"
	networkManagerDbusObjectNode = "/org/freedesktop/NetworkManager"
	dbusPingMethod               = "org.freedesktop.DBus.Peer.Ping"
)

// SystemManagerBus asks the D-Bus system bus which managers answer.
type SystemManagerBus struct{}

func (SystemManagerBus) SystemdResolvedRunning() bool {
	return pingSystemBus(systemdResolvedDest, systemdDbusObjectNode)
}

func (SystemManagerBus) NetworkManagerRunning() bool {
	return pingSystemBus(networkManagerDest, networkManagerDbusObjectNode)
}

func pingSystemBus(dest string, path dbus.ObjectPath) bool {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return false
	}
	defer conn.Close()

	obj := conn.Object(dest, path)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return obj.CallWithContext(ctx, dbusPingMethod, 0).Store() == nil
}
