//go:build windows

package api

import (
	"fmt"
	"net"
	"strings"

	"github.com/Microsoft/go-winio"
	"github.com/ducbang/OpenNIC-Wizard/logger"
)

// pipeSecurity grants full access to Administrators and LocalSystem only.
const pipeSecurity = "D:P(A;;GA;;;BA)(A;;GA;;;SY)"

// createSocketListener creates a Windows named pipe listener
func createSocketListener(pipePath string) (net.Listener, error) {
	if !strings.HasPrefix(pipePath, `\\`) {
		pipePath = `\\.\pipe\` + pipePath
	}

	listener, err := winio.ListenPipe(pipePath, &winio.PipeConfig{
		SecurityDescriptor: pipeSecurity,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to listen on named pipe: %w", err)
	}

	logger.Debug("Created control pipe at %s", pipePath)
	return listener, nil
}

// cleanupSocket is a no-op on Windows as named pipes vanish with their last handle
func cleanupSocket(pipePath string) {
	logger.Debug("Named pipe %s closes with the listener", pipePath)
}
