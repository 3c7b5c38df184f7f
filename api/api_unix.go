//go:build !windows

package api

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/ducbang/OpenNIC-Wizard/logger"
)

// socketMode restricts the control socket to the owner and its group.
const socketMode = 0660

// createSocketListener creates a Unix domain socket listener
func createSocketListener(socketPath string) (net.Listener, error) {
	dir := filepath.Dir(socketPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create socket directory: %w", err)
	}

	// A socket left by an unclean shutdown blocks the bind
	if err := os.RemoveAll(socketPath); err != nil {
		return nil, fmt.Errorf("failed to remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on Unix socket: %w", err)
	}

	if err := os.Chmod(socketPath, socketMode); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to set socket permissions: %w", err)
	}

	logger.Debug("Created control socket at %s", socketPath)
	return listener, nil
}

// cleanupSocket removes the Unix socket file
func cleanupSocket(socketPath string) {
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		logger.Error("Failed to remove socket file %s: %v", socketPath, err)
	} else {
		logger.Debug("Removed control socket at %s", socketPath)
	}
}
