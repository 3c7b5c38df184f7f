//go:build unix

package dns

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockFile takes an exclusive advisory lock that is released when f is closed.
func lockFile(f *os.File) error {
	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX)
		if err != unix.EINTR {
			return err
		}
	}
}
