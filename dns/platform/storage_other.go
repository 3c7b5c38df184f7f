//go:build !unix

package dns

import "os"

func lockFile(*os.File) error {
	return nil
}
