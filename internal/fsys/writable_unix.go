//go:build !windows

package fsys

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func writable(name string) error {
	if err := unix.Access(name, unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("access %s: %w", name, err)
	}
	return nil
}
