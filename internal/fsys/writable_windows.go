//go:build windows

package fsys

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

func writable(name string) error {
	info, err := os.Stat(name)
	if err != nil {
		return err
	}
	if info.Mode().Perm()&0o200 == 0 {
		return fmt.Errorf("access %s: %w", name, os.ErrPermission)
	}

	p, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return err
	}
	attrs, err := windows.GetFileAttributes(p)
	if err != nil {
		return fmt.Errorf("attributes %s: %w", name, err)
	}
	if attrs&windows.FILE_ATTRIBUTE_READONLY != 0 && !info.IsDir() {
		return fmt.Errorf("access %s: %w", name, os.ErrPermission)
	}
	return nil
}
