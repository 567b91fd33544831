//go:build linux || darwin || freebsd || openbsd || netbsd || dragonfly

package wipe

import (
	"os"

	"golang.org/x/sys/unix"
)

// openForOverwrite открывает файл на запись без усечения и без перехода по симлинку
func openForOverwrite(path string) (fileHandle, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	return f, nil
}
