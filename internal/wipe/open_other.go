//go:build !(linux || darwin || freebsd || openbsd || netbsd || dragonfly)

package wipe

import (
	"fmt"
	"os"
)

// openForOverwrite открывает файл на запись без усечения.
// O_NOFOLLOW здесь недоступен, поэтому симлинк отсекается повторной проверкой Lstat.
func openForOverwrite(path string) (fileHandle, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("не обычный файл: %s", path)
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, err
	}
	return f, nil
}
