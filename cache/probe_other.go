//go:build !unix

package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Probe reads the current fingerprint of path from os.Stat. Only size, mode
// and modification time are available on this platform.
func Probe(path string) (fp Fingerprint, ok bool, err error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Fingerprint{}, false, nil
		}
		return Fingerprint{}, false, fmt.Errorf("stat %s: %w", path, err)
	}
	return Fingerprint{
		Mode:  uint32(info.Mode()),
		Size:  info.Size(),
		Mtime: info.ModTime().UnixNano(),
	}, true, nil
}
