//go:build unix

package cache

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Probe reads the current fingerprint of path. A missing path, or one whose
// parent is not a directory, is reported with ok == false and no error.
func Probe(path string) (fp Fingerprint, ok bool, err error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		if errors.Is(err, unix.ENOENT) || errors.Is(err, unix.ENOTDIR) {
			return Fingerprint{}, false, nil
		}
		return Fingerprint{}, false, fmt.Errorf("stat %s: %w", path, err)
	}
	return Fingerprint{
		Dev:   uint64(st.Dev),
		Ino:   uint64(st.Ino),
		Mode:  uint32(st.Mode),
		Nlink: uint64(st.Nlink),
		Uid:   st.Uid,
		Gid:   st.Gid,
		Size:  st.Size,
		Mtime: unix.TimespecToNsec(st.Mtim),
		Ctime: unix.TimespecToNsec(st.Ctim),
	}, true, nil
}
