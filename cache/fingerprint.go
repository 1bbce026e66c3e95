package cache

import "fmt"

// Fingerprint is a snapshot of the filesystem metadata of a path taken when a
// value was produced. Access time is not part of it since reading a leaf may
// update it.
type Fingerprint struct {
	Dev   uint64
	Ino   uint64
	Mode  uint32
	Nlink uint64
	Uid   uint32
	Gid   uint32
	Size  int64
	Mtime int64 // nanoseconds since epoch
	Ctime int64 // nanoseconds since epoch; zero where the platform has none
}

func (f Fingerprint) String() string {
	return fmt.Sprintf("dev=%d ino=%d mode=%o size=%d mtime=%d", f.Dev, f.Ino, f.Mode, f.Size, f.Mtime)
}
