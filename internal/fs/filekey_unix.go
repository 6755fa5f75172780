//go:build darwin || freebsd || linux
// +build darwin freebsd linux

package fs

import (
	"golang.org/x/sys/unix"
)

// The device and inode numbers survive symlinks and hard links
func fileKey(path string) (FileKey, error) {
	stat := unix.Stat_t{}
	if err := unix.Stat(path, &stat); err != nil {
		return FileKey{}, err
	}
	return FileKey{
		dev: uint64(stat.Dev),
		ino: uint64(stat.Ino),
	}, nil
}
