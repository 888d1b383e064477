//go:build !windows

package mmap

import (
	"os"

	"golang.org/x/sys/unix"
)

// mapFile maps the whole index read-only. Decoding touches every byte once,
// so the kernel is asked to read ahead.
func mapFile(f *os.File, size int) ([]byte, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	_ = unix.Madvise(data, unix.MADV_WILLNEED)
	return data, nil
}

func unmapFile(data []byte) error {
	return unix.Munmap(data)
}
