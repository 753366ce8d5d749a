//go:build linux || darwin || freebsd || netbsd || openbsd

package video

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// freeMB returns the space available to unprivileged users at dir.
func freeMB(dir string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", dir, err)
	}
	return uint64(st.Bavail) * uint64(st.Bsize) / 1024 / 1024, nil //nolint:gosec,unconvert // field types vary by OS
}
