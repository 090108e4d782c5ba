//go:build darwin

package session

import (
	"time"

	"golang.org/x/sys/unix"
)

func birthTime(path string) time.Time {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return time.Time{}
	}
	sec, nsec := st.Birthtimespec.Unix()
	return time.Unix(sec, nsec)
}
