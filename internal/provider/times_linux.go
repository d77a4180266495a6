//go:build linux

package provider

import (
	"io/fs"
	"syscall"
	"time"
)

// fileTimes returns creation and last-access times. Linux Stat_t carries no
// birth time, so creation falls back to the modification time.
func fileTimes(info fs.FileInfo) (created, opened time.Time) {
	created = info.ModTime()
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		opened = time.Unix(int64(st.Atim.Sec), int64(st.Atim.Nsec))
	}
	return created, opened
}
