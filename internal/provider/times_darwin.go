//go:build darwin

package provider

import (
	"io/fs"
	"syscall"
	"time"
)

func fileTimes(info fs.FileInfo) (created, opened time.Time) {
	created = info.ModTime()
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		created = time.Unix(st.Birthtimespec.Sec, st.Birthtimespec.Nsec)
		opened = time.Unix(st.Atimespec.Sec, st.Atimespec.Nsec)
	}
	return created, opened
}
