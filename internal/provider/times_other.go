//go:build !linux && !darwin

package provider

import (
	"io/fs"
	"time"
)

func fileTimes(info fs.FileInfo) (created, opened time.Time) {
	return info.ModTime(), time.Time{}
}
