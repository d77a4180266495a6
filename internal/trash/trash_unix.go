//go:build linux || darwin || freebsd || openbsd || netbsd

package trash

const supported = true
