//go:build !(linux || darwin || freebsd || openbsd || netbsd)

package trash

// the Recycle Bin needs shell APIs
const supported = false
