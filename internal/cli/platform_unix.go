//go:build !windows

package cli

import (
	"os"
	"syscall"
)

func runningAsRoot() bool {
	return os.Geteuid() == 0
}

// checkSecretFile reports whether a file that may hold an API key is owned
// by someone else or readable by other users
func checkSecretFile(path string) (foreign bool, worldReadable bool, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, false, err
	}
	worldReadable = info.Mode().Perm()&0o004 != 0
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return false, worldReadable, nil
	}
	return int(stat.Uid) != os.Getuid(), worldReadable, nil
}
