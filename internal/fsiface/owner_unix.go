//go:build !windows

package fsiface

import (
	"os"
	"os/user"
	"strconv"
	"syscall"
)

// ownerOf resolves the owning user's name (the unix analogue of a Windows
// SID), or the numeric uid as a string when the name lookup fails;
// scanner.Options.ComputeOwner gates this since the
// os/user lookup is a name-service round trip per file.
func ownerOf(path string) (string, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return "", err
	}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return "", nil
	}
	uidStr := strconv.FormatUint(uint64(stat.Uid), 10)
	if u, err := user.LookupId(uidStr); err == nil {
		return u.Username, nil
	}
	return uidStr, nil
}
