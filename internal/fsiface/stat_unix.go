//go:build !windows

package fsiface

import (
	"io/fs"
	"syscall"
)

// statInfo holds the platform-specific fields buildEntry folds into an
// Entry: physical disk usage, and a file-identity key for hardlink
// detection (device:inode on unix, combined into a single uint64 the
// way the teacher's scanner.inodeKey does it for its dedup map, but
// folded to one key since Entry.FileIndex is a single field per §6.1).
type statInfo struct {
	fileIndex      uint64
	diskUsage      uint64
	nlink          uint64
	isJunctionLike bool
	isMountPoint   bool
}

func getStatInfo(info fs.FileInfo) statInfo {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return statInfo{diskUsage: uint64(info.Size())}
	}
	return statInfo{
		fileIndex: combineDevIno(uint64(stat.Dev), stat.Ino),
		diskUsage: uint64(stat.Blocks) * 512,
		nlink:     uint64(stat.Nlink),
	}
}

// combineDevIno folds (dev,ino) into one 64-bit key. A collision across
// filesystems is possible in principle; it is accepted the same way the
// spec accepts a truncated content digest for duplicates (§9).
func combineDevIno(dev, ino uint64) uint64 {
	return ino ^ (dev * 0x9E3779B97F4A7C15)
}

func statRoot(path string) (RootInfo, error) {
	var buf syscall.Statfs_t
	if err := syscall.Statfs(path, &buf); err != nil {
		return RootInfo{}, translateOpenErr(err)
	}
	bsize := uint64(buf.Bsize)
	return RootInfo{
		TotalBytes: buf.Blocks * bsize,
		FreeBytes:  buf.Bavail * bsize,
		IsDrive:    true,
	}, nil
}

func toLongPath(path string) string { return path }
