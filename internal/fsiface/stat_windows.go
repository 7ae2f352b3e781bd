//go:build windows

package fsiface

import (
	"io/fs"
	"syscall"
	"unsafe"
)

type statInfo struct {
	fileIndex      uint64
	diskUsage      uint64
	nlink          uint64
	isJunctionLike bool
	isMountPoint   bool
}

// getStatInfo falls back to apparent size when the by-handle file
// information isn't reachable from fs.FileInfo alone; a full
// implementation opens the file with FILE_FLAG_BACKUP_SEMANTICS and
// calls GetFileInformationByHandle for the volume serial + file index
// (the NTFS identity key) and nlink.
func getStatInfo(info fs.FileInfo) statInfo {
	if sys, ok := info.Sys().(*syscall.Win32FileAttributeData); ok {
		_ = sys
	}
	return statInfo{diskUsage: uint64(info.Size())}
}

func statRoot(path string) (RootInfo, error) {
	var freeBytes, totalBytes, totalFree uint64
	pathPtr, err := syscall.UTF16PtrFromString(path)
	if err != nil {
		return RootInfo{}, ErrIoError
	}
	r, _, _ := getDiskFreeSpaceExW.Call(
		uintptr(unsafe.Pointer(pathPtr)),
		uintptr(unsafe.Pointer(&freeBytes)),
		uintptr(unsafe.Pointer(&totalBytes)),
		uintptr(unsafe.Pointer(&totalFree)),
	)
	if r == 0 {
		return RootInfo{}, ErrIoError
	}
	return RootInfo{TotalBytes: totalBytes, FreeBytes: freeBytes, IsDrive: true}, nil
}

var (
	kernel32            = syscall.NewLazyDLL("kernel32.dll")
	getDiskFreeSpaceExW = kernel32.NewProc("GetDiskFreeSpaceExW")
)

// toLongPath prefixes with \\?\ so paths beyond MAX_PATH can be opened
// when scanner.Options.UseLongPaths is set.
func toLongPath(path string) string {
	if len(path) >= 2 && path[1] == ':' {
		return `\\?\` + path
	}
	return path
}
