package fsiface

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalEnumerator implements Enumerator over the local OS filesystem.
type LocalEnumerator struct {
	// UseLongPaths requests the long-path form of OS calls where the
	// platform distinguishes one (Windows \\?\ prefix); a no-op
	// elsewhere, kept for interface parity with the CLI flag (§6.3).
	UseLongPaths bool
}

type localDirHandle struct {
	f       *os.File
	entries []fs.DirEntry
	idx     int
}

func (e *LocalEnumerator) OpenDir(path string) (DirHandle, error) {
	f, err := os.Open(longPath(path, e.UseLongPaths))
	if err != nil {
		return nil, translateOpenErr(err)
	}
	return &localDirHandle{f: f}, nil
}

func (h *localDirHandle) Next() (Entry, bool, error) {
	for {
		if h.idx < len(h.entries) {
			de := h.entries[h.idx]
			h.idx++
			entry, err := buildEntry(de)
			if err != nil {
				// per-entry failures are local: skip and keep going
				continue
			}
			return entry, true, nil
		}

		batch, err := h.f.ReadDir(256)
		if len(batch) > 0 {
			h.entries = batch
			h.idx = 0
			continue
		}
		if err != nil {
			return Entry{}, false, nil // EOF or transient; caller treats as exhausted
		}
		return Entry{}, false, nil
	}
}

func (h *localDirHandle) Close() error { return h.f.Close() }

func buildEntry(de fs.DirEntry) (Entry, error) {
	info, err := de.Info()
	if err != nil {
		return Entry{}, err
	}
	mode := info.Mode()
	reparse := ReparseNone
	if mode&os.ModeSymlink != 0 {
		reparse = ReparseSymlink
	}
	e := Entry{
		Name:        de.Name(),
		IsDirectory: mode.IsDir(),
		ReparseKind: reparse,
		SizeLogical: uint64(info.Size()),
		Attributes:  uint32(mode),
		LastChange:  info.ModTime().UTC(),
	}
	si := getStatInfo(info)
	e.SizePhysical = si.diskUsage
	e.FileIndex = si.fileIndex
	if reparse == ReparseSymlink && si.isJunctionLike {
		// Neither getStatInfo (stat_unix.go, stat_windows.go) sets
		// isJunctionLike, so this branch is not taken and every link is
		// reported as ReparseSymlink.
		if si.isMountPoint {
			e.ReparseKind = ReparseMountPoint
		} else {
			e.ReparseKind = ReparseJunction
		}
	}
	return e, nil
}

func (e *LocalEnumerator) Stat(path string) (RootInfo, error) {
	return statRoot(path)
}

func (e *LocalEnumerator) StatEntry(path string) (Entry, error) {
	info, err := os.Lstat(longPath(path, e.UseLongPaths))
	if err != nil {
		return Entry{}, translateOpenErr(err)
	}
	mode := info.Mode()
	reparse := ReparseNone
	if mode&os.ModeSymlink != 0 {
		reparse = ReparseSymlink
	}
	si := getStatInfo(info)
	return Entry{
		Name:         filepath.Base(path),
		IsDirectory:  mode.IsDir(),
		ReparseKind:  reparse,
		SizeLogical:  uint64(info.Size()),
		SizePhysical: si.diskUsage,
		Attributes:   uint32(mode),
		LastChange:   info.ModTime().UTC(),
		FileIndex:    si.fileIndex,
	}, nil
}

func (e *LocalEnumerator) ComputeOwner(path string) (string, error) {
	return ownerOf(path)
}

func longPath(path string, useLong bool) string {
	if !useLong {
		return path
	}
	return toLongPath(path)
}

func translateOpenErr(err error) error {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return ErrNotFound
	case errors.Is(err, os.ErrPermission):
		return ErrAccessDenied
	default:
		return ErrIoError
	}
}

func absOrSelf(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
