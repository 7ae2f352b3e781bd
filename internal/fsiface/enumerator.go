// Package fsiface defines the external collaborator interfaces the core
// consumes (§6.1 filesystem enumerator, §6.2 change stream) and a local
// OS-backed implementation of each. Remote implementations (e.g. SFTP,
// internal/remote) satisfy the same interfaces.
package fsiface

import (
	"errors"
	"time"
)

// ReparseKind distinguishes the directory-like entries that may redirect
// enumeration. The local and remote enumerators report every link as
// ReparseSymlink; neither produces Junction or MountPoint (§9 open
// question: other OSes define their own kinds while preserving the
// follow_* semantics).
type ReparseKind uint8

const (
	ReparseNone ReparseKind = iota
	ReparseMountPoint
	ReparseJunction
	ReparseSymlink
)

// Entry is one directory record as returned by the enumerator (§6.1).
type Entry struct {
	Name         string
	IsDirectory  bool
	ReparseKind  ReparseKind
	SizeLogical  uint64
	SizePhysical uint64
	Attributes   uint32
	LastChange   time.Time // UTC
	FileIndex    uint64    // 0 if unavailable
	Owner        string    // SID, empty if unresolved/unrequested
	HasOwner     bool
}

// Failure modes surfaced at directory granularity (§6.1).
var (
	ErrNotFound     = errors.New("fsiface: not found")
	ErrAccessDenied = errors.New("fsiface: access denied")
	ErrNotReady     = errors.New("fsiface: device not ready")
	ErrIoError      = errors.New("fsiface: io error")
)

// DirHandle iterates the entries of one open directory.
type DirHandle interface {
	// Next returns the next entry, or ok=false once exhausted (no error).
	Next() (entry Entry, ok bool, err error)
	Close() error
}

// RootInfo describes a scan root (drive or directory) before any
// enumeration happens: used for the §4.3(b) free/unknown synthesis.
type RootInfo struct {
	TotalBytes uint64
	FreeBytes  uint64
	IsDrive    bool
}

// Enumerator is the consumed collaborator: given a directory path,
// return an iterator over its entries, plus root-level space accounting
// for drives.
type Enumerator interface {
	OpenDir(path string) (DirHandle, error)
	// Stat returns root-level info (used once per scan root).
	Stat(path string) (RootInfo, error)
	// StatEntry stats a single path as an Entry, used by the watcher to
	// diff a Modified notification against the node's current fields.
	StatEntry(path string) (Entry, error)
	// ComputeOwner resolves the SID/owner for a path; only invoked when
	// scanner.Options.ComputeOwner is set, since it is comparatively slow.
	ComputeOwner(path string) (string, error)
}
