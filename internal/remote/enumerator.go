package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	pathpkg "path"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/sftp"

	"github.com/briarlane/duscape/internal/fsiface"
)

const defaultRemotePath = "."

// Enumerator implements fsiface.Enumerator over an SFTP session, dialed
// lazily on first use and reused for the lifetime of a scan. Close
// releases the underlying SSH connection.
type Enumerator struct {
	cfg  Config
	dial func(context.Context, Config) (sftpClient, io.Closer, error)

	mu     sync.Mutex
	client sftpClient
	closer io.Closer
}

// New creates an SFTP-backed enumerator for cfg. The connection is not
// established until the first OpenDir/Stat/StatEntry call.
func New(cfg Config) *Enumerator {
	return &Enumerator{cfg: cfg, dial: dialSFTP}
}

// Close releases the underlying SSH/SFTP connection, if one was opened.
func (e *Enumerator) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closer == nil {
		return nil
	}
	err := e.closer.Close()
	e.client = nil
	e.closer = nil
	return err
}

func (e *Enumerator) ensureClient() (sftpClient, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		return e.client, nil
	}
	if e.dial == nil {
		e.dial = dialSFTP
	}
	client, closer, err := e.dial(context.Background(), e.cfg)
	if err != nil {
		return nil, err
	}
	e.client = client
	e.closer = closer
	return client, nil
}

type sftpDirHandle struct {
	entries []fsiface.Entry
	idx     int
}

func (e *Enumerator) OpenDir(path string) (fsiface.DirHandle, error) {
	client, err := e.ensureClient()
	if err != nil {
		return nil, err
	}

	dirPath := cleanRemotePath(path)
	infos, err := client.ReadDir(dirPath)
	if err != nil {
		return nil, translateSFTPErr(err)
	}

	entries := make([]fsiface.Entry, 0, len(infos))
	for _, info := range infos {
		entry, err := e.resolveEntry(client, dirPath, info)
		if err != nil {
			// resolveEntry reports a broken symlink as a zero-size
			// placeholder; an entry it returns an error for is skipped
			// rather than failing the whole directory
			continue
		}
		entries = append(entries, entry)
	}
	return &sftpDirHandle{entries: entries}, nil
}

func (h *sftpDirHandle) Next() (fsiface.Entry, bool, error) {
	if h.idx >= len(h.entries) {
		return fsiface.Entry{}, false, nil
	}
	e := h.entries[h.idx]
	h.idx++
	return e, true, nil
}

func (h *sftpDirHandle) Close() error { return nil }

// resolveEntry builds an fsiface.Entry for one directory child. Symlinks
// are followed one level (mirroring the teacher's resolveSymlinkTarget)
// so the aggregator sees a real size/kind rather than the link itself;
// a broken or unreachable target degrades to a zero-size symlink entry
// rather than failing the enumeration.
func (e *Enumerator) resolveEntry(client sftpClient, dirPath string, info os.FileInfo) (fsiface.Entry, error) {
	name := info.Name()
	fullPath := cleanRemotePath(pathpkg.Join(dirPath, name))

	if info.Mode()&os.ModeSymlink == 0 {
		return entryFromInfo(name, info), nil
	}

	target, err := client.ReadLink(fullPath)
	if err != nil {
		return symlinkPlaceholder(name), nil
	}
	if !pathpkg.IsAbs(target) {
		target = pathpkg.Join(pathpkg.Dir(fullPath), target)
	}
	target = cleanRemotePath(target)

	targetInfo, err := client.Stat(target)
	if err != nil {
		return symlinkPlaceholder(name), nil
	}

	entry := entryFromInfo(name, targetInfo)
	entry.ReparseKind = fsiface.ReparseSymlink
	return entry, nil
}

func symlinkPlaceholder(name string) fsiface.Entry {
	return fsiface.Entry{Name: name, ReparseKind: fsiface.ReparseSymlink}
}

func entryFromInfo(name string, info os.FileInfo) fsiface.Entry {
	size := uint64(info.Size())
	e := fsiface.Entry{
		Name:         name,
		IsDirectory:  info.IsDir(),
		SizeLogical:  size,
		SizePhysical: size, // SFTP has no block-allocation size attribute
		Attributes:   uint32(info.Mode()),
		LastChange:   info.ModTime().UTC(),
	}
	if stat, ok := info.Sys().(*sftp.FileStat); ok {
		_ = stat // no portable inode number over SFTP; FileIndex stays 0
	}
	return e
}

func cleanRemotePath(p string) string {
	if p == "" {
		return defaultRemotePath
	}
	clean := pathpkg.Clean(strings.ReplaceAll(p, "\\", "/"))
	if clean == "" {
		return defaultRemotePath
	}
	return clean
}

func (e *Enumerator) Stat(path string) (fsiface.RootInfo, error) {
	client, err := e.ensureClient()
	if err != nil {
		return fsiface.RootInfo{}, err
	}

	vfs, err := client.StatVFS(cleanRemotePath(path))
	if err != nil {
		// Not every SFTP server advertises the statvfs@openssh.com
		// extension; treat the root as a plain directory rather than a
		// drive when space accounting is unavailable (no free/unknown
		// synthesis, per §4.3(b): that only applies to drive roots).
		return fsiface.RootInfo{IsDrive: false}, nil
	}

	return fsiface.RootInfo{
		TotalBytes: vfs.Blocks * uint64(vfs.Bsize),
		FreeBytes:  vfs.Bavail * uint64(vfs.Bsize),
		IsDrive:    true,
	}, nil
}

func (e *Enumerator) StatEntry(path string) (fsiface.Entry, error) {
	client, err := e.ensureClient()
	if err != nil {
		return fsiface.Entry{}, err
	}

	info, err := client.Lstat(cleanRemotePath(path))
	if err != nil {
		return fsiface.Entry{}, translateSFTPErr(err)
	}
	return entryFromInfo(pathpkg.Base(path), info), nil
}

func (e *Enumerator) ComputeOwner(path string) (string, error) {
	client, err := e.ensureClient()
	if err != nil {
		return "", err
	}
	info, err := client.Stat(cleanRemotePath(path))
	if err != nil {
		return "", translateSFTPErr(err)
	}
	if stat, ok := info.Sys().(*sftp.FileStat); ok {
		return strconv.FormatUint(uint64(stat.UID), 10), nil
	}
	return "", fmt.Errorf("remote: owner unavailable for %s", path)
}

func translateSFTPErr(err error) error {
	switch {
	case errors.Is(err, fsiface.ErrNotFound):
		return err
	case errors.Is(err, os.ErrNotExist), errors.Is(err, sftp.ErrSSHFxNoSuchFile):
		return fsiface.ErrNotFound
	case errors.Is(err, os.ErrPermission), errors.Is(err, sftp.ErrSSHFxPermissionDenied):
		return fsiface.ErrAccessDenied
	default:
		return fmt.Errorf("%w: %v", fsiface.ErrIoError, err)
	}
}
