package report

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/briarlane/duscape/internal/node"
)

// ncdu-compatible JSON snapshot format, adapted from the teacher's own
// export/import (same envelope: a top-level array of the major and minor
// format versions, a header object, then the root directory array with
// one nested array per subdirectory), generalized from the
// teacher's Dir/File node split to this tree's single tagged Node kind.
type ncduHeader struct {
	Progname  string `json:"progname"`
	Progver   string `json:"progver"`
	Timestamp int64  `json:"timestamp"`
}

type ncduEntry struct {
	Name           string `json:"name"`
	Asize          int64  `json:"asize"`
	Dsize          int64  `json:"dsize,omitempty"`
	Ino            uint64 `json:"ino,omitempty"`
	Hlnkc          bool   `json:"hlnkc,omitempty"`
	ReadError      bool   `json:"read_error,omitempty"`
	Symlink        bool   `json:"symlink,omitempty"`
	UsageEstimated bool   `json:"usage_estimated,omitempty"`
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) WriteString(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = io.WriteString(ew.w, s)
}

func (ew *errWriter) Write(data []byte) (int, error) {
	if ew.err != nil {
		return 0, ew.err
	}
	n, err := ew.w.Write(data)
	if err != nil {
		ew.err = err
	}
	return n, err
}

// WriteSnapshot exports root as ncdu-compatible JSON to path. For file
// targets (not "-"), it writes to a temp file and renames atomically on
// success, so a partial file is never left on error.
func WriteSnapshot(root *node.Node, path, version string) (retErr error) {
	if path == "-" {
		return writeSnapshotTo(root, os.Stdout, version)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".duscape-export-*.tmp")
	if err != nil {
		return fmt.Errorf("cannot create export file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if retErr != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := writeSnapshotTo(root, tmp, version); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		if runtime.GOOS != "windows" {
			return err
		}
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return fmt.Errorf("cannot replace export file %s: %w", path, err)
		}
		if err := os.Rename(tmpPath, path); err != nil {
			return err
		}
	}
	return nil
}

func writeSnapshotTo(root *node.Node, out io.Writer, version string) error {
	bw := bufio.NewWriterSize(out, 64*1024)
	ew := &errWriter{w: bw}

	ew.WriteString("[1, 0, ")
	if version == "" {
		version = "dev"
	}
	header := ncduHeader{Progname: "duscape", Progver: version, Timestamp: time.Now().Unix()}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return err
	}
	_, _ = ew.Write(headerJSON)
	ew.WriteString(",\n")

	writeNode(ew, root)

	ew.WriteString("\n]\n")
	if ew.err != nil {
		return ew.err
	}
	return bw.Flush()
}

func entryFor(n *node.Node) ncduEntry {
	e := ncduEntry{
		Name:  n.Name,
		Asize: n.SizeLogical(),
		Dsize: n.SizePhysical(),
	}
	if n.FileIndex != 0 {
		e.Ino = n.FileIndex
	}
	if n.HasFlag(node.FlagIsHardlink) {
		e.Hlnkc = true
	}
	if n.HasFlag(node.FlagAccessDenied) {
		e.ReadError = true
	}
	if n.HasFlag(node.FlagSymlink) {
		e.Symlink = true
	}
	if n.HasFlag(node.FlagUsageEstimated) {
		e.UsageEstimated = true
	}
	return e
}

func writeNode(ew *errWriter, n *node.Node) {
	if ew.err != nil {
		return
	}

	children := n.Children()
	if n.Kind.IsLeaf() {
		data, err := json.Marshal(entryFor(n))
		if err != nil {
			ew.err = err
			return
		}
		_, _ = ew.Write(data)
		return
	}

	ew.WriteString("[")
	data, err := json.Marshal(entryFor(n))
	if err != nil {
		ew.err = err
		return
	}
	_, _ = ew.Write(data)

	for _, c := range children {
		if ew.err != nil {
			return
		}
		ew.WriteString(",\n")
		writeNode(ew, c)
	}
	ew.WriteString("]")
}
