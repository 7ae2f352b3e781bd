package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/briarlane/duscape/internal/node"
)

// maxImportDepth guards against pathological/malicious nesting.
const maxImportDepth = 1000

// ReadSnapshot imports a tree previously written by WriteSnapshot. The
// returned root is fully done (MarkDone) since an imported snapshot has
// no outstanding enumeration.
func ReadSnapshot(path string) (*node.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open import file: %w", err)
	}
	defer f.Close()

	var raw []json.RawMessage
	dec := json.NewDecoder(f)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("invalid JSON: trailing data after top-level array")
		}
		return nil, fmt.Errorf("invalid JSON: trailing data after top-level array: %w", err)
	}
	if len(raw) < 4 {
		return nil, fmt.Errorf("invalid ncdu format: expected at least 4 elements, got %d", len(raw))
	}

	root, err := parseNode(raw[3], nil, 0)
	if err != nil {
		return nil, fmt.Errorf("cannot parse root: %w", err)
	}
	return root, nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("empty entry name")
	}
	if name == "." || name == ".." {
		return fmt.Errorf("invalid entry name: %q", name)
	}
	if strings.ContainsRune(name, '/') {
		return fmt.Errorf("entry name contains path separator: %q", name)
	}
	if runtime.GOOS == "windows" && strings.ContainsRune(name, '\\') {
		return fmt.Errorf("entry name contains path separator: %q", name)
	}
	if filepath.Base(name) != name {
		return fmt.Errorf("entry name is not a simple filename: %q", name)
	}
	return nil
}

func validateSizeField(field string, value int64) error {
	if value < 0 {
		return fmt.Errorf("%s must be non-negative", field)
	}
	return nil
}

func flagsFor(e ncduEntry) node.Flag {
	var f node.Flag
	if e.Hlnkc {
		f |= node.FlagIsHardlink
	}
	if e.ReadError {
		f |= node.FlagAccessDenied
	}
	if e.Symlink {
		f |= node.FlagSymlink
	}
	if e.UsageEstimated {
		f |= node.FlagUsageEstimated
	}
	return f
}

// parseNode parses one JSON element as either a leaf object ({...}) or
// a directory array ([{...}, child, child, ...]).
func parseNode(data json.RawMessage, parent *node.Node, depth int) (*node.Node, error) {
	if depth > maxImportDepth {
		return nil, fmt.Errorf("nesting exceeds maximum depth of %d", maxImportDepth)
	}

	trimmed := trimLeadingWhitespace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty node")
	}

	if trimmed[0] == '{' {
		return parseLeaf(data, parent)
	}
	if trimmed[0] != '[' {
		return nil, fmt.Errorf("unexpected node element: expected array or object")
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, fmt.Errorf("directory is not an array: %w", err)
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("empty directory array")
	}

	var entry ncduEntry
	if err := json.Unmarshal(elements[0], &entry); err != nil {
		return nil, fmt.Errorf("cannot parse directory entry: %w", err)
	}
	name := entry.Name
	if parent != nil {
		if err := validateName(name); err != nil {
			return nil, fmt.Errorf("invalid directory entry: %w", err)
		}
	} else {
		name = filepath.Clean(name)
	}
	if err := validateSizeField("directory asize", entry.Asize); err != nil {
		return nil, err
	}
	if err := validateSizeField("directory dsize", entry.Dsize); err != nil {
		return nil, err
	}

	dir := node.New(node.KindDirectory, name)
	if parent == nil {
		dir.FullPath = name
	}
	dir.SetFlag(flagsFor(entry))

	for i := 1; i < len(elements); i++ {
		child, err := parseNode(elements[i], dir, depth+1)
		if err != nil {
			return nil, err
		}
		// propagate=true: each child already carries its own correct
		// aggregate (leaves seeded directly, subdirectories aggregated
		// bottom-up by their own recursive parse), so folding it into dir
		// here is how dir's rollup gets built, instead of trusting the
		// exported asize/dsize entry fields.
		if err := node.AddChild(dir, child, true); err != nil {
			return nil, fmt.Errorf("cannot attach child %q: %w", child.Name, err)
		}
	}

	dir.MarkDone()
	return dir, nil
}

func parseLeaf(data json.RawMessage, parent *node.Node) (*node.Node, error) {
	var entry ncduEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("cannot parse file entry: %w", err)
	}
	if err := validateName(entry.Name); err != nil {
		return nil, fmt.Errorf("invalid file entry: %w", err)
	}
	if err := validateSizeField("file asize", entry.Asize); err != nil {
		return nil, err
	}
	if err := validateSizeField("file dsize", entry.Dsize); err != nil {
		return nil, err
	}

	f := node.New(node.KindFile, entry.Name)
	f.FileIndex = entry.Ino
	f.SetFlag(flagsFor(entry))
	f.SeedLeafSize(entry.Asize, entry.Dsize)
	f.MarkDoneLeaf()
	return f, nil
}

func trimLeadingWhitespace(data []byte) []byte {
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return data[i:]
		}
	}
	return nil
}
