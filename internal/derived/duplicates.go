package derived

import (
	"crypto/sha512"
	"io"
	"os"
	"sync"

	"github.com/briarlane/duscape/internal/node"
)

// fingerprintSize is the stored, truncated form of the 512-bit digest
// (§4.5 Duplicate detector): "low 16 bytes of a 512-bit cryptographic
// digest" — collisions are astronomically unlikely for filesystem-sized
// corpora (§9), which is the only semantic requirement.
const fingerprintSize = 16

// streamBlockSize is the chunk size the fingerprint is computed over;
// "streaming 1 MiB blocks" per §4.5.
const streamBlockSize = 1 << 20

type fingerprint [fingerprintSize]byte

type sizeGroup struct {
	files []*node.Node
}

// dupKey groups first by exact logical size (a cheap, exact pre-filter),
// then by fingerprint once two or more files share a size.
type dupKey struct {
	size        int64
	fingerprint fingerprint
}

// DuplicateIndex implements the candidate-grouping-then-fingerprint
// detector of §4.5: files are bucketed by size_logical first (free, no
// I/O), and only buckets with >= 2 members pay the cost of hashing.
type DuplicateIndex struct {
	mu       sync.Mutex
	bySize   map[int64][]node.WeakRef
	byDupKey map[dupKey][]node.WeakRef
}

// NewDuplicateIndex returns an empty index.
func NewDuplicateIndex() *DuplicateIndex {
	return &DuplicateIndex{
		bySize:   make(map[int64][]node.WeakRef),
		byDupKey: make(map[dupKey][]node.WeakRef),
	}
}

// Observe registers a file node for candidacy; it does not hash
// anything. Call Resolve (typically after a scan completes, or
// periodically for a live tree) to compute fingerprints for any newly
// eligible size groups.
func (d *DuplicateIndex) Observe(f *node.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bySize[f.SizeLogical()] = append(d.bySize[f.SizeLogical()], node.NewWeakRef(f))
}

// Resolve computes fingerprints for every size bucket with >= 2 live
// candidates not yet fingerprinted, using fingerprintFn to read file
// bytes (normally fingerprintFile, overridden in tests). It returns the
// duplicate groups found so far (size >= 2 members).
func (d *DuplicateIndex) Resolve(fingerprintFn func(path string) (fingerprint, error)) []DuplicateGroup {
	d.mu.Lock()
	candidates := make(map[int64][]*node.Node, len(d.bySize))
	for size, refs := range d.bySize {
		live := refs[:0]
		var files []*node.Node
		for _, r := range refs {
			if n, ok := r.Get(); ok {
				live = append(live, r)
				files = append(files, n)
			}
		}
		d.bySize[size] = live
		if len(files) >= 2 {
			candidates[size] = files
		}
	}
	hashed := make(map[*node.Node]bool)
	for _, refs := range d.byDupKey {
		for _, r := range refs {
			if n, ok := r.Get(); ok {
				hashed[n] = true
			}
		}
	}
	d.mu.Unlock()

	for size, files := range candidates {
		for _, f := range files {
			if hashed[f] {
				continue
			}
			fp, err := fingerprintFn(f.Path())
			if err != nil {
				continue // per-file failure is local; skip this candidate
			}
			key := dupKey{size: size, fingerprint: fp}
			d.mu.Lock()
			d.byDupKey[key] = append(d.byDupKey[key], node.NewWeakRef(f))
			d.mu.Unlock()
		}
	}

	return d.Groups()
}

// DuplicateGroup is a set of two or more files sharing size and
// fingerprint.
type DuplicateGroup struct {
	Size  int64
	Files []*node.Node
}

// Groups returns the currently live duplicate groups (size >= 2
// members), re-validating every weak reference.
func (d *DuplicateIndex) Groups() []DuplicateGroup {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []DuplicateGroup
	for key, refs := range d.byDupKey {
		live := refs[:0]
		var files []*node.Node
		for _, r := range refs {
			if n, ok := r.Get(); ok {
				live = append(live, r)
				files = append(files, n)
			}
		}
		d.byDupKey[key] = live
		if len(files) >= 2 {
			out = append(out, DuplicateGroup{Size: key.size, Files: files})
		}
	}
	return out
}

// Remove drops target from every size/fingerprint bucket it may be in;
// called by the hint bus on NodeRemoved.
func (d *DuplicateIndex) Remove(target *node.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for size, refs := range d.bySize {
		d.bySize[size] = removeRef(refs, target)
	}
	for key, refs := range d.byDupKey {
		d.byDupKey[key] = removeRef(refs, target)
	}
}

func removeRef(refs []node.WeakRef, target *node.Node) []node.WeakRef {
	kept := refs[:0]
	for _, r := range refs {
		if n, ok := r.Get(); ok && n != target {
			kept = append(kept, r)
		}
	}
	return kept
}

// FingerprintFile computes the low 16 bytes of a SHA-512 digest over the
// file's bytes, streamed in 1 MiB blocks (§4.5).
func FingerprintFile(path string) (fingerprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return fingerprint{}, err
	}
	defer f.Close()

	h := sha512.New()
	buf := make([]byte, streamBlockSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return fingerprint{}, err
	}

	sum := h.Sum(nil)
	var fp fingerprint
	copy(fp[:], sum[len(sum)-fingerprintSize:])
	return fp, nil
}
