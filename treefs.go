// Package treefs mounts a declarative tree description as a read-only
// user-space filesystem. File contents are synthesized on demand, as a
// constant fill byte or as deterministic pseudo-random data, so huge or
// hostile hierarchies can be exercised without backing storage.
package treefs

import (
	"context"
	"strings"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/sirupsen/logrus"
)

// Version is the treefs release version.
const Version = "1.1.0"

// dirReportedSize is the conventional size reported for directories,
// regardless of any advisory size in the source document.
const dirReportedSize = 4096

// TreeFS is a mounted virtual filesystem. All durable state is built
// before the FUSE bridge receives the callback surface; nothing is
// added, removed, or resized after mount.
type TreeFS struct {
	tree    *Tree
	opts    *Options
	server  *fuse.Server
	synth   *synthesizer
	limiter *limiter
	stats   *statsCollector
	report  *statsReporter
	log     *logrus.Logger

	root *treeNode
}

// newTreeFS wires the engine without touching the kernel. Mount is the
// only caller that attaches it to a mountpoint; tests drive the
// callback helpers directly.
func newTreeFS(tree *Tree, opts *Options) (*TreeFS, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	tfs := &TreeFS{
		tree:    tree,
		opts:    opts,
		synth:   newSynthesizer(opts),
		limiter: newLimiter(opts.RateLimit, opts.IOPLimit),
		stats:   newStatsCollector(),
		log:     opts.logger(),
	}
	tfs.root = &treeNode{tfs: tfs, path: "/", entry: tree.Root}
	return tfs, nil
}

// Stats returns a snapshot of the filesystem counters.
func (t *TreeFS) Stats() Stats {
	s := t.stats.snapshot()
	s.Mountpoint = t.opts.Mountpoint
	return s
}

// admit runs limiter admission for one callback. A cancelled wait
// returns EINTR and the operation must not be counted.
func (t *TreeFS) admit(ctx context.Context) syscall.Errno {
	if err := t.limiter.Admit(ctx); err != nil {
		return syscall.EINTR
	}
	return 0
}

// getattr resolves a path and fills the stat attributes: read-only
// modes by construction, uniform ownership and mtime, nlink 2 for
// directories and 1 for files.
func (t *TreeFS) getattr(path string, out *fuse.Attr) syscall.Errno {
	e := t.tree.Lookup(path)
	if e == nil {
		t.logMissing(path)
		return syscall.ENOENT
	}
	t.fillAttr(e, out)
	return 0
}

// readdirNames lists a directory: ".", "..", then each child in
// document order.
func (t *TreeFS) readdirNames(path string) ([]string, syscall.Errno) {
	e := t.tree.Lookup(path)
	if e == nil {
		t.logMissing(path)
		return nil, syscall.ENOENT
	}
	if !e.Dir {
		return nil, syscall.ENOTDIR
	}
	names := make([]string, 0, len(e.Children)+2)
	names = append(names, ".", "..")
	for _, c := range e.Children {
		names = append(names, c.Name)
	}
	return names, 0
}

// read synthesizes the window [off, off+len(dest)) of the file at
// path into dest and returns the produced byte count.
func (t *TreeFS) read(path string, dest []byte, off uint64) (int, syscall.Errno) {
	e := t.tree.Lookup(path)
	if e == nil {
		t.logMissing(path)
		return 0, syscall.ENOENT
	}
	if e.Dir {
		return 0, syscall.EISDIR
	}
	return t.synth.ReadAt(t.tree.san.Clean(path), e.Size, dest, off), 0
}

// fillAttr populates a stat record from an entry.
func (t *TreeFS) fillAttr(e *Entry, out *fuse.Attr) {
	out.Ino = e.Ino
	if e.Dir {
		out.Mode = syscall.S_IFDIR | 0o555
		out.Size = dirReportedSize
		out.Nlink = 2
	} else {
		out.Mode = syscall.S_IFREG | 0o444
		out.Size = e.Size
		out.Nlink = 1
	}
	out.Blocks = (out.Size + 511) / 512
	out.Blksize = uint32(statfsBlockSize)
	out.Owner.Uid = t.opts.UID
	out.Owner.Gid = t.opts.GID
	mtime := t.opts.MTime
	out.Mtime = uint64(mtime.Unix())
	out.Mtimensec = uint32(mtime.Nanosecond())
	out.Atime = out.Mtime
	out.Atimensec = out.Mtimensec
	out.Ctime = out.Mtime
	out.Ctimensec = out.Mtimensec
}

// Host-indexer sentinels whose lookups are expected misses on macOS.
var indexerProbeNames = map[string]struct{}{
	".hidden":          {},
	".DS_Store":        {},
	".Spotlight-V100":  {},
	".fseventsd":       {},
	".Trashes":         {},
	".VolumeIcon.icns": {},
}

// logMissing records a failed lookup. Host-indexer probes and
// AppleDouble companions are expected traffic; the AppleDouble class
// drops to Debug when suppressed.
func (t *TreeFS) logMissing(path string) {
	base := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		base = path[i+1:]
	}
	if strings.HasPrefix(base, "._") {
		if t.opts.IgnoreAppleDouble {
			t.log.Debugf("no AppleDouble companion: %s", path)
			return
		}
		t.log.Warnf("no AppleDouble companion: %s", path)
		return
	}
	if _, probe := indexerProbeNames[base]; probe {
		t.log.Warnf("indexer probe for missing path: %s", path)
		return
	}
	t.log.Warnf("path not found: %s", path)
}
