package treefs

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// treeNode is one kernel-visible node. It holds a shared view of its
// immutable Entry and the canonical index path it was resolved under.
type treeNode struct {
	fs.Inode
	tfs   *TreeFS
	path  string
	entry *Entry
}

// Read-path interfaces.
var _ fs.NodeLookuper = (*treeNode)(nil)
var _ fs.NodeGetattrer = (*treeNode)(nil)
var _ fs.NodeReaddirer = (*treeNode)(nil)
var _ fs.NodeOpener = (*treeNode)(nil)
var _ fs.NodeReader = (*treeNode)(nil)
var _ fs.NodeOpendirer = (*treeNode)(nil)

// Mutating interfaces, implemented to refuse.
var _ fs.NodeCreater = (*treeNode)(nil)
var _ fs.NodeMknoder = (*treeNode)(nil)
var _ fs.NodeMkdirer = (*treeNode)(nil)
var _ fs.NodeUnlinker = (*treeNode)(nil)
var _ fs.NodeRmdirer = (*treeNode)(nil)
var _ fs.NodeRenamer = (*treeNode)(nil)
var _ fs.NodeSetattrer = (*treeNode)(nil)
var _ fs.NodeSymlinker = (*treeNode)(nil)
var _ fs.NodeLinker = (*treeNode)(nil)
var _ fs.NodeReadlinker = (*treeNode)(nil)

// Lookup resolves a child by name.
func (n *treeNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	if errno := n.tfs.admit(ctx); errno != 0 {
		return nil, errno
	}
	n.tfs.stats.recordOperation()

	path := n.tfs.tree.san.Clean(childPath(n.path, name))
	entry := n.tfs.tree.Lookup(path)
	if entry == nil {
		n.tfs.stats.recordError()
		n.tfs.logMissing(path)
		return nil, syscall.ENOENT
	}

	n.tfs.fillAttr(entry, &out.Attr)

	child := &treeNode{tfs: n.tfs, path: path, entry: entry}
	mode := uint32(syscall.S_IFREG)
	if entry.Dir {
		mode = syscall.S_IFDIR
	}
	return n.NewInode(ctx, child, fs.StableAttr{Mode: mode, Ino: entry.Ino}), 0
}

// Getattr fills the stat record for this node.
func (n *treeNode) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	if errno := n.tfs.admit(ctx); errno != 0 {
		return errno
	}
	n.tfs.stats.recordOperation()
	n.tfs.fillAttr(n.entry, &out.Attr)
	return 0
}

// Readdir lists ".", "..", then the children in document order.
func (n *treeNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	if errno := n.tfs.admit(ctx); errno != 0 {
		return nil, errno
	}
	n.tfs.stats.recordOperation()

	if !n.entry.Dir {
		n.tfs.stats.recordError()
		return nil, syscall.ENOTDIR
	}

	entries := make([]fuse.DirEntry, 0, len(n.entry.Children)+2)
	entries = append(entries,
		fuse.DirEntry{Name: ".", Ino: n.entry.Ino, Mode: syscall.S_IFDIR},
		fuse.DirEntry{Name: "..", Mode: syscall.S_IFDIR},
	)
	for _, c := range n.entry.Children {
		mode := uint32(syscall.S_IFREG)
		if c.Dir {
			mode = syscall.S_IFDIR
		}
		entries = append(entries, fuse.DirEntry{Name: c.Name, Ino: c.Ino, Mode: mode})
	}
	return fs.NewListDirStream(entries), 0
}

// Open admits read-only opens. There is no per-handle state, so no
// file handle is allocated; content is immutable and the kernel page
// cache stays valid.
func (n *treeNode) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	n.tfs.stats.recordOperation()

	if flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		n.tfs.stats.recordError()
		return nil, 0, syscall.EROFS
	}
	if n.entry.Dir {
		n.tfs.stats.recordError()
		return nil, 0, syscall.EISDIR
	}
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

// Opendir is a no-op success for directories (existence is implied by
// the node); a file is refused with ENOTDIR.
func (n *treeNode) Opendir(ctx context.Context) syscall.Errno {
	n.tfs.stats.recordOperation()
	if !n.entry.Dir {
		n.tfs.stats.recordError()
		return syscall.ENOTDIR
	}
	return 0
}

// Read synthesizes exactly min(len(dest), size-offset) bytes of the
// file window.
func (n *treeNode) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	if errno := n.tfs.admit(ctx); errno != 0 {
		return nil, errno
	}
	n.tfs.stats.recordOperation()

	if n.entry.Dir {
		n.tfs.stats.recordError()
		return nil, syscall.EISDIR
	}
	if off < 0 {
		n.tfs.stats.recordError()
		return nil, syscall.EINVAL
	}

	count := n.tfs.synth.ReadAt(n.path, n.entry.Size, dest, uint64(off))
	n.tfs.stats.recordRead(count)
	return fuse.ReadResultData(dest[:count]), 0
}

// The tree is read-only by construction: every mutating callback is
// refused with EROFS.

func (n *treeNode) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	n.tfs.stats.recordOperation()
	return nil, nil, 0, syscall.EROFS
}

func (n *treeNode) Mknod(ctx context.Context, name string, mode uint32, dev uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	n.tfs.stats.recordOperation()
	return nil, syscall.EROFS
}

func (n *treeNode) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	n.tfs.stats.recordOperation()
	return nil, syscall.EROFS
}

func (n *treeNode) Unlink(ctx context.Context, name string) syscall.Errno {
	n.tfs.stats.recordOperation()
	return syscall.EROFS
}

func (n *treeNode) Rmdir(ctx context.Context, name string) syscall.Errno {
	n.tfs.stats.recordOperation()
	return syscall.EROFS
}

func (n *treeNode) Rename(ctx context.Context, name string, newParent fs.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	n.tfs.stats.recordOperation()
	return syscall.EROFS
}

// Setattr covers truncate, chmod, chown, and utimens; all are refused.
func (n *treeNode) Setattr(ctx context.Context, f fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	n.tfs.stats.recordOperation()
	return syscall.EROFS
}

func (n *treeNode) Symlink(ctx context.Context, target, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	n.tfs.stats.recordOperation()
	return nil, syscall.EROFS
}

func (n *treeNode) Link(ctx context.Context, target fs.InodeEmbedder, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	n.tfs.stats.recordOperation()
	return nil, syscall.EROFS
}

func (n *treeNode) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	n.tfs.stats.recordOperation()
	return nil, syscall.EROFS
}
