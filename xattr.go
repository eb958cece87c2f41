package treefs

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
)

// Extended attributes are not part of the virtual tree. Queries for a
// specific attribute report ENODATA; listing reports an empty set; any
// modification is refused like every other write.

func (n *treeNode) Getxattr(ctx context.Context, attr string, dest []byte) (uint32, syscall.Errno) {
	n.tfs.stats.recordOperation()
	return 0, syscall.ENODATA
}

func (n *treeNode) Listxattr(ctx context.Context, dest []byte) (uint32, syscall.Errno) {
	n.tfs.stats.recordOperation()
	return 0, 0
}

func (n *treeNode) Setxattr(ctx context.Context, attr string, data []byte, flags uint32) syscall.Errno {
	n.tfs.stats.recordOperation()
	return syscall.EROFS
}

func (n *treeNode) Removexattr(ctx context.Context, attr string) syscall.Errno {
	n.tfs.stats.recordOperation()
	return syscall.EROFS
}

var _ fs.NodeGetxattrer = (*treeNode)(nil)
var _ fs.NodeListxattrer = (*treeNode)(nil)
var _ fs.NodeSetxattrer = (*treeNode)(nil)
var _ fs.NodeRemovexattrer = (*treeNode)(nil)
