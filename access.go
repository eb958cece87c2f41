package treefs

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
)

// Permission mask bits for the access() callback.
const (
	accessExists  = 0 // F_OK
	accessExecute = 1 // X_OK
	accessWrite   = 2 // W_OK
	accessRead    = 4 // R_OK
)

// Access answers permission probes against the read-only tree.
// Existence is implied by the node; any write request is refused, and
// execute is only granted on directories (search permission).
func (n *treeNode) Access(ctx context.Context, mask uint32) syscall.Errno {
	n.tfs.stats.recordOperation()

	if mask&accessWrite != 0 {
		return syscall.EROFS
	}
	if mask&accessExecute != 0 && !n.entry.Dir {
		return syscall.EACCES
	}
	return 0
}

var _ fs.NodeAccesser = (*treeNode)(nil)
