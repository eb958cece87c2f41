package treefs

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// statfsBlockSize is the block size the filesystem advertises.
const statfsBlockSize = 512

// maxNameLen is the advertised maximum filename length.
const maxNameLen = 255

// Statfs reports the virtual volume geometry: enough total blocks to
// hold every declared byte, none of them free. It never fails.
func (n *treeNode) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	n.tfs.stats.recordOperation()

	totalBlocks := (n.tfs.tree.TotalBytes + statfsBlockSize - 1) / statfsBlockSize
	files := n.tfs.tree.TotalFiles
	if files == 0 {
		files = 1
	}

	out.Bsize = statfsBlockSize
	out.Frsize = statfsBlockSize
	out.Blocks = totalBlocks
	out.Bfree = 0
	out.Bavail = 0
	out.Files = files
	out.Ffree = 0
	out.NameLen = maxNameLen
	return 0
}

var _ fs.NodeStatfser = (*treeNode)(nil)
