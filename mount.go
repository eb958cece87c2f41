package treefs

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// Mount attaches a loaded tree at opts.Mountpoint and returns the
// running filesystem. Failures to attach wrap ErrMount.
func Mount(tree *Tree, opts *Options) (*TreeFS, error) {
	if opts == nil {
		return nil, invalidConfigf("mount options cannot be nil")
	}
	if opts.Mountpoint == "" {
		return nil, invalidConfigf("mountpoint cannot be empty")
	}

	if err := ensureMountpoint(opts.Mountpoint); err != nil {
		return nil, err
	}

	tfs, err := newTreeFS(tree, opts)
	if err != nil {
		return nil, err
	}

	attrTimeout := 1 * time.Second
	entryTimeout := 1 * time.Second
	fuseOpts := &fs.Options{
		AttrTimeout:  &attrTimeout,
		EntryTimeout: &entryTimeout,
		MountOptions: fuse.MountOptions{
			Name:       opts.FSName,
			FsName:     opts.FSName,
			AllowOther: opts.AllowOther,
			Debug:      opts.Debug,
			Options:    []string{"ro"},
		},
	}

	server, err := fs.Mount(opts.Mountpoint, tfs.root, fuseOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: attaching at %s: %v", ErrMount, opts.Mountpoint, err)
	}
	tfs.server = server

	if opts.ReportStats {
		tfs.report = startStatsReporter(tfs.stats, tfs.log, tree.san)
	}

	tfs.log.Infof("mounted %s at %s", opts.FSName, opts.Mountpoint)
	return tfs, nil
}

// Unmount detaches the filesystem and stops the stats reporter.
func (t *TreeFS) Unmount() error {
	if t.report != nil {
		t.report.Stop()
		t.report = nil
	}
	if t.server != nil {
		return t.server.Unmount()
	}
	return nil
}

// Wait blocks until the filesystem is unmounted.
func (t *TreeFS) Wait() error {
	if t.server == nil {
		return fmt.Errorf("%w: filesystem not mounted", ErrMount)
	}
	t.server.Wait()
	if t.report != nil {
		t.report.Stop()
		t.report = nil
	}
	return nil
}

// MountAndWait mounts a tree and blocks until unmount.
func MountAndWait(tree *Tree, opts *Options) error {
	tfs, err := Mount(tree, opts)
	if err != nil {
		return err
	}
	return tfs.Wait()
}

// IsMounted checks whether a directory currently is a mountpoint, by
// comparing its device id with its parent's.
func IsMounted(path string) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}

	var stat syscall.Stat_t
	if err := syscall.Stat(absPath, &stat); err != nil {
		return false, err
	}

	var parentStat syscall.Stat_t
	if err := syscall.Stat(filepath.Dir(absPath), &parentStat); err != nil {
		return false, err
	}

	return stat.Dev != parentStat.Dev, nil
}

// ensureMountpoint verifies the mountpoint exists and is a directory.
func ensureMountpoint(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: mountpoint %s: %v", ErrMount, path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: mountpoint %s is not a directory", ErrMount, path)
	}
	return nil
}
