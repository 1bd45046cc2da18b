// Package exfat implements platform.USB against a real exFAT-formatted
// USB mass-storage image, using github.com/dsoprea/go-exfat, enriching
// the USB seam with a genuine filesystem rather than an in-memory
// fake. go-exfat is read-only (it was built for forensic extraction,
// not authoring), so every mutating
// method here reports IoError: a write-protected medium is a real
// constraint. The Recovery Engine only reads from USB and never calls
// these methods; the Backup Engine, which does, abandons its cycle on
// the IoError. This is a realistic
// way to serve recovery off a read-only forensic image while a
// separate writable device (platform/simulated.USB, or a future
// writable-filesystem backend) serves the Backup Engine.
package exfat

import (
	"bytes"
	"context"
	"io"
	"strings"

	goexfat "github.com/dsoprea/go-exfat"

	"openenterprise/srccore/srcerr"
)

// ReadOnly is a platform.USB backed by a single exFAT image.
type ReadOnly struct {
	reader *goexfat.ExfatReader
	tree   *goexfat.Tree
}

// Open parses rs as an exFAT filesystem and indexes its directory
// tree, ready to serve ReadFile/FileExists for recovery-tree paths.
func Open(rs io.ReadSeeker) (*ReadOnly, error) {
	er := goexfat.NewExfatReader(rs)
	if err := er.Parse(); err != nil {
		return nil, srcerr.Wrap(srcerr.IoError, "exfat.Open", err)
	}

	tree := goexfat.NewTree(er)
	if err := tree.Load(); err != nil {
		return nil, srcerr.Wrap(srcerr.IoError, "exfat.Open", err)
	}

	return &ReadOnly{reader: er, tree: tree}, nil
}

func pathParts(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func (r *ReadOnly) lookup(path string) *goexfat.TreeNode {
	node, err := r.tree.Lookup(pathParts(path))
	if err != nil {
		return nil
	}
	return node
}

func (r *ReadOnly) Init(ctx context.Context) error { return nil }

func (r *ReadOnly) IsPresent(ctx context.Context) bool { return r.reader != nil }

func (r *ReadOnly) FileExists(ctx context.Context, path string) bool {
	node := r.lookup(path)
	return node != nil && !node.IsDirectory()
}

func (r *ReadOnly) ReadFile(ctx context.Context, path string) ([]byte, error) {
	node := r.lookup(path)
	if node == nil || node.IsDirectory() {
		return nil, srcerr.New(srcerr.IoError, "exfat.ReadFile")
	}
	sede := node.StreamDirectoryEntry()
	if sede == nil {
		return nil, srcerr.New(srcerr.IoError, "exfat.ReadFile")
	}

	var buf bytes.Buffer
	_, _, err := r.reader.WriteFromClusterChain(sede.FirstCluster, sede.ValidDataLength, true, &buf)
	if err != nil {
		return nil, srcerr.Wrap(srcerr.IoError, "exfat.ReadFile", err)
	}
	return buf.Bytes(), nil
}

func (r *ReadOnly) WriteFile(ctx context.Context, path string, data []byte) error {
	return srcerr.New(srcerr.IoError, "exfat.WriteFile: write-protected medium")
}

func (r *ReadOnly) DeleteFile(ctx context.Context, path string) error {
	return srcerr.New(srcerr.IoError, "exfat.DeleteFile: write-protected medium")
}

func (r *ReadOnly) RenameFile(ctx context.Context, oldPath, newPath string) error {
	return srcerr.New(srcerr.IoError, "exfat.RenameFile: write-protected medium")
}
