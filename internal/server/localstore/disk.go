package localstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/aikea/internal/filex"
)

// DiskBlobStore keeps blobs under a directory. URLs point at the
// server's static file route.
type DiskBlobStore struct {
	root      string
	urlPrefix string
}

// NewDiskBlobStore creates dir if needed. urlPrefix is the route the HTTP
// API serves dir under, e.g. "/files".
func NewDiskBlobStore(dir, urlPrefix string) (*DiskBlobStore, error) {
	root, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	return &DiskBlobStore{root: root, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

func (d *DiskBlobStore) Name() string { return "disk" }

// Root is the absolute directory holding the blobs.
func (d *DiskBlobStore) Root() string { return d.root }

func (d *DiskBlobStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || clean == ".." {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(d.root, clean), nil
}

func (d *DiskBlobStore) Put(_ context.Context, key, _ string, data []byte) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	return filex.WriteFileAtomic(p, data)
}

// Delete succeeds when the blob is already gone.
func (d *DiskBlobStore) Delete(_ context.Context, key string) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	_, err = filex.RemoveIfExists(p)
	return err
}

func (d *DiskBlobStore) URL(_ context.Context, key string) (string, error) {
	if _, err := d.path(key); err != nil {
		return "", err
	}
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return d.urlPrefix + "/" + strings.Join(parts, "/"), nil
}

func (d *DiskBlobStore) Check(context.Context) error {
	fi, err := os.Stat(d.root)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return errors.New(d.root + " is not a directory")
	}
	return nil
}
