package localstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskBlobStore_RoundTrip(t *testing.T) {
	d := newDisk(t)
	ctx := context.Background()

	require.NoError(t, d.Put(ctx, "uploads/a b.pdf", "application/pdf", []byte("x")))
	b, err := os.ReadFile(filepath.Join(d.Root(), "uploads", "a b.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(b))

	u, err := d.URL(ctx, "uploads/a b.pdf")
	require.NoError(t, err)
	assert.Equal(t, "/files/uploads/a%20b.pdf", u)

	require.NoError(t, d.Delete(ctx, "uploads/a b.pdf"))
	require.NoError(t, d.Delete(ctx, "uploads/a b.pdf"), "deleting a missing blob is not an error")
	require.NoError(t, d.Check(ctx))
}

func TestDiskBlobStore_RejectsEscapingKeys(t *testing.T) {
	d := newDisk(t)
	ctx := context.Background()

	for _, key := range []string{"../x", "a/../../x", "/etc/passwd", "", ".."} {
		assert.Error(t, d.Put(ctx, key, "", []byte("x")), key)
		_, err := d.URL(ctx, key)
		assert.Error(t, err, key)
	}
}

func TestDiskBlobStore_CheckMissingRoot(t *testing.T) {
	d := newDisk(t)
	require.NoError(t, os.RemoveAll(d.Root()))
	assert.Error(t, d.Check(context.Background()))
}
