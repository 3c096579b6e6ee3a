package boltsnapshots

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatman-systems/workflowkernel/kernelerrors"
	"github.com/chatman-systems/workflowkernel/snapshot"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshots.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoadSnapshotBytesRoundTrip(t *testing.T) {
	s := openTestStore(t)
	var h snapshot.Hash
	h[0] = 0xAB

	require.NoError(t, s.SaveSnapshotBytes(context.Background(), h, []byte("encoded-bytes")))

	got, err := s.LoadSnapshotBytes(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, []byte("encoded-bytes"), got)
}

func TestLoadSnapshotBytesUnknownHashFails(t *testing.T) {
	s := openTestStore(t)
	var h snapshot.Hash
	h[0] = 0xFF

	_, err := s.LoadSnapshotBytes(context.Background(), h)
	assert.Equal(t, kernelerrors.KindSnapshotNotFound, kernelerrors.KindOf(err))
}

func TestListHashesReturnsEveryStoredHash(t *testing.T) {
	s := openTestStore(t)
	var h1, h2 snapshot.Hash
	h1[0], h2[0] = 1, 2

	require.NoError(t, s.SaveSnapshotBytes(context.Background(), h1, []byte("a")))
	require.NoError(t, s.SaveSnapshotBytes(context.Background(), h2, []byte("b")))

	hashes, err := s.ListHashes()
	require.NoError(t, err)
	assert.Len(t, hashes, 2)
}
