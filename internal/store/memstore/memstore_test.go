package memstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spinpet-indexer/internal/store"
)

func TestPutGetDelete(t *testing.T) {
	s := New()

	_, err := s.Get([]byte("k1"))
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Put([]byte("k1"), []byte("v1")))
	v, err := s.Get([]byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(v))

	require.NoError(t, s.Delete([]byte("k1")))
	_, err = s.Get([]byte("k1"))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestScanForwardAndReverse(t *testing.T) {
	s := New()
	for _, k := range []string{"tr:M1:0001", "tr:M1:0002", "tr:M1:0003", "tr:M2:0001"} {
		require.NoError(t, s.Put([]byte(k), []byte(k)))
	}

	fwd, err := s.Scan([]byte("tr:M1:"), nil, 10, store.Forward)
	require.NoError(t, err)
	require.Len(t, fwd, 3)
	assert.Equal(t, "tr:M1:0001", string(fwd[0].Key))
	assert.Equal(t, "tr:M1:0003", string(fwd[2].Key))

	rev, err := s.Scan([]byte("tr:M1:"), nil, 10, store.Reverse)
	require.NoError(t, err)
	require.Len(t, rev, 3)
	assert.Equal(t, "tr:M1:0003", string(rev[0].Key))
	assert.Equal(t, "tr:M1:0001", string(rev[2].Key))
}

func TestScanRespectsLimit(t *testing.T) {
	s := New()
	for _, k := range []string{"tr:M1:0001", "tr:M1:0002", "tr:M1:0003"} {
		require.NoError(t, s.Put([]byte(k), []byte(k)))
	}

	rows, err := s.Scan([]byte("tr:M1:"), nil, 2, store.Forward)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestBatchApplyAppliesAllOps(t *testing.T) {
	s := New()
	require.NoError(t, s.Put([]byte("or:M1:up:P"), []byte("old")))

	err := s.BatchApply([]store.Op{
		store.PutOp([]byte("tr:M1:0001:ls:sig"), []byte("event")),
		store.DeleteOp([]byte("or:M1:up:P")),
		store.PutOp([]byte("in:M1"), []byte("summary")),
	})
	require.NoError(t, err)

	_, err = s.Get([]byte("or:M1:up:P"))
	assert.ErrorIs(t, err, store.ErrNotFound)

	v, err := s.Get([]byte("in:M1"))
	require.NoError(t, err)
	assert.Equal(t, "summary", string(v))
}

func TestBatchApplyRejectsInvalidOpKind(t *testing.T) {
	s := New()
	err := s.BatchApply([]store.Op{{Kind: store.OpKind(99), Key: []byte("k")}})
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}
