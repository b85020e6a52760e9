package store

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBoltStorePutGetDelete(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get([]byte("k1"))
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put([]byte("k1"), []byte("v1")))
	v, err := s.Get([]byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(v))

	require.NoError(t, s.Delete([]byte("k1")))
	_, err = s.Get([]byte("k1"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBoltStoreScanForwardAndReverse(t *testing.T) {
	s := openTestStore(t)
	for _, k := range []string{"tr:M1:0001", "tr:M1:0002", "tr:M1:0003", "tr:M2:0001"} {
		require.NoError(t, s.Put([]byte(k), []byte(k)))
	}

	fwd, err := s.Scan([]byte("tr:M1:"), nil, 10, Forward)
	require.NoError(t, err)
	require.Len(t, fwd, 3)
	assert.Equal(t, "tr:M1:0001", string(fwd[0].Key))
	assert.Equal(t, "tr:M1:0003", string(fwd[2].Key))

	rev, err := s.Scan([]byte("tr:M1:"), nil, 10, Reverse)
	require.NoError(t, err)
	require.Len(t, rev, 3)
	assert.Equal(t, "tr:M1:0003", string(rev[0].Key))
	assert.Equal(t, "tr:M1:0001", string(rev[2].Key))
}

func TestBoltStoreScanResumesFromCursorExclusive(t *testing.T) {
	s := openTestStore(t)
	for _, k := range []string{"tr:M1:0001", "tr:M1:0002", "tr:M1:0003"} {
		require.NoError(t, s.Put([]byte(k), []byte(k)))
	}

	first, err := s.Scan([]byte("tr:M1:"), nil, 2, Forward)
	require.NoError(t, err)
	require.Len(t, first, 2)

	cursor := append(append([]byte(nil), first[len(first)-1].Key...), 0x00)
	rest, err := s.Scan([]byte("tr:M1:"), cursor, 10, Forward)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "tr:M1:0003", string(rest[0].Key))
}

func TestBoltStoreScanReverseWithMissingFromKeyStaysWithinPrefix(t *testing.T) {
	s := openTestStore(t)
	// A large earlier keyspace: a reverse scan that fell back to c.Last()
	// and crawled backward looking for a match would have to walk all of
	// this before ever reaching kl:M1:s1's one row.
	for i := 0; i < 500; i++ {
		require.NoError(t, s.Put([]byte(fmt.Sprintf("in:%04d", i)), []byte("x")))
	}
	require.NoError(t, s.Put([]byte("kl:M1:s1:0001"), []byte("candle")))
	require.NoError(t, s.Put([]byte("kl:M2:s1:0001"), []byte("other-mint")))

	// fromKey is the next candle bucket key computed but not yet written,
	// so it doesn't exist in the store.
	rows, err := s.Scan([]byte("kl:M1:s1:"), []byte("kl:M1:s1:0002"), 1, Reverse)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "kl:M1:s1:0001", string(rows[0].Key))

	// A fromKey past the end of the entire bucket must still stay bounded
	// to the requested prefix rather than returning a later mint's row.
	rows, err = s.Scan([]byte("kl:M1:s1:"), []byte("zz:overflow"), 1, Reverse)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "kl:M1:s1:0001", string(rows[0].Key))

	// A prefix with no rows at all must come back empty, not fall through
	// to a neighboring prefix.
	rows, err = s.Scan([]byte("kl:M3:s1:"), []byte("kl:M3:s1:0002"), 1, Reverse)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestBoltStoreScanRejectsNonPositiveLimit(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Scan([]byte("tr:"), nil, 0, Forward)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBoltStoreBatchApplyAppliesAllOps(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put([]byte("or:M1:up:P"), []byte("old")))

	err := s.BatchApply([]Op{
		PutOp([]byte("tr:M1:0001:ls:sig"), []byte("event")),
		DeleteOp([]byte("or:M1:up:P")),
		PutOp([]byte("in:M1"), []byte("summary")),
	})
	require.NoError(t, err)

	_, err = s.Get([]byte("or:M1:up:P"))
	assert.ErrorIs(t, err, ErrNotFound)

	v, err := s.Get([]byte("in:M1"))
	require.NoError(t, err)
	assert.Equal(t, "summary", string(v))
}

func TestBoltStoreBatchApplyRejectsInvalidOpKind(t *testing.T) {
	s := openTestStore(t)
	err := s.BatchApply([]Op{{Kind: OpKind(99), Key: []byte("k")}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBoltStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Put([]byte("k1"), []byte("v1")))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	v, err := s2.Get([]byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(v))
}

func TestPrefixUpperBound(t *testing.T) {
	assert.Equal(t, []byte("tr;"), prefixUpperBound([]byte("tr:")))
	assert.Nil(t, prefixUpperBound([]byte{0xff, 0xff}))
}
