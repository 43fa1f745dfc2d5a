package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgconn"
	pgzip "github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDB struct {
	execs    atomic.Uint64
	failWith error
}

func (f *fakeDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	f.execs.Add(1)
	if f.failWith != nil {
		return pgconn.CommandTag{}, f.failWith
	}
	return pgconn.CommandTag{}, nil
}

func newImporter(db execer) *importer {
	return &importer{
		db:     db,
		filter: bloom.NewWithEstimates(100_000, 0.001),
	}
}

// writeFeed produces a gzipped JSONL feed with n distinct items.
func writeFeed(t *testing.T, name string, n int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	for i := 0; i < n; i++ {
		fmt.Fprintf(gz, `{"id":"it-%s-%d","name":"%s item %d","description":"x","price":"19.99","currency":"usd"}`+"\n",
			name, i, name, i)
	}
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func TestImportFeeds(t *testing.T) {
	db := &fakeDB{}
	imp := newImporter(db)
	feed := writeFeed(t, "main", 100)

	require.NoError(t, imp.importFeeds(context.Background(), []string{feed}))
	assert.Equal(t, uint64(100), imp.imported.Load())
	assert.Equal(t, uint64(100), db.execs.Load())
	assert.Zero(t, imp.duplicates.Load())
	assert.Zero(t, imp.invalid.Load())
}

func TestImportFeedsDeduplicates(t *testing.T) {
	db := &fakeDB{}
	imp := newImporter(db)
	feed := writeFeed(t, "dupes", 50)

	require.NoError(t, imp.importFeeds(context.Background(), []string{feed, feed}))
	assert.Equal(t, uint64(50), imp.imported.Load())
	assert.Equal(t, uint64(50), imp.duplicates.Load())
}

func TestImportFeedsWriteErrorStopsFeeders(t *testing.T) {
	db := &fakeDB{failWith: errors.New("connection reset")}
	imp := newImporter(db)
	// Well past the channel buffer, so feeders would wedge on send if the
	// write error did not cancel them.
	feed := writeFeed(t, "big", 5_000)

	errc := make(chan error, 1)
	go func() { errc <- imp.importFeeds(context.Background(), []string{feed}) }()

	select {
	case err := <-errc:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
	case <-time.After(10 * time.Second):
		t.Fatal("import did not return after a write error")
	}
}
