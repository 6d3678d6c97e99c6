package search

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, tr *Transcripts) {
	t.Helper()
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	entries := []Entry{
		{UserID: "rose", Role: "user", Text: "I miss working in my garden", CreatedAt: base},
		{UserID: "rose", Role: "assistant", Text: "Your garden sounds lovely… tell me about the roses.", CreatedAt: base.Add(time.Minute)},
		{UserID: "rose", Role: "user", Text: "I had porridge for breakfast", CreatedAt: base.Add(2 * time.Minute)},
		{UserID: "sam", Role: "user", Text: "The garden centre was busy", CreatedAt: base},
	}
	for _, e := range entries {
		require.NoError(t, tr.Add(context.Background(), e))
	}
}

func TestSearchScopedToSubject(t *testing.T) {
	tr, err := Open(Config{})
	require.NoError(t, err)
	defer tr.Close()
	seed(t, tr)

	n, err := tr.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), n)

	hits, err := tr.Search(context.Background(), "rose", "garden", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.Contains(t, h.Text, "garden")
		assert.NotEmpty(t, h.CreatedAt)
	}

	hits, err = tr.Search(context.Background(), "rose", "Breakfast", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "user", hits[0].Role)

	hits, err = tr.Search(context.Background(), "nobody", "garden", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestPersistentIndexReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcripts.bleve")
	tr, err := Open(Config{IndexPath: path})
	require.NoError(t, err)
	seed(t, tr)
	require.NoError(t, tr.Close())

	_, err = tr.Search(context.Background(), "rose", "garden", 10)
	assert.ErrorIs(t, err, ErrClosed)

	tr, err = Open(Config{IndexPath: path})
	require.NoError(t, err)
	defer tr.Close()
	hits, err := tr.Search(context.Background(), "sam", "garden", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}
