package filestore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/k-nishimoto/untangle/store"
	"github.com/k-nishimoto/untangle/store/filestore"
)

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := filestore.New(t.TempDir())
	gt.NoError(t, err)

	gt.NoError(t, s.Put(ctx, "user_profile", []byte(`{"notes":"hi"}`)))

	doc, err := s.Get(ctx, "user_profile")
	gt.NoError(t, err)
	gt.Equal(t, []byte(`{"notes":"hi"}`), doc)

	ok, err := s.Exists(ctx, "user_profile")
	gt.NoError(t, err)
	gt.True(t, ok)
}

func TestGetMissingKey(t *testing.T) {
	ctx := context.Background()
	s, err := filestore.New(t.TempDir())
	gt.NoError(t, err)

	_, err = s.Get(ctx, "calendar_db")
	gt.Error(t, err)
	gt.True(t, errors.Is(err, store.ErrNotFound))

	ok, err := s.Exists(ctx, "calendar_db")
	gt.NoError(t, err)
	gt.False(t, ok)
}

func TestPutOverwrites(t *testing.T) {
	ctx := context.Background()
	s, err := filestore.New(t.TempDir())
	gt.NoError(t, err)

	gt.NoError(t, s.Put(ctx, "calendar_db", []byte(`[]`)))
	gt.NoError(t, s.Put(ctx, "calendar_db", []byte(`[{"entry_id":"a"}]`)))

	doc, err := s.Get(ctx, "calendar_db")
	gt.NoError(t, err)
	gt.Equal(t, []byte(`[{"entry_id":"a"}]`), doc)
}

func TestPutLeavesNoTemporaryFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := filestore.New(dir)
	gt.NoError(t, err)

	gt.NoError(t, s.Put(ctx, "calendar_db", []byte(`[]`)))

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	gt.NoError(t, err)
	gt.Array(t, leftovers).Length(0)
}

func TestDocumentsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := filestore.New(dir)
	gt.NoError(t, err)
	gt.NoError(t, s.Put(ctx, "user_profile", []byte(`{"max_subtask_minutes":30}`)))
	gt.NoError(t, s.Close())

	reopened, err := filestore.New(dir)
	gt.NoError(t, err)
	doc, err := reopened.Get(ctx, "user_profile")
	gt.NoError(t, err)
	gt.Equal(t, []byte(`{"max_subtask_minutes":30}`), doc)
}
