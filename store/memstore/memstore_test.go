package memstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/k-nishimoto/untangle/store"
	"github.com/k-nishimoto/untangle/store/memstore"
)

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	gt.NoError(t, s.Put(ctx, "user_profile", []byte(`{}`)))

	doc, err := s.Get(ctx, "user_profile")
	gt.NoError(t, err)
	gt.Equal(t, []byte(`{}`), doc)

	ok, err := s.Exists(ctx, "user_profile")
	gt.NoError(t, err)
	gt.True(t, ok)
}

func TestGetMissingKey(t *testing.T) {
	s := memstore.New()

	_, err := s.Get(context.Background(), "calendar_db")
	gt.Error(t, err)
	gt.True(t, errors.Is(err, store.ErrNotFound))
}

func TestDocumentsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	original := []byte(`{"notes":"a"}`)
	gt.NoError(t, s.Put(ctx, "user_profile", original))

	// Mutating the caller's slice after Put must not affect the store.
	original[10] = 'b'

	doc, err := s.Get(ctx, "user_profile")
	gt.NoError(t, err)
	gt.Equal(t, []byte(`{"notes":"a"}`), doc)

	// Mutating a returned slice must not affect later reads.
	doc[10] = 'c'
	again, err := s.Get(ctx, "user_profile")
	gt.NoError(t, err)
	gt.Equal(t, []byte(`{"notes":"a"}`), again)
}
