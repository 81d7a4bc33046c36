package optimistic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID     string
	Status string
}

func newList() *List[record] {
	return New(func(r record) string { return r.ID })
}

func TestApply_SuccessKeepsPersistedValue(t *testing.T) {
	l := newList()
	l.Replace([]record{{ID: "a", Status: "DRAFT"}})

	saved, err := l.Apply(context.Background(), record{ID: "a", Status: "PENDING"}, func(ctx context.Context, r record) (record, error) {
		seen, ok := l.Get("a")
		require.True(t, ok)
		assert.Equal(t, "PENDING", seen.Status, "edit is visible before persistence resolves")
		r.Status = "PENDING-saved"
		return r, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "PENDING-saved", saved.Status)

	got, _ := l.Get("a")
	assert.Equal(t, "PENDING-saved", got.Status)
}

func TestApply_FailureRestoresLastKnownGood(t *testing.T) {
	l := newList()
	l.Replace([]record{{ID: "a", Status: "QUOTED"}, {ID: "b", Status: "DRAFT"}})

	boom := errors.New("disk full")
	_, err := l.Apply(context.Background(), record{ID: "a", Status: "SIGNED"}, func(ctx context.Context, r record) (record, error) {
		return record{}, boom
	})
	assert.ErrorIs(t, err, boom)

	got, ok := l.Get("a")
	require.True(t, ok)
	assert.Equal(t, "QUOTED", got.Status)
	assert.Equal(t, []record{{ID: "a", Status: "QUOTED"}, {ID: "b", Status: "DRAFT"}}, l.Items())
}

func TestApply_FailureRemovesNewEntry(t *testing.T) {
	l := newList()
	l.Replace([]record{{ID: "a"}, {ID: "b"}})

	_, err := l.Apply(context.Background(), record{ID: "new"}, func(ctx context.Context, r record) (record, error) {
		return record{}, errors.New("nope")
	})
	require.Error(t, err)

	_, ok := l.Get("new")
	assert.False(t, ok)
	assert.Len(t, l.Items(), 2)

	b, ok := l.Get("b")
	require.True(t, ok)
	assert.Equal(t, "b", b.ID)
}

func TestApply_LaterEditWins(t *testing.T) {
	l := newList()
	l.Replace([]record{{ID: "a", Status: "v0"}})

	_, err := l.Apply(context.Background(), record{ID: "a", Status: "v1"}, func(ctx context.Context, r record) (record, error) {
		// A second edit lands while the first is still in flight.
		_, err := l.Apply(ctx, record{ID: "a", Status: "v2"}, func(ctx context.Context, r record) (record, error) {
			return r, nil
		})
		require.NoError(t, err)
		return record{}, errors.New("first save failed")
	})
	require.Error(t, err)

	got, _ := l.Get("a")
	assert.Equal(t, "v2", got.Status, "stale rollback must not clobber the newer edit")
}

func TestLoadedAndInvalidate(t *testing.T) {
	l := newList()
	assert.False(t, l.Loaded())
	l.Replace(nil)
	assert.True(t, l.Loaded())
	l.Invalidate()
	assert.False(t, l.Loaded())
	assert.Empty(t, l.Items())
}

func TestApply_OverlappingFailuresRestorePersistedValue(t *testing.T) {
	l := newList()
	l.Replace([]record{{ID: "a", Status: "persisted"}})

	release := make(chan struct{})
	started := make(chan struct{})
	firstDone := make(chan error, 1)
	go func() {
		_, err := l.Apply(context.Background(), record{ID: "a", Status: "edit1"}, func(ctx context.Context, r record) (record, error) {
			close(started)
			<-release
			return record{}, errors.New("first save failed")
		})
		firstDone <- err
	}()
	<-started

	_, err := l.Apply(context.Background(), record{ID: "a", Status: "edit2"}, func(ctx context.Context, r record) (record, error) {
		close(release)
		require.Error(t, <-firstDone)
		return record{}, errors.New("second save failed")
	})
	require.Error(t, err)

	got, ok := l.Get("a")
	require.True(t, ok)
	assert.Equal(t, "persisted", got.Status)
}

func TestApply_FailureAfterSupersededSuccessKeepsSavedValue(t *testing.T) {
	l := newList()
	l.Replace([]record{{ID: "a", Status: "v0"}})

	_, err := l.Apply(context.Background(), record{ID: "a", Status: "v1"}, func(ctx context.Context, r record) (record, error) {
		// The first save is superseded by this one but still reaches the store.
		_, err := l.Apply(ctx, record{ID: "a", Status: "v2"}, func(ctx context.Context, r record) (record, error) {
			return record{}, errors.New("second save failed")
		})
		require.Error(t, err)
		return r, nil
	})
	require.NoError(t, err)

	got, _ := l.Get("a")
	assert.Equal(t, "v1", got.Status)
}
