package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mockingbird/internal/builder"
	"mockingbird/internal/snapshot"
	"mockingbird/internal/vtree"
)

func TestApplySchedulesRebuild(t *testing.T) {
	s := New("s1", Options{Debounce: 10 * time.Millisecond})
	defer s.Close()

	results := make(chan *builder.Result, 4)
	unsub := s.Subscribe(func(r *builder.Result) { results <- r })
	defer unsub()

	err := s.Apply(func(tr *vtree.Tree) error {
		return tr.Create("/App.jsx", `export default () => <p>hi</p>;`)
	})
	require.NoError(t, err)

	select {
	case r := <-results:
		require.Equal(t, builder.StateReady, r.State)
		require.Equal(t, "App.jsx", r.Payload.Entry)
	case <-time.After(3 * time.Second):
		t.Fatal("no build delivered after mutation")
	}
}

func TestMutationErrorDoesNotSchedule(t *testing.T) {
	s := New("s2", Options{Debounce: 10 * time.Millisecond})
	defer s.Close()

	results := make(chan *builder.Result, 4)
	unsub := s.Subscribe(func(r *builder.Result) { results <- r })
	defer unsub()

	err := s.Apply(func(tr *vtree.Tree) error {
		return tr.Update("/missing.js", "x")
	})
	require.Error(t, err)

	select {
	case r := <-results:
		t.Fatalf("unexpected build %+v after failed mutation", r)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := snapshot.NewMemoryStore()
	ctx := context.Background()

	s := New("s3", Options{Store: store})
	require.NoError(t, s.Apply(func(tr *vtree.Tree) error {
		return tr.CreateAll("/components/Button.jsx", "b")
	}))
	require.NoError(t, s.Save(ctx))
	s.Close()

	s2 := New("s3", Options{Store: store})
	defer s2.Close()
	require.NoError(t, s2.Load(ctx))
	require.NoError(t, s2.View(func(tr *vtree.Tree) error {
		got, err := tr.Read("/components/Button.jsx")
		require.NoError(t, err)
		require.Equal(t, "b", got)
		return nil
	}))
}

func TestClosedSessionRejectsMutation(t *testing.T) {
	s := New("s4", Options{})
	s.Close()
	err := s.Apply(func(tr *vtree.Tree) error { return tr.Create("/a.js", "x") })
	require.Error(t, err)
}

func TestManagerOpenGetClose(t *testing.T) {
	m := NewManager(nil, nil, Options{})
	defer m.CloseAll()

	s, err := m.Open("alpha")
	require.NoError(t, err)
	again, err := m.Open("alpha")
	require.NoError(t, err)
	require.Same(t, s, again)

	got, ok := m.Get("alpha")
	require.True(t, ok)
	require.Same(t, s, got)

	m.Close("alpha")
	_, ok = m.Get("alpha")
	require.False(t, ok)

	_, err = m.Open(" ")
	require.Error(t, err)
}
