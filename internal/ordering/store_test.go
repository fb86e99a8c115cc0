package ordering

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func setupRemote(t *testing.T) (*RedisRemote, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	remote, err := NewRedisRemote("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisRemote: %v", err)
	}
	t.Cleanup(func() { _ = remote.Close() })
	return remote, mr
}

type fakeRemote struct {
	getFn func(context.Context, string) ([]string, error)
	setFn func(context.Context, string, []string) (bool, error)
}

func (f *fakeRemote) GetFolderOrder(ctx context.Context, folderID string) ([]string, error) {
	if f.getFn != nil {
		return f.getFn(ctx, folderID)
	}
	return nil, nil
}

func (f *fakeRemote) SetFolderOrder(ctx context.Context, folderID string, ids []string) (bool, error) {
	if f.setFn != nil {
		return f.setFn(ctx, folderID, ids)
	}
	return true, nil
}

func TestRedisRemoteRoundTrip(t *testing.T) {
	remote, mr := setupRemote(t)
	ctx := context.Background()

	ids, err := remote.GetFolderOrder(ctx, "f1")
	if err != nil || ids != nil {
		t.Fatalf("expected no order, got %v %v", ids, err)
	}

	ok, err := remote.SetFolderOrder(ctx, "f1", []string{"b", "a"})
	if err != nil || !ok {
		t.Fatalf("SetFolderOrder: ok=%v err=%v", ok, err)
	}
	if !mr.Exists("folder-order:f1") {
		t.Fatal("expected key folder-order:f1")
	}
	ids, err = remote.GetFolderOrder(ctx, "f1")
	if err != nil || !reflect.DeepEqual(ids, []string{"b", "a"}) {
		t.Fatalf("unexpected order %v %v", ids, err)
	}
}

func TestLoadPrefersRemote(t *testing.T) {
	remote, _ := setupRemote(t)
	local := NewDiskLocal(t.TempDir())
	ctx := context.Background()

	if _, err := remote.SetFolderOrder(ctx, "f1", []string{"r1", "r2"}); err != nil {
		t.Fatalf("seed remote: %v", err)
	}
	if err := local.SetFolderOrder("f1", []string{"l1"}); err != nil {
		t.Fatalf("seed local: %v", err)
	}

	s := New(remote, local, nil)
	if got := s.Load(ctx, "f1"); !reflect.DeepEqual(got, []string{"r1", "r2"}) {
		t.Fatalf("Load = %v", got)
	}
	if cur, ok := s.Current("f1"); !ok || !reflect.DeepEqual(cur, []string{"r1", "r2"}) {
		t.Fatalf("Current = %v %v", cur, ok)
	}
}

func TestLoadFallsBackToLocalWhenRemoteEmpty(t *testing.T) {
	remote, _ := setupRemote(t)
	local := NewDiskLocal(t.TempDir())
	if err := local.SetFolderOrder("f1", []string{"l1", "l2"}); err != nil {
		t.Fatalf("seed local: %v", err)
	}

	s := New(remote, local, nil)
	if got := s.Load(context.Background(), "f1"); !reflect.DeepEqual(got, []string{"l1", "l2"}) {
		t.Fatalf("Load = %v", got)
	}
}

func TestLoadFallsBackToLocalWhenRemoteErrors(t *testing.T) {
	remote, mr := setupRemote(t)
	local := NewDiskLocal(t.TempDir())
	if err := local.SetFolderOrder("f1", []string{"l1"}); err != nil {
		t.Fatalf("seed local: %v", err)
	}
	mr.SetError("ERR backend unavailable")

	s := New(remote, local, nil)
	if got := s.Load(context.Background(), "f1"); !reflect.DeepEqual(got, []string{"l1"}) {
		t.Fatalf("Load = %v", got)
	}
}

func TestLoadWithNothingStored(t *testing.T) {
	s := New(&fakeRemote{}, NewDiskLocal(t.TempDir()), nil)
	if got := s.Load(context.Background(), "f1"); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
	if _, ok := s.Current("f1"); ok {
		t.Fatal("nothing should be committed")
	}
}

func TestSaveRemoteSuccess(t *testing.T) {
	remote, _ := setupRemote(t)
	local := NewDiskLocal(t.TempDir())
	s := New(remote, local, nil)

	if got := s.Save(context.Background(), "f1", []string{"a", "b", "a"}); got != PersistedRemote {
		t.Fatalf("Save persisted to %s", got)
	}
	if ids, _ := local.GetFolderOrder("f1"); ids != nil {
		t.Fatalf("local store should be untouched, got %v", ids)
	}
	if cur, _ := s.Current("f1"); !reflect.DeepEqual(cur, []string{"a", "b"}) {
		t.Fatalf("Current = %v", cur)
	}
}

func TestSaveFallsBackToLocalOnRemoteError(t *testing.T) {
	remote, mr := setupRemote(t)
	local := NewDiskLocal(t.TempDir())
	s := New(remote, local, nil)
	mr.SetError("ERR backend unavailable")

	if got := s.Save(context.Background(), "f1", []string{"b", "a"}); got != PersistedLocal {
		t.Fatalf("Save persisted to %s", got)
	}
	ids, err := local.GetFolderOrder("f1")
	if err != nil || !reflect.DeepEqual(ids, []string{"b", "a"}) {
		t.Fatalf("local order = %v %v", ids, err)
	}
	if cur, _ := s.Current("f1"); !reflect.DeepEqual(cur, []string{"b", "a"}) {
		t.Fatalf("Current = %v", cur)
	}
}

func TestSaveFallsBackToLocalWhenNotAcknowledged(t *testing.T) {
	remote := &fakeRemote{setFn: func(context.Context, string, []string) (bool, error) { return false, nil }}
	local := NewDiskLocal(t.TempDir())
	s := New(remote, local, nil)

	if got := s.Save(context.Background(), "f1", []string{"x"}); got != PersistedLocal {
		t.Fatalf("Save persisted to %s", got)
	}
}

func TestSaveCommitsWithoutAnyBackend(t *testing.T) {
	remote := &fakeRemote{setFn: func(context.Context, string, []string) (bool, error) { return false, errors.New("down") }}
	s := New(remote, nil, nil)

	if got := s.Save(context.Background(), "f1", []string{"x", "y"}); got != PersistedMemory {
		t.Fatalf("Save persisted to %s", got)
	}
	if cur, ok := s.Current("f1"); !ok || !reflect.DeepEqual(cur, []string{"x", "y"}) {
		t.Fatalf("Current = %v %v", cur, ok)
	}
}

func TestDiskLocalKeysAreOpaque(t *testing.T) {
	local := NewDiskLocal(t.TempDir())
	id := "../weird/folder id"
	if err := local.SetFolderOrder(id, []string{"a"}); err != nil {
		t.Fatalf("SetFolderOrder: %v", err)
	}
	ids, err := local.GetFolderOrder(id)
	if err != nil || !reflect.DeepEqual(ids, []string{"a"}) {
		t.Fatalf("GetFolderOrder = %v %v", ids, err)
	}
}

func TestLoadSeesLaterRemoteWrites(t *testing.T) {
	remote, mr := setupRemote(t)
	s := New(remote, NewDiskLocal(t.TempDir()), nil)
	ctx := context.Background()

	mr.Set("folder-order:f1", `["a","b","c"]`)
	if got := s.Load(ctx, "f1"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("first Load = %v", got)
	}

	mr.Set("folder-order:f1", `["c","b","a"]`)
	if got := s.Load(ctx, "f1"); !reflect.DeepEqual(got, []string{"c", "b", "a"}) {
		t.Fatalf("second Load = %v", got)
	}
}

func TestRemoteReachableAfterStartupOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.Close()

	remote, err := NewRedisRemote("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisRemote with server down: %v", err)
	}
	t.Cleanup(func() { _ = remote.Close() })

	local := NewDiskLocal(t.TempDir())
	if err := local.SetFolderOrder("f1", []string{"l1"}); err != nil {
		t.Fatalf("seed local: %v", err)
	}
	s := New(remote, local, nil)
	if got := s.Load(context.Background(), "f1"); !reflect.DeepEqual(got, []string{"l1"}) {
		t.Fatalf("Load during outage = %v", got)
	}

	if err := mr.Restart(); err != nil {
		t.Fatalf("restart miniredis: %v", err)
	}
	mr.Set("folder-order:f1", `["r1","r2"]`)
	if got := s.Load(context.Background(), "f1"); !reflect.DeepEqual(got, []string{"r1", "r2"}) {
		t.Fatalf("Load after recovery = %v", got)
	}
}

func TestLoadFallsBackToCommittedOrder(t *testing.T) {
	s := New(&fakeRemote{setFn: func(context.Context, string, []string) (bool, error) {
		return false, errors.New("down")
	}}, nil, nil)
	s.Save(context.Background(), "f1", []string{"x", "y"})

	if got := s.Load(context.Background(), "f1"); !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Fatalf("Load = %v", got)
	}
}
