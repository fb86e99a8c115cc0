package doccache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"sitedocs/internal/container"
	"sitedocs/internal/store"
)

type fakeSource struct {
	listDocumentsFn   func(context.Context, string, string, int) ([]store.Document, error)
	listPairingRowsFn func(context.Context, string) ([]store.PairingRow, error)
	calls             []string
}

func (f *fakeSource) ListDocuments(ctx context.Context, kind, c string, limit int) ([]store.Document, error) {
	f.calls = append(f.calls, c)
	if f.listDocumentsFn != nil {
		return f.listDocumentsFn(ctx, kind, c, limit)
	}
	return nil, nil
}

func (f *fakeSource) ListPairingRows(ctx context.Context, folderID string) ([]store.PairingRow, error) {
	if f.listPairingRowsFn != nil {
		return f.listPairingRowsFn(ctx, folderID)
	}
	return nil, nil
}

func TestFetchPoolMergesBothSentinels(t *testing.T) {
	src := &fakeSource{
		listDocumentsFn: func(_ context.Context, _ string, c string, _ int) ([]store.Document, error) {
			switch c {
			case container.Main:
				return []store.Document{{ID: "1"}}, nil
			case container.EmptyGUID:
				return []store.Document{{ID: "1"}, {ID: "2"}}, nil
			}
			return nil, nil
		},
	}

	docs, err := Fetch(context.Background(), src, Pool(store.KindDocument, 50))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "1" || docs[1].ID != "2" {
		t.Fatalf("unexpected pool: %+v", docs)
	}
	if len(src.calls) != 2 {
		t.Fatalf("expected two queries, got %v", src.calls)
	}
}

func TestFetchFolderQueriesSingleContainer(t *testing.T) {
	src := &fakeSource{}
	if _, err := Fetch(context.Background(), src, Folder("f1", store.KindDocument, 0)); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(src.calls) != 1 || src.calls[0] != "f1" {
		t.Fatalf("unexpected calls: %v", src.calls)
	}
}

func TestFetchWrapsLoadError(t *testing.T) {
	boom := errors.New("network down")
	src := &fakeSource{
		listDocumentsFn: func(context.Context, string, string, int) ([]store.Document, error) {
			return nil, boom
		},
	}
	_, err := Fetch(context.Background(), src, Associated("d1", store.KindDocument, 0))
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("LoadError should unwrap to the cause")
	}
}

func TestCacheInitialFailureYieldsEmptyList(t *testing.T) {
	c := NewCache("s", func(context.Context) ([]int, error) {
		return nil, errors.New("offline")
	}, nil)

	if err := c.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	items, loaded, err := c.Snapshot()
	if len(items) != 0 || loaded {
		t.Fatalf("expected empty unloaded list, got %v loaded=%v", items, loaded)
	}
	var loadErr *LoadError
	if !errors.As(err, &loadErr) || loadErr.Scope != "s" {
		t.Fatalf("expected LoadError for scope s, got %v", err)
	}
}

func TestCacheRefreshFailureKeepsPreviousList(t *testing.T) {
	fail := false
	c := NewCache("s", func(context.Context) ([]int, error) {
		if fail {
			return nil, errors.New("offline")
		}
		return []int{1, 2}, nil
	}, nil)

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	fail = true
	if err := c.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	items, loaded, err := c.Snapshot()
	if len(items) != 2 || !loaded || err == nil {
		t.Fatalf("expected previous list with error, got %v loaded=%v err=%v", items, loaded, err)
	}

	c.DismissError()
	if _, _, err := c.Snapshot(); err != nil {
		t.Fatalf("error should be dismissed, got %v", err)
	}
}

func TestCacheGetLoadsOnce(t *testing.T) {
	loads := 0
	c := NewCache("s", func(context.Context) ([]int, error) {
		loads++
		return []int{loads}, nil
	}, nil)
	for i := 0; i < 3; i++ {
		if _, err := c.Get(context.Background()); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}
	if loads != 1 {
		t.Fatalf("expected a single load, got %d", loads)
	}
}

func TestCacheSlowerOlderLoadDoesNotOverwriteNewer(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	calls := 0
	c := NewCache("s", func(context.Context) ([]string, error) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			close(entered)
			<-release
			return []string{"old"}, nil
		}
		return []string{"new"}, nil
	}, nil)

	done := make(chan error, 1)
	go func() { done <- c.Refresh(context.Background()) }()
	<-entered

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first refresh: %v", err)
	}

	items, _, _ := c.Snapshot()
	if len(items) != 1 || items[0] != "new" {
		t.Fatalf("expected newer load to win, got %v", items)
	}
}

func TestCacheSupersededFailureIsNotRecorded(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	calls := 0
	c := NewCache("s", func(context.Context) ([]int, error) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			close(entered)
			<-release
			return nil, errors.New("timed out")
		}
		return []int{7}, nil
	}, nil)

	done := make(chan error, 1)
	go func() { done <- c.Refresh(context.Background()) }()
	<-entered
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	close(release)
	<-done

	items, loaded, err := c.Snapshot()
	if err != nil || !loaded || len(items) != 1 {
		t.Fatalf("expected clean loaded list, got %v loaded=%v err=%v", items, loaded, err)
	}
}

func TestRegistryScopesFailIndependently(t *testing.T) {
	src := &fakeSource{
		listDocumentsFn: func(_ context.Context, _ string, c string, _ int) ([]store.Document, error) {
			if c == "bad" {
				return nil, errors.New("boom")
			}
			return []store.Document{{ID: c + "-doc", Container: c}}, nil
		},
	}
	reg := NewRegistry(src, "", 0, nil)
	ctx := context.Background()

	if err := reg.RefreshFolder(ctx, "bad"); err == nil {
		t.Fatal("expected failure for bad folder")
	}
	if err := reg.RefreshFolder(ctx, "good"); err != nil {
		t.Fatalf("good folder: %v", err)
	}
	docs, _, err := reg.Folder("good").Snapshot()
	if err != nil || len(docs) != 1 {
		t.Fatalf("unexpected good folder state: %v %v", docs, err)
	}

	errs := reg.Errors()
	key := reg.Folder("bad").Key()
	if _, ok := errs[key]; !ok || len(errs) != 1 {
		t.Fatalf("expected only %s in errors, got %v", key, errs)
	}
	if err := reg.Dismiss(key); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	if len(reg.Errors()) != 0 {
		t.Fatal("errors should be empty after dismiss")
	}
	if err := reg.Dismiss("nope"); err == nil {
		t.Fatal("expected error for unknown scope")
	}
}

func TestRegistryRows(t *testing.T) {
	src := &fakeSource{
		listPairingRowsFn: func(_ context.Context, folderID string) ([]store.PairingRow, error) {
			return []store.PairingRow{{ID: "r1", FolderID: folderID}}, nil
		},
	}
	reg := NewRegistry(src, store.KindDocument, 0, nil)
	if err := reg.RefreshRows(context.Background(), "f1"); err != nil {
		t.Fatalf("RefreshRows: %v", err)
	}
	rows, loaded, _ := reg.Rows("f1").Snapshot()
	if !loaded || len(rows) != 1 || rows[0].FolderID != "f1" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if reg.Rows("f1") != reg.Rows("f1") {
		t.Fatal("Rows should return the same cache for a folder")
	}
}
