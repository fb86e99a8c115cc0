package app

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"sitedocs/internal/config"
	"sitedocs/internal/store"
)

// fakeStore keeps documents, folders and pairing rows in memory. The
// function fields override individual methods for failure injection.
type fakeStore struct {
	mu      sync.Mutex
	docs    []store.Document
	folders []store.Folder
	rows    []store.PairingRow

	pingFn                 func(context.Context) error
	listDocumentsFn        func(ctx context.Context, kind, container string, limit int) ([]store.Document, error)
	setDocumentContainerFn func(ctx context.Context, id, kind, container string) error
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

func (f *fakeStore) ListDocuments(ctx context.Context, kind, container string, limit int) ([]store.Document, error) {
	if f.listDocumentsFn != nil {
		return f.listDocumentsFn(ctx, kind, container, limit)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []store.Document{}
	for _, d := range f.docs {
		if d.Kind == kind && d.Container == container {
			out = append(out, d)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) GetDocument(_ context.Context, id string) (store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.docs {
		if d.ID == id {
			return d, nil
		}
	}
	return store.Document{}, sql.ErrNoRows
}

func (f *fakeStore) CreateDocument(_ context.Context, doc store.Document) (store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = doc.CreatedAt
	f.docs = append(f.docs, doc)
	return doc, nil
}

func (f *fakeStore) SetDocumentContainer(ctx context.Context, id, kind, container string) error {
	if f.setDocumentContainerFn != nil {
		return f.setDocumentContainerFn(ctx, id, kind, container)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.docs {
		if f.docs[i].ID == id && f.docs[i].Kind == kind {
			f.docs[i].Container = container
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeStore) SetDocumentTag(_ context.Context, id, tag string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.docs {
		if f.docs[i].ID == id {
			f.docs[i].Tag = tag
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeStore) SearchDocuments(_ context.Context, text string, limit int) ([]store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []store.Document{}
	for _, d := range f.docs {
		if strings.Contains(strings.ToLower(d.Title), strings.ToLower(text)) {
			out = append(out, d)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) ListAllDocuments(context.Context) ([]store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.Document(nil), f.docs...), nil
}

func (f *fakeStore) ListFolders(context.Context) ([]store.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.Folder(nil), f.folders...), nil
}

func (f *fakeStore) GetFolder(_ context.Context, id string) (store.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, folder := range f.folders {
		if folder.ID == id {
			return folder, nil
		}
	}
	return store.Folder{}, sql.ErrNoRows
}

func (f *fakeStore) CreateFolder(_ context.Context, folder store.Folder) (store.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.folders = append(f.folders, folder)
	return folder, nil
}

func (f *fakeStore) ListPairingRows(_ context.Context, folderID string) ([]store.PairingRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []store.PairingRow{}
	for _, row := range f.rows {
		if row.FolderID == folderID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeStore) GetPairingRow(_ context.Context, id string) (store.PairingRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ID == id {
			return row, nil
		}
	}
	return store.PairingRow{}, sql.ErrNoRows
}

func (f *fakeStore) CreatePairingRow(_ context.Context, row store.PairingRow) (store.PairingRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, folder := range f.folders {
		if folder.ID == row.FolderID {
			row.Position = len(f.rows)
			f.rows = append(f.rows, row)
			return row, nil
		}
	}
	return store.PairingRow{}, sql.ErrNoRows
}

func (f *fakeStore) SetPairingSlot(_ context.Context, rowID string, slot int, payload store.Slot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID != rowID {
			continue
		}
		if slot == store.SlotBefore {
			f.rows[i].Slot1 = payload
		} else {
			f.rows[i].Slot2 = payload
		}
		return nil
	}
	return sql.ErrNoRows
}

func (f *fakeStore) ClearPairingSlot(ctx context.Context, rowID string, slot int) error {
	return f.SetPairingSlot(ctx, rowID, slot, store.Slot{})
}

func (f *fakeStore) document(id string) store.Document {
	doc, _ := f.GetDocument(context.Background(), id)
	return doc
}

func (f *fakeStore) row(id string) store.PairingRow {
	row, _ := f.GetPairingRow(context.Background(), id)
	return row
}

type fakeMedia struct {
	pingFn    func(context.Context) error
	uploaded  []string
	presigned time.Duration
}

func (m *fakeMedia) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

func (m *fakeMedia) Upload(_ context.Context, filename, _ string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	key := "media/" + string(data) + "-" + filename
	m.uploaded = append(m.uploaded, key)
	return key, nil
}

func (m *fakeMedia) PresignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	m.presigned = ttl
	return "https://bucket.example/" + key + "?signed", nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(fs *fakeStore, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	return New(config.Config{MediaURLTTL: time.Minute}, fs, opts)
}

func seededStore() *fakeStore {
	return &fakeStore{
		docs: []store.Document{
			{ID: "d1", Container: "MAIN", Kind: store.KindDocument, Title: "Main pool photo", URL: "media/d1.jpg"},
			{ID: "d2", Container: "00000000-0000-0000-0000-000000000000", Kind: store.KindDocument, Title: "Empty pool photo", URL: "media/d2.jpg"},
			{ID: "f1", Container: "F", Kind: store.KindDocument, Title: "Folder one", URL: "media/f1.jpg"},
			{ID: "f2", Container: "F", Kind: store.KindDocument, Title: "Folder two", URL: "media/f2.jpg"},
			{ID: "f3", Container: "F", Kind: store.KindDocument, Title: "Folder three", URL: "media/f3.jpg"},
		},
		folders: []store.Folder{{ID: "F", Title: "Level 2 slab"}},
		rows: []store.PairingRow{
			{ID: "R", FolderID: "F"},
			{ID: "R2", FolderID: "F", Slot1: store.Slot{DocumentID: "f1", Title: "Folder one", URL: "media/f1.jpg", Kind: store.KindDocument, ContainerOfSource: "F"}},
		},
	}
}
