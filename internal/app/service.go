package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"sitedocs/internal/config"
	"sitedocs/internal/container"
	"sitedocs/internal/doccache"
	"sitedocs/internal/move"
	"sitedocs/internal/ordering"
	"sitedocs/internal/resolver"
	"sitedocs/internal/search"
	"sitedocs/internal/store"
	"sitedocs/internal/util"
)

type dataStore interface {
	Ping(context.Context) error
	ListDocuments(ctx context.Context, kind, container string, limit int) ([]store.Document, error)
	GetDocument(context.Context, string) (store.Document, error)
	CreateDocument(context.Context, store.Document) (store.Document, error)
	SetDocumentContainer(ctx context.Context, id, kind, container string) error
	SetDocumentTag(ctx context.Context, id, tag string) error
	SearchDocuments(ctx context.Context, text string, limit int) ([]store.Document, error)
	ListAllDocuments(context.Context) ([]store.Document, error)
	ListFolders(context.Context) ([]store.Folder, error)
	GetFolder(context.Context, string) (store.Folder, error)
	CreateFolder(context.Context, store.Folder) (store.Folder, error)
	ListPairingRows(context.Context, string) ([]store.PairingRow, error)
	GetPairingRow(context.Context, string) (store.PairingRow, error)
	CreatePairingRow(context.Context, store.PairingRow) (store.PairingRow, error)
	SetPairingSlot(ctx context.Context, rowID string, slot int, payload store.Slot) error
	ClearPairingSlot(ctx context.Context, rowID string, slot int) error
}

type mediaStore interface {
	Ping(ctx context.Context) error
	Upload(ctx context.Context, filename, contentType string, r io.Reader) (string, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Options carries the optional collaborators of a Service. Nil fields
// disable the matching feature.
type Options struct {
	Orders    *ordering.Store
	Search    *search.Service
	Media     mediaStore
	Redis     pinger
	Scheduler move.Scheduler
	Logger    *slog.Logger
}

type Service struct {
	cfg       config.Config
	store     dataStore
	caches    *doccache.Registry
	orders    *ordering.Store
	resolver  *resolver.Resolver
	mover     *move.Coordinator
	search    *search.Service
	media     mediaStore
	redis     pinger
	scheduler move.Scheduler
	logger    *slog.Logger
}

func New(cfg config.Config, ds dataStore, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	orders := opts.Orders
	if orders == nil {
		orders = ordering.New(nil, nil, logger)
	}
	searchSvc := opts.Search
	if searchSvc == nil {
		searchSvc = search.NewService(nil, search.NewPgSearch(ds), logger)
	}

	s := &Service{
		cfg:       cfg,
		store:     ds,
		caches:    doccache.NewRegistry(ds, store.KindDocument, cfg.DocumentListLimit, logger),
		orders:    orders,
		resolver:  resolver.New(ds, cfg.DocumentListLimit, logger),
		search:    searchSvc,
		media:     opts.Media,
		redis:     opts.Redis,
		scheduler: opts.Scheduler,
		logger:    logger,
	}
	s.mover = move.NewCoordinator(move.Deps{
		Store:     ds,
		Orders:    orders,
		Resolver:  s.resolver,
		Refresher: s.caches,
		Scheduler: opts.Scheduler,
		Observer:  s,
		Logger:    logger,
	})
	return s
}

// Bootstrap warms the pool and pushes stored documents into the search index.
func (s *Service) Bootstrap(ctx context.Context) error {
	if err := s.caches.RefreshPool(ctx); err != nil {
		s.logger.Warn("initial pool load failed", "error", err)
	}
	if n := s.search.ReindexAllFromPG(ctx); n > 0 {
		s.logger.Info("search index rebuilt", "documents", n)
	}
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Readiness reports per-dependency status. Only the database decides
// readiness; the other dependencies have fallbacks.
func (s *Service) Readiness(ctx context.Context) (bool, map[string]any) {
	checks := map[string]any{}
	ready := true

	if err := s.store.Ping(ctx); err != nil {
		ready = false
		checks["database"] = map[string]any{"status": "error", "error": err.Error()}
	} else {
		checks["database"] = map[string]any{"status": "ok"}
	}

	if s.redis == nil {
		checks["redis"] = map[string]any{"status": "disabled"}
	} else if err := s.redis.Ping(ctx); err != nil {
		checks["redis"] = map[string]any{"status": "degraded", "error": err.Error()}
	} else {
		checks["redis"] = map[string]any{"status": "ok"}
	}

	if s.search.Healthy() {
		checks["search"] = map[string]any{"status": "ok", "engine": search.EngineMeili}
	} else {
		checks["search"] = map[string]any{"status": "degraded", "engine": search.EnginePostgres}
	}

	if s.media == nil {
		checks["media"] = map[string]any{"status": "disabled"}
	} else if err := s.media.Ping(ctx); err != nil {
		checks["media"] = map[string]any{"status": "degraded", "error": err.Error()}
	} else {
		checks["media"] = map[string]any{"status": "ok"}
	}
	return ready, checks
}

// ListView is a cached document list plus the load error recorded for it.
type ListView struct {
	Documents []store.Document `json:"documents"`
	Error     *ListError       `json:"error,omitempty"`
}

type ListError struct {
	Code    string `json:"code"`
	Scope   string `json:"scope"`
	Message string `json:"message"`
}

// readCache loads c once: a forced refresh, or the first load when c never
// loaded.
func readCache[T any](ctx context.Context, c *doccache.Cache[T], refresh bool) ([]T, bool, error) {
	if refresh {
		_ = c.Refresh(ctx)
	} else {
		_, _ = c.Get(ctx)
	}
	return c.Snapshot()
}

func listView(ctx context.Context, c *doccache.Cache[store.Document], refresh bool) (ListView, error) {
	docs, loaded, err := readCache(ctx, c, refresh)
	view := ListView{Documents: docs}
	if err == nil {
		return view, nil
	}
	var loadErr *doccache.LoadError
	if !errors.As(err, &loadErr) {
		return ListView{}, err
	}
	if !loaded {
		return ListView{}, loadErr
	}
	view.Error = &ListError{Code: doccache.CodeLoadError, Scope: loadErr.Scope, Message: loadErr.Err.Error()}
	return view, nil
}

func (s *Service) Pool(ctx context.Context, refresh bool) (ListView, error) {
	return listView(ctx, s.caches.Pool(), refresh)
}

func (s *Service) Associated(ctx context.Context, documentID string, refresh bool) (ListView, error) {
	return listView(ctx, s.caches.Associated(documentID), refresh)
}

// FolderDocuments returns the folder's documents in display order.
func (s *Service) FolderDocuments(ctx context.Context, folderID string, refresh bool) (ListView, error) {
	if _, err := s.store.GetFolder(ctx, folderID); err != nil {
		return ListView{}, err
	}
	view, err := listView(ctx, s.caches.Folder(folderID), refresh)
	if err != nil {
		return ListView{}, err
	}
	view.Documents = ordering.Apply(view.Documents, s.folderOrder(ctx, folderID))
	return view, nil
}

func (s *Service) folderOrder(ctx context.Context, folderID string) []string {
	return s.orders.Load(ctx, folderID)
}

func (s *Service) ListFolders(ctx context.Context) ([]store.Folder, error) {
	folders, err := s.store.ListFolders(ctx)
	if err != nil {
		return nil, err
	}
	for i := range folders {
		folders[i].CustomOrder = nonNilIDs(s.folderOrder(ctx, folders[i].ID))
	}
	return folders, nil
}

func (s *Service) GetFolder(ctx context.Context, folderID string) (store.Folder, error) {
	folder, err := s.store.GetFolder(ctx, folderID)
	if err != nil {
		return store.Folder{}, err
	}
	folder.CustomOrder = nonNilIDs(s.folderOrder(ctx, folderID))
	return folder, nil
}

type CreateFolderInput struct {
	Title string `json:"title"`
}

func (in CreateFolderInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 256)),
	)
}

func (s *Service) CreateFolder(ctx context.Context, in CreateFolderInput) (store.Folder, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := in.Validate(); err != nil {
		return store.Folder{}, err
	}
	folder, err := s.store.CreateFolder(ctx, store.Folder{ID: util.NewID(""), Title: in.Title})
	if err != nil {
		return store.Folder{}, err
	}
	folder.CustomOrder = []string{}
	return folder, nil
}

type FolderOrderInput struct {
	IDs []string `json:"ids"`
}

func (in FolderOrderInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.IDs, validation.NotNil, validation.Each(validation.Required)),
	)
}

// SaveFolderOrder stores ids as the folder's custom order and reports where
// it was persisted.
func (s *Service) SaveFolderOrder(ctx context.Context, folderID string, in FolderOrderInput) (map[string]any, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.GetFolder(ctx, folderID); err != nil {
		return nil, err
	}
	persisted := s.orders.Save(ctx, folderID, in.IDs)
	order, _ := s.orders.Current(folderID)
	return map[string]any{"order": nonNilIDs(order), "persisted": persisted.String()}, nil
}

func (s *Service) PairingRows(ctx context.Context, folderID string, refresh bool) ([]store.PairingRow, *ListError, error) {
	if _, err := s.store.GetFolder(ctx, folderID); err != nil {
		return nil, nil, err
	}
	rows, loaded, err := readCache(ctx, s.caches.Rows(folderID), refresh)
	if err == nil {
		return rows, nil, nil
	}
	var loadErr *doccache.LoadError
	if !errors.As(err, &loadErr) {
		return nil, nil, err
	}
	if !loaded {
		return nil, nil, loadErr
	}
	return rows, &ListError{Code: doccache.CodeLoadError, Scope: loadErr.Scope, Message: loadErr.Err.Error()}, nil
}

func (s *Service) CreatePairingRow(ctx context.Context, folderID string) (store.PairingRow, error) {
	row, err := s.store.CreatePairingRow(ctx, store.PairingRow{ID: util.NewID(""), FolderID: folderID})
	if err != nil {
		return store.PairingRow{}, err
	}
	s.schedule(func(ctx context.Context) error { return s.caches.RefreshRows(ctx, folderID) })
	return row, nil
}

// ResolveSlot finds the document behind a pairing slot. activeFolderID is
// the folder on screen, if any.
func (s *Service) ResolveSlot(ctx context.Context, rowID string, slot int, activeFolderID string) (store.Document, error) {
	if !store.ValidSlot(slot) {
		return store.Document{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "slot must be 1 or 2", nil)
	}
	row, err := s.store.GetPairingRow(ctx, rowID)
	if err != nil {
		return store.Document{}, err
	}
	return s.resolver.Resolve(ctx, row, slot, activeFolderID)
}

func (s *Service) Move(ctx context.Context, intent move.Intent) (move.Result, error) {
	return s.mover.Move(ctx, intent)
}

func (s *Service) MoveBusy() bool {
	return s.mover.Busy()
}

func (s *Service) LoadErrors() map[string]string {
	return s.caches.Errors()
}

func (s *Service) DismissLoadError(scope string) error {
	if err := s.caches.Dismiss(scope); err != nil {
		return domainError(http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	}
	return nil
}

func (s *Service) GetDocument(ctx context.Context, id string) (store.Document, error) {
	return s.store.GetDocument(ctx, id)
}

type CreateDocumentInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Kind        string     `json:"kind"`
	MediaType   string     `json:"mediaType"`
	URL         string     `json:"url"`
	Tag         string     `json:"tag"`
	Geo         *store.Geo `json:"geo,omitempty"`
}

func (in CreateDocumentInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 256)),
		validation.Field(&in.Kind, validation.Length(0, 64)),
		validation.Field(&in.MediaType, validation.Required, validation.Length(1, 128)),
		validation.Field(&in.Tag, validation.Length(0, 128)),
	)
}

// Upload is an optional file attached to a new document.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// CreateDocument stores the upload, if any, and files the new document in
// the unassigned pool.
func (s *Service) CreateDocument(ctx context.Context, in CreateDocumentInput, upload *Upload) (store.Document, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Kind == "" {
		in.Kind = store.KindDocument
	}
	if upload != nil && in.MediaType == "" {
		in.MediaType = upload.ContentType
	}
	if err := in.Validate(); err != nil {
		return store.Document{}, err
	}
	if upload == nil && strings.TrimSpace(in.URL) == "" {
		return store.Document{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "file or url is required", nil)
	}

	url := strings.TrimSpace(in.URL)
	if upload != nil {
		if s.media == nil {
			return store.Document{}, domainError(http.StatusServiceUnavailable, "MEDIA_DISABLED", "Media storage is not configured", nil)
		}
		key, err := s.media.Upload(ctx, upload.Filename, upload.ContentType, upload.Body)
		if err != nil {
			return store.Document{}, fmt.Errorf("upload media: %w", err)
		}
		url = key
	}

	doc, err := s.store.CreateDocument(ctx, store.Document{
		ID:          util.NewID(""),
		Container:   container.EmptyGUID,
		Kind:        in.Kind,
		MediaType:   in.MediaType,
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		URL:         url,
		Tag:         strings.TrimSpace(in.Tag),
		Geo:         in.Geo,
	})
	if err != nil {
		return store.Document{}, err
	}
	s.search.IndexDocument(search.RecordOf(doc))
	s.schedule(s.caches.RefreshPool)
	return doc, nil
}

// MediaURL returns a download link for the document's media object.
func (s *Service) MediaURL(ctx context.Context, id string) (string, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return "", err
	}
	if doc.URL == "" {
		return "", fmt.Errorf("document %s has no media: %w", id, sql.ErrNoRows)
	}
	if s.media == nil || strings.Contains(doc.URL, "://") {
		return doc.URL, nil
	}
	return s.media.PresignedURL(ctx, doc.URL, s.cfg.MediaURLTTL)
}

func (s *Service) Search(ctx context.Context, q search.Query) search.Response {
	return s.search.Search(ctx, q)
}

// ContainerChanged keeps the search index in step with assignments.
func (s *Service) ContainerChanged(ctx context.Context, documentID string) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		s.logger.Warn("reload moved document failed", "document_id", documentID, "error", err)
		return
	}
	s.search.IndexDocument(search.RecordOf(doc))
}

func (s *Service) schedule(fn func(context.Context) error) {
	if s.scheduler == nil {
		return
	}
	s.scheduler.Schedule(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.logger.Warn("scheduled refresh failed", "error", err)
		}
	})
}

func nonNilIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
