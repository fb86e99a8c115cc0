// Package move applies drag-and-drop intents to the document, pairing and
// folder-order stores.
//
// At most one move runs at a time. Mutations are issued sequentially and no
// cache is updated optimistically: after every move, successful or not, the
// affected lists are refetched on the next scheduler tick.
package move

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"sitedocs/internal/container"
	"sitedocs/internal/ordering"
	"sitedocs/internal/resolver"
	"sitedocs/internal/store"
)

type Store interface {
	GetDocument(ctx context.Context, id string) (store.Document, error)
	SetDocumentContainer(ctx context.Context, id, kind, container string) error
	SetDocumentTag(ctx context.Context, id, tag string) error
	GetPairingRow(ctx context.Context, id string) (store.PairingRow, error)
	SetPairingSlot(ctx context.Context, rowID string, slot int, payload store.Slot) error
	ClearPairingSlot(ctx context.Context, rowID string, slot int) error
}

type Orders interface {
	Save(ctx context.Context, folderID string, ids []string) ordering.Persisted
}

type SlotResolver interface {
	Resolve(ctx context.Context, row store.PairingRow, slot int, activeFolderID string) (store.Document, error)
}

type Refresher interface {
	RefreshPool(ctx context.Context) error
	RefreshFolder(ctx context.Context, folderID string) error
	RefreshRows(ctx context.Context, folderID string) error
}

// Observer is told about every document whose container changed.
type Observer interface {
	ContainerChanged(ctx context.Context, documentID string)
}

type Deps struct {
	Store     Store
	Orders    Orders
	Resolver  SlotResolver
	Refresher Refresher
	Scheduler Scheduler
	Observer  Observer
	Logger    *slog.Logger
}

type Coordinator struct {
	store     Store
	orders    Orders
	resolver  SlotResolver
	refresher Refresher
	scheduler Scheduler
	observer  Observer
	logger    *slog.Logger

	busy atomic.Bool
}

func NewCoordinator(deps Deps) *Coordinator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:     deps.Store,
		orders:    deps.Orders,
		resolver:  deps.Resolver,
		refresher: deps.Refresher,
		scheduler: deps.Scheduler,
		observer:  deps.Observer,
		logger:    logger,
	}
}

// Result describes a finished move.
type Result struct {
	Transition Transition `json:"transition"`
	DocumentID string     `json:"documentId,omitempty"`
	Order      []string   `json:"order,omitempty"`
	Persisted  string     `json:"persisted,omitempty"`
	Unresolved bool       `json:"unresolved,omitempty"`
	Refetch    []string   `json:"refetch,omitempty"`
}

// Busy reports whether a move is in flight.
func (c *Coordinator) Busy() bool {
	return c.busy.Load()
}

// Move applies intent. It returns ErrBusy without side effects while
// another move is running. Failures are returned as *MoveError.
func (c *Coordinator) Move(ctx context.Context, intent Intent) (result Result, err error) {
	if !c.busy.CompareAndSwap(false, true) {
		return Result{}, ErrBusy
	}
	defer c.busy.Store(false)

	if err := intent.Validate(); err != nil {
		return Result{}, err
	}

	targets := newTargets()
	defer func() {
		result.Refetch = targets.keys()
		c.scheduleRefetch(ctx, targets)
	}()

	var destRow *store.PairingRow
	if intent.Dest.Kind == EndpointPairSlot && !sameEndpoint(intent.Source, intent.Dest) {
		row, err := c.store.GetPairingRow(ctx, intent.Dest.RowID)
		if err != nil {
			t := TransitionPairIntoSlot
			if intent.Source.Kind != EndpointPool {
				t = TransitionUnsupported
			}
			targets.pool = true
			return Result{Transition: t, DocumentID: intent.DocumentID}, newMoveError(t, fmt.Errorf("load pairing row %s: %w", intent.Dest.RowID, err))
		}
		destRow = &row
	}

	transition := Classify(intent, destRow)
	result = Result{Transition: transition, DocumentID: intent.DocumentID}
	switch transition {
	case TransitionNone:
		return result, nil
	case TransitionUnsupported:
		return result, newMoveError(transition, ErrUnsupported)
	}

	started := time.Now()
	err = c.apply(ctx, transition, intent, destRow, &result, targets)
	if err != nil {
		c.logger.Warn("move failed",
			"transition", string(transition),
			"document_id", intent.DocumentID,
			"error", err,
		)
		return result, newMoveError(transition, err)
	}
	c.logger.Info("move applied",
		"transition", string(transition),
		"document_id", result.DocumentID,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return result, nil
}

func (c *Coordinator) apply(ctx context.Context, t Transition, intent Intent, destRow *store.PairingRow, result *Result, targets *refetchTargets) error {
	kind := intent.kind()
	src, dst := intent.Source, intent.Dest

	switch t {
	case TransitionAssignToFolder:
		targets.pool = true
		targets.addFolder(dst.FolderID)
		if err := c.setContainer(ctx, intent.DocumentID, kind, dst.FolderID); err != nil {
			return err
		}
		if intent.SiteTag != "" {
			if err := c.store.SetDocumentTag(ctx, intent.DocumentID, intent.SiteTag); err != nil {
				return fmt.Errorf("stamp site tag: %w", err)
			}
		}
		return nil

	case TransitionPairIntoSlot:
		targets.pool = true
		targets.addRows(destRow.FolderID)
		doc, err := c.store.GetDocument(ctx, intent.DocumentID)
		if err != nil {
			return fmt.Errorf("load document %s: %w", intent.DocumentID, err)
		}
		if doc.Kind == "" {
			doc.Kind = kind
		}
		source := doc.Container
		if dst.Slot == store.SlotAfter {
			if err := c.setContainer(ctx, doc.ID, kind, destRow.ID); err != nil {
				return err
			}
			source = destRow.ID
		}
		if err := c.store.SetPairingSlot(ctx, destRow.ID, dst.Slot, store.SnapshotOf(doc, source)); err != nil {
			return fmt.Errorf("write slot %d of row %s: %w", dst.Slot, destRow.ID, err)
		}
		return nil

	case TransitionAssignToRowFolder:
		targets.pool = true
		targets.addFolder(destRow.FolderID)
		targets.addRows(destRow.FolderID)
		return c.setContainer(ctx, intent.DocumentID, kind, destRow.FolderID)

	case TransitionUnassignFromFolder:
		targets.pool = true
		targets.addFolder(src.FolderID)
		return c.setContainer(ctx, intent.DocumentID, kind, container.EmptyGUID)

	case TransitionReorderFolder:
		targets.addFolder(src.FolderID)
		from := src.Index
		if from >= len(intent.DisplayedIDs) || intent.DisplayedIDs[from] != intent.DocumentID {
			from = indexOf(intent.DisplayedIDs, intent.DocumentID)
			if from < 0 {
				return fmt.Errorf("document %s is not in the displayed order", intent.DocumentID)
			}
		}
		next := ordering.Reorder(intent.DisplayedIDs, from, dst.Index)
		persisted := c.orders.Save(ctx, src.FolderID, next)
		result.Order = next
		result.Persisted = persisted.String()
		return nil

	case TransitionUnassignFromSlot:
		targets.pool = true
		row, err := c.store.GetPairingRow(ctx, src.RowID)
		if err != nil {
			if src.FolderID != "" {
				targets.addRows(src.FolderID)
			}
			return fmt.Errorf("load pairing row %s: %w", src.RowID, err)
		}
		targets.addRows(row.FolderID)
		doc, err := c.resolver.Resolve(ctx, row, src.Slot, src.FolderID)
		if errors.Is(err, resolver.ErrNoMatch) {
			result.Unresolved = true
			c.logger.Info("slot document not found, nothing to unassign", "row_id", row.ID, "slot", src.Slot)
			return nil
		}
		if err != nil {
			return err
		}
		result.DocumentID = doc.ID
		if doc.Container != row.ID && !container.IsUnassigned(doc.Container) {
			targets.addFolder(doc.Container)
		}
		docKind := doc.Kind
		if docKind == "" {
			docKind = kind
		}
		if err := c.setContainer(ctx, doc.ID, docKind, container.EmptyGUID); err != nil {
			return err
		}
		if err := c.store.ClearPairingSlot(ctx, row.ID, src.Slot); err != nil {
			return fmt.Errorf("clear slot %d of row %s: %w", src.Slot, row.ID, err)
		}
		return nil
	}
	return ErrUnsupported
}

// setContainer retries with the canonical kind when the labelled kind does
// not match the stored document.
func (c *Coordinator) setContainer(ctx context.Context, id, kind, target string) error {
	err := c.store.SetDocumentContainer(ctx, id, kind, target)
	if errors.Is(err, sql.ErrNoRows) && kind != store.KindDocument {
		err = c.store.SetDocumentContainer(ctx, id, store.KindDocument, target)
	}
	if err != nil {
		return fmt.Errorf("set container of %s to %s: %w", id, target, err)
	}
	if c.observer != nil {
		c.observer.ContainerChanged(ctx, id)
	}
	return nil
}

func (c *Coordinator) scheduleRefetch(ctx context.Context, targets *refetchTargets) {
	if c.scheduler == nil || c.refresher == nil || targets.empty() {
		return
	}
	base := context.WithoutCancel(ctx)
	c.scheduler.Schedule(func() {
		refreshCtx, cancel := context.WithTimeout(base, 30*time.Second)
		defer cancel()
		if targets.pool {
			if err := c.refresher.RefreshPool(refreshCtx); err != nil {
				c.logger.Warn("refetch pool failed", "error", err)
			}
		}
		for _, id := range targets.folders {
			if err := c.refresher.RefreshFolder(refreshCtx, id); err != nil {
				c.logger.Warn("refetch folder failed", "folder_id", id, "error", err)
			}
		}
		for _, id := range targets.rows {
			if err := c.refresher.RefreshRows(refreshCtx, id); err != nil {
				c.logger.Warn("refetch pairing rows failed", "folder_id", id, "error", err)
			}
		}
	})
}

type refetchTargets struct {
	pool    bool
	folders []string
	rows    []string
}

func newTargets() *refetchTargets { return &refetchTargets{} }

func (t *refetchTargets) addFolder(id string) {
	if id != "" && indexOf(t.folders, id) < 0 {
		t.folders = append(t.folders, id)
	}
}

func (t *refetchTargets) addRows(folderID string) {
	if folderID != "" && indexOf(t.rows, folderID) < 0 {
		t.rows = append(t.rows, folderID)
	}
}

func (t *refetchTargets) empty() bool {
	return !t.pool && len(t.folders) == 0 && len(t.rows) == 0
}

func (t *refetchTargets) keys() []string {
	keys := make([]string, 0, 1+len(t.folders)+len(t.rows))
	if t.pool {
		keys = append(keys, "pool")
	}
	for _, id := range t.folders {
		keys = append(keys, "folder:"+id)
	}
	for _, id := range t.rows {
		keys = append(keys, "rows:"+id)
	}
	return keys
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
