package store

import (
	"strings"
	"time"
)

// KindDocument is the canonical document kind. Slot snapshots may carry a
// different kind label, so lookups fall back to this value.
const KindDocument = "document"

type Geo struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Altitude  *float64 `json:"altitude,omitempty"`
}

type Document struct {
	ID          string    `json:"id"`
	Container   string    `json:"container"`
	Kind        string    `json:"kind"`
	MediaType   string    `json:"mediaType"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url"`
	Tag         string    `json:"tag,omitempty"`
	Geo         *Geo      `json:"geo,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Folder struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	CustomOrder []string  `json:"customOrder"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Slot is a denormalized snapshot of the document placed on one side of a
// pairing row. It may be stale relative to the document it describes.
type Slot struct {
	DocumentID        string `json:"documentId,omitempty"`
	Title             string `json:"title,omitempty"`
	Description       string `json:"description,omitempty"`
	URL               string `json:"url,omitempty"`
	Kind              string `json:"kind,omitempty"`
	ContainerOfSource string `json:"containerOfSource,omitempty"`
}

func (s Slot) Empty() bool {
	return s == Slot{}
}

// SnapshotOf builds the slot payload written when doc is dropped on a row.
func SnapshotOf(doc Document, containerOfSource string) Slot {
	return Slot{
		DocumentID:        doc.ID,
		Title:             strings.TrimSpace(doc.Title),
		Description:       doc.Description,
		URL:               doc.URL,
		Kind:              doc.Kind,
		ContainerOfSource: containerOfSource,
	}
}

type PairingRow struct {
	ID        string    `json:"id"`
	FolderID  string    `json:"folderId"`
	Slot1     Slot      `json:"slot1"`
	Slot2     Slot      `json:"slot2"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Slot numbers of a pairing row. Slot 1 is the "before" side and slot 2 the
// "after" side.
const (
	SlotBefore = 1
	SlotAfter  = 2
)

func ValidSlot(n int) bool {
	return n == SlotBefore || n == SlotAfter
}

// SlotAt returns the snapshot stored in slot n.
func (r PairingRow) SlotAt(n int) Slot {
	if n == SlotAfter {
		return r.Slot2
	}
	return r.Slot1
}
