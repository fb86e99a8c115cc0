package move

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"sitedocs/internal/store"
)

type EndpointKind string

const (
	EndpointPool     EndpointKind = "pool"
	EndpointFolder   EndpointKind = "folder"
	EndpointPairSlot EndpointKind = "pairSlot"
)

// Endpoint is one end of a drag: where the document was picked up or
// dropped. Index is the position inside a list and only matters for
// folder reordering.
type Endpoint struct {
	Kind     EndpointKind `json:"kind"`
	FolderID string       `json:"folderId,omitempty"`
	RowID    string       `json:"rowId,omitempty"`
	Slot     int          `json:"slot,omitempty"`
	Index    int          `json:"index"`
}

func (e Endpoint) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Kind, validation.Required, validation.In(EndpointPool, EndpointFolder, EndpointPairSlot)),
		validation.Field(&e.FolderID, validation.When(e.Kind == EndpointFolder, validation.Required)),
		validation.Field(&e.RowID, validation.When(e.Kind == EndpointPairSlot, validation.Required)),
		validation.Field(&e.Slot, validation.When(e.Kind == EndpointPairSlot, validation.Required, validation.In(store.SlotBefore, store.SlotAfter))),
		validation.Field(&e.Index, validation.Min(0)),
	)
}

// Intent is a drop gesture. DisplayedIDs carries the folder order as shown
// when the drag started and is required for reordering.
type Intent struct {
	Source       Endpoint `json:"source"`
	Dest         Endpoint `json:"dest"`
	DocumentID   string   `json:"documentId"`
	DocKind      string   `json:"kind,omitempty"`
	SiteTag      string   `json:"siteTag,omitempty"`
	DisplayedIDs []string `json:"displayedIds,omitempty"`
}

func (i Intent) Validate() error {
	reorder := i.Source.Kind == EndpointFolder && i.Dest.Kind == EndpointFolder && i.Source.FolderID == i.Dest.FolderID
	return validation.ValidateStruct(&i,
		validation.Field(&i.Source),
		validation.Field(&i.Dest),
		validation.Field(&i.DocumentID, validation.Required, validation.Length(1, 128)),
		validation.Field(&i.SiteTag, validation.Length(0, 128)),
		validation.Field(&i.DisplayedIDs, validation.When(reorder && i.Source.Index != i.Dest.Index, validation.Required)),
	)
}

func (i Intent) kind() string {
	if i.DocKind == "" {
		return store.KindDocument
	}
	return i.DocKind
}
