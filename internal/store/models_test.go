package store

import "testing"

func TestSlotEmpty(t *testing.T) {
	if !(Slot{}).Empty() {
		t.Fatal("zero slot should be empty")
	}
	if (Slot{Title: "x"}).Empty() {
		t.Fatal("slot with title should not be empty")
	}
}

func TestSnapshotOfTrimsTitle(t *testing.T) {
	doc := Document{ID: "d1", Title: "  Facade  ", URL: "a/b.jpg", Kind: "photo", Description: "north"}
	slot := SnapshotOf(doc, "row-1")
	want := Slot{DocumentID: "d1", Title: "Facade", Description: "north", URL: "a/b.jpg", Kind: "photo", ContainerOfSource: "row-1"}
	if slot != want {
		t.Fatalf("got %+v, want %+v", slot, want)
	}
}

func TestPairingRowSlotAt(t *testing.T) {
	row := PairingRow{Slot1: Slot{Title: "before"}, Slot2: Slot{Title: "after"}}
	if row.SlotAt(SlotBefore).Title != "before" || row.SlotAt(SlotAfter).Title != "after" {
		t.Fatalf("SlotAt returned wrong sides")
	}
	if ValidSlot(0) || ValidSlot(3) || !ValidSlot(1) || !ValidSlot(2) {
		t.Fatal("ValidSlot accepted or rejected the wrong values")
	}
}

func TestSlotColumn(t *testing.T) {
	if c, err := slotColumn(SlotBefore); err != nil || c != "slot1" {
		t.Fatalf("slotColumn(1) = %q, %v", c, err)
	}
	if _, err := slotColumn(7); err != ErrInvalidSlot {
		t.Fatalf("expected ErrInvalidSlot, got %v", err)
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Fatalf("escapeLike = %q", got)
	}
}
