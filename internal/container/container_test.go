package container

import (
	"testing"

	"sitedocs/internal/store"
)

func TestIsUnassigned(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{Main, true},
		{EmptyGUID, true},
		{"folder-1", false},
		{"", false},
		{"main", false},
	}
	for _, tc := range cases {
		if got := IsUnassigned(tc.in); got != tc.want {
			t.Errorf("IsUnassigned(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSentinelsAreUnassigned(t *testing.T) {
	for _, s := range Sentinels() {
		if !IsUnassigned(s) {
			t.Fatalf("sentinel %q not classified as unassigned", s)
		}
	}
}

func TestMergeByIDKeepsFirstPositionLastValue(t *testing.T) {
	a := []store.Document{{ID: "1", Title: "old"}}
	b := []store.Document{{ID: "1", Title: "new"}, {ID: "2", Title: "two"}}

	merged := MergeByID(a, b)
	if len(merged) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(merged))
	}
	if merged[0].ID != "1" || merged[0].Title != "new" {
		t.Fatalf("unexpected first entry: %+v", merged[0])
	}
	if merged[1].ID != "2" {
		t.Fatalf("unexpected second entry: %+v", merged[1])
	}
}

func TestMergeByIDEmpty(t *testing.T) {
	if got := MergeByID(); len(got) != 0 {
		t.Fatalf("expected empty result, got %d", len(got))
	}
}
