package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"sitedocs/internal/container"
	"sitedocs/internal/ordering"
	"sitedocs/internal/store"
)

var (
	bold    = color.New(color.Bold)
	legacy  = color.New(color.FgYellow)
	failure = color.New(color.FgRed)
	faint   = color.New(color.Faint)
)

// renderDocuments prints docs as a table. Documents named in order are
// marked as pinned.
func renderDocuments(w io.Writer, docs []store.Document, order []string) {
	if len(docs) == 0 {
		_, _ = fmt.Fprintln(w, faint.Sprint("no documents"))
		return
	}
	pinned := make(map[string]bool, len(order))
	for _, id := range order {
		pinned[id] = true
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 48
	tbl.AddRow(bold.Sprint("ID"), bold.Sprint("TITLE"), bold.Sprint("CONTAINER"), bold.Sprint("URL"), "")
	for _, d := range docs {
		c := d.Container
		if c == container.Main {
			c = legacy.Sprint(c)
		}
		mark := ""
		if pinned[d.ID] {
			mark = "*"
		}
		tbl.AddRow(d.ID, d.Title, c, d.URL, mark)
	}
	_, _ = fmt.Fprintln(w, tbl)
}

func renderPairingRows(w io.Writer, rows []store.PairingRow) {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 40
	tbl.AddRow(bold.Sprint("ROW"), bold.Sprint("BEFORE"), bold.Sprint("AFTER"))
	for _, r := range rows {
		tbl.AddRow(r.ID, slotLabel(r.Slot1), slotLabel(r.Slot2))
	}
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, tbl)
}

func slotLabel(s store.Slot) string {
	if s.Empty() {
		return faint.Sprint("-")
	}
	if s.DocumentID == "" {
		return s.Title + " " + failure.Sprint("(no id)")
	}
	return s.Title
}

func renderDocument(w io.Writer, d store.Document) {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("id"), d.ID)
	tbl.AddRow(bold.Sprint("title"), d.Title)
	tbl.AddRow(bold.Sprint("kind"), d.Kind)
	tbl.AddRow(bold.Sprint("container"), d.Container)
	tbl.AddRow(bold.Sprint("url"), d.URL)
	_, _ = fmt.Fprintln(w, tbl)
}

func renderOrder(w io.Writer, ids []string) {
	if len(ids) == 0 {
		_, _ = fmt.Fprintln(w, faint.Sprint("no custom order"))
		return
	}
	tbl := uitable.New()
	tbl.Separator = "  "
	for i, id := range ids {
		tbl.AddRow(strconv.Itoa(i+1), id)
	}
	_, _ = fmt.Fprintln(w, tbl)
}

func persistedLabel(p string) string {
	if p == "remote" {
		return p
	}
	return legacy.Sprint(p)
}

// renderMissing warns about ordered ids that are not in the folder. They
// are kept in the stored order but skipped on display.
func renderMissing(w io.Writer, order []string, docs []store.Document) {
	present := make(map[string]bool, len(docs))
	for _, id := range ordering.IDs(docs) {
		present[id] = true
	}
	var missing []string
	for _, id := range order {
		if !present[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "%s %v\n", legacy.Sprint("not in folder:"), missing)
}
