package models

import "testing"

func TestMergeMetadata(t *testing.T) {
	if MergeMetadata(nil, nil) != nil {
		t.Error("nil + nil should be nil")
	}
	old := &Metadata{Title: "Old", Year: 2019, Authors: []string{"A"}}
	fresh := &Metadata{Title: "New", DOI: "10.1/x"}

	got := MergeMetadata(fresh, old)
	if got.Title != "New" || got.Year != 2019 || got.DOI != "10.1/x" || len(got.Authors) != 1 {
		t.Errorf("got %+v", got)
	}
	if got == fresh {
		t.Error("merge should copy")
	}
	if m := MergeMetadata(nil, old); m.Title != "Old" || m == old {
		t.Errorf("nil primary: got %+v", m)
	}
}

func TestDocument_Title(t *testing.T) {
	d := &Document{Filename: "paper.pdf"}
	if d.Title() != "paper.pdf" {
		t.Errorf("got %q", d.Title())
	}
	d.Metadata = &Metadata{Title: "A Study"}
	if d.Title() != "A Study" {
		t.Errorf("got %q", d.Title())
	}
	if d.Searchable() {
		t.Error("pending document should not be searchable")
	}
	d.ProcessingStatus, d.VectorizationStatus = StatusCompleted, StatusCompleted
	if !d.Searchable() {
		t.Error("completed document should be searchable")
	}
}
