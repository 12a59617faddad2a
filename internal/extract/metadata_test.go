package extract

import (
	"strings"
	"testing"
)

func TestDetectMetadata(t *testing.T) {
	text := `A Survey of Retrieval-Augmented Generation
Authors: Zhang Ming, Li Hua and Wang Fang
Copyright 2022 The Authors. DOI: 10.1234/dl.2022.001.

Abstract: We review retrieval augmented generation
for knowledge intensive tasks.

Keywords: RAG; retrieval, generation

1. Introduction
Published 2019 work is cited.`

	m := DetectMetadata(text)
	if m.Title != "A Survey of Retrieval-Augmented Generation" {
		t.Errorf("Title = %q", m.Title)
	}
	if strings.Join(m.Authors, "|") != "Zhang Ming|Li Hua|Wang Fang" {
		t.Errorf("Authors = %v", m.Authors)
	}
	if m.Year != 2022 {
		t.Errorf("Year = %d, want copyright year 2022", m.Year)
	}
	if m.DOI != "10.1234/dl.2022.001" {
		t.Errorf("DOI = %q", m.DOI)
	}
	if m.Abstract != "We review retrieval augmented generation for knowledge intensive tasks." {
		t.Errorf("Abstract = %q", m.Abstract)
	}
	if strings.Join(m.Keywords, "|") != "RAG|retrieval|generation" {
		t.Errorf("Keywords = %v", m.Keywords)
	}
}

func TestDetectMetadata_yearFallbackWindow(t *testing.T) {
	m := DetectMetadata("Title line\nPresented at a workshop in 2018.")
	if m.Year != 2018 {
		t.Errorf("Year = %d, want 2018", m.Year)
	}
	late := "Title line\n" + strings.Repeat("x", yearScanWindow) + " 2018"
	if y := DetectMetadata(late).Year; y != 0 {
		t.Errorf("year outside the window should be ignored, got %d", y)
	}
}

func TestDetectMetadata_longFirstLineIsNotTitle(t *testing.T) {
	m := DetectMetadata(strings.Repeat("word ", 60) + "\nsecond line")
	if m.Title != "" {
		t.Errorf("Title = %q, want empty", m.Title)
	}
}

func TestDetectMetadata_bareDOI(t *testing.T) {
	m := DetectMetadata("Paper\nhttps://doi.org/10.48550/arXiv.1706.03762)")
	if m.DOI != "10.48550/arXiv.1706.03762" {
		t.Errorf("DOI = %q", m.DOI)
	}
}

func TestDetectMetadata_empty(t *testing.T) {
	if !DetectMetadata("").IsEmpty() {
		t.Error("empty text should give empty metadata")
	}
}
