package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/server"
)

func newStubServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/documents", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			file, header, err := r.FormFile("file")
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			defer file.Close()
			b, _ := io.ReadAll(file)
			doc := &models.Document{ID: "doc-1", Filename: header.Filename, Size: int64(len(b))}
			w.WriteHeader(http.StatusAccepted)
			_ = json.NewEncoder(w).Encode(server.UploadResponse{DocumentID: doc.ID, Document: doc})
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(server.DocumentList{
				Total: 1, Page: 1, Limit: 20, TotalPages: 1,
				Documents: []*models.Document{{ID: "doc-1", Filename: r.URL.Query().Get("page") + ".txt"}},
			})
		}
	})
	mux.HandleFunc("/api/v1/documents/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"document missing: not found"}`))
	})
	mux.HandleFunc("/api/v1/search", func(w http.ResponseWriter, r *http.Request) {
		var q models.SearchQuery
		_ = json.NewDecoder(r.Body).Decode(&q)
		if len(q.Query) < 3 {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"query too short"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(models.SearchResponse{Query: q.Query, Total: q.TopK})
	})
	mux.HandleFunc("/api/v1/extract", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnsupportedMediaType)
		_, _ = w.Write([]byte(`{"error":"pdf has no text layer","code":"scanned_not_supported"}`))
	})
	mux.HandleFunc("/api/v1/citations", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(models.Registration{Number: len(body["citationKey"]), IsNew: true, TotalDistinctCitations: 1})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Upload(t *testing.T) {
	srv := newStubServer(t)
	path := filepath.Join(t.TempDir(), "paper.txt")
	if err := os.WriteFile(path, []byte("hello"), 0600); err != nil {
		t.Fatal(err)
	}
	c := NewClient(srv.URL+"/", 5*time.Second)
	out, err := c.Upload(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if out.DocumentID != "doc-1" || out.Document.Filename != "paper.txt" || out.Document.Size != 5 {
		t.Errorf("upload response: %+v", out.Document)
	}

	if _, err := c.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestClient_DocumentsAndErrors(t *testing.T) {
	srv := newStubServer(t)
	c := NewClient(srv.URL, 5*time.Second)
	ctx := context.Background()

	list, err := c.Documents(ctx, 2, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Documents) != 1 || list.Documents[0].Filename != "2.txt" {
		t.Errorf("page parameter not sent: %+v", list.Documents)
	}

	_, err = c.Document(ctx, "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound || apiErr.Message != "document missing: not found" {
		t.Errorf("expected 404 APIError, got %v", err)
	}
}

func TestClient_SearchAndCite(t *testing.T) {
	srv := newStubServer(t)
	c := NewClient(srv.URL, 5*time.Second)
	ctx := context.Background()

	resp, err := c.Search(ctx, &models.SearchQuery{Query: "attention", TopK: 3})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Query != "attention" || resp.Total != 3 {
		t.Errorf("search response: %+v", resp)
	}
	if _, err := c.Search(ctx, &models.SearchQuery{Query: "ab"}); err == nil {
		t.Error("expected error for short query")
	}

	reg, err := c.RegisterCitation(ctx, "abcd")
	if err != nil {
		t.Fatal(err)
	}
	if reg.Number != 4 || !reg.IsNew {
		t.Errorf("registration: %+v", reg)
	}
}

func TestClient_ErrorCode(t *testing.T) {
	srv := newStubServer(t)
	c := NewClient(srv.URL, 5*time.Second)
	err := c.postJSON(context.Background(), "/api/v1/extract", map[string]string{"documentId": "x"}, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != models.CodeScannedNotSupported {
		t.Fatalf("expected scanned APIError, got %v", err)
	}
	if apiErr.Error() != "server returned 415: pdf has no text layer (scanned_not_supported)" {
		t.Errorf("Error() = %q", apiErr.Error())
	}
}
