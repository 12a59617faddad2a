// Package cli renders API responses for the shiori command line and talks to a running server.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/search"
	"github.com/hyperjump/shiori/internal/server"
	"github.com/hyperjump/shiori/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const rule = "─────────────────────────────────────────────────────────"

// ParseOutputFormat accepts "text", "json" or empty.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes ranked chunks. Text output shows a snippet of at most snippetLen
// runes around the highlighted match.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat, snippetLen int) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results for %q in %dms (showing %d)\n\n",
		response.Total, response.Query, response.QueryTime, len(response.Results))
	for _, r := range response.Results {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "Rank: %d | Score: %.4f (Keyword: %.4f, Semantic: %.4f)\n",
			r.Rank, r.Score, r.KeywordScore, r.SemanticScore)
		fmt.Fprintf(w, "Document: %s | Chunk: %s (#%d)\n", r.DocumentID, r.ChunkID, r.PageOrIndex)
		if r.DocumentTitle != "" {
			fmt.Fprintf(w, "Title: %s\n", r.DocumentTitle)
		}
		fmt.Fprintf(w, "\n%s\n\n", search.Snippet(r.Content, r.HighlightSpan, snippetLen))
	}
	return nil
}

// WriteDocument writes one document with both pipeline phases.
func WriteDocument(w io.Writer, doc *models.Document, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, doc)
	}
	fmt.Fprintf(w, "ID:            %s\n", doc.ID)
	fmt.Fprintf(w, "Title:         %s\n", doc.Title())
	fmt.Fprintf(w, "Type:          %s\n", doc.FileType)
	fmt.Fprintf(w, "Uploaded:      %s\n", doc.UploadTime.Format(time.RFC3339))
	fmt.Fprintf(w, "Extraction:    %s\n", doc.ProcessingStatus)
	fmt.Fprintf(w, "Vectorization: %s\n", doc.VectorizationStatus)
	if doc.ChunkCount > 0 {
		fmt.Fprintf(w, "Chunks:        %d\n", doc.ChunkCount)
	}
	if doc.ErrorMessage != "" {
		fmt.Fprintf(w, "Error:         %s (%s)\n", doc.ErrorMessage, doc.ErrorCode)
	}
	if m := doc.Metadata; m != nil {
		if len(m.Authors) > 0 {
			fmt.Fprintf(w, "Authors:       %s\n", strings.Join(m.Authors, "; "))
		}
		if m.Year > 0 {
			fmt.Fprintf(w, "Year:          %d\n", m.Year)
		}
		if m.DOI != "" {
			fmt.Fprintf(w, "DOI:           %s\n", m.DOI)
		}
	}
	return nil
}

// WriteDocumentList writes one page of the library.
func WriteDocumentList(w io.Writer, list *server.DocumentList, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, list)
	}
	fmt.Fprintf(w, "%d documents (page %d of %d)\n\n", list.Total, list.Page, list.TotalPages)
	for _, doc := range list.Documents {
		fmt.Fprintf(w, "%-36s  %-10s  %-10s  %s\n",
			doc.ID, doc.ProcessingStatus, doc.VectorizationStatus, utils.Truncate(doc.Title(), 60))
	}
	return nil
}

// WriteRegistration writes the number assigned to a citation key.
func WriteRegistration(w io.Writer, key string, reg *models.Registration, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, reg)
	}
	state := "existing"
	if reg.IsNew {
		state = "new"
	}
	fmt.Fprintf(w, "[%d] %s (%s, %d distinct citations)\n", reg.Number, key, state, reg.TotalDistinctCitations)
	return nil
}

// WriteStatus writes library counts and configuration.
func WriteStatus(w io.Writer, st *server.StatusResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Documents:         %d\n", st.Documents)
	fmt.Fprintf(w, "Chunks:            %d\n", st.Chunks)
	fmt.Fprintf(w, "Vector index size: %d\n", st.VectorIndexSize)
	fmt.Fprintf(w, "Citations:         %d (%s)\n", st.Citations, st.CitationBackend)
	fmt.Fprintf(w, "Embeddings:        %s, %d dimensions\n", st.EmbeddingProvider, st.EmbeddingDimensions)
	if st.DiskUsageBytes != nil {
		fmt.Fprintf(w, "Disk usage:        %s\n", FormatBytes(*st.DiskUsageBytes))
	}
	return nil
}

// FormatBytes renders n with a binary unit.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
