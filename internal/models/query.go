package models

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MinQueryLength = 3
	DefaultTopK    = 5
	MaxTopK        = 50
)

// SearchQuery is a chunk search request. An empty document scope searches every document.
type SearchQuery struct {
	Query       string   `json:"query"`
	DocumentID  string   `json:"documentId,omitempty"`
	DocumentIDs []string `json:"documentIds,omitempty"`
	TopK        int      `json:"topK,omitempty"`
}

// Validate trims the query, rejects short queries and normalizes TopK against maxTopK
// (MaxTopK when maxTopK <= 0). It folds DocumentID into DocumentIDs.
func (q *SearchQuery) Validate(defaultTopK, maxTopK int) error {
	q.Query = strings.TrimSpace(q.Query)
	if utf8.RuneCountInString(q.Query) < MinQueryLength {
		return fmt.Errorf("%w: query must be at least %d characters", ErrQueryTooShort, MinQueryLength)
	}
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	if maxTopK <= 0 {
		maxTopK = MaxTopK
	}
	if q.TopK < 0 {
		return fmt.Errorf("%w: topK must not be negative", ErrInvalidArgument)
	}
	if q.TopK == 0 {
		q.TopK = defaultTopK
	}
	if q.TopK > maxTopK {
		q.TopK = maxTopK
	}
	if q.DocumentID != "" {
		found := false
		for _, id := range q.DocumentIDs {
			if id == q.DocumentID {
				found = true
				break
			}
		}
		if !found {
			q.DocumentIDs = append(q.DocumentIDs, q.DocumentID)
		}
		q.DocumentID = ""
	}
	return nil
}

// Scoped reports whether the query is restricted to specific documents.
func (q *SearchQuery) Scoped() bool {
	return len(q.DocumentIDs) > 0
}
