package models

// Span is a half-open [Start, End) range of rune offsets into a chunk's content.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// SearchResult is one ranked chunk.
type SearchResult struct {
	ChunkID       string  `json:"chunkId"`
	DocumentID    string  `json:"documentId"`
	DocumentTitle string  `json:"documentTitle,omitempty"`
	PageOrIndex   int     `json:"pageOrIndex"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	KeywordScore  float64 `json:"keywordScore"`
	SemanticScore float64 `json:"semanticScore"`
	HighlightSpan *Span   `json:"highlightSpan,omitempty"`
	Rank          int     `json:"rank"`
}

// SearchResponse is the response for a chunk search.
type SearchResponse struct {
	Query     string          `json:"query"`
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"took"`
}

// CitationRecord maps a citation key to its display number.
type CitationRecord struct {
	Key    string `json:"key"`
	Number int    `json:"number"`
}

// Registration is the result of registering a citation key.
type Registration struct {
	Number                 int  `json:"number"`
	IsNew                  bool `json:"isNew"`
	TotalDistinctCitations int  `json:"totalDistinctCitations"`
}

// Reference is the bibliographic input to citation formatting.
type Reference struct {
	Title   string   `json:"title"`
	Authors []string `json:"authors,omitempty"`
	Year    int      `json:"year,omitempty"`
	Journal string   `json:"journal,omitempty"`
	DOI     string   `json:"doi,omitempty"`
}

// ReferenceFromMetadata builds a Reference from extracted metadata, using fallbackTitle when
// no title was discovered.
func ReferenceFromMetadata(m *Metadata, fallbackTitle string) Reference {
	ref := Reference{Title: fallbackTitle}
	if m == nil {
		return ref
	}
	if m.Title != "" {
		ref.Title = m.Title
	}
	ref.Authors = append([]string(nil), m.Authors...)
	ref.Year = m.Year
	ref.Journal = m.Journal
	ref.DOI = m.DOI
	return ref
}
