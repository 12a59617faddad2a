package keyword

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

// deletePageSize bounds how many chunk ids are fetched per delete round.
const deletePageSize = 500

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
}

func chunkMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()

	// Standard analyzer (lowercase + unicode tokenize, no stemming) so partial author names and
	// technical terms match exactly as written.
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	doc.AddFieldMappingsAt("content", text)
	doc.AddFieldMappingsAt("title", text)

	kw := bleve.NewKeywordFieldMapping()
	doc.AddFieldMappingsAt("document_id", kw)

	idx := bleve.NewNumericFieldMapping()
	idx.Index = false
	doc.AddFieldMappingsAt("chunk_index", idx)

	im.AddDocumentMapping("chunk", doc)
	im.DefaultType = "chunk"
	im.DefaultMapping = doc
	return im
}

// NewBleveIndex opens the index at path, creating it when absent. An empty path creates an
// in-memory index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if path == "" {
		index, err := bleve.NewMemOnly(chunkMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}
	if _, err := os.Stat(path); err == nil {
		index, err := bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}
	index, err := bleve.New(path, chunkMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// IndexChunks indexes chunks keyed by chunk id in one batch.
func (b *BleveIndex) IndexChunks(ctx context.Context, chunks map[string]*Doc) error {
	batch := b.index.NewBatch()
	for id, doc := range chunks {
		if err := batch.Index(id, doc); err != nil {
			return fmt.Errorf("index chunk %s: %w", id, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("Bleve batch failed: %w", err)
	}
	return nil
}

// Search matches the query against content and title (title boosted), optionally restricted to
// documents, and adds a phrase boost for exact phrase hits.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error) {
	if opts == nil {
		opts = &SearchOptions{}
	}
	if limit <= 0 {
		return nil, nil
	}

	content := bleve.NewMatchQuery(query)
	content.SetField("content")
	title := bleve.NewMatchQuery(query)
	title.SetField("title")
	if opts.TitleBoost > 0 {
		title.SetBoost(opts.TitleBoost)
	}
	if opts.Fuzziness > 0 {
		content.SetFuzziness(opts.Fuzziness)
		title.SetFuzziness(opts.Fuzziness)
	}
	should := []blevequery.Query{content, title}
	if opts.PhraseBoost > 1 {
		phrase := bleve.NewMatchPhraseQuery(query)
		phrase.SetField("content")
		phrase.SetBoost(opts.PhraseBoost)
		should = append(should, phrase)
	}
	var q blevequery.Query = bleve.NewDisjunctionQuery(should...)

	if len(opts.DocumentIDs) > 0 {
		scope := make([]blevequery.Query, len(opts.DocumentIDs))
		for i, id := range opts.DocumentIDs {
			tq := bleve.NewTermQuery(id)
			tq.SetField("document_id")
			scope[i] = tq
		}
		q = bleve.NewConjunctionQuery(q, bleve.NewDisjunctionQuery(scope...))
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*Result, len(res.Hits))
	for i, hit := range res.Hits {
		out[i] = &Result{ChunkID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// DeleteDocument removes every chunk of the document.
func (b *BleveIndex) DeleteDocument(ctx context.Context, documentID string) error {
	tq := bleve.NewTermQuery(documentID)
	tq.SetField("document_id")
	for {
		req := bleve.NewSearchRequest(tq)
		req.Size = deletePageSize
		res, err := b.index.SearchInContext(ctx, req)
		if err != nil {
			return fmt.Errorf("find chunks of %s: %w", documentID, err)
		}
		if len(res.Hits) == 0 {
			return nil
		}
		batch := b.index.NewBatch()
		for _, hit := range res.Hits {
			batch.Delete(hit.ID)
		}
		if err := b.index.Batch(batch); err != nil {
			return fmt.Errorf("delete chunks of %s: %w", documentID, err)
		}
	}
}

// DocCount returns the number of indexed chunks.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
