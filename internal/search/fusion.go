package search

import (
	"sort"

	"github.com/hyperjump/shiori/internal/keyword"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/vector"
	"github.com/hyperjump/shiori/pkg/utils"
)

// Weights are the contributions of each signal to the fused score.
type Weights struct {
	Keyword  float64
	Semantic float64
	Phrase   float64
}

// FusedResult is a chunk with its per-signal and fused scores.
type FusedResult struct {
	ChunkID       string
	DocumentID    string
	Score         float64
	KeywordScore  float64
	SemanticScore float64
	PhraseScore   float64
}

// NormalizeKeywordScores normalizes keyword scores to [0,1] by max.
func NormalizeKeywordScores(results []*keyword.Result) map[string]float64 {
	normalized := make(map[string]float64, len(results))
	var maxScore float64
	for _, r := range results {
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	for _, r := range results {
		if maxScore > 0 {
			normalized[r.ChunkID] = r.Score / maxScore
		} else {
			normalized[r.ChunkID] = 0
		}
	}
	return normalized
}

// NormalizeSemanticScores clamps inner products of unit vectors to [0,1].
func NormalizeSemanticScores(results []*vector.Result) map[string]float64 {
	normalized := make(map[string]float64, len(results))
	for _, r := range results {
		normalized[r.ChunkID] = utils.Clamp01(r.Score)
	}
	return normalized
}

// PhraseScores gives every chunk containing the literal query a score of 1.
func PhraseScores(chunks []*models.Chunk) map[string]float64 {
	scores := make(map[string]float64, len(chunks))
	for _, c := range chunks {
		scores[c.ID] = 1
	}
	return scores
}

// Fuse merges the per-signal scores of chunks. Chunks found only by the semantic signal must
// reach minSemantic. Results are sorted by fused score, ties by chunk id.
func Fuse(keywordScores, semanticScores, phraseScores map[string]float64, chunkToDoc map[string]string, w Weights, minSemantic float64) []*FusedResult {
	scoreMap := make(map[string]*FusedResult)
	get := func(id string) *FusedResult {
		r, ok := scoreMap[id]
		if !ok {
			r = &FusedResult{ChunkID: id, DocumentID: chunkToDoc[id]}
			scoreMap[id] = r
		}
		return r
	}
	for id, score := range keywordScores {
		get(id).KeywordScore = score
	}
	for id, score := range phraseScores {
		get(id).PhraseScore = score
	}
	for id, score := range semanticScores {
		if _, lexical := scoreMap[id]; !lexical && score < minSemantic {
			continue
		}
		get(id).SemanticScore = score
	}

	results := make([]*FusedResult, 0, len(scoreMap))
	for _, r := range scoreMap {
		r.Score = w.Keyword*r.KeywordScore + w.Semantic*r.SemanticScore + w.Phrase*r.PhraseScore
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})
	return results
}
