package search

import (
	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/models"
)

// ProcessQuery validates the query and applies the configured topK default and cap.
func ProcessQuery(query *models.SearchQuery, cfg config.SearchConfig) error {
	return query.Validate(cfg.DefaultTopK, cfg.MaxTopK)
}
