package e2e

import (
	"context"
	"strings"
	"testing"

	"github.com/hyperjump/shiori/internal/extract"
	"github.com/hyperjump/shiori/internal/models"
)

func TestEncodeFile_Extractable(t *testing.T) {
	e := extract.NewExtractor()
	text := "Sample Title\n\nFirst paragraph & more.\n\nSecond paragraph."
	types := map[string]models.FileType{".txt": models.FileTypeTXT, ".docx": models.FileTypeDOCX}
	for _, ext := range Extensions {
		t.Run(ext, func(t *testing.T) {
			got, err := e.Extract(context.Background(), EncodeFile(ext, text), types[ext])
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if !strings.Contains(got.Text, "First paragraph & more.") {
				t.Errorf("extracted text %q", got.Text)
			}
			if strings.Count(got.Text, "\n\n") != 2 {
				t.Errorf("paragraph breaks lost: %q", got.Text)
			}
		})
	}
}
