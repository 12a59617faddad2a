// Package fileid derives stable document ids for files picked up from inbox directories.
package fileid

import (
	"path/filepath"

	"github.com/google/uuid"
)

// namespace scopes path-derived ids so they never collide with random upload ids.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("shiori:inbox"))

// FileDocID returns a name-based UUID for path. Equivalent spellings of one path give the
// same id; callers pass absolute paths.
func FileDocID(path string) string {
	return uuid.NewSHA1(namespace, []byte(filepath.Clean(path))).String()
}
