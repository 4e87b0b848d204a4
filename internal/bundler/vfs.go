package bundler

import "sort"

// FileStore is the virtual filesystem backing one build: an immutable mapping
// from canonical path (leading "./" or "/" stripped) to source text. A store
// is built once per request and never shared across builds, so lookups need
// no locking even when the engine resolves concurrently.
type FileStore struct {
	files map[string]string
}

// NewFileStore indexes the request files by stripped canonical key. When two
// input keys strip to the same canonical key, the lexicographically later
// input wins; iterating sorted keys keeps the collision outcome deterministic
// across builds.
func NewFileStore(files map[string]string) *FileStore {
	keys := make([]string, 0, len(files))
	for key := range files {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	indexed := make(map[string]string, len(files))
	for _, key := range keys {
		indexed[StripPath(key)] = files[key]
	}
	return &FileStore{files: indexed}
}

// Lookup returns the source text for a canonical key. Matching is exact: no
// globs, no extension inference.
func (s *FileStore) Lookup(key string) (string, bool) {
	contents, ok := s.files[key]
	return contents, ok
}

// Has reports whether a canonical key is present.
func (s *FileStore) Has(key string) bool {
	_, ok := s.files[key]
	return ok
}

// Len returns the number of indexed files.
func (s *FileStore) Len() int {
	return len(s.files)
}
