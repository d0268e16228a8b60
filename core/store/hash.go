package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"

	"go.uber.org/zap"
)

// ReportParser is the external collaborator that turns a report
// document into the set of source files it references.
type ReportParser interface {
	ReferencedFiles(path string) ([]string, error)
}

// ContentHashMap is the bidirectional hash bookkeeping for one store
// operation. hashToPath keeps one representative path per hash with a
// first-writer-wins policy; pathToHash keeps an entry for every
// referenced path, duplicates included, because the manifest records
// all of them.
type ContentHashMap struct {
	hashToPath map[string]string
	pathToHash map[string]string
}

func NewContentHashMap() *ContentHashMap {
	return &ContentHashMap{
		hashToPath: make(map[string]string),
		pathToHash: make(map[string]string),
	}
}

// Add records a (path, hash) pair. The first path seen for a hash
// stays its representative; later paths with identical bytes only gain
// a manifest entry. The remote needs the content once, the manifest
// needs every path.
func (m *ContentHashMap) Add(path, hash string) {
	if _, exists := m.hashToPath[hash]; !exists {
		m.hashToPath[hash] = path
	}
	m.pathToHash[path] = hash
}

// DistinctHashes returns the sorted set of distinct content hashes.
func (m *ContentHashMap) DistinctHashes() []string {
	hashes := make([]string, 0, len(m.hashToPath))
	for hash := range m.hashToPath {
		hashes = append(hashes, hash)
	}
	sort.Strings(hashes)
	return hashes
}

// PathHashes returns a copy of the path to hash map.
func (m *ContentHashMap) PathHashes() map[string]string {
	pairs := make(map[string]string, len(m.pathToHash))
	for path, hash := range m.pathToHash {
		pairs[path] = hash
	}
	return pairs
}

// HashOf returns the recorded hash for path.
func (m *ContentHashMap) HashOf(path string) (string, bool) {
	hash, ok := m.pathToHash[path]
	return hash, ok
}

// Len returns the number of distinct hashes recorded.
func (m *ContentHashMap) Len() int {
	return len(m.hashToPath)
}

// HashFile computes the content identity hash of the file at path: a
// sha256 hex digest over the raw bytes. It keys deduplication and is
// not used as a security primitive.
func HashFile(path string) (string, error) {
	// #nosec G304 -- path comes from a parsed report document.
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()
	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Hasher resolves each report document's referenced files and fills
// the content hash maps.
type Hasher struct {
	Parser ReportParser
	Logger *zap.Logger
}

// HashReports returns the report documents that survive hashing. A
// document whose parse fails is skipped. A document referencing any
// file missing from disk is dropped wholesale: a report cannot be
// safely diffed against content that no longer exists, so partial
// transfer is not attempted. Dropped documents contribute nothing to
// the hash maps.
func (h Hasher) HashReports(reports []ReportDocument, hashes *ContentHashMap) []ReportDocument {
	surviving := make([]ReportDocument, 0, len(reports))
	for _, document := range reports {
		files, err := h.Parser.ReferencedFiles(document.Path)
		if err != nil {
			h.Logger.Warn("skipping report document that failed to parse",
				zap.String("path", document.Path), zap.Error(err))
			continue
		}
		pairs, missing := hashReferencedFiles(files)
		if missing != "" {
			h.Logger.Warn("skipping report document with a missing source file",
				zap.String("path", document.Path), zap.String("missing", missing))
			continue
		}
		for _, pair := range pairs {
			hashes.Add(pair.path, pair.hash)
		}
		surviving = append(surviving, document)
	}
	return surviving
}

type pathHashPair struct {
	path string
	hash string
}

// hashReferencedFiles hashes every referenced file into scratch
// storage so a document dropped partway through leaves no trace in the
// shared bookkeeping. Pairs keep document order, which is what makes
// the first-writer-wins representative deterministic. Returns the
// first missing path when the document must be dropped.
func hashReferencedFiles(files []string) ([]pathHashPair, string) {
	pairs := make([]pathHashPair, 0, len(files))
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil || info.IsDir() {
			return nil, file
		}
		hash, err := HashFile(file)
		if err != nil {
			// Deleted between stat and read: same policy as missing.
			return nil, file
		}
		pairs = append(pairs, pathHashPair{path: file, hash: hash})
	}
	return pairs, ""
}
