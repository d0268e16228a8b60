package store

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gowebpki/jcs"
	"github.com/klauspost/compress/zlib"
	"go.uber.org/zap"

	coreerrors "github.com/davidahmann/reportstore/core/errors"
	"github.com/davidahmann/reportstore/core/fsx"
)

const (
	// Bundle namespaces. Report and metadata documents share one area;
	// source content is keyed by its path made relative to the
	// filesystem root.
	reportsPrefix = "reports"
	contentPrefix = "root"

	// ManifestEntryName is the single manifest entry recording the
	// complete path to hash mapping of the upload.
	ManifestEntryName = "content_hashes.json"

	// MaxUploadBytes is the absolute ceiling on the compressed bundle.
	// Exceeding it aborts the operation before any bytes hit the wire.
	MaxUploadBytes = int64(1 << 30)
)

// Entries get a fixed timestamp so identical inputs produce identical
// archives.
var bundleTimestamp = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// AssembleInput is everything the assembler needs to write a bundle:
// the surviving report documents, all metadata documents, the filled
// hash maps, and the snapshot of hashes the remote reported missing.
type AssembleInput struct {
	Reports  []ReportDocument
	Metadata []MetadataDocument
	Hashes   *ContentHashMap
	Missing  map[string]struct{}
}

// Assembler writes the upload bundle into the scoped temporary file.
type Assembler struct {
	Logger *zap.Logger
}

// WriteBundle writes the archive at path in entry order: report
// documents, metadata documents, raw content for every (path, hash)
// pair whose hash the remote is missing, and exactly one manifest
// entry after all content. It then runs one whole-archive zlib pass:
// source content compresses well and the transport carries the bundle
// as an opaque payload, so the extra pass is pure byte savings.
func (a Assembler) WriteBundle(path string, input AssembleInput) error {
	if err := a.writeArchive(path, input); err != nil {
		return err
	}
	return a.compressArchive(path)
}

func (a Assembler) writeArchive(path string, input AssembleInput) error {
	// #nosec G304 -- path is the invocation-scoped temp bundle.
	file, err := os.Create(path)
	if err != nil {
		return coreerrors.Wrap(fmt.Errorf("create bundle: %w", err),
			coreerrors.CategoryIOFailure, "bundle_create_failed",
			"check temp directory permissions")
	}
	writer := zip.NewWriter(file)

	fail := func(cause error) error {
		_ = writer.Close()
		_ = file.Close()
		return coreerrors.Wrap(cause, coreerrors.CategoryIOFailure,
			"bundle_write_failed", "check disk space and source file permissions")
	}

	for _, document := range input.Reports {
		entry := reportsPrefix + "/" + filepath.Base(document.Path)
		if err := copyFileEntry(writer, entry, document.Path); err != nil {
			return fail(err)
		}
	}
	for _, document := range input.Metadata {
		entry := reportsPrefix + "/" + filepath.Base(document.Path)
		if err := copyFileEntry(writer, entry, document.Path); err != nil {
			return fail(err)
		}
	}

	pathHashes := input.Hashes.PathHashes()
	for _, sourcePath := range sortedPaths(pathHashes) {
		hash := pathHashes[sourcePath]
		if _, needed := input.Missing[hash]; !needed {
			continue
		}
		a.Logger.Debug("file contents needed by the server",
			zap.String("path", sourcePath), zap.String("hash", hash))
		if err := copyFileEntry(writer, contentEntryName(sourcePath), sourcePath); err != nil {
			return fail(err)
		}
	}

	manifest, err := manifestBytes(input.Hashes)
	if err != nil {
		return fail(err)
	}
	if err := writeEntry(writer, ManifestEntryName, bytes.NewReader(manifest)); err != nil {
		return fail(err)
	}

	if err := writer.Close(); err != nil {
		return fail(fmt.Errorf("finalize bundle: %w", err))
	}
	if err := file.Close(); err != nil {
		return fail(fmt.Errorf("close bundle: %w", err))
	}
	return nil
}

// compressArchive replaces the archive with a zlib-compressed copy at
// best compression, mirroring the transport contract: the remote
// expects one zlib stream wrapping the whole archive.
func (a Assembler) compressArchive(path string) error {
	// #nosec G304 -- path is the invocation-scoped temp bundle.
	raw, err := os.ReadFile(path)
	if err != nil {
		return coreerrors.Wrap(fmt.Errorf("read bundle for compression: %w", err),
			coreerrors.CategoryIOFailure, "bundle_compress_failed",
			"check temp directory permissions")
	}
	var buffer bytes.Buffer
	compressor, err := zlib.NewWriterLevel(&buffer, zlib.BestCompression)
	if err != nil {
		return coreerrors.Wrap(fmt.Errorf("init compressor: %w", err),
			coreerrors.CategoryInternal, "bundle_compress_failed",
			"report this as a bug")
	}
	if _, err := compressor.Write(raw); err != nil {
		return coreerrors.Wrap(fmt.Errorf("compress bundle: %w", err),
			coreerrors.CategoryInternal, "bundle_compress_failed",
			"report this as a bug")
	}
	if err := compressor.Close(); err != nil {
		return coreerrors.Wrap(fmt.Errorf("flush compressor: %w", err),
			coreerrors.CategoryInternal, "bundle_compress_failed",
			"report this as a bug")
	}
	a.Logger.Debug("bundle compressed",
		zap.Int("raw_bytes", len(raw)), zap.Int("compressed_bytes", buffer.Len()))
	if err := fsx.ReplaceFileAtomic(path, buffer.Bytes(), 0o600); err != nil {
		return coreerrors.Wrap(fmt.Errorf("rewrite compressed bundle: %w", err),
			coreerrors.CategoryIOFailure, "bundle_compress_failed",
			"check temp directory permissions")
	}
	return nil
}

// contentEntryName places source content under the content area, keyed
// by the absolute path with its root marker stripped.
func contentEntryName(path string) string {
	slashed := filepath.ToSlash(path)
	for len(slashed) > 0 && slashed[0] == '/' {
		slashed = slashed[1:]
	}
	if volume := filepath.VolumeName(path); volume != "" {
		slashed = filepath.ToSlash(path[len(volume):])
		for len(slashed) > 0 && slashed[0] == '/' {
			slashed = slashed[1:]
		}
	}
	return contentPrefix + "/" + slashed
}

// manifestBytes serializes the full path to hash map in RFC 8785
// canonical form, so byte-identical inputs yield a byte-identical
// manifest.
func manifestBytes(hashes *ContentHashMap) ([]byte, error) {
	raw, err := json.Marshal(hashes.PathHashes())
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize manifest: %w", err)
	}
	return canonical, nil
}

func sortedPaths(pathHashes map[string]string) []string {
	paths := make([]string, 0, len(pathHashes))
	for path := range pathHashes {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func copyFileEntry(writer *zip.Writer, entry string, sourcePath string) error {
	// #nosec G304 -- sourcePath was discovered or parsed from explicit inputs.
	source, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("open %s: %w", sourcePath, err)
	}
	defer func() {
		_ = source.Close()
	}()
	return writeEntry(writer, entry, source)
}

func writeEntry(writer *zip.Writer, entry string, content io.Reader) error {
	header := &zip.FileHeader{
		Name:     entry,
		Method:   zip.Deflate,
		Modified: bundleTimestamp,
	}
	header.SetMode(0o644)
	destination, err := writer.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create entry %s: %w", entry, err)
	}
	if _, err := io.Copy(destination, content); err != nil {
		return fmt.Errorf("write entry %s: %w", entry, err)
	}
	return nil
}
