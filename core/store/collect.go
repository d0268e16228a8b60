package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	coreerrors "github.com/davidahmann/reportstore/core/errors"
	"github.com/davidahmann/reportstore/core/report"
)

// ReportDocument is one discovered analyzer report file.
type ReportDocument struct {
	Path string
}

// MetadataDocument is a run-level metadata file discovered next to the
// reports. Name is the project name it declares, empty when it
// declares none. Metadata documents are always bundled and never
// participate in hashing or deduplication.
type MetadataDocument struct {
	Path string
	Name string
}

// CollectResult is the ordered outcome of input discovery.
type CollectResult struct {
	Reports  []ReportDocument
	Metadata []MetadataDocument
}

// CollectInputs discovers report and metadata documents under the
// given paths, in input order. A path that does not exist fails the
// whole operation. Directories are scanned non-recursively: one-shot
// batch uploads point at flat analyzer output directories, so only
// immediate children are considered. At most one metadata document is
// taken per input path.
func CollectInputs(inputs []string, logger *zap.Logger) (CollectResult, error) {
	result := CollectResult{}
	for _, input := range inputs {
		absolute, err := filepath.Abs(input)
		if err != nil {
			return CollectResult{}, coreerrors.Wrap(
				fmt.Errorf("resolve input %s: %w", input, err),
				coreerrors.CategoryInvalidInput, "input_path_invalid",
				"pass a valid file or directory path")
		}
		info, err := os.Stat(absolute)
		if err != nil {
			return CollectResult{}, coreerrors.Wrap(
				fmt.Errorf("input path does not exist: %s", absolute),
				coreerrors.CategoryNotFound, "input_not_found",
				"check the analyzer output path")
		}

		if !info.IsDir() {
			result.collectFile(absolute, logger)
			continue
		}

		entries, err := os.ReadDir(absolute)
		if err != nil {
			return CollectResult{}, coreerrors.Wrap(
				fmt.Errorf("scan input directory %s: %w", absolute, err),
				coreerrors.CategoryIOFailure, "input_scan_failed",
				"check directory permissions")
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			result.collectFile(filepath.Join(absolute, entry.Name()), logger)
		}
	}
	return result, nil
}

func (result *CollectResult) collectFile(path string, logger *zap.Logger) {
	base := filepath.Base(path)
	switch {
	case strings.HasSuffix(base, report.ReportSuffix):
		result.Reports = append(result.Reports, ReportDocument{Path: path})
	case base == report.MetadataFileName:
		metadata, err := report.ReadMetadata(path)
		if err != nil {
			// Per-document failure: the batch continues without this
			// metadata document.
			logger.Warn("skipping unreadable metadata document",
				zap.String("path", path), zap.Error(err))
			return
		}
		result.Metadata = append(result.Metadata, MetadataDocument{Path: path, Name: metadata.Name})
	}
}

// unnamedProjectLabel stands in for a metadata document that declares
// no project name inside a composite run name.
const unnamedProjectLabel = "unnamed result folder"

// DeriveRunName resolves the run name from collected metadata when
// the caller supplied none. A single metadata document lends its
// declared name as-is; several metadata documents always yield a
// composite label, with a placeholder for each document that declares
// no name. No declared name at all demands an explicit --name.
func DeriveRunName(metadata []MetadataDocument) (string, error) {
	labels := make([]string, 0, len(metadata))
	declared := 0
	for _, document := range metadata {
		if strings.TrimSpace(document.Name) == "" {
			labels = append(labels, unnamedProjectLabel)
			continue
		}
		labels = append(labels, document.Name)
		declared++
	}
	if declared == 0 {
		return "", coreerrors.New(
			"no run name could be derived from the inputs",
			coreerrors.CategoryInvalidInput, "missing_run_name",
			"pass --name run_name in the invocation")
	}
	if len(labels) == 1 {
		return labels[0], nil
	}
	return "multiple projects: " + strings.Join(labels, ", "), nil
}
