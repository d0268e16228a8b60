// Package report parses the analyzer output documents the store
// pipeline uploads: plist report files and the run-level metadata.json.
package report

import (
	"fmt"
	"os"

	"howett.net/plist"

	coreerrors "github.com/davidahmann/reportstore/core/errors"
)

// ReportSuffix is the recognized extension for report documents.
const ReportSuffix = ".plist"

// Diagnostic is a single finding inside a report document. Only the
// fields the uploader surfaces are decoded; the full document travels
// in the bundle untouched.
type Diagnostic struct {
	CheckName   string `plist:"check_name"`
	Description string `plist:"description"`
	Category    string `plist:"category"`
}

// Report is the parsed form of one plist report document.
type Report struct {
	Files       []string     `plist:"files"`
	Diagnostics []Diagnostic `plist:"diagnostics"`
}

// Parser reads plist report documents. The zero value is ready to use.
type Parser struct{}

// Parse decodes the report document at path. Failures are classified
// parse_failed: callers treat them as per-document and keep going.
func (Parser) Parse(path string) (Report, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return Report{}, coreerrors.Wrap(
			fmt.Errorf("read report %s: %w", path, err),
			coreerrors.CategoryParseFailed, "report_read_failed",
			"check that the report file is readable")
	}
	var parsed Report
	if _, err := plist.Unmarshal(payload, &parsed); err != nil {
		return Report{}, coreerrors.Wrap(
			fmt.Errorf("parse report %s: %w", path, err),
			coreerrors.CategoryParseFailed, "report_parse_failed",
			"re-run the analyzer to regenerate the report")
	}
	return parsed, nil
}

// ReferencedFiles returns the source files a report document refers to.
// It satisfies the store pipeline's parser collaborator contract.
func (p Parser) ReferencedFiles(path string) ([]string, error) {
	parsed, err := p.Parse(path)
	if err != nil {
		return nil, err
	}
	return parsed.Files, nil
}
