// Package pdfio wraps the pdfcpu primitives and small filesystem helpers
// shared by the services.
package pdfio

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// relaxedConf returns a pdfcpu configuration that tolerates the structural
// quirks real-world report PDFs tend to carry.
func relaxedConf() *model.Configuration {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return cfg
}

// PageCount returns the number of pages in the PDF at path. The file is
// only read, never modified, so the same path can be reopened later for
// page copying.
func PageCount(path string) (int, error) {
	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	return ctx.PageCount, nil
}

// Validate runs a relaxed pdfcpu validation over the PDF at path.
func Validate(path string) error {
	if err := api.ValidateFile(path, relaxedConf()); err != nil {
		return fmt.Errorf("validating %s: %w", filepath.Base(path), err)
	}
	return nil
}

// FileSHA256 returns the hex-encoded SHA-256 of the file at path. Logged
// alongside page counts so a run's inputs are traceable.
func FileSHA256(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// DerivedTitle returns the cover title for a document: its filename with
// the directory and extension stripped. No further sanitization is applied.
func DerivedTitle(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
