// =============================================================================
// SSN ETL - File Manager Utility
// =============================================================================
//
// This module provides the file handling shared by the commands:
//   - Archival of delivery documents once the regulator confirms them
//   - Atomic writes of generated delivery documents
//
// ARCHIVAL STRATEGY:
//   - A confirmed document is moved to processed/<weekly|monthly>/ beside
//     its own directory
//   - Submit-only runs never archive, so the document can be resent
//   - Rename is tried first; across devices the file is copied and removed
//
// =============================================================================

package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spazos-ar/etl-ssn/internal/types"
)

// ProcessedDir is the folder, beside a document, receiving confirmed files.
const ProcessedDir = "processed"

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// Archive moves a confirmed delivery document to
// <dir(path)>/processed/<kind>/ and returns its new path.
func Archive(path string, kind types.DeliveryKind) (string, error) {
	if !FileExists(path) {
		return "", fmt.Errorf("file to archive not found: %s", path)
	}

	archiveDir := filepath.Join(filepath.Dir(path), ProcessedDir, kind.Dir())
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	archivePath := filepath.Join(archiveDir, filepath.Base(path))

	if err := os.Rename(path, archivePath); err != nil {
		// Cross-device moves fall back to copy and delete.
		if err := copyFile(path, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(path); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// =============================================================================
// OUTPUT FILES
// =============================================================================

// WriteFileAtomic writes data to a temporary file in the destination
// directory and renames it into place, so readers never see a partial file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	return os.Rename(tmpName, path)
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
