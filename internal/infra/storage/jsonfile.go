// Package storage contains the file-backed stores that form the durability
// boundary: rates, portfolios, and the transaction ledger are JSON files
// written with an atomic replace, and the currency registry is a sqlite DB.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"valuta_go/internal/domain"
)

// writeJSONAtomic serializes v and replaces path atomically: the data is
// written to a temp file in the same directory, then renamed over the target.
// A reader never observes a partially written file.
func writeJSONAtomic(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &domain.StorageError{Op: "write", Path: path, Err: err}
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &domain.StorageError{Op: "write", Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return &domain.StorageError{Op: "write", Path: path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &domain.StorageError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &domain.StorageError{Op: "write", Path: path, Err: err}
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &domain.StorageError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// readJSONFile loads path into v. A missing file returns (false, nil) so
// callers can fall back to empty defaults; a corrupt file returns a
// StorageError.
func readJSONFile(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, &domain.StorageError{Op: "read", Path: path, Err: err}
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, &domain.StorageError{Op: "read", Path: path, Err: fmt.Errorf("corrupt file: %w", err)}
	}
	return true, nil
}
