package duckdb

import (
	"fmt"
	"os"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// RecordInput stores the fingerprint of an input file under its role
// (score, colinearity, bed1, bed2), replacing any previous entry.
func (s *Store) RecordInput(role string, fp FileFingerprint) error {
	if _, err := s.db.Exec("DELETE FROM merge_inputs WHERE role=?", role); err != nil {
		return fmt.Errorf("replace input %s: %w", role, err)
	}
	if _, err := s.db.Exec(
		"INSERT INTO merge_inputs (role, path, size, mod_time) VALUES (?, ?, ?, ?)",
		role, fp.Path, fp.Size, fp.ModTime,
	); err != nil {
		return fmt.Errorf("record input %s: %w", role, err)
	}
	return nil
}

// Inputs returns the recorded input fingerprints keyed by role.
func (s *Store) Inputs() (map[string]FileFingerprint, error) {
	rows, err := s.db.Query("SELECT role, path, size, mod_time FROM merge_inputs")
	if err != nil {
		return nil, fmt.Errorf("query inputs: %w", err)
	}
	defer rows.Close()

	inputs := make(map[string]FileFingerprint)
	for rows.Next() {
		var role string
		var fp FileFingerprint
		if err := rows.Scan(&role, &fp.Path, &fp.Size, &fp.ModTime); err != nil {
			return nil, fmt.Errorf("scan input: %w", err)
		}
		inputs[role] = fp
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inputs: %w", err)
	}
	return inputs, nil
}
