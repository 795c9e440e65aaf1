package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/estimand.report/internal/dataset"
	"github.com/google/uuid"
)

// DatasetInfo describes a stored dataset without its contents.
type DatasetInfo struct {
	ID        string
	Name      string
	Rows      int
	Cols      int
	CreatedAt time.Time
}

// ImportDataset stores a frame under a unique name and returns its ID.
// Frames round-trip through CSV, which keeps the schema stable across
// arbitrary column sets.
func (db *DB) ImportDataset(name string, f *dataset.Frame) (string, error) {
	if name == "" {
		return "", fmt.Errorf("dataset name must be non-empty")
	}
	var csv strings.Builder
	if err := f.WriteCSV(&csv); err != nil {
		return "", fmt.Errorf("failed to serialise dataset: %w", err)
	}
	id := uuid.NewString()
	_, err := db.Exec(
		`INSERT INTO datasets (id, name, csv, row_count, col_count) VALUES (?, ?, ?, ?, ?)`,
		id, name, csv.String(), f.Rows(), len(f.Columns()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to store dataset %q: %w", name, err)
	}
	return id, nil
}

// Dataset loads a stored frame by name.
func (db *DB) Dataset(name string) (*dataset.Frame, error) {
	var csv string
	err := db.QueryRow(`SELECT csv FROM datasets WHERE name = ?`, name).Scan(&csv)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no dataset named %q", name)
	}
	if err != nil {
		return nil, err
	}
	f, err := dataset.ReadCSV(strings.NewReader(csv))
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored dataset %q: %w", name, err)
	}
	return f, nil
}

// Datasets lists stored datasets, newest first.
func (db *DB) Datasets() ([]DatasetInfo, error) {
	rows, err := db.Query(
		`SELECT id, name, row_count, col_count, created_at FROM datasets ORDER BY created_at DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DatasetInfo
	for rows.Next() {
		var d DatasetInfo
		if err := rows.Scan(&d.ID, &d.Name, &d.Rows, &d.Cols, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
