package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AnalysisRun is one recorded identification-and-estimation run.
type AnalysisRun struct {
	ID        string
	GraphDOT  string
	Treatment string
	Outcome   string
	Latent    []string
	DatasetID string
	CreatedAt time.Time
}

// EstimandRow is a stored estimand.
type EstimandRow struct {
	RunID     string
	Kind      string
	Variables []string
	Summary   string
}

// EstimateRow is a stored estimate.
type EstimateRow struct {
	RunID    string
	Kind     string
	Method   string
	Value    float64
	StdError float64
	Summary  string
}

const listSep = ","

func joinList(s []string) string { return strings.Join(s, listSep) }

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, listSep)
}

// RecordAnalysis stores a run with its estimands and estimates in one
// transaction and returns the generated run ID.
func (db *DB) RecordAnalysis(run AnalysisRun, estimands []EstimandRow, estimates []EstimateRow) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	tx, err := db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var datasetID any
	if run.DatasetID != "" {
		datasetID = run.DatasetID
	}
	if _, err := tx.Exec(
		`INSERT INTO analysis_runs (id, graph_dot, treatment, outcome, latent, dataset_id) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.GraphDOT, run.Treatment, run.Outcome, joinList(run.Latent), datasetID,
	); err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	for _, e := range estimands {
		if _, err := tx.Exec(
			`INSERT INTO estimands (run_id, kind, variables, summary) VALUES (?, ?, ?, ?)`,
			run.ID, e.Kind, joinList(e.Variables), e.Summary,
		); err != nil {
			return "", fmt.Errorf("failed to insert estimand: %w", err)
		}
	}
	for _, e := range estimates {
		if _, err := tx.Exec(
			`INSERT INTO estimates (run_id, kind, method, value, std_error, summary) VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, e.Kind, e.Method, e.Value, e.StdError, e.Summary,
		); err != nil {
			return "", fmt.Errorf("failed to insert estimate: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit analysis: %w", err)
	}
	return run.ID, nil
}

// Runs lists the most recent runs, newest first.
func (db *DB) Runs(limit int) ([]AnalysisRun, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(
		`SELECT id, graph_dot, treatment, outcome, latent, dataset_id, created_at
		 FROM analysis_runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AnalysisRun
	for rows.Next() {
		var r AnalysisRun
		var latent string
		var datasetID sql.NullString
		if err := rows.Scan(&r.ID, &r.GraphDOT, &r.Treatment, &r.Outcome, &latent, &datasetID, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Latent = splitList(latent)
		r.DatasetID = datasetID.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// Run fetches one run by ID.
func (db *DB) Run(id string) (*AnalysisRun, error) {
	var r AnalysisRun
	var latent string
	var datasetID sql.NullString
	err := db.QueryRow(
		`SELECT id, graph_dot, treatment, outcome, latent, dataset_id, created_at
		 FROM analysis_runs WHERE id = ?`, id).
		Scan(&r.ID, &r.GraphDOT, &r.Treatment, &r.Outcome, &latent, &datasetID, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no run with id %q", id)
	}
	if err != nil {
		return nil, err
	}
	r.Latent = splitList(latent)
	r.DatasetID = datasetID.String
	return &r, nil
}

// Estimands returns the stored estimands for a run.
func (db *DB) Estimands(runID string) ([]EstimandRow, error) {
	rows, err := db.Query(
		`SELECT run_id, kind, variables, summary FROM estimands WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EstimandRow
	for rows.Next() {
		var e EstimandRow
		var vars string
		if err := rows.Scan(&e.RunID, &e.Kind, &vars, &e.Summary); err != nil {
			return nil, err
		}
		e.Variables = splitList(vars)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Estimates returns the stored estimates for a run.
func (db *DB) Estimates(runID string) ([]EstimateRow, error) {
	rows, err := db.Query(
		`SELECT run_id, kind, method, value, std_error, summary FROM estimates WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EstimateRow
	for rows.Next() {
		var e EstimateRow
		if err := rows.Scan(&e.RunID, &e.Kind, &e.Method, &e.Value, &e.StdError, &e.Summary); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
