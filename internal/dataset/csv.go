package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// ReadCSV parses a frame from CSV with a header row. Every cell must be
// numeric.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	cols := make([][]float64, len(header))
	row := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", row, err)
		}
		for i, cell := range rec {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", row, header[i], err)
			}
			cols[i] = append(cols[i], v)
		}
		row++
	}
	f := NewFrame()
	for i, name := range header {
		if err := f.AddColumn(name, cols[i]); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// LoadCSV reads a frame from a CSV file.
func LoadCSV(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer file.Close()
	f, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// WriteCSV writes the frame as CSV with a header row.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.names); err != nil {
		return err
	}
	rec := make([]string, len(f.names))
	for r := 0; r < f.Rows(); r++ {
		for c := range f.names {
			rec[c] = strconv.FormatFloat(f.columns[c][r], 'g', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the frame to a CSV file.
func (f *Frame) SaveCSV(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dataset file: %w", err)
	}
	defer file.Close()
	if err := f.WriteCSV(file); err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	return nil
}
