package events

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Columns names the header fields of a long-format event table.
type Columns struct {
	PatientID string `yaml:"patient_id"`
	Variable  string `yaml:"variable"`
	Time      string `yaml:"time"`
	Value     string `yaml:"value"`
}

// DefaultColumns matches the PhysioNet challenge extract.
func DefaultColumns() Columns {
	return Columns{PatientID: "PATIENT_ID", Variable: "Parameter", Time: "Time", Value: "Value"}
}

// ReadCSV reads every event from r. Any malformed row aborts the read.
func ReadCSV(r io.Reader, cols Columns) ([]Event, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	pos := make([]int, 4)
	for i, name := range []string{cols.PatientID, cols.Variable, cols.Time, cols.Value} {
		idx, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("header missing column %q", name)
		}
		pos[i] = idx
	}

	var out []Event
	for row := 1; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		evt := Event{
			PatientID: strings.TrimSpace(record[pos[0]]),
			Variable:  strings.TrimSpace(record[pos[1]]),
			Time:      strings.TrimSpace(record[pos[2]]),
		}
		if _, err := ParseTimeLabel(evt.Time); err != nil {
			return nil, fmt.Errorf("row %d patient %s: %w", row, evt.PatientID, err)
		}
		raw := strings.TrimSpace(record[pos[3]])
		if raw == "" || strings.EqualFold(raw, "nan") {
			evt.Value = math.NaN()
		} else {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d patient %s variable %s: %w", row, evt.PatientID, evt.Variable, err)
			}
			evt.Value = v
		}
		out = append(out, evt)
	}
	return out, nil
}

func LoadCSV(path string, cols Columns) ([]Event, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open events: %w", err)
	}
	defer f.Close()
	return ReadCSV(f, cols)
}
