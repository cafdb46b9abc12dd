package events

import (
	"math"
)

// Row is one (patient, time label) observation slot after pivoting.
type Row struct {
	PatientID string
	Time      string
	Hours     float64
	Values    []float64
}

// Table is the wide per-(patient, time) view of the event stream. Rows keep the
// order in which each (patient, time) pair first arrived.
type Table struct {
	Variables []string
	Rows      []Row
	index     map[string]int
}

// Group lists the row positions belonging to one patient, in arrival order.
type Group struct {
	PatientID string
	Rows      []int
}

func NewTable(variables []string) *Table {
	t := &Table{Variables: append([]string(nil), variables...)}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Variables))
	for i, v := range t.Variables {
		t.index[v] = i
	}
}

func (t *Table) Column(name string) (int, bool) {
	idx, ok := t.index[name]
	return idx, ok
}

// Append adds a row with every variable missing and returns its position.
func (t *Table) Append(patientID, label string, hours float64) int {
	values := make([]float64, len(t.Variables))
	for i := range values {
		values[i] = math.NaN()
	}
	t.Rows = append(t.Rows, Row{PatientID: patientID, Time: label, Hours: hours, Values: values})
	return len(t.Rows) - 1
}

func (t *Table) Groups() []Group {
	pos := make(map[string]int)
	var groups []Group
	for i, row := range t.Rows {
		g, ok := pos[row.PatientID]
		if !ok {
			g = len(groups)
			pos[row.PatientID] = g
			groups = append(groups, Group{PatientID: row.PatientID})
		}
		groups[g].Rows = append(groups[g].Rows, i)
	}
	return groups
}

// GroupIndex maps patient id to its rows.
func (t *Table) GroupIndex() map[string][]int {
	out := make(map[string][]int)
	for _, g := range t.Groups() {
		out[g.PatientID] = g.Rows
	}
	return out
}

// Series returns the hours and values of one column restricted to rows.
// Missing values are kept so callers can choose their own policy.
func (t *Table) Series(rows []int, col int) (hours, values []float64) {
	hours = make([]float64, len(rows))
	values = make([]float64, len(rows))
	for i, r := range rows {
		hours[i] = t.Rows[r].Hours
		values[i] = t.Rows[r].Values[col]
	}
	return hours, values
}

// ReplaceSentinel turns every occurrence of sentinel into a missing value.
func (t *Table) ReplaceSentinel(sentinel float64) {
	for _, row := range t.Rows {
		for i, v := range row.Values {
			if v == sentinel {
				row.Values[i] = math.NaN()
			}
		}
	}
}

// ClipAbove marks values strictly above ceiling as missing. Returns how many were cleared.
func (t *Table) ClipAbove(variable string, ceiling float64) int {
	col, ok := t.index[variable]
	if !ok {
		return 0
	}
	cleared := 0
	for _, row := range t.Rows {
		if row.Values[col] > ceiling {
			row.Values[col] = math.NaN()
			cleared++
		}
	}
	return cleared
}

// Derive appends a column computed from each row.
func (t *Table) Derive(name string, fn func(values []float64) float64) {
	if _, ok := t.index[name]; ok {
		return
	}
	t.Variables = append(t.Variables, name)
	t.index[name] = len(t.Variables) - 1
	for i := range t.Rows {
		t.Rows[i].Values = append(t.Rows[i].Values, fn(t.Rows[i].Values))
	}
}
