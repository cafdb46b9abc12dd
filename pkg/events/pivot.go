package events

// Pivot collects the events of the listed variables into a wide Table keyed by
// (patient, time label). Duplicate readings are collapsed with reducer.
// A malformed time label aborts the pivot.
func Pivot(evts []Event, variables []string, reducer Reducer) (*Table, error) {
	t := NewTable(variables)

	type slot struct {
		row    int
		values [][]float64
	}
	slots := make(map[[2]string]*slot)
	var order []*slot

	for _, e := range evts {
		col, ok := t.Column(e.Variable)
		if !ok {
			continue
		}
		hours, err := e.Hours()
		if err != nil {
			return nil, err
		}
		key := [2]string{e.PatientID, e.Time}
		s, ok := slots[key]
		if !ok {
			s = &slot{row: t.Append(e.PatientID, e.Time, hours), values: make([][]float64, len(variables))}
			slots[key] = s
			order = append(order, s)
		}
		s.values[col] = append(s.values[col], e.Value)
	}

	for _, s := range order {
		for col, vals := range s.values {
			if len(vals) == 0 {
				continue
			}
			t.Rows[s.row].Values[col] = reducer.Reduce(vals)
		}
	}
	return t, nil
}
