package events

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/synaptica-ai/icu-features/pkg/common/errs"
)

// Event is one raw observation in the long-format challenge extract.
type Event struct {
	PatientID string  `json:"patient_id"`
	Variable  string  `json:"variable"`
	Time      string  `json:"time"`
	Value     float64 `json:"value"`
}

// eventJSON carries a missing value as null.
type eventJSON struct {
	PatientID string   `json:"patient_id"`
	Variable  string   `json:"variable"`
	Time      string   `json:"time"`
	Value     *float64 `json:"value"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	out := eventJSON{PatientID: e.PatientID, Variable: e.Variable, Time: e.Time}
	if !math.IsNaN(e.Value) && !math.IsInf(e.Value, 0) {
		v := e.Value
		out.Value = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a null or absent value as missing.
func (e *Event) UnmarshalJSON(data []byte) error {
	var in eventJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*e = Event{PatientID: in.PatientID, Variable: in.Variable, Time: in.Time, Value: math.NaN()}
	if in.Value != nil {
		e.Value = *in.Value
	}
	return nil
}

// ParseTimeLabel converts an "HH:MM" label relative to admission into elapsed hours.
func ParseTimeLabel(label string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(label), ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return 0, fmt.Errorf("%w: %q", errs.ErrMalformedTimestamp, label)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 {
		return 0, fmt.Errorf("%w: %q", errs.ErrMalformedTimestamp, label)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", errs.ErrMalformedTimestamp, label)
	}
	return float64(h) + float64(m)/60, nil
}

// Hours parses the event's time label, tagging failures with patient and variable.
func (e Event) Hours() (float64, error) {
	hours, err := ParseTimeLabel(e.Time)
	if err != nil {
		return 0, errs.Stage("parse_time", e.PatientID, e.Variable, err)
	}
	return hours, nil
}

// PatientIDs lists distinct patients in first-appearance order.
func PatientIDs(evts []Event) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, e := range evts {
		if _, ok := seen[e.PatientID]; ok {
			continue
		}
		seen[e.PatientID] = struct{}{}
		ids = append(ids, e.PatientID)
	}
	return ids
}
