// Package artifacts persists the fitted stages of the feature pipeline as JSON
// files in one directory.
package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/synaptica-ai/icu-features/pkg/transform"
)

const (
	EncoderFile      = "encoder.json"
	ScalerFile       = "scaler.json"
	DropColumnsFile  = "drop_columns.json"
	MeanSequenceFile = "mean_sequence.json"
)

// Bundle groups the fitted stages. Fields are nil when the artifact is absent.
type Bundle struct {
	Encoder      *transform.OneHotImputer
	Scaler       *transform.StandardScaler
	DropColumns  []string
	MeanSequence map[string][]float64
}

type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string { return s.dir }

// Load reads every artifact present in the directory.
func (s *Store) Load() (*Bundle, error) {
	b := &Bundle{}
	encoder := &transform.OneHotImputer{}
	if ok, err := s.read(EncoderFile, encoder); err != nil {
		return nil, err
	} else if ok {
		if !encoder.Fitted() {
			return nil, fmt.Errorf("%s: %w", EncoderFile, transform.ErrNotFitted)
		}
		b.Encoder = encoder
	}
	scaler := &transform.StandardScaler{}
	if ok, err := s.read(ScalerFile, scaler); err != nil {
		return nil, err
	} else if ok {
		b.Scaler = scaler
	}
	var drop []string
	if ok, err := s.read(DropColumnsFile, &drop); err != nil {
		return nil, err
	} else if ok {
		b.DropColumns = drop
		if b.DropColumns == nil {
			b.DropColumns = []string{}
		}
	}
	var meanSeq map[string][]float64
	if ok, err := s.read(MeanSequenceFile, &meanSeq); err != nil {
		return nil, err
	} else if ok {
		b.MeanSequence = meanSeq
	}
	return b, nil
}

func (s *Store) SaveEncoder(enc *transform.OneHotImputer) error {
	if !enc.Fitted() {
		return transform.ErrNotFitted
	}
	return s.write(EncoderFile, enc)
}

func (s *Store) SaveScaler(scaler *transform.StandardScaler) error {
	return s.write(ScalerFile, scaler)
}

func (s *Store) SaveDropColumns(columns []string) error {
	return s.write(DropColumnsFile, columns)
}

func (s *Store) SaveMeanSequence(meanSeq map[string][]float64) error {
	return s.write(MeanSequenceFile, meanSeq)
}

func (s *Store) read(name string, dst interface{}) (bool, error) {
	content, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(content, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

func (s *Store) write(name string, v interface{}) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, name), payload, 0o644)
}
