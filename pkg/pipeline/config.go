package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/synaptica-ai/icu-features/pkg/events"
	"github.com/synaptica-ai/icu-features/pkg/features"
)

// Ratio derives a per-observation quotient of two time-series variables.
type Ratio struct {
	Name        string `yaml:"name"`
	Numerator   string `yaml:"numerator"`
	Denominator string `yaml:"denominator"`
}

// Config lists the variables feeding each feature family and the cleaning rules
// applied before aggregation.
type Config struct {
	StaticVars       []string           `yaml:"static_vars"`
	KeepVars         []string           `yaml:"keep_vars"`
	SeqVars          []string           `yaml:"seq_vars"`
	DayVars          []string           `yaml:"day_vars"`
	StayDense        []string           `yaml:"stay_dense"`
	StaySparse       []string           `yaml:"stay_sparse"`
	Reducer          string             `yaml:"reducer"`
	MissingSentinel  float64            `yaml:"missing_sentinel"`
	StaticClip       []string           `yaml:"static_clip"`
	StaticDefaults   map[string]float64 `yaml:"static_defaults"`
	DropStatic       []string           `yaml:"drop_static"`
	OneHotColumns    []string           `yaml:"one_hot_columns"`
	Ratio            Ratio              `yaml:"ratio"`
	SequenceInterval int                `yaml:"sequence_interval"`
	ModelName        string             `yaml:"model_name"`
}

// DefaultConfig reproduces the variable selection of the 2012 challenge model.
func DefaultConfig() Config {
	return Config{
		StaticVars: []string{"RecordID", "Age", "Gender", "Height", "ICUType"},
		KeepVars: []string{
			"GCS", "HR", "NIDiasABP", "NIMAP", "NISysABP", "Temp",
			"Urine", "HCT", "BUN", "Creatinine", "Glucose", "HCO3",
			"Mg", "Platelets", "K", "Na", "WBC", "pH", "PaCO2", "PaO2",
			"DiasABP", "FiO2", "MAP", "SysABP", "SaO2", "Albumin",
			"ALP", "ALT", "AST", "Bilirubin", "Lactate", "Weight",
		},
		SeqVars: []string{"HR", "Temp", "Urine"},
		DayVars: []string{"BUN", "Creatinine", "Glucose", "HCO3", "HCT", "K", "Mg", "Na", "Platelets", "WBC"},
		StayDense: []string{
			"DiasABP", "GCS", "MAP", "NIDiasABP", "NIMAP", "NISysABP",
			"PaCO2", "PaO2", "SysABP", "Weight", "pH",
		},
		StaySparse:       []string{"ALP", "ALT", "AST", "Albumin", "Bilirubin", "FiO2", "Lactate", "SaO2", "pao2_fio2_r"},
		Reducer:          string(events.DefaultReducer),
		MissingSentinel:  -1,
		StaticClip:       []string{"Age", "Height"},
		StaticDefaults:   map[string]float64{"Gender": 1},
		DropStatic:       []string{"RecordID"},
		OneHotColumns:    []string{"Gender", "ICUType"},
		Ratio:            Ratio{Name: "pao2_fio2_r", Numerator: "PaO2", Denominator: "FiO2"},
		SequenceInterval: 4,
		ModelName:        "mortality",
	}
}

// LoadConfig overlays the YAML file at path on DefaultConfig. An empty path
// returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, cfg.Validate()
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode pipeline config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// TimeVars are the pivoted time-series variables including the derived ratio.
func (c Config) TimeVars() []string {
	vars := append([]string(nil), c.KeepVars...)
	if c.Ratio.Name != "" {
		vars = append(vars, c.Ratio.Name)
	}
	return vars
}

// DayFeatureVars feed the per-day summaries.
func (c Config) DayFeatureVars() []string {
	return concat(c.DayVars, c.SeqVars)
}

// TrendVars feed the slope estimator.
func (c Config) TrendVars() []string {
	return concat(c.StayDense, c.DayVars, c.SeqVars)
}

func (c Config) Validate() error {
	if _, err := events.ParseReducer(c.Reducer); err != nil {
		return err
	}
	if len(c.StaticVars) == 0 {
		return fmt.Errorf("pipeline config: static_vars is empty")
	}
	if c.SequenceInterval <= 0 {
		return fmt.Errorf("pipeline config: sequence_interval must be positive")
	}
	if _, err := features.Bins(float64(c.SequenceInterval), features.Hour); err != nil {
		return fmt.Errorf("pipeline config: %w", err)
	}
	keep := set(c.KeepVars)
	if c.Ratio.Name != "" {
		if _, ok := keep[c.Ratio.Name]; ok {
			return fmt.Errorf("pipeline config: ratio name %s collides with a keep_vars entry", c.Ratio.Name)
		}
		if _, ok := keep[c.Ratio.Numerator]; !ok {
			return fmt.Errorf("pipeline config: ratio numerator %s not in keep_vars", c.Ratio.Numerator)
		}
		if _, ok := keep[c.Ratio.Denominator]; !ok {
			return fmt.Errorf("pipeline config: ratio denominator %s not in keep_vars", c.Ratio.Denominator)
		}
	}
	time := set(c.TimeVars())
	for name, vars := range map[string][]string{
		"seq_vars":    c.SeqVars,
		"day_vars":    c.DayVars,
		"stay_dense":  c.StayDense,
		"stay_sparse": c.StaySparse,
	} {
		for _, v := range vars {
			if _, ok := time[v]; !ok {
				return fmt.Errorf("pipeline config: %s entry %s is not a time-series variable", name, v)
			}
		}
	}
	static := set(c.StaticVars)
	for _, v := range concat(c.StaticClip, c.DropStatic) {
		if _, ok := static[v]; !ok {
			return fmt.Errorf("pipeline config: %s is not a static variable", v)
		}
	}
	for v := range c.StaticDefaults {
		if _, ok := static[v]; !ok {
			return fmt.Errorf("pipeline config: default for unknown static variable %s", v)
		}
	}
	dropped := set(c.DropStatic)
	for _, v := range c.OneHotColumns {
		if _, ok := static[v]; !ok {
			return fmt.Errorf("pipeline config: one-hot column %s is not a static variable", v)
		}
		if _, ok := dropped[v]; ok {
			return fmt.Errorf("pipeline config: one-hot column %s is dropped", v)
		}
	}
	return nil
}

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

func set(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}
