package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/lab-insight-server/internal/domain"
)

// LoadRangeTable loads the reference-range table from a YAML file, or
// returns the built-in default table when path is empty. The table is loaded
// once at process start and treated as immutable afterwards.
func LoadRangeTable(path string) (domain.RangeTable, error) {
	if path == "" {
		return DefaultRangeTable(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read range table %s: %w", path, err)
	}

	var file struct {
		Ranges map[string]domain.ReferenceRange `mapstructure:"ranges"`
	}
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal range table %s: %w", path, err)
	}

	if len(file.Ranges) == 0 {
		return nil, fmt.Errorf("range table %s: %w", path, domain.ErrMissingRangeTable)
	}

	return domain.RangeTable(file.Ranges), nil
}

func f(v float64) *float64 { return &v }

// DefaultRangeTable returns the built-in reference ranges. Platelet counts
// are expressed as 10^3/uL throughout, never raw counts; all severity
// cutoffs are ratios of the violated bound.
func DefaultRangeTable() domain.RangeTable {
	return domain.RangeTable{
		"hemoglobin": {
			Unit:      "g/dL",
			Low:       f(12.0),
			High:      f(17.5),
			Male:      &domain.Bounds{Low: f(13.8), High: f(17.2)},
			Female:    &domain.Bounds{Low: f(12.1), High: f(15.1)},
			BelowLow:  domain.RatioCutoffs{Moderate: 0.85, Severe: 0.70},
			AboveHigh: domain.RatioCutoffs{Moderate: 1.10, Severe: 1.20},
		},
		"wbc": {
			Unit:      "10^3/uL",
			Low:       f(4.5),
			High:      f(11.0),
			BelowLow:  domain.RatioCutoffs{Moderate: 0.70, Severe: 0.45},
			AboveHigh: domain.RatioCutoffs{Moderate: 1.80, Severe: 2.70},
		},
		"platelets": {
			Unit:      "10^3/uL",
			Low:       f(150),
			High:      f(450),
			BelowLow:  domain.RatioCutoffs{Moderate: 0.67, Severe: 0.34},
			AboveHigh: domain.RatioCutoffs{Moderate: 1.67, Severe: 2.23},
		},
		"glucose": {
			Unit:      "mg/dL",
			Low:       f(70),
			High:      f(99),
			BelowLow:  domain.RatioCutoffs{Moderate: 0.80, Severe: 0.65},
			AboveHigh: domain.RatioCutoffs{Moderate: 1.27, Severe: 1.82},
		},
		"creatinine": {
			Unit:      "mg/dL",
			Low:       f(0.6),
			High:      f(1.3),
			Male:      &domain.Bounds{Low: f(0.74), High: f(1.35)},
			Female:    &domain.Bounds{Low: f(0.59), High: f(1.04)},
			BelowLow:  domain.RatioCutoffs{Moderate: 0.50, Severe: 0.30},
			AboveHigh: domain.RatioCutoffs{Moderate: 1.50, Severe: 3.00},
		},
		"alt": {
			Unit:      "U/L",
			Low:       f(7),
			High:      f(56),
			BelowLow:  domain.RatioCutoffs{Moderate: 0.50, Severe: 0.25},
			AboveHigh: domain.RatioCutoffs{Moderate: 3.00, Severe: 10.00},
		},
		// ESR has no clinically meaningful lower bound.
		"esr": {
			Unit:      "mm/hr",
			High:      f(20),
			Male:      &domain.Bounds{High: f(15)},
			Female:    &domain.Bounds{High: f(20)},
			AboveHigh: domain.RatioCutoffs{Moderate: 2.50, Severe: 5.00},
		},
	}
}
