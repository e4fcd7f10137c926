package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lab-insight-server/internal/domain"
)

func fp(v float64) *float64 { return &v }

func testRangeTable() domain.RangeTable {
	return domain.RangeTable{
		"hemoglobin": {
			Unit:      "g/dL",
			Low:       fp(12.0),
			High:      fp(17.5),
			Male:      &domain.Bounds{Low: fp(13.8), High: fp(17.2)},
			Female:    &domain.Bounds{Low: fp(12.1), High: fp(15.1)},
			BelowLow:  domain.RatioCutoffs{Moderate: 0.85, Severe: 0.70},
			AboveHigh: domain.RatioCutoffs{Moderate: 1.10, Severe: 1.20},
		},
		"glucose": {
			Unit:      "mg/dL",
			Low:       fp(70),
			High:      fp(99),
			BelowLow:  domain.RatioCutoffs{Moderate: 0.80, Severe: 0.65},
			AboveHigh: domain.RatioCutoffs{Moderate: 1.27, Severe: 1.82},
		},
		"esr": {
			Unit:      "mm/hr",
			High:      fp(20),
			Male:      &domain.Bounds{High: fp(15)},
			AboveHigh: domain.RatioCutoffs{Moderate: 2.50, Severe: 5.00},
		},
	}
}

func TestSeverityAssessor_Assess(t *testing.T) {
	assessor := NewSeverityAssessor(testRangeTable(), testLogger())

	tests := []struct {
		name         string
		key          string
		value        float64
		patient      domain.PatientMeta
		wantStatus   domain.Status
		wantSeverity domain.Severity
	}{
		{
			// ratio 8.9/13.8 = 0.645, below the severe cutoff
			name: "Severely low hemoglobin for male",
			key:  "hemoglobin", value: 8.9,
			patient:    domain.PatientMeta{Age: 40, Sex: domain.SexMale},
			wantStatus: domain.StatusLow, wantSeverity: domain.SeveritySevere,
		},
		{
			// ratio 12.5/13.8 = 0.906, above the moderate cutoff
			name: "Mildly low hemoglobin for male",
			key:  "hemoglobin", value: 12.5,
			patient:    domain.PatientMeta{Age: 40, Sex: domain.SexMale},
			wantStatus: domain.StatusLow, wantSeverity: domain.SeverityMild,
		},
		{
			// Same value is normal against the female bounds.
			name: "Sex-specific bounds resolve differently",
			key:  "hemoglobin", value: 12.5,
			patient:    domain.PatientMeta{Age: 40, Sex: domain.SexFemale},
			wantStatus: domain.StatusNormal, wantSeverity: domain.SeverityNormal,
		},
		{
			name: "Unspecified sex falls back to generic bounds",
			key:  "hemoglobin", value: 12.5,
			patient:    domain.PatientMeta{Age: 40, Sex: domain.SexUnspecified},
			wantStatus: domain.StatusNormal, wantSeverity: domain.SeverityNormal,
		},
		{
			// ratio 200/99 = 2.02, above the severe cutoff
			name: "Severely high glucose",
			key:  "glucose", value: 200,
			patient:    domain.PatientMeta{Age: 55, Sex: domain.SexFemale},
			wantStatus: domain.StatusHigh, wantSeverity: domain.SeveritySevere,
		},
		{
			// ratio 130/99 = 1.31, between moderate and severe
			name: "Moderately high glucose",
			key:  "glucose", value: 130,
			patient:    domain.PatientMeta{Age: 55, Sex: domain.SexFemale},
			wantStatus: domain.StatusHigh, wantSeverity: domain.SeverityModerate,
		},
		{
			name: "Value on the low bound is normal",
			key:  "glucose", value: 70,
			patient:    domain.PatientMeta{Age: 55, Sex: domain.SexFemale},
			wantStatus: domain.StatusNormal, wantSeverity: domain.SeverityNormal,
		},
		{
			name: "Value on the high bound is normal",
			key:  "glucose", value: 99,
			patient:    domain.PatientMeta{Age: 55, Sex: domain.SexFemale},
			wantStatus: domain.StatusNormal, wantSeverity: domain.SeverityNormal,
		},
		{
			// ESR has no lower bound; a small value stays normal.
			name: "Single-bound analyte below range is normal",
			key:  "esr", value: 2,
			patient:    domain.PatientMeta{Age: 30, Sex: domain.SexMale},
			wantStatus: domain.StatusNormal, wantSeverity: domain.SeverityNormal,
		},
		{
			// ratio 60/15 = 4.0 against the male override
			name: "Single-bound analyte graded against sex override",
			key:  "esr", value: 60,
			patient:    domain.PatientMeta{Age: 30, Sex: domain.SexMale},
			wantStatus: domain.StatusHigh, wantSeverity: domain.SeverityModerate,
		},
		{
			name: "Unknown analyte degrades to unknown",
			key:  "troponin", value: 0.6,
			patient:    domain.PatientMeta{Age: 30, Sex: domain.SexMale},
			wantStatus: domain.StatusUnknown, wantSeverity: domain.SeverityUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := assessor.Assess(tt.key, tt.value, tt.patient)

			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, tt.wantSeverity, result.Severity)
			assert.Equal(t, tt.key, result.Key)
			assert.Equal(t, tt.value, result.Value)
			assert.True(t, result.Status.IsValid())
			assert.True(t, result.Severity.IsValid())
		})
	}
}

func TestSeverityAssessor_InRangeValuesAreNormal(t *testing.T) {
	assessor := NewSeverityAssessor(testRangeTable(), testLogger())
	patient := domain.PatientMeta{Age: 40, Sex: domain.SexFemale}

	// Sweep the whole normal glucose range.
	for v := 70.0; v <= 99.0; v += 0.5 {
		result := assessor.Assess("glucose", v, patient)
		require.Equal(t, domain.StatusNormal, result.Status, "value %g", v)
		require.Equal(t, domain.SeverityNormal, result.Severity, "value %g", v)
	}
}

func TestSeverityAssessor_MonotonicBelowLow(t *testing.T) {
	assessor := NewSeverityAssessor(testRangeTable(), testLogger())
	patient := domain.PatientMeta{Age: 40, Sex: domain.SexMale}

	// Severity badness must not improve as the value drops further below
	// the low bound.
	prevRank := domain.SeverityNormal.Rank()
	for v := 13.8; v > 0; v -= 0.1 {
		result := assessor.Assess("hemoglobin", v, patient)
		rank := result.Severity.Rank()
		if rank < prevRank {
			t.Fatalf("severity improved from rank %d to %d at value %g", prevRank, rank, v)
		}
		prevRank = rank
	}
}

func TestSeverityAssessor_AssessAllPreservesOrder(t *testing.T) {
	assessor := NewSeverityAssessor(testRangeTable(), testLogger())
	patient := domain.PatientMeta{Age: 40, Sex: domain.SexMale}

	observations := []domain.Observation{
		{Key: "hemoglobin", Value: 8.9},
		{Key: "glucose", Value: 85},
		{Key: "troponin", Value: 0.6},
	}

	results := assessor.AssessAll(observations, patient)
	require.Len(t, results, 3)
	assert.Equal(t, "hemoglobin", results[0].Key)
	assert.Equal(t, "glucose", results[1].Key)
	assert.Equal(t, "troponin", results[2].Key)
	assert.Equal(t, domain.SeverityUnknown, results[2].Severity)
}
