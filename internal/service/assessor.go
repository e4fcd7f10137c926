package service

import (
	"github.com/sirupsen/logrus"

	"github.com/lab-insight-server/internal/domain"
)

// SeverityAssessor classifies observed values against the configured
// reference-range table. The assessment is pure and total: unknown analytes
// and missing bounds degrade to an unknown or normal classification instead
// of erroring.
type SeverityAssessor struct {
	logger *logrus.Logger
	table  domain.RangeTable
}

// NewSeverityAssessor creates an assessor over an immutable range table.
func NewSeverityAssessor(table domain.RangeTable, logger *logrus.Logger) *SeverityAssessor {
	return &SeverityAssessor{
		logger: logger,
		table:  table,
	}
}

// Assess classifies a single observation for the given patient.
//
// Direction policy: when the analyte defines both bounds and the value sits
// below the resolved low bound it is graded as lower-is-bad on the ratio
// value/low; otherwise it is graded against the high bound as higher-is-bad
// on the ratio value/high. Cutoffs are per-analyte configuration.
func (a *SeverityAssessor) Assess(key string, value float64, patient domain.PatientMeta) domain.AssessmentResult {
	rr, ok := a.table[key]
	if !ok {
		// No reference range configured: no numeric classification.
		return domain.AssessmentResult{
			Key:      key,
			Value:    value,
			Status:   domain.StatusUnknown,
			Severity: domain.SeverityUnknown,
		}
	}

	low, high := rr.BoundsFor(patient.Sex)

	result := domain.AssessmentResult{
		Key:         key,
		Value:       value,
		Unit:        rr.Unit,
		NormalRange: domain.NormalRange{Low: low, High: high},
		Status:      domain.StatusNormal,
		Severity:    domain.SeverityNormal,
	}

	switch {
	case low != nil && high != nil && *low > 0 && value < *low:
		result.Status = domain.StatusLow
		result.Severity = gradeBelow(value / *low, rr.BelowLow)
	case high != nil && *high > 0 && value > *high:
		result.Status = domain.StatusHigh
		result.Severity = gradeAbove(value / *high, rr.AboveHigh)
	}

	return result
}

// AssessAll classifies every observation, preserving extraction order.
func (a *SeverityAssessor) AssessAll(observations []domain.Observation, patient domain.PatientMeta) []domain.AssessmentResult {
	results := make([]domain.AssessmentResult, 0, len(observations))
	abnormal := 0

	for _, obs := range observations {
		result := a.Assess(obs.Key, obs.Value, patient)
		if result.Status != domain.StatusNormal && result.Status != domain.StatusUnknown {
			abnormal++
		}
		results = append(results, result)
	}

	a.logger.WithFields(logrus.Fields{
		"assessed": len(results),
		"abnormal": abnormal,
		"sex":      patient.Sex.String(),
	}).Info("Completed severity assessment")

	return results
}

// gradeBelow grades a lower-is-bad ratio (value/low, below 1.0) against
// descending cutoffs.
func gradeBelow(ratio float64, cutoffs domain.RatioCutoffs) domain.Severity {
	switch {
	case cutoffs.Severe > 0 && ratio < cutoffs.Severe:
		return domain.SeveritySevere
	case cutoffs.Moderate > 0 && ratio < cutoffs.Moderate:
		return domain.SeverityModerate
	default:
		return domain.SeverityMild
	}
}

// gradeAbove grades a higher-is-bad ratio (value/high, above 1.0) against
// ascending cutoffs.
func gradeAbove(ratio float64, cutoffs domain.RatioCutoffs) domain.Severity {
	switch {
	case cutoffs.Severe > 0 && ratio > cutoffs.Severe:
		return domain.SeveritySevere
	case cutoffs.Moderate > 0 && ratio > cutoffs.Moderate:
		return domain.SeverityModerate
	default:
		return domain.SeverityMild
	}
}
