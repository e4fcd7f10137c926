// Package domain contains the core business entities for lab report analysis:
// extracted observations, reference ranges, severity assessment results and
// the normalized output of the AI explanation service.
//
// Severity grading follows the configured per-analyte reference ranges; this
// package never hard-codes clinical thresholds.
package domain

import "errors"

// Status represents the direction of an observed value relative to its
// reference range.
type Status string

const (
	StatusNormal  Status = "normal"
	StatusLow     Status = "low"
	StatusHigh    Status = "high"
	StatusUnknown Status = "unknown"
)

// Severity represents how far an observed value deviates from the normal
// boundary of its reference range. UNKNOWN is reserved for analytes without
// a configured reference range.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
	SeverityUnknown  Severity = "unknown"
)

// Sex identifies the patient sex used to resolve sex-specific reference
// bounds. Unspecified falls back to the analyte's generic bounds.
type Sex string

const (
	SexMale        Sex = "male"
	SexFemale      Sex = "female"
	SexUnspecified Sex = "unspecified"
)

// ResultMethod tags the provenance of a NormalizedAIResult so downstream
// consumers can distinguish a parsed remote answer from a degraded one.
type ResultMethod string

const (
	MethodRemoteSuccess ResultMethod = "remote-success"
	MethodRemoteOpaque  ResultMethod = "remote-opaque"
	MethodLocalFallback ResultMethod = "local-fallback"
)

// Validation errors for analysis data integrity
var (
	ErrInvalidStatus   = errors.New("invalid observation status")
	ErrInvalidSeverity = errors.New("invalid severity classification")
	ErrInvalidSex      = errors.New("invalid patient sex")
	ErrInvalidMethod   = errors.New("invalid result method")
)

// IsValid validates the status value.
func (s Status) IsValid() bool {
	switch s {
	case StatusNormal, StatusLow, StatusHigh, StatusUnknown:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid validates the severity classification.
// Only valid classifications may enter patient-facing output.
func (sv Severity) IsValid() bool {
	switch sv {
	case SeverityNormal, SeverityMild, SeverityModerate, SeveritySevere, SeverityUnknown:
		return true
	default:
		return false
	}
}

// String returns the string representation of the severity.
func (sv Severity) String() string {
	return string(sv)
}

// Rank returns the badness ordering of a severity so callers can compare
// classifications. Higher is worse. Unknown ranks below normal because it
// carries no clinical signal.
func (sv Severity) Rank() int {
	switch sv {
	case SeverityMild:
		return 1
	case SeverityModerate:
		return 2
	case SeveritySevere:
		return 3
	case SeverityNormal:
		return 0
	default:
		return -1
	}
}

// RequiresEscalation reports whether the classification must carry
// escalation language in patient-facing output.
func (sv Severity) RequiresEscalation() bool {
	return sv == SeverityModerate || sv == SeveritySevere
}

// LogFields returns structured logging fields for audit trails.
func (sv Severity) LogFields() map[string]any {
	return map[string]any{
		"severity":            string(sv),
		"severity_rank":       sv.Rank(),
		"requires_escalation": sv.RequiresEscalation(),
		"is_valid":            sv.IsValid(),
	}
}

// ParseSeverity maps free-form severity text (as returned by the AI service)
// onto a valid Severity, degrading to unknown rather than erroring.
func ParseSeverity(s string) Severity {
	switch Severity(s) {
	case SeverityNormal, SeverityMild, SeverityModerate, SeveritySevere:
		return Severity(s)
	default:
		return SeverityUnknown
	}
}

// IsValid validates the patient sex value.
func (sx Sex) IsValid() bool {
	switch sx {
	case SexMale, SexFemale, SexUnspecified:
		return true
	default:
		return false
	}
}

// String returns the string representation of the sex.
func (sx Sex) String() string {
	return string(sx)
}

// IsValid validates the result method tag.
func (m ResultMethod) IsValid() bool {
	switch m {
	case MethodRemoteSuccess, MethodRemoteOpaque, MethodLocalFallback:
		return true
	default:
		return false
	}
}

// String returns the string representation of the result method.
func (m ResultMethod) String() string {
	return string(m)
}
