package domain

import (
	"fmt"
	"strings"
)

// PatientMeta carries the patient metadata the analysis pipeline consumes.
// The surrounding application owns identity; the core only needs age and sex.
type PatientMeta struct {
	Age int `json:"age"`
	Sex Sex `json:"sex"`
}

// Validate ensures the patient metadata is usable for assessment.
func (p *PatientMeta) Validate() error {
	if p.Age < 0 || p.Age > 150 {
		return NewValidationError("age", "must be between 0 and 150", p.Age)
	}
	if p.Sex == "" {
		return NewValidationError("sex", "is required (use unspecified when unknown)", p.Sex)
	}
	if !p.Sex.IsValid() {
		return NewValidationError("sex", "must be one of male, female, unspecified", p.Sex)
	}
	return nil
}

// Observation is a single named numeric value extracted from report text.
// Immutable once created; at most one per analyte per input text.
type Observation struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// Bounds holds the low/high limits of a normal range. Either side may be
// absent for analytes defined with a single bound.
type Bounds struct {
	Low  *float64 `json:"low,omitempty"`
	High *float64 `json:"high,omitempty"`
}

// RatioCutoffs defines the per-direction severity boundaries as multipliers
// of the violated normal bound. Any out-of-range value is at least mild; it
// becomes moderate or severe once the ratio crosses the configured cutoff.
//
// For the low direction the ratio is value/normalLow and cutoffs descend
// below 1.0 (e.g. moderate 0.85, severe 0.70). For the high direction the
// ratio is value/normalHigh and cutoffs ascend above 1.0.
type RatioCutoffs struct {
	Moderate float64 `json:"moderate" mapstructure:"moderate"`
	Severe   float64 `json:"severe" mapstructure:"severe"`
}

// ReferenceRange is the configured normal range and severity policy for one
// analyte. Read-only at runtime.
type ReferenceRange struct {
	Unit string `json:"unit" mapstructure:"unit"`

	// Generic bounds, used when no sex-specific override applies.
	Low  *float64 `json:"low,omitempty" mapstructure:"low"`
	High *float64 `json:"high,omitempty" mapstructure:"high"`

	// Sex-specific overrides.
	Male   *Bounds `json:"male,omitempty" mapstructure:"male"`
	Female *Bounds `json:"female,omitempty" mapstructure:"female"`

	// Severity ratio cutoffs per direction.
	BelowLow  RatioCutoffs `json:"below_low" mapstructure:"below_low"`
	AboveHigh RatioCutoffs `json:"above_high" mapstructure:"above_high"`
}

// BoundsFor resolves the effective bounds for a patient sex, falling back to
// the generic bounds when no override is defined.
func (r *ReferenceRange) BoundsFor(sex Sex) (low, high *float64) {
	var override *Bounds
	switch sex {
	case SexMale:
		override = r.Male
	case SexFemale:
		override = r.Female
	}

	low, high = r.Low, r.High
	if override != nil {
		if override.Low != nil {
			low = override.Low
		}
		if override.High != nil {
			high = override.High
		}
	}
	return low, high
}

// RangeTable maps analyte keys to their reference ranges. Loaded once at
// process start and treated as immutable configuration.
type RangeTable map[string]ReferenceRange

// NormalRange is the resolved normal range reported alongside an assessment.
type NormalRange struct {
	Low  *float64 `json:"low,omitempty"`
	High *float64 `json:"high,omitempty"`
}

// String formats the range for prompts and narratives, tolerating a missing
// bound on either side.
func (nr NormalRange) String() string {
	switch {
	case nr.Low != nil && nr.High != nil:
		return fmt.Sprintf("%g-%g", *nr.Low, *nr.High)
	case nr.Low != nil:
		return fmt.Sprintf(">= %g", *nr.Low)
	case nr.High != nil:
		return fmt.Sprintf("<= %g", *nr.High)
	default:
		return "not established"
	}
}

// AssessmentResult is the deterministic classification of one observation
// against its reference range for a given patient sex.
type AssessmentResult struct {
	Key         string      `json:"key"`
	Value       float64     `json:"value"`
	Unit        string      `json:"unit,omitempty"`
	NormalRange NormalRange `json:"normal_range"`
	Status      Status      `json:"status"`
	Severity    Severity    `json:"severity"`
}

// PromptContext bundles everything the prompt builder renders. Built once
// per analysis and discarded after the instruction document is produced.
type PromptContext struct {
	Patient     PatientMeta
	Assessments []AssessmentResult
}

// Explanation is one patient-facing explanation of an assessed analyte.
type Explanation struct {
	Key         string   `json:"key"`
	Explanation string   `json:"explanation"`
	Severity    Severity `json:"severity"`
}

// NormalizedAIResult is the single canonical shape every upstream response
// (or failure) is folded into. ResultMerger consumes only this structure and
// never inspects raw upstream payloads.
type NormalizedAIResult struct {
	Explanations []Explanation `json:"explanations"`
	ActionItems  []string      `json:"action_items"`
	Questions    []string      `json:"questions"`
	Method       ResultMethod  `json:"method"`
}

// IsEmpty reports whether the result carries nothing to surface to the
// patient.
func (r *NormalizedAIResult) IsEmpty() bool {
	return r == nil ||
		(len(r.Explanations) == 0 && len(r.ActionItems) == 0 && len(r.Questions) == 0)
}

// Analysis is the narrative document the merger folds AI insights into.
// Findings and Recommendations are free text owned by the wider report flow.
type Analysis struct {
	Findings        string `json:"findings"`
	Recommendations string `json:"recommendations"`
}

// AnalysisReport is what the core analysis entry point returns: the
// deterministic assessments plus the normalized AI result.
type AnalysisReport struct {
	Assessments []AssessmentResult  `json:"assessments"`
	Result      *NormalizedAIResult `json:"result"`
}

// NormalizeReportText lower-cases and whitespace-collapses raw report text
// into the canonical form the value extractor operates on. Idempotent.
func NormalizeReportText(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), " ")
}
