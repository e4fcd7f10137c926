package service

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/lab-insight-server/internal/domain"
)

// Section markers guarding against duplicate insertion when an analysis is
// recomputed over an already-merged narrative.
const (
	insightsMarker = "=== Lab value insights ==="
	actionsMarker  = "=== Suggested next steps ==="
)

// ResultMerger folds a normalized AI result back into a previously computed
// narrative. It consumes only NormalizedAIResult and never inspects raw
// upstream payloads.
type ResultMerger struct {
	logger *logrus.Logger
}

// NewResultMerger creates a result merger.
func NewResultMerger(logger *logrus.Logger) *ResultMerger {
	return &ResultMerger{logger: logger}
}

// Merge appends the lab-insights section to the findings and the action
// items to the recommendations, each only when its marker is not already
// present. Applying Merge twice yields the same narrative as applying it
// once.
func (m *ResultMerger) Merge(base domain.Analysis, result *domain.NormalizedAIResult) domain.Analysis {
	if result == nil {
		return base
	}

	merged := base

	if len(result.Explanations) > 0 && !strings.Contains(merged.Findings, insightsMarker) {
		var sb strings.Builder
		if merged.Findings != "" {
			sb.WriteString(merged.Findings)
			sb.WriteString("\n\n")
		}
		sb.WriteString(insightsMarker)
		for _, ex := range result.Explanations {
			fmt.Fprintf(&sb, "\n- %s: %s (severity: %s)", ex.Key, ex.Explanation, ex.Severity)
		}
		merged.Findings = sb.String()
	}

	if len(result.ActionItems) > 0 && !strings.Contains(merged.Recommendations, actionsMarker) {
		var sb strings.Builder
		if merged.Recommendations != "" {
			sb.WriteString(merged.Recommendations)
			sb.WriteString("\n\n")
		}
		sb.WriteString(actionsMarker)
		for _, item := range result.ActionItems {
			fmt.Fprintf(&sb, "\n- %s", item)
		}
		merged.Recommendations = sb.String()
	}

	m.logger.WithFields(logrus.Fields{
		"method":       result.Method.String(),
		"explanations": len(result.Explanations),
		"action_items": len(result.ActionItems),
	}).Debug("Merged AI result into analysis")

	return merged
}

// Narrative flattens the result into patient-facing prose: one sentence per
// explanation, then a consolidated actions sentence and a consolidated
// questions sentence. Returns the empty string when there is nothing to
// report.
func (m *ResultMerger) Narrative(result *domain.NormalizedAIResult) string {
	if result.IsEmpty() {
		return ""
	}

	var parts []string
	for _, ex := range result.Explanations {
		parts = append(parts, fmt.Sprintf("%s: %s (severity: %s).", ex.Key, strings.TrimRight(ex.Explanation, "."), ex.Severity))
	}
	if len(result.ActionItems) > 0 {
		parts = append(parts, fmt.Sprintf("Suggested actions: %s.", strings.Join(result.ActionItems, "; ")))
	}
	if len(result.Questions) > 0 {
		parts = append(parts, fmt.Sprintf("Questions for your clinician: %s", strings.Join(result.Questions, " ")))
	}

	return strings.Join(parts, " ")
}
