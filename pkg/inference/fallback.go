package inference

import (
	"fmt"

	"github.com/lab-insight-server/internal/domain"
)

// localFallback synthesizes a result directly from the assessments when the
// service is unconfigured or every remote attempt failed: a templated
// explanation per item, an urgent action item for every severe entry and a
// single generic follow-up question.
func localFallback(assessments []domain.AssessmentResult) *domain.NormalizedAIResult {
	explanations := make([]domain.Explanation, 0, len(assessments))
	actionItems := []string{}

	for _, as := range assessments {
		explanations = append(explanations, domain.Explanation{
			Key:         as.Key,
			Explanation: templatedExplanation(as),
			Severity:    as.Severity,
		})

		if as.Severity == domain.SeveritySevere {
			actionItems = append(actionItems,
				fmt.Sprintf("Urgent: contact your healthcare provider promptly about your %s result", as.Key))
		}
	}

	return &domain.NormalizedAIResult{
		Explanations: explanations,
		ActionItems:  actionItems,
		Questions:    []string{"Which of these results should I follow up on, and when should I be re-tested?"},
		Method:       domain.MethodLocalFallback,
	}
}

// templatedExplanation renders one assessment into plain language without
// any generative help.
func templatedExplanation(as domain.AssessmentResult) string {
	switch as.Status {
	case domain.StatusLow:
		return fmt.Sprintf("Your %s is %g %s, which is below the normal range of %s %s. Discuss this result with your clinician.",
			as.Key, as.Value, as.Unit, as.NormalRange.String(), as.Unit)
	case domain.StatusHigh:
		return fmt.Sprintf("Your %s is %g %s, which is above the normal range of %s %s. Discuss this result with your clinician.",
			as.Key, as.Value, as.Unit, as.NormalRange.String(), as.Unit)
	case domain.StatusUnknown:
		return fmt.Sprintf("Your %s was measured at %g, but no reference range is available to interpret it.",
			as.Key, as.Value)
	default:
		return fmt.Sprintf("Your %s is %g %s, within the normal range of %s %s.",
			as.Key, as.Value, as.Unit, as.NormalRange.String(), as.Unit)
	}
}
