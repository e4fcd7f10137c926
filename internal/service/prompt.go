package service

import (
	"fmt"
	"strings"

	"github.com/lab-insight-server/internal/domain"
)

// safetyPreamble forbids definitive diagnosis and requires escalation
// language for non-normal results. It leads every instruction document.
const safetyPreamble = `You are a medical information assistant helping a patient understand their lab report. You must not provide a definitive diagnosis or claim certainty about any medical condition. For every result that is not normal, tell the patient to discuss it with their clinician. For moderate or severe results, use clear escalation language and advise prompt medical attention.`

// PromptBuilder renders assessed observations and patient metadata into the
// structured instruction document sent to the inference service. Pure
// function over its inputs, no I/O.
type PromptBuilder struct{}

// NewPromptBuilder creates a prompt builder.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// Build produces the instruction document: safety preamble, patient
// metadata, one line per assessment, the task list and the mandatory output
// schema.
func (b *PromptBuilder) Build(pc domain.PromptContext) string {
	var sb strings.Builder

	sb.WriteString(safetyPreamble)
	sb.WriteString("\n\n")

	sb.WriteString("Patient:\n")
	fmt.Fprintf(&sb, "- age: %d\n", pc.Patient.Age)
	fmt.Fprintf(&sb, "- sex: %s\n", pc.Patient.Sex)
	sb.WriteString("\n")

	sb.WriteString("Lab results:\n")
	if len(pc.Assessments) == 0 {
		sb.WriteString("- no recognizable lab values were extracted from this report\n")
	}
	for _, as := range pc.Assessments {
		fmt.Fprintf(&sb, "- %s: %g %s (normal range %s %s) status: %s, severity: %s\n",
			as.Key, as.Value, as.Unit, as.NormalRange.String(), as.Unit, as.Status, as.Severity)
	}
	sb.WriteString("\n")

	sb.WriteString("Tasks:\n")
	sb.WriteString("1. Explain each lab result above in plain language the patient can understand.\n")
	sb.WriteString("2. For every result with moderate or severe severity, mark it as urgent and give two immediate actions the patient should take.\n")
	sb.WriteString("3. Suggest three follow-up questions the patient should ask their clinician.\n")
	sb.WriteString("\n")

	sb.WriteString("Output format (mandatory): respond with a single JSON object with exactly these three fields:\n")
	sb.WriteString(`{"explanations": [{"key": "<analyte>", "explanation": "<plain language>", "severity": "<normal|mild|moderate|severe>"}], "action_items": ["<action>"], "questions": ["<question>"]}`)
	sb.WriteString("\nDo not wrap the JSON in Markdown fences and do not add any text outside the object.\n")

	return sb.String()
}
