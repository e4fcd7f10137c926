package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lab-insight-server/internal/domain"
	"github.com/lab-insight-server/pkg/inference"
)

// fakeGateway records the prompt it receives and replies with a canned
// result.
type fakeGateway struct {
	prompt      string
	assessments []domain.AssessmentResult
	result      *domain.NormalizedAIResult
}

func (f *fakeGateway) Generate(_ context.Context, prompt string, assessments []domain.AssessmentResult) *domain.NormalizedAIResult {
	f.prompt = prompt
	f.assessments = assessments
	if f.result != nil {
		return f.result
	}
	return &domain.NormalizedAIResult{
		Explanations: []domain.Explanation{},
		ActionItems:  []string{},
		Questions:    []string{},
		Method:       domain.MethodLocalFallback,
	}
}

func TestNewAnalyzer(t *testing.T) {
	logger := testLogger()

	_, err := NewAnalyzer(domain.RangeTable{}, &fakeGateway{}, logger)
	require.ErrorIs(t, err, domain.ErrMissingRangeTable)

	_, err = NewAnalyzer(testRangeTable(), nil, logger)
	require.Error(t, err)

	analyzer, err := NewAnalyzer(testRangeTable(), &fakeGateway{}, logger)
	require.NoError(t, err)
	require.NotNil(t, analyzer)
}

func TestAnalyzer_AnalyzeInputValidation(t *testing.T) {
	analyzer, err := NewAnalyzer(testRangeTable(), &fakeGateway{}, testLogger())
	require.NoError(t, err)

	tests := []struct {
		name    string
		text    string
		patient domain.PatientMeta
		wantErr error
	}{
		{
			name:    "Empty report text",
			text:    "",
			patient: domain.PatientMeta{Age: 40, Sex: domain.SexMale},
			wantErr: domain.ErrEmptyReportText,
		},
		{
			name:    "Whitespace-only report text",
			text:    "  \n\t ",
			patient: domain.PatientMeta{Age: 40, Sex: domain.SexMale},
			wantErr: domain.ErrEmptyReportText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := analyzer.Analyze(context.Background(), tt.text, tt.patient)
			assert.Nil(t, report)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("Invalid patient metadata", func(t *testing.T) {
		report, err := analyzer.Analyze(context.Background(), "hemoglobin 8.9", domain.PatientMeta{Age: -1, Sex: domain.SexMale})
		assert.Nil(t, report)
		var verr *domain.ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}

func TestAnalyzer_AnalyzePipeline(t *testing.T) {
	gateway := &fakeGateway{
		result: &domain.NormalizedAIResult{
			Explanations: []domain.Explanation{
				{Key: "hemoglobin", Explanation: "Well below normal", Severity: domain.SeveritySevere},
			},
			ActionItems: []string{"See your clinician promptly"},
			Questions:   []string{"Do I need iron studies?"},
			Method:      domain.MethodRemoteSuccess,
		},
	}
	analyzer, err := NewAnalyzer(testRangeTable(), gateway, testLogger())
	require.NoError(t, err)

	text := "CBC panel. Hemoglobin: 8.9 g/dL. Glucose 85 mg/dL."
	patient := domain.PatientMeta{Age: 40, Sex: domain.SexMale}

	report, err := analyzer.Analyze(context.Background(), text, patient)
	require.NoError(t, err)
	require.NotNil(t, report)

	require.Len(t, report.Assessments, 2)
	assert.Equal(t, "hemoglobin", report.Assessments[0].Key)
	assert.Equal(t, domain.SeveritySevere, report.Assessments[0].Severity)
	assert.Equal(t, "glucose", report.Assessments[1].Key)
	assert.Equal(t, domain.SeverityNormal, report.Assessments[1].Severity)

	// The gateway saw a prompt built from exactly these assessments.
	assert.Equal(t, report.Assessments, gateway.assessments)
	assert.True(t, strings.HasPrefix(gateway.prompt, safetyPreamble))
	assert.Contains(t, gateway.prompt, "- hemoglobin: 8.9 g/dL")

	assert.Equal(t, domain.MethodRemoteSuccess, report.Result.Method)
	assert.Len(t, report.Result.Explanations, 1)
}

func TestAnalyzer_AnalyzeUnconfiguredGatewayEndToEnd(t *testing.T) {
	gateway := inference.NewClient(domain.InferenceConfig{}, testLogger())
	analyzer, err := NewAnalyzer(testRangeTable(), gateway, testLogger())
	require.NoError(t, err)

	report, err := analyzer.Analyze(context.Background(), "no lab values in this note", domain.PatientMeta{Age: 55, Sex: domain.SexMale})
	require.NoError(t, err)

	assert.Empty(t, report.Assessments)
	require.NotNil(t, report.Result)
	assert.Equal(t, domain.MethodLocalFallback, report.Result.Method)
	assert.Empty(t, report.Result.Explanations)
	assert.Empty(t, report.Result.ActionItems)
	assert.NotEmpty(t, report.Result.Questions)
}

func TestAnalyzer_AnalyzeNoRecognizableValues(t *testing.T) {
	gateway := &fakeGateway{}
	analyzer, err := NewAnalyzer(testRangeTable(), gateway, testLogger())
	require.NoError(t, err)

	report, err := analyzer.Analyze(context.Background(), "patient reports feeling tired lately", domain.PatientMeta{Age: 40, Sex: domain.SexFemale})
	require.NoError(t, err)

	assert.Empty(t, report.Assessments)
	assert.Contains(t, gateway.prompt, "no recognizable lab values")
	require.NotNil(t, report.Result)
	assert.Equal(t, domain.MethodLocalFallback, report.Result.Method)
}
