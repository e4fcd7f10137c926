package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/lab-insight-server/internal/domain"
)

// InferenceGateway produces a normalized explanation result for a prompt.
// Implementations must never return an error: every failure mode terminates
// in a well-formed result distinguished only by its method tag.
type InferenceGateway interface {
	Generate(ctx context.Context, prompt string, assessments []domain.AssessmentResult) *domain.NormalizedAIResult
}

// Analyzer is the single function boundary the surrounding application
// depends on: it runs extraction, assessment, prompt construction and the
// inference gateway end to end for one report.
type Analyzer struct {
	extractor *ValueExtractor
	assessor  *SeverityAssessor
	prompts   *PromptBuilder
	gateway   InferenceGateway
	logger    *logrus.Logger
}

// NewAnalyzer wires the analysis pipeline over an immutable range table.
func NewAnalyzer(table domain.RangeTable, gateway InferenceGateway, logger *logrus.Logger) (*Analyzer, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("analyzer: %w", domain.ErrMissingRangeTable)
	}
	if gateway == nil {
		return nil, fmt.Errorf("analyzer: inference gateway is required")
	}

	return &Analyzer{
		extractor: NewValueExtractor(logger),
		assessor:  NewSeverityAssessor(table, logger),
		prompts:   NewPromptBuilder(),
		gateway:   gateway,
		logger:    logger,
	}, nil
}

// Analyze processes one report end to end. Only malformed caller input is an
// error; everything downstream degrades into the most informative still-valid
// result.
func (a *Analyzer) Analyze(ctx context.Context, rawText string, patient domain.PatientMeta) (*domain.AnalysisReport, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, fmt.Errorf("analyze: %w", domain.ErrEmptyReportText)
	}
	if err := patient.Validate(); err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	observations := a.extractor.Extract(rawText)
	assessments := a.assessor.AssessAll(observations, patient)
	prompt := a.prompts.Build(domain.PromptContext{Patient: patient, Assessments: assessments})

	result := a.gateway.Generate(ctx, prompt, assessments)

	a.logger.WithFields(logrus.Fields{
		"observations": len(observations),
		"assessments":  len(assessments),
		"method":       result.Method.String(),
	}).Info("Completed report analysis")

	return &domain.AnalysisReport{
		Assessments: assessments,
		Result:      result,
	}, nil
}
