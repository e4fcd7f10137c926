// Package service implements the lab report analysis pipeline: value
// extraction, severity assessment, prompt construction and result merging.
package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/lab-insight-server/internal/domain"
)

// numberPattern matches a numeric literal with optional thousands-separator
// commas (any grouping, so 12,400 and 1,50,000 both match) and an optional
// decimal part.
const numberPattern = `([0-9]+(?:,[0-9]+)*(?:\.[0-9]+)?)`

// analyteDef describes how one analyte is located in normalized report text.
type analyteDef struct {
	key      string
	synonyms []string

	// Values at or above rescaleAbove are raw per-uL counts and are folded
	// into the canonical 10^3/uL unit. Zero disables rescaling.
	rescaleAbove float64

	pattern *regexp.Regexp
}

// ValueExtractor maps raw report text to named numeric observations using a
// tolerant regex per analyte. Extraction has no side effects and is
// idempotent for identical input.
type ValueExtractor struct {
	logger   *logrus.Logger
	analytes []analyteDef
}

// NewValueExtractor creates an extractor for the built-in analyte set.
func NewValueExtractor(logger *logrus.Logger) *ValueExtractor {
	e := &ValueExtractor{logger: logger}

	// Order matters: it fixes the ordering of observations and therefore
	// of the assessment lines rendered into the prompt.
	e.addAnalyte("hemoglobin", []string{"hemoglobin", "haemoglobin", "hgb", "hb"}, 0)
	e.addAnalyte("wbc", []string{"total leukocyte count", "white blood cell count", "white blood cells", "leukocytes", "wbc count", "wbc", "tlc"}, 500)
	e.addAnalyte("platelets", []string{"platelet count", "platelets", "plt"}, 5000)
	e.addAnalyte("glucose", []string{"fasting blood sugar", "fasting glucose", "blood glucose", "glucose", "fbs"}, 0)
	e.addAnalyte("creatinine", []string{"serum creatinine", "creatinine"}, 0)
	e.addAnalyte("alt", []string{"alanine aminotransferase", "sgpt", "alt"}, 0)
	e.addAnalyte("esr", []string{"erythrocyte sedimentation rate", "esr"}, 0)

	return e
}

// addAnalyte compiles the tolerant pattern for one analyte: any synonym,
// then up to 20 non-digit characters (punctuation, units of the previous
// value, whitespace), then the first numeric literal.
func (e *ValueExtractor) addAnalyte(key string, synonyms []string, rescaleAbove float64) {
	quoted := make([]string, 0, len(synonyms))
	for _, s := range synonyms {
		quoted = append(quoted, regexp.QuoteMeta(strings.ToLower(s)))
	}

	expr := fmt.Sprintf(`\b(?:%s)\b[^0-9]{0,20}?%s`, strings.Join(quoted, "|"), numberPattern)

	e.analytes = append(e.analytes, analyteDef{
		key:          key,
		synonyms:     synonyms,
		rescaleAbove: rescaleAbove,
		pattern:      regexp.MustCompile(expr),
	})
}

// Extract parses all recognizable analyte values out of the report text.
// The first match per analyte wins; analytes with no match are simply absent
// from the output, never nil or NaN.
func (e *ValueExtractor) Extract(rawText string) []domain.Observation {
	text := domain.NormalizeReportText(rawText)

	observations := make([]domain.Observation, 0, len(e.analytes))
	for _, def := range e.analytes {
		match := def.pattern.FindStringSubmatch(text)
		if len(match) < 2 {
			continue
		}

		literal := strings.ReplaceAll(match[1], ",", "")
		value, err := strconv.ParseFloat(literal, 64)
		if err != nil {
			e.logger.WithFields(logrus.Fields{
				"analyte": def.key,
				"literal": match[1],
			}).Warn("Failed to parse matched numeric literal")
			continue
		}

		if def.rescaleAbove > 0 && value >= def.rescaleAbove {
			value = value / 1000
		}

		observations = append(observations, domain.Observation{Key: def.key, Value: value})
	}

	e.logger.WithFields(logrus.Fields{
		"text_length":  len(text),
		"observations": len(observations),
	}).Debug("Completed value extraction")

	return observations
}
