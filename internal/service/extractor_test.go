package service

import (
	"io"
	"reflect"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/lab-insight-server/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestValueExtractor_Extract(t *testing.T) {
	extractor := NewValueExtractor(testLogger())

	tests := []struct {
		name string
		text string
		want []domain.Observation
	}{
		{
			name: "Single analyte with unit",
			text: "Hemoglobin: 8.9 g/dL",
			want: []domain.Observation{{Key: "hemoglobin", Value: 8.9}},
		},
		{
			name: "Synonym match",
			text: "HGB 10.2",
			want: []domain.Observation{{Key: "hemoglobin", Value: 10.2}},
		},
		{
			name: "Thousands separators stripped and counts rescaled",
			text: "Platelet count: 1,50,000 /uL\nWBC count: 12,400",
			want: []domain.Observation{
				{Key: "wbc", Value: 12.4},
				{Key: "platelets", Value: 150},
			},
		},
		{
			name: "Counts already in thousands are kept",
			text: "wbc 5.5 platelets 275",
			want: []domain.Observation{
				{Key: "wbc", Value: 5.5},
				{Key: "platelets", Value: 275},
			},
		},
		{
			name: "First match wins per analyte",
			text: "hemoglobin 9.1 repeat hemoglobin 13.5",
			want: []domain.Observation{{Key: "hemoglobin", Value: 9.1}},
		},
		{
			name: "Punctuation between label and value",
			text: "Serum Creatinine ....... : 2.4 mg/dL",
			want: []domain.Observation{{Key: "creatinine", Value: 2.4}},
		},
		{
			name: "No recognizable labels",
			text: "patient reports feeling tired lately",
			want: []domain.Observation{},
		},
		{
			name: "Multiple analytes preserve definition order",
			text: "glucose: 182 mg/dl, esr: 42 mm/hr, hb: 11.0",
			want: []domain.Observation{
				{Key: "hemoglobin", Value: 11.0},
				{Key: "glucose", Value: 182},
				{Key: "esr", Value: 42},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractor.Extract(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Extract() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValueExtractor_Pure(t *testing.T) {
	extractor := NewValueExtractor(testLogger())
	text := "Hemoglobin: 8.9 g/dL, WBC count 12,400, Platelet count 95,000"

	first := extractor.Extract(text)
	second := extractor.Extract(text)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Extract() is not pure: %v != %v", first, second)
	}
}

func TestValueExtractor_LabelTooFarFromNumber(t *testing.T) {
	extractor := NewValueExtractor(testLogger())

	// More than 20 non-digit characters between label and number.
	text := "hemoglobin result pending review until further notice 9.9"
	got := extractor.Extract(text)
	if len(got) != 0 {
		t.Errorf("Expected no observations for distant number, got %v", got)
	}
}
