package inference

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/lab-insight-server/internal/domain"
)

// The gateway accepts three upstream response shapes without configuration:
// chat-style (choices[0].message.content), prediction-style
// (predictions[0].result or .output) and a generic passthrough of the whole
// body. Each is decoded into an explicit tagged variant before
// normalization.

type variantKind string

const (
	variantChat       variantKind = "chat"
	variantPrediction variantKind = "prediction"
	variantOpaque     variantKind = "opaque"
)

// upstreamVariant is the tagged decoding of one upstream response body. The
// opaque variant is the catch-all and carries the raw payload.
type upstreamVariant struct {
	kind variantKind
	text string
	raw  []byte
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type predictionResponse struct {
	Predictions []struct {
		Result string `json:"result"`
		Output string `json:"output"`
	} `json:"predictions"`
}

// decodeUpstream classifies a response body into one of the three variants.
func decodeUpstream(body []byte) upstreamVariant {
	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err == nil &&
		len(chat.Choices) > 0 && chat.Choices[0].Message.Content != "" {
		return upstreamVariant{kind: variantChat, text: chat.Choices[0].Message.Content, raw: body}
	}

	var pred predictionResponse
	if err := json.Unmarshal(body, &pred); err == nil && len(pred.Predictions) > 0 {
		text := pred.Predictions[0].Result
		if text == "" {
			text = pred.Predictions[0].Output
		}
		if text != "" {
			return upstreamVariant{kind: variantPrediction, text: text, raw: body}
		}
	}

	return upstreamVariant{kind: variantOpaque, raw: body}
}

// aiPayload is the schema the prompt mandates: explanations, action items
// and questions as one JSON object.
type aiPayload struct {
	Explanations []struct {
		Key         string `json:"key"`
		Explanation string `json:"explanation"`
		Severity    string `json:"severity"`
	} `json:"explanations"`
	ActionItems []string `json:"action_items"`
	Questions   []string `json:"questions"`
}

// normalizeResponse folds any upstream response body into the canonical
// result. It cannot fail: content that resists parsing is preserved under
// the opaque tag instead.
func normalizeResponse(body []byte) *domain.NormalizedAIResult {
	v := decodeUpstream(body)

	switch v.kind {
	case variantChat, variantPrediction:
		return normalizeText(v.text)
	default:
		// Generic passthrough: the body itself may already be the payload.
		if payload, ok := parsePayload(v.raw); ok {
			return payloadResult(payload, domain.MethodRemoteSuccess)
		}
		return opaqueResult(string(v.raw))
	}
}

// normalizeText extracts and parses the JSON object embedded in model output
// text, tolerating Markdown code fences, inline backticks and trailing
// commas. Unparsable text is preserved raw under the opaque tag.
func normalizeText(text string) *domain.NormalizedAIResult {
	cleaned := stripFences(text)

	if span, ok := extractObject(cleaned); ok {
		if payload, ok := parsePayload([]byte(span)); ok {
			return payloadResult(payload, domain.MethodRemoteSuccess)
		}
	}

	return opaqueResult(text)
}

var (
	fencePattern         = regexp.MustCompile("(?i)```[a-z]*")
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// stripFences removes Markdown code fences and inline backticks so the
// balanced-object search sees only content.
func stripFences(s string) string {
	s = fencePattern.ReplaceAllString(s, "")
	return strings.ReplaceAll(s, "`", "")
}

// extractObject returns the first balanced {...} span, ignoring braces
// inside JSON string literals.
func extractObject(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i, r := range s {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				if depth == 0 {
					start = i
				}
				depth++
			}
		case '}':
			if !inString && depth > 0 {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}

	return "", false
}

// parsePayload parses a candidate JSON object into the expected schema,
// tolerating trailing commas before closing braces and brackets. It reports
// false for valid JSON that carries none of the three expected fields.
func parsePayload(data []byte) (*aiPayload, bool) {
	repaired := trailingCommaPattern.ReplaceAll(data, []byte("$1"))

	var payload aiPayload
	if err := json.Unmarshal(repaired, &payload); err != nil {
		return nil, false
	}

	if len(payload.Explanations) == 0 && len(payload.ActionItems) == 0 && len(payload.Questions) == 0 {
		return nil, false
	}

	return &payload, true
}

// payloadResult converts a parsed payload into the canonical result,
// normalizing severity text on the way.
func payloadResult(payload *aiPayload, method domain.ResultMethod) *domain.NormalizedAIResult {
	explanations := make([]domain.Explanation, 0, len(payload.Explanations))
	for _, ex := range payload.Explanations {
		explanations = append(explanations, domain.Explanation{
			Key:         ex.Key,
			Explanation: ex.Explanation,
			Severity:    domain.ParseSeverity(strings.ToLower(ex.Severity)),
		})
	}

	actionItems := payload.ActionItems
	if actionItems == nil {
		actionItems = []string{}
	}
	questions := payload.Questions
	if questions == nil {
		questions = []string{}
	}

	return &domain.NormalizedAIResult{
		Explanations: explanations,
		ActionItems:  actionItems,
		Questions:    questions,
		Method:       method,
	}
}

// opaqueResult preserves unparsable upstream content as a single raw
// explanation entry.
func opaqueResult(text string) *domain.NormalizedAIResult {
	return &domain.NormalizedAIResult{
		Explanations: []domain.Explanation{{
			Key:         "raw",
			Explanation: strings.TrimSpace(text),
			Severity:    domain.SeverityUnknown,
		}},
		ActionItems: []string{},
		Questions:   []string{},
		Method:      domain.MethodRemoteOpaque,
	}
}
