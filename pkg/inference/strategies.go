package inference

import "strings"

// The three request shapes the gateway can send. The safety preamble is part
// of the prompt itself, so both chat shapes carry it merged into the single
// user turn; no dedicated system role is used because some chat backends
// reject one.

type completionInput struct {
	Text string `json:"text"`
}

type completionBody struct {
	Input completionInput `json:"input"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatBody struct {
	Messages []chatMessage `json:"messages"`
}

type envelopeMessage struct {
	Author string `json:"author"`
	Type   string `json:"type"`
	Text   string `json:"text"`
}

type envelopeBody struct {
	Messages []envelopeMessage `json:"messages"`
}

// requestStrategy is one rung of the fallback ladder: a named payload shape.
// Strategies are tried in order; the first successful request wins.
type requestStrategy struct {
	name    string
	payload func(prompt string) any
}

var (
	completionStrategy = requestStrategy{
		name: "completion",
		payload: func(prompt string) any {
			return completionBody{Input: completionInput{Text: prompt}}
		},
	}

	chatStrategy = requestStrategy{
		name: "chat",
		payload: func(prompt string) any {
			return chatBody{Messages: []chatMessage{{Role: "user", Content: prompt}}}
		},
	}

	envelopeStrategy = requestStrategy{
		name: "chat-envelope",
		payload: func(prompt string) any {
			return envelopeBody{Messages: []envelopeMessage{{Author: "user", Type: "text", Text: prompt}}}
		},
	}
)

// strategiesFor selects the ordered ladder for an endpoint. An explicit mode
// override pins the primary shape; in auto mode an endpoint whose path
// mentions chat starts on the chat shape. The author/type/text envelope is
// always the last structural variant before local fallback.
func strategiesFor(mode, endpoint string) []requestStrategy {
	chatTarget := mode == "chat" ||
		(mode != "completion" && strings.Contains(strings.ToLower(endpoint), "chat"))

	switch {
	case chatTarget:
		return []requestStrategy{chatStrategy, envelopeStrategy}
	case mode == "completion":
		// Explicit completion override pins the shape; no chat retries.
		return []requestStrategy{completionStrategy}
	default:
		return []requestStrategy{completionStrategy, chatStrategy, envelopeStrategy}
	}
}
