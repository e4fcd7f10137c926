// Package inference owns the external generative-AI service integration:
// configuration detection, authentication, the request-shape fallback ladder
// and response normalization. Its public entry point never fails; every
// error path terminates in a well-formed NormalizedAIResult.
package inference

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/lab-insight-server/internal/domain"
)

// tokenExpiryMargin invalidates a cached token this long before its actual
// expiry so an in-flight request never carries a token that dies mid-call.
const tokenExpiryMargin = 60 * time.Second

// Client is the inference gateway. It is safe for concurrent use; the token
// cache is the only shared mutable state and is mutex-guarded so exactly one
// caller performs a refresh while others wait and reuse the result.
type Client struct {
	cfg        domain.InferenceConfig
	httpClient *http.Client
	logger     *logrus.Logger

	// now is the injectable time source used for token expiry checks.
	now func() time.Time

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time

	breaker *gobreaker.CircuitBreaker
	results *expirable.LRU[string, *domain.NormalizedAIResult]
}

// NewClient creates an inference gateway from configuration. An unconfigured
// service is legal: every Generate call then synthesizes a local fallback
// result without network I/O.
func NewClient(cfg domain.InferenceConfig, logger *logrus.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = 256
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "inference",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Inference circuit breaker state changed")
		},
	})

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		now:        time.Now,
		breaker:    breaker,
		results:    expirable.NewLRU[string, *domain.NormalizedAIResult](cacheSize, nil, cfg.CacheTTL),
	}
}

// WithClock overrides the gateway's time source. Tests use it to control
// token expiry without wall-clock dependence.
func (c *Client) WithClock(now func() time.Time) *Client {
	c.now = now
	return c
}

// Configured reports whether the service has a usable endpoint and
// credentials.
func (c *Client) Configured() bool {
	return c.cfg.IsConfigured()
}

// Generate invokes the inference service for a prompt and normalizes the
// response. It never returns an error: an unconfigured service, exhausted
// fallback ladder or open circuit all terminate in a local fallback result
// synthesized from the assessments.
func (c *Client) Generate(ctx context.Context, prompt string, assessments []domain.AssessmentResult) *domain.NormalizedAIResult {
	if !c.cfg.IsConfigured() {
		c.logger.Debug("Inference service not configured, synthesizing local fallback")
		return localFallback(assessments)
	}

	key := promptKey(prompt)
	if cached, ok := c.results.Get(key); ok {
		c.logger.WithField("method", cached.Method.String()).Debug("Inference result served from cache")
		return cached
	}

	endpoint := c.endpoint()
	for _, strategy := range strategiesFor(c.cfg.RequestMode, endpoint) {
		body, err := c.post(ctx, endpoint, strategy.payload(prompt))
		if err != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"strategy": strategy.name,
				"endpoint": endpoint,
			}).Warn("Inference attempt failed")
			continue
		}

		result := normalizeResponse(body)
		c.logger.WithFields(logrus.Fields{
			"strategy": strategy.name,
			"method":   result.Method.String(),
		}).Info("Inference attempt succeeded")

		c.results.Add(key, result)
		return result
	}

	c.logger.Warn("All inference strategies failed, synthesizing local fallback")
	return localFallback(assessments)
}

// endpoint resolves the prediction URL: an explicit full URL wins, otherwise
// it is derived from the base URL and deployment identifier.
func (c *Client) endpoint() string {
	if c.cfg.PredictionURL != "" {
		return c.cfg.PredictionURL
	}
	return fmt.Sprintf("%s/v1/deployments/%s/predictions",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Deployment)
}

// post sends one JSON request through the circuit breaker and returns the
// raw response body. Any transport failure, non-2xx status or open breaker
// is an error, which moves the ladder to its next strategy.
func (c *Client) post(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to create inference request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		if err := c.authorize(ctx, req); err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to execute inference request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read inference response: %w", err)
		}

		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			return nil, fmt.Errorf("inference endpoint returned status %d", resp.StatusCode)
		}

		return body, nil
	})
	if err != nil {
		return nil, err
	}

	return out.([]byte), nil
}

// authorize attaches credentials to a request: either the static API key as
// HTTP basic credentials, or a bearer token obtained via token exchange.
func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	if c.cfg.AuthMode == "token" && c.cfg.TokenURL != "" {
		token, err := c.bearerToken(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	}

	req.SetBasicAuth("apikey", c.cfg.APIKey)
	return nil
}

// tokenResponse accepts both absolute-expiry and relative-lifetime token
// exchange responses.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	Expiration  int64  `json:"expiration"`
}

// bearerToken returns a valid bearer token, reusing the cached one while its
// expiry minus the safety margin has not passed. The mutex is held across
// the exchange so concurrent callers wait on a single refresh.
func (c *Client) bearerToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry.Add(-tokenExpiryMargin)) {
		return c.token, nil
	}

	form := url.Values{
		"grant_type": {"urn:ibm:params:oauth:grant-type:apikey"},
		"apikey":     {c.cfg.APIKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange returned status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token exchange returned no access token")
	}

	expiry := c.now().Add(time.Hour)
	switch {
	case tr.Expiration > 0:
		expiry = time.Unix(tr.Expiration, 0)
	case tr.ExpiresIn > 0:
		expiry = c.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	c.token = tr.AccessToken
	c.tokenExpiry = expiry

	c.logger.WithField("expires_at", expiry).Debug("Refreshed inference bearer token")

	return c.token, nil
}

// promptKey hashes a prompt into a response-cache key.
func promptKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return fmt.Sprintf("prompt:%x", sum[:16])
}
