package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/kairosvoice/attune/pkg/classify"
	"github.com/kairosvoice/attune/pkg/errorsx"
	"github.com/kairosvoice/attune/pkg/resilience"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Classifier calls the Generative Language API for emotion analysis.
type Classifier struct {
	APIKey  string
	Model   string
	BaseURL string
	Client  *http.Client

	breaker *resilience.CircuitBreaker
	retry   resilience.RetryPolicy
}

func NewClassifier(apiKey, model string) *Classifier {
	if model == "" {
		model = "gemini-2.0-flash-exp"
	}
	return &Classifier{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: defaultBaseURL,
		Client:  &http.Client{Timeout: 15 * time.Second},
		breaker: resilience.NewCircuitBreaker(3, 30*time.Second),
		retry:   resilience.NewRetryPolicy(1, 200*time.Millisecond),
	}
}

func (c *Classifier) Name() string { return "gemini" }

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Classify sends the prompt and returns the first candidate's text.
func (c *Classifier) Classify(ctx context.Context, prompt string) (string, error) {
	if c.APIKey == "" {
		return "", errorsx.Wrap(errors.New("missing api key"), errorsx.ReasonClassifierUnconfigured)
	}
	if c.breaker != nil && !c.breaker.Allow() {
		return "", errorsx.Wrap(errors.New("circuit open"), errorsx.ReasonClassifierCircuitOpen)
	}
	var out string
	err := c.retry.Do(func() error {
		text, err := c.generate(ctx, prompt)
		if err != nil {
			return err
		}
		out = text
		return nil
	})
	if err != nil {
		if c.breaker != nil {
			c.breaker.OnError(err)
		}
		if resilience.IsRateLimit(err) {
			return "", errorsx.Wrap(err, errorsx.ReasonClassifierRateLimit)
		}
		return "", errorsx.Wrap(err, errorsx.ReasonClassifierGenerate)
	}
	if c.breaker != nil {
		c.breaker.OnSuccess()
	}
	return out, nil
}

func (c *Classifier) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}
	url := c.baseURL() + "/models/" + c.Model + ":generateContent"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.APIKey)
	resp, err := c.client().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		msg, _ := io.ReadAll(resp.Body)
		return "", resilience.RateLimitError{Provider: "gemini", Message: string(msg)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return "", errors.New(string(msg))
	}
	var payload generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if len(payload.Candidates) == 0 || len(payload.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("empty candidate response")
	}
	return payload.Candidates[0].Content.Parts[0].Text, nil
}

func (c *Classifier) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return defaultBaseURL
}

func (c *Classifier) client() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return http.DefaultClient
}

var _ classify.Classifier = (*Classifier)(nil)
