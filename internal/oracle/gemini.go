package oracle

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"rockstar-pass-monolith/internal/core"
)

const (
	DefaultModel   = "gemini-2.5-flash"
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
)

// Gemini asks the Gemini generateContent endpoint
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// Option customizes a Gemini client
type Option func(*Gemini)

// WithBaseURL points the client at another endpoint, e.g. a test server
func WithBaseURL(url string) Option {
	return func(g *Gemini) { g.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gemini) { g.client = c }
}

// NewGemini creates a Gemini oracle
func NewGemini(apiKey, model string, opts ...Option) *Gemini {
	if model == "" {
		model = DefaultModel
	}
	g := &Gemini{
		apiKey:  apiKey,
		model:   model,
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	InlineData *inlineData `json:"inline_data,omitempty"`
	Text       string      `json:"text,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

// Ask sends the media parts followed by the prompt and returns the answer text
func (g *Gemini) Ask(ctx context.Context, prompt string, media ...core.Media) (string, error) {
	parts := make([]part, 0, len(media)+1)
	for _, m := range media {
		parts = append(parts, part{InlineData: &inlineData{
			MIMEType: m.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(m.Data),
		}})
	}
	parts = append(parts, part{Text: prompt})

	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: parts}}})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call oracle: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read oracle response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(payload, "error.message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", fmt.Errorf("oracle returned %d: %s", resp.StatusCode, msg)
	}

	if !gjson.ValidBytes(payload) {
		return "", fmt.Errorf("oracle returned malformed JSON")
	}

	var sb strings.Builder
	for _, text := range gjson.GetBytes(payload, "candidates.0.content.parts.#.text").Array() {
		sb.WriteString(text.String())
	}
	answer := sb.String()

	if answer == "" {
		reason := gjson.GetBytes(payload, "promptFeedback.blockReason").String()
		log.WithFields(log.Fields{"model": g.model, "block_reason": reason}).Warn("oracle returned no text")
	}
	return answer, nil
}
