// Package enrich integrates the external enrichment providers: location
// extraction, geocoding, official-update scraping, and image verification.
// Every provider call is routed through the cache orchestrator by the
// service in this package, so providers themselves stay cache-unaware.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	dErrors "beacon/pkg/domain-errors"
)

// Extractor asks a generative-language model to pull a place name out of
// free-form disaster text.
type Extractor struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

func WithExtractorHTTPClient(c *http.Client) ExtractorOption {
	return func(e *Extractor) { e.httpClient = c }
}

func WithExtractorModel(model string) ExtractorOption {
	return func(e *Extractor) { e.model = model }
}

func NewExtractor(baseURL, apiKey string, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      "gemini-2.0-flash",
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

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
		Content content `json:"content"`
	} `json:"candidates"`
}

// ExtractLocation returns the single best place name found in the text, or a
// not_found error when the model finds none.
func (e *Extractor) ExtractLocation(ctx context.Context, text string) (string, error) {
	prompt := "Extract the single most specific location name from the following disaster description. " +
		"Respond with only the location name, or NONE if there is none.\n\n" + text

	answer, err := e.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" || strings.EqualFold(answer, "NONE") {
		return "", dErrors.New(dErrors.CodeNotFound, "no location found in description")
	}
	return answer, nil
}

func (e *Extractor) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("encode generate request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", e.baseURL, e.model, e.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "language model unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", dErrors.New(dErrors.CodeUnavailable, fmt.Sprintf("language model returned %d", resp.StatusCode))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "decode language model response")
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", dErrors.New(dErrors.CodeUnavailable, "language model returned no candidates")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
