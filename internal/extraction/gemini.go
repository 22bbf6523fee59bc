package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

const leasePrompt = "Extract the following lease fields and return valid JSON with keys: " +
	"tenant_name, landlord_name, property_address, rent_amount, lease_term_years, " +
	"renewal_options, escalation_clauses, termination_clauses. " +
	"Set missing fields to null. Use numeric types for numbers. No extra keys."

// GeminiExtractor calls the Gemini generateContent API with a JSON response
// mime type and parses the lease fields out of the first candidate.
type GeminiExtractor struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

type GeminiOption func(*GeminiExtractor)

// WithBaseURL points the extractor at a different API host, used in tests.
func WithBaseURL(url string) GeminiOption {
	return func(g *GeminiExtractor) { g.baseURL = url }
}

func NewGeminiExtractor(apiKey, model string, opts ...GeminiOption) *GeminiExtractor {
	g := &GeminiExtractor{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultGeminiBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string `json:"responseMimeType"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (g *GeminiExtractor) ExtractLease(ctx context.Context, text string) (*LeaseFields, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: leasePrompt + "\n\nDocument:\n" + text}}},
		},
		GenerationConfig: geminiGenerationConfig{ResponseMimeType: "application/json"},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encoding gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini returned status %d", resp.StatusCode)
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	var fields LeaseFields
	if err := json.Unmarshal([]byte(parsed.Candidates[0].Content.Parts[0].Text), &fields); err != nil {
		return nil, fmt.Errorf("parsing lease fields: %w", err)
	}
	return &fields, nil
}
