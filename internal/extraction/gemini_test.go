package extraction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geminiServer(t *testing.T, fieldsJSON string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, ":generateContent")
		assert.NotEmpty(t, r.URL.Query().Get("key"))

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Contents)
		assert.Equal(t, "application/json", req.GenerationConfig.ResponseMimeType)

		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": fieldsJSON}}}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestGeminiExtractor_ExtractLease(t *testing.T) {
	srv := geminiServer(t, `{
		"tenant_name": "Acme Corp",
		"landlord_name": null,
		"property_address": "1 Main St",
		"rent_amount": 2500.0,
		"lease_term_years": 5,
		"renewal_options": null,
		"escalation_clauses": null,
		"termination_clauses": "60 days notice"
	}`)
	defer srv.Close()

	g := NewGeminiExtractor("test-key", "gemini-2.5-pro", WithBaseURL(srv.URL))
	fields, err := g.ExtractLease(context.Background(), "lease text")
	require.NoError(t, err)

	require.NotNil(t, fields.TenantName)
	assert.Equal(t, "Acme Corp", *fields.TenantName)
	assert.Nil(t, fields.LandlordName)
	require.NotNil(t, fields.RentAmount)
	assert.Equal(t, 2500.0, *fields.RentAmount)
	require.NotNil(t, fields.LeaseTermYears)
	assert.Equal(t, 5.0, *fields.LeaseTermYears)
	require.NotNil(t, fields.TerminationClauses)
	assert.Equal(t, "60 days notice", *fields.TerminationClauses)
}

func TestGeminiExtractor_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewGeminiExtractor("test-key", "gemini-2.5-pro", WithBaseURL(srv.URL))
	_, err := g.ExtractLease(context.Background(), "lease text")
	assert.Error(t, err)
}

func TestGeminiExtractor_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer srv.Close()

	g := NewGeminiExtractor("test-key", "gemini-2.5-pro", WithBaseURL(srv.URL))
	_, err := g.ExtractLease(context.Background(), "lease text")
	assert.Error(t, err)
}

func TestStubExtractor(t *testing.T) {
	fields, err := StubExtractor{}.ExtractLease(context.Background(), "anything")
	require.NoError(t, err)
	assert.Nil(t, fields.TenantName)
	assert.NotEmpty(t, fields.Note)
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", Excerpt("short"))

	long := make([]rune, 3000)
	for i := range long {
		long[i] = 'é'
	}
	got := Excerpt(string(long))
	assert.Equal(t, 2000, len([]rune(got)))
}
